package runner

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/google/uuid"
)

// State is the lifecycle of one scenario: PENDING -> RUNNING ->
// {PASSED | FAILED}. Terminal states are final.
type State string

const (
	StatePending State = "PENDING"
	StateRunning State = "RUNNING"
	StatePassed  State = "PASSED"
	StateFailed  State = "FAILED"
)

// ScenarioResult is the single outcome record every scenario produces,
// whether its executor returned, failed, panicked, or never ran.
type ScenarioResult struct {
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// State reports the terminal state of the result.
func (r *ScenarioResult) State() State {
	if r.Passed {
		return StatePassed
	}
	return StateFailed
}

// Report is the ordered outcome of one run. Results appear in scenario
// submission order regardless of completion order.
type Report struct {
	RunID      string            `json:"runId"`
	StartedAt  time.Time         `json:"startedAt"`
	Results    []*ScenarioResult `json:"results"`
	Passed     int               `json:"passed"`
	Failed     int               `json:"failed"`
	Duration   time.Duration     `json:"-"`
	DurationMs int64             `json:"durationMs"`

	// Latency percentiles over scenario elapsed times, in milliseconds
	P50 int64 `json:"p50"`
	P95 int64 `json:"p95"`
	P99 int64 `json:"p99"`
}

func newReport() *Report {
	return &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
}

// Success reports whether every scenario passed.
func (r *Report) Success() bool {
	return r.Failed == 0 && len(r.Results) > 0
}

// finalize tallies counts and computes latency percentiles.
func (r *Report) finalize(elapsed time.Duration) {
	r.Duration = elapsed
	r.DurationMs = elapsed.Milliseconds()

	hist := hdrhistogram.New(1, 10*time.Minute.Milliseconds(), 3)
	for _, res := range r.Results {
		if res.Passed {
			r.Passed++
		} else {
			r.Failed++
		}
		_ = hist.RecordValue(res.ElapsedMs)
	}

	if hist.TotalCount() > 0 {
		r.P50 = hist.ValueAtQuantile(50)
		r.P95 = hist.ValueAtQuantile(95)
		r.P99 = hist.ValueAtQuantile(99)
	}
}
