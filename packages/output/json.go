package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/apiprobe/apiprobe/packages/runner"
)

// JSONOutput is the machine-readable report contract consumed by CI
// collaborators: one object per scenario plus a summary block.
type JSONOutput struct {
	RunID    string                   `json:"runId"`
	Summary  JSONSummary              `json:"summary"`
	Results  []*runner.ScenarioResult `json:"results"`
	Duration int64                    `json:"durationMs"`
	Time     string                   `json:"time"`
}

type JSONSummary struct {
	Total  int   `json:"total"`
	Passed int   `json:"passed"`
	Failed int   `json:"failed"`
	P50    int64 `json:"p50"`
	P95    int64 `json:"p95"`
	P99    int64 `json:"p99"`
}

type JSONFormatter struct {
	writer io.Writer
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatReport(report *runner.Report) error {
	out := JSONOutput{
		RunID: report.RunID,
		Summary: JSONSummary{
			Total:  len(report.Results),
			Passed: report.Passed,
			Failed: report.Failed,
			P50:    report.P50,
			P95:    report.P95,
			P99:    report.P99,
		},
		Results:  report.Results,
		Duration: report.DurationMs,
		Time:     report.StartedAt.Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors surface through the report results
}
