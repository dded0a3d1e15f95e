// Package runner executes an ordered list of scenarios through a
// caller-supplied executor and aggregates one result per scenario.
// Scenario isolation is the key guarantee: one scenario's failure,
// panic, or timeout never aborts its siblings.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/apiprobe/apiprobe/packages/scenario"
	"golang.org/x/time/rate"
)

const (
	// DefaultParallelism is the number of scenarios in flight when
	// parallel execution is enabled
	DefaultParallelism = 5
)

// Executor runs one scenario. A nil return means the scenario passed;
// an error (assertion failure, transport failure, anything) marks it
// failed.
type Executor func(ctx context.Context, sc *scenario.Scenario) error

type Runner struct {
	config  *Config
	limiter *rate.Limiter
}

type Config struct {
	// Parallelism > 1 runs scenarios concurrently behind a semaphore.
	// Results still appear in submission order.
	Parallelism int
	// Timeout bounds the whole run. Scenarios still pending when it
	// expires are marked failed; in-flight calls do not block reporting.
	Timeout time.Duration
	// Rate caps scenario starts per second. Zero means unlimited.
	Rate float64
}

func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}

	r := &Runner{config: cfg}
	if cfg.Rate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	return r
}

type indexedResult struct {
	index  int
	result *ScenarioResult
}

// Run executes every scenario and returns a report with exactly one
// result per input scenario, in input order.
func (r *Runner) Run(ctx context.Context, scenarios []*scenario.Scenario, exec Executor) *Report {
	report := newReport()
	start := time.Now()

	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	parallelism := r.config.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	// Buffered so late completions after a run timeout can still drain
	// without blocking their goroutines.
	resultCh := make(chan indexedResult, len(scenarios))

	var wg sync.WaitGroup
	sem := make(chan struct{}, parallelism)

	for i, sc := range scenarios {
		if ctx.Err() != nil {
			break
		}

		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				break
			}
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(idx int, sc *scenario.Scenario) {
			defer wg.Done()
			defer func() { <-sem }()

			resultCh <- indexedResult{index: idx, result: r.runScenario(ctx, sc, exec)}
		}(i, sc)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	results := make([]*ScenarioResult, len(scenarios))

collect:
	for {
		select {
		case ir := <-resultCh:
			results[ir.index] = ir.result
			if complete(results) {
				break collect
			}
		case <-done:
			// Drain anything already buffered, then stop.
			for {
				select {
				case ir := <-resultCh:
					results[ir.index] = ir.result
				default:
					break collect
				}
			}
		case <-ctx.Done():
			break collect
		}
	}

	// Every scenario yields exactly one result; anything still missing
	// was aborted by the run deadline.
	for i, res := range results {
		if res == nil {
			results[i] = &ScenarioResult{
				Name:   scenarios[i].Name,
				Passed: false,
				Error:  "run timeout exceeded before scenario completed",
			}
		}
	}

	report.Results = results
	report.finalize(time.Since(start))
	return report
}

func complete(results []*ScenarioResult) bool {
	for _, r := range results {
		if r == nil {
			return false
		}
	}
	return true
}

// runScenario invokes the executor with panic isolation.
func (r *Runner) runScenario(ctx context.Context, sc *scenario.Scenario, exec Executor) (result *ScenarioResult) {
	start := time.Now()
	result = &ScenarioResult{Name: sc.Name}

	defer func() {
		result.ElapsedMs = time.Since(start).Milliseconds()
		if rec := recover(); rec != nil {
			result.Passed = false
			result.Error = fmt.Sprintf("scenario panicked: %v", rec)
		}
	}()

	if err := exec(ctx, sc); err != nil {
		result.Passed = false
		result.Error = err.Error()
		return result
	}

	result.Passed = true
	return result
}
