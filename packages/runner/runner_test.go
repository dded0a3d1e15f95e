package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apiprobe/apiprobe/packages/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeScenarios(n int) []*scenario.Scenario {
	scenarios := make([]*scenario.Scenario, n)
	for i := range scenarios {
		scenarios[i] = &scenario.Scenario{
			Name:    fmt.Sprintf("scenario-%d", i),
			Request: scenario.RequestSpec{Method: "GET", Path: "/"},
			Expect:  scenario.Expectation{Status: 200},
		}
	}
	return scenarios
}

func TestRunner_OneResultPerScenarioInOrder(t *testing.T) {
	scenarios := makeScenarios(7)

	r := NewRunner(nil)
	report := r.Run(context.Background(), scenarios, func(ctx context.Context, sc *scenario.Scenario) error {
		return nil
	})

	require.Len(t, report.Results, 7)
	for i, res := range report.Results {
		assert.Equal(t, fmt.Sprintf("scenario-%d", i), res.Name)
		assert.True(t, res.Passed)
	}
	assert.Equal(t, 7, report.Passed)
	assert.Equal(t, 0, report.Failed)
	assert.True(t, report.Success())
	assert.NotEmpty(t, report.RunID)
}

func TestRunner_FailureDoesNotAbortSiblings(t *testing.T) {
	scenarios := makeScenarios(5)

	var executed atomic.Int32
	r := NewRunner(nil)
	report := r.Run(context.Background(), scenarios, func(ctx context.Context, sc *scenario.Scenario) error {
		executed.Add(1)
		if sc.Name == "scenario-1" {
			return errors.New("assertion failed: expected status 200, got 500")
		}
		return nil
	})

	assert.Equal(t, int32(5), executed.Load())
	require.Len(t, report.Results, 5)
	assert.False(t, report.Results[1].Passed)
	assert.Contains(t, report.Results[1].Error, "expected status 200")
	assert.Equal(t, StateFailed, report.Results[1].State())

	for _, i := range []int{0, 2, 3, 4} {
		assert.True(t, report.Results[i].Passed, "scenario %d should pass", i)
	}
	assert.Equal(t, 4, report.Passed)
	assert.Equal(t, 1, report.Failed)
	assert.False(t, report.Success())
}

func TestRunner_PanicIsIsolated(t *testing.T) {
	scenarios := makeScenarios(3)

	r := NewRunner(nil)
	report := r.Run(context.Background(), scenarios, func(ctx context.Context, sc *scenario.Scenario) error {
		if sc.Name == "scenario-0" {
			panic("boom")
		}
		return nil
	})

	require.Len(t, report.Results, 3)
	assert.False(t, report.Results[0].Passed)
	assert.Contains(t, report.Results[0].Error, "panicked")
	assert.Contains(t, report.Results[0].Error, "boom")
	assert.True(t, report.Results[1].Passed)
	assert.True(t, report.Results[2].Passed)
}

func TestRunner_ParallelPreservesSubmissionOrder(t *testing.T) {
	scenarios := makeScenarios(20)

	r := NewRunner(&Config{Parallelism: 8})
	report := r.Run(context.Background(), scenarios, func(ctx context.Context, sc *scenario.Scenario) error {
		// Vary completion order
		if sc.Name == "scenario-0" {
			time.Sleep(30 * time.Millisecond)
		}
		return nil
	})

	require.Len(t, report.Results, 20)
	for i, res := range report.Results {
		assert.Equal(t, fmt.Sprintf("scenario-%d", i), res.Name)
	}
	assert.Equal(t, 20, report.Passed)
}

func TestRunner_ParallelismBound(t *testing.T) {
	scenarios := makeScenarios(12)

	var inFlight, peak atomic.Int32
	r := NewRunner(&Config{Parallelism: 3})
	r.Run(context.Background(), scenarios, func(ctx context.Context, sc *scenario.Scenario) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestRunner_RunTimeoutMarksPendingFailed(t *testing.T) {
	scenarios := makeScenarios(4)

	r := NewRunner(&Config{Timeout: 50 * time.Millisecond})
	start := time.Now()
	report := r.Run(context.Background(), scenarios, func(ctx context.Context, sc *scenario.Scenario) error {
		select {
		case <-time.After(5 * time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	elapsed := time.Since(start)

	// The run reports promptly instead of waiting out in-flight calls
	assert.Less(t, elapsed, 2*time.Second)
	require.Len(t, report.Results, 4)
	for _, res := range report.Results {
		assert.False(t, res.Passed)
	}
	assert.Equal(t, 4, report.Failed)
}

func TestRunner_EmptyListYieldsEmptyReport(t *testing.T) {
	r := NewRunner(nil)
	report := r.Run(context.Background(), nil, func(ctx context.Context, sc *scenario.Scenario) error {
		return nil
	})

	assert.Empty(t, report.Results)
	assert.False(t, report.Success())
}

func TestRunner_RecordsElapsedTime(t *testing.T) {
	scenarios := makeScenarios(1)

	r := NewRunner(nil)
	report := r.Run(context.Background(), scenarios, func(ctx context.Context, sc *scenario.Scenario) error {
		time.Sleep(20 * time.Millisecond)
		return nil
	})

	assert.GreaterOrEqual(t, report.Results[0].ElapsedMs, int64(20))
	assert.GreaterOrEqual(t, report.P99, report.P50)
}
