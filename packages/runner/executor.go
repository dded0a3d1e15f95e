package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apiprobe/apiprobe/packages/assertions"
	"github.com/apiprobe/apiprobe/packages/http"
	"github.com/apiprobe/apiprobe/packages/retry"
	"github.com/apiprobe/apiprobe/packages/scenario"
)

// ExecutorOption configures the stock HTTP executor.
type ExecutorOption func(*httpExecutor)

// WithSchemaDir sets the directory schema file expectations are
// resolved against, typically the scenario file's directory.
func WithSchemaDir(dir string) ExecutorOption {
	return func(e *httpExecutor) {
		e.schemaDir = dir
	}
}

type httpExecutor struct {
	client    *http.Client
	policy    *retry.Policy
	schemaDir string
}

// HTTPExecutor returns the stock executor: build the request from the
// scenario, issue it through the retry policy, and evaluate every
// expectation, aggregating failures into one error.
func HTTPExecutor(client *http.Client, policy *retry.Policy, opts ...ExecutorOption) Executor {
	e := &httpExecutor{
		client: client,
		policy: policy,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e.run
}

func (e *httpExecutor) run(ctx context.Context, sc *scenario.Scenario) error {
	req, err := e.buildRequest(sc)
	if err != nil {
		return err
	}

	env, err := e.policy.Do(ctx, func(ctx context.Context) (*http.Envelope, error) {
		return e.client.Do(ctx, req)
	})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	results := []assertions.Result{
		assertions.Status(env, sc.Expect.Status),
		assertions.HasFields(env.Body, sc.Expect.RequiredFields),
	}

	if sc.Expect.BodyContains != "" {
		results = append(results, assertions.BodyContains(env, sc.Expect.BodyContains))
	}

	if sc.Expect.Schema != "" {
		results = append(results, e.checkSchema(env, sc.Expect.Schema))
	}

	if combined := assertions.All(results...); !combined.Passed {
		return fmt.Errorf("assertion failed: %s", combined.Message)
	}
	return nil
}

func (e *httpExecutor) buildRequest(sc *scenario.Scenario) (*http.Request, error) {
	req := http.NewRequest(sc.Request.Method, sc.Request.Path)

	body, err := sc.Request.BodyString()
	if err != nil {
		return nil, err
	}
	req.SetBody(body)

	if sc.Request.IsJSONBody() {
		req.SetHeader("Content-Type", "application/json")
	}

	// Scenario headers win over the default Content-Type above and over
	// the client's defaults.
	for k, v := range sc.Request.Headers {
		req.SetHeader(k, v)
	}

	return req, nil
}

func (e *httpExecutor) checkSchema(env *http.Envelope, schemaPath string) assertions.Result {
	if !filepath.IsAbs(schemaPath) && e.schemaDir != "" {
		schemaPath = filepath.Join(e.schemaDir, schemaPath)
	}

	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		return assertions.Result{Passed: false, Message: fmt.Sprintf("reading schema file: %v", err)}
	}

	return assertions.MatchesSchema(env.Body, schema)
}
