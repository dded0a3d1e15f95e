package runner

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	apihttp "github.com/apiprobe/apiprobe/packages/http"
	"github.com/apiprobe/apiprobe/packages/retry"
	"github.com/apiprobe/apiprobe/packages/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(context.Context, time.Duration) error { return nil }

func TestHTTPExecutor_CreateUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/users", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "John Doe", payload["name"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 11, "name": "John Doe", "job": "Software Engineer"}`))
	}))
	defer server.Close()

	client := apihttp.NewClient(apihttp.WithBaseURL(server.URL))
	defer client.Close()

	exec := HTTPExecutor(client, retry.NewPolicy())

	sc := &scenario.Scenario{
		Name: "create user",
		Request: scenario.RequestSpec{
			Method: "POST",
			Path:   "/users",
			Body:   map[string]any{"name": "John Doe", "job": "Software Engineer"},
		},
		Expect: scenario.Expectation{
			Status:         201,
			RequiredFields: []string{"id", "name", "job"},
		},
	}

	assert.NoError(t, exec(context.Background(), sc))
}

func TestHTTPExecutor_StatusMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := apihttp.NewClient(apihttp.WithBaseURL(server.URL))
	defer client.Close()

	exec := HTTPExecutor(client, retry.NewPolicy())

	sc := &scenario.Scenario{
		Name:    "get user",
		Request: scenario.RequestSpec{Method: "GET", Path: "/users/23"},
		Expect:  scenario.Expectation{Status: 200},
	}

	err := exec(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected status 200, got 404")
}

func TestHTTPExecutor_MissingRequiredField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id": 1, "name": "x"}`))
	}))
	defer server.Close()

	client := apihttp.NewClient(apihttp.WithBaseURL(server.URL))
	defer client.Close()

	exec := HTTPExecutor(client, retry.NewPolicy())

	sc := &scenario.Scenario{
		Name:    "get user",
		Request: scenario.RequestSpec{Method: "GET", Path: "/users/1"},
		Expect:  scenario.Expectation{Status: 200, RequiredFields: []string{"id", "name", "email"}},
	}

	err := exec(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
}

func TestHTTPExecutor_RetriesServerErrors(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	client := apihttp.NewClient(apihttp.WithBaseURL(server.URL))
	defer client.Close()

	policy := retry.NewPolicy(retry.WithMaxAttempts(3), retry.WithSleep(noSleep))
	exec := HTTPExecutor(client, policy)

	sc := &scenario.Scenario{
		Name:    "flaky endpoint",
		Request: scenario.RequestSpec{Method: "GET", Path: "/flaky"},
		Expect:  scenario.Expectation{Status: 200},
	}

	assert.NoError(t, exec(context.Background(), sc))
	assert.Equal(t, 3, hits)
}

func TestHTTPExecutor_SchemaExpectation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 1, "name": "x"}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	schemaFile := filepath.Join(dir, "user.schema.json")
	require.NoError(t, os.WriteFile(schemaFile, []byte(`{
		"type": "object",
		"required": ["id", "name", "email"]
	}`), 0644))

	client := apihttp.NewClient(apihttp.WithBaseURL(server.URL))
	defer client.Close()

	exec := HTTPExecutor(client, retry.NewPolicy(), WithSchemaDir(dir))

	sc := &scenario.Scenario{
		Name:    "schema check",
		Request: scenario.RequestSpec{Method: "GET", Path: "/users/1"},
		Expect:  scenario.Expectation{Status: 200, Schema: "user.schema.json"},
	}

	err := exec(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")
}

func TestRunner_EndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case "POST":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": 11, "name": "John Doe", "job": "Software Engineer"}`))
		case "DELETE":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"id": 2, "name": "Janet"}`))
		}
	}))
	defer server.Close()

	client := apihttp.NewClient(apihttp.WithBaseURL(server.URL))
	defer client.Close()

	scenarios := []*scenario.Scenario{
		{
			Name: "create user",
			Request: scenario.RequestSpec{
				Method: "POST",
				Path:   "/users",
				Body:   map[string]any{"name": "John Doe", "job": "Software Engineer"},
			},
			Expect: scenario.Expectation{Status: 201, RequiredFields: []string{"id", "name", "job"}},
		},
		{
			Name:    "get user",
			Request: scenario.RequestSpec{Method: "GET", Path: "/users/2"},
			Expect:  scenario.Expectation{Status: 200, RequiredFields: []string{"id", "name"}},
		},
		{
			Name:    "delete user",
			Request: scenario.RequestSpec{Method: "DELETE", Path: "/users/2"},
			Expect:  scenario.Expectation{Status: 204},
		},
	}

	r := NewRunner(nil)
	report := r.Run(context.Background(), scenarios, HTTPExecutor(client, retry.NewPolicy()))

	require.Len(t, report.Results, 3)
	assert.True(t, report.Success())
	assert.Equal(t, []string{"create user", "get user", "delete user"}, []string{
		report.Results[0].Name, report.Results[1].Name, report.Results[2].Name,
	})
}
