// Package scenario defines the declarative request+expectation records
// a run is driven by, and loads them from YAML or JSON files.
package scenario

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Scenario is one declarative request+expectation unit. Scenarios are
// immutable once loaded.
type Scenario struct {
	Name    string      `json:"name" yaml:"name"`
	Request RequestSpec `json:"request" yaml:"request"`
	Expect  Expectation `json:"expect" yaml:"expect"`
}

// RequestSpec describes the call to issue. Path is resolved against the
// run's base URL unless it is a fully qualified URL.
type RequestSpec struct {
	Method  string            `json:"method" yaml:"method"`
	Path    string            `json:"path" yaml:"path"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    any               `json:"body,omitempty" yaml:"body,omitempty"`
}

// Expectation describes what must hold on the response.
type Expectation struct {
	Status         int      `json:"status" yaml:"status"`
	RequiredFields []string `json:"requiredFields,omitempty" yaml:"requiredFields,omitempty"`
	BodyContains   string   `json:"bodyContains,omitempty" yaml:"bodyContains,omitempty"`
	Schema         string   `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// BodyString renders the request body for the wire. Strings pass through
// untouched; any other value is encoded as JSON.
func (r *RequestSpec) BodyString() (string, error) {
	switch v := r.Body.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		data, err := json.Marshal(normalizeYAML(v))
		if err != nil {
			return "", fmt.Errorf("encoding request body: %w", err)
		}
		return string(data), nil
	}
}

// IsJSONBody reports whether the body will be sent as JSON.
func (r *RequestSpec) IsJSONBody() bool {
	switch r.Body.(type) {
	case nil, string:
		return false
	default:
		return true
	}
}

// normalizeYAML rewrites map[any]any trees produced by YAML decoding
// into map[string]any so they survive json.Marshal.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[fmt.Sprintf("%v", k)] = normalizeYAML(item)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = normalizeYAML(item)
		}
		return m
	case []any:
		s := make([]any, len(val))
		for i, item := range val {
			s[i] = normalizeYAML(item)
		}
		return s
	default:
		return val
	}
}

var validMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"PATCH":   true,
	"DELETE":  true,
	"HEAD":    true,
	"OPTIONS": true,
}

// Validate checks a scenario list before any scenario executes. An
// invalid list fails the whole run up front.
func Validate(scenarios []*Scenario) error {
	if len(scenarios) == 0 {
		return fmt.Errorf("scenario list is empty")
	}

	seen := make(map[string]bool)
	var problems []string

	for i, sc := range scenarios {
		label := sc.Name
		if label == "" {
			label = fmt.Sprintf("scenario #%d", i+1)
			problems = append(problems, fmt.Sprintf("%s: name is required", label))
		}
		if seen[sc.Name] && sc.Name != "" {
			problems = append(problems, fmt.Sprintf("%s: duplicate name", label))
		}
		seen[sc.Name] = true

		method := strings.ToUpper(sc.Request.Method)
		if !validMethods[method] {
			problems = append(problems, fmt.Sprintf("%s: unknown method %q", label, sc.Request.Method))
		}
		if sc.Request.Path == "" {
			problems = append(problems, fmt.Sprintf("%s: request path is required", label))
		}
		if sc.Expect.Status < 100 || sc.Expect.Status > 599 {
			problems = append(problems, fmt.Sprintf("%s: expected status %d out of range", label, sc.Expect.Status))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid scenarios:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}
