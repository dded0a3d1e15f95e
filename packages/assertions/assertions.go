// Package assertions provides pure response expectation checks. Every
// helper returns a structured Result instead of panicking or returning
// an error, so callers can evaluate a whole expectation set and
// aggregate the outcomes.
package assertions

import (
	"fmt"
	"strings"

	"github.com/apiprobe/apiprobe/packages/http"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// Result is the outcome of one assertion.
type Result struct {
	Passed  bool
	Message string
}

func pass() Result {
	return Result{Passed: true}
}

func fail(format string, args ...any) Result {
	return Result{Passed: false, Message: fmt.Sprintf(format, args...)}
}

// Status passes iff the envelope status code matches exactly.
func Status(env *http.Envelope, expected int) Result {
	if env.StatusCode == expected {
		return pass()
	}
	return fail("expected status %d, got %d", expected, env.StatusCode)
}

// HasFields passes iff every named field is present in the JSON body and
// not null. Fields may be dotted gjson paths for nested lookups.
func HasFields(body []byte, fields []string) Result {
	if len(fields) == 0 {
		return pass()
	}

	if !gjson.ValidBytes(body) {
		return fail("response body is not valid JSON")
	}

	parsed := gjson.ParseBytes(body)

	var missing []string
	for _, field := range fields {
		value := parsed.Get(field)
		if !value.Exists() || value.Type == gjson.Null {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		return fail("missing or null fields: %s", strings.Join(missing, ", "))
	}
	return pass()
}

// BodyContains passes iff the raw body contains the substring.
func BodyContains(env *http.Envelope, substr string) Result {
	if strings.Contains(env.BodyString(), substr) {
		return pass()
	}
	return fail("expected body to contain %q", substr)
}

// MatchesSchema validates the JSON body against a JSON Schema document.
func MatchesSchema(body []byte, schema []byte) Result {
	schemaLoader := gojsonschema.NewBytesLoader(schema)
	documentLoader := gojsonschema.NewBytesLoader(body)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fail("schema validation error: %v", err)
	}

	if result.Valid() {
		return pass()
	}

	var errors []string
	for _, desc := range result.Errors() {
		errors = append(errors, desc.String())
	}
	return fail("schema validation failed: %s", strings.Join(errors, "; "))
}

// All folds a set of results into one, joining failure messages.
func All(results ...Result) Result {
	var messages []string
	for _, r := range results {
		if !r.Passed {
			messages = append(messages, r.Message)
		}
	}
	if len(messages) > 0 {
		return fail("%s", strings.Join(messages, "; "))
	}
	return pass()
}
