package http

import (
	"encoding/json"
	"strings"
	"time"
)

// Envelope is the normalized representation of an HTTP response.
type Envelope struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

func (e *Envelope) BodyString() string {
	return string(e.Body)
}

func (e *Envelope) BodyJSON() (any, error) {
	var result any
	if err := json.Unmarshal(e.Body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Envelope) Header(key string) string {
	for k, v := range e.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (e *Envelope) ContentType() string {
	return e.Header("Content-Type")
}

func (e *Envelope) IsJSON() bool {
	ct := e.ContentType()
	return strings.Contains(ct, "application/json")
}

func (e *Envelope) IsSuccess() bool {
	return e.StatusCode >= 200 && e.StatusCode < 300
}

func (e *Envelope) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

func (e *Envelope) IsServerError() bool {
	return e.StatusCode >= 500
}

func (e *Envelope) DurationMs() int64 {
	return e.Duration.Milliseconds()
}
