package http

import (
	"net/url"
	"time"
)

// Request describes a single call. Path may be relative to the client's
// base URL or a fully qualified http(s) URL.
type Request struct {
	Method      string
	Path        string
	Headers     map[string]string
	Body        string
	QueryParams map[string]string
	Timeout     time.Duration
}

func NewRequest(method, path string) *Request {
	return &Request{
		Method:      method,
		Path:        path,
		Headers:     make(map[string]string),
		QueryParams: make(map[string]string),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) SetBody(body string) *Request {
	r.Body = body
	return r
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

func (r *Request) SetQueryParam(key, value string) *Request {
	r.QueryParams[key] = value
	return r
}

// BuildPath appends the query parameters to the request path.
func (r *Request) BuildPath() string {
	if len(r.QueryParams) == 0 {
		return r.Path
	}

	u, err := url.Parse(r.Path)
	if err != nil {
		return r.Path
	}

	q := u.Query()
	for k, v := range r.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
