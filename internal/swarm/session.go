package swarm

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/wesleyorama2/taskswarm/internal/metrics"
)

// Request represents an HTTP request issued by a virtual user.
type Request struct {
	Method      string
	Path        string
	Name        string
	QueryParams url.Values
	Headers     map[string]string
	Body        interface{}
}

// NewRequest creates a new request.
func NewRequest(method, path string) *Request {
	return &Request{
		Method:      method,
		Path:        path,
		QueryParams: make(url.Values),
		Headers:     make(map[string]string),
	}
}

// Named sets the logical name statistics are grouped under.
// Without it the path is used.
func (r *Request) Named(name string) *Request {
	r.Name = name
	return r
}

// WithQueryParams adds multiple query parameters to the request
func (r *Request) WithQueryParams(params map[string]string) *Request {
	for key, value := range params {
		r.QueryParams.Add(key, value)
	}
	return r
}

// WithBody sets the body of the request; non-string values are sent as JSON.
func (r *Request) WithBody(body interface{}) *Request {
	r.Body = body
	return r
}

func (r *Request) statName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Path
}

// build constructs an http.Request against host.
func (r *Request) build(ctx context.Context, host string) (*http.Request, error) {
	reqURL, err := url.Parse(host)
	if err != nil {
		return nil, err
	}

	if reqURL.Path == "" {
		reqURL.Path = r.Path
	} else {
		reqURL.Path = strings.TrimRight(reqURL.Path, "/") + "/" + strings.TrimLeft(r.Path, "/")
	}

	query := reqURL.Query()
	for key, values := range r.QueryParams {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	reqURL.RawQuery = query.Encode()

	var bodyReader io.Reader
	if r.Body != nil {
		switch body := r.Body.(type) {
		case string:
			bodyReader = strings.NewReader(body)
		case []byte:
			bodyReader = bytes.NewReader(body)
		default:
			jsonBody, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			bodyReader = bytes.NewReader(jsonBody)
			if _, ok := r.Headers["Content-Type"]; !ok {
				r.Headers["Content-Type"] = "application/json"
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, reqURL.String(), bodyReader)
	if err != nil {
		return nil, err
	}
	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}
	return req, nil
}

// Transports holds the connection pools shared by every session of a run:
// one verifying TLS certificates and one that does not.
type Transports struct {
	verify   *http.Transport
	insecure *http.Transport
}

// NewTransports creates both pools with load-testing friendly limits.
func NewTransports() *Transports {
	mk := func(skipVerify bool) *http.Transport {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.MaxIdleConns = 1000
		t.MaxIdleConnsPerHost = 100
		t.IdleConnTimeout = 90 * time.Second
		if skipVerify {
			t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		return t
	}
	return &Transports{verify: mk(false), insecure: mk(true)}
}

func (t *Transports) pick(skipVerify bool) *http.Transport {
	if skipVerify {
		return t.insecure
	}
	return t.verify
}

// CloseIdleConnections closes idle connections in both pools.
func (t *Transports) CloseIdleConnections() {
	t.verify.CloseIdleConnections()
	t.insecure.CloseIdleConnections()
}

// reporter receives the outcome of every response exactly once.
type reporter func(resp *Response, failure string)

// Session is a virtual user's HTTP client bound to the target host.
//
// Each user owns its session; settings changed in a profile's start hook
// only affect that user.
type Session struct {
	host       string
	transports *Transports
	client     *http.Client
	skipVerify bool
	report     reporter
}

// NewSession creates a session against host. Responses are recorded in m
// and failures are passed to hooks; both may be nil.
func NewSession(host string, transports *Transports, timeout time.Duration, m *metrics.Engine, hooks *Hooks) *Session {
	return newSession(host, transports, timeout, recorder(m, hooks))
}

func newSession(host string, transports *Transports, timeout time.Duration, report reporter) *Session {
	return &Session{
		host:       host,
		transports: transports,
		client: &http.Client{
			Transport: transports.pick(false),
			Timeout:   timeout,
		},
		report: report,
	}
}

// Host returns the base URL requests are sent to.
func (s *Session) Host() string {
	return s.host
}

// SetTimeout sets the per-request timeout.
func (s *Session) SetTimeout(d time.Duration) {
	s.client.Timeout = d
}

// Timeout returns the per-request timeout.
func (s *Session) Timeout() time.Duration {
	return s.client.Timeout
}

// SetInsecureSkipVerify toggles TLS certificate verification.
func (s *Session) SetInsecureSkipVerify(skip bool) {
	s.skipVerify = skip
	s.client.Transport = s.transports.pick(skip)
}

// InsecureSkipVerify reports whether certificate verification is disabled.
func (s *Session) InsecureSkipVerify() bool {
	return s.skipVerify
}

// Do sends req and returns the response with its body fully read.
//
// Do never returns nil. Transport errors are carried in Response.Err. The
// caller must Close the response; a response that was not explicitly
// marked with Success or Failure is classified by DefaultFailure on Close.
func (s *Session) Do(ctx context.Context, req *Request) *Response {
	resp := &Response{
		Method: req.Method,
		Name:   req.statName(),
		report: s.report,
	}

	start := time.Now()
	httpReq, err := req.build(ctx, s.host)
	if err != nil {
		resp.Err = fmt.Errorf("build request: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	httpResp, err := s.client.Do(httpReq)
	if err != nil {
		resp.Err = err
		resp.Duration = time.Since(start)
		resp.interrupted = ctx.Err() != nil && errors.Is(err, ctx.Err())
		return resp
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	resp.Duration = time.Since(start)
	resp.StatusCode = httpResp.StatusCode
	resp.Header = httpResp.Header
	resp.Body = body
	if err != nil {
		resp.Err = fmt.Errorf("read response body: %w", err)
	}
	return resp
}

// Response is the outcome of one request.
type Response struct {
	Method     string
	Name       string
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
	Err        error

	// interrupted responses were cut short by a hard stop and are not reported
	interrupted bool

	once   sync.Once
	report reporter
}

// Success marks the response as successful regardless of status.
func (r *Response) Success() {
	r.finish("")
}

// Failure marks the response as failed with msg. Transport errors are
// appended to msg.
func (r *Response) Failure(msg string) {
	if r.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, r.Err)
	}
	if msg == "" {
		msg = "failed"
	}
	r.finish(msg)
}

// Close reports the response with the default policy if it was not marked.
func (r *Response) Close() {
	r.finish(DefaultFailure(r))
}

// DefaultFailure classifies an unmarked response: transport errors and
// statuses >= 400 are failures. It returns the failure message, or "" on
// success.
func DefaultFailure(r *Response) string {
	if r.Err != nil {
		return r.Err.Error()
	}
	if r.StatusCode >= 400 {
		return fmt.Sprintf("HTTP %d", r.StatusCode)
	}
	return ""
}

func (r *Response) finish(failure string) {
	r.once.Do(func() {
		if r.interrupted || r.report == nil {
			return
		}
		r.report(r, failure)
	})
}

// recorder turns responses into metrics samples and failure events.
func recorder(m *metrics.Engine, hooks *Hooks) reporter {
	return func(resp *Response, failure string) {
		if m != nil {
			m.Record(resp.Method, resp.Name, resp.Duration, int64(len(resp.Body)), failure)
		}
		if failure != "" {
			hooks.fireRequestFailure(RequestFailure{
				Method:     resp.Method,
				Name:       resp.Name,
				StatusCode: resp.StatusCode,
				Duration:   resp.Duration,
				Message:    failure,
			})
		}
	}
}
