package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/muurk/gruenbeck-cloud/internal/diagnostics"
	"github.com/muurk/gruenbeck-cloud/internal/logging"
)

// DefaultTimeout is the default per-request timeout. Endpoints may carry
// their own (push negotiation allows two minutes).
const DefaultTimeout = 30 * time.Second

// Executor issues resolved Requests. It owns the cookie jar the login
// flow depends on and never follows redirects; the B2C flow reads
// redirect responses literally.
type Executor struct {
	mu          sync.Mutex
	withCookies *http.Client
	bare        *http.Client
	recorder    *diagnostics.Recorder
	timeout     time.Duration
}

// Response is the outcome of one executed request.
type Response struct {
	Name       string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// NewExecutor creates an executor. The recorder may be nil, in which case
// no diagnostics are kept.
func NewExecutor(recorder *diagnostics.Recorder) (*Executor, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, NewConfigurationError(fmt.Sprintf("failed to create cookie jar: %v", err))
	}

	noRedirect := func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Executor{
		withCookies: &http.Client{
			Jar:           jar,
			CheckRedirect: noRedirect,
		},
		bare: &http.Client{
			CheckRedirect: noRedirect,
		},
		recorder: recorder,
		timeout:  DefaultTimeout,
	}, nil
}

// SetTimeout overrides the default per-request timeout.
func (e *Executor) SetTimeout(timeout time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timeout = timeout
}

// ClearCookies resets the cookie jar. The login flow requires a clean jar
// before its first step; stale B2C cookies short-circuit the handshake.
func (e *Executor) ClearCookies() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return NewConfigurationError(fmt.Sprintf("failed to create cookie jar: %v", err))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.withCookies.Jar = jar
	return nil
}

// Do executes one resolved request and enforces its expected status set.
// Every exchange is recorded for diagnostics before the status check, so
// failures show up in exports too.
func (e *Executor) Do(ctx context.Context, req *Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		e.mu.Lock()
		timeout = e.timeout
		e.mu.Unlock()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if req.Form != nil {
		body = strings.NewReader(req.Form.Encode())
	} else if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, NewConfigurationError(fmt.Sprintf("endpoint %s: failed to build request: %v", req.Name, err))
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.Form != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	client := e.client(req.UseCookies)

	logging.LogRequest(req.Name, req.Method, diagnostics.Redact(req.URL))

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, NewConnectionError(req.Name, "request failed", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewConnectionError(req.Name, "failed to read response body", err)
	}

	if e.recorder != nil {
		e.recorder.Record(diagnostics.Entry{
			Time:     time.Now(),
			Endpoint: req.Name,
			Method:   req.Method,
			URL:      req.URL,
			Status:   httpResp.StatusCode,
			Body:     string(respBody),
		})
	}

	logging.LogResponse(req.Name, httpResp.StatusCode, len(respBody))

	if !statusAllowed(httpResp.StatusCode, req.ExpectStatus) {
		return nil, NewResponseStatusError(req.Name, httpResp.StatusCode,
			fmt.Sprintf("unexpected status %d (expected %v)", httpResp.StatusCode, req.ExpectStatus))
	}

	return &Response{
		Name:       req.Name,
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
	}, nil
}

// client picks the cookie-bearing or bare client. Token refresh runs
// without cookies so jar state cannot leak into the grant.
func (e *Executor) client(useCookies bool) *http.Client {
	e.mu.Lock()
	defer e.mu.Unlock()
	if useCookies {
		return e.withCookies
	}
	return e.bare
}

func statusAllowed(status int, expected []int) bool {
	for _, code := range expected {
		if status == code {
			return true
		}
	}
	return false
}

// JSON parses the response body into v. A body that does not parse is a
// response shape error carrying the endpoint name.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return NewResponseShapeError(r.Name, "failed to parse JSON response", err)
	}
	return nil
}

// Text returns the response body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// IsJSON reports whether the response declared a JSON content type.
func (r *Response) IsJSON() bool {
	return strings.Contains(r.Header.Get("Content-Type"), "json")
}
