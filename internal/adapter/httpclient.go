package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
)

// userAgent is sent with every outbound integration request.
const userAgent = "qlty REST client"

// ClientFunc customises an HTTPClient.
type ClientFunc func(*HTTPClient)

// RequestFunc customises a single request.
type RequestFunc func(*resty.Request)

// HTTPClient wraps resty with JSON defaults and typed errors.
type HTTPClient struct {
	*resty.Client
}

// NewHTTPClient creates a JSON client.
func NewHTTPClient(cfs ...ClientFunc) *HTTPClient {
	r := resty.New()
	r.SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)

	c := &HTTPClient{Client: r}
	for _, cf := range cfs {
		cf(c)
	}

	return c
}

// WithBaseURL sets the URL every request path is resolved against.
func WithBaseURL(url string) ClientFunc {
	return func(c *HTTPClient) {
		c.SetBaseURL(url)
	}
}

// WithBasicAuth sets basic credentials on every request.
func WithBasicAuth(user, password string) ClientFunc {
	return func(c *HTTPClient) {
		c.SetBasicAuth(user, password)
	}
}

// WithBearerToken sets an Authorization bearer token on every request.
func WithBearerToken(token string) ClientFunc {
	return func(c *HTTPClient) {
		c.SetAuthToken(token)
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) ClientFunc {
	return func(c *HTTPClient) {
		if d > 0 {
			c.SetTimeout(d)
		}
	}
}

// WithBody sets the request payload.
func WithBody(body interface{}) RequestFunc {
	return func(r *resty.Request) {
		r.SetBody(body)
	}
}

// WithResult decodes a successful response into out.
func WithResult(out interface{}) RequestFunc {
	return func(r *resty.Request) {
		r.SetResult(out)
	}
}

// WithPathParam fills a {name} placeholder in the request path.
func WithPathParam(name, value string) RequestFunc {
	return func(r *resty.Request) {
		r.SetPathParam(name, value)
	}
}

// Request executes method against url and converts HTTP error statuses into *HTTPError.
func (c *HTTPClient) Request(ctx context.Context, method, url string, rfs ...RequestFunc) (*resty.Response, error) {
	r := c.R().SetContext(ctx)
	for _, rf := range rfs {
		rf(r)
	}

	res, err := r.Execute(method, url)

	return wrapHTTPError(method, url, res, err)
}

// Get is a shortcut for Request with GET.
func (c *HTTPClient) Get(ctx context.Context, url string, rfs ...RequestFunc) (*resty.Response, error) {
	return c.Request(ctx, resty.MethodGet, url, rfs...)
}

// Post is a shortcut for Request with POST.
func (c *HTTPClient) Post(ctx context.Context, url string, rfs ...RequestFunc) (*resty.Response, error) {
	return c.Request(ctx, resty.MethodPost, url, rfs...)
}

// Put is a shortcut for Request with PUT.
func (c *HTTPClient) Put(ctx context.Context, url string, rfs ...RequestFunc) (*resty.Response, error) {
	return c.Request(ctx, resty.MethodPut, url, rfs...)
}

// Delete is a shortcut for Request with DELETE.
func (c *HTTPClient) Delete(ctx context.Context, url string, rfs ...RequestFunc) (*resty.Response, error) {
	return c.Request(ctx, resty.MethodDelete, url, rfs...)
}

func wrapHTTPError(method, url string, res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}

	if res.IsError() {
		return res, &HTTPError{
			Method: method,
			URL:    url,
			Code:   res.StatusCode(),
			Status: res.Status(),
			Detail: string(res.Body()),
		}
	}

	return res, nil
}

// HTTPError is returned when a server answers with a 4xx or 5xx status.
type HTTPError struct {
	Method string
	URL    string
	Code   int
	Status string
	Detail string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: [%d] %s", e.Method, e.URL, e.Code, e.Detail)
}

// Temporary reports whether retrying the request may succeed.
func (e *HTTPError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code == http.StatusRequestTimeout || e.Code >= http.StatusInternalServerError
}

// temporary is implemented by typed sink errors that know whether a retry can help.
type temporary interface {
	Temporary() bool
}

// IsTemporary reports whether err is worth retrying. HTTP errors decide by
// status code, transport failures and timeouts are retried, anything else is
// permanent unless it implements Temporary itself.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Temporary()
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}

	return false
}
