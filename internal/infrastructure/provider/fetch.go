package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"ratehub/internal/infrastructure/httpx"
)

// FetchError is the transport failure of a single source.
type FetchError struct {
	Source string
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Source, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// getJSON issues a GET against rawURL with params and decodes the body into
// out. Every failure is returned as *FetchError.
func getJSON(ctx context.Context, c *httpx.Client, source, rawURL string, params url.Values, out any) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return &FetchError{Source: source, Reason: "invalid url", Err: err}
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &FetchError{Source: source, Reason: "create request", Err: err}
	}
	if c == nil {
		c = &httpx.Client{}
	}
	if err := c.DoJSON(ctx, req, out); err != nil {
		return &FetchError{Source: source, Reason: reason(err), Err: err}
	}
	return nil
}

func reason(err error) string {
	var se *httpx.StatusError
	var de *httpx.DecodeError
	var ne net.Error
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("http status %d", se.Code)
	case errors.As(err, &de):
		return "malformed response"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "request failed"
	}
}
