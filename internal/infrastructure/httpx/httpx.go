package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// StatusError is returned for non-200 responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("status %d", e.Code) }

// DecodeError wraps a malformed response body.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// Client performs JSON GETs with bounded exponential retry on transport
// errors and 5xx responses. HTTP.Timeout bounds the whole call, retries
// included.
type Client struct {
	HTTP  *http.Client
	Token string
	Log   *zap.Logger

	// MaxElapsed caps the total retry window. Zero means 3s.
	MaxElapsed time.Duration
}

func New(timeout time.Duration, log *zap.Logger) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}, Log: log}
}

func (c *Client) DoJSON(ctx context.Context, req *http.Request, out any) error {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	req.Header.Set("Accept", "application/json")
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}
	if hc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, hc.Timeout)
		defer cancel()
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 1 * time.Second
	exp.MaxElapsedTime = 3 * time.Second
	if c.MaxElapsed > 0 {
		exp.MaxElapsedTime = c.MaxElapsed
	}

	op := func() error {
		resp, err := hc.Do(req.WithContext(ctx))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return &StatusError{Code: resp.StatusCode}
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(&StatusError{Code: resp.StatusCode})
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(&DecodeError{Err: err})
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Debug("httpx.retry", zap.String("host", req.URL.Host), zap.Duration("wait", wait), zap.Error(err))
	}
	return backoff.RetryNotify(op, backoff.WithContext(exp, ctx), notify)
}
