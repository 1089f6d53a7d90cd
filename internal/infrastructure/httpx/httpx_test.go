package httpx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func httpClientRT(rt http.RoundTripper) *http.Client {
	return &http.Client{Transport: rt, Timeout: 2 * time.Second}
}

func resp(r *http.Request, code int, body string) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(body)), Header: make(http.Header), Request: r}
}

type okResp struct {
	OK bool `json:"ok"`
}

func TestDoJSON_Retry500Then200(t *testing.T) {
	var calls int
	hc := httpClientRT(rtFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return resp(r, 500, "err"), nil
		}
		return resp(r, 200, `{"ok": true}`), nil
	}))
	var out okResp
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c := &Client{HTTP: hc}
	require.NoError(t, c.DoJSON(ctx, req, &out))
	require.True(t, out.OK)
	require.GreaterOrEqual(t, calls, 2)
}

type tempTimeoutErr struct{}

func (tempTimeoutErr) Error() string   { return "timeout" }
func (tempTimeoutErr) Timeout() bool   { return true }
func (tempTimeoutErr) Temporary() bool { return true }

func TestDoJSON_RetryNetTimeoutThen200(t *testing.T) {
	var calls int
	hc := httpClientRT(rtFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			var ne net.Error = tempTimeoutErr{}
			return nil, ne
		}
		return resp(r, 200, `{"ok": true}`), nil
	}))
	var out okResp
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c := &Client{HTTP: hc}
	require.NoError(t, c.DoJSON(ctx, req, &out))
	require.True(t, out.OK)
}

func TestDoJSON_NoRetryOn400(t *testing.T) {
	var calls int
	hc := httpClientRT(rtFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return resp(r, 400, "bad"), nil
	}))
	var out any
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)

	c := &Client{HTTP: hc}
	err := c.DoJSON(context.Background(), req, &out)
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, 400, se.Code)
	require.Equal(t, 1, calls)
}

func TestDoJSON_DecodeError_NoRetry(t *testing.T) {
	var calls int
	hc := httpClientRT(rtFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewBufferString("{x")), Header: make(http.Header), Request: r}, nil
	}))
	var out map[string]any
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)

	c := &Client{HTTP: hc}
	err := c.DoJSON(context.Background(), req, &out)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	require.Equal(t, 1, calls)
}

func TestDoJSON_GivesUpAfterMaxElapsed(t *testing.T) {
	hc := httpClientRT(rtFunc(func(r *http.Request) (*http.Response, error) {
		return resp(r, 503, "down"), nil
	}))
	var out any
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)

	c := &Client{HTTP: hc, MaxElapsed: 300 * time.Millisecond}
	start := time.Now()
	err := c.DoJSON(context.Background(), req, &out)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, 503, se.Code)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestDoJSON_TimeoutBoundsRetries(t *testing.T) {
	var calls int
	hc := &http.Client{Timeout: 150 * time.Millisecond, Transport: rtFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			time.Sleep(50 * time.Millisecond)
			return resp(r, 503, "busy"), nil
		}
		<-r.Context().Done()
		return nil, r.Context().Err()
	})}
	c := &Client{HTTP: hc, MaxElapsed: 5 * time.Second}

	req, _ := http.NewRequest(http.MethodGet, "http://example.test/x", nil)
	start := time.Now()
	var out okResp
	err := c.DoJSON(context.Background(), req, &out)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 400*time.Millisecond)
}
