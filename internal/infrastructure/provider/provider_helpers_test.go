package provider_test

import (
	"io"
	"net/http"
	"strings"
	"time"

	"ratehub/internal/infrastructure/httpx"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// httpClient answers every request with body and code and records the last
// requested URL into seen when non-nil.
func httpClient(resBody string, code int, seen *string) *httpx.Client {
	return &httpx.Client{
		MaxElapsed: 200 * time.Millisecond,
		HTTP: &http.Client{
			Timeout: 2 * time.Second,
			Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
				if seen != nil {
					*seen = r.URL.String()
				}
				return &http.Response{
					StatusCode: code,
					Body:       io.NopCloser(strings.NewReader(resBody)),
					Header:     make(http.Header),
					Request:    r,
				}, nil
			}),
		},
	}
}

func failingClient(err error) *httpx.Client {
	return &httpx.Client{
		MaxElapsed: 200 * time.Millisecond,
		HTTP: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, err
		})},
	}
}
