package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"ratehub/internal/application"
)

func setup(opts ...ServerOption) (http.Handler, *fakeRates) {
	f := newFakeRates()
	return NewRouter(NewServer(f, opts...)), f
}

func do(h http.Handler, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h, _ := setup()
	rec := do(h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
}

func TestReadyz_FailingCheck(t *testing.T) {
	f := newFakeRates()
	srv := NewServer(f)
	srv.SetReadyCheck(func(context.Context) error { return errors.New("no snapshot") })
	rec := do(NewRouter(srv), http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"code":503,"message":"rates not ready"}`, rec.Body.String())
}

func TestGetRate(t *testing.T) {
	h, _ := setup()

	rec := do(h, http.MethodGet, "/rates/usd/eur", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body rateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "USD", body.From)
	require.InDelta(t, 0.8, body.Rate, 1e-12)

	rec = do(h, http.MethodGet, "/rates/BTC/EUR", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.InDelta(t, 48000, body.Rate, 1e-6)
	require.True(t, refreshedAt.Equal(body.UpdatedAt))
}

func TestGetRate_ErrorMapping(t *testing.T) {
	h, f := setup()
	cases := []struct {
		path string
		code int
		msg  string
	}{
		{"/rates/U$D/EUR", http.StatusBadRequest, "invalid currency code"},
		{"/rates/ZZZ/USD", http.StatusNotFound, "unknown currency"},
		{"/rates/GBP/USD", http.StatusNotFound, "unknown pair"},
	}
	for _, c := range cases {
		rec := do(h, http.MethodGet, c.path, nil)
		require.Equal(t, c.code, rec.Code, c.path)
		var e errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
		require.Equal(t, c.msg, e.Message, c.path)
	}

	f.snap.Pairs = nil
	rec := do(h, http.MethodGet, "/rates/EUR/USD", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSnapshotAndCurrencies(t *testing.T) {
	h, _ := setup()

	rec := do(h, http.MethodGet, "/rates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap struct {
		Pairs map[string]struct {
			Rate   float64 `json:"rate"`
			Source string  `json:"source"`
		} `json:"pairs"`
		LastRefresh string `json:"last_refresh"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, "CoinGecko", snap.Pairs["BTC_USD"].Source)
	require.Equal(t, "2025-01-01T12:00:00Z", snap.LastRefresh)

	rec = do(h, http.MethodGet, "/currencies", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cs []currencyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cs))
	require.Len(t, cs, 7)
}

func TestConvert(t *testing.T) {
	h, _ := setup()

	rec := do(h, http.MethodGet, "/convert?from=EUR&to=USD&amount=10.5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var c conversionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	require.Equal(t, "13.12500000", c.Result)

	for _, target := range []string{
		"/convert?from=EUR&to=USD",
		"/convert?from=EUR&to=USD&amount=ten",
		"/convert?from=EUR&to=USD&amount=-1",
		"/convert?from=E&to=USD&amount=1",
	} {
		rec := do(h, http.MethodGet, target, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestHistory(t *testing.T) {
	h, f := setup()

	rec := do(h, http.MethodGet, "/rates/EUR/USD/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 100, f.lastLimit)
	require.Contains(t, rec.Body.String(), `"id":"EUR_USD_2025-01-01T12:00:00Z"`)

	rec = do(h, http.MethodGet, "/rates/EUR/USD/history?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 5, f.lastLimit)

	rec = do(h, http.MethodGet, "/rates/EUR/USD/history?limit=0", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefresh_Idempotency(t *testing.T) {
	h, f := setup(WithRefreshGuard(&fakeGuard{}))

	rec := do(h, http.MethodPost, "/rates/refresh", map[string]string{"X-Idempotency-Key": "k1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var body refreshResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "u-1", body.UpdateID)

	rec = do(h, http.MethodPost, "/rates/refresh", map[string]string{"X-Idempotency-Key": "k1"})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, 1, f.refreshes)

	rec = do(h, http.MethodPost, "/rates/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, f.refreshes)
}

func TestRefresh_Failures(t *testing.T) {
	h, f := setup()

	f.refreshErr = application.ErrNoRatesFetched
	rec := do(h, http.MethodPost, "/rates/refresh", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"code":503,"message":"temporarily unavailable, retry later"}`, rec.Body.String())

	f.refreshErr = errors.New("disk full")
	rec = do(h, http.MethodPost, "/rates/refresh", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRefresh_FailureReleasesKey(t *testing.T) {
	g := &fakeGuard{}
	h, f := setup(WithRefreshGuard(g))
	hdr := map[string]string{"X-Idempotency-Key": "k2"}

	f.refreshErr = application.ErrNoRatesFetched
	rec := do(h, http.MethodPost, "/rates/refresh", hdr)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, []string{"k2"}, g.released)

	f.refreshErr = nil
	rec = do(h, http.MethodPost, "/rates/refresh", hdr)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, f.refreshes)
}

func TestRecovererAndNotFound(t *testing.T) {
	h, f := setup()
	f.panicOn = "EUR"

	rec := do(h, http.MethodGet, "/rates/EUR/USD", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(h, http.MethodGet, "/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS(t *testing.T) {
	h, _ := setup(WithCORSOrigins([]string{"https://wallet.example"}))
	rec := do(h, http.MethodOptions, "/rates", map[string]string{
		"Origin":                        "https://wallet.example",
		"Access-Control-Request-Method": http.MethodGet,
	})
	require.Equal(t, "https://wallet.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsRoute(t *testing.T) {
	h, _ := setup(WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("rates_update_runs_total 1"))
	})))
	rec := do(h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "rates_update_runs_total")
}
