package provider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"ratehub/internal/infrastructure/provider"
)

const sampleLatest = `{
  "result": "success",
  "base_code": "USD",
  "conversion_rates": {"USD": 1, "EUR": 0.8, "GBP": 0.5, "RUB": 100}
}`

func newExchangeRate(c *provider.ExchangeRateAPI) *provider.ExchangeRateAPI {
	c.BaseURL = "https://v6.exchangerate-api.com/v6"
	c.Base = "USD"
	c.Currencies = []string{"EUR", "GBP", "RUB"}
	return c
}

func TestExchangeRate_HappyPath(t *testing.T) {
	var seen string
	p := newExchangeRate(&provider.ExchangeRateAPI{APIKey: "k1", Client: httpClient(sampleLatest, 200, &seen)})

	got, err := p.FetchRates(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://v6.exchangerate-api.com/v6/k1/latest/USD", seen)
	require.Len(t, got, 3)
	require.InDelta(t, 1.25, got["EUR_USD"], 1e-12)
	require.InDelta(t, 2.0, got["GBP_USD"], 1e-12)
	require.InDelta(t, 0.01, got["RUB_USD"], 1e-12)
}

func TestExchangeRate_MissingKeyUsesFallback(t *testing.T) {
	p := newExchangeRate(&provider.ExchangeRateAPI{Client: failingClient(errors.New("must not be called"))})

	got, err := p.FetchRates(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]float64{"EUR_USD": 1.08, "GBP_USD": 1.27, "RUB_USD": 0.011}, got)
}

func TestExchangeRate_FailuresUseFallback(t *testing.T) {
	cases := map[string]*provider.ExchangeRateAPI{
		"api error": newExchangeRate(&provider.ExchangeRateAPI{APIKey: "bad",
			Client: httpClient(`{"result":"error","error-type":"invalid-key"}`, 200, nil)}),
		"status":    newExchangeRate(&provider.ExchangeRateAPI{APIKey: "k", Client: httpClient(`{}`, 403, nil)}),
		"transport": newExchangeRate(&provider.ExchangeRateAPI{APIKey: "k", Client: failingClient(errors.New("dial tcp"))}),
		"empty rates": newExchangeRate(&provider.ExchangeRateAPI{APIKey: "k",
			Client: httpClient(`{"result":"success","conversion_rates":{}}`, 200, nil)}),
		"missing rates": newExchangeRate(&provider.ExchangeRateAPI{APIKey: "k",
			Client: httpClient(`{"result":"success"}`, 200, nil)}),
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := p.FetchRates(context.Background())
			require.NoError(t, err)
			require.Len(t, got, 3)
			require.InDelta(t, 1.08, got["EUR_USD"], 1e-12)
		})
	}
}

func TestExchangeRate_CustomFallbackAndMissingCurrency(t *testing.T) {
	p := newExchangeRate(&provider.ExchangeRateAPI{Fallback: map[string]float64{"EUR": 1.1}})
	got, err := p.FetchRates(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]float64{"EUR_USD": 1.1}, got)

	p = newExchangeRate(&provider.ExchangeRateAPI{APIKey: "k",
		Client: httpClient(`{"result":"success","conversion_rates":{"EUR":0.8}}`, 200, nil)})
	got, err = p.FetchRates(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"EUR_USD"}, keys(got))
}

func TestExchangeRate_FallbackForNonUSDBase(t *testing.T) {
	p := &provider.ExchangeRateAPI{
		Base:       "EUR",
		Currencies: []string{"USD", "GBP", "EUR"},
		Fallback:   map[string]float64{"EUR": 1.25, "GBP": 1.5},
	}
	got, err := p.FetchRates(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.InDelta(t, 0.8, got["USD_EUR"], 1e-12)
	require.InDelta(t, 1.2, got["GBP_EUR"], 1e-12)

	p.Base = "JPY"
	got, err = p.FetchRates(context.Background())
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestStatic_ReturnsCopy(t *testing.T) {
	s := provider.NewStatic("", map[string]float64{"EUR_USD": 1.1})
	require.Equal(t, "static", s.Name())
	got, err := s.FetchRates(context.Background())
	require.NoError(t, err)
	got["EUR_USD"] = 9
	again, _ := s.FetchRates(context.Background())
	require.InDelta(t, 1.1, again["EUR_USD"], 1e-12)
}

func keys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
