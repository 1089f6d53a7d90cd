package provider

import (
	"context"

	"ratehub/internal/application"
)

var _ application.RateSource = (*Static)(nil)

// DefaultStaticRates is a development table quoted against USD.
var DefaultStaticRates = map[string]float64{
	"BTC_USD": 60000,
	"ETH_USD": 3000,
	"SOL_USD": 150,
	"EUR_USD": 1.08,
	"GBP_USD": 1.27,
	"RUB_USD": 0.011,
}

// Static serves a fixed table; used for local runs without network access.
type Static struct {
	name  string
	rates map[string]float64
}

func NewStatic(name string, rates map[string]float64) *Static {
	if name == "" {
		name = "static"
	}
	cp := make(map[string]float64, len(rates))
	for k, v := range rates {
		cp[k] = v
	}
	return &Static{name: name, rates: cp}
}

func (s *Static) Name() string { return s.name }

func (s *Static) FetchRates(context.Context) (map[string]float64, error) {
	out := make(map[string]float64, len(s.rates))
	for k, v := range s.rates {
		out[k] = v
	}
	return out, nil
}
