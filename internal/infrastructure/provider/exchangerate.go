package provider

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"ratehub/internal/application"
	"ratehub/internal/domain"
	"ratehub/internal/infrastructure/httpx"
)

const ExchangeRateName = "ExchangeRate-API"

var _ application.RateSource = (*ExchangeRateAPI)(nil)

// DefaultFiatFallback holds approximate USD prices (1 FIAT = x USD) used when
// the live API cannot be reached. Other bases are derived by division.
var DefaultFiatFallback = map[string]float64{
	"EUR": 1.08,
	"GBP": 1.27,
	"RUB": 0.011,
}

// ExchangeRateAPI reads the v6 latest endpoint rooted at Base and emits
// "{FIAT}_{BASE}" pairs. It never fails: missing credentials, API errors and
// transport errors all degrade to the fallback table.
type ExchangeRateAPI struct {
	BaseURL    string
	APIKey     string
	Base       string
	Currencies []string
	// Fallback is keyed by currency code and quoted against USD. Nil means
	// DefaultFiatFallback.
	Fallback map[string]float64
	Client   *httpx.Client
	Log      *zap.Logger
}

type latestResp struct {
	Result          string             `json:"result"`
	ErrorType       string             `json:"error-type"`
	BaseCode        string             `json:"base_code"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

func (p *ExchangeRateAPI) Name() string { return ExchangeRateName }

func (p *ExchangeRateAPI) FetchRates(ctx context.Context) (map[string]float64, error) {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	base := domain.NormalizeCode(p.Base)

	if p.APIKey == "" {
		log.Warn("exchangerate.missing_api_key")
		return p.fallback(log, base, "missing api key"), nil
	}
	endpoint, err := url.JoinPath(p.BaseURL, p.APIKey, "latest", base)
	if err != nil {
		log.Warn("exchangerate.invalid_url", zap.Error(err))
		return p.fallback(log, base, "invalid url"), nil
	}

	var body latestResp
	if err := getJSON(ctx, p.Client, ExchangeRateName, endpoint, nil, &body); err != nil {
		log.Warn("exchangerate.fetch_failed", zap.Error(err))
		return p.fallback(log, base, "request failed"), nil
	}
	if body.Result != "success" {
		log.Warn("exchangerate.api_error", zap.String("error_type", body.ErrorType))
		return p.fallback(log, base, "api error"), nil
	}
	if len(body.ConversionRates) == 0 {
		log.Warn("exchangerate.empty_rates")
		return p.fallback(log, base, "empty rates"), nil
	}

	out := map[string]float64{}
	for _, code := range p.Currencies {
		code = domain.NormalizeCode(code)
		if code == base {
			continue
		}
		r, ok := body.ConversionRates[code]
		if !ok || r <= 0 {
			log.Warn("exchangerate.rate_missing", zap.String("code", code))
			continue
		}
		// conversion_rates quote 1 BASE = r CODE
		out[string(domain.NewPairKey(code, base))] = 1 / r
	}
	log.Info("exchangerate.fetched", zap.Int("pairs", len(out)))
	return out, nil
}

// fallback quotes the USD table against base. A base other than USD is
// supported only when the table carries a price for it.
func (p *ExchangeRateAPI) fallback(log *zap.Logger, base, why string) map[string]float64 {
	out := map[string]float64{}
	table := p.Fallback
	if table == nil {
		table = DefaultFiatFallback
	}
	usdPrice := func(code string) (float64, bool) {
		if code == "USD" {
			return 1, true
		}
		v, ok := table[code]
		return v, ok && v > 0
	}
	basePrice, ok := usdPrice(base)
	if !ok {
		log.Error("exchangerate.fallback_unavailable", zap.String("base", base), zap.String("reason", why))
		return out
	}
	for _, code := range p.Currencies {
		code = domain.NormalizeCode(code)
		if code == base {
			continue
		}
		if v, ok := usdPrice(code); ok {
			out[string(domain.NewPairKey(code, base))] = v / basePrice
		}
	}
	log.Warn("exchangerate.using_fallback", zap.String("reason", why), zap.Int("pairs", len(out)))
	return out
}
