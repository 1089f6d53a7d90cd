package provider

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"ratehub/internal/application"
	"ratehub/internal/domain"
	"ratehub/internal/infrastructure/httpx"
)

const CoinGeckoName = "CoinGecko"

var _ application.RateSource = (*CoinGecko)(nil)

// CoinGecko reads crypto prices from the simple/price endpoint and emits
// "{CRYPTO}_{BASE}" pairs.
type CoinGecko struct {
	BaseURL    string
	Base       string
	Currencies []string
	// IDs maps a currency code to the CoinGecko asset id.
	IDs    map[string]string
	Client *httpx.Client
	Log    *zap.Logger
}

func (c *CoinGecko) Name() string { return CoinGeckoName }

func (c *CoinGecko) FetchRates(ctx context.Context) (map[string]float64, error) {
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}
	out := map[string]float64{}
	base := domain.NormalizeCode(c.Base)
	vs := strings.ToLower(base)

	codeByID := map[string]string{}
	ids := make([]string, 0, len(c.Currencies))
	for _, code := range c.Currencies {
		code = domain.NormalizeCode(code)
		id, ok := c.IDs[code]
		if !ok || id == "" {
			log.Warn("coingecko.unmapped_currency", zap.String("code", code))
			continue
		}
		codeByID[id] = code
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		log.Warn("coingecko.no_assets")
		return out, nil
	}

	var body map[string]map[string]float64
	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", vs)
	if err := getJSON(ctx, c.Client, CoinGeckoName, c.BaseURL, params, &body); err != nil {
		log.Warn("coingecko.fetch_failed", zap.Error(err))
		return out, nil
	}

	for _, id := range ids {
		price, ok := body[id][vs]
		if !ok || price <= 0 {
			log.Warn("coingecko.price_missing", zap.String("asset", id))
			continue
		}
		out[string(domain.NewPairKey(codeByID[id], base))] = price
	}
	log.Info("coingecko.fetched", zap.Int("pairs", len(out)))
	return out, nil
}
