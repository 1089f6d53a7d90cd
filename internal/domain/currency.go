package domain

import (
	"fmt"
	"sort"
	"sync"
)

type CurrencyKind string

const (
	KindFiat   CurrencyKind = "fiat"
	KindCrypto CurrencyKind = "crypto"
)

type Currency struct {
	Code   string
	Name   string
	Kind   CurrencyKind
	Detail string // issuing country for fiat, hashing algorithm for crypto
}

// Registry holds the currencies the engine knows about. It is safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]Currency
}

func NewRegistry(cs ...Currency) *Registry {
	r := &Registry{byKey: map[string]Currency{}}
	for _, c := range cs {
		_ = r.Register(c)
	}
	return r
}

// DefaultRegistry returns a registry seeded with the currencies the wallet
// ships with.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Currency{Code: "USD", Name: "US Dollar", Kind: KindFiat, Detail: "United States"},
		Currency{Code: "EUR", Name: "Euro", Kind: KindFiat, Detail: "Eurozone"},
		Currency{Code: "GBP", Name: "Pound Sterling", Kind: KindFiat, Detail: "United Kingdom"},
		Currency{Code: "RUB", Name: "Russian Ruble", Kind: KindFiat, Detail: "Russia"},
		Currency{Code: "BTC", Name: "Bitcoin", Kind: KindCrypto, Detail: "SHA-256"},
		Currency{Code: "ETH", Name: "Ethereum", Kind: KindCrypto, Detail: "Ethash"},
		Currency{Code: "SOL", Name: "Solana", Kind: KindCrypto, Detail: "Proof of History"},
	)
}

func (r *Registry) Register(c Currency) error {
	code, err := ValidateCode(c.Code)
	if err != nil {
		return err
	}
	c.Code = code
	if c.Name == "" {
		c.Name = code
	}
	r.mu.Lock()
	r.byKey[code] = c
	r.mu.Unlock()
	return nil
}

// EnsureCode registers code with minimal metadata unless it is already known.
func (r *Registry) EnsureCode(code string, kind CurrencyKind) error {
	c, err := ValidateCode(code)
	if err != nil {
		return err
	}
	r.mu.RLock()
	_, ok := r.byKey[c]
	r.mu.RUnlock()
	if ok {
		return nil
	}
	return r.Register(Currency{Code: c, Kind: kind})
}

func (r *Registry) Lookup(code string) (Currency, error) {
	c, err := ValidateCode(code)
	if err != nil {
		return Currency{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	cur, ok := r.byKey[c]
	if !ok {
		return Currency{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, c)
	}
	return cur, nil
}

// All returns every registered currency ordered by code.
func (r *Registry) All() []Currency {
	r.mu.RLock()
	out := make([]Currency, 0, len(r.byKey))
	for _, c := range r.byKey {
		out = append(out, c)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
