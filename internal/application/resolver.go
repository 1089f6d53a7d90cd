package application

import (
	"fmt"
	"time"

	"ratehub/internal/domain"
)

// Resolver answers rate queries against a snapshot: identity, direct pair,
// inverse pair, then a single hop through the base currency.
type Resolver struct {
	Base string
}

func NewResolver(base string) Resolver { return Resolver{Base: domain.NormalizeCode(base)} }

func (r Resolver) Resolve(snap domain.RatesSnapshot, from, to string) (domain.ResolvedRate, error) {
	from, to = domain.NormalizeCode(from), domain.NormalizeCode(to)
	out := domain.ResolvedRate{From: from, To: to}

	if from == to {
		out.Rate, out.UpdatedAt = 1.0, snap.LastRefresh
		return out, nil
	}
	if rate, at, ok := leg(snap, from, to); ok {
		out.Rate, out.UpdatedAt = rate, at
		return out, nil
	}

	base := domain.NormalizeCode(r.Base)
	if base != "" {
		fromLeg, _, okFrom := leg(snap, from, base)
		toLeg, _, okTo := leg(snap, to, base)
		if okFrom && okTo {
			// 1 FROM = fromLeg BASE, 1 TO = toLeg BASE
			out.Rate, out.UpdatedAt = fromLeg/toLeg, snap.LastRefresh
			return out, nil
		}
	}
	return domain.ResolvedRate{}, fmt.Errorf("%w: %s", domain.ErrRateUnavailable, domain.NewPairKey(from, to))
}

// leg resolves from->to using only the direct or the inverse stored entry.
func leg(snap domain.RatesSnapshot, from, to string) (float64, time.Time, bool) {
	if from == to {
		return 1.0, snap.LastRefresh, true
	}
	k := domain.NewPairKey(from, to)
	if p, ok := snap.Lookup(k); ok && p.Rate > 0 {
		return p.Rate, p.UpdatedAt, true
	}
	if p, ok := snap.Lookup(k.Inverse()); ok && p.Rate > 0 {
		return 1 / p.Rate, p.UpdatedAt, true
	}
	return 0, time.Time{}, false
}
