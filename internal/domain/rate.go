package domain

import "time"

// PairRate is the snapshot entry for one pair key: 1 FROM = Rate TO.
type PairRate struct {
	Rate      float64   `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
	Source    string    `json:"source"`
}

// RatesSnapshot is the latest known state of all pairs. It is replaced as a
// whole on every successful update.
type RatesSnapshot struct {
	Pairs       map[PairKey]PairRate `json:"pairs"`
	LastRefresh time.Time            `json:"last_refresh"`
}

func (s RatesSnapshot) IsEmpty() bool { return len(s.Pairs) == 0 }

func (s RatesSnapshot) Lookup(k PairKey) (PairRate, bool) {
	p, ok := s.Pairs[k]
	return p, ok
}

// RatePair is a directed observation as produced by an update run.
type RatePair struct {
	From      string
	To        string
	Rate      float64
	UpdatedAt time.Time
	Source    string
}

// ResolvedRate answers a rate query.
type ResolvedRate struct {
	From      string
	To        string
	Rate      float64
	UpdatedAt time.Time
	Stale     bool
}
