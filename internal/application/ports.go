package application

import (
	"context"

	"ratehub/internal/domain"
)

// RateSource fetches rates from one external provider, keyed "{FROM}_{TO}".
// Expected failures (network, configuration, malformed payloads) are handled
// inside the source: it returns an empty map or a fallback table and a nil
// error. A non-nil error is treated by the Updater as an empty result.
type RateSource interface {
	Name() string
	FetchRates(ctx context.Context) (map[string]float64, error)
}

type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap domain.RatesSnapshot) error
	// ReadSnapshot returns an empty snapshot, not an error, when nothing has
	// been saved yet or the stored data cannot be parsed.
	ReadSnapshot(ctx context.Context) (domain.RatesSnapshot, error)
}

type HistoryStore interface {
	AppendHistory(ctx context.Context, rec domain.HistoricalRecord) error
}

type HistoryReader interface {
	// ListHistory returns records for the pair, newest first. limit <= 0 means all.
	ListHistory(ctx context.Context, from, to string, limit int) ([]domain.HistoricalRecord, error)
}

// RateStore is the durable home of the snapshot and the history log.
type RateStore interface {
	SnapshotStore
	HistoryStore
}

type UpdateNotifier interface {
	NotifyUpdated(ctx context.Context, snap domain.RatesSnapshot) error
}

type UpdateObserver interface {
	ObserveUpdate(r UpdateReport)
}

// Refresher runs one update cycle on demand.
type Refresher interface {
	RunUpdate(ctx context.Context) (UpdateReport, error)
}

// RefreshGuard deduplicates manual refresh requests by client key. A key is
// held from a successful Reserve until Release or its TTL.
type RefreshGuard interface {
	Reserve(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// UnitOfWork groups the history mirror writes of one update run.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Worker drives a Refresher in the background. Start must not block.
type Worker interface {
	Start(ctx context.Context)
	Stop()
}
