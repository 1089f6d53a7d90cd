package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ratehub/internal/domain"
)

// Conversion is the result of converting an amount between two currencies.
type Conversion struct {
	From      string
	To        string
	Amount    decimal.Decimal
	Result    decimal.Decimal
	Rate      float64
	UpdatedAt time.Time
	Stale     bool
}

// RatesService is the read/refresh facade used by the outer surfaces.
type RatesService struct {
	refresher Refresher
	store     SnapshotStore
	history   HistoryReader
	registry  *domain.Registry
	resolver  Resolver
	ttl       time.Duration
	clock     Clock
	log       *zap.Logger
}

type Option func(*RatesService)

func WithClock(c Clock) Option                 { return func(s *RatesService) { s.clock = c } }
func WithLogger(l *zap.Logger) Option          { return func(s *RatesService) { s.log = l } }
func WithTTL(d time.Duration) Option           { return func(s *RatesService) { s.ttl = d } }
func WithHistoryReader(h HistoryReader) Option { return func(s *RatesService) { s.history = h } }
func WithRegistry(r *domain.Registry) Option   { return func(s *RatesService) { s.registry = r } }

func NewRatesService(refresher Refresher, store SnapshotStore, resolver Resolver, opts ...Option) *RatesService {
	s := &RatesService{refresher: refresher, store: store, resolver: resolver}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Refresh runs one update synchronously.
func (s *RatesService) Refresh(ctx context.Context) (UpdateReport, error) {
	s.log.Info("rates.refresh_requested")
	rep, err := s.refresher.RunUpdate(ctx)
	if err != nil {
		s.log.Warn("rates.refresh_failed", zap.String("update_id", rep.ID), zap.Error(err))
		return rep, err
	}
	s.log.Info("rates.refresh_done", zap.String("update_id", rep.ID), zap.Int("pairs", rep.Pairs))
	return rep, nil
}

func (s *RatesService) GetRate(ctx context.Context, from, to string) (domain.ResolvedRate, error) {
	f, t, err := s.validatePair(from, to)
	if err != nil {
		return domain.ResolvedRate{}, err
	}
	snap, err := s.store.ReadSnapshot(ctx)
	if err != nil {
		return domain.ResolvedRate{}, fmt.Errorf("rates: read snapshot: %w", err)
	}
	if f != t && snap.IsEmpty() {
		return domain.ResolvedRate{}, ErrRatesNotLoaded
	}
	rr, err := s.resolver.Resolve(snap, f, t)
	if err != nil {
		s.log.Debug("rates.resolve_failed", zap.String("from", f), zap.String("to", t), zap.Error(err))
		return domain.ResolvedRate{}, err
	}
	rr.Stale = s.ttl > 0 && !snap.LastRefresh.IsZero() && s.clock.Now().Sub(snap.LastRefresh) > s.ttl
	return rr, nil
}

// Convert multiplies amount by the resolved rate, rounded to 8 places.
func (s *RatesService) Convert(ctx context.Context, from, to string, amount decimal.Decimal) (Conversion, error) {
	if amount.Sign() <= 0 {
		return Conversion{}, ErrInvalidAmount
	}
	rr, err := s.GetRate(ctx, from, to)
	if err != nil {
		return Conversion{}, err
	}
	return Conversion{
		From:      rr.From,
		To:        rr.To,
		Amount:    amount,
		Result:    amount.Mul(decimal.NewFromFloat(rr.Rate)).Round(8),
		Rate:      rr.Rate,
		UpdatedAt: rr.UpdatedAt,
		Stale:     rr.Stale,
	}, nil
}

func (s *RatesService) Snapshot(ctx context.Context) (domain.RatesSnapshot, error) {
	return s.store.ReadSnapshot(ctx)
}

func (s *RatesService) History(ctx context.Context, from, to string, limit int) ([]domain.HistoricalRecord, error) {
	f, t, err := s.validatePair(from, to)
	if err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.HistoricalRecord{}, nil
	}
	return s.history.ListHistory(ctx, f, t, limit)
}

func (s *RatesService) Currencies() []domain.Currency {
	if s.registry == nil {
		return []domain.Currency{}
	}
	return s.registry.All()
}

func (s *RatesService) validatePair(from, to string) (string, string, error) {
	f, err := domain.ValidateCode(from)
	if err != nil {
		return "", "", err
	}
	t, err := domain.ValidateCode(to)
	if err != nil {
		return "", "", err
	}
	if s.registry != nil {
		if _, err := s.registry.Lookup(f); err != nil {
			return "", "", err
		}
		if _, err := s.registry.Lookup(t); err != nil {
			return "", "", err
		}
	}
	return f, t, nil
}
