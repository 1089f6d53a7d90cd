package httpserver

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ratehub/internal/application"
	"ratehub/internal/domain"
)

var _ RatesAPI = (*fakeRates)(nil)

var refreshedAt = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeRates struct {
	snap       domain.RatesSnapshot
	refreshErr error
	refreshes  int
	panicOn    string
	lastLimit  int
}

func newFakeRates() *fakeRates {
	return &fakeRates{snap: domain.RatesSnapshot{
		Pairs: map[domain.PairKey]domain.PairRate{
			"BTC_USD": {Rate: 60000, UpdatedAt: refreshedAt, Source: "CoinGecko"},
			"EUR_USD": {Rate: 1.25, UpdatedAt: refreshedAt, Source: "ExchangeRate-API"},
		},
		LastRefresh: refreshedAt,
	}}
}

func (f *fakeRates) Refresh(context.Context) (application.UpdateReport, error) {
	f.refreshes++
	if f.refreshErr != nil {
		return application.UpdateReport{ID: "u-fail"}, f.refreshErr
	}
	return application.UpdateReport{ID: "u-1", Success: true, SuccessfulSources: 2, TotalRates: 2, Pairs: 2}, nil
}

func (f *fakeRates) svc() *application.RatesService {
	return application.NewRatesService(f, f, application.NewResolver("USD"),
		application.WithRegistry(domain.DefaultRegistry()),
		application.WithClock(fixedClock{}),
		application.WithHistoryReader(f),
	)
}

func (f *fakeRates) RunUpdate(ctx context.Context) (application.UpdateReport, error) {
	return f.Refresh(ctx)
}

func (f *fakeRates) GetRate(ctx context.Context, from, to string) (domain.ResolvedRate, error) {
	if f.panicOn != "" && from == f.panicOn {
		panic("boom")
	}
	return f.svc().GetRate(ctx, from, to)
}

func (f *fakeRates) Convert(ctx context.Context, from, to string, amount decimal.Decimal) (application.Conversion, error) {
	return f.svc().Convert(ctx, from, to, amount)
}

func (f *fakeRates) Snapshot(context.Context) (domain.RatesSnapshot, error) { return f.snap, nil }

func (f *fakeRates) SaveSnapshot(_ context.Context, s domain.RatesSnapshot) error {
	f.snap = s
	return nil
}

func (f *fakeRates) ReadSnapshot(context.Context) (domain.RatesSnapshot, error) { return f.snap, nil }

func (f *fakeRates) History(ctx context.Context, from, to string, limit int) ([]domain.HistoricalRecord, error) {
	f.lastLimit = limit
	return f.svc().History(ctx, from, to, limit)
}

func (f *fakeRates) ListHistory(_ context.Context, from, to string, _ int) ([]domain.HistoricalRecord, error) {
	return []domain.HistoricalRecord{
		domain.NewHistoricalRecord(domain.RatePair{From: from, To: to, Rate: 1.25, UpdatedAt: refreshedAt, Source: "x"}, nil),
	}, nil
}

func (f *fakeRates) Currencies() []domain.Currency { return domain.DefaultRegistry().All() }

type fixedClock struct{}

func (fixedClock) Now() time.Time { return refreshedAt.Add(time.Minute) }

type fakeGuard struct {
	held     map[string]bool
	released []string
}

func (f *fakeGuard) Reserve(_ context.Context, k string) (bool, error) {
	if f.held == nil {
		f.held = map[string]bool{}
	}
	if f.held[k] {
		return false, nil
	}
	f.held[k] = true
	return true, nil
}

func (f *fakeGuard) Release(_ context.Context, k string) error {
	delete(f.held, k)
	f.released = append(f.released, k)
	return nil
}
