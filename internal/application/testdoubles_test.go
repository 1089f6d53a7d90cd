package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ratehub/internal/domain"
)

var errStore = errors.New("store error")

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

type seqIDGen struct{ n int }

func (g *seqIDGen) NewID() string {
	g.n++
	return fmt.Sprintf("update-%d", g.n)
}

type fakeSource struct {
	name  string
	out   map[string]float64
	err   error
	panic bool
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchRates(context.Context) (map[string]float64, error) {
	f.calls++
	if f.panic {
		panic("boom")
	}
	return f.out, f.err
}

type memStore struct {
	mu         sync.Mutex
	snap       domain.RatesSnapshot
	saves      int
	history    []domain.HistoricalRecord
	saveErr    error
	historyErr func(rec domain.HistoricalRecord) error
}

func (m *memStore) SaveSnapshot(_ context.Context, s domain.RatesSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.snap = s
	return nil
}

func (m *memStore) ReadSnapshot(context.Context) (domain.RatesSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, nil
}

func (m *memStore) AppendHistory(_ context.Context, rec domain.HistoricalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.historyErr != nil {
		if err := m.historyErr(rec); err != nil {
			return err
		}
	}
	m.history = append(m.history, rec)
	return nil
}

func (m *memStore) ListHistory(_ context.Context, from, to string, limit int) ([]domain.HistoricalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.HistoricalRecord
	for i := len(m.history) - 1; i >= 0; i-- {
		r := m.history[i]
		if r.FromCurrency == from && r.ToCurrency == to {
			out = append(out, r)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type recordingObserver struct{ reports []UpdateReport }

func (o *recordingObserver) ObserveUpdate(r UpdateReport) { o.reports = append(o.reports, r) }

type recordingNotifier struct {
	snaps []domain.RatesSnapshot
	err   error
}

func (n *recordingNotifier) NotifyUpdated(_ context.Context, s domain.RatesSnapshot) error {
	n.snaps = append(n.snaps, s)
	return n.err
}

type countingUoW struct{ calls int }

func (u *countingUoW) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	u.calls++
	return fn(ctx)
}

type fakeRefresher struct {
	rep UpdateReport
	err error
}

func (f *fakeRefresher) RunUpdate(context.Context) (UpdateReport, error) { return f.rep, f.err }
