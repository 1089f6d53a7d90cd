package application

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"ratehub/internal/domain"
)

// SourceReport describes the outcome of one source call within a run.
type SourceReport struct {
	Name     string        `json:"name"`
	Fetched  int           `json:"fetched"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// UpdateReport summarizes one RunUpdate call.
type UpdateReport struct {
	ID                string         `json:"id"`
	StartedAt         time.Time      `json:"started_at"`
	Duration          time.Duration  `json:"duration"`
	Success           bool           `json:"success"`
	SuccessfulSources int            `json:"successful_sources"`
	TotalRates        int            `json:"total_rates"`
	Pairs             int            `json:"pairs"`
	HistoryWritten    int            `json:"history_written"`
	HistoryFailed     int            `json:"history_failed"`
	Sources           []SourceReport `json:"sources"`
}

// AttributionFunc names the provider recorded for a merged pair. producer is
// the Name() of the source whose value won the merge.
type AttributionFunc func(key domain.PairKey, producer string) string

// MembershipAttribution attributes pairs whose FROM code is in codes to
// inName and everything else to elseName.
func MembershipAttribution(codes []string, inName, elseName string) AttributionFunc {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[domain.NormalizeCode(c)] = struct{}{}
	}
	return func(k domain.PairKey, _ string) string {
		from, _, _ := k.Split()
		if _, ok := set[from]; ok {
			return inName
		}
		return elseName
	}
}

type UpdaterOption func(*Updater)

func WithUpdaterLogger(l *zap.Logger) UpdaterOption { return func(u *Updater) { u.log = l } }
func WithUpdaterClock(c Clock) UpdaterOption        { return func(u *Updater) { u.clock = c } }
func WithIDGen(g IDGen) UpdaterOption               { return func(u *Updater) { u.idgen = g } }
func WithAttribution(f AttributionFunc) UpdaterOption {
	return func(u *Updater) { u.attribute = f }
}
func WithHistoryMirror(h HistoryStore) UpdaterOption { return func(u *Updater) { u.mirror = h } }
func WithUnitOfWork(w UnitOfWork) UpdaterOption      { return func(u *Updater) { u.uow = w } }
func WithNotifier(n UpdateNotifier) UpdaterOption    { return func(u *Updater) { u.notifier = n } }
func WithObserver(o UpdateObserver) UpdaterOption    { return func(u *Updater) { u.observer = o } }

// Updater fetches every source, merges the results and commits them to the
// store. Runs are serialized.
type Updater struct {
	sources []RateSource
	store   RateStore

	log       *zap.Logger
	clock     Clock
	idgen     IDGen
	attribute AttributionFunc
	mirror    HistoryStore
	uow       UnitOfWork
	notifier  UpdateNotifier
	observer  UpdateObserver

	mu         sync.Mutex
	successful atomic.Int64
	total      atomic.Int64
}

func NewUpdater(store RateStore, sources []RateSource, opts ...UpdaterOption) *Updater {
	u := &Updater{sources: sources, store: store}
	for _, opt := range opts {
		opt(u)
	}
	if u.log == nil {
		u.log = zap.NewNop()
	}
	if u.clock == nil {
		u.clock = realClock{}
	}
	if u.idgen == nil {
		u.idgen = defaultIDGen{}
	}
	if u.uow == nil {
		u.uow = noopUoW{}
	}
	return u
}

// SuccessfulSources is the number of sources that returned data in the last run.
func (u *Updater) SuccessfulSources() int { return int(u.successful.Load()) }

// TotalRates is the number of rates returned by all sources in the last run,
// counted before merging.
func (u *Updater) TotalRates() int { return int(u.total.Load()) }

type mergedRate struct {
	raw      string
	rate     float64
	producer string
}

// RunUpdate performs one update cycle. It returns ErrNoRatesFetched, leaving
// the store untouched, when no source produced a usable rate. A snapshot
// write failure aborts the run; history append failures are logged and
// skipped.
func (u *Updater) RunUpdate(ctx context.Context) (rep UpdateReport, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.successful.Store(0)
	u.total.Store(0)

	start := u.clock.Now()
	rep = UpdateReport{ID: u.idgen.NewID(), StartedAt: start}
	log := u.log.With(zap.String("update_id", rep.ID))
	log.Info("rates_update.start", zap.Int("sources", len(u.sources)))

	defer func() {
		rep.Duration = u.clock.Now().Sub(start)
		rep.Success = err == nil
		if u.observer != nil {
			u.observer.ObserveUpdate(rep)
		}
	}()

	merged := map[domain.PairKey]mergedRate{}
	for _, src := range u.sources {
		sr, rates := u.fetch(ctx, log, src)
		rep.Sources = append(rep.Sources, sr)
		if len(rates) == 0 {
			continue
		}
		rep.SuccessfulSources++
		rep.TotalRates += len(rates)
		u.successful.Add(1)
		u.total.Add(int64(len(rates)))

		for raw, r := range rates {
			k, perr := domain.ParsePairKey(raw)
			if perr != nil || !(r > 0) || math.IsInf(r, 0) {
				log.Warn("rates_update.pair_rejected",
					zap.String("source", sr.Name), zap.String("pair", raw), zap.Float64("rate", r))
				continue
			}
			// later sources overwrite earlier ones
			merged[k] = mergedRate{raw: raw, rate: r, producer: sr.Name}
		}
	}

	if len(merged) == 0 {
		log.Warn("rates_update.no_rates", zap.Int("sources", len(u.sources)))
		return rep, ErrNoRatesFetched
	}

	keys := make([]domain.PairKey, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	now := u.clock.Now().UTC()
	snap := domain.RatesSnapshot{Pairs: make(map[domain.PairKey]domain.PairRate, len(keys)), LastRefresh: now}
	for _, k := range keys {
		m := merged[k]
		source := m.producer
		if u.attribute != nil {
			source = u.attribute(k, m.producer)
		}
		snap.Pairs[k] = domain.PairRate{Rate: m.rate, UpdatedAt: now, Source: source}
	}

	if err := u.store.SaveSnapshot(ctx, snap); err != nil {
		log.Error("rates_update.snapshot_failed", zap.Error(err))
		return rep, fmt.Errorf("updater: save snapshot: %w", err)
	}
	rep.Pairs = len(keys)

	written := make([]domain.HistoricalRecord, 0, len(keys))
	for _, k := range keys {
		from, to, _ := k.Split()
		p := snap.Pairs[k]
		rec := domain.NewHistoricalRecord(
			domain.RatePair{From: from, To: to, Rate: p.Rate, UpdatedAt: p.UpdatedAt, Source: p.Source},
			map[string]any{"raw_pair": merged[k].raw, "update_id": rep.ID},
		)
		if err := u.store.AppendHistory(ctx, rec); err != nil {
			rep.HistoryFailed++
			log.Warn("rates_update.history_append_failed", zap.String("pair", string(k)), zap.Error(err))
			continue
		}
		rep.HistoryWritten++
		written = append(written, rec)
	}
	u.mirrorHistory(ctx, log, written)

	if u.notifier != nil {
		if err := u.notifier.NotifyUpdated(ctx, snap); err != nil {
			log.Warn("rates_update.notify_failed", zap.Error(err))
		}
	}

	log.Info("rates_update.done",
		zap.Int("successful_sources", rep.SuccessfulSources),
		zap.Int("total_rates", rep.TotalRates),
		zap.Int("pairs", rep.Pairs),
		zap.Int("history_failed", rep.HistoryFailed),
	)
	return rep, nil
}

func (u *Updater) fetch(ctx context.Context, log *zap.Logger, src RateSource) (sr SourceReport, rates map[string]float64) {
	sr.Name = src.Name()
	t0 := u.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("source.fetch_panic", zap.String("source", sr.Name), zap.Any("panic", r))
			sr.Error = fmt.Sprintf("panic: %v", r)
			rates = nil
		}
		sr.Duration = u.clock.Now().Sub(t0)
		sr.Fetched = len(rates)
	}()

	out, err := src.FetchRates(ctx)
	if err != nil {
		log.Warn("source.fetch_failed", zap.String("source", sr.Name), zap.Error(err))
		sr.Error = err.Error()
		return sr, nil
	}
	if len(out) == 0 {
		log.Warn("source.empty", zap.String("source", sr.Name))
	}
	return sr, out
}

func (u *Updater) mirrorHistory(ctx context.Context, log *zap.Logger, recs []domain.HistoricalRecord) {
	if u.mirror == nil || len(recs) == 0 {
		return
	}
	err := u.uow.Do(ctx, func(ctx context.Context) error {
		for _, rec := range recs {
			if err := u.mirror.AppendHistory(ctx, rec); err != nil {
				return fmt.Errorf("mirror %s: %w", rec.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Warn("rates_update.history_mirror_failed", zap.Int("records", len(recs)), zap.Error(err))
	}
}
