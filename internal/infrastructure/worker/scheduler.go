package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ratehub/internal/application"
	infraconfig "ratehub/internal/infrastructure/config"
)

var _ application.Worker = (*Scheduler)(nil)

// Scheduler runs the updater on a fixed interval in one background goroutine.
// The first cycle runs immediately on Start.
type Scheduler struct {
	Updater  application.Refresher
	Interval time.Duration
	// StopTimeout bounds how long Stop waits for an in-flight cycle.
	StopTimeout time.Duration
	Log         *zap.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func (s *Scheduler) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// Start launches the loop. Calling Start on a running scheduler only logs a
// warning.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.log().Warn("scheduler.already_running")
		return
	}
	if s.done != nil {
		s.log().Warn("scheduler.still_stopping")
		return
	}
	if s.Interval <= 0 {
		s.Interval = infraconfig.DefaultUpdateInterval
	}
	stop, done := make(chan struct{}), make(chan struct{})
	s.stop, s.done = stop, done
	go s.loop(ctx, stop, done)
}

// Stop ends the idle wait at once. An update already running is not
// interrupted; Stop waits up to StopTimeout for it. Until that loop exits the
// scheduler counts as running and Start is refused.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop = nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)

	timeout := s.StopTimeout
	if timeout <= 0 {
		timeout = infraconfig.DefaultSchedulerStop
	}
	select {
	case <-done:
		s.log().Info("scheduler.stopped")
	case <-time.After(timeout):
		s.log().Warn("scheduler.stop_timeout", zap.Duration("waited", timeout))
	}
}

// Running reports whether a loop goroutine is alive.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}

// RunOnce performs a single synchronous update outside the loop.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	return s.cycle(ctx, s.log().With(zap.String("trigger", "manual")))
}

func (s *Scheduler) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	defer s.release(done)
	log := s.log().With(zap.String("trigger", "schedule"))
	log.Info("scheduler.started", zap.Duration("interval", s.Interval))

	for {
		s.cycle(ctx, log)

		t := time.NewTimer(s.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			log.Info("scheduler.context_done")
			return
		case <-stop:
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// release clears the running state once the loop exits.
func (s *Scheduler) release(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == done {
		s.stop, s.done = nil, nil
	}
}

func (s *Scheduler) cycle(ctx context.Context, log *zap.Logger) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("scheduler.cycle_panic", zap.Any("panic", r))
			ok = false
		}
	}()
	rep, err := s.Updater.RunUpdate(ctx)
	if err != nil {
		log.Warn("scheduler.cycle_failed", zap.String("update_id", rep.ID), zap.Error(err))
		return false
	}
	log.Info("scheduler.cycle_done",
		zap.String("update_id", rep.ID),
		zap.Int("successful_sources", rep.SuccessfulSources),
		zap.Int("pairs", rep.Pairs),
	)
	return true
}
