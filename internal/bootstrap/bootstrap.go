package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"ratehub/internal/application"
	"ratehub/internal/config"
	"ratehub/internal/infrastructure/worker"
)

var ErrMissingDBURL = errors.New("bootstrap: DATABASE_URL is required for HISTORY_MIRROR=pg")

// API is everything cmd/api needs to serve.
type API struct {
	Config  config.Config
	Handler http.Handler
	Log     *zap.Logger
}

// WorkerApp drives the background updater.
type WorkerApp struct {
	Config    config.Config
	Scheduler *worker.Scheduler
	Log       *zap.Logger
}

// readyCheck reports ready once a non-empty snapshot is stored and the
// optional dependencies answer.
func readyCheck(store application.SnapshotStore, pings ...func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		snap, err := store.ReadSnapshot(ctx)
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		if snap.IsEmpty() {
			return application.ErrRatesNotLoaded
		}
		for _, ping := range pings {
			if err := ping(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
