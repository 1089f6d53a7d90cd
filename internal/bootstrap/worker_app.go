package bootstrap

import (
	"context"
	"errors"
	"fmt"
)

var ErrUpdateFailed = errors.New("bootstrap: rates update failed")

// Run executes the configured worker mode. In "once" mode it performs a
// single update; in "loop" mode it blocks until ctx is canceled and then
// stops the scheduler.
func (a *WorkerApp) Run(ctx context.Context) error {
	switch a.Config.WorkerMode {
	case "once":
		if !a.Scheduler.RunOnce(ctx) {
			return ErrUpdateFailed
		}
		return nil
	case "", "loop":
		a.Scheduler.Start(ctx)
		<-ctx.Done()
		a.Scheduler.Stop()
		return nil
	default:
		return fmt.Errorf("unsupported WORKER_MODE=%q", a.Config.WorkerMode)
	}
}
