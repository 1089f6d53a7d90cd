package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"ratehub/internal/bootstrap"
	"ratehub/internal/infrastructure/logx"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := bootstrap.InitWorker(ctx)
	if err != nil {
		logx.L().Fatal("init worker", zap.Error(err))
	}
	log := app.Log.With(zap.String("mode", app.Config.WorkerMode))
	log.Info("worker starting", zap.Duration("interval", app.Config.UpdateInterval))

	err = app.Run(ctx)
	cleanup()
	if err != nil {
		log.Error("worker exited", zap.Error(err))
		os.Exit(1)
	}
	log.Info("worker stopped")
}
