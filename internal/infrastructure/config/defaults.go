package config

import "time"

const (
	DefaultHTTPPort        = "8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultRequestTimeout  = 10 * time.Second
	DefaultUpdateInterval  = 30 * time.Minute
	DefaultRatesTTL        = 300 * time.Second
	DefaultSchedulerStop   = 5 * time.Second
	DefaultIdempotencyTTL  = 24 * time.Hour
	DefaultHistoryLimit    = 100
	DefaultPGMaxConns      = 5
	DefaultPGMinConns      = 1
)
