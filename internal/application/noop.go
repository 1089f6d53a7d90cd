package application

import "context"

// NoopGuard admits every refresh; used when no redis is configured.
type NoopGuard struct{}

func (NoopGuard) Reserve(context.Context, string) (bool, error) { return true, nil }
func (NoopGuard) Release(context.Context, string) error         { return nil }

type noopUoW struct{}

func (noopUoW) Do(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
