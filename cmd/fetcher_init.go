package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadmatch/internal/cache"
	"github.com/sells-group/leadmatch/internal/config"
	"github.com/sells-group/leadmatch/internal/enrich"
	"github.com/sells-group/leadmatch/internal/resilience"
	"github.com/sells-group/leadmatch/pkg/brreg"
)

// fetcherEnv bundles the enrichment fetcher with the cache it owns.
type fetcherEnv struct {
	Fetcher *enrich.Fetcher
	Store   cache.Store
}

// Close releases the cache.
func (e *fetcherEnv) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("close cache", zap.Error(err))
		}
	}
}

// openCache opens the configured enrichment cache.
func openCache(ctx context.Context, c *config.Config) (cache.Store, error) {
	return cache.Open(ctx, cache.Config{
		Driver:      c.Cache.Driver,
		Path:        c.Cache.Path,
		DatabaseURL: c.Cache.DatabaseURL,
	})
}

// newRegistryClient builds the registry client from config. The transport
// allows one connection per worker.
func newRegistryClient(c *config.Config, workers int) brreg.Client {
	opts := []brreg.Option{
		brreg.WithHTTPClient(brreg.NewHTTPClient(workers)),
		brreg.WithBaseURLs(c.Registry.EntitiesURL, c.Registry.AccountsURL),
		brreg.WithUserAgent(c.Registry.UserAgent),
		brreg.WithPolicy(resilience.FromConfig(c.Registry.Retries, c.Registry.BackoffMs, c.Registry.TimeoutSecs)),
	}
	if c.Registry.RateLimit > 0 {
		opts = append(opts, brreg.WithRateLimit(c.Registry.RateLimit))
	}
	if c.Registry.BreakerThreshold > 0 {
		opts = append(opts, brreg.WithCircuitBreaker(
			resilience.FromCircuitConfig(c.Registry.BreakerThreshold, c.Registry.BreakerResetSecs)))
	}
	return brreg.NewClient(opts...)
}

// initFetcher wires the registry client, cache and worker pool. workers
// overrides the configured pool size when positive.
func initFetcher(ctx context.Context, c *config.Config, workers int) (*fetcherEnv, error) {
	if workers <= 0 {
		workers = c.Enrich.Workers
	}
	if workers <= 0 {
		workers = enrich.DefaultWorkers()
	}

	store, err := openCache(ctx, c)
	if err != nil {
		return nil, eris.Wrap(err, "init fetcher: open cache")
	}

	client := newRegistryClient(c, workers)
	f := enrich.New(client,
		enrich.WithStore(store),
		enrich.WithWorkers(workers),
		enrich.WithTTL(time.Duration(c.Cache.TTLHours)*time.Hour),
	)
	zap.L().Debug("fetcher ready",
		zap.Int("workers", f.Workers()),
		zap.String("cache", c.Cache.Driver),
	)
	return &fetcherEnv{Fetcher: f, Store: store}, nil
}
