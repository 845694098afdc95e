// Package enrich fetches live employee and revenue figures for matched
// organizations through a bounded worker pool.
package enrich

import (
	"context"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadmatch/internal/cache"
	"github.com/sells-group/leadmatch/internal/model"
	"github.com/sells-group/leadmatch/internal/resilience"
	"github.com/sells-group/leadmatch/pkg/brreg"
)

// MaxWorkers caps the default pool size.
const MaxWorkers = 32

// DefaultWorkers returns min(32, 4 × NumCPU).
func DefaultWorkers() int {
	return min(MaxWorkers, 4*runtime.NumCPU())
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithStore sets the cache consulted before every lookup.
func WithStore(s cache.Store) Option {
	return func(f *Fetcher) {
		if s != nil {
			f.store = s
		}
	}
}

// WithWorkers sets the pool size. Zero or less keeps the default.
func WithWorkers(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithTTL sets how long successful lookups are cached.
func WithTTL(ttl time.Duration) Option {
	return func(f *Fetcher) {
		if ttl > 0 {
			f.ttl = ttl
		}
	}
}

// Fetcher resolves identifiers to EnrichmentResults. It never fails a
// batch: every lookup error becomes an unknown figure.
type Fetcher struct {
	client  brreg.Client
	store   cache.Store
	workers int
	ttl     time.Duration
	nowFunc func() time.Time
}

// New creates a Fetcher backed by client.
func New(client brreg.Client, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  client,
		store:   cache.NewMemory(),
		workers: DefaultWorkers(),
		ttl:     cache.DefaultTTL,
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Workers returns the configured pool size.
func (f *Fetcher) Workers() int { return f.workers }

// Stats counts what happened in one batch.
type Stats struct {
	Requested  int `json:"requested"`
	Dispatched int `json:"dispatched"`
	CacheHits  int `json:"cache_hits"`
	Failures   int `json:"failures"`
}

// Batch holds one result per requested identifier.
type Batch struct {
	Results map[string]model.EnrichmentResult
	Stats   Stats
	// Err is the context error when the batch was cut short.
	Err error
}

// Cancelled reports whether the context ended before every lookup had
// run. A context cancelled after the last lookup does not count.
func (b *Batch) Cancelled() bool { return b.Err != nil }

// Get returns the result for id, unknown when absent.
func (b *Batch) Get(id string) model.EnrichmentResult {
	if r, ok := b.Results[id]; ok {
		return r
	}
	return model.EnrichmentResult{RegistryID: id}
}

type slot struct {
	result     model.EnrichmentResult
	dispatched bool
	skipped    bool // ctx ended before a lookup could finish
	hits       int
	failures   int
}

// Fetch looks up both figures for every distinct non-empty identifier.
// Blank and repeated identifiers are skipped. Once ctx is done no further
// lookups start; identifiers not yet dispatched come back unknown.
func (f *Fetcher) Fetch(ctx context.Context, ids []string) *Batch {
	log := zap.L().With(zap.String("component", "enrich"))
	ids = distinct(ids)
	slots := make([]slot, len(ids))
	for i, id := range ids {
		slots[i].result.RegistryID = id
	}

	start := time.Now()
	g := new(errgroup.Group)
	g.SetLimit(f.workers)
	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// The dispatcher may have waited for a free worker.
			if ctx.Err() != nil {
				return nil
			}
			slots[i].dispatched = true
			f.fill(ctx, id, &slots[i])
			return nil
		})
	}
	_ = g.Wait()

	batch := &Batch{
		Results: make(map[string]model.EnrichmentResult, len(ids)),
		Stats:   Stats{Requested: len(ids)},
	}
	partial := false
	for _, s := range slots {
		batch.Results[s.result.RegistryID] = s.result
		if s.dispatched {
			batch.Stats.Dispatched++
		}
		if !s.dispatched || s.skipped {
			partial = true
		}
		batch.Stats.CacheHits += s.hits
		batch.Stats.Failures += s.failures
	}

	if partial {
		batch.Err = ctx.Err()
	}

	fields := []zap.Field{
		zap.Int("requested", batch.Stats.Requested),
		zap.Int("dispatched", batch.Stats.Dispatched),
		zap.Int("cache_hits", batch.Stats.CacheHits),
		zap.Int("failures", batch.Stats.Failures),
		zap.Int("workers", f.workers),
		zap.Duration("elapsed", time.Since(start)),
	}
	if batch.Cancelled() {
		log.Warn("enrichment cancelled", append(fields, zap.Error(batch.Err))...)
	} else {
		log.Info("enrichment complete", fields...)
	}
	return batch
}

// fill runs both lookups for one identifier, writing only into s.
func (f *Fetcher) fill(ctx context.Context, id string, s *slot) {
	s.result.Employees = f.lookup(ctx, cache.KindEmployees, id, f.client.Employees, s)
	s.result.Revenue = f.lookup(ctx, cache.KindRevenue, id, f.client.Revenue, s)
}

func (f *Fetcher) lookup(
	ctx context.Context,
	kind cache.Kind,
	id string,
	fetch func(context.Context, string) (*int64, error),
	s *slot,
) *int64 {
	key := cache.Key{Kind: kind, RegistryID: id}
	if e, ok, err := f.store.Get(ctx, key); err != nil {
		zap.L().Warn("enrich: cache read failed",
			zap.String("registry_id", id), zap.String("kind", string(kind)), zap.Error(err))
	} else if ok {
		s.hits++
		return e.Value
	}

	if ctx.Err() != nil {
		s.skipped = true
		return nil
	}
	v, err := fetch(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			s.skipped = true
		}
		s.failures++
		zap.L().Warn("enrich: lookup failed",
			zap.String("registry_id", id),
			zap.String("kind", string(kind)),
			zap.String("error_type", resilience.ClassifyError(err)),
			zap.Error(err),
		)
		return nil
	}

	now := f.nowFunc()
	entry := cache.Entry{Key: key, Value: v, FetchedAt: now, ExpiresAt: now.Add(f.ttl)}
	if err := f.store.Set(ctx, entry); err != nil {
		zap.L().Warn("enrich: cache write failed",
			zap.String("registry_id", id), zap.String("kind", string(kind)), zap.Error(err))
	}
	return v
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
