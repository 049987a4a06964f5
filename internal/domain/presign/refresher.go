package presign

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"pilotforce-server-go/internal/domain/presign/cache"
	"pilotforce-server-go/internal/platform/logging"
)

// Reissuer exchanges a stale signed URL for a fresh one.
type Reissuer interface {
	Reissue(ctx context.Context, rawURL string) (string, error)
}

// Refresher keeps signed URLs alive for clients. It never fails a request:
// when a fresh link cannot be obtained, callers get the original URL back
// and the failure is logged.
type Refresher struct {
	cache     cache.Cache
	reissuer  Reissuer
	logger    *logging.Logger
	threshold time.Duration
	now       func() time.Time
}

func NewRefresher(c cache.Cache, reissuer Reissuer, logger *logging.Logger) *Refresher {
	return &Refresher{
		cache:     c,
		reissuer:  reissuer,
		logger:    logger,
		threshold: RefreshThreshold,
		now:       time.Now,
	}
}

// RefreshOne returns a usable URL for raw. Fresh or unsigned URLs pass
// through untouched; stale ones are served from cache or reissued. Any
// failure degrades to the original URL.
func (r *Refresher) RefreshOne(ctx context.Context, raw string) string {
	if raw == "" {
		return raw
	}
	if !needsRefreshWithin(raw, r.now(), r.threshold) {
		return raw
	}

	if entry, ok, err := r.cache.Get(ctx, raw); err != nil {
		r.logger.WarnTag("PRESIGN", "url cache lookup failed: %v", err)
	} else if ok {
		return entry.URL
	}

	fresh, err := r.reissuer.Reissue(ctx, raw)
	if err != nil {
		r.logger.WarnTag("PRESIGN", "reissue failed, serving original url: %v", err)
		return raw
	}

	if err := r.cache.Put(ctx, raw, cache.Entry{URL: fresh, CachedAt: r.now()}); err != nil {
		r.logger.WarnTag("PRESIGN", "url cache store failed: %v", err)
	}
	return fresh
}

// RefreshMany refreshes a set of URLs with bounded concurrency. The result
// maps every input URL to its refreshed form, or to itself when no refresh
// was needed or possible. Duplicate inputs are refreshed once.
func (r *Refresher) RefreshMany(ctx context.Context, urls []string) map[string]string {
	result := make(map[string]string, len(urls))
	unique := make([]string, 0, len(urls))
	for _, raw := range urls {
		if _, seen := result[raw]; seen {
			continue
		}
		result[raw] = raw
		unique = append(unique, raw)
	}

	// Workers write into the map, so iterate a snapshot of the keys and
	// guard every map access with the mutex until Wait returns.
	var mutex sync.Mutex
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(RefreshBatchSize)

	for _, raw := range unique {
		group.Go(func() error {
			fresh := r.RefreshOne(ctx, raw)
			mutex.Lock()
			result[raw] = fresh
			mutex.Unlock()
			return nil
		})
	}
	// Workers never return errors; RefreshOne degrades internally.
	_ = group.Wait()
	return result
}

// ClearCache drops all cached URL mappings.
func (r *Refresher) ClearCache(ctx context.Context) error {
	return r.cache.Clear(ctx)
}

// CacheStats reports cache occupancy for the admin surface.
func (r *Refresher) CacheStats(ctx context.Context) (map[string]any, error) {
	return r.cache.Stats(ctx)
}
