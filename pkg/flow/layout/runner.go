package layout

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/factoryflow/pkg/cache"
	"github.com/matzehuels/factoryflow/pkg/flow"
	"github.com/matzehuels/factoryflow/pkg/observability"
)

// DefaultTTL is how long a cached placement stays valid.
const DefaultTTL = 24 * time.Hour

// Runner is an [Engine] that caches placements. The cache key is the hash of
// the DOT text, which already encodes the visible topology, node sizes and
// separations.
//
// Runner is safe for concurrent use when its Engine and Cache are.
type Runner struct {
	Engine Engine
	Cache  cache.Cache
	Keyer  cache.Keyer
	TTL    time.Duration
	Logger *log.Logger
}

// NewRunner creates a runner around engine.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
func NewRunner(engine Engine, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Engine: engine,
		Cache:  c,
		Keyer:  keyer,
		TTL:    DefaultTTL,
		Logger: logger,
	}
}

// Apply lays out g with the runner as engine.
func (r *Runner) Apply(ctx context.Context, g flow.Graph, opts Options) (flow.Graph, error) {
	return Apply(ctx, r, g, opts)
}

// Place returns the cached placement for dot or computes and stores it.
func (r *Runner) Place(ctx context.Context, dot string) (Placement, error) {
	p, _, err := r.PlaceWithCacheInfo(ctx, dot)
	return p, err
}

// PlaceWithCacheInfo is Place that also reports whether the cache served the
// result.
func (r *Runner) PlaceWithCacheInfo(ctx context.Context, dot string) (Placement, bool, error) {
	start := time.Now()
	key := r.Keyer.LayoutKey(cache.Hash([]byte(dot)))
	hooks := observability.Layout()

	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		var p Placement
		if err := json.Unmarshal(data, &p); err == nil {
			observability.Cache().OnCacheHit(ctx, "layout")
			hooks.OnLayoutComplete(ctx, len(p.Centers), true, time.Since(start), nil)
			return p, true, nil
		}
		// Undecodable entries fall through to recompute.
	} else if err != nil {
		r.Logger.Warn("layout cache read failed", "err", err)
	}
	observability.Cache().OnCacheMiss(ctx, "layout")

	hooks.OnLayoutStart(ctx, 0)
	p, err := r.Engine.Place(ctx, dot)
	hooks.OnLayoutComplete(ctx, len(p.Centers), false, time.Since(start), err)
	if err != nil {
		return Placement{}, false, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := r.Cache.Set(ctx, key, data, r.TTL); err != nil {
			r.Logger.Warn("layout cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "layout", len(data))
		}
	}
	r.Logger.Debug("computed layout", "nodes", len(p.Centers), "duration", time.Since(start))
	return p, false, nil
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

var _ Engine = (*Runner)(nil)
