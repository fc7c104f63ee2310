package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/factoryflow/internal/config"
	"github.com/matzehuels/factoryflow/pkg/cache"
	"github.com/matzehuels/factoryflow/pkg/flow/layout"
	"github.com/matzehuels/factoryflow/pkg/httputil"
	"github.com/matzehuels/factoryflow/pkg/integrations/factoryapi"
	"github.com/matzehuels/factoryflow/pkg/persist"
	"github.com/matzehuels/factoryflow/pkg/store/mongostore"
)

const (
	// redisKeyPrefix scopes layout cache keys in a shared Redis.
	redisKeyPrefix = "factoryflow:"

	retryDelay = 500 * time.Millisecond
)

// backend bundles the layout runner and synchronizer a command works with.
type backend struct {
	cfg    config.Config
	runner *layout.Runner
	gv     *layout.Graphviz
	sync   *persist.Synchronizer
	redis  *redis.Client // nil unless a component uses Redis

	closers []func() error
}

// openLayout builds the layout engine and its cache. noCache disables the
// cache.
func (c *CLI) openLayout(ctx context.Context, noCache bool) (*backend, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	b := &backend{cfg: cfg}
	runner, err := b.newRunner(ctx, c.Logger, noCache)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.runner = runner
	return b, nil
}

// openBackend is openLayout plus the stores and a synchronizer over them.
func (c *CLI) openBackend(ctx context.Context, noCache bool) (*backend, error) {
	b, err := c.openLayout(ctx, noCache)
	if err != nil {
		return nil, err
	}
	stores, err := b.newStores(ctx, c.Logger)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.sync = persist.New(stores, b.runner, c.Logger)
	return b, nil
}

// Close releases everything in reverse order of creation.
func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}

func (b *backend) redisClient() *redis.Client {
	if b.redis == nil {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     b.cfg.Redis.Addr,
			Password: b.cfg.Redis.Password,
			DB:       b.cfg.Redis.DB,
		})
		b.closers = append(b.closers, b.redis.Close)
	}
	return b.redis
}

func (b *backend) newRunner(ctx context.Context, logger *log.Logger, noCache bool) (*layout.Runner, error) {
	c, keyer, err := b.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	gv, err := layout.NewGraphviz(ctx)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("start graphviz: %w", err)
	}
	b.gv = gv
	runner := layout.NewRunner(gv, c, keyer, logger)
	if b.cfg.Cache.TTL.Duration > 0 {
		runner.TTL = b.cfg.Cache.TTL.Duration
	}
	b.closers = append(b.closers, runner.Close, gv.Close)
	return runner, nil
}

// newCache picks the layout cache backend. A broken file cache directory
// degrades to no cache.
func (b *backend) newCache(ctx context.Context, noCache bool) (cache.Cache, cache.Keyer, error) {
	kind := b.cfg.Cache.Backend
	if noCache {
		kind = config.BackendNone
	}
	switch kind {
	case config.BackendMemory:
		return cache.NewMemoryCache(), nil, nil
	case config.BackendRedis:
		client := b.redisClient()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connect redis %s: %w", b.cfg.Redis.Addr, err)
		}
		return cache.NewRedisCacheFromClient(client), cache.NewScopedKeyer(nil, redisKeyPrefix), nil
	case config.BackendFile:
		dir := b.cfg.Cache.Dir
		if dir == "" {
			dir, _ = cacheDir()
		}
		if dir == "" {
			return cache.NewNullCache(), nil, nil
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			return cache.NewNullCache(), nil, nil
		}
		return fc, nil, nil
	default:
		return cache.NewNullCache(), nil, nil
	}
}

// newStores talks to the factory backend and, with the mongo document
// backend, keeps canvas documents in MongoDB instead.
func (b *backend) newStores(ctx context.Context, logger *log.Logger) (persist.Stores, error) {
	api := b.cfg.API
	client, err := factoryapi.New(api.URL, factoryapi.Options{
		Token:     api.Token,
		Timeout:   api.Timeout.Duration,
		RateLimit: api.RateLimit,
		Burst:     api.Burst,
		Retry:     httputil.Policy{Attempts: api.RetryAttempts, Delay: retryDelay},
	})
	if err != nil {
		return persist.Stores{}, err
	}
	stores := client.Stores()

	if b.cfg.Documents.Backend == config.BackendMongo {
		docs, err := mongostore.Connect(ctx, mongostore.Config{
			URI:        b.cfg.Documents.MongoURI,
			Database:   b.cfg.Documents.MongoDatabase,
			Collection: b.cfg.Documents.MongoCollection,
			Timeout:    api.Timeout.Duration,
		}, logger)
		if err != nil {
			return persist.Stores{}, err
		}
		b.closers = append(b.closers, func() error { return docs.Close(context.Background()) })
		stores.Documents = docs
	}
	return stores, nil
}
