package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/factoryflow/internal/config"
	"github.com/matzehuels/factoryflow/internal/server"
	"github.com/matzehuels/factoryflow/pkg/observability/prom"
	"github.com/matzehuels/factoryflow/pkg/session"
)

const defaultShutdownTimeout = 15 * time.Second

// serveCommand creates the serve command, which runs the HTTP session
// service.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr            string
		shutdownTimeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve editor sessions over HTTP",
		Long: `Serve editor sessions over HTTP.

Each session holds one factory's editor state. Web front ends open a session,
post actions to it and save through it; drafts live in the configured session
store (memory or redis), so with redis a restarted server resumes them.
Prometheus metrics are served at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, shutdownTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from the config)")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", defaultShutdownTimeout, "grace period for in-flight requests")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	b, err := c.openBackend(ctx, false)
	if err != nil {
		return err
	}
	defer b.Close()

	cfg := b.cfg.Server
	if addr == "" {
		addr = cfg.Addr
	}

	var sessions session.Store = session.NewMemoryStore()
	if cfg.Sessions == config.BackendRedis {
		client := b.redisClient()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis %s: %w", b.cfg.Redis.Addr, err)
		}
		// The backend owns the client; the store is not closed separately.
		sessions = session.NewRedisStore(client, session.DefaultRedisPrefix)
	}

	metrics := prom.NewRegistry()
	metrics.Install()

	srv := server.New(server.Deps{
		Sync:       b.sync,
		Sessions:   sessions,
		Layout:     b.runner.Apply,
		Metrics:    metrics,
		Logger:     c.Logger,
		SessionTTL: cfg.SessionTTL.Duration,
	})

	printInfo("Serving sessions on %s", StyleHighlight.Render(addr))
	printDetail("sessions: %s · documents: %s · cache: %s", cfg.Sessions, b.cfg.Documents.Backend, b.cfg.Cache.Backend)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(ctx, addr, shutdownTimeout) })
	g.Go(func() error { return srv.RunSweeper(ctx, cfg.SweepInterval.Duration) })
	return g.Wait()
}
