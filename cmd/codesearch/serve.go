package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/indexer/walker"
	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/indexer/watcher"
	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/codesearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/resilience"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search API",
	Long: `Serve the HTTP search API. With index.root set the project is indexed
at startup and, when enabled, kept current by the file watcher and by
file-change events from Kafka.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cmd, cfg)
	slog.Info("starting codesearch", "port", cfg.Server.Port, "root", cfg.Index.Root)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
	}

	engine := indexer.NewEngine(cfg.Index, indexer.WithMetrics(m))
	defer engine.Close()
	if cfg.Index.Root != "" {
		if _, err := engine.Reindex(cfg.Index.Root); err != nil {
			return fmt.Errorf("initial index: %w", err)
		}
	}

	checker := health.NewChecker(2 * time.Second)
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		stats, err := engine.Stats()
		if err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d files, %d symbols", stats.TotalFiles, stats.TotalSymbols),
		}
	})

	g, gctx := errgroup.WithContext(ctx)

	var publisher analytics.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		publisher = producer
	}

	var (
		aggregator *analytics.Aggregator
		tracker    handler.Tracker
		history    analytics.History
	)
	if cfg.Analytics.Enabled {
		aggregator = analytics.NewAggregator(cfg.Analytics.TopN)
		collector := analytics.NewCollector(aggregator, publisher, cfg.Analytics.BufferSize)
		tracker = collector
		g.Go(func() error { return collector.Run(gctx) })
	}

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		rc, err := connectRedis(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "addr", cfg.Redis.Addr, "error", err)
			checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: "not connected"}
			})
		} else {
			defer rc.Close()
			queryCache = cache.New(rc, cfg.Redis.CacheTTL, m)
			checker.Register("redis", health.Probe(rc.Ping, health.StatusDegraded))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	if cfg.Postgres.Enabled {
		db, err := connectPostgres(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "host", cfg.Postgres.Host, "error", err)
		} else {
			defer db.Close()
			checker.Register("postgres", health.Probe(db.Ping, health.StatusDegraded))
			snapshots := store.New(db)
			history = snapshots
			if aggregator != nil {
				g.Go(func() error { return snapshots.Run(gctx, aggregator, cfg.Analytics.SnapshotInterval) })
			}
		}
	}

	if cfg.Kafka.Enabled {
		checker.Register("kafka", health.Probe(func(ctx context.Context) error {
			return kafka.Ping(ctx, cfg.Kafka.Brokers)
		}, health.StatusDegraded))
		if cfg.Index.Root == "" {
			slog.Warn("index.root is not set, ignoring file-change events")
		} else {
			kc := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.FileEvents,
				consumer.HandleMessage(engine, cfg.Index.Root, m, tracker))
			ic := consumer.New(kc)
			g.Go(func() error { return ic.Run(gctx) })
		}
	}

	if cfg.Watch.Enabled && cfg.Index.Root != "" {
		w, err := watcher.New(cfg.Index.Root, engine, watcher.Options{
			Walker: walker.Options{
				IgnorePatterns:   cfg.Index.IgnorePatterns,
				IncludeHidden:    cfg.Index.IncludeHidden,
				RespectGitignore: cfg.Index.RespectGitignore,
			},
			Debounce: cfg.Watch.Debounce,
			Metrics:  m,
			Tracker:  tracker,
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return w.Run(gctx) })
	}

	routerCfg := handler.RouterConfig{
		Health:         checker,
		Metrics:        m,
		RequestTimeout: cfg.Server.RequestTimeout,
	}
	if aggregator != nil {
		routerCfg.Analytics = analytics.NewHandler(aggregator, history)
	}
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimit, time.Minute)
		routerCfg.Limiter = limiter
		g.Go(func() error {
			limiter.Run(gctx)
			return nil
		})
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsHandler = metrics.Handler()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		g.Go(func() error {
			<-gctx.Done()
			return shutdown(cfg.Server.ShutdownTimeout, shutdownMetrics)
		})
	}

	h := handler.New(engine, cfg.Search,
		handler.WithCache(queryCache),
		handler.WithTracker(tracker),
		handler.WithMetrics(m),
	)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.NewRouter(h, routerCfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	g.Go(func() error {
		slog.Info("search API listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		return shutdown(cfg.Server.ShutdownTimeout, server.Shutdown)
	})

	err = g.Wait()
	slog.Info("codesearch stopped")
	return err
}

func shutdown(timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) (*pkgredis.Client, error) {
	var rc *pkgredis.Client
	err := resilience.Retry(ctx, "redis connect", resilience.RetryConfig{MaxAttempts: 5, InitialDelay: 500 * time.Millisecond}, func() error {
		var err error
		rc, err = pkgredis.NewClient(ctx, cfg)
		return err
	})
	return rc, err
}

func connectPostgres(ctx context.Context, cfg config.PostgresConfig) (*postgres.Client, error) {
	var db *postgres.Client
	err := resilience.Retry(ctx, "postgres connect", resilience.RetryConfig{MaxAttempts: 5, InitialDelay: 500 * time.Millisecond}, func() error {
		var err error
		db, err = postgres.New(ctx, cfg)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating analytics schema: %w", err)
	}
	return db, nil
}
