// Package app wires configuration, storage, the realtime feed and the HTTP
// server into one runnable process.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/vedran77/statusd/internal/config"
	"github.com/vedran77/statusd/internal/database"
	"github.com/vedran77/statusd/internal/events"
	"github.com/vedran77/statusd/internal/logger"
	"github.com/vedran77/statusd/internal/metrics"
	"github.com/vedran77/statusd/internal/repository"
	"github.com/vedran77/statusd/internal/repository/memory"
	postgresrepo "github.com/vedran77/statusd/internal/repository/postgres"
	"github.com/vedran77/statusd/internal/service"
	"github.com/vedran77/statusd/internal/transport/http/handlers"
	"github.com/vedran77/statusd/internal/transport/http/server"
	"github.com/vedran77/statusd/internal/transport/ws"
	"github.com/vedran77/statusd/internal/version"
)

const connectTimeout = 30 * time.Second

type Options struct {
	// Memory runs on the in-process store instead of PostgreSQL.
	Memory bool
}

type App struct {
	cfg    *config.Config
	logger logger.Logger
	server *server.Server
	hub    *ws.Hub
	relay  *events.Relay
	pub    *events.RedisNotifier

	pool        *pgxpool.Pool
	redisClient *goredis.Client

	// streamCtx outlives the HTTP requests that open stream connections.
	streamCtx    context.Context
	cancelStream context.CancelFunc
}

// New connects to every backend and builds the server. Failing to reach the
// database or Redis here is fatal to the caller.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	a := &App{cfg: cfg, logger: log}
	a.streamCtx, a.cancelStream = context.WithCancel(context.Background())

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	var repo repository.StatusRepository
	if opts.Memory {
		log.Warn("using in-memory store; data is lost on exit")
		repo = memory.NewStatusRepo()
	} else {
		pool, err := database.Connect(connectCtx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.pool = pool
		log.Info("connected to database")

		if err := database.Migrate(connectCtx, pool); err != nil {
			a.Close()
			return nil, err
		}
		repo = postgresrepo.NewStatusRepo(pool)
	}

	m := metrics.New()
	a.hub = ws.NewHub(log, m)

	svc := service.NewStatusService(repo, service.Options{
		MaxBodyLength:   cfg.MaxBodyLength,
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	})
	svc.SetMetrics(m)

	if cfg.RedisURL != "" {
		rdb, err := events.Connect(connectCtx, cfg.RedisURL, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redisClient = rdb
		// Local clients hear about local writes through the relay too.
		a.pub = events.NewRedisNotifier(rdb, events.Channel, log)
		svc.SetNotifier(a.pub)
		a.relay = events.NewRelay(rdb, events.Channel, a.hub, log)
	} else {
		svc.SetNotifier(ws.NewHubNotifier(a.hub))
	}

	a.server = server.New(":"+cfg.ServerPort, server.Deps{
		Logger:         log,
		Metrics:        m,
		Statuses:       handlers.NewStatusHandler(svc, log),
		System:         handlers.NewSystemHandler(svc, log, time.Now(), version.Version),
		Stream:         ws.ServeWS(a.streamCtx, a.hub),
		RequestTimeout: cfg.RequestTimeout,
	})

	return a, nil
}

// Run serves until ctx is canceled or a component fails, then shuts
// everything down within ShutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("statusd %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.Start(); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	g.Go(func() error { return a.hub.Run(gctx) })
	if a.relay != nil {
		g.Go(func() error { return a.relay.Run(gctx) })
		g.Go(func() error { return a.pub.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		a.cancelStream()
		if err := a.server.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop server: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if err == nil {
		a.logger.Info("statusd stopped cleanly")
	}
	return err
}

// Close releases backend connections. It is safe to call more than once.
func (a *App) Close() {
	a.cancelStream()
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		}
		a.redisClient = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}

// Migrate connects to the database, applies the schema and disconnects.
func Migrate(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		return err
	}
	log.Info("schema is up to date")
	return nil
}
