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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rloughlin/posthub/internal/auth"
	"github.com/rloughlin/posthub/internal/config"
	"github.com/rloughlin/posthub/internal/db"
	httpx "github.com/rloughlin/posthub/internal/http"
	"github.com/rloughlin/posthub/internal/observability"
	"github.com/rloughlin/posthub/internal/redisclient"
	"github.com/rloughlin/posthub/internal/repo/memory"
	"github.com/rloughlin/posthub/internal/repo/postgres"
)

func main() {
	cfg, err := config.Load()

	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	// tracing is opt-in; without an endpoint the no-op global provider stays.
	var tracerShutdown func(context.Context) error

	if cfg.OtelEndpoint != "" {
		tracerShutdown, err = observability.InitTracer(context.Background(), "posthub", cfg.Env, cfg.OtelEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}
		log.Info("tracing enabled", "endpoint", cfg.OtelEndpoint)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(registry)

	deps := httpx.Deps{
		JWT:      auth.NewManager(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTResetTTL),
		Prom:     prom,
		Registry: registry,
		Tracing:  cfg.OtelEndpoint != "",
	}

	// Store wiring: postgres when a database is configured, the in-memory
	// store otherwise. Memory mode loses everything on restart.
	if cfg.DBURL != "" {
		startupCtx, cancel := config.WithTimeout(30 * time.Second)

		if err := db.RunMigrations(startupCtx, cfg.DBURL); err != nil {
			log.Error("migrations failed", "err", err)
			cancel()
			os.Exit(1)
		}

		pool, err := db.NewPool(startupCtx, cfg.DBURL)

		if err != nil {
			log.Error("database connect failed", "err", err)
			cancel()
			os.Exit(1)
		}
		cancel()
		defer pool.Close()

		deps.Users = postgres.NewUsersRepo(pool, prom)
		deps.Posts = postgres.NewPostsRepo(pool, prom)
		deps.Stats = postgres.NewStatsRepo(pool, prom)
		deps.PingStore = pool.Ping

		log.Info("using postgres store")
	} else {
		users := memory.NewUsersRepo()
		posts := memory.NewPostsRepo(users)

		deps.Users = users
		deps.Posts = posts
		deps.Stats = memory.NewStatsRepo(users, posts)

		log.Warn("no database configured, using in-memory store")
	}

	seedCtx, cancel := config.WithTimeout(5 * time.Second)

	if err := db.EnsureAdminUser(seedCtx, deps.Users, cfg); err != nil {
		log.Error("admin seed failed", "err", err)
		cancel()
		os.Exit(1)
	}
	cancel()

	// Redis backs the rate limiter; without it the limiter falls back to
	// local buckets, so a failed ping is only worth a warning.
	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rc.Close()

		pingCtx, cancel := config.WithTimeout(2 * time.Second)

		if err := rc.Ping(pingCtx); err != nil {
			log.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "err", err)
		}
		cancel()

		deps.Redis = rc.Raw()
		deps.PingRedis = rc.Ping
	}

	router := httpx.NewRouter(log, cfg, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}

		if tracerShutdown != nil {
			if err := tracerShutdown(ctx); err != nil {
				log.Error("tracer shutdown failed", "err", err)
			}
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
