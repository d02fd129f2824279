package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/libraryhub/internal/auth"
	"github.com/geocoder89/libraryhub/internal/cache"
	"github.com/geocoder89/libraryhub/internal/config"
	"github.com/geocoder89/libraryhub/internal/db"
	httpx "github.com/geocoder89/libraryhub/internal/http"
	"github.com/geocoder89/libraryhub/internal/observability"
	"github.com/geocoder89/libraryhub/internal/repo"
	"github.com/geocoder89/libraryhub/internal/repo/memory"
	"github.com/geocoder89/libraryhub/internal/repo/postgres"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const serviceName = "libraryhub"

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env, cfg.OTLPEndpoint != "")
	slog.SetDefault(log)

	ctx := context.Background()

	// tracing

	var shutdownTracer func(context.Context) error

	if cfg.OTLPEndpoint != "" {
		var err error

		shutdownTracer, err = observability.InitTracer(ctx, serviceName, cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}
	}

	// credential store

	var store repo.CredentialStore

	switch cfg.StoreDriver {
	case "postgres":
		if err := db.RunMigrations(ctx, cfg.DBURL); err != nil {
			log.Error("migrations failed", "err", err)
			os.Exit(1)
		}

		pool, err := db.NewPool(cfg.DBURL)

		if err != nil {
			log.Error("db connection failed", "err", err)
			os.Exit(1)
		}

		defer pool.Close()

		store = postgres.NewUsersRepo(pool)

	case "memory":
		store = memory.NewUsersRepo()

	default:
		log.Error("unknown store driver", "driver", cfg.StoreDriver)
		os.Exit(1)
	}

	// redis (user cache + shared rate limiting); optional

	var rdb *redis.Client

	if cfg.RedisAddr != "" {
		rdb = cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

		pctx, cancel := config.WithTimeout(2 * time.Second)
		err := rdb.Ping(pctx).Err()
		cancel()

		if err != nil {
			log.Warn("redis unreachable, using in-process cache", "err", err)
			_ = rdb.Close()
			rdb = nil
		}
	}

	var userCache cache.Users

	if rdb != nil {
		userCache = cache.NewRedisUsers(rdb, cfg.UserCacheTTL)
	} else {
		userCache = cache.NewMemoryUsers(cfg.UserCacheTTL)
	}

	if err := db.EnsureAdminUser(ctx, store, cfg); err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}

	// metrics

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewProm(reg)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.JWTExpiry)

	router := httpx.NewRouter(cfg, httpx.Deps{
		Store:    store,
		Cache:    userCache,
		JWT:      jwtManager,
		Metrics:  metrics,
		Registry: reg,
		Redis:    rdb,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		sctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}

		if shutdownTracer != nil {
			if err := shutdownTracer(sctx); err != nil {
				log.Error("tracer shutdown failed", "err", err)
			}
		}

		if rdb != nil {
			_ = rdb.Close()
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
