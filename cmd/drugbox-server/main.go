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

	"github.com/redis/go-redis/v9"

	"github.com/BrandonDHaskell/drugbox/internal/auth"
	"github.com/BrandonDHaskell/drugbox/internal/config"
	"github.com/BrandonDHaskell/drugbox/internal/db"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/limiter"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/service"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store/memory"
	pgstore "github.com/BrandonDHaskell/drugbox/internal/drugbox/store/postgres"
	sqlitestore "github.com/BrandonDHaskell/drugbox/internal/drugbox/store/sqlite"
	"github.com/BrandonDHaskell/drugbox/internal/grpcapi"
	"github.com/BrandonDHaskell/drugbox/internal/httpapi"
	"github.com/BrandonDHaskell/drugbox/internal/logging"
	"github.com/BrandonDHaskell/drugbox/internal/metrics"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat).With("app", "drugbox-server")

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store
	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Lockout
	lim, closeLimiter, err := openLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	// Services
	m := metrics.New()
	registry := service.NewRegistry(st, logger, m)
	authorizer := service.NewAuthorizer(service.AuthorizerDeps{
		Store:    st,
		Limiter:  lim,
		Logger:   logger,
		Recorder: m,
	})
	scheduler := service.NewScheduler(st, logger)
	directory := service.NewDirectory(st)

	var signer *auth.Signer
	if cfg.AdminEnabled() {
		signer = auth.NewSigner(cfg.AdminJWTSecret, cfg.AdminJWTIssuer)
	} else {
		logger.Info("admin api disabled", "reason", "DRUGBOX_ADMIN_JWT_SECRET not set")
	}

	pruner := service.NewEventPruner(st, service.PrunerConfig{
		RetentionDays: cfg.EventRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	// gRPC health
	if cfg.GRPCAddr != "" {
		hs := grpcapi.NewHealthServer(grpcapi.Config{Addr: cfg.GRPCAddr}, st, logger)
		go func() {
			if err := hs.Start(ctx); err != nil {
				logger.Error("grpc health server error", "err", err)
				stop()
			}
		}()
		defer hs.Stop()
	}

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:     logger,
		Addr:       cfg.HTTPAddr,
		Registry:   registry,
		Authorizer: authorizer,
		Scheduler:  scheduler,
		Directory:  directory,
		Health:     st,
		Metrics:    m,
		Signer:     signer,
	})

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr, "env", cfg.Env, "db_driver", cfg.DBDriver)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, func(), error) {
	switch cfg.DBDriver {
	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.New(), func() {}, nil

	case "postgres":
		pool, err := db.OpenPostgres(ctx, db.PostgresConfig{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		st := pgstore.New(pool)
		return st, func() { _ = st.Close() }, nil

	default:
		sqlDB, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if cfg.Env == "dev" && cfg.SeedDev {
			if err := db.SeedDev(ctx, sqlDB, db.SeedDevOptions{}); err != nil {
				_ = sqlDB.Close()
				return nil, nil, fmt.Errorf("seed dev: %w", err)
			}
			logger.Info("dev seed applied")
		}
		st := sqlitestore.New(sqlDB, db.NewWorker(sqlDB))
		return st, func() {
			_ = st.Close()
			_ = sqlDB.Close()
		}, nil
	}
}

// openLimiter returns nil when lockout is disabled. With a Redis address the
// counters are shared between replicas; otherwise they live in process.
func openLimiter(ctx context.Context, cfg config.Config, logger *slog.Logger) (service.AttemptLimiter, func(), error) {
	if cfg.MaxFingerprintFailures <= 0 {
		return nil, func() {}, nil
	}
	lcfg := limiter.Config{MaxFailures: cfg.MaxFingerprintFailures, Window: cfg.LockoutWindow}

	if cfg.RedisAddr == "" {
		logger.Info("fingerprint lockout enabled", "backend", "memory", "max_failures", lcfg.MaxFailures)
		return limiter.NewMemory(lcfg), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("fingerprint lockout enabled", "backend", "redis", "max_failures", lcfg.MaxFailures)
	return limiter.NewRedis(client, lcfg), func() { _ = client.Close() }, nil
}
