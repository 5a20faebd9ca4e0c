package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tasky-api/internal/audit"
	"tasky-api/internal/auth"
	"tasky-api/internal/config"
	"tasky-api/internal/httpapi"
	"tasky-api/internal/identity"
	"tasky-api/internal/metrics"
	"tasky-api/internal/ownership"
	"tasky-api/internal/schema"
	"tasky-api/internal/tasks"
	"tasky-api/internal/throttle"
	"tasky-api/pkg/logger"
	"tasky-api/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := schema.Apply(rootCtx, db); err != nil {
		log.Error("schema apply failed", "err", err)
		os.Exit(1)
	}

	met := metrics.New()
	auditSvc := audit.NewService(audit.NewPGRepo(db))

	authOpts := []auth.Option{auth.WithAudit(auditSvc), auth.WithMetrics(met)}
	limiter, rdb := newLoginLimiter(rootCtx, log, cfg)
	if rdb != nil {
		defer rdb.Close()
	}
	if limiter != nil {
		authOpts = append(authOpts, auth.WithLimiter(limiter))
	}

	authSvc, err := auth.NewService(identity.NewPGStore(db), auth.NewBcryptHasher(cfg.Auth.BcryptCost), authManager, authOpts...)
	if err != nil {
		log.Error("auth service init failed", "err", err)
		os.Exit(1)
	}

	policy := ownership.RevealExistence
	if cfg.Tasks.HideForeign {
		policy = ownership.HideForeign
	}
	taskSvc := tasks.NewService(tasks.NewPGRepo(db), ownership.Authorizer{Policy: policy},
		tasks.WithAudit(auditSvc),
		tasks.WithMetrics(met),
	)

	h := httpapi.Handlers{
		Auth:  authSvc,
		Tasks: taskSvc,
		Ping: func(ctx context.Context) error {
			return utils.HealthCheck(ctx, db, 2*time.Second)
		},
	}
	r := newRouter(log, cfg, met)
	httpapi.Register(r, h, auth.RequireAccessToken(authManager, authSvc, met))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// loadLocalEnv reads .env when present. Real environment variables win.
func loadLocalEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env", "err", err)
	}
}

// newLoginLimiter prefers Redis so every instance shares one budget per
// email and IP. Without Redis each process counts on its own.
func newLoginLimiter(ctx context.Context, log *slog.Logger, cfg config.Config) (throttle.Limiter, *redis.Client) {
	if cfg.Auth.LoginMaxAttempts == 0 {
		log.Info("login throttling disabled")
		return nil, nil
	}

	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(ctx, utils.RedisOptions{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn("redis unavailable, login throttling is per process", "err", err)
		} else {
			lim, err := throttle.NewRedisLimiter(rdb, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow)
			if err == nil {
				return lim, rdb
			}
			_ = rdb.Close()
			log.Warn("redis limiter init failed, login throttling is per process", "err", err)
		}
	}

	lim, err := throttle.NewMemoryLimiter(cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow)
	if err != nil {
		log.Error("login limiter init failed", "err", err)
		os.Exit(1)
	}
	return lim, nil
}
