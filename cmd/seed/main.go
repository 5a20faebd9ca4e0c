// Command seed loads demo users and tasks into the configured database.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tasky-api/internal/audit"
	"tasky-api/internal/auth"
	"tasky-api/internal/config"
	"tasky-api/internal/identity"
	"tasky-api/internal/ownership"
	"tasky-api/internal/schema"
	"tasky-api/internal/tasks"
	"tasky-api/pkg/logger"
	"tasky-api/pkg/utils"

	"github.com/joho/godotenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)
	ctx = logger.With(ctx, log)

	db, err := utils.OpenPostgres(ctx, cfg.PostgresDSN(), utils.PoolConfig{MaxOpenConns: 2})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := schema.Apply(ctx, db); err != nil {
		log.Error("schema apply failed", "err", err)
		os.Exit(1)
	}

	manager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}
	store := identity.NewPGStore(db)
	auditSvc := audit.NewService(audit.NewPGRepo(db))
	authSvc, err := auth.NewService(store, auth.NewBcryptHasher(cfg.Auth.BcryptCost), manager, auth.WithAudit(auditSvc))
	if err != nil {
		log.Error("auth service init failed", "err", err)
		os.Exit(1)
	}
	taskSvc := tasks.NewService(tasks.NewPGRepo(db), ownership.Authorizer{})

	sum, err := seed(ctx, authSvc, store, taskSvc)
	if err != nil {
		log.Error("seed failed", "err", err)
		os.Exit(1)
	}
	log.Info("seed complete",
		"users_created", sum.UsersCreated,
		"users_skipped", sum.UsersSkipped,
		"tasks_created", sum.TasksCreated,
		"password", demoPassword,
	)
}
