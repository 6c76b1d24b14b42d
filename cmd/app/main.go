package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medportal/portal-backend/internal/config"
	"github.com/medportal/portal-backend/internal/diagnosis"
	"github.com/medportal/portal-backend/internal/llm"
	"github.com/medportal/portal-backend/internal/logging"
	"github.com/medportal/portal-backend/internal/post"
	"github.com/medportal/portal-backend/internal/store"
	"github.com/medportal/portal-backend/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logging.Setup(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.StoreURL)
	if err != nil {
		slog.Error("connect to store", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := store.Migrate(ctx, db); err != nil {
		slog.Error("migrate store", "err", err)
		os.Exit(1)
	}

	userService := user.NewService(user.NewPostgresRepository(db))
	postService := post.NewService(post.NewPostgresRepository(db))
	diagnosisService := diagnosis.NewService(
		llm.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIBaseURL),
		cfg.OpenAIModel,
		cfg.DiagnosisTimeout,
	)

	app := newApp(cfg, deps{
		users:     userService,
		posts:     postService,
		diagnoses: diagnosisService,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			slog.Error("shutdown", "err", err)
		}
	}()

	slog.Info("starting server", "addr", cfg.Addr)
	if err := app.Listen(cfg.Addr); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
