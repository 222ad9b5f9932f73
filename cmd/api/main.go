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

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/rfmseg/internal/analysis"
	analysisStore "github.com/MrJamesThe3rd/rfmseg/internal/analysis/store"
	"github.com/MrJamesThe3rd/rfmseg/internal/config"
	"github.com/MrJamesThe3rd/rfmseg/internal/database"
	rfmHttp "github.com/MrJamesThe3rd/rfmseg/internal/http"
	analysisHandler "github.com/MrJamesThe3rd/rfmseg/internal/http/analysis"
	exportHandler "github.com/MrJamesThe3rd/rfmseg/internal/http/export"
	importHandler "github.com/MrJamesThe3rd/rfmseg/internal/http/importcsv"
	txHandler "github.com/MrJamesThe3rd/rfmseg/internal/http/transaction"
	"github.com/MrJamesThe3rd/rfmseg/internal/importer"
	"github.com/MrJamesThe3rd/rfmseg/internal/report"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
	txStore "github.com/MrJamesThe3rd/rfmseg/internal/transaction/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	var (
		transactionService = transaction.NewService(txStore.New(db))
		importService      = importer.NewService()
		analysisService    = analysis.NewService(analysisStore.New(db), transactionService, analysis.Options{
			ChurnThresholdDays: cfg.Analysis.ChurnThresholdDays,
			Workers:            cfg.Analysis.Workers,
			CacheTTL:           cfg.Analysis.CacheTTL,
		})
		publisher = report.NewPublisher(cfg.Report.WebhookURL, cfg.Report.WebhookToken)
	)

	var (
		transactionH = txHandler.NewHandler(transactionService)
		importH      = importHandler.NewHandler(importService, transactionService)
		analysisH    = analysisHandler.NewHandler(analysisService)
		exportH      = exportHandler.NewHandler(analysisService, transactionService, publisher)
	)

	router := rfmHttp.New(rfmHttp.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		JWTSecret:      cfg.Auth.JWTSecret,
	}, transactionH, importH, analysisH, exportH)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shut down server", "error", err)
		}
	}()

	slog.Info("starting server", "port", srv.Addr, "auth", cfg.Auth.JWTSecret != "")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
