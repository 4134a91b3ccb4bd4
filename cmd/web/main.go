package main

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pajangan-promoshot/internal/config"
	"pajangan-promoshot/internal/gemini"
	"pajangan-promoshot/internal/httpclient"
	"pajangan-promoshot/internal/imageproc"
	"pajangan-promoshot/internal/promo"
	"pajangan-promoshot/internal/session"
	"pajangan-promoshot/internal/web"
)

//go:embed static/*
var staticFS embed.FS

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := promo.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		logger.Error("catalog load failed", "path", cfg.CatalogFile, "err", err)
		os.Exit(1)
	}

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	gem, err := gemini.New(ctx, gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		Model:      cfg.GeminiModel,
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiAPIVersion,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("gemini init failed", "err", err)
		os.Exit(1)
	}

	dispatcher, err := promo.NewDispatcher(promo.Options{
		Generator: gem,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("dispatcher init failed", "err", err)
		os.Exit(1)
	}

	sessions := session.NewStore(session.Options{
		DefaultBackground: catalog.Default().Description,
		TTL:               cfg.SessionTTL,
	})
	go sessions.Janitor(ctx, 10*time.Minute)

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}

	srvHandler, err := web.New(web.Options{
		Generator:      dispatcher,
		Normalizer:     imageproc.Normalizer{FollowRatio: cfg.CanvasFollowsRatio},
		Sessions:       sessions,
		Catalog:        catalog,
		RequestTimeout: cfg.RequestTimeout,
		Static:         staticSub,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("web init failed", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           srvHandler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "err", err)
		}
	}()

	logger.Info("web started", "addr", cfg.WebAddr, "model", gem.Model(), "backgrounds", len(catalog.Backgrounds))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
