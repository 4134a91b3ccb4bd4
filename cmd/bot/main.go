package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pajangan-promoshot/internal/config"
	"pajangan-promoshot/internal/gemini"
	"pajangan-promoshot/internal/handlers"
	"pajangan-promoshot/internal/httpclient"
	"pajangan-promoshot/internal/imageproc"
	"pajangan-promoshot/internal/mediagroup"
	"pajangan-promoshot/internal/promo"
	"pajangan-promoshot/internal/session"
	"pajangan-promoshot/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.RequireTelegram(); err != nil {
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

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: httpClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

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

	handler, err := handlers.New(handlers.Options{
		Telegram:   tg,
		Generator:  dispatcher,
		Normalizer: imageproc.Normalizer{FollowRatio: cfg.CanvasFollowsRatio},
		Sessions:   sessions,
		Catalog:    catalog,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("handler init failed", "err", err)
		os.Exit(1)
	}

	sem := make(chan struct{}, cfg.MaxConcurrent)
	onGroupFlush := func(group mediagroup.Group) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		go func() {
			defer func() { <-sem }()

			reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()

			handler.HandleMediaGroup(reqCtx, group)
		}()
	}

	aggregator := mediagroup.New(mediagroup.Options{
		Debounce: cfg.MediaGroupDebounce,
		OnFlush:  onGroupFlush,
	})
	defer aggregator.Stop()
	handler.SetMediaGroupAggregator(aggregator)

	logger.Info("bot started", "username", tg.Username(), "model", gem.Model())

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			go func(update telegram.Update) {
				defer func() { <-sem }()

				reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
			}(update)
		}
	}
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
