package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/sync/errgroup"

	"github.com/set-night/mindchat"
	"github.com/set-night/mindchat/internal/backend"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/handler"
	"github.com/set-night/mindchat/internal/middleware"
	"github.com/set-night/mindchat/internal/repository"
	"github.com/set-night/mindchat/internal/service"
	"github.com/set-night/mindchat/internal/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.BotToken == "" {
		slog.Error("BOT_TOKEN is required")
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the client state store
	kv, err := repository.Open(ctx, repository.Options{
		Driver:      cfg.StoreDriver,
		Path:        cfg.StorePath,
		DatabaseURL: cfg.DatabaseURL,
		Migrations:  mindchat.MigrationsFS,
	})
	if err != nil {
		slog.Error("failed to open state store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	// Initialize services
	chatService := backend.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	manager := service.NewManager(chatService, func(owner string) service.Persistence {
		return repository.NewAdapter(kv, owner, cfg.StoreSchema)
	}, cfg.MaxSessions, config.IdleChatTTL)
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	// Handler pointer for use in default handler closure
	var h *handler.Handler
	var ops *telegram.OpsLogger

	// Create bot
	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(func(err error, where string) { ops.LogError(err, where) }),
			middleware.Logging(),
			limiter.Middleware(),
			middleware.ChatLoader(manager),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h == nil || update.Message == nil {
				return
			}
			h.HandleText(ctx, b, update)
		}),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	// Get bot info
	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	ops = telegram.NewOpsLogger(b, cfg)

	// Initialize handler
	h = handler.New(handler.Deps{
		Bot:     b,
		Cfg:     cfg,
		Manager: manager,
		Ops:     ops,
	})
	h.Register()

	if cfg.DropPendingUpdates {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			slog.Warn("failed to drop pending updates", "error", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	// Drop idle chats from memory; their sessions stay in the store
	g.Go(func() error {
		return manager.RunEviction(gctx, config.ChatEvictionInterval)
	})

	// Forget rate limit buckets of quiet chats
	g.Go(func() error {
		ticker := time.NewTicker(config.ChatEvictionInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-ticker.C:
				limiter.Prune(now, config.IdleChatTTL)
			}
		}
	})

	// Start bot
	g.Go(func() error {
		slog.Info("starting bot", "username", me.Username, "id", me.ID, "store", cfg.StoreDriver)
		b.Start(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("bot stopped with error", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown
	slog.Info("bot stopped gracefully")
}
