package middleware

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/mindchat/internal/service"
)

type ctxKey string

const chatKey ctxKey = "chat"

// Owner returns the session owner name of a Telegram chat.
func Owner(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

// GetChat extracts the chat loaded by ChatLoader.
func GetChat(ctx context.Context) *service.Chat {
	c, ok := ctx.Value(chatKey).(*service.Chat)
	if !ok {
		return nil
	}
	return c
}

// WithChat stores chat in ctx.
func WithChat(ctx context.Context, chat *service.Chat) context.Context {
	return context.WithValue(ctx, chatKey, chat)
}

// ChatLoader returns middleware that loads the chat's sessions into context.
// A chat whose bootstrap failed is still passed on; handlers see it without
// an active session.
func ChatLoader(manager *service.Manager) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			info := Describe(update)
			if info.ChatID == 0 {
				next(ctx, b, update)
				return
			}

			chat, err := manager.Get(ctx, Owner(info.ChatID))
			if err != nil {
				slog.Warn("initialize chat", "chat_id", info.ChatID, "error", err)
			}
			next(WithChat(ctx, chat), b, update)
		}
	}
}
