package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Logging returns middleware that logs update processing time.
func Logging() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()
			info := Describe(update)

			next(ctx, b, update)

			slog.Debug("update processed",
				"type", info.Type,
				"chat_id", info.ChatID,
				"user_id", info.UserID,
				"duration", time.Since(start),
			)
		}
	}
}
