package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Recover returns middleware that recovers from handler panics. report, if
// set, receives each panic as an error.
func Recover(report func(err error, where string)) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			defer func() {
				if r := recover(); r != nil {
					info := Describe(update)
					slog.Error("panic recovered in handler",
						"panic", r,
						"chat_id", info.ChatID,
						"stack", string(debug.Stack()),
					)
					if report != nil {
						report(fmt.Errorf("panic: %v", r), fmt.Sprintf("%s in chat %d", info.Type, info.ChatID))
					}
				}
			}()
			next(ctx, b, update)
		}
	}
}
