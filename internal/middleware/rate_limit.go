package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"
)

const rateLimitedText = "⏳ Too many messages. Please wait a moment."

type chatLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps a token bucket per chat.
type RateLimiter struct {
	perMinute int

	mu    sync.Mutex
	chats map[int64]*chatLimiter
}

// NewRateLimiter allows perMinute messages per chat with bursts of the same
// size. A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		perMinute: perMinute,
		chats:     make(map[int64]*chatLimiter),
	}
}

// Allow reports whether chatID may send another message now.
func (r *RateLimiter) Allow(chatID int64) bool {
	return r.allowAt(chatID, time.Now())
}

func (r *RateLimiter) allowAt(chatID int64, now time.Time) bool {
	if r.perMinute <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cl, ok := r.chats[chatID]
	if !ok {
		cl = &chatLimiter{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(r.perMinute)), r.perMinute),
		}
		r.chats[chatID] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// Prune forgets chats not seen since before now-idle.
func (r *RateLimiter) Prune(now time.Time, idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, cl := range r.chats {
		if now.Sub(cl.lastSeen) >= idle {
			delete(r.chats, id)
			removed++
		}
	}
	return removed
}

// Middleware rate limits incoming messages. Callbacks are not limited.
func (r *RateLimiter) Middleware() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if update.Message == nil {
				next(ctx, b, update)
				return
			}

			chatID := update.Message.Chat.ID
			if !r.Allow(chatID) {
				slog.Debug("rate limited", "chat_id", chatID, "limit", r.perMinute)
				if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: chatID,
					Text:   rateLimitedText,
				}); err != nil {
					slog.Warn("send rate limit notice", "chat_id", chatID, "error", err)
				}
				return
			}

			next(ctx, b, update)
		}
	}
}
