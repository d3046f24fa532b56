package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/mindchat/internal/middleware"
	tg "github.com/set-night/mindchat/internal/telegram"
)

const welcomeText = "👋 Hi%s!\n\n" +
	"Send me a message and I will pass it to the assistant.\n\n" +
	"📋 Commands:\n" +
	"/sessions — Manage sessions\n" +
	"/new — Start a new session\n" +
	"/history — Show the current conversation\n" +
	"/end — Clear the conversation and start over\n\n" +
	"Current session: %s"

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	name := ""
	if update.Message.From != nil && update.Message.From.FirstName != "" {
		name = ", " + update.Message.From.FirstName
	}

	current := "none"
	if chat := middleware.GetChat(ctx); chat != nil {
		if active, ok := chat.Active(); ok {
			current = displayPreview(active.Preview)
		}
	}

	if err := tg.SendText(ctx, b, chatID, fmt.Sprintf(welcomeText, name, current), nil); err != nil {
		slog.Error("send welcome", "chat_id", chatID, "error", err)
	}
}
