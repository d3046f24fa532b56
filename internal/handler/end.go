package handler

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/mindchat/internal/middleware"
	tg "github.com/set-night/mindchat/internal/telegram"
)

// handleEnd clears the active conversation and continues in a fresh session.
func (h *Handler) handleEnd(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	chat := middleware.GetChat(ctx)
	if chat == nil {
		return
	}

	old := chat.ActiveID()
	sess, err := chat.Reset(ctx)
	if err != nil {
		slog.Error("reset session", "chat_id", chatID, "error", err)
		tg.SendText(ctx, b, chatID, userMessage(err), nil)
		return
	}
	h.ops.LogSessionEvent(chatID, "reset", old+" -> "+sess.ID)

	tg.SendText(ctx, b, chatID, "🔄 Conversation cleared. A new session has started.", nil)
}
