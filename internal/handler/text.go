package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/mindchat/internal/middleware"
	tg "github.com/set-night/mindchat/internal/telegram"
)

// HandleText sends a private text message to the active session and
// replies with the assistant's answer.
func (h *Handler) HandleText(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}

	msg := update.Message
	if strings.HasPrefix(msg.Text, "/") {
		return
	}

	chat := middleware.GetChat(ctx)
	if chat == nil {
		return
	}
	chatID := msg.Chat.ID

	stopTyping := tg.StartTyping(ctx, b, chatID)
	reply, err := chat.Send(ctx, msg.Text)
	stopTyping()

	replyTo := msg.ID
	if err != nil {
		slog.Error("send message", "chat_id", chatID, "session_id", chat.ActiveID(), "error", err)
		if reply.Text == "" {
			// rejected before reaching the backend
			tg.SendText(ctx, b, chatID, userMessage(err), nil)
			return
		}
		if !errors.Is(err, context.Canceled) {
			h.ops.LogError(err, "send message")
		}
	}

	if err := tg.SendLongMessage(ctx, b, chatID, tg.PlainText(reply.Text), &replyTo, nil); err != nil {
		slog.Error("deliver reply", "chat_id", chatID, "error", err)
	}
}
