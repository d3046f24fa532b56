package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/middleware"
	tg "github.com/set-night/mindchat/internal/telegram"
)

func (h *Handler) handleHistory(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	chat := middleware.GetChat(ctx)
	if chat == nil {
		return
	}
	if chat.ActiveID() == "" {
		tg.SendText(ctx, b, chatID, userMessage(domain.ErrNoActiveSession), nil)
		return
	}

	text := formatHistory(chat.Messages(), config.HistoryMessagesShown)
	if err := tg.SendLongMessage(ctx, b, chatID, text, nil, nil); err != nil {
		slog.Error("send history", "chat_id", chatID, "error", err)
	}
}

// formatHistory renders the last limit messages, oldest first.
func formatHistory(msgs []domain.Message, limit int) string {
	if len(msgs) == 0 {
		return "📭 No messages in this session yet."
	}

	var sb strings.Builder
	if len(msgs) > limit {
		fmt.Fprintf(&sb, "… %d earlier messages\n\n", len(msgs)-limit)
		msgs = msgs[len(msgs)-limit:]
	}
	for i, m := range msgs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if m.Sender == domain.SenderUser {
			sb.WriteString("👤 ")
			sb.WriteString(m.Text)
			continue
		}
		sb.WriteString("🤖 ")
		sb.WriteString(tg.PlainText(m.Text))
	}
	return sb.String()
}
