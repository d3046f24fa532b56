package handler

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	tg "github.com/set-night/mindchat/internal/telegram"
)

// handleStats shows admins how many chats are held in memory.
func (h *Handler) handleStats(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	if !h.cfg.IsAdmin(update.Message.From.ID) {
		return
	}

	text := fmt.Sprintf("📊 Stats\n\nChats in memory: %d\nStore: %s (%s)\nSession cap: %d",
		h.manager.Len(), h.cfg.StoreDriver, h.cfg.StoreSchema, h.cfg.MaxSessions)
	tg.SendText(ctx, b, update.Message.Chat.ID, text, nil)
}
