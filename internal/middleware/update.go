package middleware

import "github.com/go-telegram/bot/models"

// UpdateInfo describes who an update came from.
type UpdateInfo struct {
	Type   string
	ChatID int64
	UserID int64
}

// Describe extracts the chat and sender of an update.
func Describe(update *models.Update) UpdateInfo {
	info := UpdateInfo{Type: "unknown"}
	switch {
	case update.Message != nil:
		info.Type = "message"
		info.ChatID = update.Message.Chat.ID
		if update.Message.From != nil {
			info.UserID = update.Message.From.ID
		}
	case update.CallbackQuery != nil:
		info.Type = "callback_query"
		if update.CallbackQuery.Message.Message != nil {
			info.ChatID = update.CallbackQuery.Message.Message.Chat.ID
		}
		info.UserID = update.CallbackQuery.From.ID
	}
	return info
}
