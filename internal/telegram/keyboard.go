package telegram

import (
	"fmt"

	"github.com/go-telegram/bot/models"

	"github.com/set-night/mindchat/internal/config"
)

// NoopCallback is the callback data of buttons that only display state.
const NoopCallback = "cur"

// InlineButton creates a single inline keyboard button.
func InlineButton(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// InlineKeyboard creates an inline keyboard from rows of buttons.
func InlineKeyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: rows,
	}
}

// ButtonRow creates a row of inline buttons.
func ButtonRow(buttons ...models.InlineKeyboardButton) []models.InlineKeyboardButton {
	return buttons
}

// PaginationRow creates a row with prev/next buttons around a page counter.
// Pages are zero-based; callbacks are prefix followed by the target page.
func PaginationRow(currentPage, totalPages int, callbackPrefix string) []models.InlineKeyboardButton {
	var row []models.InlineKeyboardButton

	if currentPage > 0 {
		row = append(row, InlineButton("⬅️", fmt.Sprintf("%s%d", callbackPrefix, currentPage-1)))
	}

	row = append(row, InlineButton(fmt.Sprintf("%d/%d", currentPage+1, totalPages), NoopCallback))

	if currentPage < totalPages-1 {
		row = append(row, InlineButton("➡️", fmt.Sprintf("%s%d", callbackPrefix, currentPage+1)))
	}

	return row
}

// CallbackData joins prefix and arg, reporting false when the result exceeds
// Telegram's callback data limit.
func CallbackData(prefix, arg string) (string, bool) {
	data := prefix + arg
	return data, len(data) <= config.MaxCallbackDataLen
}
