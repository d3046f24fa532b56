package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/middleware"
	"github.com/set-night/mindchat/internal/service"
	tg "github.com/set-night/mindchat/internal/telegram"
)

func (h *Handler) handleSessions(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chat := middleware.GetChat(ctx)
	if chat == nil {
		return
	}
	h.sendSessionsPage(ctx, b, update.Message.Chat.ID, chat, 0, 0)
}

func (h *Handler) handleNew(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	chat := middleware.GetChat(ctx)
	if chat == nil {
		return
	}

	sess, err := chat.CreateSession(ctx)
	if err != nil {
		slog.Error("create session", "chat_id", chatID, "error", err)
		tg.SendText(ctx, b, chatID, userMessage(err), nil)
		return
	}
	h.ops.LogSessionEvent(chatID, "created", sess.ID)
	tg.SendText(ctx, b, chatID, "➕ New session started.", nil)
}

// sendSessionsPage shows the session list, editing messageID in place when
// it is set.
func (h *Handler) sendSessionsPage(ctx context.Context, b *bot.Bot, chatID int64, chat *service.Chat, page int, messageID int) {
	text, keyboard, _ := buildSessionsPage(chat.Sessions(), chat.ActiveID(), page)

	var err error
	if messageID != 0 {
		err = tg.EditText(ctx, b, chatID, messageID, text, keyboard)
	} else {
		err = tg.SendText(ctx, b, chatID, text, keyboard)
	}
	if err != nil {
		slog.Warn("show sessions", "chat_id", chatID, "error", err)
	}
}

// buildSessionsPage renders one page of the session list. It returns the
// page actually shown after clamping.
func buildSessionsPage(sessions []domain.Session, activeID string, page int) (string, *models.InlineKeyboardMarkup, int) {
	total := len(sessions)
	totalPages := (total + config.SessionsPerPage - 1) / config.SessionsPerPage
	if totalPages == 0 {
		totalPages = 1
	}
	if page >= totalPages {
		page = totalPages - 1
	}
	if page < 0 {
		page = 0
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📂 Sessions (%d)\n", total)
	for _, s := range sessions {
		if s.ID == activeID {
			fmt.Fprintf(&sb, "\nActive: %s", displayPreview(s.Preview))
			break
		}
	}

	var rows [][]models.InlineKeyboardButton

	start := page * config.SessionsPerPage
	end := min(start+config.SessionsPerPage, total)
	for i := start; i < end; i++ {
		s := sessions[i]
		label := displayPreview(s.Preview)
		if s.ID == activeID {
			label += " ✅"
		}
		data, ok := tg.CallbackData(cbSwitchSession, s.ID)
		if !ok {
			data = fmt.Sprintf("%s#%d", cbSwitchSession, i)
		}
		rows = append(rows, tg.ButtonRow(tg.InlineButton(label, data)))
	}

	rows = append(rows, tg.ButtonRow(
		tg.InlineButton("➕ New", cbNewSession),
		tg.InlineButton("🗑 Current", cbDeleteCurrent),
		tg.InlineButton("🗑 All", cbDeleteAll),
	))

	if totalPages > 1 {
		rows = append(rows, tg.PaginationRow(page, totalPages, cbSessionsPage))
	}

	return sb.String(), tg.InlineKeyboard(rows...), page
}

// displayPreview marks previews that were cut at the length limit.
func displayPreview(preview string) string {
	if preview == "" {
		preview = domain.DefaultPreview
	}
	if utf8.RuneCountInString(preview) >= config.MaxPreviewLen {
		return preview + "..."
	}
	return preview
}

// switchTarget resolves the session id of a switch_session callback. Ids too
// long for callback data are sent as "#<index>".
func switchTarget(sessions []domain.Session, data string) (string, bool) {
	arg := strings.TrimPrefix(data, cbSwitchSession)
	if !strings.HasPrefix(arg, "#") {
		return arg, arg != ""
	}
	i, err := strconv.Atoi(arg[1:])
	if err != nil || i < 0 || i >= len(sessions) {
		return "", false
	}
	return sessions[i].ID, true
}

// pageOf returns the page containing the session id.
func pageOf(sessions []domain.Session, id string) int {
	for i, s := range sessions {
		if s.ID == id {
			return i / config.SessionsPerPage
		}
	}
	return 0
}

func callbackTarget(update *models.Update) (chatID int64, messageID int) {
	if msg := update.CallbackQuery.Message.Message; msg != nil {
		return msg.Chat.ID, msg.ID
	}
	return 0, 0
}

// answerCallback acknowledges a callback, showing text as a toast when set.
func answerCallback(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
		Text:            text,
	})
}

func (h *Handler) handleNewSession(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	chat := middleware.GetChat(ctx)
	if chat == nil {
		answerCallback(ctx, b, update, "")
		return
	}
	chatID, messageID := callbackTarget(update)

	sess, err := chat.CreateSession(ctx)
	if err != nil {
		slog.Error("create session", "chat_id", chatID, "error", err)
		answerCallback(ctx, b, update, userMessage(err))
		return
	}
	answerCallback(ctx, b, update, "")
	h.ops.LogSessionEvent(chatID, "created", sess.ID)
	h.sendSessionsPage(ctx, b, chatID, chat, 0, messageID)
}

func (h *Handler) handleDeleteCurrentSession(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	chat := middleware.GetChat(ctx)
	if chat == nil {
		answerCallback(ctx, b, update, "")
		return
	}
	chatID, messageID := callbackTarget(update)

	id := chat.ActiveID()
	if id == "" {
		answerCallback(ctx, b, update, userMessage(domain.ErrNoActiveSession))
		return
	}
	if err := chat.DeleteSession(ctx, id); err != nil {
		slog.Error("delete session", "chat_id", chatID, "session_id", id, "error", err)
		answerCallback(ctx, b, update, userMessage(err))
		h.sendSessionsPage(ctx, b, chatID, chat, 0, messageID)
		return
	}
	answerCallback(ctx, b, update, "🗑 Session deleted")
	h.ops.LogSessionEvent(chatID, "deleted", id)
	h.sendSessionsPage(ctx, b, chatID, chat, 0, messageID)
}

func (h *Handler) handleDeleteAllSessions(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	chat := middleware.GetChat(ctx)
	if chat == nil {
		answerCallback(ctx, b, update, "")
		return
	}
	chatID, messageID := callbackTarget(update)

	if err := chat.DeleteAll(ctx); err != nil {
		slog.Error("delete all sessions", "chat_id", chatID, "error", err)
		answerCallback(ctx, b, update, userMessage(err))
		h.sendSessionsPage(ctx, b, chatID, chat, 0, messageID)
		return
	}
	answerCallback(ctx, b, update, "🗑 All sessions deleted")
	h.ops.LogSessionEvent(chatID, "deleted all", chat.ActiveID())
	h.sendSessionsPage(ctx, b, chatID, chat, 0, messageID)
}

func (h *Handler) handleSwitchSession(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	chat := middleware.GetChat(ctx)
	if chat == nil {
		answerCallback(ctx, b, update, "")
		return
	}
	chatID, messageID := callbackTarget(update)

	sessions := chat.Sessions()
	id, ok := switchTarget(sessions, update.CallbackQuery.Data)
	if !ok {
		answerCallback(ctx, b, update, userMessage(domain.ErrUnknownSession))
		return
	}

	if err := chat.ResumeSession(ctx, id); err != nil {
		slog.Warn("resume session", "chat_id", chatID, "session_id", id, "error", err)
		answerCallback(ctx, b, update, userMessage(err))
		h.sendSessionsPage(ctx, b, chatID, chat, 0, messageID)
		return
	}
	answerCallback(ctx, b, update, "✅ Session resumed")
	h.sendSessionsPage(ctx, b, chatID, chat, pageOf(sessions, id), messageID)
}

func (h *Handler) handleSessionsPage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	answerCallback(ctx, b, update, "")

	chat := middleware.GetChat(ctx)
	if chat == nil {
		return
	}
	chatID, messageID := callbackTarget(update)

	page, _ := strconv.Atoi(strings.TrimPrefix(update.CallbackQuery.Data, cbSessionsPage))
	h.sendSessionsPage(ctx, b, chatID, chat, page, messageID)
}
