package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"

	"github.com/set-night/mindchat/internal/config"
)

type LogType string

const (
	LogTypeError   LogType = "error"
	LogTypeSession LogType = "session"
)

// OpsLogger mirrors errors and session lifecycle events to a Telegram log
// chat. It does nothing unless LOG_TELEGRAM_CHAT_ID and the topic for the
// event type are configured.
type OpsLogger struct {
	api API
	cfg *config.Config
}

func NewOpsLogger(api API, cfg *config.Config) *OpsLogger {
	return &OpsLogger{api: api, cfg: cfg}
}

func (l *OpsLogger) Log(logType LogType, message string) {
	if l == nil || l.cfg.LogTelegramChatID == 0 {
		return
	}

	topicID := l.topicID(logType)
	if topicID == 0 {
		return
	}

	if len([]rune(message)) > config.MaxTelegramMessageLen {
		message = string([]rune(message)[:config.MaxTelegramMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            message,
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "type", logType, "error", err)
	}
}

// LogError reports err with a short description of where it happened.
func (l *OpsLogger) LogError(err error, where string) {
	msg := fmt.Sprintf("❌ Error\n\nContext: %s\nError: %s\nTime: %s",
		where, err.Error(), time.Now().Format("2006-01-02 15:04:05"))
	l.Log(LogTypeError, msg)
}

// LogSessionEvent reports a session lifecycle event such as "created" or "deleted".
func (l *OpsLogger) LogSessionEvent(chatID int64, event, sessionID string) {
	msg := fmt.Sprintf("💬 Session %s\n\nChat: %d\nSession: %s", event, chatID, sessionID)
	l.Log(LogTypeSession, msg)
}

func (l *OpsLogger) topicID(logType LogType) int {
	switch logType {
	case LogTypeError:
		return l.cfg.LogTopicError
	case LogTypeSession:
		return l.cfg.LogTopicSessions
	default:
		return 0
	}
}
