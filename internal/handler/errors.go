package handler

import (
	"errors"

	"github.com/set-night/mindchat/internal/domain"
)

// userMessage turns a session error into text shown in the chat.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrBusy):
		return "⏳ Please wait for the reply to your previous message."
	case errors.Is(err, domain.ErrEmptyMessage):
		return "✏️ Please send a non-empty message."
	case errors.Is(err, domain.ErrUnknownSession):
		return "⚠️ That session no longer exists."
	case errors.Is(err, domain.ErrBootstrapThrottled):
		return "⚠️ The chat service is unavailable. Please try again in a few seconds."
	case errors.Is(err, domain.ErrNoActiveSession):
		return "⚠️ No active session. Use /new to start one."
	case errors.Is(err, domain.ErrTimeout):
		return "⌛ The chat service did not answer in time. Please try again."
	case errors.Is(err, domain.ErrNetwork), errors.Is(err, domain.ErrServer):
		return "❌ The chat service is unavailable. Please try again later."
	default:
		return "❌ Something went wrong."
	}
}
