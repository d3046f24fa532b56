package handler

import (
	"github.com/go-telegram/bot"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/service"
	"github.com/set-night/mindchat/internal/telegram"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot     *bot.Bot
	cfg     *config.Config
	manager *service.Manager
	ops     *telegram.OpsLogger
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot     *bot.Bot
	Cfg     *config.Config
	Manager *service.Manager
	Ops     *telegram.OpsLogger
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:     deps.Bot,
		cfg:     deps.Cfg,
		manager: deps.Manager,
		ops:     deps.Ops,
	}
}
