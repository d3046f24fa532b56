package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/mindchat/internal/backend"
	"github.com/set-night/mindchat/internal/repository"
	"github.com/set-night/mindchat/internal/service"
)

func TestRateLimiterPerChat(t *testing.T) {
	r := NewRateLimiter(3)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		assert.True(t, r.allowAt(1, now), "message %d", i)
	}
	assert.False(t, r.allowAt(1, now))
	assert.True(t, r.allowAt(2, now), "other chats are independent")

	// one token per 20s
	assert.True(t, r.allowAt(1, now.Add(20*time.Second)))
	assert.False(t, r.allowAt(1, now.Add(21*time.Second)))
}

func TestRateLimiterDisabled(t *testing.T) {
	r := NewRateLimiter(0)
	for i := 0; i < 100; i++ {
		require.True(t, r.Allow(1))
	}
}

func TestRateLimiterPrune(t *testing.T) {
	r := NewRateLimiter(5)
	now := time.Now()
	r.allowAt(1, now.Add(-time.Hour))
	r.allowAt(2, now)

	assert.Equal(t, 1, r.Prune(now, 30*time.Minute))
	assert.Len(t, r.chats, 1)
}

func TestDescribe(t *testing.T) {
	msg := &models.Update{Message: &models.Message{
		Chat: models.Chat{ID: 10},
		From: &models.User{ID: 20},
	}}
	assert.Equal(t, UpdateInfo{Type: "message", ChatID: 10, UserID: 20}, Describe(msg))

	cb := &models.Update{CallbackQuery: &models.CallbackQuery{
		From: models.User{ID: 21},
		Message: models.MaybeInaccessibleMessage{
			Message: &models.Message{Chat: models.Chat{ID: 11}},
		},
	}}
	assert.Equal(t, UpdateInfo{Type: "callback_query", ChatID: 11, UserID: 21}, Describe(cb))

	assert.Equal(t, UpdateInfo{Type: "unknown"}, Describe(&models.Update{}))
}

func TestChatLoader(t *testing.T) {
	manager := service.NewManager(backend.NewMock(), func(owner string) service.Persistence {
		return repository.NewAdapter(repository.NewMemoryKV(), owner, "")
	}, 10, time.Minute)

	var got *service.Chat
	h := ChatLoader(manager)(func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
		got = GetChat(ctx)
	})

	h(context.Background(), nil, &models.Update{Message: &models.Message{Chat: models.Chat{ID: 5}}})
	require.NotNil(t, got)
	assert.NotEmpty(t, got.ActiveID())
	assert.Equal(t, 1, manager.Len())

	got = nil
	h(context.Background(), nil, &models.Update{})
	assert.Nil(t, got)
}

func TestOwner(t *testing.T) {
	assert.Equal(t, "tg:-1001", Owner(-1001))
}

func TestRecoverReportsPanic(t *testing.T) {
	var reported error
	h := Recover(func(err error, where string) {
		reported = err
		assert.Equal(t, "message in chat 3", where)
	})(func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
		panic("kaboom")
	})

	assert.NotPanics(t, func() {
		h(context.Background(), nil, &models.Update{Message: &models.Message{Chat: models.Chat{ID: 3}}})
	})
	require.Error(t, reported)
	assert.Contains(t, reported.Error(), "kaboom")
}
