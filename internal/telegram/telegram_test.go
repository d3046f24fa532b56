package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/mindchat/internal/config"
)

type fakeAPI struct {
	mu          sync.Mutex
	sent        []*bot.SendMessageParams
	edited      []*bot.EditMessageTextParams
	actions     int
	rejectParse bool
}

func (f *fakeAPI) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectParse && params.ParseMode != "" {
		return nil, errors.New("bad request: can't parse entities")
	}
	cp := *params
	f.sent = append(f.sent, &cp)
	return &models.Message{ID: len(f.sent)}, nil
}

func (f *fakeAPI) EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited = append(f.edited, params)
	return &models.Message{ID: params.MessageID}, nil
}

func (f *fakeAPI) SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions++
	return true, nil
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))

	text := strings.Repeat("a", 8) + "\n" + strings.Repeat("b", 8)
	assert.Equal(t, []string{strings.Repeat("a", 8) + "\n", strings.Repeat("b", 8)}, SplitMessage(text, 10))

	words := "alpha beta gamma delta"
	parts := SplitMessage(words, 12)
	assert.Equal(t, "alpha beta ", parts[0])
	assert.Equal(t, words, strings.Join(parts, ""))

	solid := strings.Repeat("ж", 25)
	parts = SplitMessage(solid, 10)
	require.Len(t, parts, 3)
	for _, p := range parts {
		assert.LessOrEqual(t, utf8.RuneCountInString(p), 10)
	}
	assert.Equal(t, solid, strings.Join(parts, ""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 5))
	assert.Equal(t, "he...", Truncate("hello!", 5))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "Привет, ...", Truncate("Привет, мир и все", 11))
}

func TestFixMarkdown(t *testing.T) {
	assert.Equal(t, "plain", FixMarkdown("plain"))
	assert.Equal(t, "```go\nx := 1\n```", FixMarkdown("```go\nx := 1"))
	assert.Equal(t, "use `x`", FixMarkdown("use `x"))
	assert.Equal(t, "`a` and `b`", FixMarkdown("`a` and `b`"))
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "no markup 2 < 3", PlainText("no markup 2 < 3"))

	html := `<p>Hello <b>there</b></p><ul><li>one</li><li>two</li></ul><p>See <a href="https://example.com/?a=1&b=2">docs</a><br>bye</p>`
	got := PlainText(html)
	assert.Contains(t, got, "Hello there")
	assert.Contains(t, got, "• one")
	assert.Contains(t, got, "• two")
	assert.Contains(t, got, "docs (https://example.com/?a=1&b=2)")
	assert.Contains(t, got, "\nbye")
	assert.NotContains(t, got, "<")

	assert.Equal(t, "visible", PlainText(`<div>visible<script>alert(1)</script></div>`))
}

func TestPlainTextKeepsAngleBracketText(t *testing.T) {
	for _, text := range []string{
		"Use List<Integer> for that",
		"In Rust write Vec<String> and Option<T>",
		"if a<b and c>d",
		"<dyn Trait> and <T: Clone>",
		"HashMap<String, Vec<u8>>",
	} {
		assert.Equal(t, text, PlainText(text))
	}

	assert.Equal(t, "Use List<Integer> here", PlainText("<p>Use <code>List<Integer></code> here</p>"))
	assert.Equal(t, "if a<b and c>d", PlainText("<b>if a<b and c>d</b>"))
}

func TestPaginationRow(t *testing.T) {
	row := PaginationRow(0, 1, "sessions_page_")
	require.Len(t, row, 1)
	assert.Equal(t, NoopCallback, row[0].CallbackData)

	row = PaginationRow(1, 3, "sessions_page_")
	require.Len(t, row, 3)
	assert.Equal(t, "sessions_page_0", row[0].CallbackData)
	assert.Equal(t, "2/3", row[1].Text)
	assert.Equal(t, "sessions_page_2", row[2].CallbackData)
}

func TestCallbackData(t *testing.T) {
	data, ok := CallbackData("switch_session_", "8d2c2a8e-0a7b-4a52-9a9b-3f1f0f6c1d2e")
	assert.True(t, ok)
	assert.Equal(t, "switch_session_8d2c2a8e-0a7b-4a52-9a9b-3f1f0f6c1d2e", data)

	_, ok = CallbackData("switch_session_", strings.Repeat("x", config.MaxCallbackDataLen))
	assert.False(t, ok)
}

func TestSendLongMessageFallsBackToPlain(t *testing.T) {
	api := &fakeAPI{rejectParse: true}
	reply := 7
	markup := InlineKeyboard(ButtonRow(InlineButton("x", "y")))

	text := strings.Repeat("z", config.MaxTelegramMessageLen+10)
	require.NoError(t, SendLongMessage(context.Background(), api, 1, text, &reply, markup))

	require.Len(t, api.sent, 2)
	assert.Empty(t, api.sent[0].ParseMode)
	assert.Equal(t, 7, api.sent[0].ReplyParameters.MessageID)
	assert.Nil(t, api.sent[1].ReplyParameters)
	assert.Nil(t, api.sent[0].ReplyMarkup)
	assert.Equal(t, markup, api.sent[1].ReplyMarkup)
}

func TestEditText(t *testing.T) {
	api := &fakeAPI{}
	require.NoError(t, EditText(context.Background(), api, 5, 9, "updated", nil))
	require.Len(t, api.edited, 1)
	assert.Equal(t, 9, api.edited[0].MessageID)
	assert.Equal(t, "updated", api.edited[0].Text)
	assert.Nil(t, api.edited[0].ReplyMarkup)
}

func TestStartTypingSendsImmediately(t *testing.T) {
	api := &fakeAPI{}
	stop := StartTyping(context.Background(), api, 1)
	assert.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.actions >= 1
	}, time.Second, 5*time.Millisecond)
	stop()
}

func TestOpsLoggerRouting(t *testing.T) {
	api := &fakeAPI{}
	cfg := &config.Config{LogTelegramChatID: -100, LogTopicError: 3}
	l := NewOpsLogger(api, cfg)

	l.LogSessionEvent(42, "created", "abc")
	assert.Empty(t, api.sent, "no sessions topic configured")

	l.LogError(errors.New("boom"), "send message")
	require.Len(t, api.sent, 1)
	assert.Equal(t, 3, api.sent[0].MessageThreadID)
	assert.Equal(t, int64(-100), api.sent[0].ChatID)
	assert.Contains(t, api.sent[0].Text, "boom")

	var disabled *OpsLogger
	disabled.LogError(errors.New("ignored"), "nil logger")
}
