package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/mindchat/internal/backend"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/repository"
	"github.com/set-night/mindchat/internal/service"
)

func newREPLChat(t *testing.T, mock *backend.Mock) *service.Chat {
	t.Helper()
	chat := service.NewChat(mock, repository.NewAdapter(repository.NewMemoryKV(), "cli:test", ""), 10)
	require.NoError(t, chat.Initialize(context.Background()))
	return chat
}

func TestREPLConversation(t *testing.T) {
	mock := backend.NewMock()
	chat := newREPLChat(t, mock)

	in := strings.NewReader("hello there\n\n/history\n/quit\nnever sent\n")
	var out bytes.Buffer
	require.NoError(t, runREPL(context.Background(), chat, in, &out))

	got := out.String()
	assert.Contains(t, got, "bot: echo: hello there")
	assert.Contains(t, got, "you: hello there")
	assert.NotContains(t, got, "never sent")
	assert.Equal(t, 1, mock.Calls(backend.OpPostMessage))
}

func TestREPLSessionCommands(t *testing.T) {
	mock := backend.NewMock()
	chat := newREPLChat(t, mock)
	first := chat.ActiveID()

	in := strings.NewReader(strings.Join([]string{
		"first question",
		"/new",
		"/sessions",
		"/resume 2",
		"/delete 1",
		"/sessions",
	}, "\n") + "\n")
	var out bytes.Buffer
	require.NoError(t, runREPL(context.Background(), chat, in, &out))

	got := out.String()
	assert.Contains(t, got, "Started session ")
	assert.Contains(t, got, "Resumed session "+first)
	assert.Contains(t, got, "* "+" 1. first question")
	assert.Equal(t, first, chat.ActiveID())
	assert.Len(t, chat.Sessions(), 1)
}

func TestREPLSendFailureShowsPlaceholder(t *testing.T) {
	mock := backend.NewMock()
	chat := newREPLChat(t, mock)
	mock.Fail(backend.OpPostMessage, domain.ErrNetwork)

	var out bytes.Buffer
	require.NoError(t, runREPL(context.Background(), chat, strings.NewReader("What's new?\n"), &out))

	assert.Contains(t, out.String(), "bot: "+config.SendErrorText)
	assert.False(t, chat.Typing())
}

func TestREPLErrors(t *testing.T) {
	chat := newREPLChat(t, backend.NewMock())

	var out bytes.Buffer
	in := strings.NewReader("/resume\n/resume nope\n/bogus\n")
	require.NoError(t, runREPL(context.Background(), chat, in, &out))

	got := out.String()
	assert.Contains(t, got, "usage: /resume")
	assert.Contains(t, got, domain.ErrUnknownSession.Error())
	assert.Contains(t, got, "unknown command /bogus")
}

func TestResolveSession(t *testing.T) {
	sessions := []domain.Session{{ID: "a"}, {ID: "b"}}
	assert.Equal(t, "b", resolveSession(sessions, "2"))
	assert.Equal(t, "3", resolveSession(sessions, "3"))
	assert.Equal(t, "a", resolveSession(sessions, "a"))
}

func runRoot(t *testing.T, mock *backend.Mock, args ...string) (string, error) {
	t.Helper()
	a := newApp()
	a.newBackend = func(*config.Config) service.Backend { return mock }

	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	require.NoError(t, a.close())
	return out.String(), err
}

func TestRootSubcommandsShareStore(t *testing.T) {
	t.Setenv("STORE_DRIVER", "file")
	path := filepath.Join(t.TempDir(), "state.yaml")
	mock := backend.NewMock()

	_, err := runRoot(t, mock, "--path", path, "send", "hello", "world")
	require.NoError(t, err)

	out, err := runRoot(t, mock, "--path", path, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "hello world")
	assert.Equal(t, 1, mock.Calls(backend.OpNewSession))

	out, err = runRoot(t, mock, "--path", path, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "bot: echo: hello world")

	_, err = runRoot(t, mock, "--path", path, "--profile", "other", "list")
	require.NoError(t, err)
	assert.Equal(t, 2, mock.Calls(backend.OpNewSession))
}

func TestRootSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	mock := backend.NewMock()

	out, err := runRoot(t, mock, "--store", "sqlite", "--path", path, "new")
	require.NoError(t, err)
	assert.Contains(t, out, "Started session")

	out, err = runRoot(t, mock, "--store", "sqlite", "--path", path, "delete", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted all sessions")

	out, err = runRoot(t, mock, "--store", "sqlite", "--path", path, "list")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "New Chat"))
}

func TestRootRejectsBadFlags(t *testing.T) {
	_, err := runRoot(t, backend.NewMock(), "--store", "redis", "list")
	assert.Error(t, err)

	_, err = runRoot(t, backend.NewMock(), "--store", "memory", "delete")
	assert.Error(t, err)
}
