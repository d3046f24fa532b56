package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/", 2*time.Second)
}

func TestClient_CreateSession(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/session/new", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Write([]byte(`{"sessionId":"abc"}`))
	})

	id, err := c.CreateSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
}

func TestClient_CreateSession_EmptyID(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	_, err := c.CreateSession(context.Background())
	assert.ErrorIs(t, err, domain.ErrServer)
}

func TestClient_FetchHistory(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/history/abc":
			w.Write([]byte(`[{"sender":"user","text":"hi"},{"sender":"bot","text":"hello"}]`))
		default:
			http.NotFound(w, r)
		}
	})

	t.Run("KnownSession", func(t *testing.T) {
		msgs, err := c.FetchHistory(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, []domain.Message{
			{Sender: domain.SenderUser, Text: "hi"},
			{Sender: domain.SenderBot, Text: "hello"},
		}, msgs)
	})

	t.Run("UnknownSessionIsEmpty", func(t *testing.T) {
		msgs, err := c.FetchHistory(context.Background(), "missing")
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})
}

func TestClient_SendMessage(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "abc", req.SessionID)
		assert.Equal(t, "What's new?", req.Message)

		w.Write([]byte(`{"response":"Not much."}`))
	})

	reply, err := c.SendMessage(context.Background(), "abc", "What's new?")
	require.NoError(t, err)
	assert.Equal(t, domain.Message{Sender: domain.SenderBot, Text: "Not much."}, reply)
}

func TestClient_ClearHistory(t *testing.T) {
	var cleared []string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req clearRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.SessionID == "missing" {
			http.NotFound(w, r)
			return
		}
		cleared = append(cleared, req.SessionID)
		w.Write([]byte(`{"message":"cleared"}`))
	})

	require.NoError(t, c.ClearHistory(context.Background(), "abc"))
	require.NoError(t, c.ClearHistory(context.Background(), "missing"))
	assert.Equal(t, []string{"abc"}, cleared)
}

func TestClient_ErrorKinds(t *testing.T) {
	t.Run("ServerError", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
		_, err := c.SendMessage(context.Background(), "abc", "hi")
		assert.ErrorIs(t, err, domain.ErrServer)

		var reqErr *RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, OpPostMessage, reqErr.Op)
		assert.Equal(t, http.StatusInternalServerError, reqErr.Status)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		})
		_, err := c.FetchHistory(context.Background(), "abc")
		assert.ErrorIs(t, err, domain.ErrServer)
	})

	t.Run("NetworkError", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		c := NewClient(srv.URL, time.Second)

		_, err := c.CreateSession(context.Background())
		assert.ErrorIs(t, err, domain.ErrNetwork)
	})

	t.Run("Timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		t.Cleanup(srv.Close)
		t.Cleanup(func() { close(release) })

		c := NewClient(srv.URL, 50*time.Millisecond)
		_, err := c.SendMessage(context.Background(), "abc", "hi")
		assert.ErrorIs(t, err, domain.ErrTimeout)
	})
}

func TestMock_FailAndRecover(t *testing.T) {
	m := NewMock()
	m.Fail(OpNewSession, domain.ErrNetwork)

	_, err := m.CreateSession(context.Background())
	assert.ErrorIs(t, err, domain.ErrNetwork)

	m.Fail(OpNewSession, nil)
	id, err := m.CreateSession(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 2, m.Calls(OpNewSession))
}
