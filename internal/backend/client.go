// Package backend talks to the remote chat service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/mindchat/internal/domain"
)

const (
	OpNewSession   = "new-session"
	OpGetHistory   = "get-history"
	OpPostMessage  = "post-message"
	OpClearSession = "clear-session"
)

// Client wraps the four chat service operations. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type newSessionResponse struct {
	SessionID string `json:"sessionId"`
}

type historyEntry struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type clearRequest struct {
	SessionID string `json:"sessionId"`
}

func (c *Client) CreateSession(ctx context.Context) (string, error) {
	var resp newSessionResponse
	if _, err := c.do(ctx, OpNewSession, http.MethodGet, "/session/new", nil, &resp); err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", &RequestError{Op: OpNewSession, Kind: domain.ErrServer, Err: errors.New("empty session id")}
	}
	return resp.SessionID, nil
}

// FetchHistory returns the stored messages of a session. An unknown session
// yields an empty history.
func (c *Client) FetchHistory(ctx context.Context, sessionID string) ([]domain.Message, error) {
	var entries []historyEntry
	status, err := c.do(ctx, OpGetHistory, http.MethodGet, "/history/"+url.PathEscape(sessionID), nil, &entries)
	if status == http.StatusNotFound {
		return []domain.Message{}, nil
	}
	if err != nil {
		return nil, err
	}

	msgs := make([]domain.Message, 0, len(entries))
	for _, e := range entries {
		sender := domain.SenderBot
		if strings.EqualFold(e.Sender, string(domain.SenderUser)) {
			sender = domain.SenderUser
		}
		msgs = append(msgs, domain.Message{Sender: sender, Text: e.Text})
	}
	return msgs, nil
}

// SendMessage posts a user message and returns the bot reply.
func (c *Client) SendMessage(ctx context.Context, sessionID, text string) (domain.Message, error) {
	var resp chatResponse
	if _, err := c.do(ctx, OpPostMessage, http.MethodPost, "/chat", chatRequest{SessionID: sessionID, Message: text}, &resp); err != nil {
		return domain.Message{}, err
	}
	if resp.Response == "" {
		return domain.Message{}, &RequestError{Op: OpPostMessage, Kind: domain.ErrServer, Err: errors.New("empty reply")}
	}
	return domain.Message{Sender: domain.SenderBot, Text: resp.Response}, nil
}

// ClearHistory wipes a session on the backend. Clearing an unknown session succeeds.
func (c *Client) ClearHistory(ctx context.Context, sessionID string) error {
	status, err := c.do(ctx, OpClearSession, http.MethodPost, "/session/clear", clearRequest{SessionID: sessionID}, nil)
	if status == http.StatusNotFound {
		return nil
	}
	return err
}

// do performs one request and decodes a JSON body into out when out is non-nil.
// The HTTP status is returned even when err is set, 0 if no response arrived.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &RequestError{Op: op, Kind: transportKind(err), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &RequestError{Op: op, Status: resp.StatusCode, Kind: transportKind(err), Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &RequestError{Op: op, Status: resp.StatusCode, Kind: domain.ErrServer, Err: errors.New(summarize(data))}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, &RequestError{Op: op, Status: resp.StatusCode, Kind: domain.ErrServer, Err: fmt.Errorf("parse response: %w", err)}
	}
	return resp.StatusCode, nil
}

func summarize(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "empty body"
	}
	if r := []rune(s); len(r) > 200 {
		return string(r[:200]) + "..."
	}
	return s
}
