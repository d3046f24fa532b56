package domain

import "errors"

var (
	ErrNetwork            = errors.New("network error")
	ErrServer             = errors.New("server error")
	ErrTimeout            = errors.New("request timed out")
	ErrUnknownSession     = errors.New("unknown session")
	ErrNoActiveSession    = errors.New("no active session")
	ErrBusy               = errors.New("reply in progress")
	ErrEmptyMessage       = errors.New("empty message")
	ErrBootstrapThrottled = errors.New("session bootstrap throttled")
)
