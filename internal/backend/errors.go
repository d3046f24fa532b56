package backend

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/set-night/mindchat/internal/domain"
)

// RequestError describes a failed call to the chat service. Kind is one of
// domain.ErrNetwork, domain.ErrServer or domain.ErrTimeout.
type RequestError struct {
	Op     string
	Status int
	Kind   error
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %v (status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *RequestError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// transportKind classifies an error returned by http.Client.Do.
func transportKind(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ErrTimeout
	}
	return domain.ErrNetwork
}
