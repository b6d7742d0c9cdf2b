package sms

import (
	"context"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single provider call when no client is supplied.
const DefaultTimeout = 10 * time.Second

// SendResult holds the outcome of a provider Send call.
type SendResult struct {
	MessageID string
	Status    string
}

// Provider sends an SMS to a phone number.
type Provider interface {
	Send(ctx context.Context, to, body string) (*SendResult, error)
}

// NewHTTPClient returns the client used for provider calls. A non-empty
// allowedHosts list restricts outbound requests to those hosts.
func NewHTTPClient(timeout time.Duration, allowedHosts []string) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: NewEgressPolicy(allowedHosts, nil),
	}
}
