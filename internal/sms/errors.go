package sms

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrEgressBlocked is returned when the outbound network policy refuses to
// let a request leave the process.
var ErrEgressBlocked = errors.New("egress blocked by network policy")

// TransportKind classifies a failed provider call that never produced an
// HTTP response.
type TransportKind int

const (
	TransportOther TransportKind = iota
	TransportRestricted
	TransportDNS
	TransportConnect
	TransportTimeout
)

func (k TransportKind) String() string {
	switch k {
	case TransportRestricted:
		return "restricted"
	case TransportDNS:
		return "dns"
	case TransportConnect:
		return "connect"
	case TransportTimeout:
		return "timeout"
	default:
		return "other"
	}
}

// Browser fetch failures as forwarded by upstream relays. Kept so that
// errors crossing a relay boundary still classify as restricted.
var restrictedSignatures = []string{"Failed to fetch", "NetworkError"}

// ClassifyTransport maps a transport-level error to a TransportKind.
func ClassifyTransport(err error) TransportKind {
	if err == nil {
		return TransportOther
	}
	if errors.Is(err, ErrEgressBlocked) {
		return TransportRestricted
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return TransportDNS
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return TransportTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TransportTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return TransportConnect
	}
	msg := err.Error()
	for _, sig := range restrictedSignatures {
		if strings.Contains(msg, sig) {
			return TransportRestricted
		}
	}
	return TransportOther
}

// TransportError reports a provider call that failed before any response
// was received.
type TransportError struct {
	Provider string
	Kind     TransportKind
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: send request: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProviderError reports a non-success HTTP response from a provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Code       int    // provider-specific error code, 0 if absent
	Message    string // provider-supplied message, "" if the body was not parseable
	Body       string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: error %d: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: error %d: %s", e.Provider, e.StatusCode, e.Body)
}
