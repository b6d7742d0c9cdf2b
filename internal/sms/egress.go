package sms

import (
	"fmt"
	"net/http"
	"strings"
)

// EgressPolicy is an http.RoundTripper that only lets requests through to
// an allow-listed set of hosts. An empty list allows every host.
type EgressPolicy struct {
	allowed map[string]struct{}
	next    http.RoundTripper
}

// NewEgressPolicy wraps next (http.DefaultTransport when nil).
func NewEgressPolicy(allowedHosts []string, next http.RoundTripper) *EgressPolicy {
	if next == nil {
		next = http.DefaultTransport
	}
	p := &EgressPolicy{next: next}
	if len(allowedHosts) > 0 {
		p.allowed = make(map[string]struct{}, len(allowedHosts))
		for _, h := range allowedHosts {
			h = strings.ToLower(strings.TrimSpace(h))
			if h != "" {
				p.allowed[h] = struct{}{}
			}
		}
	}
	return p
}

// Allows reports whether requests to host may leave the process.
func (p *EgressPolicy) Allows(host string) bool {
	if len(p.allowed) == 0 {
		return true
	}
	_, ok := p.allowed[strings.ToLower(host)]
	return ok
}

func (p *EgressPolicy) RoundTrip(req *http.Request) (*http.Response, error) {
	host := req.URL.Hostname()
	if !p.Allows(host) {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, fmt.Errorf("%w: %s", ErrEgressBlocked, host)
	}
	return p.next.RoundTrip(req)
}
