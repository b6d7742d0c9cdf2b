package sms

import (
	"context"
	"regexp"
	"sync"
)

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

// CaptureProvider records sends in memory instead of delivering them. Set Err
// to make every Send fail after it is recorded.
type CaptureProvider struct {
	mu    sync.Mutex
	Calls []CaptureCall
	Err   error
}

// CaptureCall records a single Send invocation.
type CaptureCall struct {
	To   string
	Body string
}

func (c *CaptureProvider) Send(_ context.Context, to, body string) (*SendResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, CaptureCall{To: to, Body: body})
	if c.Err != nil {
		return nil, c.Err
	}
	return &SendResult{Status: "captured"}, nil
}

// Count returns the number of recorded sends.
func (c *CaptureProvider) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

// LastCode extracts the 6-digit code from the last captured body.
func (c *CaptureProvider) LastCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Calls) == 0 {
		return ""
	}
	m := codePattern.FindStringSubmatch(c.Calls[len(c.Calls)-1].Body)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// Reset clears recorded calls and any injected error.
func (c *CaptureProvider) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = nil
	c.Err = nil
}
