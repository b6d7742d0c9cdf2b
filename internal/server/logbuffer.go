package server

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogEntry represents a single captured log line.
type LogEntry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`

	level slog.Level
}

// redactedKeys are attribute keys whose values never reach the buffer.
var redactedKeys = map[string]bool{
	"otp":       true,
	"code":      true,
	"apisecret": true,
	"password":  true,
	"token":     true,
}

const redacted = "[redacted]"

type logRing struct {
	mu      sync.Mutex
	entries []LogEntry
	pos     int
	full    bool
}

// LogBuffer is a ring-buffer slog.Handler that captures recent log entries
// while forwarding them to a wrapped handler. Handlers derived through
// WithAttrs or WithGroup share the same ring.
type LogBuffer struct {
	inner  slog.Handler
	ring   *logRing
	attrs  []slog.Attr
	prefix string
}

// NewLogBuffer creates a LogBuffer wrapping the given handler, retaining up to maxSize entries.
func NewLogBuffer(inner slog.Handler, maxSize int) *LogBuffer {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &LogBuffer{
		inner: inner,
		ring:  &logRing{entries: make([]LogEntry, maxSize)},
	}
}

// Enabled delegates to the inner handler.
func (lb *LogBuffer) Enabled(ctx context.Context, level slog.Level) bool {
	return lb.inner.Enabled(ctx, level)
}

// Handle captures the log record into the ring buffer and forwards to the inner handler.
func (lb *LogBuffer) Handle(ctx context.Context, r slog.Record) error {
	entry := LogEntry{
		Time:    r.Time,
		Level:   r.Level.String(),
		Message: r.Message,
		level:   r.Level,
	}

	if n := len(lb.attrs) + r.NumAttrs(); n > 0 {
		entry.Attrs = make(map[string]any, n)
		for _, a := range lb.attrs {
			entry.Attrs[a.Key] = a.Value.Any()
		}
		r.Attrs(func(a slog.Attr) bool {
			a = lb.scope(a)
			entry.Attrs[a.Key] = a.Value.Any()
			return true
		})
	}

	lb.ring.add(entry)
	return lb.inner.Handle(ctx, r)
}

// scope qualifies a with the current group prefix and redacts secrets.
func (lb *LogBuffer) scope(a slog.Attr) slog.Attr {
	if redactedKeys[strings.ToLower(a.Key)] {
		return slog.String(lb.prefix+a.Key, redacted)
	}
	return slog.Attr{Key: lb.prefix + a.Key, Value: a.Value.Resolve()}
}

// WithAttrs returns a handler that records attrs on every entry.
func (lb *LogBuffer) WithAttrs(attrs []slog.Attr) slog.Handler {
	scoped := make([]slog.Attr, 0, len(lb.attrs)+len(attrs))
	scoped = append(scoped, lb.attrs...)
	for _, a := range attrs {
		scoped = append(scoped, lb.scope(a))
	}
	return &LogBuffer{
		inner:  lb.inner.WithAttrs(attrs),
		ring:   lb.ring,
		attrs:  scoped,
		prefix: lb.prefix,
	}
}

// WithGroup returns a handler that prefixes later attribute keys with name.
func (lb *LogBuffer) WithGroup(name string) slog.Handler {
	if name == "" {
		return lb
	}
	return &LogBuffer{
		inner:  lb.inner.WithGroup(name),
		ring:   lb.ring,
		attrs:  lb.attrs,
		prefix: lb.prefix + name + ".",
	}
}

// Entries returns the buffered log entries in chronological order.
func (lb *LogBuffer) Entries() []LogEntry {
	return lb.ring.snapshot()
}

// EntriesAtLeast returns buffered entries at or above minLevel, oldest first.
func (lb *LogBuffer) EntriesAtLeast(minLevel slog.Level) []LogEntry {
	all := lb.ring.snapshot()
	out := all[:0]
	for _, e := range all {
		if e.level >= minLevel {
			out = append(out, e)
		}
	}
	return out
}

func (r *logRing) add(e LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.pos] = e
	r.pos++
	if r.pos >= len(r.entries) {
		r.pos = 0
		r.full = true
	}
}

func (r *logRing) snapshot() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		result := make([]LogEntry, r.pos)
		copy(result, r.entries[:r.pos])
		return result
	}

	// Full ring: entries from pos..end, then 0..pos.
	size := len(r.entries)
	result := make([]LogEntry, size)
	copy(result, r.entries[r.pos:])
	copy(result[size-r.pos:], r.entries[:r.pos])
	return result
}
