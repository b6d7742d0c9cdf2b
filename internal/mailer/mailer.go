// Package mailer sends booking confirmation emails through a serverless
// function, an SMTP server, or the log.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// BookingConfirmation is the request accepted by every backend.
type BookingConfirmation struct {
	RecipientEmail string         `json:"recipientEmail" validate:"required,email"`
	BookingData    map[string]any `json:"bookingData"`
}

// Response reports what the backend did with the request.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Mailer sends booking confirmations.
type Mailer interface {
	SendBookingConfirmation(ctx context.Context, bc BookingConfirmation) (*Response, error)
}

// DefaultSubject is used by backends that compose the email themselves.
const DefaultSubject = "Your TripNest booking is confirmed"

// LogMailer logs confirmations instead of sending them. Useful for development.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer. If logger is nil, slog.Default() is used.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendBookingConfirmation(_ context.Context, bc BookingConfirmation) (*Response, error) {
	m.logger.Info("booking confirmation (log mailer)",
		"to", bc.RecipientEmail,
		"fields", len(bc.BookingData),
	)
	m.logger.Debug("booking confirmation body", "body", summaryText(bc.BookingData))
	return &Response{Success: true, Message: "Email logged"}, nil
}

// summaryText renders booking data as sorted "key: value" lines.
func summaryText(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, data[k])
	}
	return b.String()
}
