package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultFunctionRegion  = "us-central1"
	DefaultFunctionName    = "sendBookingConfirmationEmail"
	defaultFunctionTimeout = 10 * time.Second
	maxFunctionResponse    = 64 << 10
)

// FunctionConfig locates the email-sending serverless function. URL wins
// over the region/project/name triple when set.
type FunctionConfig struct {
	URL       string
	Region    string
	ProjectID string
	Name      string
	Timeout   time.Duration
}

// Endpoint returns the function URL, or "" when it cannot be derived.
func (c FunctionConfig) Endpoint() string {
	if c.URL != "" {
		return c.URL
	}
	if c.ProjectID == "" {
		return ""
	}
	region := c.Region
	if region == "" {
		region = DefaultFunctionRegion
	}
	name := c.Name
	if name == "" {
		name = DefaultFunctionName
	}
	return fmt.Sprintf("https://%s-%s.cloudfunctions.net/%s", region, c.ProjectID, name)
}

// FunctionMailer posts confirmations to a serverless function that renders
// and sends the email.
type FunctionMailer struct {
	endpoint string
	client   *http.Client
}

// NewFunctionMailer creates a FunctionMailer.
func NewFunctionMailer(cfg FunctionConfig) *FunctionMailer {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultFunctionTimeout
	}
	return &FunctionMailer{
		endpoint: cfg.Endpoint(),
		client:   &http.Client{Timeout: timeout},
	}
}

func (m *FunctionMailer) SendBookingConfirmation(ctx context.Context, bc BookingConfirmation) (*Response, error) {
	if m.endpoint == "" {
		return nil, fmt.Errorf("email function: no endpoint configured")
	}
	if bc.BookingData == nil {
		bc.BookingData = map[string]any{}
	}
	body, err := json.Marshal(bc)
	if err != nil {
		return nil, fmt.Errorf("email function: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("email function: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("email function: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxFunctionResponse))
	if err != nil {
		return nil, fmt.Errorf("email function: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("email function returned status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	var out Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("email function: parse response: %w", err)
	}
	return &out, nil
}
