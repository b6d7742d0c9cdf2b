// Package settings stores JSON configuration documents (such as the SMS
// record read on every OTP issuance) in PostgreSQL or SQLite.
package settings

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tripnest/tripnest/internal/postgres"
)

// Sentinel errors.
var (
	ErrNotFound          = errors.New("document not found")
	ErrConfigUnavailable = errors.New("settings unavailable")
)

const (
	Collection = "settings"
	SMSDocID   = "sms"
)

// SMSConfig is the settings/sms document.
type SMSConfig struct {
	SendStaticOTP bool   `json:"sendStaticOtp"`
	Provider      string `json:"provider,omitempty"`
	APIKey        string `json:"apiKey,omitempty"`
	APISecret     string `json:"apiSecret,omitempty"`
	SMSFrom       string `json:"smsFrom,omitempty"`
}

// Masked returns a copy with the secret replaced for display.
func (c SMSConfig) Masked() SMSConfig {
	if c.APISecret != "" {
		c.APISecret = maskSecret(c.APISecret)
	}
	return c
}

// MaskPrefix starts every masked secret.
const MaskPrefix = "****"

// maskSecret keeps the last four characters of secrets longer than eight.
func maskSecret(s string) string {
	if len(s) <= 8 {
		return MaskPrefix
	}
	return MaskPrefix + s[len(s)-4:]
}

// DocumentStore is a keyed JSON document store.
type DocumentStore interface {
	// GetDocument returns the raw JSON for collection/id, or ErrNotFound.
	GetDocument(ctx context.Context, collection, id string) ([]byte, error)
	PutDocument(ctx context.Context, collection, id string, data []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// Options selects and tunes the backing store.
type Options struct {
	DatabaseURL string
	SQLitePath  string
	MaxConns    int32
	MinConns    int32
	Logger      *slog.Logger
}

// Open returns a PostgresStore when a database URL is set, otherwise a
// SQLiteStore at SQLitePath. The documents table is created if missing.
func Open(ctx context.Context, opts Options) (DocumentStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DatabaseURL == "" {
		store, err := OpenSQLite(ctx, opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("using sqlite settings store", "path", opts.SQLitePath)
		return store, nil
	}
	pool, err := postgres.New(ctx, postgres.Config{
		URL:      opts.DatabaseURL,
		MaxConns: opts.MaxConns,
		MinConns: opts.MinConns,
	}, logger)
	if err != nil {
		return nil, err
	}
	store := NewPostgresStore(pool.DB(), pool.Close)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}
