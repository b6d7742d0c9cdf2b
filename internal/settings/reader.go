package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// SMSReader reads and writes the settings/sms document.
type SMSReader struct {
	store DocumentStore
}

// NewSMSReader creates an SMSReader. A nil store makes every read report
// ErrConfigUnavailable.
func NewSMSReader(store DocumentStore) *SMSReader {
	return &SMSReader{store: store}
}

// ReadSMSConfig returns the current record, (nil, nil) when it does not
// exist, or an error wrapping ErrConfigUnavailable when it cannot be read.
func (r *SMSReader) ReadSMSConfig(ctx context.Context) (*SMSConfig, error) {
	if r.store == nil {
		return nil, fmt.Errorf("%w: no store configured", ErrConfigUnavailable)
	}
	data, err := r.store.GetDocument(ctx, Collection, SMSDocID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigUnavailable, err)
	}
	var cfg SMSConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: decoding %s/%s: %v", ErrConfigUnavailable, Collection, SMSDocID, err)
	}
	return &cfg, nil
}

// WriteSMSConfig replaces the record.
func (r *SMSReader) WriteSMSConfig(ctx context.Context, cfg SMSConfig) error {
	if r.store == nil {
		return fmt.Errorf("%w: no store configured", ErrConfigUnavailable)
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding sms config: %w", err)
	}
	return r.store.PutDocument(ctx, Collection, SMSDocID, data)
}
