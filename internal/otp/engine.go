// Package otp decides how a one-time passcode is issued for a phone number
// and checks submitted codes.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/google/uuid"

	"github.com/tripnest/tripnest/internal/settings"
	"github.com/tripnest/tripnest/internal/sms"
)

// ErrConfigIncomplete is logged when the provider is selected but its
// credentials are not all set.
var ErrConfigIncomplete = errors.New("sms provider configuration incomplete")

// DefaultMessagePrefix precedes the code in the SMS body.
const DefaultMessagePrefix = "Your TripNest verification code is: "

// ConfigReader loads the SMS settings record. A nil config with a nil
// error means the record does not exist.
type ConfigReader interface {
	ReadSMSConfig(ctx context.Context) (*settings.SMSConfig, error)
}

// ProviderFactory builds a provider from the current record. It is called
// once per issuance so edited credentials apply immediately.
type ProviderFactory func(cfg settings.SMSConfig) sms.Provider

// TwilioFactory returns a ProviderFactory producing Twilio providers that
// share client.
func TwilioFactory(client *http.Client, baseURL string) ProviderFactory {
	return func(cfg settings.SMSConfig) sms.Provider {
		return sms.NewTwilioProvider(cfg.APIKey, cfg.APISecret, cfg.SMSFrom, baseURL, sms.WithHTTPClient(client))
	}
}

// Options configures an Engine.
type Options struct {
	DefaultCountryCode string
	MessagePrefix      string
	// WithholdCodeOnRestricted drops the generated code from results whose
	// send was blocked by network policy.
	WithholdCodeOnRestricted bool
	NewProvider              ProviderFactory
	Logger                   *slog.Logger
}

// Engine issues OTPs according to the SMS settings record.
type Engine struct {
	reader ConfigReader
	opts   Options
	logger *slog.Logger
}

// NewEngine creates an Engine. Zero-valued options fall back to defaults.
func NewEngine(reader ConfigReader, opts Options) *Engine {
	if opts.DefaultCountryCode == "" {
		opts.DefaultCountryCode = sms.DefaultCountryCode
	}
	if opts.MessagePrefix == "" {
		opts.MessagePrefix = DefaultMessagePrefix
	}
	if opts.NewProvider == nil {
		opts.NewProvider = TwilioFactory(sms.NewHTTPClient(sms.DefaultTimeout, nil), "")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{reader: reader, opts: opts, logger: logger}
}

// Issue runs the issuance policy for phone. It never returns an error;
// every failure is reported in the Result.
func (e *Engine) Issue(ctx context.Context, phone string) Result {
	logger := e.logger.With("issue_id", uuid.NewString())

	cfg, err := e.readConfig(ctx)
	if err != nil {
		logger.Warn("sms settings unavailable, using static code", "error", err)
		return staticResult()
	}
	if cfg == nil {
		logger.Info("sms settings not found, using static code")
		return staticResult()
	}
	if cfg.SendStaticOTP {
		logger.Info("static otp mode")
		return staticResult()
	}
	if cfg.Provider == "twilio" {
		return e.sendViaProvider(ctx, logger, *cfg, phone)
	}
	logger.Info("delegating phone auth", "provider", cfg.Provider)
	return delegatedResult()
}

func (e *Engine) readConfig(ctx context.Context) (cfg *settings.SMSConfig, err error) {
	if e.reader == nil {
		return nil, settings.ErrConfigUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			cfg, err = nil, fmt.Errorf("%w: panic reading config: %v", settings.ErrConfigUnavailable, r)
		}
	}()
	return e.reader.ReadSMSConfig(ctx)
}

func (e *Engine) sendViaProvider(ctx context.Context, logger *slog.Logger, cfg settings.SMSConfig, phone string) Result {
	if cfg.APIKey == "" || cfg.APISecret == "" || cfg.SMSFrom == "" {
		logger.Error("cannot send otp", "error", ErrConfigIncomplete)
		return failure(MsgConfigMissing)
	}

	code, err := generateCode()
	if err != nil {
		logger.Error("generating otp", "error", err)
		return failure(err.Error())
	}
	to := sms.NormalizeDestination(phone, e.opts.DefaultCountryCode)
	logger = logger.With("to", to)

	res, err := e.send(ctx, cfg, to, e.opts.MessagePrefix+code)
	if err == nil {
		logger.Info("otp sent", "message_id", res.MessageID, "status", res.Status)
		logger.Debug("otp code", "otp", code)
		return Result{Success: true, Message: MsgProviderSent, OTP: code, IsStatic: boolPtr(false)}
	}

	var perr *sms.ProviderError
	if errors.As(err, &perr) {
		logger.Error("sms provider rejected otp",
			"status", perr.StatusCode, "code", perr.Code, "message", perr.Message)
		if perr.Message == "" {
			return failure(MsgProviderFailed)
		}
		return failure(perr.Message)
	}

	kind := transportKind(err)
	if kind == sms.TransportRestricted {
		logger.Warn("otp send blocked by network policy", "error", err, "degraded", true)
		r := Result{Success: false, Message: MsgRestricted, IsStatic: boolPtr(false)}
		if !e.opts.WithholdCodeOnRestricted {
			r.OTP = code
		}
		return r
	}
	logger.Error("otp send failed", "error", err, "kind", kind.String())
	return failure(err.Error())
}

func (e *Engine) send(ctx context.Context, cfg settings.SMSConfig, to, body string) (res *sms.SendResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("sms provider panic: %v", r)
		}
	}()
	res, err = e.opts.NewProvider(cfg).Send(ctx, to, body)
	if err == nil && res == nil {
		res = &sms.SendResult{}
	}
	return res, err
}

func transportKind(err error) sms.TransportKind {
	var terr *sms.TransportError
	if errors.As(err, &terr) {
		return terr.Kind
	}
	return sms.ClassifyTransport(err)
}

// generateCode returns a uniformly random code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generating otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
