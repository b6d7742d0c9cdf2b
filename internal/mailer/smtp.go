package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds SMTP connection and sender settings.
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	AuthMethod string // PLAIN (default), LOGIN, CRAM-MD5
	TLS        bool   // implicit TLS instead of STARTTLS
	From       string
	FromName   string
}

// SMTPMailer composes a plain-text summary and sends it over SMTP.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer creates an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendBookingConfirmation(ctx context.Context, bc BookingConfirmation) (*Response, error) {
	msg, err := m.buildMessage(bc)
	if err != nil {
		return nil, err
	}

	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("smtp: creating client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return nil, fmt.Errorf("smtp: sending to %s: %w", bc.RecipientEmail, err)
	}
	return &Response{Success: true, Message: "Email sent"}, nil
}

func (m *SMTPMailer) buildMessage(bc BookingConfirmation) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.formatFrom()); err != nil {
		return nil, fmt.Errorf("smtp: from address: %w", err)
	}
	if err := msg.To(bc.RecipientEmail); err != nil {
		return nil, fmt.Errorf("smtp: recipient address: %w", err)
	}
	msg.Subject(DefaultSubject)
	msg.SetMessageID()
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, m.bodyText(bc))
	return msg, nil
}

func (m *SMTPMailer) bodyText(bc BookingConfirmation) string {
	var b strings.Builder
	b.WriteString("Thank you for booking with TripNest. Your booking details:\n\n")
	b.WriteString(summaryText(bc.BookingData))
	return b.String()
}

func (m *SMTPMailer) formatFrom() string {
	if m.cfg.FromName != "" {
		return fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.From)
	}
	return m.cfg.From
}

func (m *SMTPMailer) authType() mail.SMTPAuthType {
	switch strings.ToUpper(m.cfg.AuthMethod) {
	case "LOGIN":
		return mail.SMTPAuthLogin
	case "CRAM-MD5":
		return mail.SMTPAuthCramMD5
	default:
		return mail.SMTPAuthPlain
	}
}

func (m *SMTPMailer) clientOptions() []mail.Option {
	opts := []mail.Option{mail.WithPort(m.cfg.Port)}
	if m.cfg.TLS {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(m.authType()),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}
