package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tripnest/tripnest/internal/testutil"
)

func sampleBooking() BookingConfirmation {
	return BookingConfirmation{
		RecipientEmail: "guest@example.com",
		BookingData: map[string]any{
			"tripTitle": "Goa Beach Escape",
			"bookingId": "bk_123",
			"guests":    2,
		},
	}
}

func TestLogMailerSend(t *testing.T) {
	m := NewLogMailer(testutil.DiscardLogger())
	resp, err := m.SendBookingConfirmation(context.Background(), sampleBooking())
	testutil.NoError(t, err)
	testutil.True(t, resp.Success, "log mailer should report success")
}

func TestSummaryTextSorted(t *testing.T) {
	got := summaryText(sampleBooking().BookingData)
	testutil.Equal(t, "bookingId: bk_123\nguests: 2\ntripTitle: Goa Beach Escape\n", got)
	testutil.Equal(t, "", summaryText(nil))
}

func TestFunctionMailerSend(t *testing.T) {
	var received BookingConfirmation
	var gotKey, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"message":"Email sent successfully"}`))
	}))
	defer srv.Close()

	m := NewFunctionMailer(FunctionConfig{URL: srv.URL})
	resp, err := m.SendBookingConfirmation(context.Background(), sampleBooking())
	testutil.NoError(t, err)
	testutil.True(t, resp.Success, "expected success")
	testutil.Equal(t, "Email sent successfully", resp.Message)

	testutil.Equal(t, "guest@example.com", received.RecipientEmail)
	testutil.Equal(t, "Goa Beach Escape", received.BookingData["tripTitle"].(string))
	testutil.Equal(t, "application/json", gotType)
	_, err = uuid.Parse(gotKey)
	testutil.NoError(t, err)
}

func TestFunctionMailerNilBookingDataSendsObject(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.Write([]byte(`{"success":true,"message":"ok"}`))
	}))
	defer srv.Close()

	_, err := NewFunctionMailer(FunctionConfig{URL: srv.URL}).
		SendBookingConfirmation(context.Background(), BookingConfirmation{RecipientEmail: "a@b.com"})
	testutil.NoError(t, err)
	testutil.Equal(t, "{}", string(raw["bookingData"]))
}

func TestFunctionMailerReportsFunctionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"template missing"}`))
	}))
	defer srv.Close()

	resp, err := NewFunctionMailer(FunctionConfig{URL: srv.URL}).
		SendBookingConfirmation(context.Background(), sampleBooking())
	testutil.NoError(t, err)
	testutil.False(t, resp.Success, "function reported failure")
	testutil.Equal(t, "template missing", resp.Message)
}

func TestFunctionMailerNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal"))
	}))
	defer srv.Close()

	_, err := NewFunctionMailer(FunctionConfig{URL: srv.URL}).
		SendBookingConfirmation(context.Background(), sampleBooking())
	testutil.ErrorContains(t, err, "status 500")
}

func TestFunctionMailerNoEndpoint(t *testing.T) {
	_, err := NewFunctionMailer(FunctionConfig{}).SendBookingConfirmation(context.Background(), sampleBooking())
	testutil.ErrorContains(t, err, "no endpoint configured")
}

func TestFunctionMailerTimeout(t *testing.T) {
	m := NewFunctionMailer(FunctionConfig{URL: "http://localhost"})
	testutil.Equal(t, float64(10), m.client.Timeout.Seconds())

	m = NewFunctionMailer(FunctionConfig{URL: "http://localhost", Timeout: 30 * time.Second})
	testutil.Equal(t, float64(30), m.client.Timeout.Seconds())
}

func TestFunctionConfigEndpoint(t *testing.T) {
	tests := []struct {
		name string
		cfg  FunctionConfig
		want string
	}{
		{"explicit url", FunctionConfig{URL: "https://mail.example/send", ProjectID: "p"}, "https://mail.example/send"},
		{"derived", FunctionConfig{Region: "asia-south1", ProjectID: "tripnest-prod", Name: "sendMail"},
			"https://asia-south1-tripnest-prod.cloudfunctions.net/sendMail"},
		{"defaults", FunctionConfig{ProjectID: "tripnest-dev"},
			"https://us-central1-tripnest-dev.cloudfunctions.net/sendBookingConfirmationEmail"},
		{"no project", FunctionConfig{Region: "us-east1"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.Equal(t, tt.want, tt.cfg.Endpoint())
		})
	}
}

func TestSMTPMailerDefaultPort(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", From: "noreply@example.com"})
	testutil.Equal(t, 587, m.cfg.Port)
}

func TestSMTPMailerBuildMessage(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", From: "noreply@tripnest.example", FromName: "TripNest"})
	msg, err := m.buildMessage(sampleBooking())
	testutil.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	testutil.NoError(t, err)
	out := buf.String()
	testutil.Contains(t, out, "To: <guest@example.com>")
	testutil.Contains(t, out, `From: "TripNest" <noreply@tripnest.example>`)
	testutil.Contains(t, out, "Subject: Your TripNest booking is confirmed")
	testutil.Contains(t, out, "tripTitle: Goa Beach Escape")
}

func TestSMTPMailerBuildMessageRejectsBadRecipient(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{From: "noreply@tripnest.example"})
	_, err := m.buildMessage(BookingConfirmation{RecipientEmail: "not an email"})
	testutil.ErrorContains(t, err, "recipient address")
}

func TestSMTPMailerFormatFrom(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		fromName string
		want     string
	}{
		{"address only", "noreply@example.com", "", "noreply@example.com"},
		{"with display name", "noreply@example.com", "TripNest", "TripNest <noreply@example.com>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &SMTPMailer{cfg: SMTPConfig{From: tt.from, FromName: tt.fromName}}
			testutil.Equal(t, tt.want, m.formatFrom())
		})
	}
}

func TestSMTPMailerAuthTypes(t *testing.T) {
	plain := (&SMTPMailer{cfg: SMTPConfig{AuthMethod: "PLAIN"}}).authType()
	for _, method := range []string{"", "plain", "bogus"} {
		m := &SMTPMailer{cfg: SMTPConfig{AuthMethod: method}}
		testutil.Equal(t, plain, m.authType())
	}
	login := (&SMTPMailer{cfg: SMTPConfig{AuthMethod: "login"}}).authType()
	cram := (&SMTPMailer{cfg: SMTPConfig{AuthMethod: "CRAM-MD5"}}).authType()
	testutil.True(t, login != plain, "LOGIN should differ from PLAIN")
	testutil.True(t, cram != plain, "CRAM-MD5 should differ from PLAIN")
	testutil.True(t, login != cram, "LOGIN and CRAM-MD5 should differ")
}

func TestMailersImplementInterface(t *testing.T) {
	var _ Mailer = (*LogMailer)(nil)
	var _ Mailer = (*FunctionMailer)(nil)
	var _ Mailer = (*SMTPMailer)(nil)
}
