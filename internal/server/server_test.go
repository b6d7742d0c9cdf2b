package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/tripnest/tripnest/internal/config"
	"github.com/tripnest/tripnest/internal/mailer"
	"github.com/tripnest/tripnest/internal/otp"
	"github.com/tripnest/tripnest/internal/server"
	"github.com/tripnest/tripnest/internal/settings"
	"github.com/tripnest/tripnest/internal/testutil"
)

type fakeIssuer struct {
	mu     sync.Mutex
	phones []string
	result otp.Result
}

func (f *fakeIssuer) Issue(_ context.Context, phone string) otp.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phones = append(f.phones, phone)
	return f.result
}

type fakeMailer struct {
	resp *mailer.Response
	err  error
	got  []mailer.BookingConfirmation
}

func (f *fakeMailer) SendBookingConfirmation(_ context.Context, bc mailer.BookingConfirmation) (*mailer.Response, error) {
	f.got = append(f.got, bc)
	return f.resp, f.err
}

func newStore(t *testing.T) settings.DocumentStore {
	t.Helper()
	store, err := settings.OpenSQLite(context.Background(), "")
	testutil.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestServer(t *testing.T, cfg *config.Config, issuer server.Issuer, m mailer.Mailer) *server.Server {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	return server.New(cfg, testutil.DiscardLogger(), issuer, newStore(t), m)
}

func postJSON(t *testing.T, srv *server.Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, &fakeIssuer{}, nil)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	testutil.Equal(t, http.StatusOK, w.Code)
	testutil.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body map[string]string
	testutil.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	testutil.Equal(t, "ok", body["status"])
	testutil.Equal(t, "ok", body["store"])
}

func TestHealthWithoutStoreStillOK(t *testing.T) {
	srv := server.New(config.Default(), testutil.DiscardLogger(), &fakeIssuer{}, nil, nil)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	testutil.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	testutil.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	testutil.Equal(t, "unavailable", body["store"])
}

func TestOTPSendReturnsIssuerResult(t *testing.T) {
	issuer := &fakeIssuer{result: otp.Result{Success: true, Message: otp.MsgDelegated}}
	srv := newTestServer(t, nil, issuer, nil)

	w := postJSON(t, srv, "/api/otp/send", `{"phone":"  9876543210 "}`)

	testutil.Equal(t, http.StatusOK, w.Code)
	testutil.SliceLen(t, issuer.phones, 1)
	testutil.Equal(t, "9876543210", issuer.phones[0])
	var got otp.Result
	testutil.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	testutil.True(t, got.Success)
	testutil.Equal(t, otp.MsgDelegated, got.Message)
}

func TestOTPSendEmptyPhone(t *testing.T) {
	issuer := &fakeIssuer{}
	srv := newTestServer(t, nil, issuer, nil)

	for _, body := range []string{`{}`, `{"phone":""}`, `{"phone":"   "}`} {
		w := postJSON(t, srv, "/api/otp/send", body)
		testutil.Equal(t, http.StatusBadRequest, w.Code)
		testutil.Contains(t, w.Body.String(), "phone is required")
	}
	testutil.SliceLen(t, issuer.phones, 0)
}

func TestOTPSendInvalidJSON(t *testing.T) {
	srv := newTestServer(t, nil, &fakeIssuer{}, nil)
	w := postJSON(t, srv, "/api/otp/send", `{"phone":`)
	testutil.Equal(t, http.StatusBadRequest, w.Code)
	testutil.Contains(t, w.Body.String(), "invalid JSON body")
}

func TestOTPSendRequiresJSONContentType(t *testing.T) {
	srv := newTestServer(t, nil, &fakeIssuer{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/otp/send", strings.NewReader(`phone=1`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Router().ServeHTTP(w, req)

	testutil.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestOTPSendAllowedCountries(t *testing.T) {
	cfg := config.Default()
	cfg.SMS.AllowedCountries = []string{"IN"}
	issuer := &fakeIssuer{result: otp.Result{Success: true}}
	srv := newTestServer(t, cfg, issuer, nil)

	tests := []struct {
		phone string
		want  int
	}{
		{"9876543210", http.StatusOK},
		{"+919876543210", http.StatusOK},
		{"+14155552671", http.StatusBadRequest},
		{"+44", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			w := postJSON(t, srv, "/api/otp/send", `{"phone":"`+tt.phone+`"}`)
			testutil.Equal(t, tt.want, w.Code)
		})
	}
	testutil.SliceLen(t, issuer.phones, 2)
}

func TestOTPSendStaticFallbackWithEngine(t *testing.T) {
	store := newStore(t)
	engine := otp.NewEngine(settings.NewSMSReader(store), otp.Options{Logger: testutil.DiscardLogger()})
	srv := server.New(config.Default(), testutil.DiscardLogger(), engine, store, nil)

	w := postJSON(t, srv, "/api/otp/send", `{"phone":"9876543210"}`)

	testutil.Equal(t, http.StatusOK, w.Code)
	testutil.Equal(t,
		`{"success":true,"message":"OTP sent successfully","otp":"123456","isStatic":true}`,
		strings.TrimSpace(w.Body.String()))
}

func TestOTPVerify(t *testing.T) {
	srv := newTestServer(t, nil, &fakeIssuer{}, nil)

	tests := []struct {
		body string
		want bool
	}{
		{`{"code":"123456","expected":"123456"}`, true},
		{`{"code":"123456","expected":"654321"}`, false},
		{`{"code":"123456"}`, false},
		{`{"code":"","expected":""}`, false},
		{`{"code":" 123456","expected":"123456"}`, false},
	}
	for _, tt := range tests {
		w := postJSON(t, srv, "/api/otp/verify", tt.body)
		testutil.Equal(t, http.StatusOK, w.Code)
		var body map[string]bool
		testutil.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		testutil.Equal(t, tt.want, body["valid"])
	}
}

func TestBookingConfirmationSuccess(t *testing.T) {
	m := &fakeMailer{resp: &mailer.Response{Success: true, Message: "Email sent successfully"}}
	srv := newTestServer(t, nil, &fakeIssuer{}, m)

	w := postJSON(t, srv, "/api/bookings/confirmation-email",
		`{"recipientEmail":"guest@example.com","bookingData":{"tripTitle":"Goa"}}`)

	testutil.Equal(t, http.StatusOK, w.Code)
	testutil.SliceLen(t, m.got, 1)
	testutil.Equal(t, "guest@example.com", m.got[0].RecipientEmail)
	testutil.Equal(t, "Goa", m.got[0].BookingData["tripTitle"].(string))
	var resp mailer.Response
	testutil.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	testutil.True(t, resp.Success)
	testutil.Equal(t, "Email sent successfully", resp.Message)
}

func TestBookingConfirmationValidation(t *testing.T) {
	m := &fakeMailer{resp: &mailer.Response{Success: true}}
	srv := newTestServer(t, nil, &fakeIssuer{}, m)

	for _, body := range []string{
		`{"bookingData":{}}`,
		`{"recipientEmail":"not-an-email"}`,
	} {
		w := postJSON(t, srv, "/api/bookings/confirmation-email", body)
		testutil.Equal(t, http.StatusBadRequest, w.Code)
		testutil.Contains(t, w.Body.String(), "recipientEmail")
	}
	testutil.SliceLen(t, m.got, 0)
}

func TestBookingConfirmationMailerError(t *testing.T) {
	m := &fakeMailer{err: errors.New("email function returned status 500: boom")}
	srv := newTestServer(t, nil, &fakeIssuer{}, m)

	w := postJSON(t, srv, "/api/bookings/confirmation-email", `{"recipientEmail":"guest@example.com"}`)

	testutil.Equal(t, http.StatusBadGateway, w.Code)
	var resp mailer.Response
	testutil.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	testutil.False(t, resp.Success)
	testutil.Contains(t, resp.Message, "status 500")
}

func TestBookingConfirmationDefaultsToLogMailer(t *testing.T) {
	srv := newTestServer(t, nil, &fakeIssuer{}, nil)
	w := postJSON(t, srv, "/api/bookings/confirmation-email", `{"recipientEmail":"guest@example.com"}`)
	testutil.Equal(t, http.StatusOK, w.Code)
	testutil.Contains(t, w.Body.String(), "Email logged")
}

// --- CORS ---

func TestCORSWildcard(t *testing.T) {
	srv := newTestServer(t, nil, &fakeIssuer{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://tripnest.example")
	srv.Router().ServeHTTP(w, req)

	testutil.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	testutil.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PUT")
}

func TestCORSMultiOrigin(t *testing.T) {
	cfg := config.Default()
	cfg.Server.CORSAllowedOrigins = []string{"https://a.example", "https://b.example"}
	srv := newTestServer(t, cfg, &fakeIssuer{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://b.example")
	srv.Router().ServeHTTP(w, req)
	testutil.Equal(t, "https://b.example", w.Header().Get("Access-Control-Allow-Origin"))
	testutil.Equal(t, "Origin", w.Header().Get("Vary"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	srv.Router().ServeHTTP(w, req)
	testutil.Equal(t, "", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, nil, &fakeIssuer{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/otp/send", nil)
	req.Header.Set("Origin", "https://tripnest.example")
	srv.Router().ServeHTTP(w, req)

	testutil.Equal(t, http.StatusNoContent, w.Code)
	testutil.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
}

// --- lifecycle ---

func TestServeSignalsReady(t *testing.T) {
	srv := newTestServer(t, nil, &fakeIssuer{}, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	testutil.NoError(t, err)

	ready := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln, ready)
	}()

	select {
	case <-ready:
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		testutil.NoError(t, err)
		resp.Body.Close()
		testutil.Equal(t, http.StatusOK, resp.StatusCode)

		testutil.NoError(t, srv.Shutdown(context.Background()))
		testutil.NoError(t, <-errCh)
	case err := <-errCh:
		t.Fatalf("server failed to start: %v", err)
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	srv := newTestServer(t, nil, &fakeIssuer{}, nil)
	testutil.NoError(t, srv.Shutdown(context.Background()))
}
