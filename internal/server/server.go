package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/tripnest/tripnest/internal/config"
	"github.com/tripnest/tripnest/internal/httputil"
	"github.com/tripnest/tripnest/internal/mailer"
	"github.com/tripnest/tripnest/internal/otp"
	"github.com/tripnest/tripnest/internal/settings"
)

// Issuer issues OTPs. *otp.Engine satisfies it.
type Issuer interface {
	Issue(ctx context.Context, phone string) otp.Result
}

// Server is the TripNest relay HTTP server.
type Server struct {
	cfg       *config.Config
	router    *chi.Mux
	http      *http.Server
	logger    *slog.Logger
	issuer    Issuer
	store     settings.DocumentStore // may be nil
	smsConfig *settings.SMSReader
	mailer    mailer.Mailer
	validate  *validator.Validate
	adminAuth *adminAuth // nil when admin.password not set
	startTime time.Time
	logBuffer *LogBuffer // nil when not using buffered logging
}

// New creates a new Server with middleware and routes configured.
// store may be nil, in which case health reports it unavailable and the
// admin settings routes answer 503. A nil mailer logs confirmations.
func New(cfg *config.Config, logger *slog.Logger, issuer Issuer, store settings.DocumentStore, m mailer.Mailer) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = mailer.NewLogMailer(logger)
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cfg.Server.CORSAllowedOrigins))

	s := &Server{
		cfg:       cfg,
		router:    r,
		logger:    logger,
		issuer:    issuer,
		store:     store,
		mailer:    m,
		validate:  newValidator(),
		startTime: time.Now(),
	}
	if store != nil {
		s.smsConfig = settings.NewSMSReader(store)
	}
	if cfg.Admin.Password != "" {
		a, err := newAdminAuth(cfg.Admin.Password, time.Duration(cfg.Admin.TokenDuration)*time.Second)
		if err != nil {
			logger.Error("admin routes disabled", "error", err)
		} else {
			s.adminAuth = a
		}
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))

		r.Route("/otp", func(r chi.Router) {
			r.Post("/send", s.handleOTPSend)
			r.Post("/verify", s.handleOTPVerify)
		})

		r.Post("/bookings/confirmation-email", s.handleBookingConfirmation)

		if s.adminAuth == nil {
			return
		}
		r.Post("/admin/auth", s.handleAdminLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAdminToken)
			r.Get("/admin/settings/sms", s.handleGetSMSSettings)
			r.Put("/admin/settings/sms", s.handlePutSMSSettings)
			r.Get("/admin/logs", s.handleAdminLogs)
			r.Get("/admin/stats", s.handleAdminStats)
		})
	})

	return s
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// SetLogBuffer attaches a log buffer for the /api/admin/logs endpoint.
func (s *Server) SetLogBuffer(lb *LogBuffer) {
	s.logBuffer = lb
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	return s.StartWithReady(nil)
}

// StartWithReady begins listening. It closes the ready channel once the
// listener is bound, then blocks serving requests.
func (s *Server) StartWithReady(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ln, ready)
}

// Serve serves requests on ln, which may be a TLS listener. ready, when
// non-nil, is closed before serving starts.
func (s *Server) Serve(ln net.Listener, ready chan<- struct{}) error {
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("server starting", "address", ln.Addr().String())
	if ready != nil {
		close(ready)
	}

	if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	timeout := time.Duration(s.cfg.Server.ShutdownTimeout) * time.Second
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Info("shutting down server", "timeout", timeout)
	return s.http.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"store":  s.storeStatus(r.Context()),
	})
}

func (s *Server) storeStatus(ctx context.Context) string {
	if s.store == nil {
		return "unavailable"
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("settings store ping failed", "error", err)
		return "unavailable"
	}
	return "ok"
}
