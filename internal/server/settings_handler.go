package server

import (
	"net/http"
	"strings"

	"github.com/tripnest/tripnest/internal/httputil"
	"github.com/tripnest/tripnest/internal/settings"
)

// smsSettingsRequest is the admin edit body. An empty or masked apiSecret
// keeps the stored secret.
type smsSettingsRequest struct {
	SendStaticOTP bool   `json:"sendStaticOtp"`
	Provider      string `json:"provider" validate:"omitempty,max=64"`
	APIKey        string `json:"apiKey" validate:"required_if=Provider twilio"`
	APISecret     string `json:"apiSecret" validate:"required_if=Provider twilio"`
	SMSFrom       string `json:"smsFrom" validate:"required_if=Provider twilio,e164|len=0"`
}

func (s *Server) handleGetSMSSettings(w http.ResponseWriter, r *http.Request) {
	if s.smsConfig == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "settings store not configured")
		return
	}
	cfg, err := s.smsConfig.ReadSMSConfig(r.Context())
	if err != nil {
		s.logger.Error("reading sms settings", "error", err)
		httputil.WriteError(w, http.StatusServiceUnavailable, "settings store unavailable")
		return
	}
	if cfg == nil {
		httputil.WriteError(w, http.StatusNotFound, "sms settings not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg.Masked())
}

func (s *Server) handlePutSMSSettings(w http.ResponseWriter, r *http.Request) {
	if s.smsConfig == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "settings store not configured")
		return
	}
	var req smsSettingsRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	if req.APISecret == "" || isMasked(req.APISecret) {
		current, err := s.smsConfig.ReadSMSConfig(r.Context())
		if err != nil {
			s.logger.Error("reading sms settings", "error", err)
			httputil.WriteError(w, http.StatusServiceUnavailable, "settings store unavailable")
			return
		}
		req.APISecret = ""
		if current != nil {
			req.APISecret = current.APISecret
		}
	}
	if err := s.validate.Struct(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cfg := settings.SMSConfig{
		SendStaticOTP: req.SendStaticOTP,
		Provider:      req.Provider,
		APIKey:        req.APIKey,
		APISecret:     req.APISecret,
		SMSFrom:       req.SMSFrom,
	}
	if err := s.smsConfig.WriteSMSConfig(r.Context(), cfg); err != nil {
		s.logger.Error("writing sms settings", "error", err)
		httputil.WriteError(w, http.StatusServiceUnavailable, "settings store unavailable")
		return
	}
	s.logger.Info("sms settings updated", "provider", cfg.Provider, "static", cfg.SendStaticOTP)
	httputil.WriteJSON(w, http.StatusOK, cfg.Masked())
}

// isMasked reports whether secret looks like the output of SMSConfig.Masked.
func isMasked(secret string) bool {
	return strings.HasPrefix(secret, settings.MaskPrefix)
}
