package server

import (
	"net/http"
	"strings"

	"github.com/tripnest/tripnest/internal/httputil"
	"github.com/tripnest/tripnest/internal/otp"
	"github.com/tripnest/tripnest/internal/sms"
)

type otpSendRequest struct {
	Phone string `json:"phone"`
}

type otpVerifyRequest struct {
	Code     string `json:"code"`
	Expected string `json:"expected"`
}

// handleOTPSend runs the issuance policy and returns the otp.Result as-is.
// Provider failures are reported in the body with 200.
func (s *Server) handleOTPSend(w http.ResponseWriter, r *http.Request) {
	var req otpSendRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		httputil.WriteErrorWithDocURL(w, http.StatusBadRequest, "phone is required", httputil.DocURL("/relay/otp"))
		return
	}
	if allowed := s.cfg.SMS.AllowedCountries; len(allowed) > 0 {
		dest := sms.NormalizeDestination(phone, s.cfg.SMS.DefaultCountryCode)
		if !sms.IsAllowedCountry(dest, allowed) {
			httputil.WriteErrorWithDocURL(w, http.StatusBadRequest,
				"phone number country is not allowed", httputil.DocURL("/relay/otp#allowed-countries"))
			return
		}
	}
	if s.issuer == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "otp issuance not configured")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, s.issuer.Issue(r.Context(), phone))
}

func (s *Server) handleOTPVerify(w http.ResponseWriter, r *http.Request) {
	var req otpVerifyRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{
		"valid": otp.Verify(req.Code, req.Expected),
	})
}
