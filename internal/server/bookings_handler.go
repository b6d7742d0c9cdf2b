package server

import (
	"net/http"

	"github.com/tripnest/tripnest/internal/httputil"
	"github.com/tripnest/tripnest/internal/mailer"
)

// handleBookingConfirmation forwards a booking confirmation to the mailer.
// A delivery error is 502 with the mailer's response shape so the front end
// can treat both cases alike.
func (s *Server) handleBookingConfirmation(w http.ResponseWriter, r *http.Request) {
	var req mailer.BookingConfirmation
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if err := s.validate.Struct(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	resp, err := s.mailer.SendBookingConfirmation(r.Context(), req)
	if err != nil {
		s.logger.Error("booking confirmation failed", "to", req.RecipientEmail, "error", err)
		httputil.WriteJSON(w, http.StatusBadGateway, mailer.Response{Success: false, Message: err.Error()})
		return
	}
	if !resp.Success {
		s.logger.Warn("booking confirmation rejected", "to", req.RecipientEmail, "message", resp.Message)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
