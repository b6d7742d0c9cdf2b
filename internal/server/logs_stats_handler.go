package server

import (
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/tripnest/tripnest/internal/httputil"
)

// handleAdminLogs returns recent server log entries. ?level=warn limits the
// result to WARN and above.
func (s *Server) handleAdminLogs(w http.ResponseWriter, r *http.Request) {
	if s.logBuffer == nil {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"entries": []any{},
			"message": "log buffering not enabled",
		})
		return
	}

	minLevel := slog.LevelDebug
	if lvl := r.URL.Query().Get("level"); lvl != "" {
		if err := minLevel.UnmarshalText([]byte(lvl)); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid level: "+lvl)
			return
		}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"entries": s.logBuffer.EntriesAtLeast(minLevel),
	})
}

// handleAdminStats returns server runtime statistics.
func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
		"go_version":     runtime.Version(),
		"goroutines":     runtime.NumGoroutine(),
		"memory_alloc":   mem.Alloc,
		"memory_sys":     mem.Sys,
		"gc_cycles":      mem.NumGC,
		"store":          s.storeStatus(r.Context()),
	})
}
