package http

import (
	"net/http"
	"strings"

	"fintrack/internal/log"
)

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	period := strings.TrimSpace(r.URL.Query().Get("period"))
	rep, err := s.reports.Chart(r.Context(), PathValue(r, "userId"), period)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	OK(rep).Write(w)
}

// handleSummary totals the window selected by period around date, which
// defaults to today.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	date, err := QueryDate(r, "date", false)
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	period := strings.TrimSpace(r.URL.Query().Get("period"))
	rep, err := s.reports.Summary(r.Context(), PathValue(r, "userId"), period, date)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	OK(rep).Write(w)
}

func (s *Server) handleGoalReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.Goals(r.Context(), PathValue(r, "userId"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	OK(rep).Write(w)
}

func (s *Server) handleBudgetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.Budget(r.Context(), PathValue(r, "userId"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	OK(rep).Write(w)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.Breakdown(r.Context(), PathValue(r, "userId"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	OK(rep).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.Dashboard(r.Context(), PathValue(r, "userId"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	OK(rep).Write(w)
}
