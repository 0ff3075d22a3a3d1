package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// handleCreateFeedbackReport stores a problem report. Missing or oversized
// fields are a bad request rather than a domain validation failure.
func (s *Server) handleCreateFeedbackReport(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	report, err := s.feedback.Submit(r.Context(), req.Header, req.Details)
	if core.IsValidationError(err) {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	s.appMetrics.feedbackReports.Add(1)
	Created(map[string]any{
		"message": "Report submitted successfully!",
		"report":  report,
	}).Write(w)
}
