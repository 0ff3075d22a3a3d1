package services

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// FeedbackService stores problem reports sent from the app.
type FeedbackService struct {
	store  storage.Store
	logger *log.Logger
}

func NewFeedbackService(store storage.Store, logger *log.Logger) *FeedbackService {
	if logger == nil {
		logger = log.Discard()
	}
	return &FeedbackService{store: store, logger: logger.WithComponent(log.ComponentFeedback)}
}

// Submit trims and validates the report before saving it.
func (s *FeedbackService) Submit(ctx context.Context, header, details string) (core.FeedbackReport, error) {
	r := core.FeedbackReport{
		Header:  strings.TrimSpace(header),
		Details: strings.TrimSpace(details),
	}
	if err := r.Validate(); err != nil {
		return core.FeedbackReport{}, err
	}
	saved, err := s.store.CreateFeedbackReport(ctx, r)
	if err != nil {
		return core.FeedbackReport{}, fmt.Errorf("save feedback report: %w", err)
	}
	s.logger.InfoContext(ctx, "Feedback report submitted", "report_id", saved.ID)
	return saved, nil
}
