package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/storage/memory"
)

func TestFeedbackService_Submit(t *testing.T) {
	svc := NewFeedbackService(memory.New(nil), nil)

	r, err := svc.Submit(context.Background(), "  Wrong total ", "\tSummary shows 0 for August. ")
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "Wrong total", r.Header)
	assert.Equal(t, "Summary shows 0 for August.", r.Details)
}

func TestFeedbackService_Rejects(t *testing.T) {
	svc := NewFeedbackService(memory.New(nil), nil)
	tests := []struct {
		name            string
		header, details string
		want            error
	}{
		{"missing header", "", "details", core.ErrReportIncomplete},
		{"blank details", "header", "   ", core.ErrReportIncomplete},
		{"header too long", strings.Repeat("h", 201), "details", core.ErrHeaderLong},
		{"details too long", "header", strings.Repeat("d", 5001), core.ErrDetailsLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.header, tt.details)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, core.IsValidationError(err))
		})
	}
}
