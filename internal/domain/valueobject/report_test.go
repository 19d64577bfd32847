package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/report-moderation/internal/pkg/apperror"
)

func TestReportStatus_Transitions(t *testing.T) {
	for _, target := range []ReportStatus{ReportStatusReviewed, ReportStatusResolved, ReportStatusDismissed} {
		assert.True(t, ReportStatusPending.CanTransitionTo(target), target)
		assert.True(t, target.IsTerminal())
		assert.False(t, target.CanTransitionTo(ReportStatusPending))
		assert.False(t, target.CanTransitionTo(ReportStatusResolved))
	}
	assert.False(t, ReportStatusPending.CanTransitionTo(ReportStatusPending))
	assert.False(t, ReportStatusPending.IsTerminal())
}

func TestNewDecisionStatus(t *testing.T) {
	s, err := NewDecisionStatus("resolved")
	require.NoError(t, err)
	assert.Equal(t, ReportStatusResolved, s)

	for _, raw := range []string{"pending", "closed", ""} {
		_, err := NewDecisionStatus(raw)
		assert.True(t, apperror.IsValidation(err), raw)
	}
}

func TestNewReportReasonAndType(t *testing.T) {
	_, err := NewReportReason("fake_info")
	assert.NoError(t, err)
	_, err = NewReportReason("boring")
	assert.True(t, apperror.IsValidation(err))

	_, err = NewReportType("document")
	assert.NoError(t, err)
	_, err = NewReportType("comment")
	assert.True(t, apperror.IsValidation(err))
}
