package report

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/report-moderation/internal/domain/entity"
	"github.com/ignatzorin/report-moderation/internal/domain/repository"
	"github.com/ignatzorin/report-moderation/internal/logger"
	"github.com/ignatzorin/report-moderation/internal/metrics"
	"github.com/ignatzorin/report-moderation/internal/pkg/apperror"
)

type SubmitReportInput struct {
	ReporterID  uuid.UUID
	ReportType  string
	Target      entity.TargetRef
	Reason      string
	Description *string
}

type SubmitReportUseCase struct {
	store    repository.Store
	guard    *EligibilityGuard
	resolver repository.ContentResolver
	now      func() time.Time
}

// NewSubmitReportUseCase создаёт сценарий подачи жалобы. resolver может быть nil —
// тогда существование объекта жалобы не проверяется.
func NewSubmitReportUseCase(store repository.Store, guard *EligibilityGuard, resolver repository.ContentResolver) *SubmitReportUseCase {
	return &SubmitReportUseCase{
		store:    store,
		guard:    guard,
		resolver: resolver,
		now:      time.Now,
	}
}

func (uc *SubmitReportUseCase) Execute(ctx context.Context, input SubmitReportInput) (*entity.Report, error) {
	report, err := entity.NewReport(input.ReporterID, input.ReportType, input.Target, input.Reason, input.Description, uc.now())
	if err != nil {
		return nil, err
	}

	if err := uc.ensureTargetExists(ctx, report); err != nil {
		return nil, err
	}

	err = uc.store.WithinTx(ctx, func(tx repository.Store) error {
		eligibility, err := uc.guard.checkLocked(ctx, tx, input.ReporterID)
		if err != nil {
			return err
		}
		if !eligibility.Allowed {
			return eligibility.Err()
		}
		return tx.Reports().Create(ctx, report)
	})
	if err != nil {
		if code := apperror.ReasonCodeOf(err); code != "" {
			metrics.ReportsDenied.WithLabelValues(code).Inc()
			logger.Component("report").WithFields(logrus.Fields{
				"reporter_id": input.ReporterID,
				"reason_code": code,
			}).Info("report submission denied")
		}
		return nil, err
	}

	metrics.ReportsSubmitted.WithLabelValues(string(report.ReportType)).Inc()
	logger.Component("report").WithFields(logrus.Fields{
		"report_id":   report.ID,
		"reporter_id": report.ReporterID,
		"report_type": report.ReportType,
		"reason":      report.Reason,
	}).Info("report submitted")

	return report, nil
}

// ensureTargetExists отклоняет жалобу на удалённый объект. Недоступность
// источника контента не блокирует подачу жалобы.
func (uc *SubmitReportUseCase) ensureTargetExists(ctx context.Context, report *entity.Report) error {
	if uc.resolver == nil {
		return nil
	}
	_, err := uc.resolver.Resolve(ctx, report.ReportType, report.TargetID())
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrTargetDeleted) {
		return apperror.ErrTargetNotFound
	}
	logger.Component("report").WithError(err).WithField("target_id", report.TargetID()).
		Warn("could not verify report target, accepting report")
	return nil
}
