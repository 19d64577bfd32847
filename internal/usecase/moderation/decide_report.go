package moderation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/report-moderation/internal/domain/entity"
	"github.com/ignatzorin/report-moderation/internal/domain/repository"
	"github.com/ignatzorin/report-moderation/internal/logger"
	"github.com/ignatzorin/report-moderation/internal/metrics"
)

type DecideReportInput struct {
	ReportID      uuid.UUID
	AdminID       uuid.UUID
	Status        string
	AdminNote     *string
	IsFalseReport bool
}

type DecideReportResult struct {
	Report *entity.Report
	// Penalty заполнен, только если решение впервые пометило жалобу ложной.
	Penalty *PenaltyOutcome
}

type DecideReportUseCase struct {
	store           repository.Store
	ledger          *PenaltyLedger
	sink            repository.NotificationSink
	allowRedecision bool
	now             func() time.Time
}

// NewDecideReportUseCase создаёт сценарий решения по жалобе. При allowRedecision
// закрытую жалобу можно перерешить; иначе повторное решение возвращает конфликт.
func NewDecideReportUseCase(store repository.Store, ledger *PenaltyLedger, sink repository.NotificationSink, allowRedecision bool) *DecideReportUseCase {
	return &DecideReportUseCase{
		store:           store,
		ledger:          ledger,
		sink:            sink,
		allowRedecision: allowRedecision,
		now:             time.Now,
	}
}

func (uc *DecideReportUseCase) SetClock(now func() time.Time) {
	uc.now = now
}

// Execute атомарно обновляет жалобу и, если она впервые признана ложной,
// начисляет предупреждение репортеру. Уведомление отправляется после фиксации.
func (uc *DecideReportUseCase) Execute(ctx context.Context, input DecideReportInput) (*DecideReportResult, error) {
	result := &DecideReportResult{}

	err := uc.store.WithinTx(ctx, func(tx repository.Store) error {
		report, err := tx.Reports().FindByIDForUpdate(ctx, input.ReportID)
		if err != nil {
			return err
		}

		flagged, err := report.Decide(entity.Decision{
			AdminID:         input.AdminID,
			Status:          input.Status,
			AdminNote:       input.AdminNote,
			IsFalseReport:   input.IsFalseReport,
			AllowRedecision: uc.allowRedecision,
		}, uc.now())
		if err != nil {
			return err
		}

		if err := tx.Reports().Update(ctx, report); err != nil {
			return err
		}

		if flagged {
			reportID, adminID := report.ID, input.AdminID
			outcome, err := uc.ledger.recordFalseReport(ctx, tx, report.ReporterID, &reportID, &adminID)
			if err != nil {
				return err
			}
			result.Penalty = outcome
		}

		result.Report = report
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ReportsDecided.WithLabelValues(string(result.Report.Status)).Inc()
	logger.Component("moderation").WithFields(logrus.Fields{
		"report_id":       result.Report.ID,
		"admin_id":        input.AdminID,
		"status":          result.Report.Status,
		"is_false_report": result.Report.IsFalseReport,
		"penalized":       result.Penalty != nil,
	}).Info("report decided")

	if result.Penalty != nil && uc.sink != nil {
		uc.sink.Notify(ctx, falseReportNotification(result.Report, result.Penalty, uc.ledger.Policy(), uc.now()))
	}

	return result, nil
}
