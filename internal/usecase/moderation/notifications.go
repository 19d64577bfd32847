package moderation

import (
	"fmt"
	"time"

	"github.com/ignatzorin/report-moderation/internal/domain/entity"
	"github.com/ignatzorin/report-moderation/internal/domain/repository"
)

const (
	NotificationFalseReport    = "report_false"
	NotificationPenaltyReduced = "penalty_reduced"
)

const banDateLayout = "02.01.2006 15:04 UTC"

func falseReportNotification(report *entity.Report, out *PenaltyOutcome, policy entity.PenaltyPolicy, now time.Time) repository.Notification {
	msg := fmt.Sprintf("Администратор признал вашу жалобу ложной. Предупреждений: %d.", out.State.WarningCount)

	switch {
	case out.State.IsPermanentlyBanned:
		msg += " Возможность подавать жалобы заблокирована навсегда."
	case out.Change == entity.BanTemporary && out.State.BanUntil != nil:
		msg += fmt.Sprintf(" Подача жалоб заблокирована до %s.", out.State.BanUntil.UTC().Format(banDateLayout))
	case out.State.WarningCount < policy.TempBanThreshold:
		msg += fmt.Sprintf(" При %d предупреждениях подача жалоб будет временно заблокирована.", policy.TempBanThreshold)
	}

	reportID := report.ID
	return repository.Notification{
		UserID:    report.ReporterID,
		Type:      NotificationFalseReport,
		Title:     "Ваша жалоба признана ложной",
		Message:   msg,
		RelatedID: &reportID,
		CreatedAt: now,
	}
}

func penaltyReducedNotification(out *PenaltyOutcome, now time.Time) repository.Notification {
	msg := fmt.Sprintf("Администратор снизил штраф за ложные жалобы. Предупреждений: %d.", out.State.WarningCount)
	if out.Change == entity.BanLifted {
		msg += " Блокировка подачи жалоб снята."
	}
	return repository.Notification{
		UserID:    out.State.UserID,
		Type:      NotificationPenaltyReduced,
		Title:     "Штраф за ложные жалобы снижен",
		Message:   msg,
		CreatedAt: now,
	}
}
