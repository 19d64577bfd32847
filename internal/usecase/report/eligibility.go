package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/report-moderation/internal/domain/entity"
	"github.com/ignatzorin/report-moderation/internal/domain/repository"
	"github.com/ignatzorin/report-moderation/internal/domain/valueobject"
	"github.com/ignatzorin/report-moderation/internal/pkg/apperror"
)

// Eligibility — результат проверки права подать жалобу.
type Eligibility struct {
	Allowed    bool
	ReasonCode valueobject.DenialCode
	BanUntil   *time.Time
	PendingCap int
}

// Err превращает отказ в ошибку с машиночитаемой причиной.
func (e Eligibility) Err() error {
	switch e.ReasonCode {
	case valueobject.DenialPermanentBan:
		return apperror.Banned(string(e.ReasonCode), "подача жалоб заблокирована навсегда из-за ложных жалоб")
	case valueobject.DenialTempBan:
		msg := "подача жалоб временно заблокирована из-за ложных жалоб"
		if e.BanUntil != nil {
			msg = fmt.Sprintf("%s до %s", msg, e.BanUntil.UTC().Format(time.RFC3339))
		}
		return apperror.Banned(string(e.ReasonCode), msg)
	case valueobject.DenialPendingCap:
		return apperror.RateLimited(string(e.ReasonCode),
			fmt.Sprintf("у вас уже %d жалобы на рассмотрении, дождитесь решения по ним", e.PendingCap))
	}
	return nil
}

// EligibilityGuard решает, может ли пользователь подать новую жалобу.
type EligibilityGuard struct {
	store  repository.Store
	policy entity.PenaltyPolicy
	now    func() time.Time
}

func NewEligibilityGuard(store repository.Store, policy entity.PenaltyPolicy) *EligibilityGuard {
	return &EligibilityGuard{store: store, policy: policy, now: time.Now}
}

// SetClock подменяет источник времени.
func (g *EligibilityGuard) SetClock(now func() time.Time) {
	g.now = now
}

// CanReport проверяет по порядку: постоянный бан, временный бан, лимит ожидающих жалоб.
func (g *EligibilityGuard) CanReport(ctx context.Context, userID uuid.UUID) (Eligibility, error) {
	state, err := g.store.Penalties().Get(ctx, userID)
	if err != nil {
		return Eligibility{}, err
	}
	pending, err := g.store.Reports().CountPendingByReporter(ctx, userID)
	if err != nil {
		return Eligibility{}, err
	}
	return g.evaluate(state, pending, g.now()), nil
}

// checkLocked выполняет ту же проверку внутри транзакции, удерживая блокировку репортера
// до вставки жалобы.
func (g *EligibilityGuard) checkLocked(ctx context.Context, tx repository.Store, userID uuid.UUID) (Eligibility, error) {
	state, err := tx.Penalties().GetForUpdate(ctx, userID)
	if err != nil {
		return Eligibility{}, err
	}
	pending, err := tx.Reports().CountPendingByReporter(ctx, userID)
	if err != nil {
		return Eligibility{}, err
	}
	return g.evaluate(state, pending, g.now()), nil
}

func (g *EligibilityGuard) evaluate(state *entity.PenaltyState, pending int, now time.Time) Eligibility {
	e := Eligibility{PendingCap: g.policy.PendingCap}

	if code := state.ActiveBan(now); code != valueobject.DenialNone {
		e.ReasonCode = code
		e.BanUntil = state.BanUntil
		return e
	}
	if pending >= g.policy.PendingCap {
		e.ReasonCode = valueobject.DenialPendingCap
		return e
	}

	e.Allowed = true
	return e
}

// ReporterStatus — сводка для отображения пользователю.
type ReporterStatus struct {
	WarningCount        int
	BanUntil            *time.Time
	IsBanned            bool
	IsPermanentlyBanned bool
	PendingReportsCount int
	CanReport           bool
	ReasonCode          valueobject.DenialCode
	RecentReports       []*entity.Report
}

// GetStatus собирает состояние штрафов, число ожидающих жалоб и последние жалобы пользователя.
func (g *EligibilityGuard) GetStatus(ctx context.Context, userID uuid.UUID, recentLimit int) (*ReporterStatus, error) {
	state, err := g.store.Penalties().Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	pending, err := g.store.Reports().CountPendingByReporter(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := g.store.Reports().List(ctx, repository.ReportFilter{ReporterID: &userID, Limit: recentLimit})
	if err != nil {
		return nil, err
	}

	now := g.now()
	eligibility := g.evaluate(state, pending, now)

	return &ReporterStatus{
		WarningCount:        state.WarningCount,
		BanUntil:            state.BanUntil,
		IsBanned:            state.IsBanned(now),
		IsPermanentlyBanned: state.IsPermanentlyBanned,
		PendingReportsCount: pending,
		CanReport:           eligibility.Allowed,
		ReasonCode:          eligibility.ReasonCode,
		RecentReports:       recent,
	}, nil
}
