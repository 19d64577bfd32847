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
	"github.com/ignatzorin/report-moderation/internal/pkg/apperror"
)

const defaultHistoryLimit = 50

// PenaltyOutcome — состояние штрафов после операции и изменение блокировки.
type PenaltyOutcome struct {
	State  *entity.PenaltyState
	Change entity.BanChange
	Event  *entity.PenaltyEvent
}

// PenaltyLedger ведёт счётчик предупреждений репортеров и лестницу блокировок.
// Все изменения выполняются под блокировкой строки пользователя и пишутся в журнал.
type PenaltyLedger struct {
	store  repository.Store
	policy entity.PenaltyPolicy
	sink   repository.NotificationSink
	now    func() time.Time
}

// NewPenaltyLedger создаёт журнал штрафов. sink может быть nil.
func NewPenaltyLedger(store repository.Store, policy entity.PenaltyPolicy, sink repository.NotificationSink) *PenaltyLedger {
	return &PenaltyLedger{store: store, policy: policy, sink: sink, now: time.Now}
}

func (l *PenaltyLedger) SetClock(now func() time.Time) {
	l.now = now
}

func (l *PenaltyLedger) Policy() entity.PenaltyPolicy {
	return l.policy
}

// RecordFalseReport начисляет одно предупреждение вне решения по конкретной жалобе.
func (l *PenaltyLedger) RecordFalseReport(ctx context.Context, userID uuid.UUID) (*PenaltyOutcome, error) {
	var out *PenaltyOutcome
	err := l.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		out, err = l.recordFalseReport(ctx, tx, userID, nil, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// recordFalseReport выполняется внутри транзакции вызывающего.
func (l *PenaltyLedger) recordFalseReport(ctx context.Context, tx repository.Store, userID uuid.UUID, reportID, adminID *uuid.UUID) (*PenaltyOutcome, error) {
	state, err := tx.Penalties().GetForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	change := state.ApplyFalseReport(l.policy, now)
	if err := tx.Penalties().Save(ctx, state); err != nil {
		return nil, err
	}

	event := state.Snapshot(entity.PenaltyEventFalseReport, 1, reportID, adminID, now)
	if err := tx.Penalties().AppendEvent(ctx, event); err != nil {
		return nil, err
	}

	metrics.FalseReports.Inc()
	if change != entity.BanUnchanged {
		metrics.BansApplied.WithLabelValues(string(change)).Inc()
	}
	logger.Component("penalty").WithFields(logrus.Fields{
		"user_id":       userID,
		"warning_count": state.WarningCount,
		"ban_change":    change,
	}).Info("false report recorded")

	return &PenaltyOutcome{State: state, Change: change, Event: event}, nil
}

// ReducePenalty снимает amount предупреждений (не ниже нуля) и при необходимости
// снимает блокировку, в том числе постоянную.
func (l *PenaltyLedger) ReducePenalty(ctx context.Context, userID uuid.UUID, amount int, adminID uuid.UUID) (*PenaltyOutcome, error) {
	if amount < 1 {
		return nil, apperror.Validation("amount", "amount должен быть не меньше 1")
	}

	var out *PenaltyOutcome
	err := l.store.WithinTx(ctx, func(tx repository.Store) error {
		state, err := tx.Penalties().GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		now := l.now()
		before := state.WarningCount
		change := state.Reduce(l.policy, amount, now)
		if err := tx.Penalties().Save(ctx, state); err != nil {
			return err
		}

		event := state.Snapshot(entity.PenaltyEventReduction, state.WarningCount-before, nil, &adminID, now)
		if err := tx.Penalties().AppendEvent(ctx, event); err != nil {
			return err
		}

		out = &PenaltyOutcome{State: state, Change: change, Event: event}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.Change != entity.BanUnchanged {
		metrics.BansApplied.WithLabelValues(string(out.Change)).Inc()
	}
	logger.Component("penalty").WithFields(logrus.Fields{
		"user_id":       userID,
		"admin_id":      adminID,
		"amount":        amount,
		"warning_count": out.State.WarningCount,
		"ban_change":    out.Change,
	}).Info("penalty reduced")

	if l.sink != nil {
		l.sink.Notify(ctx, penaltyReducedNotification(out, l.now()))
	}

	return out, nil
}

// GetState возвращает текущее состояние штрафов; для нового пользователя — нулевое.
func (l *PenaltyLedger) GetState(ctx context.Context, userID uuid.UUID) (*entity.PenaltyState, error) {
	return l.store.Penalties().Get(ctx, userID)
}

// History возвращает журнал изменений штрафов пользователя, новые записи первыми.
func (l *PenaltyLedger) History(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.PenaltyEvent, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return l.store.Penalties().ListEvents(ctx, userID, limit)
}

// IsBanned сообщает, действует ли сейчас блокировка пользователя.
func (l *PenaltyLedger) IsBanned(ctx context.Context, userID uuid.UUID) (bool, error) {
	state, err := l.store.Penalties().Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return state.IsBanned(l.now()), nil
}
