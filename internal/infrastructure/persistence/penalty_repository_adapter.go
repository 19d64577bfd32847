package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/report-moderation/internal/domain/entity"
	"github.com/ignatzorin/report-moderation/internal/pkg/apperror"
)

const penaltyColumns = `user_id, warning_count, ban_until, is_permanently_banned, updated_at`

type penaltyRow struct {
	UserID              uuid.UUID  `db:"user_id"`
	WarningCount        int        `db:"warning_count"`
	BanUntil            *time.Time `db:"ban_until"`
	IsPermanentlyBanned bool       `db:"is_permanently_banned"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

func (row penaltyRow) toEntity() *entity.PenaltyState {
	return &entity.PenaltyState{
		UserID:              row.UserID,
		WarningCount:        row.WarningCount,
		BanUntil:            row.BanUntil,
		IsPermanentlyBanned: row.IsPermanentlyBanned,
		UpdatedAt:           row.UpdatedAt,
	}
}

type penaltyEventRow struct {
	ID                  uuid.UUID  `db:"id"`
	UserID              uuid.UUID  `db:"user_id"`
	Kind                string     `db:"kind"`
	Delta               int        `db:"delta"`
	WarningCount        int        `db:"warning_count"`
	BanUntil            *time.Time `db:"ban_until"`
	IsPermanentlyBanned bool       `db:"is_permanently_banned"`
	ReportID            *uuid.UUID `db:"report_id"`
	AdminID             *uuid.UUID `db:"admin_id"`
	CreatedAt           time.Time  `db:"created_at"`
}

type PenaltyRepositoryAdapter struct {
	q sqlx.ExtContext
}

func (r *PenaltyRepositoryAdapter) Get(ctx context.Context, userID uuid.UUID) (*entity.PenaltyState, error) {
	var row penaltyRow
	query := `SELECT ` + penaltyColumns + ` FROM reporter_penalties WHERE user_id = $1`
	if err := sqlx.GetContext(ctx, r.q, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.NewPenaltyState(userID), nil
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить штрафы пользователя")
	}
	return row.toEntity(), nil
}

// GetForUpdate гарантирует наличие строки и блокирует её. Строка служит
// блокировкой репортера и для подачи жалоб, и для начисления штрафов.
func (r *PenaltyRepositoryAdapter) GetForUpdate(ctx context.Context, userID uuid.UUID) (*entity.PenaltyState, error) {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO reporter_penalties (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать запись штрафов")
	}

	var row penaltyRow
	query := `SELECT ` + penaltyColumns + ` FROM reporter_penalties WHERE user_id = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, r.q, &row, query, userID); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось заблокировать запись штрафов")
	}
	return row.toEntity(), nil
}

func (r *PenaltyRepositoryAdapter) Save(ctx context.Context, state *entity.PenaltyState) error {
	query := `
		INSERT INTO reporter_penalties (user_id, warning_count, ban_until, is_permanently_banned, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET warning_count = EXCLUDED.warning_count,
		    ban_until = EXCLUDED.ban_until,
		    is_permanently_banned = EXCLUDED.is_permanently_banned,
		    updated_at = EXCLUDED.updated_at
	`

	updatedAt := state.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := r.q.ExecContext(ctx, query,
		state.UserID,
		state.WarningCount,
		state.BanUntil,
		state.IsPermanentlyBanned,
		updatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить штрафы пользователя")
	}
	return nil
}

func (r *PenaltyRepositoryAdapter) AppendEvent(ctx context.Context, event *entity.PenaltyEvent) error {
	query := `
		INSERT INTO penalty_events (id, user_id, kind, delta, warning_count, ban_until, is_permanently_banned,
		                            report_id, admin_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		event.ID,
		event.UserID,
		string(event.Kind),
		event.Delta,
		event.WarningCount,
		event.BanUntil,
		event.IsPermanentlyBanned,
		event.ReportID,
		event.AdminID,
		event.CreatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось записать событие штрафа")
	}
	return nil
}

func (r *PenaltyRepositoryAdapter) ListEvents(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.PenaltyEvent, error) {
	query := `
		SELECT id, user_id, kind, delta, warning_count, ban_until, is_permanently_banned, report_id, admin_id, created_at
		FROM penalty_events
		WHERE user_id = $1
		ORDER BY seq DESC
		LIMIT NULLIF($2, 0)
	`

	var rows []penaltyEventRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, userID, limit); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить историю штрафов")
	}

	events := make([]*entity.PenaltyEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, &entity.PenaltyEvent{
			ID:                  row.ID,
			UserID:              row.UserID,
			Kind:                entity.PenaltyEventKind(row.Kind),
			Delta:               row.Delta,
			WarningCount:        row.WarningCount,
			BanUntil:            row.BanUntil,
			IsPermanentlyBanned: row.IsPermanentlyBanned,
			ReportID:            row.ReportID,
			AdminID:             row.AdminID,
			CreatedAt:           row.CreatedAt,
		})
	}
	return events, nil
}
