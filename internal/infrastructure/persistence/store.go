package persistence

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/report-moderation/internal/domain/repository"
	"github.com/ignatzorin/report-moderation/internal/pkg/apperror"
	"github.com/ignatzorin/report-moderation/internal/repository/common"
)

// Store реализует repository.Store поверх PostgreSQL. Вне транзакции запросы
// идут в пул соединений, внутри WithinTx — в открытую транзакцию.
type Store struct {
	db   *sqlx.DB
	q    sqlx.ExtContext
	inTx bool
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, q: db}
}

func (s *Store) Reports() repository.ReportRepository {
	return &ReportRepositoryAdapter{q: s.q}
}

func (s *Store) Penalties() repository.PenaltyRepository {
	return &PenaltyRepositoryAdapter{q: s.q}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	err := common.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&Store{db: s.db, q: tx, inTx: true})
	})
	if err == nil {
		return nil
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось выполнить транзакцию")
}
