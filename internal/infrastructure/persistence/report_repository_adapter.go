package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/report-moderation/internal/domain/entity"
	"github.com/ignatzorin/report-moderation/internal/domain/repository"
	"github.com/ignatzorin/report-moderation/internal/domain/valueobject"
	"github.com/ignatzorin/report-moderation/internal/pkg/apperror"
	"github.com/ignatzorin/report-moderation/internal/repository/common"
)

const reportColumns = `id, reporter_id, report_type, reported_user_id, reported_post_id, reported_document_id,
	reason, description, status, is_false_report, admin_note, reviewed_by, created_at, reviewed_at`

type reportRow struct {
	ID                 uuid.UUID  `db:"id"`
	ReporterID         uuid.UUID  `db:"reporter_id"`
	ReportType         string     `db:"report_type"`
	ReportedUserID     *uuid.UUID `db:"reported_user_id"`
	ReportedPostID     *uuid.UUID `db:"reported_post_id"`
	ReportedDocumentID *uuid.UUID `db:"reported_document_id"`
	Reason             string     `db:"reason"`
	Description        *string    `db:"description"`
	Status             string     `db:"status"`
	IsFalseReport      bool       `db:"is_false_report"`
	AdminNote          *string    `db:"admin_note"`
	ReviewedBy         *uuid.UUID `db:"reviewed_by"`
	CreatedAt          time.Time  `db:"created_at"`
	ReviewedAt         *time.Time `db:"reviewed_at"`
}

func (row reportRow) toEntity() *entity.Report {
	return &entity.Report{
		ID:                 row.ID,
		ReporterID:         row.ReporterID,
		ReportType:         valueobject.ReportType(row.ReportType),
		ReportedUserID:     row.ReportedUserID,
		ReportedPostID:     row.ReportedPostID,
		ReportedDocumentID: row.ReportedDocumentID,
		Reason:             valueobject.ReportReason(row.Reason),
		Description:        row.Description,
		Status:             valueobject.ReportStatus(row.Status),
		IsFalseReport:      row.IsFalseReport,
		AdminNote:          row.AdminNote,
		ReviewedBy:         row.ReviewedBy,
		CreatedAt:          row.CreatedAt,
		ReviewedAt:         row.ReviewedAt,
	}
}

type ReportRepositoryAdapter struct {
	q sqlx.ExtContext
}

func (r *ReportRepositoryAdapter) Create(ctx context.Context, report *entity.Report) error {
	query := `
		INSERT INTO reports (id, reporter_id, report_type, reported_user_id, reported_post_id, reported_document_id,
		                     reason, description, status, is_false_report, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.q.ExecContext(ctx, query,
		report.ID,
		report.ReporterID,
		string(report.ReportType),
		report.ReportedUserID,
		report.ReportedPostID,
		report.ReportedDocumentID,
		string(report.Reason),
		report.Description,
		string(report.Status),
		report.IsFalseReport,
		report.CreatedAt,
	)
	switch {
	case err == nil:
		return nil
	case common.IsUniqueViolation(err):
		return apperror.Wrap(err, apperror.ErrCodeConflict, "жалоба уже существует")
	case common.IsCheckViolation(err):
		return apperror.Wrap(err, apperror.ErrCodeValidation, "жалоба нарушает ограничения схемы")
	default:
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать жалобу")
	}
}

func (r *ReportRepositoryAdapter) Update(ctx context.Context, report *entity.Report) error {
	query := `
		UPDATE reports
		SET status = $2, is_false_report = $3, admin_note = $4, reviewed_by = $5, reviewed_at = $6
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query,
		report.ID,
		string(report.Status),
		report.IsFalseReport,
		report.AdminNote,
		report.ReviewedBy,
		report.ReviewedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить жалобу")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить результат обновления")
	}
	if rows == 0 {
		return apperror.ErrReportNotFound
	}

	return nil
}

func (r *ReportRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	return r.findOne(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
}

func (r *ReportRepositoryAdapter) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	return r.findOne(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1 FOR UPDATE`, id)
}

func (r *ReportRepositoryAdapter) findOne(ctx context.Context, query string, id uuid.UUID) (*entity.Report, error) {
	var row reportRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrReportNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить жалобу")
	}
	return row.toEntity(), nil
}

func (r *ReportRepositoryAdapter) List(ctx context.Context, filter repository.ReportFilter) ([]*entity.Report, error) {
	query, args := buildListQuery(filter)

	var rows []reportRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить список жалоб")
	}

	reports := make([]*entity.Report, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, row.toEntity())
	}
	return reports, nil
}

// buildListQuery собирает запрос списка жалоб от новых к старым.
func buildListQuery(filter repository.ReportFilter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.Status != nil {
		add("status = $%d", string(*filter.Status))
	}
	if filter.ReportType != nil {
		add("report_type = $%d", string(*filter.ReportType))
	}
	if filter.ReporterID != nil {
		add("reporter_id = $%d", *filter.ReporterID)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(reportColumns)
	b.WriteString(" FROM reports")
	if len(conditions) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conditions, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	return b.String(), args
}

func (r *ReportRepositoryAdapter) CountPendingByReporter(ctx context.Context, reporterID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM reports WHERE reporter_id = $1 AND status = $2`
	if err := sqlx.GetContext(ctx, r.q, &count, query, reporterID, string(valueobject.ReportStatusPending)); err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать жалобы на рассмотрении")
	}
	return count, nil
}
