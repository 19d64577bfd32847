// Package content отвечает за сведения об объектах жалоб: пользователях,
// постах и документах платформы.
package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/report-moderation/internal/domain/repository"
	"github.com/ignatzorin/report-moderation/internal/domain/valueobject"
)

// TargetURL возвращает ссылку на объект жалобы на сайте.
func TargetURL(reportType valueobject.ReportType, id uuid.UUID) string {
	switch reportType {
	case valueobject.ReportTypeUser:
		return "/users/" + id.String()
	case valueobject.ReportTypePost:
		return "/posts/" + id.String()
	case valueobject.ReportTypeDocument:
		return "/documents/" + id.String()
	}
	return ""
}

var lookupQueries = map[valueobject.ReportType]string{
	valueobject.ReportTypeUser:     `SELECT username FROM users WHERE id = $1`,
	valueobject.ReportTypePost:     `SELECT title FROM posts WHERE id = $1`,
	valueobject.ReportTypeDocument: `SELECT title FROM documents WHERE id = $1`,
}

// SQLResolver читает объекты жалоб из таблиц платформы.
type SQLResolver struct {
	db *sqlx.DB
}

func NewSQLResolver(db *sqlx.DB) *SQLResolver {
	return &SQLResolver{db: db}
}

func (r *SQLResolver) Resolve(ctx context.Context, reportType valueobject.ReportType, targetID uuid.UUID) (repository.TargetInfo, error) {
	query, ok := lookupQueries[reportType]
	if !ok {
		return repository.TargetInfo{}, fmt.Errorf("content: unknown report type %q", reportType)
	}

	var name string
	if err := r.db.GetContext(ctx, &name, query, targetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.TargetInfo{}, repository.ErrTargetDeleted
		}
		return repository.TargetInfo{}, fmt.Errorf("content: resolve %s %s: %w", reportType, targetID, err)
	}

	return repository.TargetInfo{DisplayName: name, URL: TargetURL(reportType, targetID)}, nil
}

func (r *SQLResolver) ResolveUser(ctx context.Context, userID uuid.UUID) (repository.UserInfo, error) {
	info, err := r.Resolve(ctx, valueobject.ReportTypeUser, userID)
	if err != nil {
		return repository.UserInfo{}, err
	}
	return repository.UserInfo{ID: userID, DisplayName: info.DisplayName}, nil
}
