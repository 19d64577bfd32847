package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/report-moderation/internal/domain/entity"
	"github.com/ignatzorin/report-moderation/internal/domain/valueobject"
)

// Store — единица работы над жалобами и штрафами. Внутри WithinTx все
// изменения применяются атомарно; вложенный вызов WithinTx использует ту же транзакцию.
type Store interface {
	Reports() ReportRepository
	Penalties() PenaltyRepository
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type ReportRepository interface {
	Create(ctx context.Context, report *entity.Report) error
	Update(ctx context.Context, report *entity.Report) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Report, error)
	// FindByIDForUpdate блокирует жалобу до конца транзакции.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Report, error)
	List(ctx context.Context, filter ReportFilter) ([]*entity.Report, error)
	CountPendingByReporter(ctx context.Context, reporterID uuid.UUID) (int, error)
}

type PenaltyRepository interface {
	// Get возвращает состояние пользователя; для нового пользователя — нулевое.
	Get(ctx context.Context, userID uuid.UUID) (*entity.PenaltyState, error)
	// GetForUpdate создаёт строку при необходимости и блокирует её до конца транзакции.
	// Служит также блокировкой репортера при подаче жалобы.
	GetForUpdate(ctx context.Context, userID uuid.UUID) (*entity.PenaltyState, error)
	Save(ctx context.Context, state *entity.PenaltyState) error
	AppendEvent(ctx context.Context, event *entity.PenaltyEvent) error
	ListEvents(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.PenaltyEvent, error)
}

type ReportFilter struct {
	Status     *valueobject.ReportStatus
	ReportType *valueobject.ReportType
	ReporterID *uuid.UUID
	Limit      int
}

// ErrTargetDeleted возвращает ContentResolver, если объект жалобы больше не существует.
var ErrTargetDeleted = errors.New("report target no longer exists")

type TargetInfo struct {
	DisplayName string
	URL         string
}

type UserInfo struct {
	ID          uuid.UUID
	DisplayName string
}

// ContentResolver — внешний источник сведений об объектах жалоб.
type ContentResolver interface {
	Resolve(ctx context.Context, reportType valueobject.ReportType, targetID uuid.UUID) (TargetInfo, error)
	ResolveUser(ctx context.Context, userID uuid.UUID) (UserInfo, error)
}

type Notification struct {
	UserID    uuid.UUID
	Type      string
	Title     string
	Message   string
	RelatedID *uuid.UUID
	CreatedAt time.Time
}

// NotificationSink доставляет уведомления без ожидания результата.
type NotificationSink interface {
	Notify(ctx context.Context, n Notification)
}
