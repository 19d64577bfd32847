package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/report-moderation/internal/models"
	"github.com/ignatzorin/report-moderation/internal/pkg/apperror"
)

// NotificationRepository хранит уведомления в памяти процесса.
type NotificationRepository struct {
	mu    sync.Mutex
	items []*models.Notification
	now   func() time.Time
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{now: time.Now}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n.ID = uuid.New()
	n.CreatedAt = r.now()
	stored := *n
	r.items = append(r.items, &stored)
	return nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.items {
		if n.ID == id {
			c := *n
			return &c, nil
		}
	}
	return nil, apperror.ErrNotificationNotFound
}

func (r *NotificationRepository) List(ctx context.Context, userID uuid.UUID, limit int, unreadOnly bool) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]models.Notification, 0)
	for i := len(r.items) - 1; i >= 0; i-- {
		n := r.items[i]
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		result = append(result, *n)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (r *NotificationRepository) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.items {
		if n.ID == id {
			n.IsRead = true
			return nil
		}
	}
	return apperror.ErrNotificationNotFound
}

func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.items {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, n := range r.items {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}
