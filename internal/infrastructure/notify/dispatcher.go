// Package notify доставляет уведомления пользователям: сохраняет их в хранилище
// и отправляет в открытые WebSocket соединения.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/report-moderation/internal/domain/repository"
	"github.com/ignatzorin/report-moderation/internal/goroutine"
	"github.com/ignatzorin/report-moderation/internal/logger"
	"github.com/ignatzorin/report-moderation/internal/metrics"
	"github.com/ignatzorin/report-moderation/internal/models"
)

// Saver сохраняет уведомление; реализуется service.NotificationService.
type Saver interface {
	CreateNotification(ctx context.Context, userID uuid.UUID, event string, data interface{}) (*models.Notification, error)
}

// Pusher доставляет сообщение в открытые соединения; реализуется ws.Hub.
type Pusher interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// Payload — данные уведомления, которые видит клиент.
type Payload struct {
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	RelatedID *uuid.UUID `json:"related_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type Options struct {
	MaxAttempts     int
	InitialInterval time.Duration
}

func DefaultOptions() Options {
	return Options{MaxAttempts: 3, InitialInterval: 200 * time.Millisecond}
}

// Dispatcher реализует repository.NotificationSink. Notify не блокирует
// вызывающего: доставка идёт в отдельной горутине, ошибки только логируются.
type Dispatcher struct {
	saver  Saver
	pusher Pusher
	opts   Options
	wg     sync.WaitGroup
}

var _ repository.NotificationSink = (*Dispatcher)(nil)

// NewDispatcher создаёт диспетчер. pusher может быть nil.
func NewDispatcher(saver Saver, pusher Pusher, opts Options) *Dispatcher {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = DefaultOptions().InitialInterval
	}
	return &Dispatcher{saver: saver, pusher: pusher, opts: opts}
}

func (d *Dispatcher) Notify(ctx context.Context, n repository.Notification) {
	// Доставка переживает завершение HTTP запроса.
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
		defer d.wg.Done()
		d.deliver(ctx, n)
	})
}

// Wait дожидается завершения начатых доставок.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, n repository.Notification) {
	log := logger.Component("notify").WithFields(logrus.Fields{
		"user_id": n.UserID,
		"type":    n.Type,
	})

	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	payload := Payload{
		Title:     n.Title,
		Message:   n.Message,
		RelatedID: n.RelatedID,
		CreatedAt: createdAt,
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = d.opts.InitialInterval

	saved, err := backoff.Retry(ctx, func() (*models.Notification, error) {
		return d.saver.CreateNotification(ctx, n.UserID, n.Type, payload)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(d.opts.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.WithError(err).WithField("retry_in", next).Warn("notification save failed, retrying")
		}),
	)
	if err != nil {
		metrics.NotificationsDelivered.WithLabelValues("failed").Inc()
		log.WithError(err).Error("notification dropped after retries")
		return
	}
	metrics.NotificationsDelivered.WithLabelValues("stored").Inc()

	if d.pusher == nil {
		return
	}
	push := map[string]any{
		"id":         saved.ID,
		"title":      payload.Title,
		"message":    payload.Message,
		"related_id": payload.RelatedID,
		"created_at": saved.CreatedAt,
	}
	if err := d.pusher.BroadcastToUser(n.UserID, n.Type, push); err != nil {
		log.WithError(err).Warn("notification push failed")
		return
	}
	metrics.NotificationsDelivered.WithLabelValues("pushed").Inc()
}
