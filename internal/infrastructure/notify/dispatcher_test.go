package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/report-moderation/internal/domain/repository"
	"github.com/ignatzorin/report-moderation/internal/infrastructure/memory"
	"github.com/ignatzorin/report-moderation/internal/infrastructure/notify"
	"github.com/ignatzorin/report-moderation/internal/models"
	"github.com/ignatzorin/report-moderation/internal/service"
)

type mockSaver struct {
	mock.Mock
}

func (m *mockSaver) CreateNotification(ctx context.Context, userID uuid.UUID, event string, data interface{}) (*models.Notification, error) {
	args := m.Called(ctx, userID, event, data)
	if n, ok := args.Get(0).(*models.Notification); ok {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

type recordingPusher struct {
	mu     sync.Mutex
	events []string
	users  []uuid.UUID
}

func (p *recordingPusher) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	p.users = append(p.users, userID)
	return nil
}

func fastOptions(attempts int) notify.Options {
	return notify.Options{MaxAttempts: attempts, InitialInterval: time.Millisecond}
}

func TestDispatcher_StoresAndPushes(t *testing.T) {
	repo := memory.NewNotificationRepository()
	svc := service.NewNotificationService(repo)
	pusher := &recordingPusher{}
	d := notify.NewDispatcher(svc, pusher, fastOptions(3))

	user := uuid.New()
	report := uuid.New()
	d.Notify(context.Background(), repository.Notification{
		UserID:    user,
		Type:      "report_false",
		Title:     "Ваша жалоба признана ложной",
		Message:   "Предупреждений: 1.",
		RelatedID: &report,
	})
	d.Wait()

	list, err := svc.ListNotifications(context.Background(), user, 10, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Contains(t, string(list[0].Payload), "Предупреждений: 1.")
	assert.Contains(t, string(list[0].Payload), report.String())

	assert.Equal(t, []string{"report_false"}, pusher.events)
	assert.Equal(t, []uuid.UUID{user}, pusher.users)
}

func TestDispatcher_RetriesTransientFailures(t *testing.T) {
	saver := new(mockSaver)
	user := uuid.New()
	saver.On("CreateNotification", mock.Anything, user, "report_false", mock.Anything).
		Return(nil, errors.New("connection reset")).Twice()
	saver.On("CreateNotification", mock.Anything, user, "report_false", mock.Anything).
		Return(&models.Notification{ID: uuid.New(), UserID: user}, nil).Once()

	pusher := &recordingPusher{}
	d := notify.NewDispatcher(saver, pusher, fastOptions(3))

	d.Notify(context.Background(), repository.Notification{UserID: user, Type: "report_false"})
	d.Wait()

	saver.AssertNumberOfCalls(t, "CreateNotification", 3)
	assert.Len(t, pusher.events, 1)
}

func TestDispatcher_GivesUpAfterMaxAttempts(t *testing.T) {
	saver := new(mockSaver)
	user := uuid.New()
	saver.On("CreateNotification", mock.Anything, user, "report_false", mock.Anything).
		Return(nil, errors.New("database is down"))

	pusher := &recordingPusher{}
	d := notify.NewDispatcher(saver, pusher, fastOptions(2))

	d.Notify(context.Background(), repository.Notification{UserID: user, Type: "report_false"})
	d.Wait()

	saver.AssertNumberOfCalls(t, "CreateNotification", 2)
	assert.Empty(t, pusher.events)
}

func TestDispatcher_SurvivesCancelledRequestContext(t *testing.T) {
	repo := memory.NewNotificationRepository()
	svc := service.NewNotificationService(repo)
	d := notify.NewDispatcher(svc, nil, fastOptions(1))

	ctx, cancel := context.WithCancel(context.Background())
	user := uuid.New()
	d.Notify(ctx, repository.Notification{UserID: user, Type: "penalty_reduced"})
	cancel()
	d.Wait()

	count, err := svc.CountUnread(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
