package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/report-moderation/internal/infrastructure/memory"
	"github.com/ignatzorin/report-moderation/internal/pkg/apperror"
	"github.com/ignatzorin/report-moderation/internal/service"
)

func TestNotificationService_CreateAndList(t *testing.T) {
	svc := service.NewNotificationService(memory.NewNotificationRepository())
	ctx := context.Background()
	user := uuid.New()

	created, err := svc.CreateNotification(ctx, user, "report_false", map[string]any{"warning_count": 2})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	var payload struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(created.Payload, &payload))
	assert.Equal(t, "report_false", payload.Event)
	assert.EqualValues(t, 2, payload.Data["warning_count"])

	_, err = svc.CreateNotification(ctx, uuid.New(), "report_false", nil)
	require.NoError(t, err)

	list, err := svc.ListNotifications(ctx, user, 0, false)
	require.NoError(t, err)
	require.Len(t, list, 1)

	unread, err := svc.CountUnread(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestNotificationService_MarkAsRead(t *testing.T) {
	svc := service.NewNotificationService(memory.NewNotificationRepository())
	ctx := context.Background()
	owner := uuid.New()

	n, err := svc.CreateNotification(ctx, owner, "penalty_reduced", nil)
	require.NoError(t, err)

	err = svc.MarkAsRead(ctx, n.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))

	require.NoError(t, svc.MarkAsRead(ctx, n.ID, owner))

	unread, err := svc.ListNotifications(ctx, owner, 10, true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	err = svc.MarkAsRead(ctx, uuid.New(), owner)
	assert.True(t, apperror.IsNotFound(err))
}

func TestNotificationService_MarkAllAsRead(t *testing.T) {
	svc := service.NewNotificationService(memory.NewNotificationRepository())
	ctx := context.Background()
	user := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateNotification(ctx, user, "report_false", nil)
		require.NoError(t, err)
	}

	require.NoError(t, svc.MarkAllAsRead(ctx, user))

	count, err := svc.CountUnread(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, count)
}
