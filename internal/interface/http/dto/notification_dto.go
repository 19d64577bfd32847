package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/report-moderation/internal/models"
)

type NotificationResponse struct {
	ID        uuid.UUID       `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	IsRead    bool            `json:"is_read"`
	CreatedAt time.Time       `json:"created_at"`
}

func ToNotificationResponses(items []models.Notification) []NotificationResponse {
	result := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		result = append(result, NotificationResponse{
			ID:        n.ID,
			Payload:   n.Payload,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	return result
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}
