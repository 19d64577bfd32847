package config

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/report-moderation/internal/domain/valueobject"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, 3, cfg.Moderation.PendingCap)
	assert.Equal(t, 3, cfg.Moderation.TempBanThreshold)
	assert.Equal(t, 5, cfg.Moderation.PermanentBanThreshold)
	assert.Equal(t, 7*24*time.Hour, cfg.Moderation.TempBanDuration)
	assert.Equal(t, valueobject.BanWindowReset, cfg.Moderation.BanWindow)
	assert.False(t, cfg.AllowRedecision)
	assert.Equal(t, 10, cfg.RecentReports)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.Empty(t, cfg.AdminUserIDs)
}

func TestFromEnv_Overrides(t *testing.T) {
	admin := uuid.New()
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("MODERATION_PENDING_CAP", "5")
	t.Setenv("MODERATION_BAN_WINDOW_MODE", "extend")
	t.Setenv("MODERATION_ALLOW_REDECISION", "true")
	t.Setenv("ADMIN_USER_IDS", " "+admin.String()+" ,")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Moderation.PendingCap)
	assert.Equal(t, valueobject.BanWindowExtend, cfg.Moderation.BanWindow)
	assert.True(t, cfg.AllowRedecision)
	assert.Equal(t, []uuid.UUID{admin}, cfg.AdminUserIDs)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"неизвестный драйвер", map[string]string{"STORAGE_DRIVER": "mongo"}},
		{"пороги наоборот", map[string]string{"MODERATION_TEMP_BAN_THRESHOLD": "5", "MODERATION_PERMANENT_BAN_THRESHOLD": "3"}},
		{"режим окна", map[string]string{"MODERATION_BAN_WINDOW_MODE": "forever"}},
		{"admin ids", map[string]string{"ADMIN_USER_IDS": "not-a-uuid"}},
		{"production без секрета", map[string]string{"APP_ENV": "production", "CORS_ALLOWED_ORIGINS": "https://a.example.com"}},
		{"production с памятью", map[string]string{
			"APP_ENV":              "production",
			"JWT_SECRET":           "0123456789abcdef0123456789abcdef",
			"CORS_ALLOWED_ORIGINS": "https://a.example.com",
			"STORAGE_DRIVER":       "memory",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", "development")
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
