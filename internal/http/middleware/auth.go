package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/report-moderation/internal/interface/http/response"
	"github.com/ignatzorin/report-moderation/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "userID"
	ContextRoleKey   = "role"
)

const RoleAdmin = "admin"

// AuthMiddleware проверяет JWT access токен из заголовка Authorization.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			response.Unauthorized(c, "требуется авторизация")
			return
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		userID, role, err := tokens.ParseAccess(raw)
		if err != nil || userID == uuid.Nil {
			response.Unauthorized(c, "токен невалиден")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

// AdminRequired пропускает пользователей с ролью admin и пользователей
// из списка adminUserIDs (ADMIN_USER_IDS).
func AdminRequired(adminUserIDs []uuid.UUID) gin.HandlerFunc {
	allowed := make(map[uuid.UUID]struct{}, len(adminUserIDs))
	for _, id := range adminUserIDs {
		allowed[id] = struct{}{}
	}

	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			response.Unauthorized(c, "требуется авторизация")
			return
		}

		if c.GetString(ContextRoleKey) == RoleAdmin {
			c.Next()
			return
		}
		if _, ok := allowed[userID]; ok {
			c.Next()
			return
		}

		response.Forbidden(c, "требуются права администратора")
	}
}

// UserID возвращает идентификатор пользователя, установленный AuthMiddleware.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(ContextUserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok && userID != uuid.Nil
}
