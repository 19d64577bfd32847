package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/report-moderation/internal/http/middleware"
	"github.com/ignatzorin/report-moderation/internal/interface/http/response"
)

// currentUser возвращает пользователя из контекста или отвечает 401.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "требуется авторизация")
		return uuid.Nil, false
	}
	return userID, true
}

// pathUUID читает UUID из параметра пути; формат проверяет UUIDValidator.
func pathUUID(c *gin.Context, key string) uuid.UUID {
	id, _ := uuid.Parse(c.Param(key))
	return id
}

func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
