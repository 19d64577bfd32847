package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/report-moderation/internal/interface/http/response"
	"github.com/ignatzorin/report-moderation/internal/pkg/apperror"
)

// UUIDValidator проверяет, что параметр с указанным именем является валидным UUID.
// Использование: router.GET("/reports/:id", UUIDValidator("id"), handler.GetReport)
func UUIDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param(paramName)
		if idStr == "" {
			response.Error(c, apperror.Validation(paramName, "параметр "+paramName+" обязателен"))
			c.Abort()
			return
		}

		if _, err := uuid.Parse(idStr); err != nil {
			response.Error(c, apperror.Validation(paramName, "параметр "+paramName+" должен быть валидным UUID"))
			c.Abort()
			return
		}

		c.Next()
	}
}
