package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/report-moderation/internal/interface/http/response"
	"github.com/ignatzorin/report-moderation/internal/logger"
	"github.com/ignatzorin/report-moderation/internal/pkg/apperror"
)

// Recovery перехватывает panic в обработчиках, пишет стек в лог, отправляет
// событие в Sentry и отвечает клиенту 500 в общем формате.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Component("http").WithFields(logrus.Fields{
					"panic":  r,
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
					"stack":  string(debug.Stack()),
				}).Error("panic recovered")

				if hub := sentry.CurrentHub(); hub.Client() != nil {
					hub = hub.Clone()
					hub.Scope().SetRequest(c.Request)
					hub.Recover(fmt.Errorf("panic: %v", r))
				}

				if !c.Writer.Written() {
					response.Error(c, apperror.New(apperror.ErrCodeInternal, "внутренняя ошибка сервера"))
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}

// ErrorHandler отправляет в Sentry ошибки, которые обработчики
// зарегистрировали через c.Error (ответы 5xx).
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Status() < http.StatusInternalServerError {
			return
		}

		if hub := sentry.CurrentHub(); hub.Client() != nil {
			hub = hub.Clone()
			hub.Scope().SetRequest(c.Request)
			hub.CaptureException(c.Errors.Last().Err)
		}
	}
}

// RequestLogger пишет строку лога на каждый запрос.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		}
		if userID, ok := UserID(c); ok {
			fields["user_id"] = userID
		}

		entry := logger.Component("http").WithFields(fields)
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}
