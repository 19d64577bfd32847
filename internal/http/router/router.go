package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/report-moderation/internal/config"
	"github.com/ignatzorin/report-moderation/internal/http/middleware"
	"github.com/ignatzorin/report-moderation/internal/interface/http/handler"
	"github.com/ignatzorin/report-moderation/internal/service"
)

// Handlers — набор HTTP хэндлеров сервиса. WS может быть nil.
type Handlers struct {
	Report       *handler.ReportHandler
	Moderation   *handler.ModerationHandler
	Notification *handler.NotificationHandler
	WS           *handler.WSHandler
	Health       *handler.HealthHandler
}

func SetupRouter(cfg *config.Config, tokenManager *service.TokenManager, limiterStore limiter.Store, h Handlers) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	if h.WS != nil {
		api.GET("/ws", h.WS.Handle)
	}

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		// Жалобы
		submitRateLimit := middleware.RateLimitMiddleware(limiterStore, cfg.ReportRateLimit, cfg.ReportRatePeriod)
		protected.POST("/reports", submitRateLimit, h.Report.CreateReport)
		protected.GET("/reports/me", h.Report.ListMyReports)
		protected.GET("/reports/me/status", h.Report.GetMyStatus)

		protected.GET("/notifications", h.Notification.ListNotifications)
		protected.GET("/notifications/unread/count", h.Notification.CountUnread)
		protected.PUT("/notifications/read-all", h.Notification.MarkAllAsRead)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), h.Notification.MarkAsRead)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.AdminRequired(cfg.AdminUserIDs))
	{
		admin.GET("/reports", h.Moderation.ListReports)
		admin.GET("/reports/:id", middleware.UUIDValidator("id"), h.Moderation.GetReport)
		admin.PUT("/reports/:id/decision", middleware.UUIDValidator("id"), h.Moderation.DecideReport)
		admin.GET("/users/:id/penalty", middleware.UUIDValidator("id"), h.Moderation.GetUserPenalty)
		admin.POST("/users/:id/penalty/reduce", middleware.UUIDValidator("id"), h.Moderation.ReducePenalty)
	}

	return r
}
