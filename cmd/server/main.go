package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/report-moderation/internal/config"
	"github.com/ignatzorin/report-moderation/internal/db"
	"github.com/ignatzorin/report-moderation/internal/domain/repository"
	"github.com/ignatzorin/report-moderation/internal/goroutine"
	"github.com/ignatzorin/report-moderation/internal/http/middleware"
	httpRouter "github.com/ignatzorin/report-moderation/internal/http/router"
	"github.com/ignatzorin/report-moderation/internal/infrastructure/content"
	"github.com/ignatzorin/report-moderation/internal/infrastructure/memory"
	"github.com/ignatzorin/report-moderation/internal/infrastructure/notify"
	"github.com/ignatzorin/report-moderation/internal/infrastructure/persistence"
	"github.com/ignatzorin/report-moderation/internal/interface/http/handler"
	"github.com/ignatzorin/report-moderation/internal/logger"
	notificationRepo "github.com/ignatzorin/report-moderation/internal/repository"
	"github.com/ignatzorin/report-moderation/internal/service"
	"github.com/ignatzorin/report-moderation/internal/usecase/moderation"
	"github.com/ignatzorin/report-moderation/internal/usecase/report"
	"github.com/ignatzorin/report-moderation/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}
	mainLog := logger.Component("main")

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Env,
			TracesSampleRate: 0.2,
		}); err != nil {
			mainLog.WithError(err).Error("sentry init failed")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Хранилище жалоб и штрафов.
	var (
		store         repository.Store
		resolver      repository.ContentResolver
		notifications service.NotificationRepository
		dbConn        *sqlx.DB
	)
	switch cfg.StorageDriver {
	case config.StorageMemory:
		mainLog.Warn("используется хранилище в памяти, данные не сохраняются между запусками")
		store = memory.NewStore()
		resolver = content.NewStaticResolver()
		notifications = memory.NewNotificationRepository()
	default:
		dbConn, err = db.NewPostgres(ctx, cfg.DatabaseURL, db.PoolOptions{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnLifetime,
		})
		if err != nil {
			log.Fatalf("main: ошибка подключения к базе: %v", err)
		}
		defer safeClose(dbConn)

		if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
			log.Fatalf("main: ошибка миграций: %v", err)
		}

		store = persistence.NewStore(dbConn)
		resolver = content.NewCachedResolver(content.NewSQLResolver(dbConn), cfg.ContentCacheSize, cfg.ContentCacheTTL, cfg.ContentDeletedCacheTTL)
		notifications = notificationRepo.NewNotificationRepository(dbConn)
	}

	// Общий лимитер для нескольких экземпляров, если задан Redis.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("main: некорректный REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		defer func() {
			if err := redisClient.Close(); err != nil {
				mainLog.WithError(err).Warn("ошибка закрытия redis")
			}
		}()
	}
	limiterStore, err := middleware.NewLimiterStore(redisClient)
	if err != nil {
		log.Fatalf("main: не удалось создать хранилище лимитов: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	// Вебсокеты и доставка уведомлений.
	hub := ws.NewHub(ctx)
	goroutine.SafeGo(hub.Run)

	notificationService := service.NewNotificationService(notifications)
	dispatcher := notify.NewDispatcher(notificationService, hub, notify.Options{
		MaxAttempts:     cfg.NotifyMaxAttempts,
		InitialInterval: cfg.NotifyRetryDelay,
	})

	// Use cases.
	guard := report.NewEligibilityGuard(store, cfg.Moderation)
	submitUC := report.NewSubmitReportUseCase(store, guard, resolver)
	listUC := report.NewListReportsUseCase(store, resolver)
	ledger := moderation.NewPenaltyLedger(store, cfg.Moderation, dispatcher)
	decideUC := moderation.NewDecideReportUseCase(store, ledger, dispatcher, cfg.AllowRedecision)

	// HTTP хэндлеры.
	healthChecks := map[string]handler.Pinger{}
	if dbConn != nil {
		healthChecks["database"] = dbConn
	}
	if redisClient != nil {
		healthChecks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	engine := httpRouter.SetupRouter(cfg, tokenManager, limiterStore, httpRouter.Handlers{
		Report:       handler.NewReportHandler(submitUC, listUC, guard, cfg.RecentReports),
		Moderation:   handler.NewModerationHandler(listUC, decideUC, ledger, guard, cfg.RecentReports),
		Notification: handler.NewNotificationHandler(notificationService),
		WS:           handler.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
		Health:       handler.NewHealthHandler(healthChecks),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			mainLog.WithError(err).Error("ошибка остановки http сервера")
		}
	})

	mainLog.WithField("port", cfg.HTTPPort).WithField("storage", cfg.StorageDriver).Info("HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}

	// Дожидаемся уведомлений, начатых до остановки.
	dispatcher.Wait()
	mainLog.Info("сервер остановлен")
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Component("main").WithError(err).Error("ошибка закрытия базы")
	}
}
