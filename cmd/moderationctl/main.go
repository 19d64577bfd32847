package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"

	"github.com/ignatzorin/report-moderation/internal/config"
	"github.com/ignatzorin/report-moderation/internal/db"
	"github.com/ignatzorin/report-moderation/internal/infrastructure/notify"
	"github.com/ignatzorin/report-moderation/internal/infrastructure/persistence"
	"github.com/ignatzorin/report-moderation/internal/interface/http/dto"
	"github.com/ignatzorin/report-moderation/internal/logger"
	"github.com/ignatzorin/report-moderation/internal/repository"
	"github.com/ignatzorin/report-moderation/internal/service"
	"github.com/ignatzorin/report-moderation/internal/usecase/moderation"
	"github.com/ignatzorin/report-moderation/internal/usecase/report"
)

func main() {
	newApp().RunAndExitOnError()
}

func newApp() *cli.App {
	app := &cli.App{
		Name:  "moderationctl",
		Usage: "административные операции сервиса жалоб",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "строка подключения к Postgres (по умолчанию из конфигурации)",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(cctx *cli.Context) error {
			logger.Init(cctx.String("log-level"))
			logger.SetTextFormatter()
			return nil
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:   "migrate",
			Usage:  "применить SQL миграции",
			Action: runMigrate,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "dir", Usage: "каталог миграций", EnvVars: []string{"MIGRATIONS_PATH"}, Value: "./migrations"},
			},
		},
		{
			Name:   "status",
			Usage:  "показать штрафы и возможность подачи жалоб пользователем",
			Action: runStatus,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "user", Required: true},
				&cli.IntFlag{Name: "history", Value: 20, Usage: "сколько записей журнала показать"},
			},
		},
		{
			Name:   "reduce-penalty",
			Usage:  "снять предупреждения с пользователя",
			Action: runReducePenalty,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "user", Required: true},
				&cli.IntFlag{Name: "amount", Required: true},
				&cli.StringFlag{Name: "admin", Usage: "идентификатор администратора для журнала"},
			},
		},
		{
			Name:   "issue-token",
			Usage:  "выпустить access токен (для разработки)",
			Action: runIssueToken,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "user", Required: true},
				&cli.StringFlag{Name: "role", Value: "user"},
				&cli.DurationFlag{Name: "ttl", Usage: "время жизни токена (по умолчанию ACCESS_TOKEN_TTL)"},
			},
		},
	}
	return app
}

func loadConfig(cctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dsn := cctx.String("database-url"); dsn != "" {
		cfg.DatabaseURL = dsn
	}
	return cfg, nil
}

func openDB(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	return db.NewPostgres(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxOpenConns:    4,
		MaxIdleConns:    1,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
}

func parseUUIDFlag(cctx *cli.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(cctx.String(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("--%s: некорректный UUID: %w", name, err)
	}
	return id, nil
}

func printJSON(cctx *cli.Context, v interface{}) error {
	enc := json.NewEncoder(cctx.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runMigrate(cctx *cli.Context) error {
	ctx := cctx.Context
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	conn, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.RunMigrations(ctx, conn, cctx.String("dir")); err != nil {
		return err
	}
	fmt.Fprintln(cctx.App.Writer, "migrations applied")
	return nil
}

func runStatus(cctx *cli.Context) error {
	ctx := cctx.Context
	userID, err := parseUUIDFlag(cctx, "user")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	conn, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	store := persistence.NewStore(conn)
	guard := report.NewEligibilityGuard(store, cfg.Moderation)
	ledger := moderation.NewPenaltyLedger(store, cfg.Moderation, nil)

	state, err := ledger.GetState(ctx, userID)
	if err != nil {
		return err
	}
	status, err := guard.GetStatus(ctx, userID, cfg.RecentReports)
	if err != nil {
		return err
	}
	history, err := ledger.History(ctx, userID, cctx.Int("history"))
	if err != nil {
		return err
	}

	return printJSON(cctx, dto.UserPenaltyResponse{
		Penalty: dto.ToPenaltyStateResponse(state, time.Now().UTC()),
		Status:  dto.ToReporterStatusResponse(status),
		History: dto.ToPenaltyEventResponses(history),
	})
}

func runReducePenalty(cctx *cli.Context) error {
	ctx := cctx.Context
	userID, err := parseUUIDFlag(cctx, "user")
	if err != nil {
		return err
	}
	adminID := uuid.Nil
	if cctx.String("admin") != "" {
		if adminID, err = parseUUIDFlag(cctx, "admin"); err != nil {
			return err
		}
	}
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	conn, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Уведомление сохраняется в базе; открытых соединений у CLI нет.
	notifications := service.NewNotificationService(repository.NewNotificationRepository(conn))
	dispatcher := notify.NewDispatcher(notifications, nil, notify.Options{
		MaxAttempts:     cfg.NotifyMaxAttempts,
		InitialInterval: cfg.NotifyRetryDelay,
	})
	ledger := moderation.NewPenaltyLedger(persistence.NewStore(conn), cfg.Moderation, dispatcher)

	out, err := ledger.ReducePenalty(ctx, userID, cctx.Int("amount"), adminID)
	if err != nil {
		return err
	}
	dispatcher.Wait()

	return printJSON(cctx, dto.ToPenaltyStateResponse(out.State, time.Now().UTC()))
}

func runIssueToken(cctx *cli.Context) error {
	userID, err := parseUUIDFlag(cctx, "user")
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ttl := cfg.AccessTokenTTL
	if cctx.IsSet("ttl") {
		ttl = cctx.Duration("ttl")
	}

	token, exp, err := service.NewTokenManager(cfg.JWTSecret, ttl).IssueAccess(userID, cctx.String("role"))
	if err != nil {
		return err
	}
	return printJSON(cctx, map[string]interface{}{
		"access_token": token,
		"expires_at":   exp.UTC(),
	})
}
