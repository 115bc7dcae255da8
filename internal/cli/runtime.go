package cli

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"exam-service/internal/app"
	"exam-service/internal/config"
	"exam-service/internal/deadline"
	"exam-service/internal/domain"
	"exam-service/internal/infra/memory"
	"exam-service/internal/infra/postgres"
	redisstore "exam-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const lockTTL = 30 * time.Second

// runtime holds the wired service and everything that must be released on exit.
type runtime struct {
	service  *app.ExamService
	enforcer *deadline.Enforcer
	closers  []func()
}

func (rt *runtime) onClose(fn func()) {
	rt.closers = append(rt.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

// buildRuntime picks Postgres/Redis implementations when configured and in-process
// ones otherwise.
func buildRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	rt := &runtime{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.onClose(func() { _ = redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			rt.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
	}

	var (
		tests  app.TestRepository
		roster app.Roster
		admins app.AdminDirectory
	)
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		rt.onClose(func() { _ = db.Close() })

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.onClose(pool.Close)

		dir := postgres.NewRosterDirectory(pool)
		if err := seedDirectory(ctx, dir, cfg.Roster.Groups); err != nil {
			rt.Close()
			return nil, err
		}
		tests, roster, admins = postgres.NewTestStore(db), dir, dir
	} else {
		static := memory.NewRoster()
		for _, g := range cfg.Roster.Groups {
			static.AddAdmins(g.ID, g.Admins...).AddStudents(g.ID, g.Students...)
		}
		tests, roster, admins = memory.NewTestStore(), static, static
	}

	lockWait := config.Duration(cfg.Engine.LockTimeout, 2*time.Second)
	var (
		locks    app.Locker
		ledger   deadline.Ledger
		notifier app.Notifier = memory.LogNotifier{}
	)
	if redisClient != nil {
		locks = redisstore.NewLocker(redisClient, lockTTL, lockWait)
		ledger = redisstore.NewDeadlineLedger(redisClient)
		notifier = redisstore.NewNotifier(redisClient)
	} else {
		locks = memory.NewKeyedLocker(lockWait)
		ledger = memory.NewDeadlineLedger()
	}

	var service *app.ExamService
	enforcer := deadline.NewEnforcer(ledger, func(ctx context.Context, testID string) error {
		return service.ExpireTest(ctx, testID)
	})
	rt.onClose(enforcer.Stop)

	service = app.NewExamService(app.Dependencies{
		Tests:             tests,
		Locks:             locks,
		Roster:            roster,
		Admins:            admins,
		Notifier:          notifier,
		Deadlines:         enforcer,
		NotifyTimeout:     config.Duration(cfg.Engine.NotifyTimeout, 5*time.Second),
		LeaderboardBuffer: cfg.Engine.LeaderboardBuffer,
	})
	rt.service = service
	rt.enforcer = enforcer
	return rt, nil
}

func seedDirectory(ctx context.Context, dir *postgres.RosterDirectory, groups []config.Group) error {
	for _, g := range groups {
		for _, id := range g.Admins {
			if err := dir.AddMember(ctx, g.ID, id, domain.RoleAdmin); err != nil {
				return err
			}
		}
		for _, id := range g.Students {
			if err := dir.AddMember(ctx, g.ID, id, domain.RoleStudent); err != nil {
				return err
			}
		}
	}
	return nil
}
