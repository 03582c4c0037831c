package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/LeventeLantos/tweet-automation/internal/cache"
	"github.com/LeventeLantos/tweet-automation/internal/client"
	"github.com/LeventeLantos/tweet-automation/internal/config"
	"github.com/LeventeLantos/tweet-automation/internal/logsink"
	"github.com/LeventeLantos/tweet-automation/internal/repo"
	"github.com/LeventeLantos/tweet-automation/internal/scheduler"
	"github.com/LeventeLantos/tweet-automation/internal/service"
)

// app holds everything one CLI invocation wires together. close releases
// it in reverse order.
type app struct {
	cfg     *config.Config
	sink    *logsink.Sink
	logger  *slog.Logger
	sched   *scheduler.Scheduler
	records *repo.Records
	auto    *service.Automation

	closers []func() error
}

// newApp opens the log sink and the record store. The delivery side is
// only wired when withDelivery is set.
func newApp(ctx context.Context, withDelivery bool) (*app, error) {
	cfg, err := config.LoadAll()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	sink, err := logsink.Open(cfg.Log.File)
	if err != nil {
		return nil, err
	}
	a.sink = sink
	a.closers = append(a.closers, sink.Close)

	a.logger = newLogger(sink, verbose)
	slog.SetDefault(a.logger)

	store, err := a.openSnapshotStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	records, err := repo.Open(ctx, store, a.logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.records = records

	if !withDelivery {
		return a, nil
	}
	if err := cfg.RequirePosting(); err != nil {
		a.close()
		return nil, err
	}

	sched, err := scheduler.New(cfg.Scheduler.MaxInFlight)
	if err != nil {
		a.close()
		return nil, err
	}
	a.sched = sched

	deliveries, err := a.openDeliveryCache(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	dispatcher := service.NewDispatcher(
		client.NewHTTPPoster(cfg.Post.URL, cfg.Post.Timeout),
		sched,
		sink,
		service.DispatcherConfig{
			ContentMax: cfg.Post.ContentMax,
			MaxAhead:   cfg.Scheduler.MaxAhead,
		},
	)

	a.auto = service.NewAutomation(service.Deps{
		Records:     records,
		Credentials: repo.NewCredentialStore(cfg.Store.CredentialsFile),
		Dispatcher:  dispatcher,
		Deliveries:  deliveries,
		Diagnostics: sink,
		Logger:      a.logger,
	})
	return a, nil
}

func (a *app) openSnapshotStore(ctx context.Context) (repo.SnapshotStore, error) {
	cfg := a.cfg.Store

	var (
		db      *sql.DB
		dialect repo.Dialect
		err     error
	)
	switch cfg.Backend {
	case config.BackendFile:
		a.logger.Debug("using file snapshot", "path", cfg.RecordsFile)
		return repo.NewRecordFile(cfg.RecordsFile), nil
	case config.BackendSQLite:
		db, err = repo.OpenSQLite(cfg.SQLitePath)
		dialect = repo.SQLite
	case config.BackendPostgres:
		db, err = repo.OpenPostgres(ctx, cfg.PostgresURL)
		dialect = repo.Postgres
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)

	if err := repo.Migrate(db, dialect); err != nil {
		return nil, err
	}
	a.logger.Debug("using sql snapshot", "dialect", string(dialect))
	return repo.NewSQLStore(db), nil
}

func (a *app) openDeliveryCache(ctx context.Context) (cache.DeliveryCache, error) {
	cfg := a.cfg.Redis
	if !cfg.Enabled {
		return cache.Noop{}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	a.closers = append(a.closers, rdb.Close)

	a.logger.Info("redis delivery cache enabled", "addr", cfg.Address)
	return cache.NewRedisCache(rdb, cfg.TTL), nil
}

func (a *app) close() error {
	if a.sched != nil {
		a.sched.Stop()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newLogger(sink *logsink.Sink, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(fanout{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
		logsink.NewHandler(sink, slog.LevelInfo),
	})
}
