package repo

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/LeventeLantos/tweet-automation/internal/model"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// SQLStore keeps the snapshot in the records table. Save swaps the whole
// table contents inside one transaction.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Load(ctx context.Context) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, attachment_path, scheduled_at, immediate,
		       status, outcome_code, created_at, attempted_at
		FROM records
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var r model.Record
		var status string
		var scheduledAt, createdAt, attemptedAt int64

		if err := rows.Scan(
			&r.ID,
			&r.Text,
			&r.AttachmentPath,
			&scheduledAt,
			&r.Immediate,
			&status,
			&r.OutcomeCode,
			&createdAt,
			&attemptedAt,
		); err != nil {
			return nil, err
		}

		r.Status, err = model.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", r.ID, err)
		}
		r.ScheduledAt = fromNanos(scheduledAt)
		r.CreatedAt = fromNanos(createdAt)
		r.AttemptedAt = fromNanos(attemptedAt)

		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) Save(ctx context.Context, records []model.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return err
	}

	for i, r := range records {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO records (
				id, position, content, attachment_path, scheduled_at,
				immediate, status, outcome_code, created_at, attempted_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			r.ID,
			i,
			r.Text,
			r.AttachmentPath,
			toNanos(r.ScheduledAt),
			r.Immediate,
			string(r.Status),
			r.OutcomeCode,
			toNanos(r.CreatedAt),
			toNanos(r.AttemptedAt),
		); err != nil {
			return fmt.Errorf("insert record %d: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// OpenSQLite opens a single-writer SQLite database in WAL mode.
func OpenSQLite(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

func OpenPostgres(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Times are stored as Unix nanoseconds; 0 stands for the zero time.
func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
