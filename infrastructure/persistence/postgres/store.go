package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Shani815/vctalenthub-sub000/application/ports"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.uber.org/zap"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Options tunes the connection pool
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Tracing         bool
}

// Store is the relational source of truth for the relationship graph
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

var _ ports.Store = (*Store)(nil)

// Connect opens a pgx-backed pool, instrumented with OpenTelemetry when asked
func Connect(ctx context.Context, dsn string, opts Options) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	if opts.Tracing {
		db, err = otelsqlx.Connect("pgx", dsn)
	} else {
		db, err = sqlx.Connect("pgx", dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewStore wraps an open pool and applies the schema
func NewStore(ctx context.Context, db *sqlx.DB, logger *zap.Logger) (*Store, error) {
	s := &Store{db: db, logger: logger}
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Migrate creates missing tables and indexes
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

// Ping checks connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the pool
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, committing only when fn succeeds
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error("Rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
