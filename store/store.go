// Package store is the relational core of the drugbase API: the schema, the
// search queries with keyset pagination, and the access facade that owns the
// database handle. SQLite (modernc.org/sqlite) and Postgres (pgx) are
// supported.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/giygas/drugbase-api/metrics"
)

const (
	// DefaultQueryTimeout bounds every store call when no timeout is configured
	DefaultQueryTimeout = 5 * time.Second
	// DefaultBulkTimeout bounds one BulkLoad
	DefaultBulkTimeout = 10 * time.Minute
)

// Options configures Open
type Options struct {
	Dialect      Dialect
	DSN          string
	QueryTimeout time.Duration
	BulkTimeout  time.Duration
	MaxOpenConns int // Postgres only, SQLite always uses a single connection
	Retry        *RetryPolicy
}

// Store is the access facade over one database handle. Reads run
// concurrently; mutations are serialized and each runs in one transaction.
type Store struct {
	db           *sql.DB
	dialect      Dialect
	q            queries
	queryTimeout time.Duration
	bulkTimeout  time.Duration
	retry        RetryPolicy
	writeMu      sync.Mutex
}

// Open connects to the database described by opts and verifies the
// connection. It does not create tables, call Migrate for that.
func Open(ctx context.Context, opts Options) (*Store, error) {
	dsn := opts.DSN
	if opts.Dialect == SQLite {
		dsn = sqliteDSN(dsn)
	} else if dsn == "" {
		return nil, fmt.Errorf("%w: postgres requires a DSN", ErrInvalidArgument)
	}

	db, err := sql.Open(opts.Dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Dialect, err)
	}

	if opts.Dialect == SQLite {
		// One connection: in-memory databases live and die with it, and
		// SQLite serializes writers anyway.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns)
	}

	s := New(db, opts.Dialect, opts.QueryTimeout)
	if opts.BulkTimeout > 0 {
		s.bulkTimeout = opts.BulkTimeout
	}
	if opts.Retry != nil {
		s.retry = *opts.Retry
	}

	pingCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Dialect, Classify(err))
	}

	if opts.Dialect == SQLite {
		// Also set through the DSN; repeated here for DSNs passed verbatim
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	return s, nil
}

// OpenMemory opens a private in-memory SQLite database with the schema
// applied. Each call returns an independent database.
func OpenMemory(ctx context.Context) (*Store, error) {
	s, err := Open(ctx, Options{Dialect: SQLite, DSN: ":memory:"})
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing handle. The caller keeps ownership of connection
// pool settings.
func New(db *sql.DB, dialect Dialect, queryTimeout time.Duration) *Store {
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}
	return &Store{
		db:           db,
		dialect:      dialect,
		q:            newQueries(dialect),
		queryTimeout: queryTimeout,
		bulkTimeout:  DefaultBulkTimeout,
		retry:        DefaultRetryPolicy,
	}
}

// sqliteDSN turns a path into a modernc DSN with foreign keys enforced and a
// busy timeout, leaving DSNs that already carry parameters untouched
func sqliteDSN(path string) string {
	if path == "" {
		path = "drugbase.db"
	}
	if strings.Contains(path, "?") {
		return path
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Dialect returns the SQL flavour of the store
func (s *Store) Dialect() Dialect { return s.dialect }

// DB exposes the underlying handle for tests and tooling
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle
func (s *Store) Close() error { return s.db.Close() }

// Ping checks that the database answers
func (s *Store) Ping(ctx context.Context) error {
	return s.read(ctx, "ping", func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

// Migrate creates the tables and indexes when missing
func (s *Store) Migrate(ctx context.Context) error {
	return s.write(ctx, "migrate", func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range s.dialect.schema() {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("execute ddl: %w", err)
			}
		}
		return nil
	})
}

// read runs a read-only operation with a timeout, retries and metrics
func (s *Store) read(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	start := time.Now()
	err := s.retry.do(ctx, operation, func() error { return fn(ctx) })
	metrics.ObserveQuery(operation, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, Classify(err))
	}
	return nil
}

// write runs fn inside a transaction while holding the writer lock. The
// whole transaction is retried on transient failures.
func (s *Store) write(ctx context.Context, operation string, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return s.writeWithin(ctx, operation, s.queryTimeout, fn)
}

// writeWithin is write with an explicit timeout
func (s *Store) writeWithin(ctx context.Context, operation string, timeout time.Duration,
	fn func(ctx context.Context, tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := s.retry.do(ctx, operation, func() error { return s.inTx(ctx, fn) })
	metrics.ObserveQuery(operation, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, Classify(err))
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if retErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				retErr = errors.Join(retErr, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
