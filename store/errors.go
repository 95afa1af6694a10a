package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/giygas/drugbase-api/logging"
	"github.com/giygas/drugbase-api/metrics"
)

var (
	// ErrConstraint reports a foreign key, primary key or NOT NULL violation.
	// It is a client error and is never retried.
	ErrConstraint = errors.New("constraint violation")

	// ErrUnavailable reports that the storage could not serve the request:
	// connection failures, timeouts and transient errors that outlived retries.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrInvalidArgument reports a request the store refuses before touching the database.
	ErrInvalidArgument = errors.New("invalid argument")
)

type errorKind int

const (
	kindOther errorKind = iota
	kindConstraint
	kindTransient   // worth retrying: lock contention, serialization, I/O
	kindUnavailable // connection level, retried as well
	kindTimeout     // context expired, retrying is pointless
)

func classify(err error) errorKind {
	if err == nil {
		return kindOther
	}
	if errors.Is(err, ErrConstraint) {
		return kindConstraint
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return kindTimeout
	}
	if errors.Is(err, driver.ErrBadConn) {
		return kindUnavailable
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			return kindConstraint
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_IOERR:
			return kindTransient
		case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_FULL:
			return kindUnavailable
		}
		return kindOther
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "23"): // integrity_constraint_violation
			return kindConstraint
		case pgErr.Code == "40001", pgErr.Code == "40P01", pgErr.Code == "55P03":
			return kindTransient
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "53"),
			strings.HasPrefix(pgErr.Code, "57P"):
			return kindUnavailable
		}
		return kindOther
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return kindUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return kindUnavailable
	}
	return kindOther
}

// Classify wraps a driver error with ErrConstraint or ErrUnavailable so
// callers can branch with errors.Is. Other errors are returned unchanged.
func Classify(err error) error {
	if err == nil || errors.Is(err, ErrConstraint) || errors.Is(err, ErrUnavailable) || errors.Is(err, ErrInvalidArgument) {
		return err
	}
	switch classify(err) {
	case kindConstraint:
		return fmt.Errorf("%w: %w", ErrConstraint, err)
	case kindTransient, kindUnavailable, kindTimeout:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

// IsRetryable reports whether err is a transient storage failure
func IsRetryable(err error) bool {
	switch classify(err) {
	case kindTransient, kindUnavailable:
		return true
	}
	return false
}

// RetryPolicy is an exponential backoff for transient storage failures
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryPolicy makes three attempts, waiting 25ms then 50ms
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, BaseDelay: 25 * time.Millisecond, MaxDelay: time.Second}

func (p RetryPolicy) do(ctx context.Context, operation string, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay

	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || attempt >= attempts || !IsRetryable(err) {
			return err
		}

		metrics.StoreRetries.WithLabelValues(operation).Inc()
		logging.Warn("Transient storage error, retrying",
			"operation", operation,
			"attempt", attempt,
			"delay", delay.String(),
			"error", err)

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
