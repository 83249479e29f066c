package txruntime

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Kind classifies a failed unit of work. Classification drives the retry
// decision and the HTTP status the controllers map the failure to.
type Kind string

const (
	KindDeadlock         Kind = "DEADLOCK_DETECTED"
	KindSerialization    Kind = "SERIALIZATION_FAILURE"
	KindLockNotAvailable Kind = "LOCK_NOT_AVAILABLE"
	KindConnection       Kind = "CONNECTION_ERROR"
	KindPoolExhausted    Kind = "CONNECTION_POOL_EXHAUSTED"
	KindTimeout          Kind = "TIMEOUT_ERROR"
	KindForeignKey       Kind = "FOREIGN_KEY_VIOLATION"
	KindUnique           Kind = "UNIQUE_CONSTRAINT_VIOLATION"
	KindCheck            Kind = "CHECK_CONSTRAINT_VIOLATION"
	KindUnknown          Kind = "UNKNOWN"
)

// MySQL server error numbers used by Classify.
const (
	mysqlErrDeadlock        = 1213
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDupEntry        = 1062
	mysqlErrRowIsReferenced = 1451
	mysqlErrNoReferencedRow = 1452
	mysqlErrCheckViolated   = 3819
	mysqlErrTooManyConns    = 1040
)

// Classify maps an error to a Kind by inspecting the driver error number
// first and falling back to message patterns.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	if errors.Is(err, driver.ErrBadConn) {
		return KindConnection
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlErrDeadlock:
			return KindDeadlock
		case mysqlErrLockWaitTimeout:
			return KindLockNotAvailable
		case mysqlErrDupEntry:
			return KindUnique
		case mysqlErrRowIsReferenced, mysqlErrNoReferencedRow:
			return KindForeignKey
		case mysqlErrCheckViolated:
			return KindCheck
		case mysqlErrTooManyConns:
			return KindPoolExhausted
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "deadlock"):
		return KindDeadlock
	case strings.Contains(msg, "serialization failure") || strings.Contains(msg, "40001"):
		return KindSerialization
	case strings.Contains(msg, "lock wait timeout") || strings.Contains(msg, "lock not available"):
		return KindLockNotAvailable
	case strings.Contains(msg, "too many connections") || strings.Contains(msg, "pool exhausted") || strings.Contains(msg, "connection pool"):
		return KindPoolExhausted
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return KindTimeout
	case strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "invalid connection") ||
		strings.Contains(msg, "bad connection") ||
		strings.Contains(msg, "connection reset"):
		return KindConnection
	case strings.Contains(msg, "duplicate entry") || strings.Contains(msg, "unique constraint"):
		return KindUnique
	case strings.Contains(msg, "foreign key"):
		return KindForeignKey
	case strings.Contains(msg, "check constraint"):
		return KindCheck
	}
	return KindUnknown
}

// GloballyRetryable reports whether a kind may ever be retried. Constraint
// violations are data errors and never qualify, no matter what the caller
// asks for.
func GloballyRetryable(kind Kind) bool {
	switch kind {
	case KindDeadlock, KindSerialization, KindLockNotAvailable, KindConnection, KindPoolExhausted, KindTimeout:
		return true
	}
	return false
}

// Error is returned when a unit of work exhausts its retry budget. It keeps
// the original error, the classification and the attempt count so callers
// can make UX decisions without re-parsing driver messages.
type Error struct {
	Kind      Kind
	Attempts  int
	Label     string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("txruntime: %s failed after %d attempt(s), kind=%s: %v", e.Label, e.Attempts, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the classified kind from an error chain, classifying raw
// errors on the fly.
func KindOf(err error) Kind {
	var txErr *Error
	if errors.As(err, &txErr) {
		return txErr.Kind
	}
	return Classify(err)
}
