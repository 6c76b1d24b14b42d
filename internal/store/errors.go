package store

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medportal/portal-backend/internal/metrics"
)

// SQLSTATE codes the handlers map to specific HTTP statuses.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
)

// Error is a failed remote store operation. The underlying error is kept
// intact and reachable through errors.Is / errors.As.
type Error struct {
	Op     string
	Code   string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return "remote store: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap turns err into an *Error for operation op. A nil err stays nil and an
// err that is already an *Error is returned unchanged.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	out := &Error{Op: op, Err: err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		out.Code = pgErr.Code
		out.Detail = pgErr.Detail
	}
	metrics.StoreError(op)
	return out
}

// IsUniqueViolation reports whether err is a store error caused by a unique
// or primary key constraint.
func IsUniqueViolation(err error) bool {
	return hasCode(err, CodeUniqueViolation)
}

// IsForeignKeyViolation reports whether err references a missing parent row.
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, CodeForeignKeyViolation)
}

func hasCode(err error, code string) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == code
}

// HTTPStatus maps a store error to the status a handler should answer with.
// ok is false when err is not a store error.
func HTTPStatus(err error) (status int, ok bool) {
	var se *Error
	if !errors.As(err, &se) {
		return 0, false
	}
	switch se.Code {
	case CodeUniqueViolation:
		return http.StatusConflict, true
	case CodeForeignKeyViolation:
		return http.StatusNotFound, true
	default:
		return http.StatusBadGateway, true
	}
}
