package service

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vedran77/statusd/pkg/validator"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrStatusNotFound = errors.New("status not found")
	ErrConflict       = errors.New("status was modified by someone else")
	ErrUnavailable    = errors.New("status store unavailable")
	ErrInternal       = errors.New("internal error")
)

// ValidationError reports which fields were rejected. It matches
// ErrInvalidInput under errors.Is.
type ValidationError struct {
	Fields validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %v", map[string]string(e.Fields))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// classify wraps a backend failure as ErrUnavailable when a later retry could
// succeed, ErrInternal otherwise. The cause stays reachable for logging.
func classify(err error) error {
	if isTransient(err) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrInternal, err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08 connection exception, 53 insufficient resources, 57 operator
		// intervention (shutdown, cancel), 40001 serialization failure.
		switch {
		case len(pgErr.Code) < 2:
			return false
		case pgErr.Code[:2] == "08", pgErr.Code[:2] == "53", pgErr.Code[:2] == "57", pgErr.Code == "40001":
			return true
		}
		return false
	}

	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
