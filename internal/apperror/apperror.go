package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Sentinel kinds. Call sites tag errors with errors.Join so that callers can
// classify with errors.Is without depending on concrete error types.
var (
	// ErrValidation indicates caller input is malformed or out of range.
	ErrValidation = errors.New("validation")
	// ErrNotFound indicates the row does not exist or the caller does not own
	// it. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness or serialization conflict.
	ErrConflict = errors.New("conflict")
	// ErrRateLimited indicates the game API pushed back; transient.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable indicates the game API is down; transient.
	ErrUnavailable = errors.New("service unavailable")
	// ErrNotModified indicates cached game-API data is still fresh; benign.
	ErrNotModified = errors.New("not modified")

	// ErrUnbuildableType indicates no blueprint produces the requested type.
	ErrUnbuildableType = errors.New("unbuildable type")
	// ErrNoEligibleStructure indicates no configured structure hosts the
	// blueprint's activity.
	ErrNoEligibleStructure = errors.New("no eligible structure")
	// ErrCycleDetected indicates the blueprint graph re-entered a product.
	ErrCycleDetected = errors.New("cycle detected")
	// ErrAlreadyAssigned indicates the external job id is already bound.
	ErrAlreadyAssigned = errors.New("already assigned")
)

func Validation(format string, args ...interface{}) error {
	return errors.Join(ErrValidation, fmt.Errorf(format, args...))
}

func NotFound(what string) error {
	return errors.Join(ErrNotFound, errors.New(strings.TrimSpace(what)))
}

func Conflict(format string, args ...interface{}) error {
	return errors.Join(ErrConflict, fmt.Errorf(format, args...))
}

// Map folds infrastructure failures into the taxonomy. Errors already tagged
// pass through unchanged.
func Map(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrUnavailable),
		errors.Is(err, ErrNotModified),
		errors.Is(err, ErrUnbuildableType),
		errors.Is(err, ErrNoEligibleStructure),
		errors.Is(err, ErrCycleDetected),
		errors.Is(err, ErrAlreadyAssigned):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, errors.Join(ErrNotFound, err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", op, errors.Join(ErrConflict, err))
		case "40001", "40P01", "55P03": // serialization/deadlock/lock_not_available
			return fmt.Errorf("%s: %w", op, errors.Join(ErrConflict, err))
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// HTTPStatus maps a tagged error to a response code. Forbidden-style
// ownership failures are reported as 404 so existence never leaks.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrUnbuildableType),
		errors.Is(err, ErrNoEligibleStructure),
		errors.Is(err, ErrCycleDetected):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyAssigned), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a worker task failing with err should simply be
// retried on its next wait_until cadence.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrConflict)
}

// Benign reports whether a game-API response means "nothing new"; callers
// treat it as a no-op success and skip the upsert.
func Benign(err error) bool {
	return errors.Is(err, ErrNotModified)
}
