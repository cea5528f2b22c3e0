package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestMapRecordNotFound(t *testing.T) {
	err := Map("project get", gorm.ErrRecordNotFound)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("lost the underlying cause: %v", err)
	}
}

func TestMapUniqueViolation(t *testing.T) {
	err := Map("structure create", &pgconn.PgError{Code: "23505"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestMapDeadlockIsConflict(t *testing.T) {
	for _, code := range []string{"40001", "40P01", "55P03"} {
		err := Map("task claim", &pgconn.PgError{Code: code})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("code %s: expected ErrConflict, got %v", code, err)
		}
	}
}

func TestMapPassesTaggedThrough(t *testing.T) {
	tagged := Validation("runs must be >= 1")
	err := Map("plan", tagged)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("tag dropped: %v", err)
	}
	// A second wrap must not reclassify.
	if !errors.Is(Map("outer", err), ErrValidation) {
		t.Fatalf("double wrap reclassified: %v", err)
	}
}

func TestMapNil(t *testing.T) {
	if err := Map("noop", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{Validation("bad"), http.StatusBadRequest},
		{fmt.Errorf("x: %w", ErrUnbuildableType), http.StatusBadRequest},
		{fmt.Errorf("x: %w", ErrNoEligibleStructure), http.StatusBadRequest},
		{fmt.Errorf("x: %w", ErrCycleDetected), http.StatusBadRequest},
		{NotFound("project"), http.StatusNotFound},
		{Conflict("duplicate"), http.StatusConflict},
		{fmt.Errorf("x: %w", ErrAlreadyAssigned), http.StatusConflict},
		{fmt.Errorf("x: %w", ErrRateLimited), http.StatusTooManyRequests},
		{fmt.Errorf("x: %w", ErrUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(fmt.Errorf("x: %w", ErrRateLimited)) {
		t.Fatalf("rate limited should retry")
	}
	if !Retryable(fmt.Errorf("x: %w", ErrUnavailable)) {
		t.Fatalf("unavailable should retry")
	}
	if !Retryable(Conflict("serialization")) {
		t.Fatalf("conflict should retry")
	}
	if Retryable(Validation("bad")) {
		t.Fatalf("validation must not retry")
	}
	if Retryable(errors.New("boom")) {
		t.Fatalf("unclassified must not retry")
	}
}

func TestBenign(t *testing.T) {
	if !Benign(fmt.Errorf("x: %w", ErrNotModified)) {
		t.Fatalf("not modified is benign")
	}
	if Benign(fmt.Errorf("x: %w", ErrRateLimited)) {
		t.Fatalf("rate limited is not benign")
	}
}
