package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewPGStore(t *testing.T) {
	pool := &pgxpool.Pool{}
	store := NewPGStore(pool, 0)
	assert.NotNil(t, store)
	assert.NotNil(t, store.Seats())
	assert.NotNil(t, store.Segments())
	assert.NotNil(t, store.Reservations())
	assert.NotNil(t, store.Customers())
}

func TestOverlapPredicate(t *testing.T) {
	assert.Equal(t, "s.from_index < $3 AND s.to_index > $2", overlapPredicate(2, 3))
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, retryable: true},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, retryable: true},
		{name: "lock timeout", err: &pgconn.PgError{Code: "55P03"}, retryable: true},
		{name: "statement timeout", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "57014"}), retryable: true},
		{name: "deadline", err: context.DeadlineExceeded, retryable: true},
		{name: "foreign key", err: &pgconn.PgError{Code: "23503"}, retryable: false},
		{name: "canceled by caller", err: context.Canceled, retryable: false},
		{name: "domain conflict", err: &domain.SeatConflictError{Seats: []string{"1 LB"}}, retryable: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err)
			assert.Equal(t, tc.retryable, errors.Is(got, domain.ErrRetryable))
			if !tc.retryable {
				assert.Equal(t, tc.err, got)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}
