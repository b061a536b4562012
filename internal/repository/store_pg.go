package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgQueryCanceled        = "57014"
	pgUniqueViolation      = "23505"
)

type pgQueries struct {
	seats        SeatRepository
	segments     SegmentRepository
	reservations ReservationRepository
	customers    CustomerRepository
}

func newPGQueries(db DBTX) *pgQueries {
	return &pgQueries{
		seats:        NewSeatRepository(db),
		segments:     NewSegmentRepository(db),
		reservations: NewReservationRepository(db),
		customers:    NewCustomerRepository(db),
	}
}

func (q *pgQueries) Seats() SeatRepository               { return q.seats }
func (q *pgQueries) Segments() SegmentRepository         { return q.segments }
func (q *pgQueries) Reservations() ReservationRepository { return q.reservations }
func (q *pgQueries) Customers() CustomerRepository       { return q.customers }

type PGStore struct {
	*pgQueries
	db        *pgxpool.Pool
	txTimeout time.Duration
}

func NewPGStore(db *pgxpool.Pool, txTimeout time.Duration) *PGStore {
	return &PGStore{pgQueries: newPGQueries(db), db: db, txTimeout: txTimeout}
}

// Reference reads the seeded meal and station tables through the pool.
func (s *PGStore) Reference() ReferenceRepository {
	return NewReferenceRepository(s.db)
}

func (s *PGStore) Serializable(ctx context.Context, fn TxFunc) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
}

func (s *PGStore) Atomic(ctx context.Context, fn TxFunc) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

func (s *PGStore) run(ctx context.Context, opts pgx.TxOptions, fn TxFunc) error {
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return classify(err)
	}
	// Rollback after a successful commit is a no-op.
	defer tx.Rollback(context.WithoutCancel(ctx))

	if err := fn(ctx, newPGQueries(tx)); err != nil {
		return classify(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// classify maps transient storage failures to domain.ErrRetryable and
// leaves every other error untouched.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable, pgQueryCanceled:
			return fmt.Errorf("%w: %s (%s)", domain.ErrRetryable, pgErr.Message, pgErr.Code)
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: transaction timed out", domain.ErrRetryable)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ Store = (*PGStore)(nil)
