package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicate is returned by CustomerRepository.Create when the e-mail is
// already taken, typically by a concurrent first booking.
var ErrDuplicate = errors.New("duplicate")

type SeatRepository interface {
	List(ctx context.Context) ([]domain.Seat, error)
	// FindActiveByNumbers returns the active seats among numbers. Unknown or
	// inactive numbers are simply absent from the result.
	FindActiveByNumbers(ctx context.Context, numbers []string) ([]domain.Seat, error)
}

type SegmentRepository interface {
	// FindOverlapping returns confirmed segments on date whose leg overlaps
	// leg, ordered by seat then FromIndex. An empty seatIDs means all seats.
	FindOverlapping(ctx context.Context, date time.Time, leg domain.Leg, seatIDs []int64) ([]domain.Segment, error)
	InsertMany(ctx context.Context, segments []domain.Segment) error
	DeleteByReservation(ctx context.Context, reservationID int64) (int64, error)
	ListByReservation(ctx context.Context, reservationID int64) ([]domain.Segment, error)
}

type ReservationRepository interface {
	Create(ctx context.Context, reservation *domain.Reservation) error
	AddMeals(ctx context.Context, reservationID int64, meals []domain.MealOrder) error
	ListMeals(ctx context.Context, reservationID int64) ([]domain.MealOrder, error)
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	MarkCancelled(ctx context.Context, id int64, at time.Time) (*domain.Reservation, error)
}

type CustomerRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	// Create inserts the customer or returns ErrDuplicate without aborting
	// the surrounding transaction.
	Create(ctx context.Context, customer *domain.Customer) error
}

// ReferenceRepository reads the seeded lookup tables. Only the Postgres
// store has them; the in-memory store takes its catalogue from config.
type ReferenceRepository interface {
	ListMeals(ctx context.Context) ([]domain.Meal, error)
	ListStops(ctx context.Context) ([]domain.Stop, error)
}

// Queries groups the repositories bound to one connection or transaction.
type Queries interface {
	Seats() SeatRepository
	Segments() SegmentRepository
	Reservations() ReservationRepository
	Customers() CustomerRepository
}

type TxFunc func(ctx context.Context, q Queries) error

// Store is the transactional data store shared by all requests. Its own
// Queries run outside any explicit transaction.
type Store interface {
	Queries
	// Serializable runs fn in one SERIALIZABLE transaction with a bounded
	// timeout. Serialization failures and timeouts come back as
	// domain.ErrRetryable; any error from fn rolls everything back.
	Serializable(ctx context.Context, fn TxFunc) error
	// Atomic runs fn in one READ COMMITTED transaction.
	Atomic(ctx context.Context, fn TxFunc) error
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}
