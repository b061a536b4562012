package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var journey = time.Date(2026, 1, 23, 0, 0, 0, 0, time.UTC)

func book(t *testing.T, store *MemoryStore, seatID int64, leg domain.Leg) *domain.Reservation {
	t.Helper()
	var res *domain.Reservation
	err := store.Serializable(context.Background(), func(ctx context.Context, q Queries) error {
		c := &domain.Customer{Email: "rider@example.com"}
		if err := q.Customers().Create(ctx, c); err != nil {
			if !errors.Is(err, ErrDuplicate) {
				return err
			}
			existing, err := q.Customers().GetByEmail(ctx, c.Email)
			if err != nil {
				return err
			}
			c = existing
		}
		res = &domain.Reservation{CustomerID: c.ID, JourneyDate: journey, Leg: leg, TotalAmount: 500}
		if err := q.Reservations().Create(ctx, res); err != nil {
			return err
		}
		return q.Segments().InsertMany(ctx, []domain.Segment{{SeatID: seatID, ReservationID: res.ID, JourneyDate: journey, Leg: leg, Gender: "Male"}})
	})
	require.NoError(t, err)
	return res
}

func TestMemoryStore_FindOverlapping(t *testing.T) {
	store := NewMemoryStore(domain.DefaultSeatLayout(2))
	ctx := context.Background()

	book(t, store, 1, domain.Leg{From: 0, To: 3})
	book(t, store, 1, domain.Leg{From: 3, To: 6})
	book(t, store, 2, domain.Leg{From: 1, To: 2})

	got, err := store.Segments().FindOverlapping(ctx, journey, domain.Leg{From: 2, To: 4}, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.Leg{From: 0, To: 3}, got[0].Leg)
	assert.Equal(t, domain.Leg{From: 3, To: 6}, got[1].Leg)
	assert.Equal(t, "1 LB", got[0].SeatNumber)

	got, err = store.Segments().FindOverlapping(ctx, journey, domain.Leg{From: 0, To: 6}, []int64{2})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].SeatID)

	got, err = store.Segments().FindOverlapping(ctx, journey.AddDate(0, 0, 1), domain.Leg{From: 0, To: 6}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore_RollbackOnError(t *testing.T) {
	store := NewMemoryStore(domain.DefaultSeatLayout(2))
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Serializable(ctx, func(ctx context.Context, q Queries) error {
		c := &domain.Customer{Email: "rider@example.com"}
		require.NoError(t, q.Customers().Create(ctx, c))
		res := &domain.Reservation{CustomerID: c.ID, JourneyDate: journey, Leg: domain.Leg{From: 0, To: 2}}
		require.NoError(t, q.Reservations().Create(ctx, res))
		require.NoError(t, q.Segments().InsertMany(ctx, []domain.Segment{{SeatID: 1, ReservationID: res.ID, JourneyDate: journey, Leg: res.Leg}}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Empty(t, store.Snapshot())
	_, err = store.Customers().GetByEmail(ctx, "rider@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.Reservations().GetByID(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStore_CancelledReservationIsNotOverlapping(t *testing.T) {
	store := NewMemoryStore(domain.DefaultSeatLayout(1))
	ctx := context.Background()
	res := book(t, store, 1, domain.Leg{From: 0, To: 6})

	first := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	cancelled, err := store.Reservations().MarkCancelled(ctx, res.ID, first)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusCancelled, cancelled.Status)

	again, err := store.Reservations().MarkCancelled(ctx, res.ID, first.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, again.CancelledAt.Equal(first))

	got, err := store.Segments().FindOverlapping(ctx, journey, domain.Leg{From: 0, To: 6}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	n, err := store.Segments().DeleteByReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Reservations().MarkCancelled(ctx, 999, first)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStore_CustomerDuplicate(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	require.NoError(t, store.Customers().Create(ctx, &domain.Customer{Email: "a@example.com"}))
	assert.ErrorIs(t, store.Customers().Create(ctx, &domain.Customer{Email: "a@example.com"}), ErrDuplicate)
}

func TestMemoryStore_ActiveSeats(t *testing.T) {
	store := NewMemoryStore(domain.DefaultSeatLayout(2))
	ctx := context.Background()
	store.SetSeatActive("2 LB", false)

	seats, err := store.Seats().FindActiveByNumbers(ctx, []string{"1 LB", "2 LB", "9 XX"})
	require.NoError(t, err)
	require.Len(t, seats, 1)
	assert.Equal(t, "1 LB", seats[0].SeatNumber)
}

func TestMemoryStore_ExpiredContext(t *testing.T) {
	store := NewMemoryStore(nil)
	noop := func(ctx context.Context, q Queries) error {
		t.Fatal("transaction body must not run")
		return nil
	}

	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	assert.ErrorIs(t, store.Serializable(expired, noop), domain.ErrRetryable)

	canceled, cancel2 := context.WithCancel(context.Background())
	cancel2()
	err := store.Atomic(canceled, noop)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrRetryable)
}
