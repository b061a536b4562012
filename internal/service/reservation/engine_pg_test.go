package reservation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/repository"
	"github.com/Domenick1991/busbooking/internal/service/seats"
	"github.com/Domenick1991/busbooking/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping Postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "bus",
				"POSTGRES_PASSWORD": "bus",
				"POSTGRES_DB":       "busbooking",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://bus:bus@%s:%s/busbooking?sslmode=disable", host, port.Port())

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	migrator, err := migrations.New(db)
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	version, dirty, err := migrator.Version()
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(2), version)
	require.NoError(t, migrator.Close())

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestEngine_Postgres(t *testing.T) {
	pool := startPostgres(t)
	store := repository.NewPGStore(pool, 5*time.Second)
	catalog := seats.NewCatalog(store.Seats(), nil, zap.NewNop())
	itinerary, err := domain.NewItinerary(domain.DefaultStops(), 200, 2)
	require.NoError(t, err)
	e := NewEngine(store, catalog, itinerary, WithRetry(6, 10*time.Millisecond))
	ctx := context.Background()

	t.Run("seeded reference data matches the defaults", func(t *testing.T) {
		meals, err := store.Reference().ListMeals(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultMeals(), meals)

		stops, err := store.Reference().ListStops(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultStops(), stops)
	})

	t.Run("overlap and adjacency", func(t *testing.T) {
		first, err := e.CreateReservation(ctx, input(domain.Leg{From: 0, To: 6}, "4 UB"))
		require.NoError(t, err)

		_, err = e.CreateReservation(ctx, input(domain.Leg{From: 2, To: 5}, "4 UB"))
		var conflict *domain.SeatConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, []string{"4 UB"}, conflict.Seats)

		_, err = e.CreateReservation(ctx, input(domain.Leg{From: 0, To: 3}, "5 UB"))
		require.NoError(t, err)
		_, err = e.CreateReservation(ctx, input(domain.Leg{From: 3, To: 6}, "5 UB"))
		require.NoError(t, err)

		got, err := e.Get(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"4 UB"}, got.SeatNumbers())
		assert.Equal(t, "rider@example.com", got.Email)
	})

	t.Run("mismatch leaves no rows", func(t *testing.T) {
		in := input(domain.Leg{From: 0, To: 2}, "1 LB", "2 LB")
		in.Genders = []string{"Male"}
		_, err := e.CreateReservation(ctx, in)
		require.ErrorIs(t, err, domain.ErrInvalidSeat)

		avail, err := e.CheckAvailability(ctx, journey, domain.Leg{From: 0, To: 2})
		require.NoError(t, err)
		for _, s := range avail.Seats {
			if s.SeatNumber == "1 LB" || s.SeatNumber == "2 LB" {
				assert.True(t, s.Available)
			}
		}
	})

	t.Run("overlong gender is a request error", func(t *testing.T) {
		in := input(domain.Leg{From: 0, To: 2}, "6 LB")
		in.Genders = []string{"Prefer not to say"}
		_, err := e.CreateReservation(ctx, in)
		require.ErrorIs(t, err, domain.ErrInvalidRequest)

		in.Genders = []string{"Nonbinary"}
		_, err = e.CreateReservation(ctx, in)
		require.NoError(t, err)
	})

	t.Run("meals and cancel", func(t *testing.T) {
		in := input(domain.Leg{From: 1, To: 4}, "8 LB")
		in.Meals = []domain.MealOrder{{MealID: 2, Quantity: 1}}
		res, err := e.CreateReservation(ctx, in)
		require.NoError(t, err)

		got, err := e.Get(ctx, res.ID)
		require.NoError(t, err)
		assert.Equal(t, in.Meals, got.Meals)

		cancelled, err := e.Cancel(ctx, res.ID)
		require.NoError(t, err)
		require.NotNil(t, cancelled.CancelledAt)
		again, err := e.Cancel(ctx, res.ID)
		require.NoError(t, err)
		assert.True(t, cancelled.CancelledAt.Equal(*again.CancelledAt))

		_, err = e.CreateReservation(ctx, input(domain.Leg{From: 2, To: 3}, "8 LB"))
		assert.NoError(t, err)
	})

	t.Run("concurrent requests for one seat", func(t *testing.T) {
		const n = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				in := input(domain.Leg{From: 1, To: 5}, "12 UB")
				in.Email = fmt.Sprintf("rider%d@example.com", i)
				_, err := e.CreateReservation(ctx, in)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case errors.Is(err, domain.ErrSeatConflict), errors.Is(err, domain.ErrRetryable):
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 1, wins)

		avail, err := e.CheckAvailability(ctx, journey, domain.Leg{From: 0, To: 6})
		require.NoError(t, err)
		booked := 0
		for _, s := range avail.Seats {
			if s.SeatNumber == "12 UB" && !s.Available {
				booked++
			}
		}
		assert.Equal(t, 1, booked)
	})
}
