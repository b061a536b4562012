package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

const reservationColumns = `r.id, r.customer_id, c.email, r.journey_date, r.from_index, r.to_index, r.status, r.total_amount, r.created_at, r.cancelled_at`

type PGReservationRepository struct {
	db DBTX
}

func NewReservationRepository(db DBTX) ReservationRepository {
	return &PGReservationRepository{db: db}
}

func (r *PGReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	res.Status = domain.ReservationStatusConfirmed
	return r.db.QueryRow(ctx, `INSERT INTO reservations (customer_id, journey_date, from_index, to_index, status, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`, res.CustomerID, res.JourneyDate, res.Leg.From, res.Leg.To, res.Status, res.TotalAmount).
		Scan(&res.ID, &res.CreatedAt)
}

func (r *PGReservationRepository) AddMeals(ctx context.Context, reservationID int64, meals []domain.MealOrder) error {
	for _, m := range meals {
		if _, err := r.db.Exec(ctx, `INSERT INTO reservation_meals (reservation_id, meal_id, quantity) VALUES ($1, $2, $3)`,
			reservationID, m.MealID, m.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (r *PGReservationRepository) ListMeals(ctx context.Context, reservationID int64) ([]domain.MealOrder, error) {
	rows, err := r.db.Query(ctx, `SELECT meal_id, quantity FROM reservation_meals WHERE reservation_id = $1 ORDER BY meal_id`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meals := make([]domain.MealOrder, 0)
	for rows.Next() {
		var m domain.MealOrder
		if err := rows.Scan(&m.MealID, &m.Quantity); err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

func (r *PGReservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	row := r.db.QueryRow(ctx, `SELECT `+reservationColumns+`
		FROM reservations r JOIN customers c ON c.id = r.customer_id
		WHERE r.id = $1`, id)
	return scanReservation(row)
}

// MarkCancelled keeps the first cancellation time when called again.
func (r *PGReservationRepository) MarkCancelled(ctx context.Context, id int64, at time.Time) (*domain.Reservation, error) {
	row := r.db.QueryRow(ctx, `UPDATE reservations r
		SET status = $2, cancelled_at = COALESCE(r.cancelled_at, $3), updated_at = now()
		FROM customers c
		WHERE r.id = $1 AND c.id = r.customer_id
		RETURNING `+reservationColumns, id, domain.ReservationStatusCancelled, at)
	return scanReservation(row)
}

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var res domain.Reservation
	if err := row.Scan(&res.ID, &res.CustomerID, &res.Email, &res.JourneyDate, &res.Leg.From, &res.Leg.To,
		&res.Status, &res.TotalAmount, &res.CreatedAt, &res.CancelledAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

var _ ReservationRepository = (*PGReservationRepository)(nil)
