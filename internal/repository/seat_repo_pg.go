package repository

import (
	"context"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type PGSeatRepository struct {
	db DBTX
}

func NewSeatRepository(db DBTX) SeatRepository {
	return &PGSeatRepository{db: db}
}

func (r *PGSeatRepository) List(ctx context.Context) ([]domain.Seat, error) {
	rows, err := r.db.Query(ctx, `SELECT id, seat_number, berth, is_active FROM seats ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return scanSeats(rows)
}

func (r *PGSeatRepository) FindActiveByNumbers(ctx context.Context, numbers []string) ([]domain.Seat, error) {
	if len(numbers) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id, seat_number, berth, is_active FROM seats WHERE seat_number = ANY($1) AND is_active ORDER BY id`, numbers)
	if err != nil {
		return nil, err
	}
	return scanSeats(rows)
}

func scanSeats(rows pgx.Rows) ([]domain.Seat, error) {
	defer rows.Close()

	seats := make([]domain.Seat, 0)
	for rows.Next() {
		var s domain.Seat
		if err := rows.Scan(&s.ID, &s.SeatNumber, &s.Berth, &s.Active); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

var _ SeatRepository = (*PGSeatRepository)(nil)
