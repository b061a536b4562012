package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

const segmentColumns = `s.id, s.seat_id, seats.seat_number, s.reservation_id, s.journey_date, s.from_index, s.to_index, s.gender, s.passenger_name`

// overlapPredicate is the only place the interval test is written in SQL.
// fromArg and toArg are the placeholder positions of the requested leg.
// It must agree with domain.Leg.Overlaps.
func overlapPredicate(fromArg, toArg int) string {
	return fmt.Sprintf("s.from_index < $%d AND s.to_index > $%d", toArg, fromArg)
}

type PGSegmentRepository struct {
	db DBTX
}

func NewSegmentRepository(db DBTX) SegmentRepository {
	return &PGSegmentRepository{db: db}
}

func (r *PGSegmentRepository) FindOverlapping(ctx context.Context, date time.Time, leg domain.Leg, seatIDs []int64) ([]domain.Segment, error) {
	query := `SELECT ` + segmentColumns + `
		FROM seat_segments s
		JOIN reservations r ON r.id = s.reservation_id
		JOIN seats ON seats.id = s.seat_id
		WHERE s.journey_date = $1 AND ` + overlapPredicate(2, 3) + ` AND r.status = $4`
	args := []any{date, leg.From, leg.To, domain.ReservationStatusConfirmed}
	if len(seatIDs) > 0 {
		query += ` AND s.seat_id = ANY($5)`
		args = append(args, seatIDs)
	}
	query += ` ORDER BY s.seat_id, s.from_index`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanSegments(rows)
}

func (r *PGSegmentRepository) InsertMany(ctx context.Context, segments []domain.Segment) error {
	if len(segments) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, s := range segments {
		batch.Queue(`INSERT INTO seat_segments (seat_id, reservation_id, journey_date, from_index, to_index, gender, passenger_name)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			s.SeatID, s.ReservationID, s.JourneyDate, s.Leg.From, s.Leg.To, nullString(s.Gender), nullString(s.PassengerName))
	}

	br := r.db.SendBatch(ctx, batch)
	for i := range segments {
		if err := br.QueryRow().Scan(&segments[i].ID); err != nil {
			br.Close()
			return fmt.Errorf("insert segment for seat %d: %w", segments[i].SeatID, err)
		}
	}
	return br.Close()
}

func (r *PGSegmentRepository) DeleteByReservation(ctx context.Context, reservationID int64) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM seat_segments WHERE reservation_id = $1`, reservationID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *PGSegmentRepository) ListByReservation(ctx context.Context, reservationID int64) ([]domain.Segment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+segmentColumns+`
		FROM seat_segments s
		JOIN seats ON seats.id = s.seat_id
		WHERE s.reservation_id = $1
		ORDER BY s.id`, reservationID)
	if err != nil {
		return nil, err
	}
	return scanSegments(rows)
}

func scanSegments(rows pgx.Rows) ([]domain.Segment, error) {
	defer rows.Close()

	segments := make([]domain.Segment, 0)
	for rows.Next() {
		var (
			s             domain.Segment
			gender, pname *string
		)
		if err := rows.Scan(&s.ID, &s.SeatID, &s.SeatNumber, &s.ReservationID, &s.JourneyDate, &s.Leg.From, &s.Leg.To, &gender, &pname); err != nil {
			return nil, err
		}
		s.Gender = derefString(gender)
		s.PassengerName = derefString(pname)
		segments = append(segments, s)
	}
	return segments, rows.Err()
}

var _ SegmentRepository = (*PGSegmentRepository)(nil)
