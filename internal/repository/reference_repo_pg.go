package repository

import (
	"context"

	"github.com/Domenick1991/busbooking/internal/domain"
)

type PGReferenceRepository struct {
	db DBTX
}

func NewReferenceRepository(db DBTX) ReferenceRepository {
	return &PGReferenceRepository{db: db}
}

func (r *PGReferenceRepository) ListMeals(ctx context.Context) ([]domain.Meal, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, price FROM meals ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meals := make([]domain.Meal, 0)
	for rows.Next() {
		var m domain.Meal
		if err := rows.Scan(&m.ID, &m.Name, &m.Price); err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

func (r *PGReferenceRepository) ListStops(ctx context.Context) ([]domain.Stop, error) {
	rows, err := r.db.Query(ctx, `SELECT station_index, city_name, distance_km FROM stations ORDER BY station_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stops := make([]domain.Stop, 0)
	for rows.Next() {
		var s domain.Stop
		if err := rows.Scan(&s.Index, &s.Name, &s.DistanceKm); err != nil {
			return nil, err
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

var _ ReferenceRepository = (*PGReferenceRepository)(nil)
