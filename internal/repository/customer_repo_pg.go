package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type PGCustomerRepository struct {
	db DBTX
}

func NewCustomerRepository(db DBTX) CustomerRepository {
	return &PGCustomerRepository{db: db}
}

func (r *PGCustomerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	var (
		c    domain.Customer
		name *string
	)
	err := r.db.QueryRow(ctx, `SELECT id, email, full_name, created_at FROM customers WHERE email = $1`, email).
		Scan(&c.ID, &c.Email, &name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	c.FullName = derefString(name)
	return &c, nil
}

// Create uses ON CONFLICT DO NOTHING so that losing an e-mail race inside a
// transaction does not abort it.
func (r *PGCustomerRepository) Create(ctx context.Context, c *domain.Customer) error {
	err := r.db.QueryRow(ctx, `INSERT INTO customers (email, full_name) VALUES ($1, $2)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, created_at`, c.Email, nullString(c.FullName)).
		Scan(&c.ID, &c.CreatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows), isUniqueViolation(err):
		return ErrDuplicate
	default:
		return err
	}
}

var _ CustomerRepository = (*PGCustomerRepository)(nil)
