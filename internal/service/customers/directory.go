package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/repository"
)

// maxAttempts bounds the read-insert-read loop when e-mails race.
const maxAttempts = 3

type Directory struct {
	repo repository.CustomerRepository
}

func NewDirectory(repo repository.CustomerRepository) *Directory {
	return &Directory{repo: repo}
}

// FindOrCreate returns the customer owning email, creating it on first
// sight. Losing an insert race to another request is not an error: the row
// that request created is returned instead.
func (d *Directory) FindOrCreate(ctx context.Context, email, fullName string) (*domain.Customer, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrInvalidRequest)
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		existing, err := d.repo.GetByEmail(ctx, email)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("lookup customer: %w", err)
		}

		c := &domain.Customer{Email: email, FullName: fullName}
		err = d.repo.Create(ctx, c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("create customer: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: customer %s could not be resolved", domain.ErrRetryable, email)
}
