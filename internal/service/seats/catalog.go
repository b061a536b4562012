package seats

import (
	"context"
	"fmt"
	"strings"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/repository"
	"go.uber.org/zap"
)

type SeatUseCase interface {
	List(ctx context.Context) ([]domain.Seat, error)
	ListActive(ctx context.Context) ([]domain.Seat, error)
}

type Cache interface {
	GetSeats(ctx context.Context) ([]domain.Seat, error)
	SetSeats(ctx context.Context, seats []domain.Seat) error
}

// Catalog serves the seat list for reads. Booking never trusts the cached
// list; it resolves seats with Resolve inside its own transaction.
type Catalog struct {
	repo   repository.SeatRepository
	cache  Cache
	logger *zap.Logger
}

func NewCatalog(repo repository.SeatRepository, cache Cache, logger *zap.Logger) *Catalog {
	return &Catalog{repo: repo, cache: cache, logger: logger}
}

func (c *Catalog) List(ctx context.Context) ([]domain.Seat, error) {
	if c.cache != nil {
		cached, err := c.cache.GetSeats(ctx)
		if err != nil {
			c.logger.Warn("seat cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	seats, err := c.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if err := c.cache.SetSeats(ctx, seats); err != nil {
			c.logger.Warn("seat cache write failed", zap.Error(err))
		}
	}
	return seats, nil
}

func (c *Catalog) ListActive(ctx context.Context) ([]domain.Seat, error) {
	all, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]domain.Seat, 0, len(all))
	for _, s := range all {
		if s.Active {
			active = append(active, s)
		}
	}
	return active, nil
}

// Resolve maps seat numbers to active seats, in request order. Blank,
// repeated, unknown and inactive numbers fail with domain.ErrInvalidSeat.
func Resolve(ctx context.Context, repo repository.SeatRepository, numbers []string) ([]domain.Seat, error) {
	if len(numbers) == 0 {
		return nil, fmt.Errorf("%w: at least one seat is required", domain.ErrInvalidSeat)
	}
	seen := make(map[string]struct{}, len(numbers))
	for _, n := range numbers {
		if strings.TrimSpace(n) == "" {
			return nil, fmt.Errorf("%w: blank seat number", domain.ErrInvalidSeat)
		}
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("%w: seat %s requested twice", domain.ErrInvalidSeat, n)
		}
		seen[n] = struct{}{}
	}

	found, err := repo.FindActiveByNumbers(ctx, numbers)
	if err != nil {
		return nil, fmt.Errorf("resolve seats: %w", err)
	}
	byNumber := make(map[string]domain.Seat, len(found))
	for _, s := range found {
		byNumber[s.SeatNumber] = s
	}

	resolved := make([]domain.Seat, 0, len(numbers))
	var unknown []string
	for _, n := range numbers {
		s, ok := byNumber[n]
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		resolved = append(resolved, s)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: unknown or inactive seats %s", domain.ErrInvalidSeat, strings.Join(unknown, ", "))
	}
	return resolved, nil
}

var _ SeatUseCase = (*Catalog)(nil)
