package bootstrap

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/busbooking/config"
	"github.com/Domenick1991/busbooking/internal/cache"
	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/repository"
	"github.com/Domenick1991/busbooking/internal/risk"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// OpenStore connects the configured backend. The returned close function
// releases the pool and is safe to call for the memory store.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		return repository.NewMemoryStore(domain.DefaultSeatLayout(cfg.Itinerary.SeatsPerDeck)), func() {}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Database.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("connected to postgres", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Name))
	return repository.NewPGStore(pool, cfg.Database.TxTimeout()), pool.Close, nil
}

// OpenCache returns nil when Redis is not configured. An unreachable Redis
// is logged and still returned: every cache call degrades to a miss.
func OpenCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*cache.RedisCache, func()) {
	if cfg.Redis.Addr == "" {
		return nil, func() {}
	}
	client := cache.NewRedisClient(cfg.Redis)
	c := cache.NewRedisCache(client,
		time.Duration(cfg.Booking.SeatsCacheTTLSeconds)*time.Second,
		time.Duration(cfg.Risk.CacheTTLSeconds)*time.Second)
	if err := c.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, continuing without warm cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	return c, func() { _ = client.Close() }
}

// NewEstimator picks the k-NN model when a dataset is configured and the
// heuristic otherwise, cached in Redis when available.
func NewEstimator(cfg *config.Config, scores risk.ScoreCache, logger *zap.Logger) risk.Estimator {
	var est risk.Estimator = risk.NewHeuristic()
	if cfg.Risk.DatasetPath != "" {
		knn, err := risk.LoadKNN(cfg.Risk.DatasetPath)
		if err != nil {
			logger.Warn("risk dataset unusable, falling back to heuristic", zap.String("path", cfg.Risk.DatasetPath), zap.Error(err))
		} else {
			logger.Info("risk k-NN model loaded", zap.Int("records", knn.Size()))
			est = knn
		}
	}
	if scores != nil {
		est = risk.NewCached(est, scores, logger)
	}
	return est
}

type referenceSource interface {
	Reference() repository.ReferenceRepository
}

// CheckReferenceData compares the configured catalogue with the seeded
// tables of a Postgres store. Config is the source for fares, stop names and
// meal prices, but every configured meal must exist in the meals table
// because reservation_meals references it.
func CheckReferenceData(ctx context.Context, store repository.Store, itinerary *domain.Itinerary, meals []domain.Meal, logger *zap.Logger) error {
	src, ok := store.(referenceSource)
	if !ok {
		return nil
	}
	return verifyReferenceData(ctx, src.Reference(), itinerary, meals, logger)
}

func verifyReferenceData(ctx context.Context, ref repository.ReferenceRepository, itinerary *domain.Itinerary, meals []domain.Meal, logger *zap.Logger) error {
	stored, err := ref.ListMeals(ctx)
	if err != nil {
		return fmt.Errorf("read meals: %w", err)
	}
	byID := make(map[int64]domain.Meal, len(stored))
	for _, m := range stored {
		byID[m.ID] = m
	}

	var missing []string
	for _, m := range meals {
		s, ok := byID[m.ID]
		if !ok {
			missing = append(missing, strconv.FormatInt(m.ID, 10))
			continue
		}
		if s != m {
			logger.Warn("configured meal differs from the meals table",
				zap.Int64("meal_id", m.ID), zap.String("configured", m.Name), zap.String("stored", s.Name),
				zap.Int64("configured_price", m.Price), zap.Int64("stored_price", s.Price))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("configured meals %s are missing from the meals table", strings.Join(missing, ", "))
	}

	stops, err := ref.ListStops(ctx)
	if err != nil {
		return fmt.Errorf("read stations: %w", err)
	}
	if !slices.Equal(stops, itinerary.Stops()) {
		logger.Warn("stations table differs from the configured itinerary, using config",
			zap.Int("configured_stops", itinerary.MaxIndex()+1), zap.Int("stored_stops", len(stops)))
	}
	return nil
}
