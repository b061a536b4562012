package risk

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type ScoreCache interface {
	GetRisk(ctx context.Context, key string) (*Score, error)
	SetRisk(ctx context.Context, key string, score Score) error
}

// Cached memoises another estimator. Keys include today's date because the
// lead time changes daily.
type Cached struct {
	next   Estimator
	cache  ScoreCache
	logger *zap.Logger
	now    func() time.Time
}

func NewCached(next Estimator, cache ScoreCache, logger *zap.Logger) *Cached {
	return &Cached{next: next, cache: cache, logger: logger, now: time.Now}
}

func (c *Cached) Estimate(ctx context.Context, date time.Time, totalSeats, bookedSeats int) (Score, error) {
	key := fmt.Sprintf("%s:%d:%d:%s", date.Format("2006-01-02"), totalSeats, bookedSeats, c.now().UTC().Format("2006-01-02"))

	if cached, err := c.cache.GetRisk(ctx, key); err != nil {
		c.logger.Debug("risk cache read failed", zap.String("key", key), zap.Error(err))
	} else if cached != nil {
		return *cached, nil
	}

	score, err := c.next.Estimate(ctx, date, totalSeats, bookedSeats)
	if err != nil {
		return Score{}, err
	}
	if err := c.cache.SetRisk(ctx, key, score); err != nil {
		c.logger.Debug("risk cache write failed", zap.String("key", key), zap.Error(err))
	}
	return score, nil
}

var _ Estimator = (*Cached)(nil)
