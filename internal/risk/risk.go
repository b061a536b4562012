// Package risk estimates how likely a journey date is to sell out. Scores
// are advisory: they are shown next to availability and never gate booking.
package risk

import (
	"context"
	"math"
	"time"
)

const (
	LabelSafe        = "Safe"
	LabelMedium      = "Medium Risk"
	LabelHigh        = "High Risk"
	LabelSellOutLike = "Sell Out Likely"

	minScore = 10
	maxScore = 99
)

type Score struct {
	Score int    `json:"score"`
	Label string `json:"label"`
}

type Estimator interface {
	Estimate(ctx context.Context, date time.Time, totalSeats, bookedSeats int) (Score, error)
}

// features are the inputs both models work on.
type features struct {
	daysLeft  float64
	weekend   bool
	occupancy float64
}

func extract(now, date time.Time, totalSeats, bookedSeats int) features {
	f := features{
		daysLeft: math.Ceil(date.Sub(now).Hours() / 24),
	}
	switch date.Weekday() {
	case time.Friday, time.Saturday, time.Sunday:
		f.weekend = true
	}
	if totalSeats > 0 {
		f.occupancy = float64(bookedSeats) / float64(totalSeats)
	}
	return f
}

func clamp(score float64) int {
	s := int(math.Round(score))
	if s > maxScore {
		s = maxScore
	}
	if s < minScore {
		s = minScore
	}
	return s
}
