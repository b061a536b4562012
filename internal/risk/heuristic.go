package risk

import (
	"context"
	"time"
)

// Heuristic scores a date from lead time, weekend demand and occupancy.
type Heuristic struct {
	now func() time.Time
}

func NewHeuristic() *Heuristic {
	return &Heuristic{now: time.Now}
}

func (h *Heuristic) Estimate(ctx context.Context, date time.Time, totalSeats, bookedSeats int) (Score, error) {
	f := extract(h.now(), date, totalSeats, bookedSeats)

	p := 10.0
	switch {
	case f.daysLeft <= 1:
		p += 50
	case f.daysLeft <= 3:
		p += 30
	case f.daysLeft <= 7:
		p += 15
	}
	if f.weekend {
		p += 20
	}
	p += f.occupancy * 50

	score := clamp(p)
	label := LabelSafe
	switch {
	case score > 80:
		label = LabelHigh
	case score > 50:
		label = LabelMedium
	}
	return Score{Score: score, Label: label}, nil
}

var _ Estimator = (*Heuristic)(nil)
