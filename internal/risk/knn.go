package risk

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	neighbours   = 7
	maxLeadDays  = 60.0
	daysWeight   = 1.5
	occWeight    = 2.0
	weekendWeigh = 1.0
)

var labelScores = map[string]float64{
	LabelSafe:        10,
	LabelMedium:      50,
	LabelHigh:        80,
	LabelSellOutLike: 95,
}

type sample struct {
	f     features
	score float64
}

// KNN is a weighted k-nearest-neighbour model trained on historical
// outcomes. Rows: Journey_Date, Day_Type, Days_Before_Travel, Booked_Seats,
// Total_Seats, Occupancy_Percent, Outcome_Label.
type KNN struct {
	samples []sample
	now     func() time.Time
}

func LoadKNN(path string) (*KNN, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open risk dataset: %w", err)
	}
	defer f.Close()
	return ReadKNN(f)
}

func ReadKNN(r io.Reader) (*KNN, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read risk dataset: %w", err)
	}
	if len(records) < 2 {
		return nil, errors.New("risk dataset has no rows")
	}

	samples := make([]sample, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < 7 {
			continue
		}
		days, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			continue
		}
		occ, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(rec[5]), "%"), 64)
		if err != nil {
			continue
		}
		day := strings.TrimSpace(rec[1])
		score, ok := labelScores[strings.TrimSpace(rec[6])]
		if !ok {
			score = labelScores[LabelSafe]
		}
		samples = append(samples, sample{
			f: features{
				daysLeft:  days,
				weekend:   day == "Friday" || day == "Saturday" || day == "Sunday",
				occupancy: occ / 100,
			},
			score: score,
		})
	}
	if len(samples) == 0 {
		return nil, errors.New("risk dataset has no usable rows")
	}
	return &KNN{samples: samples, now: time.Now}, nil
}

func (k *KNN) Size() int {
	return len(k.samples)
}

func (k *KNN) Estimate(ctx context.Context, date time.Time, totalSeats, bookedSeats int) (Score, error) {
	in := extract(k.now(), date, totalSeats, bookedSeats)

	type neighbour struct {
		dist  float64
		score float64
	}
	all := make([]neighbour, 0, len(k.samples))
	for _, s := range k.samples {
		dDays := normDays(s.f.daysLeft) - normDays(in.daysLeft)
		dOcc := s.f.occupancy - in.occupancy
		dWeek := boolf(s.f.weekend) - boolf(in.weekend)
		all = append(all, neighbour{
			dist: math.Sqrt(math.Pow(dDays*daysWeight, 2) +
				math.Pow(dOcc*occWeight, 2) +
				math.Pow(dWeek*weekendWeigh, 2)),
			score: s.score,
		})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].dist < all[j].dist })
	if len(all) > neighbours {
		all = all[:neighbours]
	}

	var total, weighted float64
	for _, n := range all {
		w := 1 / (n.dist + 0.0001)
		weighted += n.score * w
		total += w
	}
	final := weighted / total
	if in.occupancy > 0.9 {
		final = math.Max(final, 95)
	}

	score := clamp(final)
	label := LabelSafe
	switch {
	case score >= 90:
		label = LabelSellOutLike
	case score >= 80:
		label = LabelHigh
	case score >= 50:
		label = LabelMedium
	}
	return Score{Score: score, Label: label}, nil
}

func normDays(d float64) float64 {
	return math.Min(d, maxLeadDays) / maxLeadDays
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

var _ Estimator = (*KNN)(nil)
