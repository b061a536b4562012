package domain

import (
	"errors"
	"fmt"
)

type Stop struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	DistanceKm int    `json:"distanceKm"`
}

// Itinerary is the fixed ordered route of the vehicle together with its
// fare rule. It holds no mutable state and is safe for concurrent use.
type Itinerary struct {
	stops     []Stop
	baseFare  int64
	perKmFare int64
}

func NewItinerary(stops []Stop, baseFare, perKmFare int64) (*Itinerary, error) {
	if len(stops) < 2 {
		return nil, errors.New("itinerary needs at least two stops")
	}
	if baseFare < 0 || perKmFare < 0 {
		return nil, errors.New("fares must not be negative")
	}
	for i, s := range stops {
		if s.Index != i {
			return nil, fmt.Errorf("stop %q has index %d, want %d", s.Name, s.Index, i)
		}
		if i > 0 && s.DistanceKm < stops[i-1].DistanceKm {
			return nil, fmt.Errorf("stop %q is closer than the stop before it", s.Name)
		}
	}
	cp := make([]Stop, len(stops))
	copy(cp, stops)
	return &Itinerary{stops: cp, baseFare: baseFare, perKmFare: perKmFare}, nil
}

// DefaultStops is the Ahmedabad to Mumbai sleeper route.
func DefaultStops() []Stop {
	return []Stop{
		{Index: 0, Name: "Ahmedabad", DistanceKm: 0},
		{Index: 1, Name: "Vadodara", DistanceKm: 110},
		{Index: 2, Name: "Bharuch", DistanceKm: 190},
		{Index: 3, Name: "Surat", DistanceKm: 265},
		{Index: 4, Name: "Vapi", DistanceKm: 385},
		{Index: 5, Name: "Virar", DistanceKm: 535},
		{Index: 6, Name: "Mumbai", DistanceKm: 595},
	}
}

func (it *Itinerary) Stops() []Stop {
	cp := make([]Stop, len(it.stops))
	copy(cp, it.stops)
	return cp
}

func (it *Itinerary) MaxIndex() int {
	return len(it.stops) - 1
}

func (it *Itinerary) Stop(index int) (Stop, bool) {
	if index < 0 || index >= len(it.stops) {
		return Stop{}, false
	}
	return it.stops[index], true
}

// ValidateLeg enforces 0 <= from < to <= MaxIndex.
func (it *Itinerary) ValidateLeg(leg Leg) error {
	if leg.From < 0 || leg.To > it.MaxIndex() {
		return fmt.Errorf("%w: leg %s outside stops 0..%d", ErrInvalidRequest, leg, it.MaxIndex())
	}
	if leg.From >= leg.To {
		return fmt.Errorf("%w: leg %s must start before it ends", ErrInvalidRequest, leg)
	}
	return nil
}

// Fare is the per-seat price of a leg: base + perKm * distance travelled.
func (it *Itinerary) Fare(leg Leg) (int64, error) {
	if err := it.ValidateLeg(leg); err != nil {
		return 0, err
	}
	d := it.stops[leg.To].DistanceKm - it.stops[leg.From].DistanceKm
	if d < 0 {
		d = -d
	}
	return it.baseFare + it.perKmFare*int64(d), nil
}
