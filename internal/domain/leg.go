package domain

import "fmt"

// Leg is the half-open stop range [From, To) a passenger travels.
type Leg struct {
	From int `json:"fromIndex"`
	To   int `json:"toIndex"`
}

func (l Leg) String() string {
	return fmt.Sprintf("[%d,%d)", l.From, l.To)
}

// Overlaps reports whether two legs share at least one hop.
// Touching endpoints do not overlap: [0,3) and [3,6) are compatible.
// The SQL stores express the same test as `from_index < to AND to_index > from`.
func (l Leg) Overlaps(o Leg) bool {
	return l.From < o.To && l.To > o.From
}

// Reaches reports whether the leg starts at, ends at or passes through stop.
func (l Leg) Reaches(stop int) bool {
	return l.From <= stop && stop <= l.To
}
