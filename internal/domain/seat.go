package domain

import (
	"fmt"
	"strings"
)

type Berth string

const (
	BerthLower Berth = "LB"
	BerthUpper Berth = "UB"
)

// Seat is a bookable seat unit. Seats are never deleted, only deactivated.
type Seat struct {
	ID         int64  `json:"id"`
	SeatNumber string `json:"seatNumber"`
	Berth      Berth  `json:"berth"`
	Active     bool   `json:"active"`
}

// BerthOf derives the berth from a seat number such as "4 UB".
func BerthOf(seatNumber string) Berth {
	switch {
	case strings.HasSuffix(seatNumber, string(BerthUpper)):
		return BerthUpper
	case strings.HasSuffix(seatNumber, string(BerthLower)):
		return BerthLower
	default:
		return ""
	}
}

// DefaultSeatLayout returns perDeck lower berths followed by perDeck upper
// berths, numbered from 1. IDs are assigned in that order starting at 1.
func DefaultSeatLayout(perDeck int) []Seat {
	seats := make([]Seat, 0, perDeck*2)
	for _, berth := range []Berth{BerthLower, BerthUpper} {
		for i := 1; i <= perDeck; i++ {
			seats = append(seats, Seat{
				ID:         int64(len(seats) + 1),
				SeatNumber: fmt.Sprintf("%d %s", i, berth),
				Berth:      berth,
				Active:     true,
			})
		}
	}
	return seats
}
