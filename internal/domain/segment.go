package domain

import "time"

// Segment is the reservation of one seat for one leg on one date, the unit
// of conflict detection. For a given seat and date the segments of
// confirmed reservations never overlap.
type Segment struct {
	ID            int64
	SeatID        int64
	SeatNumber    string
	ReservationID int64
	JourneyDate   time.Time
	Leg           Leg
	Gender        string
	PassengerName string
}
