package domain

import "time"

type ReservationStatus string

const (
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// Reservation is one purchase. It owns its Segments: they are written with
// it in a single transaction and removed when it is cancelled.
type Reservation struct {
	ID          int64
	CustomerID  int64
	Email       string
	JourneyDate time.Time
	Leg         Leg
	Status      ReservationStatus
	TotalAmount int64
	CreatedAt   time.Time
	CancelledAt *time.Time

	Segments []Segment
	Meals    []MealOrder
}

// SeatNumbers lists the seats of the loaded segments in segment order.
func (r *Reservation) SeatNumbers() []string {
	out := make([]string, 0, len(r.Segments))
	for _, s := range r.Segments {
		out = append(out, s.SeatNumber)
	}
	return out
}

func (r *Reservation) PassengerNames() []string {
	out := make([]string, 0, len(r.Segments))
	for _, s := range r.Segments {
		if s.PassengerName != "" {
			out = append(out, s.PassengerName)
		}
	}
	return out
}
