// Package notification carries completed and cancelled reservations to the
// receipt sender. Delivery is best effort: a failed dispatch is logged by the
// caller and never undoes a reservation.
package notification

import (
	"context"
	"time"
)

type EventType string

const (
	EventReservationConfirmed EventType = "reservation_confirmed"
	EventReservationCancelled EventType = "reservation_cancelled"
)

type Event struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	ReservationID  int64     `json:"reservation_id"`
	Email          string    `json:"email"`
	JourneyDate    string    `json:"journey_date"`
	FromStop       string    `json:"from_stop"`
	ToStop         string    `json:"to_stop"`
	Seats          []string  `json:"seats"`
	PassengerNames []string  `json:"passenger_names,omitempty"`
	TotalAmount    int64     `json:"total_amount"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// Handler consumes one event on the receiving side.
type Handler func(ctx context.Context, event Event) error
