package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidSeat covers unknown, inactive or duplicated seat numbers and
	// passenger arrays that do not line up with the seats.
	ErrInvalidSeat    = errors.New("invalid seat")
	ErrInvalidRequest = errors.New("invalid request")
	ErrSeatConflict   = errors.New("seat conflict")
	// ErrRetryable is a transient storage failure (serialization failure,
	// deadlock, timeout). The whole operation may be repeated unchanged.
	ErrRetryable = errors.New("high contention, please retry")
	ErrNotFound  = errors.New("not found")
)

// SeatConflictError names the seats already taken for an overlapping leg.
type SeatConflictError struct {
	Seats []string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat conflict: %s already booked for an overlapping leg", strings.Join(e.Seats, ", "))
}

func (e *SeatConflictError) Unwrap() error {
	return ErrSeatConflict
}
