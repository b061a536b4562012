package domain

import (
	"strings"
	"time"
)

type Customer struct {
	ID        int64
	Email     string
	FullName  string
	CreatedAt time.Time
}

// NormalizeEmail is the canonical form e-mails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Column widths of the stored text fields, in characters.
const (
	MaxEmailLen         = 150
	MaxFullNameLen      = 100
	MaxGenderLen        = 10
	MaxPassengerNameLen = 100
)
