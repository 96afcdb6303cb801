package model

import "time"

// PassPhrase is the shared secret that grants member access for exactly one
// calendar month. At most one phrase exists per (month, year).
type PassPhrase struct {
	ID        string    `json:"id" db:"id"`
	Phrase    string    `json:"phrase" db:"phrase"`
	Month     int       `json:"month" db:"month"` // 1-12
	Year      int       `json:"year" db:"year"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Session mirrors an issued member token as a durable audit record. It is
// never consulted for authorization; the token itself is self-verifying.
type Session struct {
	ID         string    `json:"id" db:"id"`
	Token      string    `json:"token" db:"token"`
	ValidUntil time.Time `json:"valid_until" db:"valid_until"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
