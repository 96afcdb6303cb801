package model

import "time"

// Admin represents an administrative user who manages the site through the
// admin API. Passwords are stored as bcrypt hashes and never serialized.
type Admin struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
