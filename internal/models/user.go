package models

import "time"

// User represents a staff account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose this to the client
	IsAdmin      bool      `json:"isAdmin"`
	APIKey       *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
