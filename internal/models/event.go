package models

import "time"

// Event represents a recorded staff action or alert.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "client.create", "auth.login.fail"
	Level     string    `json:"level"` // e.g., "info", "warn", "error"
	Message   string    `json:"message"`
	UserID    *int64    `json:"userId,omitempty"` // Nullable for system events
	CreatedAt time.Time `json:"createdAt"`
}

// DashboardStats holds the record counts shown on the dashboard.
type DashboardStats struct {
	Clients     int `json:"clients"`
	Programs    int `json:"programs"`
	Enrollments int `json:"enrollments"`
}
