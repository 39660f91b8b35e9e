// Package domain contains core domain types for the course portal.
package domain

import (
	"time"
)

// User is an account known to the local auth backend.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Severity classifies a Notice.
type Severity string

const (
	// SeverityDefault is an informational notice.
	SeverityDefault Severity = "default"
	// SeverityDestructive marks a failure the user has to act on.
	SeverityDestructive Severity = "destructive"
)

// Notice is a transient toast shown once on the next rendered page.
type Notice struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// IsDestructive reports whether the notice reports a failure.
func (n Notice) IsDestructive() bool {
	return n.Severity == SeverityDestructive
}
