package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is one registered account identity.
// An inactive user cannot authenticate through any path.
type User struct {
	ID                      uuid.UUID  `json:"id"`
	Email                   string     `json:"email"`
	PasswordHash            string     `json:"-"` // Never expose password hash in JSON
	Active                  bool       `json:"active"`
	EmailVerified           bool       `json:"email_verified"`
	EmailVerificationToken  *string    `json:"-"`
	EmailVerificationSentAt *time.Time `json:"-"`
	Username                *string    `json:"username,omitempty"`
	FirstName               *string    `json:"first_name,omitempty"`
	LastName                *string    `json:"last_name,omitempty"`
	PhoneNumber             *string    `json:"phone_number,omitempty"`
	DateOfBirth             *time.Time `json:"date_of_birth,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// Stats summarizes the user base.
type Stats struct {
	TotalUsers    int `json:"total_users"`
	VerifiedUsers int `json:"verified_users"`
	RecentUsers   int `json:"recent_users"`
}

// NormalizeEmail canonicalizes an email address for storage and lookup.
// Uniqueness is case-insensitive, so every query goes through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
