package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the persistence model for an account identity.
// Email is stored normalized (lowercased, trimmed); uniqueness is enforced
// case-insensitively by an index on lower(email).
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                      uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Email                   string     `bun:"email,notnull"`
	PasswordHash            string     `bun:"password_hash,notnull"`
	Active                  bool       `bun:"active,notnull,default:false"`
	EmailVerified           bool       `bun:"email_verified,notnull,default:false"`
	EmailVerificationToken  *string    `bun:"email_verification_token"`
	EmailVerificationSentAt *time.Time `bun:"email_verification_sent_at"`
	Username                *string    `bun:"username"`
	FirstName               *string    `bun:"first_name"`
	LastName                *string    `bun:"last_name"`
	PhoneNumber             *string    `bun:"phone_number"`
	DateOfBirth             *time.Time `bun:"date_of_birth,type:date"`
	CreatedAt               time.Time  `bun:"created_at,notnull,default:now()"`
	UpdatedAt               time.Time  `bun:"updated_at,notnull,default:now()"`
}

// RememberMeToken is one long-lived "stay logged in" grant. Only the SHA-256
// hash of the secret is persisted; the table has no plaintext column.
type RememberMeToken struct {
	bun.BaseModel `bun:"table:remember_me_tokens,alias:rmt"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID    uuid.UUID `bun:"user_id,notnull,type:uuid"`
	TokenHash string    `bun:"token_hash,notnull,unique"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:now()"`
}
