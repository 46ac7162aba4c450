package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// RememberMeToken is one long-lived "stay logged in" grant. An identity may
// hold several at once (one per device). Records are never mutated; they
// disappear by expiry or revocation.
type RememberMeToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// RememberTokenStore persists hashed remember-me grants.
// The plaintext secret exists only in the return value of Issue and inside
// the signed cookie; implementations must store nothing but its hash.
type RememberTokenStore interface {
	// Issue creates a fresh grant for the user and returns the plaintext
	// secret. A hash collision on insert is reported as ErrEntropyCollision.
	Issue(ctx context.Context, userID uuid.UUID, ttl time.Duration) (string, error)

	// Resolve finds the non-expired grant whose stored hash matches the
	// presented secret and returns the owning user id. The hash match is
	// the selection predicate: a record is only a candidate if its hash
	// equals hash(secret), never the other way around.
	Resolve(ctx context.Context, secret string) (uuid.UUID, error)

	// RevokeAll deletes every grant for the user (logout everywhere,
	// password change).
	RevokeAll(ctx context.Context, userID uuid.UUID) error

	// DeleteExpired removes lapsed grants; run periodically.
	DeleteExpired(ctx context.Context) error
}

// HashTokenSecret returns the hex SHA-256 of a token secret. Storage and
// lookup both go through this, so the plaintext never reaches the database.
func HashTokenSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
