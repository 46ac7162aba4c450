package auth

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/creativeplayground/accounts/internal/database"
)

// RememberTokenRepository is the Postgres-backed RememberTokenStore
type RememberTokenRepository struct {
	db *bun.DB
}

var _ RememberTokenStore = (*RememberTokenRepository)(nil)

func NewRememberTokenRepository(db *bun.DB) *RememberTokenRepository {
	return &RememberTokenRepository{db: db}
}

// Issue generates a 256-bit random secret and stores only its hash.
// The insert is all-or-nothing: a unique violation on token_hash means the
// entropy source produced a colliding secret, which is treated as fatal
// rather than retried.
func (r *RememberTokenRepository) Issue(ctx context.Context, userID uuid.UUID, ttl time.Duration) (string, error) {
	secret, err := generateRandomToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate remember-me secret: %w", err)
	}

	record := &database.RememberMeToken{
		UserID:    userID,
		TokenHash: HashTokenSecret(secret),
		ExpiresAt: time.Now().Add(ttl),
	}

	_, err = r.db.NewInsert().
		Model(record).
		Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return "", ErrEntropyCollision
		}
		return "", fmt.Errorf("failed to store remember-me token: %w", err)
	}

	return secret, nil
}

// Resolve looks up the grant by hash equality AND non-expiry. The hash is
// part of the WHERE clause, so only the exact record for the presented
// secret can ever match, no matter how many unexpired grants exist.
func (r *RememberTokenRepository) Resolve(ctx context.Context, secret string) (uuid.UUID, error) {
	tokenHash := HashTokenSecret(secret)

	record := new(database.RememberMeToken)
	err := r.db.NewSelect().
		Model(record).
		Where("token_hash = ?", tokenHash).
		Where("expires_at > ?", time.Now()).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrTokenNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to resolve remember-me token: %w", err)
	}

	// The database already matched on equality; re-check in constant time so
	// the comparison the decision rests on is not an index lookup.
	if subtle.ConstantTimeCompare([]byte(record.TokenHash), []byte(tokenHash)) != 1 {
		return uuid.Nil, ErrTokenNotFound
	}

	return record.UserID, nil
}

// RevokeAll deletes every grant held by the user
func (r *RememberTokenRepository) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*database.RememberMeToken)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to revoke remember-me tokens: %w", err)
	}

	return nil
}

// DeleteExpired removes lapsed grants from the table.
// Should be run periodically (e.g., via cron job).
func (r *RememberTokenRepository) DeleteExpired(ctx context.Context) error {
	_, err := r.db.NewDelete().
		Model((*database.RememberMeToken)(nil)).
		Where("expires_at < ?", time.Now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete expired remember-me tokens: %w", err)
	}

	return nil
}
