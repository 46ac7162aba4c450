package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const passwordResetTokenTTL = 1 * time.Hour

// ResetTokenStore persists single-use password reset tokens
type ResetTokenStore interface {
	Store(ctx context.Context, userID uuid.UUID, token string) error
	Lookup(ctx context.Context, token string) (uuid.UUID, error)
	Delete(ctx context.Context, token string) error
}

// PasswordResetRepository keeps reset tokens in Redis; TTL does the expiry.
// Keys are derived from the token hash, never the token itself.
type PasswordResetRepository struct {
	client *redis.Client
}

var _ ResetTokenStore = (*PasswordResetRepository)(nil)

func NewPasswordResetRepository(client *redis.Client) *PasswordResetRepository {
	return &PasswordResetRepository{client: client}
}

// Store saves a password reset token with a 1-hour TTL
func (r *PasswordResetRepository) Store(ctx context.Context, userID uuid.UUID, token string) error {
	key := passwordResetKey(token)

	err := r.client.Set(ctx, key, userID.String(), passwordResetTokenTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to store password reset token: %w", err)
	}

	return nil
}

// Lookup returns the user ID associated with a reset token
func (r *PasswordResetRepository) Lookup(ctx context.Context, token string) (uuid.UUID, error) {
	key := passwordResetKey(token)

	userIDStr, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return uuid.Nil, ErrPasswordResetTokenNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get password reset token: %w", err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse user ID: %w", err)
	}

	return userID, nil
}

// Delete removes a used password reset token
func (r *PasswordResetRepository) Delete(ctx context.Context, token string) error {
	key := passwordResetKey(token)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete password reset token: %w", err)
	}

	return nil
}

func passwordResetKey(token string) string {
	return fmt.Sprintf("password_reset:%s", HashTokenSecret(token))
}
