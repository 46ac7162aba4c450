package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const emailCooldownTTL = 2 * time.Minute

// Limiter implements a sliding-window rate limit over Redis sorted sets.
// Each (purpose, key) pair gets its own window; members are attempt
// records scored by timestamp, so expiring old members and counting the
// rest gives the number of attempts inside the window. Trim, record, and
// count run in one MULTI/EXEC transaction, so two concurrent attempts can
// never both read the same count and both get admitted.
type Limiter struct {
	client   *redis.Client
	attempts int
	window   time.Duration
}

// NewLimiter creates a limiter allowing attempts per window for every
// (purpose, key) pair.
func NewLimiter(client *redis.Client, attempts int, window time.Duration) *Limiter {
	return &Limiter{
		client:   client,
		attempts: attempts,
		window:   window,
	}
}

// Allow records an attempt and reports whether it is within the limit.
// Every attempt is recorded, rejected ones included, so hammering a
// blocked key keeps it blocked. When rejected, the second return value
// says how long until enough attempts leave the window to free a slot.
func (l *Limiter) Allow(ctx context.Context, purpose, key string) (bool, time.Duration, error) {
	redisKey := windowKey(purpose, key)
	now := time.Now()
	windowStart := now.Add(-l.window)

	var countCmd *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
		pipe.ZAdd(ctx, redisKey, redis.Z{
			Score:  float64(now.UnixNano()),
			Member: uuid.NewString(),
		})
		countCmd = pipe.ZCard(ctx, redisKey)
		pipe.Expire(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to record rate-limit attempt: %w", err)
	}

	count := countCmd.Val()
	if count > int64(l.attempts) {
		retryAfter, err := l.retryAfter(ctx, redisKey, now, count)
		if err != nil {
			return false, l.window, nil
		}
		return false, retryAfter, nil
	}

	return true, 0, nil
}

// retryAfter computes when the next attempt could fit: the window must
// shed enough members to drop below the limit, so the blocker is the
// (count-attempts)-th oldest attempt still inside it.
func (l *Limiter) retryAfter(ctx context.Context, redisKey string, now time.Time, count int64) (time.Duration, error) {
	idx := count - int64(l.attempts)
	blocker, err := l.client.ZRangeWithScores(ctx, redisKey, idx, idx).Result()
	if err != nil {
		return 0, err
	}
	if len(blocker) == 0 {
		return l.window, nil
	}

	blockedUntil := time.Unix(0, int64(blocker[0].Score)).Add(l.window)
	retryAfter := blockedUntil.Sub(now)
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return retryAfter, nil
}

// SetEmailCooldown starts the per-address cooldown for email flows
// (resend verification, forgot password).
func (l *Limiter) SetEmailCooldown(ctx context.Context, email string) error {
	err := l.client.Set(ctx, cooldownKey(email), "1", emailCooldownTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set email cooldown: %w", err)
	}
	return nil
}

// CheckEmailCooldown reports whether the address is still cooling down
func (l *Limiter) CheckEmailCooldown(ctx context.Context, email string) (bool, error) {
	n, err := l.client.Exists(ctx, cooldownKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check email cooldown: %w", err)
	}
	return n > 0, nil
}

func windowKey(purpose, key string) string {
	return fmt.Sprintf("ratelimit:%s:%s", purpose, key)
}

// cooldownKey hashes the address so raw emails never become Redis keys
func cooldownKey(email string) string {
	sum := sha256.Sum256([]byte(email))
	return fmt.Sprintf("email_cooldown:%s", hex.EncodeToString(sum[:]))
}
