package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// historySize bounds the per-user activity list kept in Redis.
const historySize = 10

// Entry is a single recorded request for a user.
type Entry struct {
	Method string    `json:"method"`
	Path   string    `json:"path"`
	At     time.Time `json:"at"`
}

// Recorder keeps the most recent requests per user in a capped Redis list.
type Recorder struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRecorder(client *redis.Client) *Recorder {
	return &Recorder{
		client: client,
		ttl:    30 * 24 * time.Hour,
	}
}

func activityKey(userID uuid.UUID) string {
	return fmt.Sprintf("activity:%s", userID)
}

// Record prepends the entry and trims the list to the history size.
func (rec *Recorder) Record(ctx context.Context, userID uuid.UUID, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal activity entry: %w", err)
	}

	key := activityKey(userID)

	pipe := rec.client.Pipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, historySize-1)
	pipe.Expire(ctx, key, rec.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}

	return nil
}

// List returns the user's recent activity, newest first.
func (rec *Recorder) List(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	raw, err := rec.client.LRange(ctx, activityKey(userID), 0, historySize-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			// Skip entries written by an older format rather than failing the read
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
