package core

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// auditKey holds the submission audit trail as a capped redis list,
// newest first.
const auditKey = "submission_audit"

// AuditEntry records one submission for anti-cheat review. The raw
// candidate is kept verbatim.
type AuditEntry struct {
	UserID    string    `json:"user_id"`
	TaskID    string    `json:"task_id"`
	Candidate string    `json:"candidate"`
	Outcome   string    `json:"outcome"`
	At        time.Time `json:"at"`
}

// AuditLog records every submission regardless of outcome.
type AuditLog interface {
	Record(ctx context.Context, e AuditEntry) error
	Recent(ctx context.Context, n int) ([]AuditEntry, error)
}

// NewRedisClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0).
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// RedisAuditLog implements AuditLog as an LPUSH/LTRIM capped list.
type RedisAuditLog struct {
	client *redis.Client
	max    int64
}

// NewRedisAuditLog wraps a redis.Client; maxEntries bounds retention
// (older entries are dropped, anti-cheat review is a rolling window).
func NewRedisAuditLog(client *redis.Client, maxEntries int) *RedisAuditLog {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &RedisAuditLog{client: client, max: int64(maxEntries)}
}

func (l *RedisAuditLog) Record(ctx context.Context, e AuditEntry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pipe := l.client.TxPipeline()
	pipe.LPush(ctx, auditKey, raw)
	pipe.LTrim(ctx, auditKey, 0, l.max-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (l *RedisAuditLog) Recent(ctx context.Context, n int) ([]AuditEntry, error) {
	if n <= 0 {
		n = 100
	}
	vals, err := l.client.LRange(ctx, auditKey, 0, int64(n)-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]AuditEntry, 0, len(vals))
	for _, v := range vals {
		var e AuditEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			// Skip malformed entries rather than failing the whole listing.
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
