// Package redis stores sessions in Redis, letting key expiry retire them.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mealtracker/internal/domain"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// NewClient parses url, connects and pings.
func NewClient(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}

// SessionRepo implements domain.SessionRepository on Redis.
type SessionRepo struct {
	client goredis.Cmdable
	now    func() time.Time
}

var _ domain.SessionRepository = (*SessionRepo)(nil)

// NewSessionRepo creates a SessionRepo backed by client.
func NewSessionRepo(client goredis.Cmdable) *SessionRepo {
	return &SessionRepo{client: client, now: time.Now}
}

type sessionRecord struct {
	UserID    int64     `json:"user_id"`
	UserAgent string    `json:"user_agent"`
	IP        string    `json:"ip"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func key(tokenHash string) string {
	return keyPrefix + tokenHash
}

// Create stores the session with a TTL matching its expiry.
func (r *SessionRepo) Create(ctx context.Context, userID int64, tokenHash, userAgent, ip string, expiresAt time.Time) error {
	now := r.now()
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(sessionRecord{
		UserID:    userID,
		UserAgent: userAgent,
		IP:        ip,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: now.UTC(),
	})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key(tokenHash), b, ttl).Err()
}

// GetByToken retrieves a session by token digest.
func (r *SessionRepo) GetByToken(ctx context.Context, tokenHash string) (*domain.Session, error) {
	b, err := r.client.Get(ctx, key(tokenHash)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec sessionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &domain.Session{
		TokenHash: tokenHash,
		UserID:    rec.UserID,
		UserAgent: rec.UserAgent,
		IP:        rec.IP,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, tokenHash string) error {
	return r.client.Del(ctx, key(tokenHash)).Err()
}

// DeleteExpired is a no-op: Redis evicts sessions when their TTL lapses.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}
