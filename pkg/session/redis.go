package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	userIndexPrefix  = "session:user:"
	idIndexPrefix    = "session:id:"
)

// RedisStore persists sessions in Redis with per-key TTLs.
// Redis serializes concurrent commands, which gives the store the
// concurrency safety the Store contract requires.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// sessionRecord is the wire form of a Session.
type sessionRecord struct {
	CreatedAt    time.Time      `json:"created_at"`
	LastActiveAt time.Time      `json:"last_active_at"`
	ExpiresAt    time.Time      `json:"expires_at"`
	UserID       *int64         `json:"user_id,omitempty"`
	Values       map[string]any `json:"values,omitempty"`
	ID           string         `json:"id"`
	Token        string         `json:"token"`
	IP           string         `json:"ip,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
}

func toRecord(s *Session) *sessionRecord {
	return &sessionRecord{
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.LastActiveAt,
		ExpiresAt:    s.ExpiresAt,
		UserID:       s.UserID,
		Values:       s.Values,
		ID:           s.ID,
		Token:        s.Token,
		IP:           s.IP,
		UserAgent:    s.UserAgent,
	}
}

func (r *sessionRecord) toSession() *Session {
	s := &Session{
		CreatedAt:    r.CreatedAt,
		LastActiveAt: r.LastActiveAt,
		ExpiresAt:    r.ExpiresAt,
		UserID:       r.UserID,
		Values:       r.Values,
		ID:           r.ID,
		Token:        r.Token,
		IP:           r.IP,
		UserAgent:    r.UserAgent,
	}
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	return s
}

func (rs *RedisStore) Create(ctx context.Context, s *Session) error {
	return rs.write(ctx, s)
}

func (rs *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	raw, err := rs.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}

	s := rec.toSession()
	if s.IsExpired() {
		_ = rs.Delete(ctx, s.ID)
		return nil, ErrExpired
	}
	return s, nil
}

func (rs *RedisStore) Update(ctx context.Context, s *Session) error {
	// Token rotation: drop the key for the previous token, if any.
	if old, err := rs.client.Get(ctx, idIndexPrefix+s.ID).Result(); err == nil && old != s.Token {
		_ = rs.client.Del(ctx, sessionKeyPrefix+old).Err()
		_ = rs.client.SRem(ctx, rs.userIndexKey(s), old).Err()
	}
	return rs.write(ctx, s)
}

func (rs *RedisStore) Delete(ctx context.Context, id string) error {
	token, err := rs.client.Get(ctx, idIndexPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("session: redis get id index: %w", err)
	}

	pipe := rs.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+token)
	pipe.Del(ctx, idIndexPrefix+id)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("session: redis delete: %w", err)
	}
	return nil
}

func (rs *RedisStore) DeleteByUserID(ctx context.Context, userID int64) error {
	key := userIndexPrefix + fmt.Sprint(userID)
	tokens, err := rs.client.SMembers(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("session: redis user index: %w", err)
	}

	pipe := rs.client.TxPipeline()
	for _, token := range tokens {
		pipe.Del(ctx, sessionKeyPrefix+token)
	}
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: redis delete by user: %w", err)
	}
	return nil
}

func (rs *RedisStore) write(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(toRecord(s))
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return ErrExpired
	}

	pipe := rs.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+s.Token, raw, ttl)
	pipe.Set(ctx, idIndexPrefix+s.ID, s.Token, ttl)
	if s.UserID != nil {
		userKey := rs.userIndexKey(s)
		pipe.SAdd(ctx, userKey, s.Token)
		pipe.Expire(ctx, userKey, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: redis write: %w", err)
	}
	return nil
}

func (rs *RedisStore) userIndexKey(s *Session) string {
	if s.UserID == nil {
		return userIndexPrefix + "0"
	}
	return userIndexPrefix + fmt.Sprint(*s.UserID)
}
