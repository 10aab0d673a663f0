package token

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	blacklistKeyPrefix = "token:blacklist:"
	revokedKeyPrefix   = "token:revoked_user:"
)

// RedisBlacklist keeps revocations in Redis. Entries carry their own
// TTL, so expired ones vanish without a sweep.
type RedisBlacklist struct {
	client       redis.UniversalClient
	watermarkTTL time.Duration
}

// NewRedisBlacklist wraps a Redis client. watermarkTTL bounds how long
// user revocation marks are kept; it should be at least the longest
// token lifetime.
func NewRedisBlacklist(client redis.UniversalClient, watermarkTTL time.Duration) *RedisBlacklist {
	if watermarkTTL <= 0 {
		watermarkTTL = DefaultRefreshTTL
	}
	return &RedisBlacklist{client: client, watermarkTTL: watermarkTTL}
}

func (b *RedisBlacklist) Add(ctx context.Context, e Entry) (bool, error) {
	ttl := time.Until(e.ExpiresAt)
	if ttl <= 0 {
		// Already expired, nothing to block. Report it as added so the
		// caller's rotation proceeds.
		return true, nil
	}
	return b.client.SetNX(ctx, blacklistKeyPrefix+e.JTI, e.Reason, ttl).Result()
}

func (b *RedisBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (b *RedisBlacklist) RevokeUser(ctx context.Context, userID int64, revokedAt time.Time) error {
	key := fmt.Sprintf("%s%d", revokedKeyPrefix, userID)

	// Keep the later watermark if one already exists.
	current, err := b.client.Get(ctx, key).Result()
	if err == nil {
		if ns, perr := strconv.ParseInt(current, 10, 64); perr == nil {
			if existing := time.Unix(0, ns); existing.After(revokedAt) {
				return nil
			}
		}
	} else if err != redis.Nil {
		return err
	}

	return b.client.Set(ctx, key, strconv.FormatInt(revokedAt.UnixNano(), 10), b.watermarkTTL).Err()
}

func (b *RedisBlacklist) IsUserRevoked(ctx context.Context, userID int64, issuedAt time.Time) (bool, error) {
	key := fmt.Sprintf("%s%d", revokedKeyPrefix, userID)

	val, err := b.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	ns, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, err
	}
	return issuedAt.Before(time.Unix(0, ns)), nil
}

// PruneExpired is a no-op: Redis entries expire through their own TTL.
func (b *RedisBlacklist) PruneExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
