package data

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "revoked:"

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// RevokeToken denylists a token ID until the token's natural expiry, after
// which the key is pointless and allowed to lapse.
func RevokeToken(ctx context.Context, rdb *redis.Client, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return rdb.Set(ctx, revokedPrefix+jti, "1", ttl).Err()
}

// TokenRevoked reports whether a token ID was revoked by logout.
func TokenRevoked(ctx context.Context, rdb *redis.Client, jti string) (bool, error) {
	n, err := rdb.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
