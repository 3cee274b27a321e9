package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ProfileKeyPrefix  = "profile:%d"
	TrendingKeyPrefix = "hashtags:trending:%d"
	BlacklistPrefix   = "blacklist:%s"
	ActiveUserPrefix  = "user:active:%d"
)

const (
	ProfileTTL  = 5 * time.Minute
	TrendingTTL = time.Minute
	// Bounds how long a deactivation can lag on another instance.
	ActiveUserTTL = 30 * time.Second
)

// ProfileKey caches a user profile with its follower/following/tweet counts.
func ProfileKey(userID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

func TrendingKey(limit int) string {
	return fmt.Sprintf(TrendingKeyPrefix, limit)
}

// ActiveUserKey caches whether a token's subject may still act.
func ActiveUserKey(userID uint) string {
	return fmt.Sprintf(ActiveUserPrefix, userID)
}

// BlacklistKey marks a revoked token by its jti.
func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistPrefix, jti)
}

// Invalidate deletes keys, ignoring a nil client and Redis errors.
func Invalidate(ctx context.Context, rdb *redis.Client, keys ...string) {
	if rdb == nil || len(keys) == 0 {
		return
	}
	rdb.Del(ctx, keys...)
}

// InvalidateProfiles drops cached profiles for every given user.
func InvalidateProfiles(ctx context.Context, rdb *redis.Client, userIDs ...uint) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, ProfileKey(id))
	}
	Invalidate(ctx, rdb, keys...)
}
