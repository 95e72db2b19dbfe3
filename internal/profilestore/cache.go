package profilestore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/account-lifecycle/internal/domain"
)

// profileCache is a read-through Redis cache of profile records. Cache
// failures degrade to the Postgres path and are only logged.
type profileCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func newProfileCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *profileCache {
	return &profileCache{client: client, ttl: ttl, logger: logger}
}

func (c *profileCache) enabled() bool {
	return c.client != nil && c.ttl > 0
}

func (c *profileCache) get(ctx context.Context, accountID string) *domain.Profile {
	if !c.enabled() {
		return nil
	}
	payload, err := c.client.Get(ctx, profileKey(accountID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("profile cache read failed", zap.String("account_id", accountID), zap.Error(err))
		}
		return nil
	}
	var profile domain.Profile
	if err := json.Unmarshal([]byte(payload), &profile); err != nil {
		c.logger.Warn("profile cache entry corrupt", zap.String("account_id", accountID), zap.Error(err))
		return nil
	}
	return &profile
}

func (c *profileCache) set(ctx context.Context, profile *domain.Profile) {
	if !c.enabled() || profile == nil {
		return
	}
	payload, err := json.Marshal(profile)
	if err != nil {
		c.logger.Warn("profile cache marshal failed", zap.String("account_id", profile.AccountID), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, profileKey(profile.AccountID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("profile cache write failed", zap.String("account_id", profile.AccountID), zap.Error(err))
	}
}

func profileKey(accountID string) string {
	return "profile:" + accountID
}
