package governance

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Lllllllleong/architecturereview/internal/models"
)

// DefaultCacheTTL is how long a match result stays cached.
const DefaultCacheTTL = 24 * time.Hour

// Cache stores match results keyed by CacheKey.
type Cache interface {
	Get(ctx context.Context, key string) ([]models.GovernanceViolation, bool, error)
	Set(ctx context.Context, key string, violations []models.GovernanceViolation) error
}

// CacheKey identifies a policy set and context text regardless of the order
// the policy IDs were given in.
func CacheKey(policyIDs []string, contextText string) string {
	ids := slices.Clone(policyIDs)
	slices.Sort(ids)
	h := sha256.New()
	h.Write([]byte(strings.Join(ids, ",")))
	h.Write([]byte{0})
	h.Write([]byte(contextText))
	return "governance:" + hex.EncodeToString(h.Sum(nil))
}

// RedisCache is a Cache backed by Redis string keys holding JSON.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// DialRedis connects to addr and checks the server is reachable.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:                  addr,
		ContextTimeoutEnabled: true,
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]models.GovernanceViolation, bool, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var violations []models.GovernanceViolation
	if err := json.Unmarshal([]byte(raw), &violations); err != nil {
		return nil, false, err
	}
	return violations, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, violations []models.GovernanceViolation) error {
	if violations == nil {
		violations = []models.GovernanceViolation{}
	}
	raw, err := json.Marshal(violations)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}
