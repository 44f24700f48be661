package businessflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gridops/loadshed-review/config"
	"github.com/redis/go-redis/v9"
)

// redisKey namespaces a cache key with the configured prefix
func redisKey(cfg config.CacheConfig, parts ...string) string {
	return cfg.RedisPrefix + strings.Join(parts, ":")
}

// digest returns a stable short hash of a request value
func digest(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:16]), nil
}

// cachedJSON returns the cached value of key, computing and storing it on a miss.
// Cache failures are logged and fall back to compute; a nil client always computes.
func cachedJSON[T any](ctx context.Context, rc *redis.Client, key string, ttl time.Duration, compute func() (T, error)) (T, bool, error) {
	if rc != nil {
		if data, err := rc.Get(ctx, key).Bytes(); err == nil {
			var v T
			decodeErr := json.Unmarshal(data, &v)
			if decodeErr == nil {
				analyticsCache.WithLabelValues("hit").Inc()
				return v, true, nil
			}
			log.Printf("Analytics cache decode failed for %s: %v", key, decodeErr)
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("Analytics cache read failed: %v", err)
		}
		analyticsCache.WithLabelValues("miss").Inc()
	}

	v, err := compute()
	if err != nil {
		return v, false, err
	}

	if rc != nil {
		if data, err := json.Marshal(v); err == nil {
			if err := rc.Set(ctx, key, data, ttl).Err(); err != nil {
				log.Printf("Analytics cache write failed: %v", err)
			}
		}
	}
	return v, false, nil
}
