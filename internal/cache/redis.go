package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/geocoder89/libraryhub/internal/domain/user"
	"github.com/redis/go-redis/v9"
)

const userKeyPrefix = "user:"

// RedisUsers is the shared-cache adapter for multi-instance
// deployments. Cache failures degrade to store lookups, so every
// redis error is treated as a miss.
type RedisUsers struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisUsers(rdb *redis.Client, ttl time.Duration) *RedisUsers {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &RedisUsers{rdb: rdb, ttl: ttl}
}

// NewRedisClient dials redis with conservative timeouts.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func (c *RedisUsers) Get(ctx context.Context, id string) (user.Public, bool) {
	raw, err := c.rdb.Get(ctx, userKeyPrefix+id).Bytes()

	if err != nil {
		return user.Public{}, false
	}

	var u user.Public

	if err := json.Unmarshal(raw, &u); err != nil {
		return user.Public{}, false
	}

	return u, true
}

func (c *RedisUsers) Set(ctx context.Context, u user.Public) {
	raw, err := json.Marshal(u)

	if err != nil {
		return
	}

	_ = c.rdb.Set(ctx, userKeyPrefix+u.ID, raw, c.ttl).Err()
}

func (c *RedisUsers) Delete(ctx context.Context, id string) {
	_ = c.rdb.Del(ctx, userKeyPrefix+id).Err()
}
