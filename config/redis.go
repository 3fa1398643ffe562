package config

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// InitRedis connects the client shared by the cache, the attempt locks, the
// status feed and the anonymize stream.
func InitRedis(ctx context.Context) error {
	val := os.Getenv("REDIS_ADDR")
	if val == "" {
		val = os.Getenv("REDIS_URI")
	}
	if val == "" {
		val = os.Getenv("REDIS_URL")
	}
	if val == "" {
		return errors.New("REDIS_ADDR (or REDIS_URI/REDIS_URL) environment variable is not set")
	}

	var opt *redis.Options
	if strings.HasPrefix(val, "redis://") || strings.HasPrefix(val, "rediss://") {
		parsed, err := redis.ParseURL(val)
		if err != nil {
			return err
		}
		opt = parsed
	} else {
		opt = &redis.Options{Addr: val, Password: os.Getenv("REDIS_PASSWORD")}
	}
	// XReadGroup blocks for 5s; keep reads from timing out first
	opt.ReadTimeout = 10 * time.Second

	client := redis.NewClient(opt)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return err
	}

	RedisClient = client
	return nil
}
