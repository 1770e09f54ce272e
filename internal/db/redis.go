package db

import (
	"context"

	"MapLayerStore/internal/logger"

	"github.com/redis/go-redis/v9"
)

// RDB stays nil when no address is configured; callers treat that as "no cache".
var RDB *redis.Client

func InitRedis(addr string) {
	if addr == "" {
		logger.Warn("redis_disabled", nil)
		return
	}
	RDB = redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

func PingRedis(ctx context.Context) error {
	if RDB == nil {
		return nil
	}
	return RDB.Ping(ctx).Err()
}

func CloseRedis() {
	if RDB != nil {
		_ = RDB.Close()
		RDB = nil
	}
}
