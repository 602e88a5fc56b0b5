package database

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// InitRedis initializes Redis client with config. It returns nil when Redis
// is unreachable; callers treat a nil client as "no token blacklist, no
// idempotency replay".
func InitRedis(ctx context.Context) *redis.Client {
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	addr := viper.GetString("redis.host") + ":" + viper.GetString("redis.port")
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		zap.L().Warn("Redis connection failed, continuing without Redis", zap.String("addr", addr), zap.Error(err))
		rdb.Close()
		return nil
	}

	zap.L().Info("Redis connection established", zap.String("addr", addr))
	return rdb
}
