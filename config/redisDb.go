package config

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

func GetRedisDB() *redis.Client {
	return rdb
}

// GetRedisLock returns the lock client used for per-scope sync locks, or nil
// before ConnectRedisWithRetry has succeeded.
func GetRedisLock() *redislock.Client {
	return locker
}

var ErrRedisNotConnected = errors.New("redis not connected")

// GetRedisValue reads a string key. A missing key yields ok=false and no error.
func GetRedisValue(ctx context.Context, key string) (string, bool, error) {
	if rdb == nil {
		return "", false, ErrRedisNotConnected
	}
	val, err := rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func redisOptions() *redis.Options {
	return &redis.Options{
		Addr:     stringFromEnv("REDIS_ADDRESS", "localhost:6379"),
		Password: stringFromEnv("REDIS_PASSWORD", ""),
		DB:       intFromEnv("REDIS_DB", 0),
		PoolSize: intFromEnv("REDIS_POOL_SIZE", 100),
	}
}

// ConnectRedisWithRetry connects the Redis and lock clients, retrying until
// the server answers PING. Call it after the HTTP listener is up.
func ConnectRedisWithRetry() {
	opts := redisOptions()
	logger := GetLogger().WithField("addr", opts.Addr)

	for attempt := 1; ; attempt++ {
		client := redis.NewClient(opts)
		err := client.Ping(context.Background()).Err()
		if err == nil {
			rdb = client
			locker = redislock.New(client)
			logger.WithField("attempt", attempt).Info("connected to redis")
			return
		}
		_ = client.Close()
		wait := retryDelay(attempt)
		logger.WithFields(logrus.Fields{"attempt": attempt, "retry_in": wait.String()}).Warnf("redis not reachable: %v", err)
		time.Sleep(wait)
	}
}
