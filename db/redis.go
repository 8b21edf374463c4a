package db

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"xinji/config"
)

// OpenRedis 는 락/쿼터/레이트리밋/인증코드에 쓰는 Redis 클라이언트를 만든다.
// REDIS_ADDR, REDIS_PASSWORD 환경변수가 설정 파일보다 우선한다.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = cfg.Addr
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	config.Logger.Infof("Redis connected (addr=%s)", addr)
	return rdb, nil
}
