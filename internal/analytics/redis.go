// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package analytics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "panoview:views:"

// RedisStore keeps a hash of day counters per video plus a total key, so
// several server instances can share one set of counters.
type RedisStore struct {
	client *redis.Client
}

// OpenRedis connects and pings the server.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis analytics: connect %s: %w", cfg.Addr, err)
	}
	return &RedisStore{client: client}, nil
}

func videoKey(video string) string { return redisPrefix + "video:" + video }

const totalKey = redisPrefix + "total"

func (s *RedisStore) Track(ctx context.Context, video string, at time.Time) error {
	if err := checkVideo(video); err != nil {
		return err
	}
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HIncrBy(ctx, videoKey(video), Day(at), 1)
		p.Incr(ctx, totalKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis analytics: track: %w", err)
	}
	return nil
}

func (s *RedisStore) Stats(ctx context.Context, video string) (Stats, error) {
	fields, err := s.client.HGetAll(ctx, videoKey(video)).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("redis analytics: stats: %w", err)
	}
	st := emptyStats(video)
	for day, raw := range fields {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Stats{}, fmt.Errorf("redis analytics: counter %s/%s: %w", video, day, err)
		}
		st.DailyViews[day] = n
		st.TotalViews += n
	}
	return st, nil
}

func (s *RedisStore) Total(ctx context.Context) (int64, error) {
	n, err := s.client.Get(ctx, totalKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis analytics: total: %w", err)
	}
	return n, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
