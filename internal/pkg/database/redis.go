package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisConfig configures the session cache connection.
type RedisConfig struct {
	URL      string
	PoolSize int           // default 4
	Timeout  time.Duration // dial, read and write timeout (default 3s)
}

// NewRedis connects to the session cache and pings it.
// An empty URL returns a nil client: sessions then live in process memory.
func NewRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.URL == "" {
		log.Debug().Msg("REDIS_URL not set, sessions stay in memory")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	} else {
		opt.PoolSize = 4
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	opt.DialTimeout = timeout
	opt.ReadTimeout = timeout
	opt.WriteTimeout = timeout

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	log.Debug().Str("addr", opt.Addr).Int("pool_size", opt.PoolSize).Msg("Session cache connected")
	return client, nil
}
