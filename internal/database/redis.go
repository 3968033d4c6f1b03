package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisTimeout = 3 * time.Second

// ConnectRedis opens the client used for sessions and activity events. timeout
// bounds dialing, every command and the startup ping; zero means 3s.
func ConnectRedis(ctx context.Context, url string, timeout time.Duration) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url must not be empty")
	}
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}

	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	options.DialTimeout = timeout
	options.ReadTimeout = timeout
	options.WriteTimeout = timeout

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to reach redis at %s: %w", options.Addr, err)
	}

	return client, nil
}
