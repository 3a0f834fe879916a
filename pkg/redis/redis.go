package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tirthgodhni98/giftcard-api/pkg/config"
	"github.com/tirthgodhni98/giftcard-api/pkg/logger"
	"github.com/tirthgodhni98/giftcard-api/pkg/resilience"
	"go.uber.org/zap"
)

// Client wraps the Redis client
type Client struct {
	*redis.Client
}

// NewRedisClient creates a new Redis client and waits for it to answer a
// PING, retrying transient failures.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	_, err := resilience.Retry(ctx, ConnectRetryConfig(), func(ctx context.Context) (interface{}, error) {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
			logger.Warn("redis not reachable yet", zap.String("addr", cfg.RedisAddr()), zap.Error(pingErr))
			return nil, pingErr
		}
		return nil, nil
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}

	return &Client{Client: client}, nil
}

// ConnectRetryConfig is the retry policy used while connecting
func ConnectRetryConfig() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.InitialBackoff = 200 * time.Millisecond
	cfg.MaxBackoff = 2 * time.Second
	cfg.MaxAttempts = 4
	cfg.RetryableChecker = isRedisRetryable
	return cfg
}

// Close closes the Redis client
func (c *Client) Close() error {
	return c.Client.Close()
}

// Errors that will not go away by asking again
var nonRetryableRedisErrors = []string{
	"wrongtype",
	"err syntax",
	"err invalid",
	"noauth",
	"wrongpass",
	"noperm",
	"err unknown command",
	"execabort",
	"noscript",
}

// isRedisRetryable treats unknown errors as transient.
func isRedisRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, redis.Nil) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range nonRetryableRedisErrors {
		if strings.HasPrefix(msg, fragment) {
			return false
		}
	}
	return true
}
