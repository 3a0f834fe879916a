package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/tirthgodhni98/giftcard-api/pkg/config"
)

func TestRedisConfig_RedisAddr(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.RedisConfig
		expected string
	}{
		{"default localhost", config.RedisConfig{Host: "localhost", Port: "6379"}, "localhost:6379"},
		{"custom host and port", config.RedisConfig{Host: "redis.example.com", Port: "6380"}, "redis.example.com:6380"},
		{"empty values", config.RedisConfig{}, ":"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.cfg.RedisAddr())
		})
	}
}

func TestIsRedisRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"context canceled", context.Canceled, false},
		{"context deadline exceeded", context.DeadlineExceeded, false},
		{"wrapped deadline", fmt.Errorf("ping: %w", context.DeadlineExceeded), false},
		{"redis nil", goredis.Nil, false},
		{"connection refused", errors.New("dial tcp 127.0.0.1:6379: connection refused"), true},
		{"timeout", errors.New("i/o timeout"), true},
		{"loading", errors.New("LOADING Redis is loading the dataset in memory"), true},
		{"readonly", errors.New("READONLY You can't write against a read only replica"), true},
		{"unknown error", errors.New("some unexpected failure"), true},
		{"wrongtype", errors.New("WRONGTYPE Operation against a key holding the wrong kind of value"), false},
		{"syntax error", errors.New("ERR syntax error"), false},
		{"noauth", errors.New("NOAUTH Authentication required"), false},
		{"wrongpass", errors.New("WRONGPASS invalid username-password pair"), false},
		{"unknown command", errors.New("ERR unknown command 'FOO'"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, isRedisRetryable(tc.err))
		})
	}
}

func TestConnectRetryConfig(t *testing.T) {
	cfg := ConnectRetryConfig()

	assert.Equal(t, 4, cfg.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.InitialBackoff)
	assert.Equal(t, 2*time.Second, cfg.MaxBackoff)
	if assert.NotNil(t, cfg.RetryableChecker) {
		assert.False(t, cfg.RetryableChecker(goredis.Nil))
		assert.True(t, cfg.RetryableChecker(errors.New("connection reset by peer")))
	}
}
