package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLoginLocked is returned while an email has too many recent failures.
var ErrLoginLocked = errors.New("too many failed login attempts")

// LoginLimiter counts failed logins per email in Redis.
type LoginLimiter struct {
	client      redis.UniversalClient
	maxAttempts int
	window      time.Duration
}

// NewLoginLimiter creates a limiter. maxAttempts <= 0 disables it.
func NewLoginLimiter(client redis.UniversalClient, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{client: client, maxAttempts: maxAttempts, window: window}
}

func (l *LoginLimiter) enabled() bool {
	return l != nil && l.client != nil && l.maxAttempts > 0
}

func loginKey(email string) string {
	return "login:fail:" + strings.ToLower(strings.TrimSpace(email))
}

// Check returns ErrLoginLocked once the failure budget is spent.
func (l *LoginLimiter) Check(ctx context.Context, email string) error {
	if !l.enabled() {
		return nil
	}
	count, err := l.client.Get(ctx, loginKey(email)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("login limiter: %w", err)
	}
	if count >= l.maxAttempts {
		return ErrLoginLocked
	}
	return nil
}

// RecordFailure increments the counter, starting the window on first failure.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) error {
	if !l.enabled() {
		return nil
	}
	key := loginKey(email)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("login limiter: %w", err)
	}
	if count == 1 && l.window > 0 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("login limiter: %w", err)
		}
	}
	return nil
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	if !l.enabled() {
		return nil
	}
	if err := l.client.Del(ctx, loginKey(email)).Err(); err != nil {
		return fmt.Errorf("login limiter: %w", err)
	}
	return nil
}
