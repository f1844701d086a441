package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/newzealection/new-zealection/internal/web/utils"
)

// RateLimiter implements a simple in-memory sliding window rate limiter
type RateLimiter struct {
	requests map[string][]time.Time
	mutex    sync.RWMutex
	window   time.Duration
	limit    int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		window:   window,
		limit:    limit,
	}

	go rl.cleanup()

	return rl
}

// Allow checks if a request should be allowed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	requests := rl.requests[key]

	var validRequests []time.Time
	for _, req := range requests {
		if req.After(cutoff) {
			validRequests = append(validRequests, req)
		}
	}

	if len(validRequests) >= rl.limit {
		rl.requests[key] = validRequests
		return false
	}

	validRequests = append(validRequests, now)
	rl.requests[key] = validRequests
	return true
}

// cleanup removes stale entries every minute
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mutex.Lock()
		cutoff := time.Now().Add(-rl.window * 2)

		for key, requests := range rl.requests {
			var validRequests []time.Time
			for _, req := range requests {
				if req.After(cutoff) {
					validRequests = append(validRequests, req)
				}
			}

			if len(validRequests) == 0 {
				delete(rl.requests, key)
			} else {
				rl.requests[key] = validRequests
			}
		}
		rl.mutex.Unlock()
	}
}

// RateLimit middleware limits requests per IP address
func RateLimit(limit int, window time.Duration) fiber.Handler {
	limiter := NewRateLimiter(limit, window)

	return func(c *fiber.Ctx) error {
		ip := utils.GetIPAddress(c)

		if !limiter.Allow(ip) {
			slog.Warn("Rate limit exceeded",
				slog.String("ip", ip),
				slog.String("path", c.Path()),
				slog.String("method", c.Method()),
				slog.Int("limit", limit),
				slog.Duration("window", window))

			return utils.SendTooManyRequests(c, "Too many requests. Please try again later.")
		}

		return c.Next()
	}
}

// AuthRateLimit limits authentication attempts
func AuthRateLimit() fiber.Handler {
	return RateLimit(5, time.Minute)
}

// APIRateLimit limits general API requests
func APIRateLimit() fiber.Handler {
	return RateLimit(100, time.Minute)
}

// RollRateLimit limits roll attempts beyond the cooldown check itself
func RollRateLimit() fiber.Handler {
	return RateLimit(10, time.Minute)
}
