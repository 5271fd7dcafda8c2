// middleware/rate_limiter.go
package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/HSouheill/nestfire_backend/models"
)

type endpointLimit struct {
	limit rate.Limit
	burst int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client IP and route. Credential endpoints get
// stricter limits than the rest of the API.
type RateLimiter struct {
	visitors       map[string]*visitor
	blocked        map[string]time.Time
	mu             sync.Mutex
	defaultLimit   endpointLimit
	blockDuration  time.Duration
	endpointLimits map[string]endpointLimit
	now            func() time.Time
	stop           chan struct{}
	stopOnce       sync.Once
}

func NewRateLimiter() *RateLimiter {
	r := &RateLimiter{
		visitors:      make(map[string]*visitor),
		blocked:       make(map[string]time.Time),
		defaultLimit:  endpointLimit{limit: rate.Every(100 * time.Millisecond), burst: 20}, // 10 requests per second
		blockDuration: time.Minute,
		endpointLimits: map[string]endpointLimit{
			// brute force protection
			"/api/auth/login":           {limit: rate.Every(2 * time.Second), burst: 5},
			"/api/auth/register":        {limit: rate.Every(500 * time.Millisecond), burst: 5},
			"/api/auth/forgot-password": {limit: rate.Every(10 * time.Second), burst: 3},
			"/api/auth/reset-password":  {limit: rate.Every(2 * time.Second), burst: 5},
		},
		now:  time.Now,
		stop: make(chan struct{}),
	}
	go r.cleanup(10 * time.Minute)
	return r
}

// SetLimit overrides the limit of one route path
func (r *RateLimiter) SetLimit(path string, every time.Duration, burst int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpointLimits[path] = endpointLimit{limit: rate.Every(every), burst: burst}
}

// Stop ends the cleanup goroutine
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *RateLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			now := r.now()
			for key, until := range r.blocked {
				if now.After(until) {
					delete(r.blocked, key)
				}
			}
			for key, v := range r.visitors {
				if now.Sub(v.lastSeen) > every {
					delete(r.visitors, key)
				}
			}
			r.mu.Unlock()
		}
	}
}

func (r *RateLimiter) RateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// static media is not throttled
			if strings.HasPrefix(c.Request().URL.Path, "/uploads/") {
				return next(c)
			}

			path := c.Path()
			key := c.RealIP() + " " + path
			if retryAt, ok := r.allow(key, path); !ok {
				c.Response().Header().Set("Retry-After", retryAt.UTC().Format(http.TimeFormat))
				return c.JSON(http.StatusTooManyRequests, models.Response{
					Status:  http.StatusTooManyRequests,
					Message: "Too many requests",
				})
			}
			return next(c)
		}
	}
}

// allow reports whether the request may pass, or when the client may retry
func (r *RateLimiter) allow(key, path string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if until, blocked := r.blocked[key]; blocked {
		if now.Before(until) {
			return until, false
		}
		delete(r.blocked, key)
		delete(r.visitors, key)
	}

	v, ok := r.visitors[key]
	if !ok {
		l, found := r.endpointLimits[path]
		if !found {
			l = r.defaultLimit
		}
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		r.visitors[key] = v
	}
	v.lastSeen = now
	if !v.limiter.AllowN(now, 1) {
		until := now.Add(r.blockDuration)
		r.blocked[key] = until
		return until, false
	}
	return time.Time{}, true
}
