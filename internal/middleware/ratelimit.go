package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/estatehub/pkg/errors"
	"github.com/charlesng35/estatehub/pkg/response"
)

// RateStore counts hits per key inside a fixed window.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, resetIn time.Duration, err error)
}

// MemoryRateStore is a process-local RateStore for single-instance deployments.
type MemoryRateStore struct {
	mu    sync.Mutex
	data  map[string]*rateWindow
	clock func() time.Time
	ops   int
}

type rateWindow struct {
	count int
	ends  time.Time
}

func NewMemoryRateStore() *MemoryRateStore {
	return &MemoryRateStore{data: make(map[string]*rateWindow), clock: time.Now}
}

func (s *MemoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// sweep expired windows every 1024 increments instead of running a ticker goroutine
	s.ops++
	if s.ops%1024 == 0 {
		for k, w := range s.data {
			if now.After(w.ends) {
				delete(s.data, k)
			}
		}
	}

	w, ok := s.data[key]
	if !ok || now.After(w.ends) {
		w = &rateWindow{ends: now.Add(window)}
		s.data[key] = w
	}
	w.count++
	return w.count, w.ends.Sub(now), nil
}

type prefixedStore struct {
	store  RateStore
	prefix string
}

func (p prefixedStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	return p.store.Increment(ctx, p.prefix+key, window)
}

// WithKeyPrefix namespaces every key so several limiters can share one store.
func WithKeyPrefix(store RateStore, prefix string) RateStore {
	if store == nil || prefix == "" {
		return store
	}
	return prefixedStore{store: store, prefix: prefix}
}

// RateLimit limits requests per client IP and route within a fixed window.
// Store errors fail open.
func RateLimit(store RateStore, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		key := c.ClientIP() + "|" + c.FullPath()
		count, resetIn, err := store.Increment(c.Request.Context(), key, window)
		if err != nil {
			c.Next()
			return
		}

		remaining := maxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(resetIn.Seconds())))

		if count > maxRequests {
			response.Error(c, errors.ErrRateLimit)
			c.Abort()
			return
		}
		c.Next()
	}
}
