package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedLimiter keeps one token bucket per key (client IP or user id)
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	stop     chan struct{}
	once     sync.Once
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyedLimiter allows perMinute requests per key with the given burst.
// Buckets idle for longer than idleTTL are evicted in the background.
func NewKeyedLimiter(perMinute, burst int, idleTTL time.Duration) *KeyedLimiter {
	if burst <= 0 {
		burst = 1
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	l := &KeyedLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		idleTTL:  idleTTL,
		stop:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Allow consumes one token for key
func (l *KeyedLimiter) Allow(key string) bool {
	return l.get(key, time.Now()).Allow()
}

// RetryAfter estimates how long key must wait for its next token
func (l *KeyedLimiter) RetryAfter(key string) time.Duration {
	now := time.Now()
	r := l.get(key, now).ReserveN(now, 1)
	if !r.OK() {
		return time.Minute
	}
	d := r.DelayFrom(now)
	r.CancelAt(now)
	return d
}

func (l *KeyedLimiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// Stop ends the cleanup goroutine
func (l *KeyedLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *KeyedLimiter) cleanup() {
	ticker := time.NewTicker(l.idleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictIdle(time.Now())
		case <-l.stop:
			return
		}
	}
}

func (l *KeyedLimiter) evictIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.limiters {
		if now.Sub(e.lastSeen) > l.idleTTL {
			delete(l.limiters, key)
		}
	}
}
