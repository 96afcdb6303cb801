// Package ratelimit implements a fixed-window per-client request counter
// kept in process memory. Counters reset when their window elapses;
// horizontal scaling multiplies the effective limit by the instance count,
// which is an accepted limitation.
package ratelimit

import (
	"math"
	"net/http"
	"sync"
	"time"
)

// Policy names a window length and the number of requests it admits.
// Name namespaces the counters so a client exhausting one policy does
// not consume another policy's budget.
type Policy struct {
	Name        string
	Window      time.Duration
	MaxRequests int
}

// The two policies in use. Selection is by route prefix, decided by the
// caller, not by the limiter.
var (
	AuthPolicy = Policy{Name: "auth", Window: 15 * time.Minute, MaxRequests: 5}
	APIPolicy  = Policy{Name: "api", Window: 15 * time.Minute, MaxRequests: 100}
)

// Result reports the outcome of one limiter check.
type Result struct {
	Limited    bool
	RetryAfter int // seconds until the window resets; set when Limited
	Remaining  int
	ResetTime  time.Time
}

// Checker is the limiter contract the access gate depends on, so an
// in-memory map can be swapped for a networked counter without touching
// callers.
type Checker interface {
	Check(key string, p Policy) Result
	Reset()
}

type entry struct {
	count     int
	resetTime time.Time
}

// Limiter is the in-memory fixed-window implementation of Checker.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	clock   func() time.Time
}

// New creates an empty Limiter.
func New() *Limiter {
	return &Limiter{
		entries: make(map[string]*entry),
		clock:   time.Now,
	}
}

// Check counts one request for key under p. Counters live in a bucket
// per (policy, key) pair. Elapsed entries across all buckets are swept
// opportunistically on every call; there is no background timer.
func (l *Limiter) Check(key string, p Policy) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()

	for k, e := range l.entries {
		if e.resetTime.Before(now) {
			delete(l.entries, k)
		}
	}

	bucket := p.Name + ":" + key
	e, ok := l.entries[bucket]
	if !ok || e.resetTime.Before(now) {
		e = &entry{resetTime: now.Add(p.Window)}
		l.entries[bucket] = e
	}

	e.count++

	if e.count > p.MaxRequests {
		return Result{
			Limited:    true,
			RetryAfter: int(math.Ceil(e.resetTime.Sub(now).Seconds())),
			ResetTime:  e.resetTime,
		}
	}
	return Result{
		Remaining: p.MaxRequests - e.count,
		ResetTime: e.resetTime,
	}
}

// Reset discards all tracked windows.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]*entry)
}

// ClientKey derives the per-client bucket key from forwarded-IP headers.
// Requests with neither header share the "unknown" bucket; this is a known
// accuracy limitation, not a bug.
func ClientKey(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	return "unknown"
}
