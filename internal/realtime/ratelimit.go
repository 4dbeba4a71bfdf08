package realtime

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Limiter is a fixed-window counter keyed by an arbitrary string (a
// source address for handshakes, a connection id for events). Counters
// are approximate: the window resets wholesale on rollover, and the
// backing LRU bounds memory against address churn.
type Limiter struct {
	clock    clock.Clock
	limit    int
	interval time.Duration

	mu   sync.Mutex
	wins *lru.Cache[string, *window]
}

type window struct {
	count int
	start time.Time
}

const limiterCacheSize = 4096

func NewLimiter(limit int, interval time.Duration, clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.New()
	}
	wins, _ := lru.New[string, *window](limiterCacheSize)
	return &Limiter{clock: clk, limit: limit, interval: interval, wins: wins}
}

// Allow counts one attempt for key and reports whether it is within the
// configured limit for the current window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	w, ok := l.wins.Get(key)
	if !ok || now.Sub(w.start) >= l.interval {
		l.wins.Add(key, &window{count: 1, start: now})
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Forget drops the counter for key, e.g. when its connection closes.
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	l.wins.Remove(key)
	l.mu.Unlock()
}
