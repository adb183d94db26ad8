package ingest

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxLimiters bounds how many server names keep a token bucket. The least
// recently used bucket is dropped to make room.
const maxLimiters = 1024

type limiterEntry struct {
	lim  *rate.Limiter
	used time.Time
}

// limiterSet hands out one token bucket per server name, case-insensitively.
type limiterSet struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	max      int
	now      func() time.Time
	limiters map[string]*limiterEntry
}

func newLimiterSet(perSecond float64, burst int) *limiterSet {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &limiterSet{
		limit:    limit,
		burst:    burst,
		max:      maxLimiters,
		now:      time.Now,
		limiters: make(map[string]*limiterEntry),
	}
}

func (l *limiterSet) allow(server string) bool {
	key := strings.ToLower(server)
	now := l.now()

	l.mu.Lock()
	e, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= l.max {
			l.evictOldest()
		}
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = e
	}
	e.used = now
	l.mu.Unlock()

	return e.lim.AllowN(now, 1)
}

// evictOldest must be called with mu held.
func (l *limiterSet) evictOldest() {
	var oldest *limiterEntry
	var oldestKey string
	for key, e := range l.limiters {
		if oldest == nil || e.used.Before(oldest.used) {
			oldest, oldestKey = e, key
		}
	}
	delete(l.limiters, oldestKey)
}

func (l *limiterSet) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
