package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// chatBucket holds the limiter of one chat and when it was last used.
type chatBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// chatLimiter is a per-chat token bucket for outgoing replies. Telegram
// rejects bursts to a single group, so replies over the limit are dropped
// rather than queued. Idle buckets are evicted opportunistically.
//
// Safe for concurrent use.
type chatLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	buckets  map[int64]*chatBucket
	ttl      time.Duration
	cleanupN uint64
	now      func() time.Time
}

// newChatLimiter returns a limiter allowing rps replies per second per chat.
// rps <= 0 disables limiting; burst <= 0 is coerced to 1.
func newChatLimiter(rps float64, burst int) *chatLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &chatLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		buckets: make(map[int64]*chatBucket),
		ttl:     10 * time.Minute,
		now:     time.Now,
	}
}

// Allow reports whether a reply to chatID may be sent now.
func (l *chatLimiter) Allow(chatID int64) bool {
	if l == nil || l.rps <= 0 {
		return true
	}
	return l.bucket(chatID).AllowN(l.now(), 1)
}

// bucket returns the limiter for chatID, creating it if absent. GC runs
// before the lookup so a stale bucket is evicted even when it is requested.
func (l *chatLimiter) bucket(chatID int64) *rate.Limiter {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.cleanupN++
	if l.cleanupN >= 1000 {
		for id, b := range l.buckets {
			if now.Sub(b.lastSeen) >= l.ttl {
				delete(l.buckets, id)
			}
		}
		l.cleanupN = 0
	}

	if b, ok := l.buckets[chatID]; ok {
		b.lastSeen = now
		return b.limiter
	}
	lim := rate.NewLimiter(l.rps, l.burst)
	l.buckets[chatID] = &chatBucket{limiter: lim, lastSeen: now}
	return lim
}
