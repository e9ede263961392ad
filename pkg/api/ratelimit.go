package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleClientTTL is how long a client may stay silent before its limiter is
// forgotten.
const idleClientTTL = 10 * time.Minute

type clientBucket struct {
	*rate.Limiter
	seen time.Time
}

// clientLimiter holds one token bucket per client IP. Idle buckets are
// pruned on access, at most once per idleClientTTL.
type clientLimiter struct {
	mu        sync.Mutex
	perMinute int
	buckets   map[string]*clientBucket
	pruned    time.Time
	now       func() time.Time
}

func newClientLimiter(perMinute int) *clientLimiter {
	return &clientLimiter{
		perMinute: perMinute,
		buckets:   make(map[string]*clientBucket),
		now:       time.Now,
	}
}

// allow reports whether ip may issue another request. A full minute's
// budget is available as burst.
func (l *clientLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if now.Sub(l.pruned) > idleClientTTL {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > idleClientTTL {
				delete(l.buckets, k)
			}
		}

		l.pruned = now
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &clientBucket{
			Limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute),
		}
		l.buckets[ip] = b
	}

	b.seen = now

	return b.AllowN(now, 1)
}

func (l *clientLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.buckets)
}

// limitRecords rejects clients that exceed the records rate limit.
func (s *server) limitRecords(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(extractIP(r)) {
			writeJSON(w, http.StatusTooManyRequests,
				errorResponse{"rate limit exceeded"})

			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractIP returns the client's IP address from the request.
func extractIP(r *http.Request) string {
	// Check X-Forwarded-For first (common with reverse proxies).
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")

		return strings.TrimSpace(first)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}
