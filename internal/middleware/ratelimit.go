package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

type bucket struct {
	count int
	until time.Time
}

// RateLimit allows limit requests per client IP in each fixed window. Expired
// windows are swept as new requests arrive.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	var (
		mu        sync.Mutex
		buckets   = make(map[string]*bucket)
		nextSweep = time.Now().Add(per)
	)
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIPForRateLimit(r)
			now := time.Now()

			mu.Lock()
			if now.After(nextSweep) {
				for key, b := range buckets {
					if now.After(b.until) {
						delete(buckets, key)
					}
				}
				nextSweep = now.Add(per)
			}
			b, ok := buckets[ip]
			if !ok || now.After(b.until) {
				b = &bucket{until: now.Add(per)}
				buckets[ip] = b
			}
			if b.count >= limit {
				retry := int(b.until.Sub(now).Seconds()) + 1
				mu.Unlock()
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests, try again later.")
				return
			}
			b.count++
			mu.Unlock()
			next.ServeHTTP(w, r)
		})
	}
}

// clientIPForRateLimit keys on the connection address. Forwarding headers are
// only honoured when chimw.RealIP has already rewritten RemoteAddr.
func clientIPForRateLimit(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && net.ParseIP(host) != nil {
		return host
	}
	return r.RemoteAddr
}
