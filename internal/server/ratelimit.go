package server

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	limit      int
	window     time.Duration
	timestamps []time.Time
	lastSeen   time.Time
	mu         sync.Mutex
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{limit: limit, window: window}
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.lastSeen = now
	cutoff := now.Add(-r.window)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= r.limit {
		return false
	}
	r.timestamps = append(r.timestamps, now)
	return true
}

func (r *rateLimiter) idleSince(t time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSeen.Before(t)
}

// ipLimiter keeps one sliding window per client IP.
type ipLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateLimiter
}

func newIPLimiter() *ipLimiter {
	return &ipLimiter{clients: make(map[string]*rateLimiter)}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	rl, ok := l.clients[ip]
	if !ok {
		rl = newRateLimiter(IPRateLimitMessages, IPRateLimitWindow)
		l.clients[ip] = rl
	}
	l.mu.Unlock()
	return rl.allow()
}

// cleanup drops entries idle longer than ttl.
func (l *ipLimiter) cleanup(ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, rl := range l.clients {
		if rl.idleSince(cutoff) {
			delete(l.clients, ip)
		}
	}
}

func (l *ipLimiter) middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
