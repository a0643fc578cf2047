package main

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterSweepInterval  = 5 * time.Minute
	limiterStaleThreshold = 10 * time.Minute
)

// limiter is the process-wide per-IP token bucket guarding every public
// surface (HTTP and DNS): 5 tokens/sec, burst 20.
var limiter = newVisitorLimiter(5, 20)

type visitorLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newVisitorLimiter(r float64, burst int) *visitorLimiter {
	return &visitorLimiter{
		visitors:  make(map[string]*visitor),
		limit:     rate.Limit(r),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

func (vl *visitorLimiter) allow(ip string) bool {
	vl.mu.Lock()
	defer vl.mu.Unlock()

	now := time.Now()

	// Sweep stale entries inline; no background goroutine needed.
	if now.Sub(vl.lastSweep) > limiterSweepInterval {
		for k, v := range vl.visitors {
			if now.Sub(v.lastSeen) > limiterStaleThreshold {
				delete(vl.visitors, k)
			}
		}
		vl.lastSweep = now
	}

	v, ok := vl.visitors[ip]
	if !ok {
		l := rate.NewLimiter(vl.limit, vl.burst)
		vl.visitors[ip] = &visitor{limiter: l, lastSeen: now}
		l.Allow()
		return true
	}

	v.lastSeen = now
	return v.limiter.Allow()
}

// rateLimitAllow reports whether a request from addr (host:port or bare IP)
// may proceed.
func rateLimitAllow(addr string) bool {
	ip, _, err := net.SplitHostPort(addr)
	if err != nil {
		ip = addr
	}
	return limiter.allow(ip)
}
