package rate

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter *rate.Limiter
	last    time.Time
}

// LimiterMap holds one token bucket per client and forgets idle clients.
type LimiterMap struct {
	mu       sync.Mutex
	limiters map[string]*entry
	every    rate.Limit
	burst    int
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewLimiterMap allows rpm requests per minute per client with the given burst.
// Clients idle for longer than ttl are evicted by a background reaper.
func NewLimiterMap(rpm, burst int, ttl time.Duration) *LimiterMap {
	if rpm <= 0 {
		rpm = 1
	}
	if burst <= 0 {
		burst = 1
	}
	lm := &LimiterMap{
		limiters: make(map[string]*entry),
		every:    rate.Every(time.Minute / time.Duration(rpm)),
		burst:    burst,
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}
	go lm.reaper()
	return lm
}

func (l *LimiterMap) reaper() {
	t := time.NewTicker(l.ttl)
	defer t.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case now := <-t.C:
			l.evictIdle(now)
		}
	}
}

func (l *LimiterMap) evictIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, e := range l.limiters {
		if now.Sub(e.last) > l.ttl {
			delete(l.limiters, id)
		}
	}
}

// Stop ends the reaper goroutine. Safe to call more than once.
func (l *LimiterMap) Stop() { l.stopOnce.Do(func() { close(l.stopCh) }) }

func (l *LimiterMap) get(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.limiters[client]; ok {
		e.last = time.Now()
		return e.limiter
	}
	lim := rate.NewLimiter(l.every, l.burst)
	l.limiters[client] = &entry{limiter: lim, last: time.Now()}
	return lim
}

// Allow reports whether a request from client may proceed now.
func (l *LimiterMap) Allow(client string) bool {
	return l.get(client).Allow()
}

// Len returns the number of tracked clients.
func (l *LimiterMap) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// ClientKey identifies the caller for limiting: the API key hash prefix when
// the request was authenticated, otherwise the client IP.
func ClientKey(r *http.Request, apiKeyHP string) string {
	if apiKeyHP != "" {
		return "key:" + apiKeyHP
	}
	return "ip:" + IPFromRequest(r)
}

// IPFromRequest extracts the client IP, preferring the first X-Forwarded-For hop.
func IPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
