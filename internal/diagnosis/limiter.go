package diagnosis

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

// limiterPool keeps one token bucket per user. Buckets idle for longer than
// ttl are dropped by a background sweep started on first use and ended by
// Close.
type limiterPool struct {
	rps   rate.Limit
	burst int

	mu            sync.Mutex
	m             map[string]*limiterEntry
	startCleanup  sync.Once
	stopOnce      sync.Once
	stop          chan struct{}
	stopped       chan struct{}
	ttl           time.Duration
	cleanupPeriod time.Duration
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &limiterPool{
		rps:           limit,
		burst:         burst,
		m:             make(map[string]*limiterEntry),
		stop:          make(chan struct{}),
		stopped:       make(chan struct{}),
		ttl:           10 * time.Minute,
		cleanupPeriod: time.Minute,
	}
}

func (p *limiterPool) Allow(key string) bool {
	return p.get(key).Allow()
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.startCleanup.Do(func() { go p.cleanupLoop() })

	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.m[key]; ok {
		e.lastSeen = time.Now()
		return e.l
	}
	l := rate.NewLimiter(p.rps, p.burst)
	p.m[key] = &limiterEntry{l: l, lastSeen: time.Now()}
	return l
}

func (p *limiterPool) cleanupLoop() {
	defer close(p.stopped)
	ticker := time.NewTicker(p.cleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.sweep(time.Now().Add(-p.ttl))
		case <-p.stop:
			return
		}
	}
}

// Close stops the background sweep. It is safe to call more than once.
func (p *limiterPool) Close() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func (p *limiterPool) sweep(cutoff time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, e := range p.m {
		if e.lastSeen.Before(cutoff) {
			delete(p.m, k)
		}
	}
}
