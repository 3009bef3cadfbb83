package ratelimiter

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// FixedWindowRateLimiter counts requests per key in fixed windows that start
// at the key's first request.
type FixedWindowRateLimiter struct {
	sync.Mutex
	clients map[string]*window
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewFixedWindowLimiter(limit int, w time.Duration) *FixedWindowRateLimiter {
	return &FixedWindowRateLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		window:  w,
		now:     time.Now,
	}
}

func (rl *FixedWindowRateLimiter) Allow(key string) (bool, time.Duration) {
	rl.Lock()
	defer rl.Unlock()

	now := rl.now()
	win, ok := rl.clients[key]
	if !ok || !now.Before(win.start.Add(rl.window)) {
		win = &window{start: now}
		rl.clients[key] = win
	}

	if win.count >= rl.limit {
		return false, win.start.Add(rl.window).Sub(now)
	}
	win.count++
	return true, 0
}

// Cleanup drops windows that have closed. It runs until done is closed.
func (rl *FixedWindowRateLimiter) Cleanup(done <-chan struct{}) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *FixedWindowRateLimiter) sweep() {
	rl.Lock()
	defer rl.Unlock()
	now := rl.now()
	for key, win := range rl.clients {
		if !now.Before(win.start.Add(rl.window)) {
			delete(rl.clients, key)
		}
	}
}
