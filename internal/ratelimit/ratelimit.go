// Package ratelimit provides a sliding-window request throttle keyed by an
// arbitrary string, typically "(connection, action)". It is abuse mitigation,
// not a security boundary.
package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	stamps []time.Time
	span   time.Duration
}

type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	grace   time.Duration
	stopCh  chan struct{}
	doneCh  chan struct{}
	now     func() time.Time
}

// New starts a limiter whose background sweep runs every sweepEvery and
// evicts windows idle for longer than their span plus grace. Stop it when
// the server shuts down.
func New(sweepEvery, grace time.Duration) *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		grace:   grace,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		now:     time.Now,
	}
	go l.sweep(sweepEvery)
	return l
}

// Allow records one request under key and reports whether it fits inside the
// window: at most max requests in the trailing span. Entries are created
// lazily on first use.
func (l *Limiter) Allow(key string, max int, span time.Duration) bool {
	now := l.now()
	cutoff := now.Add(-span)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok {
		w = &window{span: span}
		l.windows[key] = w
	}
	w.span = span

	kept := w.stamps[:0]
	for _, t := range w.stamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.stamps = kept

	if len(w.stamps) >= max {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

func (l *Limiter) sweep(every time.Duration) {
	defer close(l.doneCh)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.evictExpired()
		}
	}
}

// evictExpired drops windows whose newest stamp is past span+grace. The
// grace keeps hot keys from being deleted and re-created every sweep.
func (l *Limiter) evictExpired() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.windows {
		if len(w.stamps) == 0 {
			delete(l.windows, key)
			continue
		}
		newest := w.stamps[len(w.stamps)-1]
		if now.Sub(newest) > w.span+l.grace {
			delete(l.windows, key)
		}
	}
}

// Stop terminates the sweep goroutine.
func (l *Limiter) Stop() {
	close(l.stopCh)
	<-l.doneCh
}
