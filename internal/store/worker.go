package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chaseparty/chase-backend/internal/game"
)

// Source is whatever can produce the current set of room snapshots.
type Source interface {
	SnapshotAll() []game.SnapshotRecord
}

// Persister is whatever can durably store them.
type Persister interface {
	SaveAll(ctx context.Context, recs []game.SnapshotRecord) error
}

// Worker periodically copies the in-memory room set into the durable store.
// Write-behind only: a failed cycle is logged and retried next tick, and
// nothing in the session layer ever blocks on it.
type Worker struct {
	source   Source
	sink     Persister
	interval time.Duration
	log      *zap.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

func NewWorker(source Source, sink Persister, interval time.Duration, log *zap.Logger) *Worker {
	return &Worker{
		source:   source,
		sink:     sink,
		interval: interval,
		log:      log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("snapshot worker started", zap.Duration("interval", w.interval))
	go w.run(ctx)
}

func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	w.log.Info("snapshot worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single snapshot cycle. Also used for the final flush on
// shutdown.
func (w *Worker) RunOnce(ctx context.Context) {
	start := time.Now()
	recs := w.source.SnapshotAll()
	if err := w.sink.SaveAll(ctx, recs); err != nil {
		w.log.Error("snapshot cycle failed", zap.Error(err))
		return
	}
	w.log.Debug("snapshot cycle completed",
		zap.Int("rooms", len(recs)),
		zap.Duration("took", time.Since(start)))
}
