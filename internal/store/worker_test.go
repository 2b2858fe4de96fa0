package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chaseparty/chase-backend/internal/game"
)

type fakeSource struct {
	recs []game.SnapshotRecord
}

func (f *fakeSource) SnapshotAll() []game.SnapshotRecord { return f.recs }

type fakePersister struct {
	mu    sync.Mutex
	saves [][]game.SnapshotRecord
	err   error
}

func (f *fakePersister) SaveAll(_ context.Context, recs []game.SnapshotRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saves = append(f.saves, recs)
	return nil
}

func (f *fakePersister) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func TestWorker_RunOncePersistsSnapshots(t *testing.T) {
	src := &fakeSource{recs: []game.SnapshotRecord{
		{Code: "ABC123", Status: "waiting", Payload: []byte(`{}`)},
	}}
	sink := &fakePersister{}

	w := NewWorker(src, sink, time.Hour, zap.NewNop())
	w.RunOnce(context.Background())

	require.Equal(t, 1, sink.saveCount())
	require.Equal(t, "ABC123", sink.saves[0][0].Code)
}

func TestWorker_PeriodicCyclesAndStop(t *testing.T) {
	src := &fakeSource{}
	sink := &fakePersister{}

	w := NewWorker(src, sink, 10*time.Millisecond, zap.NewNop())
	w.Start(context.Background())
	w.Start(context.Background()) // second start is a no-op

	require.Eventually(t, func() bool {
		return sink.saveCount() >= 2
	}, time.Second, 5*time.Millisecond)

	w.Stop()
	w.Stop() // idempotent

	count := sink.saveCount()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, count, sink.saveCount(), "no cycles after Stop")
}

func TestWorker_SinkFailureDoesNotStopWorker(t *testing.T) {
	src := &fakeSource{recs: []game.SnapshotRecord{{Code: "ABC123"}}}
	sink := &fakePersister{err: errors.New("db down")}

	w := NewWorker(src, sink, time.Hour, zap.NewNop())
	w.RunOnce(context.Background())
	require.Equal(t, 0, sink.saveCount())

	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()
	w.RunOnce(context.Background())
	require.Equal(t, 1, sink.saveCount())
}
