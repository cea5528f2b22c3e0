package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/repos"
	"github.com/evetools/indy/internal/types"
)

type fakeTaskQueue struct {
	repos.WorkerTaskRepo

	mu      sync.Mutex
	pending []*types.WorkerTask

	completed atomic.Int64
	drained   chan struct{}
	total     int64
}

func (f *fakeTaskQueue) Claim(ctx context.Context, workerID uuid.UUID, now time.Time) (*types.WorkerTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return nil, nil
	}
	task := f.pending[0]
	f.pending = f.pending[1:]
	return task, nil
}

func (f *fakeTaskQueue) Complete(ctx context.Context, tx *gorm.DB, id uuid.UUID, logs []string, now time.Time) error {
	if f.completed.Add(1) == f.total {
		close(f.drained)
	}
	return nil
}

func (f *fakeTaskQueue) EnqueueUnlessPending(ctx context.Context, tx *gorm.DB, kind string, payload map[string]any, waitUntil *time.Time) (*types.WorkerTask, bool, error) {
	return nil, false, nil
}

type fakeRegistry struct {
	repos.WorkerRegistryRepo
	deregistered atomic.Bool
}

func (f *fakeRegistry) Register(ctx context.Context, tx *gorm.DB) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (f *fakeRegistry) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID, now time.Time) error {
	return nil
}

func (f *fakeRegistry) Deregister(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	f.deregistered.Store(true)
	return nil
}

func (f *fakeRegistry) SweepDead(ctx context.Context, tx *gorm.DB, tasks repos.WorkerTaskRepo, cutoff time.Time) ([]uuid.UUID, error) {
	return nil, nil
}

// Tasks execute one at a time even when the claim buffer holds several.
func TestRunnerExecutesSerially(t *testing.T) {
	const n = 8
	queue := &fakeTaskQueue{drained: make(chan struct{}), total: n}
	for i := 0; i < n; i++ {
		queue.pending = append(queue.pending, &types.WorkerTask{ID: uuid.New(), Task: "refresh"})
	}

	var inFlight, maxInFlight atomic.Int64
	handler := func(ctx context.Context, task *types.WorkerTask) ([]string, error) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			seen := maxInFlight.Load()
			if cur <= seen || maxInFlight.CompareAndSwap(seen, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return nil, nil
	}

	registry := &fakeRegistry{}
	r := &Runner{
		log:      logger.Nop(),
		queue:    queue,
		registry: registry,
		handlers: map[string]Handler{"refresh": handler},
		metrics:  NewMetrics(prometheus.NewRegistry()),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case <-queue.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("tasks not drained in time")
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}

	if got := maxInFlight.Load(); got != 1 {
		t.Fatalf("observed %d tasks in flight, want 1", got)
	}
	if got := queue.completed.Load(); got != n {
		t.Fatalf("completed %d tasks, want %d", got, n)
	}
	if !registry.deregistered.Load() {
		t.Fatal("worker not deregistered on shutdown")
	}
}
