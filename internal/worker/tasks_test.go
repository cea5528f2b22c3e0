package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/evetools/indy/internal/gateway"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/repos"
	"github.com/evetools/indy/internal/types"
)

type enqueued struct {
	kind    string
	payload map[string]any
	wait    *time.Time
}

type recordingQueue struct {
	repos.WorkerTaskRepo

	mu   sync.Mutex
	rows []enqueued
}

func (q *recordingQueue) EnqueueUnlessPending(ctx context.Context, tx *gorm.DB, kind string, payload map[string]any, waitUntil *time.Time) (*types.WorkerTask, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rows = append(q.rows, enqueued{kind: kind, payload: payload, wait: waitUntil})
	return &types.WorkerTask{Task: kind}, true, nil
}

func (q *recordingQueue) find(kind string) (enqueued, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, row := range q.rows {
		if row.kind == kind {
			return row, true
		}
	}
	return enqueued{}, false
}

type emptyStructures struct {
	repos.StructureRepo
}

func (emptyStructures) ListWithService(ctx context.Context, tx *gorm.DB, serviceTypeID int32) ([]*types.Structure, error) {
	return nil, nil
}

type emptyContracts struct {
	repos.ContractRepo
}

func (emptyContracts) ListUnfetched(ctx context.Context, tx *gorm.DB, limit int) ([]types.Contract, error) {
	return nil, nil
}

// The first cleanup row must already wait for the maintenance window rather
// than run as soon as a worker picks it up.
func TestSyncSeedsCleanupAtDowntime(t *testing.T) {
	queue := &recordingQueue{}
	tasks := NewTasks(logger.Nop(), nil, gateway.NewCredentialCache(),
		nil, nil, nil, nil, emptyContracts{}, nil, emptyStructures{}, queue, nil)

	before := time.Now().UTC()
	if _, err := tasks.sync(context.Background(), &types.WorkerTask{Task: types.TaskSync}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	row, ok := queue.find(types.TaskCleanup)
	if !ok {
		t.Fatal("cleanup never enqueued")
	}
	if row.wait == nil {
		t.Fatal("cleanup enqueued without wait_until")
	}
	if !row.wait.After(before) {
		t.Fatalf("cleanup scheduled at %s, before sync ran", row.wait)
	}
	if row.wait.Hour() != 11 || row.wait.Minute() != 0 || row.wait.Location() != time.UTC {
		t.Fatalf("cleanup scheduled at %s, want daily 11:00 UTC", row.wait)
	}

	for _, kind := range []string{types.TaskPrices, types.TaskSystemIndex} {
		row, ok := queue.find(kind)
		if !ok {
			t.Fatalf("%s never enqueued", kind)
		}
		if row.wait != nil {
			t.Fatalf("%s deferred to %s, want immediate", kind, row.wait)
		}
	}
}
