package repos

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/types"
)

type WorkerTaskRepo interface {
	Enqueue(ctx context.Context, tx *gorm.DB, kind string, payload map[string]any, waitUntil *time.Time) (*types.WorkerTask, error)
	// EnqueueUnlessPending inserts only when no waiting/in-progress row of
	// the same kind and payload exists. Sync uses it for fan-out so
	// per-entity rows are never duplicated.
	EnqueueUnlessPending(ctx context.Context, tx *gorm.DB, kind string, payload map[string]any, waitUntil *time.Time) (*types.WorkerTask, bool, error)

	// Claim atomically moves the most overdue waiting task whose wait_until
	// has elapsed to in-progress for the given worker. Returns nil when
	// nothing is claimable.
	Claim(ctx context.Context, workerID uuid.UUID, now time.Time) (*types.WorkerTask, error)
	Complete(ctx context.Context, tx *gorm.DB, id uuid.UUID, logs []string, now time.Time) error
	Fail(ctx context.Context, tx *gorm.DB, id uuid.UUID, taskErr string, now time.Time) error
	MarkTimeout(ctx context.Context, tx *gorm.DB, id uuid.UUID, now time.Time) error

	// ReleaseOwnedBy reverts in-progress tasks held by the given workers to
	// waiting with worker_id cleared.
	ReleaseOwnedBy(ctx context.Context, tx *gorm.DB, workerIDs []uuid.UUID) (int64, error)
	// ReleaseOrphans reverts in-progress tasks whose worker no longer
	// appears in the registry.
	ReleaseOrphans(ctx context.Context, tx *gorm.DB) (int64, error)
	// TimeoutStuck marks tasks in-progress since before the cutoff.
	TimeoutStuck(ctx context.Context, tx *gorm.DB, cutoff time.Time, now time.Time) (int64, error)

	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.WorkerTask, error)
	ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]types.WorkerTask, error)
}

type workerTaskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkerTaskRepo(db *gorm.DB, baseLog *logger.Logger) WorkerTaskRepo {
	return &workerTaskRepo{db: db, log: baseLog.With("repo", "WorkerTaskRepo")}
}

func marshalPayload(payload map[string]any) datatypes.JSON {
	if payload == nil {
		return datatypes.JSON([]byte(`{}`))
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return datatypes.JSON([]byte(`{}`))
	}
	return datatypes.JSON(b)
}

func (r *workerTaskRepo) Enqueue(ctx context.Context, tx *gorm.DB, kind string, payload map[string]any, waitUntil *time.Time) (*types.WorkerTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	task := &types.WorkerTask{
		ID:             uuid.New(),
		Task:           kind,
		Status:         types.TaskWaiting,
		AdditionalData: marshalPayload(payload),
		WaitUntil:      waitUntil,
		Logs:           datatypes.JSON([]byte(`[]`)),
		Errors:         datatypes.JSON([]byte(`[]`)),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := transaction.WithContext(ctx).Create(task).Error; err != nil {
		return nil, apperror.Map("enqueue task", err)
	}
	return task, nil
}

func (r *workerTaskRepo) EnqueueUnlessPending(ctx context.Context, tx *gorm.DB, kind string, payload map[string]any, waitUntil *time.Time) (*types.WorkerTask, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	data := marshalPayload(payload)
	var pending int64
	err := transaction.WithContext(ctx).
		Model(&types.WorkerTask{}).
		Where("task = ? AND status IN ? AND additional_data = ?",
			kind, []string{types.TaskWaiting, types.TaskInProgress}, data).
		Count(&pending).Error
	if err != nil {
		return nil, false, apperror.Map("check pending task", err)
	}
	if pending > 0 {
		return nil, false, nil
	}
	task, err := r.Enqueue(ctx, transaction, kind, payload, waitUntil)
	if err != nil {
		return nil, false, err
	}
	return task, true, nil
}

func (r *workerTaskRepo) Claim(ctx context.Context, workerID uuid.UUID, now time.Time) (*types.WorkerTask, error) {
	var claimed *types.WorkerTask
	err := r.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var task types.WorkerTask
		qErr := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND (wait_until IS NULL OR wait_until <= ?)", types.TaskWaiting, now).
			Order("wait_until ASC NULLS FIRST, created_at ASC").
			First(&task).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.WorkerTask{}).
			Where("id = ?", task.ID).
			Updates(map[string]interface{}{
				"status":     types.TaskInProgress,
				"worker_id":  workerID,
				"started_at": now,
				"updated_at": now,
			}).Error
		if uErr != nil {
			return uErr
		}
		task.Status = types.TaskInProgress
		task.WorkerID = &workerID
		task.StartedAt = &now
		claimed = &task
		return nil
	})
	if err != nil {
		return nil, apperror.Map("claim task", err)
	}
	return claimed, nil
}

// appendJSONEntries grows a jsonb array column in place, preserving
// insertion order for the dashboards that read it.
func appendJSONEntries(txx *gorm.DB, id uuid.UUID, column string, entries []string) error {
	if len(entries) == 0 {
		return nil
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return txx.Model(&types.WorkerTask{}).
		Where("id = ?", id).
		Update(column, gorm.Expr("COALESCE("+column+", '[]'::jsonb) || ?::jsonb", string(b))).Error
}

func (r *workerTaskRepo) Complete(ctx context.Context, tx *gorm.DB, id uuid.UUID, logs []string, now time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Model(&types.WorkerTask{}).
			Where("id = ? AND status = ?", id, types.TaskInProgress).
			Updates(map[string]interface{}{
				"status":       types.TaskDone,
				"completed_at": now,
				"updated_at":   now,
			}).Error; err != nil {
			return apperror.Map("complete task", err)
		}
		if err := appendJSONEntries(txx, id, "logs", logs); err != nil {
			return apperror.Map("complete task", err)
		}
		return nil
	})
}

func (r *workerTaskRepo) Fail(ctx context.Context, tx *gorm.DB, id uuid.UUID, taskErr string, now time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Model(&types.WorkerTask{}).
			Where("id = ? AND status = ?", id, types.TaskInProgress).
			Updates(map[string]interface{}{
				"status":       types.TaskError,
				"completed_at": now,
				"updated_at":   now,
			}).Error; err != nil {
			return apperror.Map("fail task", err)
		}
		if err := appendJSONEntries(txx, id, "errors", []string{taskErr}); err != nil {
			return apperror.Map("fail task", err)
		}
		return nil
	})
}

func (r *workerTaskRepo) MarkTimeout(ctx context.Context, tx *gorm.DB, id uuid.UUID, now time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Model(&types.WorkerTask{}).
		Where("id = ? AND status = ?", id, types.TaskInProgress).
		Updates(map[string]interface{}{
			"status":       types.TaskTimeout,
			"completed_at": now,
			"updated_at":   now,
		}).Error; err != nil {
		return apperror.Map("timeout task", err)
	}
	return nil
}

func (r *workerTaskRepo) ReleaseOwnedBy(ctx context.Context, tx *gorm.DB, workerIDs []uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(workerIDs) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Model(&types.WorkerTask{}).
		Where("status = ? AND worker_id IN ?", types.TaskInProgress, workerIDs).
		Updates(map[string]interface{}{
			"status":     types.TaskWaiting,
			"worker_id":  nil,
			"started_at": nil,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, apperror.Map("release tasks", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *workerTaskRepo) ReleaseOrphans(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.WorkerTask{}).
		Where("status = ?", types.TaskInProgress).
		Where("worker_id IS NULL OR worker_id NOT IN (?)", transaction.
			Model(&types.WorkerRegistration{}).
			Select("id")).
		Updates(map[string]interface{}{
			"status":     types.TaskWaiting,
			"worker_id":  nil,
			"started_at": nil,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, apperror.Map("release orphan tasks", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *workerTaskRepo) TimeoutStuck(ctx context.Context, tx *gorm.DB, cutoff time.Time, now time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.WorkerTask{}).
		Where("status = ? AND started_at IS NOT NULL AND started_at < ?", types.TaskInProgress, cutoff).
		Updates(map[string]interface{}{
			"status":       types.TaskTimeout,
			"completed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return 0, apperror.Map("timeout stuck tasks", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *workerTaskRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.WorkerTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var task types.WorkerTask
	if err := transaction.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, apperror.Map("get task", err)
	}
	return &task, nil
}

func (r *workerTaskRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]types.WorkerTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []types.WorkerTask
	if err := transaction.WithContext(ctx).
		Order("updated_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, apperror.Map("list tasks", err)
	}
	return out, nil
}
