package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/types"
)

type WorkerRegistryRepo interface {
	// Register inserts a fresh registration row and returns its id; the
	// worker carries it for the rest of its life.
	Register(ctx context.Context, tx *gorm.DB) (uuid.UUID, error)
	Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID, now time.Time) error
	Deregister(ctx context.Context, tx *gorm.DB, id uuid.UUID) error

	// SweepDead deletes registrations older than the cutoff and reverts
	// their in-progress tasks to waiting, all in one transaction. Returns
	// the removed worker ids.
	SweepDead(ctx context.Context, tx *gorm.DB, tasks WorkerTaskRepo, cutoff time.Time) ([]uuid.UUID, error)
}

type workerRegistryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkerRegistryRepo(db *gorm.DB, baseLog *logger.Logger) WorkerRegistryRepo {
	return &workerRegistryRepo{db: db, log: baseLog.With("repo", "WorkerRegistryRepo")}
}

func (r *workerRegistryRepo) Register(ctx context.Context, tx *gorm.DB) (uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	row := &types.WorkerRegistration{
		ID:       uuid.New(),
		LastSeen: time.Now().UTC(),
	}
	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		return uuid.Nil, apperror.Map("register worker", err)
	}
	return row.ID, nil
}

func (r *workerRegistryRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID, now time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Model(&types.WorkerRegistration{}).
		Where("id = ?", id).
		Update("last_seen", now).Error; err != nil {
		return apperror.Map("worker heartbeat", err)
	}
	return nil
}

func (r *workerRegistryRepo) Deregister(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.WorkerRegistration{}).Error; err != nil {
		return apperror.Map("deregister worker", err)
	}
	return nil
}

func (r *workerRegistryRepo) SweepDead(ctx context.Context, tx *gorm.DB, tasks WorkerTaskRepo, cutoff time.Time) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var removed []uuid.UUID
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var dead []types.WorkerRegistration
		if err := txx.Where("last_seen < ?", cutoff).Find(&dead).Error; err != nil {
			return err
		}
		if len(dead) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(dead))
		for _, w := range dead {
			ids = append(ids, w.ID)
		}
		if err := txx.Where("id IN ?", ids).Delete(&types.WorkerRegistration{}).Error; err != nil {
			return err
		}
		if _, err := tasks.ReleaseOwnedBy(ctx, txx, ids); err != nil {
			return err
		}
		removed = ids
		return nil
	})
	if err != nil {
		return nil, apperror.Map("sweep dead workers", err)
	}
	return removed, nil
}
