package repos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/types"
)

type StructureRepo interface {
	Create(ctx context.Context, tx *gorm.DB, s *types.Structure) (*types.Structure, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Structure, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Structure, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID int64) ([]*types.Structure, error)
	// ListWithService returns every structure carrying the given service
	// module, across owners. The sync fan-out uses it to find player markets.
	ListWithService(ctx context.Context, tx *gorm.DB, serviceTypeID int32) ([]*types.Structure, error)
	Update(ctx context.Context, tx *gorm.DB, s *types.Structure) error
	// Delete hard-deletes a structure. Refused while any active project job
	// still plans to run there.
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type structureRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStructureRepo(db *gorm.DB, baseLog *logger.Logger) StructureRepo {
	return &structureRepo{db: db, log: baseLog.With("repo", "StructureRepo")}
}

func (r *structureRepo) Create(ctx context.Context, tx *gorm.DB, s *types.Structure) (*types.Structure, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(s).Error; err != nil {
		return nil, apperror.Map("create structure", err)
	}
	return s, nil
}

func (r *structureRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Structure, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var s types.Structure
	if err := transaction.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, apperror.Map("get structure", err)
	}
	return &s, nil
}

func (r *structureRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Structure, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Structure
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, apperror.Map("get structures", err)
	}
	return out, nil
}

func (r *structureRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID int64) ([]*types.Structure, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Structure
	if err := transaction.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("name ASC").
		Find(&out).Error; err != nil {
		return nil, apperror.Map("list structures", err)
	}
	return out, nil
}

func (r *structureRepo) ListWithService(ctx context.Context, tx *gorm.DB, serviceTypeID int32) ([]*types.Structure, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Structure
	if err := transaction.WithContext(ctx).
		Where("services @> ?::jsonb", fmt.Sprintf("[%d]", serviceTypeID)).
		Order("structure_id ASC").
		Find(&out).Error; err != nil {
		return nil, apperror.Map("list structures with service", err)
	}
	return out, nil
}

func (r *structureRepo) Update(ctx context.Context, tx *gorm.DB, s *types.Structure) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Save(s).Error; err != nil {
		return apperror.Map("update structure", err)
	}
	return nil
}

func (r *structureRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var active int64
		if err := txx.Model(&types.ProjectJob{}).
			Where("structure_id = ? AND status NOT IN ?", id,
				[]string{types.JobDone, types.JobCanceled}).
			Count(&active).Error; err != nil {
			return apperror.Map("delete structure", err)
		}
		if active > 0 {
			return apperror.Conflict("structure has %d active project jobs", active)
		}
		if err := txx.Where("id = ?", id).Delete(&types.Structure{}).Error; err != nil {
			return apperror.Map("delete structure", err)
		}
		return nil
	})
}
