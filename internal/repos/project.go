package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/types"
)

type ProjectRepo interface {
	Create(ctx context.Context, tx *gorm.DB, p *types.Project) (*types.Project, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Project, error)
	GetByIDForOwner(ctx context.Context, tx *gorm.DB, id uuid.UUID, ownerID int64) (*types.Project, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID int64) ([]*types.Project, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error

	ReplaceRequirements(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, rows []types.MarketRequirement) error
	ReplaceExcess(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, rows []types.ProjectExcess) error
	ListRequirements(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]types.MarketRequirement, error)
	UpsertStock(ctx context.Context, tx *gorm.DB, row *types.ProjectStock) error
	ListStock(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]types.ProjectStock, error)
	AddMisc(ctx context.Context, tx *gorm.DB, row *types.ProjectMisc) error
	ListMisc(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]types.ProjectMisc, error)
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	return &projectRepo{db: db, log: baseLog.With("repo", "ProjectRepo")}
}

func (r *projectRepo) Create(ctx context.Context, tx *gorm.DB, p *types.Project) (*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = types.ProjectPreparing
	}
	if err := transaction.WithContext(ctx).Create(p).Error; err != nil {
		return nil, apperror.Map("create project", err)
	}
	return p, nil
}

func (r *projectRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var p types.Project
	if err := transaction.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, apperror.Map("get project", err)
	}
	return &p, nil
}

func (r *projectRepo) GetByIDForOwner(ctx context.Context, tx *gorm.DB, id uuid.UUID, ownerID int64) (*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var p types.Project
	err := transaction.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&p).Error
	if err != nil {
		// Ownership and existence failures are indistinguishable on purpose.
		return nil, apperror.Map("get project", err)
	}
	return &p, nil
}

func (r *projectRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID int64) ([]*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Project
	if err := transaction.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, apperror.Map("list projects", err)
	}
	return out, nil
}

func (r *projectRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Project{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return apperror.Map("update project", err)
	}
	return nil
}

// Delete removes the project and everything it owns in one transaction.
func (r *projectRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		for _, owned := range []interface{}{
			&types.ProjectJob{},
			&types.MarketRequirement{},
			&types.ProjectStock{},
			&types.ProjectExcess{},
			&types.ProjectMisc{},
		} {
			if err := txx.Where("project_id = ?", id).Delete(owned).Error; err != nil {
				return apperror.Map("delete project", err)
			}
		}
		if err := txx.Where("id = ?", id).Delete(&types.Project{}).Error; err != nil {
			return apperror.Map("delete project", err)
		}
		return nil
	})
}

func (r *projectRepo) ReplaceRequirements(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, rows []types.MarketRequirement) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Where("project_id = ?", projectID).Delete(&types.MarketRequirement{}).Error; err != nil {
			return apperror.Map("replace requirements", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := txx.Create(&rows).Error; err != nil {
			return apperror.Map("replace requirements", err)
		}
		return nil
	})
}

func (r *projectRepo) ReplaceExcess(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, rows []types.ProjectExcess) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Where("project_id = ?", projectID).Delete(&types.ProjectExcess{}).Error; err != nil {
			return apperror.Map("replace excess", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := txx.Create(&rows).Error; err != nil {
			return apperror.Map("replace excess", err)
		}
		return nil
	})
}

func (r *projectRepo) ListRequirements(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]types.MarketRequirement, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.MarketRequirement
	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("type_id ASC").
		Find(&out).Error; err != nil {
		return nil, apperror.Map("list requirements", err)
	}
	return out, nil
}

func (r *projectRepo) UpsertStock(ctx context.Context, tx *gorm.DB, row *types.ProjectStock) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "type_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "cost"}),
		}).
		Create(row).Error
	if err != nil {
		return apperror.Map("upsert stock", err)
	}
	return nil
}

func (r *projectRepo) ListStock(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]types.ProjectStock, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.ProjectStock
	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("type_id ASC").
		Find(&out).Error; err != nil {
		return nil, apperror.Map("list stock", err)
	}
	return out, nil
}

func (r *projectRepo) AddMisc(ctx context.Context, tx *gorm.DB, row *types.ProjectMisc) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		return apperror.Map("add misc", err)
	}
	return nil
}

func (r *projectRepo) ListMisc(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]types.ProjectMisc, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.ProjectMisc
	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Find(&out).Error; err != nil {
		return nil, apperror.Map("list misc", err)
	}
	return out, nil
}
