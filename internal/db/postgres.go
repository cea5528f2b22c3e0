package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/types"
	"github.com/evetools/indy/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(logg *logger.Logger) (*PostgresService, error) {
	serviceLog := logg.With("service", "PostgresService")

	dsn := utils.GetEnv("DATABASE_URL", "postgres://postgres@localhost:5432/indy?sslmode=disable", logg)

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) DB() *gorm.DB { return s.db }

func (s *PostgresService) AutoMigrateAll() error {
	return AutoMigrateAll(s.db)
}

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// Static data (SDE import)
		&types.Item{},
		&types.Blueprint{},
		&types.BlueprintMaterial{},
		&types.RigDogma{},

		// Structures
		&types.Structure{},

		// Worker-produced snapshots
		&types.IndustryIndex{},
		&types.MarketOrder{},
		&types.MarketOrderHistory{},
		&types.IndustryJob{},
		&types.OwnedAsset{},
		&types.OwnedBlueprint{},
		&types.Contract{},
		&types.ContractItem{},

		// Projects
		&types.Project{},
		&types.ProjectJob{},
		&types.MarketRequirement{},
		&types.ProjectStock{},
		&types.ProjectExcess{},
		&types.ProjectMisc{},
		&types.Assignment{},
		&types.AssignmentJob{},

		// Worker runtime
		&types.WorkerTask{},
		&types.WorkerRegistration{},
	)
}
