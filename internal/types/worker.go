package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Task kinds. Sync is the sole generator of new per-entity task rows; every
// other kind is either periodic or one-shot seeded by Sync.
const (
	TaskSync                  = "sync"
	TaskLatestNpc             = "latest_npc"
	TaskLatestPlayer          = "latest_player"
	TaskLatestRegion          = "latest_region"
	TaskPublicContracts       = "public_contracts"
	TaskPublicContractItems   = "public_contract_items"
	TaskCharacterOrders       = "character_orders"
	TaskCorporationOrders     = "corporation_orders"
	TaskPrices                = "prices"
	TaskSystemIndex           = "system_index"
	TaskCharacterAssets       = "character_assets"
	TaskCorporationAssets     = "corporation_assets"
	TaskCharacterBlueprints   = "character_blueprints"
	TaskCorporationBlueprints = "corporation_blueprints"
	TaskCleanup               = "cleanup"
)

// Task statuses.
const (
	TaskWaiting    = "waiting"
	TaskInProgress = "in_progress"
	TaskDone       = "done"
	TaskError      = "error"
	TaskTimeout    = "timeout"
)

// WorkerTask is one durable unit of work. Logs and Errors are JSON arrays
// read directly by dashboards; insertion order must be preserved.
type WorkerTask struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Task           string         `gorm:"column:task;not null;index" json:"task"`
	Status         string         `gorm:"column:status;not null;default:waiting;index" json:"status"`
	WorkerID       *uuid.UUID     `gorm:"column:worker_id;type:uuid;index" json:"worker_id,omitempty"`
	AdditionalData datatypes.JSON `gorm:"column:additional_data;type:jsonb" json:"additional_data"`
	StartedAt      *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt    *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	WaitUntil      *time.Time     `gorm:"column:wait_until;index" json:"wait_until,omitempty"`
	Logs           datatypes.JSON `gorm:"column:logs;type:jsonb" json:"logs"`
	Errors         datatypes.JSON `gorm:"column:errors;type:jsonb" json:"errors"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (WorkerTask) TableName() string { return "worker_task" }

// WorkerRegistration marks a worker process as live. A worker is live iff
// now - last_seen <= 5 minutes; tasks held by vanished workers revert to
// waiting.
type WorkerRegistration struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LastSeen time.Time `gorm:"column:last_seen;not null" json:"last_seen"`
}

func (WorkerRegistration) TableName() string { return "worker_registration" }
