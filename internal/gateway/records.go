package gateway

import "time"

// MarketOrderRecord is one live order as the game gateway reports it.
type MarketOrderRecord struct {
	OrderID     int64     `json:"order_id"`
	TypeID      int32     `json:"type_id"`
	StructureID int64     `json:"location_id"`
	IsBuy       bool      `json:"is_buy_order"`
	Price       float64   `json:"price"`
	Remaining   int64     `json:"volume_remain"`
	Total       int64     `json:"volume_total"`
	Expires     time.Time `json:"expires"`
}

// IndustryJobRecord is one running or delivered in-game industry job.
type IndustryJobRecord struct {
	JobID       int64     `json:"job_id"`
	OwnerID     int64     `json:"installer_id"`
	BlueprintID int32     `json:"blueprint_type_id"`
	ProductID   int32     `json:"product_type_id"`
	ActivityID  int32     `json:"activity_id"`
	Runs        int32     `json:"runs"`
	Cost        float64   `json:"cost"`
	Status      string    `json:"status"`
	StructureID int64     `json:"facility_id"`
	EndDate     time.Time `json:"end_date"`
}

// SystemIndexRecord carries the per-activity cost indices of one solar system.
type SystemIndexRecord struct {
	SystemID      int64   `json:"solar_system_id"`
	Manufacturing float64 `json:"manufacturing"`
	Reaction      float64 `json:"reaction"`
	Copying       float64 `json:"copying"`
	Invention     float64 `json:"invention"`
	ResearchME    float64 `json:"research_material_efficiency"`
	ResearchTE    float64 `json:"research_time_efficiency"`
}

// PriceRecord is one entry of the global adjusted/average price list.
type PriceRecord struct {
	TypeID        int32   `json:"type_id"`
	AdjustedPrice float64 `json:"adjusted_price"`
	AveragePrice  float64 `json:"average_price"`
}

// AssetRecord is one owned item stack.
type AssetRecord struct {
	ItemID     int64  `json:"item_id"`
	TypeID     int32  `json:"type_id"`
	LocationID int64  `json:"location_id"`
	Quantity   int64  `json:"quantity"`
	Flag       string `json:"location_flag"`
}

// BlueprintRecord is one owned blueprint original or copy.
type BlueprintRecord struct {
	ItemID             int64 `json:"item_id"`
	TypeID             int32 `json:"type_id"`
	LocationID         int64 `json:"location_id"`
	MaterialEfficiency int32 `json:"material_efficiency"`
	TimeEfficiency     int32 `json:"time_efficiency"`
	Runs               int32 `json:"runs"`
	Quantity           int64 `json:"quantity"`
}

// ContractRecord is one public contract header.
type ContractRecord struct {
	ContractID int64     `json:"contract_id"`
	IssuerID   int64     `json:"issuer_id"`
	Type       string    `json:"type"`
	Price      float64   `json:"price"`
	Title      string    `json:"title"`
	DateIssued time.Time `json:"date_issued"`
	Expires    time.Time `json:"date_expired"`
}

// ContractItemRecord is one line item of a public contract.
type ContractItemRecord struct {
	RecordID   int64 `json:"record_id"`
	TypeID     int32 `json:"type_id"`
	Quantity   int64 `json:"quantity"`
	IsIncluded bool  `json:"is_included"`
}
