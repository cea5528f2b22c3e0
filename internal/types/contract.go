package types

import "time"

// Contract is one public contract header seen in a polled region.
type Contract struct {
	ContractID int64     `gorm:"column:contract_id;primaryKey" json:"contract_id"`
	RegionID   int64     `gorm:"column:region_id;not null;index" json:"region_id"`
	IssuerID   int64     `gorm:"column:issuer_id;not null" json:"issuer_id"`
	Type       string    `gorm:"column:type;not null" json:"type"`
	Price      float64   `gorm:"column:price;not null;default:0" json:"price"`
	Title      string    `gorm:"column:title;not null;default:''" json:"title"`
	DateIssued time.Time `gorm:"column:date_issued;not null" json:"date_issued"`
	Expires    time.Time `gorm:"column:expires;not null;index" json:"expires"`
	// ItemsFetched flips once the one-shot item fetch for this contract ran.
	ItemsFetched bool `gorm:"column:items_fetched;not null;default:false" json:"items_fetched"`
}

func (Contract) TableName() string { return "contract" }

// ContractItem is one line item of a public contract.
type ContractItem struct {
	RecordID   int64 `gorm:"column:record_id;primaryKey" json:"record_id"`
	ContractID int64 `gorm:"column:contract_id;not null;index" json:"contract_id"`
	TypeID     int32 `gorm:"column:type_id;not null;index" json:"type_id"`
	Quantity   int64 `gorm:"column:quantity;not null" json:"quantity"`
	IsIncluded bool  `gorm:"column:is_included;not null;default:true" json:"is_included"`
}

func (ContractItem) TableName() string { return "contract_item" }
