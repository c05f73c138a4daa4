package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryItem is a catalog entry owned by exactly one tenant (store account).
// Quantity is mutated through InventoryRepository.AdjustQuantity or a full update; it never
// goes below zero.
type InventoryItem struct {
	BaseModel
	TenantID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Category     string          `gorm:"type:varchar(100);not null;index" json:"category"`
	Quantity     int             `gorm:"not null;default:0" json:"quantity"`
	CostPrice    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"cost_price"`
	SellingPrice decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"selling_price"`
	ReorderLevel int             `gorm:"not null;default:0" json:"reorder_level"`
	Barcode      *string         `gorm:"type:varchar(100)" json:"barcode,omitempty"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
}

func (InventoryItem) TableName() string {
	return "inventory_items"
}

// IsLowStock reports whether the item is at or below its reorder threshold
func (i *InventoryItem) IsLowStock() bool {
	return i.Quantity <= i.ReorderLevel
}
