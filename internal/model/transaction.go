package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TxSale    TransactionType = "sale"
	TxExpense TransactionType = "expense"
)

func (t TransactionType) Valid() bool {
	return t == TxSale || t == TxExpense
}

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentGCash        PaymentMethod = "gcash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentGCash, PaymentBankTransfer:
		return true
	}
	return false
}

// RequiresReference reports whether a reference number must accompany this method
func (p PaymentMethod) RequiresReference() bool {
	return p == PaymentGCash || p == PaymentBankTransfer
}

// Transaction is a ledger header. It is immutable after commit; the only
// lifecycle transition is deletion, which cascades to its items.
type Transaction struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	TransactionType TransactionType   `gorm:"type:varchar(20);not null;index" json:"transaction_type"`
	TotalAmount     decimal.Decimal   `gorm:"type:numeric(14,2);not null" json:"total_amount"`
	PaymentMethod   *string           `gorm:"type:varchar(30)" json:"payment_method,omitempty"`
	ReferenceNumber *string           `gorm:"type:varchar(100)" json:"reference_number,omitempty"`
	Notes           *string           `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt       time.Time         `gorm:"index" json:"created_at"`
	Items           []TransactionItem `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE" json:"items"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}

// TransactionItem is a ledger line. ItemName and UnitPrice are snapshots taken when the
// transaction was posted, so deleting the catalog item never rewrites history.
type TransactionItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"transaction_id"`
	LineNo          int             `gorm:"not null;default:0" json:"line_no"`
	InventoryItemID *uuid.UUID      `gorm:"type:uuid;index" json:"inventory_item_id"`
	ItemName        string          `gorm:"type:varchar(255);not null" json:"item_name"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Subtotal        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
}

func (TransactionItem) TableName() string {
	return "transaction_items"
}

func (ti *TransactionItem) BeforeCreate(tx *gorm.DB) (err error) {
	if ti.ID == uuid.Nil {
		ti.ID = uuid.New()
	}
	return
}
