package repository

import (
	"context"
	"strings"
	"time"

	"go-pos-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransactionFilter combines conjunctively. Zero values mean "no filter".
type TransactionFilter struct {
	Type      model.TransactionType
	StartDate *time.Time
	EndDate   *time.Time
	Search    string
}

func (f TransactionFilter) apply(db *gorm.DB) *gorm.DB {
	if f.Type != "" {
		db = db.Where("transaction_type = ?", f.Type)
	}
	if f.StartDate != nil {
		db = db.Where("created_at >= ?", f.StartDate.UTC())
	}
	if f.EndDate != nil {
		db = db.Where("created_at <= ?", f.EndDate.UTC())
	}
	if strings.TrimSpace(f.Search) != "" {
		pattern := likePattern(f.Search)
		db = db.Where(`(LOWER(COALESCE(notes, '')) LIKE ? ESCAPE '\' OR EXISTS (
			SELECT 1 FROM transaction_items ti
			WHERE ti.transaction_id = transactions.id AND LOWER(ti.item_name) LIKE ? ESCAPE '\'))`,
			pattern, pattern)
	}
	return db
}

type TransactionRepository interface {
	// WithTx binds the repository to an open GORM transaction
	WithTx(tx *gorm.DB) TransactionRepository
	FindAll(ctx context.Context, tenantID uuid.UUID, filter TransactionFilter) ([]model.Transaction, error)
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Transaction, error)
	// FindByIDForUpdate locks the header row for the rest of the surrounding transaction
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*model.Transaction, error)
	CreateHeader(ctx context.Context, tx *model.Transaction) error
	CreateItem(ctx context.Context, item *model.TransactionItem) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db}
}

func (r *transactionRepo) WithTx(tx *gorm.DB) TransactionRepository {
	return &transactionRepo{tx}
}

func (r *transactionRepo) scoped(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Transaction{}).Where("transactions.tenant_id = ?", tenantID)
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("line_no ASC")
	})
}

func (r *transactionRepo) FindAll(ctx context.Context, tenantID uuid.UUID, filter TransactionFilter) ([]model.Transaction, error) {
	transactions := []model.Transaction{}
	err := preloadItems(filter.apply(r.scoped(ctx, tenantID))).
		Order("created_at DESC").
		Find(&transactions).Error
	return transactions, err
}

func (r *transactionRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Transaction, error) {
	var transaction model.Transaction
	if err := preloadItems(r.scoped(ctx, tenantID)).Where("id = ?", id).First(&transaction).Error; err != nil {
		return nil, translate(err)
	}
	return &transaction, nil
}

func (r *transactionRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*model.Transaction, error) {
	db := r.scoped(ctx, tenantID)
	if db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var transaction model.Transaction
	if err := preloadItems(db).Where("id = ?", id).First(&transaction).Error; err != nil {
		return nil, translate(err)
	}
	return &transaction, nil
}

// CreateHeader inserts only the header row; lines are written one by one with CreateItem
func (r *transactionRepo) CreateHeader(ctx context.Context, tx *model.Transaction) error {
	return r.db.WithContext(ctx).Omit("Items").Create(tx).Error
}

func (r *transactionRepo) CreateItem(ctx context.Context, item *model.TransactionItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// Delete removes the header and its lines. The header delete is tenant scoped and must hit
// exactly one row, so a second delete of the same id reports ErrNotFound.
func (r *transactionRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&model.Transaction{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("transaction_id = ?", id).Delete(&model.TransactionItem{}).Error
	})
}
