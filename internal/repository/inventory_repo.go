package repository

import (
	"context"
	"strings"
	"time"

	"go-pos-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventoryFilter narrows FindAll. Zero values mean "no filter".
type InventoryFilter struct {
	Category     string
	Search       string
	LowStockOnly bool
}

// apply composes the optional predicates. The tenant predicate is not one of them: it is
// added by inventoryRepo.scoped before any filter runs.
func (f InventoryFilter) apply(db *gorm.DB) *gorm.DB {
	if c := strings.TrimSpace(f.Category); c != "" && !strings.EqualFold(c, "all") {
		db = db.Where("category = ?", strings.ToUpper(c))
	}
	if strings.TrimSpace(f.Search) != "" {
		pattern := likePattern(f.Search)
		db = db.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(COALESCE(barcode, '')) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if f.LowStockOnly {
		db = db.Where("quantity <= reorder_level")
	}
	return db
}

type InventoryRepository interface {
	// WithTx binds the repository to an open GORM transaction
	WithTx(tx *gorm.DB) InventoryRepository
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.InventoryItem, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]model.InventoryItem, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter InventoryFilter) ([]model.InventoryItem, error)
	Categories(ctx context.Context, tenantID uuid.UUID) ([]string, error)
	Create(ctx context.Context, item *model.InventoryItem) error
	Update(ctx context.Context, item *model.InventoryItem) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	AdjustQuantity(ctx context.Context, tenantID, id uuid.UUID, delta int) (int, error)
}

type inventoryRepo struct {
	db *gorm.DB
}

func NewInventoryRepo(db *gorm.DB) InventoryRepository {
	return &inventoryRepo{db}
}

func (r *inventoryRepo) WithTx(tx *gorm.DB) InventoryRepository {
	return &inventoryRepo{tx}
}

// scoped is the only way queries reach inventory_items
func (r *inventoryRepo) scoped(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.InventoryItem{}).Where("tenant_id = ?", tenantID)
}

func (r *inventoryRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	if err := r.scoped(ctx, tenantID).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *inventoryRepo) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]model.InventoryItem, error) {
	found := make(map[uuid.UUID]model.InventoryItem, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	var items []model.InventoryItem
	if err := r.scoped(ctx, tenantID).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		found[item.ID] = item
	}
	return found, nil
}

func (r *inventoryRepo) FindAll(ctx context.Context, tenantID uuid.UUID, filter InventoryFilter) ([]model.InventoryItem, error) {
	items := []model.InventoryItem{}
	err := filter.apply(r.scoped(ctx, tenantID)).Order("name ASC").Find(&items).Error
	return items, err
}

func (r *inventoryRepo) Categories(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	categories := []string{}
	err := r.scoped(ctx, tenantID).Distinct("category").Order("category").Pluck("category", &categories).Error
	return categories, err
}

func (r *inventoryRepo) Create(ctx context.Context, item *model.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// Update replaces every mutable field of the row matching (id, tenant_id)
func (r *inventoryRepo) Update(ctx context.Context, item *model.InventoryItem) error {
	res := r.scoped(ctx, item.TenantID).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"name":          item.Name,
			"category":      item.Category,
			"quantity":      item.Quantity,
			"cost_price":    item.CostPrice,
			"selling_price": item.SellingPrice,
			"reorder_level": item.ReorderLevel,
			"barcode":       item.Barcode,
			"description":   item.Description,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	updated, err := r.FindByID(ctx, item.TenantID, item.ID)
	if err != nil {
		return err
	}
	*item = *updated
	return nil
}

// Delete removes the catalog row and detaches it from historical transaction lines, which
// keep their name and price snapshot.
func (r *inventoryRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&model.InventoryItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		return tx.Model(&model.TransactionItem{}).
			Where("inventory_item_id = ?", id).
			Where("transaction_id IN (?)", tx.Model(&model.Transaction{}).Select("id").Where("tenant_id = ?", tenantID)).
			Update("inventory_item_id", nil).Error
	})
}

// AdjustQuantity applies delta as a single conditional UPDATE (compare-and-swap on the
// stock counter) and returns the resulting quantity. It never reads then writes, so
// concurrent callers cannot drive the quantity below zero.
func (r *inventoryRepo) AdjustQuantity(ctx context.Context, tenantID, id uuid.UUID, delta int) (int, error) {
	var newQuantity int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.InventoryItem{}).
			Where("id = ? AND tenant_id = ? AND quantity + ? >= 0", id, tenantID, delta).
			Updates(map[string]interface{}{
				"quantity":   gorm.Expr("quantity + ?", delta),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&model.InventoryItem{}).Where("id = ? AND tenant_id = ?", id, tenantID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrInsufficientStock
		}

		// The row stays locked by our UPDATE until commit, so this read sees our own write.
		return tx.Model(&model.InventoryItem{}).
			Select("quantity").
			Where("id = ? AND tenant_id = ?", id, tenantID).
			Scan(&newQuantity).Error
	})
	if err != nil {
		return 0, err
	}
	return newQuantity, nil
}
