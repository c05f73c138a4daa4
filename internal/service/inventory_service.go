package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/internal/ws"
	"go-pos-inventory/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxStockQuantity bounds stored quantities and single adjustments so stock arithmetic
// stays inside the integer column on every driver.
const MaxStockQuantity = 1_000_000_000

// ItemRequest is the body of both create and full-replace update
type ItemRequest struct {
	Name         string           `json:"name" validate:"required,notblank,max=255"`
	Category     string           `json:"category" validate:"required,notblank,max=100"`
	Quantity     *int             `json:"quantity" validate:"required,gte=0,lte=1000000000"`
	CostPrice    *decimal.Decimal `json:"cost_price" validate:"required,gte=0"`
	SellingPrice *decimal.Decimal `json:"selling_price" validate:"required,gte=0"`
	ReorderLevel int              `json:"reorder_level" validate:"gte=0"`
	Barcode      *string          `json:"barcode" validate:"omitempty,max=100"`
	Description  *string          `json:"description"`
}

func (r *ItemRequest) apply(item *model.InventoryItem) {
	item.Name = strings.TrimSpace(r.Name)
	item.Category = strings.ToUpper(strings.TrimSpace(r.Category))
	item.Quantity = *r.Quantity
	item.CostPrice = r.CostPrice.Round(2)
	item.SellingPrice = r.SellingPrice.Round(2)
	item.ReorderLevel = r.ReorderLevel
	item.Barcode = optionalText(r.Barcode)
	item.Description = optionalText(r.Description)
}

// optionalText trims and turns blank strings into NULL
func optionalText(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

type InventoryService interface {
	ListItems(ctx context.Context, tenantID uuid.UUID, filter repository.InventoryFilter) ([]model.InventoryItem, error)
	GetItem(ctx context.Context, tenantID, id uuid.UUID) (*model.InventoryItem, error)
	CreateItem(ctx context.Context, tenantID uuid.UUID, req *ItemRequest) (*model.InventoryItem, error)
	UpdateItem(ctx context.Context, tenantID, id uuid.UUID, req *ItemRequest) (*model.InventoryItem, error)
	DeleteItem(ctx context.Context, tenantID, id uuid.UUID) error
	// AdjustStock adds adjustment (negative to remove) and returns the new quantity
	AdjustStock(ctx context.Context, tenantID, id uuid.UUID, adjustment int) (int, error)
	Categories(ctx context.Context, tenantID uuid.UUID) ([]string, error)
}

type inventoryService struct {
	inventoryRepo repository.InventoryRepository
	feed          changeFeed
	logger        *zap.Logger
}

func NewInventoryService(repo repository.InventoryRepository, cache ReportCache, events Notifier, logger *zap.Logger) InventoryService {
	return &inventoryService{
		inventoryRepo: repo,
		feed:          newChangeFeed(cache, events),
		logger:        logger,
	}
}

func (s *inventoryService) fail(op string, err error) error {
	s.logger.Error("inventory storage failure", zap.String("op", op), zap.Error(err))
	return storageErr(op, err)
}

func (s *inventoryService) ListItems(ctx context.Context, tenantID uuid.UUID, filter repository.InventoryFilter) ([]model.InventoryItem, error) {
	items, err := s.inventoryRepo.FindAll(ctx, tenantID, filter)
	if err != nil {
		return nil, s.fail("list items", err)
	}
	return items, nil
}

func (s *inventoryService) GetItem(ctx context.Context, tenantID, id uuid.UUID) (*model.InventoryItem, error) {
	item, err := s.inventoryRepo.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "inventory item", ID: id}
		}
		return nil, s.fail("get item", err)
	}
	return item, nil
}

func (s *inventoryService) CreateItem(ctx context.Context, tenantID uuid.UUID, req *ItemRequest) (*model.InventoryItem, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, &ValidationError{Message: validator.Describe(errs)}
	}

	item := &model.InventoryItem{TenantID: tenantID}
	req.apply(item)

	if err := s.inventoryRepo.Create(ctx, item); err != nil {
		return nil, s.fail("create item", err)
	}

	s.feed.committed(ctx, tenantID, ws.ActionItemCreated, itemNotice(item, "added to inventory"), item)
	return item, nil
}

func (s *inventoryService) UpdateItem(ctx context.Context, tenantID, id uuid.UUID, req *ItemRequest) (*model.InventoryItem, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, &ValidationError{Message: validator.Describe(errs)}
	}

	item := &model.InventoryItem{TenantID: tenantID}
	item.ID = id
	req.apply(item)

	if err := s.inventoryRepo.Update(ctx, item); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "inventory item", ID: id}
		}
		return nil, s.fail("update item", err)
	}

	s.feed.committed(ctx, tenantID, ws.ActionItemUpdated, itemNotice(item, "updated"), item)
	return item, nil
}

func (s *inventoryService) DeleteItem(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := s.inventoryRepo.Delete(ctx, tenantID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Resource: "inventory item", ID: id}
		}
		return s.fail("delete item", err)
	}

	s.feed.committed(ctx, tenantID, ws.ActionItemDeleted, "", map[string]interface{}{"id": id})
	return nil
}

func (s *inventoryService) AdjustStock(ctx context.Context, tenantID, id uuid.UUID, adjustment int) (int, error) {
	if adjustment > MaxStockQuantity || adjustment < -MaxStockQuantity {
		return 0, validationf("adjustment must be between %d and %d", -MaxStockQuantity, MaxStockQuantity)
	}

	newQuantity, err := s.inventoryRepo.AdjustQuantity(ctx, tenantID, id, adjustment)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return 0, &NotFoundError{Resource: "inventory item", ID: id}
	case errors.Is(err, repository.ErrInsufficientStock):
		// Rejected with no effect; the lookup only makes the message descriptive.
		stockErr := &InsufficientStockError{ItemID: id, Available: -1, Requested: -adjustment}
		if item, lookupErr := s.inventoryRepo.FindByID(ctx, tenantID, id); lookupErr == nil {
			stockErr.ItemName = item.Name
			stockErr.Available = item.Quantity
		}
		return 0, stockErr
	default:
		return 0, s.fail("adjust stock", err)
	}

	s.feed.committed(ctx, tenantID, ws.ActionStockAdjusted,
		fmt.Sprintf("stock adjusted by %+d", adjustment),
		map[string]interface{}{"id": id, "adjustment": adjustment, "new_quantity": newQuantity})
	return newQuantity, nil
}

func (s *inventoryService) Categories(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	categories, err := s.inventoryRepo.Categories(ctx, tenantID)
	if err != nil {
		return nil, s.fail("list categories", err)
	}
	return categories, nil
}

// itemNotice is the event text for a saved item; items at or below their reorder level say so
func itemNotice(item *model.InventoryItem, verb string) string {
	if item.IsLowStock() {
		return fmt.Sprintf("%s %s, low stock: %d left", item.Name, verb, item.Quantity)
	}
	return fmt.Sprintf("%s %s", item.Name, verb)
}
