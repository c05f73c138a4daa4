package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/internal/ws"
	"go-pos-inventory/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LineRequest is one requested transaction line. UnitPrice may be omitted for lines linked
// to inventory, in which case the catalog selling price is used.
type LineRequest struct {
	InventoryItemID *uuid.UUID       `json:"inventory_item_id"`
	ItemName        string           `json:"item_name" validate:"required,notblank,max=255"`
	Quantity        int              `json:"quantity" validate:"gt=0"`
	UnitPrice       *decimal.Decimal `json:"unit_price" validate:"omitempty,gte=0"`
}

// TransactionRequest is the body of POST /transactions. A client supplied total is never read.
type TransactionRequest struct {
	TransactionType model.TransactionType `json:"transaction_type" validate:"required,oneof=sale expense"`
	Items           []LineRequest         `json:"items" validate:"required,min=1,dive"`
	PaymentMethod   *string               `json:"payment_method" validate:"omitempty,oneof=cash gcash bank_transfer"`
	ReferenceNo     *string               `json:"reference_no" validate:"omitempty,max=100"`
	Notes           *string               `json:"notes"`
}

type TransactionService interface {
	ListTransactions(ctx context.Context, tenantID uuid.UUID, filter repository.TransactionFilter) ([]model.Transaction, error)
	GetTransaction(ctx context.Context, tenantID, id uuid.UUID) (*model.Transaction, error)
	// PostTransaction records a transaction and, for sales, decrements stock for every line,
	// all in one unit of work.
	PostTransaction(ctx context.Context, tenantID uuid.UUID, req *TransactionRequest) (*model.Transaction, error)
	// DeleteTransaction removes a transaction; sales have their stock restored first
	DeleteTransaction(ctx context.Context, tenantID, id uuid.UUID) error
}

type transactionService struct {
	db              *gorm.DB
	inventoryRepo   repository.InventoryRepository
	transactionRepo repository.TransactionRepository
	feed            changeFeed
	logger          *zap.Logger
}

func NewTransactionService(db *gorm.DB, iRepo repository.InventoryRepository, tRepo repository.TransactionRepository, cache ReportCache, events Notifier, logger *zap.Logger) TransactionService {
	return &transactionService{
		db:              db,
		inventoryRepo:   iRepo,
		transactionRepo: tRepo,
		feed:            newChangeFeed(cache, events),
		logger:          logger,
	}
}

func (s *transactionService) ListTransactions(ctx context.Context, tenantID uuid.UUID, filter repository.TransactionFilter) ([]model.Transaction, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, validationf("unknown transaction type %q", filter.Type)
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, validationf("endDate must not be before startDate")
	}

	transactions, err := s.transactionRepo.FindAll(ctx, tenantID, filter)
	if err != nil {
		return nil, s.storageFailure(tenantID, "list transactions", err)
	}
	return transactions, nil
}

func (s *transactionService) GetTransaction(ctx context.Context, tenantID, id uuid.UUID) (*model.Transaction, error) {
	transaction, err := s.transactionRepo.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "transaction", ID: id}
		}
		return nil, s.storageFailure(tenantID, "get transaction", err)
	}
	return transaction, nil
}

func (s *transactionService) PostTransaction(ctx context.Context, tenantID uuid.UUID, req *TransactionRequest) (*model.Transaction, error) {
	// 1. Structural validation
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, &ValidationError{Message: validator.Describe(errs)}
	}
	isSale := req.TransactionType == model.TxSale

	paymentMethod, reference, err := normalizePayment(req.PaymentMethod, req.ReferenceNo)
	if err != nil {
		return nil, err
	}

	// 2. Sale lines must be linked to the catalog
	if isSale {
		for i, line := range req.Items {
			if line.InventoryItemID == nil {
				return nil, validationf("items[%d] (%s): sale items must reference an inventory item",
					i, strings.TrimSpace(line.ItemName))
			}
		}
	}

	// 3. Optimistic pre-check. It only exists to produce descriptive errors early; the
	// conditional decrement below is what actually protects the stock counter.
	catalog, err := s.inventoryRepo.FindByIDs(ctx, tenantID, linkedIDs(req.Items))
	if err != nil {
		return nil, s.storageFailure(tenantID, "load inventory", err)
	}
	for _, line := range req.Items {
		if line.InventoryItemID == nil {
			continue
		}
		if _, ok := catalog[*line.InventoryItemID]; !ok {
			return nil, &NotFoundError{Resource: "inventory item", ID: *line.InventoryItemID, Name: strings.TrimSpace(line.ItemName)}
		}
	}
	if isSale {
		if err := precheckStock(req.Items, catalog); err != nil {
			return nil, err
		}
	}

	// 4. Lines and total are computed here, never taken from the client
	lines, total, err := buildLines(req.Items, catalog)
	if err != nil {
		return nil, err
	}

	header := &model.Transaction{
		ID:              uuid.New(),
		TenantID:        tenantID,
		TransactionType: req.TransactionType,
		TotalAmount:     total,
		PaymentMethod:   paymentMethod,
		ReferenceNumber: reference,
		Notes:           optionalText(req.Notes),
		CreatedAt:       time.Now().UTC(),
	}

	// 5. One unit of work: header, lines, decrements. Any error rolls everything back.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := s.transactionRepo.WithTx(tx)
		invRepo := s.inventoryRepo.WithTx(tx)

		if err := txRepo.CreateHeader(ctx, header); err != nil {
			return storageErr("insert transaction", err)
		}

		for i := range lines {
			line := &lines[i]
			line.TransactionID = header.ID
			if err := txRepo.CreateItem(ctx, line); err != nil {
				return storageErr("insert transaction item", err)
			}

			if !isSale || line.InventoryItemID == nil {
				continue
			}
			if _, err := invRepo.AdjustQuantity(ctx, tenantID, *line.InventoryItemID, -line.Quantity); err != nil {
				switch {
				case errors.Is(err, repository.ErrInsufficientStock):
					conflict := &ConcurrencyConflictError{InsufficientStockError{
						ItemID:    *line.InventoryItemID,
						ItemName:  line.ItemName,
						Available: -1,
						Requested: line.Quantity,
					}}
					s.logger.Warn("stock changed between pre-check and commit",
						zap.String("tenant_id", tenantID.String()),
						zap.String("item_id", line.InventoryItemID.String()),
						zap.String("item_name", line.ItemName),
						zap.Int("requested", line.Quantity))
					return conflict
				case errors.Is(err, repository.ErrNotFound):
					// Deleted from the catalog after the pre-check
					return &NotFoundError{Resource: "inventory item", ID: *line.InventoryItemID, Name: line.ItemName}
				default:
					return storageErr("decrement stock", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.abort(tenantID, "post transaction", err)
	}

	header.Items = lines
	s.feed.committed(ctx, tenantID, ws.ActionTransactionCreated,
		fmt.Sprintf("%s recorded: %s", header.TransactionType, header.TotalAmount.StringFixed(2)), header)
	return header, nil
}

func (s *transactionService) DeleteTransaction(ctx context.Context, tenantID, id uuid.UUID) error {
	var deleted *model.Transaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := s.transactionRepo.WithTx(tx)
		invRepo := s.inventoryRepo.WithTx(tx)

		existing, err := txRepo.FindByIDForUpdate(ctx, tenantID, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return &NotFoundError{Resource: "transaction", ID: id}
			}
			return storageErr("load transaction", err)
		}

		if existing.TransactionType == model.TxSale {
			for _, line := range existing.Items {
				if line.InventoryItemID == nil {
					continue
				}
				_, err := invRepo.AdjustQuantity(ctx, tenantID, *line.InventoryItemID, line.Quantity)
				if errors.Is(err, repository.ErrNotFound) {
					s.logger.Debug("skipping stock restore for deleted item",
						zap.String("transaction_id", id.String()),
						zap.String("item_id", line.InventoryItemID.String()))
					continue
				}
				if err != nil {
					return storageErr("restore stock", err)
				}
			}
		}

		// Exactly one header row must go; a concurrent delete that got here first leaves
		// nothing, and our restorations roll back with the NotFound.
		if err := txRepo.Delete(ctx, tenantID, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return &NotFoundError{Resource: "transaction", ID: id}
			}
			return storageErr("delete transaction", err)
		}

		deleted = existing
		return nil
	})
	if err != nil {
		return s.abort(tenantID, "delete transaction", err)
	}

	s.feed.committed(ctx, tenantID, ws.ActionTransactionDeleted,
		fmt.Sprintf("%s deleted: %s", deleted.TransactionType, deleted.TotalAmount.StringFixed(2)),
		map[string]interface{}{"id": id, "transaction_type": deleted.TransactionType})
	return nil
}

// abort classifies an error that came out of a unit of work. Domain errors pass through;
// anything else (commit failure, cancelled context) becomes a StorageError.
func (s *transactionService) abort(tenantID uuid.UUID, op string, err error) error {
	var storage *StorageError
	if errors.As(err, &storage) {
		s.logStorage(tenantID, storage)
		return err
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrOutOfStock) || errors.Is(err, ErrInsufficientStock) {
		return err
	}
	return s.storageFailure(tenantID, op, err)
}

func (s *transactionService) storageFailure(tenantID uuid.UUID, op string, err error) error {
	storage := &StorageError{Op: op, Err: err}
	s.logStorage(tenantID, storage)
	return storage
}

func (s *transactionService) logStorage(tenantID uuid.UUID, err *StorageError) {
	s.logger.Error("transaction rolled back",
		zap.String("tenant_id", tenantID.String()),
		zap.String("op", err.Op),
		zap.Error(err.Err))
}

// normalizePayment enforces the reference number rule. Cash never keeps a reference.
func normalizePayment(method, reference *string) (*string, *string, error) {
	if method == nil || *method == "" {
		return nil, optionalText(reference), nil
	}

	pm := model.PaymentMethod(*method)
	if !pm.Valid() {
		return nil, nil, validationf("unknown payment method %q", pm)
	}
	ref := optionalText(reference)
	if pm.RequiresReference() && ref == nil {
		return nil, nil, validationf("reference_no is required for %s payments", pm)
	}
	if !pm.RequiresReference() {
		ref = nil
	}
	m := string(pm)
	return &m, ref, nil
}

func linkedIDs(lines []LineRequest) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if line.InventoryItemID == nil || seen[*line.InventoryItemID] {
			continue
		}
		seen[*line.InventoryItemID] = true
		ids = append(ids, *line.InventoryItemID)
	}
	return ids
}

// precheckStock sums the requested quantity per item across all lines, so two lines of the
// same item are checked together.
func precheckStock(lines []LineRequest, catalog map[uuid.UUID]model.InventoryItem) error {
	requested := make(map[uuid.UUID]int, len(lines))
	order := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		id := *line.InventoryItemID
		if _, ok := requested[id]; !ok {
			order = append(order, id)
		}
		requested[id] += line.Quantity
	}

	for _, id := range order {
		item := catalog[id]
		if item.Quantity <= 0 {
			return &OutOfStockError{ItemID: id, ItemName: item.Name}
		}
		if requested[id] > item.Quantity {
			return &InsufficientStockError{
				ItemID:    id,
				ItemName:  item.Name,
				Available: item.Quantity,
				Requested: requested[id],
			}
		}
	}
	return nil
}

// buildLines snapshots name and price onto each line and sums the subtotals
func buildLines(lines []LineRequest, catalog map[uuid.UUID]model.InventoryItem) ([]model.TransactionItem, decimal.Decimal, error) {
	items := make([]model.TransactionItem, 0, len(lines))
	total := decimal.Zero

	for i, line := range lines {
		var price decimal.Decimal
		switch {
		case line.UnitPrice != nil:
			price = line.UnitPrice.Round(2)
		case line.InventoryItemID != nil:
			price = catalog[*line.InventoryItemID].SellingPrice
		default:
			return nil, decimal.Zero, validationf("items[%d] (%s): unit_price is required", i, strings.TrimSpace(line.ItemName))
		}

		subtotal := price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		total = total.Add(subtotal)

		var linked *uuid.UUID
		if line.InventoryItemID != nil {
			id := *line.InventoryItemID
			linked = &id
		}

		items = append(items, model.TransactionItem{
			ID:              uuid.New(),
			LineNo:          i + 1,
			InventoryItemID: linked,
			ItemName:        strings.TrimSpace(line.ItemName),
			Quantity:        line.Quantity,
			UnitPrice:       price,
			Subtotal:        subtotal,
		})
	}
	return items, total, nil
}
