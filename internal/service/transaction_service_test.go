package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/internal/ws"
)

func TestPostTransaction_SaleThenDeleteRestoresStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := uuid.New()
	item := f.seedItem(t, tenant, "Rice 5kg", 10, "50")

	created, err := f.txService.PostTransaction(ctx, tenant, sale(line(item, 3)))
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(150).Equal(created.TotalAmount))
	require.Len(t, created.Items, 1)
	assert.True(t, decimal.NewFromInt(50).Equal(created.Items[0].UnitPrice))
	assert.True(t, decimal.NewFromInt(150).Equal(created.Items[0].Subtotal))
	assert.Equal(t, 7, f.quantity(t, tenant, item.ID))

	require.NoError(t, f.txService.DeleteTransaction(ctx, tenant, created.ID))
	assert.Equal(t, 10, f.quantity(t, tenant, item.ID))

	headers, lines := f.transactionCount(t)
	assert.Zero(t, headers)
	assert.Zero(t, lines)
	assert.Equal(t, []string{ws.ActionTransactionCreated, ws.ActionTransactionDeleted}, f.events.actions())
	assert.Equal(t, 2, f.cache.count(tenant))
}

func TestPostTransaction_OutOfStock(t *testing.T) {
	f := newFixture(t)
	tenant := uuid.New()
	item := f.seedItem(t, tenant, "Soap", 0, "25")

	_, err := f.txService.PostTransaction(context.Background(), tenant, sale(line(item, 1)))

	var oos *OutOfStockError
	require.ErrorAs(t, err, &oos)
	assert.Equal(t, "Soap", oos.ItemName)
	assert.Equal(t, 0, f.quantity(t, tenant, item.ID))
	headers, _ := f.transactionCount(t)
	assert.Zero(t, headers)
	assert.Empty(t, f.events.actions())
}

func TestPostTransaction_SameItemTwiceOverStock(t *testing.T) {
	f := newFixture(t)
	tenant := uuid.New()
	item := f.seedItem(t, tenant, "Coffee", 5, "12.50")

	_, err := f.txService.PostTransaction(context.Background(), tenant, sale(line(item, 3), line(item, 3)))

	var ins *InsufficientStockError
	require.ErrorAs(t, err, &ins)
	assert.Equal(t, 5, ins.Available)
	assert.Equal(t, 6, ins.Requested)
	assert.Equal(t, 5, f.quantity(t, tenant, item.ID))
	headers, lines := f.transactionCount(t)
	assert.Zero(t, headers)
	assert.Zero(t, lines)
}

func TestPostTransaction_ConservationAcrossLines(t *testing.T) {
	f := newFixture(t)
	tenant := uuid.New()
	coffee := f.seedItem(t, tenant, "Coffee", 10, "12.50")
	sugar := f.seedItem(t, tenant, "Sugar", 4, "3")

	created, err := f.txService.PostTransaction(context.Background(), tenant,
		sale(line(coffee, 2), line(sugar, 4), line(coffee, 1)))
	require.NoError(t, err)

	assert.Equal(t, 7, f.quantity(t, tenant, coffee.ID))
	assert.Equal(t, 0, f.quantity(t, tenant, sugar.ID))
	assert.Equal(t, "49.5", created.TotalAmount.String())
	for i, l := range created.Items {
		assert.Equal(t, i+1, l.LineNo)
		assert.True(t, l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Equal(l.Subtotal))
	}
}

func TestPostTransaction_Validation(t *testing.T) {
	f := newFixture(t)
	tenant := uuid.New()
	item := f.seedItem(t, tenant, "Rice", 10, "50")

	cases := map[string]*TransactionRequest{
		"no items":          {TransactionType: model.TxSale},
		"unknown type":      {TransactionType: "refund", Items: []LineRequest{line(item, 1)}},
		"zero quantity":     sale(line(item, 0)),
		"blank item name":   sale(LineRequest{InventoryItemID: &item.ID, ItemName: "  ", Quantity: 1}),
		"unlinked sale":     sale(LineRequest{ItemName: "Loose candy", Quantity: 1, UnitPrice: ptr(decimal.NewFromInt(1))}),
		"negative price":    sale(LineRequest{InventoryItemID: &item.ID, ItemName: "Rice", Quantity: 1, UnitPrice: ptr(decimal.NewFromInt(-1))}),
		"gcash without ref": {TransactionType: model.TxSale, Items: []LineRequest{line(item, 1)}, PaymentMethod: ptr("gcash")},
		"unknown method":    {TransactionType: model.TxSale, Items: []LineRequest{line(item, 1)}, PaymentMethod: ptr("crypto")},
		"expense no price":  {TransactionType: model.TxExpense, Items: []LineRequest{{ItemName: "Electricity", Quantity: 1}}},
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.txService.PostTransaction(context.Background(), tenant, req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	assert.Equal(t, 10, f.quantity(t, tenant, item.ID))
	headers, _ := f.transactionCount(t)
	assert.Zero(t, headers)
}

func TestPostTransaction_PaymentReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := uuid.New()
	item := f.seedItem(t, tenant, "Rice", 10, "50")

	req := sale(line(item, 1))
	req.PaymentMethod = ptr("cash")
	req.ReferenceNo = ptr("IGNORED-123")
	cash, err := f.txService.PostTransaction(ctx, tenant, req)
	require.NoError(t, err)
	require.NotNil(t, cash.PaymentMethod)
	assert.Equal(t, "cash", *cash.PaymentMethod)
	assert.Nil(t, cash.ReferenceNumber)

	req = sale(line(item, 1))
	req.PaymentMethod = ptr("gcash")
	req.ReferenceNo = ptr(" GC-998 ")
	gcash, err := f.txService.PostTransaction(ctx, tenant, req)
	require.NoError(t, err)
	require.NotNil(t, gcash.ReferenceNumber)
	assert.Equal(t, "GC-998", *gcash.ReferenceNumber)
}

func TestPostTransaction_ExpenseDoesNotTouchStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := uuid.New()
	item := f.seedItem(t, tenant, "Rice", 10, "50")

	expense := &TransactionRequest{
		TransactionType: model.TxExpense,
		Items: []LineRequest{
			{ItemName: "Electricity", Quantity: 1, UnitPrice: ptr(decimal.RequireFromString("1200.75"))},
			{InventoryItemID: &item.ID, ItemName: "Rice restock", Quantity: 20, UnitPrice: ptr(decimal.NewFromInt(40))},
		},
		Notes: ptr("monthly bills"),
	}
	created, err := f.txService.PostTransaction(ctx, tenant, expense)
	require.NoError(t, err)
	assert.Equal(t, "2000.75", created.TotalAmount.String())
	assert.Equal(t, 10, f.quantity(t, tenant, item.ID))

	require.NoError(t, f.txService.DeleteTransaction(ctx, tenant, created.ID))
	assert.Equal(t, 10, f.quantity(t, tenant, item.ID))
}

func TestPostTransaction_TenantIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, intruder := uuid.New(), uuid.New()
	item := f.seedItem(t, owner, "Rice", 10, "50")

	_, err := f.txService.PostTransaction(ctx, intruder, sale(line(item, 1)))
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Rice", nf.Name)

	created, err := f.txService.PostTransaction(ctx, owner, sale(line(item, 2)))
	require.NoError(t, err)

	_, err = f.txService.GetTransaction(ctx, intruder, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.txService.DeleteTransaction(ctx, intruder, created.ID), ErrNotFound)

	list, err := f.txService.ListTransactions(ctx, intruder, repository.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Equal(t, 8, f.quantity(t, owner, item.ID))
	assert.Zero(t, f.cache.count(intruder))
}

func TestDeleteTransaction_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := uuid.New()
	item := f.seedItem(t, tenant, "Rice", 10, "50")

	created, err := f.txService.PostTransaction(ctx, tenant, sale(line(item, 4)))
	require.NoError(t, err)

	require.NoError(t, f.txService.DeleteTransaction(ctx, tenant, created.ID))
	err = f.txService.DeleteTransaction(ctx, tenant, created.ID)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 10, f.quantity(t, tenant, item.ID))
}

func TestDeleteTransaction_SkipsDeletedCatalogItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := uuid.New()
	kept := f.seedItem(t, tenant, "Rice", 10, "50")
	removed := f.seedItem(t, tenant, "Seasonal mug", 5, "80")

	created, err := f.txService.PostTransaction(ctx, tenant, sale(line(kept, 2), line(removed, 1)))
	require.NoError(t, err)

	require.NoError(t, f.invService.DeleteItem(ctx, tenant, removed.ID))

	got, err := f.txService.GetTransaction(ctx, tenant, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Nil(t, got.Items[1].InventoryItemID)
	assert.Equal(t, "Seasonal mug", got.Items[1].ItemName)

	require.NoError(t, f.txService.DeleteTransaction(ctx, tenant, created.ID))
	assert.Equal(t, 10, f.quantity(t, tenant, kept.ID))
}

func TestPostTransaction_ConcurrentSalesNeverOversell(t *testing.T) {
	f := newFixture(t)
	tenant := uuid.New()
	item := f.seedItem(t, tenant, "Last batch", 5, "10")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.txService.PostTransaction(context.Background(), tenant, sale(line(item, 3)))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInsufficientStock)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, f.quantity(t, tenant, item.ID))
	headers, _ := f.transactionCount(t)
	assert.Equal(t, int64(1), headers)
}

// stalePrecheck reports more stock than exists, as if another sale committed right after
// the optimistic read.
type stalePrecheck struct {
	repository.InventoryRepository
	extra int
}

func (r stalePrecheck) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]model.InventoryItem, error) {
	found, err := r.InventoryRepository.FindByIDs(ctx, tenantID, ids)
	for id, item := range found {
		item.Quantity += r.extra
		found[id] = item
	}
	return found, err
}

func TestPostTransaction_RaceAfterPrecheckRollsBack(t *testing.T) {
	f := newFixture(t)
	tenant := uuid.New()
	spare := f.seedItem(t, tenant, "Bread", 10, "5")
	item := f.seedItem(t, tenant, "Milk", 2, "4")

	svc := NewTransactionService(f.db, stalePrecheck{f.inventory, 10}, f.transactions, f.cache, f.events, zap.NewNop())
	_, err := svc.PostTransaction(context.Background(), tenant, sale(line(spare, 1), line(item, 3)))

	var conflict *ConcurrencyConflictError
	require.ErrorAs(t, err, &conflict)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, "Milk", conflict.ItemName)

	// the Bread decrement and the header written before the conflict are gone
	assert.Equal(t, 10, f.quantity(t, tenant, spare.ID))
	assert.Equal(t, 2, f.quantity(t, tenant, item.ID))
	headers, lines := f.transactionCount(t)
	assert.Zero(t, headers)
	assert.Zero(t, lines)
	assert.Empty(t, f.events.actions())
}

type brokenAdjust struct {
	repository.InventoryRepository
}

func (r brokenAdjust) WithTx(tx *gorm.DB) repository.InventoryRepository {
	return brokenAdjust{r.InventoryRepository.WithTx(tx)}
}

func (r brokenAdjust) AdjustQuantity(context.Context, uuid.UUID, uuid.UUID, int) (int, error) {
	return 0, errors.New("disk I/O error")
}

func TestPostTransaction_StorageFailureLeavesNothing(t *testing.T) {
	f := newFixture(t)
	tenant := uuid.New()
	item := f.seedItem(t, tenant, "Milk", 5, "4")

	svc := NewTransactionService(f.db, brokenAdjust{f.inventory}, f.transactions, f.cache, f.events, zap.NewNop())
	_, err := svc.PostTransaction(context.Background(), tenant, sale(line(item, 1)))

	var storage *StorageError
	require.ErrorAs(t, err, &storage)
	assert.Equal(t, "decrement stock", storage.Op)
	assert.False(t, IsClientError(err))

	assert.Equal(t, 5, f.quantity(t, tenant, item.ID))
	headers, lines := f.transactionCount(t)
	assert.Zero(t, headers)
	assert.Zero(t, lines)
}

func TestPostTransaction_CancelledContext(t *testing.T) {
	f := newFixture(t)
	tenant := uuid.New()
	item := f.seedItem(t, tenant, "Milk", 5, "4")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.txService.PostTransaction(ctx, tenant, sale(line(item, 1)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, 5, f.quantity(t, tenant, item.ID))
}

func TestListTransactions_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := uuid.New()
	item := f.seedItem(t, tenant, "Rice", 10, "50")

	_, err := f.txService.PostTransaction(ctx, tenant, sale(line(item, 1)))
	require.NoError(t, err)
	_, err = f.txService.PostTransaction(ctx, tenant, &TransactionRequest{
		TransactionType: model.TxExpense,
		Items:           []LineRequest{{ItemName: "Water bill", Quantity: 1, UnitPrice: ptr(decimal.NewFromInt(300))}},
		Notes:           ptr("utilities"),
	})
	require.NoError(t, err)

	all, err := f.txService.ListTransactions(ctx, tenant, repository.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.False(t, all[0].CreatedAt.Before(all[1].CreatedAt))

	sales, err := f.txService.ListTransactions(ctx, tenant, repository.TransactionFilter{Type: model.TxSale})
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "Rice", sales[0].Items[0].ItemName)

	byItem, err := f.txService.ListTransactions(ctx, tenant, repository.TransactionFilter{Search: "water"})
	require.NoError(t, err)
	require.Len(t, byItem, 1)
	assert.Equal(t, model.TxExpense, byItem[0].TransactionType)

	byNotes, err := f.txService.ListTransactions(ctx, tenant, repository.TransactionFilter{Search: "UTIL"})
	require.NoError(t, err)
	assert.Len(t, byNotes, 1)

	future := time.Now().Add(24 * time.Hour)
	none, err := f.txService.ListTransactions(ctx, tenant, repository.TransactionFilter{StartDate: &future})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.txService.ListTransactions(ctx, tenant, repository.TransactionFilter{Type: "refund"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNormalizePayment(t *testing.T) {
	method, ref, err := normalizePayment(ptr("gcash"), ptr(" GC-1 "))
	require.NoError(t, err)
	assert.Equal(t, "gcash", *method)
	assert.Equal(t, "GC-1", *ref)

	method, ref, err = normalizePayment(ptr("cash"), ptr("R-1"))
	require.NoError(t, err)
	assert.Equal(t, "cash", *method)
	assert.Nil(t, ref)

	_, _, err = normalizePayment(ptr("bank_transfer"), nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = normalizePayment(ptr("card"), ptr("X"))
	assert.ErrorIs(t, err, ErrValidation)
}
