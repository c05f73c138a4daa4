package service

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pos-inventory/internal/repository"
	"go-pos-inventory/internal/ws"
)

func itemRequest(name, category string, quantity int, cost, price string) *ItemRequest {
	return &ItemRequest{
		Name:         name,
		Category:     category,
		Quantity:     ptr(quantity),
		CostPrice:    ptr(decimal.RequireFromString(cost)),
		SellingPrice: ptr(decimal.RequireFromString(price)),
	}
}

func TestCreateItem_NormalizesAndNotifies(t *testing.T) {
	f := newFixture(t)
	tenant := uuid.New()

	req := itemRequest("  Instant Noodles ", " noodles ", 24, "8.5", "12")
	req.Barcode = ptr("4800016644221")
	req.Description = ptr("   ")

	item, err := f.invService.CreateItem(context.Background(), tenant, req)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, item.ID)
	assert.Equal(t, tenant, item.TenantID)
	assert.Equal(t, "Instant Noodles", item.Name)
	assert.Equal(t, "NOODLES", item.Category)
	assert.Nil(t, item.Description)
	assert.Equal(t, []string{ws.ActionItemCreated}, f.events.actions())
	assert.Equal(t, 1, f.cache.count(tenant))
}

func TestItemEvents_FlagLowStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := uuid.New()

	req := itemRequest("Sardines", "canned", 1, "15", "22")
	req.ReorderLevel = 5
	item, err := f.invService.CreateItem(ctx, tenant, req)
	require.NoError(t, err)

	restocked := itemRequest("Sardines", "canned", 40, "15", "22")
	restocked.ReorderLevel = 5
	_, err = f.invService.UpdateItem(ctx, tenant, item.ID, restocked)
	require.NoError(t, err)

	require.Len(t, f.events.events, 2)
	assert.Equal(t, "Sardines added to inventory, low stock: 1 left", f.events.events[0].Text)
	assert.Equal(t, "Sardines updated", f.events.events[1].Text)
}

func TestCreateItem_RejectsInvalid(t *testing.T) {
	f := newFixture(t)
	tenant := uuid.New()

	missingQty := itemRequest("Rice", "GRAINS", 1, "1", "2")
	missingQty.Quantity = nil

	negativeReorder := itemRequest("Rice", "GRAINS", 1, "1", "2")
	negativeReorder.ReorderLevel = -1

	cases := map[string]*ItemRequest{
		"blank name":        itemRequest("  ", "GRAINS", 1, "1", "2"),
		"missing category":  itemRequest("Rice", "", 1, "1", "2"),
		"negative quantity": itemRequest("Rice", "GRAINS", -1, "1", "2"),
		"negative cost":     itemRequest("Rice", "GRAINS", 1, "-0.01", "2"),
		"negative price":    itemRequest("Rice", "GRAINS", 1, "1", "-2"),
		"missing quantity":  missingQty,
		"negative reorder":  negativeReorder,
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.invService.CreateItem(context.Background(), tenant, req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	items, err := f.invService.ListItems(context.Background(), tenant, repository.InventoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUpdateItem_FullReplaceScopedByTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, intruder := uuid.New(), uuid.New()
	item := f.seedItem(t, owner, "Rice", 10, "50")

	_, err := f.invService.UpdateItem(ctx, intruder, item.ID, itemRequest("Stolen", "X", 0, "0", "0"))
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := f.invService.UpdateItem(ctx, owner, item.ID, itemRequest("Rice 10kg", "grains", 3, "40", "55.5"))
	require.NoError(t, err)
	assert.Equal(t, "Rice 10kg", updated.Name)
	assert.Equal(t, "GRAINS", updated.Category)
	assert.Equal(t, 3, updated.Quantity)
	assert.True(t, decimal.RequireFromString("55.5").Equal(updated.SellingPrice))
	assert.Equal(t, 0, updated.ReorderLevel)
	assert.Equal(t, owner, updated.TenantID)
}

func TestAdjustStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := uuid.New()
	item := f.seedItem(t, tenant, "Eggs", 4, "9")

	qty, err := f.invService.AdjustStock(ctx, tenant, item.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, 10, qty)

	qty, err = f.invService.AdjustStock(ctx, tenant, item.ID, -10)
	require.NoError(t, err)
	assert.Equal(t, 0, qty)

	_, err = f.invService.AdjustStock(ctx, tenant, item.ID, -1)
	var ins *InsufficientStockError
	require.ErrorAs(t, err, &ins)
	assert.Equal(t, "Eggs", ins.ItemName)
	assert.Equal(t, 0, ins.Available)
	assert.Equal(t, 1, ins.Requested)
	assert.Equal(t, 0, f.quantity(t, tenant, item.ID))

	_, err = f.invService.AdjustStock(ctx, uuid.New(), item.ID, 5)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, f.quantity(t, tenant, item.ID))
}

func TestAdjustStock_RejectsOutOfRangeAdjustment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := uuid.New()
	item := f.seedItem(t, tenant, "Eggs", 5, "9")

	for _, adjustment := range []int{math.MaxInt64, math.MinInt64, MaxStockQuantity + 1, -MaxStockQuantity - 1} {
		_, err := f.invService.AdjustStock(ctx, tenant, item.ID, adjustment)
		assert.ErrorIs(t, err, ErrValidation, "adjustment %d", adjustment)
		assert.True(t, IsClientError(err))
	}
	assert.Equal(t, 5, f.quantity(t, tenant, item.ID))
	assert.Empty(t, f.events.actions())

	qty, err := f.invService.AdjustStock(ctx, tenant, item.ID, MaxStockQuantity)
	require.NoError(t, err)
	assert.Equal(t, MaxStockQuantity+5, qty)

	_, err = f.invService.CreateItem(ctx, tenant, itemRequest("Bulk", "grocery", MaxStockQuantity+1, "1", "2"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListItems_FiltersAndCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := uuid.New()

	sardines := itemRequest("Sardines", "canned", 1, "15", "22")
	sardines.ReorderLevel = 5

	for _, req := range []*ItemRequest{
		sardines,
		itemRequest("Corned beef", "Canned", 40, "30", "45"),
		itemRequest("Shampoo 50%", "toiletries", 12, "5", "8"),
	} {
		_, err := f.invService.CreateItem(ctx, tenant, req)
		require.NoError(t, err)
	}
	f.seedItem(t, uuid.New(), "Sardines", 1, "20")

	all, err := f.invService.ListItems(ctx, tenant, repository.InventoryFilter{Category: "all"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Corned beef", all[0].Name)

	canned, err := f.invService.ListItems(ctx, tenant, repository.InventoryFilter{Category: "canned"})
	require.NoError(t, err)
	assert.Len(t, canned, 2)

	low, err := f.invService.ListItems(ctx, tenant, repository.InventoryFilter{LowStockOnly: true})
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Sardines", low[0].Name)

	// LIKE wildcards in the search text are literal
	pct, err := f.invService.ListItems(ctx, tenant, repository.InventoryFilter{Search: "50%"})
	require.NoError(t, err)
	require.Len(t, pct, 1)
	assert.Equal(t, "Shampoo 50%", pct[0].Name)

	categories, err := f.invService.Categories(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, []string{"CANNED", "TOILETRIES"}, categories)
}

func TestDeleteItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := uuid.New()
	item := f.seedItem(t, tenant, "Rice", 10, "50")

	assert.ErrorIs(t, f.invService.DeleteItem(ctx, uuid.New(), item.ID), ErrNotFound)
	require.NoError(t, f.invService.DeleteItem(ctx, tenant, item.ID))
	assert.ErrorIs(t, f.invService.DeleteItem(ctx, tenant, item.ID), ErrNotFound)

	_, err := f.invService.GetItem(ctx, tenant, item.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
