package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/pkg/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "pos.db"), false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type publishedEvent struct {
	TenantID uuid.UUID
	Action   string
	Text     string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (n *recordingNotifier) Publish(tenantID uuid.UUID, action, text string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{TenantID: tenantID, Action: action, Text: text})
}

func (n *recordingNotifier) actions() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.Action
	}
	return out
}

type countingCache struct {
	nopCache
	mu          sync.Mutex
	invalidated map[uuid.UUID]int
}

func (c *countingCache) Invalidate(_ context.Context, tenantID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.invalidated == nil {
		c.invalidated = map[uuid.UUID]int{}
	}
	c.invalidated[tenantID]++
}

func (c *countingCache) count(tenantID uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidated[tenantID]
}

type fixture struct {
	db           *gorm.DB
	inventory    repository.InventoryRepository
	transactions repository.TransactionRepository
	events       *recordingNotifier
	cache        *countingCache
	txService    TransactionService
	invService   InventoryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:           db,
		inventory:    repository.NewInventoryRepo(db),
		transactions: repository.NewTransactionRepo(db),
		events:       &recordingNotifier{},
		cache:        &countingCache{},
	}
	f.txService = NewTransactionService(db, f.inventory, f.transactions, f.cache, f.events, zap.NewNop())
	f.invService = NewInventoryService(f.inventory, f.cache, f.events, zap.NewNop())
	return f
}

func (f *fixture) seedItem(t *testing.T, tenantID uuid.UUID, name string, quantity int, price string) *model.InventoryItem {
	t.Helper()
	item := &model.InventoryItem{
		TenantID:     tenantID,
		Name:         name,
		Category:     "GENERAL",
		Quantity:     quantity,
		CostPrice:    decimal.RequireFromString(price).Div(decimal.NewFromInt(2)),
		SellingPrice: decimal.RequireFromString(price),
		ReorderLevel: 2,
	}
	require.NoError(t, f.inventory.Create(context.Background(), item))
	return item
}

func (f *fixture) quantity(t *testing.T, tenantID, id uuid.UUID) int {
	t.Helper()
	item, err := f.inventory.FindByID(context.Background(), tenantID, id)
	require.NoError(t, err)
	return item.Quantity
}

func (f *fixture) transactionCount(t *testing.T) (headers, lines int64) {
	t.Helper()
	require.NoError(t, f.db.Model(&model.Transaction{}).Count(&headers).Error)
	require.NoError(t, f.db.Model(&model.TransactionItem{}).Count(&lines).Error)
	return headers, lines
}

func sale(lines ...LineRequest) *TransactionRequest {
	return &TransactionRequest{TransactionType: model.TxSale, Items: lines}
}

func line(item *model.InventoryItem, quantity int) LineRequest {
	id := item.ID
	return LineRequest{InventoryItemID: &id, ItemName: item.Name, Quantity: quantity}
}

func ptr[T any](v T) *T { return &v }
