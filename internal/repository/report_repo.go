package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesSummary aggregates the ledger over a period
type SalesSummary struct {
	TotalSales       decimal.Decimal `db:"total_sales"`
	TransactionCount int64           `db:"transaction_count"`
	TotalExpenses    decimal.Decimal `db:"total_expenses"`
	COGS             decimal.Decimal `db:"cogs"`
}

type PaymentMethodTotal struct {
	PaymentMethod    string          `db:"payment_method" json:"payment_method"`
	TransactionCount int64           `db:"transaction_count" json:"transaction_count"`
	TotalAmount      decimal.Decimal `db:"total_amount" json:"total_amount"`
}

type CategorySales struct {
	Category      string          `db:"category" json:"category"`
	TotalQuantity int64           `db:"total_quantity" json:"total_quantity"`
	TotalRevenue  decimal.Decimal `db:"total_revenue" json:"total_revenue"`
}

type ItemSales struct {
	Name          string          `db:"name" json:"name"`
	TotalQuantity int64           `db:"total_quantity" json:"total_quantity"`
	TotalRevenue  decimal.Decimal `db:"total_revenue" json:"total_revenue"`
}

type DailySales struct {
	Date   string          `db:"date" json:"date"`
	Amount decimal.Decimal `db:"amount" json:"amount"`
}

// InventoryStats is the stock side of the dashboard
type InventoryStats struct {
	LowStockCount  int64           `db:"low_stock_count"`
	InventoryValue decimal.Decimal `db:"inventory_value"`
}

// ReportRepository is the read-only aggregator over the ledger. Every query is scoped by
// tenant and half of them by a [start, end] period on transactions.created_at.
type ReportRepository interface {
	SalesSummary(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (*SalesSummary, error)
	PaymentMethods(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]PaymentMethodTotal, error)
	CategorySales(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]CategorySales, error)
	TopSellingItems(ctx context.Context, tenantID uuid.UUID, start, end time.Time, limit int) ([]ItemSales, error)
	DailySales(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]DailySales, error)
	InventoryStats(ctx context.Context, tenantID uuid.UUID) (*InventoryStats, error)
}

type reportRepo struct {
	db *sqlx.DB
}

// NewReportRepo shares GORM's connection pool through sqlx
func NewReportRepo(gdb *gorm.DB) (ReportRepository, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	driver := "sqlite3"
	if gdb.Dialector.Name() == "postgres" {
		driver = "postgres"
	}
	return &reportRepo{db: sqlx.NewDb(sqlDB, driver)}, nil
}

const (
	querySalesSummary = `
		SELECT
			COALESCE(SUM(CASE WHEN transaction_type = 'sale' THEN total_amount ELSE 0 END), 0) AS total_sales,
			COUNT(CASE WHEN transaction_type = 'sale' THEN 1 END) AS transaction_count,
			COALESCE(SUM(CASE WHEN transaction_type = 'expense' THEN total_amount ELSE 0 END), 0) AS total_expenses
		FROM transactions
		WHERE tenant_id = ? AND created_at >= ? AND created_at <= ?`

	queryCOGS = `
		SELECT COALESCE(SUM(ti.quantity * ii.cost_price), 0) AS cogs
		FROM transaction_items ti
		JOIN transactions t ON ti.transaction_id = t.id
		LEFT JOIN inventory_items ii ON ti.inventory_item_id = ii.id AND ii.tenant_id = t.tenant_id
		WHERE t.tenant_id = ? AND t.transaction_type = 'sale'
			AND t.created_at >= ? AND t.created_at <= ?`

	queryPaymentMethods = `
		SELECT
			payment_method,
			COUNT(*) AS transaction_count,
			COALESCE(SUM(total_amount), 0) AS total_amount
		FROM transactions
		WHERE tenant_id = ? AND transaction_type = 'sale'
			AND created_at >= ? AND created_at <= ?
			AND payment_method IS NOT NULL
		GROUP BY payment_method
		ORDER BY total_amount DESC`

	queryCategorySales = `
		SELECT
			ii.category AS category,
			COALESCE(SUM(ti.quantity), 0) AS total_quantity,
			COALESCE(SUM(ti.subtotal), 0) AS total_revenue
		FROM transaction_items ti
		JOIN transactions t ON ti.transaction_id = t.id
		LEFT JOIN inventory_items ii ON ti.inventory_item_id = ii.id AND ii.tenant_id = t.tenant_id
		WHERE t.tenant_id = ? AND t.transaction_type = 'sale'
			AND t.created_at >= ? AND t.created_at <= ?
			AND ii.category IS NOT NULL
		GROUP BY ii.category
		ORDER BY total_revenue DESC`

	queryTopSellingItems = `
		SELECT
			ti.item_name AS name,
			COALESCE(SUM(ti.quantity), 0) AS total_quantity,
			COALESCE(SUM(ti.subtotal), 0) AS total_revenue
		FROM transaction_items ti
		JOIN transactions t ON ti.transaction_id = t.id
		WHERE t.tenant_id = ? AND t.transaction_type = 'sale'
			AND t.created_at >= ? AND t.created_at <= ?
		GROUP BY ti.item_name
		ORDER BY total_revenue DESC
		LIMIT ?`

	queryDailySales = `
		SELECT
			CAST(DATE(created_at) AS TEXT) AS date,
			COALESCE(SUM(total_amount), 0) AS amount
		FROM transactions
		WHERE tenant_id = ? AND transaction_type = 'sale'
			AND created_at >= ? AND created_at <= ?
		GROUP BY DATE(created_at)
		ORDER BY date ASC`

	queryInventoryStats = `
		SELECT
			COUNT(CASE WHEN quantity <= reorder_level THEN 1 END) AS low_stock_count,
			COALESCE(SUM(quantity * selling_price), 0) AS inventory_value
		FROM inventory_items
		WHERE tenant_id = ?`
)

func (r *reportRepo) SalesSummary(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (*SalesSummary, error) {
	var summary SalesSummary
	args := []interface{}{tenantID, start.UTC(), end.UTC()}

	if err := r.db.GetContext(ctx, &summary, r.db.Rebind(querySalesSummary), args...); err != nil {
		return nil, err
	}
	if err := r.db.GetContext(ctx, &summary.COGS, r.db.Rebind(queryCOGS), args...); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *reportRepo) PaymentMethods(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]PaymentMethodTotal, error) {
	rows := []PaymentMethodTotal{}
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(queryPaymentMethods), tenantID, start.UTC(), end.UTC())
	return rows, err
}

func (r *reportRepo) CategorySales(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]CategorySales, error) {
	rows := []CategorySales{}
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(queryCategorySales), tenantID, start.UTC(), end.UTC())
	return rows, err
}

func (r *reportRepo) TopSellingItems(ctx context.Context, tenantID uuid.UUID, start, end time.Time, limit int) ([]ItemSales, error) {
	rows := []ItemSales{}
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(queryTopSellingItems), tenantID, start.UTC(), end.UTC(), limit)
	return rows, err
}

func (r *reportRepo) DailySales(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]DailySales, error) {
	rows := []DailySales{}
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(queryDailySales), tenantID, start.UTC(), end.UTC())
	return rows, err
}

func (r *reportRepo) InventoryStats(ctx context.Context, tenantID uuid.UUID) (*InventoryStats, error) {
	var stats InventoryStats
	if err := r.db.GetContext(ctx, &stats, r.db.Rebind(queryInventoryStats), tenantID); err != nil {
		return nil, err
	}
	return &stats, nil
}
