package service

import (
	"context"
	"fmt"
	"time"

	"go-pos-inventory/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	topSellingLimit   = 10
	dashboardTopItems = 5
	maxDashboardDays  = 366
)

type SalesReport struct {
	TotalSales        decimal.Decimal `json:"total_sales"`
	TotalExpenses     decimal.Decimal `json:"total_expenses"`
	COGS              decimal.Decimal `json:"cogs"`
	GrossProfit       decimal.Decimal `json:"gross_profit"`
	NetProfit         decimal.Decimal `json:"net_profit"`
	TotalTransactions int64           `json:"total_transactions"`
	PeriodStart       time.Time       `json:"period_start"`
	PeriodEnd         time.Time       `json:"period_end"`
}

type DashboardStats struct {
	TotalSales       decimal.Decimal         `json:"total_sales"`
	COGS             decimal.Decimal         `json:"cogs"`
	GrossProfit      decimal.Decimal         `json:"gross_profit"`
	TransactionCount int64                   `json:"transaction_count"`
	LowStockCount    int64                   `json:"low_stock_count"`
	InventoryValue   decimal.Decimal         `json:"inventory_value"`
	DailySales       []repository.DailySales `json:"daily_sales"`
	TopItems         []repository.ItemSales  `json:"top_items"`
}

type ReportService interface {
	SalesReport(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (*SalesReport, error)
	PaymentMethods(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]repository.PaymentMethodTotal, error)
	CategorySales(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]repository.CategorySales, error)
	TopSellingItems(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]repository.ItemSales, error)
	// DashboardStats covers the last `days` days, today included
	DashboardStats(ctx context.Context, tenantID uuid.UUID, days int) (*DashboardStats, error)
}

type reportService struct {
	reportRepo repository.ReportRepository
	cache      ReportCache
	logger     *zap.Logger
	now        func() time.Time
}

func NewReportService(repo repository.ReportRepository, cache ReportCache, logger *zap.Logger) ReportService {
	if cache == nil {
		cache = nopCache{}
	}
	return &reportService{
		reportRepo: repo,
		cache:      cache,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// cached is a read-through helper; cache failures only cost a recomputation
func cached[T any](ctx context.Context, s *reportService, tenantID uuid.UUID, key string, load func() (T, error)) (T, error) {
	var out T
	version, verr := s.cache.Version(ctx, tenantID)
	if verr == nil && s.cache.Get(ctx, tenantID, version, key, &out) {
		return out, nil
	}

	out, err := load()
	if err != nil {
		s.logger.Error("report query failed", zap.String("report", key), zap.Error(err))
		var zero T
		return zero, storageErr("report "+key, err)
	}

	// Written under the version read before load: if a write committed meanwhile, the
	// entry is already superseded.
	if verr == nil {
		s.cache.Set(ctx, tenantID, version, key, out)
	}
	return out, nil
}

func periodKey(name string, start, end time.Time) string {
	return fmt.Sprintf("%s:%d:%d", name, start.UnixNano(), end.UnixNano())
}

func checkPeriod(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return validationf("startDate and endDate are required")
	}
	if end.Before(start) {
		return validationf("endDate must not be before startDate")
	}
	return nil
}

func (s *reportService) SalesReport(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (*SalesReport, error) {
	if err := checkPeriod(start, end); err != nil {
		return nil, err
	}

	return cached(ctx, s, tenantID, periodKey("sales", start, end), func() (*SalesReport, error) {
		summary, err := s.reportRepo.SalesSummary(ctx, tenantID, start, end)
		if err != nil {
			return nil, err
		}

		gross := summary.TotalSales.Sub(summary.COGS)
		return &SalesReport{
			TotalSales:        summary.TotalSales,
			TotalExpenses:     summary.TotalExpenses,
			COGS:              summary.COGS,
			GrossProfit:       gross,
			NetProfit:         gross.Sub(summary.TotalExpenses),
			TotalTransactions: summary.TransactionCount,
			PeriodStart:       start.UTC(),
			PeriodEnd:         end.UTC(),
		}, nil
	})
}

func (s *reportService) PaymentMethods(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]repository.PaymentMethodTotal, error) {
	if err := checkPeriod(start, end); err != nil {
		return nil, err
	}
	return cached(ctx, s, tenantID, periodKey("payment-methods", start, end), func() ([]repository.PaymentMethodTotal, error) {
		return s.reportRepo.PaymentMethods(ctx, tenantID, start, end)
	})
}

func (s *reportService) CategorySales(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]repository.CategorySales, error) {
	if err := checkPeriod(start, end); err != nil {
		return nil, err
	}
	return cached(ctx, s, tenantID, periodKey("category-sales", start, end), func() ([]repository.CategorySales, error) {
		return s.reportRepo.CategorySales(ctx, tenantID, start, end)
	})
}

func (s *reportService) TopSellingItems(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]repository.ItemSales, error) {
	if err := checkPeriod(start, end); err != nil {
		return nil, err
	}
	return cached(ctx, s, tenantID, periodKey("top-selling-items", start, end), func() ([]repository.ItemSales, error) {
		return s.reportRepo.TopSellingItems(ctx, tenantID, start, end, topSellingLimit)
	})
}

func (s *reportService) DashboardStats(ctx context.Context, tenantID uuid.UUID, days int) (*DashboardStats, error) {
	if days <= 0 || days > maxDashboardDays {
		return nil, validationf("days must be between 1 and %d", maxDashboardDays)
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -(days - 1))
	end := today.AddDate(0, 0, 1).Add(-time.Nanosecond)

	return cached(ctx, s, tenantID, periodKey("dashboard", start, end), func() (*DashboardStats, error) {
		summary, err := s.reportRepo.SalesSummary(ctx, tenantID, start, end)
		if err != nil {
			return nil, err
		}
		stock, err := s.reportRepo.InventoryStats(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		daily, err := s.reportRepo.DailySales(ctx, tenantID, start, end)
		if err != nil {
			return nil, err
		}
		top, err := s.reportRepo.TopSellingItems(ctx, tenantID, start, end, dashboardTopItems)
		if err != nil {
			return nil, err
		}

		return &DashboardStats{
			TotalSales:       summary.TotalSales,
			COGS:             summary.COGS,
			GrossProfit:      summary.TotalSales.Sub(summary.COGS),
			TransactionCount: summary.TransactionCount,
			LowStockCount:    stock.LowStockCount,
			InventoryValue:   stock.InventoryValue,
			DailySales:       daily,
			TopItems:         top,
		}, nil
	})
}
