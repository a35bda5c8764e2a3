package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"uctarna/backend/internal/cache"
	"uctarna/backend/internal/domain"
	"uctarna/backend/internal/store"
)

// ErrNoSales means the requested window holds no sales; the closing run is
// rejected instead of producing an empty document.
var ErrNoSales = errors.New("no sales in the requested window")

const (
	PeriodDay   = "day"
	PeriodMonth = "month"
	PeriodTotal = "total"
)

// totalWindowStart is the open lower bound used by the "total" period.
var totalWindowStart = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

type Window struct {
	Period string
	From   time.Time
	To     time.Time
}

// ResolveWindow turns a period plus optional dates into a half-open
// [From, To) interval in UTC. For "day", endDate widens the window to an
// inclusive date range; "month" covers the calendar month of startDate
// (or of now); "total" covers everything up to now.
func ResolveWindow(period string, startDate string, endDate string, now time.Time) (Window, error) {
	now = now.UTC()
	switch period {
	case PeriodDay:
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if startDate != "" {
			parsed, err := time.Parse("2006-01-02", startDate)
			if err != nil {
				return Window{}, store.ErrInvalidInput
			}
			day = parsed.UTC()
		}
		to := day.Add(24 * time.Hour)
		if endDate != "" {
			parsed, err := time.Parse("2006-01-02", endDate)
			if err != nil {
				return Window{}, store.ErrInvalidInput
			}
			to = parsed.UTC().Add(24 * time.Hour)
		}
		if !to.After(day) {
			return Window{}, store.ErrInvalidInput
		}
		return Window{Period: PeriodDay, From: day, To: to}, nil

	case PeriodMonth:
		anchor := now
		if startDate != "" {
			parsed, err := time.Parse("2006-01-02", startDate)
			if err != nil {
				return Window{}, store.ErrInvalidInput
			}
			anchor = parsed.UTC()
		}
		from := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Window{Period: PeriodMonth, From: from, To: from.AddDate(0, 1, 0)}, nil

	case PeriodTotal:
		return Window{Period: PeriodTotal, From: totalWindowStart, To: now.Add(time.Second)}, nil

	default:
		return Window{}, store.ErrInvalidInput
	}
}

// Engine builds closing reports. Results are cached per store and window;
// a cache failure degrades to recomputation, never to an error.
type Engine struct {
	repo     store.Repository
	cache    cache.ReportCache
	cacheTTL time.Duration
}

func NewEngine(repo store.Repository, reportCache cache.ReportCache, cacheTTL time.Duration) *Engine {
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Minute
	}
	return &Engine{repo: repo, cache: reportCache, cacheTTL: cacheTTL}
}

func (e *Engine) Generate(ctx context.Context, storeID string, win Window) (*domain.ClosingReport, error) {
	key := cacheKey(storeID, win)
	if cached, ok, err := e.cache.Get(ctx, key); err != nil {
		log.Printf("[report] WARN: cache get failed: %v", err)
	} else if ok {
		return cached, nil
	}

	sales, err := e.repo.ListSalesBetween(ctx, storeID, win.From, win.To)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, ErrNoSales
	}

	settings, err := e.repo.GetStoreSettings(ctx, storeID)
	if err != nil {
		return nil, err
	}
	catalog, err := e.repo.ListProducts(ctx, storeID)
	if err != nil {
		return nil, err
	}
	costByName := make(map[string]float64, len(catalog))
	for _, p := range catalog {
		costByName[p.Name] = p.Cost
	}

	report := e.build(storeID, settings.Name, win, sales, costByName)

	if err := e.cache.Set(ctx, key, report, e.cacheTTL); err != nil {
		log.Printf("[report] WARN: cache set failed: %v", err)
	}
	return report, nil
}

func (e *Engine) build(storeID string, storeName string, win Window, sales []domain.Sale, costByName map[string]float64) *domain.ClosingReport {
	report := &domain.ClosingReport{
		StoreID:     storeID,
		StoreName:   storeName,
		Period:      win.Period,
		From:        win.From,
		To:          win.To,
		GeneratedAt: time.Now().UTC(),
	}

	rowsByName := make(map[string]*domain.ReportProductRow)
	for _, sale := range sales {
		finalCZK := saleFinalCZK(sale)

		report.SaleCount++
		report.TotalRevenue += finalCZK
		report.TotalDiscounts += sale.DiscountAmount
		if sale.IsRefund {
			report.RefundCount++
			report.RefundedTotal += -finalCZK
		} else {
			report.CustomerCount++
		}

		switch sale.PaymentMethod {
		case domain.PaymentMethodCash:
			report.CashRevenue += finalCZK
			if sale.PaidCurrency == domain.CurrencyEUR {
				report.CollectedEUR += sale.PaidAmount - sale.ChangeAmountEUR
				if sale.ChangeAmountEUR == 0 {
					report.RetainedCZK -= sale.ChangeAmount
				}
			} else {
				report.RetainedCZK += finalCZK
			}
		case domain.PaymentMethodCard:
			report.CardRevenue += finalCZK
			if sale.Currency == domain.CurrencyEUR && sale.PaidAmount == 0 {
				report.CollectedEUR += sale.TotalAmount
			}
		}

		for _, item := range sale.Items {
			row := rowsByName[item.ProductName]
			if row == nil {
				row = &domain.ReportProductRow{ProductName: item.ProductName}
				rowsByName[item.ProductName] = row
			}
			lineRevenue := item.UnitPrice * float64(item.Quantity)
			lineCost := costByName[item.ProductName] * float64(item.Quantity)
			row.Quantity += item.Quantity
			row.Revenue += lineRevenue
			row.Cost += lineCost
			row.Profit += lineRevenue - lineCost
			report.TotalCost += lineCost
		}
	}
	report.TotalProfit = report.TotalRevenue - report.TotalCost

	report.Products = make([]domain.ReportProductRow, 0, len(rowsByName))
	for _, row := range rowsByName {
		report.Products = append(report.Products, *row)
	}
	slices.SortFunc(report.Products, func(a, b domain.ReportProductRow) int {
		if a.Revenue != b.Revenue {
			if a.Revenue > b.Revenue {
				return -1
			}
			return 1
		}
		switch {
		case a.ProductName < b.ProductName:
			return -1
		case a.ProductName > b.ProductName:
			return 1
		default:
			return 0
		}
	})

	return report
}

// saleFinalCZK normalizes a sale's final amount to CZK using the rate
// captured on the sale itself, not today's rate.
func saleFinalCZK(sale domain.Sale) float64 {
	if sale.Currency != domain.CurrencyEUR {
		return sale.FinalAmount
	}
	if sale.OriginalAmountCZK != 0 {
		return sale.OriginalAmountCZK
	}
	rate := sale.EURRate
	if rate <= 0 {
		rate = 25.0
	}
	return sale.FinalAmount * rate
}

func cacheKey(storeID string, win Window) string {
	return fmt.Sprintf("closing:%s:%s:%d:%d", storeID, win.Period, win.From.Unix(), win.To.Unix())
}
