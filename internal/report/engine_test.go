package report

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"uctarna/backend/internal/domain"
	"uctarna/backend/internal/store"
	"uctarna/backend/internal/store/memory"
)

type spyCache struct {
	mu      sync.Mutex
	entries map[string]*domain.ClosingReport
	sets    int
	hits    int
}

func newSpyCache() *spyCache {
	return &spyCache{entries: map[string]*domain.ClosingReport{}}
}

func (c *spyCache) Get(_ context.Context, key string) (*domain.ClosingReport, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if report, ok := c.entries[key]; ok {
		c.hits++
		return report, true, nil
	}
	return nil, false, nil
}

func (c *spyCache) Set(_ context.Context, key string, value *domain.ClosingReport, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	c.sets++
	return nil
}

func seedSale(t *testing.T, repo store.Repository, sale domain.Sale) {
	t.Helper()
	if _, err := repo.CreateSale(context.Background(), sale); err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
}

func TestResolveWindowDay(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)

	win, err := ResolveWindow(PeriodDay, "", "", now)
	if err != nil {
		t.Fatalf("ResolveWindow: %v", err)
	}
	wantFrom := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if !win.From.Equal(wantFrom) || !win.To.Equal(wantFrom.Add(24*time.Hour)) {
		t.Fatalf("unexpected default day window: %v .. %v", win.From, win.To)
	}

	win, err = ResolveWindow(PeriodDay, "2026-03-01", "2026-03-03", now)
	if err != nil {
		t.Fatalf("ResolveWindow range: %v", err)
	}
	if !win.To.Equal(time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end date should be inclusive, got To=%v", win.To)
	}

	if _, err := ResolveWindow(PeriodDay, "not-a-date", "", now); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad date, got %v", err)
	}
	if _, err := ResolveWindow(PeriodDay, "2026-03-10", "2026-03-01", now); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for inverted range, got %v", err)
	}
}

func TestResolveWindowMonthAndTotal(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)

	win, err := ResolveWindow(PeriodMonth, "", "", now)
	if err != nil {
		t.Fatalf("ResolveWindow month: %v", err)
	}
	if !win.From.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) ||
		!win.To.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected month window: %v .. %v", win.From, win.To)
	}

	win, err = ResolveWindow(PeriodTotal, "", "", now)
	if err != nil {
		t.Fatalf("ResolveWindow total: %v", err)
	}
	if !win.To.After(now) {
		t.Fatalf("total window should cover now, got To=%v", win.To)
	}

	if _, err := ResolveWindow("week", "", "", now); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown period, got %v", err)
	}
}

func TestGenerateRejectsEmptyWindow(t *testing.T) {
	repo := memory.NewSeeded()
	engine := NewEngine(repo, nil, time.Minute)

	win := Window{Period: PeriodDay,
		From: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)}
	if _, err := engine.Generate(context.Background(), "main-store", win); !errors.Is(err, ErrNoSales) {
		t.Fatalf("expected ErrNoSales, got %v", err)
	}
}

func TestGenerateDayBoundaryIsExclusive(t *testing.T) {
	repo := memory.NewSeeded()
	engine := NewEngine(repo, nil, time.Minute)

	// One sale just before midnight, one at exactly midnight. Each must
	// land in exactly one day's window.
	seedSale(t, repo, domain.Sale{
		ID: "sale-late", StoreID: "main-store",
		PaymentMethod: domain.PaymentMethodCash,
		Currency:      domain.CurrencyCZK,
		Items:         []domain.CartItem{{ItemID: "i1", ProductID: "prod-caj", ProductName: "Čaj", UnitPrice: 40, Quantity: 1}},
		TotalAmount:   40, FinalAmount: 40, PaidAmount: 40,
		CreatedAt: time.Date(2026, 3, 14, 23, 59, 59, 999000000, time.UTC),
	})
	seedSale(t, repo, domain.Sale{
		ID: "sale-midnight", StoreID: "main-store",
		PaymentMethod: domain.PaymentMethodCash,
		Currency:      domain.CurrencyCZK,
		Items:         []domain.CartItem{{ItemID: "i2", ProductID: "prod-caj", ProductName: "Čaj", UnitPrice: 40, Quantity: 1}},
		TotalAmount:   40, FinalAmount: 40, PaidAmount: 40,
		CreatedAt: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	})

	day14 := Window{Period: PeriodDay,
		From: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)}
	report, err := engine.Generate(context.Background(), "main-store", day14)
	if err != nil {
		t.Fatalf("Generate day 14: %v", err)
	}
	if report.SaleCount != 1 {
		t.Fatalf("expected exactly 1 sale on day 14, got %d", report.SaleCount)
	}

	day15 := Window{Period: PeriodDay,
		From: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)}
	report, err = engine.Generate(context.Background(), "main-store", day15)
	if err != nil {
		t.Fatalf("Generate day 15: %v", err)
	}
	if report.SaleCount != 1 {
		t.Fatalf("expected the midnight sale on day 15 only, got %d", report.SaleCount)
	}
}

func TestGenerateRollsUpByProductName(t *testing.T) {
	repo := memory.NewSeeded()
	engine := NewEngine(repo, nil, time.Minute)
	created := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	seedSale(t, repo, domain.Sale{
		StoreID:       "main-store",
		PaymentMethod: domain.PaymentMethodCash,
		Currency:      domain.CurrencyCZK,
		Items: []domain.CartItem{
			{ItemID: "i1", ProductID: "prod-espresso", ProductName: "Espresso", UnitPrice: 45, Quantity: 2},
			{ItemID: "i2", ProductID: "prod-burger", ProductName: "Burger", UnitPrice: 149, Quantity: 1},
		},
		TotalAmount: 239, FinalAmount: 239, PaidAmount: 300, ChangeAmount: 61,
		CreatedAt: created,
	})
	seedSale(t, repo, domain.Sale{
		StoreID:       "main-store",
		PaymentMethod: domain.PaymentMethodCash,
		Currency:      domain.CurrencyCZK,
		Items: []domain.CartItem{
			{ItemID: "i3", ProductID: "prod-espresso", ProductName: "Espresso", UnitPrice: 45, Quantity: 1},
			{ItemID: "i4", ProductID: "gone", ProductName: "Sezónní punč", UnitPrice: 60, Quantity: 1},
		},
		TotalAmount: 105, FinalAmount: 105, PaidAmount: 105,
		CreatedAt: created.Add(time.Hour),
	})

	win := Window{Period: PeriodDay,
		From: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)}
	report, err := engine.Generate(context.Background(), "main-store", win)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if report.SaleCount != 2 || report.CustomerCount != 2 {
		t.Fatalf("expected 2 sales / 2 customers, got %d / %d", report.SaleCount, report.CustomerCount)
	}
	if math.Abs(report.TotalRevenue-344) > 1e-9 {
		t.Fatalf("expected revenue 344, got %.2f", report.TotalRevenue)
	}
	if len(report.Products) != 3 {
		t.Fatalf("expected 3 product rows, got %d", len(report.Products))
	}
	if report.Products[0].ProductName != "Burger" {
		t.Fatalf("expected rows sorted by revenue desc, top was %s", report.Products[0].ProductName)
	}
	for _, row := range report.Products {
		switch row.ProductName {
		case "Espresso":
			if row.Quantity != 3 {
				t.Fatalf("expected merged Espresso quantity 3, got %d", row.Quantity)
			}
			if math.Abs(row.Cost-27) > 1e-9 {
				t.Fatalf("expected Espresso cost 3*9=27, got %.2f", row.Cost)
			}
		case "Sezónní punč":
			if row.Cost != 0 {
				t.Fatalf("product missing from catalog must cost 0, got %.2f", row.Cost)
			}
		}
	}
}

func TestGenerateNormalizesEURSalesWithStoredRate(t *testing.T) {
	repo := memory.NewSeeded()
	engine := NewEngine(repo, nil, time.Minute)
	created := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	seedSale(t, repo, domain.Sale{
		StoreID:       "main-store",
		PaymentMethod: domain.PaymentMethodCard,
		Currency:      domain.CurrencyEUR,
		EURRate:       24.5,
		Items: []domain.CartItem{
			{ItemID: "i1", ProductID: "prod-burger", ProductName: "Burger", UnitPrice: 149, Quantity: 1},
		},
		TotalAmount: 6.08, FinalAmount: 6.08, OriginalAmountCZK: 149,
		CreatedAt: created,
	})
	seedSale(t, repo, domain.Sale{
		StoreID:       "main-store",
		PaymentMethod: domain.PaymentMethodCard,
		Currency:      domain.CurrencyEUR,
		EURRate:       24.5,
		Items: []domain.CartItem{
			{ItemID: "i2", ProductID: "prod-caj", ProductName: "Čaj", UnitPrice: 40, Quantity: 1},
		},
		TotalAmount: 2, FinalAmount: 2,
		CreatedAt: created.Add(time.Minute),
	})

	win := Window{Period: PeriodDay,
		From: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)}
	report, err := engine.Generate(context.Background(), "main-store", win)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// First sale uses the captured CZK figure, second falls back to the
	// sale's own rate (2 EUR * 24.5).
	want := 149.0 + 49.0
	if math.Abs(report.TotalRevenue-want) > 1e-9 {
		t.Fatalf("expected revenue %.2f, got %.2f", want, report.TotalRevenue)
	}
	if math.Abs(report.CardRevenue-want) > 1e-9 {
		t.Fatalf("expected card revenue %.2f, got %.2f", want, report.CardRevenue)
	}
	if math.Abs(report.CollectedEUR-8.08) > 1e-9 {
		t.Fatalf("expected collected EUR 8.08, got %.2f", report.CollectedEUR)
	}
}

func TestGenerateDrawerReconciliation(t *testing.T) {
	repo := memory.NewSeeded()
	engine := NewEngine(repo, nil, time.Minute)
	created := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	// CZK cash sale stays in the drawer whole.
	seedSale(t, repo, domain.Sale{
		StoreID:       "main-store",
		PaymentMethod: domain.PaymentMethodCash,
		Currency:      domain.CurrencyCZK,
		Items: []domain.CartItem{
			{ItemID: "i1", ProductID: "prod-burger", ProductName: "Burger", UnitPrice: 149, Quantity: 1},
		},
		TotalAmount: 149, FinalAmount: 149, PaidAmount: 200, ChangeAmount: 51,
		CreatedAt: created,
	})
	// EUR tender with CZK change: euros come in, crowns go out.
	seedSale(t, repo, domain.Sale{
		StoreID:       "main-store",
		PaymentMethod: domain.PaymentMethodCash,
		Currency:      domain.CurrencyCZK,
		EURRate:       25,
		Items: []domain.CartItem{
			{ItemID: "i2", ProductID: "prod-caj", ProductName: "Čaj", UnitPrice: 40, Quantity: 1},
		},
		TotalAmount: 40, FinalAmount: 40,
		PaidAmount: 2, PaidCurrency: domain.CurrencyEUR, ChangeAmount: 10,
		CreatedAt: created.Add(time.Minute),
	})

	win := Window{Period: PeriodDay,
		From: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)}
	report, err := engine.Generate(context.Background(), "main-store", win)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if math.Abs(report.RetainedCZK-(149-10)) > 1e-9 {
		t.Fatalf("expected retained CZK 139, got %.2f", report.RetainedCZK)
	}
	if math.Abs(report.CollectedEUR-2) > 1e-9 {
		t.Fatalf("expected collected EUR 2, got %.2f", report.CollectedEUR)
	}
}

func TestGenerateCountsRefunds(t *testing.T) {
	repo := memory.NewSeeded()
	engine := NewEngine(repo, nil, time.Minute)
	created := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	seedSale(t, repo, domain.Sale{
		StoreID:       "main-store",
		PaymentMethod: domain.PaymentMethodCash,
		Currency:      domain.CurrencyCZK,
		Items: []domain.CartItem{
			{ItemID: "i1", ProductID: "prod-burger", ProductName: "Burger", UnitPrice: 149, Quantity: 1},
		},
		TotalAmount: 149, FinalAmount: 149,
		CreatedAt: created,
	})
	seedSale(t, repo, domain.Sale{
		StoreID:       "main-store",
		PaymentMethod: domain.PaymentMethodCash,
		Currency:      domain.CurrencyCZK,
		IsRefund:      true, RefundAmount: 45,
		Items: []domain.CartItem{
			{ItemID: "i2", ProductID: "prod-espresso", ProductName: "Espresso", UnitPrice: 45, Quantity: -1},
		},
		TotalAmount: -45, FinalAmount: -45,
		CreatedAt: created.Add(time.Minute),
	})

	win := Window{Period: PeriodDay,
		From: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)}
	report, err := engine.Generate(context.Background(), "main-store", win)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if report.RefundCount != 1 || report.CustomerCount != 1 {
		t.Fatalf("expected 1 refund / 1 customer, got %d / %d", report.RefundCount, report.CustomerCount)
	}
	if math.Abs(report.RefundedTotal-45) > 1e-9 {
		t.Fatalf("expected refunded total 45, got %.2f", report.RefundedTotal)
	}
	if math.Abs(report.TotalRevenue-104) > 1e-9 {
		t.Fatalf("expected net revenue 104, got %.2f", report.TotalRevenue)
	}
}

func TestGenerateUsesCache(t *testing.T) {
	repo := memory.NewSeeded()
	spy := newSpyCache()
	engine := NewEngine(repo, spy, time.Minute)
	created := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	seedSale(t, repo, domain.Sale{
		StoreID:       "main-store",
		PaymentMethod: domain.PaymentMethodCash,
		Currency:      domain.CurrencyCZK,
		Items: []domain.CartItem{
			{ItemID: "i1", ProductID: "prod-caj", ProductName: "Čaj", UnitPrice: 40, Quantity: 1},
		},
		TotalAmount: 40, FinalAmount: 40,
		CreatedAt: created,
	})

	win := Window{Period: PeriodDay,
		From: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)}
	if _, err := engine.Generate(context.Background(), "main-store", win); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	if _, err := engine.Generate(context.Background(), "main-store", win); err != nil {
		t.Fatalf("second Generate: %v", err)
	}

	if spy.sets != 1 {
		t.Fatalf("expected one cache fill, got %d", spy.sets)
	}
	if spy.hits != 1 {
		t.Fatalf("expected one cache hit, got %d", spy.hits)
	}
}

func TestRenderOutputs(t *testing.T) {
	report := &domain.ClosingReport{
		StoreID: "main-store", StoreName: "Účtárna <bistro>",
		Period: PeriodDay,
		From:   time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Products: []domain.ReportProductRow{
			{ProductName: "Burger", Quantity: 2, Revenue: 298, Cost: 144, Profit: 154},
		},
	}

	html := ToHTML(report)
	if !strings.Contains(html, "Účtárna &lt;bistro&gt;") {
		t.Fatalf("store name must be HTML-escaped, got: %s", html)
	}
	if !strings.Contains(html, "Burger") {
		t.Fatalf("product rows missing from HTML output")
	}

	csv := ToCSV(report)
	if !strings.Contains(csv, "summary,store_id,main-store") {
		t.Fatalf("CSV missing summary rows: %s", csv)
	}
	if !strings.Contains(csv, "product,Burger_quantity,2") {
		t.Fatalf("CSV missing product rows: %s", csv)
	}

	text := ToText(report)
	if !strings.Contains(text, "Burger: 2 ks") {
		t.Fatalf("text body missing product line: %s", text)
	}
}
