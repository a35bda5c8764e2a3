package money

import (
	"math"
	"testing"

	"uctarna/backend/internal/domain"
)

func almostEqual(a float64, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPercentageDiscountFullValueZeroesTheCart(t *testing.T) {
	d := &domain.Discount{Kind: domain.DiscountKindPercentage, Value: 100}
	got := DiscountAmount(250, d)
	if !almostEqual(got, 250) {
		t.Fatalf("expected discount 250, got %v", got)
	}
	if final := 250 - got; !almostEqual(final, 0) {
		t.Fatalf("expected final amount 0, got %v", final)
	}
}

func TestFixedDiscountIsNotClamped(t *testing.T) {
	d := &domain.Discount{Kind: domain.DiscountKindFixedAmount, Value: 300}
	got := DiscountAmount(250, d)
	if !almostEqual(got, 300) {
		t.Fatalf("expected discount 300, got %v", got)
	}
	totals := Totals([]domain.CartItem{{UnitPrice: 250, Quantity: 1}}, d)
	if !almostEqual(totals.FinalAmount, -50) {
		t.Fatalf("expected final amount -50, got %v", totals.FinalAmount)
	}
	if !totals.IsRefund {
		t.Fatalf("expected negative final amount to flag refund mode")
	}
}

func TestNegativeQuantityContributesNegatively(t *testing.T) {
	totals := Totals([]domain.CartItem{
		{UnitPrice: 100, Quantity: 2},
		{UnitPrice: 80, Quantity: -1},
	}, nil)
	if !almostEqual(totals.Subtotal, 120) {
		t.Fatalf("expected subtotal 120, got %v", totals.Subtotal)
	}
	if totals.IsRefund {
		t.Fatalf("positive final amount must not flag refund")
	}

	refund := Totals([]domain.CartItem{{UnitPrice: 80, Quantity: -2}}, nil)
	if !refund.IsRefund || !almostEqual(refund.FinalAmount, -160) {
		t.Fatalf("expected refund totals, got %+v", refund)
	}
}

func TestChangePathsDiverge(t *testing.T) {
	// 100 CZK due, rate 25, customer hands over 5 EUR.
	czkPath := Change(100, 5, domain.CurrencyEUR, false, 25)
	if !almostEqual(czkPath.PaidCZK, 125) {
		t.Fatalf("expected 5 EUR to convert to 125 CZK, got %v", czkPath.PaidCZK)
	}
	if !almostEqual(czkPath.ChangeCZK, 25) {
		t.Fatalf("pay-in-CZK path: expected change 25 CZK, got %v", czkPath.ChangeCZK)
	}

	eurPath := Change(100, 5, domain.CurrencyEUR, true, 25)
	if !almostEqual(eurPath.ChangeEUR, 1) {
		t.Fatalf("pay-in-EUR path: expected change 1 EUR, got %v", eurPath.ChangeEUR)
	}
	if !almostEqual(eurPath.ChangeCZK, 25) {
		t.Fatalf("pay-in-EUR path: expected change 25 CZK, got %v", eurPath.ChangeCZK)
	}

	// With a rate that does not divide evenly the two paths compute on a
	// different basis; both results must come from their own formula.
	odd := Change(100, 5, domain.CurrencyEUR, true, 24.37)
	wantEUR := 5 - 100/24.37
	if !almostEqual(odd.ChangeEUR, wantEUR) {
		t.Fatalf("expected EUR-basis change %v, got %v", wantEUR, odd.ChangeEUR)
	}
	if !almostEqual(odd.ChangeCZK, wantEUR*24.37) {
		t.Fatalf("expected back-converted change %v, got %v", wantEUR*24.37, odd.ChangeCZK)
	}
}

func TestInsufficientTenderSurfacesNegativeChange(t *testing.T) {
	res := Change(200, 150, domain.CurrencyCZK, false, 25)
	if !res.Insufficient {
		t.Fatalf("expected insufficient payment flag")
	}
	if !almostEqual(res.ChangeCZK, -50) {
		t.Fatalf("expected change -50, got %v", res.ChangeCZK)
	}
	if got := ClampForDisplay(res.ChangeCZK); got != 0 {
		t.Fatalf("expected display clamp to 0, got %v", got)
	}
}

func TestConversionRoundTrip(t *testing.T) {
	eur := CZKToEUR(250, 25)
	if !almostEqual(eur, 10) {
		t.Fatalf("expected 10 EUR, got %v", eur)
	}
	if back := EURToCZK(eur, 25); !almostEqual(back, 250) {
		t.Fatalf("expected 250 CZK, got %v", back)
	}
	// Zero rate falls back to the default.
	if got := CZKToEUR(50, 0); !almostEqual(got, 2) {
		t.Fatalf("expected default rate conversion 2 EUR, got %v", got)
	}
}
