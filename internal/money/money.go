// Package money holds the cart/checkout arithmetic: discount application,
// CZK/EUR conversion and change computation. Everything here is a pure
// function over float64 base units (CZK unless stated otherwise).
package money

import (
	"math"

	"uctarna/backend/internal/domain"
)

// DefaultEURRate is used when a store has no explicit rate configured.
const DefaultEURRate = 25.0

// DiscountAmount computes the cart-level discount. A fixed-amount discount
// is not clamped to the subtotal: a discount larger than the
// cart total yields a negative final amount, which downstream code treats
// as a refund.
func DiscountAmount(subtotal float64, d *domain.Discount) float64 {
	if d == nil {
		return 0
	}
	switch d.Kind {
	case domain.DiscountKindPercentage:
		return subtotal * d.Value / 100
	case domain.DiscountKindFixedAmount:
		return d.Value
	default:
		return 0
	}
}

// Totals derives the cart amounts. Quantities are signed, so return lines
// subtract from the subtotal.
func Totals(items []domain.CartItem, d *domain.Discount) domain.CartTotals {
	subtotal := 0.0
	for _, item := range items {
		subtotal += item.UnitPrice * float64(item.Quantity)
	}
	discount := DiscountAmount(subtotal, d)
	final := subtotal - discount
	return domain.CartTotals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		FinalAmount:    final,
		IsRefund:       final < 0,
	}
}

func CZKToEUR(amountCZK float64, rate float64) float64 {
	if rate <= 0 {
		rate = DefaultEURRate
	}
	return amountCZK / rate
}

func EURToCZK(amountEUR float64, rate float64) float64 {
	if rate <= 0 {
		rate = DefaultEURRate
	}
	return amountEUR * rate
}

// ChangeResult carries the computed change. ChangeCZK may be negative when
// the tender does not cover the amount due; callers clamp for display but
// must surface Insufficient as a warning.
type ChangeResult struct {
	ChangeCZK    float64
	ChangeEUR    float64
	PaidCZK      float64
	Insufficient bool
}

// Change computes the change for a settlement. There are two distinct code
// paths that are intentionally NOT unified:
//
//   - pay-in-CZK: the tender is converted to CZK first (if handed over in
//     euros) and the change is a CZK-to-CZK subtraction;
//   - pay-in-EUR: the amount due is itself converted to euros, change is a
//     EUR-to-EUR subtraction and only the result is converted back to CZK.
//
// The two paths round on a different basis and may disagree for the same
// raw inputs; that divergence is part of the settlement contract.
func Change(dueCZK float64, tendered float64, tenderedCurrency string, payInEUR bool, rate float64) ChangeResult {
	if rate <= 0 {
		rate = DefaultEURRate
	}

	if payInEUR {
		dueEUR := dueCZK / rate
		changeEUR := tendered - dueEUR
		return ChangeResult{
			ChangeCZK:    changeEUR * rate,
			ChangeEUR:    changeEUR,
			PaidCZK:      tendered * rate,
			Insufficient: changeEUR < 0,
		}
	}

	paidCZK := tendered
	if tenderedCurrency == domain.CurrencyEUR {
		paidCZK = tendered * rate
	}
	change := paidCZK - dueCZK
	return ChangeResult{
		ChangeCZK:    change,
		PaidCZK:      paidCZK,
		Insufficient: change < 0,
	}
}

// ClampForDisplay maps negative change to zero ("nothing to return"). The
// underlying negative value still travels via ChangeResult.Insufficient.
func ClampForDisplay(amount float64) float64 {
	if amount < 0 {
		return 0
	}
	return amount
}

func Round2(amount float64) float64 {
	return math.Round(amount*100) / 100
}
