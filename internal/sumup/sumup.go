// Package sumup builds the deep-link handoff to the SumUp merchant app.
// The app is an opaque external payment channel: the link carries the
// amount and a correlation id, and the result comes back later through the
// payment callback endpoint.
package sumup

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const scheme = "sumupmerchant://pay/1.0"

const (
	maxAmount         = 10000
	maxForeignTxIDLen = 128
)

var supportedCurrencies = map[string]bool{
	"CZK": true,
	"EUR": true,
	"USD": true,
	"GBP": true,
	"CHF": true,
	"PLN": true,
	"HUF": true,
}

// PaymentParams describe one payment handoff.
type PaymentParams struct {
	AffiliateKey    string
	Amount          float64
	Currency        string
	Title           string
	ForeignTxID     string
	CallbackSuccess string
	CallbackFail    string
}

// Validate enforces the limits the merchant app rejects silently:
// positive amount capped at 10000, a supported currency and an ASCII
// correlation id of at most 128 characters.
func Validate(p PaymentParams) error {
	if strings.TrimSpace(p.AffiliateKey) == "" {
		return fmt.Errorf("affiliate key is required")
	}
	if p.Amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if p.Amount > maxAmount {
		return fmt.Errorf("amount %.2f exceeds the %d limit", p.Amount, maxAmount)
	}
	if !supportedCurrencies[p.Currency] {
		return fmt.Errorf("unsupported currency %q", p.Currency)
	}
	txID := strings.TrimSpace(p.ForeignTxID)
	if txID == "" {
		return fmt.Errorf("foreign transaction id is required")
	}
	if len(txID) > maxForeignTxIDLen {
		return fmt.Errorf("foreign transaction id exceeds %d characters", maxForeignTxIDLen)
	}
	for _, r := range txID {
		if r > 127 {
			return fmt.Errorf("foreign transaction id must be ASCII")
		}
	}
	return nil
}

// PaymentURL renders the deep link for the merchant app.
func PaymentURL(p PaymentParams) (string, error) {
	if err := Validate(p); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("affiliate-key", p.AffiliateKey)
	q.Set("amount", fmt.Sprintf("%.2f", p.Amount))
	q.Set("currency", p.Currency)
	if strings.TrimSpace(p.Title) != "" {
		q.Set("title", p.Title)
	}
	q.Set("foreign-tx-id", strings.TrimSpace(p.ForeignTxID))
	if p.CallbackSuccess != "" {
		q.Set("callbacksuccess", p.CallbackSuccess)
	}
	if p.CallbackFail != "" {
		q.Set("callbackfail", p.CallbackFail)
	}

	return scheme + "?" + q.Encode(), nil
}

// NewForeignTxID returns the correlation id used both in the deep link and
// on the eventual sale record.
func NewForeignTxID() string {
	return "TX-" + uuid.NewString()
}

const documentIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewDocumentID returns the 10-character human-facing sale code printed on
// receipts.
func NewDocumentID() string {
	var b strings.Builder
	b.Grow(10)
	for i := 0; i < 10; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(documentIDAlphabet))))
		if err != nil {
			// crypto/rand should not fail; fall back to a uuid-derived rune.
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
		}
		b.WriteByte(documentIDAlphabet[n.Int64()])
	}
	return b.String()
}
