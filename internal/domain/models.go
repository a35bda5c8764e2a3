package domain

import "time"

const (
	CurrencyCZK = "CZK"
	CurrencyEUR = "EUR"
)

const (
	PaymentMethodCash = "cash"
	PaymentMethodCard = "card"
)

const (
	DiscountKindPercentage  = "percentage"
	DiscountKindFixedAmount = "fixedAmount"
)

const (
	PaymentStatusSuccess      = "success"
	PaymentStatusFailed       = "failed"
	PaymentStatusInvalidState = "invalidstate"
)

const (
	StoreKindRetail = "prodejna"
	StoreKindBistro = "bistro"
)

// Product is a catalog entry. SoldCount is a running historical counter
// maintained by settlement (incremented per sold quantity, decremented on
// returns and sale deletion), not a stock level.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Cost      float64   `json:"cost"`
	SoldCount int64     `json:"sold_count"`
	IsExtra   bool      `json:"is_extra"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CartItem is one priced line in a cart or sale. Quantity is signed: a
// negative quantity is a return line. ParentItemID links an "extra" (e.g.
// a topping) to its base line; both remain first-class priced lines.
type CartItem struct {
	ItemID       string  `json:"item_id"`
	ProductID    string  `json:"product_id"`
	ProductName  string  `json:"product_name"`
	UnitPrice    float64 `json:"unit_price"`
	Quantity     int     `json:"quantity"`
	ParentItemID string  `json:"parent_item_id,omitempty"`
}

type Discount struct {
	Kind  string  `json:"kind"`
	Value float64 `json:"value"`
}

// Cart is the single per-store working cart, persisted latest-write-wins.
// ReturnMode is a one-shot toggle: the next added line gets quantity -1 and
// the toggle clears.
type Cart struct {
	Items      []CartItem `json:"items"`
	Discount   *Discount  `json:"discount,omitempty"`
	ReturnMode bool       `json:"return_mode"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CartTotals are the derived cart amounts. FinalAmount may be negative; a
// negative final amount flags refund-mode checkout.
type CartTotals struct {
	Subtotal       float64 `json:"subtotal"`
	DiscountAmount float64 `json:"discount_amount"`
	FinalAmount    float64 `json:"final_amount"`
	IsRefund       bool    `json:"is_refund"`
}

// PendingPurchase is a parked cart snapshot. Restoring it loads the items
// back into the working cart and deletes the snapshot.
type PendingPurchase struct {
	ID          string     `json:"id"`
	StoreID     string     `json:"store_id"`
	Items       []CartItem `json:"items"`
	Discount    *Discount  `json:"discount,omitempty"`
	TotalAmount float64    `json:"total_amount"`
	FinalAmount float64    `json:"final_amount"`
	Note        string     `json:"note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// PendingPayment is the local context persisted for a card payment while
// control is handed to the external payment app. No Sale exists until the
// success callback arrives; an orphaned context never touches inventory.
type PendingPayment struct {
	ForeignTxID    string     `json:"foreign_tx_id"`
	StoreID        string     `json:"store_id"`
	UserID         string     `json:"user_id"`
	Items          []CartItem `json:"items"`
	Discount       *Discount  `json:"discount,omitempty"`
	DiscountAmount float64    `json:"discount_amount"`
	Amount         float64    `json:"amount"`
	Currency       string     `json:"currency"`
	CustomerName   string     `json:"customer_name,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type ExternalPaymentData struct {
	ForeignTxID      string     `json:"foreign_tx_id"`
	TxCode           string     `json:"tx_code,omitempty"`
	Status           string     `json:"status"`
	CallbackReceived bool       `json:"callback_received"`
	CallbackAt       *time.Time `json:"callback_at,omitempty"`
}

// Sale is an immutable settled transaction. TotalAmount is in the currency
// the sale settled in; OriginalAmountCZK keeps the CZK figure for EUR
// sales. ChangeAmount is always expressed in CZK; ChangeAmountEUR is set
// when change was handed out in euros. Only dispatch transitions and
// deletion-with-inventory-reversal may mutate a sale after creation.
type Sale struct {
	ID                string               `json:"id"`
	DocumentID        string               `json:"document_id"`
	StoreID           string               `json:"store_id"`
	UserID            string               `json:"user_id,omitempty"`
	Items             []CartItem           `json:"items"`
	TotalAmount       float64              `json:"total_amount"`
	Currency          string               `json:"currency"`
	EURRate           float64              `json:"eur_rate,omitempty"`
	OriginalAmountCZK float64              `json:"original_amount_czk,omitempty"`
	PaymentMethod     string               `json:"payment_method"`
	IsRefund          bool                 `json:"is_refund"`
	RefundAmount      float64              `json:"refund_amount,omitempty"`
	PaidAmount        float64              `json:"paid_amount,omitempty"`
	PaidCurrency      string               `json:"paid_currency,omitempty"`
	ChangeAmount      float64              `json:"change_amount,omitempty"`
	ChangeAmountEUR   float64              `json:"change_amount_eur,omitempty"`
	Discount          *Discount            `json:"discount,omitempty"`
	DiscountAmount    float64              `json:"discount_amount,omitempty"`
	FinalAmount       float64              `json:"final_amount"`
	CustomerName      string               `json:"customer_name,omitempty"`
	ExternalPayment   *ExternalPaymentData `json:"external_payment,omitempty"`
	Prepared          bool                 `json:"prepared"`
	PreparedAt        *time.Time           `json:"prepared_at,omitempty"`
	Served            bool                 `json:"served"`
	ServedAt          *time.Time           `json:"served_at,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
}

const (
	SaleEventCreated = "created"
	SaleEventUpdated = "updated"
	SaleEventDeleted = "deleted"
)

// SaleEvent is emitted by stores that support live sale subscriptions
// (dispatch board updates).
type SaleEvent struct {
	Type string `json:"type"`
	Sale Sale   `json:"sale"`
}

// StoreSettings hold the per-store operating configuration read by
// checkout (EUR rate, card redirect) and reporting (recipient address).
type StoreSettings struct {
	StoreID         string    `json:"store_id"`
	Name            string    `json:"name"`
	Kind            string    `json:"kind"`
	EURRate         float64   `json:"eur_rate"`
	RedirectToSumUp bool      `json:"redirect_to_sumup"`
	ReportEmail     string    `json:"report_email,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ReportProductRow is one product's rollup in a closing report, keyed by
// the name captured on the sale line. Cost comes from the current catalog;
// products no longer in the catalog report cost 0.
type ReportProductRow struct {
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Revenue     float64 `json:"revenue"`
	Cost        float64 `json:"cost"`
	Profit      float64 `json:"profit"`
}

// ClosingReport is the sales closing (uzávěrka) for one store and window.
// Amounts are CZK; EUR sales are normalized with the rate stored on each
// sale. CollectedEUR and RetainedCZK reconcile the physical cash drawer.
type ClosingReport struct {
	StoreID        string             `json:"store_id"`
	StoreName      string             `json:"store_name"`
	Period         string             `json:"period"`
	From           time.Time          `json:"from"`
	To             time.Time          `json:"to"`
	SaleCount      int                `json:"sale_count"`
	RefundCount    int                `json:"refund_count"`
	CustomerCount  int                `json:"customer_count"`
	TotalRevenue   float64            `json:"total_revenue"`
	TotalCost      float64            `json:"total_cost"`
	TotalProfit    float64            `json:"total_profit"`
	TotalDiscounts float64            `json:"total_discounts"`
	CashRevenue    float64            `json:"cash_revenue"`
	CardRevenue    float64            `json:"card_revenue"`
	RefundedTotal  float64            `json:"refunded_total"`
	RetainedCZK    float64            `json:"retained_czk"`
	CollectedEUR   float64            `json:"collected_eur"`
	Products       []ReportProductRow `json:"products"`
	GeneratedAt    time.Time          `json:"generated_at"`
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Actor struct {
	Username string
	Role     string
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type ProductCreateRequest struct {
	Name    string   `json:"name"`
	Price   float64  `json:"price"`
	Cost    *float64 `json:"cost,omitempty"`
	IsExtra bool     `json:"is_extra"`
}

type ProductUpdateRequest struct {
	Name    *string  `json:"name,omitempty"`
	Price   *float64 `json:"price,omitempty"`
	Cost    *float64 `json:"cost,omitempty"`
	IsExtra *bool    `json:"is_extra,omitempty"`
}

type AddItemRequest struct {
	ProductID    string `json:"product_id"`
	ParentItemID string `json:"parent_item_id,omitempty"`
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type DiscountRequest struct {
	Kind  string  `json:"kind"`
	Value float64 `json:"value"`
}

type ParkCartRequest struct {
	Note string `json:"note,omitempty"`
}

type CartResponse struct {
	Cart   Cart       `json:"cart"`
	Totals CartTotals `json:"totals"`
}

// CheckoutRequest settles the working cart in cash (or directly by card
// when the store does not redirect to the payment app). PayInEUR switches
// the sale itself to EUR denomination; PaidCurrency records what the
// customer physically tendered.
type CheckoutRequest struct {
	PaidAmount   float64 `json:"paid_amount"`
	PaidCurrency string  `json:"paid_currency,omitempty"`
	PayInEUR     bool    `json:"pay_in_eur"`
	CustomerName string  `json:"customer_name,omitempty"`
}

type CheckoutResponse struct {
	Sale                Sale    `json:"sale"`
	ChangeAmount        float64 `json:"change_amount"`
	ChangeAmountEUR     float64 `json:"change_amount_eur,omitempty"`
	InsufficientPayment bool    `json:"insufficient_payment,omitempty"`
	InventoryUpdated    int     `json:"inventory_updated"`
	InventoryFailed     int     `json:"inventory_failed"`
}

type CardPaymentRequest struct {
	CustomerName string `json:"customer_name,omitempty"`
}

// CardPaymentResponse either carries the deep-link URL for the external
// payment app (redirect flow) or, when the store settles cards locally,
// the already-settled checkout.
type CardPaymentResponse struct {
	ForeignTxID string            `json:"foreign_tx_id,omitempty"`
	PaymentURL  string            `json:"payment_url,omitempty"`
	Amount      float64           `json:"amount"`
	Currency    string            `json:"currency"`
	Settled     *CheckoutResponse `json:"settled,omitempty"`
}

// CallbackItem is the line-item shape delivered by the payment bridge.
// The bridge speaks camelCase; this is its wire contract, not ours.
type CallbackItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	UnitPrice   float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

type PaymentCallbackRequest struct {
	Status         string         `json:"status"`
	ForeignTxID    string         `json:"foreignTxId"`
	TxCode         string         `json:"sumUpTxCode,omitempty"`
	Amount         float64        `json:"amount"`
	Currency       string         `json:"currency"`
	StoreID        string         `json:"storeId"`
	UserID         string         `json:"userId"`
	Items          []CallbackItem `json:"cartItems"`
	Discount       *Discount      `json:"discount,omitempty"`
	DiscountAmount float64        `json:"discountAmount,omitempty"`
	CustomerName   string         `json:"customerName,omitempty"`
}

type PaymentCallbackResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	SaleID           string `json:"sale_id,omitempty"`
	InventoryUpdated int    `json:"inventory_updated"`
	InventoryFailed  int    `json:"inventory_failed"`
}

type SettingsUpdateRequest struct {
	Name            *string  `json:"name,omitempty"`
	Kind            *string  `json:"kind,omitempty"`
	EURRate         *float64 `json:"eur_rate,omitempty"`
	RedirectToSumUp *bool    `json:"redirect_to_sumup,omitempty"`
	ReportEmail     *string  `json:"report_email,omitempty"`
}
