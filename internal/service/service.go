package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"uctarna/backend/internal/domain"
	"uctarna/backend/internal/money"
	"uctarna/backend/internal/notify"
	"uctarna/backend/internal/report"
	"uctarna/backend/internal/store"
	"uctarna/backend/internal/sumup"
	"uctarna/backend/internal/xid"
)

var (
	ErrForbidden            = errors.New("admin role required")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrCardRefundNotAllowed = errors.New("card payment is not allowed for refunds")
	ErrReportNotDelivered   = errors.New("closing report could not be delivered")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// SaleWatcher is implemented by stores that can push live sale events.
// Stores without it (PostgreSQL) fall back to client polling.
type SaleWatcher interface {
	WatchSales(ctx context.Context, storeID string) <-chan domain.SaleEvent
}

type SumUpConfig struct {
	AffiliateKey    string
	CallbackBaseURL string
}

type Service struct {
	repo           store.Repository
	reports        *report.Engine
	notifier       notify.Notifier
	sumupCfg       SumUpConfig
	defaultStoreID string
}

func New(repo store.Repository, reports *report.Engine, notifier notify.Notifier, sumupCfg SumUpConfig, defaultStoreID string) *Service {
	if defaultStoreID == "" {
		defaultStoreID = "main-store"
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}

	return &Service{
		repo:           repo,
		reports:        reports,
		notifier:       notifier,
		sumupCfg:       sumupCfg,
		defaultStoreID: defaultStoreID,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, s.defaultStoreID)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, ErrForbidden
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Price < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	product := domain.Product{
		Name:    req.Name,
		Price:   req.Price,
		IsExtra: req.IsExtra,
	}
	if req.Cost != nil {
		if *req.Cost < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		product.Cost = *req.Cost
	}

	created, err := s.repo.CreateProduct(ctx, s.defaultStoreID, product)
	if err != nil {
		return domain.Product{}, err
	}
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, ErrForbidden
	}

	existing, err := s.repo.GetProduct(ctx, s.defaultStoreID, productID)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Price = *req.Price
	}
	if req.Cost != nil {
		if *req.Cost < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Cost = *req.Cost
	}
	if req.IsExtra != nil {
		updated.IsExtra = *req.IsExtra
	}

	saved, err := s.repo.UpdateProduct(ctx, s.defaultStoreID, updated)
	if err != nil {
		return domain.Product{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, productID string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return ErrForbidden
	}
	return s.repo.DeleteProduct(ctx, s.defaultStoreID, productID)
}

func (s *Service) GetCart(ctx context.Context) (domain.CartResponse, error) {
	cart, err := s.repo.GetCart(ctx, s.defaultStoreID)
	if err != nil {
		return domain.CartResponse{}, err
	}
	return cartResponse(*cart), nil
}

// AddItem adds one unit of a product to the working cart. Lines without a
// parent merge by product; extras always attach to their parent line as
// separate priced lines. When return mode is armed the unit is added with
// quantity -1 and the toggle clears.
func (s *Service) AddItem(ctx context.Context, req domain.AddItemRequest) (domain.CartResponse, error) {
	if req.ProductID == "" {
		return domain.CartResponse{}, store.ErrInvalidInput
	}

	product, err := s.repo.GetProduct(ctx, s.defaultStoreID, req.ProductID)
	if err != nil {
		return domain.CartResponse{}, err
	}
	cart, err := s.repo.GetCart(ctx, s.defaultStoreID)
	if err != nil {
		return domain.CartResponse{}, err
	}

	delta := 1
	if cart.ReturnMode && req.ParentItemID == "" {
		delta = -1
		cart.ReturnMode = false
	}

	if req.ParentItemID != "" {
		parentIdx := slices.IndexFunc(cart.Items, func(item domain.CartItem) bool {
			return item.ItemID == req.ParentItemID
		})
		if parentIdx < 0 {
			return domain.CartResponse{}, store.ErrNotFound
		}
		merged := false
		for i, item := range cart.Items {
			if item.ParentItemID == req.ParentItemID && item.ProductID == product.ID {
				cart.Items[i].Quantity += delta
				merged = true
				break
			}
		}
		if !merged {
			cart.Items = append(cart.Items, domain.CartItem{
				ItemID:       xid.New("item"),
				ProductID:    product.ID,
				ProductName:  product.Name,
				UnitPrice:    product.Price,
				Quantity:     delta,
				ParentItemID: req.ParentItemID,
			})
		}
	} else {
		merged := false
		for i, item := range cart.Items {
			if item.ParentItemID == "" && item.ProductID == product.ID {
				cart.Items[i].Quantity += delta
				if cart.Items[i].Quantity == 0 {
					s.removeLine(cart, cart.Items[i].ItemID)
				}
				merged = true
				break
			}
		}
		if !merged {
			cart.Items = append(cart.Items, domain.CartItem{
				ItemID:      xid.New("item"),
				ProductID:   product.ID,
				ProductName: product.Name,
				UnitPrice:   product.Price,
				Quantity:    delta,
			})
		}
	}

	if err := s.repo.SaveCart(ctx, s.defaultStoreID, *cart); err != nil {
		return domain.CartResponse{}, err
	}
	return cartResponse(*cart), nil
}

// SetItemQuantity sets a line's signed quantity directly. Crossing or
// reaching zero from either side removes the line; a sale line never flips
// into a return line in place.
func (s *Service) SetItemQuantity(ctx context.Context, itemID string, quantity int) (domain.CartResponse, error) {
	cart, err := s.repo.GetCart(ctx, s.defaultStoreID)
	if err != nil {
		return domain.CartResponse{}, err
	}

	idx := slices.IndexFunc(cart.Items, func(item domain.CartItem) bool {
		return item.ItemID == itemID
	})
	if idx < 0 {
		return domain.CartResponse{}, store.ErrNotFound
	}

	current := cart.Items[idx].Quantity
	switch {
	case quantity == 0,
		current > 0 && quantity < 0,
		current < 0 && quantity > 0:
		s.removeLine(cart, itemID)
	default:
		cart.Items[idx].Quantity = quantity
	}

	if err := s.repo.SaveCart(ctx, s.defaultStoreID, *cart); err != nil {
		return domain.CartResponse{}, err
	}
	return cartResponse(*cart), nil
}

func (s *Service) RemoveItem(ctx context.Context, itemID string) (domain.CartResponse, error) {
	cart, err := s.repo.GetCart(ctx, s.defaultStoreID)
	if err != nil {
		return domain.CartResponse{}, err
	}

	if !slices.ContainsFunc(cart.Items, func(item domain.CartItem) bool { return item.ItemID == itemID }) {
		return domain.CartResponse{}, store.ErrNotFound
	}
	s.removeLine(cart, itemID)

	if err := s.repo.SaveCart(ctx, s.defaultStoreID, *cart); err != nil {
		return domain.CartResponse{}, err
	}
	return cartResponse(*cart), nil
}

// removeLine drops a line and any extras attached to it.
func (s *Service) removeLine(cart *domain.Cart, itemID string) {
	cart.Items = slices.DeleteFunc(cart.Items, func(item domain.CartItem) bool {
		return item.ItemID == itemID || item.ParentItemID == itemID
	})
}

func (s *Service) SetDiscount(ctx context.Context, req domain.DiscountRequest) (domain.CartResponse, error) {
	if req.Kind != domain.DiscountKindPercentage && req.Kind != domain.DiscountKindFixedAmount {
		return domain.CartResponse{}, store.ErrInvalidInput
	}
	if req.Value < 0 {
		return domain.CartResponse{}, store.ErrInvalidInput
	}

	cart, err := s.repo.GetCart(ctx, s.defaultStoreID)
	if err != nil {
		return domain.CartResponse{}, err
	}
	cart.Discount = &domain.Discount{Kind: req.Kind, Value: req.Value}

	if err := s.repo.SaveCart(ctx, s.defaultStoreID, *cart); err != nil {
		return domain.CartResponse{}, err
	}
	return cartResponse(*cart), nil
}

func (s *Service) ClearDiscount(ctx context.Context) (domain.CartResponse, error) {
	cart, err := s.repo.GetCart(ctx, s.defaultStoreID)
	if err != nil {
		return domain.CartResponse{}, err
	}
	cart.Discount = nil

	if err := s.repo.SaveCart(ctx, s.defaultStoreID, *cart); err != nil {
		return domain.CartResponse{}, err
	}
	return cartResponse(*cart), nil
}

func (s *Service) ClearCart(ctx context.Context) (domain.CartResponse, error) {
	empty := domain.Cart{Items: []domain.CartItem{}}
	if err := s.repo.SaveCart(ctx, s.defaultStoreID, empty); err != nil {
		return domain.CartResponse{}, err
	}
	return cartResponse(empty), nil
}

func (s *Service) SetReturnMode(ctx context.Context, enabled bool) (domain.CartResponse, error) {
	cart, err := s.repo.GetCart(ctx, s.defaultStoreID)
	if err != nil {
		return domain.CartResponse{}, err
	}
	cart.ReturnMode = enabled

	if err := s.repo.SaveCart(ctx, s.defaultStoreID, *cart); err != nil {
		return domain.CartResponse{}, err
	}
	return cartResponse(*cart), nil
}

func (s *Service) ParkCart(ctx context.Context, req domain.ParkCartRequest) (domain.PendingPurchase, error) {
	cart, err := s.repo.GetCart(ctx, s.defaultStoreID)
	if err != nil {
		return domain.PendingPurchase{}, err
	}
	if len(cart.Items) == 0 {
		return domain.PendingPurchase{}, ErrEmptyCart
	}

	totals := money.Totals(cart.Items, cart.Discount)
	parked, err := s.repo.CreatePendingPurchase(ctx, domain.PendingPurchase{
		StoreID:     s.defaultStoreID,
		Items:       cart.Items,
		Discount:    cart.Discount,
		TotalAmount: totals.Subtotal,
		FinalAmount: totals.FinalAmount,
		Note:        strings.TrimSpace(req.Note),
	})
	if err != nil {
		return domain.PendingPurchase{}, err
	}

	if err := s.repo.SaveCart(ctx, s.defaultStoreID, domain.Cart{Items: []domain.CartItem{}}); err != nil {
		return domain.PendingPurchase{}, err
	}
	return *parked, nil
}

func (s *Service) ListParkedCarts(ctx context.Context) ([]domain.PendingPurchase, error) {
	return s.repo.ListPendingPurchases(ctx, s.defaultStoreID)
}

// RestoreParkedCart replaces the working cart with the parked snapshot and
// deletes the snapshot. An occupied working cart is overwritten; the
// frontend confirms before calling.
func (s *Service) RestoreParkedCart(ctx context.Context, purchaseID string) (domain.CartResponse, error) {
	parked, err := s.repo.GetPendingPurchase(ctx, s.defaultStoreID, purchaseID)
	if err != nil {
		return domain.CartResponse{}, err
	}

	cart := domain.Cart{Items: parked.Items, Discount: parked.Discount}
	if err := s.repo.SaveCart(ctx, s.defaultStoreID, cart); err != nil {
		return domain.CartResponse{}, err
	}
	if err := s.repo.DeletePendingPurchase(ctx, s.defaultStoreID, purchaseID); err != nil {
		log.Printf("[service] WARN: failed to delete restored parked cart %s: %v", purchaseID, err)
	}
	return cartResponse(cart), nil
}

func (s *Service) DeleteParkedCart(ctx context.Context, purchaseID string) error {
	return s.repo.DeletePendingPurchase(ctx, s.defaultStoreID, purchaseID)
}

// Checkout settles the working cart in cash. Refund carts (negative final
// amount) settle without tender; regular carts compute change in the mode
// the cashier chose. An insufficient tender is flagged, change clamps to
// zero and the sale still settles; the register UI blocks the button
// client-side.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	cart, err := s.repo.GetCart(ctx, s.defaultStoreID)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	if len(cart.Items) == 0 {
		return domain.CheckoutResponse{}, ErrEmptyCart
	}

	settings, err := s.repo.GetStoreSettings(ctx, s.defaultStoreID)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	totals := money.Totals(cart.Items, cart.Discount)
	rate := settings.EURRate

	sale := s.newSale(ctx, cart.Items, cart.Discount, totals, domain.PaymentMethodCash, rate)
	sale.CustomerName = strings.TrimSpace(req.CustomerName)

	resp := domain.CheckoutResponse{}
	if !totals.IsRefund {
		change := money.Change(totals.FinalAmount, req.PaidAmount, req.PaidCurrency, req.PayInEUR, rate)
		sale.PaidAmount = req.PaidAmount
		sale.PaidCurrency = req.PaidCurrency
		if sale.PaidCurrency == "" {
			sale.PaidCurrency = domain.CurrencyCZK
		}
		sale.ChangeAmount = money.ClampForDisplay(change.ChangeCZK)
		if req.PayInEUR {
			sale.Currency = domain.CurrencyEUR
			sale.EURRate = rate
			sale.OriginalAmountCZK = totals.FinalAmount
			sale.TotalAmount = money.CZKToEUR(totals.FinalAmount, rate)
			sale.ChangeAmountEUR = money.ClampForDisplay(change.ChangeEUR)
			if sale.PaidCurrency == domain.CurrencyCZK {
				sale.PaidCurrency = domain.CurrencyEUR
			}
		}
		resp.InsufficientPayment = change.Insufficient
		resp.ChangeAmount = sale.ChangeAmount
		resp.ChangeAmountEUR = sale.ChangeAmountEUR
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	resp.Sale = *created
	resp.InventoryUpdated, resp.InventoryFailed = s.applyInventory(ctx, created.Items, 1)

	if err := s.repo.SaveCart(ctx, s.defaultStoreID, domain.Cart{Items: []domain.CartItem{}}); err != nil {
		log.Printf("[service] WARN: failed to clear cart after checkout: %v", err)
	}
	return resp, nil
}

// InitiateCardPayment starts a card settlement. Refunds are rejected: the
// external terminal cannot take money out of a card. When the store does
// not redirect to the payment app the sale settles locally right away;
// otherwise the cart is snapshotted as a pending payment and the deep-link
// URL for the terminal app is returned. The cart stays intact until the
// success callback lands.
func (s *Service) InitiateCardPayment(ctx context.Context, req domain.CardPaymentRequest) (domain.CardPaymentResponse, error) {
	cart, err := s.repo.GetCart(ctx, s.defaultStoreID)
	if err != nil {
		return domain.CardPaymentResponse{}, err
	}
	if len(cart.Items) == 0 {
		return domain.CardPaymentResponse{}, ErrEmptyCart
	}

	totals := money.Totals(cart.Items, cart.Discount)
	if totals.IsRefund {
		return domain.CardPaymentResponse{}, ErrCardRefundNotAllowed
	}

	settings, err := s.repo.GetStoreSettings(ctx, s.defaultStoreID)
	if err != nil {
		return domain.CardPaymentResponse{}, err
	}

	if !settings.RedirectToSumUp {
		sale := s.newSale(ctx, cart.Items, cart.Discount, totals, domain.PaymentMethodCard, settings.EURRate)
		sale.CustomerName = strings.TrimSpace(req.CustomerName)
		sale.PaidAmount = totals.FinalAmount
		sale.PaidCurrency = domain.CurrencyCZK

		created, err := s.repo.CreateSale(ctx, sale)
		if err != nil {
			return domain.CardPaymentResponse{}, err
		}
		settled := domain.CheckoutResponse{Sale: *created}
		settled.InventoryUpdated, settled.InventoryFailed = s.applyInventory(ctx, created.Items, 1)
		if err := s.repo.SaveCart(ctx, s.defaultStoreID, domain.Cart{Items: []domain.CartItem{}}); err != nil {
			log.Printf("[service] WARN: failed to clear cart after card settlement: %v", err)
		}
		return domain.CardPaymentResponse{
			Amount:   totals.FinalAmount,
			Currency: domain.CurrencyCZK,
			Settled:  &settled,
		}, nil
	}

	actor, _ := ActorFromContext(ctx)
	foreignTxID := sumup.NewForeignTxID()
	pending := domain.PendingPayment{
		ForeignTxID:    foreignTxID,
		StoreID:        s.defaultStoreID,
		UserID:         actor.Username,
		Items:          cart.Items,
		Discount:       cart.Discount,
		DiscountAmount: totals.DiscountAmount,
		Amount:         totals.FinalAmount,
		Currency:       domain.CurrencyCZK,
		CustomerName:   strings.TrimSpace(req.CustomerName),
	}
	if err := s.repo.CreatePendingPayment(ctx, pending); err != nil {
		return domain.CardPaymentResponse{}, err
	}

	params := sumup.PaymentParams{
		AffiliateKey:    s.sumupCfg.AffiliateKey,
		Amount:          totals.FinalAmount,
		Currency:        domain.CurrencyCZK,
		Title:           settings.Name,
		ForeignTxID:     foreignTxID,
		CallbackSuccess: s.sumupCfg.CallbackBaseURL + "/payment-result?status=success",
		CallbackFail:    s.sumupCfg.CallbackBaseURL + "/payment-result?status=failed",
	}
	paymentURL, err := sumup.PaymentURL(params)
	if err != nil {
		if delErr := s.repo.DeletePendingPayment(ctx, foreignTxID); delErr != nil {
			log.Printf("[service] WARN: failed to discard pending payment %s: %v", foreignTxID, delErr)
		}
		return domain.CardPaymentResponse{}, err
	}

	return domain.CardPaymentResponse{
		ForeignTxID: foreignTxID,
		PaymentURL:  paymentURL,
		Amount:      totals.FinalAmount,
		Currency:    domain.CurrencyCZK,
	}, nil
}

// HandlePaymentCallback finishes a deferred card settlement. The call is
// idempotent on foreign transaction id: replays return the already-created
// sale. A non-success status discards the pending context and leaves the
// working cart untouched so the cashier can retry.
func (s *Service) HandlePaymentCallback(ctx context.Context, req domain.PaymentCallbackRequest) (domain.PaymentCallbackResponse, error) {
	if req.ForeignTxID == "" || req.Status == "" {
		return domain.PaymentCallbackResponse{}, store.ErrInvalidInput
	}

	if existing, err := s.repo.FindSaleByForeignTxID(ctx, req.ForeignTxID); err == nil {
		return domain.PaymentCallbackResponse{
			Success: true,
			Message: "payment already processed",
			SaleID:  existing.ID,
		}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.PaymentCallbackResponse{}, err
	}

	pending, err := s.repo.GetPendingPayment(ctx, req.ForeignTxID)
	if err != nil {
		return domain.PaymentCallbackResponse{}, err
	}

	if req.Status != domain.PaymentStatusSuccess {
		if err := s.repo.DeletePendingPayment(ctx, req.ForeignTxID); err != nil {
			log.Printf("[service] WARN: failed to discard pending payment %s: %v", req.ForeignTxID, err)
		}
		log.Printf("[service] card payment %s ended with status %q", req.ForeignTxID, req.Status)
		return domain.PaymentCallbackResponse{
			Success: false,
			Message: fmt.Sprintf("payment not completed (status %s)", req.Status),
		}, nil
	}

	storeID := pending.StoreID
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	settings, err := s.repo.GetStoreSettings(ctx, storeID)
	if err != nil {
		return domain.PaymentCallbackResponse{}, err
	}

	items := pending.Items
	if len(req.Items) > 0 {
		items = make([]domain.CartItem, 0, len(req.Items))
		for _, it := range req.Items {
			items = append(items, domain.CartItem{
				ItemID:      xid.New("item"),
				ProductID:   it.ProductID,
				ProductName: it.ProductName,
				UnitPrice:   it.UnitPrice,
				Quantity:    it.Quantity,
			})
		}
	}

	amount := pending.Amount
	if req.Amount > 0 {
		amount = req.Amount
	}
	currency := pending.Currency
	if req.Currency != "" {
		currency = req.Currency
	}
	discount := pending.Discount
	if req.Discount != nil {
		discount = req.Discount
	}
	discountAmount := pending.DiscountAmount
	if req.DiscountAmount > 0 {
		discountAmount = req.DiscountAmount
	}
	customerName := pending.CustomerName
	if req.CustomerName != "" {
		customerName = req.CustomerName
	}
	userID := pending.UserID
	if req.UserID != "" {
		userID = req.UserID
	}

	now := time.Now().UTC()
	sale := domain.Sale{
		ID:             xid.New("sale"),
		DocumentID:     sumup.NewDocumentID(),
		StoreID:        storeID,
		UserID:         userID,
		Items:          items,
		TotalAmount:    amount,
		Currency:       currency,
		PaymentMethod:  domain.PaymentMethodCard,
		Discount:       discount,
		DiscountAmount: discountAmount,
		FinalAmount:    amount,
		CustomerName:   customerName,
		ExternalPayment: &domain.ExternalPaymentData{
			ForeignTxID:      req.ForeignTxID,
			TxCode:           req.TxCode,
			Status:           req.Status,
			CallbackReceived: true,
			CallbackAt:       &now,
		},
		CreatedAt: now,
	}
	if currency == domain.CurrencyEUR {
		sale.EURRate = settings.EURRate
		sale.OriginalAmountCZK = money.EURToCZK(amount, settings.EURRate)
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			if existing, lookupErr := s.repo.FindSaleByForeignTxID(ctx, req.ForeignTxID); lookupErr == nil {
				return domain.PaymentCallbackResponse{
					Success: true,
					Message: "payment already processed",
					SaleID:  existing.ID,
				}, nil
			}
		}
		return domain.PaymentCallbackResponse{}, err
	}

	updated, failed := s.applyInventory(ctx, created.Items, 1)
	if err := s.repo.DeletePendingPayment(ctx, req.ForeignTxID); err != nil {
		log.Printf("[service] WARN: failed to delete settled pending payment %s: %v", req.ForeignTxID, err)
	}
	if err := s.repo.SaveCart(ctx, storeID, domain.Cart{Items: []domain.CartItem{}}); err != nil {
		log.Printf("[service] WARN: failed to clear cart after card settlement: %v", err)
	}

	return domain.PaymentCallbackResponse{
		Success:          true,
		Message:          "payment recorded",
		SaleID:           created.ID,
		InventoryUpdated: updated,
		InventoryFailed:  failed,
	}, nil
}

func (s *Service) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, s.defaultStoreID)
}

func (s *Service) GetSale(ctx context.Context, saleID string) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, s.defaultStoreID, saleID)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

// DeleteSale removes a settled sale and rolls its sold counters back.
func (s *Service) DeleteSale(ctx context.Context, saleID string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return ErrForbidden
	}

	sale, err := s.repo.GetSale(ctx, s.defaultStoreID, saleID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSale(ctx, s.defaultStoreID, saleID); err != nil {
		return err
	}

	if _, failed := s.applyInventory(ctx, sale.Items, -1); failed > 0 {
		log.Printf("[service] WARN: %d sold counters not reversed for deleted sale %s", failed, saleID)
	}
	return nil
}

// ListOpenOrders returns unserved sales oldest first, the order the
// kitchen works through them.
func (s *Service) ListOpenOrders(ctx context.Context) ([]domain.Sale, error) {
	sales, err := s.repo.ListUnservedSales(ctx, s.defaultStoreID)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			switch {
			case a.ID < b.ID:
				return -1
			case a.ID > b.ID:
				return 1
			default:
				return 0
			}
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return sales, nil
}

func (s *Service) MarkOrderPrepared(ctx context.Context, saleID string) (domain.Sale, error) {
	sale, err := s.repo.MarkSalePrepared(ctx, s.defaultStoreID, saleID, time.Now().UTC())
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) MarkOrderServed(ctx context.Context, saleID string) (domain.Sale, error) {
	sale, err := s.repo.MarkSaleServed(ctx, s.defaultStoreID, saleID, time.Now().UTC())
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

// WatchOrders exposes the store's live sale stream when it has one.
func (s *Service) WatchOrders(ctx context.Context) (<-chan domain.SaleEvent, bool) {
	watcher, ok := s.repo.(SaleWatcher)
	if !ok {
		return nil, false
	}
	return watcher.WatchSales(ctx, s.defaultStoreID), true
}

func (s *Service) GetSettings(ctx context.Context) (domain.StoreSettings, error) {
	settings, err := s.repo.GetStoreSettings(ctx, s.defaultStoreID)
	if err != nil {
		return domain.StoreSettings{}, err
	}
	return *settings, nil
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (domain.StoreSettings, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.StoreSettings{}, ErrForbidden
	}

	existing, err := s.repo.GetStoreSettings(ctx, s.defaultStoreID)
	if err != nil {
		return domain.StoreSettings{}, err
	}

	updated := *existing
	updated.StoreID = s.defaultStoreID
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.StoreSettings{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Kind != nil {
		if *req.Kind != domain.StoreKindRetail && *req.Kind != domain.StoreKindBistro {
			return domain.StoreSettings{}, store.ErrInvalidInput
		}
		updated.Kind = *req.Kind
	}
	if req.EURRate != nil {
		if *req.EURRate <= 0 {
			return domain.StoreSettings{}, store.ErrInvalidInput
		}
		updated.EURRate = *req.EURRate
	}
	if req.RedirectToSumUp != nil {
		updated.RedirectToSumUp = *req.RedirectToSumUp
	}
	if req.ReportEmail != nil {
		updated.ReportEmail = strings.TrimSpace(*req.ReportEmail)
	}

	saved, err := s.repo.UpdateStoreSettings(ctx, updated)
	if err != nil {
		return domain.StoreSettings{}, err
	}
	return *saved, nil
}

// GenerateClosingReport builds the closing for the requested window and,
// when deliver is set, emails it to the store's configured recipient. A
// delivery failure still returns the computed report alongside
// ErrReportNotDelivered so the caller can show the numbers.
func (s *Service) GenerateClosingReport(ctx context.Context, period string, startDate string, endDate string, deliver bool) (*domain.ClosingReport, error) {
	win, err := report.ResolveWindow(period, startDate, endDate, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	closing, err := s.reports.Generate(ctx, s.defaultStoreID, win)
	if err != nil {
		return nil, err
	}
	if !deliver {
		return closing, nil
	}

	settings, err := s.repo.GetStoreSettings(ctx, s.defaultStoreID)
	if err != nil {
		return closing, fmt.Errorf("%w: %v", ErrReportNotDelivered, err)
	}
	if settings.ReportEmail == "" {
		return closing, fmt.Errorf("%w: no report recipient configured", ErrReportNotDelivered)
	}

	msg := notify.Message{
		To:       settings.ReportEmail,
		Subject:  report.Subject(closing),
		TextBody: report.ToText(closing),
		HTMLBody: report.ToHTML(closing),
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		log.Printf("[service] WARN: closing report delivery failed: %v", err)
		return closing, fmt.Errorf("%w: %v", ErrReportNotDelivered, err)
	}
	return closing, nil
}

// newSale fills the fields every settlement shares.
func (s *Service) newSale(ctx context.Context, items []domain.CartItem, discount *domain.Discount, totals domain.CartTotals, method string, rate float64) domain.Sale {
	actor, _ := ActorFromContext(ctx)
	sale := domain.Sale{
		ID:             xid.New("sale"),
		DocumentID:     sumup.NewDocumentID(),
		StoreID:        s.defaultStoreID,
		UserID:         actor.Username,
		Items:          items,
		TotalAmount:    totals.FinalAmount,
		Currency:       domain.CurrencyCZK,
		EURRate:        rate,
		PaymentMethod:  method,
		IsRefund:       totals.IsRefund,
		Discount:       discount,
		DiscountAmount: totals.DiscountAmount,
		FinalAmount:    totals.FinalAmount,
		CreatedAt:      time.Now().UTC(),
	}
	if totals.IsRefund {
		sale.RefundAmount = -totals.FinalAmount
	}
	return sale
}

// applyInventory bumps per-product sold counters by direction*quantity.
// Failures are counted, logged and never fail the settlement; the sale is
// already durable at this point.
func (s *Service) applyInventory(ctx context.Context, items []domain.CartItem, direction int) (updated int, failed int) {
	for _, item := range items {
		if item.ProductID == "" || item.Quantity == 0 {
			continue
		}
		if err := s.repo.AdjustSoldCount(ctx, s.defaultStoreID, item.ProductID, direction*item.Quantity); err != nil {
			failed++
			log.Printf("[service] WARN: failed to adjust sold count for %s: %v", item.ProductID, err)
			continue
		}
		updated++
	}
	return updated, failed
}

func cartResponse(cart domain.Cart) domain.CartResponse {
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return domain.CartResponse{
		Cart:   cart,
		Totals: money.Totals(cart.Items, cart.Discount),
	}
}
