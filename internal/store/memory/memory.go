package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"uctarna/backend/internal/domain"
	"uctarna/backend/internal/store"
	"uctarna/backend/internal/xid"
)

type saleRef struct {
	storeID string
	saleID  string
}

type Store struct {
	mu               sync.RWMutex
	products         map[string]map[string]domain.Product
	carts            map[string]domain.Cart
	pendingPurchases map[string]map[string]domain.PendingPurchase
	pendingPayments  map[string]domain.PendingPayment
	sales            map[string]map[string]domain.Sale
	salesByForeignTx map[string]saleRef
	settings         map[string]domain.StoreSettings
	usersByUsername  map[string]domain.UserAccount

	watchMu  sync.Mutex
	watchers map[string][]chan domain.SaleEvent
}

// seedUsers builds the initial in-memory operator accounts for dev/demo
// mode. Credentials come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables; hardcoded dev defaults are used with a warning
// when unset. These never apply in production (PostgreSQL is used once
// DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()
	products := []domain.Product{
		{ID: "prod-espresso", Name: "Espresso", Price: 45, Cost: 9},
		{ID: "prod-cappuccino", Name: "Cappuccino", Price: 58, Cost: 14},
		{ID: "prod-caj", Name: "Čaj", Price: 40, Cost: 6},
		{ID: "prod-limonada", Name: "Domácí limonáda", Price: 55, Cost: 12},
		{ID: "prod-pivo", Name: "Pivo 0,5 l", Price: 49, Cost: 22},
		{ID: "prod-klobasa", Name: "Grilovaná klobása", Price: 89, Cost: 41},
		{ID: "prod-hranolky", Name: "Hranolky", Price: 65, Cost: 18},
		{ID: "prod-burger", Name: "Burger", Price: 149, Cost: 72},
		{ID: "prod-palacinka", Name: "Palačinka", Price: 75, Cost: 24},
		{ID: "prod-slehacka", Name: "Šlehačka navíc", Price: 15, Cost: 4, IsExtra: true},
		{ID: "prod-syr", Name: "Sýr navíc", Price: 20, Cost: 8, IsExtra: true},
		{ID: "prod-kecup", Name: "Kečup", Price: 10, Cost: 2, IsExtra: true},
	}

	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		p.CreatedAt = now
		p.UpdatedAt = now
		productMap[p.ID] = p
	}

	return &Store{
		products:         map[string]map[string]domain.Product{"main-store": productMap},
		carts:            make(map[string]domain.Cart),
		pendingPurchases: map[string]map[string]domain.PendingPurchase{"main-store": {}},
		pendingPayments:  make(map[string]domain.PendingPayment),
		sales:            map[string]map[string]domain.Sale{"main-store": {}},
		salesByForeignTx: make(map[string]saleRef),
		settings: map[string]domain.StoreSettings{
			"main-store": {
				StoreID:         "main-store",
				Name:            "Účtárna",
				Kind:            domain.StoreKindBistro,
				EURRate:         25.0,
				RedirectToSumUp: true,
				UpdatedAt:       now,
			},
		},
		usersByUsername: seedUsers(),
		watchers:        make(map[string][]chan domain.SaleEvent),
	}
}

func (s *Store) ListProducts(_ context.Context, storeID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	catalog := s.products[storeID]
	products := make([]domain.Product, 0, len(catalog))
	for _, p := range catalog {
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.IsExtra != b.IsExtra {
			if a.IsExtra {
				return 1
			}
			return -1
		}
		return cmpString(a.Name, b.Name)
	})

	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, storeID string, product domain.Product) (*domain.Product, error) {
	if storeID == "" || product.Name == "" || product.Price < 0 || product.Cost < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	catalog := s.products[storeID]
	if catalog == nil {
		catalog = make(map[string]domain.Product)
		s.products[storeID] = catalog
	}
	if _, exists := catalog[product.ID]; exists {
		return nil, store.ErrConflict
	}

	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	catalog[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) GetProduct(_ context.Context, storeID string, productID string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[storeID][productID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) UpdateProduct(_ context.Context, storeID string, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Price < 0 || product.Cost < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	catalog := s.products[storeID]
	if _, exists := catalog[product.ID]; !exists {
		return nil, store.ErrNotFound
	}
	product.UpdatedAt = time.Now().UTC()
	catalog[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, storeID string, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog := s.products[storeID]
	if _, exists := catalog[productID]; !exists {
		return store.ErrNotFound
	}
	delete(catalog, productID)
	return nil
}

func (s *Store) GetProductsByIDs(_ context.Context, storeID string, productIDs []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	catalog := s.products[storeID]
	result := make(map[string]domain.Product, len(productIDs))
	for _, id := range productIDs {
		if p, ok := catalog[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) AdjustSoldCount(_ context.Context, storeID string, productID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog := s.products[storeID]
	product, exists := catalog[productID]
	if !exists {
		return fmt.Errorf("product %s unavailable: %w", productID, store.ErrNotFound)
	}
	product.SoldCount += int64(delta)
	product.UpdatedAt = time.Now().UTC()
	catalog[productID] = product
	return nil
}

func (s *Store) GetCart(_ context.Context, storeID string) (*domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart, exists := s.carts[storeID]
	if !exists {
		return &domain.Cart{Items: []domain.CartItem{}}, nil
	}
	copyCart := cart
	copyCart.Items = append([]domain.CartItem(nil), cart.Items...)
	if cart.Discount != nil {
		d := *cart.Discount
		copyCart.Discount = &d
	}
	return &copyCart, nil
}

func (s *Store) SaveCart(_ context.Context, storeID string, cart domain.Cart) error {
	if storeID == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart.UpdatedAt = time.Now().UTC()
	cart.Items = append([]domain.CartItem(nil), cart.Items...)
	s.carts[storeID] = cart
	return nil
}

func (s *Store) CreatePendingPurchase(_ context.Context, purchase domain.PendingPurchase) (*domain.PendingPurchase, error) {
	if purchase.StoreID == "" || len(purchase.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if purchase.ID == "" {
		purchase.ID = xid.New("park")
	}
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now().UTC()
	}
	byID := s.pendingPurchases[purchase.StoreID]
	if byID == nil {
		byID = make(map[string]domain.PendingPurchase)
		s.pendingPurchases[purchase.StoreID] = byID
	}
	byID[purchase.ID] = purchase
	created := purchase
	return &created, nil
}

func (s *Store) ListPendingPurchases(_ context.Context, storeID string) ([]domain.PendingPurchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.pendingPurchases[storeID]
	purchases := make([]domain.PendingPurchase, 0, len(byID))
	for _, p := range byID {
		purchases = append(purchases, p)
	}
	slices.SortFunc(purchases, func(a, b domain.PendingPurchase) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return purchases, nil
}

func (s *Store) GetPendingPurchase(_ context.Context, storeID string, purchaseID string) (*domain.PendingPurchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	purchase, exists := s.pendingPurchases[storeID][purchaseID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyPurchase := purchase
	return &copyPurchase, nil
}

func (s *Store) DeletePendingPurchase(_ context.Context, storeID string, purchaseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.pendingPurchases[storeID]
	if _, exists := byID[purchaseID]; !exists {
		return store.ErrNotFound
	}
	delete(byID, purchaseID)
	return nil
}

func (s *Store) CreatePendingPayment(_ context.Context, payment domain.PendingPayment) error {
	if payment.ForeignTxID == "" || payment.StoreID == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pendingPayments[payment.ForeignTxID]; exists {
		return store.ErrConflict
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	s.pendingPayments[payment.ForeignTxID] = payment
	return nil
}

func (s *Store) GetPendingPayment(_ context.Context, foreignTxID string) (*domain.PendingPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payment, exists := s.pendingPayments[foreignTxID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyPayment := payment
	return &copyPayment, nil
}

func (s *Store) DeletePendingPayment(_ context.Context, foreignTxID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pendingPayments[foreignTxID]; !exists {
		return store.ErrNotFound
	}
	delete(s.pendingPayments, foreignTxID)
	return nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.StoreID == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	byID := s.sales[sale.StoreID]
	if byID == nil {
		byID = make(map[string]domain.Sale)
		s.sales[sale.StoreID] = byID
	}
	if _, exists := byID[sale.ID]; exists {
		s.mu.Unlock()
		return nil, store.ErrConflict
	}
	if sale.ExternalPayment != nil && sale.ExternalPayment.ForeignTxID != "" {
		if _, exists := s.salesByForeignTx[sale.ExternalPayment.ForeignTxID]; exists {
			s.mu.Unlock()
			return nil, store.ErrConflict
		}
		s.salesByForeignTx[sale.ExternalPayment.ForeignTxID] = saleRef{storeID: sale.StoreID, saleID: sale.ID}
	}
	sale.Items = append([]domain.CartItem(nil), sale.Items...)
	byID[sale.ID] = sale
	created := sale
	s.mu.Unlock()

	s.publish(sale.StoreID, domain.SaleEvent{Type: domain.SaleEventCreated, Sale: created})
	return &created, nil
}

func (s *Store) GetSale(_ context.Context, storeID string, saleID string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.sales[storeID][saleID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copySale := sale
	return &copySale, nil
}

func (s *Store) ListSales(_ context.Context, storeID string) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.sales[storeID]
	sales := make([]domain.Sale, 0, len(byID))
	for _, sale := range byID {
		sales = append(sales, sale)
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return sales, nil
}

func (s *Store) ListSalesBetween(_ context.Context, storeID string, from time.Time, to time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.sales[storeID]
	sales := make([]domain.Sale, 0, len(byID))
	for _, sale := range byID {
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		sales = append(sales, sale)
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return sales, nil
}

func (s *Store) ListUnservedSales(_ context.Context, storeID string) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.sales[storeID]
	sales := make([]domain.Sale, 0, 16)
	for _, sale := range byID {
		if sale.Served {
			continue
		}
		sales = append(sales, sale)
	}
	return sales, nil
}

func (s *Store) FindSaleByForeignTxID(_ context.Context, foreignTxID string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, exists := s.salesByForeignTx[foreignTxID]
	if !exists {
		return nil, store.ErrNotFound
	}
	sale, exists := s.sales[ref.storeID][ref.saleID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copySale := sale
	return &copySale, nil
}

func (s *Store) DeleteSale(_ context.Context, storeID string, saleID string) error {
	s.mu.Lock()

	byID := s.sales[storeID]
	sale, exists := byID[saleID]
	if !exists {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	delete(byID, saleID)
	if sale.ExternalPayment != nil && sale.ExternalPayment.ForeignTxID != "" {
		delete(s.salesByForeignTx, sale.ExternalPayment.ForeignTxID)
	}
	s.mu.Unlock()

	s.publish(storeID, domain.SaleEvent{Type: domain.SaleEventDeleted, Sale: sale})
	return nil
}

func (s *Store) MarkSalePrepared(_ context.Context, storeID string, saleID string, at time.Time) (*domain.Sale, error) {
	return s.transition(storeID, saleID, func(sale *domain.Sale) {
		if sale.Prepared {
			return
		}
		sale.Prepared = true
		preparedAt := at.UTC()
		sale.PreparedAt = &preparedAt
	})
}

func (s *Store) MarkSaleServed(_ context.Context, storeID string, saleID string, at time.Time) (*domain.Sale, error) {
	return s.transition(storeID, saleID, func(sale *domain.Sale) {
		if sale.Served {
			return
		}
		sale.Served = true
		servedAt := at.UTC()
		sale.ServedAt = &servedAt
	})
}

// transition applies a dispatch mutation under the lock and publishes the
// updated sale. Mutations are monotonic: they only ever set flags, never
// clear them.
func (s *Store) transition(storeID string, saleID string, mutate func(*domain.Sale)) (*domain.Sale, error) {
	s.mu.Lock()

	byID := s.sales[storeID]
	sale, exists := byID[saleID]
	if !exists {
		s.mu.Unlock()
		return nil, store.ErrNotFound
	}
	mutate(&sale)
	byID[saleID] = sale
	updated := sale
	s.mu.Unlock()

	s.publish(storeID, domain.SaleEvent{Type: domain.SaleEventUpdated, Sale: updated})
	return &updated, nil
}

func (s *Store) GetStoreSettings(_ context.Context, storeID string) (*domain.StoreSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, exists := s.settings[storeID]
	if !exists {
		return &domain.StoreSettings{
			StoreID:         storeID,
			Name:            "Účtárna",
			Kind:            domain.StoreKindRetail,
			EURRate:         25.0,
			RedirectToSumUp: true,
		}, nil
	}
	copySettings := settings
	return &copySettings, nil
}

func (s *Store) UpdateStoreSettings(_ context.Context, settings domain.StoreSettings) (*domain.StoreSettings, error) {
	if settings.StoreID == "" || settings.EURRate <= 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings.UpdatedAt = time.Now().UTC()
	s.settings[settings.StoreID] = settings
	updated := settings
	return &updated, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrConflict
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

// WatchSales returns a stream of sale change events for a store. The
// channel closes when ctx is cancelled. Slow consumers drop events rather
// than blocking writers; the dispatch board re-fetches on reconnect.
func (s *Store) WatchSales(ctx context.Context, storeID string) <-chan domain.SaleEvent {
	ch := make(chan domain.SaleEvent, 16)

	s.watchMu.Lock()
	s.watchers[storeID] = append(s.watchers[storeID], ch)
	s.watchMu.Unlock()

	go func() {
		<-ctx.Done()
		s.watchMu.Lock()
		subs := s.watchers[storeID]
		for i, sub := range subs {
			if sub == ch {
				s.watchers[storeID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		s.watchMu.Unlock()
		close(ch)
	}()

	return ch
}

func (s *Store) publish(storeID string, event domain.SaleEvent) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	for _, ch := range s.watchers[storeID] {
		select {
		case ch <- event:
		default:
		}
	}
}

func cmpString(a string, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
