package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"uctarna/backend/internal/domain"
	"uctarna/backend/internal/store"
	"uctarna/backend/internal/xid"
)

// Store is the PostgreSQL-backed repository. Tables are expected to exist;
// schema management lives outside the server binary.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context, storeID string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, cost, sold_count, is_extra, created_at, updated_at
		FROM products
		WHERE store_id = $1
		ORDER BY is_extra, name
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Cost, &p.SoldCount, &p.IsExtra, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		p.UpdatedAt = p.UpdatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, storeID string, product domain.Product) (*domain.Product, error) {
	if storeID == "" || product.Name == "" || product.Price < 0 || product.Cost < 0 {
		return nil, store.ErrInvalidInput
	}

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, store_id, name, price, cost, sold_count, is_extra, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, product.ID, storeID, product.Name, product.Price, product.Cost, product.SoldCount, product.IsExtra, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProduct(ctx context.Context, storeID string, productID string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, price, cost, sold_count, is_extra, created_at, updated_at
		FROM products
		WHERE store_id = $1 AND id = $2
	`, storeID, productID).Scan(&p.ID, &p.Name, &p.Price, &p.Cost, &p.SoldCount, &p.IsExtra, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, storeID string, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Price < 0 || product.Cost < 0 {
		return nil, store.ErrInvalidInput
	}

	product.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $3, price = $4, cost = $5, is_extra = $6, updated_at = $7
		WHERE store_id = $1 AND id = $2
	`, storeID, product.ID, product.Name, product.Price, product.Cost, product.IsExtra, product.UpdatedAt)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, storeID string, productID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM products WHERE store_id = $1 AND id = $2
	`, storeID, productID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, storeID string, productIDs []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, cost, sold_count, is_extra, created_at, updated_at
		FROM products
		WHERE store_id = $1 AND id = ANY($2)
	`, storeID, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Cost, &p.SoldCount, &p.IsExtra, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// AdjustSoldCount increments in SQL so concurrent checkouts touching the
// same product never lose counts.
func (s *Store) AdjustSoldCount(ctx context.Context, storeID string, productID string, delta int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET sold_count = sold_count + $3, updated_at = now()
		WHERE store_id = $1 AND id = $2
	`, storeID, productID, delta)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetCart(ctx context.Context, storeID string) (*domain.Cart, error) {
	var (
		itemsRaw    []byte
		discountRaw []byte
		cart        domain.Cart
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT items, discount, return_mode, updated_at
		FROM carts
		WHERE store_id = $1
	`, storeID).Scan(&itemsRaw, &discountRaw, &cart.ReturnMode, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.Cart{Items: []domain.CartItem{}}, nil
		}
		return nil, err
	}

	cart.Items = []domain.CartItem{}
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &cart.Items); err != nil {
			return nil, err
		}
	}
	if len(discountRaw) > 0 {
		_ = json.Unmarshal(discountRaw, &cart.Discount)
	}
	cart.UpdatedAt = cart.UpdatedAt.UTC()
	return &cart, nil
}

func (s *Store) SaveCart(ctx context.Context, storeID string, cart domain.Cart) error {
	if storeID == "" {
		return store.ErrInvalidInput
	}

	itemsJSON, err := json.Marshal(cart.Items)
	if err != nil {
		return err
	}
	discountJSON, err := marshalOrNull(cart.Discount)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO carts (store_id, items, discount, return_mode, updated_at)
		VALUES ($1,$2,$3,$4,now())
		ON CONFLICT (store_id)
		DO UPDATE SET items = $2, discount = $3, return_mode = $4, updated_at = now()
	`, storeID, itemsJSON, discountJSON, cart.ReturnMode)
	return err
}

func (s *Store) CreatePendingPurchase(ctx context.Context, purchase domain.PendingPurchase) (*domain.PendingPurchase, error) {
	if purchase.StoreID == "" || len(purchase.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	if purchase.ID == "" {
		purchase.ID = xid.New("park")
	}
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now().UTC()
	}
	itemsJSON, err := json.Marshal(purchase.Items)
	if err != nil {
		return nil, err
	}
	discountJSON, err := marshalOrNull(purchase.Discount)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pending_purchases (id, store_id, items, discount, total_amount, final_amount, note, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, purchase.ID, purchase.StoreID, itemsJSON, discountJSON, purchase.TotalAmount, purchase.FinalAmount, nullIfEmpty(purchase.Note), purchase.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := purchase
	return &created, nil
}

func (s *Store) ListPendingPurchases(ctx context.Context, storeID string) ([]domain.PendingPurchase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, items, discount, total_amount, final_amount, note, created_at
		FROM pending_purchases
		WHERE store_id = $1
		ORDER BY created_at DESC
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := make([]domain.PendingPurchase, 0, 16)
	for rows.Next() {
		purchase, err := scanPendingPurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, *purchase)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return purchases, nil
}

func (s *Store) GetPendingPurchase(ctx context.Context, storeID string, purchaseID string) (*domain.PendingPurchase, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, store_id, items, discount, total_amount, final_amount, note, created_at
		FROM pending_purchases
		WHERE store_id = $1 AND id = $2
	`, storeID, purchaseID)

	purchase, err := scanPendingPurchase(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return purchase, nil
}

func (s *Store) DeletePendingPurchase(ctx context.Context, storeID string, purchaseID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM pending_purchases WHERE store_id = $1 AND id = $2
	`, storeID, purchaseID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreatePendingPayment(ctx context.Context, payment domain.PendingPayment) error {
	if payment.ForeignTxID == "" || payment.StoreID == "" {
		return store.ErrInvalidInput
	}

	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	itemsJSON, err := json.Marshal(payment.Items)
	if err != nil {
		return err
	}
	discountJSON, err := marshalOrNull(payment.Discount)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pending_payments (
			foreign_tx_id, store_id, user_id, items, discount, discount_amount,
			amount, currency, customer_name, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, payment.ForeignTxID, payment.StoreID, nullIfEmpty(payment.UserID), itemsJSON, discountJSON,
		payment.DiscountAmount, payment.Amount, payment.Currency, nullIfEmpty(payment.CustomerName), payment.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) GetPendingPayment(ctx context.Context, foreignTxID string) (*domain.PendingPayment, error) {
	var (
		payment      domain.PendingPayment
		userID       sql.NullString
		customerName sql.NullString
		itemsRaw     []byte
		discountRaw  []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT foreign_tx_id, store_id, user_id, items, discount, discount_amount,
			amount, currency, customer_name, created_at
		FROM pending_payments
		WHERE foreign_tx_id = $1
	`, foreignTxID).Scan(&payment.ForeignTxID, &payment.StoreID, &userID, &itemsRaw, &discountRaw,
		&payment.DiscountAmount, &payment.Amount, &payment.Currency, &customerName, &payment.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	payment.UserID = userID.String
	payment.CustomerName = customerName.String
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &payment.Items); err != nil {
			return nil, err
		}
	}
	if len(discountRaw) > 0 {
		_ = json.Unmarshal(discountRaw, &payment.Discount)
	}
	payment.CreatedAt = payment.CreatedAt.UTC()
	return &payment, nil
}

func (s *Store) DeletePendingPayment(ctx context.Context, foreignTxID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM pending_payments WHERE foreign_tx_id = $1
	`, foreignTxID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

const saleColumns = `
	id, document_id, store_id, user_id, items, total_amount, currency, eur_rate,
	original_amount_czk, payment_method, is_refund, refund_amount, paid_amount,
	paid_currency, change_amount, change_amount_eur, discount, discount_amount,
	final_amount, customer_name, external_payment, prepared, prepared_at,
	served, served_at, created_at`

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.StoreID == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	itemsJSON, err := json.Marshal(sale.Items)
	if err != nil {
		return nil, err
	}
	discountJSON, err := marshalOrNull(sale.Discount)
	if err != nil {
		return nil, err
	}
	externalJSON, err := marshalOrNull(sale.ExternalPayment)
	if err != nil {
		return nil, err
	}
	var foreignTxID string
	if sale.ExternalPayment != nil {
		foreignTxID = sale.ExternalPayment.ForeignTxID
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sales (
			id, document_id, store_id, user_id, items, total_amount, currency, eur_rate,
			original_amount_czk, payment_method, is_refund, refund_amount, paid_amount,
			paid_currency, change_amount, change_amount_eur, discount, discount_amount,
			final_amount, customer_name, external_payment, foreign_tx_id, prepared, prepared_at,
			served, served_at, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)
	`, sale.ID, sale.DocumentID, sale.StoreID, nullIfEmpty(sale.UserID), itemsJSON, sale.TotalAmount,
		sale.Currency, sale.EURRate, sale.OriginalAmountCZK, sale.PaymentMethod, sale.IsRefund,
		sale.RefundAmount, sale.PaidAmount, nullIfEmpty(sale.PaidCurrency), sale.ChangeAmount,
		sale.ChangeAmountEUR, discountJSON, sale.DiscountAmount, sale.FinalAmount,
		nullIfEmpty(sale.CustomerName), externalJSON, nullIfEmpty(foreignTxID), sale.Prepared,
		nullTime(sale.PreparedAt), sale.Served, nullTime(sale.ServedAt), sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := sale
	return &created, nil
}

func (s *Store) GetSale(ctx context.Context, storeID string, saleID string) (*domain.Sale, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE store_id = $1 AND id = $2
	`, storeID, saleID)

	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return sale, nil
}

func (s *Store) ListSales(ctx context.Context, storeID string) ([]domain.Sale, error) {
	return s.querySales(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE store_id = $1
		ORDER BY created_at DESC
	`, storeID)
}

func (s *Store) ListSalesBetween(ctx context.Context, storeID string, from time.Time, to time.Time) ([]domain.Sale, error) {
	return s.querySales(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE store_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at
	`, storeID, from, to)
}

func (s *Store) ListUnservedSales(ctx context.Context, storeID string) ([]domain.Sale, error) {
	return s.querySales(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE store_id = $1 AND served = false
		ORDER BY created_at
	`, storeID)
}

func (s *Store) FindSaleByForeignTxID(ctx context.Context, foreignTxID string) (*domain.Sale, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE foreign_tx_id = $1
	`, foreignTxID)

	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return sale, nil
}

func (s *Store) DeleteSale(ctx context.Context, storeID string, saleID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sales WHERE store_id = $1 AND id = $2
	`, storeID, saleID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) MarkSalePrepared(ctx context.Context, storeID string, saleID string, at time.Time) (*domain.Sale, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sales
		SET prepared = true, prepared_at = COALESCE(prepared_at, $3)
		WHERE store_id = $1 AND id = $2
	`, storeID, saleID, at.UTC())
	if err != nil {
		return nil, err
	}
	return s.GetSale(ctx, storeID, saleID)
}

func (s *Store) MarkSaleServed(ctx context.Context, storeID string, saleID string, at time.Time) (*domain.Sale, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sales
		SET served = true, served_at = COALESCE(served_at, $3)
		WHERE store_id = $1 AND id = $2
	`, storeID, saleID, at.UTC())
	if err != nil {
		return nil, err
	}
	return s.GetSale(ctx, storeID, saleID)
}

func (s *Store) GetStoreSettings(ctx context.Context, storeID string) (*domain.StoreSettings, error) {
	var (
		settings    domain.StoreSettings
		reportEmail sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT store_id, name, kind, eur_rate, redirect_to_sumup, report_email, updated_at
		FROM store_settings
		WHERE store_id = $1
	`, storeID).Scan(&settings.StoreID, &settings.Name, &settings.Kind, &settings.EURRate,
		&settings.RedirectToSumUp, &reportEmail, &settings.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.StoreSettings{
				StoreID:         storeID,
				Name:            "Účtárna",
				Kind:            domain.StoreKindRetail,
				EURRate:         25.0,
				RedirectToSumUp: true,
			}, nil
		}
		return nil, err
	}
	settings.ReportEmail = reportEmail.String
	settings.UpdatedAt = settings.UpdatedAt.UTC()
	return &settings, nil
}

func (s *Store) UpdateStoreSettings(ctx context.Context, settings domain.StoreSettings) (*domain.StoreSettings, error) {
	if settings.StoreID == "" || settings.EURRate <= 0 {
		return nil, store.ErrInvalidInput
	}

	settings.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_settings (store_id, name, kind, eur_rate, redirect_to_sumup, report_email, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (store_id)
		DO UPDATE SET name = $2, kind = $3, eur_rate = $4, redirect_to_sumup = $5, report_email = $6, updated_at = $7
	`, settings.StoreID, settings.Name, settings.Kind, settings.EURRate, settings.RedirectToSumUp,
		nullIfEmpty(settings.ReportEmail), settings.UpdatedAt)
	if err != nil {
		return nil, err
	}

	updated := settings
	return &updated, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password_hash, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.CreatedAt = u.CreatedAt.UTC()
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) querySales(ctx context.Context, query string, args ...any) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(row rowScanner) (*domain.Sale, error) {
	var (
		sale         domain.Sale
		userID       sql.NullString
		paidCurrency sql.NullString
		customerName sql.NullString
		itemsRaw     []byte
		discountRaw  []byte
		externalRaw  []byte
		preparedAt   sql.NullTime
		servedAt     sql.NullTime
	)
	err := row.Scan(&sale.ID, &sale.DocumentID, &sale.StoreID, &userID, &itemsRaw, &sale.TotalAmount,
		&sale.Currency, &sale.EURRate, &sale.OriginalAmountCZK, &sale.PaymentMethod, &sale.IsRefund,
		&sale.RefundAmount, &sale.PaidAmount, &paidCurrency, &sale.ChangeAmount, &sale.ChangeAmountEUR,
		&discountRaw, &sale.DiscountAmount, &sale.FinalAmount, &customerName, &externalRaw,
		&sale.Prepared, &preparedAt, &sale.Served, &servedAt, &sale.CreatedAt)
	if err != nil {
		return nil, err
	}

	sale.UserID = userID.String
	sale.PaidCurrency = paidCurrency.String
	sale.CustomerName = customerName.String
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &sale.Items); err != nil {
			return nil, err
		}
	}
	if len(discountRaw) > 0 {
		_ = json.Unmarshal(discountRaw, &sale.Discount)
	}
	if len(externalRaw) > 0 {
		_ = json.Unmarshal(externalRaw, &sale.ExternalPayment)
	}
	if preparedAt.Valid {
		t := preparedAt.Time.UTC()
		sale.PreparedAt = &t
	}
	if servedAt.Valid {
		t := servedAt.Time.UTC()
		sale.ServedAt = &t
	}
	sale.CreatedAt = sale.CreatedAt.UTC()
	return &sale, nil
}

func scanPendingPurchase(row rowScanner) (*domain.PendingPurchase, error) {
	var (
		purchase    domain.PendingPurchase
		note        sql.NullString
		itemsRaw    []byte
		discountRaw []byte
	)
	err := row.Scan(&purchase.ID, &purchase.StoreID, &itemsRaw, &discountRaw,
		&purchase.TotalAmount, &purchase.FinalAmount, &note, &purchase.CreatedAt)
	if err != nil {
		return nil, err
	}

	purchase.Note = note.String
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &purchase.Items); err != nil {
			return nil, err
		}
	}
	if len(discountRaw) > 0 {
		_ = json.Unmarshal(discountRaw, &purchase.Discount)
	}
	purchase.CreatedAt = purchase.CreatedAt.UTC()
	return &purchase, nil
}

func marshalOrNull(v any) (any, error) {
	switch val := v.(type) {
	case *domain.Discount:
		if val == nil {
			return nil, nil
		}
	case *domain.ExternalPaymentData:
		if val == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
