package store

import (
	"context"
	"errors"
	"time"

	"uctarna/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

// Repository is the persistence boundary. All methods are scoped by store;
// the working cart is a per-store singleton with last-write-wins
// semantics, and AdjustSoldCount must be an atomic per-product increment
// so concurrent sales of the same product do not lose updates.
type Repository interface {
	ListProducts(ctx context.Context, storeID string) ([]domain.Product, error)
	CreateProduct(ctx context.Context, storeID string, product domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, storeID string, productID string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, storeID string, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, storeID string, productID string) error
	GetProductsByIDs(ctx context.Context, storeID string, productIDs []string) (map[string]domain.Product, error)
	AdjustSoldCount(ctx context.Context, storeID string, productID string, delta int) error

	GetCart(ctx context.Context, storeID string) (*domain.Cart, error)
	SaveCart(ctx context.Context, storeID string, cart domain.Cart) error

	CreatePendingPurchase(ctx context.Context, purchase domain.PendingPurchase) (*domain.PendingPurchase, error)
	ListPendingPurchases(ctx context.Context, storeID string) ([]domain.PendingPurchase, error)
	GetPendingPurchase(ctx context.Context, storeID string, purchaseID string) (*domain.PendingPurchase, error)
	DeletePendingPurchase(ctx context.Context, storeID string, purchaseID string) error

	CreatePendingPayment(ctx context.Context, payment domain.PendingPayment) error
	GetPendingPayment(ctx context.Context, foreignTxID string) (*domain.PendingPayment, error)
	DeletePendingPayment(ctx context.Context, foreignTxID string) error

	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSale(ctx context.Context, storeID string, saleID string) (*domain.Sale, error)
	ListSales(ctx context.Context, storeID string) ([]domain.Sale, error)
	ListSalesBetween(ctx context.Context, storeID string, from time.Time, to time.Time) ([]domain.Sale, error)
	ListUnservedSales(ctx context.Context, storeID string) ([]domain.Sale, error)
	FindSaleByForeignTxID(ctx context.Context, foreignTxID string) (*domain.Sale, error)
	DeleteSale(ctx context.Context, storeID string, saleID string) error
	MarkSalePrepared(ctx context.Context, storeID string, saleID string, at time.Time) (*domain.Sale, error)
	MarkSaleServed(ctx context.Context, storeID string, saleID string, at time.Time) (*domain.Sale, error)

	GetStoreSettings(ctx context.Context, storeID string) (*domain.StoreSettings, error)
	UpdateStoreSettings(ctx context.Context, settings domain.StoreSettings) (*domain.StoreSettings, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
