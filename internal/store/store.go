package store

import (
	"context"
	"errors"

	"lapakponsel/backend/internal/domain"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrExceedsPurchased  = errors.New("return exceeds purchased quantity")
	ErrInvalidState      = errors.New("invalid state")
	ErrConflict          = errors.New("concurrency conflict")
)

// ReturnEligibility decides whether a transaction may accept a return.
// CreateReturn evaluates it inside the same atomic unit that writes the
// return, so the predicate sees the transaction as it is at commit time,
// not a caller-side snapshot. A nil predicate admits every transaction.
type ReturnEligibility func(tx *domain.Transaction) error

// Repository is the persistence boundary. The stock-mutating transaction
// methods (CreateSale, UpdateSale, DeleteSale, CreateReturn) are atomic:
// either every row write and stock adjustment of the call commits, or none
// does, and stock never goes negative at any commit point.
type Repository interface {
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	CreateBrand(ctx context.Context, brand domain.Brand) (*domain.Brand, error)
	GetBrand(ctx context.Context, id string) (*domain.Brand, error)
	ListBrands(ctx context.Context) ([]domain.Brand, error)
	UpdateBrand(ctx context.Context, brand domain.Brand) (*domain.Brand, error)
	DeleteBrand(ctx context.Context, id string) error

	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error

	CreateSale(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	GetSale(ctx context.Context, id string) (*domain.Transaction, error)
	ListSales(ctx context.Context) ([]domain.Transaction, error)
	UpdateSale(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	DeleteSale(ctx context.Context, id string) error

	CreateReturn(ctx context.Context, ret domain.Return, eligible ReturnEligibility) (*domain.Return, error)
	ListReturnsByTransaction(ctx context.Context, transactionID string) ([]domain.Return, error)
	GetReturnedQtyByLineItem(ctx context.Context, transactionID string) (map[string]int, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
