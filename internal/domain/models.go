package domain

import "time"

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CategoryCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CategoryUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type Brand struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type BrandCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type BrandUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type Product struct {
	ID          string    `json:"id"`
	Barcode     string    `json:"barcode,omitempty"`
	Name        string    `json:"name"`
	CategoryID  string    `json:"category_id"`
	BrandID     string    `json:"brand_id"`
	CostCents   int64     `json:"cost_cents"`
	PriceCents  int64     `json:"price_cents"`
	Stock       int       `json:"stock"`
	ImagePath   string    `json:"image_path,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ProductCreateRequest struct {
	Barcode      string `json:"barcode"`
	Name         string `json:"name"`
	CategoryID   string `json:"category_id"`
	BrandID      string `json:"brand_id"`
	CostCents    int64  `json:"cost_cents"`
	PriceCents   int64  `json:"price_cents"`
	InitialStock int    `json:"initial_stock"`
	ImagePath    string `json:"image_path"`
	Description  string `json:"description"`
}

type ProductUpdateRequest struct {
	Barcode     *string `json:"barcode,omitempty"`
	Name        *string `json:"name,omitempty"`
	CategoryID  *string `json:"category_id,omitempty"`
	BrandID     *string `json:"brand_id,omitempty"`
	CostCents   *int64  `json:"cost_cents,omitempty"`
	PriceCents  *int64  `json:"price_cents,omitempty"`
	Stock       *int    `json:"stock,omitempty"`
	ImagePath   *string `json:"image_path,omitempty"`
	Description *string `json:"description,omitempty"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	StoreName string    `json:"store_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CustomerCreateRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	StoreName string `json:"store_name"`
}

type CustomerUpdateRequest struct {
	Name      *string `json:"name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
	StoreName *string `json:"store_name,omitempty"`
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

type Actor struct {
	Username string
	Role     string
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

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

// LineItem is one product row of a transaction. UnitPriceCents is frozen
// from the product's sale price when the line is written and is never taken
// from a client payload.
type LineItem struct {
	ID             string `json:"id"`
	TransactionID  string `json:"transaction_id"`
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name,omitempty"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	LineTotalCents int64  `json:"line_total_cents"`
}

type Transaction struct {
	ID               string     `json:"id"`
	SubtotalCents    int64      `json:"subtotal_cents"`
	DiscountCents    int64      `json:"discount_cents"`
	PaidCents        int64      `json:"paid_cents"`
	OutstandingCents int64      `json:"outstanding_cents"`
	PaymentMode      string     `json:"payment_mode"`
	DueDate          string     `json:"due_date,omitempty"`
	CustomerID       string     `json:"customer_id,omitempty"`
	OperatorUsername string     `json:"operator_username"`
	RefundedCents    int64      `json:"refunded_cents"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Items            []LineItem `json:"items"`
}

// SaleItemInput carries one desired line of a create or update payload.
// LineItemID is only meaningful on update: it binds the input to an
// existing line so the reconciliation can tell an edit from an insert.
type SaleItemInput struct {
	LineItemID string `json:"line_item_id,omitempty"`
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
}

type TransactionCreateRequest struct {
	SubtotalCents int64           `json:"subtotal_cents"`
	PaidCents     int64           `json:"paid_cents"`
	DiscountCents int64           `json:"discount_cents"`
	PaymentMode   string          `json:"payment_mode"`
	DueDate       string          `json:"due_date,omitempty"`
	CustomerID    string          `json:"customer_id,omitempty"`
	Items         []SaleItemInput `json:"items"`
}

type TransactionUpdateRequest struct {
	SubtotalCents int64           `json:"subtotal_cents"`
	PaidCents     int64           `json:"paid_cents"`
	DiscountCents int64           `json:"discount_cents"`
	PaymentMode   string          `json:"payment_mode"`
	DueDate       string          `json:"due_date,omitempty"`
	CustomerID    string          `json:"customer_id,omitempty"`
	Items         []SaleItemInput `json:"items"`
}

type TransactionListResponse struct {
	Transactions []Transaction `json:"transactions"`
}

type ReturnItemInput struct {
	LineItemID string `json:"line_item_id"`
	Qty        int    `json:"qty"`
}

type ReturnCreateRequest struct {
	Reason string            `json:"reason"`
	Items  []ReturnItemInput `json:"items"`
}

// ReturnLine overlays a line item with a returned quantity. The original
// line is never mutated; cumulative returned qty per line stays capped at
// the purchased qty.
type ReturnLine struct {
	ID             string `json:"id"`
	ReturnID       string `json:"return_id"`
	LineItemID     string `json:"line_item_id"`
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name,omitempty"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	SubtotalCents  int64  `json:"subtotal_cents"`
}

type Return struct {
	ID               string       `json:"id"`
	TransactionID    string       `json:"transaction_id"`
	Reason           string       `json:"reason"`
	TotalRefundCents int64        `json:"total_refund_cents"`
	CreatedAt        time.Time    `json:"created_at"`
	Lines            []ReturnLine `json:"lines"`
}

type ReturnListResponse struct {
	Returns []Return `json:"returns"`
}

type RevenueBucket struct {
	Period        string `json:"period"`
	Transactions  int64  `json:"transactions"`
	RevenueCents  int64  `json:"revenue_cents"`
	DiscountCents int64  `json:"discount_cents"`
	RefundedCents int64  `json:"refunded_cents"`
}

type RevenueReport struct {
	Granularity string          `json:"granularity"`
	Buckets     []RevenueBucket `json:"buckets"`
}

type CategorySales struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
	UnitsSold    int64  `json:"units_sold"`
	RevenueCents int64  `json:"revenue_cents"`
}

type CategorySalesReport struct {
	Categories []CategorySales `json:"categories"`
}

type StatusBreakdown struct {
	PaymentMode      string `json:"payment_mode"`
	Transactions     int64  `json:"transactions"`
	RevenueCents     int64  `json:"revenue_cents"`
	OutstandingCents int64  `json:"outstanding_cents"`
}

type StatusBreakdownReport struct {
	Modes []StatusBreakdown `json:"modes"`
}

const (
	PaymentModeCash   = "cash"
	PaymentModeCredit = "credit"
)

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

const (
	RevenueByMonth = "month"
	RevenueByYear  = "year"
)

// DueDateLayout is the wire format for transaction due dates.
const DueDateLayout = "2006-01-02"
