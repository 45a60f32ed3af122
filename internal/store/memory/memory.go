package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"lapakponsel/backend/internal/domain"
	"lapakponsel/backend/internal/store"
	"lapakponsel/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	categoriesByID  map[string]domain.Category
	brandsByID      map[string]domain.Brand
	productsByID    map[string]domain.Product
	customersByID   map[string]domain.Customer
	salesByID       map[string]*domain.Transaction
	returnsByID     map[string]domain.Return
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
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
		{"admin", adminPwd, domain.RoleAdmin},
		{"cashier", cashierPwd, domain.RoleCashier},
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

	categories := []domain.Category{
		{ID: "cat_case", Name: "Casing", Description: "Softcase dan hardcase"},
		{ID: "cat_charger", Name: "Charger & Power", Description: "Adaptor, powerbank"},
		{ID: "cat_audio", Name: "Audio", Description: "Headset dan speaker"},
		{ID: "cat_cable", Name: "Kabel & Konektor"},
		{ID: "cat_screen", Name: "Pelindung Layar"},
	}

	brands := []domain.Brand{
		{ID: "brd_robot", Name: "Robot"},
		{ID: "brd_vivan", Name: "Vivan"},
		{ID: "brd_ugreen", Name: "Ugreen"},
		{ID: "brd_baseus", Name: "Baseus"},
	}

	products := []domain.Product{
		{ID: "prd_case_01", Barcode: "8991001001011", Name: "Softcase Clear A54", CategoryID: "cat_case", BrandID: "brd_robot", CostCents: 8000, PriceCents: 15000, Stock: 120},
		{ID: "prd_case_02", Barcode: "8991001001028", Name: "Hardcase Armor S23", CategoryID: "cat_case", BrandID: "brd_baseus", CostCents: 22000, PriceCents: 45000, Stock: 60},
		{ID: "prd_chg_01", Barcode: "8991001002015", Name: "Charger 33W GaN", CategoryID: "cat_charger", BrandID: "brd_ugreen", CostCents: 85000, PriceCents: 145000, Stock: 40},
		{ID: "prd_chg_02", Barcode: "8991001002022", Name: "Powerbank 10000mAh", CategoryID: "cat_charger", BrandID: "brd_robot", CostCents: 96000, PriceCents: 165000, Stock: 35},
		{ID: "prd_aud_01", Barcode: "8991001003019", Name: "Headset TWS Air31", CategoryID: "cat_audio", BrandID: "brd_robot", CostCents: 58000, PriceCents: 99000, Stock: 50},
		{ID: "prd_cbl_01", Barcode: "8991001004016", Name: "Kabel USB-C 1m", CategoryID: "cat_cable", BrandID: "brd_vivan", CostCents: 12000, PriceCents: 25000, Stock: 200},
		{ID: "prd_cbl_02", Barcode: "8991001004023", Name: "Kabel Lightning 2m", CategoryID: "cat_cable", BrandID: "brd_ugreen", CostCents: 34000, PriceCents: 59000, Stock: 90},
		{ID: "prd_scr_01", Barcode: "8991001005013", Name: "Tempered Glass A54", CategoryID: "cat_screen", BrandID: "brd_vivan", CostCents: 6000, PriceCents: 20000, Stock: 150},
	}

	customers := []domain.Customer{
		{ID: "cus_01", Name: "Budi Santoso", Phone: "081234567001", Address: "Jl. Melati 3", StoreName: "Cell Jaya"},
		{ID: "cus_02", Name: "Siti Rahma", Phone: "081234567002", Address: "Jl. Kenanga 12", StoreName: "Berkah Ponsel"},
	}

	categoryMap := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		c.CreatedAt = now
		c.UpdatedAt = now
		categoryMap[c.ID] = c
	}
	brandMap := make(map[string]domain.Brand, len(brands))
	for _, b := range brands {
		b.CreatedAt = now
		b.UpdatedAt = now
		brandMap[b.ID] = b
	}
	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		p.CreatedAt = now
		p.UpdatedAt = now
		productMap[p.ID] = p
	}
	customerMap := make(map[string]domain.Customer, len(customers))
	for _, c := range customers {
		c.CreatedAt = now
		c.UpdatedAt = now
		customerMap[c.ID] = c
	}

	return &Store{
		categoriesByID:  categoryMap,
		brandsByID:      brandMap,
		productsByID:    productMap,
		customersByID:   customerMap,
		salesByID:       make(map[string]*domain.Transaction),
		returnsByID:     make(map[string]domain.Return),
		usersByUsername: seedUsers(),
	}
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return nil, store.ErrValidation
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now

	s.categoriesByID[category.ID] = category
	created := category
	return &created, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, exists := s.categoriesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCategory := category
	return &copyCategory, nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categoriesByID))
	for _, c := range s.categoriesByID {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return cmpString(a.Name, b.Name)
	})
	return categories, nil
}

func (s *Store) UpdateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.categoriesByID[category.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return nil, store.ErrValidation
	}
	category.CreatedAt = existing.CreatedAt
	category.UpdatedAt = time.Now().UTC()
	s.categoriesByID[category.ID] = category
	updated := category
	return &updated, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.categoriesByID[id]; !exists {
		return store.ErrNotFound
	}
	for _, p := range s.productsByID {
		if p.CategoryID == id {
			return fmt.Errorf("%w: category %s still referenced by product %s", store.ErrInvalidState, id, p.ID)
		}
	}
	delete(s.categoriesByID, id)
	return nil
}

func (s *Store) CreateBrand(_ context.Context, brand domain.Brand) (*domain.Brand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	brand.Name = strings.TrimSpace(brand.Name)
	if brand.Name == "" {
		return nil, store.ErrValidation
	}
	if brand.ID == "" {
		brand.ID = xid.New("brd")
	}
	now := time.Now().UTC()
	brand.CreatedAt = now
	brand.UpdatedAt = now

	s.brandsByID[brand.ID] = brand
	created := brand
	return &created, nil
}

func (s *Store) GetBrand(_ context.Context, id string) (*domain.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	brand, exists := s.brandsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyBrand := brand
	return &copyBrand, nil
}

func (s *Store) ListBrands(_ context.Context) ([]domain.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	brands := make([]domain.Brand, 0, len(s.brandsByID))
	for _, b := range s.brandsByID {
		brands = append(brands, b)
	}
	slices.SortFunc(brands, func(a, b domain.Brand) int {
		return cmpString(a.Name, b.Name)
	})
	return brands, nil
}

func (s *Store) UpdateBrand(_ context.Context, brand domain.Brand) (*domain.Brand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.brandsByID[brand.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	brand.Name = strings.TrimSpace(brand.Name)
	if brand.Name == "" {
		return nil, store.ErrValidation
	}
	brand.CreatedAt = existing.CreatedAt
	brand.UpdatedAt = time.Now().UTC()
	s.brandsByID[brand.ID] = brand
	updated := brand
	return &updated, nil
}

func (s *Store) DeleteBrand(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.brandsByID[id]; !exists {
		return store.ErrNotFound
	}
	for _, p := range s.productsByID {
		if p.BrandID == id {
			return fmt.Errorf("%w: brand %s still referenced by product %s", store.ErrInvalidState, id, p.ID)
		}
	}
	delete(s.brandsByID, id)
	return nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product.Name = strings.TrimSpace(product.Name)
	product.Barcode = strings.TrimSpace(product.Barcode)
	if product.Name == "" || product.PriceCents < 1 || product.CostCents < 0 || product.Stock < 0 {
		return nil, store.ErrValidation
	}
	if _, exists := s.categoriesByID[product.CategoryID]; !exists {
		return nil, fmt.Errorf("%w: category %s", store.ErrNotFound, product.CategoryID)
	}
	if _, exists := s.brandsByID[product.BrandID]; !exists {
		return nil, fmt.Errorf("%w: brand %s", store.ErrNotFound, product.BrandID)
	}
	if product.Barcode != "" {
		for _, p := range s.productsByID {
			if p.Barcode == product.Barcode {
				return nil, fmt.Errorf("%w: barcode %s already in use", store.ErrValidation, product.Barcode)
			}
		}
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	s.productsByID[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.productsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) GetProductByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.productsByID {
		if p.Barcode != "" && p.Barcode == barcode {
			copyProduct := p
			return &copyProduct, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.productsByID[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.CategoryID == b.CategoryID {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.CategoryID, b.CategoryID)
	})
	return products, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.productsByID[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	product.Name = strings.TrimSpace(product.Name)
	product.Barcode = strings.TrimSpace(product.Barcode)
	if product.Name == "" || product.PriceCents < 1 || product.CostCents < 0 || product.Stock < 0 {
		return nil, store.ErrValidation
	}
	if _, ok := s.categoriesByID[product.CategoryID]; !ok {
		return nil, fmt.Errorf("%w: category %s", store.ErrNotFound, product.CategoryID)
	}
	if _, ok := s.brandsByID[product.BrandID]; !ok {
		return nil, fmt.Errorf("%w: brand %s", store.ErrNotFound, product.BrandID)
	}
	if product.Barcode != "" {
		for _, p := range s.productsByID {
			if p.ID != product.ID && p.Barcode == product.Barcode {
				return nil, fmt.Errorf("%w: barcode %s already in use", store.ErrValidation, product.Barcode)
			}
		}
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	s.productsByID[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productsByID[id]; !exists {
		return store.ErrNotFound
	}
	for _, tx := range s.salesByID {
		for _, line := range tx.Items {
			if line.ProductID == id {
				return fmt.Errorf("%w: product %s still referenced by transaction %s", store.ErrInvalidState, id, tx.ID)
			}
		}
	}
	delete(s.productsByID, id)
	return nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer.Name = strings.TrimSpace(customer.Name)
	if customer.Name == "" {
		return nil, store.ErrValidation
	}
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	now := time.Now().UTC()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	s.customersByID[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCustomer := customer
	return &copyCustomer, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customersByID))
	for _, c := range s.customersByID {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return cmpString(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.customersByID[customer.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	customer.Name = strings.TrimSpace(customer.Name)
	if customer.Name == "" {
		return nil, store.ErrValidation
	}
	customer.CreatedAt = existing.CreatedAt
	customer.UpdatedAt = time.Now().UTC()
	s.customersByID[customer.ID] = customer
	updated := customer
	return &updated, nil
}

func (s *Store) DeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customersByID[id]; !exists {
		return store.ErrNotFound
	}
	for _, tx := range s.salesByID {
		if tx.CustomerID == id {
			return fmt.Errorf("%w: customer %s still referenced by transaction %s", store.ErrInvalidState, id, tx.ID)
		}
	}
	delete(s.customersByID, id)
	return nil
}

// CreateSale checks and debits stock, freezes unit prices from the current
// sale prices and recomputes the monetary totals, all under one lock hold.
// Nothing is written unless every line passes the stock check.
func (s *Store) CreateSale(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(tx.Items) == 0 {
		return nil, fmt.Errorf("%w: transaction requires at least one line item", store.ErrValidation)
	}
	if tx.DiscountCents < 0 || tx.PaidCents < 0 {
		return nil, store.ErrValidation
	}
	if tx.CustomerID != "" {
		if _, ok := s.customersByID[tx.CustomerID]; !ok {
			return nil, fmt.Errorf("%w: customer %s", store.ErrNotFound, tx.CustomerID)
		}
	}

	needed := make(map[string]int, len(tx.Items))
	for _, item := range tx.Items {
		if item.Qty < 1 {
			return nil, fmt.Errorf("%w: qty must be at least 1", store.ErrValidation)
		}
		if _, ok := s.productsByID[item.ProductID]; !ok {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, item.ProductID)
		}
		needed[item.ProductID] += item.Qty
	}
	for productID, qty := range needed {
		product := s.productsByID[productID]
		if product.Stock < qty {
			return nil, fmt.Errorf("%w: %s: requested %d, available %d", store.ErrInsufficientStock, product.Name, qty, product.Stock)
		}
	}

	now := time.Now().UTC()
	if tx.ID == "" {
		tx.ID = xid.New("trx")
	}
	tx.CreatedAt = now
	tx.UpdatedAt = now
	tx.RefundedCents = 0

	subtotal := int64(0)
	lines := make([]domain.LineItem, 0, len(tx.Items))
	for _, item := range tx.Items {
		product := s.productsByID[item.ProductID]
		line := domain.LineItem{
			ID:             xid.New("itm"),
			TransactionID:  tx.ID,
			ProductID:      product.ID,
			ProductName:    product.Name,
			Qty:            item.Qty,
			UnitPriceCents: product.PriceCents,
			LineTotalCents: int64(item.Qty) * product.PriceCents,
		}
		subtotal += line.LineTotalCents
		lines = append(lines, line)
	}
	tx.Items = lines
	tx.SubtotalCents = subtotal
	if tx.DiscountCents > subtotal {
		tx.DiscountCents = subtotal
	}
	tx.OutstandingCents = max0(subtotal - tx.DiscountCents - tx.PaidCents)

	for productID, qty := range needed {
		product := s.productsByID[productID]
		product.Stock -= qty
		product.UpdatedAt = now
		s.productsByID[productID] = product
	}

	saved := cloneSale(&tx)
	s.salesByID[tx.ID] = saved
	return cloneSale(saved), nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return cloneSale(tx), nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Transaction, 0, len(s.salesByID))
	for _, tx := range s.salesByID {
		sales = append(sales, *cloneSale(tx))
	}
	slices.SortFunc(sales, func(a, b domain.Transaction) int {
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

// UpdateSale reconciles the stored line set against the desired one. The
// stock plan is computed first, validated in full against current stock,
// and only then applied, so a product kept across the edit moves by its net
// delta exactly once. Line items that keep their id and product preserve
// their frozen unit price; new lines snapshot the current sale price.
func (s *Store) UpdateSale(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.salesByID[tx.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if len(tx.Items) == 0 {
		return nil, fmt.Errorf("%w: transaction requires at least one line item", store.ErrValidation)
	}
	if tx.DiscountCents < 0 || tx.PaidCents < 0 {
		return nil, store.ErrValidation
	}
	if tx.CustomerID != "" {
		if _, ok := s.customersByID[tx.CustomerID]; !ok {
			return nil, fmt.Errorf("%w: customer %s", store.ErrNotFound, tx.CustomerID)
		}
	}

	existingByID := make(map[string]domain.LineItem, len(existing.Items))
	for _, line := range existing.Items {
		existingByID[line.ID] = line
	}

	desired := make([]domain.SaleItemInput, 0, len(tx.Items))
	for _, item := range tx.Items {
		if item.Qty < 1 {
			return nil, fmt.Errorf("%w: qty must be at least 1", store.ErrValidation)
		}
		if _, ok := s.productsByID[item.ProductID]; !ok {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, item.ProductID)
		}
		lineID := ""
		if item.ID != "" {
			if _, ok := existingByID[item.ID]; !ok {
				return nil, fmt.Errorf("%w: line item %s", store.ErrNotFound, item.ID)
			}
			lineID = item.ID
		}
		desired = append(desired, domain.SaleItemInput{LineItemID: lineID, ProductID: item.ProductID, Qty: item.Qty})
	}

	deltas := store.PlanStockDeltas(existing.Items, desired)
	for productID, delta := range deltas {
		if delta >= 0 {
			continue
		}
		product := s.productsByID[productID]
		if product.Stock+delta < 0 {
			return nil, fmt.Errorf("%w: %s: requested %d, available %d", store.ErrInsufficientStock, product.Name, -delta, product.Stock)
		}
	}

	now := time.Now().UTC()
	subtotal := int64(0)
	lines := make([]domain.LineItem, 0, len(desired))
	for _, item := range desired {
		product := s.productsByID[item.ProductID]
		unitPrice := product.PriceCents
		lineID := item.LineItemID
		if lineID != "" {
			prior := existingByID[lineID]
			if prior.ProductID == item.ProductID {
				unitPrice = prior.UnitPriceCents
			}
		} else {
			lineID = xid.New("itm")
		}
		line := domain.LineItem{
			ID:             lineID,
			TransactionID:  tx.ID,
			ProductID:      product.ID,
			ProductName:    product.Name,
			Qty:            item.Qty,
			UnitPriceCents: unitPrice,
			LineTotalCents: int64(item.Qty) * unitPrice,
		}
		subtotal += line.LineTotalCents
		lines = append(lines, line)
	}

	for productID, delta := range deltas {
		product := s.productsByID[productID]
		product.Stock += delta
		product.UpdatedAt = now
		s.productsByID[productID] = product
	}

	tx.Items = lines
	tx.SubtotalCents = subtotal
	if tx.DiscountCents > subtotal {
		tx.DiscountCents = subtotal
	}
	tx.OutstandingCents = max0(subtotal - tx.DiscountCents - tx.PaidCents)
	tx.RefundedCents = existing.RefundedCents
	tx.OperatorUsername = existing.OperatorUsername
	tx.CreatedAt = existing.CreatedAt
	tx.UpdatedAt = now

	saved := cloneSale(&tx)
	s.salesByID[tx.ID] = saved
	return cloneSale(saved), nil
}

func (s *Store) DeleteSale(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, exists := s.salesByID[id]
	if !exists {
		return store.ErrNotFound
	}

	// Restores each line's full quantity; stock already credited by
	// partial returns of this transaction stays credited.
	now := time.Now().UTC()
	for _, line := range tx.Items {
		product, ok := s.productsByID[line.ProductID]
		if !ok {
			continue
		}
		product.Stock += line.Qty
		product.UpdatedAt = now
		s.productsByID[line.ProductID] = product
	}

	for retID, ret := range s.returnsByID {
		if ret.TransactionID == id {
			delete(s.returnsByID, retID)
		}
	}
	delete(s.salesByID, id)
	return nil
}

// CreateReturn evaluates the eligibility predicate against the stored
// transaction, enforces the cumulative per-line cap, restores stock and
// records the return with unit prices frozen from the original lines. The
// original line items are left untouched.
func (s *Store) CreateReturn(_ context.Context, ret domain.Return, eligible store.ReturnEligibility) (*domain.Return, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(ret.Reason) == "" || len(ret.Lines) == 0 {
		return nil, fmt.Errorf("%w: return requires a reason and at least one line", store.ErrValidation)
	}
	tx, exists := s.salesByID[ret.TransactionID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if eligible != nil {
		snapshot := cloneSale(tx)
		if err := eligible(snapshot); err != nil {
			return nil, err
		}
	}

	lineByID := make(map[string]domain.LineItem, len(tx.Items))
	for _, line := range tx.Items {
		lineByID[line.ID] = line
	}

	returnedByLine := make(map[string]int)
	for _, prior := range s.returnsByID {
		if prior.TransactionID != ret.TransactionID {
			continue
		}
		for _, line := range prior.Lines {
			returnedByLine[line.LineItemID] += line.Qty
		}
	}

	now := time.Now().UTC()
	if ret.ID == "" {
		ret.ID = xid.New("ret")
	}
	ret.CreatedAt = now

	total := int64(0)
	requested := make(map[string]int, len(ret.Lines))
	lines := make([]domain.ReturnLine, 0, len(ret.Lines))
	for _, line := range ret.Lines {
		if line.Qty < 1 {
			return nil, fmt.Errorf("%w: return qty must be at least 1", store.ErrValidation)
		}
		original, ok := lineByID[line.LineItemID]
		if !ok {
			return nil, fmt.Errorf("%w: line item %s", store.ErrNotFound, line.LineItemID)
		}
		requested[line.LineItemID] += line.Qty
		if returnedByLine[line.LineItemID]+requested[line.LineItemID] > original.Qty {
			return nil, fmt.Errorf("%w: %s: purchased %d, already returned %d, requested %d",
				store.ErrExceedsPurchased, original.ProductName, original.Qty, returnedByLine[line.LineItemID], requested[line.LineItemID])
		}
		subtotal := int64(line.Qty) * original.UnitPriceCents
		total += subtotal
		lines = append(lines, domain.ReturnLine{
			ID:             xid.New("rln"),
			ReturnID:       ret.ID,
			LineItemID:     original.ID,
			ProductID:      original.ProductID,
			ProductName:    original.ProductName,
			Qty:            line.Qty,
			UnitPriceCents: original.UnitPriceCents,
			SubtotalCents:  subtotal,
		})
	}

	for _, line := range lines {
		product, ok := s.productsByID[line.ProductID]
		if !ok {
			continue
		}
		product.Stock += line.Qty
		product.UpdatedAt = now
		s.productsByID[line.ProductID] = product
	}

	ret.Lines = lines
	ret.TotalRefundCents = total
	tx.RefundedCents += total
	tx.UpdatedAt = now

	s.returnsByID[ret.ID] = cloneReturn(ret)
	created := cloneReturn(ret)
	return &created, nil
}

func (s *Store) ListReturnsByTransaction(_ context.Context, transactionID string) ([]domain.Return, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Return, 0, 4)
	for _, ret := range s.returnsByID {
		if ret.TransactionID != transactionID {
			continue
		}
		result = append(result, cloneReturn(ret))
	}
	slices.SortFunc(result, func(a, b domain.Return) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) GetReturnedQtyByLineItem(_ context.Context, transactionID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]int)
	for _, ret := range s.returnsByID {
		if ret.TransactionID != transactionID {
			continue
		}
		for _, line := range ret.Lines {
			result[line.LineItemID] += line.Qty
		}
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrValidation
	}
	if _, exists := s.usersByUsername[username]; exists {
		return fmt.Errorf("%w: username %s taken", store.ErrValidation, username)
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrValidation
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func max0(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneSale(src *domain.Transaction) *domain.Transaction {
	if src == nil {
		return nil
	}
	dup := *src
	items := make([]domain.LineItem, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	return &dup
}

func cloneReturn(src domain.Return) domain.Return {
	dup := src
	lines := make([]domain.ReturnLine, len(src.Lines))
	copy(lines, src.Lines)
	dup.Lines = lines
	return dup
}
