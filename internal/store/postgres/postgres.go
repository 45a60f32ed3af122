package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"lapakponsel/backend/internal/domain"
	"lapakponsel/backend/internal/store"
	"lapakponsel/backend/internal/xid"
)

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

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, description, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
	`, category.ID, category.Name, nullIfEmpty(category.Description), category.CreatedAt, category.UpdatedAt)
	if err != nil {
		return nil, err
	}

	created := category
	return &created, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	var category domain.Category
	var description sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM categories
		WHERE id = $1
	`, id).Scan(&category.ID, &category.Name, &description, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	category.Description = description.String
	return &category, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM categories
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 32)
	for rows.Next() {
		var category domain.Category
		var description sql.NullString
		if err := rows.Scan(&category.ID, &category.Name, &description, &category.CreatedAt, &category.UpdatedAt); err != nil {
			return nil, err
		}
		category.Description = description.String
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return nil, store.ErrValidation
	}
	category.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE categories
		SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
	`, category.ID, category.Name, nullIfEmpty(category.Description), category.UpdatedAt)
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

	updated := category
	return &updated, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	var referenced bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM products WHERE category_id = $1)
	`, id).Scan(&referenced)
	if err != nil {
		return err
	}
	if referenced {
		return fmt.Errorf("%w: category %s still referenced by products", store.ErrInvalidState, id)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
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

func (s *Store) CreateBrand(ctx context.Context, brand domain.Brand) (*domain.Brand, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO brands (id, name, description, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
	`, brand.ID, brand.Name, nullIfEmpty(brand.Description), brand.CreatedAt, brand.UpdatedAt)
	if err != nil {
		return nil, err
	}

	created := brand
	return &created, nil
}

func (s *Store) GetBrand(ctx context.Context, id string) (*domain.Brand, error) {
	var brand domain.Brand
	var description sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM brands
		WHERE id = $1
	`, id).Scan(&brand.ID, &brand.Name, &description, &brand.CreatedAt, &brand.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	brand.Description = description.String
	return &brand, nil
}

func (s *Store) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM brands
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	brands := make([]domain.Brand, 0, 32)
	for rows.Next() {
		var brand domain.Brand
		var description sql.NullString
		if err := rows.Scan(&brand.ID, &brand.Name, &description, &brand.CreatedAt, &brand.UpdatedAt); err != nil {
			return nil, err
		}
		brand.Description = description.String
		brands = append(brands, brand)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return brands, nil
}

func (s *Store) UpdateBrand(ctx context.Context, brand domain.Brand) (*domain.Brand, error) {
	brand.Name = strings.TrimSpace(brand.Name)
	if brand.Name == "" {
		return nil, store.ErrValidation
	}
	brand.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE brands
		SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
	`, brand.ID, brand.Name, nullIfEmpty(brand.Description), brand.UpdatedAt)
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

	updated := brand
	return &updated, nil
}

func (s *Store) DeleteBrand(ctx context.Context, id string) error {
	var referenced bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM products WHERE brand_id = $1)
	`, id).Scan(&referenced)
	if err != nil {
		return err
	}
	if referenced {
		return fmt.Errorf("%w: brand %s still referenced by products", store.ErrInvalidState, id)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM brands WHERE id = $1`, id)
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

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	product.Barcode = strings.TrimSpace(product.Barcode)
	if product.Name == "" || product.PriceCents < 1 || product.CostCents < 0 || product.Stock < 0 {
		return nil, store.ErrValidation
	}
	if err := s.requireCategoryAndBrand(ctx, product.CategoryID, product.BrandID); err != nil {
		return nil, err
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, barcode, name, category_id, brand_id, cost_cents, price_cents, stock, image_path, description, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, product.ID, nullIfEmpty(product.Barcode), product.Name, product.CategoryID, product.BrandID,
		product.CostCents, product.PriceCents, product.Stock, nullIfEmpty(product.ImagePath),
		nullIfEmpty(product.Description), product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: barcode %s already in use", store.ErrValidation, product.Barcode)
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.getProductBy(ctx, "id", id)
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	return s.getProductBy(ctx, "barcode", barcode)
}

func (s *Store) getProductBy(ctx context.Context, column string, value string) (*domain.Product, error) {
	var product domain.Product
	var barcode, imagePath, description sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, barcode, name, category_id, brand_id, cost_cents, price_cents, stock, image_path, description, created_at, updated_at
		FROM products
		WHERE `+column+` = $1
	`, value).Scan(&product.ID, &barcode, &product.Name, &product.CategoryID, &product.BrandID,
		&product.CostCents, &product.PriceCents, &product.Stock, &imagePath, &description,
		&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	product.Barcode = barcode.String
	product.ImagePath = imagePath.String
	product.Description = description.String
	return &product, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	if len(ids) == 0 {
		return map[string]domain.Product{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, barcode, name, category_id, brand_id, cost_cents, price_cents, stock, created_at, updated_at
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		var product domain.Product
		var barcode sql.NullString
		if err := rows.Scan(&product.ID, &barcode, &product.Name, &product.CategoryID, &product.BrandID,
			&product.CostCents, &product.PriceCents, &product.Stock, &product.CreatedAt, &product.UpdatedAt); err != nil {
			return nil, err
		}
		product.Barcode = barcode.String
		result[product.ID] = product
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, barcode, name, category_id, brand_id, cost_cents, price_cents, stock, image_path, description, created_at, updated_at
		FROM products
		ORDER BY category_id, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var product domain.Product
		var barcode, imagePath, description sql.NullString
		if err := rows.Scan(&product.ID, &barcode, &product.Name, &product.CategoryID, &product.BrandID,
			&product.CostCents, &product.PriceCents, &product.Stock, &imagePath, &description,
			&product.CreatedAt, &product.UpdatedAt); err != nil {
			return nil, err
		}
		product.Barcode = barcode.String
		product.ImagePath = imagePath.String
		product.Description = description.String
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	product.Barcode = strings.TrimSpace(product.Barcode)
	if product.Name == "" || product.PriceCents < 1 || product.CostCents < 0 || product.Stock < 0 {
		return nil, store.ErrValidation
	}
	if err := s.requireCategoryAndBrand(ctx, product.CategoryID, product.BrandID); err != nil {
		return nil, err
	}
	product.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET barcode = $2, name = $3, category_id = $4, brand_id = $5, cost_cents = $6,
			price_cents = $7, stock = $8, image_path = $9, description = $10, updated_at = $11
		WHERE id = $1
	`, product.ID, nullIfEmpty(product.Barcode), product.Name, product.CategoryID, product.BrandID,
		product.CostCents, product.PriceCents, product.Stock, nullIfEmpty(product.ImagePath),
		nullIfEmpty(product.Description), product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: barcode %s already in use", store.ErrValidation, product.Barcode)
		}
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

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	var referenced bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM transaction_items WHERE product_id = $1)
	`, id).Scan(&referenced)
	if err != nil {
		return err
	}
	if referenced {
		return fmt.Errorf("%w: product %s still referenced by transactions", store.ErrInvalidState, id)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
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

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, address, store_name, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, customer.ID, customer.Name, nullIfEmpty(customer.Phone), nullIfEmpty(customer.Address),
		nullIfEmpty(customer.StoreName), customer.CreatedAt, customer.UpdatedAt)
	if err != nil {
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var customer domain.Customer
	var phone, address, storeName sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, address, store_name, created_at, updated_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&customer.ID, &customer.Name, &phone, &address, &storeName, &customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	customer.Phone = phone.String
	customer.Address = address.String
	customer.StoreName = storeName.String
	return &customer, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, address, store_name, created_at, updated_at
		FROM customers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var customer domain.Customer
		var phone, address, storeName sql.NullString
		if err := rows.Scan(&customer.ID, &customer.Name, &phone, &address, &storeName, &customer.CreatedAt, &customer.UpdatedAt); err != nil {
			return nil, err
		}
		customer.Phone = phone.String
		customer.Address = address.String
		customer.StoreName = storeName.String
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	customer.Name = strings.TrimSpace(customer.Name)
	if customer.Name == "" {
		return nil, store.ErrValidation
	}
	customer.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET name = $2, phone = $3, address = $4, store_name = $5, updated_at = $6
		WHERE id = $1
	`, customer.ID, customer.Name, nullIfEmpty(customer.Phone), nullIfEmpty(customer.Address),
		nullIfEmpty(customer.StoreName), customer.UpdatedAt)
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

	updated := customer
	return &updated, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	var referenced bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM transactions WHERE customer_id = $1)
	`, id).Scan(&referenced)
	if err != nil {
		return err
	}
	if referenced {
		return fmt.Errorf("%w: customer %s still referenced by transactions", store.ErrInvalidState, id)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
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

// CreateSale runs the whole create inside one serializable transaction:
// product rows are locked, stock is checked and debited per product, unit
// prices are frozen from the locked rows and the totals recomputed. A
// failure at any point rolls the entire call back.
func (s *Store) CreateSale(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if len(tx.Items) == 0 {
		return nil, fmt.Errorf("%w: transaction requires at least one line item", store.ErrValidation)
	}
	if tx.DiscountCents < 0 || tx.PaidCents < 0 {
		return nil, store.ErrValidation
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	if tx.CustomerID != "" {
		if err := requireCustomer(ctx, pgTx, tx.CustomerID); err != nil {
			return nil, err
		}
	}

	productIDs := uniqueProductIDs(tx.Items, nil)
	products, err := lockProducts(ctx, pgTx, productIDs)
	if err != nil {
		return nil, err
	}

	needed := make(map[string]int, len(tx.Items))
	for _, item := range tx.Items {
		if item.Qty < 1 {
			return nil, fmt.Errorf("%w: qty must be at least 1", store.ErrValidation)
		}
		if _, ok := products[item.ProductID]; !ok {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, item.ProductID)
		}
		needed[item.ProductID] += item.Qty
	}
	for productID, qty := range needed {
		product := products[productID]
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
		product := products[item.ProductID]
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
		_, err := pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $1, updated_at = $2
			WHERE id = $3
		`, qty, now, productID)
		if err != nil {
			return nil, txError(err)
		}
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO transactions (
			id, subtotal_cents, discount_cents, paid_cents, outstanding_cents,
			payment_mode, due_date, customer_id, operator_username, refunded_cents,
			created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, tx.ID, tx.SubtotalCents, tx.DiscountCents, tx.PaidCents, tx.OutstandingCents,
		tx.PaymentMode, nullDateString(tx.DueDate), nullIfEmpty(tx.CustomerID),
		tx.OperatorUsername, tx.RefundedCents, tx.CreatedAt, tx.UpdatedAt)
	if err != nil {
		return nil, txError(err)
	}

	for _, line := range tx.Items {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO transaction_items (id, transaction_id, product_id, qty, unit_price_cents, line_total_cents)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, line.ID, line.TransactionID, line.ProductID, line.Qty, line.UnitPriceCents, line.LineTotalCents)
		if err != nil {
			return nil, txError(err)
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, txError(err)
	}

	return &tx, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Transaction, error) {
	sales, err := s.querySales(ctx, "WHERE t.id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, store.ErrNotFound
	}
	return &sales[0], nil
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Transaction, error) {
	return s.querySales(ctx, "")
}

func (s *Store) querySales(ctx context.Context, where string, args ...any) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.subtotal_cents, t.discount_cents, t.paid_cents, t.outstanding_cents,
			t.payment_mode, t.due_date, t.customer_id, t.operator_username, t.refunded_cents,
			t.created_at, t.updated_at
		FROM transactions t
		`+where+`
		ORDER BY t.created_at DESC, t.id DESC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Transaction, 0, 64)
	index := make(map[string]int, 64)
	ids := make([]string, 0, 64)
	for rows.Next() {
		var tx domain.Transaction
		var dueDate sql.NullTime
		var customerID sql.NullString
		if err := rows.Scan(&tx.ID, &tx.SubtotalCents, &tx.DiscountCents, &tx.PaidCents, &tx.OutstandingCents,
			&tx.PaymentMode, &dueDate, &customerID, &tx.OperatorUsername, &tx.RefundedCents,
			&tx.CreatedAt, &tx.UpdatedAt); err != nil {
			return nil, err
		}
		if dueDate.Valid {
			tx.DueDate = dueDate.Time.Format(domain.DueDateLayout)
		}
		tx.CustomerID = customerID.String
		tx.Items = make([]domain.LineItem, 0, 4)
		index[tx.ID] = len(sales)
		ids = append(ids, tx.ID)
		sales = append(sales, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return sales, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.transaction_id, i.product_id, p.name, i.qty, i.unit_price_cents, i.line_total_cents
		FROM transaction_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.transaction_id = ANY($1)
		ORDER BY i.id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var line domain.LineItem
		if err := itemRows.Scan(&line.ID, &line.TransactionID, &line.ProductID, &line.ProductName,
			&line.Qty, &line.UnitPriceCents, &line.LineTotalCents); err != nil {
			return nil, err
		}
		if pos, ok := index[line.TransactionID]; ok {
			sales[pos].Items = append(sales[pos].Items, line)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

// UpdateSale reconciles the persisted line set against the desired one
// inside one serializable transaction. The net per-product plan is computed
// and validated in full against locked product rows before any stock write,
// so a failed edit leaves every row untouched. Kept lines preserve their
// frozen unit price; new lines snapshot the current sale price.
func (s *Store) UpdateSale(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if len(tx.Items) == 0 {
		return nil, fmt.Errorf("%w: transaction requires at least one line item", store.ErrValidation)
	}
	if tx.DiscountCents < 0 || tx.PaidCents < 0 {
		return nil, store.ErrValidation
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var existingCreatedAt time.Time
	var existingOperator string
	var existingRefunded int64
	err = pgTx.QueryRowContext(ctx, `
		SELECT created_at, operator_username, refunded_cents
		FROM transactions
		WHERE id = $1
		FOR UPDATE
	`, tx.ID).Scan(&existingCreatedAt, &existingOperator, &existingRefunded)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, txError(err)
	}

	if tx.CustomerID != "" {
		if err := requireCustomer(ctx, pgTx, tx.CustomerID); err != nil {
			return nil, err
		}
	}

	existingLines, err := queryLines(ctx, pgTx, tx.ID)
	if err != nil {
		return nil, txError(err)
	}
	existingByID := make(map[string]domain.LineItem, len(existingLines))
	for _, line := range existingLines {
		existingByID[line.ID] = line
	}

	desired := make([]domain.SaleItemInput, 0, len(tx.Items))
	for _, item := range tx.Items {
		if item.Qty < 1 {
			return nil, fmt.Errorf("%w: qty must be at least 1", store.ErrValidation)
		}
		if item.ID != "" {
			if _, ok := existingByID[item.ID]; !ok {
				return nil, fmt.Errorf("%w: line item %s", store.ErrNotFound, item.ID)
			}
		}
		desired = append(desired, domain.SaleItemInput{LineItemID: item.ID, ProductID: item.ProductID, Qty: item.Qty})
	}

	productIDs := uniqueProductIDs(tx.Items, existingLines)
	products, err := lockProducts(ctx, pgTx, productIDs)
	if err != nil {
		return nil, err
	}
	for _, item := range desired {
		if _, ok := products[item.ProductID]; !ok {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, item.ProductID)
		}
	}

	deltas := store.PlanStockDeltas(existingLines, desired)
	for productID, delta := range deltas {
		if delta >= 0 {
			continue
		}
		product, ok := products[productID]
		if !ok {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
		}
		if product.Stock+delta < 0 {
			return nil, fmt.Errorf("%w: %s: requested %d, available %d", store.ErrInsufficientStock, product.Name, -delta, product.Stock)
		}
	}

	now := time.Now().UTC()
	for productID, delta := range deltas {
		_, err := pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock + $1, updated_at = $2
			WHERE id = $3
		`, delta, now, productID)
		if err != nil {
			return nil, txError(err)
		}
	}

	subtotal := int64(0)
	keptIDs := make([]string, 0, len(desired))
	lines := make([]domain.LineItem, 0, len(desired))
	for _, item := range desired {
		product := products[item.ProductID]
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
		keptIDs = append(keptIDs, line.ID)
		lines = append(lines, line)

		if item.LineItemID != "" {
			_, err := pgTx.ExecContext(ctx, `
				UPDATE transaction_items
				SET product_id = $2, qty = $3, unit_price_cents = $4, line_total_cents = $5
				WHERE id = $1 AND transaction_id = $6
			`, line.ID, line.ProductID, line.Qty, line.UnitPriceCents, line.LineTotalCents, tx.ID)
			if err != nil {
				return nil, txError(err)
			}
		} else {
			_, err := pgTx.ExecContext(ctx, `
				INSERT INTO transaction_items (id, transaction_id, product_id, qty, unit_price_cents, line_total_cents)
				VALUES ($1,$2,$3,$4,$5,$6)
			`, line.ID, line.TransactionID, line.ProductID, line.Qty, line.UnitPriceCents, line.LineTotalCents)
			if err != nil {
				return nil, txError(err)
			}
		}
	}

	_, err = pgTx.ExecContext(ctx, `
		DELETE FROM transaction_items
		WHERE transaction_id = $1 AND NOT (id = ANY($2))
	`, tx.ID, keptIDs)
	if err != nil {
		return nil, txError(err)
	}

	tx.Items = lines
	tx.SubtotalCents = subtotal
	if tx.DiscountCents > subtotal {
		tx.DiscountCents = subtotal
	}
	tx.OutstandingCents = max0(subtotal - tx.DiscountCents - tx.PaidCents)
	tx.RefundedCents = existingRefunded
	tx.OperatorUsername = existingOperator
	tx.CreatedAt = existingCreatedAt
	tx.UpdatedAt = now

	_, err = pgTx.ExecContext(ctx, `
		UPDATE transactions
		SET subtotal_cents = $2, discount_cents = $3, paid_cents = $4, outstanding_cents = $5,
			payment_mode = $6, due_date = $7, customer_id = $8, updated_at = $9
		WHERE id = $1
	`, tx.ID, tx.SubtotalCents, tx.DiscountCents, tx.PaidCents, tx.OutstandingCents,
		tx.PaymentMode, nullDateString(tx.DueDate), nullIfEmpty(tx.CustomerID), tx.UpdatedAt)
	if err != nil {
		return nil, txError(err)
	}

	if err := pgTx.Commit(); err != nil {
		return nil, txError(err)
	}

	return &tx, nil
}

func (s *Store) DeleteSale(ctx context.Context, id string) error {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = pgTx.Rollback() }()

	var exists string
	err = pgTx.QueryRowContext(ctx, `
		SELECT id FROM transactions WHERE id = $1 FOR UPDATE
	`, id).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return txError(err)
	}

	lines, err := queryLines(ctx, pgTx, id)
	if err != nil {
		return txError(err)
	}

	// Restores each line's full quantity; stock already credited by
	// partial returns of this transaction stays credited.
	now := time.Now().UTC()
	for _, line := range lines {
		_, err := pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock + $1, updated_at = $2
			WHERE id = $3
		`, line.Qty, now, line.ProductID)
		if err != nil {
			return txError(err)
		}
	}

	for _, stmt := range []string{
		`DELETE FROM return_items WHERE return_id IN (SELECT id FROM returns WHERE transaction_id = $1)`,
		`DELETE FROM returns WHERE transaction_id = $1`,
		`DELETE FROM transaction_items WHERE transaction_id = $1`,
		`DELETE FROM transactions WHERE id = $1`,
	} {
		if _, err := pgTx.ExecContext(ctx, stmt, id); err != nil {
			return txError(err)
		}
	}

	if err := pgTx.Commit(); err != nil {
		return txError(err)
	}
	return nil
}

// CreateReturn evaluates the eligibility predicate against the locked
// transaction row, validates the cumulative per-line cap against all prior
// returns of the transaction, restores stock and writes the return rows,
// all inside one serializable transaction.
func (s *Store) CreateReturn(ctx context.Context, ret domain.Return, eligible store.ReturnEligibility) (*domain.Return, error) {
	if strings.TrimSpace(ret.Reason) == "" || len(ret.Lines) == 0 {
		return nil, fmt.Errorf("%w: return requires a reason and at least one line", store.ErrValidation)
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var locked domain.Transaction
	var dueDate sql.NullTime
	var customerID sql.NullString
	err = pgTx.QueryRowContext(ctx, `
		SELECT id, subtotal_cents, discount_cents, paid_cents, outstanding_cents,
			payment_mode, due_date, customer_id, operator_username, refunded_cents,
			created_at, updated_at
		FROM transactions WHERE id = $1 FOR UPDATE
	`, ret.TransactionID).Scan(&locked.ID, &locked.SubtotalCents, &locked.DiscountCents,
		&locked.PaidCents, &locked.OutstandingCents, &locked.PaymentMode, &dueDate,
		&customerID, &locked.OperatorUsername, &locked.RefundedCents,
		&locked.CreatedAt, &locked.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, txError(err)
	}
	if dueDate.Valid {
		locked.DueDate = dueDate.Time.Format(domain.DueDateLayout)
	}
	locked.CustomerID = customerID.String

	lines, err := queryLines(ctx, pgTx, ret.TransactionID)
	if err != nil {
		return nil, txError(err)
	}
	locked.Items = lines
	if eligible != nil {
		if err := eligible(&locked); err != nil {
			return nil, err
		}
	}
	lineByID := make(map[string]domain.LineItem, len(lines))
	for _, line := range lines {
		lineByID[line.ID] = line
	}

	returnedByLine := make(map[string]int)
	returnedRows, err := pgTx.QueryContext(ctx, `
		SELECT ri.line_item_id, COALESCE(SUM(ri.qty), 0)
		FROM return_items ri
		JOIN returns r ON r.id = ri.return_id
		WHERE r.transaction_id = $1
		GROUP BY ri.line_item_id
	`, ret.TransactionID)
	if err != nil {
		return nil, txError(err)
	}
	for returnedRows.Next() {
		var lineItemID string
		var qty int
		if err := returnedRows.Scan(&lineItemID, &qty); err != nil {
			_ = returnedRows.Close()
			return nil, err
		}
		returnedByLine[lineItemID] = qty
	}
	if err := returnedRows.Err(); err != nil {
		_ = returnedRows.Close()
		return nil, err
	}
	_ = returnedRows.Close()

	now := time.Now().UTC()
	if ret.ID == "" {
		ret.ID = xid.New("ret")
	}
	ret.CreatedAt = now

	total := int64(0)
	requested := make(map[string]int, len(ret.Lines))
	resultLines := make([]domain.ReturnLine, 0, len(ret.Lines))
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
		resultLines = append(resultLines, domain.ReturnLine{
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

	for _, line := range resultLines {
		_, err := pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock + $1, updated_at = $2
			WHERE id = $3
		`, line.Qty, now, line.ProductID)
		if err != nil {
			return nil, txError(err)
		}
	}

	ret.Lines = resultLines
	ret.TotalRefundCents = total

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO returns (id, transaction_id, reason, total_refund_cents, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, ret.ID, ret.TransactionID, ret.Reason, ret.TotalRefundCents, ret.CreatedAt)
	if err != nil {
		return nil, txError(err)
	}
	for _, line := range ret.Lines {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO return_items (id, return_id, line_item_id, product_id, qty, unit_price_cents, subtotal_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, line.ID, line.ReturnID, line.LineItemID, line.ProductID, line.Qty, line.UnitPriceCents, line.SubtotalCents)
		if err != nil {
			return nil, txError(err)
		}
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE transactions
		SET refunded_cents = refunded_cents + $2, updated_at = $3
		WHERE id = $1
	`, ret.TransactionID, total, now)
	if err != nil {
		return nil, txError(err)
	}

	if err := pgTx.Commit(); err != nil {
		return nil, txError(err)
	}

	return &ret, nil
}

func (s *Store) ListReturnsByTransaction(ctx context.Context, transactionID string) ([]domain.Return, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, reason, total_refund_cents, created_at
		FROM returns
		WHERE transaction_id = $1
		ORDER BY created_at, id
	`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	returns := make([]domain.Return, 0, 4)
	index := make(map[string]int, 4)
	ids := make([]string, 0, 4)
	for rows.Next() {
		var ret domain.Return
		if err := rows.Scan(&ret.ID, &ret.TransactionID, &ret.Reason, &ret.TotalRefundCents, &ret.CreatedAt); err != nil {
			return nil, err
		}
		ret.Lines = make([]domain.ReturnLine, 0, 4)
		index[ret.ID] = len(returns)
		ids = append(ids, ret.ID)
		returns = append(returns, ret)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(returns) == 0 {
		return returns, nil
	}

	lineRows, err := s.db.QueryContext(ctx, `
		SELECT ri.id, ri.return_id, ri.line_item_id, ri.product_id, p.name, ri.qty, ri.unit_price_cents, ri.subtotal_cents
		FROM return_items ri
		JOIN products p ON p.id = ri.product_id
		WHERE ri.return_id = ANY($1)
		ORDER BY ri.id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var line domain.ReturnLine
		if err := lineRows.Scan(&line.ID, &line.ReturnID, &line.LineItemID, &line.ProductID, &line.ProductName,
			&line.Qty, &line.UnitPriceCents, &line.SubtotalCents); err != nil {
			return nil, err
		}
		if pos, ok := index[line.ReturnID]; ok {
			returns[pos].Lines = append(returns[pos].Lines, line)
		}
	}
	if err := lineRows.Err(); err != nil {
		return nil, err
	}
	return returns, nil
}

func (s *Store) GetReturnedQtyByLineItem(ctx context.Context, transactionID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ri.line_item_id, COALESCE(SUM(ri.qty), 0)
		FROM return_items ri
		JOIN returns r ON r.id = ri.return_id
		WHERE r.transaction_id = $1
		GROUP BY ri.line_item_id
	`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var lineItemID string
		var qty int
		if err := rows.Scan(&lineItemID, &qty); err != nil {
			return nil, err
		}
		result[lineItemID] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrValidation
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,true,$4)
	`, username, user.Password, user.Role, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username %s taken", store.ErrValidation, username)
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrValidation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
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

func (s *Store) requireCategoryAndBrand(ctx context.Context, categoryID string, brandID string) error {
	var categoryExists, brandExists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1),
			EXISTS (SELECT 1 FROM brands WHERE id = $2)
	`, categoryID, brandID).Scan(&categoryExists, &brandExists)
	if err != nil {
		return err
	}
	if !categoryExists {
		return fmt.Errorf("%w: category %s", store.ErrNotFound, categoryID)
	}
	if !brandExists {
		return fmt.Errorf("%w: brand %s", store.ErrNotFound, brandID)
	}
	return nil
}

func requireCustomer(ctx context.Context, pgTx *sql.Tx, customerID string) error {
	var exists bool
	err := pgTx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)
	`, customerID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: customer %s", store.ErrNotFound, customerID)
	}
	return nil
}

// lockProducts reads the product rows referenced by a stock-mutating call
// with FOR UPDATE so concurrent sales against the same products serialize
// on the row locks.
func lockProducts(ctx context.Context, pgTx *sql.Tx, ids []string) (map[string]domain.Product, error) {
	if len(ids) == 0 {
		return nil, store.ErrValidation
	}
	rows, err := pgTx.QueryContext(ctx, `
		SELECT id, name, price_cents, stock
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, txError(err)
	}
	defer rows.Close()

	products := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(&product.ID, &product.Name, &product.PriceCents, &product.Stock); err != nil {
			return nil, err
		}
		products[product.ID] = product
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func queryLines(ctx context.Context, pgTx *sql.Tx, transactionID string) ([]domain.LineItem, error) {
	rows, err := pgTx.QueryContext(ctx, `
		SELECT i.id, i.transaction_id, i.product_id, p.name, i.qty, i.unit_price_cents, i.line_total_cents
		FROM transaction_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.transaction_id = $1
		ORDER BY i.id
	`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.LineItem, 0, 8)
	for rows.Next() {
		var line domain.LineItem
		if err := rows.Scan(&line.ID, &line.TransactionID, &line.ProductID, &line.ProductName,
			&line.Qty, &line.UnitPriceCents, &line.LineTotalCents); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func uniqueProductIDs(items []domain.LineItem, extra []domain.LineItem) []string {
	set := make(map[string]struct{}, len(items)+len(extra))
	for _, item := range items {
		if item.ProductID == "" {
			continue
		}
		set[item.ProductID] = struct{}{}
	}
	for _, item := range extra {
		if item.ProductID == "" {
			continue
		}
		set[item.ProductID] = struct{}{}
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// txError maps serialization and deadlock failures to ErrConflict so the
// caller can retry; anything else passes through unchanged.
func txError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.Code)
	}
	return err
}

func max0(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullDateString(val string) any {
	if val == "" {
		return nil
	}
	t, err := time.Parse(domain.DueDateLayout, val)
	if err != nil {
		return nil
	}
	return t
}
