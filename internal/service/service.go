package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"lapakponsel/backend/internal/domain"
	"lapakponsel/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// ReturnEligibility decides whether a transaction may accept a return.
// It returns nil for eligible transactions and a wrapped ErrInvalidState
// otherwise. The repository evaluates it inside the atomic unit that
// records the return.
type ReturnEligibility = store.ReturnEligibility

// CashOnlyReturns is the default shop policy: credit sales cannot be
// returned until they are reclassified to cash.
func CashOnlyReturns(tx *domain.Transaction) error {
	if tx.PaymentMode != domain.PaymentModeCash {
		return fmt.Errorf("%w: only cash transactions are returnable", store.ErrInvalidState)
	}
	return nil
}

// AnyModeReturns accepts returns regardless of payment mode.
func AnyModeReturns(_ *domain.Transaction) error {
	return nil
}

type Options struct {
	// ReclassifySettledCredit switches a credit transaction to cash and
	// clears its due date when an update leaves nothing outstanding.
	ReclassifySettledCredit bool
	ReturnEligibility       ReturnEligibility
}

type Service struct {
	repo                    store.Repository
	reclassifySettledCredit bool
	returnEligible          ReturnEligibility
}

func New(repo store.Repository, opts Options) *Service {
	eligible := opts.ReturnEligibility
	if eligible == nil {
		eligible = CashOnlyReturns
	}
	return &Service{
		repo:                    repo,
		reclassifySettledCredit: opts.ReclassifySettledCredit,
		returnEligible:          eligible,
	}
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Category{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Category{}, fmt.Errorf("%w: name is required", store.ErrValidation)
	}
	created, err := s.repo.CreateCategory(ctx, domain.Category{Name: req.Name, Description: strings.TrimSpace(req.Description)})
	if err != nil {
		return domain.Category{}, err
	}
	return *created, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id string, req domain.CategoryUpdateRequest) (domain.Category, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Category{}, err
	}
	existing, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}
	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Category{}, fmt.Errorf("%w: name is required", store.ErrValidation)
		}
		updated.Name = name
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	saved, err := s.repo.UpdateCategory(ctx, updated)
	if err != nil {
		return domain.Category{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteCategory(ctx, id)
}

func (s *Service) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	return s.repo.ListBrands(ctx)
}

func (s *Service) CreateBrand(ctx context.Context, req domain.BrandCreateRequest) (domain.Brand, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Brand{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Brand{}, fmt.Errorf("%w: name is required", store.ErrValidation)
	}
	created, err := s.repo.CreateBrand(ctx, domain.Brand{Name: req.Name, Description: strings.TrimSpace(req.Description)})
	if err != nil {
		return domain.Brand{}, err
	}
	return *created, nil
}

func (s *Service) UpdateBrand(ctx context.Context, id string, req domain.BrandUpdateRequest) (domain.Brand, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Brand{}, err
	}
	existing, err := s.repo.GetBrand(ctx, id)
	if err != nil {
		return domain.Brand{}, err
	}
	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Brand{}, fmt.Errorf("%w: name is required", store.ErrValidation)
		}
		updated.Name = name
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	saved, err := s.repo.UpdateBrand(ctx, updated)
	if err != nil {
		return domain.Brand{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteBrand(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteBrand(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) GetProductByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.Product{}, fmt.Errorf("%w: barcode is required", store.ErrValidation)
	}
	product, err := s.repo.GetProductByBarcode(ctx, barcode)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.CategoryID == "" || req.BrandID == "" {
		return domain.Product{}, fmt.Errorf("%w: name, category_id and brand_id are required", store.ErrValidation)
	}
	if req.PriceCents < 1 || req.CostCents < 0 || req.InitialStock < 0 {
		return domain.Product{}, fmt.Errorf("%w: prices and initial stock must be non-negative", store.ErrValidation)
	}
	if req.CostCents > 0 && req.PriceCents < req.CostCents {
		log.Printf("[service] WARN: product %q priced below cost (%d < %d)", req.Name, req.PriceCents, req.CostCents)
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Barcode:     strings.TrimSpace(req.Barcode),
		Name:        req.Name,
		CategoryID:  req.CategoryID,
		BrandID:     req.BrandID,
		CostCents:   req.CostCents,
		PriceCents:  req.PriceCents,
		Stock:       req.InitialStock,
		ImagePath:   strings.TrimSpace(req.ImagePath),
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		return domain.Product{}, err
	}
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, fmt.Errorf("%w: name is required", store.ErrValidation)
		}
		updated.Name = name
	}
	if req.Barcode != nil {
		updated.Barcode = strings.TrimSpace(*req.Barcode)
	}
	if req.CategoryID != nil {
		updated.CategoryID = *req.CategoryID
	}
	if req.BrandID != nil {
		updated.BrandID = *req.BrandID
	}
	if req.CostCents != nil {
		if *req.CostCents < 0 {
			return domain.Product{}, fmt.Errorf("%w: cost_cents must be non-negative", store.ErrValidation)
		}
		updated.CostCents = *req.CostCents
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return domain.Product{}, fmt.Errorf("%w: price_cents must be positive", store.ErrValidation)
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return domain.Product{}, fmt.Errorf("%w: stock must be non-negative", store.ErrValidation)
		}
		updated.Stock = *req.Stock
	}
	if req.ImagePath != nil {
		updated.ImagePath = strings.TrimSpace(*req.ImagePath)
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteProduct(ctx, id)
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Customer{}, fmt.Errorf("%w: name is required", store.ErrValidation)
	}
	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		Name:      req.Name,
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		StoreName: strings.TrimSpace(req.StoreName),
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return *created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	existing, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Customer{}, fmt.Errorf("%w: name is required", store.ErrValidation)
		}
		updated.Name = name
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		updated.Address = strings.TrimSpace(*req.Address)
	}
	if req.StoreName != nil {
		updated.StoreName = strings.TrimSpace(*req.StoreName)
	}
	saved, err := s.repo.UpdateCustomer(ctx, updated)
	if err != nil {
		return domain.Customer{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteCustomer(ctx, id)
}

// CreateTransaction validates the payload, resolves the operator from the
// request context and hands the sale to the repository, which performs the
// stock check, debit and total recomputation atomically. Unit prices are
// always frozen server-side from the product's current sale price.
func (s *Service) CreateTransaction(ctx context.Context, req domain.TransactionCreateRequest) (domain.Transaction, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Username == "" {
		return domain.Transaction{}, fmt.Errorf("%w: operator identity missing", store.ErrValidation)
	}

	mode, dueDate, err := validatePayment(req.PaymentMode, req.DueDate, req.PaidCents, req.DiscountCents)
	if err != nil {
		return domain.Transaction{}, err
	}
	items, err := validateItems(req.Items, false)
	if err != nil {
		return domain.Transaction{}, err
	}
	if req.CustomerID != "" {
		if _, err := s.repo.GetCustomer(ctx, req.CustomerID); err != nil {
			return domain.Transaction{}, fmt.Errorf("%w: customer %s", store.ErrNotFound, req.CustomerID)
		}
	}

	created, err := s.repo.CreateSale(ctx, domain.Transaction{
		DiscountCents:    req.DiscountCents,
		PaidCents:        req.PaidCents,
		PaymentMode:      mode,
		DueDate:          dueDate,
		CustomerID:       req.CustomerID,
		OperatorUsername: actor.Username,
		Items:            items,
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	log.Printf("[service] transaction created id=%s operator=%s subtotal=%d outstanding=%d",
		created.ID, actor.Username, created.SubtotalCents, created.OutstandingCents)
	return *created, nil
}

// UpdateTransaction reconciles the stored line set against the submitted
// one. The repository computes and applies the net per-product stock plan;
// this layer validates the payload and applies the settled-credit
// reclassification policy before handing over.
func (s *Service) UpdateTransaction(ctx context.Context, id string, req domain.TransactionUpdateRequest) (domain.Transaction, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Username == "" {
		return domain.Transaction{}, fmt.Errorf("%w: operator identity missing", store.ErrValidation)
	}

	existing, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}

	mode, dueDate, err := validatePayment(req.PaymentMode, req.DueDate, req.PaidCents, req.DiscountCents)
	if err != nil {
		return domain.Transaction{}, err
	}
	items, err := validateItems(req.Items, true)
	if err != nil {
		return domain.Transaction{}, err
	}
	if req.CustomerID != "" {
		if _, err := s.repo.GetCustomer(ctx, req.CustomerID); err != nil {
			return domain.Transaction{}, fmt.Errorf("%w: customer %s", store.ErrNotFound, req.CustomerID)
		}
	}

	if s.reclassifySettledCredit && existing.PaymentMode == domain.PaymentModeCredit && mode == domain.PaymentModeCredit {
		outstanding, err := s.projectOutstanding(ctx, existing, items, req.DiscountCents, req.PaidCents)
		if err != nil {
			return domain.Transaction{}, err
		}
		if outstanding <= 0 {
			mode = domain.PaymentModeCash
			dueDate = ""
			log.Printf("[service] transaction %s settled, reclassifying credit to cash", id)
		}
	}

	updated, err := s.repo.UpdateSale(ctx, domain.Transaction{
		ID:            id,
		DiscountCents: req.DiscountCents,
		PaidCents:     req.PaidCents,
		PaymentMode:   mode,
		DueDate:       dueDate,
		CustomerID:    req.CustomerID,
		Items:         items,
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	log.Printf("[service] transaction updated id=%s operator=%s subtotal=%d outstanding=%d",
		updated.ID, actor.Username, updated.SubtotalCents, updated.OutstandingCents)
	return *updated, nil
}

func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Username == "" {
		return fmt.Errorf("%w: operator identity missing", store.ErrValidation)
	}
	if err := s.repo.DeleteSale(ctx, id); err != nil {
		return err
	}
	log.Printf("[service] transaction deleted id=%s operator=%s", id, actor.Username)
	return nil
}

func (s *Service) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	tx, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	return *tx, nil
}

func (s *Service) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	return s.repo.ListSales(ctx)
}

// CreateReturn records a partial return. The eligibility policy, the
// cumulative per-line cap and the stock restore are all enforced inside
// the repository's atomic unit.
func (s *Service) CreateReturn(ctx context.Context, transactionID string, req domain.ReturnCreateRequest) (domain.Return, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Username == "" {
		return domain.Return{}, fmt.Errorf("%w: operator identity missing", store.ErrValidation)
	}

	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return domain.Return{}, fmt.Errorf("%w: reason is required", store.ErrValidation)
	}
	if len(req.Items) == 0 {
		return domain.Return{}, fmt.Errorf("%w: return requires at least one line", store.ErrValidation)
	}
	lines := make([]domain.ReturnLine, 0, len(req.Items))
	for _, item := range req.Items {
		if strings.TrimSpace(item.LineItemID) == "" {
			return domain.Return{}, fmt.Errorf("%w: line_item_id is required", store.ErrValidation)
		}
		if item.Qty < 1 {
			return domain.Return{}, fmt.Errorf("%w: return qty must be at least 1", store.ErrValidation)
		}
		lines = append(lines, domain.ReturnLine{LineItemID: item.LineItemID, Qty: item.Qty})
	}

	created, err := s.repo.CreateReturn(ctx, domain.Return{
		TransactionID: transactionID,
		Reason:        req.Reason,
		Lines:         lines,
	}, s.returnEligible)
	if err != nil {
		return domain.Return{}, err
	}

	log.Printf("[service] return created id=%s transaction=%s operator=%s refund=%d",
		created.ID, transactionID, actor.Username, created.TotalRefundCents)
	return *created, nil
}

func (s *Service) ListReturns(ctx context.Context, transactionID string) ([]domain.Return, error) {
	if _, err := s.repo.GetSale(ctx, transactionID); err != nil {
		return nil, err
	}
	return s.repo.ListReturnsByTransaction(ctx, transactionID)
}

// projectOutstanding predicts the outstanding balance the repository will
// compute for the desired line set: kept lines keep their frozen unit
// price, new lines take the product's current sale price. Used only for
// the reclassification decision; the repository's own recomputation stays
// authoritative.
func (s *Service) projectOutstanding(ctx context.Context, existing *domain.Transaction, items []domain.LineItem, discountCents int64, paidCents int64) (int64, error) {
	priorByID := make(map[string]domain.LineItem, len(existing.Items))
	for _, line := range existing.Items {
		priorByID[line.ID] = line
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	subtotal := int64(0)
	for _, item := range items {
		unitPrice := int64(0)
		if prior, ok := priorByID[item.ID]; ok && prior.ProductID == item.ProductID {
			unitPrice = prior.UnitPriceCents
		} else if product, ok := products[item.ProductID]; ok {
			unitPrice = product.PriceCents
		} else {
			return 0, fmt.Errorf("%w: product %s", store.ErrNotFound, item.ProductID)
		}
		subtotal += int64(item.Qty) * unitPrice
	}
	if discountCents > subtotal {
		discountCents = subtotal
	}
	outstanding := subtotal - discountCents - paidCents
	if outstanding < 0 {
		outstanding = 0
	}
	return outstanding, nil
}

func validatePayment(mode string, dueDate string, paidCents int64, discountCents int64) (string, string, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	dueDate = strings.TrimSpace(dueDate)
	if mode != domain.PaymentModeCash && mode != domain.PaymentModeCredit {
		return "", "", fmt.Errorf("%w: payment_mode must be cash or credit", store.ErrValidation)
	}
	if paidCents < 0 {
		return "", "", fmt.Errorf("%w: paid_cents must be non-negative", store.ErrValidation)
	}
	if discountCents < 0 {
		return "", "", fmt.Errorf("%w: discount_cents must be non-negative", store.ErrValidation)
	}
	if mode == domain.PaymentModeCredit {
		if dueDate == "" {
			return "", "", fmt.Errorf("%w: due_date is required for credit transactions", store.ErrValidation)
		}
		if _, err := time.Parse(domain.DueDateLayout, dueDate); err != nil {
			return "", "", fmt.Errorf("%w: due_date must be formatted %s", store.ErrValidation, domain.DueDateLayout)
		}
	} else {
		// Cash sales never carry a due date, even if the client sent one.
		dueDate = ""
	}
	return mode, dueDate, nil
}

func validateItems(inputs []domain.SaleItemInput, allowLineIDs bool) ([]domain.LineItem, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: transaction requires at least one line item", store.ErrValidation)
	}
	items := make([]domain.LineItem, 0, len(inputs))
	seenLineIDs := make(map[string]struct{}, len(inputs))
	for _, input := range inputs {
		productID := strings.TrimSpace(input.ProductID)
		if productID == "" {
			return nil, fmt.Errorf("%w: product_id is required", store.ErrValidation)
		}
		if input.Qty < 1 {
			return nil, fmt.Errorf("%w: qty must be at least 1", store.ErrValidation)
		}
		lineID := strings.TrimSpace(input.LineItemID)
		if lineID != "" && !allowLineIDs {
			return nil, fmt.Errorf("%w: line_item_id is only valid on update", store.ErrValidation)
		}
		if lineID != "" {
			if _, dup := seenLineIDs[lineID]; dup {
				return nil, fmt.Errorf("%w: duplicate line_item_id %s", store.ErrValidation, lineID)
			}
			seenLineIDs[lineID] = struct{}{}
		}
		items = append(items, domain.LineItem{ID: lineID, ProductID: productID, Qty: input.Qty})
	}
	return items, nil
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return fmt.Errorf("admin role required")
	}
	return nil
}
