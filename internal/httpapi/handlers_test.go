package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"lapakponsel/backend/internal/domain"
	"lapakponsel/backend/internal/report"
	"lapakponsel/backend/internal/service"
	"lapakponsel/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, service.Options{ReclassifySettledCredit: true})
	reports := report.NewEngine(repo, nil, time.Minute)
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, reports, auth, "*")
}

// mustHashPassword generates a bcrypt hash of the given password or fails the test.
func mustHashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

// doJSON fires an authenticated JSON request through the full handler chain.
func doJSON(t *testing.T, api *API, method string, path string, token string, csrf string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_Success(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "admin123",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["access_token"] == "" || body["access_token"] == nil {
		t.Fatalf("expected access_token in response, got %v", body)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleProducts_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleProducts_WithValidToken(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/products", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["products"] == nil {
		t.Fatalf("expected products key in response, got %v", body)
	}
}

func TestBarcodeLookup(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/products/barcode/8991001001011", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/products/barcode/0000000000000", token, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown barcode, got %d", rec.Code)
	}
}

func TestCreateTransactionEndToEnd(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/transactions", token, csrf, domain.TransactionCreateRequest{
		PaymentMode:   domain.PaymentModeCash,
		PaidCents:     70000,
		DiscountCents: 5000,
		CustomerID:    "cus_01",
		Items: []domain.SaleItemInput{
			{ProductID: "prd_case_01", Qty: 2},
			{ProductID: "prd_cbl_01", Qty: 1},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Transaction domain.Transaction `json:"transaction"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	// case 2x15000 + cable 1x25000 = 55000, fully covered by payment.
	if body.Transaction.SubtotalCents != 55000 {
		t.Fatalf("subtotal = %d, want 55000", body.Transaction.SubtotalCents)
	}
	if body.Transaction.OutstandingCents != 0 {
		t.Fatalf("outstanding = %d, want 0", body.Transaction.OutstandingCents)
	}
	if len(body.Transaction.Items) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(body.Transaction.Items))
	}

	getRec := doJSON(t, api, http.MethodGet, "/api/v1/transactions/"+body.Transaction.ID, token, "", nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200 reading back transaction, got %d", getRec.Code)
	}
}

func TestCreateTransactionInsufficientStockReturns409(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/transactions", token, csrf, domain.TransactionCreateRequest{
		PaymentMode: domain.PaymentModeCash,
		PaidCents:   100000000,
		Items: []domain.SaleItemInput{
			{ProductID: "prd_chg_01", Qty: 10000},
		},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestCreateTransactionCreditWithoutDueDateReturns400(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/transactions", token, csrf, domain.TransactionCreateRequest{
		PaymentMode: domain.PaymentModeCredit,
		Items: []domain.SaleItemInput{
			{ProductID: "prd_case_01", Qty: 1},
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestReturnFlowOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)
	csrf := fetchCSRFToken(t, api)

	createRec := doJSON(t, api, http.MethodPost, "/api/v1/transactions", token, csrf, domain.TransactionCreateRequest{
		PaymentMode: domain.PaymentModeCash,
		PaidCents:   125000,
		Items: []domain.SaleItemInput{
			{ProductID: "prd_cbl_01", Qty: 5},
		},
	})
	if createRec.Code != http.StatusCreated {
		t.Fatalf("create failed: %d %s", createRec.Code, createRec.Body.String())
	}
	var created struct {
		Transaction domain.Transaction `json:"transaction"`
	}
	if err := json.NewDecoder(createRec.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	lineID := created.Transaction.Items[0].ID

	returnsPath := fmt.Sprintf("/api/v1/transactions/%s/returns", created.Transaction.ID)
	retRec := doJSON(t, api, http.MethodPost, returnsPath, token, csrf, domain.ReturnCreateRequest{
		Reason: "customer brought back faulty cable",
		Items:  []domain.ReturnItemInput{{LineItemID: lineID, Qty: 2}},
	})
	if retRec.Code != http.StatusCreated {
		t.Fatalf("return failed: %d %s", retRec.Code, retRec.Body.String())
	}
	var returned struct {
		Return domain.Return `json:"return"`
	}
	if err := json.NewDecoder(retRec.Body).Decode(&returned); err != nil {
		t.Fatalf("decode return response: %v", err)
	}
	if returned.Return.TotalRefundCents != 50000 {
		t.Fatalf("refund = %d, want 50000", returned.Return.TotalRefundCents)
	}

	// A second return over the remaining quantity must hit the cumulative cap.
	overRec := doJSON(t, api, http.MethodPost, returnsPath, token, csrf, domain.ReturnCreateRequest{
		Reason: "second batch",
		Items:  []domain.ReturnItemInput{{LineItemID: lineID, Qty: 4}},
	})
	if overRec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for over-cap return, got %d (body: %s)", overRec.Code, overRec.Body.String())
	}

	listRec := doJSON(t, api, http.MethodGet, returnsPath, token, "", nil)
	if listRec.Code != http.StatusOK {
		t.Fatalf("list returns failed: %d", listRec.Code)
	}
	var listed domain.ReturnListResponse
	if err := json.NewDecoder(listRec.Body).Decode(&listed); err != nil {
		t.Fatalf("decode returns list: %v", err)
	}
	if len(listed.Returns) != 1 {
		t.Fatalf("expected 1 return on record, got %d", len(listed.Returns))
	}
}

func TestUpdateTransactionNotFoundReturns404(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)
	csrf := fetchCSRFToken(t, api)

	rec := doJSON(t, api, http.MethodPut, "/api/v1/transactions/trx_missing", token, csrf, domain.TransactionUpdateRequest{
		PaymentMode: domain.PaymentModeCash,
		Items: []domain.SaleItemInput{
			{ProductID: "prd_case_01", Qty: 1},
		},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestReportsRequireAdminRole(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsCashier(t, api)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/reports/revenue?granularity=month", token, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier, got %d", rec.Code)
	}
}

func TestRevenueReportOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)
	csrf := fetchCSRFToken(t, api)

	createRec := doJSON(t, api, http.MethodPost, "/api/v1/transactions", token, csrf, domain.TransactionCreateRequest{
		PaymentMode: domain.PaymentModeCash,
		PaidCents:   20000,
		Items: []domain.SaleItemInput{
			{ProductID: "prd_scr_01", Qty: 1},
		},
	})
	if createRec.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", createRec.Code)
	}

	rec := doJSON(t, api, http.MethodGet, "/api/v1/reports/revenue?granularity=month", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var resp domain.RevenueReport
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(resp.Buckets) != 1 || resp.Buckets[0].RevenueCents != 20000 {
		t.Fatalf("unexpected report: %+v", resp)
	}
}

func TestTransactionsCSVDownload(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/reports/transactions.csv", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

// TestMustHashPassword verifies that the test helper produces valid bcrypt hashes
// (used to confirm test infrastructure is sound).
func TestMustHashPassword(t *testing.T) {
	hash := mustHashPassword(t, "secret")
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret")); err != nil {
		t.Fatalf("hash verification failed: %v", err)
	}
}
