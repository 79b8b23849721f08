package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printdock/printdock-backend/api/middleware"
	"github.com/printdock/printdock-backend/internal/batchimports"
	"github.com/printdock/printdock-backend/internal/orders"
	"github.com/printdock/printdock-backend/pkg/enums"
	pkgerrors "github.com/printdock/printdock-backend/pkg/errors"
	"github.com/printdock/printdock-backend/pkg/logger"
	"github.com/printdock/printdock-backend/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func withCaller(req *http.Request, id uuid.UUID, role enums.UserRole) *http.Request {
	ctx := middleware.WithUserID(req.Context(), id.String())
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

type stubOrderService struct {
	orders.Service
	quoteUser  uuid.UUID
	quoteReq   orders.QuoteRequest
	createErr  error
	listParams orders.ListParams
}

func (s *stubOrderService) Quote(_ context.Context, userID uuid.UUID, req orders.QuoteRequest) (*orders.Quote, error) {
	s.quoteUser = userID
	s.quoteReq = req
	return &orders.Quote{Balance: decimal.NewFromInt(100), CanSubmit: true}, nil
}

func (s *stubOrderService) Create(_ context.Context, _ uuid.UUID, _ orders.CreateOrderRequest) (*orders.Placement, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &orders.Placement{Total: decimal.RequireFromString("50.98")}, nil
}

func (s *stubOrderService) List(_ context.Context, params orders.ListParams) (*types.Page[orders.OrderDTO], error) {
	s.listParams = params
	return &types.Page[orders.OrderDTO]{Items: []orders.OrderDTO{}}, nil
}

type stubBatchService struct {
	batchimports.Service
	fileName string
	body     string
}

func (s *stubBatchService) Import(_ context.Context, _ uuid.UUID, fileName string, body io.Reader) (*batchimports.BatchImportDTO, error) {
	raw, _ := io.ReadAll(body)
	s.fileName = fileName
	s.body = string(raw)
	return &batchimports.BatchImportDTO{FileName: fileName, OrderCount: 1, Status: enums.BatchImportCompleted}, nil
}

func TestOrderQuoteRequiresUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/quote", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	OrderQuote(&stubOrderService{}, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestOrderQuotePassesCaller(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	body := `{"items":[{"product_id":"` + productID.String() + `","quantity":2,"customizations":["front"]}],"shipping_method":"standard"}`
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/orders/quote", strings.NewReader(body)), userID, enums.UserRoleUser)
	rec := httptest.NewRecorder()

	stub := &stubOrderService{}
	OrderQuote(stub, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.quoteUser != userID {
		t.Fatalf("expected caller %s, got %s", userID, stub.quoteUser)
	}
	if len(stub.quoteReq.Items) != 1 || stub.quoteReq.Items[0].Quantity != 2 {
		t.Fatalf("unexpected quote request %+v", stub.quoteReq)
	}

	var env struct {
		Success bool `json:"success"`
		Data    struct {
			CanSubmit bool `json:"can_submit"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Success || !env.Data.CanSubmit {
		t.Fatalf("unexpected envelope %s", rec.Body.String())
	}
}

func TestOrderQuoteRejectsEmptyItems(t *testing.T) {
	body := `{"items":[],"shipping_method":"standard"}`
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/orders/quote", strings.NewReader(body)), uuid.New(), enums.UserRoleUser)
	rec := httptest.NewRecorder()
	OrderQuote(&stubOrderService{}, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestOrderCreateInsufficientBalance(t *testing.T) {
	body := `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":1,"customizations":[]}],` +
		`"shipping_address":{"name":"Ada","line1":"1 Main St","city":"Austin","postal_code":"78701"},"shipping_method":"express"}`
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), uuid.New(), enums.UserRoleUser)
	rec := httptest.NewRecorder()

	stub := &stubOrderService{createErr: pkgerrors.New(pkgerrors.CodeInsufficient, "insufficient balance")}
	OrderCreate(stub, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "INSUFFICIENT_BALANCE") {
		t.Fatalf("expected error code in body, got %s", rec.Body.String())
	}
}

func TestOrderListScopesCustomers(t *testing.T) {
	userID := uuid.New()
	other := uuid.New()

	stub := &stubOrderService{}
	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/v1/orders?user_id="+other.String(), nil), userID, enums.UserRoleUser)
	rec := httptest.NewRecorder()
	OrderList(stub, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.listParams.UserID == nil || *stub.listParams.UserID != userID {
		t.Fatalf("customer listing must be scoped to caller, got %v", stub.listParams.UserID)
	}

	stub = &stubOrderService{}
	req = withCaller(httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders?user_id="+other.String()+"&status=pending", nil), userID, enums.UserRoleAdmin)
	rec = httptest.NewRecorder()
	OrderList(stub, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.listParams.UserID == nil || *stub.listParams.UserID != other {
		t.Fatalf("admin filter not applied, got %v", stub.listParams.UserID)
	}
	if stub.listParams.Status == nil || *stub.listParams.Status != enums.OrderStatusPending {
		t.Fatalf("status filter not applied")
	}
}

func multipartBody(t *testing.T, field, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, name)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestOrderBatchImport(t *testing.T) {
	csv := "sku,quantity\nTEE-1,2\n"

	t.Run("success", func(t *testing.T) {
		body, contentType := multipartBody(t, "file", "orders.csv", csv)
		req := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/orders/batch", body), uuid.New(), enums.UserRoleUser)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		stub := &stubBatchService{}
		OrderBatchImport(stub, 1024, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.fileName != "orders.csv" || stub.body != csv {
			t.Fatalf("unexpected upload %q %q", stub.fileName, stub.body)
		}
	})

	t.Run("wrong field", func(t *testing.T) {
		body, contentType := multipartBody(t, "upload", "orders.csv", csv)
		req := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/orders/batch", body), uuid.New(), enums.UserRoleUser)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		OrderBatchImport(&stubBatchService{}, 1024, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("too large", func(t *testing.T) {
		body, contentType := multipartBody(t, "file", "orders.csv", csv)
		req := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/orders/batch", body), uuid.New(), enums.UserRoleUser)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		stub := &stubBatchService{}
		OrderBatchImport(stub, 8, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if stub.fileName != "" {
			t.Fatal("oversized file must not reach the service")
		}
	})

	t.Run("not multipart", func(t *testing.T) {
		req := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/orders/batch", strings.NewReader(csv)), uuid.New(), enums.UserRoleUser)
		req.Header.Set("Content-Type", "text/csv")
		rec := httptest.NewRecorder()
		OrderBatchImport(&stubBatchService{}, 1024, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
