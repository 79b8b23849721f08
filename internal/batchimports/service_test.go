package batchimports

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/printdock/printdock-backend/internal/orders"
	"github.com/printdock/printdock-backend/internal/products"
	"github.com/printdock/printdock-backend/internal/transactions"
	"github.com/printdock/printdock-backend/internal/users"
	"github.com/printdock/printdock-backend/pkg/db"
	"github.com/printdock/printdock-backend/pkg/db/dbtest"
	"github.com/printdock/printdock-backend/pkg/db/models"
	dbtypes "github.com/printdock/printdock-backend/pkg/db/types"
	"github.com/printdock/printdock-backend/pkg/enums"
	pkgerrors "github.com/printdock/printdock-backend/pkg/errors"
	"github.com/printdock/printdock-backend/pkg/logger"
	"github.com/printdock/printdock-backend/pkg/outbox"
)

type harness struct {
	svc   Service
	repo  *Repository
	conn  *gorm.DB
	users *users.Repository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.Nop()
	runner := db.FromGorm(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	userRepo := users.NewRepository(conn)
	productRepo := products.NewRepository(conn)

	orderSvc, err := orders.NewService(orders.ServiceParams{
		DB:           runner,
		Repo:         orders.NewRepository(conn),
		Products:     productRepo,
		Users:        userRepo,
		Transactions: transactions.NewRepository(conn),
		Outbox:       emitter,
		Logger:       logg,
	})
	require.NoError(t, err)

	repo := NewRepository(conn)
	svc, err := NewService(ServiceParams{
		DB:       runner,
		Repo:     repo,
		Products: productRepo,
		Orders:   orderSvc,
		Outbox:   emitter,
		Logger:   logg,
	})
	require.NoError(t, err)
	return &harness{svc: svc, repo: repo, conn: conn, users: userRepo}
}

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func (h *harness) customer(t *testing.T, balance string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	user, err := h.users.Create(ctx, users.CreateUserDTO{Email: uuid.NewString() + "@example.com", PasswordHash: "h", CompanyName: "Co"})
	require.NoError(t, err)
	require.NoError(t, h.users.TransitionStatus(ctx, user.ID, []enums.UserStatus{enums.UserStatusPending}, enums.UserStatusActive))
	require.NoError(t, h.users.Credit(ctx, user.ID, decimal.RequireFromString(balance)))
	return user.ID
}

func (h *harness) product(t *testing.T, sku string) {
	t.Helper()
	require.NoError(t, h.conn.Create(&models.Product{
		Name:                 "Tee " + sku,
		SKU:                  sku,
		BasePrice:            dec("10.00"),
		Colors:               dbtypes.NewJSON([]string{"black"}),
		Sizes:                dbtypes.NewJSON([]string{"M"}),
		Type:                 enums.ProductTypeSimple,
		ProductionOptionType: enums.ProductionPrintPosition,
		CustomizationOptions: dbtypes.NewJSON([]models.CustomizationOption{
			{ID: "front", Type: enums.ProductionPrintPosition, Name: "Front", Price: dec("2.00"), Default: true},
			{ID: "back", Type: enums.ProductionPrintPosition, Name: "Back", Price: dec("2.00")},
		}),
		Active: true,
	}).Error)
}

func (h *harness) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.conn.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func row(sku string, qty int, custom, method string) string {
	return fmt.Sprintf("%s,%d,black,M,%s,%s,Ana,1 Main St,,Austin,TX,78701,us,,\n", sku, qty, custom, method)
}

func TestImportCreatesOrdersAtomically(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.customer(t, "100.00")
	h.product(t, "TEE-A")
	h.product(t, "TEE-B")

	// 2x10 + 2x2 back + 5 standard = 29; 1x10 + 15 express = 25
	body := header + row("TEE-A", 2, "back", "") + row("TEE-B", 1, "", "express")
	batch, err := h.svc.Import(ctx, userID, "uploads/march.csv", strings.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, enums.BatchImportCompleted, batch.Status)
	assert.Equal(t, "march.csv", batch.FileName)
	assert.Equal(t, 2, batch.OrderCount)
	assert.Equal(t, "54.00", batch.TotalPrice.StringFixed(2))
	assert.Nil(t, batch.Error)

	assert.EqualValues(t, 2, h.count(t, &models.Order{}, "batch_import_id = ?", batch.ID))
	user, err := h.users.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "46.00", user.Balance.StringFixed(2))
	assert.EqualValues(t, 1, h.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventBatchImportCompleted))
}

func TestImportRollsBackOnFailure(t *testing.T) {
	cases := []struct {
		name    string
		balance string
		body    string
		code    pkgerrors.Code
	}{
		{"unknown sku", "100.00", header + row("TEE-A", 1, "", "") + row("NOPE", 1, "", ""), pkgerrors.CodeValidation},
		{"bad option", "100.00", header + row("TEE-A", 1, "", "") + row("TEE-A", 1, "pocket", ""), pkgerrors.CodeValidation},
		{"insufficient balance", "20.00", header + row("TEE-A", 1, "", "") + row("TEE-A", 1, "", ""), pkgerrors.CodeInsufficient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			userID := h.customer(t, tc.balance)
			h.product(t, "TEE-A")

			_, err := h.svc.Import(ctx, userID, "bad.csv", strings.NewReader(tc.body))
			require.Error(t, err)
			assert.True(t, pkgerrors.Is(err, tc.code), "got %v", err)

			assert.EqualValues(t, 0, h.count(t, &models.Order{}, "user_id = ?", userID))
			assert.EqualValues(t, 0, h.count(t, &models.Transaction{}, "user_id = ?", userID))

			page, err := h.svc.List(ctx, ListParams{UserID: &userID})
			require.NoError(t, err)
			require.Len(t, page.Items, 1)
			assert.Equal(t, enums.BatchImportFailed, page.Items[0].Status)
			require.NotNil(t, page.Items[0].Error)

			user, err := h.users.FindByID(ctx, userID)
			require.NoError(t, err)
			assert.Equal(t, tc.balance, user.Balance.StringFixed(2))
		})
	}
}

func TestImportRejectsMalformedFileWithoutRecord(t *testing.T) {
	h := newHarness(t)
	userID := h.customer(t, "10.00")

	_, err := h.svc.Import(context.Background(), userID, "x.csv", strings.NewReader("sku\nA\n"))
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	assert.EqualValues(t, 0, h.count(t, &models.BatchImport{}, "user_id = ?", userID))
}

func TestGetHidesOtherCustomersImports(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := h.customer(t, "50.00")
	other := h.customer(t, "0")
	h.product(t, "TEE-A")

	batch, err := h.svc.Import(ctx, owner, "a.csv", strings.NewReader(header+row("TEE-A", 1, "", "")))
	require.NoError(t, err)

	_, err = h.svc.Get(ctx, Actor{UserID: other}, batch.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	got, err := h.svc.Get(ctx, Actor{UserID: other, Admin: true}, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.ID, got.ID)
}

func TestFailStaleProcessing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.customer(t, "0")

	stale := &models.BatchImport{UserID: userID, FileName: "old.csv", Status: enums.BatchImportProcessing}
	fresh := &models.BatchImport{UserID: userID, FileName: "new.csv", Status: enums.BatchImportProcessing}
	require.NoError(t, h.repo.Create(ctx, stale))
	require.NoError(t, h.repo.Create(ctx, fresh))
	require.NoError(t, h.conn.Model(stale).Update("created_at", time.Now().Add(-time.Hour)).Error)

	n, err := h.repo.FailStaleProcessing(ctx, time.Now().Add(-10*time.Minute), "interrupted")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := h.repo.FindByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BatchImportFailed, got.Status)
	got, err = h.repo.FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BatchImportProcessing, got.Status)
}
