package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/printdock/printdock-backend/internal/pricing"
	"github.com/printdock/printdock-backend/pkg/db"
	"github.com/printdock/printdock-backend/pkg/db/dbtest"
	"github.com/printdock/printdock-backend/pkg/db/models"
	dbtypes "github.com/printdock/printdock-backend/pkg/db/types"
	"github.com/printdock/printdock-backend/pkg/enums"
	pkgerrors "github.com/printdock/printdock-backend/pkg/errors"
	"github.com/printdock/printdock-backend/pkg/pagination"
	"github.com/printdock/printdock-backend/pkg/types"
)

func price(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(ServiceParams{DB: db.FromGorm(conn), Repo: NewRepository(conn)})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, conn
}

func shirtInput(sku string) CreateProductInput {
	return CreateProductInput{
		Name:      "Classic Tee",
		SKU:       sku,
		BasePrice: price("19.99"),
		Colors:    []string{"black", "white"},
		Sizes:     []string{"M", "L"},
		CustomizationOptions: []OptionInput{
			{ID: "front", Name: "Front", Price: price("4.00")},
			{ID: "back", Name: "Back", Price: price("3.00")},
		},
	}
}

func TestCreateNormalizesDefaultPosition(t *testing.T) {
	svc, _ := newTestService(t)
	product, err := svc.Create(context.Background(), shirtInput("TEE-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !product.Active || product.Type != enums.ProductTypeSimple || product.ProductionOptionType != enums.ProductionPrintPosition {
		t.Fatalf("unexpected defaults %+v", product)
	}
	if pricing.DefaultCount(product.CustomizationOptions) != 1 || !product.CustomizationOptions[0].Default {
		t.Fatalf("expected first position to become default, got %+v", product.CustomizationOptions)
	}
}

func TestCreateRejectsDuplicateSKU(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, shirtInput("TEE-1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := svc.Create(ctx, shirtInput("TEE-1"))
	if !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateValidatesPrices(t *testing.T) {
	svc, _ := newTestService(t)
	in := shirtInput("TEE-2")
	in.BasePrice = nil
	if _, err := svc.Create(context.Background(), in); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing price, got %v", err)
	}
	in = shirtInput("TEE-3")
	in.CustomizationOptions[1].Price = price("-1")
	if _, err := svc.Create(context.Background(), in); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative surcharge, got %v", err)
	}
}

func TestPositionLifecycleKeepsOneDefault(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	product, err := svc.Create(ctx, shirtInput("TEE-4"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	product, err = svc.AddPosition(ctx, product.ID, OptionInput{ID: "sleeve", Name: "Sleeve", Price: price("1.50"), Default: true})
	if err != nil {
		t.Fatalf("AddPosition: %v", err)
	}
	if pricing.DefaultCount(product.CustomizationOptions) != 1 || !product.CustomizationOptions[2].Default {
		t.Fatalf("expected sleeve default, got %+v", product.CustomizationOptions)
	}

	product, err = svc.RemovePosition(ctx, product.ID, "sleeve")
	if err != nil {
		t.Fatalf("RemovePosition: %v", err)
	}
	if pricing.DefaultCount(product.CustomizationOptions) != 1 || product.CustomizationOptions[0].ID != "front" || !product.CustomizationOptions[0].Default {
		t.Fatalf("expected front promoted, got %+v", product.CustomizationOptions)
	}

	product, err = svc.SetDefaultPosition(ctx, product.ID, "back")
	if err != nil {
		t.Fatalf("SetDefaultPosition: %v", err)
	}
	reloaded, err := svc.Get(ctx, product.ID, true)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reloaded.CustomizationOptions[1].Default || reloaded.CustomizationOptions[0].Default {
		t.Fatalf("default not persisted: %+v", reloaded.CustomizationOptions)
	}

	if _, err := svc.AddPosition(ctx, product.ID, OptionInput{ID: "back", Name: "Back", Price: price("1")}); !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for reused id, got %v", err)
	}
	if _, err := svc.RemovePosition(ctx, product.ID, "missing"); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPositionsRefusedForEmbroidery(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	in := shirtInput("CAP-1")
	in.ProductionOptionType = enums.ProductionEmbroidery
	product, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if pricing.DefaultCount(product.CustomizationOptions) != 0 {
		t.Fatalf("embroidery options must not carry defaults: %+v", product.CustomizationOptions)
	}
	if _, err := svc.AddPosition(ctx, product.ID, OptionInput{Name: "Left", Price: price("1")}); !pkgerrors.Is(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestListHidesInactiveFromCustomers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	inactive := false
	for i, sku := range []string{"A-1", "A-2", "A-3"} {
		in := shirtInput(sku)
		if i == 2 {
			in.Active = &inactive
		}
		if _, err := svc.Create(ctx, in); err != nil {
			t.Fatalf("Create %s: %v", sku, err)
		}
	}

	page, err := svc.List(ctx, ListParams{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 active products, got %d", len(page.Items))
	}

	all := collect(t, svc, ListParams{Params: pagination.Params{Limit: 1}, IncludeInactive: true})
	if len(all) != 3 {
		t.Fatalf("expected 3 products across pages, got %d", len(all))
	}
	seen := map[uuid.UUID]bool{}
	for _, p := range all {
		if seen[p.ID] {
			t.Fatalf("product %s returned twice", p.ID)
		}
		seen[p.ID] = true
	}
}

func collect(t *testing.T, svc Service, params ListParams) []ProductDTO {
	t.Helper()
	var out []ProductDTO
	for i := 0; i < 10; i++ {
		page, err := svc.List(context.Background(), params)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		out = append(out, page.Items...)
		if page.NextCursor == "" {
			return out
		}
		params.Cursor = page.NextCursor
	}
	t.Fatal("pagination did not terminate")
	return nil
}

func TestGetHidesInactiveProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	inactive := false
	in := shirtInput("HID-1")
	in.Active = &inactive
	product, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Get(ctx, product.ID, false); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for customer, got %v", err)
	}
	if _, err := svc.Get(ctx, product.ID, true); err != nil {
		t.Fatalf("admin Get: %v", err)
	}
}

func TestDeleteDeactivatesOrderedProduct(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	ordered, err := svc.Create(ctx, shirtInput("DEL-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	unused, err := svc.Create(ctx, shirtInput("DEL-2"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	order := models.Order{
		UserID:          uuid.New(),
		ProductID:       ordered.ID,
		ProductName:     ordered.Name,
		SKU:             ordered.SKU,
		Quantity:        1,
		Customizations:  dbtypes.NewJSON([]models.OrderCustomization{}),
		ShippingAddress: dbtypes.NewJSON(types.ShippingAddress{}),
		ShippingMethod:  enums.ShippingStandard,
		Status:          enums.OrderStatusPending,
	}
	if err := conn.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}

	deleted, err := svc.Delete(ctx, ordered.ID)
	if err != nil || deleted {
		t.Fatalf("expected soft delete, got deleted=%v err=%v", deleted, err)
	}
	reloaded, err := svc.Get(ctx, ordered.ID, true)
	if err != nil || reloaded.Active {
		t.Fatalf("expected inactive product, got %+v err=%v", reloaded, err)
	}

	deleted, err = svc.Delete(ctx, unused.ID)
	if err != nil || !deleted {
		t.Fatalf("expected hard delete, got deleted=%v err=%v", deleted, err)
	}
	if _, err := svc.Get(ctx, unused.ID, true); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestUpdateRequiresOptionsWhenShapeChanges(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	product, err := svc.Create(ctx, shirtInput("UPD-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	emb := enums.ProductionEmbroidery
	if _, err := svc.Update(ctx, product.ID, UpdateProductInput{ProductionOptionType: &emb}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	options := []OptionInput{{ID: "logo", Name: "Logo", Price: price("6")}}
	name := "Embroidered Tee"
	updated, err := svc.Update(ctx, product.ID, UpdateProductInput{Name: &name, ProductionOptionType: &emb, CustomizationOptions: &options})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != name || len(updated.CustomizationOptions) != 1 || updated.CustomizationOptions[0].Type != enums.ProductionEmbroidery {
		t.Fatalf("unexpected update result %+v", updated)
	}
}
