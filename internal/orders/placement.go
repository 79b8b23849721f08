package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/printdock/printdock-backend/internal/pricing"
	"github.com/printdock/printdock-backend/internal/users"
	"github.com/printdock/printdock-backend/pkg/db/models"
	dbtypes "github.com/printdock/printdock-backend/pkg/db/types"
	"github.com/printdock/printdock-backend/pkg/enums"
	pkgerrors "github.com/printdock/printdock-backend/pkg/errors"
)

// pricedLine is an item resolved against its product with prices snapshotted.
type pricedLine struct {
	product        models.Product
	input          ItemInput
	customizations []models.OrderCustomization
	line           pricing.LineBreakdown
	item           pricing.Item
}

// pricedShipment is a shipment whose lines and breakdown are final.
type pricedShipment struct {
	shipment  Shipment
	lines     []pricedLine
	breakdown pricing.Breakdown
}

// priceShipment resolves every item of shipment against catalog and prices it.
func (s *service) priceShipment(shipment Shipment, catalog map[uuid.UUID]models.Product) (*pricedShipment, error) {
	if len(shipment.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	if !shipment.ShippingMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping method")
	}

	lines := make([]pricedLine, 0, len(shipment.Items))
	items := make([]pricing.Item, 0, len(shipment.Items))
	for i, in := range shipment.Items {
		product, ok := catalog[in.ProductID]
		if !ok || !product.Active {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product "+in.ProductID.String()+" is not available").
				WithDetails(map[string]any{"item": i})
		}
		if err := checkVariant("color", in.Color, product.Colors.Get()); err != nil {
			return nil, err
		}
		if err := checkVariant("size", in.Size, product.Sizes.Get()); err != nil {
			return nil, err
		}
		selected, err := pricing.ResolveCustomizations(product.CustomizationOptions.Get(), product.ProductionOptionType, in.Customizations)
		if err != nil {
			return nil, pricingError(err, i)
		}
		item := pricing.Item{
			UnitPrice:      product.BasePrice,
			Quantity:       in.Quantity,
			Customizations: pricing.AsCustomizations(selected),
		}
		line, err := pricing.Line(i, item)
		if err != nil {
			return nil, pricingError(err, i)
		}
		lines = append(lines, pricedLine{
			product:        product,
			input:          in,
			customizations: snapshot(selected),
			line:           line,
			item:           item,
		})
		items = append(items, item)
	}

	breakdown, err := s.engine.Compute(items, shipment.ShippingMethod)
	if err != nil {
		return nil, pricingError(err, -1)
	}
	return &pricedShipment{shipment: shipment, lines: lines, breakdown: breakdown}, nil
}

// rows turns a priced shipment into order rows. The shipment's shipping fee
// sits on its first row and rounding drift is absorbed there too, so the rows
// always sum to the breakdown total.
func (p *pricedShipment) rows(userID uuid.UUID, batchID *uuid.UUID) []models.Order {
	address := p.shipment.ShippingAddress.Normalize()
	notes := trimmed(p.shipment.Notes)
	out := make([]models.Order, 0, len(p.lines))
	sum := decimal.Zero
	for i, l := range p.lines {
		shipping := decimal.Zero
		if i == 0 {
			shipping = p.breakdown.ShippingCost
		}
		fee := l.line.CustomizationTotal.Round(2)
		total := l.line.Subtotal.Round(2).Add(fee).Add(shipping)
		sum = sum.Add(total)
		out = append(out, models.Order{
			UserID:           userID,
			ProductID:        l.product.ID,
			ProductName:      l.product.Name,
			SKU:              l.product.SKU,
			Quantity:         l.input.Quantity,
			Color:            trimmed(l.input.Color),
			Size:             trimmed(l.input.Size),
			Customizations:   dbtypes.NewJSON(l.customizations),
			ShippingAddress:  dbtypes.NewJSON(address),
			ShippingMethod:   p.shipment.ShippingMethod,
			Notes:            notes,
			BasePrice:        l.item.UnitPrice.Round(2),
			CustomizationFee: fee,
			ShippingFee:      shipping,
			TotalPrice:       total,
			Status:           enums.OrderStatusPending,
			IsPaid:           true,
			BatchImportID:    batchID,
		})
	}
	if drift := p.breakdown.Total.Sub(sum); !drift.IsZero() && len(out) > 0 {
		out[0].TotalPrice = out[0].TotalPrice.Add(drift)
	}
	return out
}

// PlaceInTx prices every shipment, debits the combined total, writes the order
// rows with one completed payment transaction each, and queues order_created.
// It runs inside the caller's transaction so batch imports stay all-or-nothing.
func (s *service) PlaceInTx(ctx context.Context, tx *gorm.DB, req PlacementRequest) (*Placement, error) {
	if len(req.Shipments) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	userRepo := s.users.WithTx(tx)
	user, err := userRepo.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if user.Status != enums.UserStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is not active")
	}

	catalog, err := s.products.WithTx(tx).FindByIDs(ctx, productIDs(req.Shipments))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}

	var rows []models.Order
	total := decimal.Zero
	for _, shipment := range req.Shipments {
		priced, err := s.priceShipment(shipment, catalog)
		if err != nil {
			return nil, err
		}
		rows = append(rows, priced.rows(req.UserID, req.BatchImportID)...)
		total = total.Add(priced.breakdown.Total)
	}

	if !pricing.CanSubmit(user.Balance, total) {
		s.metrics.InsufficientBalance()
		return nil, insufficientBalance(user.Balance, total)
	}
	if err := userRepo.Debit(ctx, req.UserID, total); err != nil {
		if errors.Is(err, users.ErrInsufficientBalance) {
			s.metrics.InsufficientBalance()
			return nil, insufficientBalance(user.Balance, total)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "debit balance")
	}

	if err := s.repo.WithTx(tx).CreateMany(ctx, rows); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create orders")
	}
	now := s.now()
	txRepo := s.transactions.WithTx(tx)
	ids := make([]uuid.UUID, 0, len(rows))
	dtos := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		if _, err := txRepo.RecordPayment(ctx, req.UserID, rows[i].ID, enums.TransactionPayment, rows[i].TotalPrice, now); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment")
		}
		ids = append(ids, rows[i].ID)
		dtos = append(dtos, *FromModel(&rows[i]))
	}

	if err := s.emitCreated(ctx, tx, req, ids, total); err != nil {
		return nil, err
	}
	return &Placement{Orders: dtos, Total: total, Balance: user.Balance.Sub(total)}, nil
}

func checkVariant(field string, value *string, allowed []string) error {
	v := trimmed(value)
	if v == nil || len(allowed) == 0 {
		return nil
	}
	for _, candidate := range allowed {
		if strings.EqualFold(candidate, *v) {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, field+" "+*v+" is not offered for this product")
}

func snapshot(selected []pricing.SelectedOption) []models.OrderCustomization {
	out := make([]models.OrderCustomization, 0, len(selected))
	for _, sel := range selected {
		out = append(out, models.OrderCustomization{
			OptionID:  sel.OptionID,
			Type:      sel.Type,
			Name:      sel.Name,
			UnitPrice: sel.UnitPrice.Round(2),
		})
	}
	return out
}

func productIDs(shipments []Shipment) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	var ids []uuid.UUID
	for _, shipment := range shipments {
		for _, item := range shipment.Items {
			if _, ok := seen[item.ProductID]; ok {
				continue
			}
			seen[item.ProductID] = struct{}{}
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}

func insufficientBalance(balance, total decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeInsufficient, "insufficient balance").
		WithDetails(map[string]string{
			"balance":  balance.StringFixed(2),
			"required": total.StringFixed(2),
		})
}

// pricingError maps engine and customization failures to validation errors.
func pricingError(err error, item int) error {
	msg := strings.TrimPrefix(err.Error(), "pricing: ")
	out := pkgerrors.Wrap(pkgerrors.CodeValidation, err, msg)
	if item >= 0 {
		out = out.WithDetails(map[string]any{"item": item})
	}
	return out
}
