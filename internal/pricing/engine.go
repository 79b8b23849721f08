package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/printdock/printdock-backend/pkg/config"
	"github.com/printdock/printdock-backend/pkg/enums"
)

var (
	ErrNoItems               = errors.New("pricing: at least one item is required")
	ErrInvalidQuantity       = errors.New("pricing: quantity must be at least 1")
	ErrNegativePrice         = errors.New("pricing: prices must not be negative")
	ErrUnknownShippingMethod = errors.New("pricing: unknown shipping method")
	ErrMissingPrice          = errors.New("pricing: missing price")
)

// MissingPriceError names the field whose price was absent.
type MissingPriceError struct {
	Item  int
	Field string
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("pricing: item %d is missing %s", e.Item, e.Field)
}

func (e *MissingPriceError) Unwrap() error { return ErrMissingPrice }

// Customization is one priced per-unit surcharge.
type Customization struct {
	Price *decimal.Decimal
}

// Item is a priced line of an order.
type Item struct {
	UnitPrice      *decimal.Decimal
	Quantity       int
	Customizations []Customization
}

// Breakdown is the computed order price, rounded to cents.
type Breakdown struct {
	Subtotal           decimal.Decimal `json:"subtotal"`
	CustomizationTotal decimal.Decimal `json:"customization_total"`
	ShippingCost       decimal.Decimal `json:"shipping_cost"`
	Total              decimal.Decimal `json:"total"`
}

// LineBreakdown is the per-item share of a Breakdown. Shipping is not allocated.
type LineBreakdown struct {
	Subtotal              decimal.Decimal
	CustomizationUnitCost decimal.Decimal
	CustomizationTotal    decimal.Decimal
}

// Engine computes order totals against a fixed set of shipping rates.
type Engine struct {
	rates map[enums.ShippingMethod]decimal.Decimal
}

// NewEngine builds an engine from configured shipping rates.
func NewEngine(cfg config.PricingConfig) *Engine {
	return &Engine{rates: map[enums.ShippingMethod]decimal.Decimal{
		enums.ShippingStandard: cfg.StandardShipping,
		enums.ShippingExpress:  cfg.ExpressShipping,
	}}
}

// DefaultEngine uses the standard 5.00 / 15.00 flat rates.
func DefaultEngine() *Engine {
	return NewEngine(config.PricingConfig{
		StandardShipping: decimal.NewFromInt(5),
		ExpressShipping:  decimal.NewFromInt(15),
	})
}

// ShippingRate returns the flat order-level rate for method.
func (e *Engine) ShippingRate(method enums.ShippingMethod) (decimal.Decimal, error) {
	rate, ok := e.rates[method]
	if !ok {
		return decimal.Zero, ErrUnknownShippingMethod
	}
	return rate, nil
}

// Compute returns the order breakdown for items shipped with method.
func (e *Engine) Compute(items []Item, method enums.ShippingMethod) (Breakdown, error) {
	if len(items) == 0 {
		return Breakdown{}, ErrNoItems
	}
	shipping, err := e.ShippingRate(method)
	if err != nil {
		return Breakdown{}, err
	}

	subtotal := decimal.Zero
	customization := decimal.Zero
	for i, item := range items {
		line, err := Line(i, item)
		if err != nil {
			return Breakdown{}, err
		}
		subtotal = subtotal.Add(line.Subtotal)
		customization = customization.Add(line.CustomizationTotal)
	}

	subtotal = subtotal.Round(2)
	customization = customization.Round(2)
	shipping = shipping.Round(2)
	return Breakdown{
		Subtotal:           subtotal,
		CustomizationTotal: customization,
		ShippingCost:       shipping,
		Total:              subtotal.Add(customization).Add(shipping),
	}, nil
}

// Line prices a single item. index is only used in error messages.
func Line(index int, item Item) (LineBreakdown, error) {
	if item.UnitPrice == nil {
		return LineBreakdown{}, &MissingPriceError{Item: index, Field: "unit price"}
	}
	if item.UnitPrice.IsNegative() {
		return LineBreakdown{}, ErrNegativePrice
	}
	if item.Quantity < 1 {
		return LineBreakdown{}, ErrInvalidQuantity
	}
	qty := decimal.NewFromInt(int64(item.Quantity))

	unitCost := decimal.Zero
	for j, c := range item.Customizations {
		if c.Price == nil {
			return LineBreakdown{}, &MissingPriceError{Item: index, Field: fmt.Sprintf("customization %d price", j)}
		}
		if c.Price.IsNegative() {
			return LineBreakdown{}, ErrNegativePrice
		}
		unitCost = unitCost.Add(*c.Price)
	}

	return LineBreakdown{
		Subtotal:              item.UnitPrice.Mul(qty),
		CustomizationUnitCost: unitCost,
		CustomizationTotal:    unitCost.Mul(qty),
	}, nil
}

// CanSubmit reports whether balance covers total.
func CanSubmit(balance, total decimal.Decimal) bool {
	return balance.GreaterThanOrEqual(total)
}
