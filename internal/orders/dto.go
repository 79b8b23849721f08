package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printdock/printdock-backend/internal/pricing"
	"github.com/printdock/printdock-backend/pkg/db/models"
	"github.com/printdock/printdock-backend/pkg/enums"
	"github.com/printdock/printdock-backend/pkg/pagination"
	"github.com/printdock/printdock-backend/pkg/types"
)

// ItemInput selects one product line of an order.
type ItemInput struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	Quantity       int       `json:"quantity" validate:"min=1"`
	Color          *string   `json:"color,omitempty"`
	Size           *string   `json:"size,omitempty"`
	Customizations []string  `json:"customizations"`
}

// QuoteRequest prices items without touching balances.
type QuoteRequest struct {
	Items          []ItemInput          `json:"items" validate:"required,min=1,dive"`
	ShippingMethod enums.ShippingMethod `json:"shipping_method" validate:"required"`
}

// CreateOrderRequest places one order row per item, all shipped together.
type CreateOrderRequest struct {
	Items           []ItemInput           `json:"items" validate:"required,min=1,dive"`
	ShippingAddress types.ShippingAddress `json:"shipping_address" validate:"required"`
	ShippingMethod  enums.ShippingMethod  `json:"shipping_method" validate:"required"`
	Notes           *string               `json:"notes,omitempty"`
}

// Shipment is a set of items sent to one address. Shipping is charged once per shipment.
type Shipment struct {
	Items           []ItemInput
	ShippingAddress types.ShippingAddress
	ShippingMethod  enums.ShippingMethod
	Notes           *string
}

// PlacementRequest is the input to a transactional placement.
type PlacementRequest struct {
	UserID        uuid.UUID
	Shipments     []Shipment
	BatchImportID *uuid.UUID
	Source        string
}

// QuoteLine is the priced view of one requested item.
type QuoteLine struct {
	ProductID          uuid.UUID                   `json:"product_id"`
	ProductName        string                      `json:"product_name"`
	SKU                string                      `json:"sku"`
	Quantity           int                         `json:"quantity"`
	UnitPrice          decimal.Decimal             `json:"unit_price"`
	Customizations     []models.OrderCustomization `json:"customizations"`
	Subtotal           decimal.Decimal             `json:"subtotal"`
	CustomizationTotal decimal.Decimal             `json:"customization_total"`
}

// Quote is the price of a cart for the current balance.
type Quote struct {
	Lines     []QuoteLine       `json:"lines"`
	Breakdown pricing.Breakdown `json:"breakdown"`
	Balance   decimal.Decimal   `json:"balance"`
	CanSubmit bool              `json:"can_submit"`
}

// OrderDTO is the API shape of an order row.
type OrderDTO struct {
	ID               uuid.UUID                   `json:"id"`
	UserID           uuid.UUID                   `json:"user_id"`
	ProductID        uuid.UUID                   `json:"product_id"`
	ProductName      string                      `json:"product_name"`
	SKU              string                      `json:"sku"`
	Quantity         int                         `json:"quantity"`
	Color            *string                     `json:"color,omitempty"`
	Size             *string                     `json:"size,omitempty"`
	Customizations   []models.OrderCustomization `json:"customizations"`
	ShippingAddress  types.ShippingAddress       `json:"shipping_address"`
	ShippingMethod   enums.ShippingMethod        `json:"shipping_method"`
	Notes            *string                     `json:"notes,omitempty"`
	BasePrice        decimal.Decimal             `json:"base_price"`
	CustomizationFee decimal.Decimal             `json:"customization_fee"`
	ShippingFee      decimal.Decimal             `json:"shipping_fee"`
	TotalPrice       decimal.Decimal             `json:"total_price"`
	Status           enums.OrderStatus           `json:"status"`
	IsPaid           bool                        `json:"is_paid"`
	BatchImportID    *uuid.UUID                  `json:"batch_import_id,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}

// Placement reports the rows created by one submission.
type Placement struct {
	Orders  []OrderDTO      `json:"orders"`
	Total   decimal.Decimal `json:"total"`
	Balance decimal.Decimal `json:"balance"`
}

// StatusRequest is the admin fulfillment update payload.
type StatusRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
}

// ListParams filters order listings. UserID is forced for customers.
type ListParams struct {
	pagination.Params
	UserID        *uuid.UUID
	Status        *enums.OrderStatus
	BatchImportID *uuid.UUID
}

// Actor identifies the caller of an order operation.
type Actor struct {
	UserID uuid.UUID
	Admin  bool
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	custom := o.Customizations.Get()
	if custom == nil {
		custom = []models.OrderCustomization{}
	}
	return &OrderDTO{
		ID:               o.ID,
		UserID:           o.UserID,
		ProductID:        o.ProductID,
		ProductName:      o.ProductName,
		SKU:              o.SKU,
		Quantity:         o.Quantity,
		Color:            o.Color,
		Size:             o.Size,
		Customizations:   custom,
		ShippingAddress:  o.ShippingAddress.Get(),
		ShippingMethod:   o.ShippingMethod,
		Notes:            o.Notes,
		BasePrice:        o.BasePrice,
		CustomizationFee: o.CustomizationFee,
		ShippingFee:      o.ShippingFee,
		TotalPrice:       o.TotalPrice,
		Status:           o.Status,
		IsPaid:           o.IsPaid,
		BatchImportID:    o.BatchImportID,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func cursorOf(o models.Order) pagination.Cursor {
	return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
}
