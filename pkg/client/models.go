package client

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printdock/printdock-backend/pkg/enums"
	"github.com/printdock/printdock-backend/pkg/types"
)

type User struct {
	ID          uuid.UUID        `json:"id"`
	Email       string           `json:"email"`
	CompanyName string           `json:"company_name"`
	ContactName string           `json:"contact_name,omitempty"`
	Phone       *string          `json:"phone,omitempty"`
	Role        enums.UserRole   `json:"role"`
	Status      enums.UserStatus `json:"status"`
	Balance     decimal.Decimal  `json:"balance"`
	PhotoURL    *string          `json:"photo_url,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

type LoginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

type RegisterRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	CompanyName string  `json:"company_name"`
	ContactName string  `json:"contact_name,omitempty"`
	Phone       *string `json:"phone,omitempty"`
}

type CustomizationOption struct {
	ID      string           `json:"id"`
	Type    string           `json:"type"`
	Name    string           `json:"name"`
	Price   *decimal.Decimal `json:"price"`
	Default bool             `json:"default"`
}

type Product struct {
	ID                   uuid.UUID                  `json:"id"`
	Name                 string                     `json:"name"`
	SKU                  string                     `json:"sku"`
	Description          *string                    `json:"description,omitempty"`
	BasePrice            *decimal.Decimal           `json:"base_price"`
	Colors               []string                   `json:"colors"`
	Sizes                []string                   `json:"sizes"`
	Type                 enums.ProductType          `json:"type"`
	ProductionOptionType enums.ProductionOptionType `json:"production_option_type"`
	CustomizationOptions []CustomizationOption      `json:"customization_options"`
	ImageURL             *string                    `json:"image_url,omitempty"`
	Active               bool                       `json:"active"`
}

type OrderItem struct {
	ProductID      uuid.UUID `json:"product_id"`
	Quantity       int       `json:"quantity"`
	Color          *string   `json:"color,omitempty"`
	Size           *string   `json:"size,omitempty"`
	Customizations []string  `json:"customizations"`
}

type QuoteRequest struct {
	Items          []OrderItem          `json:"items"`
	ShippingMethod enums.ShippingMethod `json:"shipping_method"`
}

type Breakdown struct {
	Subtotal           decimal.Decimal `json:"subtotal"`
	CustomizationTotal decimal.Decimal `json:"customization_total"`
	ShippingCost       decimal.Decimal `json:"shipping_cost"`
	Total              decimal.Decimal `json:"total"`
}

type Quote struct {
	Breakdown Breakdown       `json:"breakdown"`
	Balance   decimal.Decimal `json:"balance"`
	CanSubmit bool            `json:"can_submit"`
}

type CreateOrderRequest struct {
	Items           []OrderItem           `json:"items"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	ShippingMethod  enums.ShippingMethod  `json:"shipping_method"`
	Notes           *string               `json:"notes,omitempty"`
}

type Order struct {
	ID             uuid.UUID            `json:"id"`
	ProductID      uuid.UUID            `json:"product_id"`
	ProductName    string               `json:"product_name"`
	SKU            string               `json:"sku"`
	Quantity       int                  `json:"quantity"`
	ShippingMethod enums.ShippingMethod `json:"shipping_method"`
	TotalPrice     decimal.Decimal      `json:"total_price"`
	Status         enums.OrderStatus    `json:"status"`
	IsPaid         bool                 `json:"is_paid"`
	BatchImportID  *uuid.UUID           `json:"batch_import_id,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

type Placement struct {
	Orders  []Order         `json:"orders"`
	Total   decimal.Decimal `json:"total"`
	Balance decimal.Decimal `json:"balance"`
}

type DepositRequest struct {
	Amount          decimal.Decimal     `json:"amount"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	PaymentDetails  map[string]string   `json:"payment_details,omitempty"`
	PaymentProofURL *string             `json:"payment_proof_url,omitempty"`
}

type Transaction struct {
	ID              uuid.UUID               `json:"id"`
	Type            enums.TransactionType   `json:"type"`
	Amount          decimal.Decimal         `json:"amount"`
	Status          enums.TransactionStatus `json:"status"`
	PaymentMethod   enums.PaymentMethod     `json:"payment_method"`
	PaymentProofURL *string                 `json:"payment_proof_url,omitempty"`
	OrderID         *uuid.UUID              `json:"order_id,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
}

type BatchImport struct {
	ID         uuid.UUID               `json:"id"`
	FileName   string                  `json:"file_name"`
	OrderCount int                     `json:"order_count"`
	TotalPrice decimal.Decimal         `json:"total_price"`
	Status     enums.BatchImportStatus `json:"status"`
	Error      *string                 `json:"error,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
}
