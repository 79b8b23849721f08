package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printdock/printdock-backend/pkg/db/models"
	"github.com/printdock/printdock-backend/pkg/enums"
	"github.com/printdock/printdock-backend/pkg/pagination"
)

// ProductDTO is the catalog shape returned to clients.
type ProductDTO struct {
	ID                   uuid.UUID                    `json:"id"`
	Name                 string                       `json:"name"`
	SKU                  string                       `json:"sku"`
	Description          *string                      `json:"description,omitempty"`
	BasePrice            *decimal.Decimal             `json:"base_price"`
	Colors               []string                     `json:"colors"`
	Sizes                []string                     `json:"sizes"`
	Type                 enums.ProductType            `json:"type"`
	ProductionOptionType enums.ProductionOptionType   `json:"production_option_type"`
	CustomizationOptions []models.CustomizationOption `json:"customization_options"`
	ImageURL             *string                      `json:"image_url,omitempty"`
	Active               bool                         `json:"active"`
	CreatedAt            time.Time                    `json:"created_at"`
	UpdatedAt            time.Time                    `json:"updated_at"`
}

// OptionInput describes one customization option in a create or update payload.
type OptionInput struct {
	ID      string           `json:"id,omitempty"`
	Name    string           `json:"name" validate:"required"`
	Price   *decimal.Decimal `json:"price" validate:"required"`
	Default bool             `json:"default"`
}

// CreateProductInput is the admin payload for a new product.
type CreateProductInput struct {
	Name                 string                     `json:"name" validate:"required"`
	SKU                  string                     `json:"sku" validate:"required"`
	Description          *string                    `json:"description,omitempty"`
	BasePrice            *decimal.Decimal           `json:"base_price" validate:"required"`
	Colors               []string                   `json:"colors"`
	Sizes                []string                   `json:"sizes"`
	Type                 enums.ProductType          `json:"type"`
	ProductionOptionType enums.ProductionOptionType `json:"production_option_type"`
	CustomizationOptions []OptionInput              `json:"customization_options" validate:"dive"`
	ImageURL             *string                    `json:"image_url,omitempty"`
	Active               *bool                      `json:"active,omitempty"`
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name                 *string                     `json:"name,omitempty"`
	SKU                  *string                     `json:"sku,omitempty"`
	Description          *string                     `json:"description,omitempty"`
	BasePrice            *decimal.Decimal            `json:"base_price,omitempty"`
	Colors               *[]string                   `json:"colors,omitempty"`
	Sizes                *[]string                   `json:"sizes,omitempty"`
	Type                 *enums.ProductType          `json:"type,omitempty"`
	ProductionOptionType *enums.ProductionOptionType `json:"production_option_type,omitempty"`
	CustomizationOptions *[]OptionInput              `json:"customization_options,omitempty"`
	ImageURL             *string                     `json:"image_url,omitempty"`
	Active               *bool                       `json:"active,omitempty"`
}

// ListParams configures catalog browsing.
type ListParams struct {
	pagination.Params
	Search          string
	IncludeInactive bool
}

func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:                   p.ID,
		Name:                 p.Name,
		SKU:                  p.SKU,
		Description:          p.Description,
		BasePrice:            p.BasePrice,
		Colors:               nonNil(p.Colors.Get()),
		Sizes:                nonNil(p.Sizes.Get()),
		Type:                 p.Type,
		ProductionOptionType: p.ProductionOptionType,
		CustomizationOptions: nonNil(p.CustomizationOptions.Get()),
		ImageURL:             p.ImageURL,
		Active:               p.Active,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func cursorOf(p models.Product) pagination.Cursor {
	return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
