package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/printdock/printdock-backend/pkg/db/types"
	"github.com/printdock/printdock-backend/pkg/enums"
)

// CustomizationOption is one priced print position or embroidery choice on a product.
type CustomizationOption struct {
	ID      string                     `json:"id"`
	Type    enums.ProductionOptionType `json:"type"`
	Name    string                     `json:"name"`
	Price   *decimal.Decimal           `json:"price"`
	Default bool                       `json:"default"`
}

// Product is a catalog entry customers can order.
type Product struct {
	ID                   uuid.UUID                              `gorm:"column:id;type:uuid;primaryKey"`
	Name                 string                                 `gorm:"column:name;not null"`
	SKU                  string                                 `gorm:"column:sku;not null;uniqueIndex"`
	Description          *string                                `gorm:"column:description"`
	BasePrice            *decimal.Decimal                       `gorm:"column:base_price;type:numeric(12,2)"`
	Colors               dbtypes.JSON[[]string]                 `gorm:"column:colors;type:jsonb;not null"`
	Sizes                dbtypes.JSON[[]string]                 `gorm:"column:sizes;type:jsonb;not null"`
	Type                 enums.ProductType                      `gorm:"column:type;type:text;not null;default:simple"`
	ProductionOptionType enums.ProductionOptionType             `gorm:"column:production_option_type;type:text;not null;default:print_position"`
	CustomizationOptions dbtypes.JSON[[]CustomizationOption]    `gorm:"column:customization_options;type:jsonb;not null"`
	ImageURL             *string                                `gorm:"column:image_url"`
	Active               bool                                   `gorm:"column:active;not null"`
	CreatedAt            time.Time                              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                              `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
