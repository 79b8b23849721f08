package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/printdock/printdock-backend/pkg/db/types"
	"github.com/printdock/printdock-backend/pkg/enums"
	"github.com/printdock/printdock-backend/pkg/types"
)

// OrderCustomization is the priced snapshot of one selected customization.
type OrderCustomization struct {
	OptionID  string                     `json:"option_id"`
	Type      enums.ProductionOptionType `json:"type"`
	Name      string                     `json:"name"`
	UnitPrice decimal.Decimal            `json:"unit_price"`
}

// Order is a single product line placed by a customer. Prices are snapshotted
// when the row is created.
type Order struct {
	ID               uuid.UUID                                `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID                                `gorm:"column:user_id;type:uuid;not null;index"`
	ProductID        uuid.UUID                                `gorm:"column:product_id;type:uuid;not null"`
	ProductName      string                                   `gorm:"column:product_name;not null"`
	SKU              string                                   `gorm:"column:sku;not null"`
	Quantity         int                                      `gorm:"column:quantity;not null"`
	Color            *string                                  `gorm:"column:color"`
	Size             *string                                  `gorm:"column:size"`
	Customizations   dbtypes.JSON[[]OrderCustomization]       `gorm:"column:customizations;type:jsonb;not null"`
	ShippingAddress  dbtypes.JSON[types.ShippingAddress]      `gorm:"column:shipping_address;type:jsonb;not null"`
	ShippingMethod   enums.ShippingMethod                     `gorm:"column:shipping_method;type:text;not null"`
	Notes            *string                                  `gorm:"column:notes"`
	BasePrice        decimal.Decimal                          `gorm:"column:base_price;type:numeric(12,2);not null"`
	CustomizationFee decimal.Decimal                          `gorm:"column:customization_fee;type:numeric(12,2);not null"`
	ShippingFee      decimal.Decimal                          `gorm:"column:shipping_fee;type:numeric(12,2);not null"`
	TotalPrice       decimal.Decimal                          `gorm:"column:total_price;type:numeric(12,2);not null"`
	Status           enums.OrderStatus                        `gorm:"column:status;type:text;not null;default:pending"`
	IsPaid           bool                                     `gorm:"column:is_paid;not null;default:false"`
	BatchImportID    *uuid.UUID                               `gorm:"column:batch_import_id;type:uuid;index"`
	CreatedAt        time.Time                                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                                `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// BatchImport groups orders created from one CSV upload.
type BatchImport struct {
	ID         uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	FileName   string                  `gorm:"column:file_name;not null"`
	OrderCount int                     `gorm:"column:order_count;not null;default:0"`
	TotalPrice decimal.Decimal         `gorm:"column:total_price;type:numeric(12,2);not null;default:0"`
	Status     enums.BatchImportStatus `gorm:"column:status;type:text;not null;default:processing"`
	Error      *string                 `gorm:"column:error"`
	CreatedAt  time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *BatchImport) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
