package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printdock/printdock-backend/internal/pricing"
	"github.com/printdock/printdock-backend/pkg/db"
	"github.com/printdock/printdock-backend/pkg/db/models"
	dbtypes "github.com/printdock/printdock-backend/pkg/db/types"
	"github.com/printdock/printdock-backend/pkg/enums"
	pkgerrors "github.com/printdock/printdock-backend/pkg/errors"
	"github.com/printdock/printdock-backend/pkg/logger"
	"github.com/printdock/printdock-backend/pkg/pagination"
	"github.com/printdock/printdock-backend/pkg/types"
)

// skuConstraints names the sku unique index as Postgres and SQLite report it.
var skuConstraints = []string{"idx_products_sku", "products.sku"}

// Service exposes catalog reads for customers and catalog management for admins.
type Service interface {
	List(ctx context.Context, params ListParams) (*types.Page[ProductDTO], error)
	Get(ctx context.Context, id uuid.UUID, includeInactive bool) (*ProductDTO, error)
	Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, id uuid.UUID) (deleted bool, err error)
	SetImage(ctx context.Context, id uuid.UUID, url string) (*ProductDTO, error)
	AddPosition(ctx context.Context, id uuid.UUID, input OptionInput) (*ProductDTO, error)
	RemovePosition(ctx context.Context, id uuid.UUID, optionID string) (*ProductDTO, error)
	SetDefaultPosition(ctx context.Context, id uuid.UUID, optionID string) (*ProductDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles product service dependencies.
type ServiceParams struct {
	DB     txRunner
	Repo   *Repository
	Logger *logger.Logger
}

type service struct {
	db   txRunner
	repo *Repository
	logg *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db runner is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{db: params.DB, repo: params.Repo, logg: logg}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*types.Page[ProductDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, params, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	rows, next := pagination.Trim(rows, params.Limit, cursorOf)
	items := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return &types.Page[ProductDTO]{Items: items, NextCursor: next}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, includeInactive bool) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapFindError(err)
	}
	if !product.Active && !includeInactive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return FromModel(product), nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	product := &models.Product{
		Name:                 strings.TrimSpace(input.Name),
		SKU:                  strings.TrimSpace(input.SKU),
		Description:          input.Description,
		BasePrice:            input.BasePrice,
		Colors:               dbtypes.NewJSON(nonNil(input.Colors)),
		Sizes:                dbtypes.NewJSON(nonNil(input.Sizes)),
		Type:                 input.Type,
		ProductionOptionType: input.ProductionOptionType,
		ImageURL:             input.ImageURL,
		Active:               true,
	}
	if product.Type == "" {
		product.Type = enums.ProductTypeSimple
	}
	if product.ProductionOptionType == "" {
		product.ProductionOptionType = enums.ProductionPrintPosition
	}
	if input.Active != nil {
		product.Active = *input.Active
	}
	options, err := buildOptions(input.CustomizationOptions, product.ProductionOptionType)
	if err != nil {
		return nil, err
	}
	product.CustomizationOptions = dbtypes.NewJSON(options)
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, mapWriteError(err)
	}
	s.logg.Info(s.logg.WithField(ctx, "sku", product.SKU), "product created")
	return FromModel(product), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	var updated *models.Product
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return mapFindError(err)
		}
		if err := applyUpdate(product, input); err != nil {
			return err
		}
		if err := validateProduct(product); err != nil {
			return err
		}
		if err := repo.Save(ctx, product); err != nil {
			return mapWriteError(err)
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

// Delete removes a product nobody has ordered. Products referenced by orders
// are deactivated instead so order history keeps resolving.
func (s *service) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return mapFindError(err)
		}
		refs, err := repo.CountOrders(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count product orders")
		}
		if refs == 0 {
			deleted = true
			if err := repo.Delete(ctx, id); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete product")
			}
			return nil
		}
		product.Active = false
		if err := repo.Save(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate product")
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (s *service) SetImage(ctx context.Context, id uuid.UUID, url string) (*ProductDTO, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image url is required")
	}
	return s.mutate(ctx, id, func(product *models.Product) error {
		product.ImageURL = &url
		return nil
	})
}

func (s *service) AddPosition(ctx context.Context, id uuid.UUID, input OptionInput) (*ProductDTO, error) {
	return s.mutatePositions(ctx, id, func(options []models.CustomizationOption) ([]models.CustomizationOption, error) {
		opt, err := buildOption(input, enums.ProductionPrintPosition)
		if err != nil {
			return nil, err
		}
		return pricing.AddPosition(options, opt)
	})
}

func (s *service) RemovePosition(ctx context.Context, id uuid.UUID, optionID string) (*ProductDTO, error) {
	return s.mutatePositions(ctx, id, func(options []models.CustomizationOption) ([]models.CustomizationOption, error) {
		return pricing.RemovePosition(options, optionID)
	})
}

func (s *service) SetDefaultPosition(ctx context.Context, id uuid.UUID, optionID string) (*ProductDTO, error) {
	return s.mutatePositions(ctx, id, func(options []models.CustomizationOption) ([]models.CustomizationOption, error) {
		return pricing.SetDefaultPosition(options, optionID)
	})
}

func (s *service) mutatePositions(ctx context.Context, id uuid.UUID, fn func([]models.CustomizationOption) ([]models.CustomizationOption, error)) (*ProductDTO, error) {
	return s.mutate(ctx, id, func(product *models.Product) error {
		if product.ProductionOptionType != enums.ProductionPrintPosition {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product does not use print positions")
		}
		next, err := fn(product.CustomizationOptions.Get())
		if err != nil {
			return mapPositionError(err)
		}
		product.CustomizationOptions = dbtypes.NewJSON(next)
		return nil
	})
}

func (s *service) mutate(ctx context.Context, id uuid.UUID, fn func(*models.Product) error) (*ProductDTO, error) {
	var out *models.Product
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return mapFindError(err)
		}
		if err := fn(product); err != nil {
			return err
		}
		if err := repo.Save(ctx, product); err != nil {
			return mapWriteError(err)
		}
		out = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(out), nil
}

func applyUpdate(product *models.Product, input UpdateProductInput) error {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.SKU != nil {
		product.SKU = strings.TrimSpace(*input.SKU)
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.BasePrice != nil {
		product.BasePrice = input.BasePrice
	}
	if input.Colors != nil {
		product.Colors = dbtypes.NewJSON(nonNil(*input.Colors))
	}
	if input.Sizes != nil {
		product.Sizes = dbtypes.NewJSON(nonNil(*input.Sizes))
	}
	if input.Type != nil {
		product.Type = *input.Type
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.Active != nil {
		product.Active = *input.Active
	}

	shapeChanged := input.ProductionOptionType != nil && *input.ProductionOptionType != product.ProductionOptionType
	if input.ProductionOptionType != nil {
		product.ProductionOptionType = *input.ProductionOptionType
	}
	switch {
	case input.CustomizationOptions != nil:
		options, err := buildOptions(*input.CustomizationOptions, product.ProductionOptionType)
		if err != nil {
			return err
		}
		product.CustomizationOptions = dbtypes.NewJSON(options)
	case shapeChanged:
		return pkgerrors.New(pkgerrors.CodeValidation, "changing production_option_type requires customization_options")
	}
	return nil
}

func validateProduct(product *models.Product) error {
	switch {
	case product.Name == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case product.SKU == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	case product.BasePrice == nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "base_price is required")
	case product.BasePrice.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "base_price must not be negative")
	case !product.Type.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid product type")
	case !product.ProductionOptionType.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid production_option_type")
	}
	return nil
}

func buildOptions(inputs []OptionInput, production enums.ProductionOptionType) ([]models.CustomizationOption, error) {
	out := make([]models.CustomizationOption, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		opt, err := buildOption(in, production)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[opt.ID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate customization option id "+opt.ID)
		}
		seen[opt.ID] = struct{}{}
		out = append(out, opt)
	}
	if production == enums.ProductionPrintPosition {
		return pricing.NormalizeDefaults(out), nil
	}
	for i := range out {
		out[i].Default = false
	}
	return out, nil
}

func buildOption(in OptionInput, production enums.ProductionOptionType) (models.CustomizationOption, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.CustomizationOption{}, pkgerrors.New(pkgerrors.CodeValidation, "customization option name is required")
	}
	if in.Price == nil {
		return models.CustomizationOption{}, pkgerrors.New(pkgerrors.CodeValidation, "customization option price is required")
	}
	if in.Price.IsNegative() {
		return models.CustomizationOption{}, pkgerrors.New(pkgerrors.CodeValidation, "customization option price must not be negative")
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	price := in.Price.Round(2)
	return models.CustomizationOption{
		ID:      id,
		Type:    production,
		Name:    name,
		Price:   &price,
		Default: in.Default,
	}, nil
}

func mapFindError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
}

func mapWriteError(err error) error {
	if db.IsUniqueViolation(err, skuConstraints...) {
		return pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save product")
}

func mapPositionError(err error) error {
	switch {
	case errors.Is(err, pricing.ErrPositionNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "position not found")
	case errors.Is(err, pricing.ErrPositionExists):
		return pkgerrors.New(pkgerrors.CodeConflict, "position id already in use")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update positions")
	}
}
