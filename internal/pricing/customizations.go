package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/printdock/printdock-backend/pkg/db/models"
	"github.com/printdock/printdock-backend/pkg/enums"
)

var (
	ErrUnknownOption         = errors.New("pricing: unknown customization option")
	ErrOptionShapeMismatch   = errors.New("pricing: option does not match the product's production type")
	ErrEmbroiderySelection   = errors.New("pricing: embroidery requires exactly one option")
	ErrDuplicateOption       = errors.New("pricing: option selected more than once")
	ErrNoDefaultPosition     = errors.New("pricing: product has no default print position")
	ErrUnsupportedProduction = errors.New("pricing: unsupported production option type")
)

// SelectedOption is a resolved customization with its snapshotted unit price.
type SelectedOption struct {
	OptionID  string
	Type      enums.ProductionOptionType
	Name      string
	UnitPrice decimal.Decimal
}

// ResolveCustomizations maps selected option ids to priced customizations.
//
// Print-position products always include their default position at no charge;
// every additional selected position adds its own surcharge. Embroidery
// products take exactly one option and charge its price.
func ResolveCustomizations(options []models.CustomizationOption, production enums.ProductionOptionType, selection []string) ([]SelectedOption, error) {
	byID := make(map[string]models.CustomizationOption, len(options))
	for _, opt := range options {
		byID[opt.ID] = opt
	}

	seen := make(map[string]struct{}, len(selection))
	picked := make([]models.CustomizationOption, 0, len(selection))
	for _, id := range selection {
		opt, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownOption, id)
		}
		if opt.Type != production {
			return nil, fmt.Errorf("%w: %s", ErrOptionShapeMismatch, id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateOption, id)
		}
		seen[id] = struct{}{}
		picked = append(picked, opt)
	}

	switch production {
	case enums.ProductionPrintPosition:
		return resolvePositions(options, picked)
	case enums.ProductionEmbroidery:
		if len(picked) != 1 {
			return nil, ErrEmbroiderySelection
		}
		opt := picked[0]
		if opt.Price == nil {
			return nil, &MissingPriceError{Field: "embroidery option " + opt.ID + " price"}
		}
		return []SelectedOption{{OptionID: opt.ID, Type: opt.Type, Name: opt.Name, UnitPrice: *opt.Price}}, nil
	default:
		return nil, ErrUnsupportedProduction
	}
}

func resolvePositions(options, picked []models.CustomizationOption) ([]SelectedOption, error) {
	var base *models.CustomizationOption
	for i := range options {
		if options[i].Type == enums.ProductionPrintPosition && options[i].Default {
			base = &options[i]
			break
		}
	}
	if base == nil {
		if len(picked) == 0 {
			return nil, nil
		}
		return nil, ErrNoDefaultPosition
	}

	out := []SelectedOption{{OptionID: base.ID, Type: base.Type, Name: base.Name, UnitPrice: decimal.Zero}}
	for _, opt := range picked {
		if opt.ID == base.ID {
			continue
		}
		if opt.Price == nil {
			return nil, &MissingPriceError{Field: "position " + opt.ID + " price"}
		}
		out = append(out, SelectedOption{OptionID: opt.ID, Type: opt.Type, Name: opt.Name, UnitPrice: *opt.Price})
	}
	return out, nil
}

// AsCustomizations converts resolved options into engine input.
func AsCustomizations(selected []SelectedOption) []Customization {
	out := make([]Customization, 0, len(selected))
	for _, s := range selected {
		price := s.UnitPrice
		out = append(out, Customization{Price: &price})
	}
	return out
}
