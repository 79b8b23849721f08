package enums

import "fmt"

// ProductType distinguishes plain catalog items from ones with variant options.
type ProductType string

const (
	ProductTypeSimple       ProductType = "simple"
	ProductTypeConfigurable ProductType = "configurable"
)

var validProductTypes = []ProductType{ProductTypeSimple, ProductTypeConfigurable}

func (t ProductType) IsValid() bool {
	for _, candidate := range validProductTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

func ParseProductType(value string) (ProductType, error) {
	for _, candidate := range validProductTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product type %q", value)
}

// ProductionOptionType selects which customization shape a product accepts.
type ProductionOptionType string

const (
	// ProductionPrintPosition products carry a base position plus optional surcharged extras.
	ProductionPrintPosition ProductionOptionType = "print_position"
	// ProductionEmbroidery products accept exactly one priced embroidery option.
	ProductionEmbroidery ProductionOptionType = "embroidery"
)

var validProductionOptionTypes = []ProductionOptionType{ProductionPrintPosition, ProductionEmbroidery}

func (t ProductionOptionType) IsValid() bool {
	for _, candidate := range validProductionOptionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

func ParseProductionOptionType(value string) (ProductionOptionType, error) {
	for _, candidate := range validProductionOptionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid production option type %q", value)
}
