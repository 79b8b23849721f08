package types

import "strings"

// ShippingAddress is the delivery address captured with an order.
type ShippingAddress struct {
	Name       string  `json:"name" validate:"required"`
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city" validate:"required"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code" validate:"required"`
	Country    string  `json:"country"`
	Phone      *string `json:"phone,omitempty"`
}

// Normalize trims whitespace and defaults the country.
func (a ShippingAddress) Normalize() ShippingAddress {
	a.Name = strings.TrimSpace(a.Name)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	if a.Country == "" {
		a.Country = "US"
	}
	return a
}
