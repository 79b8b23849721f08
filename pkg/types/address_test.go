package types

import "testing"

func TestShippingAddressNormalize(t *testing.T) {
	addr := ShippingAddress{Name: " Acme ", Line1: " 1 Main St ", City: "Austin ", PostalCode: " 78701", Country: " us"}
	got := addr.Normalize()
	if got.Name != "Acme" || got.Line1 != "1 Main St" || got.City != "Austin" || got.PostalCode != "78701" {
		t.Fatalf("unexpected trimmed address %+v", got)
	}
	if got.Country != "US" {
		t.Fatalf("expected upper-cased country, got %q", got.Country)
	}
	if (ShippingAddress{}).Normalize().Country != "US" {
		t.Fatal("expected default country")
	}
}
