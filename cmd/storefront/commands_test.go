package main

import (
	"testing"

	"github.com/google/uuid"
)

func TestParseItem(t *testing.T) {
	id := uuid.New()

	item, err := parseItem(id.String() + ":12:black:L:front,back")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.ProductID != id || item.Quantity != 12 {
		t.Fatalf("unexpected item %+v", item)
	}
	if item.Color == nil || *item.Color != "black" || item.Size == nil || *item.Size != "L" {
		t.Fatalf("expected color and size, got %+v", item)
	}
	if len(item.Customizations) != 2 || item.Customizations[1] != "back" {
		t.Fatalf("unexpected customizations %v", item.Customizations)
	}

	item, err = parseItem(id.String() + ":3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Color != nil || item.Size != nil || item.Customizations == nil || len(item.Customizations) != 0 {
		t.Fatalf("expected bare item, got %+v", item)
	}
}

func TestParseItemRejectsBadInput(t *testing.T) {
	for _, value := range []string{"", "not-a-uuid:1", uuid.NewString(), uuid.NewString() + ":0", uuid.NewString() + ":x"} {
		if _, err := parseItem(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}

func TestItemFlagsAccumulate(t *testing.T) {
	var items itemFlags
	if err := items.Set(uuid.NewString() + ":1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := items.Set(uuid.NewString() + ":2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(items) != 2 || items.String() != "2 items" {
		t.Fatalf("unexpected flags %v", items)
	}
}
