package batchimports

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/printdock/printdock-backend/pkg/enums"
	"github.com/printdock/printdock-backend/pkg/types"
)

// MaxRows caps how many orders one file may create.
const MaxRows = 500

var requiredColumns = []string{"sku", "quantity", "name", "line1", "city", "postal_code"}

// Row is one parsed CSV line. Line is 1-based and counts the header.
type Row struct {
	Line           int
	SKU            string
	Quantity       int
	Color          *string
	Size           *string
	Customizations []string
	ShippingMethod enums.ShippingMethod
	Address        types.ShippingAddress
	Notes          *string
}

// RowError points at the offending line of an import file.
type RowError struct {
	Line   int
	Column string
	Reason string
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("line %d: %s %s", e.Line, e.Column, e.Reason)
}

// ParseCSV reads an order import file. Customizations are option ids
// separated by ';'. An empty shipping_method means standard.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &RowError{Line: 1, Reason: "file is empty"}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &RowError{Line: 1, Column: col, Reason: "column is missing"}
		}
	}

	var rows []Row
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, &RowError{Line: parseErr.StartLine, Reason: parseErr.Err.Error()}
			}
			return nil, &RowError{Line: line + 1, Reason: err.Error()}
		}
		// Quoted fields may span lines, so ask the reader where the record began.
		line, _ = reader.FieldPos(0)
		if blank(record) {
			continue
		}
		if len(rows) == MaxRows {
			return nil, &RowError{Line: line, Reason: fmt.Sprintf("file has more than %d orders", MaxRows)}
		}
		row, err := parseRow(line, record, index)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, &RowError{Line: line, Reason: "file has no orders"}
	}
	return rows, nil
}

func parseRow(line int, record []string, index map[string]int) (Row, error) {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	for _, col := range requiredColumns {
		if get(col) == "" {
			return Row{}, &RowError{Line: line, Column: col, Reason: "is required"}
		}
	}
	qty, err := strconv.Atoi(get("quantity"))
	if err != nil || qty < 1 {
		return Row{}, &RowError{Line: line, Column: "quantity", Reason: "must be a positive integer"}
	}
	method := enums.ShippingStandard
	if raw := strings.ToLower(get("shipping_method")); raw != "" {
		parsed, err := enums.ParseShippingMethod(raw)
		if err != nil {
			return Row{}, &RowError{Line: line, Column: "shipping_method", Reason: "must be standard or express"}
		}
		method = parsed
	}
	var custom []string
	for _, part := range strings.Split(get("customizations"), ";") {
		if part = strings.TrimSpace(part); part != "" {
			custom = append(custom, part)
		}
	}
	return Row{
		Line:           line,
		SKU:            get("sku"),
		Quantity:       qty,
		Color:          optional(get("color")),
		Size:           optional(get("size")),
		Customizations: custom,
		ShippingMethod: method,
		Address: types.ShippingAddress{
			Name:       get("name"),
			Line1:      get("line1"),
			Line2:      optional(get("line2")),
			City:       get("city"),
			State:      get("state"),
			PostalCode: get("postal_code"),
			Country:    get("country"),
			Phone:      optional(get("phone")),
		},
		Notes: optional(get("notes")),
	}, nil
}

func blank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
