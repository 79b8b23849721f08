package pricing

import (
	"errors"

	"github.com/printdock/printdock-backend/pkg/db/models"
)

var (
	ErrPositionNotFound = errors.New("pricing: position not found")
	ErrPositionExists   = errors.New("pricing: position id already in use")
)

// AddPosition appends opt. The first option added becomes the default, and an
// option flagged default takes the flag from every other entry.
func AddPosition(options []models.CustomizationOption, opt models.CustomizationOption) ([]models.CustomizationOption, error) {
	for _, existing := range options {
		if existing.ID == opt.ID {
			return nil, ErrPositionExists
		}
	}
	out := append(cloneOptions(options), opt)
	if opt.Default || !hasDefault(options) {
		return markDefault(out, opt.ID), nil
	}
	return out, nil
}

// RemovePosition drops id. Removing the default promotes the first remaining entry.
func RemovePosition(options []models.CustomizationOption, id string) ([]models.CustomizationOption, error) {
	out := make([]models.CustomizationOption, 0, len(options))
	removedDefault := false
	found := false
	for _, opt := range options {
		if opt.ID == id {
			found = true
			removedDefault = opt.Default
			continue
		}
		out = append(out, opt)
	}
	if !found {
		return nil, ErrPositionNotFound
	}
	if removedDefault && len(out) > 0 {
		out = markDefault(out, out[0].ID)
	}
	return out, nil
}

// SetDefaultPosition moves the default flag to id.
func SetDefaultPosition(options []models.CustomizationOption, id string) ([]models.CustomizationOption, error) {
	for _, opt := range options {
		if opt.ID == id {
			return markDefault(cloneOptions(options), id), nil
		}
	}
	return nil, ErrPositionNotFound
}

// NormalizeDefaults enforces a single default on a non-empty list, keeping the
// first flagged entry or falling back to the first entry.
func NormalizeDefaults(options []models.CustomizationOption) []models.CustomizationOption {
	if len(options) == 0 {
		return options
	}
	target := options[0].ID
	for _, opt := range options {
		if opt.Default {
			target = opt.ID
			break
		}
	}
	return markDefault(cloneOptions(options), target)
}

// DefaultCount reports how many options carry the default flag.
func DefaultCount(options []models.CustomizationOption) int {
	n := 0
	for _, opt := range options {
		if opt.Default {
			n++
		}
	}
	return n
}

func hasDefault(options []models.CustomizationOption) bool {
	return DefaultCount(options) > 0
}

func markDefault(options []models.CustomizationOption, id string) []models.CustomizationOption {
	for i := range options {
		options[i].Default = options[i].ID == id
	}
	return options
}

func cloneOptions(options []models.CustomizationOption) []models.CustomizationOption {
	out := make([]models.CustomizationOption, len(options))
	copy(out, options)
	return out
}
