// Package store holds the persistence collaborators around the engine:
// catalog sources (file or Postgres), a catalog cache and the store for
// saved configurations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liamcoop/configbuilder/catalog"
	"github.com/liamcoop/configbuilder/configbuilder"
)

// ErrNotFound is returned when a saved configuration does not exist
var ErrNotFound = errors.New("configuration not found")

// SavedConfiguration is a persisted configuration or template
type SavedConfiguration struct {
	ID             string                    `json:"id"`
	Name           string                    `json:"name"`
	IsTemplate     bool                      `json:"isTemplate"`
	ProductClassID string                    `json:"productClassId"`
	Selections     []configbuilder.Selection `json:"selections"`
	TotalPrice     decimal.Decimal           `json:"totalPrice"`
	CreatedAt      time.Time                 `json:"createdAt"`
	UpdatedAt      time.Time                 `json:"updatedAt"`
}

// NewSavedConfiguration copies a session save request into a record with no ID
func NewSavedConfiguration(req configbuilder.SaveRequest) *SavedConfiguration {
	selections := make([]configbuilder.Selection, len(req.Selections))
	copy(selections, req.Selections)

	return &SavedConfiguration{
		Name:           req.Name,
		IsTemplate:     req.IsTemplate,
		ProductClassID: req.ProductClassID,
		Selections:     selections,
		TotalPrice:     req.TotalPrice,
	}
}

// SaveRequest converts the record back into the form a session restores from
func (c *SavedConfiguration) SaveRequest() configbuilder.SaveRequest {
	selections := make([]configbuilder.Selection, len(c.Selections))
	copy(selections, c.Selections)

	return configbuilder.SaveRequest{
		Name:           c.Name,
		IsTemplate:     c.IsTemplate,
		ProductClassID: c.ProductClassID,
		Selections:     selections,
		TotalPrice:     c.TotalPrice,
	}
}

// ListFilter narrows List results
type ListFilter struct {
	// TemplatesOnly restricts the listing to templates
	TemplatesOnly bool
	// ProductClassID restricts the listing to one product class when set
	ProductClassID string
}

func (f ListFilter) matches(c *SavedConfiguration) bool {
	if f.TemplatesOnly && !c.IsTemplate {
		return false
	}
	if f.ProductClassID != "" && c.ProductClassID != f.ProductClassID {
		return false
	}
	return true
}

// ConfigurationStore persists saved configurations
type ConfigurationStore interface {
	// Save inserts the configuration, assigning an ID when empty, or
	// replaces an existing one with the same ID (CreatedAt is preserved)
	Save(ctx context.Context, cfg *SavedConfiguration) error

	// Get a configuration by ID
	Get(ctx context.Context, id string) (*SavedConfiguration, error)

	// List configurations, most recently updated first
	List(ctx context.Context, filter ListFilter) ([]*SavedConfiguration, error)

	// Delete a configuration
	Delete(ctx context.Context, id string) error
}

// CatalogSource loads the raw catalog snapshot from somewhere
type CatalogSource interface {
	Load(ctx context.Context) (*catalog.Snapshot, error)
}
