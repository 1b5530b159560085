package main

import (
	"time"

	"github.com/liamcoop/configbuilder/catalog"
	"github.com/liamcoop/configbuilder/configbuilder"
	"github.com/liamcoop/configbuilder/rules"
	"github.com/liamcoop/configbuilder/sessions"
	"github.com/liamcoop/configbuilder/store"
)

// API request and response models

// CreateSessionRequest starts a session on a product class, or reopens a
// saved configuration when ConfigurationID is set
type CreateSessionRequest struct {
	ProductClassID  string `json:"productClassId,omitempty" example:"cls_feed_heavy" validate:"excluded_with=ConfigurationID"`
	ConfigurationID string `json:"configurationId,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
}

// SelectOptionRequest checks or unchecks an option
type SelectOptionRequest struct {
	OptionID string `json:"optionId" example:"opt_touchscreen" validate:"required"`
	Checked  *bool  `json:"checked" example:"true" validate:"required"`
}

// SetQuantityRequest sets the quantity of a selected option
type SetQuantityRequest struct {
	OptionID string `json:"optionId" example:"opt_light_curtain" validate:"required"`
	Quantity int    `json:"quantity" example:"2" validate:"gte=1,lte=10000"`
}

// SetProductClassRequest changes the active product class
type SetProductClassRequest struct {
	ProductClassID string `json:"productClassId" example:"cls_feed" validate:"required"`
}

// RenameRequest pins a session name
type RenameRequest struct {
	Name string `json:"name" example:"Line 3 feed" validate:"required,max=200"`
}

// SaveRequest carries the fields of the save dialog. Both are optional;
// omitted fields keep the session's current values.
type SaveRequest struct {
	Name       *string `json:"name,omitempty" example:"Line 3 feed" validate:"omitempty,min=1,max=200"`
	IsTemplate *bool   `json:"isTemplate,omitempty" example:"false"`
}

// SessionResponse is a session with its freshly computed evaluation
type SessionResponse struct {
	Session    sessions.Info            `json:"session"`
	Summary    string                   `json:"summary" example:"4 selected options · 22300.00 total value"`
	Evaluation configbuilder.Evaluation `json:"evaluation"`
}

// SessionsListResponse lists live sessions
type SessionsListResponse struct {
	Sessions []sessions.Info `json:"sessions"`
}

// SaveResponse reports the stored configuration
type SaveResponse struct {
	Configuration *store.SavedConfiguration `json:"configuration"`
}

// ConfigurationsListResponse lists saved configurations
type ConfigurationsListResponse struct {
	Configurations []*store.SavedConfiguration `json:"configurations"`
}

// ProductClassesResponse lists product classes
type ProductClassesResponse struct {
	ProductClasses []*catalog.ProductClass `json:"productClasses"`
}

// CategoriesResponse lists option categories
type CategoriesResponse struct {
	Categories []*catalog.OptionCategory `json:"categories"`
}

// OptionsResponse lists options
type OptionsResponse struct {
	Options []*catalog.Option `json:"options"`
	Filter  string            `json:"filter,omitempty" example:"option.price > 1000.0"`
}

// RulesResponse lists active rules by priority
type RulesResponse struct {
	Rules []*rules.Rule `json:"rules"`
}

// ReloadResponse reports the reloaded catalog
type ReloadResponse struct {
	LoadedAt       time.Time `json:"loadedAt"`
	ProductClasses int       `json:"productClasses"`
	Categories     int       `json:"categories"`
	Options        int       `json:"options"`
	ActiveRules    int       `json:"activeRules"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"session not found"`
	Details string `json:"details,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status          string    `json:"status" example:"healthy"`
	Sessions        int       `json:"sessions" example:"3"`
	CatalogLoadedAt time.Time `json:"catalogLoadedAt"`
}
