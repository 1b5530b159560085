// Package configbuilder implements the interactive configuration session:
// option selection with single/multi-select semantics, default seeding on
// product class changes, cascading removal of options that rules disable,
// validation, category status and pricing.
//
// A Session is a single-writer state machine. It performs no I/O, starts no
// goroutines and never mutates the catalog or resolver it was built from, so
// many sessions can safely share one *catalog.Store and *rules.Resolver.
package configbuilder

import (
	"errors"
	"fmt"

	"github.com/liamcoop/configbuilder/catalog"
	"github.com/liamcoop/configbuilder/rules"
)

// UntitledName is the name of a session with no selections
const UntitledName = "Untitled Configuration"

// Selection is one selected option and its quantity (always >= 1)
type Selection struct {
	OptionID string `json:"optionId"`
	Quantity int    `json:"quantity"`
}

// Session is the mutable state of one configuration being edited
type Session struct {
	catalog  *catalog.Store
	resolver *rules.Resolver

	productClassID string
	selections     []Selection

	name           string
	nameCategories []string
	autoName       bool
	isTemplate     bool
}

// SessionOption configures a Session at construction
type SessionOption func(*Session)

// WithNameCategories derives the session name from the selected options of
// the given categories, in order (e.g. brand, tier, size)
func WithNameCategories(categoryIDs ...string) SessionOption {
	return func(s *Session) {
		s.nameCategories = append([]string(nil), categoryIDs...)
		s.autoName = len(s.nameCategories) > 0
	}
}

// WithName starts the session with a fixed name, disabling auto naming
func WithName(name string) SessionOption {
	return func(s *Session) {
		s.name = name
		s.autoName = false
	}
}

// NewSession starts a session on the given product class and seeds the
// default options of every category that class exposes. An empty
// productClassID starts with no active class and nothing seeded.
func NewSession(store *catalog.Store, resolver *rules.Resolver, productClassID string, opts ...SessionOption) (*Session, error) {
	if store == nil {
		return nil, errors.New("catalog store is required")
	}
	if resolver == nil {
		resolver = rules.NewResolver(nil)
	}

	s := &Session{
		catalog:  store,
		resolver: resolver,
		name:     UntitledName,
	}
	for _, opt := range opts {
		opt(s)
	}

	if productClassID != "" {
		if err := s.SetProductClass(productClassID); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Restore reopens a saved configuration. The product class is set without
// seeding and the whole selection set is rebuilt before any rule runs, so a
// selection whose disabling condition depends on a later one survives.
// Unknown options and duplicates are skipped, a later option replaces an
// earlier one in a single-select category, and quantities are at least 1.
// Options that are disabled against the complete set are then purged by the
// cascade. A non-empty saved name is pinned.
func Restore(store *catalog.Store, resolver *rules.Resolver, saved SaveRequest, opts ...SessionOption) (*Session, error) {
	s, err := NewSession(store, resolver, "", opts...)
	if err != nil {
		return nil, err
	}

	if saved.ProductClassID != "" {
		if !store.HasProductClass(saved.ProductClassID) {
			return nil, fmt.Errorf("product class %q: %w", saved.ProductClassID, catalog.ErrNotFound)
		}
		s.productClassID = saved.ProductClassID
	}

	for _, sel := range saved.Selections {
		opt, ok := store.Option(sel.OptionID)
		if !ok || s.IsSelected(sel.OptionID) {
			continue
		}
		s.add(opt)
		s.selections[len(s.selections)-1].Quantity = max(sel.Quantity, 1)
	}
	s.settle()

	if saved.Name != "" {
		s.Rename(saved.Name)
	}
	s.isTemplate = saved.IsTemplate
	return s, nil
}

// Catalog returns the store the session evaluates against
func (s *Session) Catalog() *catalog.Store {
	return s.catalog
}

// Resolver returns the rule resolver the session evaluates against
func (s *Session) Resolver() *rules.Resolver {
	return s.resolver
}

// ProductClassID returns the active product class ("" before one is chosen)
func (s *Session) ProductClassID() string {
	return s.productClassID
}

// Selections returns a copy of the current selections in selection order
func (s *Session) Selections() []Selection {
	return append([]Selection(nil), s.selections...)
}

// Name returns the configuration name
func (s *Session) Name() string {
	return s.name
}

// IsTemplate reports whether the configuration will be saved as a template
func (s *Session) IsTemplate() bool {
	return s.isTemplate
}

// SetTemplate marks the configuration to be saved as a template or a quote line
func (s *Session) SetTemplate(isTemplate bool) {
	s.isTemplate = isTemplate
}

// IsSelected reports whether the option is currently selected
func (s *Session) IsSelected(optionID string) bool {
	return s.indexOf(optionID) >= 0
}

// InProductClass reports whether the active class is classID or descends from it
func (s *Session) InProductClass(classID string) bool {
	return s.catalog.IsA(s.productClassID, classID)
}

// Quantity returns the selected quantity of an option, 0 when not selected
func (s *Session) Quantity(optionID string) int {
	if i := s.indexOf(optionID); i >= 0 {
		return s.selections[i].Quantity
	}
	return 0
}

// IsDisabled reports whether any active DISABLE rule currently targets the option
func (s *Session) IsDisabled(optionID string) bool {
	return s.resolver.ShouldDisable(optionID, s)
}

// IsRequired reports whether any active REQUIRE rule currently targets the option
func (s *Session) IsRequired(optionID string) bool {
	return s.resolver.IsRequired(optionID, s)
}

// HasSelectionIn reports whether any option of the category is selected
func (s *Session) HasSelectionIn(categoryID string) bool {
	for _, sel := range s.selections {
		if opt, ok := s.catalog.Option(sel.OptionID); ok && opt.CategoryID == categoryID {
			return true
		}
	}
	return false
}

func (s *Session) indexOf(optionID string) int {
	for i, sel := range s.selections {
		if sel.OptionID == optionID {
			return i
		}
	}
	return -1
}

var _ rules.State = (*Session)(nil)
