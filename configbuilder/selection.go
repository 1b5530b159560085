package configbuilder

import (
	"fmt"

	"github.com/liamcoop/configbuilder/catalog"
)

// SelectOption checks or unchecks an option.
//
// Checking an option in a single-select category replaces the category's
// current selection; in a multi-select category siblings are untouched. The
// new selection starts at quantity 1. Unchecking removes the option.
// Checking an unknown, already selected or currently disabled option is a
// no-op, as is unchecking an option that is not selected. The disabled check
// runs before siblings are cleared, so an option disabled only by the current
// selection of its own single-select category is rejected too.
func (s *Session) SelectOption(optionID string, checked bool) {
	opt, ok := s.catalog.Option(optionID)
	if !ok {
		return
	}

	if !checked {
		if !s.remove(optionID) {
			return
		}
		s.settle()
		return
	}

	if s.IsSelected(optionID) || s.IsDisabled(optionID) {
		return
	}
	s.add(opt)
	s.settle()
}

// SetQuantity changes the quantity of a selected option. Quantities below 1
// and options that are not selected are ignored.
func (s *Session) SetQuantity(optionID string, quantity int) {
	if quantity < 1 {
		return
	}
	if i := s.indexOf(optionID); i >= 0 {
		s.selections[i].Quantity = quantity
	}
}

// SetProductClass switches the active product class and seeds defaults into
// the categories it newly exposes that have no selection. Selections in
// categories that become hidden are kept.
func (s *Session) SetProductClass(classID string) error {
	if !s.catalog.HasProductClass(classID) {
		return fmt.Errorf("product class %q: %w", classID, catalog.ErrNotFound)
	}

	before := make(map[string]bool)
	for _, cat := range s.catalog.VisibleCategories(s.productClassID) {
		before[cat.ID] = true
	}

	s.productClassID = classID

	var exposed []string
	for _, cat := range s.catalog.VisibleCategories(classID) {
		if !before[cat.ID] && !s.HasSelectionIn(cat.ID) {
			exposed = append(exposed, cat.ID)
		}
	}

	s.seed(exposed)
	s.settle()
	return nil
}

// DeselectAll clears every selection
func (s *Session) DeselectAll() {
	s.selections = nil
	s.settle()
}

// SelectDefaults seeds defaults into every visible category with no selection
func (s *Session) SelectDefaults() {
	var empty []string
	for _, cat := range s.catalog.VisibleCategories(s.productClassID) {
		if !s.HasSelectionIn(cat.ID) {
			empty = append(empty, cat.ID)
		}
	}
	s.seed(empty)
	s.settle()
}

// seed selects the standard options of the given categories. The default set
// is computed once against the state before seeding and applied in catalog
// order, so in a single-select category the last standard option wins.
// Seeding is not repeated for categories a default may go on to expose.
func (s *Session) seed(categoryIDs []string) {
	if len(categoryIDs) == 0 {
		return
	}
	targets := make(map[string]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		targets[id] = true
	}

	var defaults []*catalog.Option
	for _, opt := range s.catalog.Options() {
		if opt.IsStandard && targets[opt.CategoryID] && !s.IsDisabled(opt.ID) {
			defaults = append(defaults, opt)
		}
	}

	for _, opt := range defaults {
		if !s.IsSelected(opt.ID) {
			s.add(opt)
		}
	}
}

// add selects an option at quantity 1, first clearing the rest of its
// category when that category is single-select
func (s *Session) add(opt *catalog.Option) {
	if cat, ok := s.catalog.Category(opt.CategoryID); ok && !cat.AllowMultiple {
		kept := s.selections[:0]
		for _, sel := range s.selections {
			other, ok := s.catalog.Option(sel.OptionID)
			if ok && other.CategoryID == opt.CategoryID {
				continue
			}
			kept = append(kept, sel)
		}
		s.selections = kept
	}
	s.selections = append(s.selections, Selection{OptionID: opt.ID, Quantity: 1})
}

func (s *Session) remove(optionID string) bool {
	i := s.indexOf(optionID)
	if i < 0 {
		return false
	}
	s.selections = append(s.selections[:i], s.selections[i+1:]...)
	return true
}

// settle runs after every mutation: it purges disabled selections and
// refreshes the automatic name
func (s *Session) settle() {
	s.cascade()
	s.refreshName()
}

// cascade removes every selected option an active rule disables. Each pass
// evaluates against the state left by the previous one; removing an option
// can satisfy a NOT_SELECTED condition elsewhere, so passes repeat until none
// of the remaining selections is disabled. The selection set only shrinks,
// so this ends within len(selections) passes.
func (s *Session) cascade() {
	for {
		var disabled []string
		for _, sel := range s.selections {
			if s.IsDisabled(sel.OptionID) {
				disabled = append(disabled, sel.OptionID)
			}
		}
		if len(disabled) == 0 {
			return
		}
		for _, id := range disabled {
			s.remove(id)
		}
	}
}
