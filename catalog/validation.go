package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned (wrapped) when a lookup references an unknown id
var ErrNotFound = errors.New("not found")

// ErrorKind classifies a CatalogError
type ErrorKind string

const (
	KindDuplicateID       ErrorKind = "duplicate_id"
	KindMissingID         ErrorKind = "missing_id"
	KindDanglingReference ErrorKind = "dangling_reference"
	KindCycle             ErrorKind = "cycle"
	KindInvalidValue      ErrorKind = "invalid_value"
)

// CatalogError describes why a catalog was rejected at load time
type CatalogError struct {
	Kind   ErrorKind
	Entity string // "product class", "category" or "option"
	ID     string
	Reason string
}

func (e *CatalogError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("invalid catalog: %s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("invalid catalog: %s %q: %s", e.Entity, e.ID, e.Reason)
}

// Validate checks catalog data for the preconditions the engine relies on:
// unique non-empty ids, resolvable references, acyclic product class
// parentage and non-negative prices.
// The first violation found is returned as a *CatalogError.
func Validate(classes []ProductClass, categories []OptionCategory, options []Option) error {
	classIDs := make(map[string]*ProductClass, len(classes))
	for i := range classes {
		pc := &classes[i]
		if strings.TrimSpace(pc.ID) == "" {
			return &CatalogError{Kind: KindMissingID, Entity: "product class", Reason: fmt.Sprintf("entry %d has an empty id", i)}
		}
		if _, exists := classIDs[pc.ID]; exists {
			return &CatalogError{Kind: KindDuplicateID, Entity: "product class", ID: pc.ID, Reason: "id is used more than once"}
		}
		classIDs[pc.ID] = pc
	}

	for i := range classes {
		pc := &classes[i]
		if pc.ParentID == "" {
			continue
		}
		if pc.ParentID == pc.ID {
			return &CatalogError{Kind: KindCycle, Entity: "product class", ID: pc.ID, Reason: "class is its own parent"}
		}
		if _, ok := classIDs[pc.ParentID]; !ok {
			return &CatalogError{Kind: KindDanglingReference, Entity: "product class", ID: pc.ID, Reason: fmt.Sprintf("parent %q does not exist", pc.ParentID)}
		}
	}

	if err := detectClassCycles(classes, classIDs); err != nil {
		return err
	}

	categoryIDs := make(map[string]bool, len(categories))
	for i := range categories {
		cat := &categories[i]
		if strings.TrimSpace(cat.ID) == "" {
			return &CatalogError{Kind: KindMissingID, Entity: "category", Reason: fmt.Sprintf("entry %d has an empty id", i)}
		}
		if categoryIDs[cat.ID] {
			return &CatalogError{Kind: KindDuplicateID, Entity: "category", ID: cat.ID, Reason: "id is used more than once"}
		}
		categoryIDs[cat.ID] = true

		for _, pcID := range cat.ProductClassIDs {
			if _, ok := classIDs[pcID]; !ok {
				return &CatalogError{Kind: KindDanglingReference, Entity: "category", ID: cat.ID, Reason: fmt.Sprintf("product class %q does not exist", pcID)}
			}
		}
	}

	optionIDs := make(map[string]bool, len(options))
	for i := range options {
		opt := &options[i]
		if strings.TrimSpace(opt.ID) == "" {
			return &CatalogError{Kind: KindMissingID, Entity: "option", Reason: fmt.Sprintf("entry %d has an empty id", i)}
		}
		if optionIDs[opt.ID] {
			return &CatalogError{Kind: KindDuplicateID, Entity: "option", ID: opt.ID, Reason: "id is used more than once"}
		}
		optionIDs[opt.ID] = true

		if !categoryIDs[opt.CategoryID] {
			return &CatalogError{Kind: KindDanglingReference, Entity: "option", ID: opt.ID, Reason: fmt.Sprintf("category %q does not exist", opt.CategoryID)}
		}
		if opt.Price.IsNegative() {
			return &CatalogError{Kind: KindInvalidValue, Entity: "option", ID: opt.ID, Reason: fmt.Sprintf("price %s is negative", opt.Price.String())}
		}
	}

	return nil
}

// detectClassCycles walks each class's parent chain with a visited set.
// Classes already proven to reach a root are memoized so every class is walked once.
func detectClassCycles(classes []ProductClass, byID map[string]*ProductClass) error {
	acyclic := make(map[string]bool, len(classes))

	for i := range classes {
		start := classes[i].ID
		if acyclic[start] {
			continue
		}

		path := []string{}
		onPath := make(map[string]bool)
		current := start
		for current != "" && !acyclic[current] {
			if onPath[current] {
				path = append(path, current)
				return &CatalogError{
					Kind:   KindCycle,
					Entity: "product class",
					ID:     start,
					Reason: fmt.Sprintf("parent chain loops: %s", strings.Join(path, " -> ")),
				}
			}
			onPath[current] = true
			path = append(path, current)
			current = byID[current].ParentID
		}

		for _, id := range path {
			acyclic[id] = true
		}
	}

	return nil
}
