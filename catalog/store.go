package catalog

import "sort"

// Store holds the read-only lookup tables for one editing session's catalog.
// It is built once, validated, and then shared by reference; nothing in the
// engine mutates it, so a single Store may back many sessions concurrently.
// Pointers returned by lookups refer to the Store's own copies and must not be modified.
type Store struct {
	classes    map[string]*ProductClass
	classOrder []*ProductClass
	children   map[string][]*ProductClass

	categories    map[string]*OptionCategory
	categoryOrder []*OptionCategory

	options           map[string]*Option
	optionOrder       []*Option
	optionsByCategory map[string][]*Option
}

// NewStore validates the given records and builds a Store from copies of them
func NewStore(classes []ProductClass, categories []OptionCategory, options []Option) (*Store, error) {
	if err := Validate(classes, categories, options); err != nil {
		return nil, err
	}

	s := &Store{
		classes:           make(map[string]*ProductClass, len(classes)),
		classOrder:        make([]*ProductClass, 0, len(classes)),
		children:          make(map[string][]*ProductClass),
		categories:        make(map[string]*OptionCategory, len(categories)),
		categoryOrder:     make([]*OptionCategory, 0, len(categories)),
		options:           make(map[string]*Option, len(options)),
		optionOrder:       make([]*Option, 0, len(options)),
		optionsByCategory: make(map[string][]*Option),
	}

	for _, pc := range classes {
		s.classes[pc.ID] = &pc
		s.classOrder = append(s.classOrder, &pc)
		s.children[pc.ParentID] = append(s.children[pc.ParentID], &pc)
	}

	for _, cat := range categories {
		cat.ProductClassIDs = append([]string(nil), cat.ProductClassIDs...)
		s.categories[cat.ID] = &cat
		s.categoryOrder = append(s.categoryOrder, &cat)
	}

	for _, opt := range options {
		s.options[opt.ID] = &opt
		s.optionOrder = append(s.optionOrder, &opt)
		s.optionsByCategory[opt.CategoryID] = append(s.optionsByCategory[opt.CategoryID], &opt)
	}

	for _, opts := range s.optionsByCategory {
		sort.SliceStable(opts, func(i, j int) bool {
			return opts[i].DisplayOrder < opts[j].DisplayOrder
		})
	}

	return s, nil
}

// ProductClass looks up a class by id
func (s *Store) ProductClass(id string) (*ProductClass, bool) {
	pc, ok := s.classes[id]
	return pc, ok
}

// Category looks up a category by id
func (s *Store) Category(id string) (*OptionCategory, bool) {
	cat, ok := s.categories[id]
	return cat, ok
}

// Option looks up an option by id
func (s *Store) Option(id string) (*Option, bool) {
	opt, ok := s.options[id]
	return opt, ok
}

// HasOption reports whether the option id exists
func (s *Store) HasOption(id string) bool {
	_, ok := s.options[id]
	return ok
}

// HasProductClass reports whether the product class id exists
func (s *Store) HasProductClass(id string) bool {
	_, ok := s.classes[id]
	return ok
}

// ProductClasses returns all classes in load order
func (s *Store) ProductClasses() []*ProductClass {
	return append([]*ProductClass(nil), s.classOrder...)
}

// Roots returns the classes without a parent, in load order
func (s *Store) Roots() []*ProductClass {
	return s.Children("")
}

// Children returns the direct children of a class in load order.
// Passing "" returns the roots.
func (s *Store) Children(parentID string) []*ProductClass {
	return append([]*ProductClass(nil), s.children[parentID]...)
}

// Categories returns all categories in load order
func (s *Store) Categories() []*OptionCategory {
	return append([]*OptionCategory(nil), s.categoryOrder...)
}

// Options returns all options in load order
func (s *Store) Options() []*Option {
	return append([]*Option(nil), s.optionOrder...)
}

// OptionsInCategory returns a category's options sorted by display order
func (s *Store) OptionsInCategory(categoryID string) []*Option {
	return append([]*Option(nil), s.optionsByCategory[categoryID]...)
}

// Ancestors returns the ancestor chain of a class starting with the class itself.
// An unknown id yields an empty chain.
func (s *Store) Ancestors(classID string) []string {
	var chain []string
	current, ok := s.classes[classID]
	for ok {
		chain = append(chain, current.ID)
		if current.ParentID == "" {
			break
		}
		current, ok = s.classes[current.ParentID]
	}
	return chain
}

// IsA reports whether classID equals ancestorID or descends from it
func (s *Store) IsA(classID, ancestorID string) bool {
	if classID == "" || ancestorID == "" {
		return false
	}
	for _, id := range s.Ancestors(classID) {
		if id == ancestorID {
			return true
		}
	}
	return false
}

// IsCategoryVisible reports whether the category applies to the given class hierarchy
func (s *Store) IsCategoryVisible(categoryID, classID string) bool {
	cat, ok := s.categories[categoryID]
	if !ok {
		return false
	}
	return s.visible(cat, s.Ancestors(classID))
}

// VisibleCategories returns the categories visible for a class, sorted by display order
func (s *Store) VisibleCategories(classID string) []*OptionCategory {
	chain := s.Ancestors(classID)
	if len(chain) == 0 {
		return nil
	}

	var visible []*OptionCategory
	for _, cat := range s.categoryOrder {
		if s.visible(cat, chain) {
			visible = append(visible, cat)
		}
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].DisplayOrder < visible[j].DisplayOrder
	})
	return visible
}

func (s *Store) visible(cat *OptionCategory, chain []string) bool {
	for _, pcID := range cat.ProductClassIDs {
		for _, id := range chain {
			if id == pcID {
				return true
			}
		}
	}
	return false
}
