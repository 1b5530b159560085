package configbuilder

import "strings"

// Rename pins the configuration name; auto naming stops from here on
func (s *Session) Rename(name string) {
	s.name = strings.TrimSpace(name)
	s.autoName = false
}

// AutoNamed reports whether the name still follows the selections
func (s *Session) AutoNamed() bool {
	return s.autoName
}

// refreshName derives the name from the first selected option of each name
// category. All present gives "A B C", a leading run of two or more gives
// "A B", only the first gives "A Configuration". Without any selection the
// name resets to UntitledName; otherwise a missing first part leaves the
// name unchanged.
func (s *Session) refreshName() {
	if !s.autoName {
		return
	}
	if len(s.selections) == 0 {
		s.name = UntitledName
		return
	}

	parts := make([]string, len(s.nameCategories))
	for i, categoryID := range s.nameCategories {
		parts[i] = s.firstSelectedName(categoryID)
	}

	n := 0
	for n < len(parts) && parts[n] != "" {
		n++
	}

	switch {
	case n == len(parts):
		s.name = strings.Join(parts, " ")
	case n >= 2:
		s.name = strings.Join(parts[:n], " ")
	case n == 1:
		s.name = parts[0] + " Configuration"
	}
}

func (s *Session) firstSelectedName(categoryID string) string {
	for _, sel := range s.selections {
		if opt, ok := s.catalog.Option(sel.OptionID); ok && opt.CategoryID == categoryID {
			return opt.Name
		}
	}
	return ""
}
