package rules

// State is the selection state a condition is evaluated against
type State interface {
	// IsSelected reports whether the option is currently selected
	IsSelected(optionID string) bool

	// InProductClass reports whether the active product class is classID
	// or one of its descendants
	InProductClass(classID string) bool
}

// Evaluate evaluates a condition tree against the given state.
// It is pure and total: a malformed node evaluates to false, although
// Validate rejects such trees before they reach a Resolver.
func Evaluate(c Condition, s State) bool {
	switch c.Type {
	case TypeSimple:
		switch c.Subject {
		case SubjectOption:
			selected := s.IsSelected(c.ID)
			if c.State == StateNotSelected {
				return !selected
			}
			return selected
		case SubjectProductClass:
			return s.InProductClass(c.ID)
		}
		return false

	case TypeAnd:
		for _, child := range c.Conditions {
			if !Evaluate(child, s) {
				return false
			}
		}
		return true

	case TypeOr:
		for _, child := range c.Conditions {
			if Evaluate(child, s) {
				return true
			}
		}
		return false

	case TypeNot:
		if c.Condition == nil {
			return false
		}
		return !Evaluate(*c.Condition, s)
	}

	return false
}
