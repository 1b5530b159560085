package configbuilder

import "fmt"

// Severity classifies a validation result
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeveritySuccess Severity = "success"
)

// ValidMessage is the message of the single result of a valid configuration
const ValidMessage = "Configuration is valid"

// ValidationResult is one finding about the current configuration.
// Invalid configurations are data, not errors.
type ValidationResult struct {
	Valid      bool     `json:"valid"`
	Severity   Severity `json:"type"`
	Message    string   `json:"message"`
	CategoryID string   `json:"categoryId,omitempty"`
	OptionID   string   `json:"optionId,omitempty"`
	RuleID     string   `json:"ruleId,omitempty"`
}

// Status is the per-category display state
type Status string

const (
	StatusError      Status = "error"      // required, nothing selected
	StatusWarning    Status = "warning"    // selected, but an option of the category is required and unselected
	StatusValid      Status = "valid"      // selected, no warning
	StatusIncomplete Status = "incomplete" // optional, nothing selected
)

// Validate reports every visible required category without a selection
// (errors), then every rule-required option that is not selected (warnings).
// With no findings it returns a single success result.
func (s *Session) Validate() []ValidationResult {
	var results []ValidationResult

	for _, cat := range s.catalog.VisibleCategories(s.productClassID) {
		if cat.IsRequired && !s.HasSelectionIn(cat.ID) {
			results = append(results, ValidationResult{
				Severity:   SeverityError,
				Message:    fmt.Sprintf("%s is required", cat.Name),
				CategoryID: cat.ID,
			})
		}
	}

	for _, opt := range s.catalog.Options() {
		if s.IsSelected(opt.ID) {
			continue
		}
		rule, ok := s.resolver.RequiredBy(opt.ID, s)
		if !ok {
			continue
		}

		msg := fmt.Sprintf("%s is required", opt.Name)
		if rule.Description != "" {
			msg = fmt.Sprintf("%s (%s)", msg, rule.Description)
		}
		results = append(results, ValidationResult{
			Severity:   SeverityWarning,
			Message:    msg,
			CategoryID: opt.CategoryID,
			OptionID:   opt.ID,
			RuleID:     rule.ID,
		})
	}

	if len(results) == 0 {
		results = append(results, ValidationResult{
			Valid:    true,
			Severity: SeveritySuccess,
			Message:  ValidMessage,
		})
	}
	return results
}

// IsValid reports whether the configuration has no error-level findings.
// Warnings do not block saving.
func (s *Session) IsValid() bool {
	for _, r := range s.Validate() {
		if r.Severity == SeverityError {
			return false
		}
	}
	return true
}

// CategoryStatus derives a category's display state from the same facts
// Validate uses. Unknown categories report StatusValid.
func (s *Session) CategoryStatus(categoryID string) Status {
	cat, ok := s.catalog.Category(categoryID)
	if !ok {
		return StatusValid
	}

	hasSelection := s.HasSelectionIn(categoryID)
	if cat.IsRequired && !hasSelection {
		return StatusError
	}
	if !hasSelection {
		return StatusIncomplete
	}

	for _, opt := range s.catalog.OptionsInCategory(categoryID) {
		if !s.IsSelected(opt.ID) && s.IsRequired(opt.ID) {
			return StatusWarning
		}
	}
	return StatusValid
}
