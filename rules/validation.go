package rules

import (
	"fmt"
	"strings"
)

// References resolves the ids a rule may point at.
// catalog.Store satisfies it.
type References interface {
	HasOption(id string) bool
	HasProductClass(id string) bool
}

// RuleError describes a malformed rule
type RuleError struct {
	RuleID string
	Path   string // location inside the rule, e.g. "condition.conditions[1]"
	Reason string
}

func (e *RuleError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid rule %q: %s", e.RuleID, e.Reason)
	}
	return fmt.Sprintf("invalid rule %q at %s: %s", e.RuleID, e.Path, e.Reason)
}

// Validate checks rule structure and, when refs is non-nil, that every
// target and condition reference exists. Inactive rules are checked too so
// that activating one later cannot introduce a malformed tree.
func Validate(rs []Rule, refs References) error {
	seen := make(map[string]bool, len(rs))
	for i := range rs {
		rule := &rs[i]
		if strings.TrimSpace(rule.ID) == "" {
			return &RuleError{Reason: fmt.Sprintf("entry %d has an empty id", i)}
		}
		if seen[rule.ID] {
			return &RuleError{RuleID: rule.ID, Reason: "id is used more than once"}
		}
		seen[rule.ID] = true

		if rule.Action != ActionDisable && rule.Action != ActionRequire {
			return &RuleError{RuleID: rule.ID, Path: "action", Reason: fmt.Sprintf("unknown action %q (must be DISABLE or REQUIRE)", rule.Action)}
		}

		if len(rule.TargetOptionIDs) == 0 {
			return &RuleError{RuleID: rule.ID, Path: "targetOptionIds", Reason: "rule has no targets"}
		}
		if refs != nil {
			for _, id := range rule.TargetOptionIDs {
				if !refs.HasOption(id) {
					return &RuleError{RuleID: rule.ID, Path: "targetOptionIds", Reason: fmt.Sprintf("option %q does not exist", id)}
				}
			}
		}

		if err := validateCondition(rule.ID, "condition", rule.Condition, refs); err != nil {
			return err
		}
	}
	return nil
}

func validateCondition(ruleID, path string, c Condition, refs References) error {
	switch c.Type {
	case TypeSimple:
		if c.ID == "" {
			return &RuleError{RuleID: ruleID, Path: path, Reason: "simple condition has no id"}
		}
		switch c.Subject {
		case SubjectOption:
			if c.State != "" && c.State != StateSelected && c.State != StateNotSelected {
				return &RuleError{RuleID: ruleID, Path: path, Reason: fmt.Sprintf("unknown state %q", c.State)}
			}
			if refs != nil && !refs.HasOption(c.ID) {
				return &RuleError{RuleID: ruleID, Path: path, Reason: fmt.Sprintf("option %q does not exist", c.ID)}
			}
		case SubjectProductClass:
			if refs != nil && !refs.HasProductClass(c.ID) {
				return &RuleError{RuleID: ruleID, Path: path, Reason: fmt.Sprintf("product class %q does not exist", c.ID)}
			}
		default:
			return &RuleError{RuleID: ruleID, Path: path, Reason: fmt.Sprintf("unknown conditionType %q", c.Subject)}
		}

	case TypeAnd, TypeOr:
		for i, child := range c.Conditions {
			if err := validateCondition(ruleID, fmt.Sprintf("%s.conditions[%d]", path, i), child, refs); err != nil {
				return err
			}
		}

	case TypeNot:
		if c.Condition == nil {
			return &RuleError{RuleID: ruleID, Path: path, Reason: "NOT condition has no operand"}
		}
		return validateCondition(ruleID, path+".condition", *c.Condition, refs)

	default:
		return &RuleError{RuleID: ruleID, Path: path, Reason: fmt.Sprintf("unknown condition type %q", c.Type)}
	}

	return nil
}
