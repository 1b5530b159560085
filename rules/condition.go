package rules

import (
	"fmt"
	"strings"
)

// ConditionType discriminates the variants of a Condition
type ConditionType string

const (
	TypeSimple ConditionType = "SIMPLE"
	TypeAnd    ConditionType = "AND"
	TypeOr     ConditionType = "OR"
	TypeNot    ConditionType = "NOT"
)

// Subject is what a SIMPLE condition tests
type Subject string

const (
	SubjectOption       Subject = "OPTION"
	SubjectProductClass Subject = "PRODUCT_CLASS"
)

// SelectionState is the expected state of an OPTION condition
type SelectionState string

const (
	StateSelected    SelectionState = "SELECTED"
	StateNotSelected SelectionState = "NOT_SELECTED"
)

// Condition is a recursive boolean expression over option selection and
// product class membership. It is a tagged union keyed by Type:
//
//	SIMPLE uses Subject, ID and State (State defaults to SELECTED)
//	AND, OR use Conditions
//	NOT uses Condition
//
// The field names follow the wire form, so JSON and YAML decode directly:
//
//	{"type":"AND","conditions":[{"type":"SIMPLE","conditionType":"OPTION","id":"opt_coe"}]}
type Condition struct {
	Type       ConditionType  `json:"type" yaml:"type"`
	Subject    Subject        `json:"conditionType,omitempty" yaml:"conditionType,omitempty"`
	ID         string         `json:"id,omitempty" yaml:"id,omitempty"`
	State      SelectionState `json:"state,omitempty" yaml:"state,omitempty"`
	Conditions []Condition    `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Condition  *Condition     `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// OptionSelected is true while the option is selected
func OptionSelected(optionID string) Condition {
	return Condition{Type: TypeSimple, Subject: SubjectOption, ID: optionID, State: StateSelected}
}

// OptionNotSelected is true while the option is not selected
func OptionNotSelected(optionID string) Condition {
	return Condition{Type: TypeSimple, Subject: SubjectOption, ID: optionID, State: StateNotSelected}
}

// InProductClass is true while the active class is, or descends from, classID
func InProductClass(classID string) Condition {
	return Condition{Type: TypeSimple, Subject: SubjectProductClass, ID: classID}
}

// All is true when every child is true (and for no children)
func All(conditions ...Condition) Condition {
	return Condition{Type: TypeAnd, Conditions: conditions}
}

// Any is true when at least one child is true (false for no children)
func Any(conditions ...Condition) Condition {
	return Condition{Type: TypeOr, Conditions: conditions}
}

// Not negates a condition
func Not(c Condition) Condition {
	return Condition{Type: TypeNot, Condition: &c}
}

// String renders the condition for logs and explanations
func (c Condition) String() string {
	switch c.Type {
	case TypeSimple:
		switch c.Subject {
		case SubjectOption:
			if c.State == StateNotSelected {
				return fmt.Sprintf("!option(%s)", c.ID)
			}
			return fmt.Sprintf("option(%s)", c.ID)
		case SubjectProductClass:
			return fmt.Sprintf("class(%s)", c.ID)
		}
	case TypeAnd, TypeOr:
		parts := make([]string, len(c.Conditions))
		for i, child := range c.Conditions {
			parts[i] = child.String()
		}
		return fmt.Sprintf("%s(%s)", c.Type, strings.Join(parts, ", "))
	case TypeNot:
		if c.Condition != nil {
			return fmt.Sprintf("NOT(%s)", c.Condition.String())
		}
	}
	return fmt.Sprintf("invalid(%s)", c.Type)
}

// References collects the option and product class ids a condition mentions
func (c Condition) References() (optionIDs, classIDs []string) {
	var walk func(Condition)
	walk = func(n Condition) {
		switch n.Type {
		case TypeSimple:
			switch n.Subject {
			case SubjectOption:
				optionIDs = append(optionIDs, n.ID)
			case SubjectProductClass:
				classIDs = append(classIDs, n.ID)
			}
		case TypeAnd, TypeOr:
			for _, child := range n.Conditions {
				walk(child)
			}
		case TypeNot:
			if n.Condition != nil {
				walk(*n.Condition)
			}
		}
	}
	walk(c)
	return optionIDs, classIDs
}
