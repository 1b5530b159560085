package rules

// Action is what a rule does to its target options when its condition holds
type Action string

const (
	ActionDisable Action = "DISABLE"
	ActionRequire Action = "REQUIRE"
)

// Rule is a conditional DISABLE/REQUIRE directive over target options.
// Rules arrive as structured data; they are never parsed from text.
type Rule struct {
	ID              string    `json:"id" yaml:"id"`
	Name            string    `json:"name,omitempty" yaml:"name,omitempty"`
	Active          bool      `json:"active" yaml:"active"`
	Priority        int       `json:"priority" yaml:"priority"`
	Action          Action    `json:"action" yaml:"action"`
	TargetOptionIDs []string  `json:"targetOptionIds" yaml:"targetOptionIds"`
	Condition       Condition `json:"condition" yaml:"condition"`
	Description     string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// Targets reports whether the rule lists the option among its targets
func (r *Rule) Targets(optionID string) bool {
	for _, id := range r.TargetOptionIDs {
		if id == optionID {
			return true
		}
	}
	return false
}

// Resolution is the resolved rule outcome for a single option
type Resolution struct {
	OptionID   string
	Disabled   bool
	Required   bool
	DisabledBy *Rule // highest-priority matching DISABLE rule, nil when not disabled
	RequiredBy *Rule // highest-priority matching REQUIRE rule, nil when not required
}
