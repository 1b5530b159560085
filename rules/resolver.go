package rules

import "sort"

// Resolver answers, per option, whether active rules force it disabled or required.
//
// DISABLE and REQUIRE are each a monotonic OR over every matching active rule.
// Priority does not override: it only orders candidates so the highest-priority
// matching rule can be reported as the explanation.
//
// A Resolver is immutable after construction and safe for concurrent use.
type Resolver struct {
	active  []*Rule
	disable map[string][]*Rule // optionID -> DISABLE rules, priority desc
	require map[string][]*Rule // optionID -> REQUIRE rules, priority desc
}

// NewResolver indexes the active rules by target option.
// Inactive rules are dropped; equal priorities keep their input order.
func NewResolver(rs []Rule) *Resolver {
	r := &Resolver{
		disable: make(map[string][]*Rule),
		require: make(map[string][]*Rule),
	}

	for _, rule := range rs {
		if !rule.Active {
			continue
		}
		rule.TargetOptionIDs = append([]string(nil), rule.TargetOptionIDs...)
		r.active = append(r.active, &rule)
	}

	sort.SliceStable(r.active, func(i, j int) bool {
		return r.active[i].Priority > r.active[j].Priority
	})

	for _, rule := range r.active {
		var index map[string][]*Rule
		switch rule.Action {
		case ActionDisable:
			index = r.disable
		case ActionRequire:
			index = r.require
		default:
			continue
		}

		seen := make(map[string]bool, len(rule.TargetOptionIDs))
		for _, optionID := range rule.TargetOptionIDs {
			if seen[optionID] {
				continue
			}
			seen[optionID] = true
			index[optionID] = append(index[optionID], rule)
		}
	}

	return r
}

// Rules returns the active rules, highest priority first
func (r *Resolver) Rules() []*Rule {
	return append([]*Rule(nil), r.active...)
}

// ShouldDisable reports whether any active DISABLE rule targeting the option holds
func (r *Resolver) ShouldDisable(optionID string, s State) bool {
	_, ok := firstMatch(r.disable[optionID], s)
	return ok
}

// IsRequired reports whether any active REQUIRE rule targeting the option holds
func (r *Resolver) IsRequired(optionID string, s State) bool {
	_, ok := firstMatch(r.require[optionID], s)
	return ok
}

// DisabledBy returns the highest-priority DISABLE rule that currently disables the option
func (r *Resolver) DisabledBy(optionID string, s State) (*Rule, bool) {
	return firstMatch(r.disable[optionID], s)
}

// RequiredBy returns the highest-priority REQUIRE rule that currently requires the option
func (r *Resolver) RequiredBy(optionID string, s State) (*Rule, bool) {
	return firstMatch(r.require[optionID], s)
}

// Resolve computes both outcomes for an option
func (r *Resolver) Resolve(optionID string, s State) Resolution {
	res := Resolution{OptionID: optionID}
	if rule, ok := firstMatch(r.disable[optionID], s); ok {
		res.Disabled = true
		res.DisabledBy = rule
	}
	if rule, ok := firstMatch(r.require[optionID], s); ok {
		res.Required = true
		res.RequiredBy = rule
	}
	return res
}

// RulesFor returns the active rules targeting an option, highest priority first
func (r *Resolver) RulesFor(optionID string) []*Rule {
	var out []*Rule
	for _, rule := range r.active {
		if rule.Targets(optionID) {
			out = append(out, rule)
		}
	}
	return out
}

// firstMatch scans candidates in priority order; the first rule whose
// condition holds is both the proof of the OR and its explanation.
func firstMatch(candidates []*Rule, s State) (*Rule, bool) {
	for _, rule := range candidates {
		if Evaluate(rule.Condition, s) {
			return rule, true
		}
	}
	return nil, false
}
