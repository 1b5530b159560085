package rules

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type fakeRefs struct {
	options map[string]bool
	classes map[string]bool
}

func (f fakeRefs) HasOption(id string) bool       { return f.options[id] }
func (f fakeRefs) HasProductClass(id string) bool { return f.classes[id] }

func testRefs() fakeRefs {
	return fakeRefs{
		options: map[string]bool{"a": true, "b": true},
		classes: map[string]bool{"feed": true},
	}
}

// TestValidate_AcceptsWellFormedRules verifies valid rules pass
func TestValidate_AcceptsWellFormedRules(t *testing.T) {
	rs := []Rule{
		{ID: "r1", Active: true, Action: ActionDisable, TargetOptionIDs: []string{"b"}, Condition: OptionSelected("a")},
		{ID: "r2", Active: false, Action: ActionRequire, TargetOptionIDs: []string{"a"}, Condition: All(InProductClass("feed"), Not(OptionSelected("b")))},
		{ID: "r3", Active: true, Action: ActionRequire, TargetOptionIDs: []string{"a"}, Condition: Any()},
	}

	if err := Validate(rs, testRefs()); err != nil {
		t.Fatalf("Expected valid rules, got: %v", err)
	}
}

// TestValidate_RejectsMalformedRules verifies each structural problem is reported
func TestValidate_RejectsMalformedRules(t *testing.T) {
	valid := func() Rule {
		return Rule{ID: "r1", Active: true, Action: ActionDisable, TargetOptionIDs: []string{"b"}, Condition: OptionSelected("a")}
	}

	testCases := []struct {
		name      string
		rules     func() []Rule
		wantPath  string
		wantInMsg string
	}{
		{
			name:      "Empty id",
			rules:     func() []Rule { r := valid(); r.ID = ""; return []Rule{r} },
			wantInMsg: "empty id",
		},
		{
			name:      "Duplicate id",
			rules:     func() []Rule { return []Rule{valid(), valid()} },
			wantInMsg: "more than once",
		},
		{
			name:     "Unknown action",
			rules:    func() []Rule { r := valid(); r.Action = "HIDE"; return []Rule{r} },
			wantPath: "action",
		},
		{
			name:     "No targets",
			rules:    func() []Rule { r := valid(); r.TargetOptionIDs = nil; return []Rule{r} },
			wantPath: "targetOptionIds",
		},
		{
			name:      "Dangling target",
			rules:     func() []Rule { r := valid(); r.TargetOptionIDs = []string{"ghost"}; return []Rule{r} },
			wantPath:  "targetOptionIds",
			wantInMsg: "ghost",
		},
		{
			name:      "Dangling option in condition",
			rules:     func() []Rule { r := valid(); r.Condition = All(OptionSelected("a"), OptionSelected("ghost")); return []Rule{r} },
			wantPath:  "condition.conditions[1]",
			wantInMsg: "ghost",
		},
		{
			name:      "Dangling class in condition",
			rules:     func() []Rule { r := valid(); r.Condition = Not(InProductClass("nowhere")); return []Rule{r} },
			wantPath:  "condition.condition",
			wantInMsg: "nowhere",
		},
		{
			name:     "NOT without operand",
			rules:    func() []Rule { r := valid(); r.Condition = Condition{Type: TypeNot}; return []Rule{r} },
			wantPath: "condition",
		},
		{
			name:      "Unknown condition type",
			rules:     func() []Rule { r := valid(); r.Condition = Condition{Type: "XOR"}; return []Rule{r} },
			wantInMsg: "XOR",
		},
		{
			name:      "Unknown subject",
			rules:     func() []Rule { r := valid(); r.Condition = Condition{Type: TypeSimple, Subject: "CUSTOMER", ID: "x"}; return []Rule{r} },
			wantInMsg: "CUSTOMER",
		},
		{
			name:      "Unknown state",
			rules:     func() []Rule { r := valid(); r.Condition.State = "MAYBE"; return []Rule{r} },
			wantInMsg: "MAYBE",
		},
		{
			name:      "Simple without id",
			rules:     func() []Rule { r := valid(); r.Condition.ID = ""; return []Rule{r} },
			wantInMsg: "no id",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.rules(), testRefs())
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}

			var ruleErr *RuleError
			if !errors.As(err, &ruleErr) {
				t.Fatalf("Expected *RuleError, got %T", err)
			}
			if tc.wantPath != "" && ruleErr.Path != tc.wantPath {
				t.Errorf("Path = %q, want %q", ruleErr.Path, tc.wantPath)
			}
			if tc.wantInMsg != "" && !strings.Contains(err.Error(), tc.wantInMsg) {
				t.Errorf("Expected error to mention %q, got: %v", tc.wantInMsg, err)
			}
		})
	}
}

// TestValidate_NilRefsSkipsExistence verifies structure-only validation
func TestValidate_NilRefsSkipsExistence(t *testing.T) {
	rs := []Rule{{ID: "r1", Action: ActionRequire, TargetOptionIDs: []string{"anything"}, Condition: OptionSelected("whatever")}}
	if err := Validate(rs, nil); err != nil {
		t.Errorf("Expected no error without refs, got: %v", err)
	}
}

// TestCondition_WireForms verifies JSON and YAML decode to the same tree
func TestCondition_WireForms(t *testing.T) {
	jsonDoc := `{"type":"AND","conditions":[
		{"type":"SIMPLE","conditionType":"OPTION","id":"a","state":"SELECTED"},
		{"type":"NOT","condition":{"type":"SIMPLE","conditionType":"PRODUCT_CLASS","id":"feed"}}
	]}`
	yamlDoc := `
type: AND
conditions:
  - type: SIMPLE
    conditionType: OPTION
    id: a
    state: SELECTED
  - type: NOT
    condition:
      type: SIMPLE
      conditionType: PRODUCT_CLASS
      id: feed
`

	var fromJSON, fromYAML Condition
	if err := json.Unmarshal([]byte(jsonDoc), &fromJSON); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	if err := yaml.Unmarshal([]byte(yamlDoc), &fromYAML); err != nil {
		t.Fatalf("yaml.Unmarshal() failed: %v", err)
	}

	want := All(OptionSelected("a"), Not(InProductClass("feed")))
	for name, got := range map[string]Condition{"json": fromJSON, "yaml": fromYAML} {
		if got.String() != want.String() {
			t.Errorf("%s decoded to %s, want %s", name, got, want)
		}
	}
}
