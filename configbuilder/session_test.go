package configbuilder

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/liamcoop/configbuilder/catalog"
	"github.com/liamcoop/configbuilder/rules"
)

func buildSession(t *testing.T, snap catalog.Snapshot, classID string, opts ...SessionOption) *Session {
	t.Helper()

	store, resolver, err := snap.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	s, err := NewSession(store, resolver, classID, opts...)
	if err != nil {
		t.Fatalf("NewSession() failed: %v", err)
	}
	return s
}

func selectedIDs(s *Session) []string {
	sels := s.Selections()
	ids := make([]string, len(sels))
	for i, sel := range sels {
		ids[i] = sel.OptionID
	}
	return ids
}

func price(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// hierarchySnapshot has a base class with a heavy child that exposes a
// required hydraulics category holding one standard option
func hierarchySnapshot() catalog.Snapshot {
	return catalog.Snapshot{
		ProductClasses: []catalog.ProductClass{
			{ID: "base", Name: "Base"},
			{ID: "heavy", Name: "Heavy", ParentID: "base"},
			{ID: "light", Name: "Light", ParentID: "base"},
		},
		Categories: []catalog.OptionCategory{
			{ID: "cat_control", Name: "Control", ProductClassIDs: []string{"base"}, IsRequired: true, DisplayOrder: 1},
			{ID: "cat_hyd", Name: "Hydraulics", ProductClassIDs: []string{"heavy"}, IsRequired: true, DisplayOrder: 2},
			{ID: "cat_lamp", Name: "Lamp", ProductClassIDs: []string{"light"}, DisplayOrder: 3},
		},
		Options: []catalog.Option{
			{ID: "opt_touch", CategoryID: "cat_control", Name: "Touch", Price: price(100), IsStandard: true},
			{ID: "opt_push", CategoryID: "cat_control", Name: "Push", Price: price(50)},
			{ID: "opt_pump", CategoryID: "cat_hyd", Name: "Pump", Price: price(400), IsStandard: true},
			{ID: "opt_lamp", CategoryID: "cat_lamp", Name: "Lamp", Price: price(20), IsStandard: true},
		},
	}
}

// TestNewSession_SeedsDefaults verifies a new session seeds every exposed category
func TestNewSession_SeedsDefaults(t *testing.T) {
	s := buildSession(t, hierarchySnapshot(), "heavy")

	want := []string{"opt_touch", "opt_pump"}
	if got := selectedIDs(s); !reflect.DeepEqual(got, want) {
		t.Errorf("Selections = %v, want %v", got, want)
	}
	if s.ProductClassID() != "heavy" {
		t.Errorf("ProductClassID = %q, want heavy", s.ProductClassID())
	}
	if s.Name() != UntitledName {
		t.Errorf("Name = %q, want %q", s.Name(), UntitledName)
	}
}

// TestNewSession_NoClass verifies a classless session starts empty
func TestNewSession_NoClass(t *testing.T) {
	s := buildSession(t, hierarchySnapshot(), "")

	if len(s.Selections()) != 0 {
		t.Errorf("Expected no selections, got %v", selectedIDs(s))
	}
	if s.InProductClass("base") {
		t.Error("Classless session should not be in any class")
	}
}

// TestNewSession_Errors verifies construction failures
func TestNewSession_Errors(t *testing.T) {
	snap := hierarchySnapshot()
	store, resolver, err := snap.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if _, err := NewSession(nil, resolver, ""); err == nil {
		t.Error("Expected error for nil store")
	}

	_, err = NewSession(store, resolver, "ghost")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Expected catalog.ErrNotFound, got %v", err)
	}

	s, err := NewSession(store, nil, "base")
	if err != nil {
		t.Fatalf("NewSession() with nil resolver failed: %v", err)
	}
	if s.IsDisabled("opt_push") {
		t.Error("Nil resolver should disable nothing")
	}
}

// TestSetProductClass_SeedsNewlyExposedCategory verifies a switch to a class with a hidden
// required category seeds its standard option and the category becomes valid
func TestSetProductClass_SeedsNewlyExposedCategory(t *testing.T) {
	s := buildSession(t, hierarchySnapshot(), "base")

	if s.IsSelected("opt_pump") {
		t.Fatal("opt_pump should not be selected while cat_hyd is hidden")
	}

	if err := s.SetProductClass("heavy"); err != nil {
		t.Fatalf("SetProductClass() failed: %v", err)
	}

	if !s.IsSelected("opt_pump") {
		t.Error("opt_pump should be seeded when cat_hyd is exposed")
	}
	if got := s.CategoryStatus("cat_hyd"); got != StatusValid {
		t.Errorf("CategoryStatus(cat_hyd) = %s, want valid", got)
	}
}

// TestSetProductClass_SeedBlockedByDisable verifies seeding never selects a disabled default
func TestSetProductClass_SeedBlockedByDisable(t *testing.T) {
	snap := hierarchySnapshot()
	snap.Rules = []rules.Rule{{
		ID: "no_pump_on_heavy", Active: true, Action: rules.ActionDisable,
		TargetOptionIDs: []string{"opt_pump"},
		Condition:       rules.InProductClass("heavy"),
	}}
	s := buildSession(t, snap, "base")

	if err := s.SetProductClass("heavy"); err != nil {
		t.Fatalf("SetProductClass() failed: %v", err)
	}

	if s.IsSelected("opt_pump") {
		t.Error("Disabled default should not be seeded")
	}
	if got := s.CategoryStatus("cat_hyd"); got != StatusError {
		t.Errorf("CategoryStatus(cat_hyd) = %s, want error", got)
	}
	if s.IsValid() {
		t.Error("Configuration should be invalid with cat_hyd empty")
	}
}

// TestSetProductClass_OnlyNewlyExposed verifies categories visible before the switch are not reseeded
func TestSetProductClass_OnlyNewlyExposed(t *testing.T) {
	s := buildSession(t, hierarchySnapshot(), "base")

	s.SelectOption("opt_touch", false)
	if s.HasSelectionIn("cat_control") {
		t.Fatal("cat_control should be empty after deselecting")
	}

	if err := s.SetProductClass("heavy"); err != nil {
		t.Fatalf("SetProductClass() failed: %v", err)
	}

	if s.IsSelected("opt_touch") {
		t.Error("cat_control was already visible and should not be reseeded")
	}
	if !s.IsSelected("opt_pump") {
		t.Error("cat_hyd is newly exposed and should be seeded")
	}
}

// TestSetProductClass_KeepsHiddenSelections verifies selections in categories that become hidden persist
func TestSetProductClass_KeepsHiddenSelections(t *testing.T) {
	s := buildSession(t, hierarchySnapshot(), "heavy")

	if err := s.SetProductClass("light"); err != nil {
		t.Fatalf("SetProductClass() failed: %v", err)
	}

	want := []string{"opt_touch", "opt_pump", "opt_lamp"}
	if got := selectedIDs(s); !reflect.DeepEqual(got, want) {
		t.Errorf("Selections = %v, want %v", got, want)
	}
	for _, r := range s.Validate() {
		if r.CategoryID == "cat_hyd" {
			t.Errorf("Hidden category should not be validated, got %+v", r)
		}
	}
}

// TestSetProductClass_UnknownClass verifies the state is untouched on error
func TestSetProductClass_UnknownClass(t *testing.T) {
	s := buildSession(t, hierarchySnapshot(), "heavy")
	before := selectedIDs(s)

	err := s.SetProductClass("ghost")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("Expected catalog.ErrNotFound, got %v", err)
	}
	if s.ProductClassID() != "heavy" {
		t.Errorf("ProductClassID changed to %q", s.ProductClassID())
	}
	if got := selectedIDs(s); !reflect.DeepEqual(got, before) {
		t.Errorf("Selections changed to %v, want %v", got, before)
	}
}

// TestSeeding_UsesPreSeedState verifies defaults are chosen before any is applied
// and the cascade afterwards removes the ones the seeded set disables
func TestSeeding_UsesPreSeedState(t *testing.T) {
	snap := catalog.Snapshot{
		ProductClasses: []catalog.ProductClass{{ID: "root"}},
		Categories: []catalog.OptionCategory{
			{ID: "cat_a", Name: "A", ProductClassIDs: []string{"root"}},
			{ID: "cat_b", Name: "B", ProductClassIDs: []string{"root"}},
			{ID: "cat_c", Name: "C", ProductClassIDs: []string{"root"}},
		},
		Options: []catalog.Option{
			{ID: "opt_a", CategoryID: "cat_a", Name: "A", IsStandard: true},
			{ID: "opt_b", CategoryID: "cat_b", Name: "B", IsStandard: true},
			{ID: "opt_c", CategoryID: "cat_c", Name: "C", IsStandard: true},
		},
		Rules: []rules.Rule{
			{
				ID: "a_blocks_b", Active: true, Action: rules.ActionDisable,
				TargetOptionIDs: []string{"opt_b"},
				Condition:       rules.OptionSelected("opt_a"),
			},
			{
				ID: "a_blocks_c", Active: true, Action: rules.ActionDisable,
				TargetOptionIDs: []string{"opt_c"},
				Condition:       rules.OptionSelected("opt_a"),
			},
		},
	}

	s := buildSession(t, snap, "root")

	want := []string{"opt_a"}
	if got := selectedIDs(s); !reflect.DeepEqual(got, want) {
		t.Errorf("Selections = %v, want %v", got, want)
	}
}

// TestSeeding_LastStandardWins verifies catalog order decides between two standard options
func TestSeeding_LastStandardWins(t *testing.T) {
	snap := catalog.Snapshot{
		ProductClasses: []catalog.ProductClass{{ID: "root"}},
		Categories:     []catalog.OptionCategory{{ID: "cat", Name: "Cat", ProductClassIDs: []string{"root"}}},
		Options: []catalog.Option{
			{ID: "first", CategoryID: "cat", Name: "First", IsStandard: true, DisplayOrder: 1},
			{ID: "second", CategoryID: "cat", Name: "Second", IsStandard: true, DisplayOrder: 2},
		},
	}

	s := buildSession(t, snap, "root")

	want := []string{"second"}
	if got := selectedIDs(s); !reflect.DeepEqual(got, want) {
		t.Errorf("Selections = %v, want %v", got, want)
	}
}

// TestRestore verifies a saved configuration reopens without reseeding
func TestRestore(t *testing.T) {
	snap := hierarchySnapshot()
	store, resolver, err := snap.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	saved := SaveRequest{
		Name:           "Line 4 feed",
		IsTemplate:     true,
		ProductClassID: "heavy",
		Selections: []Selection{
			{OptionID: "opt_push", Quantity: 3},
			{OptionID: "opt_removed", Quantity: 1},
		},
	}

	s, err := Restore(store, resolver, saved)
	if err != nil {
		t.Fatalf("Restore() failed: %v", err)
	}

	want := []string{"opt_push"}
	if got := selectedIDs(s); !reflect.DeepEqual(got, want) {
		t.Errorf("Selections = %v, want %v", got, want)
	}
	if s.Quantity("opt_push") != 3 {
		t.Errorf("Quantity(opt_push) = %d, want 3", s.Quantity("opt_push"))
	}
	if s.Name() != "Line 4 feed" || s.AutoNamed() {
		t.Errorf("Expected pinned name, got %q (auto=%v)", s.Name(), s.AutoNamed())
	}
	if !s.IsTemplate() {
		t.Error("Template flag should be restored")
	}

	saved.ProductClassID = "ghost"
	if _, err := Restore(store, resolver, saved); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Expected catalog.ErrNotFound, got %v", err)
	}
}

// TestSampleCatalog walks the bundled catalog end to end
func TestSampleCatalog(t *testing.T) {
	snap, err := catalog.LoadFile(filepath.Join("..", "testdata", "catalog.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	s := buildSession(t, *snap, "cls_feed_heavy", WithNameCategories("cat_brand", "cat_tier", "cat_size"))

	want := []string{"opt_coe", "opt_basic", "opt_size_12", "opt_hyd_pump"}
	if got := selectedIDs(s); !reflect.DeepEqual(got, want) {
		t.Fatalf("Seeded selections = %v, want %v", got, want)
	}
	if s.Name() != "CoE Basic 12 in" {
		t.Errorf("Name = %q, want %q", s.Name(), "CoE Basic 12 in")
	}
	if !s.TotalPrice().Equal(price(22300)) {
		t.Errorf("TotalPrice = %s, want 22300", s.TotalPrice())
	}

	results := s.Validate()
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %+v", results)
	}
	if results[0].Severity != SeverityError || results[0].Message != "Control is required" {
		t.Errorf("Unexpected first result: %+v", results[0])
	}
	if results[1].Severity != SeverityWarning ||
		results[1].Message != "Touchscreen is required (CoE machines ship with a touchscreen HMI)" ||
		results[1].RuleID != "rule_coe_touchscreen" {
		t.Errorf("Unexpected second result: %+v", results[1])
	}

	// Premium disables pushbutton, so the pushbutton selection is purged
	s.SelectOption("opt_pushbutton", true)
	s.SelectOption("opt_premium", true)
	if s.IsSelected("opt_pushbutton") {
		t.Error("opt_pushbutton should be removed once opt_premium is selected")
	}
	if s.IsSelected("opt_basic") {
		t.Error("cat_tier is single-select, opt_basic should be replaced")
	}
	if s.Name() != "CoE Premium 12 in" {
		t.Errorf("Name = %q, want %q", s.Name(), "CoE Premium 12 in")
	}

	s.SelectOption("opt_touchscreen", true)
	if !s.IsValid() {
		t.Errorf("Expected valid configuration, got %+v", s.Validate())
	}
}

// TestRestore_RoundTripOrderIndependent verifies a saved set reopens intact
// when a selection's disabling condition depends on a selection saved after it
func TestRestore_RoundTripOrderIndependent(t *testing.T) {
	snap := selectionSnapshot(rules.Rule{
		ID: "x_needs_single", Active: true, Action: rules.ActionDisable,
		TargetOptionIDs: []string{"x"},
		Condition:       rules.Not(rules.Any(rules.OptionSelected("s1"), rules.OptionSelected("s2"))),
	})
	s := buildSession(t, snap, "root")

	s.SelectOption("s1", true)
	s.SelectOption("x", true)
	s.SetQuantity("x", 3)
	s.SelectOption("s2", true)

	live := s.Selections()
	wantLive := []Selection{{OptionID: "x", Quantity: 3}, {OptionID: "s2", Quantity: 1}}
	if !reflect.DeepEqual(live, wantLive) {
		t.Fatalf("Live selections = %v, want %v", live, wantLive)
	}

	restored, err := Restore(s.Catalog(), s.Resolver(), s.SaveRequest())
	if err != nil {
		t.Fatalf("Restore() failed: %v", err)
	}
	if got := restored.Selections(); !reflect.DeepEqual(got, live) {
		t.Errorf("Restored selections = %v, want %v", got, live)
	}
	if !restored.TotalPrice().Equal(s.TotalPrice()) {
		t.Errorf("Restored total = %s, want %s", restored.TotalPrice(), s.TotalPrice())
	}
}

// TestRestore_NormalizesSelections verifies duplicates, single-select
// conflicts, bad quantities and rule violations in a saved set
func TestRestore_NormalizesSelections(t *testing.T) {
	snap := selectionSnapshot(rules.Rule{
		ID: "y_blocks_z", Active: true, Action: rules.ActionDisable,
		TargetOptionIDs: []string{"z"},
		Condition:       rules.OptionSelected("y"),
	})
	store, resolver, err := snap.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	testCases := []struct {
		name       string
		selections []Selection
		want       []Selection
	}{
		{
			name:       "Duplicate keeps first",
			selections: []Selection{{OptionID: "x", Quantity: 2}, {OptionID: "x", Quantity: 5}},
			want:       []Selection{{OptionID: "x", Quantity: 2}},
		},
		{
			name:       "Later single-select option wins",
			selections: []Selection{{OptionID: "s1", Quantity: 1}, {OptionID: "s3", Quantity: 1}},
			want:       []Selection{{OptionID: "s3", Quantity: 1}},
		},
		{
			name:       "Quantity clamped to one",
			selections: []Selection{{OptionID: "x", Quantity: 0}, {OptionID: "y", Quantity: -4}},
			want:       []Selection{{OptionID: "x", Quantity: 1}, {OptionID: "y", Quantity: 1}},
		},
		{
			name:       "Unknown option skipped",
			selections: []Selection{{OptionID: "gone", Quantity: 1}, {OptionID: "s2", Quantity: 1}},
			want:       []Selection{{OptionID: "s2", Quantity: 1}},
		},
		{
			name:       "Disabled against the full set is purged",
			selections: []Selection{{OptionID: "z", Quantity: 1}, {OptionID: "y", Quantity: 1}},
			want:       []Selection{{OptionID: "y", Quantity: 1}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Restore(store, resolver, SaveRequest{ProductClassID: "root", Selections: tc.selections})
			if err != nil {
				t.Fatalf("Restore() failed: %v", err)
			}
			if got := s.Selections(); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Selections = %v, want %v", got, tc.want)
			}
		})
	}
}
