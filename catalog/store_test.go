package catalog

import (
	"reflect"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	classes := []ProductClass{
		{ID: "equipment", Name: "Equipment"},
		{ID: "feed", Name: "Feed", ParentID: "equipment"},
		{ID: "feed_heavy", Name: "Heavy Feed", ParentID: "feed"},
		{ID: "straightener", Name: "Straightener", ParentID: "equipment"},
		{ID: "tooling", Name: "Tooling"},
	}
	categories := []OptionCategory{
		{ID: "cat_control", Name: "Control", ProductClassIDs: []string{"equipment"}, DisplayOrder: 3},
		{ID: "cat_brand", Name: "Brand", ProductClassIDs: []string{"equipment"}, DisplayOrder: 1},
		{ID: "cat_hyd", Name: "Hydraulics", ProductClassIDs: []string{"feed_heavy"}, DisplayOrder: 2},
		{ID: "cat_die", Name: "Die", ProductClassIDs: []string{"tooling", "straightener"}, DisplayOrder: 4},
	}
	options := []Option{
		{ID: "opt_b", CategoryID: "cat_brand", Name: "B", DisplayOrder: 2},
		{ID: "opt_a", CategoryID: "cat_brand", Name: "A", DisplayOrder: 1},
		{ID: "opt_touch", CategoryID: "cat_control", Name: "Touch"},
	}

	store, err := NewStore(classes, categories, options)
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	return store
}

func categoryIDs(cats []*OptionCategory) []string {
	ids := make([]string, len(cats))
	for i, c := range cats {
		ids[i] = c.ID
	}
	return ids
}

// TestStore_Ancestors verifies the ancestor chain starts at the class itself
func TestStore_Ancestors(t *testing.T) {
	store := newTestStore(t)

	testCases := []struct {
		classID string
		want    []string
	}{
		{"feed_heavy", []string{"feed_heavy", "feed", "equipment"}},
		{"equipment", []string{"equipment"}},
		{"unknown", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.classID, func(t *testing.T) {
			got := store.Ancestors(tc.classID)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Ancestors(%q) = %v, want %v", tc.classID, got, tc.want)
			}
		})
	}
}

// TestStore_IsA verifies equality and strict ancestry both count
func TestStore_IsA(t *testing.T) {
	store := newTestStore(t)

	testCases := []struct {
		classID    string
		ancestorID string
		want       bool
	}{
		{"feed_heavy", "feed_heavy", true},
		{"feed_heavy", "feed", true},
		{"feed_heavy", "equipment", true},
		{"feed", "feed_heavy", false},
		{"straightener", "feed", false},
		{"tooling", "equipment", false},
		{"", "equipment", false},
	}

	for _, tc := range testCases {
		if got := store.IsA(tc.classID, tc.ancestorID); got != tc.want {
			t.Errorf("IsA(%q, %q) = %v, want %v", tc.classID, tc.ancestorID, got, tc.want)
		}
	}
}

// TestStore_VisibleCategories verifies ancestor inclusion and display ordering
func TestStore_VisibleCategories(t *testing.T) {
	store := newTestStore(t)

	testCases := []struct {
		classID string
		want    []string
	}{
		{"feed_heavy", []string{"cat_brand", "cat_hyd", "cat_control"}},
		{"feed", []string{"cat_brand", "cat_control"}},
		{"straightener", []string{"cat_brand", "cat_control", "cat_die"}},
		{"tooling", []string{"cat_die"}},
		{"unknown", []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.classID, func(t *testing.T) {
			got := categoryIDs(store.VisibleCategories(tc.classID))
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("VisibleCategories(%q) = %v, want %v", tc.classID, got, tc.want)
			}
		})
	}

	if !store.IsCategoryVisible("cat_hyd", "feed_heavy") {
		t.Error("cat_hyd should be visible for feed_heavy")
	}
	if store.IsCategoryVisible("cat_hyd", "feed") {
		t.Error("cat_hyd should not be visible for feed")
	}
}

// TestStore_OptionsInCategorySorted verifies options come back by display order
func TestStore_OptionsInCategorySorted(t *testing.T) {
	store := newTestStore(t)

	opts := store.OptionsInCategory("cat_brand")
	if len(opts) != 2 {
		t.Fatalf("Expected 2 options, got %d", len(opts))
	}
	if opts[0].ID != "opt_a" || opts[1].ID != "opt_b" {
		t.Errorf("Expected [opt_a opt_b], got [%s %s]", opts[0].ID, opts[1].ID)
	}

	// Load order is preserved for the flat listing
	all := store.Options()
	if all[0].ID != "opt_b" {
		t.Errorf("Options() should keep load order, first = %s", all[0].ID)
	}
}

// TestStore_Children verifies roots and direct children
func TestStore_Children(t *testing.T) {
	store := newTestStore(t)

	roots := store.Roots()
	if len(roots) != 2 || roots[0].ID != "equipment" || roots[1].ID != "tooling" {
		t.Errorf("Unexpected roots: %v", roots)
	}

	children := store.Children("equipment")
	if len(children) != 2 || children[0].ID != "feed" || children[1].ID != "straightener" {
		t.Errorf("Unexpected children of equipment: %v", children)
	}

	if len(store.Children("feed_heavy")) != 0 {
		t.Error("Leaf class should have no children")
	}
}

// TestStore_CopiesInput verifies later edits to the input slices do not leak in
func TestStore_CopiesInput(t *testing.T) {
	categories := []OptionCategory{{ID: "cat", ProductClassIDs: []string{"root"}}}
	store, err := NewStore([]ProductClass{{ID: "root"}, {ID: "other"}}, categories, nil)
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}

	categories[0].ProductClassIDs[0] = "other"

	if !store.IsCategoryVisible("cat", "root") {
		t.Error("Store should hold its own copy of ProductClassIDs")
	}
}
