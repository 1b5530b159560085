package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liamcoop/configbuilder/configbuilder"
)

func testConfiguration(name string, template bool) *SavedConfiguration {
	return &SavedConfiguration{
		Name:           name,
		IsTemplate:     template,
		ProductClassID: "pc_feed",
		Selections: []configbuilder.Selection{
			{OptionID: "opt_coe", Quantity: 1},
			{OptionID: "opt_curtain", Quantity: 2},
		},
		TotalPrice: decimal.RequireFromString("3450.50"),
	}
}

// fakeClock returns increasing timestamps one second apart
func fakeClock() func() time.Time {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

// TestInMemoryStore_SaveAndGet verifies IDs and timestamps are assigned
func TestInMemoryStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryConfigurationStore()

	cfg := testConfiguration("CoE Basic", false)
	if err := s.Save(ctx, cfg); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if cfg.ID == "" {
		t.Fatal("Expected ID to be assigned")
	}
	if cfg.CreatedAt.IsZero() || !cfg.CreatedAt.Equal(cfg.UpdatedAt) {
		t.Errorf("Unexpected timestamps: %v / %v", cfg.CreatedAt, cfg.UpdatedAt)
	}

	got, err := s.Get(ctx, cfg.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Name != "CoE Basic" || len(got.Selections) != 2 || !got.TotalPrice.Equal(cfg.TotalPrice) {
		t.Errorf("Unexpected configuration: %+v", got)
	}
}

// TestInMemoryStore_SaveUpdatesPreservesCreatedAt verifies re-saving an ID replaces it
func TestInMemoryStore_SaveUpdatesPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryConfigurationStore()
	s.now = fakeClock()

	cfg := testConfiguration("First", false)
	if err := s.Save(ctx, cfg); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	created := cfg.CreatedAt

	cfg.Name = "Second"
	if err := s.Save(ctx, cfg); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, _ := s.Get(ctx, cfg.ID)
	if got.Name != "Second" {
		t.Errorf("Name = %q, want Second", got.Name)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed: %v -> %v", created, got.CreatedAt)
	}
	if !got.UpdatedAt.After(created) {
		t.Errorf("UpdatedAt %v should be after %v", got.UpdatedAt, created)
	}
}

// TestInMemoryStore_Isolation verifies stored records are copies
func TestInMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryConfigurationStore()

	cfg := testConfiguration("Quote", false)
	if err := s.Save(ctx, cfg); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	cfg.Selections[0].Quantity = 9

	got, _ := s.Get(ctx, cfg.ID)
	if got.Selections[0].Quantity != 1 {
		t.Error("Mutating the saved value leaked into the store")
	}

	got.Selections[1].Quantity = 7
	again, _ := s.Get(ctx, cfg.ID)
	if again.Selections[1].Quantity != 2 {
		t.Error("Mutating a returned value leaked into the store")
	}
}

// TestInMemoryStore_List verifies filtering and ordering
func TestInMemoryStore_List(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryConfigurationStore()
	s.now = fakeClock()

	older := testConfiguration("Older template", true)
	plain := testConfiguration("Plain", false)
	newer := testConfiguration("Newer template", true)
	newer.ProductClassID = "pc_other"
	for _, c := range []*SavedConfiguration{older, plain, newer} {
		if err := s.Save(ctx, c); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
	}

	testCases := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{"All", ListFilter{}, []string{"Newer template", "Plain", "Older template"}},
		{"Templates only", ListFilter{TemplatesOnly: true}, []string{"Newer template", "Older template"}},
		{"By product class", ListFilter{ProductClassID: "pc_feed"}, []string{"Plain", "Older template"}},
		{"No match", ListFilter{ProductClassID: "ghost"}, []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			list, err := s.List(ctx, tc.filter)
			if err != nil {
				t.Fatalf("List() failed: %v", err)
			}
			if len(list) != len(tc.want) {
				t.Fatalf("Expected %d configurations, got %d", len(tc.want), len(list))
			}
			for i, c := range list {
				if c.Name != tc.want[i] {
					t.Errorf("list[%d] = %q, want %q", i, c.Name, tc.want[i])
				}
			}
		})
	}
}

// TestInMemoryStore_NotFound verifies missing IDs wrap ErrNotFound
func TestInMemoryStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryConfigurationStore()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}

	cfg := testConfiguration("Doomed", false)
	_ = s.Save(ctx, cfg)
	if err := s.Delete(ctx, cfg.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := s.Get(ctx, cfg.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
	}
}

// TestSavedConfiguration_SaveRequestRoundTrip verifies conversion to and from a session save request
func TestSavedConfiguration_SaveRequestRoundTrip(t *testing.T) {
	req := configbuilder.SaveRequest{
		Name:           "Line 3",
		IsTemplate:     true,
		ProductClassID: "pc_feed",
		Selections:     []configbuilder.Selection{{OptionID: "opt_coe", Quantity: 1}},
		TotalPrice:     decimal.NewFromInt(900),
	}

	cfg := NewSavedConfiguration(req)
	req.Selections[0].Quantity = 5
	if cfg.Selections[0].Quantity != 1 {
		t.Error("NewSavedConfiguration should copy selections")
	}

	back := cfg.SaveRequest()
	if back.Name != "Line 3" || !back.IsTemplate || back.ProductClassID != "pc_feed" || !back.TotalPrice.Equal(decimal.NewFromInt(900)) {
		t.Errorf("Unexpected save request: %+v", back)
	}
}
