package configbuilder

import (
	"github.com/shopspring/decimal"
)

// OptionView is an option as the builder UI renders it
type OptionView struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	IsStandard    bool            `json:"isStandard"`
	AllowQuantity bool            `json:"allowQuantity"`
	Selected      bool            `json:"selected"`
	Quantity      int             `json:"quantity"`
	Disabled      bool            `json:"disabled"`
	Required      bool            `json:"required"`
	DisabledBy    string          `json:"disabledBy,omitempty"`
	RequiredBy    string          `json:"requiredBy,omitempty"`
}

// CategoryView is a visible category with its options and status
type CategoryView struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	IsRequired    bool         `json:"isRequired"`
	AllowMultiple bool         `json:"allowMultiple"`
	DisplayOrder  int          `json:"displayOrder"`
	Status        Status       `json:"status"`
	Options       []OptionView `json:"options"`
}

// Categories returns the visible categories by display order, each with its
// options by display order. Categories without options are left out.
func (s *Session) Categories() []CategoryView {
	visible := s.catalog.VisibleCategories(s.productClassID)
	views := make([]CategoryView, 0, len(visible))

	for _, cat := range visible {
		opts := s.catalog.OptionsInCategory(cat.ID)
		if len(opts) == 0 {
			continue
		}

		view := CategoryView{
			ID:            cat.ID,
			Name:          cat.Name,
			IsRequired:    cat.IsRequired,
			AllowMultiple: cat.AllowMultiple,
			DisplayOrder:  cat.DisplayOrder,
			Status:        s.CategoryStatus(cat.ID),
			Options:       make([]OptionView, 0, len(opts)),
		}
		for _, opt := range opts {
			res := s.resolver.Resolve(opt.ID, s)
			ov := OptionView{
				ID:            opt.ID,
				Name:          opt.Name,
				Description:   opt.Description,
				Price:         opt.Price,
				IsStandard:    opt.IsStandard,
				AllowQuantity: opt.AllowQuantity,
				Selected:      s.IsSelected(opt.ID),
				Quantity:      s.Quantity(opt.ID),
				Disabled:      res.Disabled,
				Required:      res.Required,
			}
			if res.DisabledBy != nil {
				ov.DisabledBy = res.DisabledBy.ID
			}
			if res.RequiredBy != nil {
				ov.RequiredBy = res.RequiredBy.ID
			}
			view.Options = append(view.Options, ov)
		}
		views = append(views, view)
	}
	return views
}

// Evaluation is everything recomputed after a mutation
type Evaluation struct {
	ProductClassID string             `json:"productClassId"`
	Name           string             `json:"name"`
	Selections     []Selection        `json:"selections"`
	Results        []ValidationResult `json:"validationResults"`
	Statuses       map[string]Status  `json:"categoryStatuses"`
	Valid          bool               `json:"valid"`
	TotalPrice     decimal.Decimal    `json:"totalPrice"`
	Categories     []CategoryView     `json:"categories"`
}

// Evaluation computes the full outbound state. It does not mutate the
// session, so two calls without an intervening mutation are identical.
func (s *Session) Evaluation() Evaluation {
	results := s.Validate()

	valid := true
	for _, r := range results {
		if r.Severity == SeverityError {
			valid = false
			break
		}
	}

	visible := s.catalog.VisibleCategories(s.productClassID)
	statuses := make(map[string]Status, len(visible))
	for _, cat := range visible {
		statuses[cat.ID] = s.CategoryStatus(cat.ID)
	}

	selections := make([]Selection, len(s.selections))
	copy(selections, s.selections)

	return Evaluation{
		ProductClassID: s.productClassID,
		Name:           s.name,
		Selections:     selections,
		Results:        results,
		Statuses:       statuses,
		Valid:          valid,
		TotalPrice:     s.TotalPrice(),
		Categories:     s.Categories(),
	}
}

// SaveRequest is the hand-off to a persistence collaborator
type SaveRequest struct {
	Name           string          `json:"name"`
	IsTemplate     bool            `json:"isTemplate"`
	ProductClassID string          `json:"productClassId"`
	Selections     []Selection     `json:"selections"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
}

// SaveRequest snapshots the session for saving
func (s *Session) SaveRequest() SaveRequest {
	selections := make([]Selection, len(s.selections))
	copy(selections, s.selections)

	return SaveRequest{
		Name:           s.name,
		IsTemplate:     s.isTemplate,
		ProductClassID: s.productClassID,
		Selections:     selections,
		TotalPrice:     s.TotalPrice(),
	}
}
