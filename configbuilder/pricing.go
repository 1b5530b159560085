package configbuilder

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TotalPrice is the sum of price x quantity over the selections.
// No rounding is applied; formatting belongs to the caller.
func (s *Session) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, sel := range s.selections {
		opt, ok := s.catalog.Option(sel.OptionID)
		if !ok {
			continue
		}
		total = total.Add(opt.Price.Mul(decimal.NewFromInt(int64(sel.Quantity))))
	}
	return total
}

// Summary is the headline of a configuration
type Summary struct {
	SelectedCount int             `json:"selectedCount"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
}

// Summary returns the number of selected options and the total value
func (s *Session) Summary() Summary {
	return Summary{
		SelectedCount: len(s.selections),
		TotalPrice:    s.TotalPrice(),
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("%d selected options · %s total value", s.SelectedCount, s.TotalPrice.StringFixed(2))
}
