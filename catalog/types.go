package catalog

import "github.com/shopspring/decimal"

// ProductClass is a node in the equipment taxonomy.
// An empty ParentID marks a root class.
type ProductClass struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	ParentID string `json:"parentId,omitempty" yaml:"parentId,omitempty"`
}

// OptionCategory groups related options under a required/multiple-selection policy.
// A category is visible for a product class when any of its ProductClassIDs
// appears in that class's ancestor chain (inclusive of the class itself).
type OptionCategory struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	ProductClassIDs []string `json:"productClassIds" yaml:"productClassIds"`
	IsRequired      bool     `json:"isRequired" yaml:"isRequired"`
	AllowMultiple   bool     `json:"allowMultiple" yaml:"allowMultiple"`
	DisplayOrder    int      `json:"displayOrder" yaml:"displayOrder"`
}

// Option is a single selectable line item.
type Option struct {
	ID            string          `json:"id" yaml:"id"`
	CategoryID    string          `json:"categoryId" yaml:"categoryId"`
	Name          string          `json:"name" yaml:"name"`
	Price         decimal.Decimal `json:"price" yaml:"price"`
	IsStandard    bool            `json:"isStandard" yaml:"isStandard"`
	AllowQuantity bool            `json:"allowQuantity" yaml:"allowQuantity"`
	DisplayOrder  int             `json:"displayOrder" yaml:"displayOrder"`
	Description   string          `json:"description,omitempty" yaml:"description,omitempty"`
}
