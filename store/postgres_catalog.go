package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/liamcoop/configbuilder/catalog"
	"github.com/liamcoop/configbuilder/rules"
)

// PostgresCatalogSource loads the catalog from the catalog tables
type PostgresCatalogSource struct {
	db *sql.DB
}

// NewPostgresCatalogSource creates a catalog source backed by PostgreSQL
func NewPostgresCatalogSource(db *sql.DB) *PostgresCatalogSource {
	return &PostgresCatalogSource{db: db}
}

// Load reads every catalog table in load order. Inactive rules are loaded
// too; the resolver drops them.
func (s *PostgresCatalogSource) Load(ctx context.Context) (*catalog.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("failed to begin catalog read: %w", err)
	}
	defer tx.Rollback()

	var snap catalog.Snapshot
	if snap.ProductClasses, err = loadProductClasses(ctx, tx); err != nil {
		return nil, err
	}
	if snap.Categories, err = loadCategories(ctx, tx); err != nil {
		return nil, err
	}
	if snap.Options, err = loadOptions(ctx, tx); err != nil {
		return nil, err
	}
	if snap.Rules, err = loadRules(ctx, tx); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to finish catalog read: %w", err)
	}
	return &snap, nil
}

func loadProductClasses(ctx context.Context, tx *sql.Tx) ([]catalog.ProductClass, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, parent_id
		FROM product_classes
		ORDER BY position ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list product classes: %w", err)
	}
	defer rows.Close()

	var classes []catalog.ProductClass
	for rows.Next() {
		var pc catalog.ProductClass
		var parent sql.NullString
		if err := rows.Scan(&pc.ID, &pc.Name, &parent); err != nil {
			return nil, fmt.Errorf("failed to scan product class: %w", err)
		}
		pc.ParentID = parent.String
		classes = append(classes, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product classes: %w", err)
	}
	return classes, nil
}

func loadCategories(ctx context.Context, tx *sql.Tx) ([]catalog.OptionCategory, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, product_class_ids, is_required, allow_multiple, display_order
		FROM option_categories
		ORDER BY position ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list option categories: %w", err)
	}
	defer rows.Close()

	var categories []catalog.OptionCategory
	for rows.Next() {
		var c catalog.OptionCategory
		if err := rows.Scan(&c.ID, &c.Name, pq.Array(&c.ProductClassIDs),
			&c.IsRequired, &c.AllowMultiple, &c.DisplayOrder); err != nil {
			return nil, fmt.Errorf("failed to scan option category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating option categories: %w", err)
	}
	return categories, nil
}

func loadOptions(ctx context.Context, tx *sql.Tx) ([]catalog.Option, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, category_id, name, price, is_standard, allow_quantity, display_order, description
		FROM options
		ORDER BY position ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list options: %w", err)
	}
	defer rows.Close()

	var options []catalog.Option
	for rows.Next() {
		var o catalog.Option
		if err := rows.Scan(&o.ID, &o.CategoryID, &o.Name, &o.Price,
			&o.IsStandard, &o.AllowQuantity, &o.DisplayOrder, &o.Description); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating options: %w", err)
	}
	return options, nil
}

func loadRules(ctx context.Context, tx *sql.Tx) ([]rules.Rule, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, active, priority, action, target_option_ids, condition, description
		FROM option_rules
		ORDER BY position ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rulesList []rules.Rule
	for rows.Next() {
		var r rules.Rule
		var condition []byte
		if err := rows.Scan(&r.ID, &r.Name, &r.Active, &r.Priority, &r.Action,
			pq.Array(&r.TargetOptionIDs), &condition, &r.Description); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		if err := json.Unmarshal(condition, &r.Condition); err != nil {
			return nil, fmt.Errorf("rule %s has malformed condition: %w", r.ID, err)
		}
		rulesList = append(rulesList, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return rulesList, nil
}

// Import replaces the catalog tables with the snapshot in one transaction.
// The snapshot is validated first; an invalid catalog is never written.
func (s *PostgresCatalogSource) Import(ctx context.Context, snap *catalog.Snapshot) error {
	if _, _, err := snap.Build(); err != nil {
		return fmt.Errorf("refusing to import invalid catalog: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin catalog import: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"option_rules", "options", "option_categories", "product_classes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for i, pc := range snap.ProductClasses {
		var parent sql.NullString
		if pc.ParentID != "" {
			parent = sql.NullString{String: pc.ParentID, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO product_classes (id, name, parent_id, position)
			VALUES ($1, $2, $3, $4)
		`, pc.ID, pc.Name, parent, i); err != nil {
			return fmt.Errorf("failed to insert product class %s: %w", pc.ID, err)
		}
	}

	for i, c := range snap.Categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO option_categories (id, name, product_class_ids, is_required, allow_multiple, display_order, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, c.ID, c.Name, textArray(c.ProductClassIDs), c.IsRequired, c.AllowMultiple, c.DisplayOrder, i); err != nil {
			return fmt.Errorf("failed to insert option category %s: %w", c.ID, err)
		}
	}

	for i, o := range snap.Options {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO options (id, category_id, name, price, is_standard, allow_quantity, display_order, description, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, o.ID, o.CategoryID, o.Name, o.Price, o.IsStandard, o.AllowQuantity, o.DisplayOrder, o.Description, i); err != nil {
			return fmt.Errorf("failed to insert option %s: %w", o.ID, err)
		}
	}

	for i, r := range snap.Rules {
		condition, err := json.Marshal(r.Condition)
		if err != nil {
			return fmt.Errorf("failed to encode condition of rule %s: %w", r.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO option_rules (id, name, active, priority, action, target_option_ids, condition, description, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, r.ID, r.Name, r.Active, r.Priority, string(r.Action), textArray(r.TargetOptionIDs), string(condition), r.Description, i); err != nil {
			return fmt.Errorf("failed to insert rule %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog import: %w", err)
	}
	return nil
}

// textArray encodes ids for a NOT NULL TEXT[] column; nil becomes '{}'
func textArray(ids []string) any {
	if ids == nil {
		ids = []string{}
	}
	return pq.Array(ids)
}
