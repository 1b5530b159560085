package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/liamcoop/configbuilder/configbuilder"
)

// PostgresConfigurationStore implements ConfigurationStore backed by PostgreSQL
type PostgresConfigurationStore struct {
	db *sql.DB
}

// NewPostgresConfigurationStore creates a PostgreSQL-backed ConfigurationStore
func NewPostgresConfigurationStore(db *sql.DB) *PostgresConfigurationStore {
	return &PostgresConfigurationStore{db: db}
}

// Save upserts the configuration row and rewrites its selections
func (s *PostgresConfigurationStore) Save(ctx context.Context, cfg *SavedConfiguration) error {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	} else if _, err := uuid.Parse(cfg.ID); err != nil {
		return fmt.Errorf("invalid configuration ID %q: %w", cfg.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var createdAt time.Time
	err = tx.QueryRowContext(ctx, `
		INSERT INTO configurations (id, name, is_template, product_class_id, total_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    is_template = EXCLUDED.is_template,
		    product_class_id = EXCLUDED.product_class_id,
		    total_price = EXCLUDED.total_price,
		    updated_at = EXCLUDED.updated_at
		RETURNING created_at
	`, cfg.ID, cfg.Name, cfg.IsTemplate, cfg.ProductClassID, cfg.TotalPrice, now).Scan(&createdAt)
	if err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM configuration_selections WHERE configuration_id = $1
	`, cfg.ID); err != nil {
		return fmt.Errorf("failed to clear selections: %w", err)
	}

	for i, sel := range cfg.Selections {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO configuration_selections (configuration_id, option_id, quantity, position)
			VALUES ($1, $2, $3, $4)
		`, cfg.ID, sel.OptionID, sel.Quantity, i); err != nil {
			return fmt.Errorf("failed to insert selection %s: %w", sel.OptionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit configuration: %w", err)
	}

	cfg.CreatedAt = createdAt
	cfg.UpdatedAt = now
	return nil
}

// Get retrieves a configuration by ID
func (s *PostgresConfigurationStore) Get(ctx context.Context, id string) (*SavedConfiguration, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("configuration %s: %w", id, ErrNotFound)
	}

	var cfg SavedConfiguration
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, is_template, product_class_id, total_price, created_at, updated_at
		FROM configurations
		WHERE id = $1
	`, id).Scan(
		&cfg.ID,
		&cfg.Name,
		&cfg.IsTemplate,
		&cfg.ProductClassID,
		&cfg.TotalPrice,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("configuration %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get configuration: %w", err)
	}

	selections, err := s.selections(ctx, []string{cfg.ID})
	if err != nil {
		return nil, err
	}
	cfg.Selections = selections[cfg.ID]
	if cfg.Selections == nil {
		cfg.Selections = []configbuilder.Selection{}
	}
	return &cfg, nil
}

// List returns matching configurations, most recently updated first
func (s *PostgresConfigurationStore) List(ctx context.Context, filter ListFilter) ([]*SavedConfiguration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, is_template, product_class_id, total_price, created_at, updated_at
		FROM configurations
		WHERE ($1 = false OR is_template = true)
		  AND ($2 = '' OR product_class_id = $2)
		ORDER BY updated_at DESC, id ASC
	`, filter.TemplatesOnly, filter.ProductClassID)
	if err != nil {
		return nil, fmt.Errorf("failed to list configurations: %w", err)
	}
	defer rows.Close()

	list := []*SavedConfiguration{}
	var ids []string
	for rows.Next() {
		var c SavedConfiguration
		if err := rows.Scan(&c.ID, &c.Name, &c.IsTemplate, &c.ProductClassID,
			&c.TotalPrice, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan configuration: %w", err)
		}
		list = append(list, &c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating configurations: %w", err)
	}
	if len(ids) == 0 {
		return list, nil
	}

	selections, err := s.selections(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range list {
		c.Selections = selections[c.ID]
		if c.Selections == nil {
			c.Selections = []configbuilder.Selection{}
		}
	}
	return list, nil
}

// selections loads the selections of the given configurations in saved order
func (s *PostgresConfigurationStore) selections(ctx context.Context, ids []string) (map[string][]configbuilder.Selection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT configuration_id, option_id, quantity
		FROM configuration_selections
		WHERE configuration_id = ANY($1::uuid[])
		ORDER BY configuration_id, position ASC
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list selections: %w", err)
	}
	defer rows.Close()

	byConfig := make(map[string][]configbuilder.Selection, len(ids))
	for rows.Next() {
		var id string
		var sel configbuilder.Selection
		if err := rows.Scan(&id, &sel.OptionID, &sel.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan selection: %w", err)
		}
		byConfig[id] = append(byConfig[id], sel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating selections: %w", err)
	}
	return byConfig, nil
}

// Delete removes a configuration and, by cascade, its selections
func (s *PostgresConfigurationStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("configuration %s: %w", id, ErrNotFound)
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM configurations
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete configuration: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("configuration %s: %w", id, ErrNotFound)
	}
	return nil
}
