package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/liamcoop/configbuilder/configbuilder"
)

// InMemoryConfigurationStore implements ConfigurationStore using an in-memory map.
// Records are copied in and out so callers never share state with the store.
type InMemoryConfigurationStore struct {
	configs map[string]*SavedConfiguration
	mu      sync.RWMutex
	now     func() time.Time
}

// NewInMemoryConfigurationStore creates an empty in-memory store
func NewInMemoryConfigurationStore() *InMemoryConfigurationStore {
	return &InMemoryConfigurationStore{
		configs: make(map[string]*SavedConfiguration),
		now:     time.Now,
	}
}

// Save inserts or replaces a configuration
func (s *InMemoryConfigurationStore) Save(_ context.Context, cfg *SavedConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	if existing, ok := s.configs[cfg.ID]; ok {
		// Preserve original CreatedAt timestamp
		cfg.CreatedAt = existing.CreatedAt
	} else {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now

	s.configs[cfg.ID] = cloneConfiguration(cfg)
	return nil
}

// Get retrieves a configuration by ID
func (s *InMemoryConfigurationStore) Get(_ context.Context, id string) (*SavedConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[id]
	if !ok {
		return nil, fmt.Errorf("configuration %s: %w", id, ErrNotFound)
	}
	return cloneConfiguration(cfg), nil
}

// List returns matching configurations, most recently updated first
func (s *InMemoryConfigurationStore) List(_ context.Context, filter ListFilter) ([]*SavedConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*SavedConfiguration, 0, len(s.configs))
	for _, cfg := range s.configs {
		if filter.matches(cfg) {
			list = append(list, cloneConfiguration(cfg))
		}
	}

	sort.Slice(list, func(i, j int) bool {
		if !list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].UpdatedAt.After(list[j].UpdatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

// Delete removes a configuration
func (s *InMemoryConfigurationStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.configs[id]; !ok {
		return fmt.Errorf("configuration %s: %w", id, ErrNotFound)
	}
	delete(s.configs, id)
	return nil
}

func cloneConfiguration(cfg *SavedConfiguration) *SavedConfiguration {
	c := *cfg
	c.Selections = make([]configbuilder.Selection, len(cfg.Selections))
	copy(c.Selections, cfg.Selections)
	return &c
}
