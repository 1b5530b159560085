// Package sessions hosts many configuration sessions for concurrent callers.
// The map of sessions is guarded by an RWMutex; each session additionally
// has its own mutex so operations on one session are serialized while
// different sessions proceed in parallel.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/liamcoop/configbuilder/configbuilder"
	"github.com/liamcoop/configbuilder/internal/logger"
	"github.com/liamcoop/configbuilder/store"
)

var (
	// ErrSessionNotFound is returned for unknown or evicted session IDs
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidConfiguration is returned when saving a session that has
	// validation errors
	ErrInvalidConfiguration = errors.New("configuration has validation errors")
)

// Catalogs provides the current catalog. *store.CatalogProvider implements it.
type Catalogs interface {
	Catalog(ctx context.Context) (*store.LoadedCatalog, error)
	Reload(ctx context.Context) (*store.LoadedCatalog, error)
}

// Config holds the manager settings
type Config struct {
	// NameCategories drive automatic session naming, in name order
	NameCategories []string

	// Registerer receives the manager metrics; nil leaves them unregistered
	Registerer prometheus.Registerer
}

// Info describes a live session
type Info struct {
	ID              string    `json:"id"`
	ProductClassID  string    `json:"productClassId"`
	Name            string    `json:"name"`
	ConfigurationID string    `json:"configurationId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	LastUsed        time.Time `json:"lastUsed"`
	CatalogLoadedAt time.Time `json:"catalogLoadedAt"`
}

type entry struct {
	id        string
	session   *configbuilder.Session
	catalog   *store.LoadedCatalog
	savedID   string
	createdAt time.Time
	lastUsed  time.Time
	mu        sync.Mutex
}

func (e *entry) info() Info {
	return Info{
		ID:              e.id,
		ProductClassID:  e.session.ProductClassID(),
		Name:            e.session.Name(),
		ConfigurationID: e.savedID,
		CreatedAt:       e.createdAt,
		LastUsed:        e.lastUsed,
		CatalogLoadedAt: e.catalog.LoadedAt,
	}
}

// Manager owns the live sessions
type Manager struct {
	sessions map[string]*entry
	catalogs Catalogs
	configs  store.ConfigurationStore
	opts     []configbuilder.SessionOption
	metrics  *metrics
	now      func() time.Time
	mu       sync.RWMutex
}

// NewManager creates a manager serving sessions from catalogs and saving to configs
func NewManager(catalogs Catalogs, configs store.ConfigurationStore, cfg Config) *Manager {
	var opts []configbuilder.SessionOption
	if len(cfg.NameCategories) > 0 {
		opts = append(opts, configbuilder.WithNameCategories(cfg.NameCategories...))
	}

	return &Manager{
		sessions: make(map[string]*entry),
		catalogs: catalogs,
		configs:  configs,
		opts:     opts,
		metrics:  newMetrics(cfg.Registerer),
		now:      time.Now,
	}
}

// Create starts a session on the current catalog. An empty productClassID
// starts without a class.
func (m *Manager) Create(ctx context.Context, productClassID string) (Info, error) {
	loaded, err := m.catalogs.Catalog(ctx)
	if err != nil {
		return Info{}, err
	}

	s, err := configbuilder.NewSession(loaded.Store, loaded.Resolver, productClassID, m.opts...)
	if err != nil {
		return Info{}, err
	}

	e := m.add(s, loaded, "")
	m.metrics.created.WithLabelValues("new").Inc()
	logger.Debug("Session created", "session_id", e.id, "product_class_id", productClassID)
	return e.info(), nil
}

// Open starts a session from a saved configuration. Later saves from this
// session update the same record unless it was a template.
func (m *Manager) Open(ctx context.Context, configurationID string) (Info, error) {
	saved, err := m.configs.Get(ctx, configurationID)
	if err != nil {
		return Info{}, err
	}

	loaded, err := m.catalogs.Catalog(ctx)
	if err != nil {
		return Info{}, err
	}

	s, err := configbuilder.Restore(loaded.Store, loaded.Resolver, saved.SaveRequest(), m.opts...)
	if err != nil {
		return Info{}, fmt.Errorf("failed to restore configuration %s: %w", configurationID, err)
	}

	savedID := saved.ID
	if saved.IsTemplate {
		// A template is a starting point; saving creates a new configuration
		savedID = ""
		s.SetTemplate(false)
	}

	e := m.add(s, loaded, savedID)
	m.metrics.created.WithLabelValues("restored").Inc()
	logger.Debug("Session restored", "session_id", e.id, "configuration_id", configurationID)
	return e.info(), nil
}

func (m *Manager) add(s *configbuilder.Session, loaded *store.LoadedCatalog, savedID string) *entry {
	now := m.now()
	e := &entry{
		id:        uuid.NewString(),
		session:   s,
		catalog:   loaded,
		savedID:   savedID,
		createdAt: now,
		lastUsed:  now,
	}

	m.mu.Lock()
	m.sessions[e.id] = e
	m.metrics.active.Set(float64(len(m.sessions)))
	m.mu.Unlock()
	return e
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return e, nil
}

// Do runs fn with exclusive access to the session. operation labels the
// metrics. The session must not be retained after fn returns.
func (m *Manager) Do(id, operation string, fn func(s *configbuilder.Session) error) error {
	e, err := m.lookup(id)
	if err != nil {
		m.metrics.operations.WithLabelValues(operation, "not_found").Inc()
		return err
	}

	start := time.Now()
	e.mu.Lock()
	err = fn(e.session)
	e.lastUsed = m.now()
	e.mu.Unlock()

	m.metrics.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.metrics.operations.WithLabelValues(operation, result).Inc()
	return err
}

// Get returns the session metadata
func (m *Manager) Get(id string) (Info, error) {
	e, err := m.lookup(id)
	if err != nil {
		return Info{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.info(), nil
}

// Delete drops a session
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	delete(m.sessions, id)
	m.metrics.active.Set(float64(len(m.sessions)))
	return nil
}

// List returns all live sessions, oldest first
func (m *Manager) List() []Info {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		infos = append(infos, e.info())
		e.mu.Unlock()
	}

	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.Before(infos[j].CreatedAt)
		}
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep evicts sessions unused for longer than idle and returns how many
// were removed. A session busy in Do is never evicted mid-operation.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, e := range m.sessions {
		if !e.mu.TryLock() {
			continue
		}
		stale := e.lastUsed.Before(cutoff)
		e.mu.Unlock()

		if stale {
			delete(m.sessions, id)
			evicted++
		}
	}

	if evicted > 0 {
		m.metrics.evicted.Add(float64(evicted))
		m.metrics.active.Set(float64(len(m.sessions)))
		logger.Info("Idle sessions evicted", "count", evicted, "remaining", len(m.sessions))
	}
	return evicted
}

// RunSweeper calls Sweep every interval until ctx is done
func (m *Manager) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(idle)
		}
	}
}

// Save persists the session. It fails with ErrInvalidConfiguration while the
// session has validation errors. The first save creates a record; later
// saves from the same session update it.
func (m *Manager) Save(ctx context.Context, id string) (*store.SavedConfiguration, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed = m.now()

	if !e.session.IsValid() {
		m.metrics.saves.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("session %s: %w", id, ErrInvalidConfiguration)
	}

	cfg := store.NewSavedConfiguration(e.session.SaveRequest())
	cfg.ID = e.savedID
	if err := m.configs.Save(ctx, cfg); err != nil {
		m.metrics.saves.WithLabelValues("error").Inc()
		logger.Error("Failed to save configuration", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to save session %s: %w", id, err)
	}

	// Templates are saved as new records each time
	if !cfg.IsTemplate {
		e.savedID = cfg.ID
	}
	m.metrics.saves.WithLabelValues("ok").Inc()
	logger.Info("Configuration saved",
		"session_id", id,
		"configuration_id", cfg.ID,
		"template", cfg.IsTemplate,
		"selections", len(cfg.Selections),
		"total_price", cfg.TotalPrice.StringFixed(2))
	return cfg, nil
}

// Catalog returns the catalog new sessions are created on
func (m *Manager) Catalog(ctx context.Context) (*store.LoadedCatalog, error) {
	return m.catalogs.Catalog(ctx)
}

// Reload reloads the catalog. Live sessions keep the catalog they were
// created on; only new sessions see the reloaded one.
func (m *Manager) Reload(ctx context.Context) (*store.LoadedCatalog, error) {
	loaded, err := m.catalogs.Reload(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("Catalog reloaded", "live_sessions", m.Len())
	return loaded, nil
}
