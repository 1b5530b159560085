package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/liamcoop/configbuilder/catalog"
	"github.com/liamcoop/configbuilder/internal/config"
	"github.com/liamcoop/configbuilder/internal/logger"
	"github.com/liamcoop/configbuilder/query"
	"github.com/liamcoop/configbuilder/rules"
	"github.com/liamcoop/configbuilder/sessions"
	"github.com/liamcoop/configbuilder/store"
)

type Server struct {
	db       *sql.DB // nil when running in memory
	manager  *sessions.Manager
	configs  store.ConfigurationStore
	filters  *query.Compiler
	registry *prometheus.Registry
	validate *validator.Validate
	metrics  *httpMetrics
	router   *chi.Mux
}

// Deps are the collaborators a Server is assembled from
type Deps struct {
	DB             *sql.DB
	Catalogs       *store.CatalogProvider
	Configs        store.ConfigurationStore
	NameCategories []string
}

// NewServer connects the configured backends and builds the server
func NewServer(cfg *config.Config) (*Server, error) {
	cacheConfig := store.CacheConfig{TTL: cfg.CatalogCacheTTL}

	if cfg.DatabaseURL == "" {
		logger.Info("No DATABASE_URL set, using in-memory configuration store", "catalog_file", cfg.CatalogFile)
		return NewServerWithDeps(Deps{
			Catalogs:       store.NewCatalogProvider(store.NewFileCatalogSource(cfg.CatalogFile), store.NewInMemoryCatalogCache(cacheConfig)),
			Configs:        store.NewInMemoryConfigurationStore(),
			NameCategories: cfg.NameCategories,
		})
	}

	if cfg.AutoMigrate {
		if err := store.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewServerWithDeps(Deps{
		DB:             db,
		Catalogs:       store.NewCatalogProvider(store.NewPostgresCatalogSource(db), store.NewInMemoryCatalogCache(cacheConfig)),
		Configs:        store.NewPostgresConfigurationStore(db),
		NameCategories: cfg.NameCategories,
	})
}

// NewServerWithDeps builds a server and loads the catalog once so a broken
// catalog fails startup
func NewServerWithDeps(deps Deps) (*Server, error) {
	filters, err := query.NewCompiler()
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	manager := sessions.NewManager(deps.Catalogs, deps.Configs, sessions.Config{
		NameCategories: deps.NameCategories,
		Registerer:     registry,
	})

	loaded, err := manager.Catalog(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	logger.Info("Catalog ready",
		"product_classes", len(loaded.Store.ProductClasses()),
		"options", len(loaded.Store.Options()),
		"active_rules", len(loaded.Resolver.Rules()))

	s := &Server{
		db:       deps.DB,
		manager:  manager,
		configs:  deps.Configs,
		filters:  filters,
		registry: registry,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		metrics:  newHTTPMetrics(registry),
	}

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.metrics.instrument)

	r.Get("/api/v1/health", s.handleHealth)
	r.Handle("/metrics", s.metricsHandler())

	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/product-classes", s.handleListProductClasses)
		r.Get("/product-classes/{classId}/children", s.handleListChildren)
		r.Get("/categories", s.handleListCategories)
		r.Get("/options", s.handleListOptions)
		r.Get("/rules", s.handleListRules)
		r.Post("/reload", s.handleReloadCatalog)
	})

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Post("/", s.handleCreateSession)

		r.Route("/{sessionId}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/select", s.handleSelectOption)
			r.Post("/quantity", s.handleSetQuantity)
			r.Post("/product-class", s.handleSetProductClass)
			r.Post("/deselect-all", s.handleDeselectAll)
			r.Post("/defaults", s.handleSelectDefaults)
			r.Post("/name", s.handleRename)
			r.Post("/save", s.handleSave)
		})
	})

	r.Route("/api/v1/configurations", func(r chi.Router) {
		r.Get("/", s.handleListConfigurations)
		r.Get("/{configId}", s.handleGetConfiguration)
		r.Delete("/{configId}", s.handleDeleteConfiguration)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases the database, if any
func (s *Server) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	loaded, err := s.manager.Catalog(r.Context())
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:          "healthy",
		Sessions:        s.manager.Len(),
		CatalogLoadedAt: loaded.LoadedAt,
	})
}

// decode reads a JSON body into dst and validates its tags
func (s *Server) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return s.validate.Struct(dst)
}

// decodeOptional is decode for endpoints whose body may be empty
func (s *Server) decodeOptional(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return s.validate.Struct(dst)
	}
	err := s.decode(r, dst)
	if errors.Is(err, io.EOF) {
		return s.validate.Struct(dst)
	}
	return err
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var validationErrs validator.ValidationErrors
	var catalogErr *catalog.CatalogError
	var ruleErr *rules.RuleError

	switch {
	case errors.Is(err, sessions.ErrSessionNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sessions.ErrInvalidConfiguration):
		return http.StatusConflict
	case errors.As(err, &validationErrs):
		return http.StatusBadRequest
	case errors.As(err, &catalogErr), errors.As(err, &ruleErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	switch {
	case status >= 500:
		// Counted by ErrorHttp5xx; every 5xx is logged
		logger.ErrorHttp5xx()
		logger.Logger.Error(message, "status", status, "error", err)
	case status >= 400:
		logger.WarnHttp4xx(status)
	}

	response := map[string]string{
		"error": message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}

// respondErr picks the status from the error
func respondErr(w http.ResponseWriter, message string, err error) {
	respondError(w, statusFor(err), message, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", "error", err)
	}

	if err := logger.Setup(context.Background(), logger.Options{
		Level:           cfg.LogLevel,
		ErrorSampleRate: cfg.ErrorSampleRate,
		OTELEnabled:     cfg.OTELEnabled,
		ServiceName:     cfg.ServiceName,
	}); err != nil {
		logger.Warn("Logger setup degraded", "error", err)
	}

	server, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("Failed to create server", "error", err)
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go server.manager.RunSweeper(ctx, cfg.SweepInterval, cfg.SessionIdleTimeout)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "database", cfg.DatabaseURL != "")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
	if err := logger.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "logger shutdown: %v\n", err)
	}
}
