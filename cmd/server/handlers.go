package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/liamcoop/configbuilder/catalog"
	"github.com/liamcoop/configbuilder/configbuilder"
	"github.com/liamcoop/configbuilder/query"
	"github.com/liamcoop/configbuilder/store"
)

// Catalog

func (s *Server) handleListProductClasses(w http.ResponseWriter, r *http.Request) {
	loaded, err := s.manager.Catalog(r.Context())
	if err != nil {
		respondErr(w, "failed to load catalog", err)
		return
	}

	classes := loaded.Store.ProductClasses()
	if r.URL.Query().Get("roots") == "true" {
		classes = loaded.Store.Roots()
	}
	respondJSON(w, http.StatusOK, ProductClassesResponse{ProductClasses: orEmpty(classes)})
}

func (s *Server) handleListChildren(w http.ResponseWriter, r *http.Request) {
	classID := chi.URLParam(r, "classId")

	loaded, err := s.manager.Catalog(r.Context())
	if err != nil {
		respondErr(w, "failed to load catalog", err)
		return
	}
	if !loaded.Store.HasProductClass(classID) {
		respondError(w, http.StatusNotFound, "product class not found", fmt.Errorf("product class %q: %w", classID, catalog.ErrNotFound))
		return
	}

	respondJSON(w, http.StatusOK, ProductClassesResponse{ProductClasses: orEmpty(loaded.Store.Children(classID))})
}

// handleListCategories lists all categories, or those visible for ?productClassId=
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	loaded, err := s.manager.Catalog(r.Context())
	if err != nil {
		respondErr(w, "failed to load catalog", err)
		return
	}

	categories := loaded.Store.Categories()
	if classID := r.URL.Query().Get("productClassId"); classID != "" {
		if !loaded.Store.HasProductClass(classID) {
			respondError(w, http.StatusNotFound, "product class not found", fmt.Errorf("product class %q: %w", classID, catalog.ErrNotFound))
			return
		}
		categories = loaded.Store.VisibleCategories(classID)
	}
	respondJSON(w, http.StatusOK, CategoriesResponse{Categories: orEmpty(categories)})
}

// handleListOptions lists options, narrowed by ?categoryId= and a CEL ?filter=
func (s *Server) handleListOptions(w http.ResponseWriter, r *http.Request) {
	loaded, err := s.manager.Catalog(r.Context())
	if err != nil {
		respondErr(w, "failed to load catalog", err)
		return
	}

	expression := r.URL.Query().Get("filter")
	var filter *query.Filter
	if expression != "" {
		filter, err = s.filters.Compile(expression)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid filter", err)
			return
		}
	}

	options, err := filter.Options(loaded.Store)
	if err != nil {
		respondError(w, http.StatusBadRequest, "filter evaluation failed", err)
		return
	}

	if categoryID := r.URL.Query().Get("categoryId"); categoryID != "" {
		matched := options[:0:0]
		for _, opt := range options {
			if opt.CategoryID == categoryID {
				matched = append(matched, opt)
			}
		}
		options = matched
	}

	respondJSON(w, http.StatusOK, OptionsResponse{Options: orEmpty(options), Filter: expression})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	loaded, err := s.manager.Catalog(r.Context())
	if err != nil {
		respondErr(w, "failed to load catalog", err)
		return
	}
	respondJSON(w, http.StatusOK, RulesResponse{Rules: orEmpty(loaded.Resolver.Rules())})
}

func (s *Server) handleReloadCatalog(w http.ResponseWriter, r *http.Request) {
	loaded, err := s.manager.Reload(r.Context())
	if err != nil {
		respondErr(w, "failed to reload catalog", err)
		return
	}

	respondJSON(w, http.StatusOK, ReloadResponse{
		LoadedAt:       loaded.LoadedAt,
		ProductClasses: len(loaded.Store.ProductClasses()),
		Categories:     len(loaded.Store.Categories()),
		Options:        len(loaded.Store.Options()),
		ActiveRules:    len(loaded.Resolver.Rules()),
	})
}

// Sessions

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, SessionsListResponse{Sessions: s.manager.List()})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := s.decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	var id string
	if req.ConfigurationID != "" {
		info, err := s.manager.Open(r.Context(), req.ConfigurationID)
		if err != nil {
			respondErr(w, "failed to open configuration", err)
			return
		}
		id = info.ID
	} else {
		info, err := s.manager.Create(r.Context(), req.ProductClassID)
		if err != nil {
			respondErr(w, "failed to create session", err)
			return
		}
		id = info.ID
	}

	s.respondSession(w, http.StatusCreated, id)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.respondSession(w, http.StatusOK, chi.URLParam(r, "sessionId"))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Delete(chi.URLParam(r, "sessionId")); err != nil {
		respondErr(w, "failed to delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectOption(w http.ResponseWriter, r *http.Request) {
	var req SelectOptionRequest
	if err := s.decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	s.mutate(w, r, "select", func(sess *configbuilder.Session) error {
		sess.SelectOption(req.OptionID, *req.Checked)
		return nil
	})
}

func (s *Server) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	var req SetQuantityRequest
	if err := s.decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	s.mutate(w, r, "quantity", func(sess *configbuilder.Session) error {
		sess.SetQuantity(req.OptionID, req.Quantity)
		return nil
	})
}

func (s *Server) handleSetProductClass(w http.ResponseWriter, r *http.Request) {
	var req SetProductClassRequest
	if err := s.decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	s.mutate(w, r, "product_class", func(sess *configbuilder.Session) error {
		return sess.SetProductClass(req.ProductClassID)
	})
}

func (s *Server) handleDeselectAll(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, "deselect_all", func(sess *configbuilder.Session) error {
		sess.DeselectAll()
		return nil
	})
}

func (s *Server) handleSelectDefaults(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, "defaults", func(sess *configbuilder.Session) error {
		sess.SelectDefaults()
		return nil
	})
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := s.decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	s.mutate(w, r, "rename", func(sess *configbuilder.Session) error {
		sess.Rename(req.Name)
		return nil
	})
}

// handleSave applies the save dialog fields and persists the session.
// A session with validation errors is rejected with 409.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")

	var req SaveRequest
	if err := s.decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	if req.Name != nil || req.IsTemplate != nil {
		err := s.manager.Do(id, "save_fields", func(sess *configbuilder.Session) error {
			if req.Name != nil {
				sess.Rename(*req.Name)
			}
			if req.IsTemplate != nil {
				sess.SetTemplate(*req.IsTemplate)
			}
			return nil
		})
		if err != nil {
			respondErr(w, "failed to update session", err)
			return
		}
	}

	saved, err := s.manager.Save(r.Context(), id)
	if err != nil {
		respondErr(w, "failed to save configuration", err)
		return
	}
	respondJSON(w, http.StatusCreated, SaveResponse{Configuration: saved})
}

// mutate applies fn to the session and responds with the new evaluation
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, operation string, fn func(*configbuilder.Session) error) {
	id := chi.URLParam(r, "sessionId")

	var resp SessionResponse
	err := s.manager.Do(id, operation, func(sess *configbuilder.Session) error {
		if err := fn(sess); err != nil {
			return err
		}
		resp.Summary = sess.Summary().String()
		resp.Evaluation = sess.Evaluation()
		return nil
	})
	if err != nil {
		respondErr(w, "failed to update session", err)
		return
	}

	info, err := s.manager.Get(id)
	if err != nil {
		respondErr(w, "failed to read session", err)
		return
	}
	resp.Session = info
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondSession(w http.ResponseWriter, status int, id string) {
	var resp SessionResponse
	err := s.manager.Do(id, "get", func(sess *configbuilder.Session) error {
		resp.Summary = sess.Summary().String()
		resp.Evaluation = sess.Evaluation()
		return nil
	})
	if err != nil {
		respondErr(w, "failed to read session", err)
		return
	}

	info, err := s.manager.Get(id)
	if err != nil {
		respondErr(w, "failed to read session", err)
		return
	}
	resp.Session = info
	respondJSON(w, status, resp)
}

// Saved configurations

func (s *Server) handleListConfigurations(w http.ResponseWriter, r *http.Request) {
	filter := store.ListFilter{ProductClassID: r.URL.Query().Get("productClassId")}
	if v := r.URL.Query().Get("templates"); v != "" {
		templatesOnly, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "templates must be a boolean", err)
			return
		}
		filter.TemplatesOnly = templatesOnly
	}

	list, err := s.configs.List(r.Context(), filter)
	if err != nil {
		respondErr(w, "failed to list configurations", err)
		return
	}
	respondJSON(w, http.StatusOK, ConfigurationsListResponse{Configurations: orEmpty(list)})
}

func (s *Server) handleGetConfiguration(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.configs.Get(r.Context(), chi.URLParam(r, "configId"))
	if err != nil {
		respondErr(w, "configuration not found", err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleDeleteConfiguration(w http.ResponseWriter, r *http.Request) {
	if err := s.configs.Delete(r.Context(), chi.URLParam(r, "configId")); err != nil {
		respondErr(w, "failed to delete configuration", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// orEmpty keeps empty lists encoding as [] rather than null
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
