package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/marketplace/internal/errors"
	"github.com/vango-dev/marketplace/internal/installer"
	"github.com/vango-dev/marketplace/internal/registry"
)

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// pluginDetail is a catalog entry plus its installed state, if any.
type pluginDetail struct {
	*registry.Entry
	Installed *installer.Plugin `json:"installed,omitempty"`
}

// configRequest is the body of PATCH .../config.
type configRequest struct {
	Enabled  *bool          `json:"enabled"`
	Settings map[string]any `json:"settings"`
	Unset    []string       `json:"unset"`
}

// configResponse reports each applied edit and the resulting plugin.
type configResponse struct {
	Results []installer.Result `json:"results"`
	Plugin  *installer.Plugin  `json:"plugin,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"plugins":   s.registry.Len(),
		"installed": s.installer.Len(),
	})
}

// handleListPlugins serves the catalog. Without q every entry matches;
// category and featured narrow the result before paging.
func (s *Server) handleListPlugins(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := intParam(query.Get("page"), 1)
	perPage := intParam(query.Get("per_page"), registry.DefaultPerPage)

	var entries []*registry.Entry
	if q := query.Get("q"); q != "" {
		entries = s.registry.Search(q, 1, s.registry.Len()+1).Entries
	} else {
		entries = s.registry.All()
	}

	if raw := query.Get("category"); raw != "" {
		category, err := registry.ParseCategory(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		entries = keep(entries, func(e *registry.Entry) bool { return e.Metadata.Category == category })
	}
	if raw := query.Get("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, errors.CodeInvalidConfigValue, "featured must be true or false")
			return
		}
		entries = keep(entries, func(e *registry.Entry) bool { return e.Metadata.Featured == featured })
	}

	writeJSON(w, http.StatusOK, paginate(entries, page, perPage))
}

func (s *Server) handleGetPlugin(w http.ResponseWriter, r *http.Request) {
	namespace, name := chi.URLParam(r, "namespace"), chi.URLParam(r, "name")
	entry, ok := s.registry.FindByIdentity(namespace, name)
	if !ok {
		writeJSONError(w, http.StatusNotFound, errors.CodeNotFound,
			"Plugin "+registry.Key(namespace, name)+" not found")
		return
	}

	detail := pluginDetail{Entry: entry}
	if p, ok := s.installer.Get(namespace, name); ok {
		detail.Installed = p
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleListInstalled(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"plugins": s.installer.List()})
}

func (s *Server) handleOutdated(w http.ResponseWriter, r *http.Request) {
	outdated := s.installer.Outdated()
	if outdated == nil {
		outdated = []installer.Outdated{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"plugins": outdated})
}

func (s *Server) handleGetInstalled(w http.ResponseWriter, r *http.Request) {
	namespace, name := chi.URLParam(r, "namespace"), chi.URLParam(r, "name")
	p, ok := s.installer.Get(namespace, name)
	if !ok {
		writeJSONError(w, http.StatusNotFound, errors.CodeNotInstalled,
			"Plugin "+registry.Key(namespace, name)+" is not installed")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleInstall(w http.ResponseWriter, r *http.Request) {
	namespace, name := chi.URLParam(r, "namespace"), chi.URLParam(r, "name")
	res, err := s.installer.Install(r.Context(), namespace, name, r.URL.Query().Get("version"))
	s.writeResult(w, res, err, http.StatusCreated)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	namespace, name := chi.URLParam(r, "namespace"), chi.URLParam(r, "name")
	res, err := s.installer.Remove(r.Context(), namespace, name)
	s.writeResult(w, res, err, http.StatusOK)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	namespace, name := chi.URLParam(r, "namespace"), chi.URLParam(r, "name")
	res, err := s.installer.Update(r.Context(), namespace, name)
	s.writeResult(w, res, err, http.StatusOK)
}

// handleConfig applies enabled, then settings in key order, then unsets.
// It stops at the first rejected edit; earlier edits stay applied.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	namespace, name := chi.URLParam(r, "namespace"), chi.URLParam(r, "name")

	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, errors.CodeInvalidConfigValue, "Invalid request body: "+err.Error())
		return
	}

	ctx := r.Context()
	resp := configResponse{Results: []installer.Result{}}
	apply := func(res installer.Result, err error) bool {
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return false
		}
		resp.Results = append(resp.Results, res)
		if !res.OK {
			writeJSON(w, statusFor(res.Code), resp)
			return false
		}
		return true
	}

	if req.Enabled != nil {
		if !apply(s.installer.SetEnabled(ctx, namespace, name, *req.Enabled)) {
			return
		}
	}

	keys := make([]string, 0, len(req.Settings))
	for k := range req.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !apply(s.installer.SetSetting(ctx, namespace, name, k, req.Settings[k])) {
			return
		}
	}
	for _, k := range req.Unset {
		if !apply(s.installer.UnsetSetting(ctx, namespace, name, k)) {
			return
		}
	}

	p, ok := s.installer.Get(namespace, name)
	if !ok {
		writeJSONError(w, http.StatusNotFound, errors.CodeNotInstalled,
			"Plugin "+registry.Key(namespace, name)+" is not installed")
		return
	}
	resp.Plugin = p
	writeJSON(w, http.StatusOK, resp)
}

// writeResult writes an installer result with okStatus when it succeeded
// and the status for its code otherwise. An unchanged success is 200.
func (s *Server) writeResult(w http.ResponseWriter, res installer.Result, err error, okStatus int) {
	if err != nil {
		s.logger.Error("installer operation failed", "plugin", res.Plugin, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !res.OK {
		writeJSON(w, statusFor(res.Code), res)
		return
	}
	if !res.Changed {
		okStatus = http.StatusOK
	}
	writeJSON(w, okStatus, res)
}

// statusFor maps a result code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case errors.CodeNotFound, errors.CodeNotInstalled:
		return http.StatusNotFound
	case errors.CodeAlreadyInstalled:
		return http.StatusConflict
	case errors.CodeInvalidVersion, errors.CodeInvalidRef,
		errors.CodeUnknownSetting, errors.CodeInvalidSetting:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// writeError writes err, keeping its code when it carries one.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSONError(w, status, errors.CodeOf(err), err.Error())
}

// intParam parses a positive integer query value, falling back to def.
func intParam(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func keep(entries []*registry.Entry, fn func(*registry.Entry) bool) []*registry.Entry {
	out := make([]*registry.Entry, 0, len(entries))
	for _, e := range entries {
		if fn(e) {
			out = append(out, e)
		}
	}
	return out
}

func paginate(entries []*registry.Entry, page, perPage int) registry.SearchResult {
	result := registry.SearchResult{Entries: []*registry.Entry{}, Total: len(entries), Page: page, PerPage: perPage}
	start := (page - 1) * perPage
	if start >= len(entries) {
		return result
	}
	end := start + perPage
	if end > len(entries) {
		end = len(entries)
	}
	result.Entries = entries[start:end]
	return result
}
