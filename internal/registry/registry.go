package registry

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/vango-dev/marketplace/internal/errors"
)

// DefaultPerPage is the search page size used when none is given.
const DefaultPerPage = 10

// SearchResult is one page of search matches.
type SearchResult struct {
	Entries []*Entry `json:"plugins"`
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	PerPage int      `json:"perPage"`
}

// Pages returns the number of pages needed for Total matches.
func (r SearchResult) Pages() int {
	if r.Total == 0 || r.PerPage <= 0 {
		return 0
	}
	return (r.Total + r.PerPage - 1) / r.PerPage
}

// Registry is the in-memory plugin catalog. Entries keep the order in
// which they were registered; Register is the only mutator.
type Registry struct {
	mu      sync.RWMutex
	entries []*Entry
	index   map[string]int
	logger  *slog.Logger
}

// New creates an empty Registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		index:  make(map[string]int),
		logger: logger,
	}
}

// Load creates a Registry populated from sources, in order.
func Load(ctx context.Context, logger *slog.Logger, sources ...Source) (*Registry, error) {
	r := New(logger)
	for _, src := range sources {
		entries, err := src.Entries(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if err := r.Register(e); err != nil {
				me := errors.FromError(err, errors.CodeInvalidEntry)
				return nil, me.WithDetailf("%s (source %s)", me.Detail, src)
			}
		}
		r.logger.Debug("catalog source loaded", "source", src.String(), "entries", len(entries))
	}
	return r, nil
}

// Register appends a new entry. It fails if the identity already exists
// or the entry is inconsistent.
func (r *Registry) Register(entry *Entry) error {
	if entry == nil {
		return errors.New(errors.CodeInvalidEntry).WithDetail("nil entry")
	}
	e := entry.clone()
	if err := normalize(e); err != nil {
		return err
	}

	key := e.Identity().String()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[key]; exists {
		return errors.New(errors.CodeDuplicateIdentity).
			WithDetailf("Plugin %s is already registered", key)
	}
	r.index[key] = len(r.entries)
	r.entries = append(r.entries, e)
	return nil
}

// normalize validates e and fills in a missing latest version.
func normalize(e *Entry) error {
	m := &e.Metadata
	m.Namespace = strings.TrimSpace(m.Namespace)
	m.Name = strings.TrimSpace(m.Name)
	if m.Namespace == "" || m.Name == "" || strings.Contains(m.Namespace, "/") || strings.Contains(m.Name, "/") {
		return errors.New(errors.CodeInvalidEntry).
			WithDetailf("Invalid identity %q", m.Namespace+"/"+m.Name)
	}
	id := m.Identity().String()
	if m.Rating < 0 || m.Rating > 5 {
		return errors.New(errors.CodeInvalidEntry).
			WithDetailf("%s: rating %.1f is outside 0-5", id, m.Rating)
	}
	if len(e.Versions) == 0 {
		return errors.New(errors.CodeInvalidEntry).
			WithDetailf("%s: no published versions", id)
	}
	if e.LatestVersion == "" {
		e.LatestVersion = LatestVersion(e.Versions)
	}
	if !e.HasVersion(e.LatestVersion) {
		return errors.New(errors.CodeInvalidEntry).
			WithDetailf("%s: latest version %s is not in %s", id, e.LatestVersion, strings.Join(e.Versions, ", "))
	}
	if m.Version == "" {
		m.Version = e.LatestVersion
	}
	return nil
}

// FindByIdentity returns the entry for namespace/name.
func (r *Registry) FindByIdentity(namespace, name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[Key(namespace, name)]
	if !ok {
		return nil, false
	}
	return r.entries[i].clone(), true
}

// Lookup is FindByIdentity under the name the installer expects.
func (r *Registry) Lookup(namespace, name string) (*Entry, bool) {
	return r.FindByIdentity(namespace, name)
}

// All returns every entry in catalog order.
func (r *Registry) All() []*Entry {
	return r.filter(func(*Entry) bool { return true })
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Featured returns the featured entries in catalog order.
func (r *Registry) Featured() []*Entry {
	return r.filter(func(e *Entry) bool { return e.Metadata.Featured })
}

// ByCategory returns the entries in category, in catalog order.
func (r *Registry) ByCategory(category Category) []*Entry {
	return r.filter(func(e *Entry) bool { return e.Metadata.Category == category })
}

// Search matches query case-insensitively against name, description,
// keywords and namespace, and returns the requested page. Pages start at 1.
// An empty query matches nothing.
func (r *Registry) Search(query string, page, perPage int) SearchResult {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	result := SearchResult{Entries: []*Entry{}, Page: page, PerPage: perPage}

	if strings.TrimSpace(query) == "" {
		return result
	}
	q := strings.ToLower(query)

	matched := r.filter(func(e *Entry) bool { return matches(e, q) })
	result.Total = len(matched)

	start := (page - 1) * perPage
	if start >= len(matched) {
		return result
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}
	result.Entries = matched[start:end]
	return result
}

// matches reports whether e contains the lowercased query q.
func matches(e *Entry, q string) bool {
	m := e.Metadata
	if strings.Contains(strings.ToLower(m.Name), q) ||
		strings.Contains(strings.ToLower(m.Description), q) ||
		strings.Contains(strings.ToLower(m.Namespace), q) {
		return true
	}
	for _, k := range m.Keywords {
		if strings.Contains(strings.ToLower(k), q) {
			return true
		}
	}
	return false
}

func (r *Registry) filter(keep func(*Entry) bool) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, 0)
	for _, e := range r.entries {
		if keep(e) {
			out = append(out, e.clone())
		}
	}
	return out
}
