package docstore

import (
	"sort"
	"strings"
	"sync"

	"github.com/esfake/esfake/internal/apperr"
)

// Registry is the process-wide set of indices, keyed by name.
type Registry struct {
	mu      sync.RWMutex
	indices map[string]*Index
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{indices: make(map[string]*Index)}
}

// Create makes a new, empty index named name. Fails with
// resource_already_exists_exception if name is already taken.
func (r *Registry) Create(name string) (*Index, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.indices[name]; ok {
		return nil, apperr.ResourceAlreadyExistsf(name)
	}
	idx := NewIndex(name)
	r.indices[name] = idx
	return idx, nil
}

// Get returns the named index, or ok=false if it doesn't exist.
func (r *Registry) Get(name string) (*Index, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.indices[name]
	return idx, ok
}

// GetOrCreate returns the named index, creating it (with an empty, dynamic
// mapping) on first write if it doesn't exist yet — the auto-create-index
// behavior the update semantics requires for indexing and bulk requests.
func (r *Registry) GetOrCreate(name string) *Index {
	r.mu.RLock()
	idx, ok := r.indices[name]
	r.mu.RUnlock()
	if ok {
		return idx
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.indices[name]; ok {
		return idx
	}
	idx = NewIndex(name)
	r.indices[name] = idx
	return idx
}

// Delete removes the named index. Fails with index_not_found_exception if
// it doesn't exist.
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.indices[name]; !ok {
		return apperr.IndexNotFoundf(name)
	}
	delete(r.indices, name)
	return nil
}

// Exists reports whether name is a registered index.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.indices[name]
	return ok
}

// Names returns the sorted names of all registered indices, used by
// cluster-health.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.indices))
	for name := range r.indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve expands a comma-separated index expression (as accepted by
// _search and _count) into the list of matching Index objects. A
// bare "_all" or empty expression matches every registered index.
// Unknown names are reported via missing, for the caller to turn into an
// index_not_found_exception.
func (r *Registry) Resolve(expr string) (indices []*Index, missing []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if expr == "" || expr == "_all" {
		for _, idx := range r.indices {
			indices = append(indices, idx)
		}
		sort.Slice(indices, func(i, j int) bool { return indices[i].Name < indices[j].Name })
		return indices, nil
	}

	for _, name := range strings.Split(expr, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		idx, ok := r.indices[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		indices = append(indices, idx)
	}
	return indices, missing
}
