// Package mapping implements the per-index field-kind registry: dynamic
// mapping inference, explicit mapping updates, conflict detection, and
// ".keyword" multi-field resolution.
package mapping

import (
	"strings"
	"sync"

	"github.com/esfake/esfake/internal/apperr"
	"github.com/esfake/esfake/internal/value"
)

// Mapping holds the field-kind bindings for one index.
type Mapping struct {
	mu      sync.RWMutex
	dynamic bool
	fields  map[string]value.Kind
}

// New creates an empty Mapping. dynamic defaults to true.
func New() *Mapping {
	return &Mapping{dynamic: true, fields: make(map[string]value.Kind)}
}

// SetDynamic sets the index's dynamic-mapping flag.
func (m *Mapping) SetDynamic(dynamic bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dynamic = dynamic
}

// Dynamic reports whether dynamic mapping is enabled.
func (m *Mapping) Dynamic() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dynamic
}

// FieldKind returns the declared kind for an exact path.
func (m *Mapping) FieldKind(path string) (value.Kind, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.fields[path]
	return k, ok
}

// Properties returns a snapshot of path -> kind, skipping ".keyword"
// entries whose parent is a text field. The skipped entries are not
// reported anywhere else: the mapping-read handler lists each text field
// with its type only, without a nested keyword sub-field.
func (m *Mapping) Properties() map[string]value.Kind {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]value.Kind, len(m.fields))
	for k, v := range m.fields {
		if strings.HasSuffix(k, ".keyword") {
			if parent, ok := m.fields[strings.TrimSuffix(k, ".keyword")]; ok && parent == value.KindText {
				continue
			}
		}
		out[k] = v
	}
	return out
}

// Merge adds new field declarations (path -> kind), following PutMapping
// semantics: adding a brand-new path always succeeds; redeclaring an
// existing path with the same kind is a no-op; redeclaring with a
// different kind is rejected with illegal_argument_exception.
func (m *Mapping) Merge(props map[string]value.Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mergeLocked(props)
}

func (m *Mapping) mergeLocked(props map[string]value.Kind) error {
	for path, kind := range props {
		if !kind.Valid() {
			return apperr.IllegalArgumentf("unknown field type [%s] for field [%s]", kind, path)
		}
		if existing, ok := m.fields[path]; ok {
			if existing != kind {
				return apperr.IllegalArgumentf(
					"mapper [%s] of different type, current_type [%s], merged_type [%s]",
					path, existing, kind,
				)
			}
			continue
		}
		m.fields[path] = kind
		if kind == value.KindText {
			kwPath := path + ".keyword"
			// An explicit kind for <path>.keyword submitted in this same
			// batch overrides the synthetic sibling rather than
			// conflicting with it; only a kind already on record from an
			// earlier update is a genuine conflict.
			if override, ok := props[kwPath]; ok {
				m.fields[kwPath] = override
				continue
			}
			if existing, ok := m.fields[kwPath]; ok && existing != value.KindKeyword {
				return apperr.IllegalArgumentf(
					"mapper [%s] of different type, current_type [%s], merged_type [%s]",
					kwPath, existing, value.KindKeyword,
				)
			}
			m.fields[kwPath] = value.KindKeyword
		}
	}
	return nil
}

// Infer performs dynamic-mapping inference for an unmapped path, given the
// raw decoded-JSON value observed there. Arrays inspect their first
// non-null element; objects recurse with dotted paths. If dynamic mapping
// is disabled, Infer is a no-op (returns nil) — the field stays
// unmapped and excluded from the typed projection per the mapping registry.
func (m *Mapping) Infer(path string, raw any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dynamic {
		return nil
	}
	props := make(map[string]value.Kind)
	collectInferred(path, raw, m.fields, props)
	if len(props) == 0 {
		return nil
	}
	return m.mergeLocked(props)
}

// collectInferred walks raw recursively, skipping already-mapped paths,
// and records the inferred kind for each newly seen leaf path.
func collectInferred(path string, raw any, existing, out map[string]value.Kind) {
	if _, ok := existing[path]; ok {
		return
	}
	if _, ok := out[path]; ok {
		return
	}
	switch v := raw.(type) {
	case nil:
		// Cannot infer a kind from null; leave unmapped until a
		// non-null value is seen for this path.
	case string:
		out[path] = value.KindText
	case float64:
		if v == float64(int64(v)) {
			out[path] = value.KindInteger
		} else {
			out[path] = value.KindFloat
		}
	case bool:
		out[path] = value.KindBoolean
	case []any:
		for _, elem := range v {
			if elem != nil {
				collectInferred(path, elem, existing, out)
				return
			}
		}
	case map[string]any:
		for k, sub := range v {
			collectInferred(path+"."+k, sub, existing, out)
		}
	}
}

// Resolve implements ".keyword" resolution per the mapping registry: an exact match
// wins; otherwise a path ending in ".keyword" tries its parent as text and
// reuses its storage; otherwise the field is unknown. storagePath is the
// path whose stored value.Value should be consulted, and ok is false only
// when the field is genuinely unmapped (predicate should evaluate to no
// match rather than error).
func (m *Mapping) Resolve(path string) (kind value.Kind, storagePath string, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k, found := m.fields[path]
	if strings.HasSuffix(path, ".keyword") && (!found || k == value.KindKeyword) {
		// The synthetic keyword sibling of a text field shares its
		// parent's storage; an explicit non-keyword override does not.
		parent := strings.TrimSuffix(path, ".keyword")
		if pk, ok := m.fields[parent]; ok && pk == value.KindText {
			return value.KindKeyword, parent, true
		}
	}
	if found {
		return k, path, true
	}
	return "", "", false
}

// Clone returns a deep, independent copy, exercised by tests that need
// to mutate a mapping without affecting the original.
func (m *Mapping) Clone() *Mapping {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := New()
	c.dynamic = m.dynamic
	for k, v := range m.fields {
		c.fields[k] = v
	}
	return c
}

// ValidateProperties converts a raw `{"field": {"type": "..."}}` JSON
// properties map into a path -> Kind map fit for Merge, rejecting unknown
// types up front with illegal_argument_exception.
func ValidateProperties(prefix string, raw map[string]any) (map[string]value.Kind, error) {
	out := make(map[string]value.Kind)
	if err := validateInto(prefix, raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

func validateInto(prefix string, raw map[string]any, out map[string]value.Kind) error {
	for name, def := range raw {
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		defMap, ok := def.(map[string]any)
		if !ok {
			return apperr.IllegalArgumentf("mapping definition for [%s] must be an object", path)
		}
		if props, ok := defMap["properties"].(map[string]any); ok {
			if err := validateInto(path, props, out); err != nil {
				return err
			}
			continue
		}
		typeRaw, ok := defMap["type"]
		if !ok {
			return apperr.IllegalArgumentf("mapping for [%s] is missing required parameter [type]", path)
		}
		typeStr, ok := typeRaw.(string)
		if !ok {
			return apperr.IllegalArgumentf("mapping type for [%s] must be a string", path)
		}
		kind := value.Kind(typeStr)
		if !kind.Valid() {
			return apperr.IllegalArgumentf("No handler for type [%s] declared on field [%s]", typeStr, path)
		}
		out[path] = kind
	}
	return nil
}
