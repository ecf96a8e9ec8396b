// Package docstore implements the per-index document store: keyed storage
// of raw source documents and their typed projections, striped-lock
// serialization per id, and lock-free concurrent reads.
package docstore

import (
	"encoding/base64"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/esfake/esfake/internal/mapping"
	"github.com/esfake/esfake/internal/value"
)

// Document is one stored document: its id, verbatim source JSON, derived
// typed projection, and version/seq_no bookkeeping.
type Document struct {
	ID      string
	Source  map[string]any
	Typed   map[string]value.Value
	Version int64
	SeqNo   int64
}

// GenerateID produces a short, URL-safe, unpredictable document id, used
// when a client indexes without supplying one. A uuid's raw bytes are
// base64url-encoded (no padding) rather than printed in canonical
// hyphenated form, giving a 22-character token in the same family as
// Elasticsearch's own auto-ids.
func GenerateID() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// project walks src and produces the typed projection for m, inferring
// new field kinds along the way when m is in dynamic mode. Fields that
// fail coercion cause the whole write to be rejected.
func project(src map[string]any, m *mapping.Mapping) (map[string]value.Value, error) {
	typed := make(map[string]value.Value)
	if err := projectInto("", src, m, typed); err != nil {
		return nil, err
	}
	return typed, nil
}

func projectInto(prefix string, raw any, m *mapping.Mapping, out map[string]value.Value) error {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	for name, v := range obj {
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		if nested, ok := v.(map[string]any); ok {
			if err := projectInto(path, nested, m, out); err != nil {
				return err
			}
			continue
		}

		if err := m.Infer(path, v); err != nil {
			return err
		}
		kind, ok := m.FieldKind(path)
		if !ok {
			// Dynamic mapping disabled and field unmapped: keep in
			// _source, excluded from the typed projection.
			continue
		}
		coerced, err := value.Coerce(kind, v)
		if err != nil {
			return err
		}
		out[path] = coerced
		if kind == value.KindText {
			// Text and its .keyword sibling share storage; the sibling is
			// the same value (array and all) with its Kind relabeled,
			// since Keyword/Text compare identically everywhere.
			sibling := coerced
			sibling.Kind = value.KindKeyword
			out[path+".keyword"] = sibling
		}
	}
	return nil
}

// cloneSource deep-copies a decoded-JSON map so stored _source is immune
// to later caller mutation of the map they passed in.
func cloneSource(src map[string]any) map[string]any {
	data, _ := json.Marshal(src)
	var out map[string]any
	_ = json.Unmarshal(data, &out)
	return out
}
