package query

import (
	"encoding/json"
	"sort"

	"github.com/esfake/esfake/internal/apperr"
	"github.com/esfake/esfake/internal/mapping"
	"github.com/esfake/esfake/internal/value"
)

// SortField is one compiled sort criterion.
type SortField struct {
	// StoragePath is the resolved field to read from a document's typed
	// projection; Field is the path as the client requested it (used
	// when echoing the "sort" array back on each hit).
	Field       string
	StoragePath string
	Descending  bool
}

// CompileSort parses the "sort" key, which may be a bare string, a single
// `{field: "asc"|"desc"}` object, or an array of either form.
func CompileSort(raw json.RawMessage, m *mapping.Mapping) ([]SortField, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		out := make([]SortField, 0, len(arr))
		for _, item := range arr {
			sf, err := compileSortItem(item, m)
			if err != nil {
				return nil, err
			}
			out = append(out, sf)
		}
		return out, nil
	}

	sf, err := compileSortItem(raw, m)
	if err != nil {
		return nil, err
	}
	return []SortField{sf}, nil
}

func compileSortItem(raw json.RawMessage, m *mapping.Mapping) (SortField, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return resolveSortField(asString, false, m), nil
	}

	var asMap map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return SortField{}, apperr.ParseExceptionf("failed to parse sort entry: %v", err)
	}
	for field, dirRaw := range asMap {
		var dir string
		_ = json.Unmarshal(dirRaw, &dir)
		if dir == "" {
			var obj struct {
				Order string `json:"order"`
			}
			_ = json.Unmarshal(dirRaw, &obj)
			dir = obj.Order
		}
		return resolveSortField(field, dir == "desc", m), nil
	}
	return SortField{}, apperr.ParseExceptionf("empty sort entry")
}

func resolveSortField(field string, desc bool, m *mapping.Mapping) SortField {
	if field == "_id" {
		return SortField{Field: field, StoragePath: "_id", Descending: desc}
	}
	_, storagePath, ok := m.Resolve(field)
	if !ok {
		// Unmapped sort field: ValuesFor yields Null for the missing key,
		// and Sort places nulls last regardless of direction.
		return SortField{Field: field, StoragePath: field, Descending: desc}
	}
	return SortField{Field: field, StoragePath: storagePath, Descending: desc}
}

// ValuesFor resolves each sort field's value for one document, used to
// build a Hit's SortVals before calling Sort.
func ValuesFor(fields []SortField, id string, typed map[string]value.Value) []value.Value {
	out := make([]value.Value, len(fields))
	for i, f := range fields {
		if f.StoragePath == "_id" {
			out[i] = value.NewKeyword(id)
			continue
		}
		v, ok := typed[f.StoragePath]
		if !ok {
			out[i] = value.Null(value.KindKeyword)
			continue
		}
		if v.IsArray {
			if len(v.Array) > 0 {
				out[i] = v.Array[0]
			} else {
				out[i] = value.Null(v.Kind)
			}
			continue
		}
		out[i] = v
	}
	return out
}

// Hit is one matched document paired with the field values its sort
// criteria resolved to, so the engine only needs to read the typed
// projection once per document.
type Hit struct {
	Index    string
	ID       string
	Source   map[string]any
	SortVals []value.Value
}

// Sort orders hits in place by fields, tie-breaking on _id ascending, then
// falling back to original (source) order — the stability of sort.SliceStable
// makes that last tiebreak automatic.
func Sort(hits []Hit, fields []SortField) {
	sort.SliceStable(hits, func(i, j int) bool {
		for k := range fields {
			a, b := hits[i].SortVals[k], hits[j].SortVals[k]
			if a.IsNull != b.IsNull {
				// Nulls sort last regardless of direction.
				return b.IsNull
			}
			c := value.Compare(a, b)
			if c == 0 {
				continue
			}
			if fields[k].Descending {
				return c > 0
			}
			return c < 0
		}
		return hits[i].ID < hits[j].ID
	})
}

// Paginate clamps from/size to non-negative and slices hits accordingly,
// per the pagination rule.
func Paginate(hits []Hit, from, size int) []Hit {
	if from < 0 {
		from = 0
	}
	if size < 0 {
		size = 0
	}
	if from >= len(hits) {
		return []Hit{}
	}
	end := from + size
	if end > len(hits) {
		end = len(hits)
	}
	return hits[from:end]
}
