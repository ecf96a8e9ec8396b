package docstore

import (
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/esfake/esfake/internal/apperr"
	"github.com/esfake/esfake/internal/mapping"
	"github.com/esfake/esfake/internal/value"
)

// lockStripes is the number of mutexes an Index stripes per-id write
// serialization across, per "shard-striped map" design note.
const lockStripes = 256

// WriteResult reports the outcome of an Index/Update/Delete call.
type WriteResult struct {
	ID      string
	Result  string // "created", "updated", "deleted", "not_found", "noop"
	Version int64
	SeqNo   int64
}

// Index is one named Elasticsearch-compatible index: a mapping plus a
// concurrent document store and a monotonic operation counter.
type Index struct {
	Name    string
	Mapping *mapping.Mapping

	docs   sync.Map // string -> *Document
	seq    atomic.Int64
	stripe [lockStripes]sync.Mutex
}

// NewIndex creates an empty Index with a fresh Mapping.
func NewIndex(name string) *Index {
	return &Index{Name: name, Mapping: mapping.New()}
}

func (idx *Index) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &idx.stripe[h.Sum32()%lockStripes]
}

// Put creates or fully replaces the document at id. Returns result
// "created" or "updated" per whether id previously existed.
func (idx *Index) Put(id string, source map[string]any) (WriteResult, error) {
	if id == "" {
		id = GenerateID()
	}
	lock := idx.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	typed, err := project(source, idx.Mapping)
	if err != nil {
		return WriteResult{}, apperr.MapperParsingf("failed to parse field: %v", err)
	}

	seqNo := idx.seq.Add(1)
	version := int64(1)
	result := "created"
	if existing, ok := idx.docs.Load(id); ok {
		version = existing.(*Document).Version + 1
		result = "updated"
	}

	idx.docs.Store(id, &Document{
		ID:      id,
		Source:  cloneSource(source),
		Typed:   typed,
		Version: version,
		SeqNo:   seqNo,
	})

	return WriteResult{ID: id, Result: result, Version: version, SeqNo: seqNo}, nil
}

// Get returns the stored document at id, or ok=false if absent.
func (idx *Index) Get(id string) (*Document, bool) {
	v, ok := idx.docs.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Document), true
}

// Update performs a partial merge per the update semantics: if partial carries a
// top-level "doc" object, its keys shallow-merge into the existing
// source; otherwise partial's own top-level keys shallow-merge. Fails
// with document_missing_exception if id is absent.
func (idx *Index) Update(id string, partial map[string]any) (WriteResult, error) {
	lock := idx.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	existingVal, ok := idx.docs.Load(id)
	if !ok {
		return WriteResult{}, apperr.DocumentMissingf(idx.Name, id)
	}
	existing := existingVal.(*Document)

	patch := partial
	if doc, ok := partial["doc"].(map[string]any); ok {
		patch = doc
	}

	merged := cloneSource(existing.Source)
	for k, v := range patch {
		merged[k] = v
	}

	typed, err := project(merged, idx.Mapping)
	if err != nil {
		return WriteResult{}, apperr.MapperParsingf("failed to parse field: %v", err)
	}

	seqNo := idx.seq.Add(1)
	version := existing.Version + 1
	idx.docs.Store(id, &Document{
		ID:      id,
		Source:  merged,
		Typed:   typed,
		Version: version,
		SeqNo:   seqNo,
	})

	return WriteResult{ID: id, Result: "updated", Version: version, SeqNo: seqNo}, nil
}

// Delete removes the document at id. Returns result "deleted" or
// "not_found" (callers map "not_found" to HTTP 404).
func (idx *Index) Delete(id string) WriteResult {
	lock := idx.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	existingVal, ok := idx.docs.Load(id)
	if !ok {
		return WriteResult{ID: id, Result: "not_found"}
	}
	existing := existingVal.(*Document)
	idx.docs.Delete(id)

	seqNo := idx.seq.Add(1)
	return WriteResult{ID: id, Result: "deleted", Version: existing.Version + 1, SeqNo: seqNo}
}

// Each calls fn for every stored document. fn must not mutate the Index.
func (idx *Index) Each(fn func(*Document)) {
	idx.docs.Range(func(_, v any) bool {
		fn(v.(*Document))
		return true
	})
}

// Count returns the number of stored documents.
func (idx *Index) Count() int {
	n := 0
	idx.docs.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// ResolveKind delegates to the Mapping's .keyword resolution, returning
// the kind to compare against and the stored path holding the value.
func (idx *Index) ResolveKind(path string) (kind value.Kind, storagePath string, ok bool) {
	return idx.Mapping.Resolve(path)
}
