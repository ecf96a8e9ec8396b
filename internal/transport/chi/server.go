// Package chi wires esfake's HTTP surface on top of the go-chi router:
// one Server holding the document registry, one handler method per
// route, and a shared error envelope writer.
package chi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/esfake/esfake/internal/agg"
	"github.com/esfake/esfake/internal/apperr"
	"github.com/esfake/esfake/internal/bulk"
	"github.com/esfake/esfake/internal/docstore"
	"github.com/esfake/esfake/internal/mapping"
	"github.com/esfake/esfake/internal/query"
	"github.com/esfake/esfake/internal/value"
	"github.com/esfake/esfake/internal/version"
)

// Server holds the document store registry and answers every route in
// the transport layer.
type Server struct {
	reg         *docstore.Registry
	clusterUUID string
	nodeName    string
	logger      *zap.Logger
}

// NewServer creates a Server backed by reg.
func NewServer(reg *docstore.Registry, clusterUUID, nodeName string, logger *zap.Logger) *Server {
	return &Server{reg: reg, clusterUUID: clusterUUID, nodeName: nodeName, logger: logger}
}

// Routes mounts every handler onto r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.Root)
	r.Get("/_cluster/health", s.ClusterHealth)

	r.Get("/_search", s.Search)
	r.Post("/_search", s.Search)
	r.Get("/_count", s.Count)
	r.Post("/_count", s.Count)
	r.Post("/_bulk", s.Bulk)

	r.Put("/{index}", s.CreateIndex)
	r.Head("/{index}", s.HeadIndex)
	r.Delete("/{index}", s.DeleteIndex)
	r.Get("/{index}/_mapping", s.GetMapping)
	r.Put("/{index}/_mapping", s.PutMapping)
	r.Post("/{index}/_refresh", s.Refresh)

	r.Post("/{index}/_doc", s.IndexDocAuto)
	r.Put("/{index}/_doc/{id}", s.IndexDoc)
	r.Post("/{index}/_update/{id}", s.UpdateDoc)
	r.Get("/{index}/_doc/{id}", s.GetDoc)
	r.Head("/{index}/_doc/{id}", s.HeadDoc)
	r.Delete("/{index}/_doc/{id}", s.DeleteDoc)

	r.Get("/{index}/_search", s.Search)
	r.Post("/{index}/_search", s.Search)
	r.Get("/{index}/_count", s.Count)
	r.Post("/{index}/_count", s.Count)
	r.Post("/{index}/_bulk", s.Bulk)
	r.Put("/{index}/_bulk", s.Bulk)
}

// Root answers GET / with the standard Elasticsearch banner.
func (s *Server) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":         s.nodeName,
		"cluster_name": "es-fake",
		"cluster_uuid": s.clusterUUID,
		"version": map[string]any{
			"number":                               "8.10.0",
			"build_flavor":                         "default",
			"build_type":                           "tar",
			"build_hash":                           version.Commit,
			"build_date":                           version.Date,
			"build_snapshot":                       false,
			"lucene_version":                       "9.7.0",
			"minimum_wire_compatibility_version":    "7.17.0",
			"minimum_index_compatibility_version":   "7.0.0",
		},
		"tagline": "You Know, for Search",
	})
}

// ClusterHealth answers GET /_cluster/health.
func (s *Server) ClusterHealth(w http.ResponseWriter, r *http.Request) {
	names := s.reg.Names()
	writeJSON(w, http.StatusOK, map[string]any{
		"cluster_name":                   "es-fake",
		"status":                         "green",
		"timed_out":                      false,
		"number_of_nodes":                1,
		"number_of_data_nodes":           1,
		"active_primary_shards":          len(names),
		"active_shards":                  len(names),
		"relocating_shards":              0,
		"initializing_shards":            0,
		"unassigned_shards":              0,
		"delayed_unassigned_shards":      0,
		"number_of_pending_tasks":        0,
		"number_of_in_flight_fetch":      0,
		"task_max_waiting_in_queue_millis": 0,
		"active_shards_percent_as_number": 100.0,
	})
}

type createIndexRequest struct {
	Mappings *mappingsRequest `json:"mappings"`
}

type mappingsRequest struct {
	Dynamic    *bool          `json:"dynamic"`
	Properties map[string]any `json:"properties"`
}

// CreateIndex answers PUT /{index}.
func (s *Server) CreateIndex(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "index")

	var req createIndexRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.ParseExceptionf("failed to parse request body: %v", err))
			return
		}
	}

	idx, err := s.reg.Create(name)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.Mappings != nil {
		if req.Mappings.Dynamic != nil {
			idx.Mapping.SetDynamic(*req.Mappings.Dynamic)
		}
		if req.Mappings.Properties != nil {
			props, err := mapping.ValidateProperties("", req.Mappings.Properties)
			if err != nil {
				_ = s.reg.Delete(name)
				writeError(w, err)
				return
			}
			if err := idx.Mapping.Merge(props); err != nil {
				_ = s.reg.Delete(name)
				writeError(w, err)
				return
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"acknowledged":        true,
		"shards_acknowledged": true,
		"index":               name,
	})
}

// HeadIndex answers HEAD /{index}.
func (s *Server) HeadIndex(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "index")
	if !s.reg.Exists(name) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DeleteIndex answers DELETE /{index}.
func (s *Server) DeleteIndex(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "index")
	if err := s.reg.Delete(name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true})
}

// GetMapping answers GET /{index}/_mapping.
func (s *Server) GetMapping(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "index")
	idx, ok := s.reg.Get(name)
	if !ok {
		writeError(w, apperr.IndexNotFoundf(name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		name: map[string]any{
			"mappings": map[string]any{
				"properties": propertiesToWire(idx.Mapping.Properties()),
			},
		},
	})
}

func propertiesToWire(props map[string]value.Kind) map[string]any {
	out := make(map[string]any, len(props))
	for path, kind := range props {
		out[path] = map[string]any{"type": string(kind)}
	}
	return out
}

// PutMapping answers PUT /{index}/_mapping.
func (s *Server) PutMapping(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "index")
	idx, ok := s.reg.Get(name)
	if !ok {
		writeError(w, apperr.IndexNotFoundf(name))
		return
	}

	var body struct {
		Properties map[string]any `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperr.ParseExceptionf("failed to parse request body: %v", err))
		return
	}

	props, err := mapping.ValidateProperties("", body.Properties)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := idx.Mapping.Merge(props); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true})
}

// Refresh answers POST /{index}/_refresh as a no-op.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "index")
	if !s.reg.Exists(name) {
		writeError(w, apperr.IndexNotFoundf(name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"_shards": map[string]any{"total": 1, "successful": 1, "failed": 0},
	})
}

func writeResultEnvelope(w http.ResponseWriter, status int, index string, res docstore.WriteResult) {
	writeJSON(w, status, map[string]any{
		"_index":        index,
		"_id":           res.ID,
		"_version":      res.Version,
		"_seq_no":       res.SeqNo,
		"_primary_term": 1,
		"result":        res.Result,
		"_shards":       map[string]any{"total": 1, "successful": 1, "failed": 0},
	})
}

func decodeSource(r *http.Request) (map[string]any, error) {
	var src map[string]any
	if err := json.NewDecoder(r.Body).Decode(&src); err != nil {
		return nil, apperr.ParseExceptionf("failed to parse request body: %v", err)
	}
	return src, nil
}

// IndexDocAuto answers POST /{index}/_doc (generated id).
func (s *Server) IndexDocAuto(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "index")
	src, err := decodeSource(r)
	if err != nil {
		writeError(w, err)
		return
	}
	idx := s.reg.GetOrCreate(name)
	res, err := idx.Put("", src)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResultEnvelope(w, http.StatusCreated, name, res)
}

// IndexDoc answers PUT /{index}/_doc/{id}.
func (s *Server) IndexDoc(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "index")
	id := chi.URLParam(r, "id")
	src, err := decodeSource(r)
	if err != nil {
		writeError(w, err)
		return
	}
	idx := s.reg.GetOrCreate(name)
	res, err := idx.Put(id, src)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusCreated
	if res.Result == "updated" {
		status = http.StatusOK
	}
	writeResultEnvelope(w, status, name, res)
}

// UpdateDoc answers POST /{index}/_update/{id}.
func (s *Server) UpdateDoc(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "index")
	id := chi.URLParam(r, "id")
	idx, ok := s.reg.Get(name)
	if !ok {
		writeError(w, apperr.IndexNotFoundf(name))
		return
	}
	partial, err := decodeSource(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := idx.Update(id, partial)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResultEnvelope(w, http.StatusOK, name, res)
}

// GetDoc answers GET /{index}/_doc/{id}.
func (s *Server) GetDoc(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "index")
	id := chi.URLParam(r, "id")
	idx, ok := s.reg.Get(name)
	if !ok {
		writeError(w, apperr.IndexNotFoundf(name))
		return
	}
	doc, ok := idx.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"_index": name,
			"_id":    id,
			"found":  false,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"_index":   name,
		"_id":      id,
		"_version": doc.Version,
		"_seq_no":  doc.SeqNo,
		"found":    true,
		"_source":  doc.Source,
	})
}

// HeadDoc answers HEAD /{index}/_doc/{id}.
func (s *Server) HeadDoc(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "index")
	id := chi.URLParam(r, "id")
	idx, ok := s.reg.Get(name)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if _, ok := idx.Get(id); !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DeleteDoc answers DELETE /{index}/_doc/{id}.
func (s *Server) DeleteDoc(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "index")
	id := chi.URLParam(r, "id")
	idx, ok := s.reg.Get(name)
	if !ok {
		writeError(w, apperr.IndexNotFoundf(name))
		return
	}
	res := idx.Delete(id)
	status := http.StatusOK
	if res.Result == "not_found" {
		status = http.StatusNotFound
	}
	writeResultEnvelope(w, status, name, res)
}

// Bulk answers POST /_bulk and POST|PUT /{index}/_bulk.
func (s *Server) Bulk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defaultIndex := chi.URLParam(r, "index")

	outcome, err := bulk.Process(s.reg, defaultIndex, r.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(outcome.Items))
	for _, item := range outcome.Items {
		entry := map[string]any{
			"_index": item.Index,
			"_id":    item.ID,
			"status": item.Code,
		}
		if item.Status == bulk.StatusOK {
			entry["_version"] = item.Version
			entry["_seq_no"] = item.SeqNo
			entry["_primary_term"] = 1
			entry["result"] = statusToResult(item.Code)
			entry["_shards"] = map[string]any{"total": 1, "successful": 1, "failed": 0}
		} else {
			entry["error"] = errorBodyFor(item.Err)
		}
		items = append(items, map[string]any{item.Action: entry})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"took":   time.Since(start).Milliseconds(),
		"errors": outcome.Errors,
		"items":  items,
	})
}

func statusToResult(code int) string {
	if code == http.StatusCreated {
		return "created"
	}
	return "updated"
}

func errorBodyFor(err error) map[string]any {
	ae, ok := err.(*apperr.Error)
	if !ok {
		return map[string]any{"type": "internal_error", "reason": err.Error()}
	}
	return map[string]any{
		"type":       ae.Type(),
		"reason":     ae.Reason,
		"index":      ae.Index,
		"index_uuid": ae.IndexUUID,
	}
}

type searchRequestBody struct {
	Query        json.RawMessage `json:"query"`
	Sort         json.RawMessage `json:"sort"`
	From         *int            `json:"from"`
	Size         *int            `json:"size"`
	Aggs         json.RawMessage `json:"aggs"`
	Aggregations json.RawMessage `json:"aggregations"`
}

func (b searchRequestBody) aggsRaw() json.RawMessage {
	if len(b.Aggs) > 0 {
		return b.Aggs
	}
	return b.Aggregations
}

func readSearchBody(r *http.Request) (searchRequestBody, error) {
	var body searchRequestBody
	if r.ContentLength == 0 {
		return body, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return searchRequestBody{}, apperr.ParseExceptionf("failed to parse request body: %v", err)
	}
	return body, nil
}

// resolveIndices expands the {index} path param (possibly comma-separated,
// "_all", or absent for a bare /_search) into the matching indices, per
// multi-index search.
func (s *Server) resolveIndices(r *http.Request) ([]*docstore.Index, error) {
	expr := chi.URLParam(r, "index")
	indices, missing := s.reg.Resolve(expr)
	if len(missing) > 0 {
		return nil, apperr.IndexNotFoundf(missing[0])
	}
	return indices, nil
}

// Search answers GET|POST /_search, /{index}/_search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	indices, err := s.resolveIndices(r)
	if err != nil {
		writeError(w, err)
		return
	}
	body, err := readSearchBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	from, size := 0, 10
	if body.From != nil {
		from = *body.From
	}
	if body.Size != nil {
		size = *body.Size
	}

	var allHits []query.Hit
	aggResults := make(map[string][]agg.Result)
	var aggSize = make(map[string]int)

	for _, idx := range indices {
		clause, err := query.Compile(body.Query, idx.Mapping)
		if err != nil {
			writeError(w, err)
			return
		}
		sortFields, err := query.CompileSort(body.Sort, idx.Mapping)
		if err != nil {
			writeError(w, err)
			return
		}
		aggReqs, err := agg.Compile(body.aggsRaw(), idx.Mapping)
		if err != nil {
			writeError(w, err)
			return
		}

		var matchedTyped []map[string]value.Value
		idx.Each(func(doc *docstore.Document) {
			if !query.Matches(clause, doc.Typed) {
				return
			}
			allHits = append(allHits, query.Hit{
				Index:    idx.Name,
				ID:       doc.ID,
				Source:   doc.Source,
				SortVals: query.ValuesFor(sortFields, doc.ID, doc.Typed),
			})
			matchedTyped = append(matchedTyped, doc.Typed)
		})

		for _, req := range aggReqs {
			aggResults[req.Name] = append(aggResults[req.Name], agg.Run(req, matchedTyped))
			aggSize[req.Name] = req.Size
		}
	}

	total := len(allHits)

	var sortFieldsForTieBreak []query.SortField
	if len(indices) > 0 {
		sortFieldsForTieBreak, _ = query.CompileSort(body.Sort, indices[0].Mapping)
	}
	query.Sort(allHits, sortFieldsForTieBreak)
	page := query.Paginate(allHits, from, size)

	hits := make([]map[string]any, 0, len(page))
	for _, h := range page {
		entry := map[string]any{
			"_index":  h.Index,
			"_id":     h.ID,
			"_score":  1.0,
			"_source": h.Source,
		}
		if len(sortFieldsForTieBreak) > 0 {
			sortOut := make([]any, len(h.SortVals))
			for i, v := range h.SortVals {
				sortOut[i] = sortValueForWire(v)
			}
			entry["sort"] = sortOut
		}
		hits = append(hits, entry)
	}

	var maxScore any = 1.0
	if total == 0 {
		maxScore = nil
	}

	resp := map[string]any{
		"took":      time.Since(start).Milliseconds(),
		"timed_out": false,
		"_shards":   map[string]any{"total": len(indices), "successful": len(indices), "skipped": 0, "failed": 0},
		"hits": map[string]any{
			"total":     map[string]any{"value": total, "relation": "eq"},
			"max_score": maxScore,
			"hits":      hits,
		},
	}

	if len(aggResults) > 0 {
		aggsOut := make(map[string]any, len(aggResults))
		for name, partials := range aggResults {
			merged := agg.Merge(aggSize[name], partials)
			buckets := make([]map[string]any, 0, len(merged.Buckets))
			for _, b := range merged.Buckets {
				buckets = append(buckets, map[string]any{"key": b.Key, "doc_count": b.DocCount})
			}
			aggsOut[name] = map[string]any{
				"doc_count_error_upper_bound": merged.DocCountErrorUpperBound,
				"sum_other_doc_count":         merged.SumOtherDocCount,
				"buckets":                     buckets,
			}
		}
		resp["aggregations"] = aggsOut
	}

	writeJSON(w, http.StatusOK, resp)
}

func sortValueForWire(v value.Value) any {
	if v.IsNull {
		return nil
	}
	switch v.Kind {
	case value.KindInteger, value.KindDate:
		return v.Int
	case value.KindFloat:
		return v.Float
	case value.KindBoolean:
		return v.Bool
	default:
		return v.Str
	}
}

// Count answers GET|POST /_count, /{index}/_count.
func (s *Server) Count(w http.ResponseWriter, r *http.Request) {
	indices, err := s.resolveIndices(r)
	if err != nil {
		writeError(w, err)
		return
	}
	body, err := readSearchBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	total := 0
	for _, idx := range indices {
		clause, err := query.Compile(body.Query, idx.Mapping)
		if err != nil {
			writeError(w, err)
			return
		}
		idx.Each(func(doc *docstore.Document) {
			if query.Matches(clause, doc.Typed) {
				total++
			}
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":   total,
		"_shards": map[string]any{"total": len(indices), "successful": len(indices), "skipped": 0, "failed": 0},
	})
}

