// Package agg implements bucket aggregations over a matched document set.
package agg

import (
	"encoding/json"
	"sort"

	"github.com/esfake/esfake/internal/apperr"
	"github.com/esfake/esfake/internal/mapping"
	"github.com/esfake/esfake/internal/value"
)

// Request is one compiled `{terms: {field, size}}` aggregation.
type Request struct {
	Name        string
	Field       string
	StoragePath string
	Size        int
}

// Bucket is one terms aggregation bucket in the result.
type Bucket struct {
	Key      string
	DocCount int
}

// Result is the computed output for one named aggregation.
type Result struct {
	Buckets                 []Bucket
	DocCountErrorUpperBound int
	SumOtherDocCount        int
}

const defaultTermsSize = 10

type rawAggs map[string]rawAgg

type rawAgg struct {
	Terms *rawTerms `json:"terms"`
}

type rawTerms struct {
	Field string `json:"field"`
	Size  *int   `json:"size"`
}

// Compile parses the top-level "aggs"/"aggregations" object into one
// Request per named aggregation, resolving each field through m for
// ".keyword" multi-field support. Unknown sub-keys (anything but "terms")
// are accepted and silently produce no buckets, per the terms aggregation's
// tolerance for unsupported aggregation types.
func Compile(raw json.RawMessage, m *mapping.Mapping) ([]Request, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var aggs rawAggs
	if err := json.Unmarshal(raw, &aggs); err != nil {
		return nil, apperr.ParseExceptionf("failed to parse aggs: %v", err)
	}

	reqs := make([]Request, 0, len(aggs))
	for name, a := range aggs {
		if a.Terms == nil {
			continue
		}
		size := defaultTermsSize
		if a.Terms.Size != nil {
			size = *a.Terms.Size
		}
		storagePath := a.Terms.Field
		if _, resolved, ok := m.Resolve(a.Terms.Field); ok {
			storagePath = resolved
		}
		reqs = append(reqs, Request{
			Name:        name,
			Field:       a.Terms.Field,
			StoragePath: storagePath,
			Size:        size,
		})
	}
	return reqs, nil
}

// Run computes the terms buckets for req over the typed projections of
// the matched documents, per the terms aggregation: group by field value, skipping
// missing/null, emit buckets sorted by doc_count desc then key asc.
func Run(req Request, docs []map[string]value.Value) Result {
	counts := make(map[string]int)
	order := make([]string, 0)

	for _, typed := range docs {
		v, ok := typed[req.StoragePath]
		if !ok || v.IsNull {
			continue
		}
		for _, elem := range v.Elements() {
			if elem.IsNull {
				continue
			}
			key := elem.CanonicalKey()
			if _, seen := counts[key]; !seen {
				order = append(order, key)
			}
			counts[key]++
		}
	}

	sort.Slice(order, func(i, j int) bool {
		ci, cj := counts[order[i]], counts[order[j]]
		if ci != cj {
			return ci > cj
		}
		return order[i] < order[j]
	})

	size := req.Size
	if size <= 0 {
		size = defaultTermsSize
	}

	emitted := order
	var sumOther int
	if len(order) > size {
		emitted = order[:size]
		for _, k := range order[size:] {
			sumOther += counts[k]
		}
	}

	buckets := make([]Bucket, 0, len(emitted))
	for _, k := range emitted {
		buckets = append(buckets, Bucket{Key: k, DocCount: counts[k]})
	}

	return Result{
		Buckets:                 buckets,
		DocCountErrorUpperBound: 0,
		SumOtherDocCount:        sumOther,
	}
}

// Merge combines per-index partial results for the same named
// aggregation (multi-index search) into one, re-sorting and
// re-truncating to size exactly as Run would for a single index.
func Merge(size int, partials []Result) Result {
	if size <= 0 {
		size = defaultTermsSize
	}
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, p := range partials {
		for _, b := range p.Buckets {
			if _, seen := counts[b.Key]; !seen {
				order = append(order, b.Key)
			}
			counts[b.Key] += b.DocCount
		}
		// Buckets beyond each partial's own truncation are already
		// folded into its SumOtherDocCount; carry that forward too.
	}

	sort.Slice(order, func(i, j int) bool {
		ci, cj := counts[order[i]], counts[order[j]]
		if ci != cj {
			return ci > cj
		}
		return order[i] < order[j]
	})

	emitted := order
	var sumOther int
	if len(order) > size {
		emitted = order[:size]
		for _, k := range order[size:] {
			sumOther += counts[k]
		}
	}
	for _, p := range partials {
		sumOther += p.SumOtherDocCount
	}

	buckets := make([]Bucket, 0, len(emitted))
	for _, k := range emitted {
		buckets = append(buckets, Bucket{Key: k, DocCount: counts[k]})
	}
	return Result{Buckets: buckets, DocCountErrorUpperBound: 0, SumOtherDocCount: sumOther}
}
