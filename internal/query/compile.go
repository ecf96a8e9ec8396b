package query

import (
	"encoding/json"
	"fmt"

	"github.com/esfake/esfake/internal/apperr"
	"github.com/esfake/esfake/internal/mapping"
	"github.com/esfake/esfake/internal/value"
)

// rawClause mirrors the wire shape of one query DSL node: exactly one of
// these keys is populated at a time.
type rawClause struct {
	MatchAll json.RawMessage `json:"match_all"`
	Term     json.RawMessage `json:"term"`
	Bool     json.RawMessage `json:"bool"`
}

type rawBool struct {
	Must    json.RawMessage `json:"must"`
	Should  json.RawMessage `json:"should"`
	MustNot json.RawMessage `json:"must_not"`
	Filter  json.RawMessage `json:"filter"`
}

// termBody covers both `term: {field: v}` and `term: {field: {value: v}}`.
type termBody struct {
	Value any `json:"value"`
}

// Compile parses a query DSL object (the value of the top-level "query"
// key, or nil for the implicit match_all) against m and returns the
// compiled predicate clause. m is used for .keyword resolution and field
// kind lookup so term values are coerced consistently with stored data.
func Compile(raw json.RawMessage, m *mapping.Mapping) (Clause, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return MatchAll{}, nil
	}
	var rc rawClause
	if err := json.Unmarshal(raw, &rc); err != nil {
		return nil, apperr.ParseExceptionf("failed to parse query: %v", err)
	}

	switch {
	case rc.MatchAll != nil:
		return MatchAll{}, nil
	case rc.Term != nil:
		return compileTerm(rc.Term, m)
	case rc.Bool != nil:
		return compileBool(rc.Bool, m)
	default:
		return nil, apperr.IllegalArgumentf("no known query type found in query object")
	}
}

func compileTerm(raw json.RawMessage, m *mapping.Mapping) (Clause, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, apperr.ParseExceptionf("failed to parse term query: %v", err)
	}
	if len(fields) != 1 {
		return nil, apperr.ParseExceptionf("term query must specify exactly one field")
	}
	for field, body := range fields {
		raw := extractTermValue(body)

		kind, storagePath, ok := m.Resolve(field)
		if !ok {
			// Unmapped field: the clause is well-formed but matches
			// nothing, rather than an error.
			return Term{Field: field, Value: value.Null(value.KindKeyword)}, nil
		}
		v, err := value.Coerce(kind, raw)
		if err != nil {
			return nil, apperr.MapperParsingf("failed to parse field [%s]: %v", field, err)
		}
		return Term{Field: storagePath, Value: v}, nil
	}
	panic("unreachable")
}

// extractTermValue unwraps the `{value: v}` long form, falling back to
// the raw scalar/array for the short form `field: v`.
func extractTermValue(body json.RawMessage) any {
	var withValue termBody
	if err := json.Unmarshal(body, &withValue); err == nil && withValue.Value != nil {
		return withValue.Value
	}
	var plain any
	_ = json.Unmarshal(body, &plain)
	return plain
}

func compileBool(raw json.RawMessage, m *mapping.Mapping) (Clause, error) {
	var rb rawBool
	if err := json.Unmarshal(raw, &rb); err != nil {
		return nil, apperr.ParseExceptionf("failed to parse bool query: %v", err)
	}
	must, err := compileClauseList(rb.Must, m)
	if err != nil {
		return nil, err
	}
	should, err := compileClauseList(rb.Should, m)
	if err != nil {
		return nil, err
	}
	mustNot, err := compileClauseList(rb.MustNot, m)
	if err != nil {
		return nil, err
	}
	filter, err := compileClauseList(rb.Filter, m)
	if err != nil {
		return nil, err
	}
	return Bool{Must: must, Should: should, MustNot: mustNot, Filter: filter}, nil
}

// compileClauseList accepts either a single clause object or an array of
// them, matching Elasticsearch's own leniency here.
func compileClauseList(raw json.RawMessage, m *mapping.Mapping) ([]Clause, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		out := make([]Clause, 0, len(arr))
		for _, item := range arr {
			c, err := Compile(item, m)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, nil
	}
	c, err := Compile(raw, m)
	if err != nil {
		return nil, fmt.Errorf("compiling clause: %w", err)
	}
	return []Clause{c}, nil
}
