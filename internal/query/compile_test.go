package query

import (
	"encoding/json"
	"testing"

	"github.com/esfake/esfake/internal/mapping"
	"github.com/esfake/esfake/internal/value"
)

func newMapping(fields map[string]value.Kind) *mapping.Mapping {
	m := mapping.New()
	_ = m.Merge(fields)
	return m
}

func TestCompileNilIsMatchAll(t *testing.T) {
	c, err := Compile(nil, mapping.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.(MatchAll); !ok {
		t.Errorf("got %T, want MatchAll", c)
	}
}

func TestCompileMatchAll(t *testing.T) {
	c, err := Compile(json.RawMessage(`{"match_all": {}}`), mapping.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.(MatchAll); !ok {
		t.Errorf("got %T, want MatchAll", c)
	}
}

func TestCompileTermShortAndLongForm(t *testing.T) {
	m := newMapping(map[string]value.Kind{"status": value.KindKeyword})

	short, err := Compile(json.RawMessage(`{"term": {"status": "active"}}`), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	long, err := Compile(json.RawMessage(`{"term": {"status": {"value": "active"}}}`), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	shortTerm, ok := short.(Term)
	if !ok {
		t.Fatalf("got %T, want Term", short)
	}
	longTerm, ok := long.(Term)
	if !ok {
		t.Fatalf("got %T, want Term", long)
	}
	if shortTerm.Value.Str != longTerm.Value.Str {
		t.Errorf("short form %q != long form %q", shortTerm.Value.Str, longTerm.Value.Str)
	}
}

func TestCompileTermUnmappedFieldMatchesNothing(t *testing.T) {
	c, err := Compile(json.RawMessage(`{"term": {"ghost": "x"}}`), mapping.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	term, ok := c.(Term)
	if !ok {
		t.Fatalf("got %T, want Term", c)
	}
	if !term.Value.IsNull {
		t.Error("expected an unmapped term field to compile to a null value")
	}
}

func TestCompileTermKeywordMultiField(t *testing.T) {
	m := newMapping(map[string]value.Kind{"title": value.KindText})
	c, err := Compile(json.RawMessage(`{"term": {"title.keyword": "Hello"}}`), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	term, ok := c.(Term)
	if !ok {
		t.Fatalf("got %T, want Term", c)
	}
	if term.Field != "title" {
		t.Errorf("got storage field %q, want %q (title.keyword resolves to the parent's storage)", term.Field, "title")
	}
}

func TestCompileBoolMustShouldMustNotFilter(t *testing.T) {
	m := newMapping(map[string]value.Kind{"status": value.KindKeyword, "region": value.KindKeyword})
	raw := json.RawMessage(`{
		"bool": {
			"must": [{"term": {"status": "active"}}],
			"filter": {"term": {"region": "us"}},
			"must_not": [{"term": {"status": "banned"}}]
		}
	}`)
	c, err := Compile(raw, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, ok := c.(Bool)
	if !ok {
		t.Fatalf("got %T, want Bool", c)
	}
	if len(b.Must) != 1 || len(b.Filter) != 1 || len(b.MustNot) != 1 {
		t.Errorf("got must=%d filter=%d must_not=%d, want 1/1/1", len(b.Must), len(b.Filter), len(b.MustNot))
	}
}

func TestCompileRejectsMultiFieldTerm(t *testing.T) {
	_, err := Compile(json.RawMessage(`{"term": {"a": "1", "b": "2"}}`), mapping.New())
	if err == nil {
		t.Error("expected error when a term query names more than one field")
	}
}

func TestCompileUnknownQueryTypeErrors(t *testing.T) {
	_, err := Compile(json.RawMessage(`{"fuzzy": {}}`), mapping.New())
	if err == nil {
		t.Error("expected error for an unrecognized query type")
	}
}
