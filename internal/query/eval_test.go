package query

import (
	"testing"

	"github.com/esfake/esfake/internal/value"
)

func TestMatchesMatchAll(t *testing.T) {
	if !Matches(MatchAll{}, nil) {
		t.Error("expected match_all to match an empty document")
	}
}

func TestMatchesTermScalar(t *testing.T) {
	typed := map[string]value.Value{"status": value.NewKeyword("active")}
	term := Term{Field: "status", Value: value.NewKeyword("active")}
	if !Matches(term, typed) {
		t.Error("expected term to match equal keyword")
	}
	term.Value = value.NewKeyword("inactive")
	if Matches(term, typed) {
		t.Error("expected term to not match differing keyword")
	}
}

func TestMatchesTermAnyElementOfArray(t *testing.T) {
	typed := map[string]value.Value{
		"tags": value.NewArray(value.KindKeyword, []value.Value{value.NewKeyword("a"), value.NewKeyword("b")}),
	}
	term := Term{Field: "tags", Value: value.NewKeyword("b")}
	if !Matches(term, typed) {
		t.Error("expected term to match when any array element equals the target")
	}
}

func TestMatchesTermMissingField(t *testing.T) {
	term := Term{Field: "ghost", Value: value.NewKeyword("x")}
	if Matches(term, map[string]value.Value{}) {
		t.Error("expected term on a missing field to not match")
	}
}

func TestMatchesBoolMustAndFilterAreAnd(t *testing.T) {
	typed := map[string]value.Value{
		"status": value.NewKeyword("active"),
		"region": value.NewKeyword("us"),
	}
	b := Bool{
		Must:   []Clause{Term{Field: "status", Value: value.NewKeyword("active")}},
		Filter: []Clause{Term{Field: "region", Value: value.NewKeyword("us")}},
	}
	if !Matches(b, typed) {
		t.Error("expected bool with matching must+filter to match")
	}

	b.Filter = []Clause{Term{Field: "region", Value: value.NewKeyword("eu")}}
	if Matches(b, typed) {
		t.Error("expected bool to fail when filter clause does not match")
	}
}

func TestMatchesBoolMustNotExcludes(t *testing.T) {
	typed := map[string]value.Value{"status": value.NewKeyword("banned")}
	b := Bool{MustNot: []Clause{Term{Field: "status", Value: value.NewKeyword("banned")}}}
	if Matches(b, typed) {
		t.Error("expected must_not to exclude a matching document")
	}
}

func TestMatchesBoolShouldOnlyWhenNoMustOrFilter(t *testing.T) {
	typed := map[string]value.Value{"status": value.NewKeyword("active")}
	b := Bool{Should: []Clause{Term{Field: "status", Value: value.NewKeyword("inactive")}}}
	if Matches(b, typed) {
		t.Error("expected a should-only bool with no matching clause to fail")
	}

	b.Should = []Clause{Term{Field: "status", Value: value.NewKeyword("active")}}
	if !Matches(b, typed) {
		t.Error("expected a should-only bool with a matching clause to succeed")
	}
}

func TestMatchesBoolShouldIgnoredWhenMustPresent(t *testing.T) {
	typed := map[string]value.Value{"status": value.NewKeyword("active")}
	b := Bool{
		Must:   []Clause{Term{Field: "status", Value: value.NewKeyword("active")}},
		Should: []Clause{Term{Field: "status", Value: value.NewKeyword("never-matches")}},
	}
	if !Matches(b, typed) {
		t.Error("expected should to be non-binding once must is present")
	}
}
