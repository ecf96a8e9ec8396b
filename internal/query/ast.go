// Package query compiles an Elasticsearch-shaped JSON query DSL into a
// predicate tree evaluated by a single linear pass over an index's
// documents.
package query

import "github.com/esfake/esfake/internal/value"

// Clause is the closed set of compiled query nodes.
type Clause interface {
	isClause()
}

// MatchAll matches every document.
type MatchAll struct{}

func (MatchAll) isClause() {}

// Term matches documents whose field equals Value.
type Term struct {
	Field string
	Value value.Value
}

func (Term) isClause() {}

// Bool composes child clauses per the must/should/must_not/filter
// rules.
type Bool struct {
	Must    []Clause
	Should  []Clause
	MustNot []Clause
	Filter  []Clause
}

func (Bool) isClause() {}
