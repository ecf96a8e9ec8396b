package query

import "github.com/esfake/esfake/internal/value"

// Matches evaluates clause against a document's typed field projection,
// per the clause semantics.
func Matches(clause Clause, typed map[string]value.Value) bool {
	switch c := clause.(type) {
	case MatchAll:
		return true
	case Term:
		return matchTerm(c, typed)
	case Bool:
		return matchBool(c, typed)
	default:
		return false
	}
}

func matchTerm(c Term, typed map[string]value.Value) bool {
	stored, ok := typed[c.Field]
	if !ok {
		return false
	}
	for _, elem := range stored.Elements() {
		if elem.IsNull {
			continue
		}
		if elem.EqualTo(c.Value) {
			return true
		}
	}
	return false
}

func matchBool(c Bool, typed map[string]value.Value) bool {
	for _, sub := range c.Must {
		if !Matches(sub, typed) {
			return false
		}
	}
	for _, sub := range c.Filter {
		if !Matches(sub, typed) {
			return false
		}
	}
	for _, sub := range c.MustNot {
		if Matches(sub, typed) {
			return false
		}
	}
	if len(c.Should) > 0 && len(c.Must) == 0 && len(c.Filter) == 0 {
		matched := false
		for _, sub := range c.Should {
			if Matches(sub, typed) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
