// Package fieldtype infers which semantic types the values of a submitted
// form could represent, given the user's known profiles and cards.
package fieldtype

import (
	"strings"
	"time"

	"golang.org/x/exp/slices"
	"golang.org/x/text/language"

	"github.com/alovak/cardsync/card"
	"github.com/alovak/cardsync/profile"
)

// Observation is one submitted field.
type Observation struct {
	// Index is the stable position of the field within its form.
	Index int
	Value string
	// Predicted is the type other heuristics assigned to the field.
	Predicted Type
	// Seed holds types assigned by other heuristics, e.g. markup hints.
	// Inference adds to it or narrows it but never discards it wholesale.
	Seed TypeSet
}

// Field is the inference result for one observation.
type Field struct {
	Index     int
	Value     string
	Predicted Type
	Types     TypeSet
}

// IsEmpty is true when the field holds no text.
func (f Field) IsEmpty() bool {
	return strings.TrimSpace(f.Value) == ""
}

// Options tune comparisons. A zero Locale disables name-based matching of
// months, states and countries.
type Options struct {
	Locale language.Tag
	Now    time.Time
}

// InferFieldTypes computes, for every observation, the set of types whose
// value in any of profiles or cards matches the field text, then narrows
// ambiguous sets using neighboring fields. Results are ordered by Index.
func InferFieldTypes(snapshot []Observation, profiles []*profile.Profile, cards []*card.Record, opts Options) []Field {
	obs := make([]Observation, len(snapshot))
	copy(obs, snapshot)
	slices.SortStableFunc(obs, func(a, b Observation) int { return a.Index - b.Index })

	fields := make([]Field, len(obs))
	for i, o := range obs {
		fields[i] = Field{
			Index:     o.Index,
			Value:     o.Value,
			Predicted: o.Predicted,
			Types:     directTypes(o, profiles, cards, opts),
		}
	}
	disambiguate(fields)
	return fields
}

// directTypes is the seed plus every matching type, or Empty/Unknown.
func directTypes(o Observation, profiles []*profile.Profile, cards []*card.Record, opts Options) TypeSet {
	types := NewTypeSet()
	for t := range o.Seed {
		if t != Unknown && t != Empty {
			types.Add(t)
		}
	}
	if strings.TrimSpace(o.Value) == "" {
		types.Add(Empty)
		return types
	}
	for _, p := range profiles {
		if p != nil {
			matchProfile(o.Value, p, opts, types)
		}
	}
	for _, c := range cards {
		if c != nil {
			matchCard(o.Value, c, opts, types)
		}
	}
	if types.Len() == 0 {
		types.Add(Unknown)
	}
	return types
}

// ByIndex maps each field position to its type set.
func ByIndex(fields []Field) map[int]TypeSet {
	out := make(map[int]TypeSet, len(fields))
	for _, f := range fields {
		out[f.Index] = f.Types
	}
	return out
}
