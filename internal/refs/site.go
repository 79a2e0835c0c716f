// Package refs finds and rewrites references to a component inside source
// text: import declarations, dependency-list entries, element tags,
// template conditionals and style rules.
//
// Matching is structural text-pattern matching anchored on syntactic
// landmarks (declaration keywords, bracket and brace delimiters, tag angle
// brackets, control-flow keywords). Blocks are delimited by depth counting,
// not by a grammar, so pathological formatting can produce false negatives.
package refs

import "sort"

// Kind classifies a reference site.
type Kind string

const (
	KindImport         Kind = "import"
	KindDependency     Kind = "dependency-list-entry"
	KindPairedTag      Kind = "paired-tag"
	KindSelfClosingTag Kind = "self-closing-tag"
	KindConditional    Kind = "conditional-block"
	KindStyleRule      Kind = "style-rule"
)

// AllKinds lists every reference kind in locate order.
var AllKinds = []Kind{
	KindImport,
	KindDependency,
	KindPairedTag,
	KindSelfClosingTag,
	KindConditional,
	KindStyleRule,
}

// Site is one located (or, for additions, intended) reference.
type Site struct {
	// Start and End delimit the span in the located text. Addition sites
	// carry -1 for both.
	Start int
	End   int

	Kind Kind

	// Variant is the identifier spelling that matched.
	Variant string

	// Replace is written in place of the span on removal (usually empty).
	Replace string

	// Insert is the literal text an addition inserts.
	Insert string
}

// Len returns the span length.
func (s Site) Len() int {
	return s.End - s.Start
}

func (s Site) contains(o Site) bool {
	return s.Start <= o.Start && o.End <= s.End && s.Len() > o.Len()
}

// normalize orders sites by start offset and drops sites that are nested in
// or overlap an earlier, larger site.
func normalize(sites []Site) []Site {
	sort.SliceStable(sites, func(i, j int) bool {
		if sites[i].Start != sites[j].Start {
			return sites[i].Start < sites[j].Start
		}
		return sites[i].Len() > sites[j].Len()
	})

	out := sites[:0]
	lastEnd := -1
	for _, s := range sites {
		if len(out) > 0 && s.Start < lastEnd {
			continue
		}
		out = append(out, s)
		lastEnd = s.End
	}
	return out
}

func wantKind(kinds []Kind, k Kind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}
