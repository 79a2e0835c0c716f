package walk

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/vango-dev/uiforge/internal/refs"
)

// DefaultKinds selects the reference kinds searched per file extension.
var DefaultKinds = map[string][]refs.Kind{
	".ts":   {refs.KindImport, refs.KindDependency},
	".html": {refs.KindPairedTag, refs.KindSelfClosingTag, refs.KindConditional},
	".scss": {refs.KindStyleRule},
	".css":  {refs.KindStyleRule},
}

type rewrite struct {
	kinds   map[string][]refs.Kind
	locator *refs.Locator
	mutator *refs.Mutator
}

// RewriteOption configures a rewrite visitor.
type RewriteOption func(*rewrite)

// WithKinds replaces the per-extension kind selection.
func WithKinds(kinds map[string][]refs.Kind) RewriteOption {
	return func(r *rewrite) {
		r.kinds = kinds
	}
}

// WithLocator sets the Locator shared by every visited file.
func WithLocator(l *refs.Locator) RewriteOption {
	return func(r *rewrite) {
		r.locator = l
	}
}

// WithMutator sets the Mutator.
func WithMutator(m *refs.Mutator) RewriteOption {
	return func(r *rewrite) {
		r.mutator = m
	}
}

func newRewrite(opts []RewriteOption) *rewrite {
	r := &rewrite{
		kinds:   DefaultKinds,
		locator: refs.NewLocator(refs.DefaultCacheSize),
		mutator: refs.NewMutator(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *rewrite) kindsFor(path string) []refs.Kind {
	return r.kinds[strings.ToLower(filepath.Ext(path))]
}

// RemoveReferences returns a Visitor deleting every reference to any of
// variants.
func RemoveReferences(variants []string, opts ...RewriteOption) Visitor {
	r := newRewrite(opts)
	return func(_ context.Context, path, text string) (Outcome, error) {
		kinds := r.kindsFor(path)
		if len(kinds) == 0 {
			return Outcome{Text: text}, nil
		}
		sites := r.locator.Locate(text, variants, kinds...)
		if len(sites) == 0 {
			return Outcome{Text: text}, nil
		}
		res, err := r.mutator.Apply(text, sites, refs.Remove)
		if err != nil {
			return Outcome{Text: text}, err
		}
		return Outcome{
			Text:        res.Text,
			Changed:     res.Changed,
			Corrections: res.Corrections,
			Op:          refs.Remove,
			Applied:     appliedKinds(sites, res.Skipped),
		}, nil
	}
}

// AddReferences returns a Visitor inserting references to target at their
// anchors. Kinds with no anchor in a file are skipped silently, and test
// sources are never edited.
func AddReferences(target refs.Target, opts ...RewriteOption) Visitor {
	r := newRewrite(opts)
	return func(_ context.Context, path, text string) (Outcome, error) {
		kinds := r.kindsFor(path)
		if len(kinds) == 0 || isTestSource(path) {
			return Outcome{Text: text}, nil
		}
		sites := refs.Additions(target, kinds...)
		res, err := r.mutator.Apply(text, sites, refs.Add)
		if err != nil {
			return Outcome{Text: text}, err
		}
		return Outcome{
			Text:    res.Text,
			Changed: res.Changed,
			Op:      refs.Add,
			Applied: appliedKinds(sites, res.Skipped),
		}, nil
	}
}

func isTestSource(path string) bool {
	return strings.HasSuffix(strings.ToLower(filepath.Base(path)), ".spec.ts")
}

func appliedKinds(sites, skipped []refs.Site) []refs.Kind {
	skip := make(map[refs.Kind]int, len(skipped))
	for _, s := range skipped {
		skip[s.Kind]++
	}
	var out []refs.Kind
	for _, s := range sites {
		if skip[s.Kind] > 0 {
			skip[s.Kind]--
			continue
		}
		out = append(out, s.Kind)
	}
	return out
}
