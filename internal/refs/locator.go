package refs

import (
	"regexp"
	"strings"

	"github.com/hashicorp/golang-lru/v2"

	"github.com/vango-dev/uiforge/internal/ident"
)

// DefaultCacheSize bounds the number of compiled pattern sets a Locator keeps.
const DefaultCacheSize = 256

var controlFlow = regexp.MustCompile(`@(?:else\s+if|if|case)\s*\(`)

// patternSet holds everything compiled for one set of identifier variants.
type patternSet struct {
	variants []string
	classes  map[string]string // class name -> variant
	tags     []tagPatterns
	imports  *regexp.Regexp
	typeKey  *regexp.Regexp
}

type tagPatterns struct {
	tag     string
	variant string
	paired  *regexp.Regexp
	single  *regexp.Regexp
}

func compile(variants []string) *patternSet {
	ps := &patternSet{
		variants: variants,
		classes:  make(map[string]string, len(variants)),
	}

	var quotedVariants, quotedClasses []string
	seenTag := map[string]bool{}
	for _, v := range variants {
		quotedVariants = append(quotedVariants, regexp.QuoteMeta(v))

		class := ident.ClassName(v)
		if _, ok := ps.classes[class]; !ok {
			ps.classes[class] = v
			quotedClasses = append(quotedClasses, regexp.QuoteMeta(class))
		}

		tag := ident.TagName(v)
		if seenTag[tag] {
			continue
		}
		seenTag[tag] = true
		qt := regexp.QuoteMeta(tag)
		ps.tags = append(ps.tags, tagPatterns{
			tag:     tag,
			variant: v,
			paired:  regexp.MustCompile(`<` + qt + `(?:\s+[^>]*?[^/\s>])?\s*>[\s\S]*?</` + qt + `\s*>`),
			single:  regexp.MustCompile(`<` + qt + `(?:\s[^>]*)?/>`),
		})
	}

	alt := strings.Join(quotedVariants, "|")
	ps.imports = regexp.MustCompile(`(?m)^[ \t]*import\s*\{[^}]*\b(?:` + strings.Join(quotedClasses, "|") +
		`)\b[^}]*\}\s*from\s*['"](?:[^'"]*/)?(` + alt + `)/(` + alt + `)\.component['"];?[ \t]*\r?\n?`)
	ps.typeKey = regexp.MustCompile(`\btype\s*:\s*['"](` + alt + `)['"]`)
	return ps
}

// Locator finds reference sites in source text. Compiled patterns are cached
// per variant set, so a Locator is meant to be shared across a tree pass.
// It is safe for concurrent use.
type Locator struct {
	cache *lru.Cache[string, *patternSet]
}

// NewLocator creates a Locator caching up to size pattern sets.
func NewLocator(size int) *Locator {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, *patternSet](size)
	return &Locator{cache: cache}
}

var defaultLocator = NewLocator(DefaultCacheSize)

// Locate finds the references to any of variants in text using a shared
// Locator.
func Locate(text string, variants []string, kinds ...Kind) []Site {
	return defaultLocator.Locate(text, variants, kinds...)
}

func (l *Locator) patterns(variants []string) *patternSet {
	key := strings.Join(variants, "\x00")
	if ps, ok := l.cache.Get(key); ok {
		return ps
	}
	ps := compile(variants)
	l.cache.Add(key, ps)
	return ps
}

// Locate returns every reference site for any of variants in text, ordered
// by start offset. Only the given kinds are searched; none means all. A site
// nested inside another is dropped in favor of the outer one. Locate never
// modifies text and never fails: no match is an empty result.
func (l *Locator) Locate(text string, variants []string, kinds ...Kind) []Site {
	if text == "" || len(variants) == 0 {
		return nil
	}
	ps := l.patterns(variants)

	var sites []Site
	if wantKind(kinds, KindImport) {
		sites = append(sites, ps.locateImports(text)...)
	}
	if wantKind(kinds, KindDependency) {
		sites = append(sites, ps.locateDependencies(text)...)
	}
	if wantKind(kinds, KindPairedTag) || wantKind(kinds, KindSelfClosingTag) {
		sites = append(sites, ps.locateTags(text, kinds)...)
	}
	if wantKind(kinds, KindConditional) {
		sites = append(sites, ps.locateConditionals(text)...)
	}
	if wantKind(kinds, KindStyleRule) {
		sites = append(sites, ps.locateStyleRules(text)...)
	}
	return normalize(sites)
}

// Count returns the number of reference sites for variants in text.
func (l *Locator) Count(text string, variants []string, kinds ...Kind) int {
	return len(l.Locate(text, variants, kinds...))
}

func (ps *patternSet) locateImports(text string) []Site {
	var sites []Site
	for _, m := range ps.imports.FindAllStringSubmatchIndex(text, -1) {
		dir, file := text[m[2]:m[3]], text[m[4]:m[5]]
		if dir != file {
			continue
		}
		sites = append(sites, Site{Start: m[0], End: m[1], Kind: KindImport, Variant: dir})
	}
	return sites
}

func (ps *patternSet) locateDependencies(text string) []Site {
	var sites []Site
	for off := 0; ; {
		i := strings.IndexByte(text[off:], '[')
		if i < 0 {
			break
		}
		open := off + i
		off = open + 1

		close := matchClose(text, open, '[', ']')
		if close < 0 {
			continue
		}
		elems := listElements(text, open, close)
		matched := make([]bool, len(elems))
		variant := make([]string, len(elems))
		found := false
		for j, el := range elems {
			if v, ok := ps.matchElement(text[el.start:el.end]); ok {
				matched[j], variant[j], found = true, v, true
			}
		}
		if !found {
			continue
		}

		spans := listSpans(elems, matched)
		k := 0
		for j := range elems {
			if !matched[j] {
				continue
			}
			sites = append(sites, Site{
				Start:   spans[k][0],
				End:     spans[k][1],
				Kind:    KindDependency,
				Variant: variant[j],
			})
			k++
		}
	}
	return sites
}

// matchElement reports whether a list element references the component,
// either by class name or as an object literal keyed by `type: 'variant'`.
func (ps *patternSet) matchElement(el string) (string, bool) {
	if v, ok := ps.classes[el]; ok {
		return v, true
	}
	if strings.HasPrefix(el, "{") {
		if m := ps.typeKey.FindStringSubmatch(el); m != nil {
			return m[1], true
		}
	}
	return "", false
}

func (ps *patternSet) locateTags(text string, kinds []Kind) []Site {
	var sites []Site
	for _, tp := range ps.tags {
		if wantKind(kinds, KindPairedTag) {
			for _, m := range tp.paired.FindAllStringIndex(text, -1) {
				s, e := expandLine(text, m[0], m[1])
				sites = append(sites, Site{Start: s, End: e, Kind: KindPairedTag, Variant: tp.variant})
			}
		}
		if wantKind(kinds, KindSelfClosingTag) {
			for _, m := range tp.single.FindAllStringIndex(text, -1) {
				s, e := expandLine(text, m[0], m[1])
				sites = append(sites, Site{Start: s, End: e, Kind: KindSelfClosingTag, Variant: tp.variant})
			}
		}
	}
	return sites
}

func (ps *patternSet) guardVariant(guard string) (string, bool) {
	for _, v := range ps.variants {
		if strings.Contains(guard, "'"+v+"'") || strings.Contains(guard, `"`+v+`"`) {
			return v, true
		}
	}
	return "", false
}

func (ps *patternSet) locateConditionals(text string) []Site {
	var sites []Site
	for _, m := range controlFlow.FindAllStringIndex(text, -1) {
		open := m[1] - 1
		close := matchClose(text, open, '(', ')')
		if close < 0 {
			continue
		}
		v, ok := ps.guardVariant(text[open+1 : close])
		if !ok {
			continue
		}
		brace := skipSpace(text, close+1)
		if brace >= len(text) || text[brace] != '{' {
			continue
		}
		end := matchClose(text, brace, '{', '}')
		if end < 0 {
			continue
		}

		site := Site{Start: m[0], End: end + 1, Kind: KindConditional, Variant: v}
		keyword := text[m[0]:m[1]]
		switch {
		case strings.HasPrefix(keyword, "@else"):
			// "} @else if (...) {...}" collapses to "}"
			for site.Start > 0 && isSpace(text[site.Start-1]) {
				site.Start--
			}
		case strings.HasPrefix(keyword, "@if"):
			site = promoteElse(text, site)
		}
		if site.Replace == "" {
			site.Start, site.End = expandLine(text, site.Start, site.End)
		}
		sites = append(sites, site)
	}
	return sites
}

// promoteElse keeps an @if chain well formed when its first branch is
// removed: a following "@else if" becomes the new "@if", and a plain
// "@else" body is kept unconditionally.
func promoteElse(text string, site Site) Site {
	next := skipSpace(text, site.End)
	if !strings.HasPrefix(text[next:], "@else") {
		return site
	}
	after := skipSpace(text, next+len("@else"))
	if strings.HasPrefix(text[after:], "if") {
		site.End = after
		site.Replace = "@"
		return site
	}
	if after >= len(text) || text[after] != '{' {
		return site
	}
	end := matchClose(text, after, '{', '}')
	if end < 0 {
		return site
	}
	site.End = end + 1
	site.Replace = strings.TrimSpace(text[after+1 : end])
	return site
}

func (ps *patternSet) locateStyleRules(text string) []Site {
	var sites []Site
	for _, r := range styleRules(text) {
		selector := text[r.selStart:r.selEnd]
		if selector == "" || strings.HasPrefix(selector, "@") || strings.Contains(selector, "<") {
			continue
		}
		parts := splitSelectors(selector)
		var keep []string
		variant := ""
		for _, p := range parts {
			if v, ok := ps.selectorVariant(p); ok {
				if variant == "" {
					variant = v
				}
				continue
			}
			keep = append(keep, p)
		}
		if variant == "" {
			continue
		}

		if len(keep) == 0 {
			s, e := expandLine(text, r.selStart, r.close+1)
			sites = append(sites, Site{Start: s, End: e, Kind: KindStyleRule, Variant: variant})
			continue
		}
		sites = append(sites, Site{
			Start:   r.selStart,
			End:     r.selEnd,
			Kind:    KindStyleRule,
			Variant: variant,
			Replace: strings.Join(keep, ", "),
		})
	}
	return sites
}

func (ps *patternSet) selectorVariant(selector string) (string, bool) {
	for _, tp := range ps.tags {
		if hasTagToken(selector, tp.tag) {
			return tp.variant, true
		}
	}
	return "", false
}

func skipSpace(text string, i int) int {
	for i < len(text) && isSpace(text[i]) {
		i++
	}
	return i
}
