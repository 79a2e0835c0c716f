package refs

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/vango-dev/uiforge/internal/errors"
	"github.com/vango-dev/uiforge/internal/ident"
)

// DefaultImportAnchor is the declaration new imports are inserted before.
const DefaultImportAnchor = "declare var initFlowbite"

// ErrUnresolvable is wrapped by the E220 error returned when a removal
// leaves more closing braces than opening ones.
var ErrUnresolvable = stderrors.New("closing braces outnumber opening braces")

// Op selects what Apply does with the given sites.
type Op int

const (
	// Remove deletes every site span.
	Remove Op = iota
	// Add inserts every addition site at its anchor.
	Add
)

func (o Op) String() string {
	switch o {
	case Remove:
		return "remove"
	case Add:
		return "add"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Correction records an automatic structural repair made after removal.
type Correction struct {
	Kind   Kind
	Detail string
}

func (c Correction) String() string {
	return string(c.Kind) + ": " + c.Detail
}

// Result is the outcome of one Apply call.
type Result struct {
	Text        string
	Changed     bool
	Corrections []Correction

	// Skipped holds sites Apply could not act on: out-of-range spans on
	// removal, additions with no anchor or an unsupported kind.
	Skipped []Site
}

var (
	blankRuns    = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)
	lastImport   = regexp.MustCompile(`(?ms)^import\b.*?;[ \t]*$`)
	importsList  = regexp.MustCompile(`\bimports\s*:\s*\[`)
	switchOnType = regexp.MustCompile(`@switch\s*\(\s*element\.type\s*\)\s*\{`)
)

// Mutator rewrites source text at located or intended reference sites.
type Mutator struct {
	anchor  string
	locator *Locator
}

// MutatorOption configures a Mutator.
type MutatorOption func(*Mutator)

// WithImportAnchor sets the declaration new imports are inserted before.
func WithImportAnchor(anchor string) MutatorOption {
	return func(m *Mutator) {
		if anchor != "" {
			m.anchor = anchor
		}
	}
}

// WithLocator sets the Locator used for presence checks.
func WithLocator(l *Locator) MutatorOption {
	return func(m *Mutator) {
		if l != nil {
			m.locator = l
		}
	}
}

// NewMutator creates a Mutator.
func NewMutator(opts ...MutatorOption) *Mutator {
	m := &Mutator{
		anchor:  DefaultImportAnchor,
		locator: defaultLocator,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Apply performs op on text at sites. With no sites the text is returned
// unchanged. A removal that would leave surplus closing braces returns an
// E220 error and the original text.
func (m *Mutator) Apply(text string, sites []Site, op Op) (Result, error) {
	switch op {
	case Remove:
		return m.remove(text, sites)
	case Add:
		return m.add(text, sites), nil
	default:
		return Result{Text: text}, errors.Newf(errors.CategoryStructural, "unknown mutation %s", op)
	}
}

func (m *Mutator) remove(text string, sites []Site) (Result, error) {
	res := Result{Text: text}
	if len(sites) == 0 {
		return res, nil
	}

	ordered := normalize(append([]Site(nil), sites...))
	out := text
	styled := false
	for i := len(ordered) - 1; i >= 0; i-- {
		s := ordered[i]
		if s.Start < 0 || s.End > len(text) || s.Start > s.End {
			res.Skipped = append(res.Skipped, s)
			continue
		}
		out = out[:s.Start] + s.Replace + out[s.End:]
		switch s.Kind {
		case KindDependency:
			out = rebalanceCommas(out, s.Start)
		case KindStyleRule:
			styled = true
		}
	}
	if out == text {
		return res, nil
	}
	out = blankRuns.ReplaceAllString(out, "\n\n")

	if styled {
		// Only imbalance introduced by the removal is repaired or refused.
		switch delta := braceBalance(out) - braceBalance(text); {
		case delta > 0:
			return Result{Text: text}, errors.New("E220").
				WithDetail(fmt.Sprintf("%d more closing braces than opening braces after removal", delta)).
				Wrap(ErrUnresolvable)
		case delta < 0:
			out = strings.TrimRight(out, " \t\r\n") + "\n" + strings.Repeat("}\n", -delta)
			res.Corrections = append(res.Corrections, Correction{
				Kind:   KindStyleRule,
				Detail: fmt.Sprintf("appended %d missing closing brace(s)", -delta),
			})
		}
	}

	res.Text = out
	res.Changed = out != text
	return res, nil
}

// rebalanceCommas repairs the list separators around position p after an
// element was removed there.
func rebalanceCommas(text string, p int) string {
	l := p - 1
	for l >= 0 && isSpace(text[l]) {
		l--
	}
	r := p
	for r < len(text) && isSpace(text[r]) {
		r++
	}
	if l < 0 || r >= len(text) {
		return text
	}
	switch {
	case (text[l] == ',' || text[l] == '[') && text[r] == ',':
		return text[:r] + text[r+1:]
	case text[l] == ',' && text[r] == ']':
		return text[:l] + text[l+1:]
	}
	return text
}

func (m *Mutator) add(text string, sites []Site) Result {
	out := text
	var skipped []Site
	for _, s := range sites {
		var ok bool
		switch s.Kind {
		case KindImport:
			out, ok = m.addImport(out, s)
		case KindDependency:
			out, ok = addDependency(out, s)
		case KindConditional:
			out, ok = m.addCase(out, s)
		case KindPairedTag:
			out, ok = addSharedWrap(out, s)
		case KindStyleRule:
			out, ok = m.addStyleRule(out, s)
		}
		if !ok {
			skipped = append(skipped, s)
		}
	}
	return Result{Text: out, Changed: out != text, Skipped: skipped}
}

func (m *Mutator) addImport(text string, s Site) (string, bool) {
	if strings.Contains(text, s.Insert) || m.locator.Count(text, []string{s.Variant}, KindImport) > 0 {
		return text, true
	}
	if i := strings.Index(text, m.anchor); i >= 0 {
		ls := strings.LastIndexByte(text[:i], '\n') + 1
		return text[:ls] + s.Insert + "\n" + text[ls:], true
	}
	// Without the anchor only a component declaring a dependency list takes
	// the import; tests and services importing the same modules do not.
	all := lastImport.FindAllStringIndex(text, -1)
	if len(all) == 0 || !importsList.MatchString(text) {
		return text, false
	}
	end := all[len(all)-1][1]
	return text[:end] + "\n" + s.Insert + text[end:], true
}

func addDependency(text string, s Site) (string, bool) {
	loc := importsList.FindStringIndex(text)
	if loc == nil {
		return text, false
	}
	open := loc[1] - 1
	close := matchClose(text, open, '[', ']')
	if close < 0 {
		return text, false
	}

	elems := listElements(text, open, close)
	for _, el := range elems {
		if text[el.start:el.end] == s.Insert {
			return text, true
		}
	}
	if len(elems) == 0 {
		return text[:open+1] + s.Insert + text[open+1:], true
	}

	last := elems[len(elems)-1]
	sep := " "
	if strings.Contains(text[open:last.start], "\n") {
		sep = "\n" + lineIndent(text, last.start)
	}
	if last.comma >= 0 {
		at := last.comma + 1
		return text[:at] + sep + s.Insert + "," + text[at:], true
	}
	return text[:last.end] + "," + sep + s.Insert + text[last.end:], true
}

func (m *Mutator) addCase(text string, s Site) (string, bool) {
	loc := switchOnType.FindStringIndex(text)
	if loc == nil {
		return text, false
	}
	brace := loc[1] - 1
	close := matchClose(text, brace, '{', '}')
	if close < 0 {
		return text, false
	}
	if m.locator.Count(text[brace+1:close], []string{s.Variant}, KindConditional) > 0 {
		return text, true
	}

	outer := lineIndent(text, loc[0])
	block := indent(s.Insert, outer+"  ")
	ls := strings.LastIndexByte(text[:close], '\n') + 1
	if strings.TrimSpace(text[ls:close]) == "" && ls > brace {
		return text[:ls] + block + "\n" + text[ls:], true
	}
	return text[:close] + "\n" + block + "\n" + outer + text[close:], true
}

func addSharedWrap(text string, s Site) (string, bool) {
	guard := regexp.MustCompile(`@if\s*\(\s*element\.type\s*===?\s*['"]` +
		regexp.QuoteMeta(s.Variant) + `['"]\s*\)\s*\{`)
	loc := guard.FindStringIndex(text)
	if loc == nil {
		return text, false
	}
	brace := loc[1] - 1
	close := matchClose(text, brace, '{', '}')
	if close < 0 {
		return text, false
	}
	body := text[brace+1 : close]
	if strings.Contains(body, "element.isSharedComponent") {
		return text, true
	}

	outer := lineIndent(text, loc[0])
	inner := outer + "  "
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(inner + "@if (element.isSharedComponent) {\n")
	b.WriteString(inner + "  " + s.Insert + "\n")
	b.WriteString(inner + "} @else {")
	b.WriteString(strings.TrimRight(body, " \t\r\n"))
	b.WriteString("\n" + inner + "}\n" + outer)
	return text[:brace+1] + b.String() + text[close:], true
}

func (m *Mutator) addStyleRule(text string, s Site) (string, bool) {
	if strings.Contains(text, s.Insert) || m.locator.Count(text, []string{s.Variant}, KindStyleRule) > 0 {
		return text, true
	}
	out := text
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out + s.Insert + "\n", true
}

func indent(block, prefix string) string {
	lines := strings.Split(block, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

// Target describes a component whose references are to be added.
type Target struct {
	ID string

	// ImportPath is the module specifier used in import declarations.
	// Defaults to the component module under ../../components/.
	ImportPath string

	// Variant is the variant attribute of an added super component case.
	// Defaults to "1".
	Variant string
}

// Additions returns the add-intent sites for t, one per kind. None means
// every kind.
func Additions(t Target, kinds ...Kind) []Site {
	if len(kinds) == 0 {
		kinds = AllKinds
	}
	path := t.ImportPath
	if path == "" {
		path = "../../components/" + ident.ImportModule(t.ID)
	}
	variant := t.Variant
	if variant == "" {
		variant = "1"
	}
	class := ident.ClassName(t.ID)
	tag := ident.TagName(t.ID)

	sites := make([]Site, 0, len(kinds))
	for _, k := range kinds {
		var insert string
		switch k {
		case KindImport:
			insert = "import { " + class + " } from '" + path + "';"
		case KindDependency:
			insert = class
		case KindConditional:
			insert = "@case ('" + t.ID + "') {\n  <" + tag + ` variant="` + variant + `"></` + tag + ">\n}"
		case KindPairedTag:
			insert = "<" + tag + "></" + tag + ">"
		case KindSelfClosingTag:
			insert = "<" + tag + " />"
		case KindStyleRule:
			insert = tag + " {\n  display: block;\n}"
		default:
			continue
		}
		sites = append(sites, Site{Start: -1, End: -1, Kind: k, Variant: t.ID, Insert: insert})
	}
	return sites
}
