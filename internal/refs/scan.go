package refs

import "strings"

// matchClose returns the index of the delimiter closing the one at open,
// counting nesting of the same pair and skipping quoted strings. It returns
// -1 when the delimiter is never closed.
func matchClose(text string, open int, lo, hi byte) int {
	depth := 0
	for i := open; i < len(text); i++ {
		switch c := text[i]; c {
		case '\'', '"', '`':
			if end := skipString(text, i); end > i {
				i = end
			}
		case lo:
			depth++
		case hi:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// skipString returns the index of the quote closing the string literal that
// starts at i, or i when the literal is unterminated on its line.
func skipString(text string, i int) int {
	q := text[i]
	for j := i + 1; j < len(text); j++ {
		switch text[j] {
		case '\\':
			j++
		case q:
			return j
		case '\n':
			if q != '`' {
				return i
			}
		}
	}
	return i
}

// element is one top-level entry of a bracketed list. start and end delimit
// the trimmed element text; comma is the index of the comma following it, or
// -1.
type element struct {
	start, end int
	comma      int
}

// listElements splits the list whose brackets sit at open and close into its
// top-level elements. Empty entries (a trailing comma) are not elements.
func listElements(text string, open, close int) []element {
	var out []element
	segStart := open + 1
	depth := 0

	flush := func(segEnd, comma int) {
		s, e := segStart, segEnd
		for s < e && isSpace(text[s]) {
			s++
		}
		for e > s && isSpace(text[e-1]) {
			e--
		}
		if s < e {
			out = append(out, element{start: s, end: e, comma: comma})
		}
	}

	for i := open + 1; i < close; i++ {
		switch c := text[i]; c {
		case '\'', '"', '`':
			if end := skipString(text, i); end > i {
				i = end
			}
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case ',':
			if depth == 0 {
				flush(i, i)
				segStart = i + 1
			}
		}
	}
	flush(close, -1)
	return out
}

// listSpans returns the removal span for every matched element of one list
// so that removing all of them leaves a well-formed list. Elements in the
// leading run of matches take their trailing separator; any later match takes
// its leading comma; a match that is the final element of an all-matched list
// takes its trailing comma if present.
func listSpans(elems []element, matched []bool) [][2]int {
	var spans [][2]int
	leading := true
	for i, el := range elems {
		if !matched[i] {
			leading = false
			continue
		}
		switch {
		case leading && i+1 < len(elems):
			spans = append(spans, [2]int{el.start, elems[i+1].start})
		case leading:
			end := el.end
			if el.comma >= 0 {
				end = el.comma + 1
			}
			spans = append(spans, [2]int{el.start, end})
		default:
			spans = append(spans, [2]int{elems[i-1].comma, el.end})
		}
	}
	return spans
}

// rule is one brace-delimited block of a stylesheet with its selector text.
type rule struct {
	selStart, selEnd int
	open, close      int
}

// styleRules returns every block of a stylesheet whose closing brace exists,
// in order of their opening brace. Comments are skipped and never part of a
// selector.
func styleRules(text string) []rule {
	var (
		out      []rule
		stack    []rule
		segStart = 0
	)
	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				return sortRules(out)
			}
			i += end + 3
			segStart = i + 1
		case c == '/' && i+1 < len(text) && text[i+1] == '/' && (i == 0 || text[i-1] != ':'):
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				return sortRules(out)
			}
			i += end
			segStart = i + 1
		case c == '\'' || c == '"':
			if end := skipString(text, i); end > i {
				i = end
			}
		case c == '#' && i+1 < len(text) && text[i+1] == '{':
			// interpolation, not a block
			if end := matchClose(text, i+1, '{', '}'); end > 0 {
				i = end
			}
		case c == '{':
			s, e := trimRange(text, segStart, i)
			stack = append(stack, rule{selStart: s, selEnd: e, open: i})
			segStart = i + 1
		case c == '}':
			if n := len(stack); n > 0 {
				r := stack[n-1]
				stack = stack[:n-1]
				r.close = i
				out = append(out, r)
			}
			segStart = i + 1
		case c == ';':
			segStart = i + 1
		}
	}
	return sortRules(out)
}

// braceBalance returns the number of unmatched closing braces minus the
// number of unclosed opening braces, ignoring braces in comments and string
// literals.
func braceBalance(text string) int {
	balance := 0
	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				return balance
			}
			i += end + 3
		case c == '/' && i+1 < len(text) && text[i+1] == '/' && (i == 0 || text[i-1] != ':'):
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				return balance
			}
			i += end
		case c == '\'' || c == '"':
			if end := skipString(text, i); end > i {
				i = end
			}
		case c == '{':
			balance--
		case c == '}':
			balance++
		}
	}
	return balance
}

func sortRules(rules []rule) []rule {
	// insertion sort by open; rules are appended in close order
	for i := 1; i < len(rules); i++ {
		for j := i; j > 0 && rules[j].open < rules[j-1].open; j-- {
			rules[j], rules[j-1] = rules[j-1], rules[j]
		}
	}
	return rules
}

// hasTagToken reports whether selector uses tag as an element selector:
// not part of a longer name and not a class or id selector.
func hasTagToken(selector, tag string) bool {
	for off := 0; ; {
		i := strings.Index(selector[off:], tag)
		if i < 0 {
			return false
		}
		i += off
		j := i + len(tag)
		before := i == 0 || !isNameByte(selector[i-1]) && selector[i-1] != '.' && selector[i-1] != '#'
		after := j == len(selector) || !isNameByte(selector[j])
		if before && after {
			return true
		}
		off = i + 1
	}
}

// splitSelectors splits a selector list on top-level commas.
func splitSelectors(selector string) []string {
	var (
		out   []string
		depth int
		last  int
	)
	for i := 0; i < len(selector); i++ {
		switch selector[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(selector[last:i]))
				last = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(selector[last:]))
}

// expandLine widens [start, end) to whole lines, trailing newline included,
// when the span is alone on its lines.
func expandLine(text string, start, end int) (int, int) {
	ls := start
	for ls > 0 && (text[ls-1] == ' ' || text[ls-1] == '\t') {
		ls--
	}
	if ls > 0 && text[ls-1] != '\n' {
		return start, end
	}
	le := end
	for le < len(text) && (text[le] == ' ' || text[le] == '\t' || text[le] == '\r') {
		le++
	}
	switch {
	case le == len(text):
		return ls, le
	case text[le] == '\n':
		return ls, le + 1
	}
	return start, end
}

// lineIndent returns the leading whitespace of the line containing i.
func lineIndent(text string, i int) string {
	ls := strings.LastIndexByte(text[:i], '\n') + 1
	e := ls
	for e < len(text) && (text[e] == ' ' || text[e] == '\t') {
		e++
	}
	return text[ls:e]
}

func trimRange(text string, s, e int) (int, int) {
	for s < e && isSpace(text[s]) {
		s++
	}
	for e > s && isSpace(text[e-1]) {
		e--
	}
	return s, e
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isNameByte(c byte) bool {
	return c == '-' || c == '_' ||
		'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}
