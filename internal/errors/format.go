package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
)

// OutputFormat selects how Fprint renders an error.
type OutputFormat string

const (
	OutputPretty  OutputFormat = "pretty"
	OutputCompact OutputFormat = "compact"
	OutputJSON    OutputFormat = "json"
)

// ParseOutputFormat validates a user-supplied format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputPretty, OutputCompact, OutputJSON:
		return f, nil
	case "":
		return OutputPretty, nil
	}
	return "", Newf(CategoryCLI, "unknown error format %q", s).
		WithSuggestion("Use pretty, compact or json")
}

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
	ansiBold   = "\033[1m"
)

var colorEnabled = true

// DisableColors turns off ANSI escapes in Format.
func DisableColors() {
	colorEnabled = false
}

// EnableColors turns ANSI escapes back on.
func EnableColors() {
	colorEnabled = true
}

func paint(text string, codes ...string) string {
	if !colorEnabled || text == "" {
		return text
	}
	return strings.Join(codes, "") + text + ansiReset
}

// Format renders e for a terminal: a headline, then one labelled line per
// populated field.
func (e *ForgeError) Format() string {
	var b strings.Builder

	head := e.Message
	if e.Code != "" {
		head = e.Code + ": " + head
	}
	fmt.Fprintf(&b, "\n%s %s\n\n", paint("ERROR", ansiRed, ansiBold), paint(head, ansiBold))

	field := func(label, value, code string) {
		if value != "" {
			fmt.Fprintf(&b, "  %s %s\n", paint(label, code), value)
		}
	}
	field("Failed step:", string(e.Step), ansiYellow)
	field("File:", e.Location.String(), ansiCyan)
	for _, line := range wrapText(e.Detail, 70) {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	if e.Wrapped != nil {
		field("Cause:", e.Wrapped.Error(), ansiGray)
	}
	field("Hint:", e.Suggestion, ansiCyan)
	field("Learn more:", e.DocURL, ansiGray)

	b.WriteString("\n")
	return b.String()
}

// FormatCompact renders e on one line, in the file: code: message shape
// editors and CI logs pick up.
func (e *ForgeError) FormatCompact() string {
	var parts []string
	if loc := e.Location.String(); loc != "" {
		parts = append(parts, loc)
	}
	if e.Code != "" {
		parts = append(parts, e.Code)
	}
	msg := e.Message
	if e.Step != "" {
		msg = "[" + string(e.Step) + "] " + msg
	}
	if e.Wrapped != nil {
		msg += " (" + e.Wrapped.Error() + ")"
	}
	return strings.Join(append(parts, msg), ": ")
}

type jsonLocation struct {
	File string `json:"file"`
	Line int    `json:"line,omitempty"`
}

type jsonError struct {
	Code       string        `json:"code,omitempty"`
	Category   Category      `json:"category"`
	Message    string        `json:"message"`
	Step       Step          `json:"step,omitempty"`
	Detail     string        `json:"detail,omitempty"`
	Location   *jsonLocation `json:"location,omitempty"`
	Cause      string        `json:"cause,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
	DocURL     string        `json:"docUrl,omitempty"`
}

// FormatJSON renders e as a single JSON object.
func (e *ForgeError) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Step:       e.Step,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
		DocURL:     e.DocURL,
	}
	if e.Location != nil {
		out.Location = &jsonLocation{File: e.Location.File, Line: e.Location.Line}
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Message)
	}
	return string(data)
}

// wrapText breaks text into lines of at most width bytes, splitting on
// whitespace. A single word longer than width gets a line of its own.
func wrapText(text string, width int) []string {
	var (
		lines []string
		line  string
	)
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) > width:
			lines = append(lines, line)
			line = word
		default:
			line += " " + word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// Fprint writes err to w in format. An error with no ForgeError in its chain
// is rendered as a CLI error carrying its message.
func Fprint(w io.Writer, err error, format OutputFormat) {
	if err == nil {
		return
	}
	var fe *ForgeError
	if !stderrors.As(err, &fe) {
		fe = &ForgeError{Category: CategoryCLI, Message: err.Error()}
	}
	switch format {
	case OutputJSON:
		fmt.Fprintln(w, fe.FormatJSON())
	case OutputCompact:
		fmt.Fprintln(w, fe.FormatCompact())
	default:
		fmt.Fprint(w, fe.Format())
	}
}
