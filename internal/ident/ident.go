// Package ident derives the spellings and generated names of a component
// identifier.
//
// Identifiers drift over time: the same component may be referenced as
// "app-app-card", "app-card" or "card". Every reference pass searches for all
// of Variants(id), and every name derived from an identifier (class name,
// tag name, import module) comes from this package so the locator, the
// mutator and the scaffold generator never disagree.
package ident

import (
	"regexp"
	"strings"

	"github.com/vango-dev/uiforge/internal/errors"
)

// Namespace is the framework's component selector prefix.
const Namespace = "app"

// ClassSuffix is appended to every generated component class name.
const ClassSuffix = "Component"

const prefix = Namespace + "-"

var validID = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// Validate reports whether id is an acceptable component identifier.
func Validate(id string) error {
	if id == "" {
		return errors.New("E200").WithDetail("identifier is empty")
	}
	if !validID.MatchString(id) {
		return errors.New("E200").
			WithDetail("identifier " + quote(id) + " contains characters outside [A-Za-z0-9-]").
			WithSuggestion("Use only letters, numbers, and dashes")
	}
	return nil
}

// Variants returns id followed by every distinct spelling obtained by
// stripping a doubled namespace prefix, a single prefix, or both. The result
// is closed under those operations, so Variants of any member is a subset.
func Variants(id string) []string {
	seen := map[string]struct{}{id: {}}
	out := []string{id}
	for i := 0; i < len(out); i++ {
		cur := out[i]
		for _, next := range []string{
			stripDoubled(cur),
			strings.TrimPrefix(cur, prefix),
			strings.TrimPrefix(stripDoubled(cur), prefix),
		} {
			if next == "" {
				continue
			}
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			out = append(out, next)
		}
	}
	return out
}

func stripDoubled(id string) string {
	if strings.HasPrefix(id, prefix+prefix) {
		return strings.TrimPrefix(id, prefix)
	}
	return id
}

// Base strips every leading namespace prefix from id.
func Base(id string) string {
	for strings.HasPrefix(id, prefix) && len(id) > len(prefix) {
		id = strings.TrimPrefix(id, prefix)
	}
	return id
}

// ClassName returns the generated type name for id: each dash-separated
// segment capitalized, concatenated, with ClassSuffix appended.
//
//	ClassName("secondary-button") == "SecondaryButtonComponent"
func ClassName(id string) string {
	var b strings.Builder
	for _, part := range strings.Split(id, "-") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	b.WriteString(ClassSuffix)
	return b.String()
}

// TagName returns the element selector for id, always carrying exactly one
// namespace prefix.
func TagName(id string) string {
	return prefix + strings.TrimPrefix(id, prefix)
}

// ImportModule returns the module path of id's component relative to the
// components directory, without extension.
func ImportModule(id string) string {
	return id + "/" + id + ".component"
}

// ComponentDir returns the directory name holding id's component files.
func ComponentDir(id string) string {
	return id
}

// Words splits id into its dash-separated words with the namespace stripped.
func Words(id string) []string {
	base := Base(id)
	if base == "" {
		return nil
	}
	return strings.Split(base, "-")
}

func quote(s string) string {
	return "'" + s + "'"
}
