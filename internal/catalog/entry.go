// Package catalog is the persisted registry of components and their
// promotion and composition state.
//
// Every mutating call persists the whole catalog before returning. A failed
// save rolls the in-memory state back, so the store never reports a state
// the durable document does not hold.
package catalog

import (
	"path"
	"strings"
	"time"

	"github.com/vango-dev/uiforge/internal/ident"
)

// StatusActive is the only entry status.
const StatusActive = "active"

// Entry is one catalog record.
type Entry struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"displayName"`
	Category     string    `json:"category"`
	Description  string    `json:"description"`
	HTMLSelector string    `json:"htmlSelector"`
	Status       string    `json:"status"`
	RegisteredAt time.Time `json:"registeredAt"`

	IsSharedComponent bool `json:"isSharedComponent,omitempty"`

	// ComponentPath and ComponentTag are derived from ID on every mutation
	// for file-backed entries and never trusted from input.
	ComponentPath string `json:"componentPath,omitempty"`
	ComponentTag  string `json:"componentTag,omitempty"`

	IsSuperComponent bool `json:"isSuperComponent,omitempty"`

	// Wraps lists the ids a super component switches between; Variants
	// holds the variant label of each, index-aligned.
	Wraps    []string `json:"wraps,omitempty"`
	Variants []string `json:"variants,omitempty"`
}

// FileBacked reports whether the entry has generated component files.
func (e Entry) FileBacked() bool {
	return e.IsSharedComponent || e.IsSuperComponent
}

func (e Entry) clone() Entry {
	e.Wraps = append([]string(nil), e.Wraps...)
	e.Variants = append([]string(nil), e.Variants...)
	if len(e.Wraps) == 0 {
		e.Wraps = nil
	}
	if len(e.Variants) == 0 {
		e.Variants = nil
	}
	return e
}

// derive fills defaults and recomputes the derived fields.
func derive(e Entry, componentsDir string) Entry {
	if e.Status == "" {
		e.Status = StatusActive
	}
	if e.HTMLSelector == "" {
		e.HTMLSelector = ident.TagName(e.ID)
	}
	if e.DisplayName == "" {
		e.DisplayName = DisplayName(e.ID)
	}

	e.ComponentPath, e.ComponentTag = "", ""
	if e.FileBacked() {
		e.ComponentPath = path.Join(componentsDir, ident.ComponentDir(e.ID)) + "/"
		tag := ident.TagName(e.ID)
		e.ComponentTag = "<" + tag + "></" + tag + ">"
	}
	return e
}

// DisplayName returns a title-cased name for id.
//
//	DisplayName("app-secondary-button") == "Secondary Button"
func DisplayName(id string) string {
	words := ident.Words(id)
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// DanglingRef is a super entry whose wraps name ids absent from the catalog.
type DanglingRef struct {
	Super   string
	Missing []string
}
