package scaffold

import (
	"context"
	"path"

	"github.com/vango-dev/uiforge/internal/ident"
)

// Generator creates and removes component files.
type Generator interface {
	// Generate writes the boilerplate files for id. Files that already
	// exist are kept.
	Generate(ctx context.Context, id string) (Result, error)

	// Delete removes the component directory of id.
	Delete(ctx context.Context, id string) error

	// WriteSourceAndMarkup replaces the source and markup files of id. An
	// empty text leaves that file alone.
	WriteSourceAndMarkup(ctx context.Context, id, source, markup string) error

	// Exists reports whether the source file of id exists.
	Exists(ctx context.Context, id string) (bool, error)
}

// Result describes a generated component.
type Result struct {
	ComponentPath string   `json:"componentPath"`
	Files         []string `json:"files"`

	// Created lists the files Generate wrote; the rest already existed.
	Created []string `json:"created,omitempty"`
}

// File names of a component, relative to its directory.
func sourceFile(id string) string { return id + ".component.ts" }
func markupFile(id string) string { return id + ".component.html" }
func styleFile(id string) string  { return id + ".component.scss" }

// FileNames returns the three file names generated for id.
func FileNames(id string) []string {
	return []string{sourceFile(id), markupFile(id), styleFile(id)}
}

// ComponentPath returns the directory of id under componentsDir, with a
// trailing slash.
func ComponentPath(componentsDir, id string) string {
	return path.Join(componentsDir, ident.ComponentDir(id)) + "/"
}
