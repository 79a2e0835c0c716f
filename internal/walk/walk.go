// Package walk applies a per-file rewrite to every eligible file under a
// project root.
//
// A walk is exhaustive and best-effort: a file that cannot be read or
// written is recorded and the walk continues. Files already rewritten stay
// rewritten; there is no rollback.
package walk

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vango-dev/uiforge/internal/errors"
	"github.com/vango-dev/uiforge/internal/filestore"
	"github.com/vango-dev/uiforge/internal/refs"
	"github.com/vango-dev/uiforge/internal/telemetry"
)

// Outcome is what a Visitor did to one file.
type Outcome struct {
	Text        string
	Changed     bool
	Corrections []refs.Correction

	// Op and Applied describe the rewritten sites, for metrics.
	Op      refs.Op
	Applied []refs.Kind
}

// Visitor rewrites the text of one file. Returning an E220 error marks the
// file unresolved and leaves it untouched.
type Visitor func(ctx context.Context, path, text string) (Outcome, error)

// Failure is a file the walk could not process.
type Failure struct {
	Path string
	Err  error
}

func (f Failure) String() string {
	return f.Path + ": " + f.Err.Error()
}

// FileCorrection is a structural correction applied to one file.
type FileCorrection struct {
	Path string
	refs.Correction
}

// Report summarizes a walk. Changed lists each modified file exactly once.
type Report struct {
	Visited     int
	Changed     []string
	Failed      []Failure
	Corrections []FileCorrection

	// Unresolved lists files left untouched because rewriting them would
	// have produced unbalanced braces.
	Unresolved []Failure
}

// Merge appends other's results to r.
func (r *Report) Merge(other Report) {
	r.Visited += other.Visited
	r.Changed = append(r.Changed, other.Changed...)
	r.Failed = append(r.Failed, other.Failed...)
	r.Corrections = append(r.Corrections, other.Corrections...)
	r.Unresolved = append(r.Unresolved, other.Unresolved...)
}

// Err returns an E230 error when any file failed or was unresolved, nil
// otherwise. The error detail lists both the changed and the failed files.
func (r Report) Err() error {
	if len(r.Failed) == 0 && len(r.Unresolved) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d changed, %d failed, %d unresolved", len(r.Changed), len(r.Failed), len(r.Unresolved))
	for _, p := range r.Changed {
		b.WriteString("; changed ")
		b.WriteString(p)
	}
	for _, f := range r.Failed {
		b.WriteString("; failed ")
		b.WriteString(f.String())
	}
	for _, f := range r.Unresolved {
		b.WriteString("; unresolved ")
		b.WriteString(f.String())
	}

	err := errors.New("E230").WithStep(errors.StepFileTree).WithDetail(b.String())
	switch {
	case len(r.Failed) > 0:
		err.Wrap(r.Failed[0].Err)
	default:
		err.Wrap(r.Unresolved[0].Err)
	}
	return err
}

// Walker runs visitors over a file tree.
type Walker struct {
	store   filestore.Store
	skip    []string
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// Option configures a Walker.
type Option func(*Walker)

// WithSkip replaces the directory names skipped at any depth.
func WithSkip(names ...string) Option {
	return func(w *Walker) {
		w.skip = names
	}
}

// WithMetrics records walk metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(w *Walker) {
		w.metrics = m
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Walker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a Walker reading and writing through store.
func New(store filestore.Store, opts ...Option) *Walker {
	w := &Walker{
		store:  store,
		skip:   DefaultSkip,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Walk visits every file under root whose extension is in extensions,
// skipping paths with a segment named in the skip list. Each rewritten file
// is written before it is counted. A started walk runs to completion: ctx
// carries values to visit but its cancellation is ignored, so a report never
// stops halfway through the tree.
func (w *Walker) Walk(ctx context.Context, root string, extensions []string, visit Visitor) Report {
	var report Report
	ctx = context.WithoutCancel(ctx)

	files, err := w.store.ListFiles(root, extensions)
	if err != nil {
		report.Failed = append(report.Failed, Failure{Path: root, Err: err})
		w.metrics.FileFailed()
		return report
	}

	seen := make(map[string]struct{}, len(files))
	paths := make([]string, 0, len(files))
	for _, f := range files {
		p := filepath.Clean(f)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		if w.isSkipped(root, p) {
			continue
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		w.visitFile(ctx, p, visit, &report)
	}

	w.logger.Debug("walk finished",
		"root", root,
		"visited", report.Visited,
		"changed", len(report.Changed),
		"failed", len(report.Failed),
		"unresolved", len(report.Unresolved),
	)
	return report
}

func (w *Walker) visitFile(ctx context.Context, path string, visit Visitor, report *Report) {
	report.Visited++
	w.metrics.FileScanned()

	text, err := w.store.ReadText(path)
	if err != nil {
		w.fail(report, path, err)
		return
	}

	out, err := visit(ctx, path, text)
	if err != nil {
		if errors.Is(err, "E220") {
			fe := errors.FromError(err, "E220")
			fe.WithLocation(path, 0)
			report.Unresolved = append(report.Unresolved, Failure{Path: path, Err: fe})
			w.logger.Warn("file left untouched: unbalanced braces", "path", path)
			return
		}
		w.fail(report, path, err)
		return
	}
	if !out.Changed || out.Text == text {
		return
	}

	if err := w.store.WriteText(path, out.Text); err != nil {
		w.fail(report, path, err)
		return
	}

	report.Changed = append(report.Changed, path)
	w.metrics.FileChanged()
	for _, k := range out.Applied {
		w.metrics.Mutation(string(k), out.Op.String())
	}
	for _, c := range out.Corrections {
		report.Corrections = append(report.Corrections, FileCorrection{Path: path, Correction: c})
		w.logger.Warn("structural correction applied", "path", path, "correction", c.String())
	}
	w.metrics.Corrections(len(out.Corrections))
}

func (w *Walker) fail(report *Report, path string, err error) {
	report.Failed = append(report.Failed, Failure{Path: path, Err: err})
	w.metrics.FileFailed()
	w.logger.Warn("file skipped", "path", path, "error", err)
}

func (w *Walker) isSkipped(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		rel = p
	}
	return skipped(filepath.ToSlash(rel), w.skip)
}
