package scaffold

import (
	"context"
	"log/slog"
	"path"

	"github.com/vango-dev/uiforge/internal/errors"
	"github.com/vango-dev/uiforge/internal/filestore"
	"github.com/vango-dev/uiforge/internal/ident"
)

// Local generates components from templates through a file store.
type Local struct {
	store         filestore.Store
	componentsDir string
	logger        *slog.Logger
}

// LocalOption configures a Local generator.
type LocalOption func(*Local)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) LocalOption {
	return func(l *Local) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLocal creates a generator writing under componentsDir in store.
func NewLocal(store filestore.Store, componentsDir string, opts ...LocalOption) *Local {
	l := &Local{
		store:         store,
		componentsDir: componentsDir,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Local) dir(id string) string {
	return path.Join(l.componentsDir, ident.ComponentDir(id))
}

// Generate writes the source, markup and style files of id.
func (l *Local) Generate(ctx context.Context, id string) (Result, error) {
	if err := ident.Validate(id); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, unavailable(err)
	}

	data := newComponentData(id)
	dir := l.dir(id)
	res := Result{ComponentPath: ComponentPath(l.componentsDir, id)}

	for _, f := range []struct {
		name     string
		template string
	}{
		{sourceFile(id), "source"},
		{markupFile(id), "markup"},
		{styleFile(id), "style"},
	} {
		res.Files = append(res.Files, f.name)
		full := path.Join(dir, f.name)
		if l.store.Exists(full) {
			continue
		}
		text, err := render(f.template, data)
		if err != nil {
			return Result{}, err
		}
		if err := l.store.WriteText(full, text); err != nil {
			return Result{}, failed(id, "write "+full, err)
		}
		res.Created = append(res.Created, f.name)
	}

	l.logger.Info("component generated", "id", id, "path", res.ComponentPath, "created", len(res.Created))
	return res, nil
}

// Delete removes the component directory of id.
func (l *Local) Delete(ctx context.Context, id string) error {
	if err := ident.Validate(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	if err := l.store.DeleteTree(l.dir(id)); err != nil {
		return failed(id, "delete "+l.dir(id), err)
	}
	l.logger.Info("component deleted", "id", id)
	return nil
}

// WriteSourceAndMarkup replaces the source and markup files of id.
func (l *Local) WriteSourceAndMarkup(ctx context.Context, id, source, markup string) error {
	if err := ident.Validate(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	dir := l.dir(id)
	if source != "" {
		if err := l.store.WriteText(path.Join(dir, sourceFile(id)), source); err != nil {
			return failed(id, "write source", err)
		}
	}
	if markup != "" {
		if err := l.store.WriteText(path.Join(dir, markupFile(id)), markup); err != nil {
			return failed(id, "write markup", err)
		}
	}
	return nil
}

// Exists reports whether the source file of id exists.
func (l *Local) Exists(_ context.Context, id string) (bool, error) {
	if err := ident.Validate(id); err != nil {
		return false, err
	}
	return l.store.Exists(path.Join(l.dir(id), sourceFile(id))), nil
}

func failed(id, what string, err error) *errors.ForgeError {
	return errors.New("E211").
		WithStep(errors.StepScaffold).
		WithDetail(what + " failed for " + id).
		Wrap(err)
}

func unavailable(err error) *errors.ForgeError {
	return errors.New("E210").WithStep(errors.StepScaffold).Wrap(err)
}
