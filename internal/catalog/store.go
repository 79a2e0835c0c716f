package catalog

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/uiforge/internal/errors"
	"github.com/vango-dev/uiforge/internal/ident"
)

const (
	// DefaultCatalogID is the catalogId of new documents.
	DefaultCatalogID = "design-system-v1"

	// DefaultVersion is the version of new documents.
	DefaultVersion = "1.0.0"

	// DefaultComponentsDir prefixes every derived componentPath.
	DefaultComponentsDir = "src/app/components"
)

// Snapshot is the persisted form of the catalog.
type Snapshot struct {
	CatalogID   string    `json:"catalogId"`
	Version     string    `json:"version"`
	LastUpdated time.Time `json:"lastUpdated"`

	// SnapshotID identifies one export or save.
	SnapshotID string `json:"snapshotId,omitempty"`

	RegisteredComponents map[string]Entry `json:"registeredComponents"`
}

// Persister loads and saves catalog snapshots. Load returns a nil snapshot
// and no error when nothing has been saved yet.
type Persister interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Store is the in-memory catalog backed by a Persister. It is safe for
// concurrent use.
type Store struct {
	mu        sync.RWMutex
	entries   map[string]Entry
	persister Persister

	catalogID     string
	version       string
	componentsDir string
	seed          []Entry
	now           func() time.Time
	logger        *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithDocument sets the catalogId and version written to saved snapshots.
func WithDocument(catalogID, version string) Option {
	return func(s *Store) {
		if catalogID != "" {
			s.catalogID = catalogID
		}
		if version != "" {
			s.version = version
		}
	}
}

// WithComponentsDir sets the directory derived componentPaths live under.
func WithComponentsDir(dir string) Option {
	return func(s *Store) {
		if dir != "" {
			s.componentsDir = dir
		}
	}
}

// WithSeed preloads entries before the persisted document is merged in.
// Document entries win on conflicting ids.
func WithSeed(entries ...Entry) Option {
	return func(s *Store) {
		s.seed = append(s.seed, entries...)
	}
}

// WithClock sets the time source for registeredAt and lastUpdated.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open loads the catalog from p, creating an empty document if none
// exists. Persisted entries are merged over any seeded entries.
func Open(ctx context.Context, p Persister, opts ...Option) (*Store, error) {
	s := &Store{
		entries:       make(map[string]Entry),
		persister:     p,
		catalogID:     DefaultCatalogID,
		version:       DefaultVersion,
		componentsDir: DefaultComponentsDir,
		now:           func() time.Time { return time.Now().UTC() },
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, e := range s.seed {
		if ident.Validate(e.ID) != nil {
			continue
		}
		s.entries[e.ID] = derive(e.clone(), s.componentsDir)
	}

	snap, err := p.Load(ctx)
	if err != nil {
		return nil, errors.FromError(err, "E241").WithStep(errors.StepCatalog)
	}

	if snap != nil {
		for id, e := range snap.RegisteredComponents {
			if e.ID == "" {
				e.ID = id
			}
			s.entries[e.ID] = derive(e.clone(), s.componentsDir)
		}
	}

	if snap == nil || len(s.seed) > 0 {
		if err := s.persist(ctx); err != nil {
			return nil, err
		}
	}

	s.logger.Debug("catalog opened", "entries", len(s.entries))
	return s, nil
}

// Close flushes the catalog to its persister.
func (s *Store) Close(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persist(ctx)
}

// Register upserts e. An existing entry's registeredAt is kept; the derived
// fields are recomputed. The catalog is saved before Register returns.
func (s *Store) Register(ctx context.Context, e Entry) error {
	if err := ident.Validate(e.ID); err != nil {
		return err
	}
	if e.IsSuperComponent && len(e.Wraps) < 2 {
		return errors.New("E201").
			WithDetail("super component " + e.ID + " must wrap at least 2 components")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.entries[e.ID]
	e = e.clone()
	switch {
	case had && !prev.RegisteredAt.IsZero():
		e.RegisteredAt = prev.RegisteredAt
	case e.RegisteredAt.IsZero():
		e.RegisteredAt = s.now()
	}
	s.entries[e.ID] = derive(e, s.componentsDir)

	if err := s.persist(ctx); err != nil {
		if had {
			s.entries[e.ID] = prev
		} else {
			delete(s.entries, e.ID)
		}
		return err
	}

	s.logger.Info("component registered",
		"id", e.ID,
		"shared", e.IsSharedComponent,
		"super", e.IsSuperComponent,
	)
	return nil
}

// Unregister removes id and reports whether it existed. Nothing is saved
// when id was absent.
func (s *Store) Unregister(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.entries[id]
	if !had {
		return false, nil
	}
	delete(s.entries, id)

	if err := s.persist(ctx); err != nil {
		s.entries[id] = prev
		return false, err
	}

	s.logger.Info("component unregistered", "id", id)
	return true, nil
}

// Get returns the entry for id.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Has reports whether id is registered.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[id]
	return ok
}

// ListAll returns every entry ordered by id.
func (s *Store) ListAll() []Entry {
	return s.filter(func(Entry) bool { return true })
}

// Shared returns the shared entries, super entries included.
func (s *Store) Shared() []Entry {
	return s.filter(Entry.FileBacked)
}

// Super returns the super entries.
func (s *Store) Super() []Entry {
	return s.filter(func(e Entry) bool { return e.IsSuperComponent })
}

func (s *Store) filter(keep func(Entry) bool) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if keep(e) {
			out = append(out, e.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Dangling returns the super entries wrapping ids that are no longer
// registered, ordered by super id.
func (s *Store) Dangling() []DanglingRef {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []DanglingRef
	for _, e := range s.entries {
		if !e.IsSuperComponent {
			continue
		}
		var missing []string
		for _, w := range e.Wraps {
			if _, ok := s.entries[w]; !ok {
				missing = append(missing, w)
			}
		}
		if len(missing) > 0 {
			out = append(out, DanglingRef{Super: e.ID, Missing: missing})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Super < out[j].Super })
	return out
}

// Export returns a snapshot of the whole catalog.
func (s *Store) Export() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Import merges snap into the catalog: its entries replace those with the
// same id, others are kept. An entry already registered keeps its earlier
// registeredAt, so importing the same snapshot twice leaves the same entries.
func (s *Store) Import(ctx context.Context, snap Snapshot) error {
	for id, e := range snap.RegisteredComponents {
		if e.ID == "" {
			e.ID = id
		}
		if err := ident.Validate(e.ID); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := make(map[string]Entry, len(s.entries))
	for id, e := range s.entries {
		prev[id] = e
	}
	for id, e := range snap.RegisteredComponents {
		if e.ID == "" {
			e.ID = id
		}
		if old, ok := s.entries[e.ID]; ok && !old.RegisteredAt.IsZero() &&
			(e.RegisteredAt.IsZero() || old.RegisteredAt.Before(e.RegisteredAt)) {
			e.RegisteredAt = old.RegisteredAt
		}
		if e.RegisteredAt.IsZero() {
			e.RegisteredAt = s.now()
		}
		s.entries[e.ID] = derive(e.clone(), s.componentsDir)
	}

	if err := s.persist(ctx); err != nil {
		s.entries = prev
		return err
	}
	s.logger.Info("catalog imported", "entries", len(snap.RegisteredComponents))
	return nil
}

func (s *Store) snapshot() Snapshot {
	components := make(map[string]Entry, len(s.entries))
	for id, e := range s.entries {
		components[id] = e.clone()
	}
	return Snapshot{
		CatalogID:            s.catalogID,
		Version:              s.version,
		LastUpdated:          s.now(),
		SnapshotID:           uuid.NewString(),
		RegisteredComponents: components,
	}
}

// persist saves the current state. Callers hold s.mu.
func (s *Store) persist(ctx context.Context) error {
	if err := s.persister.Save(ctx, s.snapshot()); err != nil {
		return errors.FromError(err, "E240").WithStep(errors.StepCatalog)
	}
	return nil
}
