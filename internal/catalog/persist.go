package catalog

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/vango-dev/uiforge/internal/errors"
	"github.com/vango-dev/uiforge/internal/filestore"
)

// FilePersister keeps the catalog in a JSON document. Saves go through the
// store's atomic write, so a crash leaves the previous document intact.
type FilePersister struct {
	store filestore.Store
	path  string
}

// NewFilePersister persists the catalog to path on disk.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{store: filestore.NewOS(), path: path}
}

// NewFilePersisterOn persists the catalog to path in store.
func NewFilePersisterOn(store filestore.Store, path string) *FilePersister {
	return &FilePersister{store: store, path: path}
}

// Path returns the document path.
func (p *FilePersister) Path() string {
	return p.path
}

// Load reads the document. A missing document is not an error.
func (p *FilePersister) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := p.store.ReadText(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.New("E241").WithLocation(p.path, 0).Wrap(err)
	}
	return Decode([]byte(text), p.path)
}

// Save writes snap as indented JSON.
func (p *FilePersister) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	if err := p.store.WriteText(p.path, string(data)); err != nil {
		return errors.New("E240").WithLocation(p.path, 0).Wrap(err)
	}
	return nil
}

// Encode renders snap as the persisted JSON document.
func Encode(snap Snapshot) ([]byte, error) {
	if snap.RegisteredComponents == nil {
		snap.RegisteredComponents = map[string]Entry{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, errors.New("E240").Wrap(err)
	}
	return append(data, '\n'), nil
}

// Decode parses a persisted JSON document. source names it in errors.
func Decode(data []byte, source string) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.New("E241").
			WithLocation(source, 0).
			WithDetail("Failed to parse catalog document: " + err.Error()).
			Wrap(err)
	}
	if snap.RegisteredComponents == nil {
		snap.RegisteredComponents = map[string]Entry{}
	}
	return &snap, nil
}

// MemoryPersister keeps the last saved snapshot in memory.
type MemoryPersister struct {
	mu    sync.Mutex
	snap  *Snapshot
	saves int

	// FailSave, when set, is returned by every Save.
	FailSave error
}

// NewMemoryPersister creates a MemoryPersister, optionally holding an
// initial snapshot.
func NewMemoryPersister(initial *Snapshot) *MemoryPersister {
	p := &MemoryPersister{}
	if initial != nil {
		c := copySnapshot(*initial)
		p.snap = &c
	}
	return p
}

// Load returns the last saved snapshot.
func (p *MemoryPersister) Load(context.Context) (*Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snap == nil {
		return nil, nil
	}
	c := copySnapshot(*p.snap)
	return &c, nil
}

// Save stores a copy of snap.
func (p *MemoryPersister) Save(_ context.Context, snap Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailSave != nil {
		return p.FailSave
	}
	c := copySnapshot(snap)
	p.snap = &c
	p.saves++
	return nil
}

// Saves returns the number of successful saves.
func (p *MemoryPersister) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

func copySnapshot(s Snapshot) Snapshot {
	components := make(map[string]Entry, len(s.RegisteredComponents))
	for id, e := range s.RegisteredComponents {
		components[id] = e.clone()
	}
	s.RegisteredComponents = components
	return s
}
