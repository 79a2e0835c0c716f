package workflow

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vango-dev/uiforge/internal/canvasfeed"
	"github.com/vango-dev/uiforge/internal/catalog"
	"github.com/vango-dev/uiforge/internal/errors"
	"github.com/vango-dev/uiforge/internal/ident"
	"github.com/vango-dev/uiforge/internal/refs"
	"github.com/vango-dev/uiforge/internal/scaffold"
	"github.com/vango-dev/uiforge/internal/telemetry"
	"github.com/vango-dev/uiforge/internal/walk"
)

// State is the workflow state.
type State int

const (
	Idle State = iota
	PendingPromotion
	Promoted
	PendingComposition
	Composed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingPromotion:
		return "pending-promotion"
	case Promoted:
		return "promoted"
	case PendingComposition:
		return "pending-composition"
	case Composed:
		return "composed"
	default:
		return "unknown"
	}
}

// pending reports whether s waits for a confirmation.
func (s State) pending() bool {
	return s == PendingPromotion || s == PendingComposition
}

// Notifier is told about every completed action.
type Notifier interface {
	Notify(ctx context.Context, ev canvasfeed.Event) error
}

// Reference kinds added to the canvas per action.
var (
	promotionKinds = map[string][]refs.Kind{
		".ts":   {refs.KindImport, refs.KindDependency},
		".html": {refs.KindPairedTag},
	}
	compositionKinds = map[string][]refs.Kind{
		".ts":   {refs.KindImport, refs.KindDependency},
		".html": {refs.KindConditional},
	}
)

// Workflow runs promote, compose and delete actions against a catalog, a
// scaffold generator and a source tree.
type Workflow struct {
	op sync.Mutex // held for the duration of every operation

	mu        sync.Mutex
	state     State
	target    string
	selection []string
	name      string

	catalog  *catalog.Store
	gen      scaffold.Generator
	walker   *walk.Walker
	locator  *refs.Locator
	mutator  *refs.Mutator
	notifier Notifier
	metrics  *telemetry.Metrics
	logger   *slog.Logger

	sourceRoot string
	canvasDir  string
	extensions []string
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithNotifier sets the canvas notifier.
func WithNotifier(n Notifier) Option {
	return func(w *Workflow) {
		w.notifier = n
	}
}

// WithMetrics records operation metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(w *Workflow) {
		w.metrics = m
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithSourceRoot sets the root of project-wide removal passes.
// Default: "src".
func WithSourceRoot(dir string) Option {
	return func(w *Workflow) {
		if dir != "" {
			w.sourceRoot = dir
		}
	}
}

// WithCanvasDir sets the directory reference additions are limited to.
// Default: "src/app/pages/components-canvas".
func WithCanvasDir(dir string) Option {
	return func(w *Workflow) {
		if dir != "" {
			w.canvasDir = dir
		}
	}
}

// WithExtensions sets the file extensions tree passes visit.
func WithExtensions(exts ...string) Option {
	return func(w *Workflow) {
		if len(exts) > 0 {
			w.extensions = exts
		}
	}
}

// WithMutator sets the mutator used by tree passes, for a custom import
// anchor.
func WithMutator(m *refs.Mutator) Option {
	return func(w *Workflow) {
		if m != nil {
			w.mutator = m
		}
	}
}

// New creates an Idle workflow.
func New(cat *catalog.Store, gen scaffold.Generator, walker *walk.Walker, opts ...Option) *Workflow {
	w := &Workflow{
		catalog:    cat,
		gen:        gen,
		walker:     walker,
		locator:    refs.NewLocator(refs.DefaultCacheSize),
		logger:     slog.Default(),
		sourceRoot: "src",
		canvasDir:  "src/app/pages/components-canvas",
		extensions: []string{".ts", ".html", ".scss", ".css"},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.mutator == nil {
		w.mutator = refs.NewMutator(refs.WithLocator(w.locator))
	}
	return w
}

// State returns the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Selection returns the pending composition and its derived name.
func (w *Workflow) Selection() ([]string, string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.selection...), w.name
}

// acquire takes the operation lock or fails with E205.
func (w *Workflow) acquire() error {
	if !w.op.TryLock() {
		return errors.New("E205")
	}
	return nil
}

func (w *Workflow) setState(s State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = s
	if s == Idle {
		w.target, w.selection, w.name = "", nil, ""
	}
}

// beginnable rejects a Begin while another request waits for confirmation.
func (w *Workflow) beginnable() error {
	if s := w.State(); s.pending() {
		return errors.New("E204").
			WithDetail("a " + s.String() + " request is waiting; confirm or cancel it first")
	}
	return nil
}

// BeginPromotion records a request to promote id to a shared component.
// Nothing is written until ConfirmPromotion.
func (w *Workflow) BeginPromotion(id string) error {
	if err := w.acquire(); err != nil {
		return err
	}
	defer w.op.Unlock()

	if err := w.beginnable(); err != nil {
		return err
	}
	if err := ident.Validate(id); err != nil {
		return err
	}
	if e, ok := w.catalog.Get(id); ok && e.IsSuperComponent {
		return errors.New("E202").
			WithDetail(id + " is a super component and cannot be promoted")
	}

	w.mu.Lock()
	w.state = PendingPromotion
	w.target = id
	w.mu.Unlock()
	w.logger.Debug("promotion pending", "id", id)
	return nil
}

// PromoteOptions controls ConfirmPromotion.
type PromoteOptions struct {
	// AddReferences adds the component to the canvas sources.
	AddReferences bool

	// Position is where the canvas should place the component.
	Position *canvasfeed.Position
}

// PromoteResult describes a completed promotion.
type PromoteResult struct {
	Entry    catalog.Entry
	Scaffold scaffold.Result
	Report   walk.Report
}

// ConfirmPromotion generates the component, marks it shared in the catalog
// and, when asked, adds its references to the canvas. A returned result
// with a non-nil error means the catalog was updated but the reference pass
// was partial.
func (w *Workflow) ConfirmPromotion(ctx context.Context, opts PromoteOptions) (res PromoteResult, err error) {
	if err := w.acquire(); err != nil {
		return PromoteResult{}, err
	}
	defer w.op.Unlock()

	w.mu.Lock()
	state, id := w.state, w.target
	w.mu.Unlock()
	if state != PendingPromotion {
		return PromoteResult{}, transition("confirm a promotion", state)
	}

	ctx, done := w.track(ctx, "promote", &err, attribute.String("component.id", id))
	defer done()
	log := w.logger.With("op", uuid.NewString(), "action", "promote", "id", id)

	res.Scaffold, err = w.gen.Generate(ctx, id)
	if err != nil {
		w.setState(Idle)
		return PromoteResult{}, atStep(err, errors.StepScaffold, "E211")
	}

	entry, ok := w.catalog.Get(id)
	if !ok {
		entry = catalog.Entry{ID: id, Category: "shared"}
	}
	entry.IsSharedComponent = true
	if err = w.catalog.Register(ctx, entry); err != nil {
		w.setState(Idle)
		return PromoteResult{}, atStep(err, errors.StepCatalog, "E240")
	}
	res.Entry, _ = w.catalog.Get(id)
	w.setState(Promoted)

	if opts.AddReferences {
		res.Report = w.addReferences(ctx, refs.Target{ID: id}, promotionKinds)
		err = res.Report.Err()
	}

	w.notify(ctx, canvasfeed.Event{
		Type:     canvasfeed.EventPromoted,
		ID:       id,
		Tag:      ident.TagName(id),
		Position: opts.Position,
	})
	log.Info("component promoted", "files", len(res.Scaffold.Created), "changed", len(res.Report.Changed))
	return res, err
}

// BeginComposition records a request to compose a super component over ids.
// The ids must name at least two distinct shared components, none of them
// super. An empty name derives one with DeriveName; a given name must be
// free.
func (w *Workflow) BeginComposition(ids []string, name string) error {
	if err := w.acquire(); err != nil {
		return err
	}
	defer w.op.Unlock()

	if err := w.beginnable(); err != nil {
		return err
	}

	selection := dedupe(ids)
	if len(selection) < 2 {
		return errors.New("E201").
			WithDetail("selected " + strings.Join(selection, ", ") + "; pick at least two distinct components")
	}
	for _, id := range selection {
		if err := ident.Validate(id); err != nil {
			return err
		}
		e, ok := w.catalog.Get(id)
		if !ok {
			return errors.New("E203").WithDetail(id + " is not in the catalog")
		}
		if e.IsSuperComponent {
			return errors.New("E202").WithDetail(id + " is a super component; super components cannot be wrapped")
		}
		if !e.IsSharedComponent {
			return errors.New("E202").
				WithDetail(id + " is not shared").
				WithSuggestion("Promote " + id + " before composing it")
		}
	}

	if name == "" {
		name = DeriveName(selection, w.taken)
	} else {
		if err := ident.Validate(name); err != nil {
			return err
		}
		if w.taken(name) {
			return errors.New("E202").
				WithDetail(name + " is already registered").
				WithSuggestion("Choose another name or leave it empty to derive one")
		}
	}

	w.mu.Lock()
	w.state = PendingComposition
	w.selection = selection
	w.name = name
	w.mu.Unlock()
	w.logger.Debug("composition pending", "name", name, "wraps", selection)
	return nil
}

// taken reports whether any spelling of name is registered.
func (w *Workflow) taken(name string) bool {
	for _, v := range ident.Variants(name) {
		if w.catalog.Has(v) {
			return true
		}
	}
	return false
}

// ComposeOptions controls ConfirmComposition.
type ComposeOptions struct {
	// AddReferences adds a case for the super component to the canvas.
	AddReferences bool

	// Position is where the canvas should place the component.
	Position *canvasfeed.Position
}

// ComposeResult describes a completed composition.
type ComposeResult struct {
	Entry    catalog.Entry
	Scaffold scaffold.Result
	Report   walk.Report
}

// ConfirmComposition generates the super component, writes its wrapper
// source and markup and registers it. The wrapped components are left as
// they are.
func (w *Workflow) ConfirmComposition(ctx context.Context, opts ComposeOptions) (res ComposeResult, err error) {
	if err := w.acquire(); err != nil {
		return ComposeResult{}, err
	}
	defer w.op.Unlock()

	w.mu.Lock()
	state, name := w.state, w.name
	wraps := append([]string(nil), w.selection...)
	w.mu.Unlock()
	if state != PendingComposition {
		return ComposeResult{}, transition("confirm a composition", state)
	}

	ctx, done := w.track(ctx, "compose", &err,
		attribute.String("component.id", name),
		attribute.StringSlice("component.wraps", wraps),
	)
	defer done()
	log := w.logger.With("op", uuid.NewString(), "action", "compose", "id", name)

	labels := scaffold.Labels(len(wraps))
	source, err := scaffold.WrapperSource(name, wraps, labels)
	if err != nil {
		w.setState(Idle)
		return ComposeResult{}, atStep(err, errors.StepScaffold, "E211")
	}
	markup, err := scaffold.WrapperMarkup(name, wraps, labels)
	if err != nil {
		w.setState(Idle)
		return ComposeResult{}, atStep(err, errors.StepScaffold, "E211")
	}

	if res.Scaffold, err = w.gen.Generate(ctx, name); err != nil {
		w.setState(Idle)
		return ComposeResult{}, atStep(err, errors.StepScaffold, "E211")
	}
	if err = w.gen.WriteSourceAndMarkup(ctx, name, source, markup); err != nil {
		w.setState(Idle)
		return ComposeResult{}, atStep(err, errors.StepScaffold, "E211")
	}

	category := ""
	if first, ok := w.catalog.Get(wraps[0]); ok {
		category = first.Category
	}
	entry := catalog.Entry{
		ID:               name,
		Category:         category,
		Description:      "Switches between " + strings.Join(wraps, ", "),
		IsSuperComponent: true,
		Wraps:            wraps,
		Variants:         labels,
	}
	if err = w.catalog.Register(ctx, entry); err != nil {
		w.setState(Idle)
		return ComposeResult{}, atStep(err, errors.StepCatalog, "E240")
	}
	res.Entry, _ = w.catalog.Get(name)
	w.setState(Composed)

	if opts.AddReferences {
		res.Report = w.addReferences(ctx, refs.Target{ID: name}, compositionKinds)
		err = res.Report.Err()
	}

	w.notify(ctx, canvasfeed.Event{
		Type:     canvasfeed.EventComposed,
		ID:       name,
		Tag:      ident.TagName(name),
		Wraps:    wraps,
		Position: opts.Position,
	})
	log.Info("super component composed", "wraps", wraps, "changed", len(res.Report.Changed))
	return res, err
}

// Cancel drops a pending request. Nothing has been written at that point,
// so there is nothing to undo.
func (w *Workflow) Cancel() error {
	if err := w.acquire(); err != nil {
		return err
	}
	defer w.op.Unlock()

	if s := w.State(); s != Idle {
		w.logger.Debug("workflow cancelled", "state", s.String())
	}
	w.setState(Idle)
	return nil
}

// DeleteResult describes a deletion or clean.
type DeleteResult struct {
	ID string

	// Unregistered lists the catalog ids removed, one per spelling found.
	Unregistered []string

	// Deleted lists the spellings whose component files were removed.
	Deleted []string

	Report walk.Report

	// Dangling lists super components still wrapping the removed ids.
	Dangling []catalog.DanglingRef
}

// Delete removes the files of id, its catalog entries and every reference
// to it across the source tree. Components a deleted super component wraps
// are not touched. A pending request is dropped.
func (w *Workflow) Delete(ctx context.Context, id string) (res DeleteResult, err error) {
	if err := w.acquire(); err != nil {
		return DeleteResult{}, err
	}
	defer w.op.Unlock()

	ctx, done := w.track(ctx, "delete", &err, attribute.String("component.id", id))
	defer done()
	return w.remove(ctx, id, true)
}

// Clean unregisters id and removes its references without deleting its
// files.
func (w *Workflow) Clean(ctx context.Context, id string) (res DeleteResult, err error) {
	if err := w.acquire(); err != nil {
		return DeleteResult{}, err
	}
	defer w.op.Unlock()

	ctx, done := w.track(ctx, "clean", &err, attribute.String("component.id", id))
	defer done()
	return w.remove(ctx, id, false)
}

func (w *Workflow) remove(ctx context.Context, id string, deleteFiles bool) (DeleteResult, error) {
	if err := ident.Validate(id); err != nil {
		return DeleteResult{}, err
	}
	w.setState(Idle)

	variants := ident.Variants(id)
	res := DeleteResult{ID: id}
	log := w.logger.With("op", uuid.NewString(), "action", "delete", "id", id)

	if deleteFiles {
		for _, v := range variants {
			ok, err := w.gen.Exists(ctx, v)
			if err != nil {
				return res, atStep(err, errors.StepScaffold, "E211")
			}
			if !ok {
				continue
			}
			if err := w.gen.Delete(ctx, v); err != nil {
				return res, atStep(err, errors.StepScaffold, "E211")
			}
			res.Deleted = append(res.Deleted, v)
		}
	}

	for _, v := range variants {
		ok, err := w.catalog.Unregister(ctx, v)
		if err != nil {
			return res, atStep(err, errors.StepCatalog, "E240")
		}
		if ok {
			res.Unregistered = append(res.Unregistered, v)
		}
	}

	res.Report = w.walker.Walk(ctx, w.sourceRoot, w.extensions,
		walk.RemoveReferences(variants, walk.WithLocator(w.locator), walk.WithMutator(w.mutator)))

	removed := make(map[string]bool, len(variants))
	for _, v := range variants {
		removed[v] = true
	}
	for _, d := range w.catalog.Dangling() {
		for _, m := range d.Missing {
			if removed[m] {
				res.Dangling = append(res.Dangling, d)
				break
			}
		}
	}
	for _, d := range res.Dangling {
		log.Warn("super component wraps a removed component", "super", d.Super, "missing", d.Missing)
	}

	w.notify(ctx, canvasfeed.Event{Type: canvasfeed.EventDeleted, ID: id})
	log.Info("component removed",
		"files", deleteFiles,
		"unregistered", res.Unregistered,
		"changed", len(res.Report.Changed),
	)
	return res, res.Report.Err()
}

// SyncResult describes a SyncSuperComponents pass.
type SyncResult struct {
	Synced  []string
	Missing []string
	Report  walk.Report
}

// SyncSuperComponents adds the canvas references of every super component
// whose files exist. Super components without files are listed in Missing.
func (w *Workflow) SyncSuperComponents(ctx context.Context) (res SyncResult, err error) {
	if err := w.acquire(); err != nil {
		return SyncResult{}, err
	}
	defer w.op.Unlock()

	ctx, done := w.track(ctx, "sync", &err)
	defer done()

	for _, e := range w.catalog.Super() {
		ok, err := w.gen.Exists(ctx, e.ID)
		if err != nil {
			return res, atStep(err, errors.StepScaffold, "E211")
		}
		if !ok {
			res.Missing = append(res.Missing, e.ID)
			w.logger.Warn("super component has no files", "id", e.ID)
			continue
		}
		res.Report.Merge(w.addReferences(ctx, refs.Target{ID: e.ID}, compositionKinds))
		res.Synced = append(res.Synced, e.ID)
	}

	res.Report.Changed = dedupe(res.Report.Changed)
	w.logger.Info("super components synced", "synced", len(res.Synced), "missing", len(res.Missing))
	return res, res.Report.Err()
}

// CanvasElement is the part of a canvas element the engine reads.
type CanvasElement struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// IsShared reports whether el renders a file-backed component.
func (w *Workflow) IsShared(el CanvasElement) bool {
	e, ok := w.catalog.Get(el.Type)
	return ok && e.FileBacked()
}

func (w *Workflow) addReferences(ctx context.Context, t refs.Target, kinds map[string][]refs.Kind) walk.Report {
	return w.walker.Walk(ctx, w.canvasDir, w.extensions,
		walk.AddReferences(t, walk.WithKinds(kinds), walk.WithLocator(w.locator), walk.WithMutator(w.mutator)))
}

func (w *Workflow) notify(ctx context.Context, ev canvasfeed.Event) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.Notify(ctx, ev); err != nil {
		w.logger.Warn("canvas notification failed", "type", ev.Type, "id", ev.ID, "error", err)
	}
}

// track opens a span and returns the func recording the outcome in *errp.
func (w *Workflow) track(ctx context.Context, op string, errp *error, attrs ...attribute.KeyValue) (context.Context, func()) {
	start := time.Now()
	ctx, span := telemetry.Start(ctx, op, attrs...)
	return ctx, func() {
		telemetry.End(span, *errp)
		w.metrics.ObserveOperation(op, time.Since(start), *errp)
	}
}

// atStep tags err with step, wrapping plain errors in code.
func atStep(err error, step errors.Step, code string) error {
	fe := errors.FromError(err, code)
	if fe.Step == "" {
		fe.WithStep(step)
	}
	return fe
}

func transition(action string, s State) error {
	return errors.New("E204").WithDetail("cannot " + action + " while " + s.String())
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
