package workflow

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/vango-dev/uiforge/internal/canvasfeed"
	"github.com/vango-dev/uiforge/internal/catalog"
	"github.com/vango-dev/uiforge/internal/errors"
	"github.com/vango-dev/uiforge/internal/filestore"
	"github.com/vango-dev/uiforge/internal/scaffold"
	"github.com/vango-dev/uiforge/internal/walk"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

const (
	canvasTS   = "src/app/pages/components-canvas/components-canvas.component.ts"
	canvasHTML = "src/app/pages/components-canvas/components-canvas.component.html"
)

var canvasFiles = map[string]string{
	canvasTS: "import { Component } from '@angular/core';\n" +
		"import { CommonModule } from '@angular/common';\n" +
		"\n" +
		"declare var initFlowbite: () => void;\n" +
		"\n" +
		"@Component({\n" +
		"  selector: 'app-components-canvas',\n" +
		"  imports: [CommonModule],\n" +
		"  templateUrl: './components-canvas.component.html'\n" +
		"})\n" +
		"export class ComponentsCanvasComponent {}\n",
	canvasHTML: "@for (element of elements; track element.id) {\n" +
		"  @if (element.type === 'card3') {\n" +
		"    <div class=\"card\">Card 3</div>\n" +
		"  }\n" +
		"  <!-- Super Component Rendering -->\n" +
		"  @switch (element.type) {\n" +
		"  }\n" +
		"}\n",
}

type recorder struct {
	mu     sync.Mutex
	events []canvasfeed.Event
}

func (r *recorder) Notify(_ context.Context, ev canvasfeed.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

type failingGenerator struct {
	scaffold.Generator
	err error
}

func (f failingGenerator) Generate(context.Context, string) (scaffold.Result, error) {
	return scaffold.Result{}, f.err
}

type fixture struct {
	wf        *Workflow
	files     *filestore.Memory
	cat       *catalog.Store
	persister *catalog.MemoryPersister
	events    *recorder
}

func newFixture(t *testing.T, files map[string]string, entries ...catalog.Entry) *fixture {
	t.Helper()
	ctx := context.Background()

	all := make(map[string]string, len(canvasFiles)+len(files))
	for p, text := range canvasFiles {
		all[p] = text
	}
	for p, text := range files {
		all[p] = text
	}
	store := filestore.NewMemory(all)

	persister := catalog.NewMemoryPersister(nil)
	cat, err := catalog.Open(ctx, persister, catalog.WithLogger(quiet))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if err := cat.Register(ctx, e); err != nil {
			t.Fatalf("Register(%s) error = %v", e.ID, err)
		}
	}

	f := &fixture{files: store, cat: cat, persister: persister, events: &recorder{}}
	f.wf = f.with(scaffold.NewLocal(store, "src/app/components", scaffold.WithLogger(quiet)))
	return f
}

func (f *fixture) with(gen scaffold.Generator) *Workflow {
	return New(f.cat, gen, walk.New(f.files, walk.WithLogger(quiet)),
		WithLogger(quiet),
		WithNotifier(f.events),
	)
}

func (f *fixture) file(path string) string {
	return f.files.Files()[path]
}

func TestPromotion(t *testing.T) {
	f := newFixture(t, nil, catalog.Entry{ID: "card3", Category: "cards"})
	ctx := context.Background()

	if err := f.wf.BeginPromotion("card3"); err != nil {
		t.Fatalf("BeginPromotion() error = %v", err)
	}
	if f.wf.State() != PendingPromotion {
		t.Fatalf("State() = %s", f.wf.State())
	}
	if f.file("src/app/components/card3/card3.component.ts") != "" {
		t.Fatal("BeginPromotion must not write files")
	}

	res, err := f.wf.ConfirmPromotion(ctx, PromoteOptions{AddReferences: true})
	if err != nil {
		t.Fatalf("ConfirmPromotion() error = %v", err)
	}
	if f.wf.State() != Promoted {
		t.Errorf("State() = %s, want promoted", f.wf.State())
	}

	if !res.Entry.IsSharedComponent || res.Entry.ComponentPath == "" || res.Entry.Category != "cards" {
		t.Errorf("Entry = %+v", res.Entry)
	}
	all := f.cat.ListAll()
	if len(all) != 1 || all[0].ID != "card3" || !all[0].IsSharedComponent {
		t.Errorf("ListAll() = %+v, want exactly one shared card3", all)
	}

	if f.file("src/app/components/card3/card3.component.ts") == "" {
		t.Error("component source not generated")
	}

	ts := f.file(canvasTS)
	for _, want := range []string{
		"import { Card3Component } from '../../components/card3/card3.component';\ndeclare var initFlowbite",
		"imports: [CommonModule, Card3Component]",
	} {
		if !strings.Contains(ts, want) {
			t.Errorf("canvas source missing %q:\n%s", want, ts)
		}
	}
	html := f.file(canvasHTML)
	if !strings.Contains(html, "@if (element.isSharedComponent) {\n      <app-card3></app-card3>\n    } @else {") {
		t.Errorf("canvas markup not wrapped:\n%s", html)
	}
	if len(res.Report.Changed) != 2 {
		t.Errorf("Report.Changed = %v", res.Report.Changed)
	}

	if len(f.events.events) != 1 || f.events.events[0].Type != canvasfeed.EventPromoted {
		t.Errorf("events = %+v", f.events.events)
	}
}

func TestPromotion_ScaffoldFailure(t *testing.T) {
	f := newFixture(t, nil, catalog.Entry{ID: "card3"})
	wf := f.with(failingGenerator{err: errors.New("E210").WithDetail("helper not running")})
	saves := f.persister.Saves()

	if err := wf.BeginPromotion("card3"); err != nil {
		t.Fatal(err)
	}
	_, err := wf.ConfirmPromotion(context.Background(), PromoteOptions{AddReferences: true})
	if !errors.Is(err, "E210") {
		t.Fatalf("ConfirmPromotion() error = %v, want E210", err)
	}
	if errors.StepOf(err) != errors.StepScaffold {
		t.Errorf("step = %q, want scaffold", errors.StepOf(err))
	}
	if wf.State() != Idle {
		t.Errorf("State() = %s, want idle", wf.State())
	}
	if e, _ := f.cat.Get("card3"); e.IsSharedComponent {
		t.Error("catalog changed after a scaffold failure")
	}
	if f.persister.Saves() != saves {
		t.Error("catalog saved after a scaffold failure")
	}
	if f.file(canvasTS) != canvasFiles[canvasTS] {
		t.Error("canvas changed after a scaffold failure")
	}
	if len(f.events.events) != 0 {
		t.Error("canvas notified after a failure")
	}
}

func TestPromotion_CatalogFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.persister.FailSave = io.ErrShortWrite

	if err := f.wf.BeginPromotion("card3"); err != nil {
		t.Fatal(err)
	}
	_, err := f.wf.ConfirmPromotion(context.Background(), PromoteOptions{AddReferences: true})
	if !errors.Is(err, "E240") || errors.StepOf(err) != errors.StepCatalog {
		t.Fatalf("ConfirmPromotion() error = %v, want E240 at step catalog", err)
	}
	if f.cat.Has("card3") {
		t.Error("entry registered despite the failed save")
	}
	if f.file(canvasTS) != canvasFiles[canvasTS] {
		t.Error("canvas changed after a catalog failure")
	}
}

func TestBeginPromotion_Rejected(t *testing.T) {
	f := newFixture(t, nil,
		catalog.Entry{ID: "a", IsSharedComponent: true},
		catalog.Entry{ID: "b", IsSharedComponent: true},
		catalog.Entry{ID: "a-variants", IsSuperComponent: true, Wraps: []string{"a", "b"}},
	)

	tests := []struct {
		id   string
		code string
	}{
		{"", "E200"},
		{"bad id", "E200"},
		{"a-variants", "E202"},
	}
	for _, tt := range tests {
		if err := f.wf.BeginPromotion(tt.id); !errors.Is(err, tt.code) {
			t.Errorf("BeginPromotion(%q) error = %v, want %s", tt.id, err, tt.code)
		}
		if f.wf.State() != Idle {
			t.Errorf("BeginPromotion(%q) left state %s", tt.id, f.wf.State())
		}
	}
}

func sharedButtons() []catalog.Entry {
	return []catalog.Entry{
		{ID: "secondary-button", Category: "actions", IsSharedComponent: true},
		{ID: "secondary-outline-button", Category: "actions", IsSharedComponent: true},
		{ID: "app-secondary-button"},
	}
}

func TestComposition(t *testing.T) {
	f := newFixture(t, nil, sharedButtons()...)
	ctx := context.Background()

	if err := f.wf.BeginComposition([]string{"secondary-button", "secondary-outline-button"}, ""); err != nil {
		t.Fatalf("BeginComposition() error = %v", err)
	}
	selection, name := f.wf.Selection()
	if name != "app-secondary-button-variants" {
		t.Errorf("derived name = %q, want app-secondary-button-variants", name)
	}
	if len(selection) != 2 {
		t.Errorf("selection = %v", selection)
	}

	pos := &canvasfeed.Position{X: 40, Y: 60}
	res, err := f.wf.ConfirmComposition(ctx, ComposeOptions{AddReferences: true, Position: pos})
	if err != nil {
		t.Fatalf("ConfirmComposition() error = %v", err)
	}
	if f.wf.State() != Composed {
		t.Errorf("State() = %s", f.wf.State())
	}

	e := res.Entry
	if !e.IsSuperComponent || strings.Join(e.Wraps, ",") != "secondary-button,secondary-outline-button" ||
		strings.Join(e.Variants, ",") != "1,2" || e.Category != "actions" {
		t.Errorf("Entry = %+v", e)
	}
	if e.ComponentPath != "src/app/components/app-secondary-button-variants/" {
		t.Errorf("ComponentPath = %q", e.ComponentPath)
	}

	src := f.file("src/app/components/app-secondary-button-variants/app-secondary-button-variants.component.ts")
	if !strings.Contains(src, "imports: [CommonModule, SecondaryButtonComponent, SecondaryOutlineButtonComponent]") {
		t.Errorf("wrapper source not written:\n%s", src)
	}
	markup := f.file("src/app/components/app-secondary-button-variants/app-secondary-button-variants.component.html")
	if !strings.Contains(markup, "<app-secondary-outline-button></app-secondary-outline-button>") {
		t.Errorf("wrapper markup not written:\n%s", markup)
	}

	html := f.file(canvasHTML)
	if !strings.Contains(html, "@case ('app-secondary-button-variants') {") ||
		!strings.Contains(html, `<app-secondary-button-variants variant="1"></app-secondary-button-variants>`) {
		t.Errorf("canvas case missing:\n%s", html)
	}
	if !strings.Contains(f.file(canvasTS), "AppSecondaryButtonVariantsComponent]") {
		t.Errorf("canvas dependency missing:\n%s", f.file(canvasTS))
	}

	for _, id := range []string{"secondary-button", "secondary-outline-button"} {
		if got, _ := f.cat.Get(id); !got.IsSharedComponent || got.IsSuperComponent {
			t.Errorf("wrapped entry %s changed: %+v", id, got)
		}
	}

	ev := f.events.events
	if len(ev) != 1 || ev[0].Type != canvasfeed.EventComposed || ev[0].Position != pos || len(ev[0].Wraps) != 2 {
		t.Errorf("events = %+v", ev)
	}
}

func TestBeginComposition_Rejected(t *testing.T) {
	entries := append(sharedButtons(),
		catalog.Entry{ID: "plain"},
		catalog.Entry{ID: "x-variants", IsSuperComponent: true, Wraps: []string{"secondary-button", "plain"}},
	)

	tests := []struct {
		name  string
		ids   []string
		given string
		code  string
	}{
		{"one component", []string{"secondary-button"}, "", "E201"},
		{"same component twice", []string{"secondary-button", "secondary-button"}, "", "E201"},
		{"unknown component", []string{"secondary-button", "missing"}, "", "E203"},
		{"not shared", []string{"secondary-button", "plain"}, "", "E202"},
		{"super component", []string{"secondary-button", "x-variants"}, "", "E202"},
		{"invalid id", []string{"secondary-button", "a b"}, "", "E200"},
		{"name taken", []string{"secondary-button", "secondary-outline-button"}, "app-secondary-button", "E202"},
		{"invalid name", []string{"secondary-button", "secondary-outline-button"}, "my name", "E200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, entries...)
			if err := f.wf.BeginComposition(tt.ids, tt.given); !errors.Is(err, tt.code) {
				t.Fatalf("BeginComposition() error = %v, want %s", err, tt.code)
			}
			if f.wf.State() != Idle {
				t.Errorf("State() = %s", f.wf.State())
			}
			if len(f.files.Files()) != len(canvasFiles) {
				t.Error("a rejected composition wrote files")
			}
		})
	}
}

func TestComposition_ScaffoldFailure(t *testing.T) {
	f := newFixture(t, nil, sharedButtons()...)
	wf := f.with(failingGenerator{err: io.ErrUnexpectedEOF})

	if err := wf.BeginComposition([]string{"secondary-button", "secondary-outline-button"}, ""); err != nil {
		t.Fatal(err)
	}
	_, err := wf.ConfirmComposition(context.Background(), ComposeOptions{})
	if !errors.Is(err, "E211") || errors.StepOf(err) != errors.StepScaffold {
		t.Fatalf("ConfirmComposition() error = %v, want E211 at step scaffold", err)
	}
	if wf.State() != Idle {
		t.Errorf("State() = %s", wf.State())
	}
	if f.cat.Has("app-secondary-button-variants") {
		t.Error("super entry registered after a scaffold failure")
	}
}

func TestDeriveName(t *testing.T) {
	tests := []struct {
		name  string
		ids   []string
		taken []string
		want  string
	}{
		{"free base", []string{"secondary-button", "secondary-outline-button"}, nil, "app-secondary-button"},
		{"base taken", []string{"secondary-button", "secondary-outline-button"},
			[]string{"app-secondary-button"}, "app-secondary-button-variants"},
		{"variants taken", []string{"secondary-button", "secondary-outline-button"},
			[]string{"app-secondary-button", "app-secondary-button-variants"}, "app-secondary-button-variants-2"},
		{"three collisions", []string{"card", "card-secondary"},
			[]string{"app-card", "app-card-variants", "app-card-variants-2"}, "app-card-variants-3"},
		{"prefixed ids", []string{"app-card", "app-app-card-dark"}, nil, "app-card"},
		{"nothing shared", []string{"primary-button", "text-link"}, nil, "app-primary-button"},
		{"first id order", []string{"button-primary", "primary-text-button"}, nil, "app-button-primary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taken := map[string]bool{}
			for _, id := range tt.taken {
				taken[id] = true
			}
			got := DeriveName(tt.ids, func(id string) bool { return taken[id] })
			if got != tt.want {
				t.Errorf("DeriveName(%v) = %q, want %q", tt.ids, got, tt.want)
			}
		})
	}
}

func TestTransitions(t *testing.T) {
	f := newFixture(t, nil, sharedButtons()...)
	ctx := context.Background()

	if _, err := f.wf.ConfirmPromotion(ctx, PromoteOptions{}); !errors.Is(err, "E204") {
		t.Errorf("ConfirmPromotion() from idle error = %v, want E204", err)
	}
	if _, err := f.wf.ConfirmComposition(ctx, ComposeOptions{}); !errors.Is(err, "E204") {
		t.Errorf("ConfirmComposition() from idle error = %v, want E204", err)
	}

	if err := f.wf.BeginPromotion("card"); err != nil {
		t.Fatal(err)
	}
	if err := f.wf.BeginComposition([]string{"secondary-button", "secondary-outline-button"}, ""); !errors.Is(err, "E204") {
		t.Errorf("BeginComposition() while a promotion is pending error = %v, want E204", err)
	}
	if _, err := f.wf.ConfirmComposition(ctx, ComposeOptions{}); !errors.Is(err, "E204") {
		t.Errorf("ConfirmComposition() while a promotion is pending error = %v, want E204", err)
	}

	saves := f.persister.Saves()
	if err := f.wf.Cancel(); err != nil {
		t.Fatal(err)
	}
	if f.wf.State() != Idle {
		t.Errorf("State() after Cancel = %s", f.wf.State())
	}
	if f.persister.Saves() != saves || len(f.files.Files()) != len(canvasFiles) {
		t.Error("Cancel had side effects")
	}

	if err := f.wf.BeginComposition([]string{"secondary-button", "secondary-outline-button"}, ""); err != nil {
		t.Errorf("BeginComposition() after Cancel error = %v", err)
	}
}

func TestBusy(t *testing.T) {
	f := newFixture(t, nil)
	f.wf.op.Lock()
	defer f.wf.op.Unlock()

	if err := f.wf.BeginPromotion("card"); !errors.Is(err, "E205") {
		t.Errorf("BeginPromotion() error = %v, want E205", err)
	}
	if _, err := f.wf.Delete(context.Background(), "card"); !errors.Is(err, "E205") {
		t.Errorf("Delete() error = %v, want E205", err)
	}
	if err := f.wf.Cancel(); !errors.Is(err, "E205") {
		t.Errorf("Cancel() error = %v, want E205", err)
	}
}

func compose(t *testing.T, f *fixture) string {
	t.Helper()
	ctx := context.Background()
	if err := f.wf.BeginComposition([]string{"secondary-button", "secondary-outline-button"}, ""); err != nil {
		t.Fatal(err)
	}
	res, err := f.wf.ConfirmComposition(ctx, ComposeOptions{AddReferences: true})
	if err != nil {
		t.Fatal(err)
	}
	return res.Entry.ID
}

func TestDelete_SuperKeepsWrapped(t *testing.T) {
	f := newFixture(t, map[string]string{
		"src/app/components/secondary-button/secondary-button.component.ts":                 "export class SecondaryButtonComponent {}\n",
		"src/app/components/secondary-outline-button/secondary-outline-button.component.ts": "export class SecondaryOutlineButtonComponent {}\n",
	}, sharedButtons()...)
	id := compose(t, f)

	res, err := f.wf.Delete(context.Background(), id)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if f.wf.State() != Idle {
		t.Errorf("State() = %s", f.wf.State())
	}
	if strings.Join(res.Unregistered, ",") != id || strings.Join(res.Deleted, ",") != id {
		t.Errorf("Unregistered = %v, Deleted = %v", res.Unregistered, res.Deleted)
	}

	for _, w := range []string{"secondary-button", "secondary-outline-button"} {
		if !f.cat.Has(w) {
			t.Errorf("wrapped entry %s unregistered", w)
		}
		if f.file("src/app/components/"+w+"/"+w+".component.ts") == "" {
			t.Errorf("wrapped component %s lost its files", w)
		}
	}
	if f.file("src/app/components/"+id+"/"+id+".component.ts") != "" {
		t.Error("super component files not deleted")
	}
	if f.file(canvasTS) != canvasFiles[canvasTS] {
		t.Errorf("canvas source not restored:\n%s", f.file(canvasTS))
	}
	if strings.Contains(f.file(canvasHTML), id) {
		t.Errorf("canvas markup still references %s:\n%s", id, f.file(canvasHTML))
	}
}

func TestDelete_ReportsDanglingWraps(t *testing.T) {
	f := newFixture(t, nil, sharedButtons()...)
	id := compose(t, f)

	res, err := f.wf.Delete(context.Background(), "secondary-button")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(res.Dangling) != 1 || res.Dangling[0].Super != id {
		t.Fatalf("Dangling = %+v", res.Dangling)
	}
	super, ok := f.cat.Get(id)
	if !ok || len(super.Wraps) != 2 {
		t.Errorf("super entry wraps changed: %+v", super)
	}
}

func TestClean(t *testing.T) {
	f := newFixture(t, map[string]string{
		"src/app/pages/home/home.component.html":            "<main>\n  <app-old-card title=\"x\"></app-old-card>\n</main>\n",
		"src/app/pages/about/about.component.html":          "<main>\n  <p>About</p>\n</main>\n",
		"src/app/components/old-card/old-card.component.ts": "export class OldCardComponent {}\n",
	}, catalog.Entry{ID: "old-card", IsSharedComponent: true})

	res, err := f.wf.Clean(context.Background(), "old-card")
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if len(res.Report.Changed) != 1 || res.Report.Changed[0] != "src/app/pages/home/home.component.html" {
		t.Errorf("Changed = %v, want exactly the home page", res.Report.Changed)
	}
	if f.cat.Has("old-card") {
		t.Error("old-card still registered")
	}
	if f.file("src/app/components/old-card/old-card.component.ts") == "" {
		t.Error("Clean must keep the component files")
	}
	if got := f.file("src/app/pages/home/home.component.html"); got != "<main>\n</main>\n" {
		t.Errorf("home page = %q", got)
	}
}

func TestDelete_PartialWalk(t *testing.T) {
	f := newFixture(t, map[string]string{
		"src/a.html": "<app-card></app-card>\n",
		"src/b.html": "<app-card></app-card>\n",
	}, catalog.Entry{ID: "card"})
	f.files.FailWrite = map[string]error{"src/b.html": io.ErrClosedPipe}

	res, err := f.wf.Delete(context.Background(), "card")
	if !errors.Is(err, "E230") || errors.StepOf(err) != errors.StepFileTree {
		t.Fatalf("Delete() error = %v, want E230 at step file-tree", err)
	}
	if len(res.Report.Changed) != 1 || len(res.Report.Failed) != 1 {
		t.Errorf("Report = %+v", res.Report)
	}
	if f.cat.Has("card") {
		t.Error("catalog entry should be removed even when the walk is partial")
	}
}

func TestSyncSuperComponents(t *testing.T) {
	f := newFixture(t, map[string]string{
		"src/app/components/app-card-variants/app-card-variants.component.ts": "export class AppCardVariantsComponent {}\n",
	},
		catalog.Entry{ID: "card", IsSharedComponent: true},
		catalog.Entry{ID: "card-dark", IsSharedComponent: true},
		catalog.Entry{ID: "app-card-variants", IsSuperComponent: true, Wraps: []string{"card", "card-dark"}},
		catalog.Entry{ID: "app-gone-variants", IsSuperComponent: true, Wraps: []string{"card", "card-dark"}},
	)
	ctx := context.Background()

	res, err := f.wf.SyncSuperComponents(ctx)
	if err != nil {
		t.Fatalf("SyncSuperComponents() error = %v", err)
	}
	if strings.Join(res.Synced, ",") != "app-card-variants" || strings.Join(res.Missing, ",") != "app-gone-variants" {
		t.Errorf("Synced = %v, Missing = %v", res.Synced, res.Missing)
	}
	if !strings.Contains(f.file(canvasHTML), "@case ('app-card-variants') {") {
		t.Errorf("case missing:\n%s", f.file(canvasHTML))
	}
	if strings.Contains(f.file(canvasHTML), "app-gone-variants") {
		t.Error("super component without files added to the canvas")
	}

	again, err := f.wf.SyncSuperComponents(ctx)
	if err != nil || len(again.Report.Changed) != 0 {
		t.Errorf("second sync changed %v (err %v)", again.Report.Changed, err)
	}
}

func TestIsShared(t *testing.T) {
	f := newFixture(t, nil,
		catalog.Entry{ID: "card", IsSharedComponent: true},
		catalog.Entry{ID: "card-dark", IsSharedComponent: true},
		catalog.Entry{ID: "plain"},
		catalog.Entry{ID: "app-card-variants", IsSuperComponent: true, Wraps: []string{"card", "card-dark"}},
	)

	tests := map[string]bool{
		"card":              true,
		"app-card-variants": true,
		"plain":             false,
		"unknown":           false,
	}
	for typ, want := range tests {
		if got := f.wf.IsShared(CanvasElement{ID: "el-1", Type: typ}); got != want {
			t.Errorf("IsShared(%s) = %v, want %v", typ, got, want)
		}
	}
}
