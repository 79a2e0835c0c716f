package walk

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/vango-dev/uiforge/internal/errors"
	"github.com/vango-dev/uiforge/internal/filestore"
	"github.com/vango-dev/uiforge/internal/ident"
	"github.com/vango-dev/uiforge/internal/refs"
)

var quiet = WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

var exts = []string{".ts", ".html", ".scss", ".css"}

func TestWalk_RemovesReferences(t *testing.T) {
	store := filestore.NewMemory(map[string]string{
		"src/app/page/page.component.ts": "import { CardComponent } from '../card/card.component';\n" +
			"@Component({ imports: [CommonModule, CardComponent] })\nexport class PageComponent {}\n",
		"src/app/page/page.component.html": "<h1>Page</h1>\n",
	})

	report := New(store, quiet).Walk(context.Background(), "src", exts, RemoveReferences(ident.Variants("app-card")))

	if report.Visited != 2 {
		t.Errorf("Visited = %d, want 2", report.Visited)
	}
	if len(report.Changed) != 1 || report.Changed[0] != "src/app/page/page.component.ts" {
		t.Errorf("Changed = %v, want exactly the .ts file", report.Changed)
	}
	if err := report.Err(); err != nil {
		t.Errorf("Err() = %v", err)
	}

	got := store.Files()["src/app/page/page.component.ts"]
	want := "@Component({ imports: [CommonModule] })\nexport class PageComponent {}\n"
	if got != want {
		t.Errorf("rewritten file = %q, want %q", got, want)
	}
}

func TestWalk_SkipsBySegment(t *testing.T) {
	store := filestore.NewMemory(map[string]string{
		"src/node_modules/lib/x.html":  "<app-card></app-card>\n",
		"src/dist/x.html":              "<app-card></app-card>\n",
		"src/app/.angular/cache.html":  "<app-card></app-card>\n",
		"src/app/distinct/x.html":      "<app-card></app-card>\n",
		"src/app/page/page.component.html": "<app-card></app-card>\n",
	})

	report := New(store, quiet).Walk(context.Background(), "src", exts, RemoveReferences([]string{"card"}))

	changed := strings.Join(report.Changed, ",")
	if changed != "src/app/distinct/x.html,src/app/page/page.component.html" {
		t.Errorf("Changed = %v", report.Changed)
	}
	if store.Files()["src/node_modules/lib/x.html"] == "" {
		t.Error("node_modules must not be rewritten")
	}
}

func TestWalk_PartialFailure(t *testing.T) {
	store := filestore.NewMemory(map[string]string{
		"src/a.html": "<app-card></app-card>\n<p>a</p>\n",
		"src/b.html": "<app-card></app-card>\n<p>b</p>\n",
		"src/c.html": "<app-card></app-card>\n<p>c</p>\n",
	})
	store.FailRead = map[string]error{"src/b.html": stderrors.New("permission denied")}
	store.FailWrite = map[string]error{"src/c.html": stderrors.New("read-only file system")}

	report := New(store, quiet).Walk(context.Background(), "src", exts, RemoveReferences([]string{"card"}))

	if len(report.Changed) != 1 || report.Changed[0] != "src/a.html" {
		t.Errorf("Changed = %v", report.Changed)
	}
	if len(report.Failed) != 2 {
		t.Fatalf("Failed = %v, want 2 failures", report.Failed)
	}

	err := report.Err()
	if !errors.Is(err, "E230") {
		t.Fatalf("Err() = %v, want E230", err)
	}
	fe := errors.FromError(err, "E230")
	for _, want := range []string{"changed src/a.html", "failed src/b.html", "failed src/c.html"} {
		if !strings.Contains(fe.Detail, want) {
			t.Errorf("detail missing %q: %s", want, fe.Detail)
		}
	}
	if fe.Step != errors.StepFileTree {
		t.Errorf("Step = %q", fe.Step)
	}
}

func TestWalk_UnresolvedAndCorrections(t *testing.T) {
	store := filestore.NewMemory(map[string]string{
		"src/broken.scss":  "app-card {\n  color: red;\n}\n.x {}\n",
		"src/missing.scss": ".x {\n  app-card { color: red; }\n}\n",
		"src/plain.scss":   "/* { */\napp-card {\n  color: red;\n}\n",
	})
	// Spans cutting across rule boundaries, the way a mislocated removal would.
	spans := map[string]func(text string) refs.Site{
		"src/broken.scss": func(text string) refs.Site {
			return refs.Site{Start: 0, End: strings.Index(text, "  color"), Kind: refs.KindStyleRule}
		},
		"src/missing.scss": func(text string) refs.Site {
			return refs.Site{Start: strings.Index(text, "  app-card"), End: len(text), Kind: refs.KindStyleRule}
		},
	}
	mutator := refs.NewMutator()
	remove := RemoveReferences([]string{"card"})
	visit := func(ctx context.Context, path, text string) (Outcome, error) {
		span, ok := spans[path]
		if !ok {
			return remove(ctx, path, text)
		}
		res, err := mutator.Apply(text, []refs.Site{span(text)}, refs.Remove)
		if err != nil {
			return Outcome{Text: text}, err
		}
		return Outcome{Text: res.Text, Changed: res.Changed, Corrections: res.Corrections}, nil
	}

	report := New(store, quiet).Walk(context.Background(), "src", exts, visit)

	if len(report.Unresolved) != 1 || report.Unresolved[0].Path != "src/broken.scss" {
		t.Errorf("Unresolved = %v", report.Unresolved)
	}
	if store.Files()["src/broken.scss"] != "app-card {\n  color: red;\n}\n.x {}\n" {
		t.Error("unresolvable file must be left untouched")
	}
	if len(report.Corrections) != 1 || report.Corrections[0].Path != "src/missing.scss" {
		t.Errorf("Corrections = %v", report.Corrections)
	}
	if got := store.Files()["src/missing.scss"]; got != ".x {\n}\n" {
		t.Errorf("corrected file = %q", got)
	}
	if got := store.Files()["src/plain.scss"]; got != "/* { */\n" {
		t.Errorf("plain file = %q", got)
	}
	if !errors.Is(report.Err(), "E230") {
		t.Error("an unresolved file should make Err() non-nil")
	}
}

type dupStore struct {
	*filestore.Memory
}

func (d dupStore) ListFiles(root string, extensions []string) ([]string, error) {
	files, err := d.Memory.ListFiles(root, extensions)
	return append(files, files...), err
}

func TestWalk_VisitsEachFileOnce(t *testing.T) {
	store := dupStore{filestore.NewMemory(map[string]string{
		"src/a.html": "<p>a</p>\n",
		"src/b.html": "<p>b</p>\n",
	})}

	calls := map[string]int{}
	visit := func(_ context.Context, path, text string) (Outcome, error) {
		calls[path]++
		return Outcome{Text: text}, nil
	}
	report := New(store, quiet).Walk(context.Background(), "src", exts, visit)

	if report.Visited != 2 {
		t.Errorf("Visited = %d, want 2", report.Visited)
	}
	for p, n := range calls {
		if n != 1 {
			t.Errorf("%s visited %d times", p, n)
		}
	}
}

func TestWalk_IgnoresCancellation(t *testing.T) {
	store := filestore.NewMemory(map[string]string{
		"src/a.html": "<app-card></app-card>\n",
		"src/b.html": "<app-card></app-card>\n",
	})
	ctx, cancel := context.WithCancel(context.Background())

	remove := RemoveReferences([]string{"card"})
	visit := func(ctx context.Context, path, text string) (Outcome, error) {
		cancel()
		if ctx.Err() != nil {
			t.Errorf("%s: visitor saw a cancelled context", path)
		}
		return remove(ctx, path, text)
	}

	report := New(store, quiet).Walk(ctx, "src", exts, visit)
	if report.Visited != 2 || len(report.Changed) != 2 || len(report.Failed) != 0 {
		t.Errorf("Visited = %d, Changed = %v, Failed = %v", report.Visited, report.Changed, report.Failed)
	}
}

func TestAddReferences(t *testing.T) {
	store := filestore.NewMemory(map[string]string{
		"canvas/canvas.component.ts": "import { A } from './a';\n\ndeclare var initFlowbite: any;\n\n" +
			"@Component({\n  imports: [CommonModule]\n})\nexport class CanvasComponent {}\n",
		"canvas/canvas.component.html": "@switch (element.type) {\n}\n",
		"canvas/canvas.component.spec.ts": "import { TestBed } from '@angular/core/testing';\n\n" +
			"beforeEach(() => TestBed.configureTestingModule({ imports: [CanvasComponent] }));\n",
		"canvas/canvas.service.ts": "import { Injectable } from '@angular/core';\n\n@Injectable()\nexport class CanvasService {}\n",
	})
	before := store.Files()
	visit := AddReferences(refs.Target{ID: "card"}, WithKinds(map[string][]refs.Kind{
		".ts":   {refs.KindImport, refs.KindDependency},
		".html": {refs.KindConditional},
	}))

	w := New(store, quiet)
	first := w.Walk(context.Background(), "canvas", exts, visit)
	if got := strings.Join(first.Changed, ","); got != "canvas/canvas.component.html,canvas/canvas.component.ts" {
		t.Fatalf("Changed = %v, want only the canvas component files", first.Changed)
	}
	for _, p := range []string{"canvas/canvas.component.spec.ts", "canvas/canvas.service.ts"} {
		if store.Files()[p] != before[p] {
			t.Errorf("%s was edited:\n%s", p, store.Files()[p])
		}
	}
	ts := store.Files()["canvas/canvas.component.ts"]
	for _, want := range []string{
		"import { CardComponent } from '../../components/card/card.component';\ndeclare var initFlowbite",
		"imports: [CommonModule, CardComponent]",
	} {
		if !strings.Contains(ts, want) {
			t.Errorf("missing %q in:\n%s", want, ts)
		}
	}

	second := w.Walk(context.Background(), "canvas", exts, visit)
	if len(second.Changed) != 0 {
		t.Errorf("second pass changed %v", second.Changed)
	}
}

func TestSkipped(t *testing.T) {
	tests := []struct {
		rel   string
		names []string
		want  bool
	}{
		{"node_modules/x/a.ts", DefaultSkip, true},
		{"app/dist/a.ts", DefaultSkip, true},
		{"app/distinct/a.ts", DefaultSkip, false},
		{"app/.angular/a.ts", DefaultSkip, true},
		{"app/gen/a.ts", []string{"gen"}, true},
		{"app/a.gen", []string{"*.gen"}, false},
		{"app/gen/a.ts", []string{"app/gen"}, false},
		{"app/a.ts", []string{" app "}, true},
		{"app/a.ts", nil, false},
	}
	for _, tt := range tests {
		if got := skipped(tt.rel, tt.names); got != tt.want {
			t.Errorf("skipped(%q, %v) = %v, want %v", tt.rel, tt.names, got, tt.want)
		}
	}
}
