package scaffold

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/uiforge/internal/errors"
	"github.com/vango-dev/uiforge/internal/filestore"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newLocal(files map[string]string) (*Local, *filestore.Memory) {
	store := filestore.NewMemory(files)
	return NewLocal(store, "src/app/components", WithLogger(quietLogger)), store
}

func TestLocal_Generate(t *testing.T) {
	gen, store := newLocal(nil)
	ctx := context.Background()

	res, err := gen.Generate(ctx, "secondary-button")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.ComponentPath != "src/app/components/secondary-button/" {
		t.Errorf("ComponentPath = %q", res.ComponentPath)
	}
	if len(res.Files) != 3 || len(res.Created) != 3 {
		t.Errorf("Files = %v, Created = %v", res.Files, res.Created)
	}

	src := store.Files()["src/app/components/secondary-button/secondary-button.component.ts"]
	for _, want := range []string{
		"selector: 'app-secondary-button'",
		"export class SecondaryButtonComponent {",
		"export type SecondaryButtonVariant = '1';",
		"templateUrl: './secondary-button.component.html'",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("source missing %q:\n%s", want, src)
		}
	}

	ok, err := gen.Exists(ctx, "secondary-button")
	if err != nil || !ok {
		t.Errorf("Exists() = %v, %v", ok, err)
	}
}

func TestLocal_GenerateKeepsExistingFiles(t *testing.T) {
	gen, store := newLocal(map[string]string{
		"src/app/components/card/card.component.ts": "// hand written\n",
	})

	res, err := gen.Generate(context.Background(), "card")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Created) != 2 {
		t.Errorf("Created = %v, want markup and style only", res.Created)
	}
	if got := store.Files()["src/app/components/card/card.component.ts"]; got != "// hand written\n" {
		t.Errorf("existing source overwritten: %q", got)
	}
}

func TestLocal_InvalidID(t *testing.T) {
	gen, store := newLocal(nil)
	ctx := context.Background()

	for _, id := range []string{"", "../etc", "card;rm", "a b"} {
		if _, err := gen.Generate(ctx, id); !errors.Is(err, "E200") {
			t.Errorf("Generate(%q) error = %v, want E200", id, err)
		}
		if err := gen.Delete(ctx, id); !errors.Is(err, "E200") {
			t.Errorf("Delete(%q) error = %v, want E200", id, err)
		}
	}
	if n := len(store.Files()); n != 0 {
		t.Errorf("invalid ids touched %d files", n)
	}
}

func TestLocal_DeleteAndWrite(t *testing.T) {
	gen, store := newLocal(map[string]string{
		"src/app/components/card/card.component.ts":         "a",
		"src/app/components/card/card.component.html":       "b",
		"src/app/components/card-two/card-two.component.ts": "c",
	})
	ctx := context.Background()

	if err := gen.WriteSourceAndMarkup(ctx, "card", "new source", ""); err != nil {
		t.Fatal(err)
	}
	files := store.Files()
	if files["src/app/components/card/card.component.ts"] != "new source" {
		t.Error("source not written")
	}
	if files["src/app/components/card/card.component.html"] != "b" {
		t.Error("empty markup must leave the file alone")
	}

	if err := gen.Delete(ctx, "card"); err != nil {
		t.Fatal(err)
	}
	files = store.Files()
	if _, ok := files["src/app/components/card/card.component.ts"]; ok {
		t.Error("card not deleted")
	}
	if _, ok := files["src/app/components/card-two/card-two.component.ts"]; !ok {
		t.Error("sibling directory with a shared prefix was deleted")
	}
}

func TestLocal_WriteFailure(t *testing.T) {
	gen, store := newLocal(nil)
	store.FailWrite = map[string]error{
		"src/app/components/card/card.component.ts": io.ErrClosedPipe,
	}
	_, err := gen.Generate(context.Background(), "card")
	if !errors.Is(err, "E211") || errors.StepOf(err) != errors.StepScaffold {
		t.Errorf("Generate() error = %v, want E211 at step scaffold", err)
	}
}

func TestWrapper(t *testing.T) {
	wraps := []string{"secondary-button", "secondary-outline-button"}

	src, err := WrapperSource("app-secondary-button-variants", wraps, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"import { SecondaryButtonComponent } from '../secondary-button/secondary-button.component';\n",
		"import { SecondaryOutlineButtonComponent } from '../secondary-outline-button/secondary-outline-button.component';\n",
		"imports: [CommonModule, SecondaryButtonComponent, SecondaryOutlineButtonComponent],",
		"export type AppSecondaryButtonVariantsVariant = '1' | '2';",
		"selector: 'app-secondary-button-variants'",
		"export class AppSecondaryButtonVariantsComponent {",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("source missing %q:\n%s", want, src)
		}
	}

	markup, err := WrapperMarkup("app-secondary-button-variants", wraps, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := "@switch (variant()) {\n" +
		"  @case ('1') {\n    <app-secondary-button></app-secondary-button>\n  }\n" +
		"  @case ('2') {\n    <app-secondary-outline-button></app-secondary-outline-button>\n  }\n" +
		"}\n"
	if markup != want {
		t.Errorf("markup = %q, want %q", markup, want)
	}
}

func TestWrapper_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		wraps    []string
		variants []string
		code     string
	}{
		{"one wrap", "x-variants", []string{"a"}, nil, "E201"},
		{"label mismatch", "x-variants", []string{"a", "b"}, []string{"1"}, "E201"},
		{"bad id", "x variants", []string{"a", "b"}, nil, "E200"},
		{"bad wrap", "x-variants", []string{"a", "b/c"}, nil, "E200"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := WrapperSource(tt.id, tt.wraps, tt.variants); !errors.Is(err, tt.code) {
				t.Errorf("WrapperSource() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *filestore.Memory) {
	t.Helper()
	gen, store := newLocal(nil)
	srv := httptest.NewServer(NewServer(gen, quietLogger).Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func TestServer_RejectsInvalidID(t *testing.T) {
	srv, store := newTestServer(t)

	for _, body := range []string{`{"componentId":"../../etc"}`, `{"componentId":""}`, `not json`} {
		res, err := http.Post(srv.URL+"/generate", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusBadRequest {
			t.Errorf("POST %s status = %d, want 400", body, res.StatusCode)
		}
	}
	if len(store.Files()) != 0 {
		t.Error("rejected requests must not touch files")
	}
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)
	if err := NewClient(srv.URL).Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}

func TestClient_RoundTrip(t *testing.T) {
	srv, store := newTestServer(t)
	client := NewClient(srv.URL)
	ctx := context.Background()

	res, err := client.Generate(ctx, "card")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.ComponentPath != "src/app/components/card/" || len(res.Files) != 3 {
		t.Errorf("Result = %+v", res)
	}

	ok, err := client.Exists(ctx, "card")
	if err != nil || !ok {
		t.Errorf("Exists(card) = %v, %v", ok, err)
	}
	ok, err = client.Exists(ctx, "nothing")
	if err != nil || ok {
		t.Errorf("Exists(nothing) = %v, %v", ok, err)
	}

	if err := client.WriteSourceAndMarkup(ctx, "card", "", "<p>new</p>\n"); err != nil {
		t.Fatal(err)
	}
	if got := store.Files()["src/app/components/card/card.component.html"]; got != "<p>new</p>\n" {
		t.Errorf("markup = %q", got)
	}

	if err := client.Delete(ctx, "card"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := client.Exists(ctx, "card"); ok {
		t.Error("card still exists after Delete")
	}
}

func TestClient_ServerError(t *testing.T) {
	gen, store := newLocal(nil)
	store.FailWrite = map[string]error{"src/app/components/card/card.component.ts": io.ErrClosedPipe}
	srv := httptest.NewServer(NewServer(gen, quietLogger).Handler())
	defer srv.Close()

	_, err := NewClient(srv.URL).Generate(context.Background(), "card")
	if !errors.Is(err, "E211") {
		t.Errorf("Generate() error = %v, want E211", err)
	}
}

func TestClient_Unavailable(t *testing.T) {
	tests := []struct {
		name string
		url  func(t *testing.T) string
	}{
		{
			name: "timeout",
			url: func(t *testing.T) string {
				slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					select {
					case <-r.Context().Done():
					case <-time.After(2 * time.Second):
					}
				}))
				t.Cleanup(slow.Close)
				return slow.URL
			},
		},
		{
			name: "connection refused",
			url: func(t *testing.T) string {
				closed := httptest.NewServer(http.NotFoundHandler())
				closed.Close()
				return closed.URL
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.url(t), WithTimeout(50*time.Millisecond))
			start := time.Now()
			_, err := client.Generate(context.Background(), "card")
			if !errors.Is(err, "E210") {
				t.Fatalf("Generate() error = %v, want E210", err)
			}
			if errors.StepOf(err) != errors.StepScaffold {
				t.Errorf("step = %q", errors.StepOf(err))
			}
			if time.Since(start) > time.Second {
				t.Error("client did not fail fast")
			}
		})
	}
}
