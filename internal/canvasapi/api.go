// Package canvasapi exposes the workflow to the authoring canvas over HTTP.
//
// The routes follow the workflow states: a begin request records the
// action and a confirm request runs it, so the canvas can show its
// confirmation dialog in between.
//
//	POST /promotions            {"id": "card3"}
//	POST /promotions/confirm    {"addReferences": true, "position": {"x": 40, "y": 60}}
//	POST /compositions          {"ids": ["a", "b"], "name": ""}
//	POST /compositions/confirm  {"addReferences": true}
//	POST /cancel
//	POST /components/{id}/delete
//	POST /components/{id}/clean
//	POST /sync
//	GET  /state
//	GET  /components?filter=shared|super
//	GET  /components/{id}/shared
package canvasapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vango-dev/uiforge/internal/canvasfeed"
	"github.com/vango-dev/uiforge/internal/catalog"
	"github.com/vango-dev/uiforge/internal/errors"
	"github.com/vango-dev/uiforge/internal/walk"
	"github.com/vango-dev/uiforge/internal/workflow"
)

// API serves workflow actions.
type API struct {
	wf      *workflow.Workflow
	catalog *catalog.Store
	logger  *slog.Logger
	router  chi.Router
}

// New creates an API over wf and the catalog it writes.
func New(wf *workflow.Workflow, cat *catalog.Store, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	a := &API{wf: wf, catalog: cat, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(a.logRequests)

	r.Get("/state", a.handleState)
	r.Post("/promotions", a.handleBeginPromotion)
	r.Post("/promotions/confirm", a.handleConfirmPromotion)
	r.Post("/compositions", a.handleBeginComposition)
	r.Post("/compositions/confirm", a.handleConfirmComposition)
	r.Post("/cancel", a.handleCancel)
	r.Post("/sync", a.handleSync)

	r.Route("/components", func(r chi.Router) {
		r.Get("/", a.handleList)
		r.Get("/{id}/shared", a.handleIsShared)
		r.Post("/{id}/delete", a.handleDelete)
		r.Post("/{id}/clean", a.handleClean)
	})

	a.router = r
	return a
}

// Handler returns the HTTP handler.
func (a *API) Handler() http.Handler {
	return a.router
}

type beginRequest struct {
	ID   string   `json:"id,omitempty"`
	IDs  []string `json:"ids,omitempty"`
	Name string   `json:"name,omitempty"`
}

type confirmRequest struct {
	AddReferences bool                 `json:"addReferences"`
	Position      *canvasfeed.Position `json:"position,omitempty"`
}

type stateResponse struct {
	State     string   `json:"state"`
	Selection []string `json:"selection,omitempty"`
	Name      string   `json:"name,omitempty"`
}

// reportBody is the JSON form of a walk.Report.
type reportBody struct {
	Visited     int      `json:"visited"`
	Changed     []string `json:"changed"`
	Failed      []string `json:"failed,omitempty"`
	Unresolved  []string `json:"unresolved,omitempty"`
	Corrections []string `json:"corrections,omitempty"`
}

type errorBody struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	Step       string `json:"step,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// actionResponse carries a result; Warning is set when the tree pass that
// followed it was partial.
type actionResponse struct {
	Entry    *catalog.Entry        `json:"entry,omitempty"`
	Files    []string              `json:"files,omitempty"`
	Report   reportBody            `json:"report"`
	Removed  []string              `json:"removed,omitempty"`
	Dangling []catalog.DanglingRef `json:"dangling,omitempty"`
	Synced   []string              `json:"synced,omitempty"`
	Missing  []string              `json:"missing,omitempty"`
	Warning  *errorBody            `json:"warning,omitempty"`
}

func (a *API) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.state())
}

func (a *API) state() stateResponse {
	selection, name := a.wf.Selection()
	return stateResponse{State: a.wf.State().String(), Selection: selection, Name: name}
}

func (a *API) handleBeginPromotion(w http.ResponseWriter, r *http.Request) {
	var req beginRequest
	if !decode(w, r, &req) {
		return
	}
	if err := a.wf.BeginPromotion(req.ID); err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, a.state())
}

func (a *API) handleConfirmPromotion(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := a.wf.ConfirmPromotion(r.Context(), workflow.PromoteOptions{
		AddReferences: req.AddReferences,
		Position:      req.Position,
	})
	if res.Entry.ID == "" {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{
		Entry:   &res.Entry,
		Files:   res.Scaffold.Created,
		Report:  toReport(res.Report),
		Warning: warning(err),
	})
}

func (a *API) handleBeginComposition(w http.ResponseWriter, r *http.Request) {
	var req beginRequest
	if !decode(w, r, &req) {
		return
	}
	if err := a.wf.BeginComposition(req.IDs, req.Name); err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, a.state())
}

func (a *API) handleConfirmComposition(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := a.wf.ConfirmComposition(r.Context(), workflow.ComposeOptions{
		AddReferences: req.AddReferences,
		Position:      req.Position,
	})
	if res.Entry.ID == "" {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{
		Entry:   &res.Entry,
		Files:   res.Scaffold.Created,
		Report:  toReport(res.Report),
		Warning: warning(err),
	})
}

func (a *API) handleCancel(w http.ResponseWriter, _ *http.Request) {
	if err := a.wf.Cancel(); err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.state())
}

func (a *API) handleDelete(w http.ResponseWriter, r *http.Request) {
	res, err := a.wf.Delete(r.Context(), chi.URLParam(r, "id"))
	a.writeRemoval(w, res, err)
}

func (a *API) handleClean(w http.ResponseWriter, r *http.Request) {
	res, err := a.wf.Clean(r.Context(), chi.URLParam(r, "id"))
	a.writeRemoval(w, res, err)
}

func (a *API) writeRemoval(w http.ResponseWriter, res workflow.DeleteResult, err error) {
	if err != nil && !errors.Is(err, "E230") {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{
		Removed:  res.Unregistered,
		Files:    res.Deleted,
		Report:   toReport(res.Report),
		Dangling: res.Dangling,
		Warning:  warning(err),
	})
}

func (a *API) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := a.wf.SyncSuperComponents(r.Context())
	if err != nil && !errors.Is(err, "E230") {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{
		Synced:  res.Synced,
		Missing: res.Missing,
		Report:  toReport(res.Report),
		Warning: warning(err),
	})
}

func (a *API) handleList(w http.ResponseWriter, r *http.Request) {
	var entries []catalog.Entry
	switch r.URL.Query().Get("filter") {
	case "shared":
		entries = a.catalog.Shared()
	case "super":
		entries = a.catalog.Super()
	case "":
		entries = a.catalog.ListAll()
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "filter must be shared or super", Code: "E200"})
		return
	}
	if entries == nil {
		entries = []catalog.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) handleIsShared(w http.ResponseWriter, r *http.Request) {
	el := workflow.CanvasElement{Type: chi.URLParam(r, "id")}
	writeJSON(w, http.StatusOK, map[string]bool{"shared": a.wf.IsShared(el)})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body", Code: "E200"})
		return false
	}
	return true
}

// status maps an error to its HTTP status.
func status(err error) int {
	switch {
	case errors.Is(err, "E203"):
		return http.StatusNotFound
	case errors.Is(err, "E204"), errors.Is(err, "E205"):
		return http.StatusConflict
	case errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	case errors.IsCategory(err, errors.CategoryCollaborator):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(w http.ResponseWriter, err error) {
	code := status(err)
	if code >= 500 {
		a.logger.Error("canvas request failed", "error", err)
	}
	writeJSON(w, code, toError(err))
}

func toError(err error) errorBody {
	fe := errors.FromError(err, "E211")
	msg := fe.Detail
	if msg == "" {
		msg = fe.Message
	}
	return errorBody{Error: msg, Code: fe.Code, Step: string(fe.Step), Suggestion: fe.Suggestion}
}

func warning(err error) *errorBody {
	if err == nil {
		return nil
	}
	body := toError(err)
	return &body
}

func toReport(r walk.Report) reportBody {
	out := reportBody{Visited: r.Visited, Changed: r.Changed}
	if out.Changed == nil {
		out.Changed = []string{}
	}
	for _, f := range r.Failed {
		out.Failed = append(out.Failed, f.String())
	}
	for _, f := range r.Unresolved {
		out.Unresolved = append(out.Unresolved, f.String())
	}
	for _, c := range r.Corrections {
		out.Corrections = append(out.Corrections, c.Path+": "+c.Correction.String())
	}
	return out
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.logger.Debug("canvas request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
