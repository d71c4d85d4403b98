// Package admin serves the editing console's JSON API.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"club-overview-console/internal/auth"
	"club-overview-console/internal/commit"
	"club-overview-console/internal/domain"
	"club-overview-console/internal/domain/specs"
	"club-overview-console/internal/drafts"
	"club-overview-console/internal/loader"
	"club-overview-console/internal/media"
	"club-overview-console/internal/models"
	"club-overview-console/internal/naming"
	"club-overview-console/internal/validation"
	errs "club-overview-console/pkg/errors"
	"club-overview-console/pkg/events"
	"club-overview-console/pkg/geography"
	"club-overview-console/pkg/logging"
)

// maxAttachmentBody bounds request bodies on the attachment route.
const maxAttachmentBody = media.DefaultMaxBytes + 1

// Locator resolves city and country for the location panel.
type Locator interface {
	Locate(ctx context.Context, lat, lon float64) geography.Location
}

// Server owns one working store and one commit orchestrator per editor.
type Server struct {
	registry *drafts.Registry
	loader   *loader.Loader
	locator  Locator
	events   events.EventStore
	commit   commit.Deps
	logger   *logging.ComponentLogger

	concurrency atomic.Int32

	mu            sync.Mutex
	orchestrators map[string]*commit.Orchestrator
}

// Options collects the server's collaborators. Events and Locator may be nil.
type Options struct {
	Registry *drafts.Registry
	Loader   *loader.Loader
	Locator  Locator
	Events   events.EventStore
	Commit   commit.Deps
	Logger   *logging.Logger
}

func NewServer(o Options) *Server {
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	if o.Registry == nil {
		o.Registry = drafts.NewRegistry()
	}
	if o.Commit.Loader == nil && o.Loader != nil {
		o.Commit.Loader = o.Loader
	}
	if o.Commit.Events == nil {
		o.Commit.Events = o.Events
	}
	if o.Commit.Logger == nil {
		o.Commit.Logger = o.Logger
	}
	if o.Commit.Validator == nil {
		o.Commit.Validator = validation.NewValidator(specs.OptionsFromEnv())
	}
	s := &Server{
		registry:      o.Registry,
		loader:        o.Loader,
		locator:       o.Locator,
		events:        o.Events,
		commit:        o.Commit,
		logger:        o.Logger.WithComponent("admin"),
		orchestrators: make(map[string]*commit.Orchestrator),
	}
	s.concurrency.Store(int32(max(o.Commit.UploadConcurrency, 1)))
	return s
}

// Routes registers the API on r. Callers wrap r with the auth middleware.
func (s *Server) Routes(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/clubs", s.handleListClubs).Methods(http.MethodGet)
	api.HandleFunc("/clubs/{id}/history", s.handleClubHistory).Methods(http.MethodGet)
	api.HandleFunc("/tags", s.handleTags).Methods(http.MethodGet)

	w := api.PathPrefix("/working").Subrouter()
	w.HandleFunc("", s.handleGetWorking).Methods(http.MethodGet)
	w.HandleFunc("/load/{id}", s.handleLoad).Methods(http.MethodPost)
	w.HandleFunc("/new", s.handleNew).Methods(http.MethodPost)
	w.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost)
	w.HandleFunc("/fields", s.handleMutateField).Methods(http.MethodPatch)
	w.HandleFunc("/attachments/{slot}", s.handleStageAttachment).Methods(http.MethodPut)
	w.HandleFunc("/attachments/{slot}", s.handleClearAttachment).Methods(http.MethodDelete)
	w.HandleFunc("/diff", s.handleDiff).Methods(http.MethodGet)
	w.HandleFunc("/validate", s.handleValidate).Methods(http.MethodGet)
	w.HandleFunc("/location", s.handleLocation).Methods(http.MethodGet)
	w.HandleFunc("/save", s.handleSave).Methods(http.MethodPost)
	w.HandleFunc("/save/confirm", s.handleConfirm).Methods(http.MethodPost)
	w.HandleFunc("/save/cancel", s.handleCancel).Methods(http.MethodPost)
}

// SetUploadConcurrency applies a new upload bound to every editor, including later ones.
func (s *Server) SetUploadConcurrency(n int) {
	n = max(n, 1)
	s.concurrency.Store(int32(n))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orchestrators {
		o.SetUploadConcurrency(n)
	}
}

func (s *Server) orchestrator(actor domain.Actor) *commit.Orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orchestrators[actor.UID]
	if !ok {
		deps := s.commit
		deps.UploadConcurrency = int(s.concurrency.Load())
		o = commit.New(deps, actor)
		s.orchestrators[actor.UID] = o
	}
	return o
}

// session returns the caller and their working store, writing a 401 when no actor is set.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (domain.Actor, *drafts.WorkingStore, bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok || actor.UID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Unauthorized"})
		return domain.Actor{}, nil, false
	}
	return actor, s.registry.Open(actor.UID), true
}

// applyVocabulary restricts tag edits to the stored vocabulary. A failed read leaves tags
// unrestricted rather than blocking the editor.
func (s *Server) applyVocabulary(ctx context.Context, ws *drafts.WorkingStore) {
	if s.loader == nil {
		return
	}
	tags, err := s.loader.Tags(ctx)
	if err != nil {
		s.logger.Warn("Tag vocabulary unavailable", logging.Error(err))
		return
	}
	ws.SetVocabulary(tags)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps working-store and typed errors to HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, drafts.ErrCapacityExceeded),
		errors.Is(err, drafts.ErrDayClosed),
		errors.Is(err, media.ErrUnsupportedType):
		return http.StatusUnprocessableEntity
	case errors.Is(err, media.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, drafts.ErrUnknownField),
		errors.Is(err, drafts.ErrInvalidValue),
		errors.Is(err, drafts.ErrImmutableField),
		errors.Is(err, drafts.ErrUnknownTag),
		errors.Is(err, drafts.ErrInvalidSlot):
		return http.StatusBadRequest
	case errs.Is(err, errs.ErrNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errs.Is(err, errs.ErrPrecondition):
		return http.StatusConflict
	case errs.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errs.Is(err, errs.ErrBiz), errors.Is(err, naming.ErrAllocationExhausted):
		return http.StatusUnprocessableEntity
	case errs.Is(err, errs.ErrExternal):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, extra map[string]any) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", err,
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path))
	}
	body := map[string]any{"success": false, "message": err.Error()}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// workingView is the editor's full state as returned by GET /api/working.
type workingView struct {
	ClubID    string                     `json:"clubId"`
	IsNew     bool                       `json:"isNew"`
	Club      *models.Club               `json:"club"`
	Form      models.FormInputs          `json:"form"`
	Pending   []drafts.PendingAttachment `json:"pending"`
	Editors   []string                   `json:"otherEditors,omitempty"`
	SaveState commit.State               `json:"saveState"`
	UpdatedAt string                     `json:"updatedAt"`
}

func (s *Server) view(actor domain.Actor, ws *drafts.WorkingStore) workingView {
	_, working := ws.SnapshotForDiff()
	v := workingView{
		ClubID:    ws.ClubID(),
		IsNew:     ws.IsNew(),
		Club:      working,
		Form:      ws.Form(),
		Pending:   ws.Pending(),
		UpdatedAt: ws.UpdatedAt().UTC().Format(time.RFC3339),
	}
	v.SaveState, _ = s.orchestratorState(actor.UID)
	if v.Pending == nil {
		v.Pending = []drafts.PendingAttachment{}
	}
	if !v.IsNew && v.ClubID != "" {
		for _, id := range s.registry.EditorsOf(v.ClubID) {
			if id != actor.UID {
				v.Editors = append(v.Editors, id)
			}
		}
	}
	return v
}
