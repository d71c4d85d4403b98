package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"club-overview-console/internal/domain"
	"club-overview-console/internal/drafts"
	"club-overview-console/internal/models"
	errs "club-overview-console/pkg/errors"
	"club-overview-console/pkg/logging"
)

// handleListClubs handles GET /api/clubs?collection=clubData|newClubs
func (s *Server) handleListClubs(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.session(w, r); !ok {
		return
	}
	collection := r.URL.Query().Get("collection")
	switch collection {
	case "":
		collection = domain.CollectionClubData
	case domain.CollectionClubData, domain.CollectionNewClubs:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "unknown collection " + collection})
		return
	}
	clubs, err := s.loader.List(r.Context(), collection)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "collection": collection, "clubs": clubs})
}

// handleClubHistory handles GET /api/clubs/{id}/history
func (s *Server) handleClubHistory(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.session(w, r); !ok {
		return
	}
	if s.events == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "event history is not enabled"})
		return
	}
	h, err := s.historyOf(r, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, errs.NewStore("admin.history", "club_events", "list events", err), nil)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// handleTags handles GET /api/tags
func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.session(w, r); !ok {
		return
	}
	tags, err := s.loader.Tags(r.Context())
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tags": tags})
}

// handleGetWorking handles GET /api/working
func (s *Server) handleGetWorking(w http.ResponseWriter, r *http.Request) {
	actor, ws, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.view(actor, ws))
}

// handleLoad handles POST /api/working/load/{id}
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	actor, ws, ok := s.session(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	club, err := s.loader.Load(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	s.orchestrator(actor).Decline()
	ws.Hydrate(club)
	s.applyVocabulary(r.Context(), ws)

	s.logger.Info("Club loaded for editing",
		logging.String("club_id", id),
		logging.String("actor", actor.UID))
	writeJSON(w, http.StatusOK, s.view(actor, ws))
}

// handleNew handles POST /api/working/new
func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	actor, ws, ok := s.session(w, r)
	if !ok {
		return
	}
	s.orchestrator(actor).Decline()
	ws.CreateEmpty()
	s.applyVocabulary(r.Context(), ws)
	writeJSON(w, http.StatusOK, s.view(actor, ws))
}

// handleReset handles POST /api/working/reset. A loaded club is read again from the store;
// a new record goes back to the empty template.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	actor, ws, ok := s.session(w, r)
	if !ok {
		return
	}
	s.orchestrator(actor).Decline()
	if ws.IsNew() || ws.ClubID() == "" {
		ws.CreateEmpty()
	} else {
		club, err := s.loader.Load(r.Context(), ws.ClubID())
		if err != nil {
			s.writeError(w, r, err, nil)
			return
		}
		ws.Hydrate(club)
	}
	s.applyVocabulary(r.Context(), ws)
	writeJSON(w, http.StatusOK, s.view(actor, ws))
}

type fieldMutation struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// handleMutateField handles PATCH /api/working/fields
func (s *Server) handleMutateField(w http.ResponseWriter, r *http.Request) {
	actor, ws, ok := s.session(w, r)
	if !ok {
		return
	}
	var m fieldMutation
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid JSON: " + err.Error()})
		return
	}
	if m.Path == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "path is required"})
		return
	}
	if err := ws.MutateField(m.Path, m.Value); err != nil {
		s.writeError(w, r, err, map[string]any{"path": m.Path})
		return
	}
	writeJSON(w, http.StatusOK, s.view(actor, ws))
}

// handleStageAttachment handles PUT /api/working/attachments/{slot}; the body is the raw file.
func (s *Server) handleStageAttachment(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := s.session(w, r)
	if !ok {
		return
	}
	slot, err := models.ParseSlot(mux.Vars(r)["slot"])
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", drafts.ErrInvalidSlot, err), nil)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAttachmentBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"success": false, "message": "attachment too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "read body: " + err.Error()})
		return
	}
	// Reject bytes the upload would refuse before they are staged.
	contentType := ""
	if s.commit.Transcoder != nil {
		if _, contentType, err = s.commit.Transcoder.Transcode(r.Context(), slot, data); err != nil {
			s.writeError(w, r, err, map[string]any{"slot": slot.String()})
			return
		}
	}
	ref, err := ws.StageAttachment(slot, data, "")
	if err != nil {
		s.writeError(w, r, err, map[string]any{"slot": slot.String()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"slot":        slot.String(),
		"previewRef":  ref,
		"size":        len(data),
		"contentType": contentType,
	})
}

// handleClearAttachment handles DELETE /api/working/attachments/{slot}
func (s *Server) handleClearAttachment(w http.ResponseWriter, r *http.Request) {
	actor, ws, ok := s.session(w, r)
	if !ok {
		return
	}
	slot, err := models.ParseSlot(mux.Vars(r)["slot"])
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", drafts.ErrInvalidSlot, err), nil)
		return
	}
	if err := ws.ClearAttachment(slot); err != nil {
		s.writeError(w, r, err, map[string]any{"slot": slot.String()})
		return
	}
	writeJSON(w, http.StatusOK, s.view(actor, ws))
}

// handleDiff handles GET /api/working/diff
func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := s.session(w, r)
	if !ok {
		return
	}
	original, working := ws.SnapshotForDiff()
	changes := domain.Diff(original, working)
	if changes == nil {
		changes = domain.ChangeSet{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": changes, "lines": changes.Lines()})
}

// handleValidate handles GET /api/working/validate
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := s.session(w, r)
	if !ok {
		return
	}
	_, working := ws.SnapshotForDiff()
	violations := s.commit.Validator.Validate(r.Context(), working, ws.Form())
	if violations == nil {
		violations = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": len(violations) == 0, "violations": violations})
}

// handleLocation handles GET /api/working/location
func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := s.session(w, r)
	if !ok {
		return
	}
	_, working := ws.SnapshotForDiff()
	if working.Lat == nil || working.Lon == nil {
		s.writeError(w, r, errs.NewValidation("admin.location", "entrance coordinates are not set", nil), nil)
		return
	}
	if s.locator == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "message": "location lookup is not configured"})
		return
	}
	writeJSON(w, http.StatusOK, s.locator.Locate(r.Context(), *working.Lat, *working.Lon))
}
