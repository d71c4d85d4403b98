package admin

import (
	"net/http"
	"strings"

	"club-overview-console/internal/commit"
	"club-overview-console/pkg/events"
	"club-overview-console/pkg/logging"
)

// handleSave handles POST /api/working/save. A clean working copy comes back as a plan to
// confirm; violations come back with 422 and nothing changes.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	actor, ws, ok := s.session(w, r)
	if !ok {
		return
	}
	o := s.orchestrator(actor)
	plan, err := o.Begin(r.Context(), ws)
	if err != nil {
		s.writeError(w, r, err, map[string]any{"state": o.State()})
		return
	}
	if !plan.Valid() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"success":    false,
			"message":    "Validation failed",
			"state":      o.State(),
			"violations": plan.Violations,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"state":   o.State(),
		"plan":    plan,
		"lines":   plan.Changes.Lines(),
	})
}

// handleConfirm handles POST /api/working/save/confirm
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := s.session(w, r)
	if !ok {
		return
	}
	res, err := s.orchestrator(actor).Confirm(r.Context())
	if err != nil {
		extra := map[string]any{}
		if res != nil {
			extra["result"] = res
		}
		s.writeError(w, r, err, extra)
		return
	}

	failed := make([]string, 0, len(res.AttachmentFailures))
	for _, f := range res.AttachmentFailures {
		failed = append(failed, f.Slot)
	}
	if len(failed) > 0 {
		s.logger.Warn("Saved with attachment failures",
			logging.String("club_id", res.ClubID),
			logging.String("slots", strings.Join(failed, ",")))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": len(res.AttachmentFailures) == 0,
		"result":  res,
	})
}

// handleCancel handles POST /api/working/save/cancel
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := s.session(w, r)
	if !ok {
		return
	}
	o := s.orchestrator(actor)
	o.Decline()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "state": o.State()})
}

func (s *Server) historyOf(r *http.Request, clubID string) (*events.ClubHistory, error) {
	return events.History(r.Context(), s.events, clubID)
}

func (s *Server) orchestratorState(uid string) (commit.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orchestrators[uid]
	if !ok {
		return commit.StateIdle, false
	}
	return o.State(), true
}
