package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"club-overview-console/internal/auth"
	"club-overview-console/internal/commit"
	"club-overview-console/internal/domain"
	"club-overview-console/internal/domain/specs"
	"club-overview-console/internal/drafts"
	"club-overview-console/internal/geo"
	"club-overview-console/internal/loader"
	"club-overview-console/internal/media"
	"club-overview-console/internal/models"
	"club-overview-console/internal/naming"
	testutil "club-overview-console/internal/testing"
	"club-overview-console/internal/validation"
	errs "club-overview-console/pkg/errors"
	"club-overview-console/pkg/events"
)

var (
	editor = domain.Actor{UID: "u-editor", Name: "Maja", Role: domain.RoleEditor}
	admin  = domain.Actor{UID: "u-admin", Name: "Jonas", Role: domain.RoleAdmin}
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type testServer struct {
	srv    *Server
	router *mux.Router
	store  *testutil.MockRecordStore
	blobs  *testutil.MockBlobStore
	events *events.MemoryStore
}

func storedClub() *models.Club {
	lat, lon := 55.6761, 12.5683
	c := models.NewEmptyClub()
	c.ID = "night_owl_0"
	c.Name = "Night Owl"
	c.TypeOfClub = "nightclub"
	c.Lat, c.Lon = &lat, &lon
	c.Corners = []models.GeoPoint{{Latitude: 1, Longitude: 1}, {Latitude: 1, Longitude: 2}, {Latitude: 2, Longitude: 2}, {Latitude: 2, Longitude: 1}}
	c.OpeningHours["friday"] = &models.DayHours{Open: "22:00", Close: "05:00"}
	return c
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		store:  testutil.NewMockRecordStore(),
		blobs:  testutil.NewMockBlobStore(),
		events: events.NewMemoryStore(),
	}
	ts.store.Seed(domain.CollectionClubData, "night_owl_0", storedClub().ToDocument())
	ts.store.Seed(domain.CollectionTags, "techno", models.Document{"name": "techno", "emoji": "🎧"})

	layout := models.DefaultStorageLayout()
	ld := loader.New(ts.store, ts.blobs, layout, loader.Defaults{Logo: "default-logo"}, nil)
	ts.srv = NewServer(Options{
		Loader:  ld,
		Locator: geo.NewLocator(nil, nil),
		Events:  ts.events,
		Commit: commit.Deps{
			Records:           ts.store,
			Blobs:             ts.blobs,
			Transcoder:        media.NewSniffer(0),
			Allocator:         naming.NewAllocator(ts.store, 0),
			Validator:         validation.NewValidator(specs.RuleOptions{MinCorners: 4}),
			Layout:            layout,
			UploadConcurrency: 2,
		},
	})
	ts.router = mux.NewRouter()
	ts.srv.Routes(ts.router)
	return ts
}

func (ts *testServer) do(t *testing.T, actor *domain.Actor, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if actor != nil {
		req = req.WithContext(auth.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func field(path string, value any) []byte {
	b, _ := json.Marshal(map[string]any{"path": path, "value": value})
	return b
}

func TestServer_RequiresActor(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/api/clubs", "/api/working", "/api/working/diff"} {
		if rec := ts.do(t, nil, http.MethodGet, path, nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: code = %d, want 401", path, rec.Code)
		}
	}
}

func TestServer_ListClubsAndTags(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, &editor, http.MethodGet, "/api/clubs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clubs code = %d: %s", rec.Code, rec.Body)
	}
	clubs := decode(t, rec)["clubs"].([]any)
	if len(clubs) != 1 || clubs[0].(map[string]any)["id"] != "night_owl_0" {
		t.Errorf("clubs = %v", clubs)
	}

	if rec := ts.do(t, &editor, http.MethodGet, "/api/clubs?collection=users", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown collection code = %d", rec.Code)
	}

	rec = ts.do(t, &editor, http.MethodGet, "/api/tags", nil)
	tags := decode(t, rec)["tags"].([]any)
	if len(tags) != 1 || tags[0].(map[string]any)["name"] != "techno" {
		t.Errorf("tags = %v", tags)
	}
}

func TestServer_LoadEditSave(t *testing.T) {
	ts := newTestServer(t)

	if rec := ts.do(t, &editor, http.MethodPost, "/api/working/load/missing_club", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing club code = %d", rec.Code)
	}
	rec := ts.do(t, &editor, http.MethodPost, "/api/working/load/night_owl_0", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("load code = %d: %s", rec.Code, rec.Body)
	}
	if got := decode(t, rec); got["clubId"] != "night_owl_0" || got["isNew"] != false {
		t.Fatalf("view = %v", got)
	}

	if rec := ts.do(t, &editor, http.MethodPatch, "/api/working/fields", field("description", "Basement techno")); rec.Code != http.StatusOK {
		t.Fatalf("mutate code = %d: %s", rec.Code, rec.Body)
	}

	rec = ts.do(t, &editor, http.MethodGet, "/api/working/diff", nil)
	lines := decode(t, rec)["lines"].([]any)
	if len(lines) != 1 || !strings.Contains(lines[0].(string), "Basement techno") {
		t.Fatalf("diff lines = %v", lines)
	}

	rec = ts.do(t, &editor, http.MethodPost, "/api/working/save", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("save code = %d: %s", rec.Code, rec.Body)
	}
	if got := decode(t, rec); got["state"] != "awaiting_confirmation" {
		t.Fatalf("save state = %v", got["state"])
	}

	rec = ts.do(t, &editor, http.MethodPost, "/api/working/save/confirm", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm code = %d: %s", rec.Code, rec.Body)
	}
	result := decode(t, rec)["result"].(map[string]any)
	if result["state"] != "completed" || result["collection"] != domain.CollectionClubData {
		t.Errorf("result = %v", result)
	}
	if stored := ts.store.Docs[domain.CollectionClubData]["night_owl_0"]; stored["description"] != "Basement techno" {
		t.Errorf("stored description = %v", stored["description"])
	}
	if len(ts.store.PutsTo(domain.CollectionBackups)) != 1 {
		t.Errorf("backup not written")
	}

	rec = ts.do(t, &editor, http.MethodGet, "/api/clubs/night_owl_0/history", nil)
	if got := decode(t, rec); got["updates"] != float64(1) {
		t.Errorf("history = %v", got)
	}

	if rec := ts.do(t, &editor, http.MethodPost, "/api/working/save/confirm", nil); rec.Code != http.StatusConflict {
		t.Errorf("second confirm code = %d, want 409", rec.Code)
	}
}

func TestServer_SaveCancel(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, &editor, http.MethodPost, "/api/working/load/night_owl_0", nil)
	ts.do(t, &editor, http.MethodPatch, "/api/working/fields", field("name", "Owl"))
	ts.do(t, &editor, http.MethodPost, "/api/working/save", nil)

	rec := ts.do(t, &editor, http.MethodPost, "/api/working/save/cancel", nil)
	if got := decode(t, rec); got["state"] != "idle" {
		t.Fatalf("cancel state = %v", got["state"])
	}
	if n := len(ts.store.Puts); n != 0 {
		t.Errorf("puts after cancel = %d", n)
	}
	if got := decode(t, ts.do(t, &editor, http.MethodGet, "/api/working", nil)); got["club"].(map[string]any)["name"] != "Owl" {
		t.Errorf("working copy lost after cancel: %v", got["club"])
	}
}

func TestServer_NewRecordRouting(t *testing.T) {
	tests := []struct {
		name       string
		actor      domain.Actor
		collection string
	}{
		{"editor submission", editor, domain.CollectionNewClubs},
		{"admin creates approved", admin, domain.CollectionClubData},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			a := tt.actor
			ts.do(t, &a, http.MethodPost, "/api/working/new", nil)

			rec := ts.do(t, &a, http.MethodPost, "/api/working/save", nil)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("empty save code = %d", rec.Code)
			}
			body := decode(t, rec)
			if v := body["violations"].([]any); len(v) == 0 {
				t.Fatal("no violations for empty template")
			}
			if body["state"] != "aborted" {
				t.Errorf("rejected save state = %v, want aborted", body["state"])
			}

			for _, m := range []struct {
				path  string
				value any
			}{
				{"name", "Blue Moon"},
				{"type_of_club", "bar"},
				{"entrance", "55.6761, 12.5683"},
				{"corners", []map[string]float64{{"latitude": 1, "longitude": 1}, {"latitude": 1, "longitude": 2}, {"latitude": 2, "longitude": 2}, {"latitude": 2, "longitude": 1}}},
				{"entry_price", 50},
				{"opening_hours.friday", "22:00 - 04:00"},
			} {
				if rec := ts.do(t, &a, http.MethodPatch, "/api/working/fields", field(m.path, m.value)); rec.Code != http.StatusOK {
					t.Fatalf("mutate %s code = %d: %s", m.path, rec.Code, rec.Body)
				}
			}

			if rec := ts.do(t, &a, http.MethodPost, "/api/working/save", nil); rec.Code != http.StatusOK {
				t.Fatalf("save code = %d: %s", rec.Code, rec.Body)
			}
			rec = ts.do(t, &a, http.MethodPost, "/api/working/save/confirm", nil)
			result := decode(t, rec)["result"].(map[string]any)
			if result["collection"] != tt.collection || result["clubId"] != "blue_moon_0" {
				t.Errorf("result = %v", result)
			}
			if got := decode(t, ts.do(t, &a, http.MethodGet, "/api/working", nil)); got["isNew"] != true {
				t.Errorf("working copy not reset to template: %v", got)
			}
		})
	}
}

func TestServer_MutateFieldErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, &editor, http.MethodPost, "/api/working/load/night_owl_0", nil)

	tests := []struct {
		name string
		body []byte
		code int
	}{
		{"malformed json", []byte("{"), http.StatusBadRequest},
		{"missing path", field("", "x"), http.StatusBadRequest},
		{"unknown field", field("visitors", 10), http.StatusBadRequest},
		{"immutable id", field("id", "other"), http.StatusBadRequest},
		{"tag outside vocabulary", field("tags+", "jazz"), http.StatusBadRequest},
		{"known tag", field("tags+", "techno"), http.StatusOK},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, &editor, http.MethodPatch, "/api/working/fields", tt.body)
			if rec.Code != tt.code {
				t.Errorf("code = %d, want %d: %s", rec.Code, tt.code, rec.Body)
			}
		})
	}
}

func TestServer_Attachments(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, &editor, http.MethodPost, "/api/working/load/night_owl_0", nil)

	tests := []struct {
		name string
		slot string
		body []byte
		code int
	}{
		{"logo image", "logo", pngHeader, http.StatusOK},
		{"offer on open day", "offer:friday", pngHeader, http.StatusOK},
		{"offer on closed day", "offer:monday", pngHeader, http.StatusUnprocessableEntity},
		{"barcard must be pdf", "barcard", pngHeader, http.StatusUnprocessableEntity},
		{"bad slot", "poster", pngHeader, http.StatusBadRequest},
		{"location gap", "location:3", pngHeader, http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, &editor, http.MethodPut, "/api/working/attachments/"+tt.slot, tt.body)
			if rec.Code != tt.code {
				t.Errorf("code = %d, want %d: %s", rec.Code, tt.code, rec.Body)
			}
		})
	}

	pending := decode(t, ts.do(t, &editor, http.MethodGet, "/api/working", nil))["pending"].([]any)
	if len(pending) != 2 {
		t.Fatalf("pending = %v", pending)
	}
	if rec := ts.do(t, &editor, http.MethodDelete, "/api/working/attachments/logo", nil); rec.Code != http.StatusOK {
		t.Fatalf("clear code = %d", rec.Code)
	}
	pending = decode(t, ts.do(t, &editor, http.MethodGet, "/api/working", nil))["pending"].([]any)
	if len(pending) != 1 || pending[0].(map[string]any)["slot"] != "offer:friday" {
		t.Errorf("pending after clear = %v", pending)
	}
}

func TestServer_LocationCapacity(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, &editor, http.MethodPost, "/api/working/load/night_owl_0", nil)
	for i := 0; i < models.MaxLocationImages; i++ {
		rec := ts.do(t, &editor, http.MethodPut, fmt.Sprintf("/api/working/attachments/location:%d", i), pngHeader)
		if rec.Code != http.StatusOK {
			t.Fatalf("image %d code = %d: %s", i, rec.Code, rec.Body)
		}
	}
	rec := ts.do(t, &editor, http.MethodPut, fmt.Sprintf("/api/working/attachments/location:%d", models.MaxLocationImages), pngHeader)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("over capacity code = %d, want 422", rec.Code)
	}
}

func TestServer_ValidateAndLocation(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, &editor, http.MethodPost, "/api/working/new", nil)
	got := decode(t, ts.do(t, &editor, http.MethodGet, "/api/working/validate", nil))
	if got["valid"] != false {
		t.Errorf("empty template valid = %v", got["valid"])
	}
	if rec := ts.do(t, &editor, http.MethodGet, "/api/working/location", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("location without coordinates code = %d", rec.Code)
	}

	ts.do(t, &editor, http.MethodPost, "/api/working/load/night_owl_0", nil)
	got = decode(t, ts.do(t, &editor, http.MethodGet, "/api/working/validate", nil))
	if got["valid"] != true {
		t.Errorf("stored club violations = %v", got["violations"])
	}
	rec := ts.do(t, &editor, http.MethodGet, "/api/working/location", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("location code = %d", rec.Code)
	}
	if loc := decode(t, rec); loc["country"] == "" {
		t.Errorf("location = %v", loc)
	}
}

func TestServer_ResetAndOtherEditors(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, &editor, http.MethodPost, "/api/working/load/night_owl_0", nil)
	ts.do(t, &admin, http.MethodPost, "/api/working/load/night_owl_0", nil)
	ts.do(t, &editor, http.MethodPatch, "/api/working/fields", field("name", "Owl"))

	rec := ts.do(t, &editor, http.MethodPost, "/api/working/reset", nil)
	got := decode(t, rec)
	if got["club"].(map[string]any)["name"] != "Night Owl" {
		t.Errorf("reset name = %v", got["club"].(map[string]any)["name"])
	}
	others, _ := got["otherEditors"].([]any)
	if len(others) != 1 || others[0] != admin.UID {
		t.Errorf("otherEditors = %v", others)
	}
}

func TestServer_SetUploadConcurrency(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, &editor, http.MethodGet, "/api/working", nil)
	ts.srv.orchestrator(editor)
	ts.srv.SetUploadConcurrency(0)
	if n := ts.srv.concurrency.Load(); n != 1 {
		t.Errorf("concurrency = %d, want 1", n)
	}
	if st, ok := ts.srv.orchestratorState(editor.UID); !ok || st != commit.StateIdle {
		t.Errorf("state = %v, %v", st, ok)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", drafts.ErrCapacityExceeded), http.StatusUnprocessableEntity},
		{drafts.ErrUnknownField, http.StatusBadRequest},
		{media.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{errs.NewNotFound("op", "clubData/x", domain.ErrNotFound), http.StatusNotFound},
		{errs.NewPrecondition("op", "busy", commit.ErrBusy), http.StatusConflict},
		{errs.NewBiz("op", "exhausted", naming.ErrAllocationExhausted), http.StatusUnprocessableEntity},
		{errs.NewExternal("op", "blobstore", "upload", errors.New("timeout")), http.StatusBadGateway},
		{errs.NewStore("op", "clubData", "write", errors.New("disk full")), http.StatusInternalServerError},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
