// Package commit turns a working copy into stored records and uploaded media.
//
// A commit moves through Idle, Validating, AwaitingConfirmation and Persisting before it ends
// in Completed or Aborted. Persisting writes a backup before any overwrite and uploads every
// staged attachment independently; upload failures are reported, never rolled back.
package commit

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"club-overview-console/internal/domain"
	"club-overview-console/internal/domain/specs"
	"club-overview-console/internal/drafts"
	"club-overview-console/internal/models"
	"club-overview-console/internal/naming"
	"club-overview-console/internal/validation"
	errs "club-overview-console/pkg/errors"
	"club-overview-console/pkg/events"
	"club-overview-console/pkg/logging"
	"club-overview-console/pkg/metrics"
)

// State is a step of the commit state machine.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateAwaitingConfirmation
	StatePersisting
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StatePersisting:
		return "persisting"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

var (
	ErrBusy            = errors.New("commit already in progress")
	ErrNothingToCommit = errors.New("no commit awaiting confirmation")
	ErrReloaded        = errors.New("working copy was reloaded after the save was planned")
)

// Loader reads a stored club back into the editable model, previews included.
type Loader interface {
	Load(ctx context.Context, id string) (*models.Club, error)
}

// AttachmentFailure is one staged attachment that did not reach the blob store.
type AttachmentFailure struct {
	Slot string `json:"slot"`
	Path string `json:"path"`
	Err  error  `json:"-"`
}

func (f AttachmentFailure) Error() string {
	return fmt.Sprintf("upload %s to %s: %v", f.Slot, f.Path, f.Err)
}

func (f AttachmentFailure) Unwrap() error { return f.Err }

// Plan is what the editor is asked to confirm.
type Plan struct {
	ID         string           `json:"id"`
	ClubID     string           `json:"clubId"`
	IsNew      bool             `json:"isNew"`
	Changes    domain.ChangeSet `json:"changes"`
	Violations []string         `json:"violations,omitempty"`
	Pending    []string         `json:"pending,omitempty"`

	generation uint64
}

// Valid reports whether the working copy passed validation.
func (p *Plan) Valid() bool { return len(p.Violations) == 0 }

// Result describes a finished commit attempt.
type Result struct {
	State              State               `json:"state"`
	ClubID             string              `json:"clubId,omitempty"`
	Collection         string              `json:"collection,omitempty"`
	Changes            domain.ChangeSet    `json:"changes"`
	Violations         []string            `json:"violations,omitempty"`
	AttachmentFailures []AttachmentFailure `json:"attachmentFailures,omitempty"`
	Warnings           []string            `json:"warnings,omitempty"`
}

// Deps are the collaborators shared by every editor's orchestrator.
type Deps struct {
	Records    domain.RecordStore
	Blobs      domain.BlobStore
	Transcoder domain.Transcoder
	Allocator  *naming.Allocator
	Validator  *validation.Validator
	Loader     Loader
	Events     events.EventStore
	Layout     models.StorageLayout
	Logger     *logging.Logger

	// UploadConcurrency bounds parallel blob uploads; values below 1 mean 1.
	UploadConcurrency int
}

// Orchestrator runs commits for one editor. Begin, Confirm and Decline are safe to call from
// concurrent requests; only one commit runs at a time.
type Orchestrator struct {
	deps   Deps
	actor  domain.Actor
	logger *logging.ComponentLogger

	concurrency atomic.Int32

	mu    sync.Mutex
	state State
	plan  *Plan
	ws    *drafts.WorkingStore
}

// New creates an orchestrator acting as actor.
func New(deps Deps, actor domain.Actor) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validation.NewValidator(specs.OptionsFromEnv())
	}
	if deps.Layout == (models.StorageLayout{}) {
		deps.Layout = models.DefaultStorageLayout()
	}
	o := &Orchestrator{
		deps:   deps,
		actor:  actor,
		logger: deps.Logger.WithComponent("commit"),
	}
	o.SetUploadConcurrency(deps.UploadConcurrency)
	return o
}

// SetUploadConcurrency changes the upload bound for later commits.
func (o *Orchestrator) SetUploadConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	o.concurrency.Store(int32(n))
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Plan returns the plan awaiting confirmation, if any.
func (o *Orchestrator) Plan() *Plan {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateAwaitingConfirmation {
		return nil
	}
	return o.plan
}

// Begin validates ws and, when it is clean, computes the change list and waits for
// confirmation. Violations come back on the plan with a nil error and leave the orchestrator
// Aborted. Calling Begin while a plan
// is awaiting confirmation replaces that plan.
func (o *Orchestrator) Begin(ctx context.Context, ws *drafts.WorkingStore) (*Plan, error) {
	o.mu.Lock()
	if o.state == StateValidating || o.state == StatePersisting {
		o.mu.Unlock()
		return nil, errs.NewPrecondition("commit.begin", "a save is already running", ErrBusy)
	}
	o.state = StateValidating
	o.plan = nil
	o.ws = nil
	o.mu.Unlock()

	generation := ws.Generation()
	original, working := ws.SnapshotForDiff()
	plan := &Plan{
		ID:         uuid.NewString(),
		ClubID:     working.ID,
		IsNew:      ws.IsNew(),
		Violations: o.deps.Validator.Validate(ctx, working, ws.Form()),
		generation: generation,
	}
	for _, p := range ws.Pending() {
		plan.Pending = append(plan.Pending, p.Key)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if !plan.Valid() {
		o.state = StateAborted
		metrics.CommitsTotal.WithLabelValues("invalid").Inc()
		o.logger.Info("Save rejected by validation",
			logging.String("club_id", plan.ClubID),
			logging.Int("violations", len(plan.Violations)))
		return plan, nil
	}
	plan.Changes = domain.Diff(original, working)
	o.state = StateAwaitingConfirmation
	o.plan = plan
	o.ws = ws
	return plan, nil
}

// Decline drops the pending plan and returns to Idle.
func (o *Orchestrator) Decline() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateAwaitingConfirmation {
		return
	}
	o.state = StateIdle
	o.plan = nil
	o.ws = nil
	metrics.CommitsTotal.WithLabelValues("declined").Inc()
}

// Confirm persists the working copy the pending plan was built from. Failures before the
// record write abort the commit and leave the working copy untouched; attachment failures
// are reported on a Completed result.
func (o *Orchestrator) Confirm(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	if o.state != StateAwaitingConfirmation || o.plan == nil {
		st := o.state
		o.mu.Unlock()
		return nil, errs.NewPrecondition("commit.confirm", "nothing to confirm in state "+st.String(), ErrNothingToCommit)
	}
	plan, ws := o.plan, o.ws
	o.state = StatePersisting
	o.plan = nil
	o.ws = nil
	o.mu.Unlock()

	start := time.Now()
	res, err := o.persist(ctx, ws, plan)
	metrics.CommitDuration.Observe(time.Since(start).Seconds())

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.state = StateAborted
		metrics.CommitsTotal.WithLabelValues("aborted").Inc()
		o.logger.Error("Save aborted", err, logging.String("club_id", plan.ClubID))
		res.State = StateAborted
		return res, err
	}
	o.state = StateCompleted
	metrics.CommitsTotal.WithLabelValues("completed").Inc()
	res.State = StateCompleted
	return res, nil
}

// Save runs Begin, asks confirmer and then confirms or declines.
func (o *Orchestrator) Save(ctx context.Context, ws *drafts.WorkingStore, confirmer domain.Confirmer) (*Result, error) {
	plan, err := o.Begin(ctx, ws)
	if err != nil {
		return nil, err
	}
	if !plan.Valid() {
		return &Result{State: StateAborted, ClubID: plan.ClubID, Violations: plan.Violations}, nil
	}
	ok, err := confirmer.Confirm(ctx, plan.Changes)
	if err != nil || !ok {
		o.Decline()
		return &Result{State: StateIdle, ClubID: plan.ClubID, Changes: plan.Changes}, err
	}
	return o.Confirm(ctx)
}

func (o *Orchestrator) persist(ctx context.Context, ws *drafts.WorkingStore, plan *Plan) (*Result, error) {
	res := &Result{ClubID: plan.ClubID, Changes: plan.Changes}
	if ws.Generation() != plan.generation {
		return res, errs.NewPrecondition("commit.persist", "working copy changed", ErrReloaded)
	}

	original, working := ws.SnapshotForDiff()
	pending := ws.Pending()
	isNew := ws.IsNew()

	logoPending := slices.ContainsFunc(pending, func(p drafts.PendingAttachment) bool {
		return p.Slot.Kind == models.SlotLogo
	})
	alloc, err := o.deps.Allocator.Allocate(ctx, working.Name, isNew, logoPending)
	if err != nil {
		return res, err
	}
	if isNew {
		working.ID = alloc.RecordID
	}
	if logoPending {
		if working.Logo == nil {
			working.Logo = &models.Attachment{}
		}
		working.Logo.Name = alloc.LogoName
	}
	res.ClubID = working.ID

	models.ResolveDayAgeRestrictions(working)
	res.Changes = domain.Diff(original, working)
	doc := models.Normalize(working)
	now := time.Now().UTC().Format(time.RFC3339)

	var ev events.Event
	if isNew {
		res.Collection = domain.CollectionNewClubs
		if o.actor.IsAdmin() {
			res.Collection = domain.CollectionClubData
		}
		doc["created_by"] = o.actor.UID
		doc["created_at"] = now
		doc["processed"] = false
		if res.Collection == domain.CollectionClubData {
			ev = events.ClubUpdated{Base: events.NewBase(res.ClubID, o.actor.UID), Collection: res.Collection, Changes: res.Changes.Lines(), Created: true}
		} else {
			ev = events.ClubSubmitted{Base: events.NewBase(res.ClubID, o.actor.UID), Collection: res.Collection, Changes: res.Changes.Lines()}
		}
	} else {
		res.Collection = domain.CollectionClubData
		if err := o.backup(ctx, res.ClubID); err != nil {
			return res, err
		}
		doc["updated_at"] = now
		doc["updated_by"] = o.actor.UID
		ev = events.ClubUpdated{Base: events.NewBase(res.ClubID, o.actor.UID), Collection: res.Collection, Changes: res.Changes.Lines()}
	}

	if err := o.deps.Records.Put(ctx, res.Collection, res.ClubID, doc, domain.PutOptions{Merge: true}); err != nil {
		return res, errs.NewStore("commit.write", res.Collection, "write "+res.ClubID, err)
	}
	o.emit(ctx, ev)
	o.logger.Info("Club saved",
		logging.String("club_id", res.ClubID),
		logging.String("collection", res.Collection),
		logging.Int("changes", len(res.Changes)),
		logging.Int("attachments", len(pending)))

	res.AttachmentFailures = o.upload(ctx, res.ClubID, working.Logo, pending)

	// The editor may have loaded another club while uploads ran.
	if ws.Generation() != plan.generation {
		res.Warnings = append(res.Warnings, "working copy was replaced during save and was not reloaded")
		return res, nil
	}
	if isNew {
		ws.CreateEmpty()
		return res, nil
	}
	if err := o.rehydrate(ctx, ws, res.ClubID); err != nil {
		ws.ClearPending()
		res.Warnings = append(res.Warnings, "saved club could not be reloaded: "+err.Error())
		o.logger.Warn("Reload after save failed", logging.String("club_id", res.ClubID), logging.Error(err))
	}
	return res, nil
}

// backup copies the stored record into the backup collection. Any failure stops the update.
func (o *Orchestrator) backup(ctx context.Context, id string) error {
	existing, err := o.deps.Records.Get(ctx, domain.CollectionClubData, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errs.NewNotFound("commit.backup", domain.CollectionClubData+"/"+id, err)
		}
		return errs.NewStore("commit.backup", domain.CollectionClubData, "read "+id, err)
	}
	b := domain.NewBackup(id, existing, o.actor.UID)
	if err := o.deps.Records.Put(ctx, domain.CollectionBackups, id, b.Document(), domain.PutOptions{Merge: true}); err != nil {
		return errs.NewPrecondition("commit.backup", "backup failed, update aborted", err)
	}
	o.emit(ctx, events.BackupCreated{Base: events.NewBase(id, o.actor.UID), Collection: domain.CollectionBackups})
	return nil
}

// upload sends every staged attachment. Uploads run on a context detached from the caller so
// a dropped request does not cut them off.
func (o *Orchestrator) upload(ctx context.Context, clubID string, logo *models.Attachment, pending []drafts.PendingAttachment) []AttachmentFailure {
	if len(pending) == 0 {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	logoName := ""
	if logo != nil {
		logoName = logo.Name
	}

	var (
		mu       sync.Mutex
		failures []AttachmentFailure
	)
	g := new(errgroup.Group)
	g.SetLimit(int(o.concurrency.Load()))
	for _, p := range pending {
		p := p
		g.Go(func() error {
			name := p.Name
			if name == "" {
				name = p.Slot.Filename(logoName)
			}
			path := o.deps.Layout.BlobPath(p.Slot, clubID, name)
			err := o.uploadOne(ctx, p, path)
			if err == nil {
				metrics.AttachmentUploads.WithLabelValues(p.Slot.Kind.String(), "ok").Inc()
				return nil
			}
			metrics.AttachmentUploads.WithLabelValues(p.Slot.Kind.String(), "failed").Inc()
			o.logger.Error("Attachment upload failed", err,
				logging.String("club_id", clubID),
				logging.String("slot", p.Key),
				logging.String("path", path))
			o.emit(ctx, events.AttachmentFailed{Base: events.NewBase(clubID, o.actor.UID), Slot: p.Key, Path: path, Error: err.Error()})

			mu.Lock()
			failures = append(failures, AttachmentFailure{Slot: p.Key, Path: path, Err: err})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(failures, func(a, b AttachmentFailure) int { return strings.Compare(a.Slot, b.Slot) })
	return failures
}

func (o *Orchestrator) uploadOne(ctx context.Context, p drafts.PendingAttachment, path string) error {
	data, contentType := p.Bytes, ""
	if o.deps.Transcoder != nil {
		var err error
		data, contentType, err = o.deps.Transcoder.Transcode(ctx, p.Slot, p.Bytes)
		if err != nil {
			return errs.NewValidation("commit.transcode", p.Key, err)
		}
	}
	if err := o.deps.Blobs.Upload(ctx, path, data, contentType); err != nil {
		return errs.NewExternal("commit.upload", "blobstore", path, err)
	}
	return nil
}

func (o *Orchestrator) rehydrate(ctx context.Context, ws *drafts.WorkingStore, id string) error {
	if o.deps.Loader != nil {
		club, err := o.deps.Loader.Load(ctx, id)
		if err != nil {
			return err
		}
		ws.Hydrate(club)
		return nil
	}
	doc, err := o.deps.Records.Get(ctx, domain.CollectionClubData, id)
	if err != nil {
		return err
	}
	ws.Hydrate(models.ClubFromDocument(id, doc))
	return nil
}

func (o *Orchestrator) emit(ctx context.Context, ev events.Event) {
	if o.deps.Events == nil || ev == nil {
		return
	}
	if err := o.deps.Events.Append(ctx, ev); err != nil {
		o.logger.Warn("Audit event not stored",
			logging.String("type", ev.Type()),
			logging.String("club_id", ev.ClubID()),
			logging.Error(err))
	}
}
