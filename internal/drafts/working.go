package drafts

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"club-overview-console/internal/models"
	"club-overview-console/internal/validation"
)

var (
	ErrUnknownField     = errors.New("unknown field")
	ErrInvalidValue     = errors.New("invalid value")
	ErrImmutableField   = errors.New("field cannot be changed")
	ErrUnknownTag       = errors.New("unknown tag")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrInvalidSlot      = errors.New("invalid attachment slot")
	ErrDayClosed        = errors.New("day is closed")
)

// maxCornerSlots bounds corners[N] so a single request cannot allocate an unbounded slice.
const maxCornerSlots = 64

// PendingAttachment is staged media waiting for the next commit. Name, when set, is the
// filename the bytes are uploaded under.
type PendingAttachment struct {
	Slot       models.Slot `json:"-"`
	Key        string      `json:"slot"`
	Name       string      `json:"name,omitempty"`
	Bytes      []byte      `json:"-"`
	Size       int         `json:"size"`
	PreviewRef string      `json:"previewRef"`
	StagedAt   time.Time   `json:"stagedAt"`
}

// WorkingStore holds one editor's original snapshot, working copy, coordinate text and staged
// media. All methods are safe for concurrent use; the working copy never aliases the original.
type WorkingStore struct {
	mu         sync.RWMutex
	original   *models.Club
	working    *models.Club
	form       models.FormInputs
	pending    map[string]PendingAttachment
	isNew      bool
	vocabulary map[string]bool
	generation uint64
	updatedAt  time.Time
}

// NewWorkingStore returns a store holding the empty template.
func NewWorkingStore() *WorkingStore {
	s := &WorkingStore{}
	s.CreateEmpty()
	return s
}

// Hydrate replaces both snapshots with copies of club and drops staged media.
func (s *WorkingStore) Hydrate(club *models.Club) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if club == nil {
		s.reset(models.NewEmptyClub(), true)
		return
	}
	s.reset(club.Clone(), false)
}

// CreateEmpty switches to the new-record template.
func (s *WorkingStore) CreateEmpty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(models.NewEmptyClub(), true)
}

func (s *WorkingStore) reset(original *models.Club, isNew bool) {
	s.original = original
	s.working = original.Clone()
	s.form = models.FormFromClub(s.working)
	s.pending = make(map[string]PendingAttachment)
	s.isNew = isNew
	s.generation++
	s.updatedAt = time.Now()
}

// SetVocabulary restricts tags to names; an empty list accepts any tag.
func (s *WorkingStore) SetVocabulary(tags []models.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(tags) == 0 {
		s.vocabulary = nil
		return
	}
	s.vocabulary = make(map[string]bool, len(tags))
	for _, t := range tags {
		s.vocabulary[t.Name] = true
	}
}

// SnapshotForDiff returns copies of the original and working records.
func (s *WorkingStore) SnapshotForDiff() (original, working *models.Club) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.original.Clone(), s.working.Clone()
}

// Form returns a copy of the coordinate text.
func (s *WorkingStore) Form() models.FormInputs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.form.Clone()
}

// IsNew reports whether the working copy is a new record.
func (s *WorkingStore) IsNew() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isNew
}

// ClubID returns the id of the hydrated record, empty for a new record.
func (s *WorkingStore) ClubID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.original.ID
}

// Generation changes every time the store is hydrated or reset.
func (s *WorkingStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// UpdatedAt is the time of the last change.
func (s *WorkingStore) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Pending returns copies of the staged attachments ordered by slot.
func (s *WorkingStore) Pending() []PendingAttachment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PendingAttachment, 0, len(s.pending))
	for _, p := range s.pending {
		p.Bytes = slices.Clone(p.Bytes)
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b PendingAttachment) int { return compareSlots(a.Slot, b.Slot) })
	return out
}

// ClearPending drops every staged attachment and the pending marks in the working copy.
func (s *WorkingStore) ClearPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(map[string]PendingAttachment)
	w := s.working
	for _, a := range []*models.Attachment{w.Logo, w.Banner, w.Barcard} {
		if a != nil {
			a.Pending = false
		}
	}
	for i := range w.LocationImages {
		w.LocationImages[i].Pending = false
	}
	for _, d := range w.OpeningHours {
		if d != nil && d.DailyOffer != nil {
			d.DailyOffer.Pending = false
		}
	}
}

// StageAttachment records bytes for slot and points the working copy at them. When previewRef
// is empty a local "blob:" reference is generated. A location image index equal to the current
// count appends; appending past models.MaxLocationImages fails with ErrCapacityExceeded.
func (s *WorkingStore) StageAttachment(slot models.Slot, data []byte, previewRef string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty attachment", ErrInvalidValue)
	}
	if previewRef == "" {
		previewRef = models.LocalRefPrefix + uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.working
	staged := func(name string) *models.Attachment {
		return &models.Attachment{Name: name, PreviewRef: previewRef, Pending: true}
	}

	var name string
	switch slot.Kind {
	case models.SlotLogo:
		logo := ""
		if w.Logo != nil {
			logo = w.Logo.Name
		}
		w.Logo = staged(logo)
	case models.SlotBanner:
		w.Banner = staged(slot.Filename(""))
	case models.SlotBarcard:
		w.Barcard = staged(slot.Filename(""))
	case models.SlotLocationImage:
		switch {
		case slot.Index < 0 || slot.Index > len(w.LocationImages):
			return "", fmt.Errorf("%w: location image %d of %d", ErrInvalidSlot, slot.Index, len(w.LocationImages))
		case slot.Index == len(w.LocationImages):
			if len(w.LocationImages) >= models.MaxLocationImages {
				return "", fmt.Errorf("%w: at most %d location images", ErrCapacityExceeded, models.MaxLocationImages)
			}
			name = freeLocationImageName(w.LocationImages, -1)
			w.LocationImages = append(w.LocationImages, *staged(name))
		default:
			name = freeLocationImageName(w.LocationImages, slot.Index)
			w.LocationImages[slot.Index] = *staged(name)
		}
	case models.SlotDayOffer:
		d := w.Day(slot.Day)
		if !d.HasHours() {
			return "", fmt.Errorf("%w: %s", ErrDayClosed, slot.Day)
		}
		d.DailyOffer = staged(slot.Filename(""))
	case models.SlotExtra:
	default:
		return "", fmt.Errorf("%w: %v", ErrInvalidSlot, slot)
	}

	key := slot.String()
	s.pending[key] = PendingAttachment{
		Slot:       slot,
		Key:        key,
		Name:       name,
		Bytes:      slices.Clone(data),
		Size:       len(data),
		PreviewRef: previewRef,
		StagedAt:   time.Now(),
	}
	s.updatedAt = time.Now()
	return previewRef, nil
}

// ClearAttachment removes staged bytes for slot together with the working copy's reference.
// Removing a location image shifts later images, and their staged bytes, down by one.
func (s *WorkingStore) ClearAttachment(slot models.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.working
	switch slot.Kind {
	case models.SlotLogo:
		w.Logo = nil
	case models.SlotBanner:
		w.Banner = nil
	case models.SlotBarcard:
		w.Barcard = nil
	case models.SlotLocationImage:
		if slot.Index < 0 || slot.Index >= len(w.LocationImages) {
			return fmt.Errorf("%w: location image %d of %d", ErrInvalidSlot, slot.Index, len(w.LocationImages))
		}
		w.LocationImages = slices.Delete(w.LocationImages, slot.Index, slot.Index+1)
		s.shiftLocationPending(slot.Index)
		s.updatedAt = time.Now()
		return nil
	case models.SlotDayOffer:
		if d := w.Day(slot.Day); d != nil {
			d.DailyOffer = nil
		}
	case models.SlotExtra:
	default:
		return fmt.Errorf("%w: %v", ErrInvalidSlot, slot)
	}
	delete(s.pending, slot.String())
	s.updatedAt = time.Now()
	return nil
}

func (s *WorkingStore) shiftLocationPending(removed int) {
	shifted := make(map[string]PendingAttachment, len(s.pending))
	for key, p := range s.pending {
		if p.Slot.Kind != models.SlotLocationImage {
			shifted[key] = p
			continue
		}
		switch {
		case p.Slot.Index == removed:
			continue
		case p.Slot.Index > removed:
			p.Slot = models.LocationImageSlot(p.Slot.Index - 1)
			p.Key = p.Slot.String()
		}
		shifted[p.Key] = p
	}
	s.pending = shifted
}

// freeLocationImageName returns the lowest stock image name no other location image uses.
// Names stay attached to their image when the list shifts, so a new image can never take over
// the blob of one that is already stored. skip is the index being replaced, or -1.
func freeLocationImageName(images []models.Attachment, skip int) string {
	used := make(map[string]bool, len(images))
	for i, a := range images {
		if i != skip {
			used[a.Name] = true
		}
	}
	for i := 0; ; i++ {
		if name := models.LocationImageSlot(i).Filename(""); !used[name] {
			return name
		}
	}
}

// MutateField applies one edit to the working copy. Paths: name, displayName, type_of_club,
// lat, lon, entrance, corners, corners[N], entry_price, total_possible_amount_of_visitors,
// age_restriction, primary_color, secondary_color, font, description, tags, tags+, tags-,
// opening_hours.<day> ("HH:MM - HH:MM" or "Closed"), opening_hours.<day>.open|close and
// opening_hours.<day>.ageRestriction. Per-day ages below 16 are stored as unset.
func (s *WorkingStore) MutateField(path string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutate(path, value); err != nil {
		return err
	}
	s.updatedAt = time.Now()
	return nil
}

func (s *WorkingStore) mutate(path string, value any) error {
	w := s.working
	if strings.HasPrefix(path, "opening_hours.") {
		return s.mutateDay(strings.TrimPrefix(path, "opening_hours."), value)
	}
	if strings.HasPrefix(path, "corners[") && strings.HasSuffix(path, "]") {
		idx, err := strconv.Atoi(path[len("corners[") : len(path)-1])
		if err != nil || idx < 0 || idx >= maxCornerSlots {
			return fmt.Errorf("%w: %s", ErrUnknownField, path)
		}
		text, err := asString(path, value)
		if err != nil {
			return err
		}
		for len(s.form.CornerInputs) <= idx {
			s.form.CornerInputs = append(s.form.CornerInputs, "")
		}
		s.form.CornerInputs[idx] = text
		w.Corners = s.form.ValidCorners()
		if w.Corners == nil {
			w.Corners = []models.GeoPoint{}
		}
		return nil
	}

	switch path {
	case "id":
		return fmt.Errorf("%w: id", ErrImmutableField)
	case "name":
		v, err := asString(path, value)
		if err != nil {
			return err
		}
		w.Name = v
		if w.DisplayName != nil && *w.DisplayName == v {
			w.DisplayName = nil
		}
	case "displayName", "display_name":
		if value == nil {
			w.DisplayName = nil
			return nil
		}
		v, err := asString(path, value)
		if err != nil {
			return err
		}
		v = strings.TrimSpace(v)
		if v == "" || v == w.Name {
			w.DisplayName = nil
		} else {
			w.DisplayName = &v
		}
	case "type_of_club":
		v, err := asString(path, value)
		if err != nil {
			return err
		}
		w.TypeOfClub = v
	case "lat", "lon":
		f, err := asFloat(path, value)
		if err != nil {
			return err
		}
		if path == "lat" {
			w.Lat = f
		} else {
			w.Lon = f
		}
		if w.Lat != nil && w.Lon != nil {
			s.form.Entrance = models.FormatCoordinatePair(*w.Lat, *w.Lon)
		}
	case "entrance":
		v, err := asString(path, value)
		if err != nil {
			return err
		}
		s.form.Entrance = v
		if lat, lon, ok := models.ParseCoordinatePair(v); ok {
			w.Lat, w.Lon = &lat, &lon
		}
	case "corners":
		pts, err := asCorners(value)
		if err != nil {
			return err
		}
		w.Corners = pts
		s.form.CornerInputs = models.FormFromClub(w).CornerInputs
	case "entry_price":
		f, err := asFloat(path, value)
		if err != nil {
			return err
		}
		w.EntryPrice = f
	case "total_possible_amount_of_visitors":
		n, err := asInt(path, value)
		if err != nil {
			return err
		}
		w.Capacity = n
	case "age_restriction":
		n, err := asInt(path, value)
		if err != nil {
			return err
		}
		if n != nil {
			if err := validation.ValidateAgeRestriction(*n); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidValue, err)
			}
		}
		w.AgeRestriction = n
	case "primary_color", "secondary_color", "font":
		v, err := asString(path, value)
		if err != nil {
			return err
		}
		if err := validation.ValidateColor(v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, path, err)
		}
		switch path {
		case "primary_color":
			w.PrimaryColor = v
		case "secondary_color":
			w.SecondaryColor = v
		default:
			w.Font = v
		}
	case "description":
		v, err := asString(path, value)
		if err != nil {
			return err
		}
		if err := validation.ValidateDescription(v); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		w.Description = v
	case "tags":
		tags, err := asStrings(path, value)
		if err != nil {
			return err
		}
		set := []string{}
		for _, t := range tags {
			if err := s.checkTag(t); err != nil {
				return err
			}
			if !slices.Contains(set, t) {
				set = append(set, t)
			}
		}
		w.Tags = set
	case "tags+":
		t, err := asString(path, value)
		if err != nil {
			return err
		}
		if err := s.checkTag(t); err != nil {
			return err
		}
		if !slices.Contains(w.Tags, t) {
			w.Tags = append(w.Tags, t)
		}
	case "tags-":
		t, err := asString(path, value)
		if err != nil {
			return err
		}
		w.Tags = slices.DeleteFunc(w.Tags, func(x string) bool { return x == t })
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, path)
	}
	return nil
}

func (s *WorkingStore) checkTag(t string) error {
	if strings.TrimSpace(t) == "" {
		return fmt.Errorf("%w: empty tag", ErrInvalidValue)
	}
	if s.vocabulary != nil && !s.vocabulary[t] {
		return fmt.Errorf("%w: %s", ErrUnknownTag, t)
	}
	return nil
}

// mutateDay handles "<day>", "<day>.open", "<day>.close" and "<day>.ageRestriction".
func (s *WorkingStore) mutateDay(rest string, value any) error {
	day, field, _ := strings.Cut(rest, ".")
	if !models.IsWeekday(day) {
		return fmt.Errorf("%w: opening_hours.%s", ErrUnknownField, rest)
	}
	w := s.working
	if w.OpeningHours == nil {
		w.OpeningHours = make(map[string]*models.DayHours, len(models.Weekdays))
	}
	current := w.OpeningHours[day]

	switch field {
	case "":
		if value == nil {
			w.OpeningHours[day] = nil
			return nil
		}
		text, err := asString("opening_hours."+day, value)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" || strings.EqualFold(text, "closed") {
			w.OpeningHours[day] = nil
			return nil
		}
		open, closing, ok := strings.Cut(text, "-")
		open, closing = strings.TrimSpace(open), strings.TrimSpace(closing)
		if !ok || validation.ValidateTime(open) != nil || validation.ValidateTime(closing) != nil {
			return fmt.Errorf("%w: hours must be \"HH:MM - HH:MM\" or \"Closed\"", ErrInvalidValue)
		}
		if current == nil {
			current = &models.DayHours{}
			w.OpeningHours[day] = current
		}
		current.Open, current.Close = open, closing
	case "open", "close":
		text, err := asString("opening_hours."+rest, value)
		if err != nil {
			return err
		}
		if text != "" {
			if err := validation.ValidateTime(text); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidValue, err)
			}
		}
		if current == nil {
			current = &models.DayHours{}
			w.OpeningHours[day] = current
		}
		if field == "open" {
			current.Open = text
		} else {
			current.Close = text
		}
	case "ageRestriction":
		if current == nil {
			return fmt.Errorf("%w: %s", ErrDayClosed, day)
		}
		n, err := asInt("opening_hours."+rest, value)
		if err != nil {
			return err
		}
		if n != nil && *n < models.MinDayAgeRestriction {
			n = nil
		}
		current.AgeRestriction = n
	default:
		return fmt.Errorf("%w: opening_hours.%s", ErrUnknownField, rest)
	}
	return nil
}

func asString(path string, v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("%w: %s must be a string", ErrInvalidValue, path)
}

func asStrings(path string, v any) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s must be a list of strings", ErrInvalidValue, path)
			}
			out = append(out, s)
		}
		return out, nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %s must be a list of strings", ErrInvalidValue, path)
}

// asFloat accepts finite JSON numbers, numeric strings and nil (unset).
func asFloat(path string, v any) (*float64, error) {
	var f float64
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		f = t
	case int:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidValue, path)
		}
		f = n
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidValue, path)
		}
		f = n
	default:
		return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidValue, path)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("%w: %s must be a finite number", ErrInvalidValue, path)
	}
	return &f, nil
}

func asInt(path string, v any) (*int, error) {
	f, err := asFloat(path, v)
	if err != nil || f == nil {
		return nil, err
	}
	if *f != float64(int(*f)) {
		return nil, fmt.Errorf("%w: %s must be a whole number", ErrInvalidValue, path)
	}
	n := int(*f)
	return &n, nil
}

func asCorners(v any) ([]models.GeoPoint, error) {
	switch t := v.(type) {
	case []models.GeoPoint:
		return slices.Clone(t), nil
	case []any:
		out := make([]models.GeoPoint, 0, len(t))
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: corners must be {latitude, longitude} objects", ErrInvalidValue)
			}
			lat, err1 := asFloat("corners.latitude", m["latitude"])
			lon, err2 := asFloat("corners.longitude", m["longitude"])
			if err1 != nil || err2 != nil || lat == nil || lon == nil {
				return nil, fmt.Errorf("%w: corners must be {latitude, longitude} objects", ErrInvalidValue)
			}
			out = append(out, models.GeoPoint{Latitude: *lat, Longitude: *lon})
		}
		return out, nil
	case nil:
		return []models.GeoPoint{}, nil
	}
	return nil, fmt.Errorf("%w: corners must be a list", ErrInvalidValue)
}

func compareSlots(a, b models.Slot) int {
	if a.Kind != b.Kind {
		return int(a.Kind) - int(b.Kind)
	}
	switch a.Kind {
	case models.SlotLocationImage:
		return a.Index - b.Index
	case models.SlotDayOffer:
		return slices.Index(models.Weekdays, a.Day) - slices.Index(models.Weekdays, b.Day)
	}
	return strings.Compare(a.Name, b.Name)
}
