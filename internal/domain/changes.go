package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"club-overview-console/internal/models"
)

// Opaque change kinds.
const (
	ChangeUpdated        = "Updated"
	ChangeAdded          = "Added"
	ChangeDeleted        = "Deleted"
	ChangeRemoved        = "Removed"
	ChangeAddedOrUpdated = "Added/Updated"
	ChangeAnyPresence    = "Added/Updated/Removed"
)

// ChangeEntry is one line of the confirmation list. Kind is empty for scalar changes, which
// carry OldValue and NewValue; otherwise the entry only says that something changed.
type ChangeEntry struct {
	Field    string `json:"field"`
	OldValue any    `json:"oldValue,omitempty"`
	NewValue any    `json:"newValue,omitempty"`
	Kind     string `json:"change,omitempty"`
}

// IsOpaque reports whether the entry carries no old/new pair.
func (c ChangeEntry) IsOpaque() bool { return c.Kind != "" }

// String renders "Field: Kind" or "Field: old → new".
func (c ChangeEntry) String() string {
	if c.IsOpaque() {
		return c.Field + ": " + c.Kind
	}
	return fmt.Sprintf("%s: %s → %s", c.Field, renderValue(c.OldValue), renderValue(c.NewValue))
}

func renderValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "none"
	case string:
		return t
	case float64:
		return formatNumber(t)
	default:
		return fmt.Sprint(t)
	}
}

// ChangeSet is an ordered change list.
type ChangeSet []ChangeEntry

// ToJSON serializes the change list for audit storage.
func (cs ChangeSet) ToJSON() (string, error) {
	if cs == nil {
		return "[]", nil
	}
	b, err := json.Marshal(cs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal change set: %w", err)
	}
	return string(b), nil
}

// Lines renders every entry with String.
func (cs ChangeSet) Lines() []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.String())
	}
	return out
}

// Diff compares the original snapshot with the working copy. Entries follow a fixed order:
// identity, geometry, commerce, presentation, tags, media, then each weekday from Monday to
// Sunday. Staged attachments always count as changes, so Diff(x, x) is empty for any
// snapshot without pending media.
func Diff(original, working *models.Club) ChangeSet {
	if original == nil {
		original = &models.Club{}
	}
	if working == nil {
		working = &models.Club{}
	}
	var out ChangeSet
	scalar := func(field string, oldV, newV any) {
		out = append(out, ChangeEntry{Field: field, OldValue: oldV, NewValue: newV})
	}
	opaque := func(field, kind string) {
		out = append(out, ChangeEntry{Field: field, Kind: kind})
	}

	if original.Name != working.Name {
		scalar("Name", original.Name, working.Name)
	}
	if !ptrEqual(original.DisplayName, working.DisplayName) {
		scalar("Display Name", ptrValue(original.DisplayName), ptrValue(working.DisplayName))
	}
	if original.TypeOfClub != working.TypeOfClub {
		scalar("Type of Club", original.TypeOfClub, working.TypeOfClub)
	}
	if !ptrEqual(original.Lat, working.Lat) {
		scalar("Latitude", ptrValue(original.Lat), ptrValue(working.Lat))
	}
	if !ptrEqual(original.Lon, working.Lon) {
		scalar("Longitude", ptrValue(original.Lon), ptrValue(working.Lon))
	}
	if !slices.Equal(original.Corners, working.Corners) {
		opaque("Corners", ChangeUpdated)
	}
	if !ptrEqual(original.Capacity, working.Capacity) {
		scalar("Max Visitors", ptrValue(original.Capacity), ptrValue(working.Capacity))
	}
	if !ptrEqual(original.EntryPrice, working.EntryPrice) {
		scalar("Entry Price", ptrValue(original.EntryPrice), ptrValue(working.EntryPrice))
	}
	if original.PrimaryColor != working.PrimaryColor {
		scalar("Primary Color", original.PrimaryColor, working.PrimaryColor)
	}
	if original.SecondaryColor != working.SecondaryColor {
		scalar("Secondary Color", original.SecondaryColor, working.SecondaryColor)
	}
	if original.Font != working.Font {
		scalar("Font", original.Font, working.Font)
	}
	if original.Description != working.Description {
		scalar("Description", original.Description, working.Description)
	}

	oldTags, newTags := sortedCopy(original.Tags), sortedCopy(working.Tags)
	if !slices.Equal(oldTags, newTags) {
		scalar("Tags", strings.Join(oldTags, ", "), strings.Join(newTags, ", "))
	}

	if attachmentName(original.Logo) != attachmentName(working.Logo) || working.Logo.IsLocal() {
		opaque("Logo", ChangeUpdated)
	}

	switch {
	case working.Banner != nil:
		if working.Banner.IsLocal() || original.Banner == nil {
			opaque("Banner Image", ChangeAddedOrUpdated)
		}
	case original.Banner != nil:
		opaque("Banner Image", ChangeRemoved)
	}

	if len(original.LocationImages) != len(working.LocationImages) || anyLocal(working.LocationImages) {
		opaque("Location Images", ChangeUpdated)
	}

	if working.Barcard.IsLocal() || (working.Barcard == nil) != (original.Barcard == nil) {
		opaque("Barcard", ChangeAnyPresence)
	}

	for _, day := range models.Weekdays {
		label := models.DayLabel(day)
		o, w := original.Day(day), working.Day(day)
		if o == nil {
			o = &models.DayHours{}
		}
		if w == nil {
			w = &models.DayHours{}
		}

		// Compared as rendered: a half-filled day is Closed and an age of 0 is Not set.
		if oh, wh := hoursLabel(o), hoursLabel(w); oh != wh {
			scalar(label+" Hours", oh, wh)
		}
		if oa, wa := ageLabel(o.AgeRestriction), ageLabel(w.AgeRestriction); oa != wa {
			scalar(label+" Age Restriction", oa, wa)
		}

		oldOffer, newOffer := attachmentName(o.DailyOffer), attachmentName(w.DailyOffer)
		hadOffer, hasOffer := o.DailyOffer != nil, w.DailyOffer != nil
		switch {
		case hadOffer && !hasOffer:
			opaque(label+" Offer", ChangeDeleted)
		case !hadOffer && hasOffer:
			opaque(label+" Offer", ChangeAdded)
		case hadOffer && hasOffer && (oldOffer != newOffer || w.DailyOffer.IsLocal()):
			opaque(label+" Offer", ChangeUpdated)
		}
	}
	return out
}

// hoursLabel renders a day's schedule as "HH:MM - HH:MM" or "Closed".
func hoursLabel(d *models.DayHours) string {
	if d.HasHours() {
		return d.Open + " - " + d.Close
	}
	return "Closed"
}

func ageLabel(age *int) string {
	if age == nil || *age == 0 {
		return "Not set"
	}
	return fmt.Sprintf("%d+", *age)
}

func anyLocal(images []models.Attachment) bool {
	for i := range images {
		if images[i].IsLocal() {
			return true
		}
	}
	return false
}

func attachmentName(a *models.Attachment) string {
	if a == nil {
		return ""
	}
	return a.Name
}

func sortedCopy(s []string) []string {
	out := append([]string{}, s...)
	slices.Sort(out)
	return out
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func ptrValue[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
