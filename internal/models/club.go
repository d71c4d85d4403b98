package models

import (
	"strings"
)

// MaxLocationImages is the cap on location images per club.
const MaxLocationImages = 15

// Weekdays lists opening_hours keys in display order.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// IsWeekday reports whether day is one of the seven opening_hours keys.
func IsWeekday(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// DayLabel returns the capitalised weekday used in change labels ("monday" -> "Monday").
func DayLabel(day string) string {
	if day == "" {
		return ""
	}
	return strings.ToUpper(day[:1]) + day[1:]
}

// GeoPoint is a single geofence corner.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Attachment is a media reference in the working copy. Name is the persisted filename,
// PreviewRef is what a view should display (resolved URL or local object reference).
// Pending marks media whose bytes are staged but not yet uploaded.
type Attachment struct {
	Name       string `json:"name"`
	PreviewRef string `json:"previewRef,omitempty"`
	Pending    bool   `json:"pending,omitempty"`
}

// LocalRefPrefix marks preview references that point at staged, not yet uploaded, bytes.
const LocalRefPrefix = "blob:"

// IsLocal reports whether the attachment only exists locally.
func (a *Attachment) IsLocal() bool {
	return a != nil && (a.Pending || strings.HasPrefix(a.PreviewRef, LocalRefPrefix))
}

func (a *Attachment) clone() *Attachment {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// DayHours is one weekday's schedule. A nil *DayHours in OpeningHours means closed.
type DayHours struct {
	Open           string      `json:"open"`
	Close          string      `json:"close"`
	AgeRestriction *int        `json:"ageRestriction,omitempty"`
	EntryPrice     *float64    `json:"entry_price,omitempty"`
	DailyOffer     *Attachment `json:"daily_offer,omitempty"`
}

// HasHours reports whether both open and close times are set.
func (d *DayHours) HasHours() bool {
	return d != nil && d.Open != "" && d.Close != ""
}

func (d *DayHours) clone() *DayHours {
	if d == nil {
		return nil
	}
	c := *d
	if d.AgeRestriction != nil {
		v := *d.AgeRestriction
		c.AgeRestriction = &v
	}
	if d.EntryPrice != nil {
		v := *d.EntryPrice
		c.EntryPrice = &v
	}
	c.DailyOffer = d.DailyOffer.clone()
	return &c
}

// Tag is one entry of the clubTags vocabulary.
type Tag struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji,omitempty"`
}

// Club is the editable record. Media fields hold Attachments in the working copy and are
// flattened to filenames when persisted (see ToDocument / Normalize).
type Club struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	DisplayName *string `json:"displayName"`
	TypeOfClub  string  `json:"type_of_club"`

	Lat     *float64   `json:"lat"`
	Lon     *float64   `json:"lon"`
	Corners []GeoPoint `json:"corners"`

	OpeningHours map[string]*DayHours `json:"opening_hours"`

	EntryPrice     *float64 `json:"entry_price"`
	AgeRestriction *int     `json:"age_restriction"`
	Capacity       *int     `json:"total_possible_amount_of_visitors"`

	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	Font           string `json:"font"`
	Description    string `json:"description"`

	Logo           *Attachment  `json:"logo"`
	Banner         *Attachment  `json:"banner_image"`
	LocationImages []Attachment `json:"location_images"`
	Barcard        *Attachment  `json:"barcard"`

	Tags []string `json:"tags"`

	// Extra keeps persisted keys the editor does not touch (visitors, rating, created_by, ...)
	// so that a full read-modify-write does not drop them.
	Extra map[string]any `json:"-"`
}

// Clone returns a deep copy; no slice, map or pointer is shared with c.
func (c *Club) Clone() *Club {
	if c == nil {
		return nil
	}
	out := *c
	out.DisplayName = clonePtr(c.DisplayName)
	out.Lat = clonePtr(c.Lat)
	out.Lon = clonePtr(c.Lon)
	out.EntryPrice = clonePtr(c.EntryPrice)
	out.AgeRestriction = clonePtr(c.AgeRestriction)
	out.Capacity = clonePtr(c.Capacity)
	if c.Corners != nil {
		out.Corners = append([]GeoPoint(nil), c.Corners...)
	}
	if c.OpeningHours != nil {
		out.OpeningHours = make(map[string]*DayHours, len(c.OpeningHours))
		for day, h := range c.OpeningHours {
			out.OpeningHours[day] = h.clone()
		}
	}
	out.Logo = c.Logo.clone()
	out.Banner = c.Banner.clone()
	out.Barcard = c.Barcard.clone()
	if c.LocationImages != nil {
		out.LocationImages = append([]Attachment(nil), c.LocationImages...)
	}
	if c.Tags != nil {
		out.Tags = append([]string(nil), c.Tags...)
	}
	if c.Extra != nil {
		out.Extra = make(map[string]any, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = cloneValue(v)
		}
	}
	return &out
}

// Day returns the schedule for day, nil when closed or unknown.
func (c *Club) Day(day string) *DayHours {
	if c == nil || c.OpeningHours == nil {
		return nil
	}
	return c.OpeningHours[day]
}

// NewEmptyClub returns the template used for a brand-new record.
func NewEmptyClub() *Club {
	hours := make(map[string]*DayHours, len(Weekdays))
	for _, d := range Weekdays {
		hours[d] = nil
	}
	zeroPrice, zeroCapacity := 0.0, 0
	return &Club{
		EntryPrice:     &zeroPrice,
		Capacity:       &zeroCapacity,
		OpeningHours:   hours,
		Corners:        []GeoPoint{},
		LocationImages: []Attachment{},
		Tags:           []string{},
		PrimaryColor:   DefaultPrimaryColor,
		SecondaryColor: DefaultSecondaryColor,
		Font:           DefaultFont,
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// cloneValue deep-copies the JSON-shaped values found in Extra.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	default:
		return v
	}
}
