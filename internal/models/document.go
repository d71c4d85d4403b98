package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Document is the stored shape of a record: a JSON object keyed by persistence field names.
type Document map[string]any

// Persisted field names.
const (
	FieldName           = "name"
	FieldDisplayName    = "display_name"
	FieldDisplayNameAlt = "displayName"
	FieldTypeOfClub     = "type_of_club"
	FieldLat            = "lat"
	FieldLon            = "lon"
	FieldCorners        = "corners"
	FieldOpeningHours   = "opening_hours"
	FieldEntryPrice     = "entry_price"
	FieldAgeRestriction = "age_restriction"
	FieldCapacity       = "total_possible_amount_of_visitors"
	FieldPrimaryColor   = "primary_color"
	FieldSecondaryColor = "secondary_color"
	FieldFont           = "font"
	FieldDescription    = "description"
	FieldLogo           = "logo"
	FieldBanner         = "banner_image"
	FieldLocationImages = "location_images"
	FieldBarcard        = "barcard"
	FieldTags           = "tags"
)

var knownFields = map[string]bool{
	FieldName: true, FieldDisplayName: true, FieldDisplayNameAlt: true, FieldTypeOfClub: true,
	FieldLat: true, FieldLon: true, FieldCorners: true, FieldOpeningHours: true,
	FieldEntryPrice: true, FieldAgeRestriction: true, FieldCapacity: true,
	FieldPrimaryColor: true, FieldSecondaryColor: true, FieldFont: true, FieldDescription: true,
	FieldLogo: true, FieldBanner: true, FieldLocationImages: true, FieldBarcard: true, FieldTags: true,
}

// Clone deep-copies the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(cloneValue(map[string]any(d)).(map[string]any))
}

// ClubFromDocument maps a stored document onto the editable model. Unknown keys land in Extra.
// Media fields become Attachments carrying only the stored filename; previews are resolved elsewhere.
func ClubFromDocument(id string, doc Document) *Club {
	c := &Club{
		ID:             id,
		Name:           asString(doc[FieldName]),
		TypeOfClub:     asString(doc[FieldTypeOfClub]),
		Lat:            asFloatPtr(doc[FieldLat]),
		Lon:            asFloatPtr(doc[FieldLon]),
		EntryPrice:     asFloatPtr(doc[FieldEntryPrice]),
		AgeRestriction: asIntPtr(doc[FieldAgeRestriction]),
		Capacity:       asIntPtr(doc[FieldCapacity]),
		PrimaryColor:   asString(doc[FieldPrimaryColor]),
		SecondaryColor: asString(doc[FieldSecondaryColor]),
		Font:           asString(doc[FieldFont]),
		Description:    asString(doc[FieldDescription]),
		Corners:        []GeoPoint{},
		LocationImages: []Attachment{},
		Tags:           []string{},
		OpeningHours:   make(map[string]*DayHours, len(Weekdays)),
	}

	if dn := asString(doc[FieldDisplayName]); dn != "" {
		c.DisplayName = &dn
	} else if dn := asString(doc[FieldDisplayNameAlt]); dn != "" {
		c.DisplayName = &dn
	}

	if raw, ok := doc[FieldCorners].([]any); ok {
		for _, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			lat, lon := asFloatPtr(m["latitude"]), asFloatPtr(m["longitude"])
			if lat == nil || lon == nil {
				continue
			}
			c.Corners = append(c.Corners, GeoPoint{Latitude: *lat, Longitude: *lon})
		}
	}

	hours, _ := doc[FieldOpeningHours].(map[string]any)
	for _, day := range Weekdays {
		c.OpeningHours[day] = dayFromValue(hours[day])
	}

	c.Logo = attachmentFrom(doc[FieldLogo])
	c.Banner = attachmentFrom(doc[FieldBanner])
	c.Barcard = attachmentFrom(doc[FieldBarcard])
	if raw, ok := doc[FieldLocationImages].([]any); ok {
		for _, item := range raw {
			if a := attachmentFrom(item); a != nil {
				c.LocationImages = append(c.LocationImages, *a)
			}
		}
	}
	if raw, ok := doc[FieldTags].([]any); ok {
		for _, item := range raw {
			if s := asString(item); s != "" {
				c.Tags = append(c.Tags, s)
			}
		}
	}

	for k, v := range doc {
		if knownFields[k] {
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]any)
		}
		c.Extra[k] = cloneValue(v)
	}
	return c
}

func dayFromValue(v any) *DayHours {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	d := &DayHours{
		Open:           asString(m["open"]),
		Close:          asString(m["close"]),
		AgeRestriction: asIntPtr(m["ageRestriction"]),
		EntryPrice:     asFloatPtr(m["entry_price"]),
		DailyOffer:     attachmentFrom(m["daily_offer"]),
	}
	return d
}

func attachmentFrom(v any) *Attachment {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return &Attachment{Name: t}
	case map[string]any:
		name := asString(t["name"])
		if name == "" {
			return nil
		}
		return &Attachment{Name: name}
	}
	return nil
}

// ToDocument renders the working model in its stored shape without applying defaults.
// Attachments collapse to filenames; closed days are null.
func (c *Club) ToDocument() Document {
	doc := Document{}
	for k, v := range c.Extra {
		doc[k] = cloneValue(v)
	}

	doc[FieldName] = c.Name
	// Records carry the override under either key; both are written so a merge clears both.
	doc[FieldDisplayName] = ptrValue(c.DisplayName)
	doc[FieldDisplayNameAlt] = ptrValue(c.DisplayName)
	doc[FieldTypeOfClub] = c.TypeOfClub
	doc[FieldLat] = ptrValue(c.Lat)
	doc[FieldLon] = ptrValue(c.Lon)

	corners := make([]any, 0, len(c.Corners))
	for _, p := range c.Corners {
		corners = append(corners, map[string]any{"latitude": p.Latitude, "longitude": p.Longitude})
	}
	doc[FieldCorners] = corners

	hours := make(map[string]any, len(Weekdays))
	for _, day := range Weekdays {
		d := c.Day(day)
		if !d.HasHours() {
			hours[day] = nil
			continue
		}
		m := map[string]any{"open": d.Open, "close": d.Close}
		if d.AgeRestriction != nil {
			m["ageRestriction"] = *d.AgeRestriction
		}
		if d.EntryPrice != nil {
			m["entry_price"] = *d.EntryPrice
		}
		if d.DailyOffer != nil && d.DailyOffer.Name != "" {
			m["daily_offer"] = d.DailyOffer.Name
		}
		hours[day] = m
	}
	doc[FieldOpeningHours] = hours

	doc[FieldEntryPrice] = ptrValue(c.EntryPrice)
	doc[FieldAgeRestriction] = ptrValue(c.AgeRestriction)
	doc[FieldCapacity] = ptrValue(c.Capacity)
	doc[FieldPrimaryColor] = c.PrimaryColor
	doc[FieldSecondaryColor] = c.SecondaryColor
	doc[FieldFont] = c.Font
	doc[FieldDescription] = c.Description

	doc[FieldLogo] = attachmentName(c.Logo)
	doc[FieldBanner] = nullableName(c.Banner)
	doc[FieldBarcard] = nullableName(c.Barcard)
	images := make([]any, 0, len(c.LocationImages))
	for _, img := range c.LocationImages {
		images = append(images, img.Name)
	}
	doc[FieldLocationImages] = images

	tags := make([]any, 0, len(c.Tags))
	for _, t := range c.Tags {
		tags = append(tags, t)
	}
	doc[FieldTags] = tags
	return doc
}

func attachmentName(a *Attachment) string {
	if a == nil {
		return ""
	}
	return a.Name
}

func nullableName(a *Attachment) any {
	if a == nil || a.Name == "" {
		return nil
	}
	return a.Name
}

func ptrValue[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case json.Number:
		return t.String()
	}
	return ""
}

func asFloatPtr(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return nil
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = n
	default:
		return nil
	}
	return &f
}

func asIntPtr(v any) *int {
	f := asFloatPtr(v)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}
