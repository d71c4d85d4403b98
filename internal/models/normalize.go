package models

// Defaults applied when a record is written.
const (
	DefaultName           = "Unknown Club"
	DefaultPrimaryColor   = "NightView Green"
	DefaultSecondaryColor = "NightView Black"
	DefaultFont           = "NightView Font"
	DefaultTypeOfClubImg  = "default_icon.png"
	DefaultOfferType      = "none"
	DefaultAgeRestriction = 18
	DerivedAgeRestriction = 10
	MinDayAgeRestriction  = 16
)

// Normalize renders c in the persistence shape and fills every absent or null field with its
// default. The input is not modified.
func Normalize(c *Club) Document {
	doc := c.ToDocument()

	setDefault(doc, FieldName, DefaultName, isEmptyString)
	setDefault(doc, FieldLogo, "", isNil)
	setDefault(doc, FieldTypeOfClub, "", isNil)
	setDefault(doc, "type_of_club_img", DefaultTypeOfClubImg, isEmptyString)
	setDefault(doc, FieldAgeRestriction, DefaultAgeRestriction, isNil)
	setDefault(doc, FieldCapacity, 0, isNil)
	setDefault(doc, "visitors", 0, isNil)
	setDefault(doc, "rating", 0, isNil)
	setDefault(doc, FieldLat, 0.0, isNil)
	setDefault(doc, FieldLon, 0.0, isNil)
	setDefault(doc, "favorites", []any{}, isNil)
	setDefault(doc, "offer_type", DefaultOfferType, isEmptyString)
	setDefault(doc, "main_offer_img", nil, isNil)
	setDefault(doc, FieldDisplayName, nil, isNil)
	setDefault(doc, FieldEntryPrice, 0.0, isNil)
	setDefault(doc, FieldPrimaryColor, DefaultPrimaryColor, isEmptyString)
	setDefault(doc, FieldSecondaryColor, DefaultSecondaryColor, isEmptyString)
	setDefault(doc, FieldFont, DefaultFont, isEmptyString)
	setDefault(doc, "created_by", nil, isNil)
	setDefault(doc, "created_at", nil, isNil)
	setDefault(doc, "processed", false, isNil)
	setDefault(doc, FieldDescription, "", isNil)
	return doc
}

func isNil(v any) bool { return v == nil }

func isEmptyString(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func setDefault(doc Document, key string, def any, empty func(any) bool) {
	v, ok := doc[key]
	if !ok || empty(v) {
		doc[key] = def
	}
}

// ResolveDayAgeRestrictions promotes the most common per-day age restriction to the club
// level (DerivedAgeRestriction when no day sets one; ties go to the lower age), clears
// per-day values equal to it and drops per-day entry prices. Closed days are skipped.
func ResolveDayAgeRestrictions(c *Club) {
	counts := map[int]int{}
	for _, day := range Weekdays {
		d := c.Day(day)
		if d == nil || d.AgeRestriction == nil {
			continue
		}
		counts[*d.AgeRestriction]++
	}

	common, best := DerivedAgeRestriction, 0
	for age, n := range counts {
		if n > best || (n == best && age < common) {
			common, best = age, n
		}
	}
	c.AgeRestriction = &common

	for _, day := range Weekdays {
		d := c.Day(day)
		if d == nil {
			continue
		}
		if d.AgeRestriction != nil && *d.AgeRestriction == common {
			d.AgeRestriction = nil
		}
		d.EntryPrice = nil
	}
}
