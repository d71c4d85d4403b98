package models

import (
	"encoding/json"
	"testing"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

func sampleClub() *Club {
	c := NewEmptyClub()
	c.ID = "club_0"
	c.Name = "Club"
	c.DisplayName = strPtr("The Club")
	c.Lat, c.Lon = floatPtr(55.1), floatPtr(12.3)
	c.Corners = []GeoPoint{{1, 2}, {3, 4}, {5, 6}, {7, 8}}
	c.OpeningHours["friday"] = &DayHours{Open: "22:00", Close: "04:00", AgeRestriction: intPtr(20),
		DailyOffer: &Attachment{Name: "friday_offer.webp"}}
	c.Logo = &Attachment{Name: "Club_0_logo.webp", PreviewRef: "https://cdn/logo"}
	c.LocationImages = []Attachment{{Name: "stock_mood_image_1.webp"}}
	c.Tags = []string{"techno"}
	c.Extra = map[string]any{"visitors": float64(3), "favorites": []any{"u1"}}
	return c
}

func TestClone_NoAliasing(t *testing.T) {
	orig := sampleClub()
	cp := orig.Clone()

	*cp.DisplayName = "changed"
	*cp.Lat = 0
	cp.Corners[0].Latitude = 99
	cp.OpeningHours["friday"].Open = "20:00"
	*cp.OpeningHours["friday"].AgeRestriction = 30
	cp.OpeningHours["friday"].DailyOffer.Name = "x"
	cp.Logo.Name = "other"
	cp.LocationImages[0].Name = "other"
	cp.Tags[0] = "house"
	cp.Extra["favorites"].([]any)[0] = "u2"
	cp.OpeningHours["monday"] = &DayHours{Open: "10:00", Close: "11:00"}

	if *orig.DisplayName != "The Club" || *orig.Lat != 55.1 || orig.Corners[0].Latitude != 1 {
		t.Fatalf("scalar pointers or corners aliased")
	}
	fri := orig.OpeningHours["friday"]
	if fri.Open != "22:00" || *fri.AgeRestriction != 20 || fri.DailyOffer.Name != "friday_offer.webp" {
		t.Fatalf("opening hours aliased: %+v", fri)
	}
	if orig.OpeningHours["monday"] != nil {
		t.Fatalf("opening hours map aliased")
	}
	if orig.Logo.Name != "Club_0_logo.webp" || orig.LocationImages[0].Name != "stock_mood_image_1.webp" {
		t.Fatalf("media aliased")
	}
	if orig.Tags[0] != "techno" || orig.Extra["favorites"].([]any)[0] != "u1" {
		t.Fatalf("tags or extra aliased")
	}
}

func TestNewEmptyClub(t *testing.T) {
	c := NewEmptyClub()
	if len(c.OpeningHours) != 7 {
		t.Fatalf("expected 7 weekdays, got %d", len(c.OpeningHours))
	}
	for _, d := range Weekdays {
		if c.OpeningHours[d] != nil {
			t.Errorf("%s should be closed", d)
		}
	}
	if c.EntryPrice == nil || *c.EntryPrice != 0 || c.Capacity == nil || *c.Capacity != 0 {
		t.Errorf("entry price and capacity should default to zero")
	}
	if c.PrimaryColor != DefaultPrimaryColor || c.Font != DefaultFont {
		t.Errorf("unexpected style defaults: %q %q", c.PrimaryColor, c.Font)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	c := sampleClub()
	doc := c.ToDocument()

	// Simulate storage: documents come back with JSON-decoded types.
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	var back Document
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}

	got := ClubFromDocument("club_0", back)
	if got.Name != "Club" || got.DisplayName == nil || *got.DisplayName != "The Club" {
		t.Errorf("name/display name = %q/%v", got.Name, got.DisplayName)
	}
	if got.Lat == nil || *got.Lat != 55.1 || len(got.Corners) != 4 || got.Corners[3].Longitude != 8 {
		t.Errorf("geo not preserved: %v %v", got.Lat, got.Corners)
	}
	fri := got.Day("friday")
	if !fri.HasHours() || fri.AgeRestriction == nil || *fri.AgeRestriction != 20 {
		t.Errorf("friday = %+v", fri)
	}
	if fri.DailyOffer == nil || fri.DailyOffer.Name != "friday_offer.webp" {
		t.Errorf("daily offer lost")
	}
	if got.Day("monday") != nil {
		t.Errorf("closed day should stay nil")
	}
	if got.Logo == nil || got.Logo.Name != "Club_0_logo.webp" || got.Logo.PreviewRef != "" {
		t.Errorf("logo = %+v", got.Logo)
	}
	if got.Banner != nil || got.Barcard != nil {
		t.Errorf("absent media should be nil")
	}
	if got.Extra["visitors"] != float64(3) {
		t.Errorf("extra keys should survive, got %v", got.Extra)
	}
	if got.Capacity == nil || *got.Capacity != 0 {
		t.Errorf("capacity = %v", got.Capacity)
	}
}

func TestClubFromDocument_AcceptsCamelDisplayName(t *testing.T) {
	c := ClubFromDocument("x", Document{"name": "A", "displayName": "Alpha"})
	if c.DisplayName == nil || *c.DisplayName != "Alpha" {
		t.Fatalf("display name = %v", c.DisplayName)
	}
	if _, ok := c.Extra["displayName"]; ok {
		t.Fatalf("displayName should not leak into Extra")
	}
}

func TestNormalize_FillsDefaults(t *testing.T) {
	c := &Club{}
	doc := Normalize(c)

	cases := map[string]any{
		FieldName:           DefaultName,
		FieldPrimaryColor:   DefaultPrimaryColor,
		FieldSecondaryColor: DefaultSecondaryColor,
		FieldFont:           DefaultFont,
		FieldAgeRestriction: DefaultAgeRestriction,
		FieldCapacity:       0,
		FieldEntryPrice:     0.0,
		FieldLat:            0.0,
		"type_of_club_img":  DefaultTypeOfClubImg,
		"offer_type":        DefaultOfferType,
		"processed":         false,
	}
	for key, want := range cases {
		if doc[key] != want {
			t.Errorf("%s = %#v, want %#v", key, doc[key], want)
		}
	}
	if v, ok := doc[FieldDisplayName]; !ok || v != nil {
		t.Errorf("display_name should be present and null, got %#v", v)
	}
	if c.Name != "" {
		t.Errorf("Normalize must not modify its input")
	}
}

func TestNormalize_KeepsSetValues(t *testing.T) {
	c := sampleClub()
	c.AgeRestriction = intPtr(21)
	doc := Normalize(c)
	if doc[FieldName] != "Club" || doc[FieldAgeRestriction] != 21 {
		t.Errorf("set values overwritten: %v %v", doc[FieldName], doc[FieldAgeRestriction])
	}
	if doc["visitors"] != float64(3) {
		t.Errorf("existing extra value overwritten: %v", doc["visitors"])
	}
}

func TestResolveDayAgeRestrictions(t *testing.T) {
	tests := []struct {
		name    string
		ages    map[string]int
		want    int
		perDays map[string]*int
	}{
		{
			name: "no ages uses derived default",
			want: DerivedAgeRestriction,
		},
		{
			name:    "most common wins",
			ages:    map[string]int{"friday": 18, "saturday": 18, "sunday": 21},
			want:    18,
			perDays: map[string]*int{"friday": nil, "saturday": nil, "sunday": intPtr(21)},
		},
		{
			name:    "tie goes to lower age",
			ages:    map[string]int{"friday": 21, "saturday": 18},
			want:    18,
			perDays: map[string]*int{"friday": intPtr(21), "saturday": nil},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			c := NewEmptyClub()
			for _, day := range []string{"friday", "saturday", "sunday"} {
				c.OpeningHours[day] = &DayHours{Open: "22:00", Close: "04:00", EntryPrice: floatPtr(5)}
				if age, ok := tt.ages[day]; ok {
					c.OpeningHours[day].AgeRestriction = intPtr(age)
				}
			}

			ResolveDayAgeRestrictions(c)

			if c.AgeRestriction == nil || *c.AgeRestriction != tt.want {
				t.Fatalf("AgeRestriction = %v, want %d", c.AgeRestriction, tt.want)
			}
			for day, want := range tt.perDays {
				got := c.OpeningHours[day].AgeRestriction
				if (got == nil) != (want == nil) || (got != nil && *got != *want) {
					t.Errorf("%s age = %v, want %v", day, got, want)
				}
			}
			for _, day := range []string{"friday", "saturday", "sunday"} {
				if c.OpeningHours[day].EntryPrice != nil {
					t.Errorf("%s entry price should be cleared", day)
				}
			}
		})
	}
}
