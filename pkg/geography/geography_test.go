package geography

import (
	"testing"

	"googlemaps.github.io/maps"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		expected Location
	}{
		{"Copenhagen centre", 55.6761, 12.5683, Location{City: "København", Country: "Denmark", Source: "bbox"}},
		{"Berlin", 52.52, 13.405, Location{City: "Berlin", Country: "Germany", Source: "bbox"}},
		{"London west edge", 51.5, -0.2833, Location{City: "London", Country: "United Kingdom", Source: "bbox"}},
		{"Rural Jutland", 56.9, 9.0, Location{City: Unknown, Country: "Denmark", Source: "bbox"}},
		{"Atlantic", 40.0, -40.0, Location{City: Unknown, Country: Unknown}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			result := Lookup(tt.lat, tt.lon)
			if result != tt.expected {
				t.Errorf("Lookup(%v, %v) = %+v, want %+v", tt.lat, tt.lon, result, tt.expected)
			}
		})
	}
}

func TestCityCountriesAreKnown(t *testing.T) {
	for _, c := range cities {
		if countryNames[c.Country] == "" {
			t.Errorf("city %s references unknown country %s", c.Name, c.Country)
		}
		if c.Box.MinLat >= c.Box.MaxLat || c.Box.MinLon >= c.Box.MaxLon {
			t.Errorf("city %s has an inverted box %+v", c.Name, c.Box)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Simple lowercase", "aarhus", "aarhus"},
		{"With spaces", "New York", "new_york"},
		{"With trim", "  Oslo  ", "oslo"},
		{"Mixed case", "CoPeNhAgEn", "copenhagen"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if result := NormalizeName(tt.input); result != tt.expected {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLocationFromComponents(t *testing.T) {
	tests := []struct {
		name       string
		components []maps.AddressComponent
		expected   Location
	}{
		{
			name: "Locality and known country code",
			components: []maps.AddressComponent{
				{LongName: "Odense", Types: []string{"locality", "political"}},
				{LongName: "Region of Southern Denmark", Types: []string{"administrative_area_level_1", "political"}},
				{LongName: "Danmark", ShortName: "DK", Types: []string{"country", "political"}},
			},
			expected: Location{City: "Odense", Country: "Denmark", Source: "geocoder"},
		},
		{
			name: "Postal town when locality missing",
			components: []maps.AddressComponent{
				{LongName: "Brighton", Types: []string{"postal_town"}},
				{LongName: "United Kingdom", ShortName: "GB", Types: []string{"country"}},
			},
			expected: Location{City: "Brighton", Country: "United Kingdom", Source: "geocoder"},
		},
		{
			name: "Country outside the table keeps long name",
			components: []maps.AddressComponent{
				{LongName: "Canada", ShortName: "CA", Types: []string{"country"}},
			},
			expected: Location{City: Unknown, Country: "Canada", Source: "geocoder"},
		},
		{
			name:       "Empty",
			components: nil,
			expected:   Location{City: Unknown, Country: Unknown, Source: "geocoder"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if result := LocationFromComponents(tt.components); result != tt.expected {
				t.Errorf("LocationFromComponents() = %+v, want %+v", result, tt.expected)
			}
		})
	}
}
