package models

import (
	"regexp"
	"strconv"
	"strings"
)

// MinCorners is the number of geofence corners a club needs.
const MinCorners = 4

// CoordinatePattern matches "lat, lon" with optional sign and decimals.
var CoordinatePattern = regexp.MustCompile(`^[-+]?\d+(\.\d+)?\s*,\s*[-+]?\d+(\.\d+)?$`)

// FormInputs is the free text an editor types for coordinates. It is kept next to the working
// copy because validation reports on the text itself, not only on what could be parsed from it.
type FormInputs struct {
	Entrance     string   `json:"entrance"`
	CornerInputs []string `json:"corners"`
}

// Clone copies the inputs.
func (f FormInputs) Clone() FormInputs {
	f.CornerInputs = append([]string(nil), f.CornerInputs...)
	return f
}

// FormFromClub renders the coordinate text for c, with at least MinCorners corner slots.
func FormFromClub(c *Club) FormInputs {
	f := FormInputs{}
	if c == nil {
		f.CornerInputs = make([]string, MinCorners)
		return f
	}
	if c.Lat != nil && c.Lon != nil {
		f.Entrance = FormatCoordinatePair(*c.Lat, *c.Lon)
	}
	for _, p := range c.Corners {
		f.CornerInputs = append(f.CornerInputs, FormatCoordinatePair(p.Latitude, p.Longitude))
	}
	for len(f.CornerInputs) < MinCorners {
		f.CornerInputs = append(f.CornerInputs, "")
	}
	return f
}

// ParseCoordinatePair parses "lat, lon". ok is false unless s matches CoordinatePattern.
func ParseCoordinatePair(s string) (lat, lon float64, ok bool) {
	s = strings.TrimSpace(s)
	if !CoordinatePattern.MatchString(s) {
		return 0, 0, false
	}
	a, b, _ := strings.Cut(s, ",")
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(a), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// FormatCoordinatePair renders a point the way editors type it.
func FormatCoordinatePair(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + ", " + strconv.FormatFloat(lon, 'f', -1, 64)
}

// ValidCorners parses every filled slot that matches the coordinate pattern, in slot order.
func (f FormInputs) ValidCorners() []GeoPoint {
	var out []GeoPoint
	for _, in := range f.CornerInputs {
		if lat, lon, ok := ParseCoordinatePair(in); ok {
			out = append(out, GeoPoint{Latitude: lat, Longitude: lon})
		}
	}
	return out
}
