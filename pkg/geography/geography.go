// Package geography maps coordinates to European cities and countries.
package geography

import (
	"strings"

	"googlemaps.github.io/maps"
)

// Unknown is reported when no box contains a point.
const Unknown = "Unknown"

// BBox is a bounding box in degrees.
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// Contains reports whether the point lies inside the box, edges included.
func (b BBox) Contains(lat, lon float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

type country struct {
	Code string
	Name string
	Box  BBox
}

type city struct {
	Name    string
	Country string
	Box     BBox
}

// Location is a resolved place. Source tells which lookup produced it.
type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
	Source  string `json:"source,omitempty"`
}

// Known reports whether at least the country was resolved.
func (l Location) Known() bool { return l.Country != "" && l.Country != Unknown }

// countries is ordered; the first box containing a point wins.
var countries = []country{
	{"AL", "Albania", BBox{19.16, 39.64, 21.03, 42.67}},
	{"AD", "Andorra", BBox{1.47, 42.46, 1.71, 42.64}},
	{"AM", "Armenia", BBox{43.58, 38.74, 46.51, 41.25}},
	{"AT", "Austria", BBox{9.55, 46.37, 17.15, 49.02}},
	{"BY", "Belarus", BBox{23.18, 51.29, 32.77, 56.17}},
	{"BE", "Belgium", BBox{2.47, 49.49, 6.37, 51.51}},
	{"BA", "Bosnia", BBox{15.75, 42.56, 19.62, 45.26}},
	{"BG", "Bulgaria", BBox{22.36, 41.25, 28.61, 44.23}},
	{"HR", "Croatia", BBox{13.19, 42.37, 19.44, 46.51}},
	{"CY", "Cyprus", BBox{32.27, 34.58, 34.59, 35.72}},
	{"CZ", "Czech Republic", BBox{12.09, 48.55, 18.86, 51.05}},
	{"DK", "Denmark", BBox{8.06, 54.53, 15.17, 57.75}},
	{"EE", "Estonia", BBox{21.76, 57.49, 28.22, 59.54}},
	{"FI", "Finland", BBox{19.09, 59.79, 31.58, 70.10}},
	{"FR", "France", BBox{-5.11, 42.34, 9.54, 51.09}},
	{"GE", "Georgia", BBox{39.75, 41.04, 46.67, 43.55}},
	{"DE", "Germany", BBox{5.86, 47.27, 15.04, 54.83}},
	{"GR", "Greece", BBox{19.38, 34.81, 28.23, 41.75}},
	{"HU", "Hungary", BBox{16.21, 45.75, 22.56, 48.59}},
	{"IS", "Iceland", BBox{-24.54, 63.39, -13.04, 66.54}},
	{"IE", "Ireland", BBox{-10.48, 51.44, -6.03, 55.34}},
	{"IT", "Italy", BBox{6.62, 36.63, 18.52, 47.09}},
	{"XK", "Kosovo", BBox{20.09, 41.99, 21.69, 43.09}},
	{"LV", "Latvia", BBox{20.99, 55.68, 28.22, 57.99}},
	{"LI", "Liechtenstein", BBox{9.48, 47.02, 9.62, 47.21}},
	{"LT", "Lithuania", BBox{20.99, 53.89, 26.59, 56.44}},
	{"LU", "Luxembourg", BBox{5.73, 49.42, 6.55, 50.19}},
	{"MT", "Malta", BBox{14.25, 35.83, 14.59, 36.08}},
	{"MD", "Moldova", BBox{26.61, 45.41, 30.17, 48.48}},
	{"MC", "Monaco", BBox{7.41, 43.73, 7.42, 43.74}},
	{"ME", "Montenegro", BBox{18.41, 41.83, 20.27, 43.52}},
	{"NL", "Netherlands", BBox{3.22, 50.75, 7.22, 53.55}},
	{"MK", "North Macedonia", BBox{20.45, 40.85, 23.00, 42.33}},
	{"NO", "Norway", BBox{4.09, 57.99, 31.33, 71.19}},
	{"PL", "Poland", BBox{14.12, 49.00, 24.15, 54.83}},
	{"PT", "Portugal", BBox{-9.55, 36.95, -6.19, 42.16}},
	{"RO", "Romania", BBox{20.25, 43.62, 29.68, 48.27}},
	{"RU", "Russia", BBox{19.66, 41.15, 180.00, 81.34}},
	{"SM", "San Marino", BBox{12.44, 43.93, 12.46, 43.96}},
	{"RS", "Serbia", BBox{18.79, 42.22, 22.96, 46.18}},
	{"SK", "Slovakia", BBox{16.84, 47.72, 22.57, 49.59}},
	{"SI", "Slovenia", BBox{13.38, 45.43, 16.59, 46.88}},
	{"ES", "Spain", BBox{-9.29, 35.86, 4.31, 43.75}},
	{"SE", "Sweden", BBox{11.00, 55.34, 23.99, 69.04}},
	{"CH", "Switzerland", BBox{5.96, 45.82, 10.49, 47.81}},
	{"TR", "Turkey", BBox{25.99, 35.82, 44.82, 42.32}},
	{"UA", "Ukraine", BBox{22.15, 44.21, 40.03, 52.25}},
	{"GB", "United Kingdom", BBox{-8.61, 49.87, 1.76, 58.64}},
}

// cities are checked before countries.
var cities = []city{
	{"København", "DK", BBox{12.3683, 55.4761, 12.7683, 55.8761}},
	{"Aarhus", "DK", BBox{10.0107, 55.9567, 10.4107, 56.3567}},
	{"Stockholm", "SE", BBox{17.8686, 59.1293, 18.2686, 59.5293}},
	{"Berlin", "DE", BBox{13.2050, 52.3200, 13.6050, 52.7200}},
	{"Paris", "FR", BBox{2.1488, 48.6534, 2.5488, 49.0534}},
	{"London", "GB", BBox{-0.2833, 51.3283, 0.1167, 51.7283}},
	{"Madrid", "ES", BBox{-3.9038, 40.2168, -3.5038, 40.6168}},
	{"Rome", "IT", BBox{12.2964, 41.7028, 12.6964, 42.1028}},
	{"Amsterdam", "NL", BBox{4.7041, 52.1676, 5.1041, 52.5676}},
	{"Oslo", "NO", BBox{10.5522, 59.7139, 10.9522, 60.1139}},
	{"Helsinki", "FI", BBox{24.7384, 59.9699, 25.1384, 60.3699}},
	{"Vienna", "AT", BBox{16.1738, 48.0082, 16.5738, 48.4082}},
	{"Dublin", "IE", BBox{-6.4603, 53.1498, -6.0603, 53.5498}},
	{"Warsaw", "PL", BBox{20.8122, 52.0297, 21.2122, 52.4297}},
	{"Athens", "GR", BBox{23.5275, 37.7838, 23.9275, 38.1838}},
	{"Barcelona", "ES", BBox{1.9734, 41.1851, 2.3734, 41.5851}},
	{"Bucharest", "RO", BBox{25.9025, 44.2268, 26.3025, 44.6268}},
	{"Budapest", "HU", BBox{18.8402, 47.2979, 19.2402, 47.6979}},
	{"Edinburgh", "GB", BBox{-3.3883, 55.7533, -2.9883, 56.1533}},
	{"Frankfurt", "DE", BBox{8.4821, 49.9109, 8.8821, 50.3109}},
	{"Glasgow", "GB", BBox{-4.4515, 55.6658, -4.0515, 56.0658}},
	{"Hamburg", "DE", BBox{9.7937, 53.3511, 10.1937, 53.7511}},
	{"Lisbon", "PT", BBox{-9.3393, 38.5223, -8.9393, 38.9223}},
	{"Liverpool", "GB", BBox{-3.1916, 53.2084, -2.7916, 53.6084}},
	{"Manchester", "GB", BBox{-2.4426, 53.2808, -2.0426, 53.6808}},
	{"Milan", "IT", BBox{8.9895, 45.2642, 9.3895, 45.6642}},
	{"Munich", "DE", BBox{11.3755, 47.9372, 11.7755, 48.3372}},
	{"Naples", "IT", BBox{14.0681, 40.6526, 14.4681, 41.0526}},
	{"Prague", "CZ", BBox{14.2378, 49.8755, 14.6378, 50.2755}},
	{"Sofia", "BG", BBox{23.1219, 42.4977, 23.5219, 42.8977}},
	{"Zürich", "CH", BBox{8.3417, 47.1769, 8.7417, 47.5769}},
	{"Belfast", "GB", BBox{-6.1301, 54.3973, -5.7301, 54.7973}},
	{"Birmingham", "GB", BBox{-2.0904, 52.2862, -1.6904, 52.6862}},
	{"Bordeaux", "FR", BBox{-0.7792, 44.6378, -0.3792, 45.0378}},
	{"Bremen", "DE", BBox{8.6017, 52.8793, 9.0017, 53.2793}},
	{"Bristol", "GB", BBox{-2.7879, 51.2545, -2.3879, 51.6545}},
	{"Brussels", "BE", BBox{4.1517, 50.6503, 4.5517, 51.0503}},
	{"Reykjavík", "IS", BBox{-22.1426, 63.9466, -21.7426, 64.3466}},
	{"Belgrade", "RS", BBox{20.2489, 44.5866, 20.6489, 44.9866}},
	{"Marseille", "FR", BBox{5.1698, 43.0965, 5.5698, 43.4965}},
	{"Lyon", "FR", BBox{4.6357, 45.5640, 5.0357, 45.9640}},
}

var countryNames = func() map[string]string {
	m := make(map[string]string, len(countries))
	for _, c := range countries {
		m[c.Code] = c.Name
	}
	return m
}()

// Lookup finds the city and country for a point. A point inside a known city box reports that
// city; otherwise the first country box containing it is used with an Unknown city.
func Lookup(lat, lon float64) Location {
	for _, c := range cities {
		if c.Box.Contains(lat, lon) {
			return Location{City: c.Name, Country: countryNames[c.Country], Source: "bbox"}
		}
	}
	for _, c := range countries {
		if c.Box.Contains(lat, lon) {
			return Location{City: Unknown, Country: c.Name, Source: "bbox"}
		}
	}
	return Location{City: Unknown, Country: Unknown}
}

// CountryName returns the English name for an ISO 3166 alpha-2 code, or "".
func CountryName(code string) string {
	return countryNames[strings.ToUpper(strings.TrimSpace(code))]
}

// NormalizeName converts a string to lowercase with spaces replaced by underscores.
func NormalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(normalized, " ", "_")
}

// LocationFromComponents builds a Location from geocoder address components. The locality is
// preferred for the city, falling back to postal town and then the first administrative area.
func LocationFromComponents(components []maps.AddressComponent) Location {
	wanted := map[string]int{
		"locality":                    0,
		"postal_town":                 1,
		"administrative_area_level_1": 2,
	}
	found := make(map[int]string)
	loc := Location{City: Unknown, Country: Unknown, Source: "geocoder"}
	for _, component := range components {
		for _, t := range component.Types {
			if t == "country" {
				if name := CountryName(component.ShortName); name != "" {
					loc.Country = name
				} else {
					loc.Country = component.LongName
				}
				continue
			}
			if p, ok := wanted[t]; ok {
				if _, seen := found[p]; !seen {
					found[p] = component.LongName
				}
			}
		}
	}
	for i := 0; i < len(wanted); i++ {
		if v, ok := found[i]; ok {
			loc.City = v
			break
		}
	}
	return loc
}
