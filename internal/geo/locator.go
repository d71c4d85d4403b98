// Package geo resolves a club's entrance to a city and country for the preview panel.
package geo

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"club-overview-console/pkg/circuit"
	errs "club-overview-console/pkg/errors"
	"club-overview-console/pkg/geography"
	"club-overview-console/pkg/logging"
)

// ReverseGeocoder is the subset of *maps.Client the locator needs.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// Locator answers from the bundled bounding boxes and asks Google only when the city is
// unknown and a geocoder is configured.
type Locator struct {
	geocoder ReverseGeocoder
	breaker  *circuit.Breaker
	logger   *logging.ComponentLogger
}

// NewLocator creates a locator. A nil geocoder disables the fallback.
func NewLocator(geocoder ReverseGeocoder, logger *logging.Logger) *Locator {
	if logger == nil {
		logger = logging.NewNop()
	}
	l := &Locator{geocoder: geocoder, logger: logger.WithComponent("geo")}
	if geocoder != nil {
		l.breaker = circuit.New(circuit.Config{
			Name:              "geocoder",
			OperationTimeout:  5 * time.Second,
			OpenFor:           time.Minute,
			MaxConsecFailures: 3,
			WindowSize:        20,
			FailureRate:       0.5,
		}, logger)
	}
	return l
}

// NewGoogleLocator builds a locator backed by the Google Maps API. An empty key disables the
// fallback.
func NewGoogleLocator(apiKey string, logger *logging.Logger) (*Locator, error) {
	if apiKey == "" {
		return NewLocator(nil, logger), nil
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, errs.NewExternal("geo.NewGoogleLocator", "google_maps", "create client", err)
	}
	return NewLocator(client, logger), nil
}

// Locate never fails: geocoder errors degrade to the bounding-box answer.
func (l *Locator) Locate(ctx context.Context, lat, lon float64) geography.Location {
	loc := geography.Lookup(lat, lon)
	if loc.City != geography.Unknown || l.geocoder == nil {
		return loc
	}

	var found geography.Location
	err := l.breaker.Do(ctx, func(ctx context.Context) error {
		res, err := l.geocoder.ReverseGeocode(ctx, &maps.GeocodingRequest{
			LatLng:     &maps.LatLng{Lat: lat, Lng: lon},
			ResultType: []string{"locality", "postal_town", "country"},
		})
		if err != nil {
			return err
		}
		if len(res) == 0 {
			return fmt.Errorf("no geocoding result for %v,%v", lat, lon)
		}
		found = geography.LocationFromComponents(res[0].AddressComponents)
		return nil
	}, nil)
	if err != nil {
		l.logger.Warn("Reverse geocoding failed",
			logging.Float64("lat", lat),
			logging.Float64("lon", lon),
			logging.Error(err))
		return loc
	}
	if !found.Known() {
		if found.City == geography.Unknown {
			return loc
		}
		found.Country = loc.Country
	}
	return found
}
