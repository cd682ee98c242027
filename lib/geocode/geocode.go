// Package geocode resolves addresses to coordinates and back through the
// Google Maps Geocoding web service. It exists next to the script loader
// for programs that need coordinates before a map is up, for example to
// pick the initial center.
package geocode

import (
	"context"
	"errors"
	"fmt"

	gmaps "googlemaps.github.io/maps"

	"github.com/nptay1999/google-map-javascript-api/lib/maps"
)

// ErrNoResults reports a query that matched nothing.
var ErrNoResults = errors.New("geocode: no results")

// Service is a thin client for the Geocoding API. Construct with
// NewService; methods are safe for concurrent use.
type Service struct {
	client *gmaps.Client
}

// NewService creates a service authenticated by key. Extra options pass
// through to the underlying client, which is how tests point it at a stub
// server.
func NewService(key string, options ...gmaps.ClientOption) (*Service, error) {
	options = append([]gmaps.ClientOption{gmaps.WithAPIKey(key)}, options...)
	client, err := gmaps.NewClient(options...)
	if err != nil {
		return nil, fmt.Errorf("geocode: create client: %w", err)
	}
	return &Service{client: client}, nil
}

// Locate resolves address to the coordinates of the first match.
func (s *Service) Locate(ctx context.Context, address string) (maps.LatLng, error) {
	results, err := s.client.Geocode(ctx, &gmaps.GeocodingRequest{Address: address})
	if err != nil {
		return maps.LatLng{}, fmt.Errorf("geocode %q: %w", address, err)
	}
	if len(results) == 0 {
		return maps.LatLng{}, ErrNoResults
	}

	location := results[0].Geometry.Location
	return maps.LatLng{Lat: location.Lat, Lng: location.Lng}, nil
}

// Reverse resolves coordinates to the first formatted address.
func (s *Service) Reverse(ctx context.Context, position maps.LatLng) (string, error) {
	results, err := s.client.ReverseGeocode(ctx, &gmaps.GeocodingRequest{
		LatLng: &gmaps.LatLng{Lat: position.Lat, Lng: position.Lng},
	})
	if err != nil {
		return "", fmt.Errorf("reverse geocode %v: %w", position, err)
	}
	if len(results) == 0 {
		return "", ErrNoResults
	}
	return results[0].FormattedAddress, nil
}
