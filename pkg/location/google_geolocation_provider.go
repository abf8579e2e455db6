package location

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"
)

// geolocator is the subset of the Maps client used here.
type geolocator interface {
	Geolocate(ctx context.Context, r *maps.GeolocationRequest) (*maps.GeolocationResult, error)
}

// GoogleGeolocationProvider uses the Google Maps API to get location data.
type GoogleGeolocationProvider struct {
	client     geolocator // Maps API client for making geolocation requests
	apiKey     string
	modemIndex int
	timeout    time.Duration
	logger     zerolog.Logger

	scanWiFi  func(ctx context.Context) ([]maps.WiFiAccessPoint, error)
	scanCells func(ctx context.Context, modemIndex int) ([]maps.CellTower, error)
}

// NewGoogleGeolocationProvider creates a new GoogleGeolocationProvider instance.
func NewGoogleGeolocationProvider(apiKey string, modemIndex int, logger zerolog.Logger) (*GoogleGeolocationProvider, error) {
	g := &GoogleGeolocationProvider{
		apiKey:     apiKey,
		modemIndex: modemIndex,
		timeout:    10 * time.Second,
		logger:     logger,
		scanWiFi:   getWiFiAccessPoints,
		scanCells:  getCellTowers,
	}
	if apiKey == "" {
		// Permission will be reported as denied
		return g, nil
	}

	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	g.client = c
	return g, nil
}

// RequestPermission grants access only when an API key is configured.
func (g *GoogleGeolocationProvider) RequestPermission(ctx context.Context) (PermissionStatus, error) {
	if g.apiKey == "" || g.client == nil {
		return PermissionDenied, nil
	}
	return PermissionGranted, nil
}

// GetLocation retrieves the device's location using Google Maps Geolocation API.
// Missing scanners are not fatal; the request then falls back to IP geolocation.
func (g *GoogleGeolocationProvider) GetLocation(ctx context.Context) (Location, error) {
	if g.client == nil {
		return Location{}, ErrPermissionDenied
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	wifiAPs, err := g.scanWiFi(ctx)
	if err != nil {
		g.logger.Debug().Err(err).Msg("Wi-Fi scan failed, continuing without access points")
	}
	cellTowers, err := g.scanCells(ctx, g.modemIndex)
	if err != nil {
		g.logger.Debug().Err(err).Int("modem", g.modemIndex).Msg("Cell scan failed, continuing without towers")
	}

	// Prepare the geolocation request with available data
	req := &maps.GeolocationRequest{
		ConsiderIP:       true,
		WiFiAccessPoints: wifiAPs,
		CellTowers:       cellTowers,
	}

	resp, err := g.client.Geolocate(ctx, req) // Send the geolocation request
	if err != nil {
		return Location{}, err
	}

	// Return the location data obtained from the response
	return Location{
		Latitude:  resp.Location.Lat,
		Longitude: resp.Location.Lng,
		Accuracy:  resp.Accuracy,
	}, nil
}

// Close releases nothing; the Maps client holds no persistent connection.
func (g *GoogleGeolocationProvider) Close() error {
	return nil
}
