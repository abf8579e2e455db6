package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/locshare/internal/constants"
	"github.com/benmeehan/locshare/internal/models"
	"github.com/benmeehan/locshare/pkg/channel"
	"github.com/benmeehan/locshare/pkg/identity"
	"github.com/benmeehan/locshare/pkg/location"
	"github.com/rs/zerolog"
)

// LocationService samples the device position on a fixed interval and
// publishes it to the channel whenever the channel is connected.
type LocationService struct {
	// Configuration fields
	destination string
	interval    time.Duration
	fixTimeout  time.Duration

	// Dependencies
	session          identity.SessionInterface
	channel          channel.Channel
	locationProvider location.Provider
	state            TrackingState
	logger           zerolog.Logger
	now              func() time.Time

	// Internal state management
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	idle      bool // permission was denied
	lastStamp time.Time
}

// NewLocationService creates a new LocationService instance with the provided configuration.
func NewLocationService(destination string, interval, fixTimeout time.Duration, session identity.SessionInterface,
	ch channel.Channel, locationProvider location.Provider, state TrackingState, logger zerolog.Logger) *LocationService {
	return &LocationService{
		destination:      destination,
		interval:         interval,
		fixTimeout:       fixTimeout,
		session:          session,
		channel:          ch,
		locationProvider: locationProvider,
		state:            state,
		logger:           logger,
		now:              time.Now,
	}
}

// SetClock replaces the time source used for update timestamps.
func (l *LocationService) SetClock(now func() time.Time) {
	l.now = now
}

// Start requests location permission. When it is denied the tracking state
// moves to Error and nothing else happens. Otherwise an initial fix is
// published and the interval loop is started.
func (l *LocationService) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		l.logger.Warn().Msg("LocationService is already running")
		return errors.New("location service is already running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.fixTimeout)
	status, err := l.locationProvider.RequestPermission(ctx)
	cancel()
	if err != nil {
		l.logger.Error().Err(err).Msg("Location permission request failed")
		status = location.PermissionDenied
	}
	if status != location.PermissionGranted {
		l.logger.Warn().Str("status", string(status)).Msg("Location permission not granted, publisher stays idle")
		l.state.Fail(constants.MessagePermissionDenied)
		l.idle = true
		return nil
	}

	l.idle = false
	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.running = true

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.run(l.ctx)
	}()

	l.logger.Info().
		Str("destination", l.destination).
		Dur("interval", l.interval).
		Msg("LocationService started")
	return nil
}

// Stop cancels the interval loop and closes the location provider.
func (l *LocationService) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running && l.idle {
		// Permission was never granted, but the provider still holds its device
		l.idle = false
		if err := l.locationProvider.Close(); err != nil {
			l.logger.Error().Err(err).Msg("Failed to close location provider")
			return err
		}
		l.logger.Info().Msg("LocationService stopped")
		return nil
	}
	if !l.running {
		l.logger.Warn().Msg("LocationService is not running")
		return errors.New("location service is not running")
	}

	// Signal cancellation and wait for the goroutine to exit
	l.cancel()
	l.wg.Wait()
	l.running = false

	if err := l.locationProvider.Close(); err != nil {
		l.logger.Error().Err(err).Msg("Failed to close location provider")
		return err
	}

	l.logger.Info().Msg("LocationService stopped")
	return nil
}

func (l *LocationService) run(ctx context.Context) {
	if err := l.publishCurrentLocation(ctx); err != nil {
		l.logger.Error().Err(err).Msg("Failed to publish initial location")
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := l.publishCurrentLocation(ctx); err != nil {
				l.logger.Error().Err(err).Msg("Failed to publish current location")
			}
		case <-ctx.Done():
			l.logger.Info().Msg("LocationService is stopping")
			return
		}
	}
}

// publishCurrentLocation takes a fix, records it as the local position and
// sends it if the channel is connected. A disconnected channel is not an
// error; the update is simply dropped.
func (l *LocationService) publishCurrentLocation(ctx context.Context) error {
	fixCtx, cancel := context.WithTimeout(ctx, l.fixTimeout)
	loc, err := l.locationProvider.GetLocation(fixCtx)
	cancel()
	if err != nil {
		return err
	}

	stamp := l.stamp()
	l.state.SetSelf(models.Fix{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Accuracy:  loc.Accuracy,
		Timestamp: stamp,
	})

	if !l.channel.Connected() {
		l.logger.Debug().Msg("Channel not connected, skipping location update")
		return nil
	}

	update := models.NewLocationUpdate(l.session.GetUserID(), loc.Latitude, loc.Longitude, stamp)
	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}

	if err := l.channel.Publish(l.destination, payload); err != nil {
		l.logger.Error().
			Err(err).
			Str("destination", l.destination).
			Msg("Failed to publish location update")
		return err
	}

	l.logger.Info().
		Interface("message", update).
		Str("destination", l.destination).
		Msg("Location published successfully")
	return nil
}

// stamp returns the current time, never earlier than the previous stamp.
func (l *LocationService) stamp() time.Time {
	t := l.now()
	if t.Before(l.lastStamp) {
		t = l.lastStamp
	}
	l.lastStamp = t
	return t
}
