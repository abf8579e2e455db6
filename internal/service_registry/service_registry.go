package service_registry

import (
	"errors"
	"fmt"
	"io"

	"github.com/benmeehan/locshare/internal/registry"
	"github.com/benmeehan/locshare/internal/services"
	"github.com/benmeehan/locshare/internal/state_managers"
	"github.com/benmeehan/locshare/internal/utils"
	"github.com/benmeehan/locshare/pkg/channel"
	"github.com/benmeehan/locshare/pkg/identity"
	"github.com/benmeehan/locshare/pkg/location"
	"github.com/elliotchance/orderedmap/v2"
	"github.com/rs/zerolog"
)

// ServiceRegistry manages the lifecycle of the agent's services.
type ServiceRegistry struct {
	services *orderedmap.OrderedMap[string, registry.Service] // Keeps registration order
	Logger   zerolog.Logger
}

// NewServiceRegistry initializes an empty registry.
func NewServiceRegistry(logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services: orderedmap.NewOrderedMap[string, registry.Service](),
		Logger:   logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc registry.Service) {
	if _, exists := sr.services.Get(name); exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services.Set(name, svc)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// Names lists the registered services in start order.
func (sr *ServiceRegistry) Names() []string {
	names := make([]string, 0, sr.services.Len())
	for el := sr.services.Front(); el != nil; el = el.Next() {
		names = append(names, el.Key)
	}
	return names
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	var started []string

	for el := sr.services.Front(); el != nil; el = el.Next() {
		name, svc := el.Key, el.Value
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(started) - 1; i >= 0; i-- {
				if svc, ok := sr.services.Get(started[i]); ok {
					_ = svc.Stop()
				}
			}
			return fmt.Errorf("start %s: %w", name, err)
		}
		started = append(started, name)
	}
	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for el := sr.services.Back(); el != nil; el = el.Prev() {
		if err := el.Value.Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", el.Key, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// Dependencies are the shared objects the services are wired with.
type Dependencies struct {
	Session  identity.SessionInterface
	Channel  channel.Channel
	Provider location.Provider
	State    *state_managers.TrackingStateManager
	Output   io.Writer
}

// RegisterServices registers the map, peer and location services, in that
// start order: the map shows the loading placeholder first, the channel
// starts connecting, and only then is the first fix taken.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config, deps Dependencies) {
	sr.RegisterService("map", services.NewMapService(
		deps.State,
		deps.Output,
		config.Map.Refresh,
		config.Map.ClearScreen,
		sr.Logger.With().Str("service", "map").Logger(),
	))
	sr.RegisterService("peers", services.NewPeerService(
		config.Channel.Topic,
		deps.Session,
		deps.Channel,
		deps.State,
		sr.Logger.With().Str("service", "peers").Logger(),
	))
	sr.RegisterService("location", services.NewLocationService(
		config.Channel.Destination,
		config.Location.Interval,
		config.Location.FixTimeout,
		deps.Session,
		deps.Channel,
		deps.Provider,
		deps.State,
		sr.Logger.With().Str("service", "location").Logger(),
	))

	sr.Logger.Info().Msgf("Registered services in order: %v", sr.Names())
}
