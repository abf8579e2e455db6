package location

import (
	"context"
	"errors"
	"sync"
)

// ErrRouteExhausted is returned once a non-looping route has no fixes left.
var ErrRouteExhausted = errors.New("static route exhausted")

// StaticProvider replays a fixed route of coordinates, one per fix. It stands
// in for a real receiver when simulating a device.
type StaticProvider struct {
	mu      sync.Mutex
	route   []Location
	next    int
	loop    bool
	granted bool
	closed  bool
}

// NewStaticProvider creates a provider that returns route in order. When loop
// is set the route restarts from the beginning after the last fix; otherwise
// the last fix is repeated.
func NewStaticProvider(route []Location, loop bool, granted bool) *StaticProvider {
	return &StaticProvider{
		route:   append([]Location(nil), route...),
		loop:    loop,
		granted: granted,
	}
}

// RequestPermission reports the configured permission outcome.
func (s *StaticProvider) RequestPermission(ctx context.Context) (PermissionStatus, error) {
	if err := ctx.Err(); err != nil {
		return PermissionDenied, err
	}
	if !s.granted {
		return PermissionDenied, nil
	}
	return PermissionGranted, nil
}

// GetLocation returns the next point of the route.
func (s *StaticProvider) GetLocation(ctx context.Context) (Location, error) {
	if err := ctx.Err(); err != nil {
		return Location{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.granted {
		return Location{}, ErrPermissionDenied
	}
	if s.closed {
		return Location{}, errors.New("static provider is closed")
	}
	if len(s.route) == 0 {
		return Location{}, ErrRouteExhausted
	}

	loc := s.route[s.next]
	switch {
	case s.next < len(s.route)-1:
		s.next++
	case s.loop:
		s.next = 0
	}
	return loc, nil
}

// Close marks the provider closed.
func (s *StaticProvider) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
