package location

import (
	"context"
	"errors"
)

// ErrPermissionDenied is returned when a provider is asked for a fix before
// permission was granted.
var ErrPermissionDenied = errors.New("location permission denied")

// PermissionStatus is the outcome of a foreground permission request.
type PermissionStatus string

const (
	PermissionGranted PermissionStatus = "granted"
	PermissionDenied  PermissionStatus = "denied"
)

// Provider interface defines the methods for location providers
type Provider interface {
	// RequestPermission asks for foreground access to the location source.
	RequestPermission(ctx context.Context) (PermissionStatus, error)
	// GetLocation takes a single one-shot position fix.
	GetLocation(ctx context.Context) (Location, error)
	Close() error
}
