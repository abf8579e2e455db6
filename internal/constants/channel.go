package constants

import "time"

const (
	// EndpointPath is the HTTP path the channel server exposes for its WebSocket handshake.
	EndpointPath = "/ws-location"

	// LocationsTopic carries the full list of known peer positions.
	LocationsTopic = "/topic/locations"

	// UpdateLocationDestination receives one LocationUpdate per publish.
	UpdateLocationDestination = "/app/update-location"

	// ReconnectDelay is the fixed wait between connection attempts.
	ReconnectDelay = 5 * time.Second

	// PublishInterval is how often a new fix is taken and sent.
	PublishInterval = 5 * time.Second

	// FixTimeout bounds a single position query.
	FixTimeout = 10 * time.Second
)

// Channel transports.
const (
	TransportSockJS    = "sockjs"
	TransportWebSocket = "websocket"
	TransportMQTT      = "mqtt"
)

// Location providers.
const (
	ProviderStatic = "static"
	ProviderSensor = "sensor"
	ProviderGoogle = "google"
)
