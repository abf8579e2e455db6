package service_registry

import (
	"fmt"

	"github.com/benmeehan/locshare/internal/constants"
	"github.com/benmeehan/locshare/internal/utils"
	"github.com/benmeehan/locshare/pkg/channel"
	"github.com/benmeehan/locshare/pkg/file"
	"github.com/benmeehan/locshare/pkg/identity"
	"github.com/benmeehan/locshare/pkg/location"
	"github.com/benmeehan/locshare/pkg/mqtt"
	"github.com/benmeehan/locshare/pkg/sockjs"
	"github.com/benmeehan/locshare/pkg/stomp"
	"github.com/rs/zerolog"
)

// NewChannel builds the channel selected by config.Channel.Transport.
func NewChannel(config *utils.Config, session identity.SessionInterface, fileClient file.FileOperations, logger zerolog.Logger) (channel.Channel, error) {
	cc := config.Channel
	logger = logger.With().Str("transport", cc.Transport).Logger()

	var dialer stomp.Dialer
	switch cc.Transport {
	case constants.TransportSockJS:
		d, err := sockjs.NewDialer(cc.Endpoint, cc.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		dialer = d
	case constants.TransportWebSocket:
		d, err := sockjs.NewWebSocketDialer(cc.Endpoint, cc.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		dialer = d
	case constants.TransportMQTT:
		m := mqtt.NewMqttService(fileClient, cc.MQTT.QOS, logger)
		clientID := cc.MQTT.ClientID + "-" + session.GetUserID()
		if err := m.Initialize(cc.Endpoint, clientID, cc.MQTT.CACertificate, cc.ReconnectDelay); err != nil {
			return nil, fmt.Errorf("failed to initialize MQTT channel: %w", err)
		}
		logger.Info().Str("client_id", clientID).Msg("Using MQTT channel")
		return m, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cc.Transport)
	}

	return channel.NewStompChannel(dialer, stomp.Config{
		ReconnectDelay:    cc.ReconnectDelay,
		ConnectTimeout:    cc.ConnectTimeout,
		HeartbeatOutgoing: cc.HeartbeatOutgoing,
		HeartbeatIncoming: cc.HeartbeatIncoming,
	}, logger), nil
}

// NewLocationProvider builds the provider selected by config.Location.Provider.
func NewLocationProvider(config *utils.Config, logger zerolog.Logger) (location.Provider, error) {
	lc := config.Location
	switch lc.Provider {
	case constants.ProviderStatic:
		route := utils.Map(lc.Static.Route, func(p utils.RoutePoint) location.Location {
			return location.Location{Latitude: p.Latitude, Longitude: p.Longitude, Accuracy: p.Accuracy}
		})
		return location.NewStaticProvider(route, lc.Static.Loop, lc.Static.Granted), nil
	case constants.ProviderSensor:
		return location.NewDeviceSensorProvider(lc.Sensor.Port, lc.Sensor.BaudRate), nil
	case constants.ProviderGoogle:
		p, err := location.NewGoogleGeolocationProvider(lc.Google.APIKey, lc.Google.ModemIndex,
			logger.With().Str("component", "geolocation").Logger())
		if err != nil {
			return nil, fmt.Errorf("failed to create Google Geolocation provider: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown location provider %q", lc.Provider)
	}
}
