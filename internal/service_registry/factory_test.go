package service_registry

import (
	"testing"

	"github.com/benmeehan/locshare/internal/mocks"
	"github.com/benmeehan/locshare/internal/utils"
	"github.com/benmeehan/locshare/pkg/channel"
	"github.com/benmeehan/locshare/pkg/identity"
	"github.com/benmeehan/locshare/pkg/location"
	"github.com/benmeehan/locshare/pkg/mqtt"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() *utils.Config {
	var cfg utils.Config
	cfg.Channel.Endpoint = "http://localhost:8080/ws-location"
	cfg.ApplyDefaults()
	return &cfg
}

func TestNewChannel(t *testing.T) {
	session := identity.NewSessionWithID("user_me")
	files := new(mocks.MockFileOperations)

	cfg := baseConfig()
	ch, err := NewChannel(cfg, session, files, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &channel.StompChannel{}, ch)
	assert.False(t, ch.Connected())

	cfg.Channel.Transport = "websocket"
	ch, err = NewChannel(cfg, session, files, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &channel.StompChannel{}, ch)

	cfg.Channel.Transport = "mqtt"
	cfg.Channel.Endpoint = "tcp://localhost:1883"
	ch, err = NewChannel(cfg, session, files, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &mqtt.MqttService{}, ch)

	cfg.Channel.Transport = "sockjs"
	cfg.Channel.Endpoint = "gopher://localhost"
	_, err = NewChannel(cfg, session, files, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewLocationProvider(t *testing.T) {
	cfg := baseConfig()
	cfg.Location.Static.Route = []utils.RoutePoint{{Latitude: 40, Longitude: -3}}
	cfg.Location.Static.Granted = true

	p, err := NewLocationProvider(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.IsType(t, &location.StaticProvider{}, p)

	cfg.Location.Provider = "sensor"
	cfg.Location.Sensor.Port = "/dev/ttyUSB0"
	p, err = NewLocationProvider(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &location.DeviceSensorProvider{}, p)

	cfg.Location.Provider = "google"
	p, err = NewLocationProvider(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &location.GoogleGeolocationProvider{}, p)

	cfg.Location.Provider = "nope"
	_, err = NewLocationProvider(cfg, zerolog.Nop())
	assert.Error(t, err)
}
