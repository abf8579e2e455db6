package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/benmeehan/locshare/internal/constants"
	"github.com/benmeehan/locshare/pkg/file"
)

// RoutePoint is one coordinate of a simulated route.
type RoutePoint struct {
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
	Accuracy  float64 `yaml:"accuracy" json:"accuracy"`
}

// Config represents the structure of the configuration file.
type Config struct {
	Log struct {
		Level  string `yaml:"level"`  // zerolog level name
		Format string `yaml:"format"` // "console", "json" or "" to detect from the terminal
	} `yaml:"log"`

	Session struct {
		Prefix string `yaml:"prefix"` // Prepended to the generated session id
		Length int    `yaml:"length"` // Number of random characters in the session id
	} `yaml:"session"`

	Channel struct {
		Transport         string        `yaml:"transport"`          // sockjs, websocket or mqtt
		Endpoint          string        `yaml:"endpoint"`           // Server endpoint, e.g. http://host:8080/ws-location
		Topic             string        `yaml:"topic"`              // Topic carrying peer locations
		Destination       string        `yaml:"destination"`        // Destination for local updates
		ReconnectDelay    time.Duration `yaml:"reconnect_delay"`    // Fixed wait between connection attempts
		ConnectTimeout    time.Duration `yaml:"connect_timeout"`    // Timeout for one connection attempt
		HeartbeatOutgoing time.Duration `yaml:"heartbeat_outgoing"` // STOMP heart-beat we send
		HeartbeatIncoming time.Duration `yaml:"heartbeat_incoming"` // STOMP heart-beat we expect

		MQTT struct {
			ClientID      string `yaml:"client_id"`      // MQTT client ID, session id appended
			CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate
			QOS           int    `yaml:"qos"`            // MQTT QoS level for both directions
		} `yaml:"mqtt"`
	} `yaml:"channel"`

	Location struct {
		Provider   string        `yaml:"provider"`    // static, sensor or google
		Interval   time.Duration `yaml:"interval"`    // Interval between published fixes
		FixTimeout time.Duration `yaml:"fix_timeout"` // Timeout for a single fix

		Static struct {
			Granted   bool         `yaml:"granted"`    // Outcome of the permission request
			Loop      bool         `yaml:"loop"`       // Restart the route after the last point
			Route     []RoutePoint `yaml:"route"`      // Inline route
			RouteFile string       `yaml:"route_file"` // YAML or JSON file holding a route
		} `yaml:"static"`

		Sensor struct {
			Port     string `yaml:"port"`      // Serial device the GPS receiver is mounted on
			BaudRate int    `yaml:"baud_rate"` // Baud rate of the GPS receiver
		} `yaml:"sensor"`

		Google struct {
			APIKey     string `yaml:"api_key"`     // Google Maps API key
			ModemIndex int    `yaml:"modem_index"` // ModemManager index used for cell scans
		} `yaml:"google"`
	} `yaml:"location"`

	Map struct {
		Refresh     time.Duration `yaml:"refresh"`      // Periodic redraw interval, 0 to redraw on change only
		ClearScreen bool          `yaml:"clear_screen"` // Clear the terminal before each frame
	} `yaml:"map"`
}

// LoadConfig loads the YAML configuration from the specified file, fills
// defaults and validates it.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, err
	}

	if config.Location.Static.RouteFile != "" {
		var route []RoutePoint
		if err := fileClient.ReadYamlFile(config.Location.Static.RouteFile, &route); err != nil {
			return nil, fmt.Errorf("failed to read route file: %w", err)
		}
		config.Location.Static.Route = append(config.Location.Static.Route, route...)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	setDefault(&c.Log.Level, "info")
	setDefault(&c.Session.Prefix, constants.SessionIDPrefix)
	if c.Session.Length <= 0 {
		c.Session.Length = constants.SessionIDLength
	}

	setDefault(&c.Channel.Transport, constants.TransportSockJS)
	setDefault(&c.Channel.Topic, constants.LocationsTopic)
	setDefault(&c.Channel.Destination, constants.UpdateLocationDestination)
	setDefault(&c.Channel.MQTT.ClientID, "locshare")
	if c.Channel.ReconnectDelay <= 0 {
		c.Channel.ReconnectDelay = constants.ReconnectDelay
	}
	if c.Channel.ConnectTimeout <= 0 {
		c.Channel.ConnectTimeout = 10 * time.Second
	}

	setDefault(&c.Location.Provider, constants.ProviderStatic)
	if c.Location.Interval <= 0 {
		c.Location.Interval = constants.PublishInterval
	}
	if c.Location.FixTimeout <= 0 {
		c.Location.FixTimeout = constants.FixTimeout
	}
	if c.Location.Sensor.BaudRate <= 0 {
		c.Location.Sensor.BaudRate = 9600
	}
}

// Validate checks the fields that have no sensible default.
func (c *Config) Validate() error {
	if c.Channel.Endpoint == "" {
		return fmt.Errorf("channel.endpoint is required")
	}
	switch c.Channel.Transport {
	case constants.TransportSockJS, constants.TransportWebSocket, constants.TransportMQTT:
	default:
		return fmt.Errorf("unknown channel.transport %q", c.Channel.Transport)
	}
	switch c.Location.Provider {
	case constants.ProviderStatic:
	case constants.ProviderSensor:
		if c.Location.Sensor.Port == "" {
			return fmt.Errorf("location.sensor.port is required for the sensor provider")
		}
	case constants.ProviderGoogle:
	default:
		return fmt.Errorf("unknown location.provider %q", c.Location.Provider)
	}
	if c.Channel.MQTT.QOS < 0 || c.Channel.MQTT.QOS > 2 {
		return fmt.Errorf("channel.mqtt.qos must be 0, 1 or 2")
	}
	return nil
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}
