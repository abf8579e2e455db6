package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benmeehan/locshare/pkg/channel"
	"github.com/benmeehan/locshare/pkg/file"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MQTTClient defines the interface for an MQTT client.
type MQTTClient interface {
	Connect() mqtt.Token
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Disconnect(quiesce uint)
}

// MqttService is a Channel backed by an MQTT broker. Channel destinations
// such as "/topic/locations" map to the MQTT topic "topic/locations".
type MqttService struct {
	client         MQTTClient
	fileClient     file.FileOperations
	logger         zerolog.Logger
	qos            byte
	publishTimeout time.Duration

	mu   sync.Mutex
	subs map[string]channel.MessageHandler
}

// NewMqttService creates a new MqttService instance.
func NewMqttService(fileClient file.FileOperations, qos int, logger zerolog.Logger) *MqttService {
	return &MqttService{
		fileClient:     fileClient,
		logger:         logger,
		qos:            byte(qos),
		publishTimeout: 5 * time.Second,
		subs:           make(map[string]channel.MessageHandler),
	}
}

// Initialize sets up the MQTT client. caCertPath is optional; when set the
// connection uses TLS with that CA. Connecting happens in Activate.
func (s *MqttService) Initialize(broker, clientID, caCertPath string, reconnectDelay time.Duration) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(reconnectDelay)
	opts.SetMaxReconnectInterval(reconnectDelay)
	opts.SetCleanSession(true)
	opts.SetOnConnectHandler(s.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.logger.Error().Err(err).Dur("retry_in", reconnectDelay).Msg("MQTT connection lost")
	})

	if caCertPath != "" {
		tlsConfig, err := s.tlsConfig(caCertPath)
		if err != nil {
			return err
		}
		opts.SetTLSConfig(tlsConfig)
	}

	s.client = mqtt.NewClient(opts)
	return nil
}

func (s *MqttService) tlsConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := s.fileClient.ReadFileRaw(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to append CA certificate")
	}
	return &tls.Config{RootCAs: caCertPool}, nil
}

// Activate starts connecting. With connect-retry enabled the token only
// completes once a connection is made, so it is not waited on.
func (s *MqttService) Activate() error {
	if s.client == nil {
		return fmt.Errorf("mqtt client is not initialized")
	}
	token := s.client.Connect()
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			s.logger.Error().Err(err).Msg("MQTT connect failed")
		}
	}()
	return nil
}

// Deactivate gracefully disconnects the MQTT client.
func (s *MqttService) Deactivate() error {
	if s.client == nil {
		return fmt.Errorf("mqtt client is not initialized")
	}
	s.client.Disconnect(250)
	return nil
}

// Connected reports whether the broker connection is open.
func (s *MqttService) Connected() bool {
	return s.client != nil && s.client.IsConnectionOpen()
}

// Publish sends payload to the topic derived from destination.
func (s *MqttService) Publish(destination string, payload []byte) error {
	if !s.Connected() {
		return channel.ErrNotConnected
	}
	token := s.client.Publish(topicFor(destination), s.qos, false, payload)
	if !token.WaitTimeout(s.publishTimeout) {
		return fmt.Errorf("publish to %s timed out", destination)
	}
	return token.Error()
}

// Subscribe registers handler; it is (re)applied on every connect.
func (s *MqttService) Subscribe(topic string, handler channel.MessageHandler) error {
	s.mu.Lock()
	s.subs[topicFor(topic)] = handler
	s.mu.Unlock()

	if !s.Connected() {
		return nil
	}
	return s.subscribe(s.client, topicFor(topic), handler)
}

func (s *MqttService) onConnect(c mqtt.Client) {
	s.logger.Info().Msg("MQTT connected")

	s.mu.Lock()
	subs := make(map[string]channel.MessageHandler, len(s.subs))
	for k, v := range s.subs {
		subs[k] = v
	}
	s.mu.Unlock()

	for topic, handler := range subs {
		if err := s.subscribe(c, topic, handler); err != nil {
			s.logger.Error().Err(err).Str("topic", topic).Msg("Failed to subscribe")
		}
	}
}

func (s *MqttService) subscribe(c MQTTClient, topic string, handler channel.MessageHandler) error {
	token := c.Subscribe(topic, s.qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	s.logger.Info().Str("topic", topic).Msg("Subscribed")
	return nil
}

func topicFor(destination string) string {
	return strings.TrimPrefix(destination, "/")
}
