package channel

import (
	"errors"
	"sync"

	"github.com/benmeehan/locshare/pkg/stomp"
	"github.com/rs/zerolog"
)

const jsonContentType = "application/json"

// StompChannel adapts a reconnecting STOMP client to Channel.
type StompChannel struct {
	client *stomp.Client
	logger zerolog.Logger

	// mu orders Subscribe against session start and end, so a topic is
	// subscribed exactly once per session.
	mu   sync.Mutex
	live bool
	subs []topicHandler
}

type topicHandler struct {
	topic   string
	handler MessageHandler
}

// NewStompChannel creates a channel over dialer. cfg.OnConnect and
// cfg.OnDisconnect are wrapped so registered subscriptions are replayed on
// every connect.
func NewStompChannel(dialer stomp.Dialer, cfg stomp.Config, logger zerolog.Logger) *StompChannel {
	s := &StompChannel{logger: logger}

	userOnConnect := cfg.OnConnect
	cfg.OnConnect = func(c *stomp.Client) {
		s.subscribeAll(c)
		if userOnConnect != nil {
			userOnConnect(c)
		}
	}
	userOnDisconnect := cfg.OnDisconnect
	cfg.OnDisconnect = func() {
		s.mu.Lock()
		s.live = false
		s.mu.Unlock()
		if userOnDisconnect != nil {
			userOnDisconnect()
		}
	}
	if cfg.OnError == nil {
		cfg.OnError = func(err error) {
			logger.Error().Err(err).Msg("Channel error")
		}
	}

	s.client = stomp.NewClient(dialer, cfg, logger)
	return s
}

// Activate starts the STOMP connection loop.
func (s *StompChannel) Activate() error {
	return s.client.Activate()
}

// Deactivate disconnects and stops reconnecting.
func (s *StompChannel) Deactivate() error {
	return s.client.Deactivate()
}

// Connected reports whether a STOMP session is open.
func (s *StompChannel) Connected() bool {
	return s.client.Connected()
}

// Publish sends a JSON payload to destination.
func (s *StompChannel) Publish(destination string, payload []byte) error {
	err := s.client.Publish(destination, payload, jsonContentType)
	if errors.Is(err, stomp.ErrNotConnected) {
		return ErrNotConnected
	}
	return err
}

// Subscribe registers handler and subscribes immediately when a session is
// open. Otherwise the next session picks it up.
func (s *StompChannel) Subscribe(topic string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs = append(s.subs, topicHandler{topic: topic, handler: handler})
	if !s.live {
		return nil
	}
	err := s.subscribe(s.client, topic, handler)
	if errors.Is(err, stomp.ErrNotConnected) {
		// The session is ending; the replay on reconnect covers it
		return nil
	}
	return err
}

func (s *StompChannel) subscribeAll(c *stomp.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.live = true
	for _, sub := range s.subs {
		if err := s.subscribe(c, sub.topic, sub.handler); err != nil {
			s.logger.Error().Err(err).Str("topic", sub.topic).Msg("Failed to subscribe")
		}
	}
}

func (s *StompChannel) subscribe(c *stomp.Client, topic string, handler MessageHandler) error {
	id, err := c.Subscribe(topic, stomp.Handler(handler))
	if err != nil {
		return err
	}
	s.logger.Info().Str("topic", topic).Str("subscription", id).Msg("Subscribed")
	return nil
}
