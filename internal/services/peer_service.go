package services

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/benmeehan/locshare/internal/models"
	"github.com/benmeehan/locshare/pkg/channel"
	"github.com/benmeehan/locshare/pkg/identity"
	"github.com/rs/zerolog"
)

// PeerService owns the channel connection and mirrors the peer positions
// broadcast on the locations topic into the tracking state.
type PeerService struct {
	topic   string
	session identity.SessionInterface
	channel channel.Channel
	state   TrackingState
	logger  zerolog.Logger

	mu      sync.Mutex
	running bool
}

// NewPeerService creates a new PeerService.
func NewPeerService(topic string, session identity.SessionInterface, ch channel.Channel,
	state TrackingState, logger zerolog.Logger) *PeerService {
	return &PeerService{
		topic:   topic,
		session: session,
		channel: ch,
		state:   state,
		logger:  logger,
	}
}

// Start subscribes to the topic and activates the channel.
func (p *PeerService) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.logger.Warn().Msg("PeerService is already running")
		return errors.New("peer service is already running")
	}

	if err := p.channel.Subscribe(p.topic, p.handleMessage); err != nil {
		p.logger.Error().Err(err).Str("topic", p.topic).Msg("Failed to subscribe")
		return err
	}
	if err := p.channel.Activate(); err != nil {
		p.logger.Error().Err(err).Msg("Failed to activate channel")
		return err
	}

	p.running = true
	p.logger.Info().Str("topic", p.topic).Msg("PeerService started")
	return nil
}

// Stop deactivates the channel, which closes the connection.
func (p *PeerService) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		p.logger.Warn().Msg("PeerService is not running")
		return errors.New("peer service is not running")
	}

	p.running = false
	if err := p.channel.Deactivate(); err != nil {
		p.logger.Error().Err(err).Msg("Failed to deactivate channel")
		return err
	}

	p.logger.Info().Msg("PeerService stopped")
	return nil
}

// handleMessage replaces the peer list with the decoded broadcast. A payload
// that does not decode is discarded and the previous list is kept.
func (p *PeerService) handleMessage(payload []byte) {
	var entries []*models.LocationUpdate
	if err := json.Unmarshal(payload, &entries); err != nil {
		p.logger.Error().Err(err).Bytes("payload", payload).Msg("Discarding malformed locations message")
		return
	}
	// A JSON null leaves the slice nil; an empty array is a valid empty list
	if entries == nil {
		p.logger.Error().Bytes("payload", payload).Msg("Discarding null locations message")
		return
	}

	updates := make([]models.LocationUpdate, 0, len(entries))
	for i, e := range entries {
		if e == nil || e.UserID == "" {
			p.logger.Error().Int("index", i).Bytes("payload", payload).Msg("Discarding locations message with an invalid entry")
			return
		}
		updates = append(updates, *e)
	}

	p.state.ReplacePeers(updates, p.session.GetUserID())
	p.logger.Debug().Int("received", len(updates)).Msg("Peer locations updated")
}
