package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/benmeehan/locshare/internal/mapview"
	"github.com/benmeehan/locshare/internal/state_managers"
	"github.com/rs/zerolog"
)

const clearScreen = "\033[H\033[2J"

// StateSource provides snapshots of the tracking state and change notifications.
type StateSource interface {
	Snapshot() state_managers.Snapshot
	Changes() <-chan struct{}
}

// MapService redraws the map view on every tracking state change, and on a
// refresh interval so relative update times stay current.
type MapService struct {
	source      StateSource
	out         io.Writer
	refresh     time.Duration
	clearScreen bool
	logger      zerolog.Logger
	now         func() time.Time

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewMapService creates a MapService writing to out. A zero refresh redraws
// on changes only; clear prefixes each frame with an ANSI clear-screen.
func NewMapService(source StateSource, out io.Writer, refresh time.Duration, clear bool, logger zerolog.Logger) *MapService {
	return &MapService{
		source:      source,
		out:         out,
		refresh:     refresh,
		clearScreen: clear,
		logger:      logger,
		now:         time.Now,
	}
}

// Start draws the initial frame and begins following state changes.
func (m *MapService) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		m.logger.Warn().Msg("MapService is already running")
		return errors.New("map service is already running")
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.running = true
	m.draw()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(m.ctx)
	}()

	m.logger.Info().Dur("refresh", m.refresh).Msg("MapService started")
	return nil
}

// Stop ends the redraw loop.
func (m *MapService) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		m.logger.Warn().Msg("MapService is not running")
		return errors.New("map service is not running")
	}

	m.cancel()
	m.wg.Wait()
	m.running = false

	m.logger.Info().Msg("MapService stopped")
	return nil
}

func (m *MapService) run(ctx context.Context) {
	var tick <-chan time.Time
	if m.refresh > 0 {
		ticker := time.NewTicker(m.refresh)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-m.source.Changes():
			m.draw()
		case <-tick:
			m.draw()
		case <-ctx.Done():
			return
		}
	}
}

func (m *MapService) draw() {
	if m.clearScreen {
		io.WriteString(m.out, clearScreen)
	}
	mapview.Render(m.out, m.source.Snapshot(), m.now())
}
