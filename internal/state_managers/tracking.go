package state_managers

import (
	"sync"

	"github.com/benmeehan/locshare/internal/models"
	"github.com/rs/zerolog"
)

// Phase is the lifecycle stage of the tracking screen.
type Phase int

const (
	Initializing Phase = iota
	Tracking
	Error
	Unmounted
)

func (p Phase) String() string {
	switch p {
	case Initializing:
		return "initializing"
	case Tracking:
		return "tracking"
	case Error:
		return "error"
	case Unmounted:
		return "unmounted"
	default:
		return "unknown"
	}
}

// terminal phases accept no further transitions.
func (p Phase) terminal() bool {
	return p == Error || p == Unmounted
}

// Snapshot is an immutable copy of the tracking state for rendering.
type Snapshot struct {
	Phase    Phase
	Self     *models.Fix
	Peers    []models.LocationUpdate
	ErrorMsg string
}

// TrackingStateManager owns the local fix and the peer list. Every change
// wakes the channel returned by Changes.
type TrackingStateManager struct {
	mu       sync.Mutex
	phase    Phase
	self     *models.Fix
	peers    map[string]models.LocationUpdate
	order    []string
	errorMsg string

	changes chan struct{}
	logger  zerolog.Logger
}

// NewTrackingStateManager starts in the Initializing phase.
func NewTrackingStateManager(logger zerolog.Logger) *TrackingStateManager {
	return &TrackingStateManager{
		phase:   Initializing,
		peers:   make(map[string]models.LocationUpdate),
		changes: make(chan struct{}, 1),
		logger:  logger,
	}
}

// Changes is signalled after every state change. Signals coalesce, so a
// reader sees at least one wake-up after the latest change.
func (sm *TrackingStateManager) Changes() <-chan struct{} {
	return sm.changes
}

// SetSelf records the latest local fix, moving Initializing to Tracking.
func (sm *TrackingStateManager) SetSelf(fix models.Fix) {
	sm.mu.Lock()
	if sm.phase.terminal() {
		sm.mu.Unlock()
		return
	}
	if sm.phase == Initializing {
		sm.transition(Tracking)
	}
	sm.self = &fix
	sm.mu.Unlock()
	sm.notify()
}

// ReplacePeers swaps the whole peer list. Entries carrying selfID are
// dropped, as are duplicate ids after the first.
func (sm *TrackingStateManager) ReplacePeers(updates []models.LocationUpdate, selfID string) {
	peers := make(map[string]models.LocationUpdate, len(updates))
	order := make([]string, 0, len(updates))
	for _, u := range updates {
		if u.UserID == selfID {
			continue
		}
		if _, dup := peers[u.UserID]; dup {
			continue
		}
		peers[u.UserID] = u
		order = append(order, u.UserID)
	}

	sm.mu.Lock()
	if sm.phase == Unmounted {
		sm.mu.Unlock()
		return
	}
	sm.peers = peers
	sm.order = order
	sm.mu.Unlock()
	sm.notify()
}

// Fail moves to the Error phase with a user-visible message.
func (sm *TrackingStateManager) Fail(msg string) {
	sm.mu.Lock()
	if sm.phase.terminal() {
		sm.mu.Unlock()
		return
	}
	sm.transition(Error)
	sm.errorMsg = msg
	sm.mu.Unlock()
	sm.notify()
}

// Unmount moves to the terminal Unmounted phase.
func (sm *TrackingStateManager) Unmount() {
	sm.mu.Lock()
	if sm.phase == Unmounted {
		sm.mu.Unlock()
		return
	}
	sm.transition(Unmounted)
	sm.mu.Unlock()
	sm.notify()
}

// Phase returns the current phase.
func (sm *TrackingStateManager) Phase() Phase {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.phase
}

// Snapshot copies the current state.
func (sm *TrackingStateManager) Snapshot() Snapshot {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	snap := Snapshot{Phase: sm.phase, ErrorMsg: sm.errorMsg}
	if sm.self != nil {
		self := *sm.self
		snap.Self = &self
	}
	snap.Peers = make([]models.LocationUpdate, 0, len(sm.order))
	for _, id := range sm.order {
		snap.Peers = append(snap.Peers, sm.peers[id])
	}
	return snap
}

// transition must be called with mu held.
func (sm *TrackingStateManager) transition(to Phase) {
	sm.logger.Debug().Stringer("from", sm.phase).Stringer("to", to).Msg("Tracking phase changed")
	sm.phase = to
}

func (sm *TrackingStateManager) notify() {
	select {
	case sm.changes <- struct{}{}:
	default:
	}
}
