package services_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benmeehan/locshare/internal/constants"
	"github.com/benmeehan/locshare/internal/models"
	"github.com/benmeehan/locshare/internal/services"
	"github.com/benmeehan/locshare/internal/state_managers"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for the render goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// TestMapService_RedrawsOnChange tests the placeholder frame and the redraw
// after the first fix.
func TestMapService_RedrawsOnChange(t *testing.T) {
	state := state_managers.NewTrackingStateManager(zerolog.Nop())
	out := &syncBuffer{}

	m := services.NewMapService(state, out, 0, false, zerolog.Nop())
	require.NoError(t, m.Start())

	assert.Contains(t, out.String(), constants.MessageObtaining)

	state.SetSelf(models.Fix{Latitude: 40, Longitude: -3, Timestamp: time.Now()})
	state.ReplacePeers([]models.LocationUpdate{
		models.NewLocationUpdate("user_abc", 40.002, -3.002, time.Now()),
	}, "user_me")

	assert.Eventually(t, func() bool {
		s := out.String()
		return strings.Contains(s, constants.SelfMarkerTitle) && strings.Contains(s, "User user_")
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Stop())
}

// TestMapService_ShowsError tests that the error message replaces the map.
func TestMapService_ShowsError(t *testing.T) {
	state := state_managers.NewTrackingStateManager(zerolog.Nop())
	out := &syncBuffer{}

	m := services.NewMapService(state, out, 0, true, zerolog.Nop())
	require.NoError(t, m.Start())

	state.Fail(constants.MessagePermissionDenied)

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), constants.MessagePermissionDenied)
	}, time.Second, 5*time.Millisecond)
	assert.True(t, strings.HasPrefix(out.String(), "\033[H\033[2J"))

	require.NoError(t, m.Stop())
}

// TestMapService_StartStop tests the lifecycle guards.
func TestMapService_StartStop(t *testing.T) {
	m := services.NewMapService(state_managers.NewTrackingStateManager(zerolog.Nop()), &syncBuffer{},
		10*time.Millisecond, false, zerolog.Nop())

	require.NoError(t, m.Start())

	err := m.Start()
	assert.Error(t, err)
	assert.Equal(t, "map service is already running", err.Error())

	require.NoError(t, m.Stop())

	err = m.Stop()
	assert.Error(t, err)
	assert.Equal(t, "map service is not running", err.Error())
}
