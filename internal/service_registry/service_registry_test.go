package service_registry

import (
	"bytes"
	"errors"
	"testing"

	"github.com/benmeehan/locshare/internal/mocks"
	"github.com/benmeehan/locshare/internal/state_managers"
	"github.com/benmeehan/locshare/internal/utils"
	"github.com/benmeehan/locshare/pkg/identity"
	"github.com/benmeehan/locshare/pkg/location"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestServiceRegistry_StartStopOrder(t *testing.T) {
	sr := NewServiceRegistry(zerolog.Nop())
	var calls []string

	for _, name := range []string{"a", "b", "c"} {
		name := name
		svc := new(mocks.MockService)
		svc.On("Start").Run(func(_ mock.Arguments) { calls = append(calls, "start "+name) }).Return(nil)
		svc.On("Stop").Run(func(_ mock.Arguments) { calls = append(calls, "stop "+name) }).Return(nil)
		sr.RegisterService(name, svc)
	}

	require.NoError(t, sr.StartServices())
	require.NoError(t, sr.StopServices())

	assert.Equal(t, []string{"start a", "start b", "start c", "stop c", "stop b", "stop a"}, calls)
}

func TestServiceRegistry_StartFailureRollsBack(t *testing.T) {
	sr := NewServiceRegistry(zerolog.Nop())

	first := new(mocks.MockService)
	first.On("Start").Return(nil)
	first.On("Stop").Return(nil)
	second := new(mocks.MockService)
	second.On("Start").Return(errors.New("boom"))

	sr.RegisterService("first", first)
	sr.RegisterService("second", second)

	err := sr.StartServices()
	assert.ErrorContains(t, err, "start second: boom")
	first.AssertCalled(t, "Stop")
	second.AssertNotCalled(t, "Stop")
}

func TestServiceRegistry_StopCollectsErrors(t *testing.T) {
	sr := NewServiceRegistry(zerolog.Nop())

	bad := new(mocks.MockService)
	bad.On("Stop").Return(errors.New("stuck"))
	good := new(mocks.MockService)
	good.On("Stop").Return(nil)
	sr.RegisterService("bad", bad)
	sr.RegisterService("good", good)

	err := sr.StopServices()
	assert.ErrorContains(t, err, "failed to stop bad: stuck")
	good.AssertCalled(t, "Stop")
}

func TestServiceRegistry_DuplicateIgnored(t *testing.T) {
	sr := NewServiceRegistry(zerolog.Nop())
	sr.RegisterService("a", new(mocks.MockService))
	sr.RegisterService("a", new(mocks.MockService))

	assert.Equal(t, []string{"a"}, sr.Names())
}

func TestServiceRegistry_RegisterServices(t *testing.T) {
	var cfg utils.Config
	cfg.Channel.Endpoint = "http://localhost:8080/ws-location"
	cfg.ApplyDefaults()

	sr := NewServiceRegistry(zerolog.Nop())
	sr.RegisterServices(&cfg, Dependencies{
		Session:  identity.NewSessionWithID("user_me"),
		Channel:  new(mocks.MockChannel),
		Provider: location.NewStaticProvider(nil, false, false),
		State:    state_managers.NewTrackingStateManager(zerolog.Nop()),
		Output:   &bytes.Buffer{},
	})

	assert.Equal(t, []string{"map", "peers", "location"}, sr.Names())
}
