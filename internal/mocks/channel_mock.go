package mocks

import (
	"sync"

	"github.com/benmeehan/locshare/pkg/channel"
	"github.com/stretchr/testify/mock"
)

// MockChannel is a mock implementation of channel.Channel. Handlers passed
// to Subscribe are captured so tests can deliver messages with Deliver.
type MockChannel struct {
	mock.Mock

	mu       sync.Mutex
	handlers map[string]channel.MessageHandler
}

func (m *MockChannel) Activate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockChannel) Deactivate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockChannel) Connected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockChannel) Publish(destination string, payload []byte) error {
	args := m.Called(destination, payload)
	return args.Error(0)
}

func (m *MockChannel) Subscribe(topic string, handler channel.MessageHandler) error {
	m.mu.Lock()
	if m.handlers == nil {
		m.handlers = make(map[string]channel.MessageHandler)
	}
	m.handlers[topic] = handler
	m.mu.Unlock()

	args := m.Called(topic, mock.Anything)
	return args.Error(0)
}

// Deliver invokes the handler registered for topic, reporting whether one existed.
func (m *MockChannel) Deliver(topic string, payload []byte) bool {
	m.mu.Lock()
	h, ok := m.handlers[topic]
	m.mu.Unlock()
	if ok {
		h(payload)
	}
	return ok
}
