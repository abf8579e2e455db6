package mocks

import "github.com/stretchr/testify/mock"

// MockService is a mock implementation of registry.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Start() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockService) Stop() error {
	args := m.Called()
	return args.Error(0)
}
