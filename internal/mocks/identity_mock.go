package mocks

import "github.com/stretchr/testify/mock"

// MockSession is a mock implementation of identity.SessionInterface
type MockSession struct {
	mock.Mock
}

func (m *MockSession) GetUserID() string {
	args := m.Called()
	return args.String(0)
}
