package testutil

import (
	"context"

	"github.com/hupe1980/mcpagent/core"
	"github.com/stretchr/testify/mock"
)

// MockHandler is a testify mock implementing core.Handler and core.Shutdowner.
type MockHandler struct {
	mock.Mock
}

// CustomInitialize implements core.Handler.
func (m *MockHandler) CustomInitialize(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// ProcessCustomMessage implements core.Handler.
func (m *MockHandler) ProcessCustomMessage(ctx context.Context, msg core.Message) (any, error) {
	args := m.Called(ctx, msg)
	return args.Get(0), args.Error(1)
}

// Shutdown implements core.Shutdowner.
func (m *MockHandler) Shutdown(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
