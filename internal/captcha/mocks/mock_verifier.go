package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	args := m.Called(ctx, token, remoteIP)
	return args.Error(0)
}

func (m *MockVerifier) Enabled() bool {
	args := m.Called()
	return args.Bool(0)
}
