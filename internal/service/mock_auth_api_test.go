package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"certtrack/internal/authclient"
	"certtrack/internal/model"
)

type MockAuthAPI struct {
	mock.Mock
}

func (m *MockAuthAPI) SignUp(ctx context.Context, req authclient.SignUpRequest) (*model.Session, *model.User, error) {
	args := m.Called(ctx, req)
	var sess *model.Session
	if args.Get(0) != nil {
		sess = args.Get(0).(*model.Session)
	}
	var user *model.User
	if args.Get(1) != nil {
		user = args.Get(1).(*model.User)
	}
	return sess, user, args.Error(2)
}

func (m *MockAuthAPI) SignInWithPassword(ctx context.Context, email, password, captchaToken string) (*model.Session, error) {
	args := m.Called(ctx, email, password, captchaToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *MockAuthAPI) AuthorizeURL(provider, redirectTo, codeChallenge string) string {
	args := m.Called(provider, redirectTo, codeChallenge)
	return args.String(0)
}

func (m *MockAuthAPI) ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*model.Session, error) {
	args := m.Called(ctx, authCode, codeVerifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *MockAuthAPI) RefreshSession(ctx context.Context, refreshToken string) (*model.Session, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *MockAuthAPI) GetUser(ctx context.Context, accessToken string) (*model.User, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthAPI) SignOut(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}
