package service

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"certtrack/internal/authclient"
	"certtrack/internal/captcha"
	captchaMocks "certtrack/internal/captcha/mocks"
	"certtrack/internal/config"
	"certtrack/internal/model"
	repoMocks "certtrack/internal/repository/mocks"
)

func newTestAuthService(api *MockAuthAPI, profiles *repoMocks.MockProfileRepository, verifier captcha.Verifier) *authService {
	cfg := config.AuthConfig{
		SiteURL:          "https://app.example.com",
		OAuthRedirectURL: "https://api.example.com/auth/callback",
		SignUpPollDelay:  1500 * time.Millisecond,
	}
	svc := NewAuthService(api, profiles, verifier, cfg, zerolog.Nop()).(*authService)
	svc.sleep = func(time.Duration) {} // no real waiting in tests
	return svc
}

func okVerifier(t *testing.T) *captchaMocks.MockVerifier {
	t.Helper()
	v := new(captchaMocks.MockVerifier)
	v.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return v
}

func TestAuthService_SignUp(t *testing.T) {
	ctx := context.Background()
	user := &model.User{ID: "u1", Email: "a@b.c"}

	tests := []struct {
		name       string
		in         SignUpInput
		setupMocks func(api *MockAuthAPI, profiles *repoMocks.MockProfileRepository)
		wantErr    error
		check      func(t *testing.T, res *SignUpResult)
	}{
		{
			name: "happy path with trigger-created profile",
			in:   SignUpInput{Email: "a@b.c", Password: "pw123456", FullName: "Ada"},
			setupMocks: func(api *MockAuthAPI, profiles *repoMocks.MockProfileRepository) {
				api.On("SignUp", ctx, mock.MatchedBy(func(req authclient.SignUpRequest) bool {
					return req.Email == "a@b.c" && req.Data["full_name"] == "Ada"
				})).Return(&model.Session{AccessToken: "at", User: user}, user, nil)
				profiles.On("FindByID", ctx, "u1").Return(&model.Profile{ID: "u1", Email: "a@b.c"}, nil)
			},
			check: func(t *testing.T, res *SignUpResult) {
				assert.False(t, res.ConfirmationRequired)
				assert.Equal(t, "at", res.Session.AccessToken)
				assert.Equal(t, "u1", res.Profile.ID)
			},
		},
		{
			name: "fallback profile insert when trigger missed",
			in:   SignUpInput{Email: "a@b.c", Password: "pw123456"},
			setupMocks: func(api *MockAuthAPI, profiles *repoMocks.MockProfileRepository) {
				api.On("SignUp", ctx, mock.Anything).Return(nil, user, nil)
				profiles.On("FindByID", ctx, "u1").Return(nil, sql.ErrNoRows).Once()
				profiles.On("Create", ctx, mock.MatchedBy(func(p *model.Profile) bool {
					return p.ID == "u1" && p.Email == "a@b.c"
				})).Return(&model.Profile{ID: "u1", Email: "a@b.c"}, nil)
			},
			check: func(t *testing.T, res *SignUpResult) {
				assert.True(t, res.ConfirmationRequired)
				assert.Nil(t, res.Session)
				assert.Equal(t, "u1", res.Profile.ID)
			},
		},
		{
			name: "lost race against trigger reads row back",
			in:   SignUpInput{Email: "a@b.c", Password: "pw123456"},
			setupMocks: func(api *MockAuthAPI, profiles *repoMocks.MockProfileRepository) {
				api.On("SignUp", ctx, mock.Anything).Return(nil, user, nil)
				profiles.On("FindByID", ctx, "u1").Return(nil, sql.ErrNoRows).Once()
				profiles.On("Create", ctx, mock.Anything).Return(nil, errors.New("duplicate key"))
				profiles.On("FindByID", ctx, "u1").Return(&model.Profile{ID: "u1"}, nil).Once()
			},
			check: func(t *testing.T, res *SignUpResult) {
				assert.Equal(t, "u1", res.Profile.ID)
			},
		},
		{
			name:       "missing email",
			in:         SignUpInput{Password: "pw123456"},
			setupMocks: func(api *MockAuthAPI, profiles *repoMocks.MockProfileRepository) {},
			wantErr:    ErrEmailRequired,
		},
		{
			name:       "missing password",
			in:         SignUpInput{Email: "a@b.c"},
			setupMocks: func(api *MockAuthAPI, profiles *repoMocks.MockProfileRepository) {},
			wantErr:    ErrPasswordRequired,
		},
		{
			name: "platform rejects duplicate",
			in:   SignUpInput{Email: "a@b.c", Password: "pw123456"},
			setupMocks: func(api *MockAuthAPI, profiles *repoMocks.MockProfileRepository) {
				api.On("SignUp", ctx, mock.Anything).Return(nil, nil, authclient.ErrUserExists)
			},
			wantErr: authclient.ErrUserExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockAuthAPI)
			profiles := new(repoMocks.MockProfileRepository)
			tt.setupMocks(api, profiles)

			svc := newTestAuthService(api, profiles, okVerifier(t))
			res, err := svc.SignUp(ctx, tt.in)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, res)
			api.AssertExpectations(t)
			profiles.AssertExpectations(t)
		})
	}
}

func TestAuthService_SignUp_CaptchaRejected(t *testing.T) {
	ctx := context.Background()
	v := new(captchaMocks.MockVerifier)
	v.On("Verify", ctx, "bad", "203.0.113.9").Return(captcha.ErrTokenRejected)

	svc := newTestAuthService(new(MockAuthAPI), new(repoMocks.MockProfileRepository), v)

	_, err := svc.SignUp(ctx, SignUpInput{
		Email:        "a@b.c",
		Password:     "pw123456",
		CaptchaToken: "bad",
		RemoteIP:     "203.0.113.9",
	})
	assert.ErrorIs(t, err, captcha.ErrTokenRejected)
}

func TestAuthService_SignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		api := new(MockAuthAPI)
		api.On("SignInWithPassword", ctx, "a@b.c", "pw", "").
			Return(&model.Session{AccessToken: "at", User: &model.User{ID: "u1"}}, nil)

		svc := newTestAuthService(api, new(repoMocks.MockProfileRepository), okVerifier(t))
		sess, err := svc.SignIn(ctx, SignInInput{Email: "a@b.c", Password: "pw"})

		require.NoError(t, err)
		assert.Equal(t, "at", sess.AccessToken)
	})

	t.Run("invalid credentials pass through", func(t *testing.T) {
		api := new(MockAuthAPI)
		api.On("SignInWithPassword", ctx, "a@b.c", "wrong", "").
			Return(nil, authclient.ErrInvalidCredentials)

		svc := newTestAuthService(api, new(repoMocks.MockProfileRepository), okVerifier(t))
		_, err := svc.SignIn(ctx, SignInInput{Email: "a@b.c", Password: "wrong"})

		assert.ErrorIs(t, err, authclient.ErrInvalidCredentials)
	})
}

func TestAuthService_OAuthStartAndCallback(t *testing.T) {
	ctx := context.Background()
	user := &model.User{
		ID:    "u1",
		Email: "a@b.c",
		UserMetadata: map[string]any{
			"name":    "Ada Lovelace",
			"picture": "https://lh3.example.com/photo.jpg",
		},
	}

	api := new(MockAuthAPI)
	profiles := new(repoMocks.MockProfileRepository)
	svc := newTestAuthService(api, profiles, okVerifier(t))

	var gotChallenge, gotRedirect string
	api.On("AuthorizeURL", "google", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotRedirect = args.String(1)
			gotChallenge = args.String(2)
		}).
		Return("https://auth.example.com/authorize?provider=google")

	authorizeURL, err := svc.OAuthStart(ctx, "google", "https://app.example.com/dashboard")
	require.NoError(t, err)
	assert.Equal(t, "https://auth.example.com/authorize?provider=google", authorizeURL)
	assert.NotEmpty(t, gotChallenge)

	// The state rides on the callback redirect URL.
	cb, err := url.Parse(gotRedirect)
	require.NoError(t, err)
	state := cb.Query().Get("state")
	require.NotEmpty(t, state)
	assert.True(t, strings.HasPrefix(gotRedirect, "https://api.example.com/auth/callback"))

	api.On("ExchangeCode", ctx, "code-1", mock.MatchedBy(func(verifier string) bool {
		return computeS256Challenge(verifier) == gotChallenge
	})).Return(&model.Session{AccessToken: "at", User: user}, nil)
	profiles.On("FindByID", ctx, "u1").Return(nil, sql.ErrNoRows).Once()
	profiles.On("Create", ctx, mock.MatchedBy(func(p *model.Profile) bool {
		return p.ID == "u1" && p.FullName == "Ada Lovelace" && p.AvatarURL == "https://lh3.example.com/photo.jpg"
	})).Return(&model.Profile{ID: "u1", FullName: "Ada Lovelace"}, nil)

	res, err := svc.OAuthCallback(ctx, state, "code-1")
	require.NoError(t, err)
	assert.Equal(t, "at", res.Session.AccessToken)
	assert.Equal(t, "https://app.example.com/dashboard", res.RedirectTo)

	// State is single use.
	_, err = svc.OAuthCallback(ctx, state, "code-1")
	assert.ErrorIs(t, err, ErrInvalidState)

	api.AssertExpectations(t)
	profiles.AssertExpectations(t)
}

func TestAuthService_OAuthCallback_UserFetchedWhenMissing(t *testing.T) {
	ctx := context.Background()
	user := &model.User{ID: "u1", Email: "a@b.c"}

	api := new(MockAuthAPI)
	profiles := new(repoMocks.MockProfileRepository)
	svc := newTestAuthService(api, profiles, okVerifier(t))

	var gotRedirect string
	api.On("AuthorizeURL", "google", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { gotRedirect = args.String(1) }).
		Return("https://auth.example.com/authorize")

	_, err := svc.OAuthStart(ctx, "google", "")
	require.NoError(t, err)

	cb, err := url.Parse(gotRedirect)
	require.NoError(t, err)
	state := cb.Query().Get("state")
	require.NotEmpty(t, state)

	// Token response without an embedded user falls back to /user.
	api.On("ExchangeCode", ctx, "code-1", mock.Anything).
		Return(&model.Session{AccessToken: "at"}, nil)
	api.On("GetUser", ctx, "at").Return(user, nil)
	profiles.On("FindByID", ctx, "u1").Return(&model.Profile{ID: "u1"}, nil)

	res, err := svc.OAuthCallback(ctx, state, "code-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", res.Session.User.ID)
	assert.Equal(t, "u1", res.Profile.ID)
	api.AssertExpectations(t)
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("empty token rejected without a platform call", func(t *testing.T) {
		api := new(MockAuthAPI)
		svc := newTestAuthService(api, new(repoMocks.MockProfileRepository), okVerifier(t))

		_, err := svc.Refresh(ctx, "")

		assert.ErrorIs(t, err, authclient.ErrInvalidGrant)
		api.AssertNotCalled(t, "RefreshSession", mock.Anything, mock.Anything)
	})

	t.Run("pass-through", func(t *testing.T) {
		api := new(MockAuthAPI)
		api.On("RefreshSession", ctx, "rt-1").
			Return(&model.Session{AccessToken: "at2", RefreshToken: "rt-2"}, nil)

		svc := newTestAuthService(api, new(repoMocks.MockProfileRepository), okVerifier(t))
		sess, err := svc.Refresh(ctx, "rt-1")

		require.NoError(t, err)
		assert.Equal(t, "at2", sess.AccessToken)
	})
}

func TestAuthService_OAuthStart_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuthService(new(MockAuthAPI), new(repoMocks.MockProfileRepository), okVerifier(t))

	_, err := svc.OAuthStart(ctx, "github", "")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)

	_, err = svc.OAuthStart(ctx, "google", "https://evil.example.net/phish")
	assert.ErrorIs(t, err, ErrRedirectNotAllowed)
}

func TestAuthService_OAuthCallback_UnknownState(t *testing.T) {
	svc := newTestAuthService(new(MockAuthAPI), new(repoMocks.MockProfileRepository), okVerifier(t))

	_, err := svc.OAuthCallback(context.Background(), "never-issued", "code")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestAuthService_Profile(t *testing.T) {
	ctx := context.Background()
	profiles := new(repoMocks.MockProfileRepository)
	profiles.On("FindByID", ctx, "u1").Return(&model.Profile{ID: "u1"}, nil)
	profiles.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows)

	svc := newTestAuthService(new(MockAuthAPI), profiles, okVerifier(t))

	p, err := svc.Profile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)

	_, err = svc.Profile(ctx, "missing")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestStateStore_Expiry(t *testing.T) {
	store := newStateStore(time.Minute)
	current := time.Now()
	store.now = func() time.Time { return current }

	state := store.Create("google", "", "verifier")

	current = current.Add(2 * time.Minute)
	_, ok := store.Consume(state)
	assert.False(t, ok)
}
