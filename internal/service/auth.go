package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"certtrack/internal/authclient"
	"certtrack/internal/captcha"
	"certtrack/internal/config"
	"certtrack/internal/model"
	"certtrack/internal/repository"
)

var (
	ErrEmailRequired       = errors.New("email is required")
	ErrPasswordRequired    = errors.New("password is required")
	ErrUnsupportedProvider = errors.New("unsupported oauth provider")
	ErrInvalidState        = errors.New("invalid or expired oauth state")
	ErrRedirectNotAllowed  = errors.New("redirect target not allowed")
	ErrProfileNotFound     = errors.New("profile not found")
)

// AuthAPI is the surface of the platform auth client the service depends on.
type AuthAPI interface {
	SignUp(ctx context.Context, req authclient.SignUpRequest) (*model.Session, *model.User, error)
	SignInWithPassword(ctx context.Context, email, password, captchaToken string) (*model.Session, error)
	AuthorizeURL(provider, redirectTo, codeChallenge string) string
	ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*model.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*model.Session, error)
	GetUser(ctx context.Context, accessToken string) (*model.User, error)
	SignOut(ctx context.Context, accessToken string) error
}

// SignUpInput carries sign-up fields from the HTTP layer.
type SignUpInput struct {
	Email        string
	Password     string
	FullName     string
	CaptchaToken string
	RemoteIP     string
}

// SignInInput carries sign-in fields from the HTTP layer.
type SignInInput struct {
	Email        string
	Password     string
	CaptchaToken string
	RemoteIP     string
}

// SignUpResult is the service-level DTO for a completed sign-up.
type SignUpResult struct {
	Session              *model.Session `json:"session,omitempty"`
	User                 *model.User    `json:"user"`
	Profile              *model.Profile `json:"profile,omitempty"`
	ConfirmationRequired bool           `json:"confirmation_required"`
}

// OAuthCallbackResult is the outcome of the post-OAuth reconciliation step.
type OAuthCallbackResult struct {
	Session    *model.Session `json:"session"`
	Profile    *model.Profile `json:"profile"`
	RedirectTo string         `json:"redirect_to,omitempty"`
}

// AuthService defines the authentication use cases. Everything hard (token
// issuance, password hashing, the provider OAuth state machine) stays on the
// platform; this service shapes requests and reconciles profile rows.
type AuthService interface {
	// SignUp registers an email/password user, then performs a single
	// fixed-delay check for the trigger-created profile row, inserting a
	// fallback row when it is absent.
	SignUp(ctx context.Context, in SignUpInput) (*SignUpResult, error)

	// SignIn exchanges email/password credentials for a session.
	SignIn(ctx context.Context, in SignInInput) (*model.Session, error)

	// OAuthStart begins a provider flow and returns the authorize URL the
	// browser should be redirected to.
	OAuthStart(ctx context.Context, provider, redirectTo string) (string, error)

	// OAuthCallback validates state, exchanges the code, and reconciles the
	// profile row for the signed-in identity.
	OAuthCallback(ctx context.Context, state, code string) (*OAuthCallbackResult, error)

	// Refresh exchanges a refresh token for a fresh session.
	Refresh(ctx context.Context, refreshToken string) (*model.Session, error)

	// SignOut revokes the session behind an access token.
	SignOut(ctx context.Context, accessToken string) error

	// Profile returns the application profile for a user id.
	Profile(ctx context.Context, userID string) (*model.Profile, error)
}

// authService is the concrete implementation of AuthService.
type authService struct {
	client   AuthAPI
	profiles repository.ProfileRepository
	verifier captcha.Verifier
	states   *stateStore

	siteURL     string
	callbackURL string
	pollDelay   time.Duration
	log         zerolog.Logger

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

const oauthStateTTL = 15 * time.Minute

// NewAuthService constructs an AuthService.
func NewAuthService(client AuthAPI, profiles repository.ProfileRepository, verifier captcha.Verifier, cfg config.AuthConfig, log zerolog.Logger) AuthService {
	return &authService{
		client:      client,
		profiles:    profiles,
		verifier:    verifier,
		states:      newStateStore(oauthStateTTL),
		siteURL:     strings.TrimRight(cfg.SiteURL, "/"),
		callbackURL: cfg.OAuthRedirectURL,
		pollDelay:   cfg.SignUpPollDelay,
		log:         log.With().Str("component", "auth").Logger(),
		sleep:       time.Sleep,
	}
}

func (s *authService) SignUp(ctx context.Context, in SignUpInput) (*SignUpResult, error) {
	if in.Email == "" {
		return nil, ErrEmailRequired
	}
	if in.Password == "" {
		return nil, ErrPasswordRequired
	}
	if err := s.verifier.Verify(ctx, in.CaptchaToken, in.RemoteIP); err != nil {
		return nil, err
	}

	var data map[string]any
	if in.FullName != "" {
		data = map[string]any{"full_name": in.FullName}
	}
	sess, user, err := s.client.SignUp(ctx, authclient.SignUpRequest{
		Email:    in.Email,
		Password: in.Password,
		Data:     data,
	})
	if err != nil {
		return nil, err
	}

	// The platform database trigger creates the profile row asynchronously.
	// Wait once for the fixed delay, then check; on a miss, insert the
	// fallback row ourselves. No retry loop.
	s.sleep(s.pollDelay)
	profile, err := s.ensureProfile(ctx, user)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("profile reconciliation after sign-up failed")
		return nil, fmt.Errorf("reconcile profile: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Bool("confirmation_required", sess == nil).Msg("user signed up")
	return &SignUpResult{
		Session:              sess,
		User:                 user,
		Profile:              profile,
		ConfirmationRequired: sess == nil,
	}, nil
}

func (s *authService) SignIn(ctx context.Context, in SignInInput) (*model.Session, error) {
	if in.Email == "" {
		return nil, ErrEmailRequired
	}
	if in.Password == "" {
		return nil, ErrPasswordRequired
	}
	if err := s.verifier.Verify(ctx, in.CaptchaToken, in.RemoteIP); err != nil {
		return nil, err
	}

	sess, err := s.client.SignInWithPassword(ctx, in.Email, in.Password, "")
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", userID(sess)).Msg("user signed in")
	return sess, nil
}

func (s *authService) OAuthStart(ctx context.Context, provider, redirectTo string) (string, error) {
	if provider != "google" {
		return "", ErrUnsupportedProvider
	}
	if redirectTo != "" && !s.redirectAllowed(redirectTo) {
		return "", ErrRedirectNotAllowed
	}

	verifier, err := newCodeVerifier()
	if err != nil {
		return "", err
	}
	state := s.states.Create(provider, redirectTo, verifier)

	// The platform appends the authorization code to redirect_to, so the
	// state rides along as a query parameter and comes back at the callback.
	cb, err := url.Parse(s.callbackURL)
	if err != nil {
		return "", fmt.Errorf("parse callback url: %w", err)
	}
	q := cb.Query()
	q.Set("state", state)
	cb.RawQuery = q.Encode()

	authorizeURL := s.client.AuthorizeURL(provider, cb.String(), computeS256Challenge(verifier))
	s.log.Info().Str("provider", provider).Msg("oauth flow started")
	return authorizeURL, nil
}

func (s *authService) OAuthCallback(ctx context.Context, state, code string) (*OAuthCallbackResult, error) {
	st, ok := s.states.Consume(state)
	if !ok {
		return nil, ErrInvalidState
	}

	sess, err := s.client.ExchangeCode(ctx, code, st.CodeVerifier)
	if err != nil {
		return nil, err
	}
	if sess.User == nil {
		// Some deployments omit the user from the token response.
		user, err := s.client.GetUser(ctx, sess.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("fetch user: %w", err)
		}
		sess.User = user
	}

	profile, err := s.ensureProfile(ctx, sess.User)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", sess.User.ID).Msg("profile reconciliation after oauth failed")
		return nil, fmt.Errorf("reconcile profile: %w", err)
	}

	s.log.Info().Str("user_id", sess.User.ID).Str("provider", st.Provider).Msg("oauth sign-in completed")
	return &OAuthCallbackResult{
		Session:    sess,
		Profile:    profile,
		RedirectTo: st.RedirectTo,
	}, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*model.Session, error) {
	if refreshToken == "" {
		return nil, authclient.ErrInvalidGrant
	}
	return s.client.RefreshSession(ctx, refreshToken)
}

func (s *authService) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return authclient.ErrInvalidToken
	}
	return s.client.SignOut(ctx, accessToken)
}

func (s *authService) Profile(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

// ensureProfile looks up the profile row for a user and inserts a fallback
// row from the identity metadata when the platform trigger has not created
// one. Losing the race against the trigger is fine: the insert fails on the
// primary key and the existing row is read back.
func (s *authService) ensureProfile(ctx context.Context, user *model.User) (*model.Profile, error) {
	p, err := s.profiles.FindByID(ctx, user.ID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	fallback := &model.Profile{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  metaString(user.UserMetadata, "full_name", "name"),
		AvatarURL: metaString(user.UserMetadata, "avatar_url", "picture"),
		CreatedAt: time.Now().UTC(),
	}
	created, err := s.profiles.Create(ctx, fallback)
	if err != nil {
		if p, findErr := s.profiles.FindByID(ctx, user.ID); findErr == nil {
			return p, nil
		}
		return nil, err
	}
	s.log.Info().Str("user_id", user.ID).Msg("inserted fallback profile row")
	return created, nil
}

func (s *authService) redirectAllowed(target string) bool {
	return target == s.siteURL || strings.HasPrefix(target, s.siteURL+"/")
}

func metaString(meta map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := meta[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func userID(sess *model.Session) string {
	if sess == nil || sess.User == nil {
		return ""
	}
	return sess.User.ID
}
