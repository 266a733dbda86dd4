// Package authclient is a thin pass-through to the platform auth REST API
// (GoTrue-compatible). It shapes requests, forwards them unchanged, and maps
// error bodies to typed errors. Token issuance, password hashing, and session
// persistence all stay on the platform side.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"certtrack/internal/config"
	"certtrack/internal/model"
)

// Client calls the platform auth API. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	log     zerolog.Logger
}

// New builds a Client from auth configuration.
func New(cfg config.AuthConfig, log zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("auth base url is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("auth api key is required")
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		log:     log.With().Str("component", "authclient").Logger(),
	}, nil
}

// SignUpRequest carries the fields forwarded to POST /signup.
type SignUpRequest struct {
	Email        string
	Password     string
	CaptchaToken string
	Data         map[string]any
}

// SignUp registers a new email/password user. When the platform requires
// email confirmation the returned Session is nil and only the User is set.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*model.Session, *model.User, error) {
	payload := map[string]any{
		"email":    req.Email,
		"password": req.Password,
	}
	if len(req.Data) > 0 {
		payload["data"] = req.Data
	}
	attachCaptcha(payload, req.CaptchaToken)

	body, err := c.do(ctx, http.MethodPost, "/signup", nil, payload, "")
	if err != nil {
		return nil, nil, err
	}
	return decodeSessionOrUser(body)
}

// SignInWithPassword exchanges email/password credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password, captchaToken string) (*model.Session, error) {
	payload := map[string]any{
		"email":    email,
		"password": password,
	}
	attachCaptcha(payload, captchaToken)

	q := url.Values{"grant_type": {"password"}}
	body, err := c.do(ctx, http.MethodPost, "/token", q, payload, "")
	if err != nil {
		return nil, err
	}
	return decodeSession(body)
}

// AuthorizeURL builds the provider authorize URL the browser is redirected
// to. The platform drives the OAuth state machine from there.
func (c *Client) AuthorizeURL(provider, redirectTo, codeChallenge string) string {
	q := url.Values{}
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	if codeChallenge != "" {
		q.Set("code_challenge", codeChallenge)
		q.Set("code_challenge_method", "s256")
	}
	return c.baseURL + "/authorize?" + q.Encode()
}

// ExchangeCode trades the post-OAuth authorization code plus PKCE verifier
// for a session.
func (c *Client) ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*model.Session, error) {
	payload := map[string]any{
		"auth_code":     authCode,
		"code_verifier": codeVerifier,
	}
	q := url.Values{"grant_type": {"pkce"}}
	body, err := c.do(ctx, http.MethodPost, "/token", q, payload, "")
	if err != nil {
		return nil, err
	}
	return decodeSession(body)
}

// RefreshSession exchanges a refresh token for a fresh session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*model.Session, error) {
	payload := map[string]any{"refresh_token": refreshToken}
	q := url.Values{"grant_type": {"refresh_token"}}
	body, err := c.do(ctx, http.MethodPost, "/token", q, payload, "")
	if err != nil {
		return nil, err
	}
	return decodeSession(body)
}

// GetUser fetches the identity behind an access token.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*model.User, error) {
	body, err := c.do(ctx, http.MethodGet, "/user", nil, nil, accessToken)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

// SignOut revokes the session behind an access token.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.do(ctx, http.MethodPost, "/logout", nil, nil, accessToken)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, bearer string) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth api request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read auth api response: %w", err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("auth api call")

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, classifyError(resp.StatusCode, body)
	}
	return body, nil
}

func attachCaptcha(payload map[string]any, token string) {
	if token != "" {
		payload["gotrue_meta_security"] = map[string]string{"captcha_token": token}
	}
}

func decodeSession(body []byte) (*model.Session, error) {
	var s model.Session
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.AccessToken == "" {
		return nil, fmt.Errorf("auth api returned no access token")
	}
	return &s, nil
}

// decodeSessionOrUser handles /signup responses, which are a full session
// when autoconfirm is on and a bare user when confirmation is pending.
func decodeSessionOrUser(body []byte) (*model.Session, *model.User, error) {
	var s model.Session
	if err := json.Unmarshal(body, &s); err == nil && s.AccessToken != "" {
		if s.User == nil {
			return nil, nil, fmt.Errorf("auth api returned session without user")
		}
		return &s, s.User, nil
	}
	var u model.User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, nil, fmt.Errorf("decode signup response: %w", err)
	}
	if u.ID == "" {
		return nil, nil, fmt.Errorf("auth api returned no user")
	}
	return nil, &u, nil
}
