// Package captcha verifies client-supplied CAPTCHA tokens against a
// Turnstile-compatible siteverify endpoint. When unconfigured the service
// runs with verification disabled.
package captcha

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"certtrack/internal/config"
)

var (
	// ErrTokenMissing means the client did not supply a token while
	// verification is enabled.
	ErrTokenMissing = errors.New("captcha token missing")
	// ErrTokenRejected means the provider rejected the token.
	ErrTokenRejected = errors.New("captcha token rejected")
)

// Verifier validates a CAPTCHA token issued to the browser.
type Verifier interface {
	// Verify returns nil when the token is accepted by the provider.
	Verify(ctx context.Context, token, remoteIP string) error
	// Enabled reports whether verification is active.
	Enabled() bool
}

// siteverify posts tokens to the provider's verification endpoint.
type siteverify struct {
	secret    string
	verifyURL string
	httpc     *http.Client
	log       zerolog.Logger
}

// New builds a Verifier from configuration. An empty secret yields a
// disabled verifier that accepts everything.
func New(cfg config.CaptchaConfig, log zerolog.Logger) Verifier {
	if cfg.Secret == "" {
		return disabled{}
	}
	return &siteverify{
		secret:    cfg.Secret,
		verifyURL: cfg.VerifyURL,
		httpc:     &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("component", "captcha").Logger(),
	}
}

func (s *siteverify) Enabled() bool { return true }

func (s *siteverify) Verify(ctx context.Context, token, remoteIP string) error {
	if token == "" {
		return ErrTokenMissing
	}

	form := url.Values{}
	form.Set("secret", s.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("siteverify request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read siteverify response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("siteverify returned status %d", resp.StatusCode)
	}

	if !gjson.GetBytes(body, "success").Bool() {
		codes := gjson.GetBytes(body, "error-codes").String()
		s.log.Warn().Str("error_codes", codes).Msg("captcha token rejected")
		return fmt.Errorf("%w: %s", ErrTokenRejected, codes)
	}
	return nil
}

// disabled is the no-op verifier used when CAPTCHA is not configured.
type disabled struct{}

func (disabled) Enabled() bool                                 { return false }
func (disabled) Verify(ctx context.Context, _, _ string) error { return nil }
