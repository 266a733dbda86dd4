package authclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Sentinel errors for the platform error conditions the application reacts
// to. Anything else surfaces as an *APIError.
var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrUserExists         = errors.New("user already registered")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrWeakPassword       = errors.New("password too weak")
	ErrCaptchaFailed      = errors.New("captcha verification rejected")
	ErrRateLimited        = errors.New("too many requests")
	ErrInvalidGrant       = errors.New("invalid or expired grant")
	ErrInvalidToken       = errors.New("invalid access token")
)

// APIError is an unclassified error response from the platform auth API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("auth api: %s (%d %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("auth api: %s (%d)", e.Message, e.Status)
}

// classifyError maps a platform error body to a sentinel error. The body
// shape varies across endpoints ({"error_code","msg"}, {"error",
// "error_description"}, {"code","msg"}), so fields are probed with gjson
// rather than bound to a struct.
func classifyError(status int, body []byte) error {
	code := gjson.GetBytes(body, "error_code").String()
	if code == "" {
		code = gjson.GetBytes(body, "error").String()
	}
	msg := gjson.GetBytes(body, "msg").String()
	if msg == "" {
		msg = gjson.GetBytes(body, "error_description").String()
	}
	if msg == "" {
		msg = gjson.GetBytes(body, "message").String()
	}

	switch code {
	case "invalid_credentials":
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, msg)
	case "user_already_exists", "email_exists":
		return fmt.Errorf("%w: %s", ErrUserExists, msg)
	case "email_not_confirmed":
		return fmt.Errorf("%w: %s", ErrEmailNotConfirmed, msg)
	case "weak_password":
		return fmt.Errorf("%w: %s", ErrWeakPassword, msg)
	case "captcha_failed":
		return fmt.Errorf("%w: %s", ErrCaptchaFailed, msg)
	case "over_request_rate_limit", "over_email_send_rate_limit":
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)
	case "bad_jwt":
		return fmt.Errorf("%w: %s", ErrInvalidToken, msg)
	case "invalid_grant":
		// The password grant reports bad credentials under this code.
		if strings.Contains(strings.ToLower(msg), "invalid login credentials") {
			return fmt.Errorf("%w: %s", ErrInvalidCredentials, msg)
		}
		return fmt.Errorf("%w: %s", ErrInvalidGrant, msg)
	case "flow_state_not_found", "flow_state_expired", "bad_code_verifier":
		return fmt.Errorf("%w: %s", ErrInvalidGrant, msg)
	}

	// Older deployments omit error_code; fall back on known message text.
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "invalid login credentials"):
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, msg)
	case strings.Contains(lower, "already registered"):
		return fmt.Errorf("%w: %s", ErrUserExists, msg)
	case strings.Contains(lower, "email not confirmed"):
		return fmt.Errorf("%w: %s", ErrEmailNotConfirmed, msg)
	case strings.Contains(lower, "password should be"):
		return fmt.Errorf("%w: %s", ErrWeakPassword, msg)
	case strings.Contains(lower, "captcha"):
		return fmt.Errorf("%w: %s", ErrCaptchaFailed, msg)
	}

	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)
	}
	if status == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrInvalidToken, msg)
	}

	return &APIError{Status: status, Code: code, Message: msg}
}
