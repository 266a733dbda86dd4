package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"certtrack/internal/authclient"
	"certtrack/internal/captcha"
	"certtrack/internal/http/middleware"
	"certtrack/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError translates known platform and service error conditions to
// fixed user-facing strings. Anything unrecognized collapses to a generic
// internal error so upstream details never leak.
func writeServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, authclient.ErrInvalidCredentials):
		return writeError(c, fiber.StatusUnauthorized, "INVALID_CREDENTIALS", "Incorrect email or password")
	case errors.Is(err, authclient.ErrUserExists):
		return writeError(c, fiber.StatusConflict, "EMAIL_IN_USE", "An account with this email already exists")
	case errors.Is(err, authclient.ErrEmailNotConfirmed):
		return writeError(c, fiber.StatusForbidden, "EMAIL_NOT_CONFIRMED", "Please confirm your email address before signing in")
	case errors.Is(err, authclient.ErrWeakPassword):
		return writeError(c, fiber.StatusUnprocessableEntity, "WEAK_PASSWORD", "Password does not meet the minimum requirements")
	case errors.Is(err, authclient.ErrRateLimited):
		return writeError(c, fiber.StatusTooManyRequests, "RATE_LIMITED", "Too many attempts. Please try again later")
	case errors.Is(err, authclient.ErrCaptchaFailed),
		errors.Is(err, captcha.ErrTokenMissing),
		errors.Is(err, captcha.ErrTokenRejected):
		return writeError(c, fiber.StatusBadRequest, "CAPTCHA_FAILED", "CAPTCHA verification failed. Please try again")
	case errors.Is(err, authclient.ErrInvalidGrant), errors.Is(err, service.ErrInvalidState):
		return writeError(c, fiber.StatusBadRequest, "OAUTH_FAILED", "Sign-in could not be completed. Please try again")
	case errors.Is(err, authclient.ErrInvalidToken):
		return writeError(c, fiber.StatusUnauthorized, "INVALID_TOKEN", "Your session has expired. Please sign in again")
	case errors.Is(err, service.ErrEmailRequired):
		return writeError(c, fiber.StatusBadRequest, "EMAIL_REQUIRED", "Email is required")
	case errors.Is(err, service.ErrPasswordRequired):
		return writeError(c, fiber.StatusBadRequest, "PASSWORD_REQUIRED", "Password is required")
	case errors.Is(err, service.ErrUnsupportedProvider):
		return writeError(c, fiber.StatusBadRequest, "UNSUPPORTED_PROVIDER", "This sign-in provider is not supported")
	case errors.Is(err, service.ErrRedirectNotAllowed):
		return writeError(c, fiber.StatusBadRequest, "REDIRECT_NOT_ALLOWED", "Redirect target is not allowed")
	case errors.Is(err, service.ErrProfileNotFound):
		return writeError(c, fiber.StatusNotFound, "PROFILE_NOT_FOUND", "Profile not found")
	case errors.Is(err, service.ErrAttachmentNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "Attachment not found")
	case errors.Is(err, service.ErrNotOwner):
		return writeError(c, fiber.StatusForbidden, "FORBIDDEN", "You do not have access to this attachment")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHORIZED", "authentication required")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
