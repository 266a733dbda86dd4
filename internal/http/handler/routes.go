package handler

import (
	"context"
	"database/sql"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"certtrack/internal/http/middleware"
	"certtrack/internal/service"
)

type signUpRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FullName     string `json:"full_name"`
	CaptchaToken string `json:"captcha_token"`
}

type signInRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captcha_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin: parsing, service call, error translation.
func RegisterRoutes(app *fiber.App, db *sql.DB, authSvc service.AuthService, upSvc service.UploadService, jwtSecret string) {
	// Serve the OpenAPI spec and a static docs page.
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	// Health endpoint: checks DB connectivity only. The auth and storage
	// backends are external platforms and are not probed here.
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Simple liveness probe.
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	auth := app.Group("/auth")

	auth.Post("/signup", func(c *fiber.Ctx) error {
		var req signUpRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		res, err := authSvc.SignUp(c.UserContext(), service.SignUpInput{
			Email:        req.Email,
			Password:     req.Password,
			FullName:     req.FullName,
			CaptchaToken: req.CaptchaToken,
			RemoteIP:     c.IP(),
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})

	auth.Post("/signin", func(c *fiber.Ctx) error {
		var req signInRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		sess, err := authSvc.SignIn(c.UserContext(), service.SignInInput{
			Email:        req.Email,
			Password:     req.Password,
			CaptchaToken: req.CaptchaToken,
			RemoteIP:     c.IP(),
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(sess)
	})

	auth.Post("/refresh", func(c *fiber.Ctx) error {
		var req refreshRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		sess, err := authSvc.Refresh(c.UserContext(), req.RefreshToken)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(sess)
	})

	auth.Post("/signout", func(c *fiber.Ctx) error {
		token := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if err := authSvc.SignOut(c.UserContext(), token); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// OAuth start: redirect the browser to the platform authorize URL.
	auth.Get("/oauth/google", func(c *fiber.Ctx) error {
		authorizeURL, err := authSvc.OAuthStart(c.UserContext(), "google", c.Query("redirect_to"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Redirect(authorizeURL, fiber.StatusFound)
	})

	// OAuth callback: the platform redirects here with state and code.
	auth.Get("/callback", func(c *fiber.Ctx) error {
		if errParam := c.Query("error"); errParam != "" {
			return writeError(c, fiber.StatusBadRequest, "OAUTH_FAILED", "Sign-in could not be completed. Please try again")
		}
		state := c.Query("state")
		code := c.Query("code")
		if state == "" || code == "" {
			return writeError(c, fiber.StatusBadRequest, "OAUTH_FAILED", "Sign-in could not be completed. Please try again")
		}

		res, err := authSvc.OAuthCallback(c.UserContext(), state, code)
		if err != nil {
			return writeServiceError(c, err)
		}
		if res.RedirectTo != "" {
			// Hand the session back to the web app in the URL fragment so it
			// never hits server logs on the app side.
			frag := url.Values{}
			frag.Set("access_token", res.Session.AccessToken)
			frag.Set("refresh_token", res.Session.RefreshToken)
			return c.Redirect(res.RedirectTo+"#"+frag.Encode(), fiber.StatusFound)
		}
		return c.JSON(res)
	})

	requireAuth := middleware.RequireAuth(jwtSecret)

	app.Get("/me", requireAuth, func(c *fiber.Ctx) error {
		userID, _ := c.Locals(middleware.UserIDLocalKey).(string)
		profile, err := authSvc.Profile(c.UserContext(), userID)
		if err != nil {
			return writeServiceError(c, err)
		}
		// Stored bucket keys become fresh presigned links here.
		u, err := upSvc.AvatarURL(c.UserContext(), profile.AvatarURL)
		if err != nil {
			return writeServiceError(c, err)
		}
		profile.AvatarURL = u
		return c.JSON(profile)
	})

	app.Put("/me/avatar", requireAuth, func(c *fiber.Ctx) error {
		userID, _ := c.Locals(middleware.UserIDLocalKey).(string)

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		u, err := upSvc.SetAvatar(c.UserContext(), userID, f, fh.Filename, contentType(fh.Header.Get("Content-Type")), fh.Size)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"avatar_url": u})
	})

	uploads := app.Group("/uploads", requireAuth)

	// Upload a certification asset (multipart/form-data, field name: file).
	uploads.Post("/", func(c *fiber.Ctx) error {
		userID, _ := c.Locals(middleware.UserIDLocalKey).(string)

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		att, err := upSvc.Upload(c.UserContext(), userID, f, fh.Filename, contentType(fh.Header.Get("Content-Type")), fh.Size)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(att)
	})

	uploads.Get("/", func(c *fiber.Ctx) error {
		userID, _ := c.Locals(middleware.UserIDLocalKey).(string)

		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := upSvc.List(c.UserContext(), userID, limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	})

	uploads.Get("/:id/url", func(c *fiber.Ctx) error {
		userID, _ := c.Locals(middleware.UserIDLocalKey).(string)

		u, err := upSvc.DownloadURL(c.UserContext(), userID, c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"url": u})
	})

	uploads.Delete("/:id", func(c *fiber.Ctx) error {
		userID, _ := c.Locals(middleware.UserIDLocalKey).(string)

		if err := upSvc.Delete(c.UserContext(), userID, c.Params("id")); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func contentType(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
