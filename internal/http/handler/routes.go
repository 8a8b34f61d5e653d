package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"

	"fileportal/internal/auth"
	"fileportal/internal/config"
	"fileportal/internal/http/middleware"
	"fileportal/internal/model"
	"fileportal/internal/service"
)

// AppConfig is the Fiber configuration for the portal: the standard error
// envelope, immutable context values (route params are retained past the
// handler, e.g. by recorded service calls), and a request body limit sized
// for a whole upload batch instead of Fiber's 4 MiB default.
func AppConfig(upload config.UploadConfig) fiber.Config {
	return fiber.Config{
		ErrorHandler: ErrorHandler(),
		Immutable:    true,
		BodyLimit:    batchBodyLimit(upload.MaxFileSize),
	}
}

// batchBodyLimit fits several max-size files plus multipart framing in one
// request. Oversize files must still reach the upload service so they are
// rejected with the policy's own message rather than a framework 413.
func batchBodyLimit(maxFileSize int64) int {
	const batchFactor = 4
	const framing = 1 << 20
	return int(maxFileSize)*batchFactor + framing
}

// Deps carries everything the HTTP layer needs. Handlers stay thin; business
// rules live in the services.
type Deps struct {
	DB        *sql.DB
	Auth      *auth.Service
	Companies service.CompanyService
	Users     service.UserService
	Files     service.FileService
}

// RegisterRoutes attaches all HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	// Serve the OpenAPI document and Swagger UI
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

	// Health endpoint: checks DB connectivity only
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := d.DB.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Simple liveness probe
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	registerAuthRoutes(app, d)

	// Everything below requires a signed-in user with an application profile.
	guard := []fiber.Handler{middleware.Auth(d.Auth), middleware.LoadProfile(d.Auth)}
	admin := middleware.RequireAdmin()

	companies := app.Group("/companies", guard...)
	registerCompanyRoutes(companies, admin, d)
	registerFileRoutes(companies, app.Group("/files", guard...), admin, d)
	registerUserRoutes(app.Group("/users", guard...), admin, d)
}

// profileFromCtx returns the profile stored by middleware.LoadProfile.
func profileFromCtx(c *fiber.Ctx) *model.Profile {
	p, _ := c.Locals(middleware.ProfileLocalKey).(*model.Profile)
	return p
}

// accountIDFromCtx returns the account ID stored by middleware.Auth.
func accountIDFromCtx(c *fiber.Ctx) string {
	id, _ := c.Locals(middleware.AccountIDLocalKey).(string)
	return id
}

// canAccessCompany reports whether the profile may read a company's files:
// admins always, company users only their own company.
func canAccessCompany(p *model.Profile, companyID string) bool {
	if p == nil {
		return false
	}
	return p.Role == model.RoleAdmin || p.CompanyID == companyID
}
