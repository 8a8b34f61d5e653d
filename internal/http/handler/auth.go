package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"fileportal/internal/auth"
	"fileportal/internal/http/middleware"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func registerAuthRoutes(app *fiber.App, d Deps) {
	// Self-service sign-up: no profile attributes, the profile is provisioned
	// with the default role on first sign-in.
	app.Post("/auth/signup", func(c *fiber.Ctx) error {
		var req credentialsRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}

		acc, err := d.Auth.SignUp(c.UserContext(), req.Email, req.Password, auth.SignUpAttrs{})
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrEmailRequired):
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			case errors.Is(err, auth.ErrEmailTaken):
				return writeError(c, fiber.StatusConflict, "EMAIL_TAKEN", err.Error())
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.Status(fiber.StatusCreated).JSON(acc)
	})

	app.Post("/auth/signin", func(c *fiber.Ctx) error {
		var req credentialsRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}

		sess, err := d.Auth.SignIn(c.UserContext(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				return writeError(c, fiber.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error())
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(sess)
	})

	app.Post("/auth/signout", middleware.Auth(d.Auth), func(c *fiber.Ctx) error {
		d.Auth.SignOut()
		return c.SendStatus(fiber.StatusNoContent)
	})

	// Reset always answers accepted so addresses cannot be probed. Token
	// delivery is out of band.
	app.Post("/auth/reset-password", func(c *fiber.Ctx) error {
		var req struct {
			Email string `json:"email"`
		}
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}

		if _, err := d.Auth.ResetPassword(c.UserContext(), req.Email); err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
	})

	app.Get("/auth/me", middleware.Auth(d.Auth), middleware.LoadProfile(d.Auth), func(c *fiber.Ctx) error {
		return c.JSON(profileFromCtx(c))
	})
}
