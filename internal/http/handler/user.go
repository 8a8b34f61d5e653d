package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"fileportal/internal/auth"
	"fileportal/internal/service"
)

func registerUserRoutes(r fiber.Router, admin fiber.Handler, d Deps) {
	r.Get("/", admin, func(c *fiber.Ctx) error {
		users, err := d.Users.List(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(users)
	})

	r.Post("/", admin, func(c *fiber.Ctx) error {
		var in service.UserInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}

		profile, err := d.Users.Create(c.UserContext(), in)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrUserFieldsRequired),
				errors.Is(err, service.ErrInvalidRole),
				errors.Is(err, service.ErrCompanyRequired):
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			case errors.Is(err, auth.ErrEmailTaken):
				return writeError(c, fiber.StatusConflict, "EMAIL_TAKEN", err.Error())
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.Status(fiber.StatusCreated).JSON(profile)
	})

	r.Put("/:id", admin, func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var in service.UserUpdateInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}

		profile, err := d.Users.Update(c.UserContext(), id, in)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidRole),
				errors.Is(err, service.ErrCompanyRequired):
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			case errors.Is(err, service.ErrNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "user not found")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.JSON(profile)
	})

	r.Delete("/:id", admin, func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		if err := d.Users.Delete(c.UserContext(), id); err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
