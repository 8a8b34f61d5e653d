package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"fileportal/internal/service"
)

func registerCompanyRoutes(r fiber.Router, admin fiber.Handler, d Deps) {
	// Reads are open to any signed-in profile; mutations are admin only.
	r.Get("/", func(c *fiber.Ctx) error {
		companies, err := d.Companies.List(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(companies)
	})

	r.Get("/search", func(c *fiber.Ctx) error {
		companies, err := d.Companies.Search(c.UserContext(), c.Query("q"))
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(companies)
	})

	r.Get("/stats", admin, func(c *fiber.Ctx) error {
		stats, err := d.Companies.ListWithStats(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(stats)
	})

	r.Get("/export", admin, func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "text/csv")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="companies.csv"`)
		if err := d.Companies.ExportCSV(c.UserContext(), c.Response().BodyWriter()); err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return nil
	})

	r.Post("/", admin, func(c *fiber.Ctx) error {
		var in service.CompanyInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}

		company, err := d.Companies.Create(c.UserContext(), in)
		if err != nil {
			if isCompanyValidationErr(err) {
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(company)
	})

	r.Post("/bulk-delete", admin, func(c *fiber.Ctx) error {
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}
		if len(req.IDs) == 0 {
			return writeError(c, fiber.StatusBadRequest, "IDS_REQUIRED", "at least one id is required")
		}
		for _, id := range req.IDs {
			if _, err := uuid.Parse(id); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
			}
		}

		results := d.Companies.BulkDelete(c.UserContext(), req.IDs)
		for _, res := range results {
			if res.Err == nil {
				purgeCompanyObjects(c, d, res.ID)
			}
		}
		return c.JSON(results)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		company, err := d.Companies.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "company not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(company)
	})

	r.Put("/:id", admin, func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var in service.CompanyInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}

		company, err := d.Companies.Update(c.UserContext(), id, in)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "company not found")
			case isCompanyValidationErr(err):
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.JSON(company)
	})

	r.Delete("/:id", admin, func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		if err := d.Companies.Delete(c.UserContext(), id); err != nil {
			switch {
			case errors.Is(err, service.ErrCompanyHasFiles):
				return writeError(c, fiber.StatusConflict, "COMPANY_HAS_FILES", err.Error())
			case errors.Is(err, service.ErrCompanyHasUsers):
				return writeError(c, fiber.StatusConflict, "COMPANY_HAS_USERS", err.Error())
			case errors.Is(err, service.ErrNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "company not found")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		purgeCompanyObjects(c, d, id)
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// purgeCompanyObjects sweeps a deleted company's storage prefix. The delete
// guard already proved no metadata rows exist, so anything left is an orphan
// from a failed rollback delete. Best effort; orphans are tolerated.
func purgeCompanyObjects(c *fiber.Ctx, d Deps, companyID string) {
	if err := d.Files.PurgeNamespace(c.UserContext(), companyID); err != nil {
		log.Printf("purge objects for company %s: %v", companyID, err)
	}
}

func isCompanyValidationErr(err error) bool {
	return errors.Is(err, service.ErrNameRequired) ||
		errors.Is(err, service.ErrNameTooLong) ||
		errors.Is(err, service.ErrDomainTooLong) ||
		errors.Is(err, service.ErrDomainInvalid)
}
