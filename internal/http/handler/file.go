package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"fileportal/internal/service"
)

func registerFileRoutes(companies, files fiber.Router, admin fiber.Handler, d Deps) {
	// Upload a batch of files into a company's namespace
	// (multipart/form-data, field name: files, repeatable).
	companies.Post("/:id/files", admin, func(c *fiber.Ctx) error {
		companyID := c.Params("id")
		if _, err := uuid.Parse(companyID); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		form, err := c.MultipartForm()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "multipart form required")
		}
		headers := form.File["files"]
		if len(headers) == 0 {
			return writeError(c, fiber.StatusBadRequest, "FILES_REQUIRED", "at least one file is required")
		}

		inputs := make([]service.UploadInput, 0, len(headers))
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer f.Close()

			ct := fh.Header.Get("Content-Type")
			if ct == "" {
				ct = "application/octet-stream"
			}
			inputs = append(inputs, service.UploadInput{
				Reader:   f,
				Filename: fh.Filename,
				Mime:     ct,
				Size:     fh.Size,
			})
		}

		res, err := d.Files.UploadBatch(c.UserContext(), companyID, accountIDFromCtx(c), inputs)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrUploadInFlight):
				return writeError(c, fiber.StatusConflict, "UPLOAD_IN_FLIGHT", err.Error())
			case errors.Is(err, service.ErrNoCompany):
				return writeError(c, fiber.StatusBadRequest, "COMPANY_REQUIRED", err.Error())
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.JSON(res)
	})

	// List a company's files: admins, or members of that company.
	companies.Get("/:id/files", func(c *fiber.Ctx) error {
		companyID := c.Params("id")
		if _, err := uuid.Parse(companyID); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if !canAccessCompany(profileFromCtx(c), companyID) {
			return fiber.ErrForbidden
		}

		files, err := d.Files.ListByCompany(c.UserContext(), companyID)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(files)
	})

	files.Get("/:id/preview-url", signedURLHandler(d, d.Files.PreviewURL))
	files.Get("/:id/download-url", signedURLHandler(d, d.Files.DownloadURL))

	files.Delete("/:id", admin, func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		if err := d.Files.Delete(c.UserContext(), id); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "file not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// signedURLHandler issues a time-boxed URL for a file after checking the
// caller may access the file's company.
func signedURLHandler(d Deps, issue func(ctx context.Context, id string) (string, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		f, err := d.Files.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "file not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		if !canAccessCompany(profileFromCtx(c), f.CompanyID) {
			return fiber.ErrForbidden
		}

		url, err := issue(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotPreviewable) {
				return writeError(c, fiber.StatusBadRequest, "NOT_PREVIEWABLE", err.Error())
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"url": url})
	}
}
