package handler

import (
	"context"
	"database/sql"
	"errors"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"formfill/internal/model"
	"formfill/internal/service"
)

// submissionAccepted is the body returned when a pair is accepted for
// asynchronous filling.
type submissionAccepted struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// resultResponse describes a fill result to clients.
type resultResponse struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	OutputSize  int64      `json:"output_size,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DownloadURL string     `json:"download_url,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

func toResultResponse(res *model.Result) resultResponse {
	out := resultResponse{
		ID:          res.ID,
		Status:      string(res.Status),
		CompletedAt: res.CompletedAt,
	}
	switch res.Status {
	case model.ResultStatusReady:
		out.OutputSize = res.OutputSize
		out.DownloadURL = "/results/" + res.ID + "/download"
	case model.ResultStatusFailed:
		out.Reason = res.FailReason
	}
	return out
}

// HealthCheck reports readiness by pinging the database.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is the bare liveness endpoint.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// CreateSubmission accepts a multipart pair (field "pdf": the rate sheet,
// field "excel": the workbook) and queues it for filling.
func CreateSubmission(svc service.IntakeService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pdfFH, err := c.FormFile("pdf")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "pdf file is required")
		}
		excelFH, err := c.FormFile("excel")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "excel file is required")
		}

		pdf, err := pdfFH.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "cannot open pdf upload")
		}
		defer pdf.Close()
		excel, err := excelFH.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "cannot open excel upload")
		}
		defer excel.Close()

		sub, err := svc.Submit(c.UserContext(),
			uploadFromForm(pdf, pdfFH),
			uploadFromForm(excel, excelFH),
		)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrEmptyPayload),
				errors.Is(err, service.ErrPayloadTooLarge),
				errors.Is(err, service.ErrBadFileType),
				errors.Is(err, service.ErrReaderNil):
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}

		return c.Status(fiber.StatusAccepted).JSON(submissionAccepted{
			ID:     sub.ID,
			Status: string(model.ResultStatusPending),
		})
	}
}

func uploadFromForm(f multipart.File, fh *multipart.FileHeader) service.UploadFile {
	return service.UploadFile{
		Reader:   f,
		Filename: fh.Filename,
		Size:     fh.Size,
	}
}

// ListSubmissions lists accepted submissions with limit & offset.
func ListSubmissions(svc service.IntakeService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// GetResult reports the state of a fill. Pending results answer 202 so
// clients keep polling; failed ones answer 422 with the diagnostic.
func GetResult(svc service.DeliveryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		res, err := svc.Status(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "result not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		status := fiber.StatusOK
		switch res.Status {
		case model.ResultStatusPending:
			status = fiber.StatusAccepted
		case model.ResultStatusFailed:
			status = fiber.StatusUnprocessableEntity
		}
		return c.Status(status).JSON(toResultResponse(res))
	}
}

// DownloadResult streams the filled workbook of a ready result.
func DownloadResult(svc service.DeliveryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		rc, res, err := svc.Fetch(c.UserContext(), id)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "result not found")
			case errors.Is(err, service.ErrResultPending):
				return writeError(c, fiber.StatusConflict, "RESULT_PENDING", "result is not ready yet")
			case errors.Is(err, service.ErrProcessingFailed):
				return writeError(c, fiber.StatusUnprocessableEntity, "PROCESSING_FAILED", res.FailReason)
			default:
				return writeError(c, fiber.StatusInternalServerError, "STORAGE_ERROR", "cannot read output")
			}
		}

		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+service.OutputFilename()+`"`)
		if res.OutputSize > 0 {
			return c.SendStream(rc, int(res.OutputSize))
		}
		return c.SendStream(rc)
	}
}

// RegisterRoutes attaches all HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, db *sql.DB, intakeSvc service.IntakeService, deliverySvc service.DeliveryService) {
	// Serve the OpenAPI description and a Swagger UI shell for it.
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

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Post("/submissions", CreateSubmission(intakeSvc))
	app.Get("/submissions", ListSubmissions(intakeSvc))

	app.Get("/results/:id", GetResult(deliverySvc))
	app.Get("/results/:id/download", DownloadResult(deliverySvc))
}
