package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"reportapi/internal/http/middleware"
	"reportapi/internal/model"
	"reportapi/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Every report route sits behind the Identity middleware; handlers stay
// minimal and free of business logic.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.ReportService) {
	// Serve OpenAPI spec and Swagger UI
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

	reports := app.Group("/reports", middleware.Identity())
	reports.Get("/", ListReports(svc))
	reports.Post("/", CreateReport(svc))
	reports.Get("/:id/file", DownloadReport(svc))
	reports.Delete("/:id", DeleteReport(svc))
	reports.Delete("/", DeleteAllReports(svc))
}

// HealthCheck verifies database connectivity.
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

// LivenessProbe is a simple liveness endpoint.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListReports returns the requester's report history (metadata only, no bytes).
// An optional ?search= narrows by ticker or company name, case-insensitively.
func ListReports(svc service.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.List(c.UserContext(), middleware.UserID(c), c.Query("search"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// CreateReport is the analysis-engine handoff endpoint. It accepts a
// multipart form with the report metadata fields and the optional `rendered`
// and `source` file parts, and returns the persisted report.
func CreateReport(svc service.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		score, err := strconv.ParseFloat(c.FormValue("overall_score"), 64)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_SCORE", "overall_score must be a number")
		}

		in := service.SaveReportInput{
			OwnerID:        middleware.UserID(c),
			Ticker:         c.FormValue("ticker"),
			CompanyName:    c.FormValue("company_name"),
			OverallScore:   score,
			Recommendation: model.Recommendation(c.FormValue("recommendation")),
			ModelUsed:      c.FormValue("model_used"),
		}

		rendered, size, err := openFormFile(c, "rendered")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open rendered file part")
		}
		if rendered != nil {
			defer rendered.Close()
			in.Rendered = rendered
			in.RenderedSize = size
		}

		source, size, err := openFormFile(c, "source")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open source file part")
		}
		if source != nil {
			defer source.Close()
			in.Source = source
			in.SourceSize = size
		}

		rep, err := svc.Save(c.UserContext(), in)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(rep)
	}
}

// DownloadReport streams one representation of a report. Query parameters:
// representation=rendered|source (default rendered) and
// disposition=inline|attachment (default attachment). The content type always
// matches the representation; attachment mode carries a derived filename.
func DownloadReport(svc service.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		repn := model.Representation(c.Query("representation", string(model.RepresentationRendered)))
		if !repn.Valid() {
			return writeError(c, fiber.StatusBadRequest, "INVALID_REPRESENTATION", "representation must be rendered or source")
		}
		disp := model.Disposition(c.Query("disposition", string(model.DispositionAttachment)))
		if !disp.Valid() {
			return writeError(c, fiber.StatusBadRequest, "INVALID_DISPOSITION", "disposition must be inline or attachment")
		}

		content, err := svc.Open(c.UserContext(), middleware.UserID(c), id, repn)
		if err != nil {
			return serviceError(c, err)
		}

		c.Set(fiber.HeaderContentType, content.ContentType)
		if disp == model.DispositionAttachment {
			c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, content.Filename))
		} else {
			c.Set(fiber.HeaderContentDisposition, "inline")
		}
		return c.SendStream(content.Body, int(content.Size))
	}
}

// DeleteReport permanently removes one report owned by the requester.
func DeleteReport(svc service.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), middleware.UserID(c), id); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DeleteAllReports removes every report owned by the requester and returns
// the count actually deleted.
func DeleteAllReports(svc service.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deleted, err := svc.DeleteAll(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"deleted": deleted})
	}
}

// openFormFile opens an optional multipart file part. A missing part returns
// (nil, 0, nil); only a part that exists but cannot be opened is an error.
func openFormFile(c *fiber.Ctx, field string) (multipart.File, int64, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, 0, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, 0, err
	}
	return f, fh.Size, nil
}

// serviceError maps service-level errors onto the standardized envelope.
// Ownership failures and missing reports produce the same response, so the
// existence of another user's report never leaks.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrReportNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "report not found")
	case errors.Is(err, service.ErrRepresentationUnavailable):
		return writeError(c, fiber.StatusUnprocessableEntity, "REPRESENTATION_UNAVAILABLE", "requested representation was not generated for this report")
	case errors.Is(err, service.ErrNoArtifacts):
		return writeError(c, fiber.StatusBadRequest, "ARTIFACT_REQUIRED", "rendered or source file is required")
	case errors.Is(err, service.ErrTickerRequired):
		return writeError(c, fiber.StatusBadRequest, "TICKER_REQUIRED", "ticker is required")
	case errors.Is(err, service.ErrInvalidRecommendation):
		return writeError(c, fiber.StatusBadRequest, "INVALID_RECOMMENDATION", "recommendation must be BUY, SELL or HOLD")
	case errors.Is(err, service.ErrInvalidScore):
		return writeError(c, fiber.StatusBadRequest, "INVALID_SCORE", "overall_score must be between 0 and 100")
	case errors.Is(err, service.ErrOwnerRequired), errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "bad request")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
