package handler

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"invofi/internal/model"
	"invofi/internal/ocr"
	"invofi/internal/service"
)

// submitRequest is the body of POST /invoices: the verification session to
// consume, the user-entered draft, and an optional chain account for the
// activity signal.
type submitRequest struct {
	SessionID string `json:"session_id"`
	AccountID string `json:"account_id"`
	model.InvoiceDraft
}

// overrideRequest carries the free-text justification for a manual override.
type overrideRequest struct {
	Reason string `json:"reason"`
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin: parse, delegate to the service, map errors.
func RegisterRoutes(app *fiber.App, db *sql.DB, invSvc service.InvoiceService) {
	app.Get("/openapi.yaml", OpenAPISpec())
	app.Get("/docs", SwaggerDocs())

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Post("/invoices/uploads", UploadInvoice(invSvc))
	app.Get("/invoices/uploads/:id", GetUploadSession(invSvc))
	app.Post("/invoices/uploads/:id/review", ReviewUpload(invSvc))
	app.Post("/invoices/uploads/:id/confirm", ConfirmUpload(invSvc))
	app.Post("/invoices/uploads/:id/override", OverrideUpload(invSvc))
	app.Delete("/invoices/uploads/:id", AbandonUpload(invSvc))

	app.Post("/invoices", SubmitInvoice(invSvc))
	app.Get("/invoices", ListInvoices(invSvc))
	// Registered ahead of /invoices/:id so "overdue" is not read as an id.
	app.Get("/invoices/overdue", ListOverdueInvoices(invSvc))
	app.Get("/invoices/:id", GetInvoice(invSvc))
	app.Post("/invoices/:id/tokenize", advanceInvoice(invSvc.Tokenize))
	app.Post("/invoices/:id/fund", advanceInvoice(invSvc.Fund))
	app.Post("/invoices/:id/repay", advanceInvoice(invSvc.Repay))
}

// OpenAPISpec serves the static OpenAPI document from the repository root.
func OpenAPISpec() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	}
}

// SwaggerDocs serves a minimal Swagger UI page backed by /openapi.yaml.
func SwaggerDocs() fiber.Handler {
	return func(c *fiber.Ctx) error {
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
	}
}

// HealthCheck reports readiness; it checks DB connectivity only.
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

// LivenessProbe is a trivial liveness endpoint.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// UploadInvoice accepts a multipart document (field name: file), opens a
// verification session, and runs recognition plus field extraction.
func UploadInvoice(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		sess, err := svc.Upload(c.UserContext(), f, fh.Filename, ct, fh.Size)
		if err != nil {
			// An undecodable document still leaves a failed session behind;
			// surface its id so clients can inspect it.
			if ocr.IsDecodeError(err) && sess != nil {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
					"request_id": requestIDFromCtx(c),
					"error": errorEnvelope{
						Code:    "DECODE_ERROR",
						Message: "document could not be decoded; upload a clearer scan or PDF",
					},
					"session": sess,
				})
			}
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(sess)
	}
}

// GetUploadSession returns the current verification session state.
func GetUploadSession(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		sess, err := svc.GetSession(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(sess)
	}
}

// ReviewUpload reconciles a draft against the session's extracted fields.
func ReviewUpload(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var draft model.InvoiceDraft
		if err := c.BodyParser(&draft); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		verdict, err := svc.Review(c.UserContext(), id, draft)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(verdict)
	}
}

// ConfirmUpload moves a session from review to verified.
func ConfirmUpload(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var draft model.InvoiceDraft
		if err := c.BodyParser(&draft); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		sess, err := svc.Confirm(c.UserContext(), id, draft)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(sess)
	}
}

// OverrideUpload moves a session from review to manual_override.
func OverrideUpload(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req overrideRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		sess, err := svc.Override(c.UserContext(), id, req.Reason)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(sess)
	}
}

// AbandonUpload resets an in-flight verification session.
func AbandonUpload(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Abandon(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// SubmitInvoice validates and prices a draft, consuming its verification
// session.
func SubmitInvoice(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req submitRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		if _, err := uuid.Parse(req.SessionID); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid session id")
		}
		inv, err := svc.Submit(c.UserContext(), req.SessionID, req.InvoiceDraft, req.AccountID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(inv)
	}
}

// ListInvoices returns a page of invoices with limit & offset.
func ListInvoices(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limitStr := c.Query("limit", "10")
		offsetStr := c.Query("offset", "0")
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// ListOverdueInvoices returns the early-warning list of invoices past their
// due date.
func ListOverdueInvoices(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		overdue, err := svc.ListOverdue(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": overdue, "count": len(overdue)})
	}
}

// GetInvoice returns an invoice by ID.
func GetInvoice(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		inv, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(inv)
	}
}

// advanceInvoice wraps a lifecycle step (tokenize, fund, repay) behind the
// shared id handling.
func advanceInvoice(fn func(context.Context, string) (*model.Invoice, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		inv, err := fn(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(inv)
	}
}
