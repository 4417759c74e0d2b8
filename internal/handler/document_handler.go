package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/proposal-review-api/internal/service"
	"github.com/noah-isme/proposal-review-api/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DocumentHandler serves printable and exported artifacts.
type DocumentHandler struct {
	documents service.DocumentService
	exports   service.ExportService
	logger    zerolog.Logger
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(documents service.DocumentService, exports service.ExportService, logger zerolog.Logger) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		exports:   exports,
		logger:    logger.With().Str("component", "document_handler").Logger(),
	}
}

// Register attaches the PDF download under /submissions.
func (h *DocumentHandler) Register(router fiber.Router) {
	router.Get("/:id/pdf", h.pdf)
}

// RegisterAdmin attaches export and archive routes under /admin/submissions.
func (h *DocumentHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/export", h.export)
	router.Post("/:id/archive", h.archive)
}

func (h *DocumentHandler) pdf(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	file, err := h.documents.RenderPDF(requestContext(c), actor, id)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", file.Filename))
	return c.Send(file.Data)
}

func (h *DocumentHandler) archive(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	submission, err := h.documents.Archive(requestContext(c), actor, id)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission archived", submission)
}

func (h *DocumentHandler) export(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	req, err := submissionListRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	buf, filename, err := h.exports.ExportSubmissions(requestContext(c), actor, req)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.SendStream(buf, buf.Len())
}
