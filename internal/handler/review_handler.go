package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/service"
	"github.com/noah-isme/proposal-review-api/internal/utils"
)

// ReviewHandler exposes the lecturer and administrator decision endpoints.
type ReviewHandler struct {
	service service.ReviewService
	logger  zerolog.Logger
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(service service.ReviewService, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger.With().Str("component", "review_handler").Logger(),
	}
}

// Register attaches the lecturer decision route under /submissions.
func (h *ReviewHandler) Register(router fiber.Router) {
	router.Post("/:id/lecturer-decision", h.lecturerDecision)
}

// RegisterAdmin attaches the binding decision routes under /admin/submissions.
func (h *ReviewHandler) RegisterAdmin(router fiber.Router) {
	router.Post("/auto-decide", h.autoDecide)
	router.Post("/:id/finalize", h.finalize)
}

func (h *ReviewHandler) lecturerDecision(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	var payload dto.DecisionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	submission, err := h.service.SetLecturerDecision(requestContext(c), actor, id, payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "lecturer decision recorded", submission)
}

func (h *ReviewHandler) finalize(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	var payload dto.DecisionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	submission, err := h.service.Finalize(requestContext(c), actor, id, payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission finalized", submission)
}

func (h *ReviewHandler) autoDecide(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.AutoDecideRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}
	if raw := c.Query("threshold"); raw != "" {
		threshold := c.QueryFloat("threshold", -1)
		if threshold < 0 {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid threshold")
		}
		payload.Threshold = &threshold
	}

	result, err := h.service.AutoDecide(requestContext(c), actor, payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "auto-decide completed", result)
}
