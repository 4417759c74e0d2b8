package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/service"
	"github.com/noah-isme/proposal-review-api/internal/utils"
)

// PolicyHandler exposes the similarity policy settings.
type PolicyHandler struct {
	service service.SimilarityPolicyService
	logger  zerolog.Logger
}

// NewPolicyHandler constructs the handler.
func NewPolicyHandler(service service.SimilarityPolicyService, logger zerolog.Logger) *PolicyHandler {
	return &PolicyHandler{
		service: service,
		logger:  logger.With().Str("component", "policy_handler").Logger(),
	}
}

// Register binds the settings routes to an admin group.
func (h *PolicyHandler) Register(router fiber.Router) {
	router.Get("/settings", h.get)
	router.Put("/settings", h.update)
}

func (h *PolicyHandler) get(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	policy, err := h.service.Get(requestContext(c), actor)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "similarity policy", policy)
}

func (h *PolicyHandler) update(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.SimilarityPolicyUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	policy, err := h.service.Update(requestContext(c), actor, payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "similarity policy updated", policy)
}
