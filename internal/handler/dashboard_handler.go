package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/proposal-review-api/internal/service"
	"github.com/noah-isme/proposal-review-api/internal/utils"
)

// DashboardHandler serves the role-aware dashboard.
type DashboardHandler struct {
	service service.DashboardService
	logger  zerolog.Logger
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service service.DashboardService, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		logger:  logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// Register binds the dashboard route.
func (h *DashboardHandler) Register(router fiber.Router) {
	router.Get("/dashboard", h.get)
}

func (h *DashboardHandler) get(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	dashboard, cacheHit, err := h.service.GetDashboard(requestContext(c), actor)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.OK(c, dashboard, "dashboard", fiber.Map{"cache_hit": cacheHit})
}
