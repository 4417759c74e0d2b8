package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/service"
	"github.com/noah-isme/proposal-review-api/internal/utils"
)

const headerSeedToken = "X-Seed-Token"

// SeedHandler lets operators bootstrap the account directory over HTTP.
// It sits outside the JWT group; the shared seed token is the only guard.
type SeedHandler struct {
	seeder service.SeedService
	logger zerolog.Logger
}

// NewSeedHandler constructs a seed handler.
func NewSeedHandler(seeder service.SeedService, logger zerolog.Logger) *SeedHandler {
	return &SeedHandler{
		seeder: seeder,
		logger: logger.With().Str("component", "seed_handler").Logger(),
	}
}

// Register wires seed routes.
func (h *SeedHandler) Register(router fiber.Router) {
	router.Post("/directory", h.importDirectory)
}

func (h *SeedHandler) importDirectory(c *fiber.Ctx) error {
	var req dto.SeedRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid directory payload")
	}

	summary, err := h.seeder.SeedDirectory(requestContext(c), c.Get(headerSeedToken), req)
	switch {
	case err == nil:
		h.logger.Info().
			Int("accounts_created", summary.AccountsCreated).
			Int("assignments_created", summary.AssignmentsCreated).
			Str("ip", c.IP()).
			Msg("directory imported over http")
		return utils.SendSuccess(c, "directory seeded", summary)
	case errors.Is(err, service.ErrSeedDisabled):
		return utils.SendError(c, fiber.StatusForbidden, "seeding disabled")
	case errors.Is(err, service.ErrSeedUnauthorized):
		h.logger.Warn().Str("ip", c.IP()).Msg("seed token rejected")
		return utils.SendError(c, fiber.StatusForbidden, "invalid token")
	default:
		return writeServiceError(c, h.logger, err)
	}
}
