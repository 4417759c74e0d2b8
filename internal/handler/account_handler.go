package handler

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/service"
	"github.com/noah-isme/proposal-review-api/internal/utils"
)

// AccountHandler exposes signup and the administrator account review endpoints.
type AccountHandler struct {
	service service.AccountService
	logger  zerolog.Logger
}

// NewAccountHandler constructs the handler.
func NewAccountHandler(service service.AccountService, logger zerolog.Logger) *AccountHandler {
	return &AccountHandler{
		service: service,
		logger:  logger.With().Str("component", "account_handler").Logger(),
	}
}

// RegisterPublic attaches unauthenticated routes.
func (h *AccountHandler) RegisterPublic(router fiber.Router) {
	router.Post("/signup", h.signup)
}

// RegisterAdmin attaches account review routes to an admin group.
func (h *AccountHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/users", h.list)
	router.Get("/users/pending", h.pending)
	router.Patch("/users/:id/approve", h.approve)
	router.Patch("/users/:id/reject", h.reject)
}

func (h *AccountHandler) signup(c *fiber.Ctx) error {
	var payload dto.SignupRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	user, err := h.service.Signup(requestContext(c), payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "signup received; an administrator will review your account", user)
}

func (h *AccountHandler) list(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	users, err := h.service.ListUsers(requestContext(c), actor, dto.UserListRequest{
		Role:   strings.ToLower(strings.TrimSpace(c.Query("role"))),
		Status: strings.ToLower(strings.TrimSpace(c.Query("status"))),
	})
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "users", users)
}

func (h *AccountHandler) pending(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	users, err := h.service.ListPending(requestContext(c), actor)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "pending users", users)
}

func (h *AccountHandler) approve(c *fiber.Ctx) error {
	return h.decide(c, h.service.Approve, "user approved")
}

func (h *AccountHandler) reject(c *fiber.Ctx) error {
	return h.decide(c, h.service.Reject, "user rejected")
}

type accountDecision func(ctx context.Context, actor service.Actor, userID uint) (dto.UserResponse, error)

func (h *AccountHandler) decide(c *fiber.Ctx, apply accountDecision, message string) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	user, err := apply(requestContext(c), actor, id)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, message, user)
}

// Me reports the identity the request was authorised as.
func (h *AccountHandler) Me(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	return utils.SendSuccess(c, "current user", fiber.Map{"id": actor.ID, "role": actor.Role})
}
