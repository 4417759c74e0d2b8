package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/service"
	"github.com/noah-isme/proposal-review-api/internal/utils"
)

// AssignmentHandler wires the supervisor registry routes.
type AssignmentHandler struct {
	service service.AssignmentService
	logger  zerolog.Logger
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(service service.AssignmentService, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service: service,
		logger:  logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register attaches the read endpoints available to every approved role.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Get("/students/:id/supervisors", h.supervisors)
	router.Get("/students/:id/supervisor", h.current)
	router.Get("/lecturers/:id/students", h.supervisees)
}

// RegisterAdmin attaches the assignment mutation to an admin group.
func (h *AssignmentHandler) RegisterAdmin(router fiber.Router) {
	router.Post("/assignments", h.assign)
}

func (h *AssignmentHandler) assign(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.AssignSupervisorRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Assign(requestContext(c), actor, payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	status := fiber.StatusOK
	if result.Created {
		status = fiber.StatusCreated
	}
	return utils.SendSuccessWithStatus(c, status, result.Message, result)
}

func (h *AssignmentHandler) supervisors(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	studentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}

	supervisors, err := h.service.ListSupervisorsOf(requestContext(c), actor, studentID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.OK(c, supervisors, "supervisors", fiber.Map{"assigned": len(supervisors) > 0})
}

func (h *AssignmentHandler) current(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	studentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}

	supervisor, err := h.service.CurrentSupervisor(requestContext(c), actor, studentID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.OK(c, supervisor, "current supervisor", fiber.Map{"assigned": supervisor != nil})
}

func (h *AssignmentHandler) supervisees(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	lecturerID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid lecturer id")
	}

	students, err := h.service.ListSuperviseesOf(requestContext(c), actor, lecturerID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "supervisees", students)
}
