package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/service"
	"github.com/noah-isme/proposal-review-api/internal/utils"
)

// SubmissionHandler exposes proposal intake and role-scoped reads.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches submission routes to the router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.SubmissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	submission, err := h.service.Create(requestContext(c), actor, payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission created", submission)
}

func (h *SubmissionHandler) update(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	var payload dto.SubmissionUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	submission, err := h.service.Update(requestContext(c), actor, id, payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission updated", submission)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	submission, err := h.service.Get(requestContext(c), actor, id)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission", submission)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	req, err := submissionListRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.List(requestContext(c), actor, req)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.OK(c, response.Items, "submissions", response.Pagination)
}

func submissionListRequest(c *fiber.Ctx) (dto.SubmissionListRequest, error) {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return dto.SubmissionListRequest{}, errInvalidQuery("page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return dto.SubmissionListRequest{}, errInvalidQuery("page_size")
	}
	studentID, err := parseQueryUint(c, "student_id")
	if err != nil {
		return dto.SubmissionListRequest{}, errInvalidQuery("student_id")
	}
	supervisorID, err := parseQueryUint(c, "supervisor_id")
	if err != nil {
		return dto.SubmissionListRequest{}, errInvalidQuery("supervisor_id")
	}

	return dto.SubmissionListRequest{
		Page:          page,
		PageSize:      pageSize,
		ProposalType:  strings.TrimSpace(c.Query("proposal_type")),
		FinalDecision: strings.ToLower(strings.TrimSpace(c.Query("final_decision"))),
		StudentID:     studentID,
		SupervisorID:  supervisorID,
	}, nil
}
