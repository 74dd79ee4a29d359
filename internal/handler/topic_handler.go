package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/thesishub/thesishub-api/internal/dto"
	"github.com/thesishub/thesishub-api/internal/repository"
	"github.com/thesishub/thesishub-api/internal/service"
	"github.com/thesishub/thesishub-api/internal/utils"
)

// TopicHandler manages topic proposal endpoints.
type TopicHandler struct {
	service service.TopicService
	logger  zerolog.Logger
}

// NewTopicHandler builds a topic handler instance.
func NewTopicHandler(service service.TopicService, logger zerolog.Logger) *TopicHandler {
	return &TopicHandler{
		service: service,
		logger:  logger.With().Str("component", "topic_handler").Logger(),
	}
}

// Register attaches the topic routes to the provided router group. Decisions
// take a guard so only supervisors can approve or reject.
func (h *TopicHandler) Register(router fiber.Router, supervisorGuard fiber.Handler) {
	if supervisorGuard == nil {
		supervisorGuard = passthrough
	}

	router.Get("", h.list)
	router.Post("", h.submit)
	router.Post("/:id/approve", supervisorGuard, h.approve)
	router.Post("/:id/reject", supervisorGuard, h.reject)
}

func (h *TopicHandler) list(c *fiber.Ctx) error {
	filter := repository.TopicFilter{}
	if supervisorID, err := parseQueryUint(c, "supervisor_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	} else if supervisorID != nil {
		filter.SupervisorID = supervisorID
	}
	if studentID, err := parseQueryUint(c, "student_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	} else if studentID != nil {
		filter.StudentID = studentID
	}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}

	topics, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "topics retrieved", topics)
}

func (h *TopicHandler) submit(c *fiber.Ctx) error {
	var payload dto.TopicCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	topic, err := h.service.Submit(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "topic submitted", topic)
}

func (h *TopicHandler) approve(c *fiber.Ctx) error {
	return h.decide(c, h.service.Approve, "topic approved")
}

func (h *TopicHandler) reject(c *fiber.Ctx) error {
	return h.decide(c, h.service.Reject, "topic rejected")
}

func (h *TopicHandler) decide(c *fiber.Ctx, decision func(ctx context.Context, id uint, payload dto.TopicDecisionRequest) (dto.TopicResponse, error), message string) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.TopicDecisionRequest
	if err := c.BodyParser(&payload); err != nil {
		payload = dto.TopicDecisionRequest{}
	}

	topic, err := decision(c.UserContext(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, message, topic)
}

func (h *TopicHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrTopicNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "topic not found")
	case errors.Is(err, service.ErrTopicDecided):
		return utils.SendError(c, fiber.StatusConflict, "topic has already been decided")
	case errors.Is(err, service.ErrTopicOwner), isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
