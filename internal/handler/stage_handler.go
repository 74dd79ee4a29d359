package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/thesishub/thesishub-api/internal/dto"
	"github.com/thesishub/thesishub-api/internal/repository"
	"github.com/thesishub/thesishub-api/internal/service"
	"github.com/thesishub/thesishub-api/internal/utils"
)

// StageHandler exposes the submission stage transition endpoints.
type StageHandler struct {
	service service.StageService
	logger  zerolog.Logger
}

// NewStageHandler builds a stage handler instance.
func NewStageHandler(service service.StageService, logger zerolog.Logger) *StageHandler {
	return &StageHandler{
		service: service,
		logger:  logger.With().Str("component", "stage_handler").Logger(),
	}
}

// Register attaches the stage routes to the provided projects group. Review
// operations sit behind the supervisor guard.
func (h *StageHandler) Register(router fiber.Router, supervisorGuard fiber.Handler) {
	if supervisorGuard == nil {
		supervisorGuard = passthrough
	}

	router.Post("/:id/stages/finalize", supervisorGuard, h.finalize)
	router.Put("/:id/stages/:key/content", h.updateContent)
	router.Put("/:id/stages/:key/autosave", h.autosave)
	router.Post("/:id/stages/:key/submit", h.submit)
	router.Post("/:id/stages/:key/allow-editing", supervisorGuard, h.allowEditing)
	router.Post("/:id/stages/:key/grade", supervisorGuard, h.grade)
	router.Post("/:id/stages/:key/complete", supervisorGuard, h.complete)
	router.Post("/:id/stages/:key/mark-completed", supervisorGuard, h.markCompleted)
	router.Post("/:id/stages/:key/pay-fine", h.payFine)
	router.Post("/:id/stages/:key/attachments", h.uploadAttachment)
}

func (h *StageHandler) updateContent(c *fiber.Ctx) error {
	projectID, stageKey, err := h.pathParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ContentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	stage, err := h.service.UpdateContent(c.UserContext(), projectID, stageKey, payload.Content)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "stage content updated", stage)
}

func (h *StageHandler) autosave(c *fiber.Ctx) error {
	projectID, stageKey, err := h.pathParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ContentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	stage, err := h.service.AutosaveContent(c.UserContext(), projectID, stageKey, payload.Content)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "stage content autosaved", stage)
}

func (h *StageHandler) submit(c *fiber.Ctx) error {
	projectID, stageKey, err := h.pathParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmitStageRequest
	if err := c.BodyParser(&payload); err != nil {
		payload = dto.SubmitStageRequest{}
	}

	stage, err := h.service.SubmitStage(c.UserContext(), projectID, stageKey, payload.IsResubmission)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "stage submitted", stage)
}

func (h *StageHandler) allowEditing(c *fiber.Ctx) error {
	projectID, stageKey, err := h.pathParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.AllowEditing(c.UserContext(), projectID, stageKey)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "stage editing unlocked", result)
}

func (h *StageHandler) grade(c *fiber.Ctx) error {
	projectID, stageKey, err := h.pathParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeStageRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	stage, err := h.service.GradeStage(c.UserContext(), projectID, stageKey, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "stage graded", stage)
}

func (h *StageHandler) complete(c *fiber.Ctx) error {
	projectID, stageKey, err := h.pathParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CompleteStageRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.CompleteStageWithContent(c.UserContext(), projectID, stageKey, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "stage completed", result)
}

func (h *StageHandler) markCompleted(c *fiber.Ctx) error {
	projectID, stageKey, err := h.pathParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.MarkCompletedRequest
	if err := c.BodyParser(&payload); err != nil {
		payload = dto.MarkCompletedRequest{}
	}

	result, err := h.service.MarkStageCompleted(c.UserContext(), projectID, stageKey, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "stage marked completed", result)
}

func (h *StageHandler) payFine(c *fiber.Ctx) error {
	projectID, stageKey, err := h.pathParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.PayFineRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	stage, err := h.service.MarkFineAsPaid(c.UserContext(), projectID, stageKey, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "fine marked as paid", stage)
}

func (h *StageHandler) finalize(c *fiber.Ctx) error {
	projectID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.FinalizeStagesRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	project, err := h.service.FinalizeStagesAndDeadlines(c.UserContext(), projectID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "stages finalized", project)
}

func (h *StageHandler) uploadAttachment(c *fiber.Ctx) error {
	projectID, stageKey, err := h.pathParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	stage, err := h.service.UploadStageAttachment(c.UserContext(), projectID, stageKey, authIDFromContext(c), file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attachment uploaded", stage)
}

func (h *StageHandler) pathParams(c *fiber.Ctx) (uint, string, error) {
	projectID, err := parseUintParam(c, "id")
	if err != nil {
		return 0, "", err
	}

	stageKey := c.Params("key")
	if stageKey == "" {
		return 0, "", errors.New("stage key is required")
	}

	return projectID, stageKey, nil
}

func (h *StageHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrProjectNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "project not found")
	case errors.Is(err, service.ErrStageNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "stage not found")
	case errors.Is(err, repository.ErrProjectConflict):
		return utils.SendError(c, fiber.StatusConflict, "project was modified concurrently, retry the request")
	case errors.Is(err, service.ErrAutosaveJournal),
		errors.Is(err, service.ErrNoFine),
		errors.Is(err, service.ErrFineNotApplied):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrDeadlineOrder),
		errors.Is(err, service.ErrDuplicateStage),
		isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
