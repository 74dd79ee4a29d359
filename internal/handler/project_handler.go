package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/thesishub/thesishub-api/internal/repository"
	"github.com/thesishub/thesishub-api/internal/service"
	"github.com/thesishub/thesishub-api/internal/utils"
)

// ProjectHandler manages project read and administrative endpoints.
type ProjectHandler struct {
	service service.ProjectService
	logger  zerolog.Logger
}

// NewProjectHandler builds a project handler instance.
func NewProjectHandler(service service.ProjectService, logger zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{
		service: service,
		logger:  logger.With().Str("component", "project_handler").Logger(),
	}
}

// Register attaches the project routes to the provided router group. The
// destructive delete endpoint sits behind the admin guard.
func (h *ProjectHandler) Register(router fiber.Router, adminGuard fiber.Handler) {
	if adminGuard == nil {
		adminGuard = passthrough
	}

	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Delete("/:id", adminGuard, h.remove)
}

func (h *ProjectHandler) list(c *fiber.Ctx) error {
	filter := repository.ProjectFilter{}
	if supervisorID, err := parseQueryUint(c, "supervisor_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	} else if supervisorID != nil {
		filter.SupervisorID = supervisorID
	}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}

	projects, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "projects retrieved", projects)
}

func (h *ProjectHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	project, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "project retrieved", project)
}

func (h *ProjectHandler) remove(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "project deleted", nil)
}

func (h *ProjectHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrProjectNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "project not found")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
