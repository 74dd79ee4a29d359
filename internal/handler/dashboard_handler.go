package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/thesishub/thesishub-api/internal/service"
	"github.com/thesishub/thesishub-api/internal/utils"
)

// DashboardHandler serves aggregated supervision metrics.
type DashboardHandler struct {
	service service.DashboardService
	logger  zerolog.Logger
}

// NewDashboardHandler builds a dashboard handler instance.
func NewDashboardHandler(service service.DashboardService, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		logger:  logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// Register attaches the dashboard routes to the provided router group.
func (h *DashboardHandler) Register(router fiber.Router) {
	router.Get("/supervisor", h.supervisor)
	router.Get("/supervisor/:id", h.supervisorByID)
}

func (h *DashboardHandler) supervisor(c *fiber.Ctx) error {
	supervisorID := userIDFromContext(c)
	if supervisorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	return h.respond(c, supervisorID)
}

func (h *DashboardHandler) supervisorByID(c *fiber.Ctx) error {
	supervisorID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	return h.respond(c, supervisorID)
}

func (h *DashboardHandler) respond(c *fiber.Ctx, supervisorID uint) error {
	dashboard, err := h.service.GetSupervisorDashboard(c.UserContext(), supervisorID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to build supervisor dashboard")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "dashboard retrieved", dashboard)
}
