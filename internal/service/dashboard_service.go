package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/thesishub/thesishub-api/internal/dto"
	"github.com/thesishub/thesishub-api/internal/models"
	"github.com/thesishub/thesishub-api/internal/repository"
)

// DashboardService produces aggregated supervision metrics.
type DashboardService interface {
	GetSupervisorDashboard(ctx context.Context, supervisorID uint) (dto.SupervisorDashboardResponse, error)
}

type dashboardService struct {
	projects repository.ProjectRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewDashboardService builds the dashboard aggregator.
func NewDashboardService(projects repository.ProjectRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) DashboardService {
	return &dashboardService{
		projects: projects,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "dashboard_service").Logger(),
		now:      time.Now,
	}
}

func (s *dashboardService) GetSupervisorDashboard(ctx context.Context, supervisorID uint) (dto.SupervisorDashboardResponse, error) {
	cacheKey := fmt.Sprintf("dashboard:supervisor:%d", supervisorID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.SupervisorDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("supervisor_id", supervisorID).Msg("dashboard cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	projects, err := s.projects.List(ctx, repository.ProjectFilter{SupervisorID: &supervisorID})
	if err != nil {
		return dto.SupervisorDashboardResponse{}, err
	}

	response := s.buildResponse(projects)

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

func (s *dashboardService) buildResponse(projects []models.Project) dto.SupervisorDashboardResponse {
	now := s.now().UTC()
	response := dto.SupervisorDashboardResponse{
		ProjectsByStatus: make(map[string]int),
	}

	for _, project := range projects {
		response.TotalProjects++
		response.ProjectsByStatus[project.OverallStatus]++

		for _, stage := range project.StageMapValue() {
			if stage.Submitted && !stage.Completed {
				response.StagesAwaiting++
			}
			if stage.Deadline != nil && !stage.Submitted && !stage.Completed && now.After(*stage.Deadline) {
				response.OverdueStages++
			}
			if stage.Fine != nil && stage.Fine.Applied && !stage.Fine.IsPaid {
				response.UnpaidFines++
				response.OutstandingFines += stage.Fine.Amount
			}
		}
	}

	return response
}
