package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/thesishub/thesishub-api/internal/dto"
	"github.com/thesishub/thesishub-api/internal/repository"
)

// ProjectService exposes read and administrative operations on projects.
type ProjectService interface {
	Get(ctx context.Context, id uint) (dto.ProjectResponse, error)
	List(ctx context.Context, filter repository.ProjectFilter) ([]dto.ProjectResponse, error)
	Delete(ctx context.Context, id uint) error
}

type projectService struct {
	projects repository.ProjectRepository
	logger   zerolog.Logger
}

// NewProjectService constructs a ProjectService instance.
func NewProjectService(projects repository.ProjectRepository, logger zerolog.Logger) ProjectService {
	return &projectService{
		projects: projects,
		logger:   logger.With().Str("component", "project_service").Logger(),
	}
}

func (s *projectService) Get(ctx context.Context, id uint) (dto.ProjectResponse, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProjectResponse{}, ErrProjectNotFound
		}
		return dto.ProjectResponse{}, err
	}

	return dto.NewProjectResponse(project), nil
}

func (s *projectService) List(ctx context.Context, filter repository.ProjectFilter) ([]dto.ProjectResponse, error) {
	projects, err := s.projects.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewProjectResponseSlice(projects), nil
}

// Delete removes the aggregate entirely. Projects are never hard-deleted in
// the normal workflow; this is the administrative escape hatch.
func (s *projectService) Delete(ctx context.Context, id uint) error {
	if _, err := s.projects.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return err
	}

	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Uint("project_id", id).Msg("project deleted")
	return nil
}
