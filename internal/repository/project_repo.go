package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thesishub/thesishub-api/internal/models"
)

// ErrProjectConflict indicates the aggregate changed between read and write.
var ErrProjectConflict = errors.New("project was modified concurrently")

// ProjectFilter narrows project queries.
type ProjectFilter struct {
	StudentID    *uint
	SupervisorID *uint
	Status       *string
	ProjectType  *string
}

// ProjectRepository defines data operations for project aggregates.
type ProjectRepository interface {
	GetByID(ctx context.Context, id uint) (models.Project, error)
	List(ctx context.Context, filter ProjectFilter) ([]models.Project, error)
	ListActive(ctx context.Context) ([]models.Project, error)
	Create(ctx context.Context, project *models.Project) error
	Save(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id uint) error
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository instantiates the repository.
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Project{}).
		Preload("Student").
		Preload("Group").
		Preload("Group.Members").
		Preload("Supervisor")
}

func (r *projectRepository) GetByID(ctx context.Context, id uint) (models.Project, error) {
	var project models.Project
	if err := r.baseQuery(ctx).First(&project, id).Error; err != nil {
		return models.Project{}, err
	}

	return project, nil
}

func (r *projectRepository) List(ctx context.Context, filter ProjectFilter) ([]models.Project, error) {
	query := r.baseQuery(ctx)

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.SupervisorID != nil {
		query = query.Where("supervisor_id = ?", *filter.SupervisorID)
	}

	if filter.Status != nil {
		query = query.Where("overall_status = ?", *filter.Status)
	}

	if filter.ProjectType != nil {
		query = query.Where("project_type = ?", *filter.ProjectType)
	}

	var projects []models.Project
	if err := query.Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}

	return projects, nil
}

func (r *projectRepository) ListActive(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := r.baseQuery(ctx).
		Where("overall_status <> ?", models.ProjectStatusCompleted).
		Find(&projects).Error; err != nil {
		return nil, err
	}

	return projects, nil
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// Save persists the full aggregate with a version-conditional write. The write
// only lands when the stored version still matches the one the caller read;
// otherwise nothing is written and ErrProjectConflict is returned.
func (r *projectRepository) Save(ctx context.Context, project *models.Project) error {
	readVersion := project.Version
	project.Version = readVersion + 1

	result := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND version = ?", project.ID, readVersion).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(project)
	if result.Error != nil {
		project.Version = readVersion
		return result.Error
	}

	if result.RowsAffected == 0 {
		project.Version = readVersion
		return ErrProjectConflict
	}

	return nil
}

func (r *projectRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Project{}, id).Error
}
