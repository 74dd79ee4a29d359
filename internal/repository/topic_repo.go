package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/thesishub/thesishub-api/internal/models"
)

// TopicFilter narrows topic queries.
type TopicFilter struct {
	StudentID    *uint
	SupervisorID *uint
	Status       *string
}

// TopicRepository handles persistence for project proposals.
type TopicRepository interface {
	GetByID(ctx context.Context, id uint) (models.Topic, error)
	List(ctx context.Context, filter TopicFilter) ([]models.Topic, error)
	Create(ctx context.Context, topic *models.Topic) error
	Update(ctx context.Context, topic *models.Topic) error
}

type topicRepository struct {
	db *gorm.DB
}

// NewTopicRepository constructs a repository backed by GORM.
func NewTopicRepository(db *gorm.DB) TopicRepository {
	return &topicRepository{db: db}
}

func (r *topicRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Topic{}).
		Preload("Student").
		Preload("Group").
		Preload("Group.Members")
}

func (r *topicRepository) GetByID(ctx context.Context, id uint) (models.Topic, error) {
	var topic models.Topic
	if err := r.baseQuery(ctx).First(&topic, id).Error; err != nil {
		return models.Topic{}, err
	}

	return topic, nil
}

func (r *topicRepository) List(ctx context.Context, filter TopicFilter) ([]models.Topic, error) {
	query := r.baseQuery(ctx)

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.SupervisorID != nil {
		query = query.Where("supervisor_id = ?", *filter.SupervisorID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var topics []models.Topic
	if err := query.Order("created_at DESC").Find(&topics).Error; err != nil {
		return nil, err
	}

	return topics, nil
}

func (r *topicRepository) Create(ctx context.Context, topic *models.Topic) error {
	return r.db.WithContext(ctx).Create(topic).Error
}

func (r *topicRepository) Update(ctx context.Context, topic *models.Topic) error {
	return r.db.WithContext(ctx).Save(topic).Error
}
