package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/thesishub/thesishub-api/internal/models"
)

// MessageRepository handles persistence for project discussion messages.
type MessageRepository interface {
	Create(ctx context.Context, message *models.ProjectMessage) error
	ListByProject(ctx context.Context, projectID uint, limit, offset int) ([]models.ProjectMessage, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.ProjectMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *messageRepository) ListByProject(ctx context.Context, projectID uint, limit, offset int) ([]models.ProjectMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var messages []models.ProjectMessage
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}

	return messages, nil
}
