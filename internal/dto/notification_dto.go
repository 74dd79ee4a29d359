package dto

import (
	"time"

	"github.com/thesishub/thesishub-api/internal/models"
)

// NotificationCreateRequest enqueues a user-facing message.
type NotificationCreateRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	ProjectID uint   `json:"project_id"`
	Type      string `json:"type" validate:"required,oneof=submission resubmission approval comment mention reminder general fine_paid"`
	Message   string `json:"message" validate:"required"`
}

// NotificationResponse serializes a notification for API clients and SSE.
type NotificationResponse struct {
	ID        uint      `json:"id"`
	UserID    string    `json:"user_id"`
	ProjectID uint      `json:"project_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotificationResponse converts a notification model into a DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		ProjectID: model.ProjectID,
		Type:      model.Type,
		Message:   model.Message,
		Read:      model.Read,
		CreatedAt: model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts notification models into DTOs.
func NewNotificationResponseSlice(notifications []models.Notification) []NotificationResponse {
	responses := make([]NotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		responses = append(responses, NewNotificationResponse(notification))
	}

	return responses
}
