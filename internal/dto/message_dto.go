package dto

import (
	"time"

	"github.com/thesishub/thesishub-api/internal/models"
)

// MessageCreateRequest posts a discussion message to a project.
type MessageCreateRequest struct {
	Body     string   `json:"body" validate:"required"`
	Mentions []string `json:"mentions" validate:"omitempty,dive,required"`
}

// MessageResponse serializes a project message for API clients.
type MessageResponse struct {
	ID        uint      `json:"id"`
	ProjectID uint      `json:"project_id"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body"`
	Mentions  []string  `json:"mentions,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessageResponse converts a message model into a DTO.
func NewMessageResponse(model models.ProjectMessage) MessageResponse {
	return MessageResponse{
		ID:        model.ID,
		ProjectID: model.ProjectID,
		SenderID:  model.SenderID,
		Body:      model.Body,
		Mentions:  model.Mentions,
		CreatedAt: model.CreatedAt,
	}
}

// NewMessageResponseSlice converts message models into DTOs.
func NewMessageResponseSlice(messages []models.ProjectMessage) []MessageResponse {
	responses := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		responses = append(responses, NewMessageResponse(message))
	}

	return responses
}
