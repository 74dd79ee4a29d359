package dto

import (
	"time"

	"github.com/thesishub/thesishub-api/internal/models"
)

// TopicCreateRequest proposes a new project topic. Exactly one of StudentID or
// GroupID identifies the proposer.
type TopicCreateRequest struct {
	Title        string `json:"title" validate:"required,min=3"`
	Description  string `json:"description"`
	StudentID    *uint  `json:"student_id" validate:"omitempty,gt=0"`
	GroupID      *uint  `json:"group_id" validate:"omitempty,gt=0"`
	SupervisorID uint   `json:"supervisor_id" validate:"required,gt=0"`
	ProjectType  string `json:"project_type" validate:"omitempty,oneof=project journal"`
}

// TopicDecisionRequest records a supervisor decision on a topic.
type TopicDecisionRequest struct {
	Note string `json:"note"`
}

// TopicResponse serializes a topic for API clients.
type TopicResponse struct {
	ID           uint       `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	ProjectType  string     `json:"project_type"`
	DecisionNote string     `json:"decision_note,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	ProjectID    *uint      `json:"project_id,omitempty"`
	Student      *UserLite  `json:"student,omitempty"`
	SupervisorID uint       `json:"supervisor_id"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewTopicResponse converts a topic model into a DTO.
func NewTopicResponse(topic models.Topic) TopicResponse {
	response := TopicResponse{
		ID:           topic.ID,
		Title:        topic.Title,
		Description:  topic.Description,
		Status:       topic.Status,
		ProjectType:  topic.ProjectType,
		DecisionNote: topic.DecisionNote,
		DecidedAt:    topic.DecidedAt,
		ProjectID:    topic.ProjectID,
		SupervisorID: topic.SupervisorID,
		CreatedAt:    topic.CreatedAt,
	}

	if topic.Student != nil {
		student := NewUserLite(*topic.Student)
		response.Student = &student
	}

	return response
}

// NewTopicResponseSlice converts topic models into DTOs.
func NewTopicResponseSlice(topics []models.Topic) []TopicResponse {
	responses := make([]TopicResponse, 0, len(topics))
	for _, topic := range topics {
		responses = append(responses, NewTopicResponse(topic))
	}

	return responses
}
