package dto

import (
	"time"

	"github.com/thesishub/thesishub-api/internal/models"
)

// ContentUpdateRequest carries replacement rich-text content for one stage.
type ContentUpdateRequest struct {
	Content string `json:"content" validate:"required"`
}

// SubmitStageRequest marks a stage as handed in.
type SubmitStageRequest struct {
	IsResubmission bool `json:"is_resubmission"`
}

// GradeStageRequest attaches a score to a stage.
type GradeStageRequest struct {
	Score   float64 `json:"score" validate:"gte=0,lte=100"`
	Comment string  `json:"comment"`
}

// CompleteStageRequest approves a stage together with its final content.
type CompleteStageRequest struct {
	Content      string   `json:"content" validate:"required"`
	Score        *float64 `json:"score" validate:"omitempty,gte=0,lte=100"`
	Comment      string   `json:"comment"`
	NextStageKey string   `json:"next_stage_key"`
}

// MarkCompletedRequest approves already-submitted content without touching it.
type MarkCompletedRequest struct {
	Score   *float64 `json:"score" validate:"omitempty,gte=0,lte=100"`
	Comment string   `json:"comment"`
}

// PayFineRequest confirms an external payment for a stage fine.
type PayFineRequest struct {
	PaymentService string `json:"payment_service" validate:"required"`
}

// StageSpec describes one stage in a finalize request. Deadlines must strictly
// increase with stage order.
type StageSpec struct {
	Label        string     `json:"label" validate:"required"`
	Deadline     *time.Time `json:"deadline"`
	FineAmount   *float64   `json:"fine_amount" validate:"omitempty,gt=0"`
	FineCurrency string     `json:"fine_currency"`
}

// FinalizeStagesRequest locks in the stage list and deadline schedule.
type FinalizeStagesRequest struct {
	Stages []StageSpec `json:"stages" validate:"required,min=1,dive"`
}

// StageResponse serializes one stage for API clients.
type StageResponse struct {
	Key               string              `json:"key"`
	Label             string              `json:"label"`
	Order             int                 `json:"order"`
	Content           string              `json:"content"`
	Submitted         bool                `json:"submitted"`
	SubmittedAt       *time.Time          `json:"submitted_at,omitempty"`
	EditableByStudent bool                `json:"editable_by_student"`
	Completed         bool                `json:"completed"`
	ApprovedAt        *time.Time          `json:"approved_at,omitempty"`
	Deadline          *time.Time          `json:"deadline,omitempty"`
	Fine              *models.Fine        `json:"fine,omitempty"`
	Grade             *models.Grade       `json:"grade,omitempty"`
	Resubmitted       bool                `json:"resubmitted"`
	ResubmittedCount  int                 `json:"resubmitted_count"`
	Attachments       []models.Attachment `json:"attachments,omitempty"`
}

// NewStageResponse converts a stage entry into a DTO.
func NewStageResponse(key string, stage models.Stage) StageResponse {
	return StageResponse{
		Key:               key,
		Label:             stage.Label,
		Order:             stage.Order,
		Content:           stage.Content,
		Submitted:         stage.Submitted,
		SubmittedAt:       stage.SubmittedAt,
		EditableByStudent: stage.EditableByStudent,
		Completed:         stage.Completed,
		ApprovedAt:        stage.ApprovedAt,
		Deadline:          stage.Deadline,
		Fine:              stage.Fine,
		Grade:             stage.Grade,
		Resubmitted:       stage.Resubmitted,
		ResubmittedCount:  stage.ResubmittedCount,
		Attachments:       stage.Attachments,
	}
}

// NewStageResponseSlice converts a stage map into an order-sorted DTO slice.
func NewStageResponseSlice(stages models.StageMap) []StageResponse {
	responses := make([]StageResponse, 0, len(stages))
	for _, key := range stages.OrderedKeys() {
		responses = append(responses, NewStageResponse(key, stages[key]))
	}

	return responses
}

// RecipientInfo identifies a student addressed by a notification, returned so
// callers can trigger follow-up email delivery.
type RecipientInfo struct {
	AuthID string `json:"auth_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// AllowEditingResult reports who was invited to make corrections.
type AllowEditingResult struct {
	Stage      StageResponse   `json:"stage"`
	Recipients []RecipientInfo `json:"recipients"`
}

// FinalGradingPayload summarizes scores for an external grading ledger. It is
// returned to the caller and never persisted here.
type FinalGradingPayload struct {
	ProjectID    uint    `json:"project_id"`
	AverageScore float64 `json:"average_score"`
	GradedStages int     `json:"graded_stages"`
	TotalStages  int     `json:"total_stages"`
}

// StageCompletionResult reports the outcome of approving a stage.
type StageCompletionResult struct {
	Stage            StageResponse        `json:"stage"`
	NextStageKey     string               `json:"next_stage_key,omitempty"`
	ProjectCompleted bool                 `json:"project_completed"`
	FinalGrading     *FinalGradingPayload `json:"final_grading,omitempty"`
}

// FineSweepResult summarizes one fine-enforcement run.
type FineSweepResult struct {
	ObservedAt      time.Time `json:"observed_at"`
	ProjectsScanned int       `json:"projects_scanned"`
	ProjectsUpdated int       `json:"projects_updated"`
	FinesApplied    int       `json:"fines_applied"`
	Failures        int       `json:"failures"`
}
