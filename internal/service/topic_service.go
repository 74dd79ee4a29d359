package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/thesishub/thesishub-api/internal/dto"
	"github.com/thesishub/thesishub-api/internal/models"
	"github.com/thesishub/thesishub-api/internal/repository"
)

// Domain errors surfaced by topic operations.
var (
	ErrTopicNotFound = errors.New("topic not found")
	ErrTopicDecided  = errors.New("topic has already been decided")
	ErrTopicOwner    = errors.New("topic needs exactly one of student or group")
)

// DefaultStageLabels is the stage set initialized when a topic is approved.
// Supervisors can later replace it via FinalizeStagesAndDeadlines.
var DefaultStageLabels = []string{"Proposal", "Chapter 1", "Chapter 2", "Chapter 3", "Final Submission"}

// TopicService manages project proposals and turns approvals into projects.
type TopicService interface {
	Submit(ctx context.Context, payload dto.TopicCreateRequest) (dto.TopicResponse, error)
	List(ctx context.Context, filter repository.TopicFilter) ([]dto.TopicResponse, error)
	Approve(ctx context.Context, topicID uint, payload dto.TopicDecisionRequest) (dto.TopicResponse, error)
	Reject(ctx context.Context, topicID uint, payload dto.TopicDecisionRequest) (dto.TopicResponse, error)
}

type topicService struct {
	topics    repository.TopicRepository
	projects  repository.ProjectRepository
	users     repository.UserRepository
	groups    repository.GroupRepository
	notifier  Notifier
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewTopicService constructs a TopicService instance.
func NewTopicService(topics repository.TopicRepository, projects repository.ProjectRepository, users repository.UserRepository, groups repository.GroupRepository, notifier Notifier, validate *validator.Validate, logger zerolog.Logger) TopicService {
	return &topicService{
		topics:    topics,
		projects:  projects,
		users:     users,
		groups:    groups,
		notifier:  notifier,
		validator: validate,
		logger:    logger.With().Str("component", "topic_service").Logger(),
		now:       time.Now,
	}
}

func (s *topicService) Submit(ctx context.Context, payload dto.TopicCreateRequest) (dto.TopicResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TopicResponse{}, err
	}

	if (payload.StudentID == nil) == (payload.GroupID == nil) {
		return dto.TopicResponse{}, ErrTopicOwner
	}

	projectType := payload.ProjectType
	if projectType == "" {
		projectType = models.ProjectTypeProject
	}

	topic := models.Topic{
		Title:        payload.Title,
		Description:  payload.Description,
		StudentID:    payload.StudentID,
		GroupID:      payload.GroupID,
		SupervisorID: payload.SupervisorID,
		ProjectType:  projectType,
		Status:       models.TopicStatusPending,
	}

	if err := s.topics.Create(ctx, &topic); err != nil {
		return dto.TopicResponse{}, err
	}

	supervisor, err := s.users.GetByID(ctx, topic.SupervisorID)
	if err == nil {
		message := fmt.Sprintf("A new topic %q was submitted for your review.", topic.Title)
		s.notifier.Notify(ctx, supervisor.AuthID, 0, models.NotificationTypeSubmission, message)
	}

	s.logger.Info().Uint("topic_id", topic.ID).Msg("topic submitted")

	return dto.NewTopicResponse(topic), nil
}

func (s *topicService) List(ctx context.Context, filter repository.TopicFilter) ([]dto.TopicResponse, error) {
	topics, err := s.topics.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewTopicResponseSlice(topics), nil
}

// Approve creates the project aggregate with the default stage set and
// notifies the proposers.
func (s *topicService) Approve(ctx context.Context, topicID uint, payload dto.TopicDecisionRequest) (dto.TopicResponse, error) {
	topic, err := s.loadPending(ctx, topicID)
	if err != nil {
		return dto.TopicResponse{}, err
	}

	stages := make(models.StageMap, len(DefaultStageLabels))
	for i, label := range DefaultStageLabels {
		stages[models.StageKey(label)] = models.Stage{
			Label:             label,
			Order:             i,
			EditableByStudent: true,
		}
	}

	project := models.Project{
		Title:         topic.Title,
		StudentID:     topic.StudentID,
		GroupID:       topic.GroupID,
		SupervisorID:  topic.SupervisorID,
		OverallStatus: models.ProjectStatusApproved,
		CurrentStage:  models.StageKey(DefaultStageLabels[0]),
		ProjectType:   topic.ProjectType,
	}
	project.SetStages(stages)

	if err := s.projects.Create(ctx, &project); err != nil {
		return dto.TopicResponse{}, err
	}

	decidedAt := s.now().UTC()
	topic.Status = models.TopicStatusApproved
	topic.DecisionNote = payload.Note
	topic.DecidedAt = &decidedAt
	topic.ProjectID = &project.ID

	if err := s.topics.Update(ctx, &topic); err != nil {
		return dto.TopicResponse{}, err
	}

	recipients, err := resolveStudents(ctx, project, s.users, s.groups)
	if err == nil {
		message := fmt.Sprintf("Your topic %q was approved. You can start working on your proposal.", topic.Title)
		for _, authID := range recipients.AuthIDs() {
			s.notifier.Notify(ctx, authID, project.ID, models.NotificationTypeApproval, message)
		}
	} else {
		s.logger.Warn().Err(err).Uint("topic_id", topicID).Msg("failed to resolve recipients for approval notification")
	}

	s.logger.Info().Uint("topic_id", topic.ID).Uint("project_id", project.ID).Msg("topic approved")

	return dto.NewTopicResponse(topic), nil
}

func (s *topicService) Reject(ctx context.Context, topicID uint, payload dto.TopicDecisionRequest) (dto.TopicResponse, error) {
	topic, err := s.loadPending(ctx, topicID)
	if err != nil {
		return dto.TopicResponse{}, err
	}

	decidedAt := s.now().UTC()
	topic.Status = models.TopicStatusRejected
	topic.DecisionNote = payload.Note
	topic.DecidedAt = &decidedAt

	if err := s.topics.Update(ctx, &topic); err != nil {
		return dto.TopicResponse{}, err
	}

	owner := models.Project{StudentID: topic.StudentID, GroupID: topic.GroupID, Student: topic.Student, Group: topic.Group}
	recipients, err := resolveStudents(ctx, owner, s.users, s.groups)
	if err == nil {
		message := fmt.Sprintf("Your topic %q was rejected. Review the supervisor's note and submit a new topic.", topic.Title)
		for _, authID := range recipients.AuthIDs() {
			s.notifier.Notify(ctx, authID, 0, models.NotificationTypeGeneral, message)
		}
	}

	return dto.NewTopicResponse(topic), nil
}

func (s *topicService) loadPending(ctx context.Context, topicID uint) (models.Topic, error) {
	topic, err := s.topics.GetByID(ctx, topicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Topic{}, ErrTopicNotFound
		}
		return models.Topic{}, err
	}

	if topic.Status != models.TopicStatusPending {
		return models.Topic{}, ErrTopicDecided
	}

	return topic, nil
}
