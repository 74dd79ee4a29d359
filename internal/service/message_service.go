package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/thesishub/thesishub-api/internal/dto"
	"github.com/thesishub/thesishub-api/internal/models"
	"github.com/thesishub/thesishub-api/internal/repository"
)

// ErrEmptyMessage indicates a message body was empty after sanitization.
var ErrEmptyMessage = errors.New("message body empty after sanitization")

// MessageService manages per-project discussion messages.
type MessageService interface {
	Post(ctx context.Context, projectID uint, senderID string, payload dto.MessageCreateRequest) (dto.MessageResponse, error)
	List(ctx context.Context, projectID uint, limit, offset int) ([]dto.MessageResponse, error)
}

type messageService struct {
	messages  repository.MessageRepository
	projects  repository.ProjectRepository
	users     repository.UserRepository
	groups    repository.GroupRepository
	notifier  Notifier
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewMessageService constructs a MessageService instance.
func NewMessageService(messages repository.MessageRepository, projects repository.ProjectRepository, users repository.UserRepository, groups repository.GroupRepository, notifier Notifier, validate *validator.Validate, logger zerolog.Logger) MessageService {
	return &messageService{
		messages:  messages,
		projects:  projects,
		users:     users,
		groups:    groups,
		notifier:  notifier,
		validator: validate,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "message_service").Logger(),
	}
}

func (s *messageService) Post(ctx context.Context, projectID uint, senderID string, payload dto.MessageCreateRequest) (dto.MessageResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MessageResponse{}, err
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MessageResponse{}, ErrProjectNotFound
		}
		return dto.MessageResponse{}, err
	}

	body := strings.TrimSpace(s.sanitizer.Sanitize(payload.Body))
	if body == "" {
		return dto.MessageResponse{}, ErrEmptyMessage
	}

	message := models.ProjectMessage{
		ProjectID: projectID,
		SenderID:  senderID,
		Body:      body,
		Mentions:  datatypes.NewJSONSlice(payload.Mentions),
	}

	if err := s.messages.Create(ctx, &message); err != nil {
		return dto.MessageResponse{}, err
	}

	s.notifyParticipants(ctx, project, senderID, payload.Mentions)

	return dto.NewMessageResponse(message), nil
}

func (s *messageService) List(ctx context.Context, projectID uint, limit, offset int) ([]dto.MessageResponse, error) {
	messages, err := s.messages.ListByProject(ctx, projectID, limit, offset)
	if err != nil {
		return nil, err
	}

	return dto.NewMessageResponseSlice(messages), nil
}

// notifyParticipants fans out a comment notification to every project
// participant except the sender; mentioned users get a mention instead.
func (s *messageService) notifyParticipants(ctx context.Context, project models.Project, senderID string, mentions []string) {
	mentioned := make(map[string]struct{}, len(mentions))
	for _, authID := range mentions {
		mentioned[authID] = struct{}{}
	}

	participants := make(map[string]struct{})

	recipients, err := resolveStudents(ctx, project, s.users, s.groups)
	if err == nil {
		for _, authID := range recipients.AuthIDs() {
			participants[authID] = struct{}{}
		}
	} else {
		s.logger.Warn().Err(err).Uint("project_id", project.ID).Msg("failed to resolve students for message notification")
	}

	supervisor := project.Supervisor
	if supervisor.AuthID == "" {
		if loaded, loadErr := s.users.GetByID(ctx, project.SupervisorID); loadErr == nil {
			supervisor = loaded
		}
	}
	if supervisor.AuthID != "" {
		participants[supervisor.AuthID] = struct{}{}
	}

	comment := fmt.Sprintf("New message on %q.", project.Title)
	mention := fmt.Sprintf("You were mentioned on %q.", project.Title)

	for authID := range participants {
		if authID == senderID {
			continue
		}
		if _, ok := mentioned[authID]; ok {
			s.notifier.Notify(ctx, authID, project.ID, models.NotificationTypeMention, mention)
			continue
		}
		s.notifier.Notify(ctx, authID, project.ID, models.NotificationTypeComment, comment)
	}

	for authID := range mentioned {
		if _, isParticipant := participants[authID]; isParticipant || authID == senderID {
			continue
		}
		s.notifier.Notify(ctx, authID, project.ID, models.NotificationTypeMention, mention)
	}
}
