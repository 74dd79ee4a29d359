package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/thesishub/thesishub-api/internal/dto"
	"github.com/thesishub/thesishub-api/internal/models"
	"github.com/thesishub/thesishub-api/internal/observability"
	"github.com/thesishub/thesishub-api/internal/repository"
)

// Domain errors surfaced by stage operations.
var (
	ErrProjectNotFound = errors.New("project not found")
	ErrStageNotFound   = errors.New("stage does not exist")
	ErrNoFine          = errors.New("no fine found for stage")
	ErrFineNotApplied  = errors.New("fine has not been applied")
	ErrAutosaveJournal = errors.New("autosave is only available for journal projects")
	ErrDeadlineOrder   = errors.New("stage deadlines must strictly increase")
	ErrDuplicateStage  = errors.New("duplicate stage label")
)

// FileUploader abstracts uploading binary data and returning a URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// StageService is the transition engine for submission stages. Every operation
// loads the project aggregate, computes a full replacement stage map, persists
// it in one conditional write, and only then schedules notifications.
type StageService interface {
	UpdateContent(ctx context.Context, projectID uint, stageKey, content string) (dto.StageResponse, error)
	AutosaveContent(ctx context.Context, projectID uint, stageKey, content string) (dto.StageResponse, error)
	SubmitStage(ctx context.Context, projectID uint, stageKey string, isResubmission bool) (dto.StageResponse, error)
	AllowEditing(ctx context.Context, projectID uint, stageKey string) (dto.AllowEditingResult, error)
	GradeStage(ctx context.Context, projectID uint, stageKey string, payload dto.GradeStageRequest) (dto.StageResponse, error)
	CompleteStageWithContent(ctx context.Context, projectID uint, stageKey string, payload dto.CompleteStageRequest) (dto.StageCompletionResult, error)
	MarkStageCompleted(ctx context.Context, projectID uint, stageKey string, payload dto.MarkCompletedRequest) (dto.StageCompletionResult, error)
	MarkFineAsPaid(ctx context.Context, projectID uint, stageKey string, payload dto.PayFineRequest) (dto.StageResponse, error)
	FinalizeStagesAndDeadlines(ctx context.Context, projectID uint, payload dto.FinalizeStagesRequest) (dto.ProjectResponse, error)
	UploadStageAttachment(ctx context.Context, projectID uint, stageKey, uploadedBy string, file *multipart.FileHeader) (dto.StageResponse, error)
}

type stageService struct {
	projects  repository.ProjectRepository
	users     repository.UserRepository
	groups    repository.GroupRepository
	notifier  Notifier
	uploader  FileUploader
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewStageService constructs the stage transition engine.
func NewStageService(projects repository.ProjectRepository, users repository.UserRepository, groups repository.GroupRepository, notifier Notifier, uploader FileUploader, validate *validator.Validate, logger zerolog.Logger) StageService {
	return &stageService{
		projects:  projects,
		users:     users,
		groups:    groups,
		notifier:  notifier,
		uploader:  uploader,
		validator: validate,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "stage_service").Logger(),
		tracer:    otel.Tracer("github.com/thesishub/thesishub-api/internal/service/stage"),
		now:       time.Now,
	}
}

func (s *stageService) loadProject(ctx context.Context, projectID uint) (models.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Project{}, ErrProjectNotFound
		}
		return models.Project{}, err
	}

	return project, nil
}

func (s *stageService) save(ctx context.Context, project *models.Project, stages models.StageMap, operation string) error {
	project.SetStages(stages)
	if err := s.projects.Save(ctx, project); err != nil {
		return err
	}

	observability.StageTransitionsTotal().WithLabelValues(operation).Inc()
	return nil
}

func (s *stageService) notifyAll(ctx context.Context, recipients RecipientSet, projectID uint, notificationType, message string) {
	for _, authID := range recipients.AuthIDs() {
		s.notifier.Notify(ctx, authID, projectID, notificationType, message)
	}
}

func (s *stageService) UpdateContent(ctx context.Context, projectID uint, stageKey, content string) (dto.StageResponse, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return dto.StageResponse{}, err
	}

	stages := project.StageMapValue()
	stage, ok := stages[stageKey]
	if !ok {
		return dto.StageResponse{}, ErrStageNotFound
	}

	stage.Content = s.sanitizer.Sanitize(content)
	stages[stageKey] = stage

	if err := s.save(ctx, &project, stages, "update_content"); err != nil {
		return dto.StageResponse{}, err
	}

	return dto.NewStageResponse(stageKey, stage), nil
}

func (s *stageService) AutosaveContent(ctx context.Context, projectID uint, stageKey, content string) (dto.StageResponse, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return dto.StageResponse{}, err
	}

	if project.ProjectType != models.ProjectTypeJournal {
		return dto.StageResponse{}, ErrAutosaveJournal
	}

	stages := project.StageMapValue()
	stage, ok := stages[stageKey]
	if !ok {
		return dto.StageResponse{}, ErrStageNotFound
	}

	clean := s.sanitizer.Sanitize(content)
	if clean == stage.Content {
		// Identical payload from the debounced client; skip the write.
		return dto.NewStageResponse(stageKey, stage), nil
	}

	stage.Content = clean
	stages[stageKey] = stage

	if err := s.save(ctx, &project, stages, "autosave"); err != nil {
		return dto.StageResponse{}, err
	}

	return dto.NewStageResponse(stageKey, stage), nil
}

func (s *stageService) SubmitStage(ctx context.Context, projectID uint, stageKey string, isResubmission bool) (dto.StageResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "stages.submit", trace.WithAttributes(
		attribute.Int("project.id", int(projectID)),
		attribute.String("stage.key", stageKey),
		attribute.Bool("stage.resubmission", isResubmission),
	))
	defer span.End()

	project, err := s.loadProject(spanCtx, projectID)
	if err != nil {
		return dto.StageResponse{}, err
	}

	stages := project.StageMapValue()
	stage, ok := stages[stageKey]
	if !ok {
		return dto.StageResponse{}, ErrStageNotFound
	}

	submittedAt := s.now().UTC()
	stage.Submitted = true
	stage.SubmittedAt = &submittedAt
	stage.EditableByStudent = false
	if isResubmission {
		stage.Resubmitted = true
		stage.ResubmittedCount++
	}
	stages[stageKey] = stage

	operation := "submit"
	if isResubmission {
		operation = "resubmit"
	}

	if err := s.save(spanCtx, &project, stages, operation); err != nil {
		span.RecordError(err)
		return dto.StageResponse{}, err
	}

	recipients, err := resolveStudents(spanCtx, project, s.users, s.groups)
	if err != nil {
		s.logger.Warn().Err(err).Uint("project_id", projectID).Msg("failed to resolve submitter name for notification")
	}

	supervisor := project.Supervisor
	if supervisor.AuthID == "" {
		if loaded, loadErr := s.users.GetByID(spanCtx, project.SupervisorID); loadErr == nil {
			supervisor = loaded
		}
	}

	submitter := recipients.DisplayName
	if submitter == "" {
		submitter = "A student"
	}

	notificationType := models.NotificationTypeSubmission
	message := fmt.Sprintf("%s submitted %q for review.", submitter, stage.Label)
	if isResubmission {
		notificationType = models.NotificationTypeResubmission
		message = fmt.Sprintf("%s resubmitted %q for review.", submitter, stage.Label)
	}
	s.notifier.Notify(spanCtx, supervisor.AuthID, project.ID, notificationType, message)

	return dto.NewStageResponse(stageKey, stage), nil
}

func (s *stageService) AllowEditing(ctx context.Context, projectID uint, stageKey string) (dto.AllowEditingResult, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return dto.AllowEditingResult{}, err
	}

	stages := project.StageMapValue()
	stage, ok := stages[stageKey]
	if !ok {
		stage = defaultStage(stageKey, nextOrder(stages))
	}

	stage.EditableByStudent = true
	stages[stageKey] = stage

	if err := s.save(ctx, &project, stages, "allow_editing"); err != nil {
		return dto.AllowEditingResult{}, err
	}

	recipients, err := resolveStudents(ctx, project, s.users, s.groups)
	if err != nil {
		s.logger.Warn().Err(err).Uint("project_id", projectID).Msg("failed to resolve recipients for allow-editing notification")
		return dto.AllowEditingResult{Stage: dto.NewStageResponse(stageKey, stage)}, nil
	}

	message := fmt.Sprintf("Your supervisor has invited corrections on %q. Editing is unlocked.", stage.Label)
	s.notifyAll(ctx, recipients, project.ID, models.NotificationTypeGeneral, message)

	return dto.AllowEditingResult{
		Stage:      dto.NewStageResponse(stageKey, stage),
		Recipients: recipients.Info(),
	}, nil
}

func (s *stageService) GradeStage(ctx context.Context, projectID uint, stageKey string, payload dto.GradeStageRequest) (dto.StageResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.StageResponse{}, err
	}

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return dto.StageResponse{}, err
	}

	stages := project.StageMapValue()
	stage, ok := stages[stageKey]
	if !ok {
		return dto.StageResponse{}, ErrStageNotFound
	}

	// Grading is silent and overwrites any existing grade unconditionally.
	stage.Grade = &models.Grade{Score: payload.Score, Comment: payload.Comment, GradedAt: s.now().UTC()}
	stages[stageKey] = stage

	if err := s.save(ctx, &project, stages, "grade"); err != nil {
		return dto.StageResponse{}, err
	}

	return dto.NewStageResponse(stageKey, stage), nil
}

func (s *stageService) CompleteStageWithContent(ctx context.Context, projectID uint, stageKey string, payload dto.CompleteStageRequest) (dto.StageCompletionResult, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.StageCompletionResult{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "stages.complete", trace.WithAttributes(
		attribute.Int("project.id", int(projectID)),
		attribute.String("stage.key", stageKey),
	))
	defer span.End()

	project, err := s.loadProject(spanCtx, projectID)
	if err != nil {
		return dto.StageCompletionResult{}, err
	}

	stages := project.StageMapValue()
	stage, ok := stages[stageKey]
	if !ok {
		return dto.StageCompletionResult{}, ErrStageNotFound
	}

	approvedAt := s.now().UTC()
	stage.Content = s.sanitizer.Sanitize(payload.Content)
	stage.Completed = true
	stage.ApprovedAt = &approvedAt
	if payload.Score != nil {
		stage.Grade = &models.Grade{Score: *payload.Score, Comment: payload.Comment, GradedAt: approvedAt}
	}
	stages[stageKey] = stage

	result := dto.StageCompletionResult{Stage: dto.NewStageResponse(stageKey, stage)}

	isLast := stages.LastKey() == stageKey
	if isLast {
		project.OverallStatus = models.ProjectStatusCompleted
		result.ProjectCompleted = true
	} else {
		next := payload.NextStageKey
		if next == "" {
			next, _ = stages.NextKey(stageKey)
		}
		project.CurrentStage = next
		result.NextStageKey = next
	}

	if err := s.save(spanCtx, &project, stages, "complete"); err != nil {
		span.RecordError(err)
		return dto.StageCompletionResult{}, err
	}

	if isLast {
		// The final grading payload is handed back for the external grading
		// ledger; it is not persisted here.
		average, graded := stages.AverageScore()
		if graded > 0 {
			result.FinalGrading = &dto.FinalGradingPayload{
				ProjectID:    project.ID,
				AverageScore: average,
				GradedStages: graded,
				TotalStages:  len(stages),
			}
		}
	}

	recipients, err := resolveStudents(spanCtx, project, s.users, s.groups)
	if err != nil {
		s.logger.Warn().Err(err).Uint("project_id", projectID).Msg("failed to resolve recipients for completion notification")
		return result, nil
	}

	message := fmt.Sprintf("%q was approved. Proceed to the next stage.", stage.Label)
	if isLast {
		message = fmt.Sprintf("Congratulations! %q was approved and your project is complete.", stage.Label)
	}
	s.notifyAll(spanCtx, recipients, project.ID, models.NotificationTypeApproval, message)

	return result, nil
}

func (s *stageService) MarkStageCompleted(ctx context.Context, projectID uint, stageKey string, payload dto.MarkCompletedRequest) (dto.StageCompletionResult, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.StageCompletionResult{}, err
	}

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return dto.StageCompletionResult{}, err
	}

	stages := project.StageMapValue()
	stage, ok := stages[stageKey]
	if !ok {
		return dto.StageCompletionResult{}, ErrStageNotFound
	}

	approvedAt := s.now().UTC()
	stage.Completed = true
	stage.ApprovedAt = &approvedAt
	if payload.Score != nil {
		stage.Grade = &models.Grade{Score: *payload.Score, Comment: payload.Comment, GradedAt: approvedAt}
	}
	stages[stageKey] = stage

	result := dto.StageCompletionResult{Stage: dto.NewStageResponse(stageKey, stage)}

	var message string
	switch {
	case stageKey == models.FinalSubmissionKey:
		// Final submission closes the project without advancing the current stage.
		project.OverallStatus = models.ProjectStatusCompleted
		result.ProjectCompleted = true
		message = "Congratulations! Your final submission was approved and your project is complete."
	case stages.LastKey() == stageKey:
		project.OverallStatus = models.ProjectStatusCompleted
		result.ProjectCompleted = true
		message = fmt.Sprintf("Congratulations! %q was approved and your project is complete.", stage.Label)
	default:
		next, _ := stages.NextKey(stageKey)
		project.CurrentStage = next
		result.NextStageKey = next
		message = fmt.Sprintf("%q was approved. Proceed to the next stage.", stage.Label)
	}

	if err := s.save(ctx, &project, stages, "mark_completed"); err != nil {
		return dto.StageCompletionResult{}, err
	}

	if result.ProjectCompleted {
		average, graded := stages.AverageScore()
		if graded > 0 {
			result.FinalGrading = &dto.FinalGradingPayload{
				ProjectID:    project.ID,
				AverageScore: average,
				GradedStages: graded,
				TotalStages:  len(stages),
			}
		}
	}

	recipients, err := resolveStudents(ctx, project, s.users, s.groups)
	if err != nil {
		s.logger.Warn().Err(err).Uint("project_id", projectID).Msg("failed to resolve recipients for completion notification")
		return result, nil
	}
	s.notifyAll(ctx, recipients, project.ID, models.NotificationTypeApproval, message)

	return result, nil
}

func (s *stageService) MarkFineAsPaid(ctx context.Context, projectID uint, stageKey string, payload dto.PayFineRequest) (dto.StageResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.StageResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "stages.pay_fine", trace.WithAttributes(
		attribute.Int("project.id", int(projectID)),
		attribute.String("stage.key", stageKey),
	))
	defer span.End()

	project, err := s.loadProject(spanCtx, projectID)
	if err != nil {
		return dto.StageResponse{}, err
	}

	stages := project.StageMapValue()
	stage, ok := stages[stageKey]
	if !ok {
		return dto.StageResponse{}, ErrStageNotFound
	}

	if stage.Fine == nil {
		return dto.StageResponse{}, ErrNoFine
	}
	if !stage.Fine.Applied {
		return dto.StageResponse{}, ErrFineNotApplied
	}

	paidAt := s.now().UTC()
	fine := *stage.Fine
	fine.IsPaid = true
	fine.PaidAt = &paidAt
	fine.PaymentService = payload.PaymentService
	stage.Fine = &fine
	stage.EditableByStudent = true
	stages[stageKey] = stage

	if err := s.save(spanCtx, &project, stages, "pay_fine"); err != nil {
		span.RecordError(err)
		return dto.StageResponse{}, err
	}

	recipients, err := resolveStudents(spanCtx, project, s.users, s.groups)
	if err == nil {
		message := fmt.Sprintf("Your fine for %q was received. Editing is unlocked.", stage.Label)
		s.notifyAll(spanCtx, recipients, project.ID, models.NotificationTypeFinePaid, message)
	} else {
		s.logger.Warn().Err(err).Uint("project_id", projectID).Msg("failed to resolve recipients for fine-paid notification")
	}

	supervisor := project.Supervisor
	if supervisor.AuthID == "" {
		if loaded, loadErr := s.users.GetByID(spanCtx, project.SupervisorID); loadErr == nil {
			supervisor = loaded
		}
	}
	supervisorMessage := fmt.Sprintf("The fine for %q on %q has been paid.", stage.Label, project.Title)
	s.notifier.Notify(spanCtx, supervisor.AuthID, project.ID, models.NotificationTypeFinePaid, supervisorMessage)

	return dto.NewStageResponse(stageKey, stage), nil
}

func (s *stageService) FinalizeStagesAndDeadlines(ctx context.Context, projectID uint, payload dto.FinalizeStagesRequest) (dto.ProjectResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProjectResponse{}, err
	}

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return dto.ProjectResponse{}, err
	}

	// Deadlines must strictly increase across adjacent stages before anything
	// is written.
	for i := 0; i+1 < len(payload.Stages); i++ {
		earlier, later := payload.Stages[i], payload.Stages[i+1]
		if earlier.Deadline == nil || later.Deadline == nil {
			continue
		}
		if !earlier.Deadline.Before(*later.Deadline) {
			return dto.ProjectResponse{}, fmt.Errorf("%w: %q must be due before %q", ErrDeadlineOrder, earlier.Label, later.Label)
		}
	}

	existing := project.StageMapValue()
	stages := make(models.StageMap, len(payload.Stages))
	for i, spec := range payload.Stages {
		key := models.StageKey(spec.Label)
		if _, dup := stages[key]; dup {
			return dto.ProjectResponse{}, fmt.Errorf("%w: %q", ErrDuplicateStage, spec.Label)
		}

		stage, ok := existing[key]
		if !ok {
			stage = defaultStage(key, i)
		}
		stage.Label = spec.Label
		stage.Order = i

		if project.ProjectType != models.ProjectTypeJournal {
			stage.Deadline = spec.Deadline
			if spec.FineAmount != nil {
				currency := spec.FineCurrency
				if currency == "" {
					currency = "NGN"
				}
				stage.Fine = &models.Fine{Amount: *spec.FineAmount, Currency: currency}
			}
		}

		stages[key] = stage
	}

	project.StagesLocked = true
	if project.CurrentStage == "" {
		project.CurrentStage = stages.OrderedKeys()[0]
	}

	if err := s.save(ctx, &project, stages, "finalize_stages"); err != nil {
		return dto.ProjectResponse{}, err
	}

	recipients, err := resolveStudents(ctx, project, s.users, s.groups)
	if err == nil {
		message := fmt.Sprintf("Your supervisor finalized the submission stages and deadlines for %q.", project.Title)
		s.notifyAll(ctx, recipients, project.ID, models.NotificationTypeReminder, message)
	} else {
		s.logger.Warn().Err(err).Uint("project_id", projectID).Msg("failed to resolve recipients for finalize notification")
	}

	return dto.NewProjectResponse(project), nil
}

func (s *stageService) UploadStageAttachment(ctx context.Context, projectID uint, stageKey, uploadedBy string, file *multipart.FileHeader) (dto.StageResponse, error) {
	if file == nil {
		return dto.StageResponse{}, fmt.Errorf("attachment file is required")
	}

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return dto.StageResponse{}, err
	}

	stages := project.StageMapValue()
	stage, ok := stages[stageKey]
	if !ok {
		return dto.StageResponse{}, ErrStageNotFound
	}

	if err := validateAttachmentType(file); err != nil {
		return dto.StageResponse{}, err
	}

	reader, err := file.Open()
	if err != nil {
		return dto.StageResponse{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	uploadURL, err := s.uploader.Upload(ctx, file.Filename, reader)
	if err != nil {
		return dto.StageResponse{}, fmt.Errorf("failed to upload file: %w", err)
	}

	stage.Attachments = append(stage.Attachments, models.Attachment{
		Name:       file.Filename,
		URL:        uploadURL,
		UploadedBy: uploadedBy,
		UploadedAt: s.now().UTC(),
	})
	stages[stageKey] = stage

	if err := s.save(ctx, &project, stages, "upload_attachment"); err != nil {
		return dto.StageResponse{}, err
	}

	return dto.NewStageResponse(stageKey, stage), nil
}

func defaultStage(key string, order int) models.Stage {
	return models.Stage{
		Label:             key,
		Order:             order,
		EditableByStudent: true,
	}
}

func nextOrder(stages models.StageMap) int {
	highest := -1
	for _, stage := range stages {
		if stage.Order > highest {
			highest = stage.Order
		}
	}
	return highest + 1
}

func validateAttachmentType(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return fmt.Errorf("failed to detect file type: %w", err)
	}

	allowed := []string{"application/pdf", "application/zip", "application/x-zip-compressed", "text/plain", "image/png", "image/jpeg"}
	for _, a := range allowed {
		if mime.Is(a) {
			return nil
		}
	}

	return fmt.Errorf("unsupported file type: %s", mime.String())
}
