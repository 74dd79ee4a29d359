package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/thesishub/thesishub-api/internal/dto"
	"github.com/thesishub/thesishub-api/internal/models"
	"github.com/thesishub/thesishub-api/internal/observability"
	"github.com/thesishub/thesishub-api/internal/repository"
)

// FineEnforcementService sweeps non-completed projects and applies fines for
// stage deadlines that have passed in the owning student's time zone.
type FineEnforcementService interface {
	Sweep(ctx context.Context, observedAt time.Time) (dto.FineSweepResult, error)
}

type fineEnforcementService struct {
	projects repository.ProjectRepository
	users    repository.UserRepository
	groups   repository.GroupRepository
	notifier Notifier
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewFineEnforcementService constructs the deadline sweep.
func NewFineEnforcementService(projects repository.ProjectRepository, users repository.UserRepository, groups repository.GroupRepository, notifier Notifier, logger zerolog.Logger) FineEnforcementService {
	return &fineEnforcementService{
		projects: projects,
		users:    users,
		groups:   groups,
		notifier: notifier,
		logger:   logger.With().Str("component", "fine_enforcement").Logger(),
		tracer:   otel.Tracer("github.com/thesishub/thesishub-api/internal/service/fines"),
	}
}

// Sweep processes every active project against the single observedAt instant.
// Projects are isolated from each other: one bad record is logged and skipped,
// never halting the run.
func (s *fineEnforcementService) Sweep(ctx context.Context, observedAt time.Time) (dto.FineSweepResult, error) {
	spanCtx, span := s.tracer.Start(ctx, "fines.sweep", trace.WithAttributes(
		attribute.String("sweep.observed_at", observedAt.UTC().Format(time.RFC3339)),
	))
	defer span.End()

	result := dto.FineSweepResult{ObservedAt: observedAt.UTC()}

	projects, err := s.projects.ListActive(spanCtx)
	if err != nil {
		span.RecordError(err)
		return result, fmt.Errorf("failed to load active projects: %w", err)
	}

	for _, project := range projects {
		result.ProjectsScanned++

		applied, err := s.enforceProject(spanCtx, project, observedAt)
		if err != nil {
			result.Failures++
			s.logger.Error().Err(err).Uint("project_id", project.ID).Msg("fine sweep skipped project")
			continue
		}

		if applied > 0 {
			result.ProjectsUpdated++
			result.FinesApplied += applied
		}
	}

	s.logger.Info().
		Int("scanned", result.ProjectsScanned).
		Int("updated", result.ProjectsUpdated).
		Int("fines_applied", result.FinesApplied).
		Int("failures", result.Failures).
		Msg("fine sweep completed")

	return result, nil
}

func (s *fineEnforcementService) enforceProject(ctx context.Context, project models.Project, observedAt time.Time) (int, error) {
	recipients, err := resolveStudents(ctx, project, s.users, s.groups)
	if err != nil {
		return 0, err
	}

	loc, err := recipients.Location()
	if err != nil {
		return 0, err
	}

	localNow := observedAt.In(loc)
	stages := project.StageMapValue()

	var overdue []string
	for _, key := range stages.OrderedKeys() {
		stage := stages[key]
		if stage.Deadline == nil || stage.Submitted || stage.Fine == nil || stage.Fine.Applied {
			continue
		}
		if !deadlinePassed(localNow, *stage.Deadline, loc) {
			continue
		}

		fine := *stage.Fine
		fine.Applied = true
		fine.Reason = fmt.Sprintf("missed deadline for %q", stage.Label)
		stage.Fine = &fine
		stage.EditableByStudent = false
		stages[key] = stage
		overdue = append(overdue, key)
	}

	// Untouched projects are not written at all.
	if len(overdue) == 0 {
		return 0, nil
	}

	project.SetStages(stages)
	if err := s.projects.Save(ctx, &project); err != nil {
		return 0, err
	}

	observability.FinesAppliedTotal().Add(float64(len(overdue)))

	for _, key := range overdue {
		stage := stages[key]
		message := fmt.Sprintf("You missed the deadline for %q and a fine of %.2f %s was applied. Pay the fine to resume editing.", stage.Label, stage.Fine.Amount, stage.Fine.Currency)
		for _, authID := range recipients.AuthIDs() {
			s.notifier.Notify(ctx, authID, project.ID, models.NotificationTypeFinePaid, message)
		}
	}

	return len(overdue), nil
}

// deadlinePassed treats the stored deadline as wall-clock time in the
// student's zone: a deadline of 23:59 means 23:59 local, wherever the student
// is.
func deadlinePassed(localNow, deadline time.Time, loc *time.Location) bool {
	wall := time.Date(deadline.Year(), deadline.Month(), deadline.Day(), deadline.Hour(), deadline.Minute(), deadline.Second(), deadline.Nanosecond(), loc)
	return localNow.After(wall)
}
