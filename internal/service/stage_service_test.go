package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/thesishub/thesishub-api/internal/dto"
	"github.com/thesishub/thesishub-api/internal/models"
)

var (
	testStudent    = models.User{ID: 1, AuthID: "auth-student", Name: "Ada Lovelace", Email: "ada@example.com", Role: models.RoleStudent, TimeZone: "UTC"}
	testSupervisor = models.User{ID: 2, AuthID: "auth-supervisor", Name: "Grace Hopper", Email: "grace@example.com", Role: models.RoleSupervisor}
)

func newStageFixture(t *testing.T, projectType string, stages models.StageMap) (*fakeProjectRepo, *fakeNotifier, StageService, uint) {
	t.Helper()

	repo := newFakeProjectRepo()
	notifier := &fakeNotifier{}
	users := newFakeUserRepo(testStudent, testSupervisor)
	groups := newFakeGroupRepo()

	student := testStudent
	supervisor := testSupervisor
	project := models.Project{
		Title:         "Distributed Tracing Thesis",
		StudentID:     &student.ID,
		SupervisorID:  supervisor.ID,
		OverallStatus: models.ProjectStatusApproved,
		CurrentStage:  "proposal",
		ProjectType:   projectType,
		Student:       &student,
		Supervisor:    supervisor,
	}
	project.SetStages(stages)
	require.NoError(t, repo.Create(context.Background(), &project))

	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewStageService(repo, users, groups, notifier, nil, validate, testLogger())

	return repo, notifier, svc, project.ID
}

func twoStageMap() models.StageMap {
	return models.StageMap{
		"proposal": {Label: "Proposal", Order: 0, EditableByStudent: true},
		"chapter1": {Label: "Chapter 1", Order: 1, EditableByStudent: true},
	}
}

func TestSubmitStageLocksEditingAndNotifiesSupervisor(t *testing.T) {
	repo, notifier, svc, projectID := newStageFixture(t, models.ProjectTypeProject, twoStageMap())

	stage, err := svc.SubmitStage(context.Background(), projectID, "proposal", false)
	require.NoError(t, err)
	require.True(t, stage.Submitted)
	require.NotNil(t, stage.SubmittedAt)
	require.False(t, stage.EditableByStudent)

	stored := repo.projects[projectID].StageMapValue()["proposal"]
	require.True(t, stored.Submitted)
	require.False(t, stored.EditableByStudent)

	submissions := notifier.callsOfType(models.NotificationTypeSubmission)
	require.Len(t, submissions, 1)
	require.Equal(t, testSupervisor.AuthID, submissions[0].UserID)
	require.Contains(t, submissions[0].Message, "Ada Lovelace")
	require.Contains(t, submissions[0].Message, "Proposal")
}

func TestSubmitStageResubmissionCounting(t *testing.T) {
	repo, notifier, svc, projectID := newStageFixture(t, models.ProjectTypeProject, twoStageMap())

	for expected := 1; expected <= 3; expected++ {
		stage, err := svc.SubmitStage(context.Background(), projectID, "proposal", true)
		require.NoError(t, err)
		require.True(t, stage.Resubmitted)
		require.Equal(t, expected, stage.ResubmittedCount)
	}

	require.Equal(t, 3, repo.projects[projectID].StageMapValue()["proposal"].ResubmittedCount)
	require.Len(t, notifier.callsOfType(models.NotificationTypeResubmission), 3)
}

func TestSubmitStageUnknownStage(t *testing.T) {
	_, _, svc, projectID := newStageFixture(t, models.ProjectTypeProject, twoStageMap())

	_, err := svc.SubmitStage(context.Background(), projectID, "chapter9", false)
	require.ErrorIs(t, err, ErrStageNotFound)
}

func TestAutosaveRejectsNonJournalProjects(t *testing.T) {
	repo, _, svc, projectID := newStageFixture(t, models.ProjectTypeProject, twoStageMap())

	_, err := svc.AutosaveContent(context.Background(), projectID, "proposal", "<p>draft</p>")
	require.ErrorIs(t, err, ErrAutosaveJournal)
	require.Zero(t, repo.saveCalls)
}

func TestAutosaveSkipsIdenticalContent(t *testing.T) {
	repo, _, svc, projectID := newStageFixture(t, models.ProjectTypeJournal, twoStageMap())

	first, err := svc.AutosaveContent(context.Background(), projectID, "proposal", "<p>entry one</p>")
	require.NoError(t, err)
	require.Equal(t, "<p>entry one</p>", first.Content)
	require.Equal(t, 1, repo.saveCalls)

	_, err = svc.AutosaveContent(context.Background(), projectID, "proposal", "<p>entry one</p>")
	require.NoError(t, err)
	require.Equal(t, 1, repo.saveCalls, "identical content must not be rewritten")
}

func TestUpdateContentSanitizesMarkup(t *testing.T) {
	repo, _, svc, projectID := newStageFixture(t, models.ProjectTypeProject, twoStageMap())

	stage, err := svc.UpdateContent(context.Background(), projectID, "proposal", `<p>ok</p><script>alert("x")</script>`)
	require.NoError(t, err)
	require.Contains(t, stage.Content, "<p>ok</p>")
	require.NotContains(t, stage.Content, "script")
	require.Equal(t, stage.Content, repo.projects[projectID].StageMapValue()["proposal"].Content)
}

func TestGradeStageRequiresExistingStage(t *testing.T) {
	_, _, svc, projectID := newStageFixture(t, models.ProjectTypeProject, twoStageMap())

	_, err := svc.GradeStage(context.Background(), projectID, "chapter9", dto.GradeStageRequest{Score: 70})
	require.ErrorIs(t, err, ErrStageNotFound)
}

func TestGradeStageIsSilentAndOverwrites(t *testing.T) {
	_, notifier, svc, projectID := newStageFixture(t, models.ProjectTypeProject, twoStageMap())

	first, err := svc.GradeStage(context.Background(), projectID, "proposal", dto.GradeStageRequest{Score: 60, Comment: "solid"})
	require.NoError(t, err)
	require.Equal(t, 60.0, first.Grade.Score)

	second, err := svc.GradeStage(context.Background(), projectID, "proposal", dto.GradeStageRequest{Score: 75})
	require.NoError(t, err)
	require.Equal(t, 75.0, second.Grade.Score)

	require.Empty(t, notifier.calls)
}

// Mirrors the straight-through path: student submits the proposal, the
// supervisor approves it with a score, and work moves on to chapter one.
func TestCompleteStageAdvancesCurrentStage(t *testing.T) {
	repo, notifier, svc, projectID := newStageFixture(t, models.ProjectTypeProject, twoStageMap())

	_, err := svc.SubmitStage(context.Background(), projectID, "proposal", false)
	require.NoError(t, err)

	score := 80.0
	result, err := svc.CompleteStageWithContent(context.Background(), projectID, "proposal", dto.CompleteStageRequest{
		Content: "<p>final proposal</p>",
		Score:   &score,
	})
	require.NoError(t, err)
	require.False(t, result.ProjectCompleted)
	require.Equal(t, "chapter1", result.NextStageKey)
	require.Nil(t, result.FinalGrading)

	stored := repo.projects[projectID]
	require.Equal(t, "chapter1", stored.CurrentStage)
	require.Equal(t, models.ProjectStatusApproved, stored.OverallStatus)

	proposal := stored.StageMapValue()["proposal"]
	require.True(t, proposal.Completed)
	require.NotNil(t, proposal.Grade)
	require.Equal(t, 80.0, proposal.Grade.Score)

	approvals := notifier.callsOfType(models.NotificationTypeApproval)
	require.Len(t, approvals, 1)
	require.Equal(t, testStudent.AuthID, approvals[0].UserID)
}

func TestCompleteLastStageCompletesProject(t *testing.T) {
	stages := twoStageMap()
	proposal := stages["proposal"]
	proposal.Completed = true
	proposal.Grade = &models.Grade{Score: 80}
	stages["proposal"] = proposal

	repo, notifier, svc, projectID := newStageFixture(t, models.ProjectTypeProject, stages)

	score := 60.0
	result, err := svc.CompleteStageWithContent(context.Background(), projectID, "chapter1", dto.CompleteStageRequest{
		Content: "<p>chapter one</p>",
		Score:   &score,
	})
	require.NoError(t, err)
	require.True(t, result.ProjectCompleted)
	require.Empty(t, result.NextStageKey)

	require.NotNil(t, result.FinalGrading)
	require.Equal(t, 2, result.FinalGrading.GradedStages)
	require.InDelta(t, 70.0, result.FinalGrading.AverageScore, 0.0001)

	stored := repo.projects[projectID]
	require.Equal(t, models.ProjectStatusCompleted, stored.OverallStatus)
	require.Equal(t, "proposal", stored.CurrentStage, "current stage must not advance past the last stage")

	approvals := notifier.callsOfType(models.NotificationTypeApproval)
	require.Len(t, approvals, 1)
	require.Contains(t, approvals[0].Message, "Congratulations")
}

func TestMarkStageCompletedFinalSubmission(t *testing.T) {
	stages := models.StageMap{
		"proposal":        {Label: "Proposal", Order: 0, Completed: true},
		"finalsubmission": {Label: "Final Submission", Order: 1, Submitted: true},
	}
	repo, notifier, svc, projectID := newStageFixture(t, models.ProjectTypeProject, stages)

	result, err := svc.MarkStageCompleted(context.Background(), projectID, "finalsubmission", dto.MarkCompletedRequest{})
	require.NoError(t, err)
	require.True(t, result.ProjectCompleted)

	stored := repo.projects[projectID]
	require.Equal(t, models.ProjectStatusCompleted, stored.OverallStatus)
	require.Equal(t, "proposal", stored.CurrentStage)

	approvals := notifier.callsOfType(models.NotificationTypeApproval)
	require.Len(t, approvals, 1)
	require.Contains(t, approvals[0].Message, "Congratulations")
}

func TestAllowEditingSynthesizesStageAndReturnsRecipients(t *testing.T) {
	repo, notifier, svc, projectID := newStageFixture(t, models.ProjectTypeProject, twoStageMap())

	result, err := svc.AllowEditing(context.Background(), projectID, "chapter2")
	require.NoError(t, err)
	require.True(t, result.Stage.EditableByStudent)
	require.Equal(t, 2, result.Stage.Order)

	require.Len(t, result.Recipients, 1)
	require.Equal(t, testStudent.Email, result.Recipients[0].Email)

	stored := repo.projects[projectID].StageMapValue()
	require.Contains(t, stored, "chapter2")

	general := notifier.callsOfType(models.NotificationTypeGeneral)
	require.Len(t, general, 1)
	require.Equal(t, testStudent.AuthID, general[0].UserID)
}

func TestMarkFineAsPaidUnlocksEditing(t *testing.T) {
	stages := twoStageMap()
	chapter := stages["chapter1"]
	chapter.EditableByStudent = false
	chapter.Fine = &models.Fine{Amount: 50, Currency: "NGN", Applied: true}
	stages["chapter1"] = chapter

	repo, notifier, svc, projectID := newStageFixture(t, models.ProjectTypeProject, stages)

	stage, err := svc.MarkFineAsPaid(context.Background(), projectID, "chapter1", dto.PayFineRequest{PaymentService: "paystack"})
	require.NoError(t, err)
	require.True(t, stage.Fine.IsPaid)
	require.NotNil(t, stage.Fine.PaidAt)
	require.Equal(t, "paystack", stage.Fine.PaymentService)
	require.True(t, stage.EditableByStudent)

	stored := repo.projects[projectID].StageMapValue()["chapter1"]
	require.True(t, stored.Fine.IsPaid)
	require.True(t, stored.EditableByStudent)

	finePaid := notifier.callsOfType(models.NotificationTypeFinePaid)
	require.Len(t, finePaid, 2, "student and supervisor must both be notified")
	recipients := map[string]bool{}
	for _, call := range finePaid {
		recipients[call.UserID] = true
	}
	require.True(t, recipients[testStudent.AuthID])
	require.True(t, recipients[testSupervisor.AuthID])
}

func TestMarkFineAsPaidWithoutFine(t *testing.T) {
	_, _, svc, projectID := newStageFixture(t, models.ProjectTypeProject, twoStageMap())

	_, err := svc.MarkFineAsPaid(context.Background(), projectID, "proposal", dto.PayFineRequest{PaymentService: "paystack"})
	require.ErrorIs(t, err, ErrNoFine)
}

func TestMarkFineAsPaidRequiresAppliedFine(t *testing.T) {
	stages := twoStageMap()
	chapter := stages["chapter1"]
	chapter.Fine = &models.Fine{Amount: 50, Currency: "NGN"}
	stages["chapter1"] = chapter

	_, _, svc, projectID := newStageFixture(t, models.ProjectTypeProject, stages)

	_, err := svc.MarkFineAsPaid(context.Background(), projectID, "chapter1", dto.PayFineRequest{PaymentService: "paystack"})
	require.ErrorIs(t, err, ErrFineNotApplied)
}

func TestFinalizeStagesRejectsNonIncreasingDeadlines(t *testing.T) {
	repo, _, svc, projectID := newStageFixture(t, models.ProjectTypeProject, models.StageMap{})

	now := time.Now().UTC()
	later := now.Add(48 * time.Hour)
	earlier := now.Add(24 * time.Hour)

	_, err := svc.FinalizeStagesAndDeadlines(context.Background(), projectID, dto.FinalizeStagesRequest{
		Stages: []dto.StageSpec{
			{Label: "Proposal", Deadline: &later},
			{Label: "Chapter 1", Deadline: &earlier},
		},
	})
	require.ErrorIs(t, err, ErrDeadlineOrder)
	require.Contains(t, err.Error(), "Proposal")
	require.Contains(t, err.Error(), "Chapter 1")
	require.Zero(t, repo.saveCalls, "no partial write on validation failure")
}

func TestFinalizeStagesLocksScheduleAndNotifies(t *testing.T) {
	repo, notifier, svc, projectID := newStageFixture(t, models.ProjectTypeProject, models.StageMap{})

	now := time.Now().UTC()
	first := now.Add(24 * time.Hour)
	second := now.Add(48 * time.Hour)
	amount := 25.0

	project, err := svc.FinalizeStagesAndDeadlines(context.Background(), projectID, dto.FinalizeStagesRequest{
		Stages: []dto.StageSpec{
			{Label: "Proposal", Deadline: &first, FineAmount: &amount},
			{Label: "Chapter 1", Deadline: &second, FineAmount: &amount},
		},
	})
	require.NoError(t, err)
	require.True(t, project.StagesLocked)
	require.Len(t, project.Stages, 2)
	require.Equal(t, "proposal", project.Stages[0].Key)
	require.NotNil(t, project.Stages[0].Fine)
	require.False(t, project.Stages[0].Fine.Applied)

	stored := repo.projects[projectID]
	require.True(t, stored.StagesLocked)
	require.Equal(t, "proposal", stored.CurrentStage)

	reminders := notifier.callsOfType(models.NotificationTypeReminder)
	require.Len(t, reminders, 1)
}

func TestFinalizeStagesSkipsDeadlinesForJournals(t *testing.T) {
	repo, _, svc, projectID := newStageFixture(t, models.ProjectTypeJournal, models.StageMap{})

	now := time.Now().UTC().Add(24 * time.Hour)
	amount := 10.0

	project, err := svc.FinalizeStagesAndDeadlines(context.Background(), projectID, dto.FinalizeStagesRequest{
		Stages: []dto.StageSpec{{Label: "Entries", Deadline: &now, FineAmount: &amount}},
	})
	require.NoError(t, err)
	require.Nil(t, project.Stages[0].Deadline)
	require.Nil(t, project.Stages[0].Fine)
	require.True(t, repo.projects[projectID].StagesLocked)
}
