package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/thesishub/thesishub-api/internal/config"
	"github.com/thesishub/thesishub-api/internal/dto"
	"github.com/thesishub/thesishub-api/internal/handler"
	"github.com/thesishub/thesishub-api/internal/models"
	"github.com/thesishub/thesishub-api/internal/repository"
	"github.com/thesishub/thesishub-api/internal/router"
	"github.com/thesishub/thesishub-api/internal/service"
)

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, uint, string, string) {}

type stageTestUploader struct{}

func (stageTestUploader) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	return "https://files.test/" + name, nil
}

func setupStageApp(t *testing.T, role string) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Group{}, &models.Project{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	projectRepo := repository.NewProjectRepository(db)
	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)

	stageService := service.NewStageService(projectRepo, userRepo, groupRepo, noopNotifier{}, stageTestUploader{}, validate, logger)
	projectService := service.NewProjectService(projectRepo, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		ProjectHandler: handler.NewProjectHandler(projectService, logger),
		StageHandler:   handler.NewStageHandler(stageService, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("user_id", uint(1))
			c.Locals("auth_id", "auth-test")
			c.Locals("user_role", role)
			return c.Next()
		},
	})

	return app, db
}

func seedProject(t *testing.T, db *gorm.DB) models.Project {
	t.Helper()

	student := models.User{AuthID: "auth-student", Name: "Ada Lovelace", Email: "ada@example.com", Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)
	supervisor := models.User{AuthID: "auth-supervisor", Name: "Grace Hopper", Email: "grace@example.com", Role: models.RoleSupervisor}
	require.NoError(t, db.Create(&supervisor).Error)

	project := models.Project{
		Title:         "Query Planning Thesis",
		StudentID:     &student.ID,
		SupervisorID:  supervisor.ID,
		OverallStatus: models.ProjectStatusApproved,
		CurrentStage:  "proposal",
		ProjectType:   models.ProjectTypeProject,
	}
	project.SetStages(models.StageMap{
		"proposal": {Label: "Proposal", Order: 0, EditableByStudent: true},
		"chapter1": {Label: "Chapter 1", Order: 1, EditableByStudent: true},
	})
	require.NoError(t, db.Create(&project).Error)

	return project
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload interface{}) *http.Response {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(encoded)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.True(t, envelope.Success, envelope.Message)
	if target != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, target))
	}
}

func TestStageSubmitAndCompleteOverHTTP(t *testing.T) {
	app, db := setupStageApp(t, models.RoleSupervisor)
	project := seedProject(t, db)

	resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/stages/proposal/submit", project.ID), dto.SubmitStageRequest{})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var submitted dto.StageResponse
	decodeData(t, resp, &submitted)
	require.True(t, submitted.Submitted)
	require.False(t, submitted.EditableByStudent)

	score := 85.0
	resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/stages/proposal/complete", project.ID), dto.CompleteStageRequest{
		Content: "<p>approved proposal</p>",
		Score:   &score,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var completion dto.StageCompletionResult
	decodeData(t, resp, &completion)
	require.True(t, completion.Stage.Completed)
	require.Equal(t, "chapter1", completion.NextStageKey)

	var stored models.Project
	require.NoError(t, db.First(&stored, project.ID).Error)
	require.Equal(t, "chapter1", stored.CurrentStage)
	require.Equal(t, uint(2), stored.Version)
}

func TestStageUnknownStageReturnsNotFound(t *testing.T) {
	app, db := setupStageApp(t, models.RoleSupervisor)
	project := seedProject(t, db)

	resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/stages/chapter9/submit", project.ID), nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestStagePayFineWithoutFine(t *testing.T) {
	app, db := setupStageApp(t, models.RoleStudent)
	project := seedProject(t, db)

	resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/stages/proposal/pay-fine", project.ID), dto.PayFineRequest{PaymentService: "paystack"})
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestStageReviewEndpointsRequireSupervisor(t *testing.T) {
	app, db := setupStageApp(t, models.RoleStudent)
	project := seedProject(t, db)

	resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/stages/proposal/grade", project.ID), dto.GradeStageRequest{Score: 50})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestStageFinalizeValidatesDeadlineOrder(t *testing.T) {
	app, db := setupStageApp(t, models.RoleSupervisor)
	project := seedProject(t, db)

	later := time.Now().UTC().Add(48 * time.Hour)
	earlier := time.Now().UTC().Add(24 * time.Hour)

	resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/stages/finalize", project.ID), dto.FinalizeStagesRequest{
		Stages: []dto.StageSpec{
			{Label: "Proposal", Deadline: &later},
			{Label: "Chapter 1", Deadline: &earlier},
		},
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/stages/finalize", project.ID), dto.FinalizeStagesRequest{
		Stages: []dto.StageSpec{
			{Label: "Proposal", Deadline: &earlier},
			{Label: "Chapter 1", Deadline: &later},
		},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var finalized dto.ProjectResponse
	decodeData(t, resp, &finalized)
	require.True(t, finalized.StagesLocked)
	require.Len(t, finalized.Stages, 2)
}
