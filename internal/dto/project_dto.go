package dto

import (
	"time"

	"github.com/thesishub/thesishub-api/internal/models"
)

// UserLite summarizes a user without exposing full profile data.
type UserLite struct {
	ID     uint   `json:"id"`
	AuthID string `json:"auth_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// GroupLite summarizes a group and its members.
type GroupLite struct {
	ID      uint       `json:"id"`
	Name    string     `json:"name"`
	Members []UserLite `json:"members"`
}

// ProjectResponse is returned to API clients when viewing projects.
type ProjectResponse struct {
	ID            uint            `json:"id"`
	Title         string          `json:"title"`
	OverallStatus string          `json:"overall_status"`
	CurrentStage  string          `json:"current_stage"`
	ProjectType   string          `json:"project_type"`
	StagesLocked  bool            `json:"stages_locked"`
	Stages        []StageResponse `json:"stages"`
	Student       *UserLite       `json:"student,omitempty"`
	Group         *GroupLite      `json:"group,omitempty"`
	Supervisor    UserLite        `json:"supervisor"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewUserLite converts a user model into its summary DTO.
func NewUserLite(user models.User) UserLite {
	return UserLite{
		ID:     user.ID,
		AuthID: user.AuthID,
		Name:   user.Name,
		Email:  user.Email,
	}
}

// NewProjectResponse converts a project aggregate into a DTO with stages
// sorted by order.
func NewProjectResponse(project models.Project) ProjectResponse {
	response := ProjectResponse{
		ID:            project.ID,
		Title:         project.Title,
		OverallStatus: project.OverallStatus,
		CurrentStage:  project.CurrentStage,
		ProjectType:   project.ProjectType,
		StagesLocked:  project.StagesLocked,
		Stages:        NewStageResponseSlice(project.StageMapValue()),
		CreatedAt:     project.CreatedAt,
		UpdatedAt:     project.UpdatedAt,
	}

	if project.Student != nil {
		student := NewUserLite(*project.Student)
		response.Student = &student
	}

	if project.Group != nil {
		members := make([]UserLite, 0, len(project.Group.Members))
		for _, member := range project.Group.Members {
			members = append(members, NewUserLite(member))
		}
		response.Group = &GroupLite{ID: project.Group.ID, Name: project.Group.Name, Members: members}
	}

	if project.Supervisor.ID != 0 {
		response.Supervisor = NewUserLite(project.Supervisor)
	}

	return response
}

// NewProjectResponseSlice converts project models into DTOs.
func NewProjectResponseSlice(projects []models.Project) []ProjectResponse {
	responses := make([]ProjectResponse, 0, len(projects))
	for _, project := range projects {
		responses = append(responses, NewProjectResponse(project))
	}

	return responses
}
