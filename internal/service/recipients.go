package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thesishub/thesishub-api/internal/dto"
	"github.com/thesishub/thesishub-api/internal/models"
	"github.com/thesishub/thesishub-api/internal/repository"
)

// ErrNoRecipients indicates a project has neither an owning student nor a group.
var ErrNoRecipients = errors.New("project has no student or group attached")

// RecipientSet is the resolved set of students addressed by a project-level
// notification: a single owner or every member of the attached group. It is
// resolved once per operation and reused for every message the operation sends.
type RecipientSet struct {
	DisplayName string
	Users       []models.User
}

// AuthIDs lists the notification addresses for every recipient.
func (s RecipientSet) AuthIDs() []string {
	ids := make([]string, 0, len(s.Users))
	for _, user := range s.Users {
		ids = append(ids, user.AuthID)
	}
	return ids
}

// Info converts the set into the DTO shape handed back to callers that need to
// trigger follow-up email delivery.
func (s RecipientSet) Info() []dto.RecipientInfo {
	info := make([]dto.RecipientInfo, 0, len(s.Users))
	for _, user := range s.Users {
		info = append(info, dto.RecipientInfo{AuthID: user.AuthID, Name: user.Name, Email: user.Email})
	}
	return info
}

// Location resolves the time zone anchoring deadline comparisons: the first
// recipient with a non-empty zone wins, absent zones fall back to UTC, and an
// unparseable zone is an error so the caller can isolate the failure.
func (s RecipientSet) Location() (*time.Location, error) {
	for _, user := range s.Users {
		if user.TimeZone == "" {
			continue
		}
		loc, err := time.LoadLocation(user.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("invalid time zone %q for user %s: %w", user.TimeZone, user.AuthID, err)
		}
		return loc, nil
	}
	return time.UTC, nil
}

// resolveStudents builds the recipient set for a project, preferring preloaded
// associations and falling back to repository lookups.
func resolveStudents(ctx context.Context, project models.Project, users repository.UserRepository, groups repository.GroupRepository) (RecipientSet, error) {
	if project.GroupID != nil {
		group := project.Group
		if group == nil || len(group.Members) == 0 {
			loaded, err := groups.GetByID(ctx, *project.GroupID)
			if err != nil {
				return RecipientSet{}, err
			}
			group = &loaded
		}
		return RecipientSet{DisplayName: group.Name, Users: group.Members}, nil
	}

	if project.StudentID != nil {
		student := project.Student
		if student == nil {
			loaded, err := users.GetByID(ctx, *project.StudentID)
			if err != nil {
				return RecipientSet{}, err
			}
			student = &loaded
		}
		return RecipientSet{DisplayName: student.Name, Users: []models.User{*student}}, nil
	}

	return RecipientSet{}, ErrNoRecipients
}
