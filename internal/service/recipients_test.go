package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thesishub/thesishub-api/internal/models"
)

func TestResolveStudentsPrefersPreloadedAssociations(t *testing.T) {
	student := testStudent
	project := models.Project{StudentID: &student.ID, Student: &student}

	// Empty repos prove no lookup happens when the association is loaded.
	set, err := resolveStudents(context.Background(), project, newFakeUserRepo(), newFakeGroupRepo())
	require.NoError(t, err)
	require.Equal(t, student.Name, set.DisplayName)
	require.Equal(t, []string{student.AuthID}, set.AuthIDs())
}

func TestResolveStudentsFallsBackToRepository(t *testing.T) {
	studentID := testStudent.ID
	project := models.Project{StudentID: &studentID}

	set, err := resolveStudents(context.Background(), project, newFakeUserRepo(testStudent), newFakeGroupRepo())
	require.NoError(t, err)
	require.Equal(t, testStudent.Name, set.DisplayName)

	info := set.Info()
	require.Len(t, info, 1)
	require.Equal(t, testStudent.Email, info[0].Email)
}

func TestResolveStudentsLoadsGroupMembers(t *testing.T) {
	members := []models.User{
		{ID: 30, AuthID: "auth-a", Name: "Member A"},
		{ID: 31, AuthID: "auth-b", Name: "Member B"},
	}
	group := models.Group{ID: 7, Name: "Team Paxos", Members: members}
	groupID := group.ID
	project := models.Project{GroupID: &groupID}

	set, err := resolveStudents(context.Background(), project, newFakeUserRepo(), newFakeGroupRepo(group))
	require.NoError(t, err)
	require.Equal(t, "Team Paxos", set.DisplayName)
	require.ElementsMatch(t, []string{"auth-a", "auth-b"}, set.AuthIDs())
}

func TestResolveStudentsWithoutOwner(t *testing.T) {
	_, err := resolveStudents(context.Background(), models.Project{}, newFakeUserRepo(), newFakeGroupRepo())
	require.ErrorIs(t, err, ErrNoRecipients)
}

func TestRecipientSetLocation(t *testing.T) {
	set := RecipientSet{Users: []models.User{
		{AuthID: "auth-a", TimeZone: ""},
		{AuthID: "auth-b", TimeZone: "Asia/Tokyo"},
		{AuthID: "auth-c", TimeZone: "Europe/Berlin"},
	}}

	loc, err := set.Location()
	require.NoError(t, err)
	require.Equal(t, "Asia/Tokyo", loc.String(), "first non-empty zone wins")
}

func TestRecipientSetLocationDefaultsToUTC(t *testing.T) {
	set := RecipientSet{Users: []models.User{{AuthID: "auth-a"}}}

	loc, err := set.Location()
	require.NoError(t, err)
	require.Equal(t, time.UTC, loc)
}

func TestRecipientSetLocationRejectsInvalidZone(t *testing.T) {
	set := RecipientSet{Users: []models.User{{AuthID: "auth-a", TimeZone: "Mars/Olympus"}}}

	_, err := set.Location()
	require.Error(t, err)
	require.Contains(t, err.Error(), "Mars/Olympus")
}
