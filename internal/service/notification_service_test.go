package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/thesishub/thesishub-api/internal/dto"
	"github.com/thesishub/thesishub-api/internal/models"
)

type fakeNotificationRepo struct {
	notifications []models.Notification
	nextID        uint
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{nextID: 1}
}

func (f *fakeNotificationRepo) Create(_ context.Context, notification *models.Notification) error {
	notification.ID = f.nextID
	f.nextID++
	f.notifications = append(f.notifications, *notification)
	return nil
}

func (f *fakeNotificationRepo) ListByUser(_ context.Context, userID string, _, _ int) ([]models.Notification, error) {
	var matched []models.Notification
	for _, notification := range f.notifications {
		if notification.UserID == userID {
			matched = append(matched, notification)
		}
	}
	return matched, nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, id uint, userID string) (models.Notification, error) {
	for i, notification := range f.notifications {
		if notification.ID == id && notification.UserID == userID {
			f.notifications[i].Read = true
			return f.notifications[i], nil
		}
	}
	return models.Notification{}, gorm.ErrRecordNotFound
}

func newNotificationFixture() (*fakeNotificationRepo, NotificationService) {
	repo := newFakeNotificationRepo()
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewNotificationService(repo, nil, "", nil, validate, testLogger())
	return repo, svc
}

func TestPublishPersistsAndSanitizes(t *testing.T) {
	repo, svc := newNotificationFixture()

	response, err := svc.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:    "auth-student",
		ProjectID: 1,
		Type:      models.NotificationTypeSubmission,
		Message:   `New submission <img src="x" onerror="alert(1)"> awaiting review`,
	})
	require.NoError(t, err)
	require.NotZero(t, response.ID)
	require.NotContains(t, response.Message, "img")
	require.Contains(t, response.Message, "New submission")

	require.Len(t, repo.notifications, 1)
	require.Equal(t, response.Message, repo.notifications[0].Message)
}

func TestPublishRejectsUnknownType(t *testing.T) {
	repo, svc := newNotificationFixture()

	_, err := svc.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:  "auth-student",
		Type:    "carrier_pigeon",
		Message: "hello",
	})
	require.Error(t, err)
	require.Empty(t, repo.notifications)
}

func TestPublishRejectsEmptyAfterSanitization(t *testing.T) {
	repo, svc := newNotificationFixture()

	_, err := svc.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:  "auth-student",
		Type:    models.NotificationTypeGeneral,
		Message: `<script>alert("x")</script>`,
	})
	require.Error(t, err)
	require.Empty(t, repo.notifications)
}

func TestSubscribeReceivesPublishedNotifications(t *testing.T) {
	_, svc := newNotificationFixture()

	stream, cleanup := svc.Subscribe("auth-student")
	defer cleanup()

	_, err := svc.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:  "auth-student",
		Type:    models.NotificationTypeApproval,
		Message: "Your stage was approved.",
	})
	require.NoError(t, err)

	select {
	case notification := <-stream:
		require.Equal(t, models.NotificationTypeApproval, notification.Type)
		require.Equal(t, "Your stage was approved.", notification.Message)
	case <-time.After(time.Second):
		t.Fatal("expected a streamed notification")
	}
}

func TestSubscribeIsScopedToUser(t *testing.T) {
	_, svc := newNotificationFixture()

	stream, cleanup := svc.Subscribe("auth-other")
	defer cleanup()

	_, err := svc.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:  "auth-student",
		Type:    models.NotificationTypeGeneral,
		Message: "not for you",
	})
	require.NoError(t, err)

	select {
	case notification := <-stream:
		t.Fatalf("unexpected notification for other user: %+v", notification)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMarkReadFlipsFlag(t *testing.T) {
	repo, svc := newNotificationFixture()

	published, err := svc.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:  "auth-student",
		Type:    models.NotificationTypeReminder,
		Message: "Deadline tomorrow.",
	})
	require.NoError(t, err)

	read, err := svc.MarkRead(context.Background(), published.ID, "auth-student")
	require.NoError(t, err)
	require.True(t, read.Read)
	require.True(t, repo.notifications[0].Read)

	_, err = svc.MarkRead(context.Background(), published.ID, "auth-someone-else")
	require.Error(t, err)
}
