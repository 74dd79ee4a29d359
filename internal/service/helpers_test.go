package service

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/thesishub/thesishub-api/internal/models"
	"github.com/thesishub/thesishub-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type notifierCall struct {
	UserID    string
	ProjectID uint
	Type      string
	Message   string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
}

func (f *fakeNotifier) Notify(_ context.Context, userID string, projectID uint, notificationType, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notifierCall{UserID: userID, ProjectID: projectID, Type: notificationType, Message: message})
}

func (f *fakeNotifier) callsOfType(notificationType string) []notifierCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []notifierCall
	for _, call := range f.calls {
		if call.Type == notificationType {
			matched = append(matched, call)
		}
	}
	return matched
}

type fakeProjectRepo struct {
	projects  map[uint]models.Project
	nextID    uint
	saveCalls int
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: make(map[uint]models.Project), nextID: 1}
}

func (f *fakeProjectRepo) GetByID(_ context.Context, id uint) (models.Project, error) {
	project, ok := f.projects[id]
	if !ok {
		return models.Project{}, gorm.ErrRecordNotFound
	}
	return project, nil
}

func (f *fakeProjectRepo) List(_ context.Context, filter repository.ProjectFilter) ([]models.Project, error) {
	var projects []models.Project
	for _, project := range f.projects {
		if filter.SupervisorID != nil && project.SupervisorID != *filter.SupervisorID {
			continue
		}
		if filter.Status != nil && project.OverallStatus != *filter.Status {
			continue
		}
		projects = append(projects, project)
	}
	return projects, nil
}

func (f *fakeProjectRepo) ListActive(_ context.Context) ([]models.Project, error) {
	var projects []models.Project
	for _, project := range f.projects {
		if project.OverallStatus != models.ProjectStatusCompleted {
			projects = append(projects, project)
		}
	}
	return projects, nil
}

func (f *fakeProjectRepo) Create(_ context.Context, project *models.Project) error {
	project.ID = f.nextID
	f.nextID++
	f.projects[project.ID] = *project
	return nil
}

func (f *fakeProjectRepo) Save(_ context.Context, project *models.Project) error {
	stored, ok := f.projects[project.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if stored.Version != project.Version {
		return repository.ErrProjectConflict
	}
	project.Version++
	f.projects[project.ID] = *project
	f.saveCalls++
	return nil
}

func (f *fakeProjectRepo) Delete(_ context.Context, id uint) error {
	delete(f.projects, id)
	return nil
}

type fakeTopicRepo struct {
	topics map[uint]models.Topic
	nextID uint
}

func newFakeTopicRepo() *fakeTopicRepo {
	return &fakeTopicRepo{topics: make(map[uint]models.Topic), nextID: 1}
}

func (f *fakeTopicRepo) GetByID(_ context.Context, id uint) (models.Topic, error) {
	topic, ok := f.topics[id]
	if !ok {
		return models.Topic{}, gorm.ErrRecordNotFound
	}
	return topic, nil
}

func (f *fakeTopicRepo) List(_ context.Context, filter repository.TopicFilter) ([]models.Topic, error) {
	var topics []models.Topic
	for _, topic := range f.topics {
		if filter.SupervisorID != nil && topic.SupervisorID != *filter.SupervisorID {
			continue
		}
		if filter.Status != nil && topic.Status != *filter.Status {
			continue
		}
		topics = append(topics, topic)
	}
	return topics, nil
}

func (f *fakeTopicRepo) Create(_ context.Context, topic *models.Topic) error {
	topic.ID = f.nextID
	f.nextID++
	f.topics[topic.ID] = *topic
	return nil
}

func (f *fakeTopicRepo) Update(_ context.Context, topic *models.Topic) error {
	if _, ok := f.topics[topic.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.topics[topic.ID] = *topic
	return nil
}

type fakeMessageRepo struct {
	messages []models.ProjectMessage
	nextID   uint
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{nextID: 1}
}

func (f *fakeMessageRepo) Create(_ context.Context, message *models.ProjectMessage) error {
	message.ID = f.nextID
	f.nextID++
	f.messages = append(f.messages, *message)
	return nil
}

func (f *fakeMessageRepo) ListByProject(_ context.Context, projectID uint, _, _ int) ([]models.ProjectMessage, error) {
	var matched []models.ProjectMessage
	for _, message := range f.messages {
		if message.ProjectID == projectID {
			matched = append(matched, message)
		}
	}
	return matched, nil
}

type fakeUserRepo struct {
	users map[uint]models.User
}

func newFakeUserRepo(users ...models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[uint]models.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uint) (models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByAuthID(_ context.Context, authID string) (models.User, error) {
	for _, user := range f.users {
		if user.AuthID == authID {
			return user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	f.users[user.ID] = *user
	return nil
}

type fakeGroupRepo struct {
	groups map[uint]models.Group
}

func newFakeGroupRepo(groups ...models.Group) *fakeGroupRepo {
	repo := &fakeGroupRepo{groups: make(map[uint]models.Group)}
	for _, group := range groups {
		repo.groups[group.ID] = group
	}
	return repo
}

func (f *fakeGroupRepo) GetByID(_ context.Context, id uint) (models.Group, error) {
	group, ok := f.groups[id]
	if !ok {
		return models.Group{}, gorm.ErrRecordNotFound
	}
	return group, nil
}

func (f *fakeGroupRepo) Create(_ context.Context, group *models.Group) error {
	f.groups[group.ID] = *group
	return nil
}
