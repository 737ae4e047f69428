package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/queue"
	"github.com/yukikurage/task-tracker/internal/repository"
	"github.com/yukikurage/task-tracker/internal/utils"
	"gorm.io/gorm"
)

type TaskServiceTestSuite struct {
	suite.Suite
	db        *gorm.DB
	ctx       context.Context
	auth      *AuthService
	cache     *memoryCache
	publisher *recordingPublisher
	generator *stubGenerator
	service   *TaskService
}

func (s *TaskServiceTestSuite) SetupTest() {
	s.db = setupTestDB(s.T())
	s.ctx = context.Background()
	s.auth = NewAuthService(repository.NewUserRepository(s.db), testBcryptCost)
	s.cache = newMemoryCache()
	s.publisher = &recordingPublisher{}
	s.generator = &stubGenerator{}
	s.service = NewTaskService(repository.NewTaskRepository(s.db), s.cache, s.publisher, s.generator)
}

func (s *TaskServiceTestSuite) createUser(username string) *models.User {
	user, err := s.auth.Register(s.ctx, RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret1",
	})
	s.Require().NoError(err)
	return user
}

func (s *TaskServiceTestSuite) addTask(userID uint64, content string) *models.Task {
	task, err := s.service.Add(s.ctx, CreateTaskInput{UserID: userID, Content: content})
	s.Require().NoError(err)
	return task
}

func (s *TaskServiceTestSuite) TestAdd() {
	user := s.createUser("alice")

	task, err := s.service.Add(s.ctx, CreateTaskInput{UserID: user.ID, Content: "  buy milk  "})
	s.Require().NoError(err)
	s.NotZero(task.ID)
	s.Equal("buy milk", task.Content)
	s.False(task.Completed)
	s.Equal(user.ID, task.UserID)
	s.Equal([]queue.EventType{queue.TaskCreated}, s.publisher.types())
}

func (s *TaskServiceTestSuite) TestAdd_Validation() {
	user := s.createUser("alice")

	_, err := s.service.Add(s.ctx, CreateTaskInput{UserID: user.ID, Content: "ab"})
	var validationErr *ValidationError
	s.Require().ErrorAs(err, &validationErr)
	s.Equal("content must be at least 3 characters", validationErr.Message)

	_, err = s.service.Add(s.ctx, CreateTaskInput{UserID: user.ID, Content: strings.Repeat("x", 129)})
	s.Require().ErrorAs(err, &validationErr)
	s.Equal("content must be at most 128 characters", validationErr.Message)

	s.Empty(s.publisher.types())
}

func (s *TaskServiceTestSuite) TestAdd_UnknownUser() {
	_, err := s.service.Add(s.ctx, CreateTaskInput{UserID: 4242, Content: "orphan"})
	s.Require().ErrorIs(err, ErrUserNotFound)
}

func (s *TaskServiceTestSuite) TestGet_NotFound() {
	_, err := s.service.Get(s.ctx, 77)
	s.Require().ErrorIs(err, ErrTaskNotFound)
	s.Require().ErrorIs(err, repository.ErrNotFound)
	s.Contains(err.Error(), "77")
}

func (s *TaskServiceTestSuite) TestGetUserTasks_OnlyOwnTasks() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	s.addTask(alice.ID, "alice one")
	s.addTask(bob.ID, "bob one")
	s.addTask(alice.ID, "alice two")

	tasks, err := s.service.GetUserTasks(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Require().Len(tasks, 2)
	s.Equal("alice one", tasks[0].Content)
	s.Equal("alice two", tasks[1].Content)
	for _, task := range tasks {
		s.Equal(alice.ID, task.UserID)
	}

	none, err := s.service.GetUserTasks(s.ctx, 999)
	s.Require().NoError(err)
	s.NotNil(none)
	s.Empty(none)
}

func (s *TaskServiceTestSuite) TestGetUserTasks_CacheInvalidatedOnMutation() {
	alice := s.createUser("alice")
	task := s.addTask(alice.ID, "first")

	_, err := s.service.GetUserTasks(s.ctx, alice.ID)
	s.Require().NoError(err)
	_, err = s.service.GetUserTasks(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Equal(1, s.cache.hits)

	_, err = s.service.ChangeStatus(s.ctx, task.ID)
	s.Require().NoError(err)

	tasks, err := s.service.GetUserTasks(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.True(tasks[0].Completed)
	s.Equal(1, s.cache.hits)
	s.Contains(s.cache.invalidated, alice.ID)
}

// racingTaskRepository runs afterRead once, between a list query and its return
type racingTaskRepository struct {
	repository.TaskRepository
	afterRead func()
}

func (r *racingTaskRepository) GetAllWhere(ctx context.Context, scopes ...repository.Scope) ([]models.Task, error) {
	tasks, err := r.TaskRepository.GetAllWhere(ctx, scopes...)
	if hook := r.afterRead; hook != nil {
		r.afterRead = nil
		hook()
	}
	return tasks, err
}

func (s *TaskServiceTestSuite) TestGetUserTasks_MutationDuringReadIsNotCached() {
	alice := s.createUser("alice")
	s.addTask(alice.ID, "first")

	repo := &racingTaskRepository{TaskRepository: repository.NewTaskRepository(s.db)}
	svc := NewTaskService(repo, s.cache, s.publisher, s.generator)
	repo.afterRead = func() {
		_, err := svc.Add(s.ctx, CreateTaskInput{UserID: alice.ID, Content: "second"})
		s.Require().NoError(err)
	}

	tasks, err := svc.GetUserTasks(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Len(tasks, 1)

	tasks, err = svc.GetUserTasks(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Require().Len(tasks, 2)
	s.Equal("second", tasks[1].Content)
	s.Equal(0, s.cache.hits)
}

func (s *TaskServiceTestSuite) TestListUserTasks() {
	alice := s.createUser("alice")
	for _, content := range []string{"one", "two", "three", "four", "five"} {
		s.addTask(alice.ID, content)
	}

	tasks, total, err := s.service.ListUserTasks(s.ctx, alice.ID, utils.PaginationParams{Page: 2, Limit: 2, Offset: 2})
	s.Require().NoError(err)
	s.Equal(int64(5), total)
	s.Require().Len(tasks, 2)
	s.Equal("three", tasks[0].Content)
	s.Equal("four", tasks[1].Content)
}

func (s *TaskServiceTestSuite) TestChangeStatus_TogglesTwice() {
	alice := s.createUser("alice")
	task := s.addTask(alice.ID, "buy milk")

	toggled, err := s.service.ChangeStatus(s.ctx, task.ID)
	s.Require().NoError(err)
	s.True(toggled.Completed)

	toggled, err = s.service.ChangeStatus(s.ctx, task.ID)
	s.Require().NoError(err)
	s.False(toggled.Completed)
	s.Equal("buy milk", toggled.Content)
}

func (s *TaskServiceTestSuite) TestChangeStatus_NotFound() {
	_, err := s.service.ChangeStatus(s.ctx, 5)
	s.Require().ErrorIs(err, ErrTaskNotFound)
}

func (s *TaskServiceTestSuite) TestDelete() {
	alice := s.createUser("alice")
	task := s.addTask(alice.ID, "doomed")

	s.Require().NoError(s.service.Delete(s.ctx, task.ID))

	_, err := s.service.Get(s.ctx, task.ID)
	s.Require().ErrorIs(err, ErrTaskNotFound)

	err = s.service.Delete(s.ctx, task.ID)
	s.Require().ErrorIs(err, ErrTaskNotFound)

	s.Equal([]queue.EventType{queue.TaskCreated, queue.TaskDeleted}, s.publisher.types())
}

func (s *TaskServiceTestSuite) TestGetOwned() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	task := s.addTask(alice.ID, "private")

	owned, err := s.service.GetOwned(s.ctx, task.ID, alice.ID)
	s.Require().NoError(err)
	s.Equal(task.ID, owned.ID)

	_, err = s.service.GetOwned(s.ctx, task.ID, bob.ID)
	s.Require().ErrorIs(err, ErrTaskNotFound)
}

func (s *TaskServiceTestSuite) TestPublishFailureDoesNotFailMutation() {
	alice := s.createUser("alice")
	s.publisher.err = errors.New("broker down")

	task, err := s.service.Add(s.ctx, CreateTaskInput{UserID: alice.ID, Content: "still saved"})
	s.Require().NoError(err)

	_, err = s.service.Get(s.ctx, task.ID)
	s.NoError(err)
}

func (s *TaskServiceTestSuite) TestGenerateTasks() {
	alice := s.createUser("alice")
	s.generator.contents = []string{"buy milk", "x", "call the plumber"}

	tasks, err := s.service.GenerateTasks(s.ctx, GenerateTasksInput{Text: " milk and plumber ", UserID: alice.ID})
	s.Require().NoError(err)
	s.Equal("milk and plumber", s.generator.gotText)
	s.Require().Len(tasks, 2)
	s.Equal("buy milk", tasks[0].Content)
	s.Equal("call the plumber", tasks[1].Content)

	stored, err := s.service.GetUserTasks(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Len(stored, 2)
}

func (s *TaskServiceTestSuite) TestGenerateTasks_Failures() {
	alice := s.createUser("alice")

	s.generator.contents = nil
	_, err := s.service.GenerateTasks(s.ctx, GenerateTasksInput{Text: "nothing", UserID: alice.ID})
	s.ErrorIs(err, ErrAINoTasksGenerated)

	s.generator.contents = []string{"a", "b"}
	_, err = s.service.GenerateTasks(s.ctx, GenerateTasksInput{Text: "short", UserID: alice.ID})
	s.ErrorIs(err, ErrAINoValidTasks)

	s.generator.contents = make([]string, constants.MaxAIGeneratedTasks+1)
	_, err = s.service.GenerateTasks(s.ctx, GenerateTasksInput{Text: "lots", UserID: alice.ID})
	s.ErrorIs(err, ErrAITooManyTasks)

	s.generator.contents = nil
	s.generator.err = errors.New("rate limited")
	_, err = s.service.GenerateTasks(s.ctx, GenerateTasksInput{Text: "boom", UserID: alice.ID})
	s.ErrorContains(err, "rate limited")
}

func (s *TaskServiceTestSuite) TestGenerateTasks_NotConfigured() {
	svc := NewTaskService(repository.NewTaskRepository(s.db), nil, nil, nil)
	_, err := svc.GenerateTasks(s.ctx, GenerateTasksInput{Text: "anything", UserID: 1})
	s.ErrorIs(err, ErrAIServiceNotConfigured)
}

// End-to-end walk through registration, add, toggle and delete
func (s *TaskServiceTestSuite) TestScenario() {
	user, err := s.auth.Register(s.ctx, RegisterInput{Username: "alice", Email: "a@x.com", Password: "secret1"})
	s.Require().NoError(err)

	task, err := s.service.Add(s.ctx, CreateTaskInput{UserID: user.ID, Content: "buy milk"})
	s.Require().NoError(err)

	toggled, err := s.service.ChangeStatus(s.ctx, task.ID)
	s.Require().NoError(err)
	s.True(toggled.Completed)

	s.Require().NoError(s.service.Delete(s.ctx, task.ID))

	_, err = s.service.Get(s.ctx, task.ID)
	s.ErrorIs(err, ErrTaskNotFound)
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}

// fakeTaskRepository records the patch ChangeStatus sends
type fakeTaskRepository struct {
	repository.TaskRepository
	task      models.Task
	lastPatch repository.Patch[models.Task]
}

func (f *fakeTaskRepository) GetByID(_ context.Context, id uint64) (*models.Task, error) {
	if id != f.task.ID {
		return nil, repository.ErrNotFound
	}
	task := f.task
	return &task, nil
}

func (f *fakeTaskRepository) Update(_ context.Context, id uint64, patch repository.Patch[models.Task]) (*models.Task, error) {
	f.lastPatch = patch
	patch.Apply(&f.task)
	task := f.task
	return &task, nil
}

func TestTaskService_ChangeStatus_SendsCompletedOnlyPatch(t *testing.T) {
	repo := &fakeTaskRepository{task: models.Task{ID: 3, UserID: 1, Content: "buy milk"}}
	svc := NewTaskService(repo, nil, nil, nil)

	task, err := svc.ChangeStatus(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, task.Completed)

	patch, ok := repo.lastPatch.(models.TaskPatch)
	require.True(t, ok)
	assert.Nil(t, patch.Content)
	require.NotNil(t, patch.Completed)
	assert.True(t, *patch.Completed)
}

func TestParseTaskContents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{name: "plain", input: `["a task", "another"]`, want: []string{"a task", "another"}},
		{name: "fenced", input: "```json\n[\"buy milk\"]\n```", want: []string{"buy milk"}},
		{name: "empty", input: `[]`, want: []string{}},
		{name: "prose", input: "Sure! Here you go", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTaskContents(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
