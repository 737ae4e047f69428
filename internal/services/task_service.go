package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/database"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/queue"
	"github.com/yukikurage/task-tracker/internal/repository"
	"github.com/yukikurage/task-tracker/internal/utils"
)

var (
	ErrTaskNotFound           = fmt.Errorf("task %w", repository.ErrNotFound)
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
	ErrAITooManyTasks         = fmt.Errorf("AI generated too many tasks (max %d)", constants.MaxAIGeneratedTasks)
)

// TaskCache caches a user's full task list. Implementations log their own
// failures and report them as misses.
//
// A miss returns the list's current version. SetUserTasks stores the list only
// if no InvalidateUser has happened since that version was read, so a list
// read from the database before a concurrent mutation is never cached.
type TaskCache interface {
	GetUserTasks(ctx context.Context, userID uint64) (tasks []models.Task, version int64, ok bool)
	SetUserTasks(ctx context.Context, userID uint64, version int64, tasks []models.Task)
	InvalidateUser(ctx context.Context, userID uint64)
}

// TaskService handles task business logic
type TaskService struct {
	taskRepo  repository.TaskRepository
	cache     TaskCache
	publisher queue.Publisher
	generator TaskGenerator
}

// NewTaskService creates a new TaskService. cache, publisher and generator may be nil.
func NewTaskService(taskRepo repository.TaskRepository, cache TaskCache, publisher queue.Publisher, generator TaskGenerator) *TaskService {
	return &TaskService{
		taskRepo:  taskRepo,
		cache:     cache,
		publisher: publisher,
		generator: generator,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	UserID  uint64 `validate:"required"`
	Content string `validate:"task_content"`
}

// Get returns a task by ID
func (s *TaskService) Get(ctx context.Context, id uint64) (*models.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id)
	}
	return task, nil
}

// GetOwned returns a task only when it belongs to userID. Tasks of other
// users are reported as not found.
func (s *TaskService) GetOwned(ctx context.Context, id, userID uint64) (*models.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, fmt.Errorf("%w (id %d)", ErrTaskNotFound, id)
	}
	return task, nil
}

// GetUserTasks returns all tasks of a user ordered by ID
func (s *TaskService) GetUserTasks(ctx context.Context, userID uint64) ([]models.Task, error) {
	var version int64
	if s.cache != nil {
		tasks, v, ok := s.cache.GetUserTasks(ctx, userID)
		if ok {
			return tasks, nil
		}
		version = v
	}

	tasks, err := s.taskRepo.GetAllWhere(ctx,
		repository.Eq("user_id", userID),
		repository.OrderBy("id", false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	if s.cache != nil {
		s.cache.SetUserTasks(ctx, userID, version, tasks)
	}
	return tasks, nil
}

// ListUserTasks returns one page of a user's tasks and the total count
func (s *TaskService) ListUserTasks(ctx context.Context, userID uint64, params utils.PaginationParams) ([]models.Task, int64, error) {
	owned := repository.Eq("user_id", userID)

	total, err := s.taskRepo.Count(ctx, owned)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	tasks, err := s.taskRepo.GetAllWhere(ctx,
		owned,
		repository.OrderBy("id", false),
		database.Paginate(params),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// Add creates a new, not yet completed task for a user
func (s *TaskService) Add(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	input.Content = strings.TrimSpace(input.Content)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	task, err := s.taskRepo.Create(ctx, &models.Task{
		UserID:    input.UserID,
		Content:   input.Content,
		Completed: false,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConstraintViolation) {
			return nil, fmt.Errorf("%w (id %d)", ErrUserNotFound, input.UserID)
		}
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.afterMutation(ctx, queue.TaskCreated, *task)
	return task, nil
}

// Delete removes a task
func (s *TaskService) Delete(ctx context.Context, id uint64) error {
	task, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return s.translate(err, id)
	}

	s.afterMutation(ctx, queue.TaskDeleted, *task)
	return nil
}

// ChangeStatus flips the completed flag of a task. The read and the write are
// separate steps, so two concurrent calls may both write the same value.
func (s *TaskService) ChangeStatus(ctx context.Context, id uint64) (*models.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	completed := !task.Completed
	updated, err := s.taskRepo.Update(ctx, id, models.TaskPatch{Completed: &completed})
	if err != nil {
		return nil, s.translate(err, id)
	}

	s.afterMutation(ctx, queue.TaskUpdated, *updated)
	return updated, nil
}

// GenerateTasksInput represents input for AI task generation
type GenerateTasksInput struct {
	Text   string `validate:"required"`
	UserID uint64 `validate:"required"`
}

// GenerateTasks extracts tasks from free text and stores the valid ones for the user
func (s *TaskService) GenerateTasks(ctx context.Context, input GenerateTasksInput) ([]models.Task, error) {
	if s.generator == nil {
		return nil, ErrAIServiceNotConfigured
	}
	input.Text = strings.TrimSpace(input.Text)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	contents, err := s.generator.GenerateTaskContents(ctx, input.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(contents) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(contents) > constants.MaxAIGeneratedTasks {
		return nil, ErrAITooManyTasks
	}

	created := make([]models.Task, 0, len(contents))
	for _, content := range contents {
		task, err := s.Add(ctx, CreateTaskInput{UserID: input.UserID, Content: content})
		if err != nil {
			var validationErr *ValidationError
			if errors.As(err, &validationErr) {
				continue
			}
			return nil, err
		}
		created = append(created, *task)
	}

	if len(created) == 0 {
		return nil, ErrAINoValidTasks
	}

	return created, nil
}

func (s *TaskService) translate(err error, id uint64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w (id %d)", ErrTaskNotFound, id)
	}
	return fmt.Errorf("task %d: %w", id, err)
}

// afterMutation drops the owner's cached list and publishes an event.
// Neither failure is reported to the caller.
func (s *TaskService) afterMutation(ctx context.Context, eventType queue.EventType, task models.Task) {
	if s.cache != nil {
		s.cache.InvalidateUser(ctx, task.UserID)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, queue.NewTaskEvent(eventType, task)); err != nil {
			log.Printf("Failed to publish %s for task %d: %v", eventType, task.ID, err)
		}
	}
}
