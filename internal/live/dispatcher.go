package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/repository"
	"github.com/yukikurage/task-tracker/internal/services"
)

// TaskOperations is the part of services.TaskService the channel drives
type TaskOperations interface {
	Add(ctx context.Context, input services.CreateTaskInput) (*models.Task, error)
	GetOwned(ctx context.Context, id, userID uint64) (*models.Task, error)
	Delete(ctx context.Context, id uint64) error
	ChangeStatus(ctx context.Context, id uint64) (*models.Task, error)
}

// Dispatcher turns raw channel messages into task operations
type Dispatcher struct {
	tasks TaskOperations
}

func NewDispatcher(tasks TaskOperations) *Dispatcher {
	return &Dispatcher{tasks: tasks}
}

// Handle processes one message on behalf of userID. Failures are reported in
// the reply and never returned, so one bad message cannot end the connection.
func (d *Dispatcher) Handle(ctx context.Context, userID uint64, raw []byte) Reply {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return failure(fmt.Sprintf("invalid message: %v", err))
	}

	switch msg.Action {
	case ActionAdd:
		task, err := d.tasks.Add(ctx, services.CreateTaskInput{UserID: userID, Content: msg.Content})
		if err != nil {
			return errorReply(err)
		}
		return success(ActionAdd, task.ID)

	case ActionDelete:
		if msg.ID == nil {
			return errorReply(ErrIDRequired)
		}
		if _, err := d.tasks.GetOwned(ctx, *msg.ID, userID); err != nil {
			return errorReply(err)
		}
		if err := d.tasks.Delete(ctx, *msg.ID); err != nil {
			return errorReply(err)
		}
		return success(ActionDelete, *msg.ID)

	case ActionUpdate:
		if msg.ID == nil {
			return errorReply(ErrIDRequired)
		}
		if _, err := d.tasks.GetOwned(ctx, *msg.ID, userID); err != nil {
			return errorReply(err)
		}
		task, err := d.tasks.ChangeStatus(ctx, *msg.ID)
		if err != nil {
			return errorReply(err)
		}
		return success(ActionUpdate, task.ID)

	default:
		return Reply{
			Status: StatusFailure,
			Error:  fmt.Sprintf("%v: %s", ErrUnknownAction, msg.Action),
		}
	}
}

func errorReply(err error) Reply {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, ErrIDRequired),
		errors.Is(err, repository.ErrNotFound):
		return failure(err.Error())
	default:
		log.Printf("live: task operation failed: %v", err)
		return failure("internal server error")
	}
}
