// Package queue publishes task lifecycle events to RabbitMQ so other services
// can react to changes without polling the database.
package queue

import (
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/task-tracker/internal/models"
)

// TaskEventsQueue is the durable queue task events are published to.
const TaskEventsQueue = "task.events"

type EventType string

const (
	TaskCreated EventType = "task.created"
	TaskUpdated EventType = "task.updated"
	TaskDeleted EventType = "task.deleted"
)

// TaskEvent is published after a task mutation commits.
type TaskEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	TaskID     uint64    `json:"task_id"`
	UserID     uint64    `json:"user_id"`
	Content    string    `json:"content"`
	Completed  bool      `json:"completed"`
	OccurredAt string    `json:"occurred_at"`
}

// NewTaskEvent builds an event describing task after a change of kind eventType.
func NewTaskEvent(eventType EventType, task models.Task) TaskEvent {
	return TaskEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		TaskID:     task.ID,
		UserID:     task.UserID,
		Content:    task.Content,
		Completed:  task.Completed,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
