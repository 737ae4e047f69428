package middleware

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker/internal/constants"
	apierrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/repository"
)

// TaskLookup loads a task only if it belongs to userID
type TaskLookup interface {
	GetOwned(ctx context.Context, id, userID uint64) (*models.Task, error)
}

// RequireTaskAccess loads the task named by the :id parameter into the context.
// Tasks of other users answer 404 so their existence is not revealed.
func RequireTaskAccess(tasks TaskLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		task, err := tasks.GetOwned(c.Request.Context(), taskID, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				apierrors.NotFound(c, "Task not found")
			} else {
				log.Printf("Failed to load task %d: %v", taskID, err)
				apierrors.InternalError(c, "")
			}
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTask, *task)
		c.Next()
	}
}

// GetTask retrieves the task stored by RequireTaskAccess
func GetTask(c *gin.Context) (models.Task, bool) {
	value, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return models.Task{}, false
	}
	task, ok := value.(models.Task)
	return task, ok
}
