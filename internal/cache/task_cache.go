package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/task-tracker/internal/models"
)

// noFill is returned as the version when the current version is unknown.
// SetUserTasks never stores a list under it.
const noFill int64 = -1

// setIfVersion stores the list only while the version key still holds ARGV[1].
// KEYS[1] list key, KEYS[2] version key, ARGV[2] payload, ARGV[3] ttl in ms, 0 for none.
var setIfVersion = redis.NewScript(`
local current = redis.call('GET', KEYS[2])
if not current then current = '0' end
if current ~= ARGV[1] then return 0 end
if tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
  redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// TaskListCache stores each user's task list as a JSON blob next to a
// version counter that every invalidation bumps.
// Every failure is logged and treated as a miss.
type TaskListCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTaskListCache(rdb *redis.Client, ttl time.Duration) *TaskListCache {
	return &TaskListCache{rdb: rdb, ttl: ttl}
}

func userTasksKey(userID uint64) string {
	return fmt.Sprintf("tasks:user:%d", userID)
}

func userVersionKey(userID uint64) string {
	return fmt.Sprintf("tasks:user:%d:version", userID)
}

// GetUserTasks returns the cached list for userID. On a miss it returns the
// version to pass to SetUserTasks.
func (c *TaskListCache) GetUserTasks(ctx context.Context, userID uint64) ([]models.Task, int64, bool) {
	var listCmd, versionCmd *redis.StringCmd
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		listCmd = pipe.Get(ctx, userTasksKey(userID))
		versionCmd = pipe.Get(ctx, userVersionKey(userID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Printf("cache: get tasks for user %d failed: %v", userID, err)
		return nil, noFill, false
	}

	version, err := versionCmd.Int64()
	if errors.Is(err, redis.Nil) {
		version = 0
	} else if err != nil {
		log.Printf("cache: corrupt version for user %d: %v", userID, err)
		return nil, noFill, false
	}

	data, err := listCmd.Bytes()
	if err != nil {
		return nil, version, false
	}

	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		log.Printf("cache: corrupt task list for user %d: %v", userID, err)
		return nil, version, false
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, version, true
}

// SetUserTasks caches tasks unless the user was invalidated after version was read.
func (c *TaskListCache) SetUserTasks(ctx context.Context, userID uint64, version int64, tasks []models.Task) {
	if version == noFill {
		return
	}

	data, err := json.Marshal(tasks)
	if err != nil {
		log.Printf("cache: marshal tasks for user %d failed: %v", userID, err)
		return
	}

	keys := []string{userTasksKey(userID), userVersionKey(userID)}
	args := []any{strconv.FormatInt(version, 10), data, c.ttl.Milliseconds()}
	if err := setIfVersion.Run(ctx, c.rdb, keys, args...).Err(); err != nil {
		log.Printf("cache: set tasks for user %d failed: %v", userID, err)
	}
}

// InvalidateUser drops the cached list and bumps the version so in-flight
// fills are discarded.
func (c *TaskListCache) InvalidateUser(ctx context.Context, userID uint64) {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, userVersionKey(userID))
		pipe.Del(ctx, userTasksKey(userID))
		return nil
	})
	if err != nil {
		log.Printf("cache: invalidate tasks for user %d failed: %v", userID, err)
	}
}
