package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-tracker/internal/models"
)

func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:1",
		DialTimeout:  50 * time.Millisecond,
		ReadTimeout:  50 * time.Millisecond,
		WriteTimeout: 50 * time.Millisecond,
		MaxRetries:   -1,
	})
	t.Cleanup(func() {
		rdb.Close()
	})
	return rdb
}

func newTestCache(t *testing.T, ttl time.Duration) (*TaskListCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
	})
	return NewTaskListCache(rdb, ttl), mr
}

func TestUserTasksKey(t *testing.T) {
	assert.Equal(t, "tasks:user:42", userTasksKey(42))
	assert.Equal(t, "tasks:user:42:version", userVersionKey(42))
}

func TestTaskListCache_RoundTrip(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()
	want := []models.Task{
		{ID: 1, UserID: 7, Content: "buy milk"},
		{ID: 2, UserID: 7, Content: "walk dog", Completed: true},
	}

	_, version, ok := c.GetUserTasks(ctx, 7)
	require.False(t, ok)
	assert.Equal(t, int64(0), version)

	c.SetUserTasks(ctx, 7, version, want)

	got, _, ok := c.GetUserTasks(ctx, 7)
	require.True(t, ok)
	require.Len(t, got, 2)
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].UserID, got[i].UserID)
		assert.Equal(t, want[i].Content, got[i].Content)
		assert.Equal(t, want[i].Completed, got[i].Completed)
	}
}

func TestTaskListCache_EmptyListIsNonNil(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.SetUserTasks(ctx, 3, 0, []models.Task{})

	got, _, ok := c.GetUserTasks(ctx, 3)
	require.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTaskListCache_InvalidateRemovesKey(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.SetUserTasks(ctx, 5, 0, []models.Task{{ID: 1, UserID: 5, Content: "buy milk"}})
	require.True(t, mr.Exists(userTasksKey(5)))

	c.InvalidateUser(ctx, 5)

	assert.False(t, mr.Exists(userTasksKey(5)))
	_, version, ok := c.GetUserTasks(ctx, 5)
	assert.False(t, ok)
	assert.Equal(t, int64(1), version)
}

func TestTaskListCache_StaleVersionIsNotStored(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, version, ok := c.GetUserTasks(ctx, 9)
	require.False(t, ok)

	// a mutation lands between the read and the fill
	c.InvalidateUser(ctx, 9)
	c.SetUserTasks(ctx, 9, version, []models.Task{{ID: 1, UserID: 9, Content: "old"}})
	assert.False(t, mr.Exists(userTasksKey(9)))

	_, version, _ = c.GetUserTasks(ctx, 9)
	c.SetUserTasks(ctx, 9, version, []models.Task{{ID: 1, UserID: 9, Content: "new"}})
	got, _, ok := c.GetUserTasks(ctx, 9)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Content)
}

func TestTaskListCache_TTL(t *testing.T) {
	c, mr := newTestCache(t, 30*time.Second)
	ctx := context.Background()

	c.SetUserTasks(ctx, 2, 0, []models.Task{{ID: 1, UserID: 2, Content: "buy milk"}})
	assert.Equal(t, 30*time.Second, mr.TTL(userTasksKey(2)))

	mr.FastForward(31 * time.Second)

	_, _, ok := c.GetUserTasks(ctx, 2)
	assert.False(t, ok)
}

func TestTaskListCache_ZeroTTLNeverExpires(t *testing.T) {
	c, mr := newTestCache(t, 0)
	ctx := context.Background()

	c.SetUserTasks(ctx, 2, 0, []models.Task{{ID: 1, UserID: 2, Content: "buy milk"}})
	require.True(t, mr.Exists(userTasksKey(2)))
	assert.Zero(t, mr.TTL(userTasksKey(2)))
}

func TestTaskListCache_UnreachableIsMiss(t *testing.T) {
	c := NewTaskListCache(unreachableClient(t), time.Minute)
	ctx := context.Background()

	// Writes must not panic or block when Redis is down
	c.SetUserTasks(ctx, 1, 0, []models.Task{{ID: 1, UserID: 1, Content: "buy milk"}})
	c.InvalidateUser(ctx, 1)

	tasks, version, ok := c.GetUserTasks(ctx, 1)
	require.False(t, ok)
	assert.Nil(t, tasks)
	assert.Equal(t, noFill, version)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	assert.Nil(t, NewRedisClient("127.0.0.1:1", ""))
}
