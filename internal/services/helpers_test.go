package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/queue"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:?_foreign_keys=on"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Task{}))
	return db
}

const testBcryptCost = bcrypt.MinCost

// memoryCache is an in-process TaskCache with the same version rule as Redis
type memoryCache struct {
	mu          sync.Mutex
	lists       map[uint64][]models.Task
	versions    map[uint64]int64
	hits        int
	invalidated []uint64
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		lists:    make(map[uint64][]models.Task),
		versions: make(map[uint64]int64),
	}
}

func (c *memoryCache) GetUserTasks(_ context.Context, userID uint64) ([]models.Task, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tasks, ok := c.lists[userID]
	if ok {
		c.hits++
	}
	return tasks, c.versions[userID], ok
}

func (c *memoryCache) SetUserTasks(_ context.Context, userID uint64, version int64, tasks []models.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[userID] != version {
		return
	}
	c.lists[userID] = tasks
}

func (c *memoryCache) InvalidateUser(_ context.Context, userID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[userID]++
	delete(c.lists, userID)
	c.invalidated = append(c.invalidated, userID)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.TaskEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event queue.TaskEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []queue.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]queue.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type stubGenerator struct {
	contents []string
	err      error
	gotText  string
}

func (g *stubGenerator) GenerateTaskContents(_ context.Context, text string) ([]string, error) {
	g.gotText = text
	return g.contents, g.err
}
