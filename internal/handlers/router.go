package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker/internal/middleware"
)

// Routes groups the handlers served by the application
type Routes struct {
	Auth       *AuthHandler
	Tasks      *TaskHandler
	Live       gin.HandlerFunc
	TaskLookup middleware.TaskLookup
}

// Register mounts every route on r. Session middleware must already be installed.
func (rt Routes) Register(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Task Tracker is running",
		})
	})

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/tasks")
	})

	r.GET("/login", rt.Auth.LoginPage)
	r.POST("/login", rt.Auth.Login)
	r.GET("/register", rt.Auth.RegisterPage)
	r.POST("/register", rt.Auth.Register)
	r.GET("/logout", rt.Auth.Logout)
	r.POST("/logout", rt.Auth.Logout)
	r.GET("/me", middleware.RequireAuth(), rt.Auth.Me)

	tasks := r.Group("/tasks")
	tasks.Use(middleware.RequireAuth())
	{
		tasks.GET("", rt.Tasks.ListTasks)
		tasks.POST("", rt.Tasks.CreateTask)
		tasks.POST("/generate", rt.Tasks.GenerateTasks)
		tasks.GET("/:id", middleware.RequireTaskAccess(rt.TaskLookup), rt.Tasks.GetTask)
		tasks.PATCH("/:id/toggle", middleware.RequireTaskAccess(rt.TaskLookup), rt.Tasks.ToggleTask)
		tasks.DELETE("/:id", middleware.RequireTaskAccess(rt.TaskLookup), rt.Tasks.DeleteTask)
	}

	if rt.Live != nil {
		r.GET("/ws", middleware.RequireAuth(), rt.Live)
	}
}
