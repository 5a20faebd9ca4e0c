package httpapi

import (
	"github.com/gin-gonic/gin"
)

// Register mounts the API under /api/v1. authMW guards every route except
// health, register and login.
func Register(r *gin.Engine, h Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", h.Health)

	v1 := r.Group("/api/v1")
	v1.GET("", h.Health)

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.GET("/profile", authMW, h.Profile)
	}

	todos := v1.Group("/todos")
	todos.Use(authMW)
	{
		todos.POST("", h.CreateTask)
		todos.GET("", h.ListTasks)
		todos.GET("/:id", h.GetTask)
		todos.PUT("/:id", h.UpdateTask)
		todos.DELETE("/:id", h.DeleteTask)
	}
}
