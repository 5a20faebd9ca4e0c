package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"tasky-api/internal/auth"
	"tasky-api/internal/tasks"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth  *auth.Service
	Tasks *tasks.Service

	// Ping reports database health; nil means always healthy.
	Ping func(ctx context.Context) error
}

// --- Health ---

func (h Handlers) Health(c *gin.Context) {
	if h.Ping != nil {
		if err := h.Ping(c.Request.Context()); err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Auth ---

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := h.Auth.Register(requestContext(c), auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := h.Auth.Login(requestContext(c), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) Profile(c *gin.Context) {
	caller, ok := auth.CallerFrom(c.Request.Context())
	if !ok {
		writeError(c, auth.ErrUnauthenticated)
		return
	}
	p, err := h.Auth.Profile(c.Request.Context(), caller.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// --- Tasks ---

type createTaskRequest struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      tasks.Status `json:"status"`
	DueDate     *string      `json:"dueDate"`
}

type updateTaskRequest struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Status      *tasks.Status  `json:"status"`
	DueDate     nullableString `json:"dueDate"`
}

// nullableString tells an absent field from an explicit null.
type nullableString struct {
	Set   bool
	Value *string
}

func (n *nullableString) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

func (h Handlers) CreateTask(c *gin.Context) {
	caller, ok := auth.CallerFrom(c.Request.Context())
	if !ok {
		writeError(c, auth.ErrUnauthenticated)
		return
	}
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, err := h.Tasks.Create(c.Request.Context(), caller.ID, tasks.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     due,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h Handlers) ListTasks(c *gin.Context) {
	caller, ok := auth.CallerFrom(c.Request.Context())
	if !ok {
		writeError(c, auth.ErrUnauthenticated)
		return
	}
	out, err := h.Tasks.List(c.Request.Context(), caller.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) GetTask(c *gin.Context) {
	caller, ok := auth.CallerFrom(c.Request.Context())
	if !ok {
		writeError(c, auth.ErrUnauthenticated)
		return
	}
	t, err := h.Tasks.Get(c.Request.Context(), c.Param("id"), caller.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h Handlers) UpdateTask(c *gin.Context) {
	caller, ok := auth.CallerFrom(c.Request.Context())
	if !ok {
		writeError(c, auth.ErrUnauthenticated)
		return
	}
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	in := tasks.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	}
	// A present but null or empty dueDate removes the date.
	if req.DueDate.Set {
		due, err := parseDueDate(req.DueDate.Value)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		in.DueDate = due
		in.ClearDueDate = due == nil
	}

	t, err := h.Tasks.Update(c.Request.Context(), c.Param("id"), caller.ID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h Handlers) DeleteTask(c *gin.Context) {
	caller, ok := auth.CallerFrom(c.Request.Context())
	if !ok {
		writeError(c, auth.ErrUnauthenticated)
		return
	}
	if err := h.Tasks.Delete(c.Request.Context(), c.Param("id"), caller.ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// requestContext carries the router's client IP into the service layer.
func requestContext(c *gin.Context) context.Context {
	return auth.WithClientIP(c.Request.Context(), c.ClientIP())
}

// parseDueDate accepts RFC 3339 timestamps and plain dates (2006-01-02).
func parseDueDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	s := strings.TrimSpace(*raw)
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errInvalidDueDate
}
