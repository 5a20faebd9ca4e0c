package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tasky-api/internal/auth"
	"tasky-api/internal/identity"
	"tasky-api/internal/tasks"
	"tasky-api/pkg/logger"
)

const demoPassword = "password123"

type demoUser struct {
	Email     string
	FirstName string
	LastName  string
	Tasks     []tasks.CreateInput
}

func day(s string) *time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return &t
}

var demoUsers = []demoUser{
	{
		Email:     "john.doe@example.com",
		FirstName: "John",
		LastName:  "Doe",
		Tasks: []tasks.CreateInput{
			{Title: "Complete project documentation", Description: "Write comprehensive documentation for the API", Status: tasks.StatusInProgress, DueDate: day("2025-12-15")},
			{Title: "Review pull requests", Description: "Review and merge pending pull requests", Status: tasks.StatusTodo, DueDate: day("2025-12-05")},
			{Title: "Update dependencies", Description: "Update all Go modules to latest versions", Status: tasks.StatusDone, DueDate: day("2025-11-30")},
			{Title: "Implement authentication", Description: "Add JWT authentication to the API", Status: tasks.StatusDone, DueDate: day("2025-11-28")},
		},
	},
	{
		Email:     "jane.smith@example.com",
		FirstName: "Jane",
		LastName:  "Smith",
		Tasks: []tasks.CreateInput{
			{Title: "Design database schema", Description: "Create database schema for user and task entities", Status: tasks.StatusDone, DueDate: day("2025-11-25")},
			{Title: "Setup CI/CD pipeline", Description: "Configure GitHub Actions for continuous integration", Status: tasks.StatusTodo, DueDate: day("2025-12-10")},
			{Title: "Write unit tests", Description: "Add unit tests for all services and handlers", Status: tasks.StatusInProgress, DueDate: day("2025-12-08")},
		},
	},
}

type summary struct {
	UsersCreated int
	UsersSkipped int
	TasksCreated int
}

// seed registers the demo users through the same services the API uses.
// Users that already exist are left alone together with their tasks, so
// running it twice changes nothing.
func seed(ctx context.Context, authSvc *auth.Service, store identity.Store, taskSvc *tasks.Service) (summary, error) {
	var sum summary
	log := logger.From(ctx)

	for _, du := range demoUsers {
		_, err := authSvc.Register(ctx, auth.RegisterInput{
			Email:     du.Email,
			Password:  demoPassword,
			FirstName: du.FirstName,
			LastName:  du.LastName,
		})
		if errors.Is(err, auth.ErrDuplicateIdentity) {
			sum.UsersSkipped++
			log.Info("user exists, skipping", "email", du.Email)
			continue
		}
		if err != nil {
			return sum, fmt.Errorf("register %s: %w", du.Email, err)
		}
		sum.UsersCreated++

		u, err := store.FindByEmail(ctx, du.Email)
		if err != nil {
			return sum, fmt.Errorf("load %s: %w", du.Email, err)
		}
		for _, in := range du.Tasks {
			if _, err := taskSvc.Create(ctx, u.ID, in); err != nil {
				return sum, fmt.Errorf("create task %q: %w", in.Title, err)
			}
			sum.TasksCreated++
		}
		log.Info("user seeded", "email", du.Email, "tasks", len(du.Tasks))
	}
	return sum, nil
}
