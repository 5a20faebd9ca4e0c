package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"tasky-api/internal/audit"
	"tasky-api/internal/ownership"
)

const (
	alice = "a1b2c3d4-0000-4000-8000-00000000000a"
	bob   = "a1b2c3d4-0000-4000-8000-00000000000b"
)

func newService(policy ownership.Policy) (*Service, *audit.MemoryRepo) {
	auditRepo := audit.NewMemoryRepo()
	svc := NewService(NewMemoryRepo(), ownership.Authorizer{Policy: policy}, WithAudit(audit.NewService(auditRepo)))
	return svc, auditRepo
}

func TestService_CreateDefaultsAndOwner(t *testing.T) {
	svc, _ := newService(ownership.RevealExistence)

	task, err := svc.Create(context.Background(), alice, CreateInput{Title: "  Buy milk  "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Title != "Buy milk" || task.Status != StatusTodo || task.UserID != alice || task.ID == "" {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc, _ := newService(ownership.RevealExistence)

	for _, in := range []CreateInput{
		{Title: ""},
		{Title: "   "},
		{Title: "x", Status: "archived"},
	} {
		if _, err := svc.Create(context.Background(), alice, in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%+v: expected ErrInvalidInput, got %v", in, err)
		}
	}
}

func TestService_ListOnlyOwnNewestFirst(t *testing.T) {
	svc, _ := newService(ownership.RevealExistence)
	ctx := context.Background()

	first, _ := svc.Create(ctx, alice, CreateInput{Title: "first"})
	second, _ := svc.Create(ctx, alice, CreateInput{Title: "second"})
	if _, err := svc.Create(ctx, bob, CreateInput{Title: "bob's"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.List(ctx, alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != second.ID || got[1].ID != first.ID {
		t.Fatalf("unexpected list: %+v", got)
	}

	empty, err := svc.List(ctx, "c1b2c3d4-0000-4000-8000-00000000000c")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %v %v", empty, err)
	}
}

func TestService_OwnershipRevealExistence(t *testing.T) {
	svc, auditRepo := newService(ownership.RevealExistence)
	ctx := context.Background()

	task, _ := svc.Create(ctx, alice, CreateInput{Title: "Buy milk"})

	if _, err := svc.Get(ctx, task.ID, alice); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if _, err := svc.Get(ctx, task.ID, bob); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	title := "hijacked"
	if _, err := svc.Update(ctx, task.ID, bob, UpdateInput{Title: &title}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, task.ID, bob); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	got, _ := svc.Get(ctx, task.ID, alice)
	if got.Title != "Buy milk" {
		t.Fatalf("task changed by non-owner: %+v", got)
	}
	if n := len(auditRepo.OfType(audit.EventTypeAccessDenied)); n != 3 {
		t.Fatalf("expected 3 access denied events, got %d", n)
	}
}

func TestService_OwnershipHideForeign(t *testing.T) {
	svc, auditRepo := newService(ownership.HideForeign)
	ctx := context.Background()

	task, _ := svc.Create(ctx, alice, CreateInput{Title: "Buy milk"})

	if _, err := svc.Get(ctx, task.ID, bob); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, task.ID, bob); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// Hidden from the caller, still recorded.
	if n := len(auditRepo.OfType(audit.EventTypeAccessDenied)); n != 2 {
		t.Fatalf("expected 2 access denied events, got %d", n)
	}
}

func TestService_MissingAndMalformedIDs(t *testing.T) {
	svc, _ := newService(ownership.RevealExistence)
	ctx := context.Background()

	for _, id := range []string{"not-a-uuid", "d1b2c3d4-0000-4000-8000-00000000000d"} {
		if _, err := svc.Get(ctx, id, alice); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: expected ErrNotFound, got %v", id, err)
		}
		if err := svc.Delete(ctx, id, alice); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestService_PartialUpdate(t *testing.T) {
	svc, _ := newService(ownership.RevealExistence)
	ctx := context.Background()

	due := time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC)
	task, _ := svc.Create(ctx, alice, CreateInput{Title: "Write docs", Description: "API docs", DueDate: &due})

	status := StatusDone
	got, err := svc.Update(ctx, task.ID, alice, UpdateInput{Status: &status})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != StatusDone || got.Title != "Write docs" || got.Description != "API docs" || got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Fatalf("unexpected update result: %+v", got)
	}
	if got.UserID != alice {
		t.Fatalf("owner changed: %+v", got)
	}

	empty := ""
	if _, err := svc.Update(ctx, task.ID, alice, UpdateInput{Title: &empty}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	bad := Status("archived")
	if _, err := svc.Update(ctx, task.ID, alice, UpdateInput{Status: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestService_UpdateClearsDueDate(t *testing.T) {
	svc, _ := newService(ownership.RevealExistence)
	ctx := context.Background()

	due := time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC)
	task, _ := svc.Create(ctx, alice, CreateInput{Title: "Write docs", DueDate: &due})

	got, err := svc.Update(ctx, task.ID, alice, UpdateInput{ClearDueDate: true, DueDate: &due})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.DueDate != nil {
		t.Fatalf("expected due date cleared, got %v", got.DueDate)
	}
	stored, _ := svc.Get(ctx, task.ID, alice)
	if stored.DueDate != nil {
		t.Fatalf("expected stored due date cleared, got %v", stored.DueDate)
	}
}

func TestService_DeleteThenGet(t *testing.T) {
	svc, _ := newService(ownership.RevealExistence)
	ctx := context.Background()

	task, _ := svc.Create(ctx, alice, CreateInput{Title: "temp"})
	if err := svc.Delete(ctx, task.ID, alice); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, task.ID, alice); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
