package tasks

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and local runs.
type MemoryRepo struct {
	mu    sync.Mutex
	tasks map[string]memTask
	seq   int64
	clock func() time.Time
}

type memTask struct {
	Task
	seq int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{tasks: map[string]memTask{}, clock: time.Now}
}

func (r *MemoryRepo) Create(ctx context.Context, t Task) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	r.seq++
	r.tasks[t.ID] = memTask{Task: t, seq: r.seq}
	return t, nil
}

func (r *MemoryRepo) ListByOwner(ctx context.Context, userID string) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rows []memTask
	for _, mt := range r.tasks {
		if mt.UserID == userID {
			rows = append(rows, mt)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})

	out := make([]Task, 0, len(rows))
	for _, mt := range rows {
		out = append(out, mt.Task)
	}
	return out, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mt, ok := r.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return mt.Task, nil
}

func (r *MemoryRepo) Update(ctx context.Context, t Task) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mt, ok := r.tasks[t.ID]
	if !ok || mt.UserID != t.UserID {
		return Task{}, ErrNotFound
	}
	t.CreatedAt = mt.CreatedAt
	t.UpdatedAt = r.clock().UTC()
	r.tasks[t.ID] = memTask{Task: t, seq: mt.seq}
	return t, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	mt, ok := r.tasks[id]
	if !ok || mt.UserID != userID {
		return ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}
