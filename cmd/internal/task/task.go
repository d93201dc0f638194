// Package task implements taskman's task resource.
//
// Every store operation is scoped to the owning account: no code path can
// read or mutate a task belonging to a different principal, even when the
// task id is supplied directly.
package task

import (
	"context"
	"errors"
	"time"
)

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	// ErrNotFound covers both "does not exist" and "exists but not yours";
	// the two must be indistinguishable to callers.
	ErrNotFound = errors.New("task not found")

	ErrInvalidInput = errors.New("invalid task input")
)

// Task is a single to-do item with an exclusive owner.
type Task struct {
	ID          string
	OwnerID     string
	Description string
	Completed   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput describes a new task. OwnerID is always taken from the
// authenticated principal by the caller, never from request input.
type CreateInput struct {
	OwnerID     string
	Description string
	Completed   bool
	Now         time.Time
}

// UpdateInput is a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Description *string
	Completed   *bool
	Now         time.Time
}

// SortField names a column tasks may be ordered by.
type SortField string

const (
	SortCreatedAt   SortField = "created_at"
	SortDescription SortField = "description"
	SortCompleted   SortField = "completed"
)

// ListOptions filters and windows a task listing. The zero value returns the
// owner's full set in insertion order.
type ListOptions struct {
	// Completed, when set, keeps only tasks with a matching completion flag.
	Completed *bool

	// Limit and Skip window the result; zero values mean unbounded/from-start.
	Limit int
	Skip  int

	// SortBy orders the result; empty means insertion order.
	SortBy   SortField
	SortDesc bool
}

// Store is the ownership-scoped task persistence boundary.
type Store interface {
	Create(ctx context.Context, in CreateInput) (Task, error)

	// Get returns the task only if it exists and is owned by ownerID;
	// otherwise ErrNotFound.
	Get(ctx context.Context, ownerID, taskID string) (Task, error)

	List(ctx context.Context, ownerID string, opts ListOptions) ([]Task, error)

	// Update re-verifies ownership exactly like Get before applying.
	Update(ctx context.Context, ownerID, taskID string, in UpdateInput) (Task, error)

	// Delete removes the task and returns it, or ErrNotFound.
	Delete(ctx context.Context, ownerID, taskID string) (Task, error)
}
