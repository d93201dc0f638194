package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskman/cmd/identity/ids"
)

// PostgresStore implements Store using PostgreSQL (taskman.tasks).
//
// The pgx pool is owned by the caller; this store must NOT close it.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed task store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("task: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// Create inserts a task owned by in.OwnerID.
func (s *PostgresStore) Create(ctx context.Context, in CreateInput) (Task, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return Task{}, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.OwnerID) == "" {
		return Task{}, fmt.Errorf("%w: missing owner", ErrInvalidInput)
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ids.NewULID(now)
	if err != nil {
		return Task{}, err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO taskman.tasks (id, owner_id, description, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, id, in.OwnerID, description, in.Completed, now)
	if err != nil {
		return Task{}, err
	}

	return Task{
		ID:          id,
		OwnerID:     in.OwnerID,
		Description: description,
		Completed:   in.Completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Get loads one task, constrained to the owner.
func (s *PostgresStore) Get(ctx context.Context, ownerID, taskID string) (Task, error) {
	var out Task

	err := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, description, completed, created_at, updated_at
		  FROM taskman.tasks
		 WHERE id = $1
		   AND owner_id = $2
	`, taskID, ownerID).Scan(
		&out.ID, &out.OwnerID, &out.Description, &out.Completed, &out.CreatedAt, &out.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, err
	}

	return out, nil
}

// List returns the owner's tasks, filtered/windowed/ordered per opts.
func (s *PostgresStore) List(ctx context.Context, ownerID string, opts ListOptions) ([]Task, error) {
	if opts.Limit < 0 || opts.Skip < 0 {
		return nil, fmt.Errorf("%w: negative pagination", ErrInvalidInput)
	}

	query := `
		SELECT id, owner_id, description, completed, created_at, updated_at
		  FROM taskman.tasks
		 WHERE owner_id = $1`
	args := []any{ownerID}

	if opts.Completed != nil {
		args = append(args, *opts.Completed)
		query += fmt.Sprintf(" AND completed = $%d", len(args))
	}

	// Order by a validated column name only; ULIDs make the id column the
	// insertion order.
	orderCol := "id"
	switch opts.SortBy {
	case "":
	case SortCreatedAt, SortDescription, SortCompleted:
		orderCol = string(opts.SortBy)
	default:
		return nil, fmt.Errorf("%w: unknown sort field", ErrInvalidInput)
	}
	direction := "ASC"
	if opts.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id ASC", orderCol, direction)

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Skip > 0 {
		args = append(args, opts.Skip)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

// Update applies a partial update, constrained to the owner. The single
// UPDATE statement re-verifies ownership the same way Get does.
func (s *PostgresStore) Update(ctx context.Context, ownerID, taskID string, in UpdateInput) (Task, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	set := []string{"updated_at = $1"}
	args := []any{now}

	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if description == "" {
			return Task{}, fmt.Errorf("%w: description must not be empty", ErrInvalidInput)
		}
		args = append(args, description)
		set = append(set, fmt.Sprintf("description = $%d", len(args)))
	}
	if in.Completed != nil {
		args = append(args, *in.Completed)
		set = append(set, fmt.Sprintf("completed = $%d", len(args)))
	}

	args = append(args, taskID)
	idArg := len(args)
	args = append(args, ownerID)
	ownerArg := len(args)

	var out Task
	err := s.pool.QueryRow(ctx, `
		UPDATE taskman.tasks
		   SET `+strings.Join(set, ", ")+`
		 WHERE id = $`+fmt.Sprint(idArg)+`
		   AND owner_id = $`+fmt.Sprint(ownerArg)+`
		 RETURNING id, owner_id, description, completed, created_at, updated_at
	`, args...).Scan(
		&out.ID, &out.OwnerID, &out.Description, &out.Completed, &out.CreatedAt, &out.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, err
	}

	return out, nil
}

// Delete removes the task, constrained to the owner, and returns it.
func (s *PostgresStore) Delete(ctx context.Context, ownerID, taskID string) (Task, error) {
	var out Task

	err := s.pool.QueryRow(ctx, `
		DELETE FROM taskman.tasks
		 WHERE id = $1
		   AND owner_id = $2
		 RETURNING id, owner_id, description, completed, created_at, updated_at
	`, taskID, ownerID).Scan(
		&out.ID, &out.OwnerID, &out.Description, &out.Completed, &out.CreatedAt, &out.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, err
	}

	return out, nil
}
