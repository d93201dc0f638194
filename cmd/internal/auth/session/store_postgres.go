package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskman/cmd/identity/ids"
)

// PostgresStore implements Store using PostgreSQL (taskman.session_tokens).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed token-set store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Insert adds a new token row for the account.
func (s *PostgresStore) Insert(ctx context.Context, now time.Time, accountID, tokenHash string) error {
	id, err := ids.NewULID(now)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO taskman.session_tokens (id, account_id, token_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, id, accountID, tokenHash, now)
	return err
}

// AccountIDByHash resolves a token hash to its owning account.
func (s *PostgresStore) AccountIDByHash(ctx context.Context, tokenHash string) (string, error) {
	var accountID string

	err := s.pool.QueryRow(ctx, `
		SELECT account_id
		  FROM taskman.session_tokens
		 WHERE token_hash = $1
	`, tokenHash).Scan(&accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", err
	}

	return accountID, nil
}

// DeleteByHash removes exactly one token from the account's set (idempotent).
func (s *PostgresStore) DeleteByHash(ctx context.Context, accountID, tokenHash string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM taskman.session_tokens
		 WHERE account_id = $1
		   AND token_hash = $2
	`, accountID, tokenHash)
	return err
}

// DeleteAll clears the account's token set (idempotent).
func (s *PostgresStore) DeleteAll(ctx context.Context, accountID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM taskman.session_tokens
		 WHERE account_id = $1
	`, accountID)
	return err
}
