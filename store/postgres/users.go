// Package postgres implements authcore.UserStore backed by PostgreSQL.
//
// Lookups translate pgx.ErrNoRows into the (nil, nil) convention the engine
// expects; every other failure is reported as a wrapped error so the engine
// can classify it as infrastructure.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dashfold/authcore"
)

const userColumns = "id, username, password, totp_secret, totp_enabled, salt, locale, operator"

// UserStore implements authcore.UserStore over a pgx connection pool.
type UserStore struct {
	pool *pgxpool.Pool
}

var _ authcore.UserStore = (*UserStore)(nil)

// NewUserStore wraps an existing pool. The caller keeps ownership of the
// pool's lifecycle.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// NewUserStoreFromDSN opens a pool, ensures the schema exists, and returns
// the store.
func NewUserStoreFromDSN(ctx context.Context, dsn string) (*UserStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return NewUserStore(pool), nil
}

// EnsureSchema creates the users table if it is missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id           BIGSERIAL PRIMARY KEY,
			username     TEXT NOT NULL UNIQUE,
			password     TEXT NOT NULL,
			totp_secret  TEXT NOT NULL DEFAULT '',
			totp_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			salt         TEXT NOT NULL DEFAULT '',
			locale       TEXT NOT NULL DEFAULT 'en-US',
			operator     BOOLEAN NOT NULL DEFAULT FALSE
		)`)
	return err
}

// Close closes the underlying pool.
func (s *UserStore) Close() {
	s.pool.Close()
}

func scanUser(row pgx.Row) (*authcore.User, error) {
	var u authcore.User
	err := row.Scan(&u.ID, &u.Username, &u.Password, &u.TOTPSecret, &u.TOTPEnabled, &u.Salt, &u.Locale, &u.Operator)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &u, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*authcore.User, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username)
	return scanUser(row)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*authcore.User, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

func (s *UserStore) GetOperators(ctx context.Context) ([]*authcore.User, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+userColumns+" FROM users WHERE operator ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var users []*authcore.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return users, nil
}

func (s *UserStore) GetFirstOperator(ctx context.Context) (*authcore.User, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE operator ORDER BY id LIMIT 1")
	return scanUser(row)
}

func (s *UserStore) Create(ctx context.Context, input authcore.CreateUserInput) (*authcore.User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, password, locale, operator)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		input.Username, input.Password, input.Locale, input.Operator)
	u, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.New("db error: insert returned no row")
	}
	return u, nil
}

func (s *UserStore) Update(ctx context.Context, id int64, patch authcore.UserUpdate) (*authcore.User, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Username != nil {
		add("username", *patch.Username)
	}
	if patch.Password != nil {
		add("password", *patch.Password)
	}
	if patch.TOTPSecret != nil {
		add("totp_secret", *patch.TOTPSecret)
	}
	if patch.TOTPEnabled != nil {
		add("totp_enabled", *patch.TOTPEnabled)
	}
	if patch.Salt != nil {
		add("salt", *patch.Salt)
	}
	if patch.Locale != nil {
		add("locale", *patch.Locale)
	}

	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), userColumns)

	return scanUser(s.pool.QueryRow(ctx, query, args...))
}
