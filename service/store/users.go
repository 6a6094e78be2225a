package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"chatserver/module/chat/model"
)

// ErrNotFound is returned by lookups that find no row; callers map it
// to NOT_FOUND or AUTH_INVALID depending on context.
var ErrNotFound = errors.New("store: not found")

// ErrConflict is returned when a unique constraint (username/email)
// is violated.
var ErrConflict = errors.New("store: conflict")

const uniqueViolation = "23505"

func (s *Store) CreateUser(ctx context.Context, u model.User) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (model.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, role, created_at
		 FROM users WHERE id = $1`, id))
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, role, created_at
		 FROM users WHERE username = $1`, username))
}

// GetUserByUsernameOrEmail supports login by either identifier, per
// spec §4.2.
func (s *Store) GetUserByUsernameOrEmail(ctx context.Context, identifier string) (model.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, role, created_at
		 FROM users WHERE username = $1 OR email = $1`, identifier))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, role, created_at
		 FROM users WHERE email = $1`, email))
}

func (s *Store) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, userID, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	var createdAt time.Time
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.CreatedAt = createdAt
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
