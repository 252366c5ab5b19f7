package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"clinic-api/internal/model"
)

const userCols = `id, full_name, email, password_hash, role, is_active,
	reset_token_hash, reset_token_expires_at, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.ResetTokenHash, &u.ResetTokenExpiresAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, full_name, email, password_hash, role, is_active)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING created_at, updated_at`,
		u.ID, u.FullName, u.Email, u.PasswordHash, u.Role, u.IsActive,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return mapErr(err)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email))
}

func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (s *Store) UpdateUserProfile(ctx context.Context, id uuid.UUID, fullName, email string) (*model.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`UPDATE users SET full_name=$2, email=$3, updated_at=NOW()
		 WHERE id=$1
		 RETURNING `+userCols, id, fullName, email))
}

func (s *Store) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, id, hash)
	if err != nil {
		return mapErr(err)
	}
	return affected(tag)
}

func (s *Store) SetResetToken(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET reset_token_hash=$2, reset_token_expires_at=$3, updated_at=NOW()
		 WHERE id=$1`, id, hash, expiresAt)
	if err != nil {
		return mapErr(err)
	}
	return affected(tag)
}

// ConsumeResetToken sets the new password and clears the reset fields, but
// only while the stored hash is still tokenHash. A concurrent reset that won
// the race leaves nothing to update and ErrNotFound is returned.
func (s *Store) ConsumeResetToken(ctx context.Context, id uuid.UUID, tokenHash, passwordHash string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users
		 SET password_hash=$3, reset_token_hash=NULL, reset_token_expires_at=NULL, updated_at=NOW()
		 WHERE id=$1 AND reset_token_hash=$2`, id, tokenHash, passwordHash)
	if err != nil {
		return mapErr(err)
	}
	return affected(tag)
}
