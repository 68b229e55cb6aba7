package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"petshop-backend/internal/db"
	"petshop-backend/internal/domain"
)

type UserRepository struct {
	DB *db.Postgres
}

const userColumns = `id, name, email, phone, role, owner_id, password_hash, invite_token, invite_expires_at,
	pending_invitation, created_at, updated_at`

func (r UserRepository) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO users (name, email, phone, role, owner_id, password_hash, invite_token, invite_expires_at,
		                   pending_invitation, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9, now(), now())
		RETURNING `+userColumns,
		u.Name, u.Email, u.Phone, string(u.Role), u.OwnerID, u.PasswordHash, u.InviteToken, u.InviteExpiresAt, u.PendingInvitation)
	return scanUser(row)
}

func (r UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email)=lower($1)`, email)
}

func (r UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r UserRepository) GetByInviteToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE invite_token=$1 AND pending_invitation`, token)
}

// AcceptInvite activates a pending collaborator and clears its token.
func (r UserRepository) AcceptInvite(ctx context.Context, id int64, name, passwordHash string) (*domain.User, error) {
	return r.getOne(ctx, `
		UPDATE users
		SET name=$2, password_hash=$3, invite_token=NULL, invite_expires_at=NULL,
		    pending_invitation=false, updated_at=now()
		WHERE id=$1
		RETURNING `+userColumns, id, name, passwordHash)
}

func (r UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.DB.Pool.Exec(ctx, `UPDATE users SET password_hash=$2, updated_at=now() WHERE id=$1`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r UserRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.User, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+userColumns+` FROM users WHERE owner_id=$1 ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r UserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.DB.Pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r UserRepository) getOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	user, err := scanUser(r.DB.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	if err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Phone,
		&role,
		&u.OwnerID,
		&u.PasswordHash,
		&u.InviteToken,
		&u.InviteExpiresAt,
		&u.PendingInvitation,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.Role = domain.UserRole(role)
	return &u, nil
}
