package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"petshop-backend/internal/db"
	"petshop-backend/internal/domain"
)

// FileRepository keeps uploaded import files in Postgres.
type FileRepository struct {
	DB *db.Postgres
}

func (r FileRepository) Save(ctx context.Context, f domain.StoredFile) (int64, error) {
	var id int64
	err := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO import_files (tenant_id, filename, content_type, data, created_at)
		VALUES ($1,$2,$3,$4, now())
		RETURNING id
	`, f.TenantID, f.Filename, f.ContentType, f.Data).Scan(&id)
	return id, err
}

func (r FileRepository) Load(ctx context.Context, id int64) (*domain.StoredFile, error) {
	var f domain.StoredFile
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT id, tenant_id, filename, content_type, data, created_at
		FROM import_files WHERE id=$1
	`, id).Scan(&f.ID, &f.TenantID, &f.Filename, &f.ContentType, &f.Data, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// Delete is idempotent.
func (r FileRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.Pool.Exec(ctx, `DELETE FROM import_files WHERE id=$1`, id)
	return err
}
