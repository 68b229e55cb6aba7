package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"petshop-backend/internal/db"
	"petshop-backend/internal/domain"
)

// ServiceRepository stores catalog entries.
type ServiceRepository struct {
	DB *db.Postgres
}

const serviceColumns = `id, tenant_id, name, description, price::text, duration, is_extra, created_at, updated_at`

func (r ServiceRepository) Create(ctx context.Context, s domain.Service) (*domain.Service, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO services (tenant_id, name, description, price, duration, is_extra, created_at, updated_at)
		VALUES ($1,$2,$3,$4::numeric,$5,$6, now(), now())
		RETURNING `+serviceColumns,
		s.TenantID, s.Name, s.Description, s.Price.StringFixed(2), s.Duration, s.IsExtra)
	return scanService(row)
}

func (r ServiceRepository) GetByID(ctx context.Context, id int64) (*domain.Service, error) {
	row := r.DB.Pool.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id=$1`, id)
	s, err := scanService(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r ServiceRepository) GetByIDs(ctx context.Context, tenantID int64, ids []int64) ([]domain.Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE tenant_id=$1 AND id = ANY($2)
		ORDER BY id
	`, tenantID, ids)
	if err != nil {
		return nil, err
	}
	return collectServices(rows)
}

func (r ServiceRepository) List(ctx context.Context, tenantID int64) ([]domain.Service, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE tenant_id=$1
		ORDER BY is_extra, name
	`, tenantID)
	if err != nil {
		return nil, err
	}
	return collectServices(rows)
}

func (r ServiceRepository) Update(ctx context.Context, s domain.Service) (*domain.Service, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE services
		SET name=$2, description=$3, price=$4::numeric, duration=$5, is_extra=$6, updated_at=now()
		WHERE id=$1
		RETURNING `+serviceColumns,
		s.ID, s.Name, s.Description, s.Price.StringFixed(2), s.Duration, s.IsExtra)
	out, err := scanService(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

// Delete removes the service only; appointments keep their references.
func (r ServiceRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.DB.Pool.Exec(ctx, `DELETE FROM services WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectServices(rows pgx.Rows) ([]domain.Service, error) {
	defer rows.Close()
	var items []domain.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *s)
	}
	return items, rows.Err()
}

func scanService(row rowScanner) (*domain.Service, error) {
	var (
		s     domain.Service
		price string
	)
	if err := row.Scan(&s.ID, &s.TenantID, &s.Name, &s.Description, &price, &s.Duration, &s.IsExtra, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	p, err := parseDecimal(price)
	if err != nil {
		return nil, err
	}
	s.Price = p
	return &s, nil
}
