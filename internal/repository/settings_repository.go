package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"petshop-backend/internal/db"
	"petshop-backend/internal/domain"
)

type SettingsRepository struct {
	DB *db.Postgres
	// DefaultCapacity is reported for tenants that never saved settings.
	DefaultCapacity int
}

const settingsColumns = `tenant_id, business_name, business_phone, custom_url, is_url_active, slot_capacity,
	appointments_sort_order, updated_at`

// Get returns the tenant settings, or defaults when none were saved.
func (r SettingsRepository) Get(ctx context.Context, tenantID int64) (*domain.Settings, error) {
	row := r.DB.Pool.QueryRow(ctx, `SELECT `+settingsColumns+` FROM settings WHERE tenant_id=$1`, tenantID)
	s, err := scanSettings(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.defaults(tenantID), nil
		}
		return nil, err
	}
	return s, nil
}

// GetByHandle resolves an active public handle.
func (r SettingsRepository) GetByHandle(ctx context.Context, handle string) (*domain.Settings, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT `+settingsColumns+`
		FROM settings
		WHERE lower(custom_url) = lower($1) AND is_url_active
	`, handle)
	s, err := scanSettings(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// HandleTaken reports whether another tenant already uses handle.
func (r SettingsRepository) HandleTaken(ctx context.Context, handle string, tenantID int64) (bool, error) {
	var taken bool
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM settings WHERE lower(custom_url) = lower($1) AND tenant_id <> $2)
	`, handle, tenantID).Scan(&taken)
	return taken, err
}

func (r SettingsRepository) Save(ctx context.Context, s domain.Settings) (*domain.Settings, error) {
	if s.SlotCapacity <= 0 {
		s.SlotCapacity = r.capacity()
	}
	if s.AppointmentsSortOrder == "" {
		s.AppointmentsSortOrder = domain.SortAsc
	}
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO settings (tenant_id, business_name, business_phone, custom_url, is_url_active, slot_capacity,
		                      appointments_sort_order, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7, now())
		ON CONFLICT (tenant_id) DO UPDATE SET
			business_name=EXCLUDED.business_name,
			business_phone=EXCLUDED.business_phone,
			custom_url=EXCLUDED.custom_url,
			is_url_active=EXCLUDED.is_url_active,
			slot_capacity=EXCLUDED.slot_capacity,
			appointments_sort_order=EXCLUDED.appointments_sort_order,
			updated_at=now()
		RETURNING `+settingsColumns,
		s.TenantID, s.BusinessName, s.BusinessPhone, s.CustomURL, s.IsURLActive, s.SlotCapacity, string(s.AppointmentsSortOrder))
	return scanSettings(row)
}

func (r SettingsRepository) defaults(tenantID int64) *domain.Settings {
	return &domain.Settings{
		TenantID:              tenantID,
		SlotCapacity:          r.capacity(),
		AppointmentsSortOrder: domain.SortAsc,
	}
}

func (r SettingsRepository) capacity() int {
	if r.DefaultCapacity > 0 {
		return r.DefaultCapacity
	}
	return 3
}

func scanSettings(row rowScanner) (*domain.Settings, error) {
	var s domain.Settings
	var sort string
	if err := row.Scan(&s.TenantID, &s.BusinessName, &s.BusinessPhone, &s.CustomURL, &s.IsURLActive, &s.SlotCapacity, &sort, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.AppointmentsSortOrder = domain.SortOrder(sort)
	return &s, nil
}
