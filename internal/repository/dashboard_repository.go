package repository

import (
	"context"
	"time"

	"petshop-backend/internal/db"
)

type DashboardRepository struct {
	DB *db.Postgres
}

type DashboardAppointment struct {
	ID          int64
	Time        string
	PetName     string
	OwnerName   string
	Status      string
	ServiceName string
}

type DashboardItem struct {
	Label string
	Count int64
}

type DashboardStats struct {
	Today        []DashboardAppointment
	NextSevenDay []DashboardItem
	StatusCounts []DashboardItem
	ByHour       []DashboardItem
	Services     []DashboardItem
	LastSevenDay []DashboardItem
}

// Stats aggregates a tenant's appointments around today.
func (r DashboardRepository) Stats(ctx context.Context, tenantID int64, today time.Time) (DashboardStats, error) {
	var s DashboardStats
	var err error

	rows, err := r.DB.Pool.Query(ctx, `
		SELECT a.id, a.appointment_time, a.pet_name, a.owner_name, a.status, COALESCE(s.name, '')
		FROM appointments a
		LEFT JOIN services s ON s.id = a.base_service_id AND s.tenant_id = a.tenant_id
		WHERE a.tenant_id=$1 AND a.appointment_date=$2
		ORDER BY a.appointment_time ASC
	`, tenantID, today)
	if err != nil {
		return s, err
	}
	for rows.Next() {
		var it DashboardAppointment
		if err := rows.Scan(&it.ID, &it.Time, &it.PetName, &it.OwnerName, &it.Status, &it.ServiceName); err != nil {
			rows.Close()
			return s, err
		}
		s.Today = append(s.Today, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return s, err
	}

	if s.NextSevenDay, err = r.dailySeries(ctx, tenantID, today, today.AddDate(0, 0, 6)); err != nil {
		return s, err
	}
	if s.LastSevenDay, err = r.dailySeries(ctx, tenantID, today.AddDate(0, 0, -6), today); err != nil {
		return s, err
	}
	if s.StatusCounts, err = r.items(ctx, `
		SELECT status, COUNT(*) FROM appointments WHERE tenant_id=$1 GROUP BY status ORDER BY status
	`, tenantID); err != nil {
		return s, err
	}
	if s.ByHour, err = r.items(ctx, `
		SELECT split_part(appointment_time, ':', 1) AS hour, COUNT(*)
		FROM appointments
		WHERE tenant_id=$1 AND status <> 'Canceled'
		GROUP BY hour
		ORDER BY hour
	`, tenantID); err != nil {
		return s, err
	}
	if s.Services, err = r.items(ctx, `
		SELECT s.name, COUNT(*)
		FROM appointments a
		JOIN services s ON s.id = a.base_service_id AND s.tenant_id = a.tenant_id
		WHERE a.tenant_id=$1
		GROUP BY s.name
		ORDER BY COUNT(*) DESC
		LIMIT 10
	`, tenantID); err != nil {
		return s, err
	}
	return s, nil
}

// dailySeries returns one point per day in [from, to], zero-filled.
func (r DashboardRepository) dailySeries(ctx context.Context, tenantID int64, from, to time.Time) ([]DashboardItem, error) {
	return r.items(ctx, `
		SELECT to_char(d::date, 'YYYY-MM-DD'), COUNT(a.id)
		FROM generate_series($2::date, $3::date, interval '1 day') AS d
		LEFT JOIN appointments a ON a.appointment_date = d::date AND a.tenant_id = $1 AND a.status <> 'Canceled'
		GROUP BY d
		ORDER BY d
	`, tenantID, from, to)
}

func (r DashboardRepository) items(ctx context.Context, query string, args ...any) ([]DashboardItem, error) {
	rows, err := r.DB.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DashboardItem
	for rows.Next() {
		var it DashboardItem
		if err := rows.Scan(&it.Label, &it.Count); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
