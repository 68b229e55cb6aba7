package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"petshop-backend/internal/db"
	"petshop-backend/internal/domain"
	"petshop-backend/internal/ports"
)

type AppointmentRepository struct {
	DB *db.Postgres
	Tx pgx.Tx
}

const appointmentColumns = `id, tenant_id, pet_name, species, breed, notes, size, owner_name, owner_phone,
	base_service_id, extra_service_ids, appointment_date, appointment_time, status, price::text, created_at, updated_at`

func (r AppointmentRepository) Create(ctx context.Context, a domain.Appointment) (*domain.Appointment, error) {
	row := querier(r.DB, r.Tx).QueryRow(ctx, `
		INSERT INTO appointments
		(tenant_id, pet_name, species, breed, notes, size, owner_name, owner_phone,
		 base_service_id, extra_service_ids, appointment_date, appointment_time, status, price, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14::numeric, now(), now())
		RETURNING `+appointmentColumns,
		a.TenantID, a.PetName, string(a.Species), a.Breed, a.Notes, string(a.Size), a.OwnerName, a.OwnerPhone,
		a.BaseServiceID, nonNilIDs(a.ExtraServiceIDs), a.Date, a.Time, string(a.Status), a.Price.StringFixed(2))
	return scanAppointment(row)
}

func (r AppointmentRepository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	row := querier(r.DB, r.Tx).QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id=$1`, id)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r AppointmentRepository) List(ctx context.Context, f ports.AppointmentFilter) ([]domain.Appointment, int, error) {
	where := []string{"tenant_id = $1"}
	args := []any{f.TenantID}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(pet_name ILIKE $%d OR owner_name ILIKE $%d)", len(args), len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("appointment_date >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("appointment_date <= $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	q := querier(r.DB, r.Tx)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if f.Sort == domain.SortDesc {
		dir = "DESC"
	}
	args = append(args, f.Limit, f.Offset)
	rows, err := q.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM appointments
		WHERE %s
		ORDER BY appointment_date %s, appointment_time %s, id %s
		LIMIT $%d OFFSET $%d
	`, appointmentColumns, cond, dir, dir, dir, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectAppointments(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Update overwrites every mutable column of the appointment.
func (r AppointmentRepository) Update(ctx context.Context, a domain.Appointment) (*domain.Appointment, error) {
	row := querier(r.DB, r.Tx).QueryRow(ctx, `
		UPDATE appointments
		SET pet_name=$2, species=$3, breed=$4, notes=$5, size=$6, owner_name=$7, owner_phone=$8,
		    base_service_id=$9, extra_service_ids=$10, appointment_date=$11, appointment_time=$12,
		    status=$13, price=$14::numeric, updated_at=now()
		WHERE id=$1
		RETURNING `+appointmentColumns,
		a.ID, a.PetName, string(a.Species), a.Breed, a.Notes, string(a.Size), a.OwnerName, a.OwnerPhone,
		a.BaseServiceID, nonNilIDs(a.ExtraServiceIDs), a.Date, a.Time, string(a.Status), a.Price.StringFixed(2))
	out, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func (r AppointmentRepository) Delete(ctx context.Context, id int64) error {
	tag, err := querier(r.DB, r.Tx).Exec(ctx, `DELETE FROM appointments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BookedSlots lists the start time, status and base-service duration of every
// appointment on date. A dangling base service yields duration 0.
func (r AppointmentRepository) BookedSlots(ctx context.Context, tenantID int64, date time.Time) ([]domain.BookedSlot, error) {
	rows, err := querier(r.DB, r.Tx).Query(ctx, `
		SELECT a.appointment_time, a.status, COALESCE(s.duration, 0)
		FROM appointments a
		LEFT JOIN services s ON s.id = a.base_service_id AND s.tenant_id = a.tenant_id
		WHERE a.tenant_id=$1 AND a.appointment_date=$2
	`, tenantID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.BookedSlot
	for rows.Next() {
		var b domain.BookedSlot
		var status string
		if err := rows.Scan(&b.Time, &status, &b.Duration); err != nil {
			return nil, err
		}
		b.Status = domain.AppointmentStatus(status)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r AppointmentRepository) History(ctx context.Context, tenantID int64, ownerName, petName string, limit int) ([]domain.Appointment, error) {
	rows, err := querier(r.DB, r.Tx).Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id=$1
		  AND ($2 = '' OR lower(owner_name) = lower($2))
		  AND ($3 = '' OR lower(pet_name) = lower($3))
		ORDER BY appointment_date DESC, appointment_time DESC
		LIMIT $4
	`, tenantID, ownerName, petName, limit)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]domain.Appointment, error) {
	defer rows.Close()
	var items []domain.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *a)
	}
	return items, rows.Err()
}

func scanAppointment(row rowScanner) (*domain.Appointment, error) {
	var (
		a                     domain.Appointment
		species, size, status string
		price                 string
	)
	if err := row.Scan(
		&a.ID, &a.TenantID, &a.PetName, &species, &a.Breed, &a.Notes, &size, &a.OwnerName, &a.OwnerPhone,
		&a.BaseServiceID, &a.ExtraServiceIDs, &a.Date, &a.Time, &status, &price, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p, err := parseDecimal(price)
	if err != nil {
		return nil, err
	}
	a.Species = domain.Species(species)
	a.Size = domain.PetSize(size)
	a.Status = domain.AppointmentStatus(status)
	a.Price = p
	return &a, nil
}

func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
