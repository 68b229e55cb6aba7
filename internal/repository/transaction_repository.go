package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"petshop-backend/internal/db"
	"petshop-backend/internal/domain"
)

// TransactionRepository stores ledger entries.
type TransactionRepository struct {
	DB *db.Postgres
	Tx pgx.Tx
}

type TransactionFilter struct {
	TenantID  int64
	Search    string
	Kind      domain.TransactionKind
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

const transactionColumns = `id, tenant_id, description, amount::text, kind, category, transacted_date, status,
	payment_method, related_appointment_id, created_at, updated_at`

func (r TransactionRepository) Create(ctx context.Context, t domain.Transaction) (*domain.Transaction, error) {
	if t.Status == "" {
		t.Status = domain.TransactionPending
	}
	if t.PaymentMethod == "" {
		t.PaymentMethod = domain.PaymentCash
	}
	row := querier(r.DB, r.Tx).QueryRow(ctx, `
		INSERT INTO transactions
		(tenant_id, description, amount, kind, category, transacted_date, status, payment_method,
		 related_appointment_id, created_at, updated_at)
		VALUES ($1,$2,$3::numeric,$4,$5,$6,$7,$8,$9, now(), now())
		RETURNING `+transactionColumns,
		t.TenantID, t.Description, t.Amount.StringFixed(2), string(t.Kind), t.Category, t.Date,
		string(t.Status), string(t.PaymentMethod), t.RelatedAppointmentID)
	return scanTransaction(row)
}

// RecordIncome books the income entry of a completed appointment once.
// When the appointment already has one, the existing entry is returned and
// created is false.
func (r TransactionRepository) RecordIncome(ctx context.Context, t domain.Transaction) (*domain.Transaction, bool, error) {
	if t.RelatedAppointmentID == nil {
		return nil, false, errors.New("income entry needs an appointment")
	}
	t.Kind = domain.TransactionIncome
	if t.Status == "" {
		t.Status = domain.TransactionPending
	}
	if t.PaymentMethod == "" {
		t.PaymentMethod = domain.PaymentCash
	}
	q := querier(r.DB, r.Tx)
	row := q.QueryRow(ctx, `
		INSERT INTO transactions
		(tenant_id, description, amount, kind, category, transacted_date, status, payment_method,
		 related_appointment_id, created_at, updated_at)
		VALUES ($1,$2,$3::numeric,$4,$5,$6,$7,$8,$9, now(), now())
		ON CONFLICT (related_appointment_id) WHERE kind = 'income' AND related_appointment_id IS NOT NULL
		DO NOTHING
		RETURNING `+transactionColumns,
		t.TenantID, t.Description, t.Amount.StringFixed(2), string(t.Kind), t.Category, t.Date,
		string(t.Status), string(t.PaymentMethod), t.RelatedAppointmentID)
	created, err := scanTransaction(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}
	existing, err := scanTransaction(q.QueryRow(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE related_appointment_id=$1 AND kind='income'`, *t.RelatedAppointmentID))
	if err != nil {
		return nil, false, fmt.Errorf("load existing income: %w", err)
	}
	return existing, false, nil
}

func (r TransactionRepository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	row := querier(r.DB, r.Tx).QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id=$1`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r TransactionRepository) List(ctx context.Context, f TransactionFilter) ([]domain.Transaction, int, error) {
	cond, args := transactionWhere(f)
	q := querier(r.DB, r.Tx)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + cond + ` ORDER BY transacted_date DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *t)
	}
	return items, total, rows.Err()
}

func (r TransactionRepository) Update(ctx context.Context, t domain.Transaction) (*domain.Transaction, error) {
	row := querier(r.DB, r.Tx).QueryRow(ctx, `
		UPDATE transactions
		SET description=$2, amount=$3::numeric, kind=$4, category=$5, transacted_date=$6,
		    status=$7, payment_method=$8, updated_at=now()
		WHERE id=$1
		RETURNING `+transactionColumns,
		t.ID, t.Description, t.Amount.StringFixed(2), string(t.Kind), t.Category, t.Date,
		string(t.Status), string(t.PaymentMethod))
	out, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func (r TransactionRepository) Delete(ctx context.Context, id int64) error {
	tag, err := querier(r.DB, r.Tx).Exec(ctx, `DELETE FROM transactions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func transactionWhere(f TransactionFilter) (string, []any) {
	where := []string{"tenant_id = $1"}
	args := []any{f.TenantID}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(description ILIKE $%d OR category ILIKE $%d)", len(args), len(args)))
	}
	if f.Kind != "" {
		args = append(args, string(f.Kind))
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if f.StartDate != nil {
		args = append(args, *f.StartDate)
		where = append(where, fmt.Sprintf("transacted_date >= $%d", len(args)))
	}
	if f.EndDate != nil {
		args = append(args, *f.EndDate)
		where = append(where, fmt.Sprintf("transacted_date <= $%d", len(args)))
	}
	return strings.Join(where, " AND "), args
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		t                    domain.Transaction
		amount               string
		kind, status, method string
		related              pgtype.Int8
	)
	if err := row.Scan(
		&t.ID, &t.TenantID, &t.Description, &amount, &kind, &t.Category, &t.Date, &status,
		&method, &related, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a, err := parseDecimal(amount)
	if err != nil {
		return nil, err
	}
	t.Amount = a
	t.Kind = domain.TransactionKind(kind)
	t.Status = domain.TransactionStatus(status)
	t.PaymentMethod = domain.PaymentMethod(method)
	if related.Valid {
		t.RelatedAppointmentID = &related.Int64
	}
	return &t, nil
}
