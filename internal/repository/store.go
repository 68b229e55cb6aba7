package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"petshop-backend/internal/db"
	"petshop-backend/internal/ports"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// IsDuplicate detects unique constraint violation.
func IsDuplicate(err error) bool {
	return db.IsUniqueViolation(err)
}

// pgxQuerier is satisfied by both pgxpool.Pool and pgx.Tx.
type pgxQuerier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

func querier(pg *db.Postgres, tx pgx.Tx) pgxQuerier {
	if tx != nil {
		return tx
	}
	return pg.Pool
}

type rowScanner interface {
	Scan(dest ...any) error
}

// NUMERIC columns are selected as text and parsed here.
func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse numeric %q: %w", s, err)
	}
	return d, nil
}

// Store is the Postgres unit of work for multi-table writes.
type Store struct {
	DB *db.Postgres
}

func (s Store) InTx(ctx context.Context, fn func(ctx context.Context, stores ports.TxStores) error) error {
	tx, err := s.DB.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	stores := ports.TxStores{
		Appointments:  AppointmentRepository{DB: s.DB, Tx: tx},
		Notifications: NotificationRepository{DB: s.DB, Tx: tx},
		Transactions:  TransactionRepository{DB: s.DB, Tx: tx},
		Outbox:        OutboxRepository{DB: s.DB, Tx: tx},
	}
	if err := fn(ctx, stores); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
