package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"petshop-backend/internal/db"
)

// FinanceRepository aggregates ledger entries for reporting.
type FinanceRepository struct {
	DB *db.Postgres
}

type FinanceSummary struct {
	Income             decimal.Decimal
	Expense            decimal.Decimal
	Balance            decimal.Decimal
	ExpensesByCategory []CategoryTotal
	Monthly            []MonthlyTotal
}

type CategoryTotal struct {
	Category string
	Amount   decimal.Decimal
}

type MonthlyTotal struct {
	Month   string
	Income  decimal.Decimal
	Expense decimal.Decimal
}

func (r FinanceRepository) Summary(ctx context.Context, tenantID int64, startDate, endDate *time.Time) (FinanceSummary, error) {
	var s FinanceSummary
	var income, expense string
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE kind = 'income'), 0)::text,
			COALESCE(SUM(amount) FILTER (WHERE kind = 'expense'), 0)::text
		FROM transactions
		WHERE tenant_id = $1
		  AND ($2::date IS NULL OR transacted_date >= $2::date)
		  AND ($3::date IS NULL OR transacted_date <= $3::date)
	`, tenantID, startDate, endDate).Scan(&income, &expense)
	if err != nil {
		return s, err
	}
	if s.Income, err = parseDecimal(income); err != nil {
		return s, err
	}
	if s.Expense, err = parseDecimal(expense); err != nil {
		return s, err
	}
	s.Balance = s.Income.Sub(s.Expense)

	rows, err := r.DB.Pool.Query(ctx, `
		SELECT category, SUM(amount)::text
		FROM transactions
		WHERE tenant_id = $1 AND kind = 'expense'
		  AND ($2::date IS NULL OR transacted_date >= $2::date)
		  AND ($3::date IS NULL OR transacted_date <= $3::date)
		GROUP BY category
		ORDER BY SUM(amount) DESC
	`, tenantID, startDate, endDate)
	if err != nil {
		return s, err
	}
	for rows.Next() {
		var c CategoryTotal
		var amount string
		if err := rows.Scan(&c.Category, &amount); err != nil {
			rows.Close()
			return s, err
		}
		if c.Amount, err = parseDecimal(amount); err != nil {
			rows.Close()
			return s, err
		}
		s.ExpensesByCategory = append(s.ExpensesByCategory, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return s, err
	}

	mrows, err := r.DB.Pool.Query(ctx, `
		SELECT to_char(date_trunc('month', transacted_date), 'YYYY-MM') AS month,
		       COALESCE(SUM(amount) FILTER (WHERE kind = 'income'), 0)::text,
		       COALESCE(SUM(amount) FILTER (WHERE kind = 'expense'), 0)::text
		FROM transactions
		WHERE tenant_id = $1
		  AND ($2::date IS NULL OR transacted_date >= $2::date)
		  AND ($3::date IS NULL OR transacted_date <= $3::date)
		GROUP BY month
		ORDER BY month ASC
	`, tenantID, startDate, endDate)
	if err != nil {
		return s, err
	}
	defer mrows.Close()
	for mrows.Next() {
		var m MonthlyTotal
		var in, out string
		if err := mrows.Scan(&m.Month, &in, &out); err != nil {
			return s, err
		}
		if m.Income, err = parseDecimal(in); err != nil {
			return s, err
		}
		if m.Expense, err = parseDecimal(out); err != nil {
			return s, err
		}
		s.Monthly = append(s.Monthly, m)
	}
	return s, mrows.Err()
}
