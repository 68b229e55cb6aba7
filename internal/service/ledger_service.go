package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"petshop-backend/internal/domain"
	"petshop-backend/internal/repository"
)

type ledgerStore interface {
	Create(ctx context.Context, t domain.Transaction) (*domain.Transaction, error)
	GetByID(ctx context.Context, id int64) (*domain.Transaction, error)
	List(ctx context.Context, f repository.TransactionFilter) ([]domain.Transaction, int, error)
	Update(ctx context.Context, t domain.Transaction) (*domain.Transaction, error)
	Delete(ctx context.Context, id int64) error
}

type summaryStore interface {
	Summary(ctx context.Context, tenantID int64, startDate, endDate *time.Time) (repository.FinanceSummary, error)
}

// LedgerService manages income and expense entries of a tenant.
type LedgerService struct {
	Transactions ledgerStore
	Finance      summaryStore
	Validate     *validator.Validate
}

type TransactionInput struct {
	Description   string          `json:"description" validate:"required,max=200"`
	Amount        decimal.Decimal `json:"amount"`
	Kind          string          `json:"type" validate:"required,oneof=income expense"`
	Category      string          `json:"category" validate:"required,max=50"`
	Date          time.Time       `json:"-"`
	Status        string          `json:"status" validate:"omitempty,oneof=pending paid overdue"`
	PaymentMethod string          `json:"paymentMethod" validate:"omitempty,oneof=credit_card debit_card cash pix transfer other"`
}

// TransactionPatch lists the fields that may change after creation.
type TransactionPatch struct {
	Description   *string
	Amount        *decimal.Decimal
	Category      *string
	Date          *time.Time
	Status        *string
	PaymentMethod *string
}

type ListTransactionsInput struct {
	Search    string
	Kind      string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

type TransactionPage struct {
	Data       []domain.Transaction
	Pagination Pagination
}

func (s LedgerService) Create(ctx context.Context, tenantID int64, in TransactionInput) (*domain.Transaction, error) {
	t := domain.Transaction{
		TenantID:      tenantID,
		Description:   strings.TrimSpace(in.Description),
		Amount:        in.Amount,
		Kind:          domain.TransactionKind(in.Kind),
		Category:      strings.TrimSpace(in.Category),
		Date:          in.Date,
		Status:        domain.TransactionStatus(in.Status),
		PaymentMethod: domain.PaymentMethod(in.PaymentMethod),
	}
	in.Description, in.Category = t.Description, t.Category
	if err := Validate(s.validator(), in); err != nil {
		return nil, err
	}
	if err := checkAmount(t.Amount); err != nil {
		return nil, err
	}
	if t.Date.IsZero() {
		return nil, invalid("date", "date is required")
	}
	if t.Status == "" {
		t.Status = domain.TransactionPending
	}
	if t.PaymentMethod == "" {
		t.PaymentMethod = domain.PaymentCash
	}
	t.Amount = t.Amount.Round(2)
	t.Date = truncateDay(t.Date)
	out, err := s.Transactions.Create(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	return out, nil
}

func (s LedgerService) List(ctx context.Context, tenantID int64, in ListTransactionsInput) (*TransactionPage, error) {
	if in.Kind != "" && in.Kind != string(domain.TransactionIncome) && in.Kind != string(domain.TransactionExpense) {
		return nil, invalid("type", "type must be income or expense")
	}
	page, limit := in.Page, in.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	items, total, err := s.Transactions.List(ctx, repository.TransactionFilter{
		TenantID:  tenantID,
		Search:    in.Search,
		Kind:      domain.TransactionKind(in.Kind),
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Limit:     limit,
		Offset:    (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return &TransactionPage{
		Data: items,
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  (total + limit - 1) / limit,
			TotalItems:  total,
			Limit:       limit,
		},
	}, nil
}

// All returns every entry in the range, for exports.
func (s LedgerService) All(ctx context.Context, tenantID int64, start, end *time.Time) ([]domain.Transaction, error) {
	items, _, err := s.Transactions.List(ctx, repository.TransactionFilter{TenantID: tenantID, StartDate: start, EndDate: end})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return items, nil
}

func (s LedgerService) Update(ctx context.Context, tenantID, id int64, p TransactionPatch) (*domain.Transaction, error) {
	t, err := s.owned(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Amount != nil {
		if err := checkAmount(*p.Amount); err != nil {
			return nil, err
		}
		t.Amount = p.Amount.Round(2)
	}
	if p.Category != nil {
		t.Category = strings.TrimSpace(*p.Category)
	}
	if p.Date != nil {
		t.Date = truncateDay(*p.Date)
	}
	if p.Status != nil {
		t.Status = domain.TransactionStatus(*p.Status)
	}
	if p.PaymentMethod != nil {
		t.PaymentMethod = domain.PaymentMethod(*p.PaymentMethod)
	}
	rules := TransactionInput{
		Description:   t.Description,
		Kind:          string(t.Kind),
		Category:      t.Category,
		Status:        string(t.Status),
		PaymentMethod: string(t.PaymentMethod),
	}
	if err := Validate(s.validator(), rules); err != nil {
		return nil, err
	}
	out, err := s.Transactions.Update(ctx, *t)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	return out, nil
}

func (s LedgerService) Delete(ctx context.Context, tenantID, id int64) error {
	if _, err := s.owned(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.Transactions.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (s LedgerService) Summary(ctx context.Context, tenantID int64, start, end *time.Time) (repository.FinanceSummary, error) {
	if start != nil && end != nil && end.Before(*start) {
		return repository.FinanceSummary{}, invalid("endDate", "endDate must not be before startDate")
	}
	return s.Finance.Summary(ctx, tenantID, start, end)
}

func (s LedgerService) owned(ctx context.Context, tenantID, id int64) (*domain.Transaction, error) {
	t, err := s.Transactions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	if t.TenantID != tenantID {
		return nil, ErrForbidden
	}
	return t, nil
}

func (s LedgerService) validator() *validator.Validate {
	if s.Validate != nil {
		return s.Validate
	}
	return NewValidator()
}

func checkAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return invalid("amount", "amount must be greater than 0")
	}
	return nil
}
