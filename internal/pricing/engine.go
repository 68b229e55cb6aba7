// Package pricing derives appointment prices from the tenant catalog.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"petshop-backend/internal/domain"
)

// ErrServiceNotFound means the base service is not in the tenant catalog.
var ErrServiceNotFound = errors.New("base service not found")

type catalog interface {
	GetByIDs(ctx context.Context, tenantID int64, ids []int64) ([]domain.Service, error)
}

type Engine struct {
	Catalog catalog
}

// Quote is the resolved price breakdown of one appointment.
type Quote struct {
	Base   domain.Service
	Extras []domain.Service
	Total  decimal.Decimal
}

// ExtraIDs lists the resolved extras in request order.
func (q Quote) ExtraIDs() []int64 {
	ids := make([]int64, 0, len(q.Extras))
	for _, e := range q.Extras {
		ids = append(ids, e.ID)
	}
	return ids
}

// Compute prices a base service plus extras. Extras outside the tenant
// catalog are dropped without error; duplicates count once. Any service of
// the tenant may be listed as an extra, IsExtra is not consulted.
func (e Engine) Compute(ctx context.Context, tenantID, baseID int64, extraIDs []int64) (Quote, error) {
	ids := append([]int64{baseID}, extraIDs...)
	found, err := e.Catalog.GetByIDs(ctx, tenantID, ids)
	if err != nil {
		return Quote{}, fmt.Errorf("load services: %w", err)
	}
	byID := make(map[int64]domain.Service, len(found))
	for _, s := range found {
		if s.TenantID == tenantID {
			byID[s.ID] = s
		}
	}

	base, ok := byID[baseID]
	if !ok {
		return Quote{}, ErrServiceNotFound
	}

	seen := make(map[int64]struct{}, len(extraIDs))
	var extras []domain.Service
	for _, id := range extraIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if s, ok := byID[id]; ok {
			extras = append(extras, s)
		}
	}

	return Quote{Base: base, Extras: extras, Total: Total(base, extras)}, nil
}

// Total is base price plus extras, rounded half-up to cents.
func Total(base domain.Service, extras []domain.Service) decimal.Decimal {
	sum := base.Price
	for _, e := range extras {
		sum = sum.Add(e.Price)
	}
	return sum.Round(2)
}
