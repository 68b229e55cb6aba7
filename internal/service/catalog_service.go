package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"petshop-backend/internal/domain"
	"petshop-backend/internal/ports"
	"petshop-backend/internal/repository"
)

// CatalogService manages a tenant's services.
type CatalogService struct {
	Services ports.ServiceStore
	Validate *validator.Validate
}

type ServiceInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Price       decimal.Decimal
	Duration    int  `json:"duration" validate:"gte=1"`
	IsExtra     bool `json:"extra"`
}

func (s CatalogService) Create(ctx context.Context, tenantID int64, in ServiceInput) (*domain.Service, error) {
	if err := s.check(&in); err != nil {
		return nil, err
	}
	out, err := s.Services.Create(ctx, domain.Service{
		TenantID:    tenantID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Duration:    in.Duration,
		IsExtra:     in.IsExtra,
	})
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return out, nil
}

func (s CatalogService) List(ctx context.Context, tenantID int64) ([]domain.Service, error) {
	return s.Services.List(ctx, tenantID)
}

func (s CatalogService) Get(ctx context.Context, tenantID, id int64) (*domain.Service, error) {
	svc, err := s.Services.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if svc.TenantID != tenantID {
		return nil, ErrForbidden
	}
	return svc, nil
}

func (s CatalogService) Update(ctx context.Context, tenantID, id int64, in ServiceInput) (*domain.Service, error) {
	current, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(&in); err != nil {
		return nil, err
	}
	current.Name = in.Name
	current.Description = in.Description
	current.Price = in.Price
	current.Duration = in.Duration
	current.IsExtra = in.IsExtra
	out, err := s.Services.Update(ctx, *current)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update service: %w", err)
	}
	return out, nil
}

// Delete removes a service. Appointments that reference it keep the id.
func (s CatalogService) Delete(ctx context.Context, tenantID, id int64) error {
	if _, err := s.Get(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.Services.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete service: %w", err)
	}
	return nil
}

func (s CatalogService) check(in *ServiceInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	v := s.Validate
	if v == nil {
		v = NewValidator()
	}
	if err := Validate(v, in); err != nil {
		return err
	}
	if in.Price.IsNegative() {
		return invalid("price", "price must be 0 or more")
	}
	in.Price = in.Price.Round(2)
	return nil
}
