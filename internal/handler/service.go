package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"petshop-backend/internal/domain"
	"petshop-backend/internal/server/authctx"
	"petshop-backend/internal/service"
)

//go:generate mockgen -source=service.go -destination=../mocks/handler/service_mock.go -package=mocks

type catalogService interface {
	Create(ctx context.Context, tenantID int64, in service.ServiceInput) (*domain.Service, error)
	List(ctx context.Context, tenantID int64) ([]domain.Service, error)
	Get(ctx context.Context, tenantID, id int64) (*domain.Service, error)
	Update(ctx context.Context, tenantID, id int64, in service.ServiceInput) (*domain.Service, error)
	Delete(ctx context.Context, tenantID, id int64) error
}

// ServiceHandler serves the shop's catalog of base and extra services.
type ServiceHandler struct {
	Catalog catalogService
}

func (h ServiceHandler) RegisterRoutes(r chi.Router) {
	r.Post("/services", h.create)
	r.Get("/services", h.list)
	r.Get("/services/{id}", h.get)
	r.Put("/services/{id}", h.update)
	r.Delete("/services/{id}", h.remove)
}

type serviceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       any    `json:"price"`
	Duration    int    `json:"duration"`
	Extra       bool   `json:"extra"`
}

func (req serviceRequest) toInput() (service.ServiceInput, bool) {
	price, ok := parsePrice(req.Price)
	if !ok {
		return service.ServiceInput{}, false
	}
	return service.ServiceInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Duration:    req.Duration,
		IsExtra:     req.Extra,
	}, true
}

// parsePrice reads a price sent either as a JSON number or a numeric string.
func parsePrice(v any) (decimal.Decimal, bool) {
	switch p := v.(type) {
	case nil:
		return decimal.Zero, true
	case string:
		d, err := decimal.NewFromString(p)
		return d, err == nil
	case interface{ String() string }:
		d, err := decimal.NewFromString(p.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(p), true
	}
	return decimal.Zero, false
}

func (h ServiceHandler) create(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req serviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	in, ok := req.toInput()
	if !ok {
		writeError(w, http.StatusBadRequest, "price must be a number")
		return
	}
	svc, err := h.Catalog.Create(r.Context(), user.TenantID, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toServiceResponse(*svc))
}

func (h ServiceHandler) list(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	items, err := h.Catalog.List(r.Context(), user.TenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, s := range items {
		out = append(out, toServiceResponse(s))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h ServiceHandler) get(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	svc, err := h.Catalog.Get(r.Context(), user.TenantID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponse(*svc))
}

func (h ServiceHandler) update(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req serviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	in, ok := req.toInput()
	if !ok {
		writeError(w, http.StatusBadRequest, "price must be a number")
		return
	}
	svc, err := h.Catalog.Update(r.Context(), user.TenantID, id, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponse(*svc))
}

func (h ServiceHandler) remove(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Catalog.Delete(r.Context(), user.TenantID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func toServiceResponse(s domain.Service) map[string]any {
	return map[string]any{
		"id":          s.ID,
		"name":        s.Name,
		"description": s.Description,
		"price":       money(s.Price),
		"duration":    s.Duration,
		"extra":       s.IsExtra,
		"createdAt":   s.CreatedAt.UTC().Format(time.RFC3339),
	}
}
