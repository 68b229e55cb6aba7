package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"petshop-backend/internal/domain"
	"petshop-backend/internal/server/authctx"
	"petshop-backend/internal/service"
)

type TransactionHandler struct {
	Ledger *service.LedgerService
}

func (h TransactionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/transactions", h.create)
	r.Get("/transactions", h.list)
	r.Put("/transactions/{id}", h.update)
	r.Delete("/transactions/{id}", h.remove)
}

type transactionRequest struct {
	Description   string      `json:"description"`
	Amount        json.Number `json:"amount"`
	Type          string      `json:"type"`
	Category      string      `json:"category"`
	Date          string      `json:"date"`
	Status        string      `json:"status"`
	PaymentMethod string      `json:"paymentMethod"`
}

type transactionPatchRequest struct {
	Description   *string      `json:"description"`
	Amount        *json.Number `json:"amount"`
	Category      *string      `json:"category"`
	Date          *string      `json:"date"`
	Status        *string      `json:"status"`
	PaymentMethod *string      `json:"paymentMethod"`
}

func (h TransactionHandler) create(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a number")
		return
	}
	date := time.Now()
	if req.Date != "" {
		if date, err = parseDay(req.Date); err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}
	t, err := h.Ledger.Create(r.Context(), user.TenantID, service.TransactionInput{
		Description:   req.Description,
		Amount:        amount,
		Kind:          req.Type,
		Category:      req.Category,
		Date:          date,
		Status:        req.Status,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(*t))
}

func (h TransactionHandler) list(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	startDate, endDate, ok := parseRange(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	res, err := h.Ledger.List(r.Context(), user.TenantID, service.ListTransactionsInput{
		Search:    q.Get("search"),
		Kind:      q.Get("type"),
		StartDate: startDate,
		EndDate:   endDate,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	data := make([]map[string]any, 0, len(res.Data))
	for _, t := range res.Data {
		data = append(data, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":       data,
		"pagination": toPaginationResponse(res.Pagination),
	})
}

func (h TransactionHandler) update(w http.ResponseWriter, r *http.Request) {
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
	var req transactionPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	patch := service.TransactionPatch{
		Description:   req.Description,
		Category:      req.Category,
		Status:        req.Status,
		PaymentMethod: req.PaymentMethod,
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(req.Amount.String())
		if err != nil {
			writeError(w, http.StatusBadRequest, "amount must be a number")
			return
		}
		patch.Amount = &amount
	}
	if req.Date != nil {
		d, err := parseDay(*req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		patch.Date = &d
	}
	t, err := h.Ledger.Update(r.Context(), user.TenantID, id, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(*t))
}

func (h TransactionHandler) remove(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Ledger.Delete(r.Context(), user.TenantID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func toTransactionResponse(t domain.Transaction) map[string]any {
	return map[string]any{
		"id":                 t.ID,
		"description":        t.Description,
		"amount":             money(t.Amount),
		"type":               string(t.Kind),
		"category":           t.Category,
		"date":               t.Date.Format(dateLayout),
		"status":             string(t.Status),
		"paymentMethod":      string(t.PaymentMethod),
		"relatedAppointment": t.RelatedAppointmentID,
		"createdAt":          t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toPaginationResponse(p service.Pagination) map[string]any {
	return map[string]any{
		"currentPage": p.CurrentPage,
		"totalPages":  p.TotalPages,
		"totalItems":  p.TotalItems,
		"limit":       p.Limit,
	}
}
