package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"petshop-backend/internal/domain"
	"petshop-backend/internal/server/authctx"
	"petshop-backend/internal/service"
)

//go:generate mockgen -source=appointment.go -destination=../mocks/handler/appointment_mock.go -package=mocks

type appointmentService interface {
	Create(ctx context.Context, tenantID int64, in service.CreateAppointmentInput) (*domain.Appointment, error)
	List(ctx context.Context, tenantID int64, in service.ListAppointmentsInput) (*service.AppointmentPage, error)
	Get(ctx context.Context, tenantID, id int64) (*domain.Appointment, error)
	Update(ctx context.Context, tenantID, id int64, p service.AppointmentPatch) (*domain.Appointment, error)
	Delete(ctx context.Context, tenantID, id int64) error
	History(ctx context.Context, tenantID int64, ownerName, petName string) ([]domain.Appointment, error)
}

type AppointmentHandler struct {
	Service appointmentService
}

func (h AppointmentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/appointments", h.create)
	r.Get("/appointments", h.list)
	r.Get("/appointments/history", h.history)
	r.Get("/appointments/{id}", h.get)
	r.Put("/appointments/{id}", h.update)
	r.Delete("/appointments/{id}", h.remove)
}

type appointmentRequest struct {
	PetName       string    `json:"petName"`
	Species       string    `json:"species"`
	Breed         string    `json:"breed"`
	Notes         string    `json:"notes"`
	Size          string    `json:"size"`
	OwnerName     string    `json:"ownerName"`
	OwnerPhone    string    `json:"ownerPhone"`
	BaseService   idValue   `json:"baseService"`
	ExtraServices []idValue `json:"extraServices"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Status        string    `json:"status"`
}

// Only the listed fields can be patched; anything else in the body is ignored.
type appointmentPatchRequest struct {
	PetName       *string    `json:"petName"`
	Species       *string    `json:"species"`
	Breed         *string    `json:"breed"`
	Notes         *string    `json:"notes"`
	Size          *string    `json:"size"`
	OwnerName     *string    `json:"ownerName"`
	OwnerPhone    *string    `json:"ownerPhone"`
	BaseService   *idValue   `json:"baseService"`
	ExtraServices *[]idValue `json:"extraServices"`
	Date          *string    `json:"date"`
	Time          *string    `json:"time"`
	Status        *string    `json:"status"`
}

// idValue accepts ids sent as numbers or numeric strings.
type idValue int64

func (v *idValue) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*v = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*v = idValue(n)
	return nil
}

func toIDs(vals []idValue) []int64 {
	out := make([]int64, 0, len(vals))
	for _, v := range vals {
		out = append(out, int64(v))
	}
	return out
}

func (h AppointmentHandler) create(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	var date time.Time
	if req.Date != "" {
		d, err := parseDay(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = d
	}
	a, err := h.Service.Create(r.Context(), user.TenantID, service.CreateAppointmentInput{
		PetName:         req.PetName,
		Species:         domain.Species(req.Species),
		Breed:           req.Breed,
		Notes:           req.Notes,
		Size:            domain.PetSize(req.Size),
		OwnerName:       req.OwnerName,
		OwnerPhone:      req.OwnerPhone,
		BaseServiceID:   int64(req.BaseService),
		ExtraServiceIDs: toIDs(req.ExtraServices),
		Date:            date,
		Time:            req.Time,
		Status:          domain.AppointmentStatus(req.Status),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(*a))
}

func (h AppointmentHandler) list(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	res, err := h.Service.List(r.Context(), user.TenantID, service.ListAppointmentsInput{
		Search: q.Get("search"),
		Status: domain.AppointmentStatus(q.Get("status")),
		Range:  q.Get("range"),
		Page:   page,
		Limit:  limit,
		Sort:   domain.SortOrder(strings.ToLower(q.Get("sort"))),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	data := make([]map[string]any, 0, len(res.Data))
	for _, a := range res.Data {
		data = append(data, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":       data,
		"pagination": toPaginationResponse(res.Pagination),
	})
}

func (h AppointmentHandler) history(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	items, err := h.Service.History(r.Context(), user.TenantID, r.URL.Query().Get("owner"), r.URL.Query().Get("pet"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	data := make([]map[string]any, 0, len(items))
	for _, a := range items {
		data = append(data, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, data)
}

func (h AppointmentHandler) get(w http.ResponseWriter, r *http.Request) {
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
	a, err := h.Service.Get(r.Context(), user.TenantID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(*a))
}

func (h AppointmentHandler) update(w http.ResponseWriter, r *http.Request) {
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
	var req appointmentPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	patch := service.AppointmentPatch{
		PetName:    req.PetName,
		Breed:      req.Breed,
		Notes:      req.Notes,
		OwnerName:  req.OwnerName,
		OwnerPhone: req.OwnerPhone,
		Time:       req.Time,
	}
	if req.Species != nil {
		v := domain.Species(*req.Species)
		patch.Species = &v
	}
	if req.Size != nil {
		v := domain.PetSize(*req.Size)
		patch.Size = &v
	}
	if req.Status != nil {
		v := domain.AppointmentStatus(*req.Status)
		patch.Status = &v
	}
	if req.BaseService != nil {
		v := int64(*req.BaseService)
		patch.BaseServiceID = &v
	}
	if req.ExtraServices != nil {
		v := toIDs(*req.ExtraServices)
		patch.ExtraServiceIDs = &v
	}
	if req.Date != nil {
		d, err := parseDay(*req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		patch.Date = &d
	}
	a, err := h.Service.Update(r.Context(), user.TenantID, id, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(*a))
}

func (h AppointmentHandler) remove(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Service.Delete(r.Context(), user.TenantID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func toAppointmentResponse(a domain.Appointment) map[string]any {
	extras := make([]map[string]any, 0, len(a.ExtraServices))
	for _, s := range a.ExtraServices {
		extras = append(extras, toServiceResponse(s))
	}
	var base any
	if a.BaseService != nil {
		base = toServiceResponse(*a.BaseService)
	}
	extraIDs := a.ExtraServiceIDs
	if extraIDs == nil {
		extraIDs = []int64{}
	}
	return map[string]any{
		"id":              a.ID,
		"petName":         a.PetName,
		"species":         string(a.Species),
		"breed":           a.Breed,
		"notes":           a.Notes,
		"size":            string(a.Size),
		"ownerName":       a.OwnerName,
		"ownerPhone":      a.OwnerPhone,
		"baseServiceId":   a.BaseServiceID,
		"extraServiceIds": extraIDs,
		"baseService":     base,
		"extraServices":   extras,
		"date":            a.Date.Format(dateLayout),
		"time":            a.Time,
		"status":          string(a.Status),
		"price":           money(a.Price),
		"createdAt":       a.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":       a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
