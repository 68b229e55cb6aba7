package handler

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"petshop-backend/internal/domain"
	"petshop-backend/internal/repository"
	"petshop-backend/internal/server/authctx"
	"petshop-backend/internal/service"
)

var handlePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,48}[a-z0-9]$`)

type SettingsHandler struct {
	Repo     repository.SettingsRepository
	Validate *validator.Validate
}

type settingsRequest struct {
	BusinessName          *string `json:"businessName" validate:"omitempty,max=100"`
	BusinessPhone         *string `json:"businessPhone" validate:"omitempty,max=30"`
	CustomURL             *string `json:"customUrl"`
	IsURLActive           *bool   `json:"isUrlActive"`
	SlotCapacity          *int    `json:"slotCapacity" validate:"omitempty,min=1,max=50"`
	AppointmentsSortOrder *string `json:"appointmentsSortOrder" validate:"omitempty,oneof=asc desc"`
	// ValidateOnly runs every check without saving.
	ValidateOnly bool `json:"validateOnly"`
}

func (h SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/settings", h.get)
}

// RegisterAdminRoutes holds the writes, which only the tenant owner may do.
func (h SettingsHandler) RegisterAdminRoutes(r chi.Router) {
	r.Put("/settings", h.save)
}

func (h SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	s, err := h.Repo.Get(r.Context(), user.TenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toSettingsResponse(s))
}

func (h SettingsHandler) save(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	v := h.Validate
	if v == nil {
		v = service.NewValidator()
	}
	if err := service.Validate(v, req); err != nil {
		writeServiceError(w, err)
		return
	}
	current, err := h.Repo.Get(r.Context(), user.TenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	next := *current
	if req.BusinessName != nil {
		next.BusinessName = strings.TrimSpace(*req.BusinessName)
	}
	if req.BusinessPhone != nil {
		next.BusinessPhone = strings.TrimSpace(*req.BusinessPhone)
	}
	if req.IsURLActive != nil {
		next.IsURLActive = *req.IsURLActive
	}
	if req.SlotCapacity != nil {
		next.SlotCapacity = *req.SlotCapacity
	}
	if req.AppointmentsSortOrder != nil {
		next.AppointmentsSortOrder = domain.SortOrder(*req.AppointmentsSortOrder)
	}
	if req.CustomURL != nil {
		handle := strings.ToLower(strings.TrimSpace(*req.CustomURL))
		if handle == "" {
			next.CustomURL = nil
			next.IsURLActive = false
		} else {
			if !handlePattern.MatchString(handle) {
				writeError(w, http.StatusBadRequest, "customUrl must be 3-50 lowercase letters, digits or hyphens")
				return
			}
			taken, err := h.Repo.HandleTaken(r.Context(), handle, user.TenantID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if taken {
				writeError(w, http.StatusConflict, "customUrl is already in use")
				return
			}
			next.CustomURL = &handle
		}
	}
	if next.IsURLActive && next.CustomURL == nil {
		writeError(w, http.StatusBadRequest, "customUrl is required to activate the public page")
		return
	}
	if req.ValidateOnly {
		writeJSON(w, http.StatusOK, map[string]any{"valid": true})
		return
	}

	s, err := h.Repo.Save(r.Context(), next)
	if err != nil {
		if repository.IsDuplicate(err) {
			writeError(w, http.StatusConflict, "customUrl is already in use")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toSettingsResponse(s))
}

func toSettingsResponse(s *domain.Settings) map[string]any {
	out := map[string]any{
		"businessName":          s.BusinessName,
		"businessPhone":         s.BusinessPhone,
		"customUrl":             nil,
		"isUrlActive":           s.IsURLActive,
		"slotCapacity":          s.SlotCapacity,
		"appointmentsSortOrder": string(s.AppointmentsSortOrder),
	}
	if s.CustomURL != nil {
		out["customUrl"] = *s.CustomURL
	}
	if !s.UpdatedAt.IsZero() {
		out["updatedAt"] = s.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return out
}
