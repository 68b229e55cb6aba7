package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"petshop-backend/internal/availability"
	"petshop-backend/internal/domain"
	"petshop-backend/internal/service"
)

type publicService interface {
	Profile(ctx context.Context, handle string) (*domain.Settings, error)
	Availability(ctx context.Context, handle string, date time.Time) (*service.DayAvailability, error)
}

// PublicHandler serves the booking page of shops with an active handle.
type PublicHandler struct {
	Service publicService
}

func (h PublicHandler) RegisterRoutes(r chi.Router) {
	r.Get("/public/{handle}", h.profile)
	r.Get("/public/{handle}/availability", h.availability)
}

func (h PublicHandler) profile(w http.ResponseWriter, r *http.Request) {
	st, err := h.Service.Profile(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"businessName":  st.BusinessName,
		"businessPhone": st.BusinessPhone,
	})
}

func (h PublicHandler) availability(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	date, err := parseDateQuery(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if date == nil {
		h.profile(w, r)
		return
	}
	day, err := h.Service.Availability(r.Context(), handle, *date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"businessName":  day.Shop.Name,
		"businessPhone": day.Shop.Phone,
		"date":          day.Date.Format(dateLayout),
		"slots":         toSlotResponse(day.Slots),
	})
}

func toSlotResponse(slots []availability.Slot) []map[string]any {
	out := make([]map[string]any, 0, len(slots))
	for _, s := range slots {
		out = append(out, map[string]any{
			"time":        s.Time,
			"available":   s.Available,
			"bookedCount": s.BookedCount,
			"capacity":    s.Capacity,
		})
	}
	return out
}
