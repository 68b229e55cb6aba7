package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"petshop-backend/internal/repository"
	"petshop-backend/internal/server/authctx"
)

type DashboardHandler struct {
	Repo repository.DashboardRepository
	Now  func() time.Time
}

func (h DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard/stats", h.stats)
}

func (h DashboardHandler) stats(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	y, m, d := now().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	data, err := h.Repo.Stats(r.Context(), user.TenantID, today)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	todayList := make([]map[string]any, 0, len(data.Today))
	for _, a := range data.Today {
		todayList = append(todayList, map[string]any{
			"id":          a.ID,
			"time":        a.Time,
			"petName":     a.PetName,
			"ownerName":   a.OwnerName,
			"status":      a.Status,
			"serviceName": a.ServiceName,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":              today.Format(dateLayout),
		"todayAppointments": todayList,
		"nextSevenDays":     toCountItems(data.NextSevenDay),
		"statusCounts":      toCountItems(data.StatusCounts),
		"byHour":            toCountItems(data.ByHour),
		"services":          toCountItems(data.Services),
		"lastSevenDays":     toCountItems(data.LastSevenDay),
	})
}

func toCountItems(items []repository.DashboardItem) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, map[string]any{"label": it.Label, "count": it.Count})
	}
	return out
}
