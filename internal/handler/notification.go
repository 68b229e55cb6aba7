package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"petshop-backend/internal/domain"
	"petshop-backend/internal/repository"
	"petshop-backend/internal/server/authctx"
)

const notificationPageSize = 50

type NotificationHandler struct {
	Repo repository.NotificationRepository
}

func (h NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/notifications", h.list)
	r.Put("/notifications/read-all", h.markAll)
	r.Put("/notifications/{id}/read", h.markOne)
}

func (h NotificationHandler) list(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	items, err := h.Repo.List(r.Context(), user.TenantID, notificationPageSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	unread, err := h.Repo.CountUnread(r.Context(), user.TenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(items))
	for _, n := range items {
		resp = append(resp, toNotificationResponse(n))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": resp,
		"unreadCount":   unread,
	})
}

func (h NotificationHandler) markOne(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Repo.MarkRead(r.Context(), user.TenantID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "read": true})
}

func (h NotificationHandler) markAll(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	n, err := h.Repo.MarkAllRead(r.Context(), user.TenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": n})
}

func toNotificationResponse(n domain.Notification) map[string]any {
	out := map[string]any{
		"id":        n.ID,
		"type":      string(n.Type),
		"message":   n.Message,
		"read":      n.Read,
		"timestamp": n.CreatedAt.Format(time.RFC3339),
	}
	if n.Related != nil {
		out["related"] = map[string]any{"kind": string(n.Related.Kind), "id": n.Related.ID}
	}
	return out
}
