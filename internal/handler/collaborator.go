package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"petshop-backend/internal/server/authctx"
	"petshop-backend/internal/service"
)

type CollaboratorHandler struct {
	Service *service.CollaboratorService
}

// RegisterPublicRoutes holds the invitation acceptance, which runs before
// the collaborator has credentials.
func (h CollaboratorHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/collaborators/accept", h.accept)
}

func (h CollaboratorHandler) RegisterRoutes(r chi.Router) {
	r.Post("/collaborators/invite", h.invite)
	r.Get("/collaborators", h.list)
	r.Delete("/collaborators/{id}", h.remove)
}

func (h CollaboratorHandler) invite(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req service.InviteInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	invited, err := h.Service.Invite(r.Context(), user.TenantID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(*invited))
}

func (h CollaboratorHandler) accept(w http.ResponseWriter, r *http.Request) {
	var req service.AcceptInviteInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	u, err := h.Service.Accept(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(*u))
}

func (h CollaboratorHandler) list(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	items, err := h.Service.List(r.Context(), user.TenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := make([]map[string]any, 0, len(items))
	for _, u := range items {
		resp = append(resp, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{"collaborators": resp})
}

func (h CollaboratorHandler) remove(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Service.Remove(r.Context(), user.TenantID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
