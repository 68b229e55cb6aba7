package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"petshop-backend/internal/domain"
	"petshop-backend/internal/server/authctx"
	"petshop-backend/internal/service"
)

//go:generate mockgen -source=import.go -destination=../mocks/handler/import_mock.go -package=mocks

type importService interface {
	Enqueue(ctx context.Context, tenantID int64, up service.Upload) (*domain.ImportJob, error)
	Status(ctx context.Context, tenantID int64, jobID string) (*domain.ImportJob, error)
}

type ImportHandler struct {
	Imports  importService
	MaxBytes int64
}

func (h ImportHandler) RegisterRoutes(r chi.Router) {
	r.Post("/appointments/import", h.upload)
	r.Get("/appointments/import/{jobId}/status", h.status)
}

func (h ImportHandler) upload(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	maxBytes := h.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	if header.Size > maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeErrorWithErr(w, http.StatusBadRequest, "read file", err)
		return
	}

	job, err := h.Imports.Enqueue(r.Context(), user.TenantID, service.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"jobId": job.ID,
		"state": string(job.State),
	})
}

func (h ImportHandler) status(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	job, err := h.Imports.Status(r.Context(), user.TenantID, chi.URLParam(r, "jobId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := map[string]any{
		"jobId":     job.ID,
		"state":     string(job.State),
		"progress":  job.Progress,
		"attempts":  job.Attempts,
		"createdAt": job.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt": job.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if job.Result != nil {
		failures := make([]map[string]any, 0, len(job.Result.Failures))
		for _, f := range job.Result.Failures {
			failures = append(failures, map[string]any{"line": f.Line, "error": f.Error})
		}
		ids := job.Result.IDs
		if ids == nil {
			ids = []int64{}
		}
		out["result"] = map[string]any{
			"insertedCount": job.Result.InsertedCount,
			"ids":           ids,
			"failures":      failures,
		}
	}
	if job.Error != "" {
		out["error"] = job.Error
	}
	writeJSON(w, http.StatusOK, out)
}
