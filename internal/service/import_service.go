package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"petshop-backend/internal/domain"
	"petshop-backend/internal/ports"
	"petshop-backend/internal/queue"
)

// ImportService accepts bulk-import uploads and reports job status.
type ImportService struct {
	Files       ports.FileStore
	Queue       ports.JobQueue
	MaxAttempts int
	Logger      *slog.Logger
}

type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Enqueue stores the file and queues a job for it.
func (s ImportService) Enqueue(ctx context.Context, tenantID int64, up Upload) (*domain.ImportJob, error) {
	if len(up.Data) == 0 {
		return nil, invalid("file", "file is required")
	}
	fileID, err := s.Files.Save(ctx, domain.StoredFile{
		TenantID:    tenantID,
		Filename:    up.Filename,
		ContentType: up.ContentType,
		Data:        up.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	job, err := s.Queue.Enqueue(ctx, domain.ImportJob{
		TenantID:    tenantID,
		FileID:      fileID,
		MaxAttempts: s.MaxAttempts,
	})
	if err != nil {
		if delErr := s.Files.Delete(ctx, fileID); delErr != nil && s.Logger != nil {
			s.Logger.Warn("drop orphaned upload", "file", fileID, "err", delErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if s.Logger != nil {
		s.Logger.Info("import queued", "tenant", tenantID, "job", job.ID, "file", fileID, "bytes", len(up.Data))
	}
	return job, nil
}

// Status returns the job when it belongs to tenantID. Jobs of other tenants
// are reported as missing.
func (s ImportService) Status(ctx context.Context, tenantID int64, jobID string) (*domain.ImportJob, error) {
	job, err := s.Queue.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, queue.ErrJobNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if job.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return job, nil
}
