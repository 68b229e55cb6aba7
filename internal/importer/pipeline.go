package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"petshop-backend/internal/domain"
	"petshop-backend/internal/metrics"
	"petshop-backend/internal/ports"
	"petshop-backend/internal/pricing"
)

type appointmentChecker interface {
	Check(a domain.Appointment) error
}

// Pipeline processes one import job: it loads the stored upload, resolves
// every row against the tenant catalog and inserts the rows one by one.
type Pipeline struct {
	Files        ports.FileStore
	Services     ports.ServiceStore
	Appointments ports.AppointmentStore
	UoW          ports.UnitOfWork
	Validator    appointmentChecker
	Logger       *slog.Logger
}

// Process returns an error only when the file itself cannot be handled.
// Row problems end up in the result's failures.
func (p Pipeline) Process(ctx context.Context, job domain.ImportJob, progress func(pct int)) (domain.ImportResult, error) {
	result := domain.ImportResult{IDs: []int64{}, Failures: []domain.ImportFailure{}}

	file, err := p.Files.Load(ctx, job.FileID)
	if err != nil {
		return result, fmt.Errorf("load upload %d: %w", job.FileID, err)
	}
	rows, err := Parse(file.Data)
	if err != nil {
		return result, fmt.Errorf("parse upload: %w", err)
	}
	catalog, err := p.Services.List(ctx, job.TenantID)
	if err != nil {
		return result, fmt.Errorf("load catalog: %w", err)
	}
	byName := make(map[string]domain.Service, len(catalog))
	for _, s := range catalog {
		key := nameKey(s.Name)
		if _, dup := byName[key]; !dup {
			byName[key] = s
		}
	}

	last := -1
	for i, row := range rows {
		id, err := p.insertRow(ctx, job.TenantID, row, byName)
		if err != nil {
			p.logger().Warn("import row failed", "job", job.ID, "line", row.Line, "err", err)
			result.Failures = append(result.Failures, domain.ImportFailure{Line: row.Line, Error: err.Error()})
			metrics.ImportRows.WithLabelValues("failed").Inc()
		} else {
			result.IDs = append(result.IDs, id)
			result.InsertedCount++
			metrics.ImportRows.WithLabelValues("inserted").Inc()
		}
		if pct := (i + 1) * 100 / len(rows); pct != last && progress != nil {
			progress(pct)
			last = pct
		}
	}

	p.summarize(ctx, job, result)
	return result, nil
}

// Finish drops the stored upload once the job will not run again.
func (p Pipeline) Finish(ctx context.Context, job domain.ImportJob) {
	if err := p.Files.Delete(ctx, job.FileID); err != nil {
		p.logger().Warn("delete upload", "job", job.ID, "file", job.FileID, "err", err)
	}
}

var errBaseNotFound = errors.New("base service not found")

func (p Pipeline) insertRow(ctx context.Context, tenantID int64, row Row, byName map[string]domain.Service) (int64, error) {
	baseName := row.Get(ColBaseService)
	base, ok := byName[nameKey(baseName)]
	if !ok {
		if baseName == "" {
			return 0, errBaseNotFound
		}
		return 0, fmt.Errorf("%w: %q", errBaseNotFound, baseName)
	}

	var extras []domain.Service
	seen := map[int64]bool{}
	for _, n := range splitNames(row.Get(ColExtraServices)) {
		if s, ok := byName[nameKey(n)]; ok && !seen[s.ID] {
			seen[s.ID] = true
			extras = append(extras, s)
		}
	}
	extraIDs := make([]int64, 0, len(extras))
	for _, e := range extras {
		extraIDs = append(extraIDs, e.ID)
	}

	date, err := parseDate(row.Get(ColDate))
	if err != nil {
		return 0, err
	}
	clock, err := parseClock(row.Get(ColTime))
	if err != nil {
		return 0, err
	}

	a := domain.Appointment{
		TenantID:        tenantID,
		PetName:         row.Get(ColPetName),
		Species:         mapSpecies(row.Get(ColSpecies)),
		Breed:           row.Get(ColBreed),
		Notes:           row.Get(ColNotes),
		Size:            mapSize(row.Get(ColSize)),
		OwnerName:       row.Get(ColOwnerName),
		OwnerPhone:      row.Get(ColOwnerPhone),
		BaseServiceID:   base.ID,
		ExtraServiceIDs: extraIDs,
		Date:            date,
		Time:            clock,
		Status:          mapStatus(row.Get(ColStatus)),
		Price:           pricing.Total(base, extras),
	}
	if p.Validator != nil {
		if err := p.Validator.Check(a); err != nil {
			return 0, err
		}
	}
	created, err := p.Appointments.Create(ctx, a)
	if err != nil {
		return 0, fmt.Errorf("insert appointment: %w", err)
	}
	return created.ID, nil
}

// summarize writes one notification and one event per finished import.
// Failures here are logged; the rows are already stored.
func (p Pipeline) summarize(ctx context.Context, job domain.ImportJob, res domain.ImportResult) {
	if p.UoW == nil {
		return
	}
	n := domain.Notification{
		RecipientID: job.TenantID,
		Type:        domain.NotificationSuccess,
		Message:     fmt.Sprintf("Import finished: %d appointments added", res.InsertedCount),
	}
	if len(res.Failures) > 0 {
		n.Type = domain.NotificationWarning
		n.Message = fmt.Sprintf("Import finished: %d appointments added, %d rows skipped", res.InsertedCount, len(res.Failures))
	}
	payload, err := json.Marshal(map[string]any{
		"jobId":         job.ID,
		"tenantId":      job.TenantID,
		"insertedCount": res.InsertedCount,
		"failedCount":   len(res.Failures),
	})
	if err != nil {
		p.logger().Warn("encode import event", "job", job.ID, "err", err)
		return
	}
	err = p.UoW.InTx(ctx, func(ctx context.Context, tx ports.TxStores) error {
		if _, err := tx.Notifications.Create(ctx, n); err != nil {
			return err
		}
		return tx.Outbox.Add(ctx, domain.OutboxEvent{
			AggregateType: "import",
			AggregateID:   job.ID,
			EventType:     "appointments.imported",
			Payload:       payload,
		})
	})
	if err != nil {
		p.logger().Warn("import summary", "job", job.ID, "tenant", strconv.FormatInt(job.TenantID, 10), "err", err)
	}
}

func (p Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func nameKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
