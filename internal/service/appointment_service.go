package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"petshop-backend/internal/availability"
	"petshop-backend/internal/domain"
	"petshop-backend/internal/ports"
	"petshop-backend/internal/pricing"
	"petshop-backend/internal/repository"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	historyLimit    = 20
)

// StatusPolicy decides which status changes are allowed.
type StatusPolicy string

const (
	PolicyOpen     StatusPolicy = "open"
	PolicyTerminal StatusPolicy = "terminal"
)

// Allows reports whether an appointment may move from one status to another.
// Under the terminal policy Canceled and Completed are final.
func (p StatusPolicy) Allows(from, to domain.AppointmentStatus) bool {
	if from == to || p != PolicyTerminal {
		return true
	}
	return from != domain.StatusCanceled && from != domain.StatusCompleted
}

type AppointmentService struct {
	Appointments  ports.AppointmentStore
	Services      ports.ServiceStore
	Settings      ports.SettingsStore
	UoW           ports.UnitOfWork
	Pricing       pricing.Engine
	Validator     AppointmentValidator
	Policy        StatusPolicy
	RejectPast    bool
	PaymentMethod domain.PaymentMethod
	Logger        *slog.Logger
	Now           func() time.Time
}

type CreateAppointmentInput struct {
	PetName         string
	Species         domain.Species
	Breed           string
	Notes           string
	Size            domain.PetSize
	OwnerName       string
	OwnerPhone      string
	BaseServiceID   int64
	ExtraServiceIDs []int64
	Date            time.Time
	Time            string
	Status          domain.AppointmentStatus
}

// AppointmentPatch carries the fields a client may change. Nil means unchanged.
type AppointmentPatch struct {
	PetName         *string
	Species         *domain.Species
	Breed           *string
	Notes           *string
	Size            *domain.PetSize
	OwnerName       *string
	OwnerPhone      *string
	BaseServiceID   *int64
	ExtraServiceIDs *[]int64
	Date            *time.Time
	Time            *string
	Status          *domain.AppointmentStatus
}

type ListAppointmentsInput struct {
	Search string
	Status domain.AppointmentStatus
	Range  string
	Page   int
	Limit  int
	Sort   domain.SortOrder
}

type Pagination struct {
	CurrentPage int
	TotalPages  int
	TotalItems  int
	Limit       int
}

type AppointmentPage struct {
	Data       []domain.Appointment
	Pagination Pagination
}

func (s AppointmentService) Create(ctx context.Context, tenantID int64, in CreateAppointmentInput) (*domain.Appointment, error) {
	a := domain.Appointment{
		TenantID:      tenantID,
		PetName:       strings.TrimSpace(in.PetName),
		Species:       in.Species,
		Breed:         strings.TrimSpace(in.Breed),
		Notes:         strings.TrimSpace(in.Notes),
		Size:          in.Size,
		OwnerName:     strings.TrimSpace(in.OwnerName),
		OwnerPhone:    strings.TrimSpace(in.OwnerPhone),
		BaseServiceID: in.BaseServiceID,
		Date:          in.Date,
		Time:          strings.TrimSpace(in.Time),
		Status:        in.Status,
	}
	if a.Status == "" {
		a.Status = domain.StatusPending
	}
	if err := s.check(a, true, true); err != nil {
		return nil, err
	}
	a.Time = normalizeClock(a.Time)

	quote, err := s.quote(ctx, tenantID, a.BaseServiceID, in.ExtraServiceIDs)
	if err != nil {
		return nil, err
	}
	a.ExtraServiceIDs = quote.ExtraIDs()
	a.Price = quote.Total

	var created *domain.Appointment
	err = s.UoW.InTx(ctx, func(ctx context.Context, tx ports.TxStores) error {
		var err error
		created, err = tx.Appointments.Create(ctx, a)
		if err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
		if _, err := tx.Notifications.Create(ctx, domain.Notification{
			RecipientID: tenantID,
			Type:        domain.NotificationInfo,
			Message:     fmt.Sprintf("New appointment for %s (%s) on %s at %s", created.PetName, created.OwnerName, created.Date.Format(dateLayout), created.Time),
			Related:     &domain.RelatedRef{Kind: domain.RelatedAppointment, ID: created.ID},
		}); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
		return addAppointmentEvent(ctx, tx.Outbox, "appointment.created", *created)
	})
	if err != nil {
		return nil, err
	}
	created.BaseService = &quote.Base
	created.ExtraServices = quote.Extras
	s.logger().Info("appointment created", "tenant", tenantID, "appointment", created.ID)
	return created, nil
}

func (s AppointmentService) List(ctx context.Context, tenantID int64, in ListAppointmentsInput) (*AppointmentPage, error) {
	if in.Status != "" && !validStatus(in.Status) {
		return nil, invalid("status", "status must be one of: Pending, Confirmed, Canceled, Completed")
	}
	if in.Sort != "" && in.Sort != domain.SortAsc && in.Sort != domain.SortDesc {
		return nil, invalid("sort", "sort must be asc or desc")
	}
	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	f := ports.AppointmentFilter{
		TenantID: tenantID,
		Search:   in.Search,
		Status:   in.Status,
		Sort:     in.Sort,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}
	today := truncateDay(s.now())
	switch strings.ToLower(in.Range) {
	case "":
	case "today":
		f.From, f.To = &today, &today
	case "week":
		end := today.AddDate(0, 0, 6)
		f.From, f.To = &today, &end
	default:
		return nil, invalid("range", "range must be today or week")
	}
	if f.Sort == "" {
		f.Sort = s.preferredSort(ctx, tenantID)
	}

	items, total, err := s.Appointments.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	if err := s.expand(ctx, tenantID, items); err != nil {
		return nil, err
	}
	totalPages := (total + limit - 1) / limit
	return &AppointmentPage{
		Data: items,
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalItems:  total,
			Limit:       limit,
		},
	}, nil
}

func (s AppointmentService) Get(ctx context.Context, tenantID, id int64) (*domain.Appointment, error) {
	a, err := s.owned(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	items := []domain.Appointment{*a}
	if err := s.expand(ctx, tenantID, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (s AppointmentService) Update(ctx context.Context, tenantID, id int64, p AppointmentPatch) (*domain.Appointment, error) {
	current, err := s.owned(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	next := *current
	applyPatch(&next, p)

	if err := s.check(next, p.Time != nil, p.Date != nil || p.Time != nil); err != nil {
		return nil, err
	}
	next.Time = normalizeClock(next.Time)
	if p.Status != nil && !s.Policy.Allows(current.Status, next.Status) {
		return nil, fmt.Errorf("%w: a %s appointment cannot change status", ErrConflict, current.Status)
	}

	if p.BaseServiceID != nil || p.ExtraServiceIDs != nil {
		var extras []int64
		if p.ExtraServiceIDs != nil {
			extras = *p.ExtraServiceIDs
		} else {
			extras = current.ExtraServiceIDs
		}
		quote, err := s.quote(ctx, tenantID, next.BaseServiceID, extras)
		if err != nil {
			return nil, err
		}
		next.ExtraServiceIDs = quote.ExtraIDs()
		next.Price = quote.Total
	}

	completing := next.Status == domain.StatusCompleted && current.Status != domain.StatusCompleted

	var updated *domain.Appointment
	err = s.UoW.InTx(ctx, func(ctx context.Context, tx ports.TxStores) error {
		var err error
		updated, err = tx.Appointments.Update(ctx, next)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("update appointment: %w", err)
		}
		n := domain.Notification{
			RecipientID: tenantID,
			Type:        domain.NotificationInfo,
			Message:     fmt.Sprintf("Appointment for %s updated", updated.PetName),
			Related:     &domain.RelatedRef{Kind: domain.RelatedAppointment, ID: updated.ID},
		}
		if completing {
			n.Type = domain.NotificationSuccess
			n.Message = fmt.Sprintf("Appointment for %s completed", updated.PetName)
		}
		if _, err := tx.Notifications.Create(ctx, n); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
		if err := addAppointmentEvent(ctx, tx.Outbox, "appointment.updated", *updated); err != nil {
			return err
		}
		if !completing {
			return nil
		}

		related := updated.ID
		t, created, err := tx.Transactions.RecordIncome(ctx, domain.Transaction{
			TenantID:             tenantID,
			Description:          fmt.Sprintf("Service for %s (%s)", updated.PetName, updated.OwnerName),
			Amount:               updated.Price,
			Kind:                 domain.TransactionIncome,
			Category:             "services",
			Date:                 updated.Date,
			Status:               domain.TransactionPending,
			PaymentMethod:        s.paymentMethod(),
			RelatedAppointmentID: &related,
		})
		if err != nil {
			return fmt.Errorf("record income: %w", err)
		}
		if err := addAppointmentEvent(ctx, tx.Outbox, "appointment.completed", *updated); err != nil {
			return err
		}
		if !created {
			return nil
		}
		return addEvent(ctx, tx.Outbox, "transaction", strconv.FormatInt(t.ID, 10), "transaction.created", map[string]any{
			"id":            t.ID,
			"tenantId":      t.TenantID,
			"amount":        t.Amount.StringFixed(2),
			"appointmentId": related,
		})
	})
	if err != nil {
		return nil, err
	}

	items := []domain.Appointment{*updated}
	if err := s.expand(ctx, tenantID, items); err != nil {
		return nil, err
	}
	s.logger().Info("appointment updated", "tenant", tenantID, "appointment", id, "status", updated.Status, "completed", completing)
	return &items[0], nil
}

func (s AppointmentService) Delete(ctx context.Context, tenantID, id int64) error {
	current, err := s.owned(ctx, tenantID, id)
	if err != nil {
		return err
	}
	err = s.UoW.InTx(ctx, func(ctx context.Context, tx ports.TxStores) error {
		if err := tx.Appointments.Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("delete appointment: %w", err)
		}
		if _, err := tx.Notifications.Create(ctx, domain.Notification{
			RecipientID: tenantID,
			Type:        domain.NotificationWarning,
			Message:     fmt.Sprintf("Appointment for %s on %s at %s was removed", current.PetName, current.Date.Format(dateLayout), current.Time),
			Related:     &domain.RelatedRef{Kind: domain.RelatedAppointment, ID: id},
		}); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
		return addAppointmentEvent(ctx, tx.Outbox, "appointment.deleted", *current)
	})
	if err != nil {
		return err
	}
	s.logger().Info("appointment deleted", "tenant", tenantID, "appointment", id)
	return nil
}

// History returns the latest appointments of an owner or a pet.
func (s AppointmentService) History(ctx context.Context, tenantID int64, ownerName, petName string) ([]domain.Appointment, error) {
	ownerName, petName = strings.TrimSpace(ownerName), strings.TrimSpace(petName)
	if ownerName == "" && petName == "" {
		return nil, invalid("owner", "owner or pet is required")
	}
	items, err := s.Appointments.History(ctx, tenantID, ownerName, petName, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("appointment history: %w", err)
	}
	if err := s.expand(ctx, tenantID, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s AppointmentService) owned(ctx context.Context, tenantID, id int64) (*domain.Appointment, error) {
	a, err := s.Appointments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if a.TenantID != tenantID {
		return nil, ErrForbidden
	}
	return a, nil
}

func (s AppointmentService) check(a domain.Appointment, grid, rescheduled bool) error {
	v := s.Validator
	v.Grid = grid
	if err := v.Check(a); err != nil {
		return err
	}
	if s.RejectPast && rescheduled && s.startsInPast(a) {
		return invalid("date", "date cannot be in the past")
	}
	return nil
}

// startsInPast compares the appointment's day and start time against now.
func (s AppointmentService) startsInPast(a domain.Appointment) bool {
	m, err := availability.ParseClock(a.Time)
	if err != nil {
		return a.Date.Before(truncateDay(s.now()))
	}
	return truncateDay(a.Date).Add(time.Duration(m) * time.Minute).Before(s.now())
}

func (s AppointmentService) quote(ctx context.Context, tenantID, baseID int64, extras []int64) (pricing.Quote, error) {
	q, err := s.Pricing.Compute(ctx, tenantID, baseID, extras)
	if err != nil {
		if errors.Is(err, pricing.ErrServiceNotFound) {
			return q, invalid("baseService", "base service not found")
		}
		return q, err
	}
	return q, nil
}

// expand attaches the referenced catalog entries. References that no longer
// resolve are left out.
func (s AppointmentService) expand(ctx context.Context, tenantID int64, items []domain.Appointment) error {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[int64]struct{})
	var ids []int64
	for _, a := range items {
		for _, id := range append([]int64{a.BaseServiceID}, a.ExtraServiceIDs...) {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	found, err := s.Services.GetByIDs(ctx, tenantID, ids)
	if err != nil {
		return fmt.Errorf("load services: %w", err)
	}
	byID := make(map[int64]domain.Service, len(found))
	for _, svc := range found {
		byID[svc.ID] = svc
	}
	for i := range items {
		if base, ok := byID[items[i].BaseServiceID]; ok {
			b := base
			items[i].BaseService = &b
		}
		items[i].ExtraServices = nil
		for _, id := range items[i].ExtraServiceIDs {
			if e, ok := byID[id]; ok {
				items[i].ExtraServices = append(items[i].ExtraServices, e)
			}
		}
	}
	return nil
}

func (s AppointmentService) preferredSort(ctx context.Context, tenantID int64) domain.SortOrder {
	if s.Settings == nil {
		return domain.SortAsc
	}
	st, err := s.Settings.Get(ctx, tenantID)
	if err != nil {
		s.logger().Warn("load sort preference", "tenant", tenantID, "err", err)
		return domain.SortAsc
	}
	if st.AppointmentsSortOrder == domain.SortDesc {
		return domain.SortDesc
	}
	return domain.SortAsc
}

func (s AppointmentService) paymentMethod() domain.PaymentMethod {
	if s.PaymentMethod.Valid() {
		return s.PaymentMethod
	}
	return domain.PaymentCash
}

func (s AppointmentService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s AppointmentService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func applyPatch(a *domain.Appointment, p AppointmentPatch) {
	if p.PetName != nil {
		a.PetName = strings.TrimSpace(*p.PetName)
	}
	if p.Species != nil {
		a.Species = *p.Species
	}
	if p.Breed != nil {
		a.Breed = strings.TrimSpace(*p.Breed)
	}
	if p.Notes != nil {
		a.Notes = strings.TrimSpace(*p.Notes)
	}
	if p.Size != nil {
		a.Size = *p.Size
	}
	if p.OwnerName != nil {
		a.OwnerName = strings.TrimSpace(*p.OwnerName)
	}
	if p.OwnerPhone != nil {
		a.OwnerPhone = strings.TrimSpace(*p.OwnerPhone)
	}
	if p.BaseServiceID != nil {
		a.BaseServiceID = *p.BaseServiceID
	}
	if p.Date != nil {
		a.Date = *p.Date
	}
	if p.Time != nil {
		a.Time = strings.TrimSpace(*p.Time)
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
}

func validStatus(st domain.AppointmentStatus) bool {
	switch st {
	case domain.StatusPending, domain.StatusConfirmed, domain.StatusCanceled, domain.StatusCompleted:
		return true
	}
	return false
}

func normalizeClock(s string) string {
	m, err := availability.ParseClock(s)
	if err != nil {
		return s
	}
	return availability.FormatClock(m)
}

const dateLayout = "2006-01-02"

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func addAppointmentEvent(ctx context.Context, outbox ports.OutboxStore, eventType string, a domain.Appointment) error {
	return addEvent(ctx, outbox, "appointment", strconv.FormatInt(a.ID, 10), eventType, map[string]any{
		"id":       a.ID,
		"tenantId": a.TenantID,
		"status":   a.Status,
		"date":     a.Date.Format(dateLayout),
		"time":     a.Time,
		"price":    a.Price.StringFixed(2),
	})
}

func addEvent(ctx context.Context, outbox ports.OutboxStore, aggregate, aggregateID, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	if err := outbox.Add(ctx, domain.OutboxEvent{
		AggregateType: aggregate,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       body,
	}); err != nil {
		return fmt.Errorf("insert %s event: %w", eventType, err)
	}
	return nil
}
