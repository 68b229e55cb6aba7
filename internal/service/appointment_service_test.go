package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petshop-backend/internal/domain"
	"petshop-backend/internal/pricing"
)

const tenantA, tenantB = int64(1), int64(2)

var today = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAppointmentService(db *memDB) AppointmentService {
	return AppointmentService{
		Appointments: memAppointments{db: db},
		Services:     memServices{db: db},
		Settings:     memSettings{db: db},
		UoW:          memUoW{db: db},
		Pricing:      pricing.Engine{Catalog: memServices{db: db}},
		Validator:    AppointmentValidator{V: NewValidator()},
		Policy:       PolicyOpen,
		Logger:       quietLogger(),
		Now:          func() time.Time { return today.Add(9 * time.Hour) },
	}
}

func validInput(baseID int64, extras ...int64) CreateAppointmentInput {
	return CreateAppointmentInput{
		PetName:         "Rex",
		Species:         domain.SpeciesDog,
		Size:            domain.SizeMedium,
		OwnerName:       "Ana Souza",
		OwnerPhone:      "(11) 91234-5678",
		BaseServiceID:   baseID,
		ExtraServiceIDs: extras,
		Date:            today,
		Time:            "10:30",
	}
}

func TestAppointmentService_Create_PricesAndRecords(t *testing.T) {
	db := newMemDB()
	bath := db.addService(tenantA, "Banho", "40.00", false)
	hydration := db.addService(tenantA, "Hidratação", "15.50", true)
	foreign := db.addService(tenantB, "Tosa", "99.00", true)
	svc := newAppointmentService(db)

	a, err := svc.Create(context.Background(), tenantA, validInput(bath.ID, hydration.ID, hydration.ID, foreign.ID, 9999))
	require.NoError(t, err)

	assert.Equal(t, "55.5", a.Price.String())
	assert.Equal(t, []int64{hydration.ID}, a.ExtraServiceIDs)
	assert.Equal(t, domain.StatusPending, a.Status)
	require.NotNil(t, a.BaseService)
	assert.Equal(t, "Banho", a.BaseService.Name)
	assert.Len(t, a.ExtraServices, 1)

	require.Len(t, db.notifications, 1)
	assert.Equal(t, tenantA, db.notifications[0].RecipientID)
	require.Len(t, db.outbox, 1)
	assert.Equal(t, "appointment.created", db.outbox[0].EventType)
}

func TestAppointmentService_Create_ForeignBaseService(t *testing.T) {
	db := newMemDB()
	foreign := db.addService(tenantB, "Tosa", "99.00", false)
	svc := newAppointmentService(db)

	_, err := svc.Create(context.Background(), tenantA, validInput(foreign.ID))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "baseService", verr.Field)
	assert.Empty(t, db.appointments)
	assert.Empty(t, db.notifications)
}

func TestAppointmentService_Create_Validation(t *testing.T) {
	db := newMemDB()
	bath := db.addService(tenantA, "Banho", "40.00", false)
	svc := newAppointmentService(db)

	tests := []struct {
		name  string
		edit  func(in *CreateAppointmentInput)
		field string
	}{
		{name: "off grid time", edit: func(in *CreateAppointmentInput) { in.Time = "10:15" }, field: "time"},
		{name: "bad clock", edit: func(in *CreateAppointmentInput) { in.Time = "25:00" }, field: "time"},
		{name: "bad phone", edit: func(in *CreateAppointmentInput) { in.OwnerPhone = "123" }, field: "ownerPhone"},
		{name: "unknown species", edit: func(in *CreateAppointmentInput) { in.Species = "Bird" }, field: "species"},
		{name: "missing pet", edit: func(in *CreateAppointmentInput) { in.PetName = "  " }, field: "petName"},
		{name: "missing date", edit: func(in *CreateAppointmentInput) { in.Date = time.Time{} }, field: "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(bath.ID)
			tt.edit(&in)

			_, err := svc.Create(context.Background(), tenantA, in)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.Empty(t, db.appointments)
}

func TestAppointmentService_Create_RejectPast(t *testing.T) {
	db := newMemDB()
	bath := db.addService(tenantA, "Banho", "40.00", false)
	svc := newAppointmentService(db)
	in := validInput(bath.ID)
	in.Date = today.AddDate(0, 0, -1)

	_, err := svc.Create(context.Background(), tenantA, in)
	require.NoError(t, err)

	svc.RejectPast = true
	_, err = svc.Create(context.Background(), tenantA, in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "date", verr.Field)

	// now is today 09:00
	in.Date = today
	in.Time = "08:00"
	_, err = svc.Create(context.Background(), tenantA, in)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "date", verr.Field)

	in.Time = "09:30"
	_, err = svc.Create(context.Background(), tenantA, in)
	require.NoError(t, err)
}

func TestAppointmentService_Update_RejectPastTime(t *testing.T) {
	db := newMemDB()
	bath := db.addService(tenantA, "Banho", "40.00", false)
	svc := newAppointmentService(db)
	svc.RejectPast = true
	created, err := svc.Create(context.Background(), tenantA, validInput(bath.ID))
	require.NoError(t, err)

	earlier := "08:30"
	_, err = svc.Update(context.Background(), tenantA, created.ID, AppointmentPatch{Time: &earlier})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "date", verr.Field)
}

func TestAppointmentService_Update_CompletionBooksIncome(t *testing.T) {
	db := newMemDB()
	bath := db.addService(tenantA, "Banho", "40.00", false)
	extra := db.addService(tenantA, "Perfume", "5.25", true)
	svc := newAppointmentService(db)
	svc.PaymentMethod = domain.PaymentPix
	a, err := svc.Create(context.Background(), tenantA, validInput(bath.ID, extra.ID))
	require.NoError(t, err)

	completed := domain.StatusCompleted
	out, err := svc.Update(context.Background(), tenantA, a.ID, AppointmentPatch{Status: &completed})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, out.Status)

	require.Len(t, db.transactions, 1)
	for _, tx := range db.transactions {
		assert.Equal(t, domain.TransactionIncome, tx.Kind)
		assert.Equal(t, domain.TransactionPending, tx.Status)
		assert.Equal(t, domain.PaymentPix, tx.PaymentMethod)
		assert.Equal(t, "45.25", tx.Amount.StringFixed(2))
		require.NotNil(t, tx.RelatedAppointmentID)
		assert.Equal(t, a.ID, *tx.RelatedAppointmentID)
	}

	var types []string
	for _, ev := range db.outbox {
		types = append(types, ev.EventType)
	}
	assert.Equal(t, []string{"appointment.created", "appointment.updated", "appointment.completed", "transaction.created"}, types)
	assert.Equal(t, domain.NotificationSuccess, db.notifications[len(db.notifications)-1].Type)

	// completing again books nothing new
	_, err = svc.Update(context.Background(), tenantA, a.ID, AppointmentPatch{Status: &completed})
	require.NoError(t, err)
	assert.Len(t, db.transactions, 1)
}

func TestAppointmentService_Update_RecompletionBooksIncomeOnce(t *testing.T) {
	db := newMemDB()
	bath := db.addService(tenantA, "Banho", "40.00", false)
	svc := newAppointmentService(db)
	a, err := svc.Create(context.Background(), tenantA, validInput(bath.ID))
	require.NoError(t, err)

	completed, pending := domain.StatusCompleted, domain.StatusPending
	for _, st := range []*domain.AppointmentStatus{&completed, &pending, &completed} {
		_, err := svc.Update(context.Background(), tenantA, a.ID, AppointmentPatch{Status: st})
		require.NoError(t, err)
	}

	assert.Len(t, db.transactions, 1)
	created := 0
	for _, ev := range db.outbox {
		if ev.EventType == "transaction.created" {
			created++
		}
	}
	assert.Equal(t, 1, created)
}

func TestAppointmentService_Update_CompletionIsAtomic(t *testing.T) {
	db := newMemDB()
	bath := db.addService(tenantA, "Banho", "40.00", false)
	svc := newAppointmentService(db)
	a, err := svc.Create(context.Background(), tenantA, validInput(bath.ID))
	require.NoError(t, err)
	notesBefore, eventsBefore := len(db.notifications), len(db.outbox)

	db.failTransactions = true
	completed := domain.StatusCompleted
	_, err = svc.Update(context.Background(), tenantA, a.ID, AppointmentPatch{Status: &completed})
	require.Error(t, err)

	stored := db.appointments[a.ID]
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Empty(t, db.transactions)
	assert.Len(t, db.notifications, notesBefore)
	assert.Len(t, db.outbox, eventsBefore)
}

func TestAppointmentService_Create_RollsBackWhenOutboxFails(t *testing.T) {
	db := newMemDB()
	bath := db.addService(tenantA, "Banho", "40.00", false)
	svc := newAppointmentService(db)
	db.failOutbox = true

	_, err := svc.Create(context.Background(), tenantA, validInput(bath.ID))

	require.Error(t, err)
	assert.Empty(t, db.appointments)
	assert.Empty(t, db.notifications)
}

func TestAppointmentService_TenantIsolation(t *testing.T) {
	db := newMemDB()
	bath := db.addService(tenantA, "Banho", "40.00", false)
	svc := newAppointmentService(db)
	a, err := svc.Create(context.Background(), tenantA, validInput(bath.ID))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), tenantB, a.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	name := "Thor"
	_, err = svc.Update(context.Background(), tenantB, a.ID, AppointmentPatch{PetName: &name})
	assert.ErrorIs(t, err, ErrForbidden)

	err = svc.Delete(context.Background(), tenantB, a.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, db.appointments, a.ID)

	page, err := svc.List(context.Background(), tenantB, ListAppointmentsInput{})
	require.NoError(t, err)
	assert.Empty(t, page.Data)

	_, err = svc.Get(context.Background(), tenantA, 424242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatusPolicy(t *testing.T) {
	tests := []struct {
		policy StatusPolicy
		from   domain.AppointmentStatus
		to     domain.AppointmentStatus
		want   bool
	}{
		{PolicyOpen, domain.StatusCompleted, domain.StatusPending, true},
		{PolicyOpen, domain.StatusCanceled, domain.StatusConfirmed, true},
		{PolicyTerminal, domain.StatusPending, domain.StatusCompleted, true},
		{PolicyTerminal, domain.StatusCompleted, domain.StatusPending, false},
		{PolicyTerminal, domain.StatusCanceled, domain.StatusConfirmed, false},
		{PolicyTerminal, domain.StatusCanceled, domain.StatusCanceled, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s to %s", tt.policy, tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Allows(tt.from, tt.to))
		})
	}
}

func TestAppointmentService_Update_TerminalPolicy(t *testing.T) {
	db := newMemDB()
	bath := db.addService(tenantA, "Banho", "40.00", false)
	svc := newAppointmentService(db)
	svc.Policy = PolicyTerminal
	a, err := svc.Create(context.Background(), tenantA, validInput(bath.ID))
	require.NoError(t, err)

	canceled, pending := domain.StatusCanceled, domain.StatusPending
	_, err = svc.Update(context.Background(), tenantA, a.ID, AppointmentPatch{Status: &canceled})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), tenantA, a.ID, AppointmentPatch{Status: &pending})
	assert.ErrorIs(t, err, ErrConflict)

	// other fields of a closed appointment stay editable
	notes := "client asked for a call"
	_, err = svc.Update(context.Background(), tenantA, a.ID, AppointmentPatch{Notes: &notes})
	assert.NoError(t, err)
}

func TestAppointmentService_Update_Reprices(t *testing.T) {
	db := newMemDB()
	bath := db.addService(tenantA, "Banho", "40.00", false)
	grooming := db.addService(tenantA, "Banho e Tosa", "70.00", false)
	extra := db.addService(tenantA, "Perfume", "5.00", true)
	svc := newAppointmentService(db)
	a, err := svc.Create(context.Background(), tenantA, validInput(bath.ID, extra.ID))
	require.NoError(t, err)

	out, err := svc.Update(context.Background(), tenantA, a.ID, AppointmentPatch{BaseServiceID: &grooming.ID})
	require.NoError(t, err)
	assert.Equal(t, "75.00", out.Price.StringFixed(2))

	none := []int64{}
	out, err = svc.Update(context.Background(), tenantA, a.ID, AppointmentPatch{ExtraServiceIDs: &none})
	require.NoError(t, err)
	assert.Equal(t, "70.00", out.Price.StringFixed(2))
	assert.Empty(t, out.ExtraServiceIDs)
}

func TestAppointmentService_List_PaginatesAndSorts(t *testing.T) {
	db := newMemDB()
	bath := db.addService(tenantA, "Banho", "40.00", false)
	svc := newAppointmentService(db)
	for i := 0; i < 12; i++ {
		in := validInput(bath.ID)
		in.PetName = fmt.Sprintf("Pet %02d", i)
		in.Date = today.AddDate(0, 0, i)
		_, err := svc.Create(context.Background(), tenantA, in)
		require.NoError(t, err)
	}

	page, err := svc.List(context.Background(), tenantA, ListAppointmentsInput{Page: 3, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, Pagination{CurrentPage: 3, TotalPages: 3, TotalItems: 12, Limit: 5}, page.Pagination)
	assert.Equal(t, "Pet 10", page.Data[0].PetName)

	page, err = svc.List(context.Background(), tenantA, ListAppointmentsInput{Sort: domain.SortDesc, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, "Pet 11", page.Data[0].PetName)

	page, err = svc.List(context.Background(), tenantA, ListAppointmentsInput{Range: "week"})
	require.NoError(t, err)
	assert.Equal(t, 7, page.Pagination.TotalItems)

	page, err = svc.List(context.Background(), tenantA, ListAppointmentsInput{Range: "today"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.TotalItems)
}

func TestAppointmentService_List_UsesSavedSortPreference(t *testing.T) {
	db := newMemDB()
	bath := db.addService(tenantA, "Banho", "40.00", false)
	db.settings[tenantA] = domain.Settings{TenantID: tenantA, AppointmentsSortOrder: domain.SortDesc}
	svc := newAppointmentService(db)
	for i := 0; i < 3; i++ {
		in := validInput(bath.ID)
		in.PetName = fmt.Sprintf("Pet %d", i)
		in.Date = today.AddDate(0, 0, i)
		_, err := svc.Create(context.Background(), tenantA, in)
		require.NoError(t, err)
	}

	page, err := svc.List(context.Background(), tenantA, ListAppointmentsInput{})
	require.NoError(t, err)
	assert.Equal(t, "Pet 2", page.Data[0].PetName)
}

func TestAppointmentService_List_RejectsBadFilters(t *testing.T) {
	svc := newAppointmentService(newMemDB())

	for _, in := range []ListAppointmentsInput{
		{Range: "month"},
		{Status: "Lost"},
		{Sort: "sideways"},
	} {
		_, err := svc.List(context.Background(), tenantA, in)
		var verr *ValidationError
		assert.True(t, errors.As(err, &verr), "input %+v", in)
	}
}

func TestAppointmentService_Get_DropsDanglingServices(t *testing.T) {
	db := newMemDB()
	bath := db.addService(tenantA, "Banho", "40.00", false)
	extra := db.addService(tenantA, "Perfume", "5.00", true)
	svc := newAppointmentService(db)
	a, err := svc.Create(context.Background(), tenantA, validInput(bath.ID, extra.ID))
	require.NoError(t, err)

	delete(db.services, bath.ID)
	delete(db.services, extra.ID)

	out, err := svc.Get(context.Background(), tenantA, a.ID)
	require.NoError(t, err)
	assert.Nil(t, out.BaseService)
	assert.Empty(t, out.ExtraServices)
	assert.Equal(t, bath.ID, out.BaseServiceID)
	assert.Equal(t, "45", out.Price.String())
}

func TestAppointmentService_Delete(t *testing.T) {
	db := newMemDB()
	bath := db.addService(tenantA, "Banho", "40.00", false)
	svc := newAppointmentService(db)
	a, err := svc.Create(context.Background(), tenantA, validInput(bath.ID))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), tenantA, a.ID))

	assert.Empty(t, db.appointments)
	last := db.notifications[len(db.notifications)-1]
	assert.Equal(t, domain.NotificationWarning, last.Type)
	assert.Equal(t, "appointment.deleted", db.outbox[len(db.outbox)-1].EventType)
	assert.ErrorIs(t, svc.Delete(context.Background(), tenantA, a.ID), ErrNotFound)
}

func TestAppointmentService_History(t *testing.T) {
	db := newMemDB()
	bath := db.addService(tenantA, "Banho", "40.00", false)
	svc := newAppointmentService(db)
	_, err := svc.Create(context.Background(), tenantA, validInput(bath.ID))
	require.NoError(t, err)

	items, err := svc.History(context.Background(), tenantA, "ana souza", "")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = svc.History(context.Background(), tenantA, " ", "")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
