package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petshop-backend/internal/availability"
	"petshop-backend/internal/domain"
)

func publicShop(db *memDB, handle string, active bool) {
	db.settings[tenantA] = domain.Settings{
		TenantID:      tenantA,
		BusinessName:  "Pet Feliz",
		BusinessPhone: "(11) 91234-5678",
		CustomURL:     &handle,
		IsURLActive:   active,
		SlotCapacity:  1,
	}
}

func TestPublicService_Availability(t *testing.T) {
	db := newMemDB()
	publicShop(db, "pet-feliz", true)
	for _, a := range []domain.Appointment{
		{ID: 1, TenantID: tenantA, Date: today, Time: "09:00", Status: domain.StatusConfirmed},
		{ID: 2, TenantID: tenantA, Date: today, Time: "10:00", Status: domain.StatusCanceled},
		{ID: 3, TenantID: tenantB, Date: today, Time: "11:00", Status: domain.StatusPending},
	} {
		db.appointments[a.ID] = a
	}
	svc := PublicService{Settings: memSettings{db: db}, Appointments: memAppointments{db: db}}

	day, err := svc.Availability(context.Background(), "Pet-Feliz", today.Add(15*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, "Pet Feliz", day.Shop.Name)
	assert.Equal(t, today, day.Date)
	require.Len(t, day.Slots, len(availability.Grid()))
	byTime := map[string]availability.Slot{}
	for _, s := range day.Slots {
		byTime[s.Time] = s
	}
	assert.False(t, byTime["09:00"].Available)
	assert.Equal(t, 1, byTime["09:00"].BookedCount)
	assert.True(t, byTime["10:00"].Available)
	assert.True(t, byTime["11:00"].Available)
	assert.Equal(t, 1, byTime["08:00"].Capacity)
}

func TestPublicService_UnknownOrInactiveHandle(t *testing.T) {
	db := newMemDB()
	publicShop(db, "pet-feliz", false)
	svc := PublicService{Settings: memSettings{db: db}, Appointments: memAppointments{db: db}}

	_, err := svc.Profile(context.Background(), "pet-feliz")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Availability(context.Background(), "nobody", today)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Profile(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNotFound)
}
