package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"petshop-backend/internal/availability"
	"petshop-backend/internal/domain"
	"petshop-backend/internal/ports"
	"petshop-backend/internal/repository"
)

// PublicService answers the unauthenticated booking page.
type PublicService struct {
	Settings     ports.SettingsStore
	Appointments ports.AppointmentStore
}

type ShopProfile struct {
	Name  string
	Phone string
}

type DayAvailability struct {
	Shop  ShopProfile
	Date  time.Time
	Slots []availability.Slot
}

func (s PublicService) Profile(ctx context.Context, handle string) (*domain.Settings, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, ErrNotFound
	}
	st, err := s.Settings.GetByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("resolve handle: %w", err)
	}
	return st, nil
}

// Availability builds the slot grid for one day of the shop behind handle.
func (s PublicService) Availability(ctx context.Context, handle string, date time.Time) (*DayAvailability, error) {
	st, err := s.Profile(ctx, handle)
	if err != nil {
		return nil, err
	}
	day := truncateDay(date)
	booked, err := s.Appointments.BookedSlots(ctx, st.TenantID, day)
	if err != nil {
		return nil, fmt.Errorf("booked slots: %w", err)
	}
	return &DayAvailability{
		Shop:  ShopProfile{Name: st.BusinessName, Phone: st.BusinessPhone},
		Date:  day,
		Slots: availability.Slots(booked, st.SlotCapacity),
	}, nil
}
