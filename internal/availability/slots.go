// Package availability computes the public booking grid of a day.
package availability

import (
	"fmt"
	"strconv"
	"strings"

	"petshop-backend/internal/domain"
)

const (
	OpenMinute      = 8 * 60
	CloseMinute     = 18 * 60
	StepMinutes     = 30
	DefaultCapacity = 3
	DefaultDuration = 30
)

type Slot struct {
	Time        string
	Available   bool
	BookedCount int
	Capacity    int
}

// Grid lists slot start times from 08:00 to 18:00 inclusive.
func Grid() []string {
	var out []string
	for m := OpenMinute; m <= CloseMinute; m += StepMinutes {
		out = append(out, FormatClock(m))
	}
	return out
}

// Slots counts, for every grid slot, the non-canceled bookings whose
// [start, start+duration) interval covers it.
func Slots(bookings []domain.BookedSlot, capacity int) []Slot {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	grid := Grid()
	counts := make([]int, len(grid))
	for _, b := range bookings {
		if b.Status == domain.StatusCanceled {
			continue
		}
		start, err := ParseClock(b.Time)
		if err != nil {
			continue
		}
		dur := b.Duration
		if dur <= 0 {
			dur = DefaultDuration
		}
		end := start + dur
		for i := range grid {
			s := OpenMinute + i*StepMinutes
			if start <= s && s < end {
				counts[i]++
			}
		}
	}

	out := make([]Slot, len(grid))
	for i, t := range grid {
		out[i] = Slot{
			Time:        t,
			BookedCount: counts[i],
			Capacity:    capacity,
			Available:   counts[i] < capacity,
		}
	}
	return out
}

// ParseClock converts "H:MM" or "HH:MM" to minutes since midnight.
func ParseClock(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	mm, err := strconv.Atoi(m)
	if err != nil || len(m) != 2 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hh*60 + mm, nil
}

func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
