package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petshop-backend/internal/domain"
)

func TestGrid(t *testing.T) {
	g := Grid()
	require.Len(t, g, 21)
	assert.Equal(t, "08:00", g[0])
	assert.Equal(t, "18:00", g[len(g)-1])
	assert.NotContains(t, g, "18:30")
}

func slotAt(t *testing.T, slots []Slot, clock string) Slot {
	t.Helper()
	for _, s := range slots {
		if s.Time == clock {
			return s
		}
	}
	t.Fatalf("slot %s not found", clock)
	return Slot{}
}

func TestSlots(t *testing.T) {
	tests := []struct {
		name     string
		bookings []domain.BookedSlot
		capacity int
		check    map[string]int
		full     []string
	}{
		{
			name:     "sixty minute service covers two slots",
			bookings: []domain.BookedSlot{{Time: "09:00", Status: domain.StatusPending, Duration: 60}},
			capacity: 3,
			check:    map[string]int{"08:30": 0, "09:00": 1, "09:30": 1, "10:00": 0},
		},
		{
			name: "capacity reached",
			bookings: []domain.BookedSlot{
				{Time: "10:00", Status: domain.StatusPending, Duration: 30},
				{Time: "10:00", Status: domain.StatusConfirmed, Duration: 30},
				{Time: "10:00", Status: domain.StatusCompleted, Duration: 30},
			},
			capacity: 3,
			check:    map[string]int{"10:00": 3},
			full:     []string{"10:00"},
		},
		{
			name:     "canceled bookings ignored",
			bookings: []domain.BookedSlot{{Time: "11:00", Status: domain.StatusCanceled, Duration: 90}},
			capacity: 1,
			check:    map[string]int{"11:00": 0, "11:30": 0},
		},
		{
			name:     "missing duration counts as thirty minutes",
			bookings: []domain.BookedSlot{{Time: "12:00", Status: domain.StatusPending}},
			capacity: 1,
			check:    map[string]int{"12:00": 1, "12:30": 0},
			full:     []string{"12:00"},
		},
		{
			name:     "off-grid start covers following slot",
			bookings: []domain.BookedSlot{{Time: "9:15", Status: domain.StatusPending, Duration: 30}},
			capacity: 3,
			check:    map[string]int{"09:00": 0, "09:30": 1, "10:00": 0},
		},
		{
			name:     "zero capacity falls back to default",
			bookings: nil,
			capacity: 0,
			check:    map[string]int{"08:00": 0},
		},
		{
			name:     "unparseable time skipped",
			bookings: []domain.BookedSlot{{Time: "noon", Status: domain.StatusPending, Duration: 30}},
			capacity: 1,
			check:    map[string]int{"12:00": 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := Slots(tt.bookings, tt.capacity)
			require.Len(t, slots, 21)
			for clock, want := range tt.check {
				s := slotAt(t, slots, clock)
				assert.Equal(t, want, s.BookedCount, clock)
			}
			for _, clock := range tt.full {
				assert.False(t, slotAt(t, slots, clock).Available, clock)
			}
			if tt.capacity <= 0 {
				assert.Equal(t, DefaultCapacity, slots[0].Capacity)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("08:30")
	require.NoError(t, err)
	assert.Equal(t, 510, m)

	m, err = ParseClock("9:00")
	require.NoError(t, err)
	assert.Equal(t, 540, m)

	for _, bad := range []string{"", "24:00", "10:60", "10:5", "ab:cd"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}
