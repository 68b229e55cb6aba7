package handler

import (
	"net/http"
	"time"
)

const dateLayout = "2006-01-02"

// parseDay takes the calendar day of a YYYY-MM-DD date or an RFC 3339
// timestamp, in UTC.
func parseDay(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

func parseDateQuery(r *http.Request, key string) (*time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}
	parsed, err := parseDay(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseRange reads startDate/endDate and writes a 400 when either is
// malformed or they are out of order.
func parseRange(w http.ResponseWriter, r *http.Request) (*time.Time, *time.Time, bool) {
	startDate, err := parseDateQuery(r, "startDate")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid startDate")
		return nil, nil, false
	}
	endDate, err := parseDateQuery(r, "endDate")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid endDate")
		return nil, nil, false
	}
	if startDate != nil && endDate != nil && startDate.After(*endDate) {
		writeError(w, http.StatusBadRequest, "startDate must be before endDate")
		return nil, nil, false
	}
	return startDate, endDate, true
}
