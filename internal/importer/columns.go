package importer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"petshop-backend/internal/availability"
	"petshop-backend/internal/domain"
)

// Canonical column names.
const (
	ColBaseService   = "baseService"
	ColExtraServices = "extraServices"
	ColPetName       = "petName"
	ColSpecies       = "species"
	ColBreed         = "breed"
	ColNotes         = "notes"
	ColSize          = "size"
	ColOwnerName     = "ownerName"
	ColOwnerPhone    = "ownerPhone"
	ColDate          = "date"
	ColTime          = "time"
	ColStatus        = "status"
)

// Header spellings accepted per column, English and Portuguese.
var columnAliases = map[string][]string{
	ColBaseService:   {"base service", "baseservice", "service", "serviço base", "servico base", "serviço", "servico"},
	ColExtraServices: {"extra services", "extraservices", "extras", "serviços extras", "servicos extras"},
	ColPetName:       {"pet", "pet name", "petname", "nome do pet"},
	ColSpecies:       {"species", "espécie", "especie"},
	ColBreed:         {"breed", "raça", "raca"},
	ColNotes:         {"notes", "notas", "observações", "observacoes"},
	ColSize:          {"size", "porte"},
	ColOwnerName:     {"owner", "owner name", "ownername", "dono", "tutor"},
	ColOwnerPhone:    {"phone", "owner phone", "ownerphone", "telefone"},
	ColDate:          {"date", "data"},
	ColTime:          {"time", "hora", "horário", "horario"},
	ColStatus:        {"status"},
}

var aliasIndex = func() map[string]string {
	idx := make(map[string]string)
	for col, names := range columnAliases {
		for _, n := range names {
			idx[n] = col
		}
	}
	return idx
}()

func canonicalColumn(h string) string {
	key := strings.ToLower(cleanCell(h))
	if key == "" {
		return ""
	}
	if col, ok := aliasIndex[key]; ok {
		return col
	}
	return key
}

var speciesValues = map[string]domain.Species{
	"dog": domain.SpeciesDog, "cachorro": domain.SpeciesDog, "cão": domain.SpeciesDog, "cao": domain.SpeciesDog,
	"cat": domain.SpeciesCat, "gato": domain.SpeciesCat,
}

var sizeValues = map[string]domain.PetSize{
	"small": domain.SizeSmall, "pequeno": domain.SizeSmall,
	"medium": domain.SizeMedium, "medio": domain.SizeMedium, "médio": domain.SizeMedium,
	"large": domain.SizeLarge, "grande": domain.SizeLarge,
}

var statusValues = map[string]domain.AppointmentStatus{
	"pending": domain.StatusPending, "pendente": domain.StatusPending,
	"confirmed": domain.StatusConfirmed, "confirmado": domain.StatusConfirmed,
	"canceled": domain.StatusCanceled, "cancelled": domain.StatusCanceled, "cancelado": domain.StatusCanceled,
	"completed": domain.StatusCompleted, "finalizado": domain.StatusCompleted, "concluído": domain.StatusCompleted, "concluido": domain.StatusCompleted,
}

// Unknown values pass through unchanged so validation can name them.
func mapSpecies(v string) domain.Species {
	if s, ok := speciesValues[strings.ToLower(v)]; ok {
		return s
	}
	return domain.Species(v)
}

func mapSize(v string) domain.PetSize {
	if s, ok := sizeValues[strings.ToLower(v)]; ok {
		return s
	}
	return domain.PetSize(v)
}

func mapStatus(v string) domain.AppointmentStatus {
	if v == "" {
		return domain.StatusPending
	}
	if s, ok := statusValues[strings.ToLower(v)]; ok {
		return s
	}
	return domain.AppointmentStatus(v)
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006", "2006/01/02", "2006-01-02T15:04:05Z07:00"}

// parseDate accepts ISO dates, day-first dates and spreadsheet serials.
func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return dayOf(t), nil
		}
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return dayOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", v)
}

// parseClock accepts "HH:MM", "HH:MM:SS" and spreadsheet day fractions.
func parseClock(v string) (string, error) {
	if v == "" {
		return "", fmt.Errorf("time is required")
	}
	if m, err := availability.ParseClock(v); err == nil {
		return availability.FormatClock(m), nil
	}
	if parts := strings.Split(v, ":"); len(parts) == 3 {
		if m, err := availability.ParseClock(parts[0] + ":" + parts[1]); err == nil {
			return availability.FormatClock(m), nil
		}
	}
	if frac, err := strconv.ParseFloat(v, 64); err == nil && frac >= 0 && frac < 1 {
		return availability.FormatClock(int(math.Round(frac * 24 * 60))), nil
	}
	return "", fmt.Errorf("invalid time %q", v)
}

func splitNames(v string) []string {
	var out []string
	for _, n := range strings.Split(v, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
