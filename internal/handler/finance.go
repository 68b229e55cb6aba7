package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"

	"petshop-backend/internal/domain"
	"petshop-backend/internal/server/authctx"
	"petshop-backend/internal/service"
)

// FinanceHandler serves ledger reports.
type FinanceHandler struct {
	Ledger *service.LedgerService
}

func (h FinanceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/transactions/summary", h.summary)
	r.Get("/transactions/export", h.export)
}

func (h FinanceHandler) summary(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	startDate, endDate, ok := parseRange(w, r)
	if !ok {
		return
	}
	s, err := h.Ledger.Summary(r.Context(), user.TenantID, startDate, endDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	byCategory := make([]map[string]any, 0, len(s.ExpensesByCategory))
	for _, c := range s.ExpensesByCategory {
		byCategory = append(byCategory, map[string]any{"category": c.Category, "amount": money(c.Amount)})
	}
	monthly := make([]map[string]any, 0, len(s.Monthly))
	for _, m := range s.Monthly {
		monthly = append(monthly, map[string]any{"month": m.Month, "income": money(m.Income), "expense": money(m.Expense)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"income":             money(s.Income),
		"expense":            money(s.Expense),
		"balance":            money(s.Balance),
		"expensesByCategory": byCategory,
		"monthly":            monthly,
	})
}

func (h FinanceHandler) export(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	startDate, endDate, ok := parseRange(w, r)
	if !ok {
		return
	}
	items, err := h.Ledger.All(r.Context(), user.TenantID, startDate, endDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	filenameSuffix := time.Now().Format("20060102_150405")
	if startDate != nil && endDate != nil {
		filenameSuffix = fmt.Sprintf("%s_%s", startDate.Format("20060102"), endDate.Format("20060102"))
	}

	switch format {
	case "csv":
		data, err := exportLedgerCSV(items)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"transactions_%s.csv\"", filenameSuffix))
		_, _ = w.Write(data)
	case "xlsx", "excel":
		data, err := exportLedgerXLSX(items)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"transactions_%s.xlsx\"", filenameSuffix))
		_, _ = w.Write(data)
	default:
		writeError(w, http.StatusBadRequest, "invalid format (use csv or xlsx)")
	}
}

var ledgerHeader = []string{"ID", "Date", "Description", "Type", "Category", "Amount", "Status", "Payment Method", "Appointment"}

func ledgerRow(t domain.Transaction) []string {
	related := ""
	if t.RelatedAppointmentID != nil {
		related = strconv.FormatInt(*t.RelatedAppointmentID, 10)
	}
	return []string{
		strconv.FormatInt(t.ID, 10),
		t.Date.Format(dateLayout),
		t.Description,
		string(t.Kind),
		t.Category,
		t.Amount.StringFixed(2),
		string(t.Status),
		string(t.PaymentMethod),
		related,
	}
}

func exportLedgerCSV(items []domain.Transaction) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)
	_ = w.Write(ledgerHeader)
	for _, t := range items {
		_ = w.Write(ledgerRow(t))
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func exportLedgerXLSX(items []domain.Transaction) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := "Transactions"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	_ = f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	for c, v := range ledgerHeader {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		_ = f.SetCellValue(sheet, cell, v)
	}
	for r, t := range items {
		row := ledgerRow(t)
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if c == 5 {
				amount, _ := t.Amount.Float64()
				_ = f.SetCellValue(sheet, cell, amount)
				continue
			}
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 10)
	_ = f.SetColWidth(sheet, "B", "B", 12)
	_ = f.SetColWidth(sheet, "C", "C", 36)
	_ = f.SetColWidth(sheet, "D", "E", 14)
	_ = f.SetColWidth(sheet, "F", "F", 14)
	_ = f.SetColWidth(sheet, "G", "I", 16)

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F2937"}, Pattern: 1},
	})
	_ = f.SetCellStyle(sheet, "A1", "I1", style)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
