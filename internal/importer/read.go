// Package importer turns uploaded spreadsheets into appointments.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// ErrEmptyFile is returned for uploads without a header row.
var ErrEmptyFile = errors.New("file has no rows")

var (
	zipMagic = []byte("PK")
	cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// Detect sniffs the container format from the leading bytes. Anything that is
// neither a zip (xlsx) nor a compound document (xls) is read as text.
func Detect(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(data, cfbMagic):
		return FormatXLS
	default:
		return FormatCSV
	}
}

// Row is one data line keyed by canonical column name.
type Row struct {
	Line   int
	Values map[string]string
}

func (r Row) Get(col string) string {
	return r.Values[col]
}

// record is one physical line of the source with its 1-based line number.
type record struct {
	line  int
	cells []string
}

// Parse reads the first sheet (or the whole CSV) into rows. Line numbers are
// those of the source file, header included. Blank lines are dropped.
func Parse(data []byte) ([]Row, error) {
	var (
		records []record
		err     error
	)
	switch Detect(data) {
	case FormatXLSX:
		records, err = readXLSX(data)
	case FormatXLS:
		records, err = readXLS(data)
	default:
		records, err = readCSV(data)
	}
	if err != nil {
		return nil, err
	}
	return toRows(records)
}

func readCSV(data []byte) ([]record, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var out []record
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := r.FieldPos(0)
		out = append(out, record{line: line, cells: rec})
	}
}

// sniffDelimiter picks ';' when the header uses it more often than ','.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func readXLSX(data []byte) ([]record, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	// Raw values keep dates as serial numbers so they parse the same way
	// regardless of the cell format.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	out := make([]record, 0, len(rows))
	for i, cells := range rows {
		out = append(out, record{line: i + 1, cells: cells})
	}
	return out, nil
}

func readXLS(data []byte) ([]record, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrEmptyFile
	}
	var out []record
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		out = append(out, record{line: i + 1, cells: cells})
	}
	return out, nil
}

func toRows(records []record) ([]Row, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}
	header := make([]string, len(records[0].cells))
	nonEmpty := false
	for i, h := range records[0].cells {
		header[i] = canonicalColumn(h)
		if header[i] != "" {
			nonEmpty = true
		}
	}
	if !nonEmpty {
		return nil, ErrEmptyFile
	}

	var rows []Row
	for _, rec := range records[1:] {
		values := make(map[string]string, len(header))
		blank := true
		for c, col := range header {
			if col == "" || c >= len(rec.cells) {
				continue
			}
			v := cleanCell(rec.cells[c])
			if v != "" {
				blank = false
			}
			values[col] = v
		}
		if blank {
			continue
		}
		rows = append(rows, Row{Line: rec.line, Values: values})
	}
	return rows, nil
}

func cleanCell(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ReplaceAll(s, `"`, "")
	return strings.TrimSpace(s)
}
