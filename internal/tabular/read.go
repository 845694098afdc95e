package tabular

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadmatch/internal/model"
)

// LoadRows reads every row of a CSV or XLSX file, header first. The format
// is chosen by extension.
func LoadRows(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path, XLSXOptions{})
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "tabular: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(f)
	}
}

// ReadCSV reads comma separated rows. A UTF-8 BOM is dropped, and lines
// that fail to parse or carry more fields than the header are skipped with
// a warning.
func ReadCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(stripBOM(r))
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	var rows [][]string
	var skipped int
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				skipped++
				zap.L().Warn("tabular: skipping malformed line", zap.Int("line", pe.Line), zap.Error(err))
				continue
			}
			return nil, eris.Wrap(err, "tabular: read csv")
		}
		if len(rows) > 0 && len(rec) > len(rows[0]) {
			skipped++
			zap.L().Warn("tabular: skipping line with extra fields",
				zap.Int("row", len(rows)+skipped), zap.Int("fields", len(rec)))
			continue
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func stripBOM(r io.Reader) io.Reader {
	const bom = "\ufeff"
	buf := make([]byte, len(bom))
	n, _ := io.ReadFull(r, buf)
	if string(buf[:n]) == bom {
		return r
	}
	return io.MultiReader(strings.NewReader(string(buf[:n])), r)
}

// header maps column names to positions.
type header map[string]int

func newHeader(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		name = strings.TrimSpace(name)
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	return h
}

// cell returns the trimmed value of column name, or "" when the column or
// cell is missing.
func (h header) cell(row []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (h header) require(file string, names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := h[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("tabular: %s is missing required columns: %s", file, strings.Join(missing, ", "))
	}
	return nil
}

// ParseSource converts CRM rows into source records. Only the name column
// is required; a missing registry-id column leaves every RegistryID empty. Rows are deduplicated by record ID,
// or by name when the record-ID column is absent. First occurrence wins.
func ParseSource(rows [][]string, cols SourceColumns) ([]model.SourceRecord, error) {
	cols = cols.withDefaults()
	if len(rows) == 0 {
		return nil, eris.New("tabular: source file is empty")
	}
	h := newHeader(rows[0])
	if err := h.require("source", cols.Name); err != nil {
		return nil, err
	}
	_, hasID := h[cols.RecordID]

	out := make([]model.SourceRecord, 0, len(rows)-1)
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows[1:] {
		rec := model.SourceRecord{
			Name:         h.cell(row, cols.Name),
			RegistryID:   OnlyDigits(h.cell(row, cols.RegistryID)),
			LastActivity: ParseActivityDate(h.cell(row, cols.LastActivity)),
		}
		rec.ID = rec.Name
		if hasID {
			rec.ID = h.cell(row, cols.RecordID)
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		out = append(out, rec)
	}
	return out, nil
}

// ParseRegistry converts registry rows into registry records. The
// identifier and name columns are required.
func ParseRegistry(rows [][]string, cols RegistryColumns) ([]model.RegistryRecord, error) {
	cols = cols.withDefaults()
	if len(rows) == 0 {
		return nil, eris.New("tabular: registry file is empty")
	}
	h := newHeader(rows[0])
	if err := h.require("registry", cols.RegistryID, cols.Name); err != nil {
		return nil, err
	}

	out := make([]model.RegistryRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		out = append(out, model.RegistryRecord{
			RegistryID:          OnlyDigits(h.cell(row, cols.RegistryID)),
			Name:                h.cell(row, cols.Name),
			IndustryCode:        h.cell(row, cols.IndustryCode),
			IndustryDescription: h.cell(row, cols.IndustryDescription),
		})
	}
	return out, nil
}

// OnlyDigits removes every non-digit rune.
func OnlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

var activityLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006",
	"01/02/2006 15:04",
	"01/02/2006",
}

// ParseActivityDate parses the CRM last-activity timestamp. It returns the
// zero time for blank or unrecognized values.
func ParseActivityDate(s string) time.Time {
	s = strings.TrimFunc(s, unicode.IsSpace)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range activityLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
