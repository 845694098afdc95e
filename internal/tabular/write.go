package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/leadmatch/internal/model"
)

// Unknown labels a figure the registry could not supply.
const Unknown = "ikke"

// Header is the export column order.
var Header = []string{
	"HubSpot navn",
	"Brreg navn",
	"Org.nr",
	"Sist aktivitet",
	"NACE",
	"Bransje",
	"Ansatte",
	"Omsetning (NOK)",
	"Match-metode",
}

// Cells renders one row in Header order.
func Cells(r model.ResultRow) []string {
	return []string{
		r.Pair.Source.Name,
		r.Pair.Registry.Name,
		r.RegistryID,
		FormatDate(r.Pair.Source.LastActivity),
		r.Pair.Registry.IndustryCode,
		r.Pair.Registry.IndustryDescription,
		FormatCount(r.Employees),
		FormatAmount(r.Revenue),
		r.Pair.Method.Label(),
	}
}

// WriteCSV writes rows as UTF-8 CSV with a byte-order mark so spreadsheet
// tools detect the encoding.
func WriteCSV(w io.Writer, rows []model.ResultRow) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return eris.Wrap(err, "tabular: write bom")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return eris.Wrap(err, "tabular: write header")
	}
	for _, r := range rows {
		if err := cw.Write(Cells(r)); err != nil {
			return eris.Wrap(err, "tabular: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "tabular: flush csv")
}

// FormatCount renders a count, or Unknown.
func FormatCount(v *int64) string {
	if v == nil {
		return Unknown
	}
	return fmt.Sprintf("%d", *v)
}

// FormatAmount renders an amount with space digit grouping
// (12 500 000), or Unknown.
func FormatAmount(v *int64) string {
	if v == nil {
		return Unknown
	}
	p := message.NewPrinter(language.English)
	return strings.ReplaceAll(p.Sprintf("%d", *v), ",", " ")
}

var monthAbbr = [...]string{"jan", "feb", "mar", "apr", "mai", "jun", "jul", "aug", "sep", "okt", "nov", "des"}

// FormatDate renders t as "5.mar 2024", or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d.%s %d", t.Day(), monthAbbr[t.Month()-1], t.Year())
}
