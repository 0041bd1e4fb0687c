package card

import (
	"errors"
	"strings"
)

// ExportFilename is the download name of the CSV export
const ExportFilename = "company_cards.csv"

// ErrNoCards is returned when an export is requested with nothing to export.
// No file is produced in that case.
var ErrNoCards = errors.New("no cards to export")

var csvHeader = []string{"Company Name", "Contact Person", "Phone Number", "Email", "Website", "Address"}

// WriteCSV serializes cards to CSV in list order: fixed six-column header,
// one row per card, every field double-quote-enclosed with internal quotes
// doubled, UTF-8, comma-delimited.
func WriteCSV(cards []*Card) ([]byte, error) {
	if len(cards) == 0 {
		return nil, ErrNoCards
	}

	var b strings.Builder
	writeCSVRow(&b, csvHeader)
	for _, c := range cards {
		writeCSVRow(&b, []string{
			c.CompanyName,
			c.ContactPerson,
			c.PhoneNumber,
			c.Email,
			c.Website,
			c.Address,
		})
	}
	return []byte(b.String()), nil
}

// writeCSVRow quotes every field unconditionally. encoding/csv only quotes
// when it has to; the export contract wants each field enclosed.
func writeCSVRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}
