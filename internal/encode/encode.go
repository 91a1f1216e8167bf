// Package encode serializes export records into CSV, spreadsheet (XLSX) and
// document (PDF) payloads. Encoders are pure: the same input and Settings
// always produce the same bytes.
package encode

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

// MIME types of the produced payloads.
const (
	MIMECSV         = "text/csv"
	MIMESpreadsheet = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMEDocument    = "application/pdf"
)

// Payload is an encoded export file.
type Payload struct {
	Data      []byte
	MIMEType  string
	Extension string
	Pages     int // documents only
}

// Settings carries the per-call encoding options.
type Settings struct {
	IncludeMetadata bool
	WhiteLabel      model.WhiteLabel
	GeneratedAt     time.Time
}

// Extension returns the file extension (without dot) for a format.
func Extension(f model.Format) string {
	switch f {
	case model.FormatCSV:
		return "csv"
	case model.FormatSpreadsheet:
		return "xlsx"
	case model.FormatDocument:
		return "pdf"
	}
	return ""
}

// Contacts encodes contact records in the given format.
func Contacts(f model.Format, contacts []model.ContactRecord, s Settings) (Payload, error) {
	switch f {
	case model.FormatCSV:
		return ContactsCSV(contacts, s)
	case model.FormatSpreadsheet:
		return ContactsSpreadsheet(contacts, s)
	case model.FormatDocument:
		return ContactsDocument(contacts, s)
	}
	return Payload{}, unsupported(f)
}

// Analytics encodes an analytics snapshot in the given format.
func Analytics(f model.Format, snap model.AnalyticsSnapshot, s Settings) (Payload, error) {
	switch f {
	case model.FormatCSV:
		return AnalyticsCSV(snap)
	case model.FormatSpreadsheet:
		return AnalyticsSpreadsheet(snap, s)
	case model.FormatDocument:
		return AnalyticsDocument(snap, s)
	}
	return Payload{}, unsupported(f)
}

// SearchResults encodes a search result set in the given format.
func SearchResults(f model.Format, set model.SearchResultSet, s Settings) (Payload, error) {
	switch f {
	case model.FormatCSV:
		return SearchResultsCSV(set)
	case model.FormatSpreadsheet:
		return SearchResultsSpreadsheet(set, s)
	case model.FormatDocument:
		return SearchResultsDocument(set, s)
	}
	return Payload{}, unsupported(f)
}

// AgentReport encodes an agent report in the given format.
func AgentReport(f model.Format, r model.AgentReport, s Settings) (Payload, error) {
	switch f {
	case model.FormatCSV:
		return AgentReportCSV(r)
	case model.FormatSpreadsheet:
		return AgentReportSpreadsheet(r, s)
	case model.FormatDocument:
		return AgentReportDocument(r, s)
	}
	return Payload{}, unsupported(f)
}

func unsupported(f model.Format) error {
	return eris.Errorf("encode: unsupported format %q", string(f))
}

// formatDate renders ISO-ish timestamps as "02 Jan 2006". Unparseable input
// is returned unchanged.
func formatDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("02 Jan 2006")
		}
	}
	return s
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// orNA renders zero values as "N/A" with the given suffix otherwise.
func orNA(v float64, format string) string {
	if v == 0 {
		return "N/A"
	}
	return fmt.Sprintf(format, v)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
