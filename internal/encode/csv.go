package encode

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

const crlf = "\r\n"

// writeCSV renders rows with RFC 4180 quoting and CRLF between rows. The
// last row carries no terminator, so two rows produce exactly one CRLF.
// Rows are written in LF mode and joined here so line breaks inside quoted
// fields keep their original bytes.
func writeCSV(rows [][]string) ([]byte, error) {
	if len(rows) == 0 {
		return []byte{}, nil
	}
	var out, line bytes.Buffer
	w := csv.NewWriter(&line)
	for i, row := range rows {
		line.Reset()
		if err := w.Write(row); err != nil {
			return nil, eris.Wrapf(err, "csv: write row %d", i)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, eris.Wrapf(err, "csv: flush row %d", i)
		}
		if i > 0 {
			out.WriteString(crlf)
		}
		out.Write(bytes.TrimSuffix(line.Bytes(), []byte("\n")))
	}
	return out.Bytes(), nil
}

// csvTable renders a header plus data rows. No data rows yields an empty
// payload rather than a header-only file.
func csvTable(header []string, rows [][]string) (Payload, error) {
	p := Payload{MIMEType: MIMECSV, Extension: "csv", Data: []byte{}}
	if len(rows) == 0 {
		return p, nil
	}
	data, err := writeCSV(append([][]string{header}, rows...))
	if err != nil {
		return Payload{}, err
	}
	p.Data = data
	return p, nil
}

// ContactsCSV encodes contacts as a flat table.
func ContactsCSV(contacts []model.ContactRecord, s Settings) (Payload, error) {
	t := contactTable(s.IncludeMetadata)
	return csvTable(t.headers(), t.rows(contacts))
}

// SearchResultsCSV encodes search hits as a flat table.
func SearchResultsCSV(set model.SearchResultSet) (Payload, error) {
	t := searchTable()
	return csvTable(t.headers(), t.rows(set.Results))
}

// AnalyticsCSV encodes a snapshot as sections: metrics, platform breakdown,
// daily enrichments and custom metrics, separated by blank lines.
func AnalyticsCSV(snap model.AnalyticsSnapshot) (Payload, error) {
	pm := snap.PerformanceMetrics
	rows := [][]string{
		{"Metric", "Value"},
		{"Total Contacts", strconv.Itoa(snap.TotalContacts)},
		{"Total Enrichments", strconv.Itoa(snap.TotalEnrichments)},
		{"Success Rate", pct(snap.SuccessRate)},
		{"Average Confidence", pct(snap.AverageConfidence)},
		{"Average Processing Time", fmt.Sprintf("%.2fs", pm.AverageProcessingTime)},
		{"Cache Hit Rate", pct(pm.CacheHitRate)},
		{"Error Rate", pct(pm.ErrorRate)},
		{},
		{"Platform Breakdown"},
		{"Platform", "Count", "Percentage"},
	}
	for _, p := range snap.TopPlatforms() {
		rows = append(rows, []string{p.Platform, strconv.Itoa(p.Count), pct(p.Percentage)})
	}
	rows = append(rows, []string{}, []string{"Daily Enrichments"}, []string{"Date", "Count"})
	for _, d := range snap.SortedDaily() {
		rows = append(rows, []string{d.Date, strconv.Itoa(d.Count)})
	}
	if names := snap.CustomMetricNames(); len(names) > 0 {
		rows = append(rows, []string{}, []string{"Custom Metrics"}, []string{"Metric", "Value"})
		for _, n := range names {
			rows = append(rows, []string{n, strconv.FormatFloat(snap.CustomMetrics[n], 'f', -1, 64)})
		}
	}
	return csvPayload(rows)
}

// AgentReportCSV encodes an agent report as a field/value block followed by
// the recommendations and next steps.
func AgentReportCSV(r model.AgentReport) (Payload, error) {
	m := r.Metadata
	if m == nil {
		m = &model.AgentMetadata{}
	}
	rows := [][]string{
		{"Field", "Value"},
		{"Agent Type", r.AgentType},
		{"Query", r.Query},
		{"Response", r.Response},
		{"Date Generated", r.DateGenerated},
		{"Processing Time", orNA(m.ProcessingTime, "%.2fs")},
		{"Confidence", orNA(m.Confidence, "%.1f%%")},
		{"Model", orDefault(m.Model, "N/A")},
		{},
		{"Recommendations"},
		{"Number", "Recommendation"},
	}
	for i, rec := range r.Recommendations {
		rows = append(rows, []string{strconv.Itoa(i + 1), rec})
	}
	rows = append(rows, []string{}, []string{"Next Steps"}, []string{"Number", "Step"})
	for i, step := range r.NextSteps {
		rows = append(rows, []string{strconv.Itoa(i + 1), step})
	}
	return csvPayload(rows)
}

func csvPayload(rows [][]string) (Payload, error) {
	data, err := writeCSV(rows)
	if err != nil {
		return Payload{}, err
	}
	return Payload{Data: data, MIMEType: MIMECSV, Extension: "csv"}, nil
}
