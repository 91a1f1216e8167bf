package encode

import (
	"bytes"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

// workbook wraps an xlsx file with the helpers the encoders share.
type workbook struct {
	file *xlsx.File
	bold *xlsx.Style
}

func newWorkbook() *workbook {
	bold := xlsx.NewStyle()
	bold.Font.Bold = true
	bold.ApplyFont = true
	return &workbook{file: xlsx.NewFile(), bold: bold}
}

// sheet adds a named sheet with a bold header row and optional column widths.
// widths[i] applies to the i-th column; xlsx column numbers start at 1.
func (w *workbook) sheet(name string, header []string, widths []float64) (*xlsx.Sheet, error) {
	sh, err := w.file.AddSheet(name)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: add sheet %s", name)
	}
	if len(header) > 0 {
		row := sh.AddRow()
		for _, h := range header {
			c := row.AddCell()
			c.SetString(h)
			c.SetStyle(w.bold)
		}
	}
	for i, width := range widths {
		if width <= 0 {
			continue
		}
		sh.SetColWidth(i+1, i+1, width)
	}
	return sh, nil
}

func (w *workbook) bytes() (Payload, error) {
	var buf bytes.Buffer
	if err := w.file.Write(&buf); err != nil {
		return Payload{}, eris.Wrap(err, "xlsx: write workbook")
	}
	return Payload{Data: buf.Bytes(), MIMEType: MIMESpreadsheet, Extension: "xlsx"}, nil
}

// addStrings appends a row of string cells.
func addStrings(sh *xlsx.Sheet, values ...string) {
	row := sh.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// addLabelInt appends a label followed by an integer cell.
func addLabelInt(sh *xlsx.Sheet, label string, n int) {
	row := sh.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetInt(n)
}

func addShares(sh *xlsx.Sheet, shares []model.PlatformShare) {
	for _, p := range shares {
		row := sh.AddRow()
		row.AddCell().SetString(p.Platform)
		row.AddCell().SetInt(p.Count)
		row.AddCell().SetString(pct(p.Percentage))
	}
}

var shareHeader = []string{"Platform", "Count", "Percentage"}

// ContactsSpreadsheet builds the Contacts, Platform Summary and Export
// Summary sheets.
func ContactsSpreadsheet(contacts []model.ContactRecord, s Settings) (Payload, error) {
	wb := newWorkbook()
	t := contactTable(s.IncludeMetadata)

	sh, err := wb.sheet("Contacts", t.headers(), t.widths())
	if err != nil {
		return Payload{}, err
	}
	for _, r := range t.rows(contacts) {
		addStrings(sh, r...)
	}

	sh, err = wb.sheet("Platform Summary", shareHeader, []float64{20, 10, 12})
	if err != nil {
		return Payload{}, err
	}
	addShares(sh, model.ContactPlatformSummary(contacts))

	sh, err = wb.sheet("Export Summary", []string{"Field", "Value"}, []float64{20, 25})
	if err != nil {
		return Payload{}, err
	}
	counts := make(map[model.Priority]int)
	for _, c := range contacts {
		counts[c.PriorityOf()]++
	}
	addLabelInt(sh, "Total Contacts", len(contacts))
	addStrings(sh, "Export Date", s.GeneratedAt.Format("2006-01-02"))
	addStrings(sh, "Export Time", s.GeneratedAt.Format("15:04:05"))
	addLabelInt(sh, "High Priority", counts[model.PriorityHigh])
	addLabelInt(sh, "Medium Priority", counts[model.PriorityMedium])
	addLabelInt(sh, "Low Priority", counts[model.PriorityLow])

	return wb.bytes()
}

// AnalyticsSpreadsheet builds the Performance Metrics, Platform Breakdown and
// Daily Activity sheets.
func AnalyticsSpreadsheet(snap model.AnalyticsSnapshot, _ Settings) (Payload, error) {
	wb := newWorkbook()
	pm := snap.PerformanceMetrics

	sh, err := wb.sheet("Performance Metrics", []string{"Metric", "Value"}, []float64{25, 15})
	if err != nil {
		return Payload{}, err
	}
	addLabelInt(sh, "Total Contacts", snap.TotalContacts)
	addLabelInt(sh, "Total Enrichments", snap.TotalEnrichments)
	addStrings(sh, "Success Rate", pct(snap.SuccessRate))
	addStrings(sh, "Average Confidence", pct(snap.AverageConfidence))
	addStrings(sh, "Average Processing Time", fmt.Sprintf("%.2fs", pm.AverageProcessingTime))
	addStrings(sh, "Cache Hit Rate", pct(pm.CacheHitRate))
	addStrings(sh, "Error Rate", pct(pm.ErrorRate))
	for _, name := range snap.CustomMetricNames() {
		row := sh.AddRow()
		row.AddCell().SetString(name)
		row.AddCell().SetFloat(snap.CustomMetrics[name])
	}

	sh, err = wb.sheet("Platform Breakdown", shareHeader, []float64{20, 10, 12})
	if err != nil {
		return Payload{}, err
	}
	addShares(sh, snap.TopPlatforms())

	sh, err = wb.sheet("Daily Activity", []string{"Date", "Enrichments"}, []float64{15, 12})
	if err != nil {
		return Payload{}, err
	}
	for _, d := range snap.SortedDaily() {
		addLabelInt(sh, d.Date, d.Count)
	}

	return wb.bytes()
}

// SearchResultsSpreadsheet builds the Search Results, Search Summary and
// Platform Summary sheets.
func SearchResultsSpreadsheet(set model.SearchResultSet, _ Settings) (Payload, error) {
	wb := newWorkbook()
	t := searchTable()

	sh, err := wb.sheet("Search Results", t.headers(), t.widths())
	if err != nil {
		return Payload{}, err
	}
	for _, r := range t.rows(set.Results) {
		addStrings(sh, r...)
	}

	sh, err = wb.sheet("Search Summary", []string{"Field", "Value"}, []float64{20, 40})
	if err != nil {
		return Payload{}, err
	}
	meta := set.SearchMetadata
	if meta == nil {
		meta = &model.SearchMetadata{}
	}
	addStrings(sh, "Search Query", set.Query)
	addLabelInt(sh, "Total Results", len(set.Results))
	addLabelInt(sh, "Total Found", set.TotalFound)
	addStrings(sh, "Search Time", orNA(meta.SearchTime, "%.2fs"))
	addStrings(sh, "Confidence", orNA(meta.Confidence, "%.1f%%"))

	sh, err = wb.sheet("Platform Summary", shareHeader, []float64{20, 10, 12})
	if err != nil {
		return Payload{}, err
	}
	addShares(sh, set.SearchPlatformSummary())

	return wb.bytes()
}

// AgentReportSpreadsheet builds the AI Agent Report sheet plus Recommendations
// and Next Steps when the report carries any.
func AgentReportSpreadsheet(r model.AgentReport, _ Settings) (Payload, error) {
	wb := newWorkbook()
	m := r.Metadata
	if m == nil {
		m = &model.AgentMetadata{}
	}

	sh, err := wb.sheet("AI Agent Report", []string{"Field", "Value"}, []float64{20, 80})
	if err != nil {
		return Payload{}, err
	}
	addStrings(sh, "Agent Type", r.AgentType)
	addStrings(sh, "Query", r.Query)
	addStrings(sh, "Response", r.Response)
	addStrings(sh, "Date Generated", r.DateGenerated)
	addStrings(sh, "Processing Time", orNA(m.ProcessingTime, "%.2fs"))
	addStrings(sh, "Confidence", orNA(m.Confidence, "%.1f%%"))
	addStrings(sh, "Model", orDefault(m.Model, "N/A"))

	numbered := func(name, heading string, items []string) error {
		if len(items) == 0 {
			return nil
		}
		sh, err := wb.sheet(name, []string{"Number", heading}, []float64{10, 80})
		if err != nil {
			return err
		}
		for i, item := range items {
			row := sh.AddRow()
			row.AddCell().SetInt(i + 1)
			row.AddCell().SetString(item)
		}
		return nil
	}
	if err := numbered("Recommendations", "Recommendation", r.Recommendations); err != nil {
		return Payload{}, err
	}
	if err := numbered("Next Steps", "Step", r.NextSteps); err != nil {
		return Payload{}, err
	}

	return wb.bytes()
}
