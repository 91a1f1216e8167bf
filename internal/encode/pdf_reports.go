package encode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

// ContactsDocument renders an overview table followed by one detail block
// per contact.
func ContactsDocument(contacts []model.ContactRecord, s Settings) (Payload, error) {
	d := newDocument("Contact Intelligence Report", s)
	d.section("Contact Intelligence Report",
		fmt.Sprintf("%d contacts | Generated %s", len(contacts), s.GeneratedAt.Format("02 Jan 2006")))

	high, priority := 0, 0
	for _, c := range contacts {
		if c.ConfidenceTier() == model.ConfidenceHigh {
			high++
		}
		if c.PriorityOf() == model.PriorityHigh {
			priority++
		}
	}
	platforms := model.ContactPlatformSummary(contacts)
	d.cards(
		metric{"Total Contacts", strconv.Itoa(len(contacts))},
		metric{"High Confidence", strconv.Itoa(high)},
		metric{"Platforms", strconv.Itoa(len(platforms))},
		metric{"High Priority", strconv.Itoa(priority)},
	)

	if len(platforms) > 0 {
		d.heading("Platform Summary")
		rows := make([][]string, len(platforms))
		for i, p := range platforms {
			rows[i] = []string{p.Platform, strconv.Itoa(p.Count), pct(p.Percentage)}
		}
		d.table([]pdfColumn{{"Platform", 90}, {"Contacts", 40}, {"Share", 40}}, rows)
	}

	d.heading("Contact Overview")
	rows := make([][]string, len(contacts))
	for i, c := range contacts {
		rows[i] = []string{c.DisplayName(), strings.TrimSpace(c.Email), c.Platform, c.Role, c.ConfidenceLabel}
	}
	d.table([]pdfColumn{{"Name", 40}, {"Email", 55}, {"Platform", 27}, {"Role", 28}, {"Confidence", 20}}, rows)

	d.section("Contact Details", fmt.Sprintf("Research notes for %d contacts", len(contacts)))
	for _, c := range contacts {
		contactBlock(d, c, s.IncludeMetadata)
	}
	return d.finish()
}

func contactBlock(d *document, c model.ContactRecord, includeMetadata bool) {
	var info []string
	for _, v := range []string{strings.TrimSpace(c.Email), c.Platform, c.Role, c.Company} {
		if v != "" {
			info = append(info, v)
		}
	}
	note := orDefault(c.IntelligenceNote, "No intelligence gathered yet.")
	var meta []string
	if includeMetadata && c.Metadata != nil {
		m := c.Metadata
		if m.Source != "" {
			meta = append(meta, "Source: "+m.Source)
		}
		if len(m.Tags) > 0 {
			meta = append(meta, "Tags: "+strings.Join(m.Tags, ", "))
		}
		if m.Priority != "" {
			meta = append(meta, "Priority: "+string(m.Priority))
		}
		if m.Notes != "" {
			meta = append(meta, "Notes: "+m.Notes)
		}
	}

	noteLines := d.wrap(note, contentWidth-6, "", 9)
	metaLines := d.wrap(strings.Join(meta, "\n"), contentWidth-6, "I", 8)
	if len(meta) == 0 {
		metaLines = nil
	}
	h := 7 + lineHeight + float64(len(noteLines)+len(metaLines))*lineHeight + 8
	if c.LastResearched != "" {
		h += lineHeight
	}
	d.ensureSpace(min(h, contentBottom-contentTop))

	top := d.y
	d.dot(marginX+2, top+3, c.ConfidenceTier())
	d.textColor(colorTextDark)
	d.pdf.SetFont("Helvetica", "B", 11)
	d.pdf.Text(marginX+6, top+4.5, d.tr(d.fit(c.DisplayName(), contentWidth-50)))
	if c.ConfidenceLabel != "" {
		d.pdf.SetFont("Helvetica", "", 8)
		d.textColor(tierColor(c.ConfidenceTier()))
		label := d.tr(d.fit(c.ConfidenceLabel, 40))
		d.pdf.Text(marginX+contentWidth-d.pdf.GetStringWidth(label), top+4.5, label)
	}
	d.y += 7

	d.pdf.SetFont("Helvetica", "", 9)
	d.textColor(colorTextLight)
	d.pdf.Text(marginX+6, d.y+3.5, d.tr(d.fit(strings.Join(info, " | "), contentWidth-6)))
	d.y += lineHeight

	d.paragraph(note, marginX+6, "", 9, colorTextDark)
	if c.LastResearched != "" {
		d.paragraph("Last researched: "+formatDate(c.LastResearched), marginX+6, "I", 8, colorTextLight)
	}
	if len(meta) > 0 {
		d.paragraph(strings.Join(meta, "\n"), marginX+6, "I", 8, colorTextLight)
	}

	d.draw(colorBorder)
	d.pdf.SetLineWidth(0.2)
	d.pdf.Line(marginX, d.y+3, marginX+contentWidth, d.y+3)
	d.y += 8
}

// AnalyticsDocument renders the headline metrics, platform ranking with
// share bars and the daily enrichment table.
func AnalyticsDocument(snap model.AnalyticsSnapshot, s Settings) (Payload, error) {
	d := newDocument("Analytics Report", s)
	d.section("Analytics Report", "Enrichment performance | Generated "+s.GeneratedAt.Format("02 Jan 2006"))

	d.cards(
		metric{"Total Contacts", strconv.Itoa(snap.TotalContacts)},
		metric{"Enrichments", strconv.Itoa(snap.TotalEnrichments)},
		metric{"Success Rate", pct(snap.SuccessRate)},
		metric{"Avg Confidence", pct(snap.AverageConfidence)},
	)

	pm := snap.PerformanceMetrics
	d.heading("Performance Metrics")
	perf := [][]string{
		{"Average Processing Time", fmt.Sprintf("%.2fs", pm.AverageProcessingTime)},
		{"Cache Hit Rate", pct(pm.CacheHitRate)},
		{"Error Rate", pct(pm.ErrorRate)},
	}
	for _, name := range snap.CustomMetricNames() {
		perf = append(perf, []string{name, strconv.FormatFloat(snap.CustomMetrics[name], 'f', -1, 64)})
	}
	d.table([]pdfColumn{{"Metric", 110}, {"Value", 60}}, perf)

	if top := snap.TopPlatforms(); len(top) > 0 {
		d.heading("Top Platforms")
		for _, p := range top {
			d.ensureSpace(rowHeight)
			d.textColor(colorTextDark)
			d.pdf.SetFont("Helvetica", "", 9)
			d.pdf.Text(marginX, d.y+5, d.tr(d.fit(p.Platform, 45)))
			d.fill(colorSecondary)
			d.pdf.Rect(marginX+50, d.y+1.5, 90, 4, "F")
			d.fill(d.primary)
			if w := 90 * p.Percentage / 100; w > 0 {
				d.pdf.Rect(marginX+50, d.y+1.5, w, 4, "F")
			}
			d.pdf.Text(marginX+145, d.y+5, fmt.Sprintf("%d (%s)", p.Count, pct(p.Percentage)))
			d.y += rowHeight
		}
		d.y += 4
	}

	if daily := snap.SortedDaily(); len(daily) > 0 {
		d.heading("Daily Enrichments")
		rows := make([][]string, len(daily))
		for i, p := range daily {
			rows[i] = []string{formatDate(p.Date), strconv.Itoa(p.Count)}
		}
		d.table([]pdfColumn{{"Date", 110}, {"Enrichments", 60}}, rows)
	}
	return d.finish()
}

// SearchResultsDocument renders the search summary, a result table and one
// detail block per hit.
func SearchResultsDocument(set model.SearchResultSet, s Settings) (Payload, error) {
	d := newDocument("Search Results", s)
	d.section("Search Results", fmt.Sprintf("Query: %q", set.Query))

	confidence := "N/A"
	if set.SearchMetadata != nil {
		confidence = orNA(set.SearchMetadata.Confidence, "%.1f%%")
	}
	platforms := set.SearchPlatformSummary()
	d.cards(
		metric{"Results", strconv.Itoa(len(set.Results))},
		metric{"Total Found", strconv.Itoa(set.TotalFound)},
		metric{"Platforms", strconv.Itoa(len(platforms))},
		metric{"Confidence", confidence},
	)

	d.heading("Results Overview")
	rows := make([][]string, len(set.Results))
	for i, r := range set.Results {
		rows[i] = []string{r.Platform, r.Title, r.Contact, r.Relevance}
	}
	d.table([]pdfColumn{{"Platform", 30}, {"Title", 75}, {"Contact", 45}, {"Relevance", 20}}, rows)

	d.section("Result Details", fmt.Sprintf("%d of %d results", len(set.Results), set.TotalFound))
	for _, r := range set.Results {
		desc := d.wrap(orDefault(r.Description, "No description."), contentWidth-6, "", 9)
		d.ensureSpace(min(7+2*lineHeight+float64(len(desc))*lineHeight+8, contentBottom-contentTop))

		d.textColor(colorTextDark)
		d.pdf.SetFont("Helvetica", "B", 11)
		d.pdf.Text(marginX, d.y+4.5, d.tr(d.fit(orDefault(r.Title, "Untitled"), contentWidth)))
		d.y += 7
		d.pdf.SetFont("Helvetica", "", 8)
		d.textColor(colorTextLight)
		info := []string{r.Platform}
		if r.Relevance != "" {
			info = append(info, "Relevance: "+r.Relevance)
		}
		if r.LastUpdated != "" {
			info = append(info, "Updated: "+formatDate(r.LastUpdated))
		}
		d.pdf.Text(marginX+6, d.y+3.5, d.tr(d.fit(strings.Join(info, " | "), contentWidth-6)))
		d.y += lineHeight

		d.paragraph(orDefault(r.Description, "No description."), marginX+6, "", 9, colorTextDark)
		if r.URL != "" {
			d.paragraph(r.URL, marginX+6, "U", 8, d.primary)
		}
		if r.Contact != "" {
			d.paragraph("Contact: "+r.Contact, marginX+6, "", 8, colorTextLight)
		}
		d.y += 5
	}
	return d.finish()
}

// AgentReportDocument renders the agent response with its recommendations
// and next steps.
func AgentReportDocument(r model.AgentReport, s Settings) (Payload, error) {
	title := "AI Agent Report"
	if t := r.AgentTitle(); t != "" {
		title = t + " Report"
	}
	d := newDocument(title, s)
	d.section(title, fmt.Sprintf("Query: %q", r.Query))

	m := r.Metadata
	if m == nil {
		m = &model.AgentMetadata{}
	}
	d.cards(
		metric{"Processing Time", orNA(m.ProcessingTime, "%.2fs")},
		metric{"Confidence", orNA(m.Confidence, "%.1f%%")},
		metric{"Recommendations", strconv.Itoa(len(r.Recommendations))},
		metric{"Next Steps", strconv.Itoa(len(r.NextSteps))},
	)

	d.heading("Response")
	d.paragraph(orDefault(r.Response, "No response recorded."), marginX, "", 10, colorTextDark)
	d.y += 4

	numbered := func(heading string, items []string) {
		if len(items) == 0 {
			return
		}
		d.heading(heading)
		for i, item := range items {
			d.ensureSpace(2 * lineHeight)
			d.textColor(d.primary)
			d.pdf.SetFont("Helvetica", "B", 10)
			d.pdf.Text(marginX, d.y+3.5, strconv.Itoa(i+1)+".")
			d.paragraph(item, marginX+8, "", 10, colorTextDark)
			d.y += 2
		}
		d.y += 4
	}
	numbered("Recommendations", r.Recommendations)
	numbered("Next Steps", r.NextSteps)

	d.heading("Report Details")
	details := [][]string{
		{"Agent Type", r.AgentType},
		{"Date Generated", formatDate(r.DateGenerated)},
		{"Model", orDefault(m.Model, "N/A")},
	}
	if len(m.Sources) > 0 {
		details = append(details, []string{"Sources", strings.Join(m.Sources, ", ")})
	}
	d.table([]pdfColumn{{"Field", 50}, {"Value", 120}}, details)
	return d.finish()
}
