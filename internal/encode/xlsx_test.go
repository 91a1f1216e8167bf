package encode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

func openWorkbook(t *testing.T, p Payload) *xlsx.File {
	t.Helper()
	assert.Equal(t, MIMESpreadsheet, p.MIMEType)
	assert.Equal(t, "xlsx", p.Extension)
	f, err := xlsx.OpenBinary(p.Data)
	require.NoError(t, err)
	return f
}

func sheetNames(f *xlsx.File) []string {
	names := make([]string, len(f.Sheets))
	for i, sh := range f.Sheets {
		names[i] = sh.Name
	}
	return names
}

func cellText(t *testing.T, sh *xlsx.Sheet, row, col int) string {
	t.Helper()
	require.Greater(t, len(sh.Rows), row, "sheet %s row %d", sh.Name, row)
	require.Greater(t, len(sh.Rows[row].Cells), col, "sheet %s row %d col %d", sh.Name, row, col)
	return sh.Rows[row].Cells[col].String()
}

func TestContactsSpreadsheet(t *testing.T) {
	t.Parallel()

	contacts := []model.ContactRecord{
		{Email: "sarah.johnson@bbc.co.uk", Platform: "Radio", Metadata: &model.ContactMetadata{Priority: model.PriorityHigh}},
		{Name: "Tom", Email: "tom@x.com", Platform: "Radio", Metadata: &model.ContactMetadata{Priority: model.PriorityLow}},
		{Name: "Ann", Email: "ann@x.com", Platform: "Blog"},
		{Name: "Kim", Email: "kim@x.com"},
	}

	p, err := ContactsSpreadsheet(contacts, testSettings())
	require.NoError(t, err)
	f := openWorkbook(t, p)

	assert.Equal(t, []string{"Contacts", "Platform Summary", "Export Summary"}, sheetNames(f))

	sh := f.Sheet["Contacts"]
	require.Len(t, sh.Rows, 5)
	assert.Equal(t, "Name", cellText(t, sh, 0, 0))
	assert.Equal(t, "Sarah Johnson", cellText(t, sh, 1, 0))
	assert.Equal(t, "sarah.johnson@bbc.co.uk", cellText(t, sh, 1, 1))

	sh = f.Sheet["Platform Summary"]
	require.Len(t, sh.Rows, 3)
	assert.Equal(t, "Radio", cellText(t, sh, 1, 0))
	assert.Equal(t, "2", cellText(t, sh, 1, 1))
	assert.Equal(t, "50.0%", cellText(t, sh, 1, 2))
	assert.Equal(t, "25.0%", cellText(t, sh, 2, 2))

	sh = f.Sheet["Export Summary"]
	summary := make(map[string]string)
	for i := 1; i < len(sh.Rows); i++ {
		summary[cellText(t, sh, i, 0)] = cellText(t, sh, i, 1)
	}
	assert.Equal(t, "4", summary["Total Contacts"])
	assert.Equal(t, "2025-03-14", summary["Export Date"])
	assert.Equal(t, "09:30:00", summary["Export Time"])
	assert.Equal(t, "1", summary["High Priority"])
	assert.Equal(t, "0", summary["Medium Priority"])
	assert.Equal(t, "1", summary["Low Priority"])
}

func TestSpreadsheet_ColumnWidths(t *testing.T) {
	t.Parallel()

	p, err := ContactsSpreadsheet([]model.ContactRecord{{Email: "a@x.com"}}, testSettings())
	require.NoError(t, err)
	sh := openWorkbook(t, p).Sheet["Platform Summary"]
	require.NotNil(t, sh.Cols)

	for i, want := range []float64{20, 10, 12} {
		col := sh.Cols.FindColByIndex(i + 1)
		require.NotNil(t, col, "column %d", i+1)
		assert.InDelta(t, want, col.Width, 0.01)
		assert.True(t, col.CustomWidth)
	}
	assert.Nil(t, sh.Cols.FindColByIndex(0))
}

func TestAnalyticsSpreadsheet(t *testing.T) {
	t.Parallel()

	snap := model.AnalyticsSnapshot{
		TotalContacts:     10,
		PlatformBreakdown: map[string]int{"Radio": 1, "Press": 3},
		DailyEnrichments:  []model.DailyPoint{{Date: "2025-03-02", Count: 2}, {Date: "2025-03-01", Count: 5}},
	}

	p, err := AnalyticsSpreadsheet(snap, testSettings())
	require.NoError(t, err)
	f := openWorkbook(t, p)

	assert.Equal(t, []string{"Performance Metrics", "Platform Breakdown", "Daily Activity"}, sheetNames(f))
	assert.Equal(t, "10", cellText(t, f.Sheet["Performance Metrics"], 1, 1))

	pb := f.Sheet["Platform Breakdown"]
	assert.Equal(t, "Press", cellText(t, pb, 1, 0))
	assert.Equal(t, "75.0%", cellText(t, pb, 1, 2))

	daily := f.Sheet["Daily Activity"]
	assert.Equal(t, "2025-03-01", cellText(t, daily, 1, 0))
	assert.Equal(t, "5", cellText(t, daily, 1, 1))
}

func TestSearchResultsSpreadsheet(t *testing.T) {
	t.Parallel()

	set := model.SearchResultSet{
		Query:          "jazz blogs",
		Results:        []model.SearchResult{{Platform: "Blog", Title: "Jazz Weekly"}, {Platform: "Blog", Title: "Sax"}},
		TotalFound:     12,
		SearchMetadata: &model.SearchMetadata{SearchTime: 0.8},
	}

	p, err := SearchResultsSpreadsheet(set, testSettings())
	require.NoError(t, err)
	f := openWorkbook(t, p)

	assert.Equal(t, []string{"Search Results", "Search Summary", "Platform Summary"}, sheetNames(f))
	assert.Equal(t, "Jazz Weekly", cellText(t, f.Sheet["Search Results"], 1, 1))

	summary := f.Sheet["Search Summary"]
	assert.Equal(t, "jazz blogs", cellText(t, summary, 1, 1))
	assert.Equal(t, "2", cellText(t, summary, 2, 1))
	assert.Equal(t, "12", cellText(t, summary, 3, 1))
	assert.Equal(t, "0.80s", cellText(t, summary, 4, 1))
	assert.Equal(t, "N/A", cellText(t, summary, 5, 1))

	assert.Equal(t, "100.0%", cellText(t, f.Sheet["Platform Summary"], 1, 2))
}

func TestAgentReportSpreadsheet(t *testing.T) {
	t.Parallel()

	t.Run("with lists", func(t *testing.T) {
		t.Parallel()
		r := model.AgentReport{AgentType: "press", Response: "ok", Recommendations: []string{"a", "b"}, NextSteps: []string{"c"}}
		p, err := AgentReportSpreadsheet(r, testSettings())
		require.NoError(t, err)
		f := openWorkbook(t, p)

		assert.Equal(t, []string{"AI Agent Report", "Recommendations", "Next Steps"}, sheetNames(f))
		assert.Equal(t, "press", cellText(t, f.Sheet["AI Agent Report"], 1, 1))
		assert.Equal(t, "2", cellText(t, f.Sheet["Recommendations"], 2, 0))
		assert.Equal(t, "b", cellText(t, f.Sheet["Recommendations"], 2, 1))
	})

	t.Run("without lists", func(t *testing.T) {
		t.Parallel()
		p, err := AgentReportSpreadsheet(model.AgentReport{Response: "ok"}, testSettings())
		require.NoError(t, err)
		f := openWorkbook(t, p)
		assert.Equal(t, []string{"AI Agent Report"}, sheetNames(f))
	})
}
