package encode

import (
	"strconv"
	"strings"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

// column describes one output column: its heading, preferred spreadsheet
// width (characters) and value accessor.
type column[T any] struct {
	Header string
	Width  float64
	Value  func(T) string
}

// table pairs a column list with the records to render through it.
type table[T any] struct {
	columns []column[T]
}

func (t table[T]) headers() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Header
	}
	return out
}

func (t table[T]) widths() []float64 {
	out := make([]float64, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Width
	}
	return out
}

func (t table[T]) row(rec T) []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Value(rec)
	}
	return out
}

func (t table[T]) rows(recs []T) [][]string {
	out := make([][]string, len(recs))
	for i, r := range recs {
		out[i] = t.row(r)
	}
	return out
}

// contactTable builds the contact column list once per call.
func contactTable(includeMetadata bool) table[model.ContactRecord] {
	cols := []column[model.ContactRecord]{
		{"Name", 25, func(c model.ContactRecord) string { return c.DisplayName() }},
		{"Email", 30, func(c model.ContactRecord) string { return strings.TrimSpace(c.Email) }},
		{"Contact Intelligence", 60, func(c model.ContactRecord) string { return c.IntelligenceNote }},
		{"Research Confidence", 18, func(c model.ContactRecord) string { return c.ConfidenceLabel }},
		{"Last Researched", 15, func(c model.ContactRecord) string { return formatDate(c.LastResearched) }},
		{"Platform", 15, func(c model.ContactRecord) string { return c.Platform }},
		{"Role", 20, func(c model.ContactRecord) string { return c.Role }},
		{"Company", 20, func(c model.ContactRecord) string { return c.Company }},
	}
	if includeMetadata {
		cols = append(cols,
			column[model.ContactRecord]{"Source", 15, contactMeta(func(m *model.ContactMetadata) string { return m.Source })},
			column[model.ContactRecord]{"Tags", 20, contactMeta(func(m *model.ContactMetadata) string { return strings.Join(m.Tags, ", ") })},
			column[model.ContactRecord]{"Notes", 30, contactMeta(func(m *model.ContactMetadata) string { return m.Notes })},
			column[model.ContactRecord]{"Priority", 10, contactMeta(func(m *model.ContactMetadata) string { return string(m.Priority) })},
		)
	}
	return table[model.ContactRecord]{columns: cols}
}

func contactMeta(get func(*model.ContactMetadata) string) func(model.ContactRecord) string {
	return func(c model.ContactRecord) string {
		if c.Metadata == nil {
			return ""
		}
		return get(c.Metadata)
	}
}

// searchTable is the fixed column list for search results.
func searchTable() table[model.SearchResult] {
	meta := func(get func(*model.SearchResultMetadata) string) func(model.SearchResult) string {
		return func(r model.SearchResult) string {
			if r.Metadata == nil {
				return ""
			}
			return get(r.Metadata)
		}
	}
	return table[model.SearchResult]{columns: []column[model.SearchResult]{
		{"Platform", 15, func(r model.SearchResult) string { return r.Platform }},
		{"Title", 35, func(r model.SearchResult) string { return r.Title }},
		{"Description", 60, func(r model.SearchResult) string { return r.Description }},
		{"URL", 40, func(r model.SearchResult) string { return r.URL }},
		{"Contact", 25, func(r model.SearchResult) string { return r.Contact }},
		{"Relevance", 12, func(r model.SearchResult) string { return r.Relevance }},
		{"Last Updated", 15, func(r model.SearchResult) string { return r.LastUpdated }},
		{"Tags", 20, meta(func(m *model.SearchResultMetadata) string { return strings.Join(m.Tags, ", ") })},
		{"Priority", 10, meta(func(m *model.SearchResultMetadata) string {
			if m.Priority == 0 {
				return ""
			}
			return strconv.Itoa(m.Priority)
		})},
		{"Notes", 30, meta(func(m *model.SearchResultMetadata) string { return m.Notes })},
	}}
}
