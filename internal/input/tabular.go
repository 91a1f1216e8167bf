package input

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

type contactField int

const (
	fieldName contactField = iota
	fieldEmail
	fieldIntelligence
	fieldConfidence
	fieldLastResearched
	fieldPlatform
	fieldRole
	fieldCompany
	fieldSource
	fieldTags
	fieldNotes
	fieldPriority
)

// headerAliases maps normalised header text to a contact field. The headers
// written by the CSV and spreadsheet encoders are included so exports can be
// re-imported.
var headerAliases = map[string]contactField{
	"name":                fieldName,
	"contactname":         fieldName,
	"fullname":            fieldName,
	"email":               fieldEmail,
	"emailaddress":        fieldEmail,
	"contactintelligence": fieldIntelligence,
	"intelligence":        fieldIntelligence,
	"intelligencenote":    fieldIntelligence,
	"researchconfidence":  fieldConfidence,
	"confidence":          fieldConfidence,
	"confidencelabel":     fieldConfidence,
	"lastresearched":      fieldLastResearched,
	"lastresearcheddate":  fieldLastResearched,
	"platform":            fieldPlatform,
	"role":                fieldRole,
	"company":             fieldCompany,
	"source":              fieldSource,
	"tags":                fieldTags,
	"notes":               fieldNotes,
	"priority":            fieldPriority,
}

// contactsSheet is preferred when a workbook has several sheets.
const contactsSheet = "Contacts"

func contactsFromCSV(data []byte) ([]model.ContactRecord, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		rows = append(rows, record)
	}
	return contactsFromRows(rows)
}

func contactsFromXLSX(data []byte) ([]model.ContactRecord, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}

	sheet, ok := f.Sheet[contactsSheet]
	if !ok {
		sheet = f.Sheets[0]
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		rows = append(rows, rowToStrings(row))
	}
	return contactsFromRows(rows)
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

// contactsFromRows maps a header row plus data rows onto contact records.
// Blank rows are skipped; unknown columns are ignored.
func contactsFromRows(rows [][]string) ([]model.ContactRecord, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	index := make(map[contactField]int)
	for i, h := range rows[0] {
		if f, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, seen := index[f]; !seen {
				index[f] = i
			}
		}
	}
	if _, ok := index[fieldEmail]; !ok {
		return nil, eris.New("input: header row has no email column")
	}

	contacts := make([]model.ContactRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		get := func(f contactField) string {
			i, ok := index[f]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		c := model.ContactRecord{
			Name:             get(fieldName),
			Email:            get(fieldEmail),
			IntelligenceNote: get(fieldIntelligence),
			ConfidenceLabel:  get(fieldConfidence),
			LastResearched:   get(fieldLastResearched),
			Platform:         get(fieldPlatform),
			Role:             get(fieldRole),
			Company:          get(fieldCompany),
		}

		meta := model.ContactMetadata{
			Source:   get(fieldSource),
			Tags:     splitTags(get(fieldTags)),
			Notes:    get(fieldNotes),
			Priority: model.Priority(strings.ToLower(get(fieldPriority))),
		}
		if meta.Source != "" || len(meta.Tags) > 0 || meta.Notes != "" || meta.Priority != "" {
			c.Metadata = &meta
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

func normalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
