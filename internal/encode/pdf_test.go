package encode

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

func assertPDF(t *testing.T, p Payload) {
	t.Helper()
	assert.Equal(t, MIMEDocument, p.MIMEType)
	assert.Equal(t, "pdf", p.Extension)
	assert.True(t, bytes.HasPrefix(p.Data, []byte("%PDF-")))
	assert.GreaterOrEqual(t, p.Pages, 1)

	pages, err := validatePDF(p.Data)
	require.NoError(t, err)
	assert.Equal(t, p.Pages, pages)
}

func TestContactsDocument_Paginates(t *testing.T) {
	t.Parallel()

	contacts := make([]model.ContactRecord, 60)
	for i := range contacts {
		contacts[i] = model.ContactRecord{
			Email:            fmt.Sprintf("contact.%d@station.fm", i),
			IntelligenceNote: strings.Repeat("Plays new alternative releases on weekday evenings. ", 4),
			ConfidenceLabel:  []string{"High", "Medium", "Low"}[i%3],
			Platform:         []string{"Radio", "Blog", "Playlist"}[i%3],
			LastResearched:   "2025-02-01",
		}
	}

	p, err := ContactsDocument(contacts, testSettings())
	require.NoError(t, err)
	assertPDF(t, p)
	assert.Greater(t, p.Pages, 3)
}

func TestContactsDocument_SingleContact(t *testing.T) {
	t.Parallel()

	s := testSettings()
	s.IncludeMetadata = true
	s.WhiteLabel = model.WhiteLabel{CompanyName: "Label Co", PrimaryColor: "not-a-colour"}

	p, err := ContactsDocument([]model.ContactRecord{{
		Name: "Zoë Ball", Email: "zoe@bbc.co.uk", Metadata: &model.ContactMetadata{Tags: []string{"breakfast"}},
	}}, s)
	require.NoError(t, err)
	assertPDF(t, p)
	// Overview section plus details section.
	assert.Equal(t, 2, p.Pages)
}

func TestAnalyticsDocument(t *testing.T) {
	t.Parallel()

	snap := model.AnalyticsSnapshot{
		TotalContacts:     50,
		TotalEnrichments:  45,
		SuccessRate:       90,
		PlatformBreakdown: map[string]int{"Radio": 20, "Blog": 10},
		DailyEnrichments:  []model.DailyPoint{{Date: "2025-03-01", Count: 5}},
	}

	p, err := AnalyticsDocument(snap, testSettings())
	require.NoError(t, err)
	assertPDF(t, p)
}

func TestSearchResultsDocument(t *testing.T) {
	t.Parallel()

	set := model.SearchResultSet{Query: "playlists", TotalFound: 3, Results: []model.SearchResult{
		{Platform: "Spotify", Title: "New Indie", Description: "Weekly indie picks", URL: "https://open.spotify.com/x"},
	}}

	p, err := SearchResultsDocument(set, testSettings())
	require.NoError(t, err)
	assertPDF(t, p)
}

func TestAgentReportDocument(t *testing.T) {
	t.Parallel()

	r := model.AgentReport{
		AgentType:       "radio-promo",
		Query:           "plan",
		Response:        strings.Repeat("A long narrative response. ", 200),
		Recommendations: []string{"one", "two"},
		NextSteps:       []string{"three"},
		Metadata:        &model.AgentMetadata{Sources: []string{"BBC", "NME"}},
	}

	p, err := AgentReportDocument(r, testSettings())
	require.NoError(t, err)
	assertPDF(t, p)
	assert.GreaterOrEqual(t, p.Pages, 2)
}

func TestDocuments_AccentedAndLongWords(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("Überlänge", 40)
	accented := "Café résumé – José Müller, Señal Radio “Ñ” 🎧 " + long

	tests := []struct {
		name   string
		encode func(Settings) (Payload, error)
	}{
		{"contacts", func(s Settings) (Payload, error) {
			return ContactsDocument([]model.ContactRecord{{
				Name: "José Müller", Email: "jose@señal.example", IntelligenceNote: accented,
				ConfidenceLabel: "Élevée", Platform: "Rádio", Company: long,
				Metadata: &model.ContactMetadata{Notes: accented, Tags: []string{"française"}},
			}}, s)
		}},
		{"search results", func(s Settings) (Payload, error) {
			return SearchResultsDocument(model.SearchResultSet{Query: "música électronique", TotalFound: 1, Results: []model.SearchResult{{
				Platform: "Música", Title: long, Description: accented, URL: "https://example.com/" + long, Contact: "Zoë",
			}}}, s)
		}},
		{"analytics", func(s Settings) (Payload, error) {
			return AnalyticsDocument(model.AnalyticsSnapshot{
				TotalContacts:     3,
				PlatformBreakdown: map[string]int{"Rádio Nacional": 2, long: 1},
				CustomMetrics:     map[string]float64{"Taux de réponse": 0.4},
			}, s)
		}},
		{"agent report", func(s Settings) (Payload, error) {
			return AgentReportDocument(model.AgentReport{
				AgentType: "radio-promo", Query: "¿Qué emisoras?", Response: accented,
				Recommendations: []string{accented}, NextSteps: []string{long},
			}, s)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := testSettings()
			s.IncludeMetadata = true
			s.WhiteLabel.CompanyName = "Éditions Sonores"

			var p Payload
			var err error
			require.NotPanics(t, func() { p, err = tt.encode(s) })
			require.NoError(t, err)
			assertPDF(t, p)
		})
	}
}

func TestDocumentWrap(t *testing.T) {
	t.Parallel()

	d := newDocument("Wrap", testSettings())
	const w = 60.0
	lines := d.wrap("Café "+strings.Repeat("x", 200)+" fin\n\nJosé", w, "", 9)

	require.GreaterOrEqual(t, len(lines), 4)
	for _, line := range lines {
		assert.LessOrEqual(t, d.pdf.GetStringWidth(line), w, "line %q", line)
	}
	assert.Equal(t, "Caf\xe9", lines[0])
	assert.Equal(t, "", lines[len(lines)-2])
	assert.Equal(t, "Jos\xe9", lines[len(lines)-1])

	joined := strings.Join(lines[1:len(lines)-2], "")
	assert.Equal(t, strings.Repeat("x", 200)+"fin", strings.ReplaceAll(joined, " ", ""))
}

func TestHexToRGB(t *testing.T) {
	t.Parallel()

	assert.Equal(t, rgb{255, 0, 16}, hexToRGB("#FF0010"))
	assert.Equal(t, rgb{1, 2, 3}, hexToRGB("010203"))
	assert.Equal(t, colorPrimary, hexToRGB(""))
	assert.Equal(t, colorPrimary, hexToRGB("#GGGGGG"))
	assert.Equal(t, colorPrimary, hexToRGB("#FFF"))
}

func TestTierColor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, colorSuccess, tierColor(model.ParseConfidenceTier("95%")))
	assert.Equal(t, colorWarning, tierColor(model.ParseConfidenceTier("medium")))
	assert.Equal(t, colorDanger, tierColor(model.ParseConfidenceTier("")))
}
