package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UnavailableName is shown when no display name can be derived for a contact.
const UnavailableName = "Contact Name Unavailable"

// Priority ranks a contact for follow-up.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ConfidenceTier is the typed form of a free-text research confidence label.
type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "high"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceLow    ConfidenceTier = "low"
)

// ContactRecord is one enriched contact.
type ContactRecord struct {
	Name             string           `json:"name" yaml:"name"`
	Email            string           `json:"email" yaml:"email"`
	IntelligenceNote string           `json:"intelligenceNote" yaml:"intelligenceNote"`
	ConfidenceLabel  string           `json:"confidenceLabel,omitempty" yaml:"confidenceLabel"`
	LastResearched   string           `json:"lastResearchedDate,omitempty" yaml:"lastResearchedDate"`
	Platform         string           `json:"platform,omitempty" yaml:"platform"`
	Role             string           `json:"role,omitempty" yaml:"role"`
	Company          string           `json:"company,omitempty" yaml:"company"`
	Metadata         *ContactMetadata `json:"metadata,omitempty" yaml:"metadata"`
}

// ContactMetadata holds optional CRM-style annotations on a contact.
type ContactMetadata struct {
	Source   string   `json:"source,omitempty" yaml:"source"`
	Tags     []string `json:"tags,omitempty" yaml:"tags"`
	Notes    string   `json:"notes,omitempty" yaml:"notes"`
	Priority Priority `json:"priority,omitempty" yaml:"priority"`
}

// Valid reports whether the contact carries the minimum data needed for export.
func (c ContactRecord) Valid() bool {
	return strings.TrimSpace(c.Email) != ""
}

// DisplayName returns the contact name, falling back to a title-cased
// e-mail local part and finally to UnavailableName.
func (c ContactRecord) DisplayName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return nameFromEmail(c.Email)
}

var (
	localPartSeparators = strings.NewReplacer(".", " ", "_", " ", "-", " ")
	titleCaser          = cases.Title(language.Und, cases.NoLower)
)

func nameFromEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return UnavailableName
	}
	local, _, _ := strings.Cut(email, "@")
	switch strings.ToLower(local) {
	case "", "unknown", "n/a":
		return UnavailableName
	}
	words := strings.Fields(localPartSeparators.Replace(local))
	if len(words) == 0 {
		return UnavailableName
	}
	return titleCaser.String(strings.Join(words, " "))
}

// ConfidenceTier maps the free-text confidence label onto a tier. Labels are
// matched by substring, so "High (95%)" and "90" are both high.
func (c ContactRecord) ConfidenceTier() ConfidenceTier {
	return ParseConfidenceTier(c.ConfidenceLabel)
}

// ParseConfidenceTier classifies a confidence label. Anything unrecognised,
// including the empty label, is low.
func ParseConfidenceTier(label string) ConfidenceTier {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "high"), strings.Contains(l, "90"), strings.Contains(l, "95"):
		return ConfidenceHigh
	case strings.Contains(l, "medium"), strings.Contains(l, "70"), strings.Contains(l, "80"):
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// PriorityOf returns the contact's priority or "" when it has no metadata.
func (c ContactRecord) PriorityOf() Priority {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata.Priority
}

// FilterContacts splits contacts into the exportable ones and a report of
// the dropped ones. Input order is preserved.
func FilterContacts(contacts []ContactRecord) ([]ContactRecord, []DroppedRecord) {
	valid := make([]ContactRecord, 0, len(contacts))
	var dropped []DroppedRecord
	for i, c := range contacts {
		if !c.Valid() {
			dropped = append(dropped, DroppedRecord{Index: i, Reason: "missing email"})
			continue
		}
		valid = append(valid, c)
	}
	return valid, dropped
}

// PlatformShare is one row of a platform ranking.
type PlatformShare struct {
	Platform   string  `json:"platform"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ContactPlatformSummary ranks the platforms of the given contacts. Percentages
// are relative to len(contacts), so contacts without a platform lower the sum.
func ContactPlatformSummary(contacts []ContactRecord) []PlatformShare {
	counts := make(map[string]int)
	for _, c := range contacts {
		if c.Platform != "" {
			counts[c.Platform]++
		}
	}
	return rankPlatforms(counts, len(contacts))
}
