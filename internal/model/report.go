package model

import "strings"

// SearchResultSet is one page of platform search results.
type SearchResultSet struct {
	Query          string            `json:"query" yaml:"query"`
	Results        []SearchResult    `json:"results" yaml:"results"`
	TotalFound     int               `json:"totalFound" yaml:"totalFound"`
	Filters        map[string]string `json:"filters,omitempty" yaml:"filters"`
	SearchMetadata *SearchMetadata   `json:"searchMetadata,omitempty" yaml:"searchMetadata"`
}

// SearchResult is a single hit on a platform.
type SearchResult struct {
	Platform    string                `json:"platform" yaml:"platform"`
	Title       string                `json:"title" yaml:"title"`
	Description string                `json:"description" yaml:"description"`
	URL         string                `json:"url" yaml:"url"`
	Contact     string                `json:"contact,omitempty" yaml:"contact"`
	Relevance   string                `json:"relevance" yaml:"relevance"`
	LastUpdated string                `json:"lastUpdated" yaml:"lastUpdated"`
	Metadata    *SearchResultMetadata `json:"metadata,omitempty" yaml:"metadata"`
}

// SearchResultMetadata annotates a search hit.
type SearchResultMetadata struct {
	Tags     []string `json:"tags,omitempty" yaml:"tags"`
	Priority int      `json:"priority,omitempty" yaml:"priority"`
	Notes    string   `json:"notes,omitempty" yaml:"notes"`
}

// SearchMetadata describes how the search was run.
type SearchMetadata struct {
	SearchTime float64  `json:"searchTime,omitempty" yaml:"searchTime"`
	Sources    []string `json:"sources,omitempty" yaml:"sources"`
	Confidence float64  `json:"confidence,omitempty" yaml:"confidence"`
}

// SearchPlatformSummary ranks the platforms of the carried results.
func (s SearchResultSet) SearchPlatformSummary() []PlatformShare {
	counts := make(map[string]int)
	for _, r := range s.Results {
		counts[r.Platform]++
	}
	return rankPlatforms(counts, len(s.Results))
}

// AgentReport is the narrative output of an AI agent run.
type AgentReport struct {
	AgentType       string         `json:"agentType" yaml:"agentType"`
	Query           string         `json:"query" yaml:"query"`
	Response        string         `json:"response" yaml:"response"`
	Recommendations []string       `json:"recommendations,omitempty" yaml:"recommendations"`
	NextSteps       []string       `json:"nextSteps,omitempty" yaml:"nextSteps"`
	DateGenerated   string         `json:"dateGenerated" yaml:"dateGenerated"`
	Metadata        *AgentMetadata `json:"metadata,omitempty" yaml:"metadata"`
}

// AgentMetadata records how an agent report was produced.
type AgentMetadata struct {
	ProcessingTime float64  `json:"processingTime,omitempty" yaml:"processingTime"`
	Confidence     float64  `json:"confidence,omitempty" yaml:"confidence"`
	Sources        []string `json:"sources,omitempty" yaml:"sources"`
	Model          string   `json:"model,omitempty" yaml:"model"`
}

// AgentTitle turns an agent type such as "radio-promo" into "Radio Promo".
func (r AgentReport) AgentTitle() string {
	return titleCaser.String(strings.Join(strings.Fields(strings.ReplaceAll(r.AgentType, "-", " ")), " "))
}

// BatchInput groups the record sets of a batch export. Nil or empty members
// are skipped.
type BatchInput struct {
	Contacts      []ContactRecord    `json:"contacts,omitempty" yaml:"contacts"`
	Analytics     *AnalyticsSnapshot `json:"analytics,omitempty" yaml:"analytics"`
	SearchResults *SearchResultSet   `json:"searchResults,omitempty" yaml:"searchResults"`
	AgentReport   *AgentReport       `json:"agentReport,omitempty" yaml:"agentReport"`
}
