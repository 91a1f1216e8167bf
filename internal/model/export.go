package model

import (
	"strings"
	"time"
)

// Kind identifies the record type of an export job.
type Kind string

const (
	KindContacts      Kind = "contacts"
	KindAnalytics     Kind = "analytics"
	KindSearchResults Kind = "search-results"
	KindAgentReport   Kind = "ai-agent-report"
)

// Slug is the short name used in default filenames.
func (k Kind) Slug() string {
	if k == KindAgentReport {
		return "ai-report"
	}
	return string(k)
}

// ParseKind accepts a kind name or its filename slug.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindContacts:
		return KindContacts, true
	case KindAnalytics:
		return KindAnalytics, true
	case KindSearchResults, "search":
		return KindSearchResults, true
	case KindAgentReport, "ai-report", "agent-report":
		return KindAgentReport, true
	}
	return "", false
}

// Format is an output encoding.
type Format string

const (
	FormatCSV         Format = "csv"
	FormatSpreadsheet Format = "spreadsheet"
	FormatDocument    Format = "document"
)

// ParseFormat normalises a format name. The legacy names "excel"/"xlsx" and
// "pdf" are accepted as aliases.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, true
	case "spreadsheet", "excel", "xlsx":
		return FormatSpreadsheet, true
	case "document", "pdf":
		return FormatDocument, true
	}
	return "", false
}

// WhiteLabel overrides branding on generated documents and notifications.
type WhiteLabel struct {
	CompanyName  string `json:"companyName,omitempty" yaml:"companyName"`
	LogoURL      string `json:"logoUrl,omitempty" yaml:"logoUrl"`
	PrimaryColor string `json:"primaryColor,omitempty" yaml:"primaryColor"`
}

// Merge returns w with empty fields filled from defaults.
func (w *WhiteLabel) Merge(defaults WhiteLabel) WhiteLabel {
	out := defaults
	if w == nil {
		return out
	}
	if w.CompanyName != "" {
		out.CompanyName = w.CompanyName
	}
	if w.LogoURL != "" {
		out.LogoURL = w.LogoURL
	}
	if w.PrimaryColor != "" {
		out.PrimaryColor = w.PrimaryColor
	}
	return out
}

// Options configures one export job.
type Options struct {
	Format          string      `json:"format" yaml:"format"`
	EmailDelivery   bool        `json:"emailDelivery,omitempty" yaml:"emailDelivery"`
	RecipientEmail  string      `json:"recipientEmail,omitempty" yaml:"recipientEmail"`
	CustomMessage   string      `json:"customMessage,omitempty" yaml:"customMessage"`
	WhiteLabel      *WhiteLabel `json:"whiteLabel,omitempty" yaml:"whiteLabel"`
	Filename        string      `json:"filename,omitempty" yaml:"filename"`
	IncludeMetadata bool        `json:"includeMetadata,omitempty" yaml:"includeMetadata"`

	// RequireDeliveryConfirmation makes a failed notification fail the job.
	RequireDeliveryConfirmation bool `json:"requireDeliveryConfirmation,omitempty" yaml:"requireDeliveryConfirmation"`
}

// WantsDelivery reports whether a notification should be sent.
func (o Options) WantsDelivery() bool {
	return o.EmailDelivery && strings.TrimSpace(o.RecipientEmail) != ""
}

// Stage is a step of the export pipeline as seen by a progress sink.
type Stage string

const (
	StagePreparing  Stage = "preparing"
	StageProcessing Stage = "processing"
	StageFormatting Stage = "formatting"
	StageDelivering Stage = "delivering"
	StageComplete   Stage = "complete"
)

// ProgressEvent is pushed to a progress sink during a job.
type ProgressEvent struct {
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Stage      Stage   `json:"stage"`
	Message    string  `json:"message"`
}

// DroppedRecord identifies an input record that was filtered out.
type DroppedRecord struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// DeliveryStatus reports the notification outcome of a job.
type DeliveryStatus struct {
	Attempted bool   `json:"attempted"`
	Sent      bool   `json:"sent"`
	Recipient string `json:"recipient,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ResultMetadata carries job counters. Kind-specific fields are omitted when
// they do not apply.
type ResultMetadata struct {
	JobID         string          `json:"jobId"`
	Kind          Kind            `json:"kind"`
	Format        Format          `json:"format"`
	ExportedCount int             `json:"exportedCount"`
	DroppedCount  int             `json:"droppedCount,omitempty"`
	Dropped       []DroppedRecord `json:"dropped,omitempty"`
	Filename      string          `json:"filename,omitempty"`
	MIMEType      string          `json:"mimeType,omitempty"`
	Bytes         int             `json:"bytes,omitempty"`
	Pages         int             `json:"pages,omitempty"`
	Timestamp     string          `json:"timestamp"`
	User          string          `json:"user,omitempty"`
	Delivery      *DeliveryStatus `json:"delivery,omitempty"`

	Query                string  `json:"query,omitempty"`
	ResultCount          int     `json:"resultCount,omitempty"`
	TotalFound           int     `json:"totalFound,omitempty"`
	TotalContacts        int     `json:"totalContacts,omitempty"`
	SuccessRate          float64 `json:"successRate,omitempty"`
	AgentType            string  `json:"agentType,omitempty"`
	RecommendationsCount int     `json:"recommendationsCount,omitempty"`
	NextStepsCount       int     `json:"nextStepsCount,omitempty"`
}

// Result is the terminal value of one export job.
type Result struct {
	Kind        Kind            `json:"type"`
	Success     bool            `json:"success"`
	DownloadURL string          `json:"downloadUrl,omitempty"`
	Message     string          `json:"message"`
	Metadata    *ResultMetadata `json:"metadata,omitempty"`

	// Err keeps the underlying error of a failed job for diagnostics.
	Err error `json:"-"`
}

// BatchSummary aggregates the sub-jobs of a batch.
type BatchSummary struct {
	TotalExports      int `json:"totalExports"`
	SuccessfulExports int `json:"successfulExports"`
	FailedExports     int `json:"failedExports"`
	TotalItems        int `json:"totalItems"`
}

// BatchResult is the outcome of a batch export.
type BatchResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Results []Result     `json:"results"`
	Summary BatchSummary `json:"summary"`
}

// Notification is the context handed to a notifier.
type Notification struct {
	Kind           Kind       `json:"type"`
	RecipientEmail string     `json:"recipientEmail"`
	UserLabel      string     `json:"userLabel,omitempty"`
	DownloadURL    string     `json:"downloadUrl,omitempty"`
	CustomMessage  string     `json:"customMessage,omitempty"`
	WhiteLabel     WhiteLabel `json:"whiteLabel"`
	ItemCount      int        `json:"itemCount"`
	Filename       string     `json:"filename,omitempty"`
}

// JobRecord is the flattened outcome of a finished job, as seen by observers
// and stored in export history.
type JobRecord struct {
	ID          string        `json:"id"`
	Kind        Kind          `json:"kind"`
	Format      Format        `json:"format,omitempty"`
	Success     bool          `json:"success"`
	Message     string        `json:"message"`
	ItemCount   int           `json:"itemCount"`
	Dropped     int           `json:"dropped"`
	Bytes       int           `json:"bytes"`
	DownloadURL string        `json:"downloadUrl,omitempty"`
	User        string        `json:"user,omitempty"`
	Delivery    string        `json:"delivery,omitempty"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
}

// Delivery values stored on a JobRecord.
const (
	DeliveryNone   = ""
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)
