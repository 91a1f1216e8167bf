// Package export coordinates export jobs: validation, record filtering,
// encoding, artifact storage, progress reporting and notification delivery.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/totalaudiopromo/intel-export/internal/encode"
	"github.com/totalaudiopromo/intel-export/internal/model"
)

// ProgressFunc receives progress events synchronously. A nil ProgressFunc is
// allowed.
type ProgressFunc func(model.ProgressEvent)

// ArtifactStore turns an encoded payload into a retrievable URL.
type ArtifactStore interface {
	CreateArtifact(ctx context.Context, data []byte, filename, mimeType string) (string, error)
}

// Notifier sends an export notification to a recipient.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// Observer is told about every finished single-type job.
type Observer interface {
	ObserveExport(ctx context.Context, rec model.JobRecord)
}

// Defaults are the process-wide settings a Service is built with. They are
// read-only after construction.
type Defaults struct {
	Product                     string
	WhiteLabel                  model.WhiteLabel
	RequireDeliveryConfirmation bool
}

// Service runs export jobs. It is safe for concurrent use.
type Service struct {
	defaults  Defaults
	artifacts ArtifactStore
	notifier  Notifier
	observers []Observer
	now       func() time.Time
	newID     func() string
}

// Option customises a Service.
type Option func(*Service)

// WithObservers registers job observers.
func WithObservers(obs ...Observer) Option {
	return func(s *Service) { s.observers = append(s.observers, obs...) }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides job id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService creates a Service. A nil artifact store leaves results without
// a download URL; a nil notifier fails every delivery attempt.
func NewService(defaults Defaults, artifacts ArtifactStore, notifier Notifier, opts ...Option) *Service {
	if defaults.Product == "" {
		defaults.Product = "audio-intel"
	}
	if defaults.WhiteLabel.CompanyName == "" {
		defaults.WhiteLabel.CompanyName = "Audio Intel"
	}
	s := &Service{
		defaults:  defaults,
		artifacts: artifacts,
		notifier:  notifier,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Defaults returns the construction-time defaults.
func (s *Service) Defaults() Defaults {
	return s.defaults
}

// job describes one single-type export.
type job struct {
	kind    model.Kind
	noun    string // "contacts", "analytics", ...
	count   int
	dropped []model.DroppedRecord
	invalid error
	encode  func(model.Format, encode.Settings) (encode.Payload, error)
	meta    func(*model.ResultMetadata)
}

// safeEncode runs the job's encoder, turning a panic inside it into an error.
func (j job) safeEncode(f model.Format, st encode.Settings) (p encode.Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("export: %s encoder panicked: %v", f, r)
		}
	}()
	return j.encode(f, st)
}

// ExportContacts exports contacts. Records without an e-mail are dropped and
// reported in the result metadata.
func (s *Service) ExportContacts(ctx context.Context, contacts []model.ContactRecord, opts model.Options, user string, onProgress ProgressFunc) model.Result {
	valid, dropped := model.FilterContacts(contacts)
	j := job{
		kind:    model.KindContacts,
		noun:    "contacts",
		count:   len(valid),
		dropped: dropped,
		encode: func(f model.Format, st encode.Settings) (encode.Payload, error) {
			return encode.Contacts(f, valid, st)
		},
	}
	if len(valid) == 0 {
		j.invalid = NewValidationError("No valid contacts found for export")
	}
	return s.run(ctx, j, opts, user, onProgress)
}

// ExportAnalytics exports an analytics snapshot.
func (s *Service) ExportAnalytics(ctx context.Context, snap model.AnalyticsSnapshot, opts model.Options, user string, onProgress ProgressFunc) model.Result {
	j := job{
		kind:  model.KindAnalytics,
		noun:  "analytics",
		count: 1,
		encode: func(f model.Format, st encode.Settings) (encode.Payload, error) {
			return encode.Analytics(f, snap, st)
		},
		meta: func(m *model.ResultMetadata) {
			m.TotalContacts = snap.TotalContacts
			m.SuccessRate = snap.SuccessRate
		},
	}
	if snap.TotalContacts < 0 || snap.TotalEnrichments < 0 {
		j.invalid = NewValidationError("Analytics totals must not be negative")
	}
	return s.run(ctx, j, opts, user, onProgress)
}

// ExportSearchResults exports one page of search results.
func (s *Service) ExportSearchResults(ctx context.Context, set model.SearchResultSet, opts model.Options, user string, onProgress ProgressFunc) model.Result {
	j := job{
		kind:  model.KindSearchResults,
		noun:  "search results",
		count: len(set.Results),
		encode: func(f model.Format, st encode.Settings) (encode.Payload, error) {
			return encode.SearchResults(f, set, st)
		},
		meta: func(m *model.ResultMetadata) {
			m.Query = set.Query
			m.ResultCount = len(set.Results)
			m.TotalFound = set.TotalFound
		},
	}
	if len(set.Results) == 0 {
		j.invalid = NewValidationError("No search results found for export")
	}
	return s.run(ctx, j, opts, user, onProgress)
}

// ExportAgentReport exports an AI agent report.
func (s *Service) ExportAgentReport(ctx context.Context, r model.AgentReport, opts model.Options, user string, onProgress ProgressFunc) model.Result {
	j := job{
		kind:  model.KindAgentReport,
		noun:  "AI agent report",
		count: 1,
		encode: func(f model.Format, st encode.Settings) (encode.Payload, error) {
			return encode.AgentReport(f, r, st)
		},
		meta: func(m *model.ResultMetadata) {
			m.Query = r.Query
			m.AgentType = r.AgentType
			m.RecommendationsCount = len(r.Recommendations)
			m.NextStepsCount = len(r.NextSteps)
		},
	}
	if strings.TrimSpace(r.Response) == "" && strings.TrimSpace(r.Query) == "" {
		j.invalid = NewValidationError("AI agent report has no query or response")
	}
	return s.run(ctx, j, opts, user, onProgress)
}

// resolveFormat validates the requested format.
func resolveFormat(name string) (model.Format, error) {
	if strings.TrimSpace(name) == "" {
		return "", NewValidationError("export format is required")
	}
	f, ok := model.ParseFormat(name)
	if !ok {
		return "", &UnsupportedFormatError{Format: name}
	}
	return f, nil
}

// Filename returns the default filename for a kind and format.
func (s *Service) Filename(kind model.Kind, f model.Format) string {
	return fmt.Sprintf("%s-%s.%s", s.defaults.Product, kind.Slug(), encode.Extension(f))
}

// run executes one job. It never returns an error: failures are folded into
// the Result. The complete event is always the last one emitted.
func (s *Service) run(ctx context.Context, j job, opts model.Options, user string, onProgress ProgressFunc) model.Result {
	started := s.now()
	id := s.newID()
	log := zap.L().With(zap.String("job_id", id), zap.String("kind", string(j.kind)))

	emit := func(stage model.Stage, pct float64, msg string) {
		if onProgress == nil {
			return
		}
		onProgress(model.ProgressEvent{
			Current:    int(float64(j.count) * pct / 100),
			Total:      j.count,
			Percentage: pct,
			Stage:      stage,
			Message:    msg,
		})
	}

	meta := &model.ResultMetadata{
		JobID:         id,
		Kind:          j.kind,
		ExportedCount: j.count,
		DroppedCount:  len(j.dropped),
		Dropped:       j.dropped,
		Timestamp:     started.UTC().Format(time.RFC3339),
		User:          user,
	}
	if j.meta != nil {
		j.meta(meta)
	}
	res := model.Result{Kind: j.kind, Metadata: meta}

	finish := func() model.Result {
		emit(model.StageComplete, 100, res.Message)
		s.observe(ctx, res, started)
		return res
	}
	fail := func(err error) model.Result {
		res.Success = false
		res.Err = err
		res.Message = err.Error()
		if IsClientError(err) {
			log.Info("export: rejected", zap.Error(err))
		} else {
			log.Error("export: failed", zap.Error(err))
		}
		return finish()
	}

	emit(model.StagePreparing, 0, fmt.Sprintf("Preparing %s export...", j.noun))
	if j.invalid != nil {
		meta.ExportedCount = 0
		return fail(j.invalid)
	}
	format, err := resolveFormat(opts.Format)
	if err != nil {
		return fail(err)
	}
	meta.Format = format

	emit(model.StageProcessing, 50, s.processingMessage(j))
	if j.kind == model.KindContacts || format == model.FormatDocument {
		emit(model.StageFormatting, 75, fmt.Sprintf("Formatting %s %s...", j.noun, format))
	}

	payload, err := j.safeEncode(format, encode.Settings{
		IncludeMetadata: opts.IncludeMetadata,
		WhiteLabel:      opts.WhiteLabel.Merge(s.defaults.WhiteLabel),
		GeneratedAt:     started,
	})
	if err != nil {
		return fail(&SerializationError{Format: format, Err: err})
	}

	filename := strings.TrimSpace(opts.Filename)
	if filename == "" {
		filename = s.Filename(j.kind, format)
	}
	meta.Filename = filename
	meta.MIMEType = payload.MIMEType
	meta.Bytes = len(payload.Data)
	meta.Pages = payload.Pages

	if s.artifacts != nil {
		url, err := s.artifacts.CreateArtifact(ctx, payload.Data, filename, payload.MIMEType)
		if err != nil {
			return fail(&ArtifactError{Filename: filename, Err: err})
		}
		res.DownloadURL = url
	}

	res.Success = true
	res.Message = fmt.Sprintf("Successfully exported %s to %s", s.countLabel(j), formatLabel(format))

	if opts.WantsDelivery() {
		recipient := strings.TrimSpace(opts.RecipientEmail)
		emit(model.StageDelivering, 90, fmt.Sprintf("Sending email delivery to %s...", recipient))
		status := &model.DeliveryStatus{Attempted: true, Recipient: recipient}
		meta.Delivery = status

		err := s.deliver(ctx, model.Notification{
			Kind:           j.kind,
			RecipientEmail: recipient,
			UserLabel:      user,
			DownloadURL:    res.DownloadURL,
			CustomMessage:  opts.CustomMessage,
			WhiteLabel:     opts.WhiteLabel.Merge(s.defaults.WhiteLabel),
			ItemCount:      j.count,
			Filename:       filename,
		})
		if err != nil {
			derr := &DeliveryError{Recipient: recipient, Err: err}
			status.Error = derr.Error()
			if opts.RequireDeliveryConfirmation || s.defaults.RequireDeliveryConfirmation {
				return fail(derr)
			}
			log.Warn("export: delivery failed", zap.Error(err))
			res.Message += "; " + derr.Error()
		} else {
			status.Sent = true
			res.Message += fmt.Sprintf(" and emailed to %s", recipient)
		}
	}

	log.Info("export: complete",
		zap.String("format", string(format)),
		zap.Int("items", j.count),
		zap.Int("dropped", len(j.dropped)),
		zap.Int("bytes", meta.Bytes),
	)
	return finish()
}

func (s *Service) deliver(ctx context.Context, n model.Notification) error {
	if s.notifier == nil {
		return eris.New("export: no notifier configured")
	}
	return s.notifier.Notify(ctx, n)
}

func (s *Service) processingMessage(j job) string {
	switch j.kind {
	case model.KindContacts, model.KindSearchResults:
		return fmt.Sprintf("Processing %d %s...", j.count, j.noun)
	}
	return fmt.Sprintf("Processing %s data...", j.noun)
}

func (s *Service) countLabel(j job) string {
	switch j.kind {
	case model.KindContacts, model.KindSearchResults:
		return fmt.Sprintf("%d %s", j.count, j.noun)
	}
	return j.noun
}

func formatLabel(f model.Format) string {
	switch f {
	case model.FormatCSV:
		return "CSV"
	case model.FormatSpreadsheet:
		return "spreadsheet"
	case model.FormatDocument:
		return "PDF document"
	}
	return string(f)
}

func (s *Service) observe(ctx context.Context, res model.Result, started time.Time) {
	if len(s.observers) == 0 {
		return
	}
	m := res.Metadata
	rec := model.JobRecord{
		ID:          m.JobID,
		Kind:        res.Kind,
		Format:      m.Format,
		Success:     res.Success,
		Message:     res.Message,
		ItemCount:   m.ExportedCount,
		Dropped:     m.DroppedCount,
		Bytes:       m.Bytes,
		DownloadURL: res.DownloadURL,
		User:        m.User,
		StartedAt:   started.UTC(),
		Duration:    s.now().Sub(started),
	}
	if m.Delivery != nil {
		rec.Delivery = model.DeliveryFailed
		if m.Delivery.Sent {
			rec.Delivery = model.DeliverySent
		}
	}
	for _, o := range s.observers {
		o.ObserveExport(ctx, rec)
	}
}
