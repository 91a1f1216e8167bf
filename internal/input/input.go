// Package input loads export payloads from local files or HTTP(S) URLs.
// Documents may be JSON or YAML; contact lists may also be CSV or XLSX with
// a header row.
package input

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

// MaxRemoteBytes caps the size of a downloaded input.
const MaxRemoteBytes = 32 << 20

// Loader reads input sources.
type Loader struct {
	client    *http.Client
	userAgent string
}

// NewLoader creates a Loader. A zero timeout means 30s.
func NewLoader(timeout time.Duration) *Loader {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Loader{
		client:    &http.Client{Timeout: timeout},
		userAgent: "intel-export/1.0",
	}
}

// Contacts loads a contact list. JSON and YAML inputs may be a bare list or
// an object with a "contacts" key.
func (l *Loader) Contacts(ctx context.Context, src string) ([]model.ContactRecord, error) {
	data, ext, err := l.read(ctx, src)
	if err != nil {
		return nil, err
	}

	switch ext {
	case ".csv":
		return contactsFromCSV(data)
	case ".xlsx":
		return contactsFromXLSX(data)
	}

	var list []model.ContactRecord
	if err := decode(data, ext, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Contacts []model.ContactRecord `json:"contacts" yaml:"contacts"`
	}
	if err := decode(data, ext, &wrapped); err != nil {
		return nil, eris.Wrapf(err, "input: decode contacts from %s", src)
	}
	return wrapped.Contacts, nil
}

// Analytics loads an analytics snapshot.
func (l *Loader) Analytics(ctx context.Context, src string) (model.AnalyticsSnapshot, error) {
	var snap model.AnalyticsSnapshot
	err := l.document(ctx, src, &snap)
	return snap, err
}

// SearchResults loads a search result set.
func (l *Loader) SearchResults(ctx context.Context, src string) (model.SearchResultSet, error) {
	var set model.SearchResultSet
	err := l.document(ctx, src, &set)
	return set, err
}

// AgentReport loads an AI agent report.
func (l *Loader) AgentReport(ctx context.Context, src string) (model.AgentReport, error) {
	var r model.AgentReport
	err := l.document(ctx, src, &r)
	return r, err
}

// Batch loads a batch input document.
func (l *Loader) Batch(ctx context.Context, src string) (model.BatchInput, error) {
	var in model.BatchInput
	err := l.document(ctx, src, &in)
	return in, err
}

func (l *Loader) document(ctx context.Context, src string, v any) error {
	data, ext, err := l.read(ctx, src)
	if err != nil {
		return err
	}
	if ext == ".csv" || ext == ".xlsx" {
		return eris.Errorf("input: %s inputs are only supported for contacts", strings.TrimPrefix(ext, "."))
	}
	return eris.Wrapf(decode(data, ext, v), "input: decode %s", src)
}

// read returns the raw bytes of src and its lower-cased extension.
func (l *Loader) read(ctx context.Context, src string) ([]byte, string, error) {
	if src == "" {
		return nil, "", eris.New("input: no source given")
	}
	if src == "-" {
		data, err := io.ReadAll(io.LimitReader(os.Stdin, MaxRemoteBytes))
		return data, ".json", eris.Wrap(err, "input: read stdin")
	}

	if u, err := url.Parse(src); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		data, err := l.download(ctx, u.String())
		return data, strings.ToLower(path.Ext(u.Path)), err
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return nil, "", eris.Wrapf(err, "input: read %s", src)
	}
	return data, strings.ToLower(filepath.Ext(src)), nil
}

func (l *Loader) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "input: create request")
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "input: download %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("input: download %s: status %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxRemoteBytes+1))
	if err != nil {
		return nil, eris.Wrapf(err, "input: read body of %s", rawURL)
	}
	if len(data) > MaxRemoteBytes {
		return nil, eris.Errorf("input: %s exceeds %d bytes", rawURL, MaxRemoteBytes)
	}

	zap.L().Debug("input: downloaded",
		zap.String("url", rawURL),
		zap.Int("bytes", len(data)),
	)
	return data, nil
}

// decode parses JSON or YAML by extension. Unknown extensions are sniffed:
// a leading '{' or '[' is JSON, anything else YAML.
func decode(data []byte, ext string, v any) error {
	switch ext {
	case ".json":
		return json.Unmarshal(data, v)
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return json.Unmarshal(trimmed, v)
	}
	return yaml.Unmarshal(data, v)
}
