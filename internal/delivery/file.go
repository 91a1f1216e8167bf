// Package delivery implements the artifact stores and notifiers the export
// service hands finished payloads to.
package delivery

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FileStore writes artifacts below a local directory as <dir>/<id>/<filename>.
type FileStore struct {
	dir     string
	baseURL string
}

// NewFileStore creates dir if needed. When baseURL is set, artifact URLs are
// <baseURL>/<id>/<filename>; otherwise they are file:// URLs.
func NewFileStore(dir, baseURL string) (*FileStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "delivery: resolve output dir %s", dir)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, eris.Wrapf(err, "delivery: create output dir %s", abs)
	}
	return &FileStore{dir: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the absolute root directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// CreateArtifact stores data and returns its URL.
func (s *FileStore) CreateArtifact(_ context.Context, data []byte, filename, _ string) (string, error) {
	name := safeFilename(filename)
	id := uuid.NewString()
	dir := filepath.Join(s.dir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "delivery: create artifact dir")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrap(err, "delivery: write artifact")
	}

	zap.L().Debug("delivery: artifact stored",
		zap.String("path", path),
		zap.Int("bytes", len(data)),
	)

	if s.baseURL != "" {
		return s.baseURL + "/" + id + "/" + url.PathEscape(name), nil
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String(), nil
}

// Path resolves a stored artifact. It rejects ids that are not UUIDs and
// names that would escape the artifact directory.
func (s *FileStore) Path(id, name string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", eris.Errorf("delivery: invalid artifact id %q", id)
	}
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", eris.Errorf("delivery: invalid artifact name %q", name)
	}
	path := filepath.Join(s.dir, id, name)
	if _, err := os.Stat(path); err != nil {
		return "", eris.Wrap(err, "delivery: stat artifact")
	}
	return path, nil
}

// safeFilename strips directories from a caller-supplied filename.
func safeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "export"
	}
	return name
}
