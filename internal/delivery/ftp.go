package delivery

import (
	"bytes"
	"context"
	"net"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP artifact store.
type FTPOptions struct {
	Timeout time.Duration
}

// FTPStore uploads artifacts to an FTP server as <dir>/<id>/<filename>.
type FTPStore struct {
	host     string
	dir      string
	user     string
	password string
	opts     FTPOptions
}

// NewFTPStore parses an ftp://[user[:pass]@]host[:port]/dir URL.
func NewFTPStore(rawURL string, opts FTPOptions) (*FTPStore, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	host, dir, user, pass, err := parseFTPURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &FTPStore{host: host, dir: dir, user: user, password: pass, opts: opts}, nil
}

// parseFTPURL extracts host (with port), directory and credentials. Missing
// credentials mean anonymous login; a missing path means the server root.
func parseFTPURL(rawURL string) (host, dir, user, pass string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", "", "", eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", "", "", eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", "", "", "", eris.New("empty host in ftp url")
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	dir = path.Clean("/" + u.Path)

	user, pass = "anonymous", "anonymous@"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	return host, dir, user, pass, nil
}

// CreateArtifact uploads data and returns its ftp:// URL without credentials.
func (s *FTPStore) CreateArtifact(ctx context.Context, data []byte, filename, _ string) (string, error) {
	name := safeFilename(filename)
	dir := path.Join(s.dir, uuid.NewString())
	target := path.Join(dir, name)

	zap.L().Debug("ftp: connecting", zap.String("host", s.host), zap.String("path", target))

	conn, err := ftp.Dial(s.host, ftp.DialWithTimeout(s.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return "", eris.Wrap(err, "ftp dial")
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login(s.user, s.password); err != nil {
		return "", eris.Wrap(err, "ftp login")
	}
	if err := conn.MakeDir(dir); err != nil {
		return "", eris.Wrapf(err, "ftp mkdir %s", dir)
	}
	if err := conn.Stor(target, bytes.NewReader(data)); err != nil {
		return "", eris.Wrapf(err, "ftp store %s", target)
	}

	return (&url.URL{Scheme: "ftp", Host: s.host, Path: target}).String(), nil
}
