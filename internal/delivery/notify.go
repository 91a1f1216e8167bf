package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

// LogNotifier renders notifications and logs them instead of sending.
type LogNotifier struct{}

// Notify implements export.Notifier.
func (LogNotifier) Notify(_ context.Context, n model.Notification) error {
	email, err := RenderEmail(n)
	if err != nil {
		return err
	}
	zap.L().Info("delivery: email (log driver)",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.String("download_url", n.DownloadURL),
		zap.Int("html_bytes", len(email.HTML)),
	)
	return nil
}

// HTTPNotifierConfig configures an HTTP e-mail API client.
type HTTPNotifierConfig struct {
	URL        string
	APIKey     string
	From       string
	RatePerSec float64
	Timeout    time.Duration
}

// HTTPNotifier posts rendered e-mails as JSON to a transactional e-mail API
// (Resend-compatible: {from, to, subject, html} with a bearer key).
type HTTPNotifier struct {
	cfg     HTTPNotifierConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPNotifier creates an HTTPNotifier. RatePerSec <= 0 means 2/s.
func NewHTTPNotifier(cfg HTTPNotifierConfig) *HTTPNotifier {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 2
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPNotifier{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
	}
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Notify implements export.Notifier.
func (h *HTTPNotifier) Notify(ctx context.Context, n model.Notification) error {
	if h.cfg.URL == "" {
		return eris.New("delivery: email api url not configured")
	}
	email, err := RenderEmail(n)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(emailRequest{
		From:    h.cfg.From,
		To:      []string{email.To},
		Subject: email.Subject,
		HTML:    email.HTML,
	})
	if err != nil {
		return eris.Wrap(err, "delivery: marshal email")
	}

	if err := h.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "delivery: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "delivery: create email request")
	}
	req.Header.Set("Content-Type", "application/json")
	if h.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "delivery: email request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return eris.Errorf("delivery: email api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	zap.L().Info("delivery: email sent",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
	)
	return nil
}

// SMTPNotifierConfig configures an SMTP relay.
type SMTPNotifierConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier sends rendered e-mails through an SMTP relay.
type SMTPNotifier struct {
	cfg  SMTPNotifierConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier creates an SMTPNotifier. Port 0 means 587.
func NewSMTPNotifier(cfg SMTPNotifierConfig) *SMTPNotifier {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPNotifier{cfg: cfg, send: smtp.SendMail}
}

// Notify implements export.Notifier.
func (s *SMTPNotifier) Notify(ctx context.Context, n model.Notification) error {
	if s.cfg.Host == "" {
		return eris.New("delivery: smtp host not configured")
	}
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "delivery: smtp send")
	}
	email, err := RenderEmail(n)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	if err := s.send(addr, auth, s.cfg.From, []string{email.To}, buildMIME(s.cfg.From, email)); err != nil {
		return eris.Wrap(err, "delivery: smtp send")
	}

	zap.L().Info("delivery: email sent",
		zap.String("to", email.To),
		zap.String("relay", addr),
	)
	return nil
}

// buildMIME assembles a single-part HTML message.
func buildMIME(from string, e Email) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", headerSafe(from))
	fmt.Fprintf(&b, "To: %s\r\n", headerSafe(e.To))
	fmt.Fprintf(&b, "Subject: %s\r\n", headerSafe(e.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(e.HTML)
	return b.Bytes()
}

func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
