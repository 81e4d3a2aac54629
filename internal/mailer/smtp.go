package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	gomail "github.com/wneessen/go-mail"
)

const defaultSendTimeout = 15 * time.Second

// SMTPMailer delivers over SMTP. Secure selects implicit TLS (port 465
// style); otherwise STARTTLS is used when the server offers it.
type SMTPMailer struct {
	cfg     Config
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

func NewSMTPMailer(cfg Config, logger *slog.Logger) *SMTPMailer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 1025
	}
	return &SMTPMailer{
		cfg:     cfg,
		timeout: defaultSendTimeout,
		logger:  logger,
		now:     time.Now,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	mm, err := BuildMessage(m.cfg.From, msg, m.now())
	if err != nil {
		return err
	}

	client, err := m.client()
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := client.DialAndSendWithContext(ctx, mm); err != nil {
		return fmt.Errorf("smtp send via %s: %w", addr, err)
	}

	m.logger.InfoContext(ctx, "mail sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

func (m *SMTPMailer) client() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithTimeout(m.timeout),
		gomail.WithTLSConfig(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}),
	}
	if m.cfg.Secure {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	if m.cfg.Username != "" && m.cfg.Password != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.Username),
			gomail.WithPassword(m.cfg.Password),
		)
	}
	return gomail.NewClient(m.cfg.Host, opts...)
}

// BuildMessage renders a single-part UTF-8 HTML message with a base64 body.
func BuildMessage(from string, msg Message, date time.Time) (*gomail.Msg, error) {
	mm := gomail.NewMsg(gomail.WithEncoding(gomail.EncodingB64), gomail.WithCharset(gomail.CharsetUTF8))
	if err := mm.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := mm.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	mm.Subject(msg.Subject)
	mm.SetDateWithValue(date)
	mm.SetBodyString(gomail.TypeTextHTML, msg.HTML)
	return mm, nil
}
