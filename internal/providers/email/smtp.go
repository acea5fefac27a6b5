package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Domain is used in EHLO and in generated Message-IDs.
	Domain string
	// StartTLS upgrades the connection before authenticating. TLS overrides
	// the client TLS settings, ServerName defaults to Host.
	StartTLS bool
	TLS      *tls.Config
	Timeout  time.Duration
}

type SMTPProvider struct {
	cfg Config
}

func NewSMTP(cfg Config) *SMTPProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if strings.TrimSpace(cfg.Domain) == "" {
		cfg.Domain = "localhost"
	}
	return &SMTPProvider{cfg: cfg}
}

func (p *SMTPProvider) Send(ctx context.Context, msg Message) (string, error) {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return "", errors.New("email: recipient is required")
	}

	addr := net.JoinHostPort(p.cfg.Host, fmt.Sprintf("%d", p.cfg.Port))
	dialer := &net.Dialer{Timeout: p.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("email: dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(p.cfg.Timeout))
	}

	c, err := p.newClient(conn)
	if err != nil {
		_ = conn.Close()
		return "", err
	}
	defer c.Close()

	if err := c.Hello(p.cfg.Domain); err != nil {
		return "", fmt.Errorf("email: hello: %w", err)
	}
	if p.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", p.cfg.Username, p.cfg.Password)); err != nil {
			return "", fmt.Errorf("email: auth: %w", err)
		}
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), p.cfg.Domain)
	if err := c.Mail(p.cfg.From, nil); err != nil {
		return "", fmt.Errorf("email: mail from: %w", err)
	}
	if err := c.Rcpt(to, nil); err != nil {
		return "", fmt.Errorf("email: rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return "", fmt.Errorf("email: data: %w", err)
	}
	if _, err := w.Write(p.build(messageID, to, msg)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("email: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("email: close body: %w", err)
	}
	if err := c.Quit(); err != nil {
		return "", fmt.Errorf("email: quit: %w", err)
	}

	return messageID, nil
}

func (p *SMTPProvider) newClient(conn net.Conn) (*smtp.Client, error) {
	if !p.cfg.StartTLS {
		return smtp.NewClient(conn), nil
	}
	tlsConfig := &tls.Config{ServerName: p.cfg.Host}
	if p.cfg.TLS != nil {
		tlsConfig = p.cfg.TLS.Clone()
		if tlsConfig.ServerName == "" {
			tlsConfig.ServerName = p.cfg.Host
		}
	}
	c, err := smtp.NewClientStartTLS(conn, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("email: starttls: %w", err)
	}
	return c, nil
}

func (p *SMTPProvider) build(messageID, to string, msg Message) []byte {
	var b strings.Builder
	header := func(key, value string) {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}
	header("From", p.cfg.From)
	header("To", to)
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", time.Now().UTC().Format(time.RFC1123Z))
	header("Message-ID", messageID)
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="UTF-8"`)
	if msg.SenderUserID != "" {
		header("X-Mailroom-Sender", msg.SenderUserID)
	}
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.HTML, "\n", "\r\n"))
	return []byte(b.String())
}
