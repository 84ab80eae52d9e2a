package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/gaurav-prasanna/subdigest/core"
)

// TLS modes for SMTPConfig.TLSMode.
const (
	TLSModeStartTLS = "starttls"
	TLSModeTLS      = "tls"
	TLSModePlain    = "plain"
)

const defaultDialTimeout = 30 * time.Second

// SMTPConfig configures an SMTPSender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	TLSMode  string
	// InsecureSkipVerify disables certificate checks; for local relays only.
	InsecureSkipVerify bool
}

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	config SMTPConfig
	auth   smtp.Auth
	now    func() time.Time
}

// NewSMTP validates cfg and builds a sender. Authentication is skipped when
// no username is set.
func NewSMTP(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: SMTP host is required", ErrInvalidConfig)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: SMTP port must be between 1 and 65535", ErrInvalidConfig)
	}
	if cfg.TLSMode == "" {
		cfg.TLSMode = TLSModeStartTLS
	}
	switch cfg.TLSMode {
	case TLSModeStartTLS, TLSModeTLS, TLSModePlain:
	default:
		return nil, fmt.Errorf("%w: TLS mode must be starttls, tls, or plain", ErrInvalidConfig)
	}

	s := &SMTPSender{config: cfg, now: time.Now}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return s, nil
}

// Send delivers msg to every To and Cc recipient.
func (s *SMTPSender) Send(ctx context.Context, msg core.Message) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(ErrFailedToSend, err)
	}
	if err := Validate(msg); err != nil {
		return err
	}

	rcpts, err := Recipients(msg)
	if err != nil {
		return errors.Join(ErrFailedToSend, err)
	}
	data, err := Compose(msg, s.config.Host, s.now())
	if err != nil {
		return errors.Join(ErrFailedToSend, err)
	}

	client, err := s.dial(ctx)
	if err != nil {
		return errors.Join(ErrFailedToSend, err)
	}
	defer func() { _ = client.Close() }()

	if err := s.transact(client, msg.From, rcpts, data); err != nil {
		return errors.Join(ErrFailedToSend, err)
	}
	return nil
}

func (s *SMTPSender) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	tlsConfig := &tls.Config{ServerName: s.config.Host, InsecureSkipVerify: s.config.InsecureSkipVerify}
	dialer := &net.Dialer{Timeout: defaultDialTimeout}

	var conn net.Conn
	var err error
	if s.config.TLSMode == TLSModeTLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if s.config.TLSMode == TLSModeStartTLS {
		if err := client.StartTLS(tlsConfig); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to start TLS: %w", err)
		}
	}
	return client, nil
}

func (s *SMTPSender) transact(client *smtp.Client, from string, rcpts []string, data []byte) error {
	if s.auth != nil {
		if err := client.Auth(s.auth); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}

	sender, err := bareAddress(from)
	if err != nil {
		return err
	}
	if err := client.Mail(sender); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range rcpts {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	// The message is accepted once DATA closes; some servers hang up before QUIT.
	_ = client.Quit()
	return nil
}
