// Package mail delivers the digest.
// Transports: SMTP (starttls, tls or plain), Postmark's API, and a log
// transport that records the encoded message instead of sending it.
package mail

import (
	"errors"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"strings"

	"github.com/gaurav-prasanna/subdigest/core"
)

var (
	// ErrInvalidConfig is returned when a transport cannot be built from its config.
	ErrInvalidConfig = errors.New("mail: invalid config")
	// ErrInvalidParams is returned when a message is missing required fields.
	ErrInvalidParams = errors.New("mail: invalid message")
	// ErrFailedToSend wraps every delivery failure.
	ErrFailedToSend = errors.New("mail: failed to send")
)

// Transport names accepted by New.
const (
	TransportSMTP     = "smtp"
	TransportPostmark = "postmark"
	TransportLog      = "log"
)

// Config selects and configures a transport.
type Config struct {
	Transport string
	SMTP      SMTPConfig
	Postmark  PostmarkConfig
}

// New returns the Mailer for cfg.Transport.
func New(cfg Config, logger *slog.Logger) (core.Mailer, error) {
	switch strings.ToLower(cfg.Transport) {
	case TransportSMTP, "":
		s, err := NewSMTP(cfg.SMTP)
		if err != nil {
			return nil, err
		}
		return s, nil
	case TransportPostmark:
		p, err := NewPostmark(cfg.Postmark)
		if err != nil {
			return nil, err
		}
		return p, nil
	case TransportLog:
		return NewLog(logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, cfg.Transport)
	}
}

// Validate checks that msg can be delivered.
func Validate(msg core.Message) error {
	if _, err := netmail.ParseAddress(msg.From); err != nil {
		return fmt.Errorf("%w: from address %q: %v", ErrInvalidParams, msg.From, err)
	}
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidParams)
	}
	if _, err := Recipients(msg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidParams)
	}
	if msg.HTMLBody == "" && msg.TextBody == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidParams)
	}
	return nil
}

// Recipients returns the bare addresses of To followed by Cc.
func Recipients(msg core.Message) ([]string, error) {
	var out []string
	for _, list := range []string{msg.To, msg.Cc} {
		if strings.TrimSpace(list) == "" {
			continue
		}
		addrs, err := netmail.ParseAddressList(list)
		if err != nil {
			return nil, fmt.Errorf("parsing address list %q: %w", list, err)
		}
		for _, a := range addrs {
			out = append(out, a.Address)
		}
	}
	return out, nil
}

func bareAddress(s string) (string, error) {
	a, err := netmail.ParseAddress(s)
	if err != nil {
		return "", fmt.Errorf("parsing address %q: %w", s, err)
	}
	return a.Address, nil
}
