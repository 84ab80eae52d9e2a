package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/gaurav-prasanna/subdigest/core"
)

// LogSender records the composed message at info level instead of sending it.
type LogSender struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewLog creates a LogSender. A nil logger discards output.
func NewLog(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogSender{logger: logger, now: time.Now}
}

// Send logs the subject, recipients and the base64 payload.
func (l *LogSender) Send(ctx context.Context, msg core.Message) error {
	if err := Validate(msg); err != nil {
		return err
	}
	data, err := Compose(msg, "localhost", l.now())
	if err != nil {
		return errors.Join(ErrFailedToSend, err)
	}

	l.logger.InfoContext(ctx, "log transport",
		"subject", msg.Subject,
		"to", msg.To,
		"cc", msg.Cc,
		"bytes", len(data),
		"payload_base64", base64.StdEncoding.EncodeToString(data),
	)
	return nil
}
