package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"

	"github.com/gaurav-prasanna/subdigest/core"
)

// PostmarkConfig configures a PostmarkSender.
type PostmarkConfig struct {
	ServerToken  string
	AccountToken string
	// BaseURL overrides the API endpoint.
	BaseURL string
	Tag     string
}

// PostmarkSender delivers mail through Postmark's transactional API.
type PostmarkSender struct {
	client *postmark.Client
	tag    string
}

// NewPostmark validates cfg and builds a sender.
func NewPostmark(cfg PostmarkConfig) (*PostmarkSender, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: Postmark server token is required", ErrInvalidConfig)
	}

	client := postmark.NewClient(cfg.ServerToken, cfg.AccountToken)
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}
	return &PostmarkSender{client: client, tag: cfg.Tag}, nil
}

// Send delivers msg. Link tracking is limited to the HTML part.
func (p *PostmarkSender) Send(ctx context.Context, msg core.Message) error {
	if err := Validate(msg); err != nil {
		return err
	}

	email := postmark.Email{
		From:       msg.From,
		To:         msg.To,
		Cc:         msg.Cc,
		Subject:    msg.Subject,
		Tag:        p.tag,
		TextBody:   msg.TextBody,
		TrackOpens: true,
	}
	if msg.IsHTML {
		email.HTMLBody = msg.HTMLBody
		email.TrackLinks = "HtmlOnly"
	} else if email.TextBody == "" {
		email.TextBody = msg.HTMLBody
	}

	resp, err := p.client.SendEmail(ctx, email)
	if err != nil {
		return errors.Join(ErrFailedToSend, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrFailedToSend, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
