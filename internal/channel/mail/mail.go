// Package mail posts week letters as email via the Resend API.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/resend/resend-go/v2"

	"weekletter/internal/channel"
	"weekletter/internal/render"
	logx "weekletter/pkg/logx"
)

type Config struct {
	Enabled bool
	APIKey  string
	From    string
	To      []string
	// Subject is the subject line template; %s receives the period string.
	Subject string
}

type Channel struct {
	cfg     Config
	log     logx.Logger
	client  *resend.Client
	enabled atomic.Bool
}

func New(cfg Config, log logx.Logger) (*Channel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("mail api_key is empty")
	}
	if strings.TrimSpace(cfg.From) == "" || len(cfg.To) == 0 {
		return nil, errors.New("mail from/to are required")
	}
	if strings.TrimSpace(cfg.Subject) == "" {
		cfg.Subject = "Week letter %s"
	}
	c := &Channel{cfg: cfg, log: log, client: resend.NewClient(cfg.APIKey)}
	c.enabled.Store(cfg.Enabled)
	return c, nil
}

func (c *Channel) ID() string            { return "mail" }
func (c *Channel) Enabled() bool         { return c.enabled.Load() }
func (c *Channel) SetEnabled(v bool)     { c.enabled.Store(v) }
func (c *Channel) Interactive() bool     { return false }
func (c *Channel) Format() render.Format { return render.FormatHTML }

func (c *Channel) Capabilities() channel.Capabilities {
	return channel.Capabilities{
		Bold:   true,
		Italic: true,
		Links:  true,
		Images: true,
		Emoji:  true,
		// Email has no practical message size limit for our volumes.
		MaxMessageLen: 0,
		Tags:          []string{"b", "i", "u", "a", "p", "br"},
	}
}

func (c *Channel) Send(ctx context.Context, msg channel.Message) error {
	if strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	params := &resend.SendEmailRequest{
		From:    c.cfg.From,
		To:      c.cfg.To,
		Subject: c.subjectFor(msg.Period),
		Html:    htmlBody(msg.Text),
	}
	sent, err := c.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return err
	}
	c.log.Debug("mail sent", logx.String("message_id", sent.Id))
	return nil
}

// subjectFor renders the subject template for the period the message was
// written for. A retried letter keeps its own week in the subject.
func (c *Channel) subjectFor(period string) string {
	if !strings.Contains(c.cfg.Subject, "%s") {
		return c.cfg.Subject
	}
	if period == "" {
		return strings.TrimSpace(strings.ReplaceAll(c.cfg.Subject, "%s", ""))
	}
	return fmt.Sprintf(c.cfg.Subject, period)
}

// htmlBody turns the inline-HTML rendering into a minimal email body;
// newlines become <br> so paragraph spacing survives email clients.
func htmlBody(text string) string {
	return "<div>" + strings.ReplaceAll(text, "\n", "<br>") + "</div>"
}
