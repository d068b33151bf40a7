// Package webhook posts week letters as JSON to a generic incoming webhook
// (Slack-style payload: {"text": "..."}).
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"weekletter/internal/channel"
	"weekletter/internal/render"
	logx "weekletter/pkg/logx"
)

type Config struct {
	Enabled bool
	URL     string
	Timeout time.Duration // 0 means 10s
}

type payload struct {
	Text string `json:"text"`
}

type Channel struct {
	cfg     Config
	log     logx.Logger
	http    *http.Client
	enabled atomic.Bool
}

func New(cfg Config, log logx.Logger) (*Channel, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("webhook url is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Channel{cfg: cfg, log: log, http: &http.Client{Timeout: timeout}}
	c.enabled.Store(cfg.Enabled)
	return c, nil
}

func (c *Channel) ID() string            { return "webhook" }
func (c *Channel) Enabled() bool         { return c.enabled.Load() }
func (c *Channel) SetEnabled(v bool)     { c.enabled.Store(v) }
func (c *Channel) Interactive() bool     { return false }
func (c *Channel) Format() render.Format { return render.FormatMarkdown }

func (c *Channel) Capabilities() channel.Capabilities {
	return channel.Capabilities{
		Bold:          true,
		Italic:        true,
		Code:          true,
		Links:         true,
		Emoji:         true,
		MaxMessageLen: 40000, // Slack truncates beyond this
	}
}

func (c *Channel) Send(ctx context.Context, msg channel.Message) error {
	if strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	body, err := json.Marshal(payload{Text: msg.Text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
