// Package telegram posts week letters to a Telegram chat via the Bot API.
package telegram

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"weekletter/internal/channel"
	"weekletter/internal/render"
	logx "weekletter/pkg/logx"
)

const maxMessageLen = 4096 // Telegram message size limit

type Config struct {
	Enabled  bool
	Token    string
	ChatID   int64
	ThreadID int // forum topic thread id (0 if none)
}

type Channel struct {
	cfg     Config
	log     logx.Logger
	bot     *tele.Bot
	enabled atomic.Bool
}

func New(cfg Config, log logx.Logger) (*Channel, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	// Outbound-only: the poller is never started.
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	c := &Channel{cfg: cfg, log: log, bot: b}
	c.enabled.Store(cfg.Enabled)
	return c, nil
}

func (c *Channel) ID() string            { return "telegram" }
func (c *Channel) Enabled() bool         { return c.enabled.Load() }
func (c *Channel) SetEnabled(v bool)     { c.enabled.Store(v) }
func (c *Channel) Interactive() bool     { return true }
func (c *Channel) Format() render.Format { return render.FormatHTML }

func (c *Channel) Capabilities() channel.Capabilities {
	return channel.Capabilities{
		Bold:          true,
		Italic:        true,
		Code:          true,
		Links:         true,
		Buttons:       true,
		Threads:       true,
		Emoji:         true,
		MaxMessageLen: maxMessageLen,
		Tags:          []string{"b", "i", "u", "s", "code", "pre", "a"},
	}
}

func (c *Channel) Send(ctx context.Context, msg channel.Message) error {
	text := msg.Text
	if strings.TrimSpace(text) == "" {
		return nil
	}
	chat := &tele.Chat{ID: c.cfg.ChatID}
	opt := &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
		ThreadID:              c.cfg.ThreadID,
	}

	// telebot calls are not ctx-aware; run the send in a goroutine so the
	// dispatcher's per-channel timeout still bounds us.
	done := make(chan error, 1)
	go func() {
		_, err := c.bot.Send(chat, text, opt)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
