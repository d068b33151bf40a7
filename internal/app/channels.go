package app

import (
	"strings"

	"weekletter/internal/channel"
	"weekletter/internal/channel/mail"
	"weekletter/internal/channel/telegram"
	"weekletter/internal/channel/webhook"
	"weekletter/internal/config"
	logx "weekletter/pkg/logx"
)

// buildChannels constructs every channel the config describes and registers
// it. A channel that is fully unconfigured is skipped; a configured one is
// always constructed, even when disabled, so a config reload can flip it on
// without a restart.
func buildChannels(cfg *config.Config, log logx.Logger) (*channel.Registry, error) {
	reg := channel.NewRegistry()
	ch := cfg.Channels

	if strings.TrimSpace(ch.Telegram.Token) != "" {
		tg, err := telegram.New(telegram.Config{
			Enabled:  ch.Telegram.Enabled,
			Token:    ch.Telegram.Token,
			ChatID:   ch.Telegram.ChatID,
			ThreadID: ch.Telegram.ThreadID,
		}, log.With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, err
		}
		reg.Register(tg)
	}

	if strings.TrimSpace(ch.Mail.APIKey) != "" {
		m, err := mail.New(mail.Config{
			Enabled: ch.Mail.Enabled,
			APIKey:  ch.Mail.APIKey,
			From:    ch.Mail.From,
			To:      ch.Mail.To,
			Subject: ch.Mail.Subject,
		}, log.With(logx.String("comp", "mail")))
		if err != nil {
			return nil, err
		}
		reg.Register(m)
	}

	if strings.TrimSpace(ch.Webhook.URL) != "" {
		timeout, err := config.ParseDurationField("channels.webhook.timeout", ch.Webhook.Timeout)
		if err != nil {
			return nil, err
		}
		w, err := webhook.New(webhook.Config{
			Enabled: ch.Webhook.Enabled,
			URL:     ch.Webhook.URL,
			Timeout: timeout,
		}, log.With(logx.String("comp", "webhook")))
		if err != nil {
			return nil, err
		}
		reg.Register(w)
	}

	return reg, nil
}

// applyChannelFlags flips channel enabled state to match a reloaded config.
// Structural changes (new token, new URL) need a restart; only the enable
// bits are hot.
func (a *App) applyChannelFlags(cfg *config.Config) {
	flags := map[string]bool{
		"telegram": cfg.Channels.Telegram.Enabled,
		"mail":     cfg.Channels.Mail.Enabled,
		"webhook":  cfg.Channels.Webhook.Enabled,
	}
	for id, want := range flags {
		ch, ok := a.reg.Get(id)
		if !ok {
			if want {
				a.log.Warn("channel enabled in config but not constructed; restart required",
					logx.String("channel", id))
			}
			continue
		}
		type toggler interface{ SetEnabled(bool) }
		if t, ok := ch.(toggler); ok && ch.Enabled() != want {
			t.SetEnabled(want)
			a.log.Info("channel toggled via config",
				logx.String("channel", id), logx.Bool("enabled", want))
		}
	}
}
