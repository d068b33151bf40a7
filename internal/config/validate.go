package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks the config for problems that would only surface at an
// inconvenient time later (first scheduled run, first retry, first send).
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	switch strings.TrimSpace(cfg.Storage.Driver) {
	case "sqlite", "file":
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			return fmt.Errorf("storage.path is required")
		}
	case "":
		return fmt.Errorf("storage.driver is required (sqlite or file)")
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver)
	}
	if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
		return err
	}

	if len(cfg.Recipients) == 0 {
		return fmt.Errorf("recipients must not be empty")
	}
	seen := make(map[string]struct{}, len(cfg.Recipients))
	for _, r := range cfg.Recipients {
		name := strings.TrimSpace(r)
		if name == "" {
			return fmt.Errorf("recipients: blank entry")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("recipients: duplicate %q", name)
		}
		seen[name] = struct{}{}
	}

	if strings.TrimSpace(cfg.Source.Dir) == "" {
		return fmt.Errorf("source.dir is required")
	}

	if s := strings.TrimSpace(cfg.FetchSchedule); s != "" {
		if _, err := cronParser.Parse(s); err != nil {
			return fmt.Errorf("fetch_schedule: %w", err)
		}
	}
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}

	for _, f := range []struct{ path, raw string }{
		{"retry.interval", cfg.Retry.Interval},
		{"retry.max_duration", cfg.Retry.MaxDuration},
		{"retry.poll_every", cfg.Retry.PollEvery},
		{"dispatch.send_timeout", cfg.Dispatch.SendTimeout},
		{"channels.webhook.timeout", cfg.Channels.Webhook.Timeout},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}

	ch := cfg.Channels
	if ch.Telegram.Enabled {
		if strings.TrimSpace(ch.Telegram.Token) == "" {
			return fmt.Errorf("channels.telegram: token is required when enabled")
		}
		if ch.Telegram.ChatID == 0 {
			return fmt.Errorf("channels.telegram: chat_id is required when enabled")
		}
	}
	if ch.Mail.Enabled {
		if strings.TrimSpace(ch.Mail.APIKey) == "" {
			return fmt.Errorf("channels.mail: api_key is required when enabled")
		}
		if strings.TrimSpace(ch.Mail.From) == "" || len(ch.Mail.To) == 0 {
			return fmt.Errorf("channels.mail: from and to are required when enabled")
		}
	}
	if ch.Webhook.Enabled && strings.TrimSpace(ch.Webhook.URL) == "" {
		return fmt.Errorf("channels.webhook: url is required when enabled")
	}

	return nil
}
