package config

import (
	"reflect"
	"sort"
	"strings"

	logx "weekletter/pkg/logx"
)

// SummarizeChange returns a compact list of changed sections plus safe
// structured attrs for logging. Secrets (tokens, API keys) are never
// included, only whether they are set.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(newCfg.Storage.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(newCfg.Storage.Path) != ""),
		)
	}

	if !reflect.DeepEqual(oldCfg.Recipients, newCfg.Recipients) {
		changed = append(changed, "recipients")
		attrs = append(attrs, logx.Int("recipients.count", len(newCfg.Recipients)))
	}

	if oldCfg.Source != newCfg.Source {
		changed = append(changed, "source")
		attrs = append(attrs, logx.String("source.kind", newCfg.Source.Kind))
	}

	if oldCfg.FetchSchedule != newCfg.FetchSchedule ||
		oldCfg.Timezone != newCfg.Timezone ||
		oldCfg.PostOnStartup != newCfg.PostOnStartup {
		changed = append(changed, "schedule")
		attrs = append(attrs,
			logx.String("schedule.fetch", strings.TrimSpace(newCfg.FetchSchedule)),
			logx.Bool("schedule.post_on_startup", newCfg.PostOnStartup),
		)
	}

	if oldCfg.Retry != newCfg.Retry {
		changed = append(changed, "retry")
		attrs = append(attrs,
			logx.String("retry.interval", newCfg.Retry.Interval),
			logx.String("retry.max_duration", newCfg.Retry.MaxDuration),
			logx.String("retry.poll_every", newCfg.Retry.PollEvery),
		)
	}

	if oldCfg.Dispatch != newCfg.Dispatch {
		changed = append(changed, "dispatch")
		attrs = append(attrs,
			logx.String("dispatch.send_timeout", newCfg.Dispatch.SendTimeout),
			logx.Int("dispatch.rate_per_sec", newCfg.Dispatch.RatePerSec),
		)
	}

	// Channels (never log tokens or keys)
	if oldCfg.Channels.Telegram != newCfg.Channels.Telegram {
		changed = append(changed, "channels.telegram")
		attrs = append(attrs,
			logx.Bool("telegram.enabled", newCfg.Channels.Telegram.Enabled),
			logx.Bool("telegram.token_set", strings.TrimSpace(newCfg.Channels.Telegram.Token) != ""),
			logx.Int64("telegram.chat_id", newCfg.Channels.Telegram.ChatID),
		)
	}
	if !reflect.DeepEqual(oldCfg.Channels.Mail, newCfg.Channels.Mail) {
		changed = append(changed, "channels.mail")
		attrs = append(attrs,
			logx.Bool("mail.enabled", newCfg.Channels.Mail.Enabled),
			logx.Bool("mail.api_key_set", strings.TrimSpace(newCfg.Channels.Mail.APIKey) != ""),
			logx.Int("mail.to_count", len(newCfg.Channels.Mail.To)),
		)
	}
	if oldCfg.Channels.Webhook != newCfg.Channels.Webhook {
		changed = append(changed, "channels.webhook")
		attrs = append(attrs,
			logx.Bool("webhook.enabled", newCfg.Channels.Webhook.Enabled),
			logx.Bool("webhook.url_set", strings.TrimSpace(newCfg.Channels.Webhook.URL) != ""),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
