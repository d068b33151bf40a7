package config

type Config struct {
	Logging LoggingConfig `json:"logging"`

	// Storage is required: the dedup and retry records have to survive
	// restarts for the pipeline guarantees to mean anything.
	Storage StorageConfig `json:"storage"`

	// Recipients are the people who get a letter each week.
	Recipients []string `json:"recipients"`

	Source SourceConfig `json:"source"`

	// FetchSchedule is a cron expression for the weekly delivery run.
	// Default: "0 9 * * MON".
	FetchSchedule string `json:"fetch_schedule,omitempty"`

	// Timezone applies to FetchSchedule. Default: local time.
	Timezone string `json:"timezone,omitempty"`

	// PostOnStartup runs one delivery pass for the current week right after
	// boot, so a host that was down over the scheduled run still posts.
	PostOnStartup bool `json:"post_on_startup"`

	Retry RetryConfig `json:"retry,omitempty"`

	Dispatch DispatchConfig `json:"dispatch,omitempty"`

	Channels ChannelsConfig `json:"channels"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./weekletter.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// SourceConfig selects where letter content comes from.
type SourceConfig struct {
	Kind string `json:"kind,omitempty"` // default: "dir"
	Dir  string `json:"dir"`
}

// RetryConfig controls the bounded retry schedule for failed deliveries.
//
// Durations are Go duration strings. Defaults (when omitted/zero):
//   - interval: "2h"
//   - max_duration: "48h"
//   - poll_every: "5m"
type RetryConfig struct {
	Interval    string `json:"interval,omitempty"`
	MaxDuration string `json:"max_duration,omitempty"`
	PollEvery   string `json:"poll_every,omitempty"`
}

// DispatchConfig controls channel fan-out behavior.
type DispatchConfig struct {
	// SendTimeout is a Go duration string, per channel send. Default "10s".
	SendTimeout string `json:"send_timeout,omitempty"`
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
}

type ChannelsConfig struct {
	Telegram TelegramChannel `json:"telegram,omitempty"`
	Mail     MailChannel     `json:"mail,omitempty"`
	Webhook  WebhookChannel  `json:"webhook,omitempty"`
}

type TelegramChannel struct {
	Enabled  bool   `json:"enabled"`
	Token    string `json:"token,omitempty"`
	ChatID   int64  `json:"chat_id,omitempty"`
	ThreadID int    `json:"thread_id,omitempty"`
}

type MailChannel struct {
	Enabled bool     `json:"enabled"`
	APIKey  string   `json:"api_key,omitempty"`
	From    string   `json:"from,omitempty"`
	To      []string `json:"to,omitempty"`
	Subject string   `json:"subject,omitempty"`
}

type WebhookChannel struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url,omitempty"`
	// Timeout is a Go duration string for the HTTP request. Default "10s".
	Timeout string `json:"timeout,omitempty"`
}
