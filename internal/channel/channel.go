// Package channel defines the platform adapter contract of the delivery
// pipeline and the registry that owns the set of live adapters.
package channel

import (
	"context"

	"weekletter/internal/render"
)

// Capabilities declares what a platform's message format supports. The
// dispatcher uses it for eligibility filtering and length capping; it never
// mutates it.
type Capabilities struct {
	Bold    bool
	Italic  bool
	Code    bool
	Links   bool
	Buttons bool
	Images  bool
	Threads bool
	Emoji   bool

	// MaxMessageLen is the platform's message size limit in runes.
	// 0 means unlimited.
	MaxMessageLen int

	// Tags lists the markup tags the platform accepts verbatim.
	Tags []string
}

// Message is one outbound letter text plus the addressing context it was
// rendered for. Adapters that surface per-letter metadata (a mail subject
// line, a thread title) read it from here, never from ambient state: a
// retried letter must carry its own period, not whatever was sent last.
type Message struct {
	Recipient string
	// Period is the letter's period tag, e.g. "2024-W42".
	Period string
	Text   string
}

// Channel is one registered platform adapter.
type Channel interface {
	// ID is the stable platform identifier (e.g. "telegram").
	ID() string
	// Enabled reports whether the adapter participates in dispatch.
	Enabled() bool
	// Interactive reports whether the platform supports two-way interaction.
	Interactive() bool
	Capabilities() Capabilities
	// Format is the dialect this channel prefers to receive.
	Format() render.Format
	// Send posts one message. Implementations own their connection and
	// timeout handling beyond the ctx deadline the dispatcher supplies.
	Send(ctx context.Context, msg Message) error
}

// Filter restricts a send to channels satisfying every non-nil predicate
// field. A nil *Filter matches every channel.
type Filter struct {
	RequireInteractive *bool
	RequireButtons     *bool
	RequireImages      *bool
	RequireThreads     *bool

	// MinMessageLen excludes channels whose limit is below this many runes.
	// 0 means no constraint; unlimited channels always pass.
	MinMessageLen int
}

// Matches reports whether the channel satisfies the filter.
func (f *Filter) Matches(ch Channel) bool {
	if f == nil {
		return true
	}
	caps := ch.Capabilities()
	if f.RequireInteractive != nil && ch.Interactive() != *f.RequireInteractive {
		return false
	}
	if f.RequireButtons != nil && caps.Buttons != *f.RequireButtons {
		return false
	}
	if f.RequireImages != nil && caps.Images != *f.RequireImages {
		return false
	}
	if f.RequireThreads != nil && caps.Threads != *f.RequireThreads {
		return false
	}
	if f.MinMessageLen > 0 && caps.MaxMessageLen > 0 && caps.MaxMessageLen < f.MinMessageLen {
		return false
	}
	return true
}
