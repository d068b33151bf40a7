// Package dispatch fans one rendered letter out to every eligible channel.
//
// Channel failures are isolated: one platform being down never blocks or
// rolls back the others. The aggregate is considered successful when at
// least one channel accepted the letter.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"weekletter/internal/channel"
	"weekletter/internal/eventbus"
	"weekletter/internal/letter"
	"weekletter/internal/render"
	logx "weekletter/pkg/logx"
)

// ErrNoChannels is returned when no enabled channel matched the send.
// It is a reportable condition, not a delivery failure: the retry tracker
// must not be advanced on it.
var ErrNoChannels = errors.New("no eligible channels")

type Config struct {
	// SendTimeout bounds each individual channel send. Default 10s.
	SendTimeout time.Duration
	// RatePerSec is the shared outbound token bucket. Default 3.
	RatePerSec int
}

type Dispatcher struct {
	cfg     Config
	reg     *channel.Registry
	log     logx.Logger
	bus     eventbus.Bus
	limiter *rate.Limiter
}

// ChannelEvent is published on the bus for each per-channel outcome.
type ChannelEvent struct {
	Recipient string    `json:"recipient"`
	Channel   string    `json:"channel"`
	At        time.Time `json:"at"`
	Error     string    `json:"error,omitempty"`
}

func New(cfg Config, reg *channel.Registry, log logx.Logger, bus eventbus.Bus) *Dispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		cfg:     cfg,
		reg:     reg,
		log:     log,
		bus:     bus,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

// Broadcast sends the rendering each eligible channel prefers, concurrently,
// and collects every outcome. It returns ErrNoChannels when no enabled
// channel matched the filter; per-channel failures are never returned as an
// error, they live in the outcome map.
func (d *Dispatcher) Broadcast(ctx context.Context, doc letter.Document, r render.Renderings, f *channel.Filter) (map[string]letter.Outcome, error) {
	eligible := make([]channel.Channel, 0, 4)
	for _, ch := range d.reg.List() {
		if !ch.Enabled() {
			continue
		}
		if !f.Matches(ch) {
			continue
		}
		eligible = append(eligible, ch)
	}
	if len(eligible) == 0 {
		return nil, ErrNoChannels
	}

	var (
		mu       sync.Mutex
		outcomes = make(map[string]letter.Outcome, len(eligible))
	)
	var g errgroup.Group
	for _, ch := range eligible {
		g.Go(func() error {
			out := d.sendOne(ctx, doc, ch, r)
			mu.Lock()
			outcomes[ch.ID()] = out
			mu.Unlock()
			// Partial results must survive sibling failures: errors stay in
			// the outcome, never abort the group.
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, nil
}

func (d *Dispatcher) sendOne(ctx context.Context, doc letter.Document, ch channel.Channel, r render.Renderings) letter.Outcome {
	start := time.Now()
	out := letter.Outcome{Channel: ch.ID()}

	msg := channel.Message{
		Recipient: doc.Recipient,
		Period:    doc.Period.String(),
		Text:      r.For(ch.Format()),
	}
	if maxLen := ch.Capabilities().MaxMessageLen; maxLen > 0 {
		msg.Text = truncRunes(msg.Text, maxLen)
	}

	if err := d.limiter.Wait(ctx); err != nil {
		out.Err = err
		out.Took = time.Since(start)
		d.publish(doc.Recipient, out)
		return out
	}

	sctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	err := ch.Send(sctx, msg)
	cancel()

	out.Took = time.Since(start)
	if err != nil {
		out.Err = err
		d.log.Warn("channel send failed",
			logx.String("channel", ch.ID()),
			logx.String("recipient", doc.Recipient),
			logx.Duration("took", out.Took),
			logx.Err(err))
	} else {
		out.OK = true
		d.log.Debug("channel send ok",
			logx.String("channel", ch.ID()),
			logx.String("recipient", doc.Recipient),
			logx.Duration("took", out.Took))
	}
	d.publish(doc.Recipient, out)
	return out
}

func (d *Dispatcher) publish(recipient string, out letter.Outcome) {
	if d.bus == nil {
		return
	}
	ev := eventbus.Event{Type: eventbus.TypeChannelSent, Data: ChannelEvent{
		Recipient: recipient,
		Channel:   out.Channel,
		At:        time.Now(),
	}}
	if out.Err != nil {
		ev.Type = eventbus.TypeChannelFail
		data := ev.Data.(ChannelEvent)
		data.Error = out.Err.Error()
		ev.Data = data
	}
	d.bus.Publish(ev)
}

// Succeeded reports whether at least one channel accepted the letter.
func Succeeded(outcomes map[string]letter.Outcome) bool {
	for _, out := range outcomes {
		if out.OK {
			return true
		}
	}
	return false
}

// Flags folds outcomes into the per-channel success flags persisted with a
// delivery record.
func Flags(outcomes map[string]letter.Outcome) map[string]bool {
	flags := make(map[string]bool, len(outcomes))
	for id, out := range outcomes {
		flags[id] = out.OK
	}
	return flags
}

// Errors aggregates all per-channel failures into one error for logging.
// It returns nil when nothing failed.
func Errors(outcomes map[string]letter.Outcome) error {
	var merr *multierror.Error
	for _, out := range outcomes {
		if out.Err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", out.Channel, out.Err))
		}
	}
	return merr.ErrorOrNil()
}

// truncRunes returns s truncated to at most n runes. The result never
// exceeds n runes, ellipsis included, so it is safe against hard platform
// message limits.
func truncRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	if n == 1 {
		return string(rs[:1])
	}
	// Reserve 1 rune for the ellipsis.
	return string(rs[:n-1]) + "…"
}
