// Package retry keeps the per-(recipient, period) attempt bookkeeping and
// decides when a failed delivery may be attempted again.
//
// The state machine per key:
//
//	Absent  -> Pending    on the first failed attempt
//	Pending -> Pending    on each further failure under the budget
//	Pending -> Succeeded  (terminal) on any successful delivery
//	Pending -> Exhausted  (terminal) when the attempt budget is used up
//
// Exhausted is sticky: the pipeline takes no further automatic action and
// the record stays visible for the operator. Succeeded is retired, not
// sticky: a later failure for the same key means amended content is being
// re-delivered, and it starts a fresh Pending cycle with a full budget.
package retry

import (
	"context"
	"math"
	"time"

	"weekletter/internal/letter"
	"weekletter/internal/storage"
	logx "weekletter/pkg/logx"
)

const (
	DefaultInterval    = 2 * time.Hour
	DefaultMaxDuration = 48 * time.Hour
)

type Config struct {
	// Interval is the spacing between attempts. Default 2h.
	Interval time.Duration
	// MaxDuration is the total time budget; the attempt budget is
	// round(MaxDuration / Interval). Default 48h.
	MaxDuration time.Duration
}

// MaxAttempts derives the attempt budget from the configured time budget.
func (c Config) MaxAttempts() int {
	n := int(math.Round(c.MaxDuration.Hours() / c.Interval.Hours()))
	if n < 1 {
		return 1
	}
	return n
}

type Tracker struct {
	store storage.Store
	cfg   Config
	log   logx.Logger
	now   func() time.Time
}

func NewTracker(cfg Config, store storage.Store, log logx.Logger) *Tracker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Tracker{store: store, cfg: cfg, log: log, now: time.Now}
}

// SetNow overrides the tracker's clock. Test hook.
func (t *Tracker) SetNow(now func() time.Time) { t.now = now }

// RecordFailure advances the state machine after a delivery attempt on which
// no channel succeeded, and returns the resulting state. Exhausted states
// are returned unchanged. A retired Succeeded row is superseded: the period
// was delivered once already, so a new failure can only come from amended
// content and opens a fresh cycle with a full budget.
func (t *Tracker) RecordFailure(ctx context.Context, recipient string, period letter.Period) (storage.RetryState, error) {
	now := t.now()

	st, ok, err := t.store.GetRetry(ctx, recipient, period)
	if err != nil {
		return storage.RetryState{}, err
	}
	if ok && st.Succeeded {
		// Superseded by a completed delivery; restart from scratch.
		ok = false
	}
	if ok && st.Terminal() {
		return st, nil
	}
	if !ok {
		st = storage.RetryState{
			Recipient:   recipient,
			Period:      period,
			MaxAttempts: t.cfg.MaxAttempts(),
		}
	}

	st.Attempts++
	st.LastAttemptAt = now
	if st.Attempts >= st.MaxAttempts {
		// Exhausted: no next attempt, surfaced for the operator.
		st.NextAttemptAt = time.Time{}
		t.log.Warn("retry budget exhausted",
			logx.String("recipient", recipient),
			logx.String("period", period.String()),
			logx.Int("attempts", st.Attempts))
	} else {
		st.NextAttemptAt = now.Add(t.cfg.Interval)
	}

	if err := t.store.PutRetry(ctx, st); err != nil {
		return storage.RetryState{}, err
	}
	return st, nil
}

// RecordSuccess retires the retry state for the key, if one exists.
func (t *Tracker) RecordSuccess(ctx context.Context, recipient string, period letter.Period) error {
	st, ok, err := t.store.GetRetry(ctx, recipient, period)
	if err != nil {
		return err
	}
	if !ok || st.Succeeded {
		return nil
	}
	st.Succeeded = true
	st.NextAttemptAt = time.Time{}
	return t.store.PutRetry(ctx, st)
}

// Due returns all non-terminal states whose next attempt time has arrived,
// earliest first (ties broken by recipient then period, so scheduler runs
// are reproducible).
func (t *Tracker) Due(ctx context.Context) ([]storage.RetryState, error) {
	return t.store.DueRetries(ctx, t.now())
}
