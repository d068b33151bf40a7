// Package delivery orchestrates the end-to-end "deliver this week letter"
// operation: dedup check, rendering, channel fan-out, and the persisted
// bookkeeping that follows.
package delivery

import (
	"context"
	"errors"
	"time"

	"weekletter/internal/dedup"
	"weekletter/internal/dispatch"
	"weekletter/internal/eventbus"
	"weekletter/internal/letter"
	"weekletter/internal/render"
	"weekletter/internal/retry"
	logx "weekletter/pkg/logx"
)

// Coordinator wires the dedup gate, content adapter, dispatcher and retry
// tracker into one Deliver operation. It owns the per-key write ordering:
// dedup-check happens before dispatch, dispatch before any state mutation,
// and the whole sequence is serialized per (recipient, period).
type Coordinator struct {
	gate    *dedup.Gate
	tracker *retry.Tracker
	disp    *dispatch.Dispatcher
	log     logx.Logger
	bus     eventbus.Bus
	now     func() time.Time

	keys keyLock
}

// Event is published on the bus for each Deliver outcome.
type Event struct {
	Recipient     string        `json:"recipient"`
	Period        string        `json:"period"`
	Hash          string        `json:"hash"`
	Status        letter.Status `json:"status"`
	Attempts      int           `json:"attempts,omitempty"`
	NextAttemptAt time.Time     `json:"next_attempt_at,omitzero"`
}

func NewCoordinator(gate *dedup.Gate, tracker *retry.Tracker, disp *dispatch.Dispatcher, log logx.Logger, bus eventbus.Bus) *Coordinator {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Coordinator{
		gate:    gate,
		tracker: tracker,
		disp:    disp,
		log:     log,
		bus:     bus,
		now:     time.Now,
	}
}

// SetNow overrides the coordinator's clock. Test hook.
func (c *Coordinator) SetNow(now func() time.Time) { c.now = now }

// Deliver runs one delivery attempt for the document and reports the outcome
// as a state, never as an error. Persistence outages are the exception: they are
// returned as errors and consume neither a retry attempt nor the dedup slot.
func (c *Coordinator) Deliver(ctx context.Context, doc letter.Document) (letter.Result, error) {
	unlock := c.keys.lock(doc.Key())
	defer unlock()

	hash := doc.Hash()
	res := letter.Result{Hash: hash}
	log := c.log.With(
		logx.String("recipient", doc.Recipient),
		logx.String("period", doc.Period.String()))

	seen, err := c.gate.Seen(ctx, doc.Recipient, doc.Period, hash)
	if err != nil {
		return letter.Result{}, err
	}
	if seen {
		res.Status = letter.StatusSkipped
		log.Debug("letter already delivered; skipping")
		c.publish(doc, res)
		return res, nil
	}

	renderings := render.All(doc.Content)

	outcomes, err := c.disp.Broadcast(ctx, doc, renderings, nil)
	if errors.Is(err, dispatch.ErrNoChannels) {
		// Neither success nor a retryable failure: leave the retry record
		// untouched until a channel becomes available.
		res.Status = letter.StatusNoChannels
		log.Warn("no enabled channel eligible for letter")
		c.publish(doc, res)
		return res, nil
	}
	if err != nil {
		return letter.Result{}, err
	}
	res.Outcomes = outcomes

	if dispatch.Succeeded(outcomes) {
		if err := c.gate.MarkDelivered(ctx, doc, hash, dispatch.Flags(outcomes), c.now()); err != nil {
			return letter.Result{}, err
		}
		if err := c.tracker.RecordSuccess(ctx, doc.Recipient, doc.Period); err != nil {
			return letter.Result{}, err
		}
		res.Status = letter.StatusDelivered
		log.Info("letter delivered", logx.Int("channels", len(outcomes)))
		c.publish(doc, res)
		return res, nil
	}

	st, err := c.tracker.RecordFailure(ctx, doc.Recipient, doc.Period)
	if err != nil {
		return letter.Result{}, err
	}
	res.Attempts = st.Attempts
	if st.Terminal() {
		res.Status = letter.StatusExhausted
		log.Error("letter delivery exhausted",
			logx.Int("attempts", st.Attempts),
			logx.Err(dispatch.Errors(outcomes)))
	} else {
		res.Status = letter.StatusRetrying
		res.NextAttemptAt = st.NextAttemptAt
		log.Warn("letter delivery failed; will retry",
			logx.Int("attempts", st.Attempts),
			logx.Time("next_attempt_at", st.NextAttemptAt),
			logx.Err(dispatch.Errors(outcomes)))
	}
	c.publish(doc, res)
	return res, nil
}

func (c *Coordinator) publish(doc letter.Document, res letter.Result) {
	if c.bus == nil {
		return
	}
	typ := map[letter.Status]string{
		letter.StatusDelivered:  eventbus.TypeDelivered,
		letter.StatusSkipped:    eventbus.TypeSkipped,
		letter.StatusRetrying:   eventbus.TypeRetrying,
		letter.StatusExhausted:  eventbus.TypeExhausted,
		letter.StatusNoChannels: eventbus.TypeNoChannels,
	}[res.Status]
	if typ == "" {
		return
	}
	c.bus.Publish(eventbus.Event{Type: typ, Data: Event{
		Recipient:     doc.Recipient,
		Period:        doc.Period.String(),
		Hash:          res.Hash,
		Status:        res.Status,
		Attempts:      res.Attempts,
		NextAttemptAt: res.NextAttemptAt,
	}})
}
