package delivery

import (
	"context"

	"weekletter/internal/letter"
	"weekletter/internal/source"
	logx "weekletter/pkg/logx"
)

// ProcessDue re-runs delivery for every retry record whose next attempt time
// has passed, oldest first. Each letter is re-fetched from the source so a
// corrected letter published after the first failure is the one that goes out.
// A record whose letter has vanished from the source is retired as a failure
// like any other attempt.
func (c *Coordinator) ProcessDue(ctx context.Context, src source.Source) error {
	due, err := c.tracker.Due(ctx)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}
	c.log.Debug("processing due retries", logx.Int("count", len(due)))

	for _, st := range due {
		if err := ctx.Err(); err != nil {
			return err
		}
		log := c.log.With(
			logx.String("recipient", st.Recipient),
			logx.String("period", st.Period.String()))

		doc, ok, err := src.Fetch(ctx, st.Recipient, st.Period)
		if err != nil {
			log.Warn("retry fetch failed", logx.Err(err))
			continue
		}
		if !ok {
			log.Warn("letter no longer available; counting attempt")
			if _, err := c.tracker.RecordFailure(ctx, st.Recipient, st.Period); err != nil {
				log.Error("record retry failure", logx.Err(err))
			}
			continue
		}
		if _, err := c.Deliver(ctx, doc); err != nil {
			log.Error("retry delivery failed", logx.Err(err))
		}
	}
	return nil
}

// DeliverCurrent fetches and delivers the letter for the given period. It is
// the entry point used by the weekly schedule and the startup post.
func (c *Coordinator) DeliverCurrent(ctx context.Context, src source.Source, recipient string, period letter.Period) (letter.Result, error) {
	doc, ok, err := src.Fetch(ctx, recipient, period)
	if err != nil {
		return letter.Result{}, err
	}
	if !ok {
		c.log.Debug("no letter for period",
			logx.String("recipient", recipient),
			logx.String("period", period.String()))
		return letter.Result{Status: letter.StatusNoLetter}, nil
	}
	return c.Deliver(ctx, doc)
}
