// Package dedup decides whether a (recipient, period, content) tuple has
// already been successfully delivered.
//
// The gate is deliberately coarse: it compares content hashes only. Which
// specific channels received a hash is recorded but never gated on, so a
// channel enabled after a hash was marked delivered will not receive the
// old content. Changed content (a different hash for the same period) opens
// the gate again: schools amend letters.
package dedup

import (
	"context"
	"time"

	"weekletter/internal/letter"
	"weekletter/internal/storage"
	logx "weekletter/pkg/logx"
)

type Gate struct {
	store storage.Store
	log   logx.Logger
}

func NewGate(store storage.Store, log logx.Logger) *Gate {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Gate{store: store, log: log}
}

// Seen reports whether this exact content hash was already delivered for the
// (recipient, period) key. A record with a different hash does not count:
// that is a re-delivery candidate, not a duplicate.
func (g *Gate) Seen(ctx context.Context, recipient string, period letter.Period, hash string) (bool, error) {
	rec, ok, err := g.store.GetDelivery(ctx, recipient, period)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if rec.ContentHash != hash {
		g.log.Debug("content changed since last delivery",
			logx.String("recipient", recipient),
			logx.String("period", period.String()))
		return false, nil
	}
	return true, nil
}

// MarkDelivered writes (or overwrites) the delivery record for the document.
func (g *Gate) MarkDelivered(ctx context.Context, doc letter.Document, hash string, channels map[string]bool, now time.Time) error {
	return g.store.PutDelivery(ctx, storage.DeliveryRecord{
		Recipient:   doc.Recipient,
		Period:      doc.Period,
		ContentHash: hash,
		PostedAt:    now,
		Channels:    channels,
		Content:     doc.Content,
	})
}
