package storage

import (
	"errors"
	"time"

	"weekletter/internal/letter"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (JSON snapshot)
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// DeliveryRecord is the persisted proof of a successful delivery.
// At most one exists per (recipient, period); it always reflects the most
// recently successfully delivered content hash.
type DeliveryRecord struct {
	Recipient   string
	Period      letter.Period
	ContentHash string
	PostedAt    time.Time
	// Channels records which platforms accepted the letter. These flags are
	// informational: dedup gates on hash equality only, never on per-channel
	// completeness.
	Channels map[string]bool
	// Content is a snapshot of the raw letter body as delivered.
	Content string
}

// RetryState is the persisted attempt bookkeeping for one not-yet-succeeded
// delivery. It exists only while attempts are in progress or exhausted; a
// successful delivery retires it (Succeeded=true, NextAttemptAt zero).
type RetryState struct {
	Recipient     string
	Period        letter.Period
	Attempts      int
	MaxAttempts   int
	LastAttemptAt time.Time
	// NextAttemptAt is the scheduled time of the next attempt.
	// Zero means none: the state is terminal.
	NextAttemptAt time.Time
	Succeeded     bool
}

// Terminal reports whether no further automatic attempts will happen.
func (s RetryState) Terminal() bool {
	return s.Succeeded || (s.Attempts > 0 && s.Attempts >= s.MaxAttempts)
}
