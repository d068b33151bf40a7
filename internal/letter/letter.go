// Package letter defines the core domain types of the delivery pipeline:
// the week letter document, its identifying period, and the outcome of a
// delivery attempt.
package letter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Period identifies one recurring letter instance: an ISO week number plus
// its year. A (recipient, period) pair is the identity of a document.
type Period struct {
	Week int
	Year int
}

func (p Period) String() string { return fmt.Sprintf("%d-W%02d", p.Year, p.Week) }

// Before reports whether p comes before o in calendar order.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Week < o.Week
}

// CurrentPeriod returns the period of the given instant (ISO week).
func CurrentPeriod(t time.Time) Period {
	year, week := t.ISOWeek()
	return Period{Week: week, Year: year}
}

// Document is one week letter as produced upstream. Immutable once produced;
// identity is (Recipient, Period), Content is the raw rich-text body.
type Document struct {
	Recipient string
	Period    Period
	Content   string
}

// Hash returns the change-detection key for the document body: lowercase
// sha256 hex of the raw content. An empty or placeholder letter hashes the
// same way as a real one.
func (d Document) Hash() string {
	sum := sha256.Sum256([]byte(d.Content))
	return hex.EncodeToString(sum[:])
}

// Key returns a stable string key for (Recipient, Period), used for
// per-key locking and logging.
func (d Document) Key() string { return d.Recipient + "/" + d.Period.String() }

// Status classifies the outcome of one Deliver invocation.
type Status string

const (
	// StatusDelivered means at least one channel accepted the letter and
	// the delivery record was written.
	StatusDelivered Status = "delivered"
	// StatusSkipped means an identical hash was already delivered for this
	// (recipient, period); nothing was sent.
	StatusSkipped Status = "skipped"
	// StatusRetrying means every eligible channel failed and a retry is
	// scheduled.
	StatusRetrying Status = "retrying"
	// StatusExhausted means the retry budget for this period is used up;
	// operator attention is required, no further automatic attempts happen.
	StatusExhausted Status = "exhausted"
	// StatusNoChannels means no enabled channel was eligible for the send.
	// This is neither success nor a retryable failure: the retry record is
	// left untouched.
	StatusNoChannels Status = "no_channels"
	// StatusNoLetter means the source had no letter for the period; nothing
	// to deliver.
	StatusNoLetter Status = "no_letter"
)

// Outcome is the per-channel result of one dispatch.
type Outcome struct {
	Channel string
	OK      bool
	Err     error
	Took    time.Duration
}

// Result is what a Deliver invocation hands back to its caller
// (scheduler or operator tooling). Expected failure modes are states here,
// never raw errors; only persistence outages surface as errors.
type Result struct {
	Status        Status
	Hash          string
	NextAttemptAt time.Time // set when Status is StatusRetrying
	Attempts      int       // attempts consumed so far, including this one
	Outcomes      map[string]Outcome
}
