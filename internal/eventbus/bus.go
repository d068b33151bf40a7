// Package eventbus decouples the delivery pipeline from operator-facing
// consumers (structured logging, status tooling) with a small in-memory
// fanout bus.
package eventbus

import (
	"sync"
	"time"
)

// Delivery lifecycle event types.
const (
	TypeDelivered   = "delivery.delivered"
	TypeSkipped     = "delivery.skipped"
	TypeRetrying    = "delivery.retrying"
	TypeExhausted   = "delivery.exhausted"
	TypeNoChannels  = "delivery.no_channels"
	TypeChannelSent = "channel.sent"
	TypeChannelFail = "channel.failed"
)

// Event is a lightweight in-memory signal.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Slow subscribers may drop events (bounded backpressure).
//
// Data should be small and ideally JSON-serializable.
type Event struct {
	Type string
	Time time.Time
	Data any
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns a simple in-memory fanout bus.
// It does not own any background goroutines.
func New() Bus {
	return &memBus{}
}

type sub struct {
	ch     chan Event
	closed bool
}

type memBus struct {
	mu   sync.Mutex
	subs []*sub
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if s.closed {
			continue
		}
		// Non-blocking delivery; a full subscriber drops the event.
		select {
		case s.ch <- e:
		default:
		}
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	s := &sub{ch: make(chan Event, buffer)}

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			s.closed = true
			for i, cur := range b.subs {
				if cur == s {
					b.subs = append(b.subs[:i], b.subs[i+1:]...)
					break
				}
			}
			b.mu.Unlock()
			close(s.ch)
		})
	}
	return s.ch, unsubscribe
}
