package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"weekletter/internal/letter"
	logx "weekletter/pkg/logx"
)

// Store is the persistence API consumed by the delivery pipeline.
//
// Implementations must make each method atomic on its own; the coordinator
// serializes the read-check-write sequence per (recipient, period) key.
type Store interface {
	// GetDelivery returns the delivery record for the key, if any.
	GetDelivery(ctx context.Context, recipient string, period letter.Period) (DeliveryRecord, bool, error)
	// PutDelivery creates or overwrites the delivery record for its key.
	PutDelivery(ctx context.Context, rec DeliveryRecord) error

	// GetRetry returns the retry state for the key, if any.
	GetRetry(ctx context.Context, recipient string, period letter.Period) (RetryState, bool, error)
	// PutRetry creates or overwrites the retry state for its key.
	PutRetry(ctx context.Context, st RetryState) error
	// DueRetries returns all non-terminal retry states with
	// NextAttemptAt <= now, ordered by NextAttemptAt ascending, ties broken
	// by recipient then period.
	DueRetries(ctx context.Context, now time.Time) ([]RetryState, error)

	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
