package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"weekletter/internal/letter"
	logx "weekletter/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Both tables live in one JSON snapshot (<path>). Every write rewrites the
// snapshot via tmp-file + rename, which is atomic on POSIX. Volumes are one
// letter per recipient per week, so write amplification is a non-issue.
type fileStore struct {
	log  logx.Logger
	path string

	mu   sync.Mutex
	data snapshot
}

type snapshot struct {
	Deliveries map[string]deliveryRow `json:"deliveries"`
	Retries    map[string]retryRow    `json:"retries"`
}

type deliveryRow struct {
	Recipient   string          `json:"recipient"`
	Year        int             `json:"year"`
	Week        int             `json:"week"`
	ContentHash string          `json:"content_hash"`
	PostedAt    int64           `json:"posted_at"` // unix milli
	Channels    map[string]bool `json:"channels,omitempty"`
	Content     string          `json:"content,omitempty"`
}

type retryRow struct {
	Recipient     string `json:"recipient"`
	Year          int    `json:"year"`
	Week          int    `json:"week"`
	Attempts      int    `json:"attempts"`
	MaxAttempts   int    `json:"max_attempts"`
	LastAttemptAt int64  `json:"last_attempt_at"`           // unix milli
	NextAttemptAt int64  `json:"next_attempt_at,omitempty"` // unix milli, 0 = none
	Succeeded     bool   `json:"succeeded,omitempty"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	st := &fileStore{log: log, path: path}
	if err := st.load(); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *fileStore) load() error {
	s.data = snapshot{
		Deliveries: map[string]deliveryRow{},
		Retries:    map[string]retryRow{},
	}
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	var snap snapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return err
	}
	if snap.Deliveries != nil {
		s.data.Deliveries = snap.Deliveries
	}
	if snap.Retries != nil {
		s.data.Retries = snap.Retries
	}
	return nil
}

func (s *fileStore) flushLocked() error {
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(s.data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *fileStore) Close() error { return nil }

func rowKey(recipient string, period letter.Period) string {
	return recipient + "/" + period.String()
}

func (s *fileStore) GetDelivery(ctx context.Context, recipient string, period letter.Period) (DeliveryRecord, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.data.Deliveries[rowKey(recipient, period)]
	if !ok {
		return DeliveryRecord{}, false, nil
	}
	return DeliveryRecord{
		Recipient:   row.Recipient,
		Period:      letter.Period{Week: row.Week, Year: row.Year},
		ContentHash: row.ContentHash,
		PostedAt:    time.UnixMilli(row.PostedAt),
		Channels:    row.Channels,
		Content:     row.Content,
	}, true, nil
}

func (s *fileStore) PutDelivery(ctx context.Context, rec DeliveryRecord) error {
	_ = ctx
	if rec.PostedAt.IsZero() {
		rec.PostedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Deliveries[rowKey(rec.Recipient, rec.Period)] = deliveryRow{
		Recipient:   rec.Recipient,
		Year:        rec.Period.Year,
		Week:        rec.Period.Week,
		ContentHash: rec.ContentHash,
		PostedAt:    rec.PostedAt.UnixMilli(),
		Channels:    rec.Channels,
		Content:     rec.Content,
	}
	return s.flushLocked()
}

func (s *fileStore) GetRetry(ctx context.Context, recipient string, period letter.Period) (RetryState, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.data.Retries[rowKey(recipient, period)]
	if !ok {
		return RetryState{}, false, nil
	}
	return row.state(), true, nil
}

func (s *fileStore) PutRetry(ctx context.Context, st RetryState) error {
	_ = ctx
	row := retryRow{
		Recipient:     st.Recipient,
		Year:          st.Period.Year,
		Week:          st.Period.Week,
		Attempts:      st.Attempts,
		MaxAttempts:   st.MaxAttempts,
		LastAttemptAt: st.LastAttemptAt.UnixMilli(),
		Succeeded:     st.Succeeded,
	}
	if !st.NextAttemptAt.IsZero() {
		row.NextAttemptAt = st.NextAttemptAt.UnixMilli()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Retries[rowKey(st.Recipient, st.Period)] = row
	return s.flushLocked()
}

func (s *fileStore) DueRetries(ctx context.Context, now time.Time) ([]RetryState, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []RetryState
	for _, row := range s.data.Retries {
		st := row.state()
		if st.Terminal() || st.NextAttemptAt.IsZero() || st.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, st)
	}
	sortDue(out)
	return out, nil
}

func (r retryRow) state() RetryState {
	st := RetryState{
		Recipient:     r.Recipient,
		Period:        letter.Period{Week: r.Week, Year: r.Year},
		Attempts:      r.Attempts,
		MaxAttempts:   r.MaxAttempts,
		LastAttemptAt: time.UnixMilli(r.LastAttemptAt),
		Succeeded:     r.Succeeded,
	}
	if r.NextAttemptAt != 0 {
		st.NextAttemptAt = time.UnixMilli(r.NextAttemptAt)
	}
	return st
}
