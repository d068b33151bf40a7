package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"weekletter/internal/letter"
	logx "weekletter/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) GetDelivery(ctx context.Context, recipient string, period letter.Period) (DeliveryRecord, bool, error) {
	if s == nil || s.db == nil {
		return DeliveryRecord{}, false, ErrDisabled
	}
	var (
		rec      DeliveryRecord
		postedMS int64
		channels sql.NullString
		content  sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT content_hash, posted_at, channels, content
		 FROM deliveries WHERE recipient = ? AND year = ? AND week = ?`,
		recipient, period.Year, period.Week,
	).Scan(&rec.ContentHash, &postedMS, &channels, &content)
	if errors.Is(err, sql.ErrNoRows) {
		return DeliveryRecord{}, false, nil
	}
	if err != nil {
		return DeliveryRecord{}, false, err
	}
	rec.Recipient = recipient
	rec.Period = period
	rec.PostedAt = time.UnixMilli(postedMS)
	rec.Content = content.String
	if channels.Valid && channels.String != "" {
		// Corrupt flags are not worth failing a read over; dedup only needs the hash.
		_ = json.Unmarshal([]byte(channels.String), &rec.Channels)
	}
	return rec, true, nil
}

func (s *sqliteStore) PutDelivery(ctx context.Context, rec DeliveryRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if rec.PostedAt.IsZero() {
		rec.PostedAt = time.Now()
	}
	var channels any
	if len(rec.Channels) > 0 {
		b, err := json.Marshal(rec.Channels)
		if err != nil {
			return err
		}
		channels = string(b)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries(recipient, year, week, content_hash, posted_at, channels, content)
		 VALUES(?,?,?,?,?,?,?)
		 ON CONFLICT(recipient, year, week) DO UPDATE SET
		   content_hash=excluded.content_hash,
		   posted_at=excluded.posted_at,
		   channels=excluded.channels,
		   content=excluded.content`,
		rec.Recipient, rec.Period.Year, rec.Period.Week,
		rec.ContentHash, rec.PostedAt.UnixMilli(), channels, nullStr(rec.Content),
	)
	return err
}

func (s *sqliteStore) GetRetry(ctx context.Context, recipient string, period letter.Period) (RetryState, bool, error) {
	if s == nil || s.db == nil {
		return RetryState{}, false, ErrDisabled
	}
	var (
		st     RetryState
		lastMS int64
		nextMS sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT attempts, max_attempts, last_attempt_at, next_attempt_at, succeeded
		 FROM retries WHERE recipient = ? AND year = ? AND week = ?`,
		recipient, period.Year, period.Week,
	).Scan(&st.Attempts, &st.MaxAttempts, &lastMS, &nextMS, &st.Succeeded)
	if errors.Is(err, sql.ErrNoRows) {
		return RetryState{}, false, nil
	}
	if err != nil {
		return RetryState{}, false, err
	}
	st.Recipient = recipient
	st.Period = period
	st.LastAttemptAt = time.UnixMilli(lastMS)
	if nextMS.Valid {
		st.NextAttemptAt = time.UnixMilli(nextMS.Int64)
	}
	return st, true, nil
}

func (s *sqliteStore) PutRetry(ctx context.Context, st RetryState) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	var next any
	if !st.NextAttemptAt.IsZero() {
		next = st.NextAttemptAt.UnixMilli()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO retries(recipient, year, week, attempts, max_attempts, last_attempt_at, next_attempt_at, succeeded)
		 VALUES(?,?,?,?,?,?,?,?)
		 ON CONFLICT(recipient, year, week) DO UPDATE SET
		   attempts=excluded.attempts,
		   max_attempts=excluded.max_attempts,
		   last_attempt_at=excluded.last_attempt_at,
		   next_attempt_at=excluded.next_attempt_at,
		   succeeded=excluded.succeeded`,
		st.Recipient, st.Period.Year, st.Period.Week,
		st.Attempts, st.MaxAttempts, st.LastAttemptAt.UnixMilli(), next, st.Succeeded,
	)
	return err
}

func (s *sqliteStore) DueRetries(ctx context.Context, now time.Time) ([]RetryState, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT recipient, year, week, attempts, max_attempts, last_attempt_at, next_attempt_at, succeeded
		 FROM retries
		 WHERE succeeded = 0 AND next_attempt_at IS NOT NULL AND next_attempt_at <= ?`,
		now.UnixMilli(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RetryState
	for rows.Next() {
		var (
			st     RetryState
			lastMS int64
			nextMS sql.NullInt64
		)
		if err := rows.Scan(&st.Recipient, &st.Period.Year, &st.Period.Week,
			&st.Attempts, &st.MaxAttempts, &lastMS, &nextMS, &st.Succeeded); err != nil {
			return nil, err
		}
		st.LastAttemptAt = time.UnixMilli(lastMS)
		if nextMS.Valid {
			st.NextAttemptAt = time.UnixMilli(nextMS.Int64)
		}
		if st.Terminal() {
			continue
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortDue(out)
	return out, nil
}

// sortDue orders due retries earliest-first with a deterministic tie-break
// (recipient, then period) so scheduler runs are reproducible.
func sortDue(due []RetryState) {
	sort.Slice(due, func(i, j int) bool {
		a, b := due[i], due[j]
		if !a.NextAttemptAt.Equal(b.NextAttemptAt) {
			return a.NextAttemptAt.Before(b.NextAttemptAt)
		}
		if a.Recipient != b.Recipient {
			return a.Recipient < b.Recipient
		}
		return a.Period.Before(b.Period)
	})
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
