package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"weekletter/internal/letter"
	logx "weekletter/pkg/logx"
)

func openTestStore(t *testing.T, driver string) Store {
	t.Helper()
	cfg := Config{Driver: driver, Path: filepath.Join(t.TempDir(), "store")}
	if driver == "sqlite" {
		cfg.Path += ".db"
		cfg.BusyTimeout = time.Second
	}
	st, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Open(%s): %v", driver, err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func drivers() []string { return []string{"file", "sqlite"} }

func TestDeliveryRoundTrip(t *testing.T) {
	for _, driver := range drivers() {
		t.Run(driver, func(t *testing.T) {
			st := openTestStore(t, driver)
			ctx := context.Background()
			period := letter.Period{Year: 2024, Week: 42}

			if _, ok, err := st.GetDelivery(ctx, "alice", period); err != nil || ok {
				t.Fatalf("GetDelivery on empty store = ok=%v err=%v", ok, err)
			}

			rec := DeliveryRecord{
				Recipient:   "alice",
				Period:      period,
				ContentHash: "abc123",
				PostedAt:    time.Now().Truncate(time.Millisecond),
				Channels:    map[string]bool{"telegram": true, "mail": false},
				Content:     "<p>hi</p>",
			}
			if err := st.PutDelivery(ctx, rec); err != nil {
				t.Fatalf("PutDelivery: %v", err)
			}

			got, ok, err := st.GetDelivery(ctx, "alice", period)
			if err != nil || !ok {
				t.Fatalf("GetDelivery = ok=%v err=%v", ok, err)
			}
			if got.ContentHash != rec.ContentHash || got.Content != rec.Content {
				t.Fatalf("got %+v, want %+v", got, rec)
			}
			if !got.Channels["telegram"] || got.Channels["mail"] {
				t.Fatalf("channel flags lost: %+v", got.Channels)
			}

			// Overwrite with a new hash for the same key.
			rec.ContentHash = "def456"
			if err := st.PutDelivery(ctx, rec); err != nil {
				t.Fatalf("PutDelivery overwrite: %v", err)
			}
			got, _, _ = st.GetDelivery(ctx, "alice", period)
			if got.ContentHash != "def456" {
				t.Fatalf("overwrite lost: %q", got.ContentHash)
			}

			// Other periods stay untouched.
			if _, ok, _ := st.GetDelivery(ctx, "alice", letter.Period{Year: 2024, Week: 43}); ok {
				t.Fatal("unexpected record for other period")
			}
		})
	}
}

func TestRetryRoundTrip(t *testing.T) {
	for _, driver := range drivers() {
		t.Run(driver, func(t *testing.T) {
			st := openTestStore(t, driver)
			ctx := context.Background()
			period := letter.Period{Year: 2024, Week: 42}
			now := time.Now().Truncate(time.Millisecond)

			state := RetryState{
				Recipient:     "bob",
				Period:        period,
				Attempts:      3,
				MaxAttempts:   24,
				LastAttemptAt: now,
				NextAttemptAt: now.Add(2 * time.Hour),
			}
			if err := st.PutRetry(ctx, state); err != nil {
				t.Fatalf("PutRetry: %v", err)
			}

			got, ok, err := st.GetRetry(ctx, "bob", period)
			if err != nil || !ok {
				t.Fatalf("GetRetry = ok=%v err=%v", ok, err)
			}
			if got.Attempts != 3 || got.MaxAttempts != 24 || got.Succeeded {
				t.Fatalf("got %+v", got)
			}
			if !got.NextAttemptAt.Equal(state.NextAttemptAt) {
				t.Fatalf("NextAttemptAt = %v, want %v", got.NextAttemptAt, state.NextAttemptAt)
			}

			// Retired state persists a zero NextAttemptAt.
			state.Succeeded = true
			state.NextAttemptAt = time.Time{}
			if err := st.PutRetry(ctx, state); err != nil {
				t.Fatalf("PutRetry retire: %v", err)
			}
			got, _, _ = st.GetRetry(ctx, "bob", period)
			if !got.Succeeded || !got.NextAttemptAt.IsZero() {
				t.Fatalf("retired state lost: %+v", got)
			}
		})
	}
}

func TestDueRetriesOrderAndFiltering(t *testing.T) {
	for _, driver := range drivers() {
		t.Run(driver, func(t *testing.T) {
			st := openTestStore(t, driver)
			ctx := context.Background()
			now := time.Now().Truncate(time.Millisecond)

			put := func(recipient string, week int, next time.Time, succeeded bool, attempts, max int) {
				t.Helper()
				err := st.PutRetry(ctx, RetryState{
					Recipient:     recipient,
					Period:        letter.Period{Year: 2024, Week: week},
					Attempts:      attempts,
					MaxAttempts:   max,
					LastAttemptAt: now.Add(-time.Hour),
					NextAttemptAt: next,
					Succeeded:     succeeded,
				})
				if err != nil {
					t.Fatalf("PutRetry: %v", err)
				}
			}

			put("carol", 40, now.Add(-2*time.Hour), false, 1, 24) // due, oldest
			put("bob", 41, now.Add(-time.Hour), false, 1, 24)     // due
			put("alice", 41, now.Add(-time.Hour), false, 1, 24)   // due, same time as bob
			put("dave", 41, now.Add(time.Hour), false, 1, 24)     // not yet due
			put("erin", 41, now.Add(-time.Hour), true, 1, 24)     // succeeded
			put("frank", 41, now.Add(-time.Hour), false, 24, 24)  // exhausted

			due, err := st.DueRetries(ctx, now)
			if err != nil {
				t.Fatalf("DueRetries: %v", err)
			}
			var got []string
			for _, st := range due {
				got = append(got, st.Recipient)
			}
			want := []string{"carol", "alice", "bob"}
			if len(got) != len(want) {
				t.Fatalf("due = %v, want %v", got, want)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("due order = %v, want %v", got, want)
				}
			}
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "bolt", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	ctx := context.Background()
	period := letter.Period{Year: 2025, Week: 1}

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.PutDelivery(ctx, DeliveryRecord{Recipient: "alice", Period: period, ContentHash: "h1"}); err != nil {
		t.Fatalf("PutDelivery: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st, err = Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	rec, ok, err := st.GetDelivery(ctx, "alice", period)
	if err != nil || !ok {
		t.Fatalf("GetDelivery after reopen = ok=%v err=%v", ok, err)
	}
	if rec.ContentHash != "h1" {
		t.Fatalf("hash lost across reopen: %q", rec.ContentHash)
	}
}
