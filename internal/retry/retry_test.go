package retry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"weekletter/internal/letter"
	"weekletter/internal/storage"
	logx "weekletter/pkg/logx"
)

func testStore(t *testing.T) storage.Store {
	t.Helper()
	st, err := storage.Open(storage.Config{
		Driver: "file",
		Path:   filepath.Join(t.TempDir(), "store.json"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestMaxAttempts(t *testing.T) {
	cases := []struct {
		name     string
		interval time.Duration
		maxDur   time.Duration
		want     int
	}{
		{"defaults", 2 * time.Hour, 48 * time.Hour, 24},
		{"rounds down", 3 * time.Hour, 10 * time.Hour, 3},
		{"rounds half up", 4 * time.Hour, 10 * time.Hour, 3},
		{"never below one", 4 * time.Hour, time.Hour, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{Interval: tc.interval, MaxDuration: tc.maxDur}
			if got := cfg.MaxAttempts(); got != tc.want {
				t.Fatalf("MaxAttempts(%v/%v) = %d, want %d", tc.maxDur, tc.interval, got, tc.want)
			}
		})
	}
}

func TestRecordFailureSchedulesNextAttempt(t *testing.T) {
	tr := NewTracker(Config{}, testStore(t), logx.Nop())
	now := time.Date(2024, 10, 14, 9, 0, 0, 0, time.UTC)
	tr.SetNow(func() time.Time { return now })

	ctx := context.Background()
	period := letter.Period{Year: 2024, Week: 42}

	st, err := tr.RecordFailure(ctx, "alice", period)
	if err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if st.Attempts != 1 || st.MaxAttempts != 24 {
		t.Fatalf("state = %+v", st)
	}
	if !st.NextAttemptAt.Equal(now.Add(2 * time.Hour)) {
		t.Fatalf("NextAttemptAt = %v, want %v", st.NextAttemptAt, now.Add(2*time.Hour))
	}
	if st.Terminal() {
		t.Fatal("one failure must not be terminal")
	}
}

func TestRetryBudgetExhaustion(t *testing.T) {
	tr := NewTracker(Config{}, testStore(t), logx.Nop())
	now := time.Date(2024, 10, 14, 9, 0, 0, 0, time.UTC)
	tr.SetNow(func() time.Time { return now })

	ctx := context.Background()
	period := letter.Period{Year: 2024, Week: 42}

	var st storage.RetryState
	var err error
	for i := 0; i < 24; i++ {
		st, err = tr.RecordFailure(ctx, "alice", period)
		if err != nil {
			t.Fatalf("RecordFailure #%d: %v", i+1, err)
		}
		now = now.Add(2 * time.Hour)
	}
	if st.Attempts != 24 {
		t.Fatalf("attempts = %d, want 24", st.Attempts)
	}
	if !st.Terminal() {
		t.Fatal("budget must be exhausted after 24 attempts")
	}
	if !st.NextAttemptAt.IsZero() {
		t.Fatalf("exhausted state still scheduled: %v", st.NextAttemptAt)
	}

	// Further failures must not grow the attempt counter.
	st, err = tr.RecordFailure(ctx, "alice", period)
	if err != nil {
		t.Fatalf("RecordFailure past budget: %v", err)
	}
	if st.Attempts != 24 {
		t.Fatalf("terminal state mutated: %+v", st)
	}

	due, err := tr.Due(ctx)
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("exhausted state still due: %v", due)
	}
}

func TestRecordSuccessRetires(t *testing.T) {
	store := testStore(t)
	tr := NewTracker(Config{}, store, logx.Nop())
	now := time.Date(2024, 10, 14, 9, 0, 0, 0, time.UTC)
	tr.SetNow(func() time.Time { return now })

	ctx := context.Background()
	period := letter.Period{Year: 2024, Week: 42}

	if _, err := tr.RecordFailure(ctx, "alice", period); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if err := tr.RecordSuccess(ctx, "alice", period); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}

	st, ok, err := store.GetRetry(ctx, "alice", period)
	if err != nil || !ok {
		t.Fatalf("GetRetry = ok=%v err=%v", ok, err)
	}
	if !st.Succeeded || !st.NextAttemptAt.IsZero() {
		t.Fatalf("state not retired: %+v", st)
	}
	if st.Attempts != 1 {
		t.Fatalf("attempt history lost: %+v", st)
	}

	// Success with no pending record is a no-op.
	if err := tr.RecordSuccess(ctx, "bob", period); err != nil {
		t.Fatalf("RecordSuccess without record: %v", err)
	}
	if _, ok, _ := store.GetRetry(ctx, "bob", period); ok {
		t.Fatal("no-op success created a record")
	}
}

func TestFailureAfterSuccessOpensFreshCycle(t *testing.T) {
	store := testStore(t)
	tr := NewTracker(Config{}, store, logx.Nop())
	now := time.Date(2024, 10, 14, 9, 0, 0, 0, time.UTC)
	tr.SetNow(func() time.Time { return now })

	ctx := context.Background()
	period := letter.Period{Year: 2024, Week: 42}

	// Fail once, then deliver. The row is retired.
	if _, err := tr.RecordFailure(ctx, "alice", period); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if err := tr.RecordSuccess(ctx, "alice", period); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}

	// Amended content for the same period fails. The retired row must not
	// block the new cycle or leak its attempt count.
	now = now.Add(24 * time.Hour)
	st, err := tr.RecordFailure(ctx, "alice", period)
	if err != nil {
		t.Fatalf("RecordFailure after success: %v", err)
	}
	if st.Succeeded || st.Terminal() {
		t.Fatalf("fresh cycle reported terminal: %+v", st)
	}
	if st.Attempts != 1 || st.MaxAttempts != 24 {
		t.Fatalf("fresh cycle state = %+v", st)
	}
	if !st.NextAttemptAt.Equal(now.Add(2 * time.Hour)) {
		t.Fatalf("NextAttemptAt = %v, want %v", st.NextAttemptAt, now.Add(2*time.Hour))
	}

	due, err := tr.Due(ctx)
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("not yet due: %v", due)
	}
	now = now.Add(2 * time.Hour)
	due, err = tr.Due(ctx)
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("due = %v, want the re-opened cycle", due)
	}
}

func TestDueHonorsClock(t *testing.T) {
	tr := NewTracker(Config{}, testStore(t), logx.Nop())
	now := time.Date(2024, 10, 14, 9, 0, 0, 0, time.UTC)
	tr.SetNow(func() time.Time { return now })

	ctx := context.Background()
	if _, err := tr.RecordFailure(ctx, "alice", letter.Period{Year: 2024, Week: 42}); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}

	due, err := tr.Due(ctx)
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("retry due before its interval elapsed: %v", due)
	}

	now = now.Add(2 * time.Hour)
	due, err = tr.Due(ctx)
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(due) != 1 || due[0].Recipient != "alice" {
		t.Fatalf("due = %v", due)
	}
}
