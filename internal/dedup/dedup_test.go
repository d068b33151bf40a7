package dedup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"weekletter/internal/letter"
	"weekletter/internal/storage"
	logx "weekletter/pkg/logx"
)

func testGate(t *testing.T) (*Gate, storage.Store) {
	t.Helper()
	st, err := storage.Open(storage.Config{
		Driver: "file",
		Path:   filepath.Join(t.TempDir(), "store.json"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return NewGate(st, logx.Nop()), st
}

func TestSeen(t *testing.T) {
	gate, _ := testGate(t)
	ctx := context.Background()
	doc := letter.Document{
		Recipient: "alice",
		Period:    letter.Period{Year: 2024, Week: 42},
		Content:   "<p>original</p>",
	}
	hash := doc.Hash()

	seen, err := gate.Seen(ctx, doc.Recipient, doc.Period, hash)
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if seen {
		t.Fatal("empty store must not report seen")
	}

	if err := gate.MarkDelivered(ctx, doc, hash, map[string]bool{"telegram": true}, time.Now()); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}

	seen, err = gate.Seen(ctx, doc.Recipient, doc.Period, hash)
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if !seen {
		t.Fatal("identical hash must be reported as seen")
	}

	// Changed content reopens the gate for the same key.
	amended := doc
	amended.Content = "<p>amended</p>"
	seen, err = gate.Seen(ctx, doc.Recipient, doc.Period, amended.Hash())
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if seen {
		t.Fatal("changed hash must not be reported as seen")
	}

	// Another recipient never collides.
	seen, err = gate.Seen(ctx, "bob", doc.Period, hash)
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if seen {
		t.Fatal("other recipient must not be reported as seen")
	}
}

func TestMarkDeliveredOverwrites(t *testing.T) {
	gate, st := testGate(t)
	ctx := context.Background()
	doc := letter.Document{
		Recipient: "alice",
		Period:    letter.Period{Year: 2024, Week: 42},
		Content:   "v1",
	}
	now := time.Now()

	if err := gate.MarkDelivered(ctx, doc, doc.Hash(), map[string]bool{"mail": true}, now); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}

	doc.Content = "v2"
	if err := gate.MarkDelivered(ctx, doc, doc.Hash(), map[string]bool{"mail": false, "telegram": true}, now); err != nil {
		t.Fatalf("MarkDelivered v2: %v", err)
	}

	rec, ok, err := st.GetDelivery(ctx, doc.Recipient, doc.Period)
	if err != nil || !ok {
		t.Fatalf("GetDelivery = ok=%v err=%v", ok, err)
	}
	if rec.ContentHash != doc.Hash() || rec.Content != "v2" {
		t.Fatalf("record not overwritten: %+v", rec)
	}
	if !rec.Channels["telegram"] || rec.Channels["mail"] {
		t.Fatalf("channel flags = %v", rec.Channels)
	}
}
