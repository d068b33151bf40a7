package letter

import (
	"testing"
	"time"
)

func TestPeriodString(t *testing.T) {
	cases := []struct {
		p    Period
		want string
	}{
		{Period{Year: 2024, Week: 42}, "2024-W42"},
		{Period{Year: 2025, Week: 1}, "2025-W01"},
	}
	for _, tc := range cases {
		if got := tc.p.String(); got != tc.want {
			t.Fatalf("%+v.String() = %q, want %q", tc.p, got, tc.want)
		}
	}
}

func TestPeriodBefore(t *testing.T) {
	a := Period{Year: 2024, Week: 52}
	b := Period{Year: 2025, Week: 1}
	if !a.Before(b) {
		t.Fatalf("%v should be before %v", a, b)
	}
	if b.Before(a) {
		t.Fatalf("%v should not be before %v", b, a)
	}
	if a.Before(a) {
		t.Fatal("a period is not before itself")
	}
}

func TestCurrentPeriodUsesISOWeek(t *testing.T) {
	// 2024-12-30 is a Monday that already belongs to ISO week 1 of 2025.
	p := CurrentPeriod(time.Date(2024, 12, 30, 12, 0, 0, 0, time.UTC))
	if p.Year != 2025 || p.Week != 1 {
		t.Fatalf("CurrentPeriod = %+v, want 2025-W01", p)
	}
}

func TestDocumentHash(t *testing.T) {
	a := Document{Recipient: "alice", Period: Period{Year: 2024, Week: 42}, Content: "hello"}
	b := a
	if a.Hash() != b.Hash() {
		t.Fatal("identical content must hash identically")
	}

	b.Content = "hello!"
	if a.Hash() == b.Hash() {
		t.Fatal("different content must hash differently")
	}

	// Hash covers content only, not identity.
	c := a
	c.Recipient = "bob"
	if a.Hash() != c.Hash() {
		t.Fatal("hash must not depend on recipient")
	}

	empty := Document{}
	if empty.Hash() == "" {
		t.Fatal("empty content still hashes")
	}
}

func TestDocumentKey(t *testing.T) {
	d := Document{Recipient: "alice", Period: Period{Year: 2024, Week: 42}}
	if got := d.Key(); got != "alice/2024-W42" {
		t.Fatalf("Key() = %q", got)
	}
}
