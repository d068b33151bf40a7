package logx

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"DEBUG", zerolog.DebugLevel},
		{"debug", zerolog.DebugLevel},
		{" warn ", zerolog.WarnLevel},
		{"WARNING", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in, zerolog.InfoLevel); got != tc.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestZeroLoggerIsSafe(t *testing.T) {
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero value should report IsZero")
	}
	// Must not panic.
	l.Info("hello", String("k", "v"))
	l.With(Int("n", 1)).Error("still fine", Err(nil))
}

func TestWithDerivesIndependently(t *testing.T) {
	base := Nop()
	derived := base.With(String("comp", "test"))
	if derived.IsZero() {
		t.Fatal("derived logger lost its base")
	}
	// The parent must not accumulate the child's fields.
	if len(base.fields) != 0 {
		t.Fatalf("parent gained %d fields", len(base.fields))
	}
	if len(derived.fields) != 1 {
		t.Fatalf("derived has %d fields, want 1", len(derived.fields))
	}
}
