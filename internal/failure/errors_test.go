package failure_test

import (
	"errors"
	"strings"
	"testing"

	"nnetctl/internal/failure"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := failure.Wrap(failure.ErrLaunch, "launcher", "run", "job failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, failure.ErrLaunch) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"launcher", "run", "job failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutDetail(t *testing.T) {
	err := failure.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, failure.ErrStateMissing) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "controller failure") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestFatalClassification(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"nil", nil, false},
		{"measurement", failure.Wrap(failure.ErrMeasurement, "selector", "parse", "no objective", nil), false},
		{"invalid spec", failure.Wrap(failure.ErrInvalidSpec, "sizespec", "parse", "bad", nil), true},
		{"mismatch", failure.NewMismatch("feat_dim", 40, 13), true},
		{"unclassified", errors.New("io"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := failure.Fatal(tc.err); got != tc.fatal {
				t.Fatalf("Fatal(%v) = %v, want %v", tc.err, got, tc.fatal)
			}
		})
	}
}

func TestMismatchUnwraps(t *testing.T) {
	err := error(failure.NewMismatch("left_context", 5, 3))
	if !errors.Is(err, failure.ErrContextMismatch) {
		t.Fatalf("expected context mismatch marker, got %v", err)
	}
	var m *failure.Mismatch
	if !errors.As(err, &m) {
		t.Fatal("expected *Mismatch")
	}
	if m.Expected != "5" || m.Actual != "3" {
		t.Fatalf("unexpected values %+v", m)
	}
}
