package logging

import "testing"

func TestNewDiscardNeverPanics(t *testing.T) {
	l := NewDiscard()
	l.Printf("hello %d", 1)
	l.Errorf("bad %s", "thing")
	if l.Path() != "" {
		t.Fatalf("expected empty path for discard logger, got %q", l.Path())
	}
	if err := l.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNonMCPModeWritesToStderr(t *testing.T) {
	l := New(false)
	l.Printf("cli mode message")
	if l.Path() != "" {
		t.Fatalf("expected empty path for stderr logger, got %q", l.Path())
	}
}
